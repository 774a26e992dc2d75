package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/inquira/kgraph/domain/graph"
	"github.com/inquira/kgraph/domain/repository"
	"github.com/inquira/kgraph/internal/config"
	"github.com/inquira/kgraph/internal/log"
)

// GraphQueryService answers read-only graph queries within one knowledge
// base: entity search, bounded neighborhood expansion, shortest paths and
// subgraph extraction. Every traversal runs under the configured timeout and
// row cap; hitting either surfaces graph.ErrQueryLimitExceeded, which callers
// treat as recoverable.
type GraphQueryService struct {
	store  graph.Store
	cfg    config.GraphConfig
	logger *log.Logger
}

// NewGraphQueryService creates a GraphQueryService.
func NewGraphQueryService(store graph.Store, cfg config.GraphConfig, logger *log.Logger) *GraphQueryService {
	if logger == nil {
		logger = log.Default()
	}
	return &GraphQueryService{
		store:  store,
		cfg:    cfg,
		logger: logger.With("component", "graph_query"),
	}
}

// SearchEntities finds entities by name substring, optionally restricted to
// one entity type. Pagination is by page number starting at 1; pageSize 0
// uses the default.
func (s *GraphQueryService) SearchEntities(ctx context.Context, kbID, query, entityType string, page, pageSize int) ([]graph.Entity, error) {
	if kbID == "" {
		return nil, graph.ErrMissingKB
	}
	if pageSize <= 0 {
		pageSize = graph.DefaultPageSize
	}
	if page < 1 {
		page = 1
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if query == "" {
		options := []repository.Option{
			repository.WithKB(kbID),
			repository.WithOrderAsc("name"),
			repository.WithLimit(pageSize),
			repository.WithOffset((page - 1) * pageSize),
		}
		if entityType != "" {
			options = append(options, repository.WithType(entityType))
		}
		return s.store.FindEntities(ctx, options...)
	}

	// Name search pages in memory; the store caps the scan at the row cap.
	matches, err := s.store.SearchByName(ctx, kbID, query, s.cfg.RowCap())
	if err != nil {
		return nil, fmt.Errorf("search entities: %w", err)
	}
	if entityType != "" {
		filtered := matches[:0]
		for _, e := range matches {
			if e.Type() == entityType {
				filtered = append(filtered, e)
			}
		}
		matches = filtered
	}

	start := (page - 1) * pageSize
	if start >= len(matches) {
		return []graph.Entity{}, nil
	}
	end := min(start+pageSize, len(matches))
	return matches[start:end], nil
}

// CountEntities returns the entity count of a knowledge base, optionally
// restricted to one type.
func (s *GraphQueryService) CountEntities(ctx context.Context, kbID, entityType string) (int64, error) {
	if kbID == "" {
		return 0, graph.ErrMissingKB
	}
	options := []repository.Option{repository.WithKB(kbID)}
	if entityType != "" {
		options = append(options, repository.WithType(entityType))
	}
	return s.store.CountEntities(ctx, options...)
}

// GetNeighborhood expands breadth-first from the seed entities up to hops
// away. The hop count is clamped to the server limit.
func (s *GraphQueryService) GetNeighborhood(ctx context.Context, kbID string, seedIDs []string, hops int) (graph.Neighborhood, error) {
	if kbID == "" {
		return graph.Neighborhood{}, graph.ErrMissingKB
	}
	if len(seedIDs) == 0 {
		return graph.NewNeighborhood(nil, nil, nil), nil
	}
	hops = graph.ClampHops(hops)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	hopOf := make(map[string]int, len(seedIDs))
	for _, id := range seedIDs {
		hopOf[id] = 0
	}

	var edges []graph.Relationship
	seenEdge := make(map[string]struct{})
	frontier := append([]string(nil), seedIDs...)

	for depth := 1; depth <= hops && len(frontier) > 0; depth++ {
		touching, err := s.store.EdgesTouching(ctx, kbID, frontier, s.cfg.RowCap())
		if err != nil {
			return graph.Neighborhood{}, s.limitOrWrap(err, "expand neighborhood")
		}

		var next []string
		for _, edge := range touching {
			if _, ok := seenEdge[edge.ID()]; ok {
				continue
			}
			seenEdge[edge.ID()] = struct{}{}
			edges = append(edges, edge)

			for _, endpoint := range []string{edge.SourceID(), edge.TargetID()} {
				if _, visited := hopOf[endpoint]; !visited {
					hopOf[endpoint] = depth
					next = append(next, endpoint)
				}
			}
		}
		frontier = next
	}

	nodes, err := s.loadEntities(ctx, kbID, hopOf)
	if err != nil {
		return graph.Neighborhood{}, err
	}
	return graph.NewNeighborhood(nodes, edges, hopOf), nil
}

// FindPath returns the shortest path between two entities, and whether one
// exists within the depth limit. The depth is clamped to the server limit.
func (s *GraphQueryService) FindPath(ctx context.Context, kbID, sourceID, targetID string, maxDepth int) (graph.Path, bool, error) {
	if kbID == "" {
		return graph.Path{}, false, graph.ErrMissingKB
	}
	if sourceID == targetID {
		nodes, err := s.store.FindEntities(ctx, repository.WithKB(kbID), repository.WithID(sourceID))
		if err != nil || len(nodes) == 0 {
			return graph.Path{}, false, err
		}
		return graph.NewPath(nodes, nil), true, nil
	}
	maxDepth = graph.ClampDepth(maxDepth)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	// Breadth-first search recording, per visited node, the edge that
	// discovered it. The path is rebuilt backwards from the target.
	cameBy := map[string]graph.Relationship{sourceID: {}}
	frontier := []string{sourceID}

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		touching, err := s.store.EdgesTouching(ctx, kbID, frontier, s.cfg.RowCap())
		if err != nil {
			return graph.Path{}, false, s.limitOrWrap(err, "find path")
		}

		var next []string
		for _, edge := range touching {
			for _, from := range frontier {
				if !edge.Touches(from) {
					continue
				}
				to := edge.Other(from)
				if _, visited := cameBy[to]; visited {
					continue
				}
				cameBy[to] = edge
				if to == targetID {
					return s.rebuildPath(ctx, kbID, sourceID, targetID, cameBy)
				}
				next = append(next, to)
			}
		}
		frontier = next
	}
	return graph.Path{}, false, nil
}

// ExtractSubgraph returns the induced subgraph over the given entity IDs:
// the entities plus every edge whose both endpoints are in the set. A
// positive expandHops first widens the set with the seeds' neighborhood,
// clamped to the server hop limit.
func (s *GraphQueryService) ExtractSubgraph(ctx context.Context, kbID string, entityIDs []string, expandHops int) ([]graph.Entity, []graph.Relationship, error) {
	if kbID == "" {
		return nil, nil, graph.ErrMissingKB
	}
	if len(entityIDs) == 0 {
		return []graph.Entity{}, []graph.Relationship{}, nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ids := append([]string(nil), entityIDs...)
	if expandHops > 0 {
		hood, err := s.GetNeighborhood(ctx, kbID, entityIDs, expandHops)
		if err != nil {
			return nil, nil, err
		}
		seen := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			seen[id] = struct{}{}
		}
		for _, node := range hood.Nodes() {
			if _, ok := seen[node.ID()]; !ok {
				seen[node.ID()] = struct{}{}
				ids = append(ids, node.ID())
			}
		}
	}

	nodes, err := s.store.FindEntities(ctx, repository.WithKB(kbID), repository.WithIDIn(ids))
	if err != nil {
		return nil, nil, fmt.Errorf("load subgraph entities: %w", err)
	}

	inSet := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		inSet[n.ID()] = struct{}{}
	}

	touching, err := s.store.EdgesTouching(ctx, kbID, ids, s.cfg.RowCap())
	if err != nil {
		return nil, nil, s.limitOrWrap(err, "load subgraph edges")
	}

	edges := make([]graph.Relationship, 0, len(touching))
	for _, edge := range touching {
		_, hasSource := inSet[edge.SourceID()]
		_, hasTarget := inSet[edge.TargetID()]
		if hasSource && hasTarget {
			edges = append(edges, edge)
		}
	}
	return nodes, edges, nil
}

func (s *GraphQueryService) rebuildPath(ctx context.Context, kbID, sourceID, targetID string, cameBy map[string]graph.Relationship) (graph.Path, bool, error) {
	var reversedIDs []string
	var reversedEdges []graph.Relationship

	for at := targetID; ; {
		reversedIDs = append(reversedIDs, at)
		if at == sourceID {
			break
		}
		edge := cameBy[at]
		reversedEdges = append(reversedEdges, edge)
		at = edge.Other(at)
	}

	ids := make([]string, len(reversedIDs))
	for i, id := range reversedIDs {
		ids[len(reversedIDs)-1-i] = id
	}
	edges := make([]graph.Relationship, len(reversedEdges))
	for i, e := range reversedEdges {
		edges[len(reversedEdges)-1-i] = e
	}

	loaded, err := s.store.FindEntities(ctx, repository.WithKB(kbID), repository.WithIDIn(ids))
	if err != nil {
		return graph.Path{}, false, fmt.Errorf("load path entities: %w", err)
	}
	byID := make(map[string]graph.Entity, len(loaded))
	for _, e := range loaded {
		byID[e.ID()] = e
	}
	nodes := make([]graph.Entity, len(ids))
	for i, id := range ids {
		nodes[i] = byID[id]
	}
	return graph.NewPath(nodes, edges), true, nil
}

func (s *GraphQueryService) loadEntities(ctx context.Context, kbID string, hopOf map[string]int) ([]graph.Entity, error) {
	if len(hopOf) == 0 {
		return []graph.Entity{}, nil
	}
	ids := make([]string, 0, len(hopOf))
	for id := range hopOf {
		ids = append(ids, id)
	}
	nodes, err := s.store.FindEntities(ctx, repository.WithKB(kbID), repository.WithIDIn(ids))
	if err != nil {
		return nil, fmt.Errorf("load neighborhood entities: %w", err)
	}
	return nodes, nil
}

// limitOrWrap maps a deadline expiry onto ErrQueryLimitExceeded and wraps
// everything else. Row-cap overflow already arrives as the limit error.
func (s *GraphQueryService) limitOrWrap(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn("graph query timed out", "op", op)
		return fmt.Errorf("%s: %w", op, graph.ErrQueryLimitExceeded)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *GraphQueryService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.cfg.QueryTimeout()
	if timeout <= 0 {
		timeout = graph.DefaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}
