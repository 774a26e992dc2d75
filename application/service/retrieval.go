package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/inquira/kgraph/domain/graph"
	"github.com/inquira/kgraph/domain/repository"
	"github.com/inquira/kgraph/domain/retrieval"
	"github.com/inquira/kgraph/internal/log"
)

// Strategy names.
const (
	StrategyVectorOnly     = "vector"
	StrategyGraphAugmented = "graph_augmented"
)

// Graph augmentation tuning. Entities are linked from query tokens, expanded
// augmentHops out, and chunks scored by name-match strength decayed per hop;
// anything under the cutoff is noise and never surfaces.
const (
	augmentHops     = 2
	graphCutoff     = 0.25
	seedLimit       = 20
	minSeedTokenLen = 3
)

// VectorOnlyStrategy answers queries with vector similarity alone.
type VectorOnlyStrategy struct {
	searcher retrieval.VectorSearcher
}

// NewVectorOnlyStrategy creates a VectorOnlyStrategy.
func NewVectorOnlyStrategy(searcher retrieval.VectorSearcher) *VectorOnlyStrategy {
	return &VectorOnlyStrategy{searcher: searcher}
}

// Name returns the registry key.
func (s *VectorOnlyStrategy) Name() string { return StrategyVectorOnly }

// Retrieve runs a vector search and maps the hits to results.
func (s *VectorOnlyStrategy) Retrieve(ctx context.Context, query retrieval.Query) ([]retrieval.Result, error) {
	hits, err := s.searcher.Search(ctx, query.KBID(), query.Text(), query.TopK())
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	results := make([]retrieval.Result, 0, len(hits))
	for _, hit := range hits {
		if hit.Score < query.MinScore() {
			continue
		}
		results = append(results, retrieval.NewResult(hit.ChunkID, hit.DocumentID, hit.Content, hit.Score, retrieval.SourceVector))
	}
	return capResults(results, query.TopK()), nil
}

// GraphAugmentedStrategy runs the vector search first, then links query terms
// to graph entities, expands their neighborhood and folds in the chunks that
// supported the reached entities. Any graph-side failure degrades to the
// vector results alone; the vector half is the correctness floor.
type GraphAugmentedStrategy struct {
	vector  *VectorOnlyStrategy
	store   graph.Store
	queries *GraphQueryService
	chunks  retrieval.ChunkFetcher
	logger  *log.Logger
}

// NewGraphAugmentedStrategy creates a GraphAugmentedStrategy.
func NewGraphAugmentedStrategy(
	searcher retrieval.VectorSearcher,
	store graph.Store,
	queries *GraphQueryService,
	chunks retrieval.ChunkFetcher,
	logger *log.Logger,
) *GraphAugmentedStrategy {
	if logger == nil {
		logger = log.Default()
	}
	return &GraphAugmentedStrategy{
		vector:  NewVectorOnlyStrategy(searcher),
		store:   store,
		queries: queries,
		chunks:  chunks,
		logger:  logger.With("component", "retrieval"),
	}
}

// Name returns the registry key.
func (s *GraphAugmentedStrategy) Name() string { return StrategyGraphAugmented }

// Retrieve answers the query with graph augmentation.
func (s *GraphAugmentedStrategy) Retrieve(ctx context.Context, query retrieval.Query) ([]retrieval.Result, error) {
	vectorResults, err := s.vector.Retrieve(ctx, query)
	if err != nil {
		return nil, err
	}

	graphResults, err := s.augment(ctx, query)
	if err != nil {
		s.logger.WarnContext(ctx, "graph augmentation degraded to vector-only",
			"kb_id", query.KBID(), "error", err)
		return vectorResults, nil
	}

	return mergeResults(vectorResults, graphResults, query), nil
}

// augment links query tokens to entities and scores the chunks supporting
// their neighborhood.
func (s *GraphAugmentedStrategy) augment(ctx context.Context, query retrieval.Query) ([]retrieval.Result, error) {
	seeds, err := s.linkEntities(ctx, query.KBID(), query.Text())
	if err != nil {
		return nil, err
	}
	if len(seeds) == 0 {
		return nil, nil
	}

	seedIDs := make([]string, 0, len(seeds))
	maxSeedScore := 0.0
	for id, score := range seeds {
		seedIDs = append(seedIDs, id)
		if score > maxSeedScore {
			maxSeedScore = score
		}
	}

	hood, err := s.queries.GetNeighborhood(ctx, query.KBID(), seedIDs, augmentHops)
	if err != nil {
		return nil, err
	}

	type scoredChunk struct {
		score     float64
		entityIDs []string
	}
	chunkScores := make(map[string]scoredChunk)

	for _, node := range hood.Nodes() {
		hop, ok := hood.HopDistance(node.ID())
		if !ok {
			continue
		}
		score := maxSeedScore / float64(1+hop)
		if direct, isSeed := seeds[node.ID()]; isSeed {
			score = direct
		}
		if score < graphCutoff {
			continue
		}

		rows, err := s.store.ProvenanceFor(ctx, graph.OwnerEntity, node.ID())
		if err != nil {
			return nil, fmt.Errorf("load provenance: %w", err)
		}
		for _, row := range rows {
			prev := chunkScores[row.ChunkID()]
			if score > prev.score {
				prev.score = score
			}
			prev.entityIDs = append(prev.entityIDs, node.ID())
			chunkScores[row.ChunkID()] = prev
		}
	}
	if len(chunkScores) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(chunkScores))
	for id := range chunkScores {
		ids = append(ids, id)
	}
	records, err := s.chunks.ByIDs(ctx, query.KBID(), ids)
	if err != nil {
		return nil, fmt.Errorf("fetch chunks: %w", err)
	}

	results := make([]retrieval.Result, 0, len(records))
	for _, rec := range records {
		sc := chunkScores[rec.ID]
		results = append(results,
			retrieval.NewResult(rec.ID, rec.DocumentID, rec.Content, sc.score, retrieval.SourceGraph).
				WithEntityIDs(dedupeStrings(sc.entityIDs)))
	}
	return results, nil
}

// linkEntities matches query tokens against entity names. The match score is
// how much of the entity's name the query covers, so an entity fully named in
// the query scores 1.0.
func (s *GraphAugmentedStrategy) linkEntities(ctx context.Context, kbID, text string) (map[string]float64, error) {
	queryTokens := tokenize(text)
	seeds := make(map[string]float64)

	for token := range queryTokens {
		if len(token) < minSeedTokenLen {
			continue
		}
		matches, err := s.store.SearchByName(ctx, kbID, token, seedLimit)
		if err != nil {
			return nil, fmt.Errorf("link entities: %w", err)
		}
		for _, entity := range matches {
			score := nameCoverage(entity.Name(), queryTokens)
			if score > seeds[entity.ID()] {
				seeds[entity.ID()] = score
			}
		}
		if len(seeds) >= seedLimit {
			break
		}
	}
	return seeds, nil
}

// mergeResults folds graph results into the vector results, annotating chunks
// both pipelines found instead of duplicating them, then sorts and caps.
func mergeResults(vectorResults, graphResults []retrieval.Result, query retrieval.Query) []retrieval.Result {
	byChunk := make(map[string]int, len(vectorResults))
	merged := make([]retrieval.Result, len(vectorResults))
	copy(merged, vectorResults)
	for i, r := range merged {
		byChunk[r.ChunkID()] = i
	}

	appended := false
	for _, r := range graphResults {
		if r.Score() < query.MinScore() {
			continue
		}
		if i, ok := byChunk[r.ChunkID()]; ok {
			merged[i] = merged[i].WithEntityIDs(r.EntityIDs())
			continue
		}
		byChunk[r.ChunkID()] = len(merged)
		merged = append(merged, r)
		appended = true
	}

	// When no graph-only chunks fold in, the vector ranking stands
	// untouched. Otherwise a stable sort on score keeps the vector order
	// within equal scores.
	if appended {
		sort.SliceStable(merged, func(i, j int) bool {
			return merged[i].Score() > merged[j].Score()
		})
	}
	return capResults(merged, query.TopK())
}

func capResults(results []retrieval.Result, topK int) []retrieval.Result {
	if topK > 0 && len(results) > topK {
		return results[:topK]
	}
	return results
}

func nameCoverage(name string, queryTokens map[string]struct{}) float64 {
	nameTokens := tokenize(name)
	if len(nameTokens) == 0 {
		return 0
	}
	covered := 0
	for tok := range nameTokens {
		if _, ok := queryTokens[tok]; ok {
			covered++
		}
	}
	return float64(covered) / float64(len(nameTokens))
}

func tokenize(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?\"'()[]")
		if f != "" {
			set[f] = struct{}{}
		}
	}
	return set
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// StrategyRegistry holds the available retrieval strategies and the per
// knowledge base selection. Safe for concurrent use.
type StrategyRegistry struct {
	mu          sync.RWMutex
	strategies  map[string]retrieval.Strategy
	selection   map[string]string
	defaultName string
	store       graph.Store
}

// NewStrategyRegistry creates a registry with the given default strategy.
// A non-nil graph store enables automatic selection: knowledge bases holding
// graph data route to the graph-augmented strategy unless an explicit
// selection overrides it.
func NewStrategyRegistry(defaultStrategy retrieval.Strategy, store graph.Store) *StrategyRegistry {
	r := &StrategyRegistry{
		strategies:  make(map[string]retrieval.Strategy),
		selection:   make(map[string]string),
		defaultName: defaultStrategy.Name(),
		store:       store,
	}
	r.strategies[defaultStrategy.Name()] = defaultStrategy
	return r
}

// Register adds a strategy under its name, replacing any previous one.
func (r *StrategyRegistry) Register(s retrieval.Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[s.Name()] = s
}

// Names returns the registered strategy names, sorted.
func (r *StrategyRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Use selects a strategy for one knowledge base.
func (r *StrategyRegistry) Use(kbID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.strategies[name]; !ok {
		return fmt.Errorf("unknown retrieval strategy %q", name)
	}
	r.selection[kbID] = name
	return nil
}

// For returns the strategy for the knowledge base. An explicit selection
// wins; otherwise the knowledge base's entity count decides, choosing the
// augmented strategy once any entity exists. The count runs per request so
// retrieval upgrades as soon as the first extraction lands; a count failure
// falls back to the default strategy.
func (r *StrategyRegistry) For(ctx context.Context, kbID string) retrieval.Strategy {
	r.mu.RLock()
	if name, ok := r.selection[kbID]; ok {
		if s, ok := r.strategies[name]; ok {
			r.mu.RUnlock()
			return s
		}
	}
	augmented, hasAugmented := r.strategies[StrategyGraphAugmented]
	fallback := r.strategies[r.defaultName]
	store := r.store
	r.mu.RUnlock()

	if hasAugmented && store != nil {
		count, err := store.CountEntities(ctx, repository.WithKB(kbID))
		if err == nil && count > 0 {
			return augmented
		}
	}
	return fallback
}
