// Package service implements the application services on top of the domain
// stores: extraction, graph queries, retrieval, schema management and jobs.
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/inquira/kgraph/domain/extraction"
	"github.com/inquira/kgraph/domain/graph"
	"github.com/inquira/kgraph/domain/repository"
	"github.com/inquira/kgraph/domain/schema"
	"github.com/inquira/kgraph/infrastructure/extractor"
	"github.com/inquira/kgraph/internal/log"
)

// similarityScanLimit bounds how many same-type entities the dedup pass
// compares a candidate against. Beyond it only exact name matches merge.
const similarityScanLimit = 500

// ExtractionService runs the per-chunk extraction pipeline: prompt the model
// with the domain schema, parse candidates, validate them against the schema,
// deduplicate against the existing graph and persist with provenance.
type ExtractionService struct {
	graph               graph.Store
	completer           extraction.Completer
	prompts             extractor.PromptBuilder
	similarityThreshold float64
	logger              *log.Logger
}

// NewExtractionService creates an ExtractionService.
func NewExtractionService(
	graphStore graph.Store,
	completer extraction.Completer,
	similarityThreshold float64,
	logger *log.Logger,
) *ExtractionService {
	if similarityThreshold <= 0 || similarityThreshold > 1 {
		similarityThreshold = extraction.SimilarityThreshold
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ExtractionService{
		graph:               graphStore,
		completer:           completer,
		prompts:             extractor.NewPromptBuilder(),
		similarityThreshold: similarityThreshold,
		logger:              logger.With("component", "extraction"),
	}
}

// ExtractChunk extracts one chunk under the given schema definition and
// persists the surviving candidates. Model output the service cannot parse
// is logged and dropped without failing the chunk; transport errors from the
// model call are returned so the caller can retry.
func (s *ExtractionService) ExtractChunk(ctx context.Context, chunk extraction.Chunk, def schema.Definition) (extraction.Result, error) {
	if chunk.Empty() {
		return extraction.NewResult(chunk.ID(), 0, 0, 0, 0), nil
	}
	if def.Empty() {
		return extraction.Result{}, fmt.Errorf("domain %s has no entity types", def.Domain().ID())
	}

	raw, err := s.completer.Complete(ctx, s.prompts.System(), s.prompts.User(def, chunk.Content()))
	if err != nil {
		return extraction.Result{}, fmt.Errorf("complete extraction: %w", err)
	}

	candidates, err := extractor.ParseResponse(raw)
	if err != nil {
		s.logger.WarnContext(ctx, "dropping unparseable extraction response",
			"chunk_id", chunk.ID(), "error", err)
		return extraction.NewResult(chunk.ID(), 0, 0, 0, 0), nil
	}

	return s.persist(ctx, chunk, def, candidates)
}

// persist validates, deduplicates and writes the candidates.
func (s *ExtractionService) persist(ctx context.Context, chunk extraction.Chunk, def schema.Definition, candidates extraction.Candidates) (extraction.Result, error) {
	version := def.Domain().SchemaVersion()

	var created, merged, relsCreated, dropped int
	// Candidate names map to stored entity IDs so relationship candidates,
	// which reference entities by name, can resolve to edges.
	byName := make(map[string]string, len(candidates.Entities))

	for _, cand := range candidates.Entities {
		entityType, ok := def.CanonicalEntityType(cand.Type)
		if !ok {
			dropped++
			continue
		}

		entity, wasMerge, err := s.upsertEntity(ctx, chunk.KBID(), entityType, cand, version)
		if err != nil {
			return extraction.Result{}, err
		}
		if wasMerge {
			merged++
		} else {
			created++
		}
		byName[strings.ToLower(strings.TrimSpace(cand.Name))] = entity.ID()

		prov := graph.NewProvenance(graph.OwnerEntity, entity.ID(), chunk.KBID(), chunk.DocumentID(), chunk.ID())
		if err := s.graph.AddProvenance(ctx, prov); err != nil {
			return extraction.Result{}, fmt.Errorf("add entity provenance: %w", err)
		}
	}

	for _, cand := range candidates.Relationships {
		relType, ok := def.CanonicalRelationshipType(cand.Type)
		if !ok {
			dropped++
			continue
		}
		sourceID, ok := byName[strings.ToLower(strings.TrimSpace(cand.SourceName))]
		if !ok {
			dropped++
			continue
		}
		targetID, ok := byName[strings.ToLower(strings.TrimSpace(cand.TargetName))]
		if !ok {
			dropped++
			continue
		}

		rel, isNew, err := s.upsertRelationship(ctx, chunk.KBID(), relType, sourceID, targetID, cand.Attributes, version)
		if err != nil {
			return extraction.Result{}, err
		}
		if isNew {
			relsCreated++
		}

		prov := graph.NewProvenance(graph.OwnerRelationship, rel.ID(), chunk.KBID(), chunk.DocumentID(), chunk.ID())
		if err := s.graph.AddProvenance(ctx, prov); err != nil {
			return extraction.Result{}, fmt.Errorf("add relationship provenance: %w", err)
		}
	}

	result := extraction.NewResult(chunk.ID(), created, merged, relsCreated, dropped)
	s.logger.DebugContext(ctx, "chunk extracted",
		"chunk_id", chunk.ID(),
		"created", created,
		"merged", merged,
		"relationships", relsCreated,
		"dropped", dropped)
	return result, nil
}

// upsertEntity finds an existing same-type entity to merge into, by exact
// name first and token similarity second, or creates a new one. Merging never
// crosses entity types.
func (s *ExtractionService) upsertEntity(ctx context.Context, kbID, entityType string, cand extraction.EntityCandidate, version int64) (graph.Entity, bool, error) {
	existing, found, err := s.graph.FindByNameType(ctx, kbID, entityType, cand.Name)
	if err != nil {
		return graph.Entity{}, false, fmt.Errorf("find entity by name: %w", err)
	}
	if !found {
		existing, found, err = s.findSimilar(ctx, kbID, entityType, cand.Name)
		if err != nil {
			return graph.Entity{}, false, err
		}
	}

	if found {
		updated := existing.MergeAttributes(cand.Attributes).WithSchemaVersion(version)
		if cand.Confidence > existing.Confidence() {
			updated = updated.WithConfidence(cand.Confidence)
		}
		saved, err := s.graph.SaveEntity(ctx, updated)
		if err != nil {
			return graph.Entity{}, false, fmt.Errorf("merge entity: %w", err)
		}
		return saved, true, nil
	}

	saved, err := s.graph.SaveEntity(ctx, graph.NewEntity(kbID, entityType, cand.Name, cand.Attributes, cand.Confidence, version))
	if err != nil {
		return graph.Entity{}, false, fmt.Errorf("create entity: %w", err)
	}
	return saved, false, nil
}

// findSimilar scans same-type entities for a name at or above the similarity
// threshold, picking the best scoring match.
func (s *ExtractionService) findSimilar(ctx context.Context, kbID, entityType, name string) (graph.Entity, bool, error) {
	peers, err := s.graph.FindByType(ctx, kbID, entityType, similarityScanLimit)
	if err != nil {
		return graph.Entity{}, false, fmt.Errorf("scan entities for dedup: %w", err)
	}

	var best graph.Entity
	bestScore := 0.0
	for _, peer := range peers {
		score := extraction.NameSimilarity(name, peer.Name())
		if score >= s.similarityThreshold && score > bestScore {
			best = peer
			bestScore = score
		}
	}
	return best, bestScore > 0, nil
}

// upsertRelationship creates the edge unless an identical one already exists.
func (s *ExtractionService) upsertRelationship(ctx context.Context, kbID, relType, sourceID, targetID string, attributes map[string]any, version int64) (graph.Relationship, bool, error) {
	existing, err := s.graph.FindRelationships(ctx,
		repository.WithKB(kbID),
		repository.WithType(relType),
		repository.WithCondition("source_id", sourceID),
		repository.WithCondition("target_id", targetID),
		repository.WithLimit(1),
	)
	if err != nil {
		return graph.Relationship{}, false, fmt.Errorf("find relationship: %w", err)
	}
	if len(existing) > 0 {
		return existing[0], false, nil
	}

	saved, err := s.graph.SaveRelationship(ctx, graph.NewRelationship(kbID, relType, sourceID, targetID, attributes, version))
	if err != nil {
		return graph.Relationship{}, false, fmt.Errorf("create relationship: %w", err)
	}
	return saved, true, nil
}
