package graph

import (
	"context"

	"github.com/inquira/kgraph/domain/repository"
)

// Store persists graph entities, relationships and their provenance rows.
// All reads and writes are scoped by kb_id; implementations must reject
// operations missing one with ErrMissingKB.
type Store interface {
	// SaveEntity inserts or updates an entity. A zero ID means insert; the
	// assigned ID is returned on the copy.
	SaveEntity(ctx context.Context, entity Entity) (Entity, error)

	// SaveRelationship inserts or updates a relationship.
	SaveRelationship(ctx context.Context, rel Relationship) (Relationship, error)

	// FindEntities returns entities matching the given options.
	FindEntities(ctx context.Context, options ...repository.Option) ([]Entity, error)

	// FindOneEntity returns the single entity matching the given options.
	FindOneEntity(ctx context.Context, options ...repository.Option) (Entity, error)

	// FindByNameType returns the entity with an exact case-insensitive name
	// match of the given type within the knowledge base, and whether one
	// exists. Used by the deduplication pass before falling back to
	// similarity.
	FindByNameType(ctx context.Context, kbID, entityType, name string) (Entity, bool, error)

	// SearchByName returns entities whose name contains the query,
	// case-insensitively, within the knowledge base. Results are capped at
	// limit.
	SearchByName(ctx context.Context, kbID, query string, limit int) ([]Entity, error)

	// FindByType returns entities of the given type within the knowledge
	// base, capped at limit.
	FindByType(ctx context.Context, kbID, entityType string, limit int) ([]Entity, error)

	// CountEntities returns the number of entities matching the options.
	CountEntities(ctx context.Context, options ...repository.Option) (int64, error)

	// FindRelationships returns relationships matching the given options.
	FindRelationships(ctx context.Context, options ...repository.Option) ([]Relationship, error)

	// EdgesTouching returns all edges within the knowledge base whose source
	// or target is in entityIDs. This is the frontier query breadth-first
	// expansion is built on; rowCap bounds the result and an overflowing
	// frontier returns ErrQueryLimitExceeded.
	EdgesTouching(ctx context.Context, kbID string, entityIDs []string, rowCap int) ([]Relationship, error)

	// AddProvenance records that a chunk supported an entity or relationship.
	// Duplicate (owner, document, chunk) rows are ignored.
	AddProvenance(ctx context.Context, rows ...Provenance) error

	// EntityIDsByDocument returns the IDs of entities with at least one
	// provenance row from the given document.
	EntityIDsByDocument(ctx context.Context, kbID, documentID string) ([]string, error)

	// ProvenanceFor returns the provenance rows supporting the given owner.
	ProvenanceFor(ctx context.Context, ownerKind OwnerKind, ownerID string) ([]Provenance, error)

	// DeleteByDocument removes the document's provenance rows, then sweeps
	// entities and relationships left with no remaining support from any
	// document. Backs the "replace" cleanup mode. Returns the number of
	// swept entities.
	DeleteByDocument(ctx context.Context, kbID, documentID string) (int64, error)

	// DeleteByKB removes every entity, relationship and provenance row of a
	// knowledge base.
	DeleteByKB(ctx context.Context, kbID string) error
}
