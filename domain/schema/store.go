package schema

import (
	"context"

	"github.com/inquira/kgraph/domain/repository"
)

// DomainStore persists domains.
type DomainStore interface {
	Save(ctx context.Context, d Domain) (Domain, error)
	Find(ctx context.Context, options ...repository.Option) ([]Domain, error)
	FindOne(ctx context.Context, options ...repository.Option) (Domain, error)
	Delete(ctx context.Context, d Domain) error
}

// EntityTypeStore persists entity types.
type EntityTypeStore interface {
	Save(ctx context.Context, t EntityType) (EntityType, error)
	Find(ctx context.Context, options ...repository.Option) ([]EntityType, error)
	FindOne(ctx context.Context, options ...repository.Option) (EntityType, error)
	Delete(ctx context.Context, t EntityType) error
}

// RelationshipTypeStore persists relationship types.
type RelationshipTypeStore interface {
	Save(ctx context.Context, t RelationshipType) (RelationshipType, error)
	Find(ctx context.Context, options ...repository.Option) ([]RelationshipType, error)
	FindOne(ctx context.Context, options ...repository.Option) (RelationshipType, error)
	Delete(ctx context.Context, t RelationshipType) error
}

// ChangeStore persists the append-only schema change log.
type ChangeStore interface {
	Append(ctx context.Context, record ChangeRecord) (ChangeRecord, error)
	Find(ctx context.Context, options ...repository.Option) ([]ChangeRecord, error)
}
