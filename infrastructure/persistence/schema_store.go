package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/inquira/kgraph/domain/repository"
	"github.com/inquira/kgraph/domain/schema"
	"github.com/inquira/kgraph/internal/database"
)

// DomainStore implements schema.DomainStore using GORM.
type DomainStore struct {
	repo database.Repository[schema.Domain, DomainModel]
	db   database.Database
}

// NewDomainStore creates a new DomainStore.
func NewDomainStore(db database.Database) DomainStore {
	return DomainStore{
		repo: database.NewRepository[schema.Domain, DomainModel](db, DomainMapper{}, "domain"),
		db:   db,
	}
}

// Save creates or updates a domain. A domain without an ID gets one assigned.
func (s DomainStore) Save(ctx context.Context, d schema.Domain) (schema.Domain, error) {
	if d.ID() == "" {
		d = d.WithID(uuid.NewString())
	}
	model := DomainMapper{}.ToModel(d)
	if result := s.db.Session(ctx).Save(&model); result.Error != nil {
		return schema.Domain{}, fmt.Errorf("save domain: %w", result.Error)
	}
	return DomainMapper{}.ToDomain(model), nil
}

// Find retrieves domains matching the given options.
func (s DomainStore) Find(ctx context.Context, options ...repository.Option) ([]schema.Domain, error) {
	return s.repo.Find(ctx, options...)
}

// FindOne retrieves a single domain matching the given options.
func (s DomainStore) FindOne(ctx context.Context, options ...repository.Option) (schema.Domain, error) {
	return s.repo.FindOne(ctx, options...)
}

// Delete removes a domain.
func (s DomainStore) Delete(ctx context.Context, d schema.Domain) error {
	return s.repo.DeleteBy(ctx, repository.WithID(d.ID()))
}

// EntityTypeStore implements schema.EntityTypeStore using GORM.
type EntityTypeStore struct {
	repo database.Repository[schema.EntityType, EntityTypeModel]
	db   database.Database
}

// NewEntityTypeStore creates a new EntityTypeStore.
func NewEntityTypeStore(db database.Database) EntityTypeStore {
	return EntityTypeStore{
		repo: database.NewRepository[schema.EntityType, EntityTypeModel](db, EntityTypeMapper{}, "entity type"),
		db:   db,
	}
}

// Save creates or updates an entity type.
func (s EntityTypeStore) Save(ctx context.Context, t schema.EntityType) (schema.EntityType, error) {
	if t.ID() == "" {
		t = t.WithID(uuid.NewString())
	}
	model := EntityTypeMapper{}.ToModel(t)
	if result := s.db.Session(ctx).Save(&model); result.Error != nil {
		return schema.EntityType{}, fmt.Errorf("save entity type: %w", result.Error)
	}
	return EntityTypeMapper{}.ToDomain(model), nil
}

// Find retrieves entity types matching the given options.
func (s EntityTypeStore) Find(ctx context.Context, options ...repository.Option) ([]schema.EntityType, error) {
	return s.repo.Find(ctx, options...)
}

// FindOne retrieves a single entity type matching the given options.
func (s EntityTypeStore) FindOne(ctx context.Context, options ...repository.Option) (schema.EntityType, error) {
	return s.repo.FindOne(ctx, options...)
}

// Delete removes an entity type.
func (s EntityTypeStore) Delete(ctx context.Context, t schema.EntityType) error {
	return s.repo.DeleteBy(ctx, repository.WithID(t.ID()))
}

// RelationshipTypeStore implements schema.RelationshipTypeStore using GORM.
type RelationshipTypeStore struct {
	repo database.Repository[schema.RelationshipType, RelationshipTypeModel]
	db   database.Database
}

// NewRelationshipTypeStore creates a new RelationshipTypeStore.
func NewRelationshipTypeStore(db database.Database) RelationshipTypeStore {
	return RelationshipTypeStore{
		repo: database.NewRepository[schema.RelationshipType, RelationshipTypeModel](db, RelationshipTypeMapper{}, "relationship type"),
		db:   db,
	}
}

// Save creates or updates a relationship type.
func (s RelationshipTypeStore) Save(ctx context.Context, t schema.RelationshipType) (schema.RelationshipType, error) {
	if t.ID() == "" {
		t = t.WithID(uuid.NewString())
	}
	model := RelationshipTypeMapper{}.ToModel(t)
	if result := s.db.Session(ctx).Save(&model); result.Error != nil {
		return schema.RelationshipType{}, fmt.Errorf("save relationship type: %w", result.Error)
	}
	return RelationshipTypeMapper{}.ToDomain(model), nil
}

// Find retrieves relationship types matching the given options.
func (s RelationshipTypeStore) Find(ctx context.Context, options ...repository.Option) ([]schema.RelationshipType, error) {
	return s.repo.Find(ctx, options...)
}

// FindOne retrieves a single relationship type matching the given options.
func (s RelationshipTypeStore) FindOne(ctx context.Context, options ...repository.Option) (schema.RelationshipType, error) {
	return s.repo.FindOne(ctx, options...)
}

// Delete removes a relationship type.
func (s RelationshipTypeStore) Delete(ctx context.Context, t schema.RelationshipType) error {
	return s.repo.DeleteBy(ctx, repository.WithID(t.ID()))
}

// ChangeStore implements schema.ChangeStore using GORM. The change log is
// append-only; there is no update or delete path.
type ChangeStore struct {
	repo database.Repository[schema.ChangeRecord, SchemaChangeModel]
	db   database.Database
}

// NewChangeStore creates a new ChangeStore.
func NewChangeStore(db database.Database) ChangeStore {
	return ChangeStore{
		repo: database.NewRepository[schema.ChangeRecord, SchemaChangeModel](db, SchemaChangeMapper{}, "schema change"),
		db:   db,
	}
}

// Append inserts a change record.
func (s ChangeStore) Append(ctx context.Context, record schema.ChangeRecord) (schema.ChangeRecord, error) {
	if record.ID() == "" {
		record = record.WithID(uuid.NewString())
	}
	model := SchemaChangeMapper{}.ToModel(record)
	if result := s.db.Session(ctx).Create(&model); result.Error != nil {
		return schema.ChangeRecord{}, fmt.Errorf("append schema change: %w", result.Error)
	}
	return SchemaChangeMapper{}.ToDomain(model), nil
}

// Find retrieves change records matching the given options.
func (s ChangeStore) Find(ctx context.Context, options ...repository.Option) ([]schema.ChangeRecord, error) {
	return s.repo.Find(ctx, options...)
}
