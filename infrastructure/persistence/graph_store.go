package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/inquira/kgraph/domain/graph"
	"github.com/inquira/kgraph/domain/repository"
	"github.com/inquira/kgraph/internal/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GraphStore implements graph.Store using GORM. Every read and write is
// scoped by kb_id; name matching is done with LOWER() so it behaves the same
// on SQLite and PostgreSQL.
type GraphStore struct {
	entities  database.Repository[graph.Entity, EntityModel]
	relations database.Repository[graph.Relationship, RelationshipModel]
	db        database.Database
}

// NewGraphStore creates a new GraphStore.
func NewGraphStore(db database.Database) GraphStore {
	return GraphStore{
		entities:  database.NewRepository[graph.Entity, EntityModel](db, EntityMapper{}, "entity"),
		relations: database.NewRepository[graph.Relationship, RelationshipModel](db, RelationshipMapper{}, "relationship"),
		db:        db,
	}
}

// SaveEntity inserts or updates an entity.
func (s GraphStore) SaveEntity(ctx context.Context, entity graph.Entity) (graph.Entity, error) {
	if entity.KBID() == "" {
		return graph.Entity{}, graph.ErrMissingKB
	}
	if entity.ID() == "" {
		entity = entity.WithID(uuid.NewString())
	}
	model := EntityMapper{}.ToModel(entity)
	if result := s.db.Session(ctx).Save(&model); result.Error != nil {
		return graph.Entity{}, fmt.Errorf("save entity: %w", result.Error)
	}
	return EntityMapper{}.ToDomain(model), nil
}

// SaveRelationship inserts or updates a relationship.
func (s GraphStore) SaveRelationship(ctx context.Context, rel graph.Relationship) (graph.Relationship, error) {
	if rel.KBID() == "" {
		return graph.Relationship{}, graph.ErrMissingKB
	}
	if rel.ID() == "" {
		rel = rel.WithID(uuid.NewString())
	}
	model := RelationshipMapper{}.ToModel(rel)
	if result := s.db.Session(ctx).Save(&model); result.Error != nil {
		return graph.Relationship{}, fmt.Errorf("save relationship: %w", result.Error)
	}
	return RelationshipMapper{}.ToDomain(model), nil
}

// FindEntities returns entities matching the given options.
func (s GraphStore) FindEntities(ctx context.Context, options ...repository.Option) ([]graph.Entity, error) {
	return s.entities.Find(ctx, options...)
}

// FindOneEntity returns the single entity matching the given options.
func (s GraphStore) FindOneEntity(ctx context.Context, options ...repository.Option) (graph.Entity, error) {
	return s.entities.FindOne(ctx, options...)
}

// FindByNameType returns the entity with an exact case-insensitive name match
// of the given type within the knowledge base.
func (s GraphStore) FindByNameType(ctx context.Context, kbID, entityType, name string) (graph.Entity, bool, error) {
	if kbID == "" {
		return graph.Entity{}, false, graph.ErrMissingKB
	}
	var model EntityModel
	result := s.db.Session(ctx).
		Where("kb_id = ? AND type = ? AND LOWER(name) = LOWER(?)", kbID, entityType, name).
		First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return graph.Entity{}, false, nil
		}
		return graph.Entity{}, false, fmt.Errorf("find entity by name and type: %w", result.Error)
	}
	return EntityMapper{}.ToDomain(model), true, nil
}

// SearchByName returns entities whose name contains the query,
// case-insensitively, within the knowledge base.
func (s GraphStore) SearchByName(ctx context.Context, kbID, query string, limit int) ([]graph.Entity, error) {
	if kbID == "" {
		return nil, graph.ErrMissingKB
	}
	var models []EntityModel
	result := s.db.Session(ctx).
		Where("kb_id = ? AND LOWER(name) LIKE LOWER(?) ESCAPE '\\'", kbID, "%"+escapeLike(query)+"%").
		Order("name ASC, id ASC").
		Limit(limit).
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("search entities by name: %w", result.Error)
	}
	return s.toEntities(models), nil
}

// FindByType returns entities of the given type within the knowledge base.
func (s GraphStore) FindByType(ctx context.Context, kbID, entityType string, limit int) ([]graph.Entity, error) {
	if kbID == "" {
		return nil, graph.ErrMissingKB
	}
	var models []EntityModel
	result := s.db.Session(ctx).
		Where("kb_id = ? AND type = ?", kbID, entityType).
		Order("name ASC, id ASC").
		Limit(limit).
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("find entities by type: %w", result.Error)
	}
	return s.toEntities(models), nil
}

// CountEntities returns the number of entities matching the options.
func (s GraphStore) CountEntities(ctx context.Context, options ...repository.Option) (int64, error) {
	return s.entities.Count(ctx, options...)
}

// FindRelationships returns relationships matching the given options.
func (s GraphStore) FindRelationships(ctx context.Context, options ...repository.Option) ([]graph.Relationship, error) {
	return s.relations.Find(ctx, options...)
}

// EdgesTouching returns all edges within the knowledge base whose source or
// target is in entityIDs. Exceeding rowCap returns ErrQueryLimitExceeded.
func (s GraphStore) EdgesTouching(ctx context.Context, kbID string, entityIDs []string, rowCap int) ([]graph.Relationship, error) {
	if kbID == "" {
		return nil, graph.ErrMissingKB
	}
	if len(entityIDs) == 0 {
		return nil, nil
	}

	var models []RelationshipModel
	db := s.db.Session(ctx).
		Where("kb_id = ? AND (source_id IN ? OR target_id IN ?)", kbID, entityIDs, entityIDs)
	if rowCap > 0 {
		// Fetch one extra row to detect overflow without a COUNT round trip.
		db = db.Limit(rowCap + 1)
	}
	if result := db.Find(&models); result.Error != nil {
		return nil, fmt.Errorf("edges touching: %w", result.Error)
	}
	if rowCap > 0 && len(models) > rowCap {
		return nil, graph.ErrQueryLimitExceeded
	}

	rels := make([]graph.Relationship, len(models))
	for i, m := range models {
		rels[i] = RelationshipMapper{}.ToDomain(m)
	}
	return rels, nil
}

// AddProvenance records supporting chunks. Duplicate rows are ignored.
func (s GraphStore) AddProvenance(ctx context.Context, rows ...graph.Provenance) error {
	if len(rows) == 0 {
		return nil
	}
	models := make([]ProvenanceModel, len(rows))
	for i, p := range rows {
		if p.KBID() == "" {
			return graph.ErrMissingKB
		}
		models[i] = ProvenanceMapper{}.ToModel(p)
	}
	result := s.db.Session(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models)
	if result.Error != nil {
		return fmt.Errorf("add provenance: %w", result.Error)
	}
	return nil
}

// EntityIDsByDocument returns IDs of entities supported by the given document.
func (s GraphStore) EntityIDsByDocument(ctx context.Context, kbID, documentID string) ([]string, error) {
	if kbID == "" {
		return nil, graph.ErrMissingKB
	}
	var ids []string
	result := s.db.Session(ctx).
		Model(&ProvenanceModel{}).
		Distinct("owner_id").
		Where("kb_id = ? AND document_id = ? AND owner_kind = ?", kbID, documentID, string(graph.OwnerEntity)).
		Pluck("owner_id", &ids)
	if result.Error != nil {
		return nil, fmt.Errorf("entity ids by document: %w", result.Error)
	}
	return ids, nil
}

// ProvenanceFor returns the provenance rows supporting the given owner.
func (s GraphStore) ProvenanceFor(ctx context.Context, ownerKind graph.OwnerKind, ownerID string) ([]graph.Provenance, error) {
	var models []ProvenanceModel
	result := s.db.Session(ctx).
		Where("owner_kind = ? AND owner_id = ?", string(ownerKind), ownerID).
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("provenance for %s %s: %w", ownerKind, ownerID, result.Error)
	}
	rows := make([]graph.Provenance, len(models))
	for i, m := range models {
		rows[i] = ProvenanceMapper{}.ToDomain(m)
	}
	return rows, nil
}

// DeleteByDocument removes the document's provenance rows, then sweeps
// entities and relationships left with no remaining support. Returns the
// number of swept entities.
func (s GraphStore) DeleteByDocument(ctx context.Context, kbID, documentID string) (int64, error) {
	if kbID == "" {
		return 0, graph.ErrMissingKB
	}

	var swept int64
	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		// Owners that were supported by this document before the delete.
		var touched []ProvenanceModel
		if err := tx.
			Where("kb_id = ? AND document_id = ?", kbID, documentID).
			Find(&touched).Error; err != nil {
			return err
		}
		if len(touched) == 0 {
			return nil
		}

		if err := tx.
			Where("kb_id = ? AND document_id = ?", kbID, documentID).
			Delete(&ProvenanceModel{}).Error; err != nil {
			return err
		}

		entityIDs, relIDs := ownerIDsByKind(touched)

		orphanEntities, err := orphanedOwners(tx, graph.OwnerEntity, entityIDs)
		if err != nil {
			return err
		}
		orphanRels, err := orphanedOwners(tx, graph.OwnerRelationship, relIDs)
		if err != nil {
			return err
		}

		if len(orphanEntities) > 0 {
			result := tx.Where("kb_id = ? AND id IN ?", kbID, orphanEntities).Delete(&EntityModel{})
			if result.Error != nil {
				return result.Error
			}
			swept = result.RowsAffected

			// Edges that lost an endpoint go too, with their provenance.
			var danglingIDs []string
			if err := tx.Model(&RelationshipModel{}).
				Where("kb_id = ? AND (source_id IN ? OR target_id IN ?)", kbID, orphanEntities, orphanEntities).
				Pluck("id", &danglingIDs).Error; err != nil {
				return err
			}
			orphanRels = append(orphanRels, danglingIDs...)
		}

		if len(orphanRels) > 0 {
			if err := tx.Where("kb_id = ? AND id IN ?", kbID, orphanRels).
				Delete(&RelationshipModel{}).Error; err != nil {
				return err
			}
			if err := tx.Where("owner_kind = ? AND owner_id IN ?", string(graph.OwnerRelationship), orphanRels).
				Delete(&ProvenanceModel{}).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete graph content by document: %w", err)
	}
	return swept, nil
}

// DeleteByKB removes every entity, relationship and provenance row of a
// knowledge base.
func (s GraphStore) DeleteByKB(ctx context.Context, kbID string) error {
	if kbID == "" {
		return graph.ErrMissingKB
	}
	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		for _, model := range []any{&ProvenanceModel{}, &RelationshipModel{}, &EntityModel{}} {
			if err := tx.Where("kb_id = ?", kbID).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete graph content by kb: %w", err)
	}
	return nil
}

func (s GraphStore) toEntities(models []EntityModel) []graph.Entity {
	entities := make([]graph.Entity, len(models))
	for i, m := range models {
		entities[i] = EntityMapper{}.ToDomain(m)
	}
	return entities
}

// ownerIDsByKind splits provenance rows into entity and relationship owner IDs.
func ownerIDsByKind(rows []ProvenanceModel) (entityIDs, relIDs []string) {
	seenEntity := make(map[string]struct{})
	seenRel := make(map[string]struct{})
	for _, r := range rows {
		switch graph.OwnerKind(r.OwnerKind) {
		case graph.OwnerEntity:
			if _, ok := seenEntity[r.OwnerID]; !ok {
				seenEntity[r.OwnerID] = struct{}{}
				entityIDs = append(entityIDs, r.OwnerID)
			}
		case graph.OwnerRelationship:
			if _, ok := seenRel[r.OwnerID]; !ok {
				seenRel[r.OwnerID] = struct{}{}
				relIDs = append(relIDs, r.OwnerID)
			}
		}
	}
	return entityIDs, relIDs
}

// orphanedOwners returns the subset of candidates with no remaining
// provenance rows of the given kind.
func orphanedOwners(tx *gorm.DB, kind graph.OwnerKind, candidates []string) ([]string, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	var supported []string
	if err := tx.Model(&ProvenanceModel{}).
		Distinct("owner_id").
		Where("owner_kind = ? AND owner_id IN ?", string(kind), candidates).
		Pluck("owner_id", &supported).Error; err != nil {
		return nil, err
	}
	supportedSet := make(map[string]struct{}, len(supported))
	for _, id := range supported {
		supportedSet[id] = struct{}{}
	}
	var orphans []string
	for _, id := range candidates {
		if _, ok := supportedSet[id]; !ok {
			orphans = append(orphans, id)
		}
	}
	return orphans, nil
}

// escapeLike escapes LIKE wildcards in a user-supplied query string.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
