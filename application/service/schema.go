package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/inquira/kgraph/domain/document"
	"github.com/inquira/kgraph/domain/repository"
	"github.com/inquira/kgraph/domain/schema"
	"github.com/inquira/kgraph/internal/database"
	"github.com/inquira/kgraph/internal/log"
)

// Schema service errors.
var (
	ErrDomainNotFound   = errors.New("domain not found")
	ErrDomainExists     = errors.New("domain name already exists")
	ErrTemplateReadOnly = errors.New("system templates are read-only")
	ErrTypeNotFound     = errors.New("type not found")
	ErrTypeInUse        = errors.New("type is referenced by relationship types")
)

// SchemaService manages domain schemas: the domains themselves, their entity
// and relationship types, the append-only change log and drift detection.
// Every type mutation bumps the domain's schema version and appends a change
// record; audit sinks observe mutations but can never fail them.
type SchemaService struct {
	domains       schema.DomainStore
	entityTypes   schema.EntityTypeStore
	relationTypes schema.RelationshipTypeStore
	changes       schema.ChangeStore
	documents     document.Store
	audit         schema.AuditSink
	tx            repository.Transactor
	logger        *log.Logger
}

// NewSchemaService creates a SchemaService. A nil audit sink disables
// auditing; a nil transactor runs mutations without transactional guarantees.
func NewSchemaService(
	domains schema.DomainStore,
	entityTypes schema.EntityTypeStore,
	relationTypes schema.RelationshipTypeStore,
	changes schema.ChangeStore,
	documents document.Store,
	audit schema.AuditSink,
	tx repository.Transactor,
	logger *log.Logger,
) *SchemaService {
	if logger == nil {
		logger = log.Default()
	}
	return &SchemaService{
		domains:       domains,
		entityTypes:   entityTypes,
		relationTypes: relationTypes,
		changes:       changes,
		documents:     documents,
		audit:         audit,
		tx:            tx,
		logger:        logger.With("component", "schema"),
	}
}

// CreateDomain creates a new domain at schema version 1.
func (s *SchemaService) CreateDomain(ctx context.Context, name, description string, visibility schema.Visibility, ownerID string) (schema.Domain, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return schema.Domain{}, errors.New("domain name is required")
	}
	if visibility == "" {
		visibility = schema.VisibilityPrivate
	}
	if !visibility.Valid() {
		return schema.Domain{}, fmt.Errorf("invalid visibility %q", visibility)
	}

	if _, err := s.domains.FindOne(ctx, repository.WithName(name)); err == nil {
		return schema.Domain{}, fmt.Errorf("%w: %s", ErrDomainExists, name)
	} else if !errors.Is(err, database.ErrNotFound) {
		return schema.Domain{}, fmt.Errorf("check domain name: %w", err)
	}

	saved, err := s.domains.Save(ctx, schema.NewDomain(name, description, visibility, ownerID))
	if err != nil {
		return schema.Domain{}, fmt.Errorf("save domain: %w", err)
	}

	s.recordAudit(ctx, schema.AuditEvent{
		Action:     "domain.create",
		DomainID:   saved.ID(),
		ActorID:    ownerID,
		NewVersion: saved.SchemaVersion(),
		Detail:     name,
	})
	return saved, nil
}

// GetDomain retrieves a domain by ID.
func (s *SchemaService) GetDomain(ctx context.Context, id string) (schema.Domain, error) {
	d, err := s.domains.FindOne(ctx, repository.WithID(id))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return schema.Domain{}, fmt.Errorf("%w: %s", ErrDomainNotFound, id)
		}
		return schema.Domain{}, fmt.Errorf("get domain: %w", err)
	}
	return d, nil
}

// ListDomains returns all domains.
func (s *SchemaService) ListDomains(ctx context.Context, options ...repository.Option) ([]schema.Domain, error) {
	return s.domains.Find(ctx, append(options, repository.WithOrderAsc("name"))...)
}

// UpdateDomain updates a domain's description and visibility. Metadata
// changes do not bump the schema version.
func (s *SchemaService) UpdateDomain(ctx context.Context, id, description string, visibility schema.Visibility, actorID string) (schema.Domain, error) {
	d, err := s.GetDomain(ctx, id)
	if err != nil {
		return schema.Domain{}, err
	}
	if d.IsSystemTemplate() {
		return schema.Domain{}, ErrTemplateReadOnly
	}

	updated := d.WithDescription(description)
	if visibility != "" {
		if !visibility.Valid() || visibility == schema.VisibilitySystemTemplate {
			return schema.Domain{}, fmt.Errorf("invalid visibility %q", visibility)
		}
		updated = updated.WithVisibility(visibility)
	}

	saved, err := s.domains.Save(ctx, updated)
	if err != nil {
		return schema.Domain{}, fmt.Errorf("update domain: %w", err)
	}
	s.recordAudit(ctx, schema.AuditEvent{
		Action:     "domain.update",
		DomainID:   saved.ID(),
		ActorID:    actorID,
		OldVersion: d.SchemaVersion(),
		NewVersion: saved.SchemaVersion(),
	})
	return saved, nil
}

// DeleteDomain removes a domain and its types. System templates cannot be
// deleted.
func (s *SchemaService) DeleteDomain(ctx context.Context, id, actorID string) error {
	d, err := s.GetDomain(ctx, id)
	if err != nil {
		return err
	}
	if d.IsSystemTemplate() {
		return ErrTemplateReadOnly
	}

	relTypes, err := s.relationTypes.Find(ctx, repository.WithDomainID(id))
	if err != nil {
		return fmt.Errorf("load relationship types: %w", err)
	}
	for _, t := range relTypes {
		if err := s.relationTypes.Delete(ctx, t); err != nil {
			return fmt.Errorf("delete relationship type: %w", err)
		}
	}

	entTypes, err := s.entityTypes.Find(ctx, repository.WithDomainID(id))
	if err != nil {
		return fmt.Errorf("load entity types: %w", err)
	}
	for _, t := range entTypes {
		if err := s.entityTypes.Delete(ctx, t); err != nil {
			return fmt.Errorf("delete entity type: %w", err)
		}
	}

	if err := s.domains.Delete(ctx, d); err != nil {
		return fmt.Errorf("delete domain: %w", err)
	}
	s.recordAudit(ctx, schema.AuditEvent{
		Action:     "domain.delete",
		DomainID:   id,
		ActorID:    actorID,
		OldVersion: d.SchemaVersion(),
		Detail:     d.Name(),
	})
	return nil
}

// CloneDomain copies a domain and its full type set into a new private
// domain at schema version 1. This is how system templates are instantiated,
// but any readable domain can be cloned.
func (s *SchemaService) CloneDomain(ctx context.Context, sourceID, newName, ownerID string) (schema.Domain, error) {
	source, err := s.GetDomain(ctx, sourceID)
	if err != nil {
		return schema.Domain{}, err
	}

	clone, err := s.CreateDomain(ctx, newName, source.Description(), schema.VisibilityPrivate, ownerID)
	if err != nil {
		return schema.Domain{}, err
	}

	def, err := s.Definition(ctx, sourceID)
	if err != nil {
		return schema.Domain{}, err
	}

	// Source entity type IDs map to cloned IDs so relationship type
	// references carry over.
	idMap := make(map[string]string, len(def.EntityTypes()))
	for _, t := range def.EntityTypes() {
		cloned, err := s.entityTypes.Save(ctx, schema.NewEntityType(clone.ID(), t.Name(), t.Attributes()).
			WithDisplay(t.Color(), t.Icon()).
			WithPosition(t.Position()))
		if err != nil {
			return schema.Domain{}, fmt.Errorf("clone entity type %q: %w", t.Name(), err)
		}
		idMap[t.ID()] = cloned.ID()
	}
	for _, t := range def.RelationshipTypes() {
		sourceTypeID, sourceOK := idMap[t.SourceTypeID()]
		targetTypeID, targetOK := idMap[t.TargetTypeID()]
		if !sourceOK || !targetOK {
			continue
		}
		if _, err := s.relationTypes.Save(ctx, schema.NewRelationshipType(clone.ID(), t.Name(), sourceTypeID, targetTypeID).
			WithPosition(t.Position())); err != nil {
			return schema.Domain{}, fmt.Errorf("clone relationship type %q: %w", t.Name(), err)
		}
	}

	s.recordAudit(ctx, schema.AuditEvent{
		Action:   "domain.clone",
		DomainID: clone.ID(),
		ActorID:  ownerID,
		Detail:   fmt.Sprintf("cloned from %s", sourceID),
	})
	return clone, nil
}

// Definition loads a domain with its full type set, types in display order.
func (s *SchemaService) Definition(ctx context.Context, domainID string) (schema.Definition, error) {
	d, err := s.GetDomain(ctx, domainID)
	if err != nil {
		return schema.Definition{}, err
	}

	entTypes, err := s.entityTypes.Find(ctx, repository.WithDomainID(domainID))
	if err != nil {
		return schema.Definition{}, fmt.Errorf("load entity types: %w", err)
	}
	sort.Slice(entTypes, func(i, j int) bool { return entTypes[i].Position() < entTypes[j].Position() })

	relTypes, err := s.relationTypes.Find(ctx, repository.WithDomainID(domainID))
	if err != nil {
		return schema.Definition{}, fmt.Errorf("load relationship types: %w", err)
	}
	sort.Slice(relTypes, func(i, j int) bool { return relTypes[i].Position() < relTypes[j].Position() })

	return schema.NewDefinition(d, entTypes, relTypes), nil
}

// AddEntityType adds an entity type to a domain and bumps the schema version.
func (s *SchemaService) AddEntityType(ctx context.Context, domainID, name string, attributes map[string]string, actorID string) (schema.EntityType, error) {
	d, err := s.mutableDomain(ctx, domainID)
	if err != nil {
		return schema.EntityType{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return schema.EntityType{}, errors.New("entity type name is required")
	}

	existing, err := s.entityTypes.Find(ctx, repository.WithDomainID(domainID))
	if err != nil {
		return schema.EntityType{}, fmt.Errorf("load entity types: %w", err)
	}
	for _, t := range existing {
		if strings.EqualFold(t.Name(), name) {
			return schema.EntityType{}, fmt.Errorf("entity type %q already exists", name)
		}
	}

	var saved schema.EntityType
	err = s.mutate(ctx, d, actorID, fmt.Sprintf("added entity type %q", name), func(ctx context.Context) error {
		var saveErr error
		saved, saveErr = s.entityTypes.Save(ctx, schema.NewEntityType(domainID, name, attributes).WithPosition(len(existing)))
		if saveErr != nil {
			return fmt.Errorf("save entity type: %w", saveErr)
		}
		return nil
	})
	if err != nil {
		return schema.EntityType{}, err
	}
	return saved, nil
}

// UpdateEntityType replaces an entity type's attribute hints and bumps the
// schema version.
func (s *SchemaService) UpdateEntityType(ctx context.Context, domainID, typeID string, attributes map[string]string, actorID string) (schema.EntityType, error) {
	d, err := s.mutableDomain(ctx, domainID)
	if err != nil {
		return schema.EntityType{}, err
	}

	t, err := s.entityTypes.FindOne(ctx, repository.WithID(typeID), repository.WithDomainID(domainID))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return schema.EntityType{}, fmt.Errorf("%w: %s", ErrTypeNotFound, typeID)
		}
		return schema.EntityType{}, fmt.Errorf("get entity type: %w", err)
	}

	var saved schema.EntityType
	err = s.mutate(ctx, d, actorID, fmt.Sprintf("updated entity type %q", t.Name()), func(ctx context.Context) error {
		var saveErr error
		saved, saveErr = s.entityTypes.Save(ctx, t.WithAttributes(attributes))
		if saveErr != nil {
			return fmt.Errorf("update entity type: %w", saveErr)
		}
		return nil
	})
	if err != nil {
		return schema.EntityType{}, err
	}
	return saved, nil
}

// DeleteEntityType removes an entity type and bumps the schema version.
// Types still referenced by relationship types cannot be deleted.
func (s *SchemaService) DeleteEntityType(ctx context.Context, domainID, typeID, actorID string) error {
	d, err := s.mutableDomain(ctx, domainID)
	if err != nil {
		return err
	}

	t, err := s.entityTypes.FindOne(ctx, repository.WithID(typeID), repository.WithDomainID(domainID))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrTypeNotFound, typeID)
		}
		return fmt.Errorf("get entity type: %w", err)
	}

	relTypes, err := s.relationTypes.Find(ctx, repository.WithDomainID(domainID))
	if err != nil {
		return fmt.Errorf("load relationship types: %w", err)
	}
	for _, rt := range relTypes {
		if rt.SourceTypeID() == typeID || rt.TargetTypeID() == typeID {
			return fmt.Errorf("%w: %s used by %q", ErrTypeInUse, t.Name(), rt.Name())
		}
	}

	return s.mutate(ctx, d, actorID, fmt.Sprintf("removed entity type %q", t.Name()), func(ctx context.Context) error {
		if err := s.entityTypes.Delete(ctx, t); err != nil {
			return fmt.Errorf("delete entity type: %w", err)
		}
		return nil
	})
}

// AddRelationshipType adds a relationship type between two entity types of
// the domain and bumps the schema version.
func (s *SchemaService) AddRelationshipType(ctx context.Context, domainID, name, sourceTypeID, targetTypeID, actorID string) (schema.RelationshipType, error) {
	d, err := s.mutableDomain(ctx, domainID)
	if err != nil {
		return schema.RelationshipType{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return schema.RelationshipType{}, errors.New("relationship type name is required")
	}

	for _, typeID := range []string{sourceTypeID, targetTypeID} {
		if _, err := s.entityTypes.FindOne(ctx, repository.WithID(typeID), repository.WithDomainID(domainID)); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return schema.RelationshipType{}, fmt.Errorf("%w: entity type %s", ErrTypeNotFound, typeID)
			}
			return schema.RelationshipType{}, fmt.Errorf("check entity type: %w", err)
		}
	}

	existing, err := s.relationTypes.Find(ctx, repository.WithDomainID(domainID))
	if err != nil {
		return schema.RelationshipType{}, fmt.Errorf("load relationship types: %w", err)
	}
	for _, t := range existing {
		if strings.EqualFold(t.Name(), name) {
			return schema.RelationshipType{}, fmt.Errorf("relationship type %q already exists", name)
		}
	}

	var saved schema.RelationshipType
	err = s.mutate(ctx, d, actorID, fmt.Sprintf("added relationship type %q", name), func(ctx context.Context) error {
		var saveErr error
		saved, saveErr = s.relationTypes.Save(ctx, schema.NewRelationshipType(domainID, name, sourceTypeID, targetTypeID).WithPosition(len(existing)))
		if saveErr != nil {
			return fmt.Errorf("save relationship type: %w", saveErr)
		}
		return nil
	})
	if err != nil {
		return schema.RelationshipType{}, err
	}
	return saved, nil
}

// DeleteRelationshipType removes a relationship type and bumps the schema
// version.
func (s *SchemaService) DeleteRelationshipType(ctx context.Context, domainID, typeID, actorID string) error {
	d, err := s.mutableDomain(ctx, domainID)
	if err != nil {
		return err
	}

	t, err := s.relationTypes.FindOne(ctx, repository.WithID(typeID), repository.WithDomainID(domainID))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrTypeNotFound, typeID)
		}
		return fmt.Errorf("get relationship type: %w", err)
	}

	return s.mutate(ctx, d, actorID, fmt.Sprintf("removed relationship type %q", t.Name()), func(ctx context.Context) error {
		if err := s.relationTypes.Delete(ctx, t); err != nil {
			return fmt.Errorf("delete relationship type: %w", err)
		}
		return nil
	})
}

// ChangeLog returns a domain's schema change records, newest first.
func (s *SchemaService) ChangeLog(ctx context.Context, domainID string) ([]schema.ChangeRecord, error) {
	return s.changes.Find(ctx, repository.WithDomainID(domainID), repository.WithOrderDesc("created_at"))
}

// DriftReport summarizes which documents of a knowledge base were extracted
// under an older schema version than the domain's current one.
type DriftReport struct {
	DomainID       string
	CurrentVersion int64
	TotalDocuments int
	StaleDocuments []document.Document
	GeneratedAt    time.Time
}

// Stale reports whether any document has drifted.
func (r DriftReport) Stale() bool {
	return len(r.StaleDocuments) > 0
}

// Drift builds a drift report for one knowledge base and domain.
func (s *SchemaService) Drift(ctx context.Context, kbID, domainID string) (DriftReport, error) {
	d, err := s.GetDomain(ctx, domainID)
	if err != nil {
		return DriftReport{}, err
	}

	docs, err := s.documents.Find(ctx, repository.WithKB(kbID), repository.WithDomainID(domainID))
	if err != nil {
		return DriftReport{}, fmt.Errorf("load documents: %w", err)
	}

	report := DriftReport{
		DomainID:       domainID,
		CurrentVersion: d.SchemaVersion(),
		TotalDocuments: len(docs),
		GeneratedAt:    time.Now(),
	}
	for _, doc := range docs {
		if doc.Stale(d.SchemaVersion()) {
			report.StaleDocuments = append(report.StaleDocuments, doc)
		}
	}
	return report, nil
}

// mutableDomain loads a domain and rejects mutations on system templates.
func (s *SchemaService) mutableDomain(ctx context.Context, domainID string) (schema.Domain, error) {
	d, err := s.GetDomain(ctx, domainID)
	if err != nil {
		return schema.Domain{}, err
	}
	if d.IsSystemTemplate() {
		return schema.Domain{}, ErrTemplateReadOnly
	}
	return d, nil
}

// mutate runs the type mutation and the version bump in one transaction:
// the write, the incremented current_schema_version and the change record
// land together or not at all. The audit event fires only after commit.
func (s *SchemaService) mutate(ctx context.Context, d schema.Domain, actorID, description string, fn func(ctx context.Context) error) error {
	oldVersion := d.SchemaVersion()
	var newVersion int64

	run := func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return err
		}
		saved, err := s.domains.Save(ctx, d.BumpSchemaVersion())
		if err != nil {
			return fmt.Errorf("bump schema version: %w", err)
		}
		if _, err := s.changes.Append(ctx, schema.NewChangeRecord(d.ID(), oldVersion, saved.SchemaVersion(), description)); err != nil {
			return fmt.Errorf("append change record: %w", err)
		}
		newVersion = saved.SchemaVersion()
		return nil
	}

	var err error
	if s.tx != nil {
		err = s.tx.InTransaction(ctx, run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		return err
	}

	s.recordAudit(ctx, schema.AuditEvent{
		Action:     "schema.change",
		DomainID:   d.ID(),
		ActorID:    actorID,
		OldVersion: oldVersion,
		NewVersion: newVersion,
		Detail:     description,
	})
	return nil
}

// recordAudit forwards an event to the sink. Sink failures are logged, never
// propagated.
func (s *SchemaService) recordAudit(ctx context.Context, event schema.AuditEvent) {
	if s.audit == nil {
		return
	}
	event.At = time.Now()
	if err := s.audit.Record(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit sink failed", "action", event.Action, "error", err)
	}
}
