package persistence

import (
	"encoding/json"
	"time"

	"github.com/inquira/kgraph/domain/document"
	"github.com/inquira/kgraph/domain/graph"
	"github.com/inquira/kgraph/domain/job"
	"github.com/inquira/kgraph/domain/schema"
	"github.com/inquira/kgraph/domain/task"
)

// DomainMapper maps between schema.Domain and DomainModel.
type DomainMapper struct{}

// ToDomain converts a DomainModel to a schema.Domain.
func (DomainMapper) ToDomain(e DomainModel) schema.Domain {
	return schema.NewDomainWithID(
		e.ID,
		e.Name,
		e.Description,
		schema.Visibility(e.Visibility),
		e.OwnerID,
		e.SchemaVersion,
		e.CreatedAt,
		e.UpdatedAt,
	)
}

// ToModel converts a schema.Domain to a DomainModel.
func (DomainMapper) ToModel(d schema.Domain) DomainModel {
	return DomainModel{
		ID:            d.ID(),
		Name:          d.Name(),
		Description:   d.Description(),
		Visibility:    string(d.Visibility()),
		OwnerID:       d.OwnerID(),
		SchemaVersion: d.SchemaVersion(),
		CreatedAt:     d.CreatedAt(),
		UpdatedAt:     d.UpdatedAt(),
	}
}

// EntityTypeMapper maps between schema.EntityType and EntityTypeModel.
type EntityTypeMapper struct{}

// ToDomain converts an EntityTypeModel to a schema.EntityType.
func (EntityTypeMapper) ToDomain(e EntityTypeModel) schema.EntityType {
	var attrs map[string]string
	if len(e.Attributes) > 0 {
		_ = json.Unmarshal(e.Attributes, &attrs)
	}
	return schema.NewEntityTypeWithID(
		e.ID,
		e.DomainID,
		e.Name,
		attrs,
		e.Color,
		e.Icon,
		e.Position,
		e.CreatedAt,
		e.UpdatedAt,
	)
}

// ToModel converts a schema.EntityType to an EntityTypeModel.
func (EntityTypeMapper) ToModel(t schema.EntityType) EntityTypeModel {
	attrs, _ := json.Marshal(t.Attributes())
	return EntityTypeModel{
		ID:         t.ID(),
		DomainID:   t.DomainID(),
		Name:       t.Name(),
		Attributes: attrs,
		Color:      t.Color(),
		Icon:       t.Icon(),
		Position:   t.Position(),
		CreatedAt:  t.CreatedAt(),
		UpdatedAt:  t.UpdatedAt(),
	}
}

// RelationshipTypeMapper maps between schema.RelationshipType and RelationshipTypeModel.
type RelationshipTypeMapper struct{}

// ToDomain converts a RelationshipTypeModel to a schema.RelationshipType.
func (RelationshipTypeMapper) ToDomain(e RelationshipTypeModel) schema.RelationshipType {
	return schema.NewRelationshipTypeWithID(
		e.ID,
		e.DomainID,
		e.Name,
		e.SourceTypeID,
		e.TargetTypeID,
		e.Position,
		e.CreatedAt,
		e.UpdatedAt,
	)
}

// ToModel converts a schema.RelationshipType to a RelationshipTypeModel.
func (RelationshipTypeMapper) ToModel(t schema.RelationshipType) RelationshipTypeModel {
	return RelationshipTypeModel{
		ID:           t.ID(),
		DomainID:     t.DomainID(),
		Name:         t.Name(),
		SourceTypeID: t.SourceTypeID(),
		TargetTypeID: t.TargetTypeID(),
		Position:     t.Position(),
		CreatedAt:    t.CreatedAt(),
		UpdatedAt:    t.UpdatedAt(),
	}
}

// SchemaChangeMapper maps between schema.ChangeRecord and SchemaChangeModel.
type SchemaChangeMapper struct{}

// ToDomain converts a SchemaChangeModel to a schema.ChangeRecord.
func (SchemaChangeMapper) ToDomain(e SchemaChangeModel) schema.ChangeRecord {
	return schema.NewChangeRecordWithID(
		e.ID,
		e.DomainID,
		e.OldVersion,
		e.NewVersion,
		e.Description,
		e.CreatedAt,
	)
}

// ToModel converts a schema.ChangeRecord to a SchemaChangeModel.
func (SchemaChangeMapper) ToModel(r schema.ChangeRecord) SchemaChangeModel {
	return SchemaChangeModel{
		ID:          r.ID(),
		DomainID:    r.DomainID(),
		OldVersion:  r.OldVersion(),
		NewVersion:  r.NewVersion(),
		Description: r.Description(),
		CreatedAt:   r.CreatedAt(),
	}
}

// EntityMapper maps between graph.Entity and EntityModel.
type EntityMapper struct{}

// ToDomain converts an EntityModel to a graph.Entity.
func (EntityMapper) ToDomain(e EntityModel) graph.Entity {
	var attrs map[string]any
	if len(e.Attributes) > 0 {
		_ = json.Unmarshal(e.Attributes, &attrs)
	}
	return graph.NewEntityWithID(
		e.ID,
		e.KBID,
		e.Type,
		e.Name,
		attrs,
		e.Confidence,
		e.SchemaVersion,
		e.CreatedAt,
		e.UpdatedAt,
	)
}

// ToModel converts a graph.Entity to an EntityModel.
func (EntityMapper) ToModel(entity graph.Entity) EntityModel {
	attrs, _ := json.Marshal(entity.Attributes())
	return EntityModel{
		ID:            entity.ID(),
		KBID:          entity.KBID(),
		Type:          entity.Type(),
		Name:          entity.Name(),
		Attributes:    attrs,
		Confidence:    entity.Confidence(),
		SchemaVersion: entity.SchemaVersion(),
		CreatedAt:     entity.CreatedAt(),
		UpdatedAt:     entity.UpdatedAt(),
	}
}

// RelationshipMapper maps between graph.Relationship and RelationshipModel.
type RelationshipMapper struct{}

// ToDomain converts a RelationshipModel to a graph.Relationship.
func (RelationshipMapper) ToDomain(e RelationshipModel) graph.Relationship {
	var attrs map[string]any
	if len(e.Attributes) > 0 {
		_ = json.Unmarshal(e.Attributes, &attrs)
	}
	return graph.NewRelationshipWithID(
		e.ID,
		e.KBID,
		e.Type,
		e.SourceID,
		e.TargetID,
		attrs,
		e.SchemaVersion,
		e.CreatedAt,
	)
}

// ToModel converts a graph.Relationship to a RelationshipModel.
func (RelationshipMapper) ToModel(r graph.Relationship) RelationshipModel {
	attrs, _ := json.Marshal(r.Attributes())
	return RelationshipModel{
		ID:            r.ID(),
		KBID:          r.KBID(),
		Type:          r.Type(),
		SourceID:      r.SourceID(),
		TargetID:      r.TargetID(),
		Attributes:    attrs,
		SchemaVersion: r.SchemaVersion(),
		CreatedAt:     r.CreatedAt(),
	}
}

// ProvenanceMapper maps between graph.Provenance and ProvenanceModel.
type ProvenanceMapper struct{}

// ToDomain converts a ProvenanceModel to a graph.Provenance.
func (ProvenanceMapper) ToDomain(e ProvenanceModel) graph.Provenance {
	return graph.NewProvenance(
		graph.OwnerKind(e.OwnerKind),
		e.OwnerID,
		e.KBID,
		e.DocumentID,
		e.ChunkID,
	)
}

// ToModel converts a graph.Provenance to a ProvenanceModel.
func (ProvenanceMapper) ToModel(p graph.Provenance) ProvenanceModel {
	return ProvenanceModel{
		OwnerKind:  string(p.OwnerKind()),
		OwnerID:    p.OwnerID(),
		KBID:       p.KBID(),
		DocumentID: p.DocumentID(),
		ChunkID:    p.ChunkID(),
	}
}

// DocumentMapper maps between document.Document and DocumentModel.
type DocumentMapper struct{}

// ToDomain converts a DocumentModel to a document.Document.
func (DocumentMapper) ToDomain(e DocumentModel) document.Document {
	var extractedAt time.Time
	if e.ExtractedAt != nil {
		extractedAt = *e.ExtractedAt
	}
	return document.NewDocumentWithID(
		e.ID,
		e.KBID,
		e.DomainID,
		e.Title,
		e.URI,
		e.ExtractionSchemaVersion,
		extractedAt,
		e.CreatedAt,
		e.UpdatedAt,
	)
}

// ToModel converts a document.Document to a DocumentModel.
func (DocumentMapper) ToModel(d document.Document) DocumentModel {
	var extractedAt *time.Time
	if !d.ExtractedAt().IsZero() {
		at := d.ExtractedAt()
		extractedAt = &at
	}
	return DocumentModel{
		ID:                      d.ID(),
		KBID:                    d.KBID(),
		DomainID:                d.DomainID(),
		Title:                   d.Title(),
		URI:                     d.URI(),
		ExtractionSchemaVersion: d.ExtractionSchemaVersion(),
		ExtractedAt:             extractedAt,
		CreatedAt:               d.CreatedAt(),
		UpdatedAt:               d.UpdatedAt(),
	}
}

// JobMapper maps between job.ExtractionJob and JobModel.
type JobMapper struct{}

// ToDomain converts a JobModel to a job.ExtractionJob.
func (JobMapper) ToDomain(e JobModel) job.ExtractionJob {
	var docIDs []string
	if len(e.DocumentIDs) > 0 {
		_ = json.Unmarshal(e.DocumentIDs, &docIDs)
	}
	var errs []string
	if len(e.ErrorSummaries) > 0 {
		_ = json.Unmarshal(e.ErrorSummaries, &errs)
	}
	var startedAt, completedAt time.Time
	if e.StartedAt != nil {
		startedAt = *e.StartedAt
	}
	if e.CompletedAt != nil {
		completedAt = *e.CompletedAt
	}
	return job.NewJobWithState(
		e.ID,
		e.KBID,
		e.DomainID,
		docIDs,
		e.AllDrifted,
		job.CleanupMode(e.CleanupMode),
		job.Status(e.Status),
		job.Progress{
			Succeeded: e.Succeeded,
			Failed:    e.Failed,
			Cancelled: e.Cancelled,
			Pending:   e.Pending,
		},
		errs,
		e.CancelRequest,
		startedAt,
		completedAt,
		e.CreatedAt,
		e.UpdatedAt,
	)
}

// ToModel converts a job.ExtractionJob to a JobModel.
func (JobMapper) ToModel(j job.ExtractionJob) JobModel {
	docIDs, _ := json.Marshal(j.DocumentIDs())
	errs, _ := json.Marshal(j.ErrorSummaries())
	var startedAt, completedAt *time.Time
	if !j.StartedAt().IsZero() {
		at := j.StartedAt()
		startedAt = &at
	}
	if !j.CompletedAt().IsZero() {
		at := j.CompletedAt()
		completedAt = &at
	}
	p := j.Progress()
	return JobModel{
		ID:             j.ID(),
		KBID:           j.KBID(),
		DomainID:       j.DomainID(),
		DocumentIDs:    docIDs,
		AllDrifted:     j.AllDrifted(),
		CleanupMode:    string(j.CleanupMode()),
		Status:         string(j.Status()),
		Succeeded:      p.Succeeded,
		Failed:         p.Failed,
		Cancelled:      p.Cancelled,
		Pending:        p.Pending,
		ErrorSummaries: errs,
		CancelRequest:  j.CancelRequested(),
		StartedAt:      startedAt,
		CompletedAt:    completedAt,
		CreatedAt:      j.CreatedAt(),
		UpdatedAt:      j.UpdatedAt(),
	}
}

// TaskMapper maps between task.Task and TaskModel.
type TaskMapper struct{}

// ToDomain converts a TaskModel to a task.Task.
func (TaskMapper) ToDomain(e TaskModel) task.Task {
	var payload map[string]any
	if len(e.Payload) > 0 {
		_ = json.Unmarshal(e.Payload, &payload)
	}
	return task.NewTaskWithID(
		e.ID,
		e.DedupKey,
		task.Operation(e.Type),
		e.Priority,
		payload,
		e.CreatedAt,
		e.UpdatedAt,
	)
}

// ToModel converts a task.Task to a TaskModel.
func (TaskMapper) ToModel(t task.Task) TaskModel {
	payload, _ := t.PayloadJSON()
	return TaskModel{
		ID:        t.ID(),
		DedupKey:  t.DedupKey(),
		Type:      t.Operation().String(),
		Payload:   payload,
		Priority:  t.Priority(),
		CreatedAt: t.CreatedAt(),
		UpdatedAt: t.UpdatedAt(),
	}
}
