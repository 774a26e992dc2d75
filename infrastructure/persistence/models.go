// Package persistence provides database storage implementations.
package persistence

import (
	"encoding/json"
	"time"
)

// DomainModel represents a domain schema in the database.
type DomainModel struct {
	ID            string    `gorm:"column:id;type:varchar(36);primaryKey"`
	Name          string    `gorm:"column:name;uniqueIndex;size:255;not null"`
	Description   string    `gorm:"column:description;type:text"`
	Visibility    string    `gorm:"column:visibility;index;size:32;not null"`
	OwnerID       string    `gorm:"column:owner_id;index;size:255"`
	SchemaVersion int64     `gorm:"column:schema_version;not null;default:1"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the table name.
func (DomainModel) TableName() string {
	return "domains"
}

// EntityTypeModel represents a domain entity type in the database.
type EntityTypeModel struct {
	ID         string          `gorm:"column:id;type:varchar(36);primaryKey"`
	DomainID   string          `gorm:"column:domain_id;index;type:varchar(36);not null"`
	Name       string          `gorm:"column:name;index;size:255;not null"`
	Attributes json.RawMessage `gorm:"column:attributes;type:jsonb"`
	Color      string          `gorm:"column:color;size:32"`
	Icon       string          `gorm:"column:icon;size:64"`
	Position   int             `gorm:"column:position;default:0"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the table name.
func (EntityTypeModel) TableName() string {
	return "entity_types"
}

// RelationshipTypeModel represents a domain relationship type in the database.
type RelationshipTypeModel struct {
	ID           string    `gorm:"column:id;type:varchar(36);primaryKey"`
	DomainID     string    `gorm:"column:domain_id;index;type:varchar(36);not null"`
	Name         string    `gorm:"column:name;index;size:255;not null"`
	SourceTypeID string    `gorm:"column:source_type_id;type:varchar(36)"`
	TargetTypeID string    `gorm:"column:target_type_id;type:varchar(36)"`
	Position     int       `gorm:"column:position;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the table name.
func (RelationshipTypeModel) TableName() string {
	return "relationship_types"
}

// SchemaChangeModel represents an append-only schema change record.
type SchemaChangeModel struct {
	ID          string    `gorm:"column:id;type:varchar(36);primaryKey"`
	DomainID    string    `gorm:"column:domain_id;index;type:varchar(36);not null"`
	OldVersion  int64     `gorm:"column:old_version;not null"`
	NewVersion  int64     `gorm:"column:new_version;not null"`
	Description string    `gorm:"column:description;type:text"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the table name.
func (SchemaChangeModel) TableName() string {
	return "schema_changes"
}

// EntityModel represents a graph entity in the database.
type EntityModel struct {
	ID            string          `gorm:"column:id;type:varchar(36);primaryKey"`
	KBID          string          `gorm:"column:kb_id;index:idx_entities_kb_type,priority:1;index:idx_entities_kb_name,priority:1;type:varchar(36);not null"`
	Type          string          `gorm:"column:type;index:idx_entities_kb_type,priority:2;size:255;not null"`
	Name          string          `gorm:"column:name;index:idx_entities_kb_name,priority:2;size:512;not null"`
	Attributes    json.RawMessage `gorm:"column:attributes;type:jsonb"`
	Confidence    float64         `gorm:"column:confidence;not null;default:0"`
	SchemaVersion int64           `gorm:"column:schema_version;not null;default:0"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the table name.
func (EntityModel) TableName() string {
	return "graph_entities"
}

// RelationshipModel represents a graph edge in the database.
type RelationshipModel struct {
	ID            string          `gorm:"column:id;type:varchar(36);primaryKey"`
	KBID          string          `gorm:"column:kb_id;index;type:varchar(36);not null"`
	Type          string          `gorm:"column:type;index;size:255;not null"`
	SourceID      string          `gorm:"column:source_id;index;type:varchar(36);not null"`
	TargetID      string          `gorm:"column:target_id;index;type:varchar(36);not null"`
	Attributes    json.RawMessage `gorm:"column:attributes;type:jsonb"`
	SchemaVersion int64           `gorm:"column:schema_version;not null;default:0"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the table name.
func (RelationshipModel) TableName() string {
	return "graph_relationships"
}

// ProvenanceModel links a graph entity or relationship to a supporting chunk.
type ProvenanceModel struct {
	ID         int64  `gorm:"column:id;primaryKey;autoIncrement"`
	OwnerKind  string `gorm:"column:owner_kind;uniqueIndex:idx_provenance_row,priority:1;size:16;not null"`
	OwnerID    string `gorm:"column:owner_id;index;uniqueIndex:idx_provenance_row,priority:2;type:varchar(36);not null"`
	KBID       string `gorm:"column:kb_id;index;type:varchar(36);not null"`
	DocumentID string `gorm:"column:document_id;index;uniqueIndex:idx_provenance_row,priority:3;type:varchar(36);not null"`
	ChunkID    string `gorm:"column:chunk_id;uniqueIndex:idx_provenance_row,priority:4;type:varchar(36);not null"`
}

// TableName returns the table name.
func (ProvenanceModel) TableName() string {
	return "graph_provenance"
}

// DocumentModel represents an ingested document in the database.
type DocumentModel struct {
	ID                      string     `gorm:"column:id;type:varchar(36);primaryKey"`
	KBID                    string     `gorm:"column:kb_id;index;type:varchar(36);not null"`
	DomainID                string     `gorm:"column:domain_id;index;type:varchar(36);not null"`
	Title                   string     `gorm:"column:title;size:512"`
	URI                     string     `gorm:"column:uri;size:1024"`
	ExtractionSchemaVersion int64      `gorm:"column:extraction_schema_version;not null;default:0"`
	ExtractedAt             *time.Time `gorm:"column:extracted_at"`
	CreatedAt               time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the table name.
func (DocumentModel) TableName() string {
	return "documents"
}

// ChunkModel represents a document chunk in the database.
type ChunkModel struct {
	ID         string    `gorm:"column:id;type:varchar(36);primaryKey"`
	DocumentID string    `gorm:"column:document_id;index;type:varchar(36);not null"`
	KBID       string    `gorm:"column:kb_id;index;type:varchar(36);not null"`
	Content    string    `gorm:"column:content;type:text"`
	Position   int       `gorm:"column:position;default:0"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the table name.
func (ChunkModel) TableName() string {
	return "chunks"
}

// JobModel represents a batch re-extraction job in the database.
type JobModel struct {
	ID             string          `gorm:"column:id;type:varchar(36);primaryKey"`
	KBID           string          `gorm:"column:kb_id;index;type:varchar(36);not null"`
	DomainID       string          `gorm:"column:domain_id;index;type:varchar(36);not null"`
	DocumentIDs    json.RawMessage `gorm:"column:document_ids;type:jsonb"`
	AllDrifted     bool            `gorm:"column:all_drifted;default:false"`
	CleanupMode    string          `gorm:"column:cleanup_mode;size:16;not null"`
	Status         string          `gorm:"column:status;index;size:16;not null"`
	Succeeded      int64           `gorm:"column:succeeded;not null;default:0"`
	Failed         int64           `gorm:"column:failed;not null;default:0"`
	Cancelled      int64           `gorm:"column:cancelled;not null;default:0"`
	Pending        int64           `gorm:"column:pending;not null;default:0"`
	ErrorSummaries json.RawMessage `gorm:"column:error_summaries;type:jsonb"`
	CancelRequest  bool            `gorm:"column:cancel_request;default:false"`
	StartedAt      *time.Time      `gorm:"column:started_at"`
	CompletedAt    *time.Time      `gorm:"column:completed_at"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the table name.
func (JobModel) TableName() string {
	return "extraction_jobs"
}

// TaskModel represents a queued task in the database.
type TaskModel struct {
	ID        int64           `gorm:"column:id;primaryKey;autoIncrement"`
	DedupKey  string          `gorm:"column:dedup_key;type:varchar(512);uniqueIndex;not null"`
	Type      string          `gorm:"column:type;type:varchar(255);index;not null"`
	Payload   json.RawMessage `gorm:"column:payload;type:jsonb"`
	Priority  int             `gorm:"column:priority;not null"`
	ClaimedAt *time.Time      `gorm:"column:claimed_at;index"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the table name.
func (TaskModel) TableName() string {
	return "tasks"
}
