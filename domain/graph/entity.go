// Package graph provides the property-graph domain types: typed entities and
// relationships scoped to a knowledge base, plus the Store interface the
// query service and extraction write path run against.
//
// Every node and edge carries a kb_id. That field is the tenant isolation
// key: stores filter every read and write by it, and nothing in this package
// can represent a node without one.
package graph

import (
	"maps"
	"time"
)

// Entity is a graph node: an extracted real-world object of a domain-defined
// type, scoped to one knowledge base.
type Entity struct {
	id            string
	kbID          string
	entityType    string
	name          string
	attributes    map[string]any
	confidence    float64
	schemaVersion int64
	createdAt     time.Time
	updatedAt     time.Time
}

// NewEntity creates an Entity.
func NewEntity(kbID, entityType, name string, attributes map[string]any, confidence float64, schemaVersion int64) Entity {
	return Entity{
		kbID:          kbID,
		entityType:    entityType,
		name:          name,
		attributes:    copyAttrs(attributes),
		confidence:    clampConfidence(confidence),
		schemaVersion: schemaVersion,
	}
}

// NewEntityWithID creates an Entity with all fields (used by stores).
func NewEntityWithID(
	id, kbID, entityType, name string,
	attributes map[string]any,
	confidence float64,
	schemaVersion int64,
	createdAt, updatedAt time.Time,
) Entity {
	return Entity{
		id:            id,
		kbID:          kbID,
		entityType:    entityType,
		name:          name,
		attributes:    copyAttrs(attributes),
		confidence:    clampConfidence(confidence),
		schemaVersion: schemaVersion,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}

// ID returns the entity ID.
func (e Entity) ID() string { return e.id }

// KBID returns the owning knowledge base ID.
func (e Entity) KBID() string { return e.kbID }

// Type returns the entity type name (a structural label from the domain schema).
func (e Entity) Type() string { return e.entityType }

// Name returns the canonical display name.
func (e Entity) Name() string { return e.name }

// Attributes returns a copy of the entity attributes.
func (e Entity) Attributes() map[string]any {
	return copyAttrs(e.attributes)
}

// Confidence returns the extraction confidence in [0, 1].
func (e Entity) Confidence() float64 { return e.confidence }

// SchemaVersion returns the schema version the entity was extracted under.
func (e Entity) SchemaVersion() int64 { return e.schemaVersion }

// CreatedAt returns when the entity was first written.
func (e Entity) CreatedAt() time.Time { return e.createdAt }

// UpdatedAt returns when the entity was last updated.
func (e Entity) UpdatedAt() time.Time { return e.updatedAt }

// WithID returns a copy with the given ID.
func (e Entity) WithID(id string) Entity {
	e.id = id
	return e
}

// WithConfidence returns a copy with the given confidence.
func (e Entity) WithConfidence(confidence float64) Entity {
	e.confidence = clampConfidence(confidence)
	return e
}

// WithSchemaVersion returns a copy with the given schema version.
func (e Entity) WithSchemaVersion(v int64) Entity {
	e.schemaVersion = v
	return e
}

// MergeAttributes returns a copy with attrs merged over the existing
// attributes. Existing keys are overwritten; missing keys are kept.
func (e Entity) MergeAttributes(attrs map[string]any) Entity {
	merged := copyAttrs(e.attributes)
	maps.Copy(merged, attrs)
	e.attributes = merged
	return e
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

func copyAttrs(attrs map[string]any) map[string]any {
	if attrs == nil {
		return make(map[string]any)
	}
	result := make(map[string]any, len(attrs))
	maps.Copy(result, attrs)
	return result
}
