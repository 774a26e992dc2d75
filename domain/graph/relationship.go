package graph

import "time"

// Relationship is a directed graph edge between two entities of the same
// knowledge base.
type Relationship struct {
	id            string
	kbID          string
	relType       string
	sourceID      string
	targetID      string
	attributes    map[string]any
	schemaVersion int64
	createdAt     time.Time
}

// NewRelationship creates a Relationship.
func NewRelationship(kbID, relType, sourceID, targetID string, attributes map[string]any, schemaVersion int64) Relationship {
	return Relationship{
		kbID:          kbID,
		relType:       relType,
		sourceID:      sourceID,
		targetID:      targetID,
		attributes:    copyAttrs(attributes),
		schemaVersion: schemaVersion,
	}
}

// NewRelationshipWithID creates a Relationship with all fields (used by stores).
func NewRelationshipWithID(
	id, kbID, relType, sourceID, targetID string,
	attributes map[string]any,
	schemaVersion int64,
	createdAt time.Time,
) Relationship {
	return Relationship{
		id:            id,
		kbID:          kbID,
		relType:       relType,
		sourceID:      sourceID,
		targetID:      targetID,
		attributes:    copyAttrs(attributes),
		schemaVersion: schemaVersion,
		createdAt:     createdAt,
	}
}

// ID returns the relationship ID.
func (r Relationship) ID() string { return r.id }

// KBID returns the owning knowledge base ID.
func (r Relationship) KBID() string { return r.kbID }

// Type returns the relationship type name.
func (r Relationship) Type() string { return r.relType }

// SourceID returns the source entity ID.
func (r Relationship) SourceID() string { return r.sourceID }

// TargetID returns the target entity ID.
func (r Relationship) TargetID() string { return r.targetID }

// Attributes returns a copy of the edge attributes.
func (r Relationship) Attributes() map[string]any {
	return copyAttrs(r.attributes)
}

// SchemaVersion returns the schema version the edge was extracted under.
func (r Relationship) SchemaVersion() int64 { return r.schemaVersion }

// CreatedAt returns when the edge was written.
func (r Relationship) CreatedAt() time.Time { return r.createdAt }

// WithID returns a copy with the given ID.
func (r Relationship) WithID(id string) Relationship {
	r.id = id
	return r
}

// Touches reports whether the edge connects to the given entity ID.
func (r Relationship) Touches(entityID string) bool {
	return r.sourceID == entityID || r.targetID == entityID
}

// Other returns the entity ID on the far side of the edge from entityID.
// Returns entityID itself for a self-loop.
func (r Relationship) Other(entityID string) string {
	if r.sourceID == entityID {
		return r.targetID
	}
	return r.sourceID
}
