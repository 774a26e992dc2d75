package schema

import (
	"maps"
	"strings"
	"time"
)

// EntityType describes one kind of entity the extractor may produce for a
// domain. Attributes are hints (key -> type hint string), not a rigid schema:
// the graph stores whatever the extractor returns, validated only by type name.
type EntityType struct {
	id         string
	domainID   string
	name       string
	attributes map[string]string
	color      string
	icon       string
	position   int
	createdAt  time.Time
	updatedAt  time.Time
}

// NewEntityType creates an EntityType for a domain.
func NewEntityType(domainID, name string, attributes map[string]string) EntityType {
	return EntityType{
		domainID:   domainID,
		name:       name,
		attributes: copyAttributes(attributes),
	}
}

// NewEntityTypeWithID creates an EntityType with all fields (used by stores).
func NewEntityTypeWithID(
	id, domainID, name string,
	attributes map[string]string,
	color, icon string,
	position int,
	createdAt, updatedAt time.Time,
) EntityType {
	return EntityType{
		id:         id,
		domainID:   domainID,
		name:       name,
		attributes: copyAttributes(attributes),
		color:      color,
		icon:       icon,
		position:   position,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
	}
}

// ID returns the entity type ID.
func (t EntityType) ID() string { return t.id }

// DomainID returns the owning domain ID.
func (t EntityType) DomainID() string { return t.domainID }

// Name returns the type name (unique within the domain).
func (t EntityType) Name() string { return t.name }

// Attributes returns a copy of the attribute hints.
func (t EntityType) Attributes() map[string]string {
	return copyAttributes(t.attributes)
}

// Color returns the display color.
func (t EntityType) Color() string { return t.color }

// Icon returns the display icon name.
func (t EntityType) Icon() string { return t.icon }

// Position returns the display ordering position.
func (t EntityType) Position() int { return t.position }

// CreatedAt returns when the type was created.
func (t EntityType) CreatedAt() time.Time { return t.createdAt }

// UpdatedAt returns when the type was last updated.
func (t EntityType) UpdatedAt() time.Time { return t.updatedAt }

// WithID returns a copy with the given ID.
func (t EntityType) WithID(id string) EntityType {
	t.id = id
	return t
}

// WithDisplay returns a copy with the given display metadata.
func (t EntityType) WithDisplay(color, icon string) EntityType {
	t.color = color
	t.icon = icon
	return t
}

// WithPosition returns a copy with the given ordering position.
func (t EntityType) WithPosition(position int) EntityType {
	t.position = position
	return t
}

// WithAttributes returns a copy with the given attribute hints.
func (t EntityType) WithAttributes(attributes map[string]string) EntityType {
	t.attributes = copyAttributes(attributes)
	return t
}

// RelationshipType describes one kind of relationship between two entity
// types within a domain.
type RelationshipType struct {
	id           string
	domainID     string
	name         string
	sourceTypeID string
	targetTypeID string
	position     int
	createdAt    time.Time
	updatedAt    time.Time
}

// NewRelationshipType creates a RelationshipType connecting two entity types.
func NewRelationshipType(domainID, name, sourceTypeID, targetTypeID string) RelationshipType {
	return RelationshipType{
		domainID:     domainID,
		name:         name,
		sourceTypeID: sourceTypeID,
		targetTypeID: targetTypeID,
	}
}

// NewRelationshipTypeWithID creates a RelationshipType with all fields (used by stores).
func NewRelationshipTypeWithID(
	id, domainID, name, sourceTypeID, targetTypeID string,
	position int,
	createdAt, updatedAt time.Time,
) RelationshipType {
	return RelationshipType{
		id:           id,
		domainID:     domainID,
		name:         name,
		sourceTypeID: sourceTypeID,
		targetTypeID: targetTypeID,
		position:     position,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}
}

// ID returns the relationship type ID.
func (t RelationshipType) ID() string { return t.id }

// DomainID returns the owning domain ID.
func (t RelationshipType) DomainID() string { return t.domainID }

// Name returns the type name (unique within the domain).
func (t RelationshipType) Name() string { return t.name }

// SourceTypeID returns the allowed source entity type ID.
func (t RelationshipType) SourceTypeID() string { return t.sourceTypeID }

// TargetTypeID returns the allowed target entity type ID.
func (t RelationshipType) TargetTypeID() string { return t.targetTypeID }

// Position returns the display ordering position.
func (t RelationshipType) Position() int { return t.position }

// CreatedAt returns when the type was created.
func (t RelationshipType) CreatedAt() time.Time { return t.createdAt }

// UpdatedAt returns when the type was last updated.
func (t RelationshipType) UpdatedAt() time.Time { return t.updatedAt }

// WithID returns a copy with the given ID.
func (t RelationshipType) WithID(id string) RelationshipType {
	t.id = id
	return t
}

// WithPosition returns a copy with the given ordering position.
func (t RelationshipType) WithPosition(position int) RelationshipType {
	t.position = position
	return t
}

// Definition is the read-side view of a domain schema handed to extraction:
// the domain plus its full type set, resolved in one load.
type Definition struct {
	domain            Domain
	entityTypes       []EntityType
	relationshipTypes []RelationshipType
}

// NewDefinition assembles a Definition.
func NewDefinition(domain Domain, entityTypes []EntityType, relationshipTypes []RelationshipType) Definition {
	return Definition{
		domain:            domain,
		entityTypes:       entityTypes,
		relationshipTypes: relationshipTypes,
	}
}

// Domain returns the domain.
func (d Definition) Domain() Domain { return d.domain }

// EntityTypes returns the entity types in display order.
func (d Definition) EntityTypes() []EntityType { return d.entityTypes }

// RelationshipTypes returns the relationship types in display order.
func (d Definition) RelationshipTypes() []RelationshipType { return d.relationshipTypes }

// Empty reports whether the domain has no entity types defined. Extraction
// against an empty definition is a configuration error and short-circuits.
func (d Definition) Empty() bool {
	return len(d.entityTypes) == 0
}

// EntityTypeNames returns the entity type names in display order.
func (d Definition) EntityTypeNames() []string {
	names := make([]string, len(d.entityTypes))
	for i, t := range d.entityTypes {
		names[i] = t.Name()
	}
	return names
}

// HasEntityType reports whether name matches a registered entity type,
// case-insensitively.
func (d Definition) HasEntityType(name string) bool {
	for _, t := range d.entityTypes {
		if strings.EqualFold(t.Name(), name) {
			return true
		}
	}
	return false
}

// CanonicalEntityType returns the registered spelling of an entity type name,
// matching case-insensitively. Returns ("", false) for unknown types.
func (d Definition) CanonicalEntityType(name string) (string, bool) {
	for _, t := range d.entityTypes {
		if strings.EqualFold(t.Name(), name) {
			return t.Name(), true
		}
	}
	return "", false
}

// HasRelationshipType reports whether name matches a registered relationship
// type, case-insensitively.
func (d Definition) HasRelationshipType(name string) bool {
	for _, t := range d.relationshipTypes {
		if strings.EqualFold(t.Name(), name) {
			return true
		}
	}
	return false
}

// CanonicalRelationshipType returns the registered spelling of a relationship
// type name. Returns ("", false) for unknown types.
func (d Definition) CanonicalRelationshipType(name string) (string, bool) {
	for _, t := range d.relationshipTypes {
		if strings.EqualFold(t.Name(), name) {
			return t.Name(), true
		}
	}
	return "", false
}

func copyAttributes(attributes map[string]string) map[string]string {
	if attributes == nil {
		return make(map[string]string)
	}
	result := make(map[string]string, len(attributes))
	maps.Copy(result, attributes)
	return result
}
