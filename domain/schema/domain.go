// Package schema provides domain types for versioned extraction schemas:
// a Domain groups the entity and relationship types that constrain what the
// extractor is allowed to produce for a knowledge base.
package schema

import "time"

// Visibility controls who can see and use a domain.
type Visibility string

// Visibility values.
const (
	VisibilityPrivate        Visibility = "private"
	VisibilityPublic         Visibility = "public"
	VisibilitySystemTemplate Visibility = "system_template"
)

// Valid reports whether v is a known visibility value.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPrivate, VisibilityPublic, VisibilitySystemTemplate:
		return true
	}
	return false
}

// Domain is a named, versioned schema of entity and relationship types.
// The schema version is a monotonic counter bumped on every type mutation;
// extracted graph data records the version it was produced under so drift
// can be detected later.
type Domain struct {
	id            string
	name          string
	description   string
	visibility    Visibility
	ownerID       string
	schemaVersion int64
	createdAt     time.Time
	updatedAt     time.Time
}

// NewDomain creates a Domain at schema version 1.
func NewDomain(name, description string, visibility Visibility, ownerID string) Domain {
	return Domain{
		name:          name,
		description:   description,
		visibility:    visibility,
		ownerID:       ownerID,
		schemaVersion: 1,
	}
}

// NewDomainWithID creates a Domain with all fields (used by stores).
func NewDomainWithID(
	id, name, description string,
	visibility Visibility,
	ownerID string,
	schemaVersion int64,
	createdAt, updatedAt time.Time,
) Domain {
	return Domain{
		id:            id,
		name:          name,
		description:   description,
		visibility:    visibility,
		ownerID:       ownerID,
		schemaVersion: schemaVersion,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}

// ID returns the domain ID.
func (d Domain) ID() string { return d.id }

// Name returns the domain name (unique across domains).
func (d Domain) Name() string { return d.name }

// Description returns the free-form description.
func (d Domain) Description() string { return d.description }

// Visibility returns the domain visibility.
func (d Domain) Visibility() Visibility { return d.visibility }

// OwnerID returns the owning user ID.
func (d Domain) OwnerID() string { return d.ownerID }

// SchemaVersion returns the current schema version.
func (d Domain) SchemaVersion() int64 { return d.schemaVersion }

// CreatedAt returns when the domain was created.
func (d Domain) CreatedAt() time.Time { return d.createdAt }

// UpdatedAt returns when the domain was last updated.
func (d Domain) UpdatedAt() time.Time { return d.updatedAt }

// IsSystemTemplate reports whether this domain is an immutable template.
func (d Domain) IsSystemTemplate() bool {
	return d.visibility == VisibilitySystemTemplate
}

// WithID returns a copy of the domain with the given ID.
func (d Domain) WithID(id string) Domain {
	d.id = id
	return d
}

// WithDescription returns a copy with the given description.
func (d Domain) WithDescription(description string) Domain {
	d.description = description
	return d
}

// WithVisibility returns a copy with the given visibility.
func (d Domain) WithVisibility(v Visibility) Domain {
	d.visibility = v
	return d
}

// WithSchemaVersion returns a copy with the given schema version.
func (d Domain) WithSchemaVersion(v int64) Domain {
	d.schemaVersion = v
	return d
}

// BumpSchemaVersion returns a copy with the schema version incremented.
func (d Domain) BumpSchemaVersion() Domain {
	d.schemaVersion++
	return d
}

// CloneAs returns a private copy of the domain under a new name and owner,
// reset to schema version 1. Used to instantiate system templates.
func (d Domain) CloneAs(name, ownerID string) Domain {
	return NewDomain(name, d.description, VisibilityPrivate, ownerID)
}
