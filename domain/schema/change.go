package schema

import "time"

// ChangeRecord is one entry in a domain's append-only schema change log.
// Drift detection compares a document's recorded extraction version against
// the newest record's NewVersion.
type ChangeRecord struct {
	id          string
	domainID    string
	oldVersion  int64
	newVersion  int64
	description string
	createdAt   time.Time
}

// NewChangeRecord creates a ChangeRecord for a version bump.
func NewChangeRecord(domainID string, oldVersion, newVersion int64, description string) ChangeRecord {
	return ChangeRecord{
		domainID:    domainID,
		oldVersion:  oldVersion,
		newVersion:  newVersion,
		description: description,
	}
}

// NewChangeRecordWithID creates a ChangeRecord with all fields (used by stores).
func NewChangeRecordWithID(id, domainID string, oldVersion, newVersion int64, description string, createdAt time.Time) ChangeRecord {
	return ChangeRecord{
		id:          id,
		domainID:    domainID,
		oldVersion:  oldVersion,
		newVersion:  newVersion,
		description: description,
		createdAt:   createdAt,
	}
}

// ID returns the record ID.
func (c ChangeRecord) ID() string { return c.id }

// WithID returns a copy with the given ID.
func (c ChangeRecord) WithID(id string) ChangeRecord {
	c.id = id
	return c
}

// DomainID returns the domain this change belongs to.
func (c ChangeRecord) DomainID() string { return c.domainID }

// OldVersion returns the schema version before the change.
func (c ChangeRecord) OldVersion() int64 { return c.oldVersion }

// NewVersion returns the schema version after the change.
func (c ChangeRecord) NewVersion() int64 { return c.newVersion }

// Description returns the human-readable change description.
func (c ChangeRecord) Description() string { return c.description }

// CreatedAt returns when the change was recorded.
func (c ChangeRecord) CreatedAt() time.Time { return c.createdAt }
