// Package document tracks ingested documents and the schema version their
// graph content was last extracted under, which is what drift detection
// compares against the domain's current version.
package document

import "time"

// Document is an ingested source document within a knowledge base.
type Document struct {
	id                      string
	kbID                    string
	domainID                string
	title                   string
	uri                     string
	extractionSchemaVersion int64
	extractedAt             time.Time
	createdAt               time.Time
	updatedAt               time.Time
}

// NewDocument creates a Document that has not been extracted yet
// (extraction schema version 0).
func NewDocument(kbID, domainID, title, uri string) Document {
	return Document{kbID: kbID, domainID: domainID, title: title, uri: uri}
}

// NewDocumentWithID creates a Document with all fields (used by stores).
func NewDocumentWithID(
	id, kbID, domainID, title, uri string,
	extractionSchemaVersion int64,
	extractedAt, createdAt, updatedAt time.Time,
) Document {
	return Document{
		id:                      id,
		kbID:                    kbID,
		domainID:                domainID,
		title:                   title,
		uri:                     uri,
		extractionSchemaVersion: extractionSchemaVersion,
		extractedAt:             extractedAt,
		createdAt:               createdAt,
		updatedAt:               updatedAt,
	}
}

// ID returns the document ID.
func (d Document) ID() string { return d.id }

// KBID returns the owning knowledge base ID.
func (d Document) KBID() string { return d.kbID }

// DomainID returns the domain schema the document is extracted under.
func (d Document) DomainID() string { return d.domainID }

// Title returns the document title.
func (d Document) Title() string { return d.title }

// URI returns the source location.
func (d Document) URI() string { return d.uri }

// ExtractionSchemaVersion returns the schema version of the last completed
// extraction, or 0 if never extracted.
func (d Document) ExtractionSchemaVersion() int64 { return d.extractionSchemaVersion }

// ExtractedAt returns when the last extraction completed.
func (d Document) ExtractedAt() time.Time { return d.extractedAt }

// CreatedAt returns when the document was ingested.
func (d Document) CreatedAt() time.Time { return d.createdAt }

// UpdatedAt returns when the document was last updated.
func (d Document) UpdatedAt() time.Time { return d.updatedAt }

// WithID returns a copy with the given ID.
func (d Document) WithID(id string) Document {
	d.id = id
	return d
}

// MarkExtracted returns a copy stamped with the schema version and time of a
// completed extraction.
func (d Document) MarkExtracted(schemaVersion int64, at time.Time) Document {
	d.extractionSchemaVersion = schemaVersion
	d.extractedAt = at
	return d
}

// Stale reports whether the document's graph content was extracted under an
// older schema version than current.
func (d Document) Stale(currentVersion int64) bool {
	return d.extractionSchemaVersion < currentVersion
}
