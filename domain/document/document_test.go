package document

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewDocumentIsUnextracted(t *testing.T) {
	doc := NewDocument("kb-1", "dom-1", "Admission note", "s3://notes/1")
	assert.Equal(t, int64(0), doc.ExtractionSchemaVersion())
	assert.True(t, doc.ExtractedAt().IsZero())
}

func TestMarkExtractedStampsVersionAndTime(t *testing.T) {
	at := time.Now()
	doc := NewDocument("kb-1", "dom-1", "t", "").MarkExtracted(3, at)
	assert.Equal(t, int64(3), doc.ExtractionSchemaVersion())
	assert.Equal(t, at, doc.ExtractedAt())
}

func TestStaleComparesAgainstCurrentVersion(t *testing.T) {
	doc := NewDocument("kb-1", "dom-1", "t", "")

	// Never extracted counts as stale against any live schema.
	assert.True(t, doc.Stale(1))

	extracted := doc.MarkExtracted(2, time.Now())
	assert.False(t, extracted.Stale(2))
	assert.True(t, extracted.Stale(3))
}
