// Package extraction holds the value types flowing through the LLM
// extraction pipeline: the chunk going in, the raw candidates coming back,
// and the persisted result after validation and deduplication.
package extraction

// Chunk is a unit of document text submitted for extraction.
type Chunk struct {
	id         string
	documentID string
	kbID       string
	content    string
}

// NewChunk creates a Chunk.
func NewChunk(id, documentID, kbID, content string) Chunk {
	return Chunk{id: id, documentID: documentID, kbID: kbID, content: content}
}

// ID returns the chunk ID.
func (c Chunk) ID() string { return c.id }

// DocumentID returns the parent document ID.
func (c Chunk) DocumentID() string { return c.documentID }

// KBID returns the owning knowledge base ID.
func (c Chunk) KBID() string { return c.kbID }

// Content returns the chunk text.
func (c Chunk) Content() string { return c.content }

// Empty reports whether the chunk has no text to extract from.
func (c Chunk) Empty() bool { return c.content == "" }

// EntityCandidate is a raw entity proposed by the model, before schema
// validation and deduplication.
type EntityCandidate struct {
	Type       string
	Name       string
	Attributes map[string]any
	Confidence float64
}

// RelationshipCandidate is a raw relationship proposed by the model. Source
// and target refer to candidate entity names within the same response, not
// stored IDs.
type RelationshipCandidate struct {
	Type       string
	SourceName string
	TargetName string
	Attributes map[string]any
}

// Candidates is a model response after parsing, before validation.
type Candidates struct {
	Entities      []EntityCandidate
	Relationships []RelationshipCandidate
}

// Empty reports whether the model proposed nothing.
func (c Candidates) Empty() bool {
	return len(c.Entities) == 0 && len(c.Relationships) == 0
}

// Result summarizes one chunk's extraction after persistence.
type Result struct {
	chunkID          string
	entitiesCreated  int
	entitiesMerged   int
	relationsCreated int
	dropped          int
}

// NewResult creates a Result.
func NewResult(chunkID string, entitiesCreated, entitiesMerged, relationsCreated, dropped int) Result {
	return Result{
		chunkID:          chunkID,
		entitiesCreated:  entitiesCreated,
		entitiesMerged:   entitiesMerged,
		relationsCreated: relationsCreated,
		dropped:          dropped,
	}
}

// ChunkID returns the extracted chunk's ID.
func (r Result) ChunkID() string { return r.chunkID }

// EntitiesCreated returns how many new entities were written.
func (r Result) EntitiesCreated() int { return r.entitiesCreated }

// EntitiesMerged returns how many candidates merged into existing entities.
func (r Result) EntitiesMerged() int { return r.entitiesMerged }

// RelationsCreated returns how many new relationships were written.
func (r Result) RelationsCreated() int { return r.relationsCreated }

// Dropped returns how many candidates were discarded as schema-invalid.
func (r Result) Dropped() int { return r.dropped }
