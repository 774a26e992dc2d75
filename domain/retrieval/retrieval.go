// Package retrieval defines the strategy contract for answering a query
// against a knowledge base, and the query/result value types shared by every
// strategy.
package retrieval

import "context"

// SourceType records which pipeline produced a result.
type SourceType string

// SourceType values.
const (
	SourceVector SourceType = "vector"
	SourceGraph  SourceType = "graph"
)

// Strategy answers a retrieval query against one knowledge base. Strategies
// are stateless and safe for concurrent use.
type Strategy interface {
	// Name returns the strategy's registry key.
	Name() string
	// Retrieve answers the query. A strategy that cannot complete its full
	// pipeline degrades rather than fails where the degraded answer is
	// still correct.
	Retrieve(ctx context.Context, query Query) ([]Result, error)
}

// Query is a retrieval request scoped to one knowledge base.
type Query struct {
	kbID     string
	text     string
	topK     int
	minScore float64
}

// DefaultTopK is the result count used when the caller does not set one.
const DefaultTopK = 10

// NewQuery creates a Query with the default result count.
func NewQuery(kbID, text string) Query {
	return Query{kbID: kbID, text: text, topK: DefaultTopK}
}

// KBID returns the target knowledge base ID.
func (q Query) KBID() string { return q.kbID }

// Text returns the query text.
func (q Query) Text() string { return q.text }

// TopK returns the requested result count.
func (q Query) TopK() int { return q.topK }

// MinScore returns the minimum score cutoff, 0 meaning no cutoff.
func (q Query) MinScore() float64 { return q.minScore }

// WithTopK returns a copy with the given result count. Non-positive values
// reset to the default.
func (q Query) WithTopK(k int) Query {
	if k <= 0 {
		k = DefaultTopK
	}
	q.topK = k
	return q
}

// WithMinScore returns a copy with the given score cutoff.
func (q Query) WithMinScore(s float64) Query {
	q.minScore = s
	return q
}

// Result is one retrieved chunk with its score and origin.
type Result struct {
	chunkID    string
	documentID string
	content    string
	score      float64
	source     SourceType
	entityIDs  []string
}

// NewResult creates a Result.
func NewResult(chunkID, documentID, content string, score float64, source SourceType) Result {
	return Result{
		chunkID:    chunkID,
		documentID: documentID,
		content:    content,
		score:      score,
		source:     source,
	}
}

// ChunkID returns the retrieved chunk's ID.
func (r Result) ChunkID() string { return r.chunkID }

// DocumentID returns the chunk's parent document ID.
func (r Result) DocumentID() string { return r.documentID }

// Content returns the chunk text.
func (r Result) Content() string { return r.content }

// Score returns the relevance score. Scores are comparable within one
// response, not across strategies.
func (r Result) Score() float64 { return r.score }

// Source returns which pipeline produced the result.
func (r Result) Source() SourceType { return r.source }

// EntityIDs returns the graph entities that led to this result, empty for
// vector results.
func (r Result) EntityIDs() []string {
	out := make([]string, len(r.entityIDs))
	copy(out, r.entityIDs)
	return out
}

// WithEntityIDs returns a copy annotated with the entities that produced it.
func (r Result) WithEntityIDs(ids []string) Result {
	r.entityIDs = make([]string, len(ids))
	copy(r.entityIDs, ids)
	return r
}
