package retrieval

import "context"

// VectorHit is one hit from the external vector-similarity collaborator.
type VectorHit struct {
	ChunkID    string
	DocumentID string
	Content    string
	Score      float64
}

// VectorSearcher performs vector-similarity search over a knowledge base's
// chunk embeddings. The embedding pipeline itself lives outside this module.
type VectorSearcher interface {
	Search(ctx context.Context, kbID, queryText string, topK int) ([]VectorHit, error)
}

// ChunkRecord is a stored chunk fetched by ID.
type ChunkRecord struct {
	ID         string
	DocumentID string
	Content    string
}

// ChunkFetcher loads chunk content for graph-sourced results, whose
// provenance rows carry chunk IDs but no text.
type ChunkFetcher interface {
	ByIDs(ctx context.Context, kbID string, chunkIDs []string) ([]ChunkRecord, error)
}
