package extraction

import "context"

// ChunkStore persists document chunks, the unit extraction runs over.
type ChunkStore interface {
	// Save inserts or updates a chunk at the given position within its
	// document.
	Save(ctx context.Context, chunk Chunk, position int) (Chunk, error)

	// ByDocument returns a document's chunks in position order.
	ByDocument(ctx context.Context, kbID, documentID string) ([]Chunk, error)

	// DeleteByDocument removes a document's chunks.
	DeleteByDocument(ctx context.Context, kbID, documentID string) error
}
