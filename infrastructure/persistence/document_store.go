package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/inquira/kgraph/domain/document"
	"github.com/inquira/kgraph/domain/extraction"
	"github.com/inquira/kgraph/domain/repository"
	"github.com/inquira/kgraph/domain/retrieval"
	"github.com/inquira/kgraph/internal/database"
)

// DocumentStore implements document.Store using GORM.
type DocumentStore struct {
	repo database.Repository[document.Document, DocumentModel]
	db   database.Database
}

// NewDocumentStore creates a new DocumentStore.
func NewDocumentStore(db database.Database) DocumentStore {
	return DocumentStore{
		repo: database.NewRepository[document.Document, DocumentModel](db, DocumentMapper{}, "document"),
		db:   db,
	}
}

// Save creates or updates a document.
func (s DocumentStore) Save(ctx context.Context, doc document.Document) (document.Document, error) {
	if doc.ID() == "" {
		doc = doc.WithID(uuid.NewString())
	}
	model := DocumentMapper{}.ToModel(doc)
	if result := s.db.Session(ctx).Save(&model); result.Error != nil {
		return document.Document{}, fmt.Errorf("save document: %w", result.Error)
	}
	return DocumentMapper{}.ToDomain(model), nil
}

// Find retrieves documents matching the given options.
func (s DocumentStore) Find(ctx context.Context, options ...repository.Option) ([]document.Document, error) {
	return s.repo.Find(ctx, options...)
}

// FindOne retrieves a single document matching the given options.
func (s DocumentStore) FindOne(ctx context.Context, options ...repository.Option) (document.Document, error) {
	return s.repo.FindOne(ctx, options...)
}

// Count returns the number of documents matching the options.
func (s DocumentStore) Count(ctx context.Context, options ...repository.Option) (int64, error) {
	return s.repo.Count(ctx, options...)
}

// Delete removes documents matching the given options.
func (s DocumentStore) Delete(ctx context.Context, options ...repository.Option) error {
	return s.repo.DeleteBy(ctx, options...)
}

// ChunkStore persists document chunks and serves chunk content lookups for
// graph-sourced retrieval results.
type ChunkStore struct {
	db database.Database
}

// NewChunkStore creates a new ChunkStore.
func NewChunkStore(db database.Database) ChunkStore {
	return ChunkStore{db: db}
}

// Save inserts or updates a chunk at the given position.
func (s ChunkStore) Save(ctx context.Context, chunk extraction.Chunk, position int) (extraction.Chunk, error) {
	m := ChunkModel{
		ID:         chunk.ID(),
		DocumentID: chunk.DocumentID(),
		KBID:       chunk.KBID(),
		Content:    chunk.Content(),
		Position:   position,
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if result := s.db.Session(ctx).Save(&m); result.Error != nil {
		return extraction.Chunk{}, fmt.Errorf("save chunk: %w", result.Error)
	}
	return extraction.NewChunk(m.ID, m.DocumentID, m.KBID, m.Content), nil
}

// ByDocument returns a document's chunks in position order.
func (s ChunkStore) ByDocument(ctx context.Context, kbID, documentID string) ([]extraction.Chunk, error) {
	var models []ChunkModel
	result := s.db.Session(ctx).
		Where("kb_id = ? AND document_id = ?", kbID, documentID).
		Order("position ASC").
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("chunks by document: %w", result.Error)
	}
	chunks := make([]extraction.Chunk, len(models))
	for i, m := range models {
		chunks[i] = extraction.NewChunk(m.ID, m.DocumentID, m.KBID, m.Content)
	}
	return chunks, nil
}

// ByIDs returns chunk records for the given IDs within a knowledge base.
// Missing IDs are skipped, not errors.
func (s ChunkStore) ByIDs(ctx context.Context, kbID string, chunkIDs []string) ([]retrieval.ChunkRecord, error) {
	if len(chunkIDs) == 0 {
		return nil, nil
	}
	var models []ChunkModel
	result := s.db.Session(ctx).
		Where("kb_id = ? AND id IN ?", kbID, chunkIDs).
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("chunks by ids: %w", result.Error)
	}
	records := make([]retrieval.ChunkRecord, len(models))
	for i, m := range models {
		records[i] = retrieval.ChunkRecord{
			ID:         m.ID,
			DocumentID: m.DocumentID,
			Content:    m.Content,
		}
	}
	return records, nil
}

// DeleteByDocument removes a document's chunks.
func (s ChunkStore) DeleteByDocument(ctx context.Context, kbID, documentID string) error {
	result := s.db.Session(ctx).
		Where("kb_id = ? AND document_id = ?", kbID, documentID).
		Delete(&ChunkModel{})
	if result.Error != nil {
		return fmt.Errorf("delete chunks by document: %w", result.Error)
	}
	return nil
}
