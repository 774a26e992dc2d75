package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/inquira/kgraph/domain/document"
	"github.com/inquira/kgraph/domain/extraction"
	"github.com/inquira/kgraph/domain/graph"
	"github.com/inquira/kgraph/domain/repository"
	"github.com/inquira/kgraph/domain/task"
	"github.com/inquira/kgraph/internal/database"
	"github.com/inquira/kgraph/internal/log"
)

// maxChunkSize bounds chunk length in bytes. Paragraphs are packed into
// chunks up to this size; a single oversized paragraph is split hard.
const maxChunkSize = 2000

// ErrDocumentNotFound indicates the document does not exist in the knowledge
// base.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentService ingests documents: it stores the document and its chunks,
// then enqueues extraction so the graph content is built asynchronously.
type DocumentService struct {
	documents document.Store
	chunks    extraction.ChunkStore
	graph     graph.Store
	tasks     task.Store
	logger    *log.Logger
}

// NewDocumentService creates a DocumentService.
func NewDocumentService(
	documents document.Store,
	chunks extraction.ChunkStore,
	graphStore graph.Store,
	tasks task.Store,
	logger *log.Logger,
) *DocumentService {
	if logger == nil {
		logger = log.Default()
	}
	return &DocumentService{
		documents: documents,
		chunks:    chunks,
		graph:     graphStore,
		tasks:     tasks,
		logger:    logger.With("component", "documents"),
	}
}

// Ingest stores a document with its chunked content and enqueues extraction.
func (s *DocumentService) Ingest(ctx context.Context, kbID, domainID, title, uri, content string) (document.Document, error) {
	if kbID == "" {
		return document.Document{}, graph.ErrMissingKB
	}
	if strings.TrimSpace(content) == "" {
		return document.Document{}, errors.New("document content is empty")
	}

	doc, err := s.documents.Save(ctx, document.NewDocument(kbID, domainID, title, uri))
	if err != nil {
		return document.Document{}, fmt.Errorf("save document: %w", err)
	}

	for i, part := range SplitContent(content, maxChunkSize) {
		chunk := extraction.NewChunk("", doc.ID(), kbID, part)
		if _, err := s.chunks.Save(ctx, chunk, i); err != nil {
			return document.Document{}, fmt.Errorf("save chunk %d: %w", i, err)
		}
	}

	t := task.NewTask(task.OperationExtractDocument, task.PriorityNormal, map[string]any{
		"kb_id":       kbID,
		"document_id": doc.ID(),
	})
	if _, err := s.tasks.Save(ctx, t); err != nil {
		return document.Document{}, fmt.Errorf("enqueue extraction: %w", err)
	}

	s.logger.InfoContext(ctx, "document ingested",
		"document_id", doc.ID(), "kb_id", kbID, "domain_id", domainID, "title", title)
	return doc, nil
}

// Get retrieves a document by ID within a knowledge base.
func (s *DocumentService) Get(ctx context.Context, kbID, documentID string) (document.Document, error) {
	doc, err := s.documents.FindOne(ctx, repository.WithKB(kbID), repository.WithID(documentID))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return document.Document{}, fmt.Errorf("%w: %s", ErrDocumentNotFound, documentID)
		}
		return document.Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// List returns a knowledge base's documents.
func (s *DocumentService) List(ctx context.Context, kbID string, options ...repository.Option) ([]document.Document, error) {
	options = append(options, repository.WithKB(kbID), repository.WithOrderDesc("created_at"))
	return s.documents.Find(ctx, options...)
}

// Delete removes a document, its chunks, and sweeps the graph content it
// exclusively supported.
func (s *DocumentService) Delete(ctx context.Context, kbID, documentID string) error {
	if _, err := s.Get(ctx, kbID, documentID); err != nil {
		return err
	}

	swept, err := s.graph.DeleteByDocument(ctx, kbID, documentID)
	if err != nil {
		return fmt.Errorf("delete graph content: %w", err)
	}
	if err := s.chunks.DeleteByDocument(ctx, kbID, documentID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if err := s.documents.Delete(ctx, repository.WithKB(kbID), repository.WithID(documentID)); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	s.logger.InfoContext(ctx, "document deleted",
		"document_id", documentID, "kb_id", kbID, "entities_swept", swept)
	return nil
}

// SplitContent splits text into chunks of at most maxSize bytes, packing
// whole paragraphs together and hard-splitting any paragraph that alone
// exceeds the bound.
func SplitContent(content string, maxSize int) []string {
	if maxSize <= 0 {
		maxSize = maxChunkSize
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
	}

	for _, para := range strings.Split(content, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if len(para) > maxSize {
			flush()
			for len(para) > maxSize {
				chunks = append(chunks, para[:maxSize])
				para = para[maxSize:]
			}
			if para != "" {
				current.WriteString(para)
			}
			continue
		}

		if current.Len() > 0 && current.Len()+len(para)+2 > maxSize {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()
	return chunks
}
