// Package handler implements the task queue handlers: single-document
// extraction and batch re-extraction jobs.
package handler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/inquira/kgraph/application/service"
	"github.com/inquira/kgraph/domain/document"
	"github.com/inquira/kgraph/domain/extraction"
	"github.com/inquira/kgraph/domain/repository"
	"github.com/inquira/kgraph/domain/task"
	"github.com/inquira/kgraph/internal/log"
)

// ExtractHandler runs extraction for one document: every chunk goes through
// the model, bounded by the configured parallelism, and the document is
// stamped with the schema version it was extracted under.
type ExtractHandler struct {
	documents   document.Store
	chunks      extraction.ChunkStore
	schemas     *service.SchemaService
	extraction  *service.ExtractionService
	parallelism int
	logger      *log.Logger
}

// NewExtractHandler creates an ExtractHandler.
func NewExtractHandler(
	documents document.Store,
	chunks extraction.ChunkStore,
	schemas *service.SchemaService,
	extractionSvc *service.ExtractionService,
	parallelism int,
	logger *log.Logger,
) *ExtractHandler {
	if parallelism < 1 {
		parallelism = 1
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ExtractHandler{
		documents:   documents,
		chunks:      chunks,
		schemas:     schemas,
		extraction:  extractionSvc,
		parallelism: parallelism,
		logger:      logger.With("component", "extract_handler"),
	}
}

// Handle processes a document extraction task.
func (h *ExtractHandler) Handle(ctx context.Context, t task.Task) error {
	kbID, ok := t.PayloadString("kb_id")
	if !ok {
		return fmt.Errorf("task %d missing kb_id", t.ID())
	}
	documentID, ok := t.PayloadString("document_id")
	if !ok {
		return fmt.Errorf("task %d missing document_id", t.ID())
	}

	return h.ExtractDocument(ctx, kbID, documentID)
}

// ExtractDocument runs the full extraction pipeline for one document and
// marks it extracted under the domain's current schema version. Also the
// per-document unit the batch runner reuses.
func (h *ExtractHandler) ExtractDocument(ctx context.Context, kbID, documentID string) error {
	doc, err := h.findDocument(ctx, kbID, documentID)
	if err != nil {
		return err
	}

	def, err := h.schemas.Definition(ctx, doc.DomainID())
	if err != nil {
		return fmt.Errorf("load schema definition: %w", err)
	}
	if def.Empty() {
		h.logger.WarnContext(ctx, "domain has no entity types, skipping extraction",
			"document_id", documentID, "domain_id", doc.DomainID())
		return nil
	}

	chunks, err := h.chunks.ByDocument(ctx, kbID, documentID)
	if err != nil {
		return fmt.Errorf("load chunks: %w", err)
	}

	var (
		mu      sync.Mutex
		created, merged, rels, dropped int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.parallelism)
	for _, chunk := range chunks {
		g.Go(func() error {
			result, err := h.extraction.ExtractChunk(gctx, chunk, def)
			if err != nil {
				return fmt.Errorf("chunk %s: %w", chunk.ID(), err)
			}
			mu.Lock()
			created += result.EntitiesCreated()
			merged += result.EntitiesMerged()
			rels += result.RelationsCreated()
			dropped += result.Dropped()
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	stamped := doc.MarkExtracted(def.Domain().SchemaVersion(), time.Now())
	if _, err := h.documents.Save(ctx, stamped); err != nil {
		return fmt.Errorf("mark document extracted: %w", err)
	}

	h.logger.InfoContext(ctx, "document extracted",
		"document_id", documentID,
		"kb_id", kbID,
		"chunks", len(chunks),
		"entities_created", created,
		"entities_merged", merged,
		"relationships", rels,
		"dropped", dropped,
		"schema_version", def.Domain().SchemaVersion())
	return nil
}

func (h *ExtractHandler) findDocument(ctx context.Context, kbID, documentID string) (document.Document, error) {
	doc, err := h.documents.FindOne(ctx, repository.WithKB(kbID), repository.WithID(documentID))
	if err != nil {
		return document.Document{}, fmt.Errorf("load document %s: %w", documentID, err)
	}
	return doc, nil
}
