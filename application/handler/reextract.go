package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/inquira/kgraph/application/service"
	"github.com/inquira/kgraph/application/worker"
	"github.com/inquira/kgraph/domain/document"
	"github.com/inquira/kgraph/domain/graph"
	"github.com/inquira/kgraph/domain/job"
	"github.com/inquira/kgraph/domain/repository"
	"github.com/inquira/kgraph/domain/task"
	"github.com/inquira/kgraph/internal/log"
)

// ReextractHandler runs batch re-extraction jobs. It resolves the job's
// document set, pushes each document back through extraction under the
// job's cleanup mode, and records per-document outcomes. Cancellation is
// honored between documents; a job that outlives the soft time limit yields
// its task so the remaining documents continue on a fresh claim.
type ReextractHandler struct {
	jobs          job.Store
	documents     document.Store
	graph         graph.Store
	schemas       *service.SchemaService
	extract       *ExtractHandler
	softTimeLimit time.Duration
	logger        *log.Logger
}

// NewReextractHandler creates a ReextractHandler.
func NewReextractHandler(
	jobs job.Store,
	documents document.Store,
	graphStore graph.Store,
	schemas *service.SchemaService,
	extract *ExtractHandler,
	softTimeLimit time.Duration,
	logger *log.Logger,
) *ReextractHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &ReextractHandler{
		jobs:          jobs,
		documents:     documents,
		graph:         graphStore,
		schemas:       schemas,
		extract:       extract,
		softTimeLimit: softTimeLimit,
		logger:        logger.With("component", "reextract_handler"),
	}
}

// Handle processes a batch re-extraction task.
func (h *ReextractHandler) Handle(ctx context.Context, t task.Task) error {
	jobID, ok := t.PayloadString("job_id")
	if !ok {
		return fmt.Errorf("task %d missing job_id", t.ID())
	}

	j, err := h.jobs.FindOne(ctx, repository.WithID(jobID))
	if err != nil {
		return fmt.Errorf("load job %s: %w", jobID, err)
	}
	if j.Status().Terminal() {
		// A redelivered task for a finished job is acknowledged, not rerun.
		h.logger.InfoContext(ctx, "job already terminal, ignoring task",
			"job_id", jobID, "status", j.Status())
		return nil
	}

	if j.Status() == job.StatusPending {
		j, err = h.startJob(ctx, j)
		if err != nil {
			return err
		}
		if j.Status().Terminal() {
			return nil
		}
	}

	return h.runJob(ctx, j)
}

// startJob resolves the document set for drift jobs and marks the job
// running. A drift job with nothing drifted completes immediately.
func (h *ReextractHandler) startJob(ctx context.Context, j job.ExtractionJob) (job.ExtractionJob, error) {
	if j.AllDrifted() && len(j.DocumentIDs()) == 0 {
		ids, err := h.resolveDrifted(ctx, j.KBID(), j.DomainID())
		if err != nil {
			return job.ExtractionJob{}, err
		}
		j = j.WithDocuments(ids)
	}

	j = j.Start(time.Now())
	if len(j.DocumentIDs()) == 0 {
		j = j.Complete(time.Now())
	}

	saved, err := h.jobs.Save(ctx, j)
	if err != nil {
		return job.ExtractionJob{}, fmt.Errorf("start job: %w", err)
	}
	h.logger.InfoContext(ctx, "job started",
		"job_id", saved.ID(), "documents", len(saved.DocumentIDs()), "mode", saved.CleanupMode())
	return saved, nil
}

func (h *ReextractHandler) resolveDrifted(ctx context.Context, kbID, domainID string) ([]string, error) {
	report, err := h.schemas.Drift(ctx, kbID, domainID)
	if err != nil {
		return nil, fmt.Errorf("resolve drifted documents: %w", err)
	}
	ids := make([]string, len(report.StaleDocuments))
	for i, doc := range report.StaleDocuments {
		ids[i] = doc.ID()
	}
	return ids, nil
}

// runJob processes the job's remaining documents in order. Document IDs are
// stable, so the number of already recorded outcomes tells a resumed run
// where to pick up.
func (h *ReextractHandler) runJob(ctx context.Context, j job.ExtractionJob) error {
	started := time.Now()
	ids := j.DocumentIDs()
	processed := int(j.Progress().Succeeded + j.Progress().Failed + j.Progress().Cancelled)

	for i := processed; i < len(ids); i++ {
		cancelled, err := h.jobs.CancelRequested(ctx, j.ID())
		if err != nil {
			return fmt.Errorf("poll cancellation: %w", err)
		}
		if cancelled {
			return h.cancelRemaining(ctx, j.ID(), len(ids)-i)
		}

		if h.softTimeLimit > 0 && time.Since(started) > h.softTimeLimit {
			h.logger.InfoContext(ctx, "job hit soft time limit, yielding",
				"job_id", j.ID(), "remaining", len(ids)-i)
			return worker.ErrYield
		}

		h.processDocument(ctx, j, ids[i])
	}

	return h.finishJob(ctx, j.ID())
}

// processDocument runs one document and records its outcome. Document
// failures are recorded on the job, never propagated, so one bad document
// cannot sink the batch.
func (h *ReextractHandler) processDocument(ctx context.Context, j job.ExtractionJob, documentID string) {
	err := h.reextractOne(ctx, j, documentID)
	if err == nil {
		if _, err := h.jobs.AddOutcome(ctx, j.ID(), job.OutcomeSucceeded); err != nil {
			h.logger.ErrorContext(ctx, "record outcome failed", "job_id", j.ID(), "error", err)
		}
		return
	}

	h.logger.WarnContext(ctx, "document re-extraction failed",
		"job_id", j.ID(), "document_id", documentID, "error", err)
	if _, err := h.jobs.AddOutcome(ctx, j.ID(), job.OutcomeFailed); err != nil {
		h.logger.ErrorContext(ctx, "record outcome failed", "job_id", j.ID(), "error", err)
	}
	summary := fmt.Sprintf("%s: %v", documentID, err)
	if err := h.jobs.AppendError(ctx, j.ID(), summary); err != nil {
		h.logger.ErrorContext(ctx, "append error summary failed", "job_id", j.ID(), "error", err)
	}
}

func (h *ReextractHandler) reextractOne(ctx context.Context, j job.ExtractionJob, documentID string) error {
	if j.CleanupMode() == job.CleanupReplace {
		swept, err := h.graph.DeleteByDocument(ctx, j.KBID(), documentID)
		if err != nil {
			return fmt.Errorf("replace cleanup: %w", err)
		}
		h.logger.DebugContext(ctx, "replaced document graph content",
			"document_id", documentID, "entities_swept", swept)
	}
	return h.extract.ExtractDocument(ctx, j.KBID(), documentID)
}

// cancelRemaining moves every unprocessed document into the cancelled bucket
// and finishes the job.
func (h *ReextractHandler) cancelRemaining(ctx context.Context, jobID string, remaining int) error {
	for i := 0; i < remaining; i++ {
		if _, err := h.jobs.AddOutcome(ctx, jobID, job.OutcomeCancelled); err != nil {
			return fmt.Errorf("record cancelled outcome: %w", err)
		}
	}
	return h.finishJob(ctx, jobID)
}

func (h *ReextractHandler) finishJob(ctx context.Context, jobID string) error {
	j, err := h.jobs.FindOne(ctx, repository.WithID(jobID))
	if err != nil {
		return fmt.Errorf("reload job: %w", err)
	}

	done := j.Complete(time.Now())
	if _, err := h.jobs.Save(ctx, done); err != nil {
		return fmt.Errorf("finish job: %w", err)
	}

	h.logger.InfoContext(ctx, "job finished",
		"job_id", jobID,
		"status", done.Status(),
		"succeeded", done.Progress().Succeeded,
		"failed", done.Progress().Failed,
		"cancelled", done.Progress().Cancelled)
	return nil
}
