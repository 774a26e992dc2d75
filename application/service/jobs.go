package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/inquira/kgraph/domain/document"
	"github.com/inquira/kgraph/domain/job"
	"github.com/inquira/kgraph/domain/repository"
	"github.com/inquira/kgraph/domain/task"
	"github.com/inquira/kgraph/internal/database"
	"github.com/inquira/kgraph/internal/log"
)

// Job service errors.
var (
	ErrJobNotFound = errors.New("job not found")
	ErrJobTerminal = errors.New("job already finished")
)

// JobStatus is a job snapshot with its completion estimate.
type JobStatus struct {
	Job job.ExtractionJob
	ETA time.Time
	// HasETA is false until at least one document has completed.
	HasETA bool
}

// JobService creates and tracks batch re-extraction jobs. The jobs run on
// the batch workers; this service only persists them and enqueues the task
// that triggers the run.
type JobService struct {
	jobs      job.Store
	documents document.Store
	tasks     task.Store
	logger    *log.Logger
}

// NewJobService creates a JobService.
func NewJobService(jobs job.Store, documents document.Store, tasks task.Store, logger *log.Logger) *JobService {
	if logger == nil {
		logger = log.Default()
	}
	return &JobService{
		jobs:      jobs,
		documents: documents,
		tasks:     tasks,
		logger:    logger.With("component", "jobs"),
	}
}

// CreateJob creates a job over an explicit document list and enqueues it.
// User-triggered, so the task runs at user-initiated priority.
func (s *JobService) CreateJob(ctx context.Context, kbID, domainID string, documentIDs []string, mode job.CleanupMode) (job.ExtractionJob, error) {
	if !mode.Valid() {
		return job.ExtractionJob{}, fmt.Errorf("invalid cleanup mode %q", mode)
	}
	if len(documentIDs) == 0 {
		return job.ExtractionJob{}, errors.New("document list is empty")
	}

	docs, err := s.documents.Find(ctx, repository.WithKB(kbID), repository.WithIDIn(documentIDs))
	if err != nil {
		return job.ExtractionJob{}, fmt.Errorf("load documents: %w", err)
	}
	if len(docs) != len(documentIDs) {
		return job.ExtractionJob{}, fmt.Errorf("%d of %d documents not found in knowledge base", len(documentIDs)-len(docs), len(documentIDs))
	}

	return s.persistAndEnqueue(ctx, job.NewJob(kbID, domainID, documentIDs, mode), task.PriorityUserInitiated)
}

// CreateDriftJob creates a job targeting every drifted document of the
// domain, resolved when the job starts. Drift jobs run at background
// priority.
func (s *JobService) CreateDriftJob(ctx context.Context, kbID, domainID string, mode job.CleanupMode) (job.ExtractionJob, error) {
	if !mode.Valid() {
		return job.ExtractionJob{}, fmt.Errorf("invalid cleanup mode %q", mode)
	}
	return s.persistAndEnqueue(ctx, job.NewDriftJob(kbID, domainID, mode), task.PriorityBackground)
}

func (s *JobService) persistAndEnqueue(ctx context.Context, j job.ExtractionJob, priority task.Priority) (job.ExtractionJob, error) {
	saved, err := s.jobs.Save(ctx, j)
	if err != nil {
		return job.ExtractionJob{}, fmt.Errorf("save job: %w", err)
	}

	t := task.NewTask(task.OperationReextractBatch, priority, map[string]any{"job_id": saved.ID()})
	if _, err := s.tasks.Save(ctx, t); err != nil {
		return job.ExtractionJob{}, fmt.Errorf("enqueue job task: %w", err)
	}

	s.logger.InfoContext(ctx, "job created",
		"job_id", saved.ID(),
		"kb_id", saved.KBID(),
		"domain_id", saved.DomainID(),
		"mode", saved.CleanupMode(),
		"all_drifted", saved.AllDrifted(),
		"documents", len(saved.DocumentIDs()))
	return saved, nil
}

// Get retrieves a job by ID.
func (s *JobService) Get(ctx context.Context, jobID string) (job.ExtractionJob, error) {
	j, err := s.jobs.FindOne(ctx, repository.WithID(jobID))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return job.ExtractionJob{}, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
		}
		return job.ExtractionJob{}, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

// Status returns a job snapshot with its completion estimate.
func (s *JobService) Status(ctx context.Context, jobID string) (JobStatus, error) {
	j, err := s.Get(ctx, jobID)
	if err != nil {
		return JobStatus{}, err
	}
	eta, ok := j.ETA(time.Now())
	return JobStatus{Job: j, ETA: eta, HasETA: ok}, nil
}

// List returns a knowledge base's jobs, newest first.
func (s *JobService) List(ctx context.Context, kbID string, options ...repository.Option) ([]job.ExtractionJob, error) {
	options = append(options, repository.WithKB(kbID), repository.WithOrderDesc("created_at"))
	return s.jobs.Find(ctx, options...)
}

// Cancel requests cancellation of a running or pending job. The worker
// honors it between documents; in-flight work completes.
func (s *JobService) Cancel(ctx context.Context, jobID string) (job.ExtractionJob, error) {
	j, err := s.Get(ctx, jobID)
	if err != nil {
		return job.ExtractionJob{}, err
	}
	if j.Status().Terminal() {
		return job.ExtractionJob{}, fmt.Errorf("%w: %s is %s", ErrJobTerminal, jobID, j.Status())
	}

	saved, err := s.jobs.Save(ctx, j.RequestCancel())
	if err != nil {
		return job.ExtractionJob{}, fmt.Errorf("request cancel: %w", err)
	}
	s.logger.InfoContext(ctx, "job cancellation requested", "job_id", jobID)
	return saved, nil
}
