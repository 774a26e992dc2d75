package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/inquira/kgraph/domain/job"
	"github.com/inquira/kgraph/domain/repository"
	"github.com/inquira/kgraph/internal/database"
	"gorm.io/gorm"
)

// JobStore implements job.Store using GORM. Outcome recording uses atomic
// column arithmetic so concurrent workers never lose counts.
type JobStore struct {
	repo database.Repository[job.ExtractionJob, JobModel]
	db   database.Database
}

// NewJobStore creates a new JobStore.
func NewJobStore(db database.Database) JobStore {
	return JobStore{
		repo: database.NewRepository[job.ExtractionJob, JobModel](db, JobMapper{}, "extraction job"),
		db:   db,
	}
}

// Save creates or updates a job.
func (s JobStore) Save(ctx context.Context, j job.ExtractionJob) (job.ExtractionJob, error) {
	if j.ID() == "" {
		j = j.WithID(uuid.NewString())
	}
	model := JobMapper{}.ToModel(j)
	if result := s.db.Session(ctx).Save(&model); result.Error != nil {
		return job.ExtractionJob{}, fmt.Errorf("save extraction job: %w", result.Error)
	}
	return JobMapper{}.ToDomain(model), nil
}

// Find retrieves jobs matching the given options.
func (s JobStore) Find(ctx context.Context, options ...repository.Option) ([]job.ExtractionJob, error) {
	return s.repo.Find(ctx, options...)
}

// FindOne retrieves a single job matching the given options.
func (s JobStore) FindOne(ctx context.Context, options ...repository.Option) (job.ExtractionJob, error) {
	return s.repo.FindOne(ctx, options...)
}

// AddOutcome atomically moves one pending document into the given terminal
// bucket and returns the updated tally.
func (s JobStore) AddOutcome(ctx context.Context, jobID string, outcome job.Outcome) (job.Progress, error) {
	var column string
	switch outcome {
	case job.OutcomeSucceeded:
		column = "succeeded"
	case job.OutcomeFailed:
		column = "failed"
	case job.OutcomeCancelled:
		column = "cancelled"
	default:
		return job.Progress{}, fmt.Errorf("unknown outcome %q", outcome)
	}

	var model JobModel
	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		result := tx.Model(&JobModel{}).
			Where("id = ? AND pending > 0", jobID).
			Updates(map[string]any{
				column:    gorm.Expr(column + " + 1"),
				"pending": gorm.Expr("pending - 1"),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: extraction job %s has no pending documents", database.ErrNotFound, jobID)
		}
		return tx.Where("id = ?", jobID).First(&model).Error
	})
	if err != nil {
		return job.Progress{}, fmt.Errorf("record job outcome: %w", err)
	}

	return job.Progress{
		Succeeded: model.Succeeded,
		Failed:    model.Failed,
		Cancelled: model.Cancelled,
		Pending:   model.Pending,
	}, nil
}

// AppendError records an error summary, evicting the oldest entries beyond
// the retention bound. Read-modify-write runs in a transaction so concurrent
// appends do not clobber each other.
func (s JobStore) AppendError(ctx context.Context, jobID, summary string) error {
	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		var model JobModel
		if err := tx.Where("id = ?", jobID).First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: extraction job %s", database.ErrNotFound, jobID)
			}
			return err
		}

		var errs []string
		if len(model.ErrorSummaries) > 0 {
			_ = json.Unmarshal(model.ErrorSummaries, &errs)
		}
		errs = append(errs, summary)
		if len(errs) > job.MaxErrorSummaries {
			errs = errs[len(errs)-job.MaxErrorSummaries:]
		}
		encoded, err := json.Marshal(errs)
		if err != nil {
			return err
		}
		return tx.Model(&JobModel{}).
			Where("id = ?", jobID).
			Update("error_summaries", json.RawMessage(encoded)).Error
	})
	if err != nil {
		return fmt.Errorf("append job error: %w", err)
	}
	return nil
}

// CancelRequested re-reads only the cancellation flag.
func (s JobStore) CancelRequested(ctx context.Context, jobID string) (bool, error) {
	var flag bool
	result := s.db.Session(ctx).
		Model(&JobModel{}).
		Where("id = ?", jobID).
		Pluck("cancel_request", &flag)
	if result.Error != nil {
		return false, fmt.Errorf("read cancel flag: %w", result.Error)
	}
	return flag, nil
}
