package job

import (
	"context"

	"github.com/inquira/kgraph/domain/repository"
)

// Store persists extraction jobs. Jobs are never deleted; superseded jobs
// remain as an audit trail.
type Store interface {
	Save(ctx context.Context, j ExtractionJob) (ExtractionJob, error)
	Find(ctx context.Context, options ...repository.Option) ([]ExtractionJob, error)
	FindOne(ctx context.Context, options ...repository.Option) (ExtractionJob, error)

	// AddOutcome atomically moves one pending document into the given
	// terminal bucket and returns the updated tally. Outcome recording is
	// commutative, so concurrent workers never corrupt the counts.
	AddOutcome(ctx context.Context, jobID string, outcome Outcome) (Progress, error)

	// AppendError records an error summary under the retention bound.
	AppendError(ctx context.Context, jobID, summary string) error

	// CancelRequested re-reads only the cancellation flag. Workers poll this
	// between documents.
	CancelRequested(ctx context.Context, jobID string) (bool, error)
}

// Outcome is a single document's terminal result within a job.
type Outcome string

// Outcome values.
const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
)
