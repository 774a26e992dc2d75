// Package job models batch re-extraction jobs: the admin-triggered runs that
// push drifted documents back through extraction. Jobs are an audit trail;
// they are superseded by newer jobs, never deleted.
package job

import "time"

// Status is the lifecycle state of an extraction job.
type Status string

// Status values.
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// CleanupMode controls what happens to a document's existing graph content
// before re-extraction.
type CleanupMode string

// CleanupMode values.
const (
	// CleanupReplace deletes the document's existing entities and
	// relationships before re-extracting.
	CleanupReplace CleanupMode = "replace"
	// CleanupAppend re-extracts without touching existing nodes, relying on
	// deduplication to avoid duplicates.
	CleanupAppend CleanupMode = "append"
	// CleanupMerge re-extracts and reconciles: matched nodes get updated
	// attributes and confidence, new ones are added.
	CleanupMerge CleanupMode = "merge"
)

// Valid reports whether the mode is one of the known values.
func (m CleanupMode) Valid() bool {
	switch m {
	case CleanupReplace, CleanupAppend, CleanupMerge:
		return true
	}
	return false
}

// MaxErrorSummaries bounds how many error summaries a job retains. Older
// entries are evicted first.
const MaxErrorSummaries = 10

// Progress is a job's per-document outcome tally.
type Progress struct {
	Succeeded int64
	Failed    int64
	Cancelled int64
	Pending   int64
}

// Total returns the job's document count.
func (p Progress) Total() int64 {
	return p.Succeeded + p.Failed + p.Cancelled + p.Pending
}

// Done reports whether no documents remain pending.
func (p Progress) Done() bool { return p.Pending == 0 }

// ExtractionJob is one batch re-extraction run over a document set.
type ExtractionJob struct {
	id             string
	kbID           string
	domainID       string
	documentIDs    []string
	allDrifted     bool
	cleanupMode    CleanupMode
	status         Status
	progress       Progress
	errorSummaries []string
	cancelRequest  bool
	startedAt      time.Time
	completedAt    time.Time
	createdAt      time.Time
	updatedAt      time.Time
}

// NewJob creates a pending job over an explicit document list.
func NewJob(kbID, domainID string, documentIDs []string, mode CleanupMode) ExtractionJob {
	ids := make([]string, len(documentIDs))
	copy(ids, documentIDs)
	return ExtractionJob{
		kbID:        kbID,
		domainID:    domainID,
		documentIDs: ids,
		cleanupMode: mode,
		status:      StatusPending,
		progress:    Progress{Pending: int64(len(ids))},
	}
}

// NewDriftJob creates a pending job targeting every drifted document of the
// domain. The document list is resolved when the job starts.
func NewDriftJob(kbID, domainID string, mode CleanupMode) ExtractionJob {
	return ExtractionJob{
		kbID:        kbID,
		domainID:    domainID,
		allDrifted:  true,
		cleanupMode: mode,
		status:      StatusPending,
	}
}

// NewJobWithState reconstructs a job from persisted state (used by stores).
func NewJobWithState(
	id, kbID, domainID string,
	documentIDs []string,
	allDrifted bool,
	mode CleanupMode,
	status Status,
	progress Progress,
	errorSummaries []string,
	cancelRequest bool,
	startedAt, completedAt, createdAt, updatedAt time.Time,
) ExtractionJob {
	ids := make([]string, len(documentIDs))
	copy(ids, documentIDs)
	errs := make([]string, len(errorSummaries))
	copy(errs, errorSummaries)
	return ExtractionJob{
		id:             id,
		kbID:           kbID,
		domainID:       domainID,
		documentIDs:    ids,
		allDrifted:     allDrifted,
		cleanupMode:    mode,
		status:         status,
		progress:       progress,
		errorSummaries: errs,
		cancelRequest:  cancelRequest,
		startedAt:      startedAt,
		completedAt:    completedAt,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

// ID returns the job ID.
func (j ExtractionJob) ID() string { return j.id }

// KBID returns the target knowledge base ID.
func (j ExtractionJob) KBID() string { return j.kbID }

// DomainID returns the domain whose schema the job re-extracts under.
func (j ExtractionJob) DomainID() string { return j.domainID }

// DocumentIDs returns the explicit target document list, empty for drift jobs
// that have not been resolved yet.
func (j ExtractionJob) DocumentIDs() []string {
	ids := make([]string, len(j.documentIDs))
	copy(ids, j.documentIDs)
	return ids
}

// AllDrifted reports whether the job targets every drifted document.
func (j ExtractionJob) AllDrifted() bool { return j.allDrifted }

// CleanupMode returns the job's cleanup mode.
func (j ExtractionJob) CleanupMode() CleanupMode { return j.cleanupMode }

// Status returns the job status.
func (j ExtractionJob) Status() Status { return j.status }

// Progress returns the per-document outcome tally.
func (j ExtractionJob) Progress() Progress { return j.progress }

// ErrorSummaries returns the retained error summaries, newest last.
func (j ExtractionJob) ErrorSummaries() []string {
	errs := make([]string, len(j.errorSummaries))
	copy(errs, j.errorSummaries)
	return errs
}

// CancelRequested reports whether cancellation has been requested. Workers
// check this between documents; in-flight work completes.
func (j ExtractionJob) CancelRequested() bool { return j.cancelRequest }

// StartedAt returns when the job started running.
func (j ExtractionJob) StartedAt() time.Time { return j.startedAt }

// CompletedAt returns when the job reached a terminal status.
func (j ExtractionJob) CompletedAt() time.Time { return j.completedAt }

// CreatedAt returns when the job was created.
func (j ExtractionJob) CreatedAt() time.Time { return j.createdAt }

// UpdatedAt returns when the job was last updated.
func (j ExtractionJob) UpdatedAt() time.Time { return j.updatedAt }

// WithID returns a copy with the given ID.
func (j ExtractionJob) WithID(id string) ExtractionJob {
	j.id = id
	return j
}

// WithDocuments returns a copy with the resolved document list and matching
// pending count. Used when a drift job's target set is materialized at start.
func (j ExtractionJob) WithDocuments(documentIDs []string) ExtractionJob {
	ids := make([]string, len(documentIDs))
	copy(ids, documentIDs)
	j.documentIDs = ids
	j.progress.Pending = int64(len(ids))
	return j
}

// Start returns a copy marked running.
func (j ExtractionJob) Start(at time.Time) ExtractionJob {
	j.status = StatusRunning
	j.startedAt = at
	return j
}

// Complete returns a copy in the appropriate terminal status: cancelled if
// cancellation was requested, failed if every processed document failed,
// completed otherwise.
func (j ExtractionJob) Complete(at time.Time) ExtractionJob {
	switch {
	case j.cancelRequest:
		j.status = StatusCancelled
	case j.progress.Succeeded == 0 && j.progress.Failed > 0:
		j.status = StatusFailed
	default:
		j.status = StatusCompleted
	}
	j.completedAt = at
	return j
}

// RequestCancel returns a copy with the cancellation flag set.
func (j ExtractionJob) RequestCancel() ExtractionJob {
	j.cancelRequest = true
	return j
}

// WithProgress returns a copy with the given tally.
func (j ExtractionJob) WithProgress(p Progress) ExtractionJob {
	j.progress = p
	return j
}

// AppendError returns a copy with the summary appended, evicting the oldest
// entries beyond MaxErrorSummaries.
func (j ExtractionJob) AppendError(summary string) ExtractionJob {
	errs := make([]string, len(j.errorSummaries), len(j.errorSummaries)+1)
	copy(errs, j.errorSummaries)
	errs = append(errs, summary)
	if len(errs) > MaxErrorSummaries {
		errs = errs[len(errs)-MaxErrorSummaries:]
	}
	j.errorSummaries = errs
	return j
}

// ETA estimates completion time from elapsed time and the remaining to
// completed ratio. Returns (zero, false) until at least one document has
// completed.
func (j ExtractionJob) ETA(now time.Time) (time.Time, bool) {
	done := j.progress.Succeeded + j.progress.Failed
	if done == 0 || j.startedAt.IsZero() {
		return time.Time{}, false
	}
	if j.progress.Pending == 0 {
		return now, true
	}
	elapsed := now.Sub(j.startedAt)
	remaining := time.Duration(float64(elapsed) * float64(j.progress.Pending) / float64(done))
	return now.Add(remaining), true
}
