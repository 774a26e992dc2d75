package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inquira/kgraph/domain/document"
	"github.com/inquira/kgraph/domain/job"
	"github.com/inquira/kgraph/domain/task"
)

type jobsFixture struct {
	svc       *JobService
	jobs      *fakeJobStore
	documents *fakeDocumentStore
	tasks     *fakeTaskStore
}

func newJobsFixture(t *testing.T, docCount int) (*jobsFixture, []string) {
	t.Helper()
	f := &jobsFixture{
		jobs:      newFakeJobStore(),
		documents: newFakeDocumentStore(),
		tasks:     newFakeTaskStore(),
	}
	f.svc = NewJobService(f.jobs, f.documents, f.tasks, nil)

	ids := make([]string, 0, docCount)
	for i := 0; i < docCount; i++ {
		doc, err := f.documents.Save(context.Background(),
			document.NewDocument("kb-1", "dom-1", "doc", ""))
		require.NoError(t, err)
		ids = append(ids, doc.ID())
	}
	return f, ids
}

func TestCreateJobEnqueuesBatchTask(t *testing.T) {
	f, ids := newJobsFixture(t, 2)

	j, err := f.svc.CreateJob(context.Background(), "kb-1", "dom-1", ids, job.CleanupReplace)
	require.NoError(t, err)
	assert.Equal(t, job.StatusPending, j.Status())
	assert.Equal(t, int64(2), j.Progress().Pending)
	assert.False(t, j.AllDrifted())

	queued, ok, err := f.tasks.Dequeue(context.Background(), task.OperationReextractBatch)
	require.NoError(t, err)
	require.True(t, ok)
	jobID, ok := queued.PayloadString("job_id")
	require.True(t, ok)
	assert.Equal(t, j.ID(), jobID)
	assert.Equal(t, int(task.PriorityUserInitiated), queued.Priority())
}

func TestCreateJobValidatesDocuments(t *testing.T) {
	f, ids := newJobsFixture(t, 1)

	_, err := f.svc.CreateJob(context.Background(), "kb-1", "dom-1", nil, job.CleanupReplace)
	assert.Error(t, err)

	_, err = f.svc.CreateJob(context.Background(), "kb-1", "dom-1",
		append(ids, "missing"), job.CleanupReplace)
	assert.Error(t, err)

	// Documents of another knowledge base do not count.
	_, err = f.svc.CreateJob(context.Background(), "kb-2", "dom-1", ids, job.CleanupReplace)
	assert.Error(t, err)
}

func TestCreateJobRejectsInvalidMode(t *testing.T) {
	f, ids := newJobsFixture(t, 1)
	_, err := f.svc.CreateJob(context.Background(), "kb-1", "dom-1", ids, "purge")
	assert.Error(t, err)
}

func TestCreateDriftJobRunsAtBackgroundPriority(t *testing.T) {
	f, _ := newJobsFixture(t, 0)

	j, err := f.svc.CreateDriftJob(context.Background(), "kb-1", "dom-1", job.CleanupMerge)
	require.NoError(t, err)
	assert.True(t, j.AllDrifted())
	assert.Empty(t, j.DocumentIDs())

	queued, ok, err := f.tasks.Dequeue(context.Background(), task.OperationReextractBatch)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int(task.PriorityBackground), queued.Priority())
}

func TestCancelPendingJob(t *testing.T) {
	f, ids := newJobsFixture(t, 1)
	j, err := f.svc.CreateJob(context.Background(), "kb-1", "dom-1", ids, job.CleanupReplace)
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(context.Background(), j.ID())
	require.NoError(t, err)
	assert.True(t, cancelled.CancelRequested())

	// Workers poll only the flag, not the whole job.
	flag, err := f.jobs.CancelRequested(context.Background(), j.ID())
	require.NoError(t, err)
	assert.True(t, flag)
}

func TestCancelTerminalJobFails(t *testing.T) {
	f, ids := newJobsFixture(t, 1)
	j, err := f.svc.CreateJob(context.Background(), "kb-1", "dom-1", ids, job.CleanupReplace)
	require.NoError(t, err)

	_, err = f.jobs.AddOutcome(context.Background(), j.ID(), job.OutcomeSucceeded)
	require.NoError(t, err)
	stored, err := f.svc.Get(context.Background(), j.ID())
	require.NoError(t, err)
	_, err = f.jobs.Save(context.Background(), stored.Complete(stored.CreatedAt()))
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), j.ID())
	assert.ErrorIs(t, err, ErrJobTerminal)
}

func TestGetMissingJob(t *testing.T) {
	f, _ := newJobsFixture(t, 0)
	_, err := f.svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestStatusReportsETAOnceWorkIsDone(t *testing.T) {
	f, ids := newJobsFixture(t, 2)
	j, err := f.svc.CreateJob(context.Background(), "kb-1", "dom-1", ids, job.CleanupReplace)
	require.NoError(t, err)

	status, err := f.svc.Status(context.Background(), j.ID())
	require.NoError(t, err)
	assert.False(t, status.HasETA)

	stored, err := f.svc.Get(context.Background(), j.ID())
	require.NoError(t, err)
	_, err = f.jobs.Save(context.Background(), stored.Start(time.Now().Add(-time.Minute)))
	require.NoError(t, err)
	_, err = f.jobs.AddOutcome(context.Background(), j.ID(), job.OutcomeSucceeded)
	require.NoError(t, err)

	status, err = f.svc.Status(context.Background(), j.ID())
	require.NoError(t, err)
	assert.True(t, status.HasETA)
}
