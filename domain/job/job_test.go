package job

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJobStartsPendingWithFullTally(t *testing.T) {
	j := NewJob("kb-1", "dom-1", []string{"doc-1", "doc-2"}, CleanupMerge)

	assert.Equal(t, StatusPending, j.Status())
	assert.Equal(t, int64(2), j.Progress().Pending)
	assert.Equal(t, int64(2), j.Progress().Total())
	assert.False(t, j.AllDrifted())
	assert.False(t, j.Progress().Done())
}

func TestNewDriftJobResolvesDocumentsLater(t *testing.T) {
	j := NewDriftJob("kb-1", "dom-1", CleanupReplace)
	assert.True(t, j.AllDrifted())
	assert.Empty(t, j.DocumentIDs())
	assert.Zero(t, j.Progress().Pending)

	resolved := j.WithDocuments([]string{"doc-1", "doc-2", "doc-3"})
	assert.Equal(t, int64(3), resolved.Progress().Pending)
	assert.Equal(t, []string{"doc-1", "doc-2", "doc-3"}, resolved.DocumentIDs())
}

func TestCompleteChoosesTerminalStatus(t *testing.T) {
	now := time.Now()
	base := NewJob("kb-1", "dom-1", []string{"doc-1", "doc-2"}, CleanupMerge).Start(now)

	completed := base.WithProgress(Progress{Succeeded: 1, Failed: 1}).Complete(now)
	assert.Equal(t, StatusCompleted, completed.Status())
	assert.True(t, completed.Status().Terminal())

	failed := base.WithProgress(Progress{Failed: 2}).Complete(now)
	assert.Equal(t, StatusFailed, failed.Status())

	// A cancel request wins over the outcome tally.
	cancelled := base.WithProgress(Progress{Succeeded: 2}).RequestCancel().Complete(now)
	assert.Equal(t, StatusCancelled, cancelled.Status())

	empty := base.Complete(now)
	assert.Equal(t, StatusCompleted, empty.Status())
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusCancelled.Terminal())
}

func TestCleanupModeValid(t *testing.T) {
	assert.True(t, CleanupReplace.Valid())
	assert.True(t, CleanupAppend.Valid())
	assert.True(t, CleanupMerge.Valid())
	assert.False(t, CleanupMode("purge").Valid())
	assert.False(t, CleanupMode("").Valid())
}

func TestAppendErrorEvictsOldestBeyondCap(t *testing.T) {
	j := NewJob("kb-1", "dom-1", nil, CleanupMerge)
	for i := 0; i < MaxErrorSummaries+3; i++ {
		j = j.AppendError(fmt.Sprintf("doc-%d: boom", i))
	}

	errs := j.ErrorSummaries()
	require.Len(t, errs, MaxErrorSummaries)
	assert.Equal(t, "doc-3: boom", errs[0])
	assert.Equal(t, fmt.Sprintf("doc-%d: boom", MaxErrorSummaries+2), errs[len(errs)-1])
}

func TestETA(t *testing.T) {
	started := time.Now().Add(-time.Minute)
	j := NewJob("kb-1", "dom-1", []string{"a", "b", "c"}, CleanupMerge).Start(started)

	// Nothing done yet, no estimate.
	_, ok := j.ETA(time.Now())
	assert.False(t, ok)

	// One of three done after a minute: two more minutes to go.
	now := started.Add(time.Minute)
	j = j.WithProgress(Progress{Succeeded: 1, Pending: 2})
	eta, ok := j.ETA(now)
	require.True(t, ok)
	assert.WithinDuration(t, now.Add(2*time.Minute), eta, time.Second)

	// Everything done, the ETA is now.
	j = j.WithProgress(Progress{Succeeded: 3})
	eta, ok = j.ETA(now)
	require.True(t, ok)
	assert.Equal(t, now, eta)
}

func TestDocumentIDsReturnsACopy(t *testing.T) {
	j := NewJob("kb-1", "dom-1", []string{"doc-1"}, CleanupMerge)
	ids := j.DocumentIDs()
	ids[0] = "mutated"
	assert.Equal(t, []string{"doc-1"}, j.DocumentIDs())
}
