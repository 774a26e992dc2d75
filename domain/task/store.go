package task

import (
	"context"

	"github.com/inquira/kgraph/domain/repository"
)

// Store defines the interface for Task persistence operations.
type Store interface {
	// Get retrieves a task by ID.
	Get(ctx context.Context, id int64) (Task, error)

	// FindPending retrieves pending tasks ordered by priority.
	FindPending(ctx context.Context, options ...repository.Option) ([]Task, error)

	// Save creates a new task or updates an existing one. Uses dedup_key for
	// conflict resolution: if a task with the same dedup_key exists, it is
	// returned instead of creating a duplicate.
	Save(ctx context.Context, t Task) (Task, error)

	// SaveBulk creates or updates multiple tasks.
	SaveBulk(ctx context.Context, tasks []Task) ([]Task, error)

	// Delete removes a task. Called only after its handler succeeds
	// (late acknowledgment).
	Delete(ctx context.Context, t Task) error

	// CountPending returns the number of pending tasks.
	CountPending(ctx context.Context, options ...repository.Option) (int64, error)

	// Dequeue claims the highest priority pending task, restricted to the
	// given operations when any are supplied. A claimed task stays in the
	// queue until Delete acknowledges it; claims older than the store's
	// lease expire and the task is redelivered. Returns zero-value and
	// false when nothing matches.
	Dequeue(ctx context.Context, operations ...Operation) (Task, bool, error)

	// Release clears a task's claim so it is immediately redeliverable,
	// without waiting for the lease to expire. Used when a handler yields
	// a task on purpose rather than failing it.
	Release(ctx context.Context, t Task) error
}
