package worker

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inquira/kgraph/domain/repository"
	"github.com/inquira/kgraph/domain/task"
	"github.com/inquira/kgraph/internal/database"
)

// memTaskStore is an in-memory task.Store with claim semantics.
type memTaskStore struct {
	mu      sync.Mutex
	tasks   map[int64]task.Task
	claimed map[int64]bool
	nextID  int64

	releases int
	deletes  int
}

func newMemTaskStore() *memTaskStore {
	return &memTaskStore{
		tasks:   make(map[int64]task.Task),
		claimed: make(map[int64]bool),
	}
}

func (s *memTaskStore) Get(ctx context.Context, id int64) (task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return task.Task{}, database.ErrNotFound
	}
	return t, nil
}

func (s *memTaskStore) FindPending(ctx context.Context, options ...repository.Option) ([]task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []task.Task
	for _, t := range s.tasks {
		out = append(out, t)
	}
	return out, nil
}

func (s *memTaskStore) Save(ctx context.Context, t task.Task) (task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, have := range s.tasks {
		if have.DedupKey() == t.DedupKey() {
			return have, nil
		}
	}
	s.nextID++
	t = t.WithID(s.nextID)
	s.tasks[t.ID()] = t
	return t, nil
}

func (s *memTaskStore) SaveBulk(ctx context.Context, tasks []task.Task) ([]task.Task, error) {
	out := make([]task.Task, 0, len(tasks))
	for _, t := range tasks {
		saved, err := s.Save(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, saved)
	}
	return out, nil
}

func (s *memTaskStore) Delete(ctx context.Context, t task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	delete(s.tasks, t.ID())
	delete(s.claimed, t.ID())
	return nil
}

func (s *memTaskStore) CountPending(ctx context.Context, options ...repository.Option) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.tasks)), nil
}

func (s *memTaskStore) Dequeue(ctx context.Context, operations ...task.Operation) (task.Task, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best task.Task
	found := false
	for _, t := range s.tasks {
		if s.claimed[t.ID()] {
			continue
		}
		if len(operations) > 0 && !slices.Contains(operations, t.Operation()) {
			continue
		}
		if !found || t.Priority() > best.Priority() {
			best = t
			found = true
		}
	}
	if !found {
		return task.Task{}, false, nil
	}
	s.claimed[best.ID()] = true
	return best, true, nil
}

func (s *memTaskStore) Release(ctx context.Context, t task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releases++
	delete(s.claimed, t.ID())
	return nil
}

func (s *memTaskStore) isClaimed(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.claimed[id]
}

func enqueue(t *testing.T, store *memTaskStore, op task.Operation, payload map[string]any) task.Task {
	t.Helper()
	saved, err := store.Save(context.Background(), task.NewTask(op, task.PriorityNormal, payload))
	require.NoError(t, err)
	return saved
}

func TestPoolRequiresHandlers(t *testing.T) {
	pool := NewPool(newMemTaskStore(), 1, time.Millisecond, nil)
	assert.Error(t, pool.Run(context.Background()))
}

func TestPoolAcknowledgesOnSuccess(t *testing.T) {
	store := newMemTaskStore()
	enqueue(t, store, task.OperationExtractDocument, map[string]any{"document_id": "doc-1"})

	ctx, cancel := context.WithCancel(context.Background())
	var handled []string
	pool := NewPool(store, 1, time.Millisecond, nil)
	pool.Register(task.OperationExtractDocument, HandlerFunc(func(ctx context.Context, tk task.Task) error {
		id, _ := tk.PayloadString("document_id")
		handled = append(handled, id)
		cancel()
		return nil
	}))

	require.NoError(t, pool.Run(ctx))
	assert.Equal(t, []string{"doc-1"}, handled)

	// Success acknowledges the task out of the queue.
	count, err := store.CountPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestPoolReleasesOnYield(t *testing.T) {
	store := newMemTaskStore()
	queued := enqueue(t, store, task.OperationReextractBatch, map[string]any{"job_id": "job-1"})

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	pool := NewPool(store, 1, time.Millisecond, nil)
	pool.Register(task.OperationReextractBatch, HandlerFunc(func(ctx context.Context, tk task.Task) error {
		calls++
		if calls == 2 {
			cancel()
			return nil
		}
		return ErrYield
	}))

	require.NoError(t, pool.Run(ctx))

	// The yield released the claim so the same task was redelivered
	// immediately instead of waiting out a lease.
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, store.releases)
	_, err := store.Get(context.Background(), queued.ID())
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestPoolLeavesClaimOnFailure(t *testing.T) {
	store := newMemTaskStore()
	queued := enqueue(t, store, task.OperationExtractDocument, map[string]any{"document_id": "doc-1"})

	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(store, 1, time.Millisecond, nil)
	pool.Register(task.OperationExtractDocument, HandlerFunc(func(ctx context.Context, tk task.Task) error {
		cancel()
		return errors.New("model unavailable")
	}))

	require.NoError(t, pool.Run(ctx))

	// Neither acknowledged nor released: the claim is left to expire so the
	// retry happens after the lease.
	assert.True(t, store.isClaimed(queued.ID()))
	assert.Zero(t, store.releases)
	count, err := store.CountPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestPoolOnlyDequeuesRegisteredOperations(t *testing.T) {
	store := newMemTaskStore()
	enqueue(t, store, task.OperationReextractBatch, map[string]any{"job_id": "job-1"})
	enqueue(t, store, task.OperationExtractDocument, map[string]any{"document_id": "doc-1"})

	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(store, 1, time.Millisecond, nil)
	pool.Register(task.OperationExtractDocument, HandlerFunc(func(ctx context.Context, tk task.Task) error {
		assert.Equal(t, task.OperationExtractDocument, tk.Operation())
		cancel()
		return nil
	}))

	require.NoError(t, pool.Run(ctx))

	// The batch task is untouched.
	count, err := store.CountPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
