// Package worker runs the task queue consumers: polling workers that claim
// tasks, dispatch them to operation handlers and acknowledge on success.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/inquira/kgraph/domain/task"
	"github.com/inquira/kgraph/internal/log"
)

// ErrYield signals that a handler gave the task up on purpose, to be picked
// up again immediately. Used by the batch runner when a job hits its soft
// time limit.
var ErrYield = errors.New("task yielded")

// Handler processes one task. Returning nil acknowledges the task; ErrYield
// releases it for immediate redelivery; any other error leaves the claim to
// expire so the task retries after the lease.
type Handler interface {
	Handle(ctx context.Context, t task.Task) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, t task.Task) error

// Handle calls the function.
func (f HandlerFunc) Handle(ctx context.Context, t task.Task) error {
	return f(ctx, t)
}

// Pool is a set of identical polling workers sharing one operation filter.
// Extraction tasks and batch jobs run in separate pools so a long batch run
// never starves document extraction.
type Pool struct {
	tasks        task.Store
	handlers     map[task.Operation]Handler
	operations   []task.Operation
	size         int
	pollInterval time.Duration
	logger       *log.Logger
}

// NewPool creates a Pool of size workers handling the registered operations.
func NewPool(tasks task.Store, size int, pollInterval time.Duration, logger *log.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Pool{
		tasks:        tasks,
		handlers:     make(map[task.Operation]Handler),
		size:         size,
		pollInterval: pollInterval,
		logger:       logger.With("component", "worker"),
	}
}

// Register adds a handler for an operation. The pool only dequeues
// operations it has handlers for.
func (p *Pool) Register(op task.Operation, h Handler) {
	p.handlers[op] = h
	p.operations = append(p.operations, op)
}

// Run blocks processing tasks until the context is cancelled. Returns nil on
// a clean shutdown.
func (p *Pool) Run(ctx context.Context) error {
	if len(p.operations) == 0 {
		return errors.New("no handlers registered")
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.size; i++ {
		id := i
		g.Go(func() error {
			return p.runWorker(ctx, id)
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (p *Pool) runWorker(ctx context.Context, id int) error {
	logger := p.logger.With("worker", id)
	logger.Info("worker started", "operations", len(p.operations))

	for {
		if err := ctx.Err(); err != nil {
			logger.Info("worker stopped")
			return err
		}

		worked, err := p.tick(ctx)
		if err != nil {
			logger.Error("worker tick failed", "error", err)
		}
		if worked {
			continue
		}

		select {
		case <-ctx.Done():
			logger.Info("worker stopped")
			return ctx.Err()
		case <-time.After(p.pollInterval):
		}
	}
}

// tick claims and runs one task. Returns whether a task was processed.
func (p *Pool) tick(ctx context.Context) (bool, error) {
	t, ok, err := p.tasks.Dequeue(ctx, p.operations...)
	if err != nil {
		return false, fmt.Errorf("dequeue: %w", err)
	}
	if !ok {
		return false, nil
	}

	handler, ok := p.handlers[t.Operation()]
	if !ok {
		// Cannot happen given the dequeue filter, but a stale claim on an
		// unknown operation must not wedge the queue.
		p.logger.Warn("no handler for operation", "operation", t.Operation())
		return true, p.tasks.Delete(ctx, t)
	}

	start := time.Now()
	err = handler.Handle(ctx, t)
	switch {
	case err == nil:
		p.logger.DebugContext(ctx, "task completed",
			"task_id", t.ID(), "operation", t.Operation(), "duration", time.Since(start))
		if err := p.tasks.Delete(ctx, t); err != nil {
			return true, fmt.Errorf("acknowledge task %d: %w", t.ID(), err)
		}
		return true, nil

	case errors.Is(err, ErrYield):
		p.logger.InfoContext(ctx, "task yielded",
			"task_id", t.ID(), "operation", t.Operation())
		if err := p.tasks.Release(ctx, t); err != nil {
			return true, fmt.Errorf("release task %d: %w", t.ID(), err)
		}
		return true, nil

	default:
		// The claim is left to expire, so the retry happens after the lease
		// instead of hot-looping on a persistent failure.
		p.logger.ErrorContext(ctx, "task failed",
			"task_id", t.ID(), "operation", t.Operation(), "error", err)
		return true, nil
	}
}
