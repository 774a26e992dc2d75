package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/inquira/kgraph/domain/repository"
	"github.com/inquira/kgraph/domain/task"
	"github.com/inquira/kgraph/internal/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// claimLease is how long a dequeued task stays claimed before it is
// considered abandoned and redelivered to another worker.
const claimLease = 10 * time.Minute

// TaskStore implements task.Store using GORM with late acknowledgment:
// Dequeue claims a task by stamping claimed_at, Delete acknowledges it after
// the handler succeeds, and expired claims are redelivered.
type TaskStore struct {
	db     database.Database
	mapper TaskMapper
}

// NewTaskStore creates a new TaskStore.
func NewTaskStore(db database.Database) TaskStore {
	return TaskStore{db: db, mapper: TaskMapper{}}
}

// Get retrieves a task by ID.
func (s TaskStore) Get(ctx context.Context, id int64) (task.Task, error) {
	var model TaskModel
	result := s.db.Session(ctx).Where("id = ?", id).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return task.Task{}, fmt.Errorf("%w: task id %d", database.ErrNotFound, id)
		}
		return task.Task{}, fmt.Errorf("get task: %w", result.Error)
	}
	return s.mapper.ToDomain(model), nil
}

// FindPending retrieves pending tasks ordered by priority.
func (s TaskStore) FindPending(ctx context.Context, options ...repository.Option) ([]task.Task, error) {
	var models []TaskModel
	db := s.db.Session(ctx).Order("priority DESC, created_at ASC")
	db = database.ApplyOptions(db, options...)
	if result := db.Find(&models); result.Error != nil {
		return nil, fmt.Errorf("find pending tasks: %w", result.Error)
	}

	tasks := make([]task.Task, len(models))
	for i, model := range models {
		tasks[i] = s.mapper.ToDomain(model)
	}
	return tasks, nil
}

// Save creates a new task or updates an existing one. Uses dedup_key for
// conflict resolution.
func (s TaskStore) Save(ctx context.Context, t task.Task) (task.Task, error) {
	model := s.mapper.ToModel(t)

	result := s.db.Session(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dedup_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"priority", "updated_at"}),
	}).Create(&model)
	if result.Error != nil {
		return task.Task{}, fmt.Errorf("save task: %w", result.Error)
	}
	return s.mapper.ToDomain(model), nil
}

// SaveBulk creates or updates multiple tasks.
func (s TaskStore) SaveBulk(ctx context.Context, tasks []task.Task) ([]task.Task, error) {
	if len(tasks) == 0 {
		return []task.Task{}, nil
	}

	models := make([]TaskModel, len(tasks))
	for i, t := range tasks {
		models[i] = s.mapper.ToModel(t)
	}

	result := s.db.Session(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dedup_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"priority", "updated_at"}),
	}).Create(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("save tasks bulk: %w", result.Error)
	}

	saved := make([]task.Task, len(models))
	for i, model := range models {
		saved[i] = s.mapper.ToDomain(model)
	}
	return saved, nil
}

// Delete acknowledges a completed task by removing it.
func (s TaskStore) Delete(ctx context.Context, t task.Task) error {
	result := s.db.Session(ctx).Delete(&TaskModel{}, t.ID())
	if result.Error != nil {
		return fmt.Errorf("delete task: %w", result.Error)
	}
	return nil
}

// Release clears a task's claim so it is immediately redeliverable.
func (s TaskStore) Release(ctx context.Context, t task.Task) error {
	result := s.db.Session(ctx).Model(&TaskModel{}).
		Where("id = ?", t.ID()).
		Update("claimed_at", nil)
	if result.Error != nil {
		return fmt.Errorf("release task: %w", result.Error)
	}
	return nil
}

// CountPending returns the number of pending tasks.
func (s TaskStore) CountPending(ctx context.Context, options ...repository.Option) (int64, error) {
	var count int64
	db := database.ApplyConditions(s.db.Session(ctx).Model(&TaskModel{}), options...)
	if result := db.Count(&count); result.Error != nil {
		return 0, fmt.Errorf("count pending tasks: %w", result.Error)
	}
	return count, nil
}

// Dequeue claims the highest priority unclaimed task, restricted to the
// given operations when any are supplied. A worker crash leaves the claim to
// expire, after which the task is redelivered.
func (s TaskStore) Dequeue(ctx context.Context, operations ...task.Operation) (task.Task, bool, error) {
	var model TaskModel

	err := s.db.Session(ctx).Transaction(func(tx *gorm.DB) error {
		cutoff := time.Now().Add(-claimLease)
		db := tx.Where("claimed_at IS NULL OR claimed_at < ?", cutoff)
		if s.db.IsPostgres() {
			// Row locking keeps concurrent workers off the same task;
			// skipping locked rows lets them claim the next one instead.
			db = db.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		if len(operations) > 0 {
			types := make([]string, len(operations))
			for i, op := range operations {
				types[i] = op.String()
			}
			db = db.Where("type IN ?", types)
		}

		result := db.Order("priority DESC, created_at ASC").First(&model)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return nil
			}
			return result.Error
		}

		now := time.Now()
		return tx.Model(&TaskModel{}).
			Where("id = ?", model.ID).
			Update("claimed_at", &now).Error
	})
	if err != nil {
		return task.Task{}, false, fmt.Errorf("dequeue task: %w", err)
	}
	if model.ID == 0 {
		return task.Task{}, false, nil
	}
	return s.mapper.ToDomain(model), true, nil
}
