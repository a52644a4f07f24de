package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dotcommander/scrum/internal/models"
)

// BacklogRepo persists the single backlog as an ordered set of task ids.
type BacklogRepo struct {
	gw    *Gateway
	tasks *TaskRepo
}

// NewBacklogRepo returns a backlog repository that saves and resolves tasks
// through tasks.
func NewBacklogRepo(gw *Gateway, tasks *TaskRepo) *BacklogRepo {
	return &BacklogRepo{gw: gw, tasks: tasks}
}

// Load returns the backlog in insertion order. Ids with no task row are
// skipped. A store failure is logged and yields an empty backlog so callers
// always get something to render.
func (r *BacklogRepo) Load(ctx context.Context) *models.Backlog {
	b, err := r.LoadStrict(ctx)
	if err != nil {
		r.gw.logger.Warn("backlog load failed, using empty backlog", "error", err.Error())
		return &models.Backlog{}
	}
	return b
}

// LoadStrict is Load without the empty fallback.
func (r *BacklogRepo) LoadStrict(ctx context.Context) (*models.Backlog, error) {
	ids, err := queryStringColumn(ctx, r.gw.db, `SELECT task_id FROM backlog_tasks ORDER BY rowid`)
	if err != nil {
		return nil, unavailable("load backlog", fmt.Errorf("failed to query backlog: %w", err))
	}
	tasks, err := r.tasks.loadManyQ(ctx, r.gw.db, ids)
	if err != nil {
		return nil, err
	}
	if skipped := len(ids) - len(tasks); skipped > 0 {
		r.gw.logger.Debug("backlog references missing tasks", "skipped", skipped)
	}
	return &models.Backlog{Tasks: tasks}, nil
}

// AddTask saves task and records its membership in one transaction. Adding
// a task that is already a member changes nothing.
func (r *BacklogRepo) AddTask(ctx context.Context, b *models.Backlog, task *models.Task) error {
	if task == nil {
		return &models.ValidationError{Field: "task", Value: "<nil>", Reason: "a task is required"}
	}
	if b.Has(task.ID) {
		return nil
	}
	if err := validateTask(task); err != nil {
		return err
	}

	updated := r.tasks.now()
	if err := r.gw.WithConnection(ctx, func(tx *sql.Tx) error {
		if err := r.tasks.saveTx(ctx, tx, task, updated); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO backlog_tasks (task_id) VALUES (?)`, task.ID); err != nil {
			return unavailable("add backlog task", fmt.Errorf("failed to insert membership: %w", err))
		}
		return nil
	}); err != nil {
		return err
	}

	if task.CreatedAt.IsZero() {
		task.CreatedAt = updated
	}
	task.UpdatedAt = updated
	b.Append(task)
	return nil
}

// RemoveTask drops the membership of id. The task row itself stays.
func (r *BacklogRepo) RemoveTask(ctx context.Context, b *models.Backlog, id string) error {
	if !b.Has(id) {
		return &models.NotFoundError{Entity: "backlog task", Key: id}
	}
	if err := r.gw.WithConnection(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM backlog_tasks WHERE task_id = ?`, id); err != nil {
			return unavailable("remove backlog task", fmt.Errorf("failed to delete membership: %w", err))
		}
		return nil
	}); err != nil {
		return err
	}
	b.Remove(id)
	return nil
}

// Contains reports whether id is a persisted backlog member.
func (r *BacklogRepo) Contains(ctx context.Context, id string) (bool, error) {
	var one int
	err := r.gw.db.QueryRowContext(ctx, `SELECT 1 FROM backlog_tasks WHERE task_id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, unavailable("check backlog", err)
	}
	return true, nil
}

// Clear removes every membership and empties b. Tasks are kept.
func (r *BacklogRepo) Clear(ctx context.Context, b *models.Backlog) error {
	if err := r.gw.WithConnection(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM backlog_tasks`); err != nil {
			return unavailable("clear backlog", fmt.Errorf("failed to delete memberships: %w", err))
		}
		return nil
	}); err != nil {
		return err
	}
	if b != nil {
		b.Reset()
	}
	return nil
}
