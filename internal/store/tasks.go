package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/dotcommander/scrum/internal/clock"
	"github.com/dotcommander/scrum/internal/models"
)

// MinPrefixLen is the shortest id or name fragment accepted by prefix lookups.
const MinPrefixLen = 3

// maxAmbiguousSample caps how many conflicting ids an AmbiguousMatchError lists.
const maxAmbiguousSample = 5

// TaskFilter narrows ListAll. Empty fields do not filter; both set means AND.
type TaskFilter struct {
	Status   string
	Priority string
}

// TaskRepo is the repository for the tasks table. Every mutating call
// persists immediately; there is no dirty tracking.
type TaskRepo struct {
	gw    *Gateway
	clock clock.Clock
}

// NewTaskRepo returns a repository over gw. A nil clock means the system clock.
func NewTaskRepo(gw *Gateway, c clock.Clock) *TaskRepo {
	if c == nil {
		c = clock.RealClock{}
	}
	return &TaskRepo{gw: gw, clock: c}
}

func (r *TaskRepo) now() time.Time {
	return r.clock.Now().UTC()
}

// Create returns a new, not yet persisted task with status todo. An empty
// priority means medium.
func (r *TaskRepo) Create(title, description, priority string) (*models.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, &models.ValidationError{Field: "title", Value: title, Reason: "must not be empty"}
	}

	p := models.TaskPriorityMedium
	if priority != "" {
		var err error
		if p, err = models.ParseTaskPriority(priority); err != nil {
			return nil, err
		}
	}

	now := r.now()
	return &models.Task{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Status:      models.TaskStatusTodo,
		Priority:    p,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Save upserts task by id and refreshes its updated_at. created_at is kept
// as first stored.
func (r *TaskRepo) Save(ctx context.Context, task *models.Task) error {
	if err := validateTask(task); err != nil {
		return err
	}

	updated := r.now()
	if err := r.gw.WithConnection(ctx, func(tx *sql.Tx) error {
		return r.saveTx(ctx, tx, task, updated)
	}); err != nil {
		return err
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = updated
	}
	task.UpdatedAt = updated
	return nil
}

// saveTx upserts task inside tx using updated as its new updated_at. The
// in-memory task is not touched.
func (r *TaskRepo) saveTx(ctx context.Context, q Querier, task *models.Task, updated time.Time) error {
	created := task.CreatedAt
	if created.IsZero() {
		created = updated
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO tasks (id, title, description, status, priority, created_at, updated_at, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			status = excluded.status,
			priority = excluded.priority,
			updated_at = excluded.updated_at,
			tags = excluded.tags
	`, task.ID, task.Title, task.Description, string(task.Status), string(task.Priority),
		formatTimestamp(created), formatTimestamp(updated), joinTags(task.Tags))
	if err != nil {
		return unavailable("save task", fmt.Errorf("failed to upsert task %s: %w", task.ID, err))
	}
	return nil
}

func validateTask(task *models.Task) error {
	if task == nil {
		return &models.ValidationError{Field: "task", Value: "<nil>", Reason: "a task is required"}
	}
	if task.ID == "" {
		return &models.ValidationError{Field: "task id", Value: "", Reason: "must not be empty"}
	}
	if strings.TrimSpace(task.Title) == "" {
		return &models.ValidationError{Field: "title", Value: task.Title, Reason: "must not be empty"}
	}
	if _, err := models.ParseTaskStatus(string(task.Status)); err != nil {
		return err
	}
	if _, err := models.ParseTaskPriority(string(task.Priority)); err != nil {
		return err
	}
	return nil
}

// Load retrieves a task by exact id.
func (r *TaskRepo) Load(ctx context.Context, id string) (*models.Task, error) {
	return r.loadQ(ctx, r.gw.db, id)
}

func (r *TaskRepo) loadQ(ctx context.Context, q Querier, id string) (*models.Task, error) {
	row := q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTaskRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.NotFoundError{Entity: "task", Key: id}
	}
	if err != nil {
		return nil, unavailable("load task", fmt.Errorf("failed to query task: %w", err))
	}
	return task, nil
}

// LoadByPrefix resolves a task from the leading characters of its id. The
// prefix must be at least MinPrefixLen characters and match exactly one task.
func (r *TaskRepo) LoadByPrefix(ctx context.Context, prefix string) (*models.Task, error) {
	prefix = strings.TrimSpace(prefix)
	if err := validatePrefix("task id prefix", prefix); err != nil {
		return nil, err
	}

	rows, err := r.gw.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE substr(id, 1, ?) = ?
		ORDER BY id
		LIMIT ?
	`, utf8.RuneCountInString(prefix), prefix, maxAmbiguousSample+1)
	if err != nil {
		return nil, unavailable("load task by prefix", fmt.Errorf("failed to query tasks: %w", err))
	}
	tasks, err := scanTaskRows(rows)
	if err != nil {
		return nil, unavailable("load task by prefix", fmt.Errorf("failed to scan task row: %w", err))
	}

	switch len(tasks) {
	case 0:
		return nil, &models.NotFoundError{Entity: "task", Key: prefix}
	case 1:
		return tasks[0], nil
	}
	ids := make([]string, 0, maxAmbiguousSample)
	for _, t := range tasks {
		if len(ids) == maxAmbiguousSample {
			break
		}
		ids = append(ids, t.ID)
	}
	return nil, &models.AmbiguousMatchError{Entity: "task", Prefix: prefix, Matches: ids}
}

// Resolve loads a task by exact id, falling back to a prefix lookup. This is
// what CLI arguments go through.
func (r *TaskRepo) Resolve(ctx context.Context, idOrPrefix string) (*models.Task, error) {
	task, err := r.Load(ctx, idOrPrefix)
	if err == nil || !errors.Is(err, models.ErrNotFound) {
		return task, err
	}
	return r.LoadByPrefix(ctx, idOrPrefix)
}

func validatePrefix(field, prefix string) error {
	if utf8.RuneCountInString(prefix) < MinPrefixLen {
		return &models.ValidationError{
			Field:  field,
			Value:  prefix,
			Reason: fmt.Sprintf("must be at least %d characters", MinPrefixLen),
		}
	}
	return nil
}

// Search returns tasks whose title or description contains query, ignoring
// case. No match is an empty result, not an error.
func (r *TaskRepo) Search(ctx context.Context, query string) ([]*models.Task, error) {
	all, err := r.ListAll(ctx, TaskFilter{})
	if err != nil {
		return nil, err
	}
	return models.SearchTasks(all, query), nil
}

// ListAll returns all tasks, oldest first, optionally filtered by status
// and/or priority.
func (r *TaskRepo) ListAll(ctx context.Context, filter TaskFilter) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	var args []any

	if filter.Status != "" {
		s, err := models.ParseTaskStatus(filter.Status)
		if err != nil {
			return nil, err
		}
		query += ` AND status = ?`
		args = append(args, string(s))
	}
	if filter.Priority != "" {
		p, err := models.ParseTaskPriority(filter.Priority)
		if err != nil {
			return nil, err
		}
		query += ` AND priority = ?`
		args = append(args, string(p))
	}

	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := r.gw.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("list tasks", fmt.Errorf("failed to query tasks: %w", err))
	}
	tasks, err := scanTaskRows(rows)
	if err != nil {
		return nil, unavailable("list tasks", fmt.Errorf("failed to scan task row: %w", err))
	}
	return tasks, nil
}

// loadManyQ resolves ids in order, silently skipping ids with no task row.
//
//nolint:gocognit // batch loop with inline IIFE for deferred close
func (r *TaskRepo) loadManyQ(ctx context.Context, q Querier, ids []string) ([]*models.Task, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	// SQLite default SQLITE_MAX_VARIABLE_NUMBER is 999
	const batchSize = 500

	byID := make(map[string]*models.Task, len(ids))
	for i := 0; i < len(ids); i += batchSize {
		end := min(i+batchSize, len(ids))
		batch := ids[i:end]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(batch)), ",")
		//nolint:gosec // G202: placeholders contains only '?' and ','
		query := `SELECT ` + taskColumns + ` FROM tasks WHERE id IN (` + placeholders + `)`

		args := make([]any, len(batch))
		for j, id := range batch {
			args[j] = id
		}

		rows, err := q.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, unavailable("resolve tasks", fmt.Errorf("failed to query task batch: %w", err))
		}
		tasks, err := scanTaskRows(rows)
		if err != nil {
			return nil, unavailable("resolve tasks", fmt.Errorf("failed to scan task batch: %w", err))
		}
		for _, t := range tasks {
			byID[t.ID] = t
		}
	}

	out := make([]*models.Task, 0, len(byID))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// SetStatus validates, assigns and persists a new status. On failure the
// task keeps its previous status.
func (r *TaskRepo) SetStatus(ctx context.Context, task *models.Task, status string) error {
	s, err := models.ParseTaskStatus(status)
	if err != nil {
		return err
	}
	if task == nil {
		return validateTask(task)
	}
	prev := task.Status
	task.Status = s
	if err := r.Save(ctx, task); err != nil {
		task.Status = prev
		return err
	}
	return nil
}

// SetPriority validates, assigns and persists a new priority. On failure the
// task keeps its previous priority.
func (r *TaskRepo) SetPriority(ctx context.Context, task *models.Task, priority string) error {
	p, err := models.ParseTaskPriority(priority)
	if err != nil {
		return err
	}
	if task == nil {
		return validateTask(task)
	}
	prev := task.Priority
	task.Priority = p
	if err := r.Save(ctx, task); err != nil {
		task.Priority = prev
		return err
	}
	return nil
}

// ToggleStatus advances todo → in_progress → done → todo and persists.
func (r *TaskRepo) ToggleStatus(ctx context.Context, task *models.Task) (*models.Task, error) {
	if task == nil {
		return nil, validateTask(task)
	}
	if err := r.SetStatus(ctx, task, string(task.Status.Next())); err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateDescription replaces the description and persists.
func (r *TaskRepo) UpdateDescription(ctx context.Context, task *models.Task, description string) error {
	if task == nil {
		return validateTask(task)
	}
	prev := task.Description
	task.Description = description
	if err := r.Save(ctx, task); err != nil {
		task.Description = prev
		return err
	}
	return nil
}

// UpdateTitle replaces the title and persists. Blank titles are rejected.
func (r *TaskRepo) UpdateTitle(ctx context.Context, task *models.Task, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return &models.ValidationError{Field: "title", Value: title, Reason: "must not be empty"}
	}
	if task == nil {
		return validateTask(task)
	}
	prev := task.Title
	task.Title = title
	if err := r.Save(ctx, task); err != nil {
		task.Title = prev
		return err
	}
	return nil
}

// SetTags replaces the tag set and persists.
func (r *TaskRepo) SetTags(ctx context.Context, task *models.Task, tags []string) error {
	if task == nil {
		return validateTask(task)
	}
	prev := task.Tags
	task.Tags = models.NormalizeTags(tags)
	if err := r.Save(ctx, task); err != nil {
		task.Tags = prev
		return err
	}
	return nil
}

// AgeInDays is the time since task creation in fractional days.
func (r *TaskRepo) AgeInDays(task *models.Task) float64 {
	return task.Age(r.clock.Now()).Hours() / 24
}

// AgeInSeconds is the time since task creation in fractional seconds.
func (r *TaskRepo) AgeInSeconds(task *models.Task) float64 {
	return task.Age(r.clock.Now()).Seconds()
}

// Delete removes a task and every backlog, sprint and comment row that
// references it.
func (r *TaskRepo) Delete(ctx context.Context, id string) error {
	return r.gw.WithConnection(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
		if err != nil {
			return unavailable("delete task", fmt.Errorf("failed to delete task: %w", err))
		}
		ra, err := result.RowsAffected()
		if err != nil {
			return unavailable("delete task", fmt.Errorf("failed to check rows affected: %w", err))
		}
		if ra == 0 {
			return &models.NotFoundError{Entity: "task", Key: id}
		}
		return deleteTaskReferencesTx(ctx, tx, `WHERE task_id = ?`, id)
	})
}

// ClearAll removes every task along with all memberships and comments.
func (r *TaskRepo) ClearAll(ctx context.Context) error {
	return r.gw.WithConnection(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
			return unavailable("clear tasks", fmt.Errorf("failed to delete tasks: %w", err))
		}
		return deleteTaskReferencesTx(ctx, tx, "")
	})
}

func deleteTaskReferencesTx(ctx context.Context, tx *sql.Tx, where string, args ...any) error {
	for _, table := range []string{"backlog_tasks", "sprint_tasks", "task_comments"} {
		//nolint:gosec // G202: table and where come from fixed literals
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` `+where, args...); err != nil {
			return unavailable("delete task references", fmt.Errorf("failed to clean %s: %w", table, err))
		}
	}
	return nil
}
