package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dotcommander/scrum/internal/models"
)

// SprintRepo persists sprints and their task memberships. Sprints are keyed
// by name.
type SprintRepo struct {
	gw    *Gateway
	tasks *TaskRepo
}

// NewSprintRepo returns a sprint repository that saves and resolves member
// tasks through tasks.
func NewSprintRepo(gw *Gateway, tasks *TaskRepo) *SprintRepo {
	return &SprintRepo{gw: gw, tasks: tasks}
}

// Create returns a new Planned sprint. It is not persisted.
func (r *SprintRepo) Create(name string) (*models.Sprint, error) {
	return models.NewSprint(name, r.tasks.now())
}

// Save upserts the sprint row and records every in-memory member. Stale
// membership rows are left alone.
func (r *SprintRepo) Save(ctx context.Context, s *models.Sprint) error {
	if err := validateSprint(s); err != nil {
		return err
	}
	now := r.tasks.now()
	return r.gw.WithConnection(ctx, func(tx *sql.Tx) error {
		if err := upsertSprintTx(ctx, tx, s, now); err != nil {
			return err
		}
		for _, t := range s.Tasks {
			if err := insertMembershipTx(ctx, tx, s.Name, t.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

func validateSprint(s *models.Sprint) error {
	if err := validateSprintName(s); err != nil {
		return err
	}
	if _, err := models.ParseSprintStatus(string(s.Status)); err != nil {
		return err
	}
	return nil
}

// validateSprintName checks everything but the status, so a row loaded with
// an unknown status can still be moved to a valid one.
func validateSprintName(s *models.Sprint) error {
	if s == nil {
		return &models.ValidationError{Field: "sprint", Value: "<nil>", Reason: "a sprint is required"}
	}
	_, err := models.NormalizeSprintName(s.Name)
	return err
}

// upsertSprintTx writes the sprint row. now stands in for a zero CreatedAt.
func upsertSprintTx(ctx context.Context, q Querier, s *models.Sprint, now time.Time) error {
	created := s.CreatedAt
	if created.IsZero() {
		created = now
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO sprints (name, status, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET status = excluded.status
	`, s.Name, string(s.Status), formatTimestamp(created))
	if err != nil {
		return unavailable("save sprint", fmt.Errorf("failed to upsert sprint %q: %w", s.Name, err))
	}
	return nil
}

func insertMembershipTx(ctx context.Context, q Querier, sprintName, taskID string) error {
	_, err := q.ExecContext(ctx, `INSERT OR IGNORE INTO sprint_tasks (sprint_name, task_id) VALUES (?, ?)`, sprintName, taskID)
	if err != nil {
		return unavailable("save sprint membership", fmt.Errorf("failed to insert membership: %w", err))
	}
	return nil
}

// AddTask saves task, upserts the sprint row and records the membership in
// one transaction. A task that is already a member is left untouched.
func (r *SprintRepo) AddTask(ctx context.Context, s *models.Sprint, task *models.Task) error {
	if task == nil {
		return &models.ValidationError{Field: "task", Value: "<nil>", Reason: "a task is required"}
	}
	if err := validateSprint(s); err != nil {
		return err
	}
	if s.HasTask(task.ID) {
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
		if err := upsertSprintTx(ctx, tx, s, updated); err != nil {
			return err
		}
		return insertMembershipTx(ctx, tx, s.Name, task.ID)
	}); err != nil {
		return err
	}

	if task.CreatedAt.IsZero() {
		task.CreatedAt = updated
	}
	task.UpdatedAt = updated
	s.Append(task)
	return nil
}

// MoveFromBacklog adds a backlog member to s and drops its backlog
// membership in one transaction. On failure neither b nor s changes, in
// memory or on disk.
func (r *SprintRepo) MoveFromBacklog(ctx context.Context, b *models.Backlog, s *models.Sprint, id string) (*models.Task, error) {
	if b == nil {
		return nil, &models.ValidationError{Field: "backlog", Value: "<nil>", Reason: "a backlog is required"}
	}
	if err := validateSprint(s); err != nil {
		return nil, err
	}
	task, err := b.GetTask(id)
	if err != nil {
		return nil, err
	}
	if err := validateTask(task); err != nil {
		return nil, err
	}

	updated := r.tasks.now()
	if err := r.gw.WithConnection(ctx, func(tx *sql.Tx) error {
		if err := r.tasks.saveTx(ctx, tx, task, updated); err != nil {
			return err
		}
		if err := upsertSprintTx(ctx, tx, s, updated); err != nil {
			return err
		}
		if err := insertMembershipTx(ctx, tx, s.Name, task.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM backlog_tasks WHERE task_id = ?`, task.ID); err != nil {
			return unavailable("move task", fmt.Errorf("failed to delete backlog membership: %w", err))
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if task.CreatedAt.IsZero() {
		task.CreatedAt = updated
	}
	task.UpdatedAt = updated
	s.Append(task)
	b.Remove(task.ID)
	return task, nil
}

// RemoveTask drops the membership of id. The task row itself stays.
func (r *SprintRepo) RemoveTask(ctx context.Context, s *models.Sprint, id string) error {
	if !s.HasTask(id) {
		return &models.NotFoundError{Entity: "sprint task", Key: id}
	}
	if err := r.gw.WithConnection(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sprint_tasks WHERE sprint_name = ? AND task_id = ?`, s.Name, id); err != nil {
			return unavailable("remove sprint task", fmt.Errorf("failed to delete membership: %w", err))
		}
		return nil
	}); err != nil {
		return err
	}
	s.Remove(id)
	return nil
}

// SetStatus assigns any valid status and persists the row.
func (r *SprintRepo) SetStatus(ctx context.Context, s *models.Sprint, status string) error {
	return r.transition(ctx, s, func() error { return s.SetStatus(status) })
}

// Start moves a Planned sprint to In Progress and persists it.
func (r *SprintRepo) Start(ctx context.Context, s *models.Sprint) error {
	return r.transition(ctx, s, s.Start)
}

// Complete moves an In Progress sprint to Completed and persists it.
func (r *SprintRepo) Complete(ctx context.Context, s *models.Sprint) error {
	return r.transition(ctx, s, s.Complete)
}

// Archive marks the sprint Archived and persists it.
func (r *SprintRepo) Archive(ctx context.Context, s *models.Sprint) error {
	return r.transition(ctx, s, func() error {
		s.Archive()
		return nil
	})
}

// transition applies apply in memory then persists the sprint row. The old
// status is restored if persisting fails.
func (r *SprintRepo) transition(ctx context.Context, s *models.Sprint, apply func() error) error {
	if err := validateSprintName(s); err != nil {
		return err
	}
	prev := s.Status
	if err := apply(); err != nil {
		return err
	}
	now := r.tasks.now()
	if err := r.gw.WithConnection(ctx, func(tx *sql.Tx) error {
		return upsertSprintTx(ctx, tx, s, now)
	}); err != nil {
		s.Status = prev
		return err
	}
	return nil
}

// Rename changes the sprint's name along with every membership row in one
// transaction. The in-memory name changes only after commit.
func (r *SprintRepo) Rename(ctx context.Context, s *models.Sprint, newName string) error {
	if err := validateSprint(s); err != nil {
		return err
	}
	name, err := models.NormalizeSprintName(newName)
	if err != nil {
		return err
	}
	if name == s.Name {
		return nil
	}

	if err := r.gw.WithConnection(ctx, func(tx *sql.Tx) error {
		var taken int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM sprints WHERE name = ?`, name).Scan(&taken)
		if err != nil {
			return unavailable("rename sprint", fmt.Errorf("failed to check name: %w", err))
		}
		if taken > 0 {
			return &models.ValidationError{Field: "sprint name", Value: name, Reason: "already in use"}
		}

		result, err := tx.ExecContext(ctx, `UPDATE sprints SET name = ? WHERE name = ?`, name, s.Name)
		if isConstraintError(err) {
			return &models.ValidationError{Field: "sprint name", Value: name, Reason: "already in use"}
		}
		if err != nil {
			return unavailable("rename sprint", fmt.Errorf("failed to update sprint: %w", err))
		}
		ra, err := result.RowsAffected()
		if err != nil {
			return unavailable("rename sprint", fmt.Errorf("failed to check rows affected: %w", err))
		}
		if ra == 0 {
			return &models.NotFoundError{Entity: "sprint", Key: s.Name}
		}

		if _, err := tx.ExecContext(ctx, `UPDATE sprint_tasks SET sprint_name = ? WHERE sprint_name = ?`, name, s.Name); err != nil {
			return unavailable("rename sprint", fmt.Errorf("failed to move memberships: %w", err))
		}
		return nil
	}); err != nil {
		return err
	}

	s.Name = name
	return nil
}

// LoadByName loads a sprint with its members. Member ids with no task row
// are skipped.
func (r *SprintRepo) LoadByName(ctx context.Context, name string) (*models.Sprint, error) {
	name = strings.TrimSpace(name)
	row := r.gw.db.QueryRowContext(ctx, `SELECT name, status, created_at FROM sprints WHERE name = ?`, name)
	s, err := scanSprintRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.NotFoundError{Entity: "sprint", Key: name}
	}
	if err != nil {
		return nil, unavailable("load sprint", fmt.Errorf("failed to query sprint: %w", err))
	}
	if err := r.loadMembers(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadByNamePrefix resolves a sprint from the leading characters of its name,
// with the same rules as TaskRepo.LoadByPrefix.
func (r *SprintRepo) LoadByNamePrefix(ctx context.Context, prefix string) (*models.Sprint, error) {
	prefix = strings.TrimSpace(prefix)
	if err := validatePrefix("sprint name prefix", prefix); err != nil {
		return nil, err
	}

	names, err := queryStringColumn(ctx, r.gw.db, `
		SELECT name FROM sprints
		WHERE substr(name, 1, ?) = ?
		ORDER BY name
		LIMIT ?
	`, utf8.RuneCountInString(prefix), prefix, maxAmbiguousSample+1)
	if err != nil {
		return nil, unavailable("load sprint by prefix", fmt.Errorf("failed to query sprints: %w", err))
	}

	switch len(names) {
	case 0:
		return nil, &models.NotFoundError{Entity: "sprint", Key: prefix}
	case 1:
		return r.LoadByName(ctx, names[0])
	}
	if len(names) > maxAmbiguousSample {
		names = names[:maxAmbiguousSample]
	}
	return nil, &models.AmbiguousMatchError{Entity: "sprint", Prefix: prefix, Matches: names}
}

// Resolve loads a sprint by exact name, falling back to a prefix lookup.
func (r *SprintRepo) Resolve(ctx context.Context, nameOrPrefix string) (*models.Sprint, error) {
	s, err := r.LoadByName(ctx, nameOrPrefix)
	if err == nil || !errors.Is(err, models.ErrNotFound) {
		return s, err
	}
	return r.LoadByNamePrefix(ctx, nameOrPrefix)
}

// Exists reports whether a sprint row with name is stored.
func (r *SprintRepo) Exists(ctx context.Context, name string) (bool, error) {
	var n int
	if err := r.gw.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sprints WHERE name = ?`, strings.TrimSpace(name)).Scan(&n); err != nil {
		return false, unavailable("check sprint", err)
	}
	return n > 0, nil
}

// ListAll returns every sprint with its members, oldest first.
func (r *SprintRepo) ListAll(ctx context.Context) ([]*models.Sprint, error) {
	rows, err := r.gw.db.QueryContext(ctx, `
		SELECT name, status, created_at FROM sprints
		WHERE name IS NOT NULL
		ORDER BY created_at ASC, name ASC
	`)
	if err != nil {
		return nil, unavailable("list sprints", fmt.Errorf("failed to query sprints: %w", err))
	}

	var sprints []*models.Sprint
	err = func() error {
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			s, scanErr := scanSprintRow(rows)
			if scanErr != nil {
				return scanErr
			}
			sprints = append(sprints, s)
		}
		return rows.Err()
	}()
	if err != nil {
		return nil, unavailable("list sprints", fmt.Errorf("failed to scan sprint row: %w", err))
	}

	for _, s := range sprints {
		if err := r.loadMembers(ctx, s); err != nil {
			return nil, err
		}
	}
	return sprints, nil
}

// Delete removes the sprint row and its memberships. Member tasks are kept.
func (r *SprintRepo) Delete(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	return r.gw.WithConnection(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM sprints WHERE name = ?`, name)
		if err != nil {
			return unavailable("delete sprint", fmt.Errorf("failed to delete sprint: %w", err))
		}
		ra, err := result.RowsAffected()
		if err != nil {
			return unavailable("delete sprint", fmt.Errorf("failed to check rows affected: %w", err))
		}
		if ra == 0 {
			return &models.NotFoundError{Entity: "sprint", Key: name}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM sprint_tasks WHERE sprint_name = ?`, name); err != nil {
			return unavailable("delete sprint", fmt.Errorf("failed to delete memberships: %w", err))
		}
		return nil
	})
}

// ClearAll removes every sprint and membership.
func (r *SprintRepo) ClearAll(ctx context.Context) error {
	return r.gw.WithConnection(ctx, func(tx *sql.Tx) error {
		for _, stmt := range []string{`DELETE FROM sprint_tasks`, `DELETE FROM sprints`} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return unavailable("clear sprints", fmt.Errorf("failed to run %q: %w", stmt, err))
			}
		}
		return nil
	})
}

func (r *SprintRepo) loadMembers(ctx context.Context, s *models.Sprint) error {
	ids, err := queryStringColumn(ctx, r.gw.db, `SELECT task_id FROM sprint_tasks WHERE sprint_name = ? ORDER BY rowid`, s.Name)
	if err != nil {
		return unavailable("load sprint tasks", fmt.Errorf("failed to query memberships: %w", err))
	}
	tasks, err := r.tasks.loadManyQ(ctx, r.gw.db, ids)
	if err != nil {
		return err
	}
	s.Tasks = tasks
	return nil
}

func scanSprintRow(scanner rowScanner) (*models.Sprint, error) {
	var (
		name      string
		status    sql.NullString
		createdAt sql.NullString
	)
	if err := scanner.Scan(&name, &status, &createdAt); err != nil {
		return nil, err
	}
	created, err := parseTimestamp(scanNullString(createdAt))
	if err != nil {
		return nil, fmt.Errorf("sprint %q created_at: %w", name, err)
	}
	// An unknown stored status is kept as-is so diagnostics can report it and
	// set-status can repair it.
	s := &models.Sprint{
		Name:      name,
		Status:    models.SprintStatus(scanNullString(status)),
		CreatedAt: created,
	}
	if s.Status == "" {
		s.Status = models.SprintStatusPlanned
	}
	return s, nil
}
