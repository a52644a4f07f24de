package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dotcommander/scrum/internal/models"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const taskColumns = `id, title, description, status, priority, created_at, updated_at, tags`

// timestampLayouts are tried in order when reading stored timestamps. The
// second and third cover rows written by CURRENT_TIMESTAMP defaults.
//
//nolint:gochecknoglobals // static parse table
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// formatTimestamp renders t as UTC RFC 3339 with nanoseconds.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTimestamp reads a stored timestamp; empty yields the zero time.
func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

func joinTags(tags []string) string {
	return strings.Join(models.NormalizeTags(tags), ",")
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	return models.NormalizeTags(strings.Split(raw, ","))
}

// scanNullString converts sql.NullString to string (empty if NULL)
func scanNullString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// taskRowScanner encapsulates the common task row scanning logic. Columns
// are nullable on legacy databases, so everything is read as NullString.
type taskRowScanner struct {
	id, title, description, status, priority sql.NullString
	createdAt, updatedAt, tags               sql.NullString
}

func (s *taskRowScanner) scan(row rowScanner) error {
	return row.Scan(
		&s.id,
		&s.title,
		&s.description,
		&s.status,
		&s.priority,
		&s.createdAt,
		&s.updatedAt,
		&s.tags,
	)
}

func (s *taskRowScanner) task() (*models.Task, error) {
	t := &models.Task{
		ID:          scanNullString(s.id),
		Title:       scanNullString(s.title),
		Description: scanNullString(s.description),
		Status:      models.TaskStatus(scanNullString(s.status)),
		Priority:    models.TaskPriority(scanNullString(s.priority)),
		Tags:        splitTags(scanNullString(s.tags)),
	}
	if t.Status == "" {
		t.Status = models.TaskStatusTodo
	}
	if t.Priority == "" {
		t.Priority = models.TaskPriorityMedium
	}

	var err error
	if t.CreatedAt, err = parseTimestamp(scanNullString(s.createdAt)); err != nil {
		return nil, fmt.Errorf("task %s created_at: %w", t.ID, err)
	}
	if t.UpdatedAt, err = parseTimestamp(scanNullString(s.updatedAt)); err != nil {
		return nil, fmt.Errorf("task %s updated_at: %w", t.ID, err)
	}
	return t, nil
}

// scanTaskRow is a helper that scans and hydrates a task from a single row.
func scanTaskRow(row rowScanner) (*models.Task, error) {
	scanner := &taskRowScanner{}
	if err := scanner.scan(row); err != nil {
		return nil, err
	}
	return scanner.task()
}

// scanTaskRows drains rows into tasks.
func scanTaskRows(rows *sql.Rows) ([]*models.Task, error) {
	defer func() { _ = rows.Close() }()

	var tasks []*models.Task
	for rows.Next() {
		t, err := scanTaskRow(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
