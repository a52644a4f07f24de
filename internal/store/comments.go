package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dotcommander/scrum/internal/models"
)

// CommentRepo persists free-text notes attached to tasks.
type CommentRepo struct {
	gw    *Gateway
	tasks *TaskRepo
}

// NewCommentRepo returns a comment repository.
func NewCommentRepo(gw *Gateway, tasks *TaskRepo) *CommentRepo {
	return &CommentRepo{gw: gw, tasks: tasks}
}

// Add attaches a comment to an existing task.
func (r *CommentRepo) Add(ctx context.Context, taskID, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, &models.ValidationError{Field: "comment", Value: content, Reason: "must not be empty"}
	}

	c := &models.Comment{
		ID:        uuid.NewString(),
		TaskID:    taskID,
		Content:   content,
		CreatedAt: r.tasks.now(),
	}

	err := r.gw.WithConnection(ctx, func(tx *sql.Tx) error {
		if _, err := r.tasks.loadQ(ctx, tx, taskID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO task_comments (id, task_id, content, created_at)
			VALUES (?, ?, ?, ?)
		`, c.ID, c.TaskID, c.Content, formatTimestamp(c.CreatedAt))
		if err != nil {
			return unavailable("add comment", fmt.Errorf("failed to insert comment: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// List returns a task's comments, oldest first. Rows without content, which
// older databases allow, are skipped.
func (r *CommentRepo) List(ctx context.Context, taskID string) ([]*models.Comment, error) {
	rows, err := r.gw.db.QueryContext(ctx, `
		SELECT id, task_id, content, created_at
		FROM task_comments
		WHERE task_id = ? AND content IS NOT NULL
		ORDER BY created_at ASC, rowid ASC
	`, taskID)
	if err != nil {
		return nil, unavailable("list comments", fmt.Errorf("failed to query comments: %w", err))
	}
	defer func() { _ = rows.Close() }()

	var out []*models.Comment
	for rows.Next() {
		var (
			c                         models.Comment
			id, task, body, createdAt sql.NullString
		)
		if err := rows.Scan(&id, &task, &body, &createdAt); err != nil {
			return nil, unavailable("list comments", fmt.Errorf("failed to scan comment: %w", err))
		}
		c.ID, c.TaskID, c.Content = scanNullString(id), scanNullString(task), scanNullString(body)
		if c.CreatedAt, err = parseTimestamp(scanNullString(createdAt)); err != nil {
			return nil, unavailable("list comments", err)
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list comments", err)
	}
	return out, nil
}

// CountByTask returns the number of comments per task id. Every requested id
// is present in the result.
func (r *CommentRepo) CountByTask(ctx context.Context, taskIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(taskIDs))
	if len(taskIDs) == 0 {
		return counts, nil
	}
	for _, id := range taskIDs {
		counts[id] = 0
	}

	rows, err := r.gw.db.QueryContext(ctx, `
		SELECT task_id, COUNT(*) FROM task_comments
		WHERE task_id IS NOT NULL AND content IS NOT NULL
		GROUP BY task_id
	`)
	if err != nil {
		return nil, unavailable("count comments", fmt.Errorf("failed to query comment counts: %w", err))
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			id string
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, unavailable("count comments", fmt.Errorf("failed to scan comment count: %w", err))
		}
		if _, wanted := counts[id]; wanted {
			counts[id] = n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("count comments", err)
	}
	return counts, nil
}
