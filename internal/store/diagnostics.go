package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Diagnostic represents a single consistency check finding.
type Diagnostic struct {
	Level           string `json:"level"` // "warning" or "error"
	Code            string `json:"code"`
	Message         string `json:"message"`
	SuggestedAction string `json:"suggested_action,omitempty"`
}

// RunDiagnostics performs consistency checks and returns findings. Dangling
// memberships are legal (loads skip them) so they are only warnings.
func (g *Gateway) RunDiagnostics(ctx context.Context) ([]Diagnostic, error) {
	var diags []Diagnostic

	checks := []struct {
		name string
		fn   func(context.Context) ([]Diagnostic, error)
	}{
		{"dangling membership", g.findDanglingMemberships},
		{"invalid enum", g.findInvalidEnums},
	}
	for _, c := range checks {
		found, err := c.fn(ctx)
		if err != nil {
			return nil, unavailable("diagnostics", fmt.Errorf("%s check: %w", c.name, err))
		}
		diags = append(diags, found...)
	}

	return diags, nil
}

// findDanglingMemberships finds backlog, sprint and comment rows that point
// at a task id with no task row.
func (g *Gateway) findDanglingMemberships(ctx context.Context) ([]Diagnostic, error) {
	rows, err := g.db.QueryContext(ctx, `
		SELECT 'backlog', task_id FROM backlog_tasks
		WHERE task_id NOT IN (SELECT id FROM tasks WHERE id IS NOT NULL)
		UNION ALL
		SELECT 'sprint ' || coalesce(sprint_name, ''), task_id FROM sprint_tasks
		WHERE task_id NOT IN (SELECT id FROM tasks WHERE id IS NOT NULL)
		UNION ALL
		SELECT 'comments', task_id FROM task_comments
		WHERE task_id NOT IN (SELECT id FROM tasks WHERE id IS NOT NULL)
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var diags []Diagnostic
	for rows.Next() {
		var owner, taskID sql.NullString
		if err := rows.Scan(&owner, &taskID); err != nil {
			return nil, err
		}
		diags = append(diags, Diagnostic{
			Level:           "warning",
			Code:            "DANGLING_TASK_REF",
			Message:         fmt.Sprintf("%s references missing task %s", scanNullString(owner), scanNullString(taskID)),
			SuggestedAction: "the reference is skipped on load; remove it to silence this warning",
		})
	}
	return diags, rows.Err()
}

// findInvalidEnums finds rows whose status or priority fell outside the
// known values, typically from hand-edited or legacy databases.
func (g *Gateway) findInvalidEnums(ctx context.Context) ([]Diagnostic, error) {
	rows, err := g.db.QueryContext(ctx, `
		SELECT 'task', id, 'status', status FROM tasks
		WHERE status NOT IN ('todo', 'in_progress', 'done')
		UNION ALL
		SELECT 'task', id, 'priority', priority FROM tasks
		WHERE priority NOT IN ('low', 'medium', 'high')
		UNION ALL
		SELECT 'sprint', name, 'status', status FROM sprints
		WHERE status NOT IN ('Planned', 'In Progress', 'Completed', 'Archived')
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var diags []Diagnostic
	for rows.Next() {
		var (
			entity, field string
			key, value    sql.NullString
		)
		if err := rows.Scan(&entity, &key, &field, &value); err != nil {
			return nil, err
		}
		diags = append(diags, Diagnostic{
			Level:           "error",
			Code:            "INVALID_ENUM",
			Message:         fmt.Sprintf("%s %s has invalid %s %q", entity, scanNullString(key), field, scanNullString(value)),
			SuggestedAction: fmt.Sprintf("scrum %s set-%s to a valid value", entity, field),
		})
	}
	return diags, rows.Err()
}
