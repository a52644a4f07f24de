package store

import (
	"context"
	"fmt"
)

// StatusCounts holds summary counts for everything tracked in one database.
type StatusCounts struct {
	Tasks    TaskStatusCounts    `json:"tasks"`
	Sprints  SprintStatusCounts  `json:"sprints"`
	Backlog  int                 `json:"backlog"`
	Comments int                 `json:"comments"`
	Detail   *TaskPriorityCounts `json:"priority,omitempty"`
}

// TaskStatusCounts breaks down task counts by status.
type TaskStatusCounts struct {
	Total      int `json:"total"`
	Todo       int `json:"todo"`
	InProgress int `json:"in_progress"`
	Done       int `json:"done"`
	Unknown    int `json:"unknown"`
}

// TaskPriorityCounts breaks down task counts by priority.
type TaskPriorityCounts struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

// SprintStatusCounts breaks down sprint counts by lifecycle state.
type SprintStatusCounts struct {
	Total      int `json:"total"`
	Planned    int `json:"planned"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Archived   int `json:"archived"`
}

// StatusCounts retrieves all counts in a single query.
func (g *Gateway) StatusCounts(ctx context.Context) (*StatusCounts, error) {
	counts := &StatusCounts{Detail: &TaskPriorityCounts{}}

	err := g.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM tasks),
			(SELECT COUNT(*) FROM tasks WHERE status = 'todo'),
			(SELECT COUNT(*) FROM tasks WHERE status = 'in_progress'),
			(SELECT COUNT(*) FROM tasks WHERE status = 'done'),
			(SELECT COUNT(*) FROM tasks WHERE status NOT IN ('todo', 'in_progress', 'done')),
			(SELECT COUNT(*) FROM tasks WHERE priority = 'low'),
			(SELECT COUNT(*) FROM tasks WHERE priority = 'medium'),
			(SELECT COUNT(*) FROM tasks WHERE priority = 'high'),
			(SELECT COUNT(*) FROM sprints),
			(SELECT COUNT(*) FROM sprints WHERE status = 'Planned'),
			(SELECT COUNT(*) FROM sprints WHERE status = 'In Progress'),
			(SELECT COUNT(*) FROM sprints WHERE status = 'Completed'),
			(SELECT COUNT(*) FROM sprints WHERE status = 'Archived'),
			(SELECT COUNT(*) FROM backlog_tasks),
			(SELECT COUNT(*) FROM task_comments)
	`).Scan(
		&counts.Tasks.Total,
		&counts.Tasks.Todo,
		&counts.Tasks.InProgress,
		&counts.Tasks.Done,
		&counts.Tasks.Unknown,
		&counts.Detail.Low,
		&counts.Detail.Medium,
		&counts.Detail.High,
		&counts.Sprints.Total,
		&counts.Sprints.Planned,
		&counts.Sprints.InProgress,
		&counts.Sprints.Completed,
		&counts.Sprints.Archived,
		&counts.Backlog,
		&counts.Comments,
	)
	if err != nil {
		return nil, unavailable("status counts", fmt.Errorf("failed to get status counts: %w", err))
	}

	return counts, nil
}
