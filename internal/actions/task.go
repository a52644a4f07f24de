package actions

import (
	"context"
	"fmt"

	"github.com/dotcommander/scrum/internal/models"
	"github.com/dotcommander/scrum/internal/store"
)

// TaskCreate creates and saves a standalone task.
func TaskCreate(ctx context.Context, r *Repos, title, description, priority string, tags []string) (*models.Task, error) {
	task, err := r.Tasks.Create(title, description, priority)
	if err != nil {
		return nil, err
	}
	task.Tags = models.NormalizeTags(tags)
	if err := r.Tasks.Save(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// AddTaskToBacklog creates a task and records it in the backlog in one
// transaction.
func AddTaskToBacklog(ctx context.Context, r *Repos, title, description, priority string, tags []string) (*models.Task, error) {
	task, err := r.Tasks.Create(title, description, priority)
	if err != nil {
		return nil, err
	}
	task.Tags = models.NormalizeTags(tags)

	b := r.Backlog.Load(ctx)
	if err := r.Backlog.AddTask(ctx, b, task); err != nil {
		return nil, err
	}
	return task, nil
}

// TaskDetail is a task with everything the show command prints.
type TaskDetail struct {
	Task      *models.Task      `json:"task"`
	InBacklog bool              `json:"in_backlog"`
	Comments  []*models.Comment `json:"comments"`
	AgeDays   float64           `json:"age_days"`
}

// TaskShow resolves a task by id or prefix and gathers its detail.
func TaskShow(ctx context.Context, r *Repos, idOrPrefix string) (*TaskDetail, error) {
	task, err := r.Tasks.Resolve(ctx, idOrPrefix)
	if err != nil {
		return nil, err
	}
	inBacklog, err := r.Backlog.Contains(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	comments, err := r.Comments.List(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	return &TaskDetail{
		Task:      task,
		InBacklog: inBacklog,
		Comments:  comments,
		AgeDays:   r.Tasks.AgeInDays(task),
	}, nil
}

// TaskList lists tasks, optionally narrowed to a tag after the store filters.
func TaskList(ctx context.Context, r *Repos, filter store.TaskFilter, tag string) ([]*models.Task, error) {
	tasks, err := r.Tasks.ListAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	if tag != "" {
		tasks = models.FilterByTag(tasks, tag)
	}
	return tasks, nil
}

// TaskDelete resolves and deletes a task, returning what was removed.
func TaskDelete(ctx context.Context, r *Repos, idOrPrefix string) (*models.Task, error) {
	task, err := r.Tasks.Resolve(ctx, idOrPrefix)
	if err != nil {
		return nil, err
	}
	if err := r.Tasks.Delete(ctx, task.ID); err != nil {
		return nil, fmt.Errorf("delete task %s: %w", task.ShortID(), err)
	}
	return task, nil
}
