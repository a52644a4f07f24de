package actions

import (
	"context"

	"github.com/dotcommander/scrum/internal/models"
)

// SprintCreate creates and saves a new sprint. A name already in use is a
// validation error rather than a silent overwrite.
func SprintCreate(ctx context.Context, r *Repos, name string) (*models.Sprint, error) {
	s, err := r.Sprints.Create(name)
	if err != nil {
		return nil, err
	}
	exists, err := r.Sprints.Exists(ctx, s.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, &models.ValidationError{Field: "sprint name", Value: s.Name, Reason: "already in use"}
	}
	if err := r.Sprints.Save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// MoveTaskToSprint moves a backlog task into s. The sprint membership and
// the backlog removal commit together or not at all.
func MoveTaskToSprint(ctx context.Context, r *Repos, b *models.Backlog, s *models.Sprint, id string) (*models.Task, error) {
	return r.Sprints.MoveFromBacklog(ctx, b, s, id)
}

// SprintTasksByStatus filters s by status and, when exportTo is set, writes
// the result to that file as CSV or HTML.
func SprintTasksByStatus(ctx context.Context, r *Repos, s *models.Sprint, status, exportTo string) ([]*models.Task, error) {
	tasks, err := s.TasksByStatus(status)
	if err != nil {
		return nil, err
	}
	if exportTo != "" {
		title := s.Name + " - " + status
		if err := exportTasks(ctx, r, exportTo, title, tasks); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}
