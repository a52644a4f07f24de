// Package actions composes repository calls into the multi-step operations
// the CLI exposes.
package actions

import (
	"github.com/dotcommander/scrum/internal/clock"
	"github.com/dotcommander/scrum/internal/store"
)

// Repos bundles every repository over one gateway.
type Repos struct {
	Gateway  *store.Gateway
	Tasks    *store.TaskRepo
	Backlog  *store.BacklogRepo
	Sprints  *store.SprintRepo
	Comments *store.CommentRepo
}

// NewRepos wires repositories over gw. A nil clock means the system clock.
func NewRepos(gw *store.Gateway, clk clock.Clock) *Repos {
	tasks := store.NewTaskRepo(gw, clk)
	return &Repos{
		Gateway:  gw,
		Tasks:    tasks,
		Backlog:  store.NewBacklogRepo(gw, tasks),
		Sprints:  store.NewSprintRepo(gw, tasks),
		Comments: store.NewCommentRepo(gw, tasks),
	}
}
