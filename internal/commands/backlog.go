package commands

import (
	"context"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/dotcommander/scrum/internal/actions"
	"github.com/dotcommander/scrum/internal/models"
	"github.com/dotcommander/scrum/internal/output"
)

// NewBacklogCmd creates the backlog command group.
func NewBacklogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backlog",
		Short: "Inspect and edit the backlog",
		Args:  cobra.NoArgs,
	}

	cmd.AddCommand(newBacklogListCmd())
	cmd.AddCommand(newBacklogAddCmd())
	cmd.AddCommand(newBacklogRemoveCmd())
	cmd.AddCommand(newBacklogClearCmd())
	cmd.AddCommand(newBacklogStatsCmd())

	namespaceIndex(cmd)
	return cmd
}

func newBacklogListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List backlog tasks in the order they were added",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, _ := cmd.Flags().GetString("status")
			priority, _ := cmd.Flags().GetString("priority")
			tag, _ := cmd.Flags().GetString("tag")

			var tasks []*models.Task
			if err := withRepos(cmd, func(ctx context.Context, r *actions.Repos) error {
				b := r.Backlog.Load(ctx)
				tasks = b.Tasks
				if status != "" {
					var err error
					if tasks, err = b.ListByStatus(status); err != nil {
						return err
					}
				}
				if priority != "" {
					p, err := models.ParseTaskPriority(priority)
					if err != nil {
						return err
					}
					tasks = models.FilterByPriority(tasks, p)
				}
				if tag != "" {
					tasks = models.FilterByTag(tasks, tag)
				}
				return nil
			}); err != nil {
				return err
			}

			return emit(cmd, nonNil(tasks), func(w io.Writer) {
				writeTaskList(w, "📋 Backlog tasks", "📭 No tasks in backlog.", tasks, time.Now())
			})
		},
	}

	cmd.Flags().String("status", "", "Filter by status: todo|in_progress|done")
	cmd.Flags().String("priority", "", "Filter by priority: low|medium|high")
	cmd.Flags().String("tag", "", "Filter by tag")
	return cmd
}

func newBacklogAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <task-id>",
		Short: "Put an existing task in the backlog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var task *models.Task
			if err := withRepos(cmd, func(ctx context.Context, r *actions.Repos) error {
				var err error
				if task, err = r.Tasks.Resolve(ctx, args[0]); err != nil {
					return err
				}
				return r.Backlog.AddTask(ctx, r.Backlog.Load(ctx), task)
			}); err != nil {
				return err
			}

			return emit(cmd, task, func(w io.Writer) {
				output.OK(w, "Added to backlog: %s", task)
			})
		},
	}
	cmd.Annotations = map[string]string{"mutates": "true"}
	return cmd
}

func newBacklogRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <task-id>",
		Short: "Take a task out of the backlog without deleting it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var task *models.Task
			if err := withRepos(cmd, func(ctx context.Context, r *actions.Repos) error {
				var err error
				if task, err = r.Tasks.Resolve(ctx, args[0]); err != nil {
					return err
				}
				return r.Backlog.RemoveTask(ctx, r.Backlog.Load(ctx), task.ID)
			}); err != nil {
				return err
			}

			return emit(cmd, task, func(w io.Writer) {
				output.OK(w, "Removed from backlog: %s", task)
			})
		},
	}
	cmd.Annotations = map[string]string{"mutates": "true"}
	return cmd
}

func newBacklogClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Empty the backlog (tasks are kept)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var cleared int
			if err := withRepos(cmd, func(ctx context.Context, r *actions.Repos) error {
				b := r.Backlog.Load(ctx)
				cleared = b.Len()
				return r.Backlog.Clear(ctx, b)
			}); err != nil {
				return err
			}

			type resp struct {
				Cleared int `json:"cleared"`
			}
			return emit(cmd, resp{Cleared: cleared}, func(w io.Writer) {
				output.OK(w, "Backlog cleared (%d tasks)", cleared)
			})
		},
	}
	cmd.Annotations = map[string]string{"mutates": "true"}
	return cmd
}

func newBacklogStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count backlog tasks by status and priority",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var b *models.Backlog
			if err := withRepos(cmd, func(ctx context.Context, r *actions.Repos) error {
				b = r.Backlog.Load(ctx)
				return nil
			}); err != nil {
				return err
			}

			type resp struct {
				Statistics models.Statistics           `json:"statistics"`
				ByPriority map[models.TaskPriority]int `json:"by_priority"`
			}
			data := resp{
				Statistics: models.ComputeStatistics(b.Tasks),
				ByPriority: models.CountByPriority(b.Tasks),
			}
			return emit(cmd, data, func(w io.Writer) {
				writeStatistics(w, "Backlog", data.Statistics)
				writePriorityCounts(w, data.ByPriority)
			})
		},
	}
}
