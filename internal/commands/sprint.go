package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/dotcommander/scrum/internal/actions"
	"github.com/dotcommander/scrum/internal/app"
	"github.com/dotcommander/scrum/internal/models"
	"github.com/dotcommander/scrum/internal/output"
)

// NewSprintCmd creates the sprint command group.
func NewSprintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sprint",
		Short: "Manage sprints",
		Long: "Create sprints, schedule tasks into them and move them through Planned → In Progress → Completed → Archived.\n" +
			"Sprint arguments take the full name or a prefix of at least 3 characters.",
		Args: cobra.NoArgs,
	}

	cmd.AddCommand(newSprintCreateCmd())
	cmd.AddCommand(newSprintListCmd())
	cmd.AddCommand(newSprintShowCmd())
	cmd.AddCommand(newSprintTasksCmd())
	cmd.AddCommand(newSprintAddCmd())
	cmd.AddCommand(newSprintRemoveCmd())
	cmd.AddCommand(newSprintMoveCmd())
	cmd.AddCommand(newSprintTransitionCmd("start", "Move a Planned sprint to In Progress", "started",
		func(ctx context.Context, r *actions.Repos, s *models.Sprint) error { return r.Sprints.Start(ctx, s) }))
	cmd.AddCommand(newSprintTransitionCmd("complete", "Move an In Progress sprint to Completed", "completed",
		func(ctx context.Context, r *actions.Repos, s *models.Sprint) error { return r.Sprints.Complete(ctx, s) }))
	cmd.AddCommand(newSprintTransitionCmd("archive", "Archive a sprint from any state", "archived",
		func(ctx context.Context, r *actions.Repos, s *models.Sprint) error { return r.Sprints.Archive(ctx, s) }))
	cmd.AddCommand(newSprintSetStatusCmd())
	cmd.AddCommand(newSprintRenameCmd())
	cmd.AddCommand(newSprintDeleteCmd())
	cmd.AddCommand(newSprintStatsCmd())

	namespaceIndex(cmd)
	return cmd
}

func newSprintCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a Planned sprint (name: 1-50 characters)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var s *models.Sprint
			if err := withRepos(cmd, func(ctx context.Context, r *actions.Repos) error {
				var err error
				s, err = actions.SprintCreate(ctx, r, args[0])
				return err
			}); err != nil {
				return err
			}

			return emit(cmd, s, func(w io.Writer) {
				output.OK(w, "Sprint created: %s", s)
			})
		},
	}
	cmd.Annotations = map[string]string{"mutates": "true"}
	return cmd
}

func newSprintListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sprints with their progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var sprints []*models.Sprint
			if err := withRepos(cmd, func(ctx context.Context, r *actions.Repos) error {
				var err error
				sprints, err = r.Sprints.ListAll(ctx)
				return err
			}); err != nil {
				return err
			}

			if sprints == nil {
				sprints = []*models.Sprint{}
			}
			return emit(cmd, sprints, func(w io.Writer) {
				if len(sprints) == 0 {
					_, _ = fmt.Fprintln(w, "📭 No sprints.")
					return
				}
				_, _ = fmt.Fprintln(w, "🏃 Sprints:")
				for _, s := range sprints {
					st := s.Statistics()
					_, _ = fmt.Fprintf(w, " - %s · %.2f%% done\n", s, st.ProgressPercent)
				}
			})
		},
	}
}

// sprintCommand resolves args[0] to a sprint and runs fn against it.
func sprintCommand(cmd *cobra.Command, nameArg string, fn func(ctx context.Context, r *actions.Repos, s *models.Sprint) error) (*models.Sprint, error) {
	var s *models.Sprint
	err := withRepos(cmd, func(ctx context.Context, r *actions.Repos) error {
		var err error
		if s, err = r.Sprints.Resolve(ctx, nameArg); err != nil {
			return err
		}
		return fn(ctx, r, s)
	})
	return s, err
}

func newSprintShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show a sprint and its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := sprintCommand(cmd, args[0], func(context.Context, *actions.Repos, *models.Sprint) error { return nil })
			if err != nil {
				return err
			}

			return emit(cmd, s, func(w io.Writer) {
				now := time.Now()
				output.OK(w, "%s", s)
				output.Line(w, "created: %s (%s)", s.CreatedAt.Local().Format(time.DateTime), ago(s.CreatedAt, now))
				writeTaskList(w, "Tasks", "📭 No tasks in sprint.", s.Tasks, now)
			})
		},
	}
}

func newSprintTasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks <name>",
		Short: "List a sprint's tasks with one status, optionally exporting them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, _ := cmd.Flags().GetString("status")
			exportTo, _ := cmd.Flags().GetString("export")
			if exportTo != "" {
				exportTo = app.ResolveReportPath(exportTo)
			}

			var tasks []*models.Task
			s, err := sprintCommand(cmd, args[0], func(ctx context.Context, r *actions.Repos, s *models.Sprint) error {
				var err error
				tasks, err = actions.SprintTasksByStatus(ctx, r, s, status, exportTo)
				return err
			})
			if err != nil {
				return err
			}

			return emit(cmd, nonNil(tasks), func(w io.Writer) {
				writeTaskList(w, fmt.Sprintf("📋 %s tasks in %s", status, s.Name), "📭 No matching tasks.", tasks, time.Now())
				if exportTo != "" {
					output.OK(w, "Exported to %s", exportTo)
				}
			})
		},
	}

	cmd.Flags().String("status", "todo", "Status to select: todo|in_progress|done")
	cmd.Flags().String("export", "", "Also write the result to a .csv, .html or .htm file")
	return cmd
}

func newSprintAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <sprint> <task-id>",
		Short: "Add a task to a sprint (the backlog keeps its copy)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var task *models.Task
			s, err := sprintCommand(cmd, args[0], func(ctx context.Context, r *actions.Repos, s *models.Sprint) error {
				var err error
				if task, err = r.Tasks.Resolve(ctx, args[1]); err != nil {
					return err
				}
				return r.Sprints.AddTask(ctx, s, task)
			})
			if err != nil {
				return err
			}

			return emit(cmd, s, func(w io.Writer) {
				output.OK(w, "Added to sprint %s: %s", s.Name, task)
			})
		},
	}
	cmd.Annotations = map[string]string{"mutates": "true"}
	return cmd
}

func newSprintRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <sprint> <task-id>",
		Short: "Take a task out of a sprint without deleting it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var task *models.Task
			s, err := sprintCommand(cmd, args[0], func(ctx context.Context, r *actions.Repos, s *models.Sprint) error {
				var err error
				if task, err = r.Tasks.Resolve(ctx, args[1]); err != nil {
					return err
				}
				return r.Sprints.RemoveTask(ctx, s, task.ID)
			})
			if err != nil {
				return err
			}

			return emit(cmd, s, func(w io.Writer) {
				output.OK(w, "Removed from sprint %s: %s", s.Name, task)
			})
		},
	}
	cmd.Annotations = map[string]string{"mutates": "true"}
	return cmd
}

func newSprintMoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move <sprint> <task-id>",
		Short: "Move a task from the backlog into a sprint",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var task *models.Task
			s, err := sprintCommand(cmd, args[0], func(ctx context.Context, r *actions.Repos, s *models.Sprint) error {
				resolved, err := r.Tasks.Resolve(ctx, args[1])
				if err != nil {
					return err
				}
				task, err = actions.MoveTaskToSprint(ctx, r, r.Backlog.Load(ctx), s, resolved.ID)
				return err
			})
			if err != nil {
				return err
			}

			return emit(cmd, s, func(w io.Writer) {
				output.OK(w, "Moved to sprint %s: %s", s.Name, task)
			})
		},
	}
	cmd.Annotations = map[string]string{"mutates": "true"}
	return cmd
}

func newSprintTransitionCmd(use, short, verb string, fn func(ctx context.Context, r *actions.Repos, s *models.Sprint) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <name>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := sprintCommand(cmd, args[0], fn)
			if err != nil {
				return err
			}
			return emit(cmd, s, func(w io.Writer) {
				output.OK(w, "Sprint %s: %s", verb, s)
			})
		},
	}
	cmd.Annotations = map[string]string{"mutates": "true"}
	return cmd
}

func newSprintSetStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-status <name> <status>",
		Short: "Force a sprint status (Planned, In Progress, Completed, Archived)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := sprintCommand(cmd, args[0], func(ctx context.Context, r *actions.Repos, s *models.Sprint) error {
				return r.Sprints.SetStatus(ctx, s, args[1])
			})
			if err != nil {
				return err
			}
			return emit(cmd, s, func(w io.Writer) {
				output.OK(w, "Sprint updated: %s", s)
			})
		},
	}
	cmd.Annotations = map[string]string{"mutates": "true"}
	return cmd
}

func newSprintRenameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename <name> <new-name>",
		Short: "Rename a sprint, keeping its tasks",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var oldName string
			s, err := sprintCommand(cmd, args[0], func(ctx context.Context, r *actions.Repos, s *models.Sprint) error {
				oldName = s.Name
				return r.Sprints.Rename(ctx, s, args[1])
			})
			if err != nil {
				return err
			}
			return emit(cmd, s, func(w io.Writer) {
				output.OK(w, "Sprint renamed: %s → %s", oldName, s.Name)
			})
		},
	}
	cmd.Annotations = map[string]string{"mutates": "true"}
	return cmd
}

func newSprintDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a sprint (its tasks are kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := sprintCommand(cmd, args[0], func(ctx context.Context, r *actions.Repos, s *models.Sprint) error {
				return r.Sprints.Delete(ctx, s.Name)
			})
			if err != nil {
				return err
			}
			return emit(cmd, s, func(w io.Writer) {
				output.OK(w, "Sprint deleted: %s", s.Name)
			})
		},
	}
	cmd.Annotations = map[string]string{"mutates": "true"}
	return cmd
}

func newSprintStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <name>",
		Short: "Show sprint progress by status and priority",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := sprintCommand(cmd, args[0], func(context.Context, *actions.Repos, *models.Sprint) error { return nil })
			if err != nil {
				return err
			}

			type resp struct {
				Sprint     string                      `json:"sprint"`
				Status     models.SprintStatus         `json:"status"`
				Statistics models.Statistics           `json:"statistics"`
				ByPriority map[models.TaskPriority]int `json:"by_priority"`
			}
			data := resp{
				Sprint:     s.Name,
				Status:     s.Status,
				Statistics: s.Statistics(),
				ByPriority: s.CountTasksByPriority(),
			}
			return emit(cmd, data, func(w io.Writer) {
				writeStatistics(w, "Sprint "+s.Name+" ("+string(s.Status)+")", data.Statistics)
				writePriorityCounts(w, data.ByPriority)
			})
		},
	}
}
