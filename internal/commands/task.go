package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dotcommander/scrum/internal/actions"
	"github.com/dotcommander/scrum/internal/app"
	"github.com/dotcommander/scrum/internal/models"
	"github.com/dotcommander/scrum/internal/output"
	"github.com/dotcommander/scrum/internal/store"
)

// NewTaskCmd creates the task command group
func NewTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
		Long: "Create, update and query tasks. Task arguments take a full id or a prefix of at least 3 characters.\n" +
			"Valid statuses: todo, in_progress, done. Valid priorities: low, medium, high.",
		Args: cobra.NoArgs,
	}

	cmd.AddCommand(newTaskAddCmd())
	cmd.AddCommand(newTaskListCmd())
	cmd.AddCommand(newTaskShowCmd())
	cmd.AddCommand(newTaskSearchCmd())
	cmd.AddCommand(newTaskSetStatusCmd())
	cmd.AddCommand(newTaskSetPriorityCmd())
	cmd.AddCommand(newTaskToggleCmd())
	cmd.AddCommand(newTaskDescribeCmd())
	cmd.AddCommand(newTaskRenameCmd())
	cmd.AddCommand(newTaskTagCmd())
	cmd.AddCommand(newTaskDeleteCmd())
	cmd.AddCommand(newTaskCommentCmd())
	cmd.AddCommand(newTaskCommentsCmd())

	namespaceIndex(cmd)
	return cmd
}

func newTaskAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task and put it in the backlog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, _ := cmd.Flags().GetString("desc")
			priority, _ := cmd.Flags().GetString("priority")
			tags, _ := cmd.Flags().GetStringSlice("tags")
			noBacklog, _ := cmd.Flags().GetBool("no-backlog")
			if priority == "" {
				priority = app.DefaultPriority()
			}

			var task *models.Task
			if err := withRepos(cmd, func(ctx context.Context, r *actions.Repos) error {
				var err error
				if noBacklog {
					task, err = actions.TaskCreate(ctx, r, args[0], desc, priority, tags)
				} else {
					task, err = actions.AddTaskToBacklog(ctx, r, args[0], desc, priority, tags)
				}
				return err
			}); err != nil {
				return err
			}

			return emit(cmd, task, func(w io.Writer) {
				output.OK(w, "Task added: %s", task)
			})
		},
	}

	cmd.Flags().StringP("desc", "d", "", "Task description")
	cmd.Flags().StringP("priority", "p", "", "Task priority: low|medium|high (default: config default_priority or medium)")
	cmd.Flags().StringSlice("tags", nil, "Comma-separated tags")
	cmd.Flags().Bool("no-backlog", false, "Create the task without adding it to the backlog")

	cmd.Annotations = map[string]string{"mutates": "true"}
	return cmd
}

func newTaskListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all tasks, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, _ := cmd.Flags().GetString("status")
			priority, _ := cmd.Flags().GetString("priority")
			tag, _ := cmd.Flags().GetString("tag")

			var tasks []*models.Task
			if err := withRepos(cmd, func(ctx context.Context, r *actions.Repos) error {
				var err error
				tasks, err = actions.TaskList(ctx, r, store.TaskFilter{Status: status, Priority: priority}, tag)
				return err
			}); err != nil {
				return err
			}

			return emit(cmd, nonNil(tasks), func(w io.Writer) {
				writeTaskList(w, "📋 Tasks", "📭 No tasks found.", tasks, time.Now())
			})
		},
	}

	cmd.Flags().String("status", "", "Filter by status: todo|in_progress|done")
	cmd.Flags().String("priority", "", "Filter by priority: low|medium|high")
	cmd.Flags().String("tag", "", "Filter by tag")
	return cmd
}

func newTaskShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a task with its comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var detail *actions.TaskDetail
			if err := withRepos(cmd, func(ctx context.Context, r *actions.Repos) error {
				var err error
				detail, err = actions.TaskShow(ctx, r, args[0])
				return err
			}); err != nil {
				return err
			}

			return emit(cmd, detail, func(w io.Writer) {
				now := time.Now()
				writeTaskDetail(w, detail.Task, now)
				output.Line(w, "in backlog:  %t", detail.InBacklog)
				output.Line(w, "age:         %.2f days", detail.AgeDays)
				for _, c := range detail.Comments {
					output.Line(w, "💬 %s (%s)", c.Content, ago(c.CreatedAt, now))
				}
			})
		},
	}
}

func newTaskSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Find tasks whose title or description contains the query (case-insensitive)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var tasks []*models.Task
			if err := withRepos(cmd, func(ctx context.Context, r *actions.Repos) error {
				var err error
				tasks, err = r.Tasks.Search(ctx, args[0])
				return err
			}); err != nil {
				return err
			}

			return emit(cmd, nonNil(tasks), func(w io.Writer) {
				writeTaskList(w, fmt.Sprintf("🔍 Matches for %q", args[0]), "📭 No matching tasks.", tasks, time.Now())
			})
		},
	}
}

// taskMutation resolves args[0] to a task, applies fn and prints the result.
func taskMutation(cmd *cobra.Command, idArg string, verb string, fn func(ctx context.Context, r *actions.Repos, t *models.Task) error) error {
	var task *models.Task
	if err := withRepos(cmd, func(ctx context.Context, r *actions.Repos) error {
		var err error
		if task, err = r.Tasks.Resolve(ctx, idArg); err != nil {
			return err
		}
		return fn(ctx, r, task)
	}); err != nil {
		return err
	}

	return emit(cmd, task, func(w io.Writer) {
		output.OK(w, "Task %s: %s", verb, task)
	})
}

func newTaskSetStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-status <id> <status>",
		Short: "Update task status (todo|in_progress|done)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return taskMutation(cmd, args[0], "updated", func(ctx context.Context, r *actions.Repos, t *models.Task) error {
				return r.Tasks.SetStatus(ctx, t, args[1])
			})
		},
	}
	cmd.Annotations = map[string]string{"mutates": "true"}
	return cmd
}

func newTaskSetPriorityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-priority <id> <priority>",
		Short: "Update task priority (low|medium|high)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return taskMutation(cmd, args[0], "updated", func(ctx context.Context, r *actions.Repos, t *models.Task) error {
				return r.Tasks.SetPriority(ctx, t, args[1])
			})
		},
	}
	cmd.Annotations = map[string]string{"mutates": "true"}
	return cmd
}

func newTaskToggleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "toggle <id>",
		Short: "Advance status todo → in_progress → done → todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return taskMutation(cmd, args[0], "toggled", func(ctx context.Context, r *actions.Repos, t *models.Task) error {
				_, err := r.Tasks.ToggleStatus(ctx, t)
				return err
			})
		},
	}
	cmd.Annotations = map[string]string{"mutates": "true"}
	return cmd
}

func newTaskDescribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe <id> <description>",
		Short: "Replace a task's description",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return taskMutation(cmd, args[0], "updated", func(ctx context.Context, r *actions.Repos, t *models.Task) error {
				return r.Tasks.UpdateDescription(ctx, t, args[1])
			})
		},
	}
	cmd.Annotations = map[string]string{"mutates": "true"}
	return cmd
}

func newTaskRenameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename <id> <title>",
		Short: "Replace a task's title",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return taskMutation(cmd, args[0], "renamed", func(ctx context.Context, r *actions.Repos, t *models.Task) error {
				return r.Tasks.UpdateTitle(ctx, t, args[1])
			})
		},
	}
	cmd.Annotations = map[string]string{"mutates": "true"}
	return cmd
}

func newTaskTagCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag <id> [tag...]",
		Short: "Replace a task's tags (no tags clears them)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return taskMutation(cmd, args[0], "tagged", func(ctx context.Context, r *actions.Repos, t *models.Task) error {
				return r.Tasks.SetTags(ctx, t, args[1:])
			})
		},
	}
	cmd.Annotations = map[string]string{"mutates": "true"}
	return cmd
}

func newTaskDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task with its backlog/sprint memberships and comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var task *models.Task
			if err := withRepos(cmd, func(ctx context.Context, r *actions.Repos) error {
				var err error
				task, err = actions.TaskDelete(ctx, r, args[0])
				return err
			}); err != nil {
				return err
			}

			return emit(cmd, task, func(w io.Writer) {
				output.OK(w, "Task deleted: %s", task)
			})
		},
	}
	cmd.Annotations = map[string]string{"mutates": "true"}
	return cmd
}

func newTaskCommentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comment <id> <text>",
		Short: "Attach a comment to a task",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var comment *models.Comment
			if err := withRepos(cmd, func(ctx context.Context, r *actions.Repos) error {
				task, err := r.Tasks.Resolve(ctx, args[0])
				if err != nil {
					return err
				}
				comment, err = r.Comments.Add(ctx, task.ID, strings.Join(args[1:], " "))
				return err
			}); err != nil {
				return err
			}

			return emit(cmd, comment, func(w io.Writer) {
				output.OK(w, "Comment added to task %s", shortID(comment.TaskID))
			})
		},
	}
	cmd.Annotations = map[string]string{"mutates": "true"}
	return cmd
}

func newTaskCommentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "comments <id>",
		Short: "List a task's comments, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var comments []*models.Comment
			if err := withRepos(cmd, func(ctx context.Context, r *actions.Repos) error {
				task, err := r.Tasks.Resolve(ctx, args[0])
				if err != nil {
					return err
				}
				comments, err = r.Comments.List(ctx, task.ID)
				return err
			}); err != nil {
				return err
			}

			if comments == nil {
				comments = []*models.Comment{}
			}
			return emit(cmd, comments, func(w io.Writer) {
				if len(comments) == 0 {
					_, _ = fmt.Fprintln(w, "📭 No comments.")
					return
				}
				now := time.Now()
				for _, c := range comments {
					_, _ = fmt.Fprintf(w, " - 💬 %s (%s)\n", c.Content, ago(c.CreatedAt, now))
				}
			})
		},
	}
}

func shortID(id string) string {
	t := models.Task{ID: id}
	return t.ShortID()
}

func nonNil(tasks []*models.Task) []*models.Task {
	if tasks == nil {
		return []*models.Task{}
	}
	return tasks
}
