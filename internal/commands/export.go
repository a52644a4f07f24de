package commands

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/dotcommander/scrum/internal/actions"
	"github.com/dotcommander/scrum/internal/app"
	"github.com/dotcommander/scrum/internal/output"
	"github.com/dotcommander/scrum/internal/store"
)

// NewExportCmd creates the export command group. The file extension picks
// the format: .csv, .html or .htm.
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write task reports to CSV or HTML",
		Long: "Export tasks or a sprint to a report file. The extension selects the format (.csv, .html, .htm).\n" +
			"Relative paths are placed under report_dir when config.yaml sets one.",
		Args: cobra.NoArgs,
	}

	cmd.AddCommand(newExportTasksCmd())
	cmd.AddCommand(newExportSprintCmd())
	namespaceIndex(cmd)
	return cmd
}

type exportResp struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
}

func newExportTasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks <path>",
		Short: "Export every task, optionally filtered",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, _ := cmd.Flags().GetString("status")
			priority, _ := cmd.Flags().GetString("priority")
			path := app.ResolveReportPath(args[0])

			var n int
			if err := withRepos(cmd, func(ctx context.Context, r *actions.Repos) error {
				var err error
				n, err = actions.ExportTasks(ctx, r, path, store.TaskFilter{Status: status, Priority: priority})
				return err
			}); err != nil {
				return err
			}

			return emit(cmd, exportResp{Path: path, Count: n}, func(w io.Writer) {
				output.OK(w, "Exported %d tasks to %s", n, path)
			})
		},
	}

	cmd.Flags().String("status", "", "Filter by status: todo|in_progress|done")
	cmd.Flags().String("priority", "", "Filter by priority: low|medium|high")
	return cmd
}

func newExportSprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sprint <name> [path]",
		Short: "Export a sprint's tasks (default file: <name>_report.csv)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			var n int
			if err := withRepos(cmd, func(ctx context.Context, r *actions.Repos) error {
				s, err := r.Sprints.Resolve(ctx, args[0])
				if err != nil {
					return err
				}
				target := actions.DefaultSprintReportName(s.Name)
				if len(args) == 2 {
					target = args[1]
				}
				if path, err = actions.ExportSprint(ctx, r, s, app.ResolveReportPath(target)); err != nil {
					return err
				}
				n = len(s.Tasks)
				return nil
			}); err != nil {
				return err
			}

			return emit(cmd, exportResp{Path: path, Count: n}, func(w io.Writer) {
				output.OK(w, "Exported %d tasks to %s", n, path)
			})
		},
	}
}
