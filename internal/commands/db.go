package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dotcommander/scrum/internal/actions"
	"github.com/dotcommander/scrum/internal/app"
	"github.com/dotcommander/scrum/internal/output"
	"github.com/dotcommander/scrum/internal/store"
)

// NewInitCmd creates the init command, which creates the database and
// applies the schema.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the database and apply the schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			var version int64
			if err := withRepos(cmd, func(ctx context.Context, r *actions.Repos) error {
				path = r.Gateway.Path()
				var err error
				version, _, err = r.Gateway.SchemaVersion(ctx)
				return err
			}); err != nil {
				return err
			}

			type resp struct {
				Path          string `json:"path"`
				SchemaVersion int64  `json:"schema_version"`
			}
			return emit(cmd, resp{Path: path, SchemaVersion: version}, func(w io.Writer) {
				output.OK(w, "Database initialized at %s", path)
			})
		},
	}
	cmd.Annotations = map[string]string{"mutates": "true"}
	return cmd
}

// NewDBCmd creates the db command group.
func NewDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database utilities",
		Args:  cobra.NoArgs,
	}

	cmd.AddCommand(newDBPathCmd())
	cmd.AddCommand(newDBStatusCmd())
	cmd.AddCommand(newDBCheckCmd())
	namespaceIndex(cmd)
	return cmd
}

func newDBPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the resolved database path and where it came from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, source, err := app.ResolveDBPathDetailed()
			if err != nil {
				return cmdErr(cmd, err)
			}

			type resp struct {
				Path   string `json:"path"`
				Source string `json:"source"`
			}
			return emit(cmd, resp{Path: path, Source: source}, func(w io.Writer) {
				_, _ = fmt.Fprintf(w, "%s (%s)\n", path, source)
			})
		},
	}
}

func newDBStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show database location, schema version and record counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, source, err := app.ResolveDBPathDetailed()
			if err != nil {
				return cmdErr(cmd, err)
			}

			type dbInfo struct {
				Path          string `json:"path"`
				Source        string `json:"source"`
				SizeBytes     int64  `json:"size_bytes"`
				SchemaVersion int64  `json:"schema_version"`
				LatestVersion int64  `json:"latest_version"`
			}
			type resp struct {
				DB     dbInfo              `json:"db"`
				Counts *store.StatusCounts `json:"counts"`
			}
			result := resp{DB: dbInfo{Path: path, Source: source}}

			if err := withRepos(cmd, func(ctx context.Context, r *actions.Repos) error {
				var err error
				if result.DB.SchemaVersion, result.DB.LatestVersion, err = r.Gateway.SchemaVersion(ctx); err != nil {
					return err
				}
				result.Counts, err = r.Gateway.StatusCounts(ctx)
				return err
			}); err != nil {
				return err
			}
			if stat, err := os.Stat(path); err == nil {
				result.DB.SizeBytes = stat.Size()
			}

			return emit(cmd, result, func(w io.Writer) {
				c := result.Counts
				output.OK(w, "%s (%s, %s)", path, source, humanize.Bytes(uint64(max(result.DB.SizeBytes, 0))))
				output.Line(w, "schema:   v%d of v%d", result.DB.SchemaVersion, result.DB.LatestVersion)
				output.Line(w, "tasks:    %d (todo %d, in_progress %d, done %d)", c.Tasks.Total, c.Tasks.Todo, c.Tasks.InProgress, c.Tasks.Done)
				output.Line(w, "backlog:  %d", c.Backlog)
				output.Line(w, "sprints:  %d (planned %d, in progress %d, completed %d, archived %d)",
					c.Sprints.Total, c.Sprints.Planned, c.Sprints.InProgress, c.Sprints.Completed, c.Sprints.Archived)
				output.Line(w, "comments: %d", c.Comments)
			})
		},
	}
}

func newDBCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run consistency checks on memberships and stored enum values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var diags []store.Diagnostic
			if err := withRepos(cmd, func(ctx context.Context, r *actions.Repos) error {
				if err := r.Gateway.Ping(ctx); err != nil {
					return err
				}
				var err error
				diags, err = r.Gateway.RunDiagnostics(ctx)
				return err
			}); err != nil {
				return err
			}
			if diags == nil {
				diags = []store.Diagnostic{}
			}

			errorCount := 0
			for _, d := range diags {
				if d.Level == "error" {
					errorCount++
				}
			}

			type resp struct {
				OK          bool               `json:"ok"`
				Diagnostics []store.Diagnostic `json:"diagnostics"`
			}
			if err := emit(cmd, resp{OK: errorCount == 0, Diagnostics: diags}, func(w io.Writer) {
				if len(diags) == 0 {
					output.OK(w, "No problems found")
					return
				}
				for _, d := range diags {
					mark := "⚠️ "
					if d.Level == "error" {
						mark = output.FailMark
					}
					_, _ = fmt.Fprintf(w, "%s %s: %s\n", mark, d.Code, d.Message)
					if d.SuggestedAction != "" {
						output.Line(w, "fix: %s", d.SuggestedAction)
					}
				}
			}); err != nil {
				return err
			}

			if errorCount > 0 {
				return printedError{err: fmt.Errorf("%d consistency error(s) found", errorCount)}
			}
			return nil
		},
	}
}
