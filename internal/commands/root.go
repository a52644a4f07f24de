package commands

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dotcommander/scrum/internal/app"
	"github.com/dotcommander/scrum/internal/output"
)

// Execute runs the CLI application.
func Execute(version string) error {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	root := NewRootCmd(version)
	err := root.Execute()
	if err != nil {
		var pe printedError
		if !errors.As(err, &pe) {
			// Usage errors from cobra itself never reached cmdErr.
			output.Fail(root.ErrOrStderr(), err)
			slog.Error("command failed", "error", err.Error())
		}
	}
	return err
}

// NewRootCmd builds the command tree. Tests drive it with SetArgs/SetOut.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "scrum",
		Short:         "Tasks, backlog and sprints in a local SQLite file",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := app.EnsureConfigDir(); err != nil {
				return err
			}

			// Wire --db-path into app-level resolver.
			if dbPath, err := cmd.Flags().GetString("db-path"); err == nil && dbPath != "" {
				app.SetDBPathOverride(dbPath)
			}

			return nil
		},
	}

	root.PersistentFlags().String("db-path", "", "Override database path (default: $SCRUM_DB_PATH or ~/.config/scrum/scrum.db)")
	root.PersistentFlags().Bool("json", false, "Print the JSON envelope instead of human-readable lines")

	root.AddCommand(NewInitCmd())
	root.AddCommand(NewDBCmd())
	root.AddCommand(NewTaskCmd())
	root.AddCommand(NewBacklogCmd())
	root.AddCommand(NewSprintCmd())
	root.AddCommand(NewExportCmd())
	root.AddCommand(NewSchemaCmd(root))

	return root
}
