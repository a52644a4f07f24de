package commands

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dotcommander/scrum/internal/actions"
	"github.com/dotcommander/scrum/internal/clock"
	"github.com/dotcommander/scrum/internal/output"
	"github.com/dotcommander/scrum/internal/store"
)

type printedError struct {
	err error
}

func (e printedError) Error() string {
	// The ❌ line or JSON error response is the output.
	return "error already printed"
}

func (e printedError) Unwrap() error {
	return e.err
}

func jsonMode(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func outputConfig(cmd *cobra.Command) output.Config {
	cfg := output.DefaultConfig()
	cfg.Writer = cmd.OutOrStdout()
	return cfg
}

func openRepos() (*actions.Repos, func(), error) {
	gw, err := store.OpenDefault(store.WithLogger(slog.Default()))
	if err != nil {
		return nil, nil, err
	}
	return actions.NewRepos(gw, clock.RealClock{}), func() { _ = gw.Close() }, nil
}

func withRepos(cmd *cobra.Command, fn func(ctx context.Context, r *actions.Repos) error) error {
	r, closeDB, err := openRepos()
	if err != nil {
		return cmdErr(cmd, err)
	}
	defer closeDB()

	if err := fn(cmd.Context(), r); err != nil {
		return cmdErr(cmd, err)
	}
	return nil
}

// cmdErr logs err, prints it as a ❌ line or JSON error envelope, and marks
// it printed so Execute does not repeat it.
func cmdErr(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	attrs := []any{"error", err.Error()}
	type slogAttrError interface {
		SlogAttrs() []any
	}
	var detailed slogAttrError
	if errors.As(err, &detailed) {
		attrs = append(attrs, detailed.SlogAttrs()...)
	}
	slog.Error("command error", attrs...)

	if jsonMode(cmd) {
		_ = output.PrintWith(outputConfig(cmd), output.Error(err))
	} else {
		output.Fail(cmd.OutOrStdout(), err)
	}
	return printedError{err: err}
}

// emit prints data as a JSON success envelope under --json, otherwise runs
// human against stdout.
func emit(cmd *cobra.Command, data any, human func(w io.Writer)) error {
	if jsonMode(cmd) {
		return output.PrintWith(outputConfig(cmd), output.Success(data))
	}
	human(cmd.OutOrStdout())
	return nil
}
