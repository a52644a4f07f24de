package commands

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	ErrorCode string          `json:"error_code"`
}

// cli runs the root command against one database file and returns stdout.
type cli struct {
	t      *testing.T
	dbPath string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SCRUM_DB_PATH", "")
	return &cli{t: t, dbPath: filepath.Join(t.TempDir(), "scrum.db")}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	root := NewRootCmd("test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--db-path", c.dbPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	require.NoError(c.t, err, out)
	return out
}

// jsonData runs args with --json, requires success and decodes data into v.
func (c *cli) jsonData(v any, args ...string) {
	c.t.Helper()
	out := c.mustRun(append([]string{"--json"}, args...)...)
	var env envelope
	require.NoError(c.t, json.Unmarshal([]byte(strings.TrimSpace(out)), &env), out)
	require.True(c.t, env.Success, out)
	if v != nil {
		require.NoError(c.t, json.Unmarshal(env.Data, v))
	}
}

// jsonError runs args with --json, requires failure and returns the envelope.
func (c *cli) jsonError(args ...string) envelope {
	c.t.Helper()
	out, err := c.run(append([]string{"--json"}, args...)...)
	require.Error(c.t, err)
	require.IsType(c.t, printedError{}, err)
	var env envelope
	require.NoError(c.t, json.Unmarshal([]byte(strings.TrimSpace(out)), &env), out)
	require.False(c.t, env.Success)
	return env
}

type taskJSON struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Status   string   `json:"status"`
	Priority string   `json:"priority"`
	Tags     []string `json:"tags"`
}

func (c *cli) addTask(title string, extra ...string) taskJSON {
	c.t.Helper()
	var task taskJSON
	c.jsonData(&task, append([]string{"task", "add", title}, extra...)...)
	require.NotEmpty(c.t, task.ID)
	return task
}
