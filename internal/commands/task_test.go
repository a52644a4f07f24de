package commands

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestNewTaskCmd_HasExpectedSubcommands(t *testing.T) {
	cmd := NewTaskCmd()
	require.Equal(t, "task", cmd.Use)
	require.Equal(t, "Manage tasks", cmd.Short)

	for _, name := range []string{"add", "list", "show", "search", "set-status", "set-priority", "toggle", "describe", "rename", "tag", "delete", "comment", "comments"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		require.Equal(t, name, sub.Name())
	}
}

func TestTaskAddCmd_DefinesFlags(t *testing.T) {
	cmd := newTaskAddCmd()
	for _, name := range []string{"desc", "priority", "tags", "no-backlog"} {
		requireFlagExists(t, cmd, name)
	}
	require.Equal(t, "true", cmd.Annotations["mutates"])
}

func TestTaskAdd_HumanOutputAndBacklog(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("task", "add", "Write docs", "-d", "README", "-p", "high")
	require.True(t, strings.HasPrefix(out, "✅ Task added: "), out)
	require.Contains(t, out, "Write docs")

	var backlog []taskJSON
	c.jsonData(&backlog, "backlog", "list")
	require.Len(t, backlog, 1)
	require.Equal(t, "high", backlog[0].Priority)
	require.Equal(t, "todo", backlog[0].Status)
}

func TestTaskAdd_NoBacklog(t *testing.T) {
	c := newCLI(t)
	c.addTask("Loose task", "--no-backlog")

	out := c.mustRun("backlog", "list")
	require.Contains(t, out, "📭 No tasks in backlog.")

	var all []taskJSON
	c.jsonData(&all, "task", "list")
	require.Len(t, all, 1)
}

func TestTaskAdd_InvalidPriority(t *testing.T) {
	c := newCLI(t)
	env := c.jsonError("task", "add", "Bad", "-p", "urgent")
	require.Equal(t, "VALIDATION", env.ErrorCode)

	out, err := c.run("task", "add", "Bad", "-p", "urgent")
	require.Error(t, err)
	require.True(t, strings.HasPrefix(out, "❌ "), out)
}

func TestTaskLifecycle_ByPrefix(t *testing.T) {
	c := newCLI(t)
	task := c.addTask("Ship it", "--tags", "Release,ops")
	prefix := task.ID[:8]

	var got taskJSON
	c.jsonData(&got, "task", "set-status", prefix, "in_progress")
	require.Equal(t, "in_progress", got.Status)

	c.jsonData(&got, "task", "toggle", prefix)
	require.Equal(t, "done", got.Status)

	c.jsonData(&got, "task", "set-priority", prefix, "low")
	require.Equal(t, "low", got.Priority)

	c.jsonData(&got, "task", "rename", prefix, "Ship it now")
	require.Equal(t, "Ship it now", got.Title)

	c.jsonData(&got, "task", "tag", prefix, "a", "b")
	require.Equal(t, []string{"a", "b"}, got.Tags)

	var filtered []taskJSON
	c.jsonData(&filtered, "task", "list", "--status", "done", "--tag", "a")
	require.Len(t, filtered, 1)
	c.jsonData(&filtered, "task", "list", "--status", "todo")
	require.Empty(t, filtered)
}

func TestTaskSetStatus_InvalidStatusLeavesTaskUnchanged(t *testing.T) {
	c := newCLI(t)
	task := c.addTask("Stable")

	env := c.jsonError("task", "set-status", task.ID, "blocked")
	require.Equal(t, "VALIDATION", env.ErrorCode)

	var detail struct {
		Task taskJSON `json:"task"`
	}
	c.jsonData(&detail, "task", "show", task.ID)
	require.Equal(t, "todo", detail.Task.Status)
}

func TestTaskShow_Errors(t *testing.T) {
	c := newCLI(t)

	env := c.jsonError("task", "show", "ab")
	require.Equal(t, "VALIDATION", env.ErrorCode)

	env = c.jsonError("task", "show", "ffffffff")
	require.Equal(t, "NOT_FOUND", env.ErrorCode)
}

func TestTaskComments(t *testing.T) {
	c := newCLI(t)
	task := c.addTask("Discuss")

	c.mustRun("task", "comment", task.ID, "first", "note")
	c.mustRun("task", "comment", task.ID, "second")

	var comments []struct {
		Content string `json:"content"`
	}
	c.jsonData(&comments, "task", "comments", task.ID)
	require.Len(t, comments, 2)
	require.Equal(t, "first note", comments[0].Content)

	out := c.mustRun("task", "show", task.ID)
	require.Contains(t, out, "💬 second")
}

func TestTaskSearch(t *testing.T) {
	c := newCLI(t)
	c.addTask("Fix login bug", "-d", "OAuth flow")
	c.addTask("Write tests")

	var found []taskJSON
	c.jsonData(&found, "task", "search", "oauth")
	require.Len(t, found, 1)
	require.Equal(t, "Fix login bug", found[0].Title)

	out := c.mustRun("task", "search", "nothing-matches")
	require.Contains(t, out, "📭 No matching tasks.")
}

func TestTaskDelete_RemovesMemberships(t *testing.T) {
	c := newCLI(t)
	task := c.addTask("Doomed")
	c.mustRun("sprint", "create", "Sprint 1")
	c.mustRun("sprint", "add", "Sprint 1", task.ID)

	out := c.mustRun("task", "delete", task.ID)
	require.Contains(t, out, "✅ Task deleted")

	var backlog []taskJSON
	c.jsonData(&backlog, "backlog", "list")
	require.Empty(t, backlog)

	var sprint struct {
		Tasks []taskJSON `json:"tasks"`
	}
	c.jsonData(&sprint, "sprint", "show", "Sprint 1")
	require.Empty(t, sprint.Tasks)

	env := c.jsonError("task", "delete", task.ID)
	require.Equal(t, "NOT_FOUND", env.ErrorCode)
}

func TestTaskNamespace_ListsSubcommands(t *testing.T) {
	c := newCLI(t)
	var idx struct {
		Namespace   string `json:"namespace"`
		Subcommands []struct {
			Name string `json:"name"`
		} `json:"subcommands"`
	}
	c.jsonData(&idx, "task")
	require.Equal(t, "scrum task", idx.Namespace)
	require.NotEmpty(t, idx.Subcommands)
}

func TestInitAndDBCommands(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("init")
	require.Contains(t, out, "✅ Database initialized at "+c.dbPath)
	_, err := os.Stat(c.dbPath)
	require.NoError(t, err)

	var path struct {
		Path   string `json:"path"`
		Source string `json:"source"`
	}
	c.jsonData(&path, "db", "path")
	require.Equal(t, c.dbPath, path.Path)
	require.Equal(t, "cli(--db-path)", path.Source)

	c.addTask("Counted")
	var status struct {
		DB struct {
			SchemaVersion int64 `json:"schema_version"`
			LatestVersion int64 `json:"latest_version"`
		} `json:"db"`
		Counts struct {
			Tasks struct {
				Total int `json:"total"`
			} `json:"tasks"`
			Backlog int `json:"backlog"`
		} `json:"counts"`
	}
	c.jsonData(&status, "db", "status")
	require.Equal(t, status.DB.LatestVersion, status.DB.SchemaVersion)
	require.Equal(t, 1, status.Counts.Tasks.Total)
	require.Equal(t, 1, status.Counts.Backlog)

	out = c.mustRun("db", "check")
	require.Contains(t, out, "✅ No problems found")
}

func TestExportTasksCmd(t *testing.T) {
	c := newCLI(t)
	c.addTask("Exported", "-p", "high")
	c.addTask("Also exported")

	path := filepath.Join(t.TempDir(), "out", "tasks.csv")
	out := c.mustRun("export", "tasks", path, "--priority", "high")
	require.Contains(t, out, "✅ Exported 1 tasks to "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "Exported")
	require.NotContains(t, string(data), "Also exported")

	env := c.jsonError("export", "tasks", filepath.Join(t.TempDir(), "tasks.pdf"))
	require.Equal(t, "VALIDATION", env.ErrorCode)
}

func requireFlagExists(t *testing.T, cmd *cobra.Command, name string) {
	t.Helper()
	require.NotNil(t, cmd.Flags().Lookup(name), "flag %q should exist", name)
}
