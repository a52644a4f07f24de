package commands

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type sprintJSON struct {
	Name   string     `json:"name"`
	Status string     `json:"status"`
	Tasks  []taskJSON `json:"tasks"`
}

func TestNewSprintCmd_HasExpectedSubcommands(t *testing.T) {
	cmd := NewSprintCmd()
	for _, name := range []string{"create", "list", "show", "tasks", "add", "remove", "move", "start", "complete", "archive", "set-status", "rename", "delete", "stats"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		require.Equal(t, name, sub.Name())
	}
}

func TestSprintCreate_DuplicateAndInvalid(t *testing.T) {
	c := newCLI(t)

	var s sprintJSON
	c.jsonData(&s, "sprint", "create", "Sprint 1")
	require.Equal(t, "Planned", s.Status)

	env := c.jsonError("sprint", "create", "Sprint 1")
	require.Equal(t, "VALIDATION", env.ErrorCode)

	env = c.jsonError("sprint", "create", strings.Repeat("x", 51))
	require.Equal(t, "VALIDATION", env.ErrorCode)
}

func TestSprintLifecycle(t *testing.T) {
	c := newCLI(t)
	c.mustRun("sprint", "create", "Sprint 1")

	env := c.jsonError("sprint", "complete", "Sprint 1")
	require.Equal(t, "VALIDATION", env.ErrorCode)

	var s sprintJSON
	c.jsonData(&s, "sprint", "start", "Spr")
	require.Equal(t, "In Progress", s.Status)

	c.jsonData(&s, "sprint", "complete", "Sprint 1")
	require.Equal(t, "Completed", s.Status)

	c.jsonData(&s, "sprint", "archive", "Sprint 1")
	require.Equal(t, "Archived", s.Status)

	c.jsonData(&s, "sprint", "set-status", "Sprint 1", "Planned")
	require.Equal(t, "Planned", s.Status)
}

func TestSprintMove_TakesTaskOutOfBacklog(t *testing.T) {
	c := newCLI(t)
	task := c.addTask("Move me")
	c.mustRun("sprint", "create", "Sprint 1")

	out := c.mustRun("sprint", "move", "Sprint 1", task.ID[:6])
	require.Contains(t, out, "✅ Moved to sprint Sprint 1")

	var backlog []taskJSON
	c.jsonData(&backlog, "backlog", "list")
	require.Empty(t, backlog)

	var s sprintJSON
	c.jsonData(&s, "sprint", "show", "Sprint 1")
	require.Len(t, s.Tasks, 1)
	require.Equal(t, task.ID, s.Tasks[0].ID)

	env := c.jsonError("sprint", "move", "Sprint 1", task.ID)
	require.Equal(t, "NOT_FOUND", env.ErrorCode)
}

func TestSprintAddRemove_KeepsBacklog(t *testing.T) {
	c := newCLI(t)
	task := c.addTask("Shared")
	c.mustRun("sprint", "create", "Sprint 1")

	c.mustRun("sprint", "add", "Sprint 1", task.ID)
	c.mustRun("sprint", "add", "Sprint 1", task.ID)

	var s sprintJSON
	c.jsonData(&s, "sprint", "show", "Sprint 1")
	require.Len(t, s.Tasks, 1)

	var backlog []taskJSON
	c.jsonData(&backlog, "backlog", "list")
	require.Len(t, backlog, 1)

	c.mustRun("sprint", "remove", "Sprint 1", task.ID)
	c.jsonData(&s, "sprint", "show", "Sprint 1")
	require.Empty(t, s.Tasks)

	env := c.jsonError("sprint", "remove", "Sprint 1", task.ID)
	require.Equal(t, "NOT_FOUND", env.ErrorCode)
}

func TestSprintRename_KeepsTasks(t *testing.T) {
	c := newCLI(t)
	task := c.addTask("Carried over")
	c.mustRun("sprint", "create", "Old name")
	c.mustRun("sprint", "create", "Taken")
	c.mustRun("sprint", "add", "Old name", task.ID)

	env := c.jsonError("sprint", "rename", "Old name", "Taken")
	require.Equal(t, "VALIDATION", env.ErrorCode)

	out := c.mustRun("sprint", "rename", "Old name", "New name")
	require.Contains(t, out, "Old name → New name")

	var s sprintJSON
	c.jsonData(&s, "sprint", "show", "New name")
	require.Len(t, s.Tasks, 1)

	env = c.jsonError("sprint", "show", "Old name")
	require.Equal(t, "NOT_FOUND", env.ErrorCode)
}

func TestSprintStatsAndList(t *testing.T) {
	c := newCLI(t)
	a := c.addTask("A", "-p", "high")
	b := c.addTask("B")
	c.mustRun("sprint", "create", "Sprint 1")
	c.mustRun("sprint", "add", "Sprint 1", a.ID)
	c.mustRun("sprint", "add", "Sprint 1", b.ID)
	c.mustRun("task", "set-status", a.ID, "done")

	var stats struct {
		Statistics struct {
			Total           int     `json:"total"`
			Done            int     `json:"done"`
			ProgressPercent float64 `json:"progress_percent"`
		} `json:"statistics"`
		ByPriority map[string]int `json:"by_priority"`
	}
	c.jsonData(&stats, "sprint", "stats", "Sprint 1")
	require.Equal(t, 2, stats.Statistics.Total)
	require.Equal(t, 1, stats.Statistics.Done)
	require.InDelta(t, 50.0, stats.Statistics.ProgressPercent, 0.001)
	require.Equal(t, 1, stats.ByPriority["high"])

	out := c.mustRun("sprint", "list")
	require.Contains(t, out, "Sprint 1")
	require.Contains(t, out, "50.00% done")
}

func TestSprintTasks_FilterAndExport(t *testing.T) {
	c := newCLI(t)
	a := c.addTask("Open work")
	b := c.addTask("Finished work")
	c.mustRun("sprint", "create", "Sprint 1")
	c.mustRun("sprint", "add", "Sprint 1", a.ID)
	c.mustRun("sprint", "add", "Sprint 1", b.ID)
	c.mustRun("task", "set-status", b.ID, "done")

	path := filepath.Join(t.TempDir(), "todo.html")
	var tasks []taskJSON
	c.jsonData(&tasks, "sprint", "tasks", "Sprint 1", "--export", path)
	require.Len(t, tasks, 1)
	require.Equal(t, "Open work", tasks[0].Title)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "Open work")
	require.NotContains(t, string(data), "Finished work")

	env := c.jsonError("sprint", "tasks", "Sprint 1", "--status", "blocked")
	require.Equal(t, "VALIDATION", env.ErrorCode)
}

func TestExportSprintCmd(t *testing.T) {
	c := newCLI(t)
	task := c.addTask("Reported")
	c.mustRun("sprint", "create", "Sprint 1")
	c.mustRun("sprint", "add", "Sprint 1", task.ID)

	path := filepath.Join(t.TempDir(), "sprint.csv")
	var resp struct {
		Path  string `json:"path"`
		Count int    `json:"count"`
	}
	c.jsonData(&resp, "export", "sprint", "Sprint 1", path)
	require.Equal(t, path, resp.Path)
	require.Equal(t, 1, resp.Count)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "Task ID,Title,Description,Status,Priority,Created,Last Updated,Comments"))
}

func TestSprintDelete_KeepsTasks(t *testing.T) {
	c := newCLI(t)
	task := c.addTask("Survivor")
	c.mustRun("sprint", "create", "Sprint 1")
	c.mustRun("sprint", "add", "Sprint 1", task.ID)

	c.mustRun("sprint", "delete", "Sprint 1")

	var all []taskJSON
	c.jsonData(&all, "task", "list")
	require.Len(t, all, 1)

	out := c.mustRun("sprint", "list")
	require.Contains(t, out, "📭 No sprints.")
}
