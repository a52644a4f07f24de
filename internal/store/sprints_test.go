package store

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotcommander/scrum/internal/models"
)

func saveSprint(t *testing.T, r *testRepos, name string) *models.Sprint {
	t.Helper()
	s, err := r.sprints.Create(name)
	require.NoError(t, err)
	require.NoError(t, r.sprints.Save(context.Background(), s))
	return s
}

func TestSprintRepo_CreateValidatesName(t *testing.T) {
	r := setupTestRepos(t)

	s, err := r.sprints.Create("  Sprint 1 ")
	require.NoError(t, err)
	assert.Equal(t, "Sprint 1", s.Name)
	assert.Equal(t, models.SprintStatusPlanned, s.Status)
	assert.Equal(t, testNow, s.CreatedAt)

	_, err = r.sprints.Create("")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = r.sprints.Create(strings.Repeat("s", 51))
	assert.ErrorIs(t, err, ErrValidation)

	exists, err := r.sprints.Exists(context.Background(), "Sprint 1")
	require.NoError(t, err)
	assert.False(t, exists, "Create must not persist")
}

func TestSprintRepo_AddTaskAndStatistics(t *testing.T) {
	r := setupTestRepos(t)
	ctx := context.Background()

	s, err := r.sprints.Create("Stats")
	require.NoError(t, err)

	empty := s.Statistics()
	assert.Equal(t, 0, empty.Total)
	assert.InDelta(t, 0.0, empty.ProgressPercent, 1e-9)

	for _, status := range []models.TaskStatus{models.TaskStatusDone, models.TaskStatusDone, models.TaskStatusTodo} {
		task, err := r.tasks.Create("task "+string(status), "", "")
		require.NoError(t, err)
		task.Status = status
		require.NoError(t, r.sprints.AddTask(ctx, s, task))
	}
	require.NoError(t, r.sprints.AddTask(ctx, s, s.Tasks[0]), "re-adding is a no-op")

	loaded, err := r.sprints.LoadByName(ctx, "Stats")
	require.NoError(t, err)
	require.Len(t, loaded.Tasks, 3)

	stats := loaded.Statistics()
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Done)
	assert.Equal(t, 1, stats.Todo)
	assert.InDelta(t, 66.67, stats.ProgressPercent, 1e-9)

	assert.ErrorIs(t, r.sprints.AddTask(ctx, s, nil), ErrValidation)
}

func TestSprintRepo_RemoveTask(t *testing.T) {
	r := setupTestRepos(t)
	ctx := context.Background()

	s := saveSprint(t, r, "Removal")
	task := saveTask(t, r, "member")

	require.ErrorIs(t, r.sprints.RemoveTask(ctx, s, task.ID), ErrNotFound)

	require.NoError(t, r.sprints.AddTask(ctx, s, task))
	require.NoError(t, r.sprints.RemoveTask(ctx, s, task.ID))
	assert.Empty(t, s.Tasks)

	loaded, err := r.sprints.LoadByName(ctx, "Removal")
	require.NoError(t, err)
	assert.Empty(t, loaded.Tasks)
}

func TestSprintRepo_Lifecycle(t *testing.T) {
	r := setupTestRepos(t)
	ctx := context.Background()
	s := saveSprint(t, r, "Lifecycle")

	require.ErrorIs(t, r.sprints.Complete(ctx, s), ErrValidation)
	require.NoError(t, r.sprints.Start(ctx, s))
	require.NoError(t, r.sprints.Start(ctx, s))
	require.NoError(t, r.sprints.Complete(ctx, s))

	loaded, err := r.sprints.LoadByName(ctx, "Lifecycle")
	require.NoError(t, err)
	assert.Equal(t, models.SprintStatusCompleted, loaded.Status)

	require.ErrorIs(t, r.sprints.Start(ctx, s), ErrValidation)
	require.NoError(t, r.sprints.Archive(ctx, s))
	require.NoError(t, r.sprints.Archive(ctx, s))

	require.ErrorIs(t, r.sprints.SetStatus(ctx, s, "Done"), ErrValidation)
	assert.Equal(t, models.SprintStatusArchived, s.Status)
	require.NoError(t, r.sprints.SetStatus(ctx, s, "Planned"))

	loaded, err = r.sprints.LoadByName(ctx, "Lifecycle")
	require.NoError(t, err)
	assert.Equal(t, models.SprintStatusPlanned, loaded.Status)
}

func TestSprintRepo_Rename(t *testing.T) {
	r := setupTestRepos(t)
	ctx := context.Background()

	s := saveSprint(t, r, "Old Name")
	task := saveTask(t, r, "carried over")
	require.NoError(t, r.sprints.AddTask(ctx, s, task))
	saveSprint(t, r, "Taken")

	err := r.sprints.Rename(ctx, s, "Taken")
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Old Name", s.Name, "failed rename leaves the name unchanged")

	require.NoError(t, r.sprints.Rename(ctx, s, "New Name"))
	assert.Equal(t, "New Name", s.Name)

	_, err = r.sprints.LoadByName(ctx, "Old Name")
	assert.ErrorIs(t, err, ErrNotFound)

	loaded, err := r.sprints.LoadByName(ctx, "New Name")
	require.NoError(t, err)
	require.Len(t, loaded.Tasks, 1)
	assert.Equal(t, task.ID, loaded.Tasks[0].ID)

	var stale int
	require.NoError(t, r.gw.db.QueryRow(`SELECT COUNT(*) FROM sprint_tasks WHERE sprint_name = 'Old Name'`).Scan(&stale))
	assert.Zero(t, stale)

	ghost, err := r.sprints.Create("Never Saved")
	require.NoError(t, err)
	err = r.sprints.Rename(ctx, ghost, "Something")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Never Saved", ghost.Name)
}

func TestSprintRepo_LoadByNamePrefix(t *testing.T) {
	r := setupTestRepos(t)
	ctx := context.Background()

	saveSprint(t, r, "Release 1")
	saveSprint(t, r, "Release 2")
	saveSprint(t, r, "Hardening")

	_, err := r.sprints.LoadByNamePrefix(ctx, "Re")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = r.sprints.LoadByNamePrefix(ctx, "Release")
	var amb *AmbiguousMatchError
	require.ErrorAs(t, err, &amb)
	assert.Equal(t, []string{"Release 1", "Release 2"}, amb.Matches)

	s, err := r.sprints.LoadByNamePrefix(ctx, "Har")
	require.NoError(t, err)
	assert.Equal(t, "Hardening", s.Name)

	s, err = r.sprints.Resolve(ctx, "Release 2")
	require.NoError(t, err)
	assert.Equal(t, "Release 2", s.Name)

	_, err = r.sprints.Resolve(ctx, "Missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSprintRepo_ListDeleteClear(t *testing.T) {
	r := setupTestRepos(t)
	ctx := context.Background()

	a := saveSprint(t, r, "Alpha")
	saveSprint(t, r, "Beta")
	task := saveTask(t, r, "shared")
	require.NoError(t, r.sprints.AddTask(ctx, a, task))

	all, err := r.sprints.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Alpha", all[0].Name)
	assert.Len(t, all[0].Tasks, 1)

	require.NoError(t, r.sprints.Delete(ctx, "Alpha"))
	assert.ErrorIs(t, r.sprints.Delete(ctx, "Alpha"), ErrNotFound)

	_, err = r.tasks.Load(ctx, task.ID)
	require.NoError(t, err, "deleting a sprint keeps its tasks")

	require.NoError(t, r.sprints.ClearAll(ctx))
	all, err = r.sprints.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSprintRepo_SkipsDanglingMembers(t *testing.T) {
	r := setupTestRepos(t)
	ctx := context.Background()

	s := saveSprint(t, r, "Dangling")
	task := saveTask(t, r, "real")
	require.NoError(t, r.sprints.AddTask(ctx, s, task))

	_, err := r.gw.db.Exec(`INSERT INTO sprint_tasks (sprint_name, task_id) VALUES ('Dangling', 'ghost')`)
	require.NoError(t, err)

	loaded, err := r.sprints.LoadByName(ctx, "Dangling")
	require.NoError(t, err)
	require.Len(t, loaded.Tasks, 1)
	assert.Equal(t, task.ID, loaded.Tasks[0].ID)
}

func TestSprintRepo_KeepsUnknownStoredStatus(t *testing.T) {
	r := setupTestRepos(t)
	ctx := context.Background()

	saveSprint(t, r, "Legacy")
	_, err := r.gw.db.Exec(`UPDATE sprints SET status = 'active' WHERE name = 'Legacy'`)
	require.NoError(t, err)

	s, err := r.sprints.LoadByName(ctx, "Legacy")
	require.NoError(t, err)
	assert.Equal(t, models.SprintStatus("active"), s.Status)

	require.ErrorIs(t, r.sprints.Start(ctx, s), ErrValidation)
	var stored string
	require.NoError(t, r.gw.db.QueryRow(`SELECT status FROM sprints WHERE name = 'Legacy'`).Scan(&stored))
	assert.Equal(t, "active", stored, "a rejected start writes nothing")

	diags, err := r.gw.RunDiagnostics(ctx)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "INVALID_ENUM", diags[0].Code)
	assert.Contains(t, diags[0].Message, "Legacy")

	require.NoError(t, r.sprints.SetStatus(ctx, s, "Planned"))
	loaded, err := r.sprints.LoadByName(ctx, "Legacy")
	require.NoError(t, err)
	assert.Equal(t, models.SprintStatusPlanned, loaded.Status)

	diags, err = r.gw.RunDiagnostics(ctx)
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func TestSprintRepo_SaveStampsCreatedAtFromClock(t *testing.T) {
	r := setupTestRepos(t)
	ctx := context.Background()

	s := &models.Sprint{Name: "Unstamped", Status: models.SprintStatusPlanned}
	require.NoError(t, r.sprints.Save(ctx, s))

	loaded, err := r.sprints.LoadByName(ctx, "Unstamped")
	require.NoError(t, err)
	assert.Equal(t, testNow, loaded.CreatedAt)
}

func TestSprintRepo_MoveFromBacklog(t *testing.T) {
	r := setupTestRepos(t)
	ctx := context.Background()

	task := saveTask(t, r, "movable")
	b := r.backlog.Load(ctx)
	require.NoError(t, r.backlog.AddTask(ctx, b, task))
	s := saveSprint(t, r, "Target")

	_, err := r.sprints.MoveFromBacklog(ctx, b, s, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = r.gw.db.Exec(`
		CREATE TRIGGER reject_membership BEFORE INSERT ON sprint_tasks
		BEGIN SELECT RAISE(ABORT, 'membership rejected'); END
	`)
	require.NoError(t, err)

	task.Title = "renamed in memory"
	_, err = r.sprints.MoveFromBacklog(ctx, b, s, task.ID)
	require.ErrorIs(t, err, ErrStoreUnavailable)
	assert.True(t, b.Has(task.ID))
	assert.False(t, s.HasTask(task.ID))

	inBacklog, err := r.backlog.Contains(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, inBacklog, "failed move keeps the backlog row")
	stored, err := r.tasks.Load(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "movable", stored.Title, "failed move rolls back the task save")

	_, err = r.gw.db.Exec(`DROP TRIGGER reject_membership`)
	require.NoError(t, err)

	moved, err := r.sprints.MoveFromBacklog(ctx, b, s, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, moved.ID)
	assert.False(t, b.Has(task.ID))
	assert.True(t, s.HasTask(task.ID))

	inBacklog, err = r.backlog.Contains(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, inBacklog)
	loaded, err := r.sprints.LoadByName(ctx, "Target")
	require.NoError(t, err)
	require.Len(t, loaded.Tasks, 1)
	assert.Equal(t, "renamed in memory", loaded.Tasks[0].Title)
}
