package actions

import (
	"context"
	"strings"

	"github.com/dotcommander/scrum/internal/models"
	"github.com/dotcommander/scrum/internal/report"
	"github.com/dotcommander/scrum/internal/store"
)

// ExportTasks writes every task matching filter to path and returns how
// many were exported.
func ExportTasks(ctx context.Context, r *Repos, path string, filter store.TaskFilter) (int, error) {
	if _, err := report.FormatForPath(path); err != nil {
		return 0, err
	}
	tasks, err := r.Tasks.ListAll(ctx, filter)
	if err != nil {
		return 0, err
	}
	if err := exportTasks(ctx, r, path, "Tasks", tasks); err != nil {
		return 0, err
	}
	return len(tasks), nil
}

// ExportSprint writes the members of s to path. An empty path becomes
// "<sprint name>_report.csv". The path actually written is returned.
func ExportSprint(ctx context.Context, r *Repos, s *models.Sprint, path string) (string, error) {
	if path == "" {
		path = DefaultSprintReportName(s.Name)
	}
	if _, err := report.FormatForPath(path); err != nil {
		return "", err
	}
	if err := exportTasks(ctx, r, path, "Sprint "+s.Name, s.Tasks); err != nil {
		return "", err
	}
	return path, nil
}

// DefaultSprintReportName derives a file name from a sprint name, replacing
// path separators and spaces.
func DefaultSprintReportName(sprintName string) string {
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ', ':':
			return '_'
		}
		return r
	}, sprintName)
	return safe + "_report.csv"
}

func exportTasks(ctx context.Context, r *Repos, path, title string, tasks []*models.Task) error {
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	counts, err := r.Comments.CountByTask(ctx, ids)
	if err != nil {
		return err
	}
	return report.ExportFile(path, title, report.RowsFromTasks(tasks, counts), true)
}
