package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dotcommander/scrum/internal/models"
	"github.com/dotcommander/scrum/internal/output"
)

// ago renders t relative to now, e.g. "3 days ago".
func ago(t, now time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

func writeTaskLine(w io.Writer, t *models.Task, now time.Time) {
	line := fmt.Sprintf(" - %s · %s · created %s", t, t.Priority, ago(t.CreatedAt, now))
	if len(t.Tags) > 0 {
		line += " · #" + strings.Join(t.Tags, " #")
	}
	_, _ = fmt.Fprintln(w, line)
}

func writeTaskList(w io.Writer, heading, empty string, tasks []*models.Task, now time.Time) {
	if len(tasks) == 0 {
		_, _ = fmt.Fprintln(w, empty)
		return
	}
	_, _ = fmt.Fprintf(w, "%s (%s)\n", heading, humanize.Comma(int64(len(tasks))))
	for _, t := range tasks {
		writeTaskLine(w, t, now)
	}
}

func writeTaskDetail(w io.Writer, t *models.Task, now time.Time) {
	output.OK(w, "%s", t)
	output.Line(w, "id:          %s", t.ID)
	output.Line(w, "priority:    %s", t.Priority)
	if t.Description != "" {
		output.Line(w, "description: %s", t.Description)
	}
	if len(t.Tags) > 0 {
		output.Line(w, "tags:        %s", strings.Join(t.Tags, ", "))
	}
	output.Line(w, "created:     %s (%s)", t.CreatedAt.Local().Format(time.DateTime), ago(t.CreatedAt, now))
	output.Line(w, "updated:     %s (%s)", t.UpdatedAt.Local().Format(time.DateTime), ago(t.UpdatedAt, now))
}

func writeStatistics(w io.Writer, label string, st models.Statistics) {
	output.OK(w, "%s: %d tasks, %.2f%% done", label, st.Total, st.ProgressPercent)
	output.Line(w, "todo:        %d", st.Todo)
	output.Line(w, "in_progress: %d", st.InProgress)
	output.Line(w, "done:        %d", st.Done)
}

func writePriorityCounts(w io.Writer, counts map[models.TaskPriority]int) {
	for _, p := range models.TaskPriorities() {
		output.Line(w, "%-12s %d", string(p)+":", counts[p])
	}
}
