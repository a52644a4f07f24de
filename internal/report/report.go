// Package report renders task listings as CSV or HTML files.
package report

import (
	"encoding/csv"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dotcommander/scrum/internal/models"
)

// Row is one exported task plus its comment count.
type Row struct {
	Task     *models.Task
	Comments int
}

// RowsFromTasks wraps tasks as rows. counts may be nil.
func RowsFromTasks(tasks []*models.Task, counts map[string]int) []Row {
	rows := make([]Row, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, Row{Task: t, Comments: counts[t.ID]})
	}
	return rows
}

// Format identifies an export file type.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
)

// FormatForPath picks the export format from the file extension, ignoring
// case. Anything other than .csv, .html or .htm is rejected.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".html", ".htm":
		return FormatHTML, nil
	}
	return "", &models.ValidationError{
		Field:   "export path",
		Value:   path,
		Reason:  "unsupported file extension",
		Options: []string{".csv", ".html", ".htm"},
	}
}

var csvHeader = []string{"Task ID", "Title", "Description", "Status", "Priority", "Created", "Last Updated"}

// WriteCSV writes a header line and one record per row.
func WriteCSV(w io.Writer, rows []Row, withComments bool) error {
	cw := csv.NewWriter(w)

	header := csvHeader
	if withComments {
		header = append(append([]string{}, csvHeader...), "Comments")
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, r := range rows {
		t := r.Task
		record := []string{
			t.ID,
			t.Title,
			t.Description,
			string(t.Status),
			string(t.Priority),
			formatTime(t.CreatedAt),
			formatTime(t.UpdatedAt),
		}
		if withComments {
			record = append(record, strconv.Itoa(r.Comments))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record %s: %w", t.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

var htmlReport = template.Must(template.New("report").Funcs(template.FuncMap{
	"stamp": formatTime,
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: left; }
th { background: #f0f0f0; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="summary">Total: {{.Stats.Total}} | To do: {{.Stats.Todo}} | In progress: {{.Stats.InProgress}} | Done: {{.Stats.Done}} | Progress: {{printf "%.2f" .Stats.ProgressPercent}}%</p>
<table>
<tr><th>Task ID</th><th>Title</th><th>Description</th><th>Status</th><th>Priority</th><th>Created</th><th>Last Updated</th>{{if .WithComments}}<th>Comments</th>{{end}}</tr>
{{- range .Rows}}
<tr><td>{{.Task.ID}}</td><td>{{.Task.Title}}</td><td>{{.Task.Description}}</td><td>{{.Task.Status}}</td><td>{{.Task.Priority}}</td><td>{{stamp .Task.CreatedAt}}</td><td>{{stamp .Task.UpdatedAt}}</td>{{if $.WithComments}}<td>{{.Comments}}</td>{{end}}</tr>
{{- end}}
</table>
</body>
</html>
`))

// WriteHTML renders rows as a standalone HTML page with a progress summary.
func WriteHTML(w io.Writer, title string, rows []Row, withComments bool) error {
	tasks := make([]*models.Task, 0, len(rows))
	for _, r := range rows {
		tasks = append(tasks, r.Task)
	}

	data := struct {
		Title        string
		Rows         []Row
		Stats        models.Statistics
		WithComments bool
	}{
		Title:        title,
		Rows:         rows,
		Stats:        models.ComputeStatistics(tasks),
		WithComments: withComments,
	}
	if err := htmlReport.Execute(w, data); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}
	return nil
}

// ExportFile writes rows to path in the format implied by its extension.
// Parent directories are created as needed.
func ExportFile(path, title string, rows []Row, withComments bool) error {
	format, err := FormatForPath(path)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}

	f, err := os.Create(path) //nolint:gosec // G304: path is the user's chosen output file
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}

	switch format {
	case FormatCSV:
		err = WriteCSV(f, rows, withComments)
	case FormatHTML:
		err = WriteHTML(f, title, rows, withComments)
	}
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close report file: %w", closeErr)
	}
	return err
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}
