package models

import (
	"math"
	"strings"

	"golang.org/x/text/cases"
)

// FilterByStatus returns the tasks whose status equals status.
func FilterByStatus(tasks []*Task, status TaskStatus) []*Task {
	var out []*Task
	for _, t := range tasks {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out
}

// FilterByPriority returns the tasks whose priority equals priority.
func FilterByPriority(tasks []*Task, priority TaskPriority) []*Task {
	var out []*Task
	for _, t := range tasks {
		if t.Priority == priority {
			out = append(out, t)
		}
	}
	return out
}

// FilterByTag returns the tasks carrying tag.
func FilterByTag(tasks []*Task, tag string) []*Task {
	var out []*Task
	for _, t := range tasks {
		if t.HasTag(tag) {
			out = append(out, t)
		}
	}
	return out
}

// SearchTasks returns the tasks whose title or description contains query,
// compared under Unicode case folding. An empty query matches every task.
func SearchTasks(tasks []*Task, query string) []*Task {
	m := NewMatcher(query)
	var out []*Task
	for _, t := range tasks {
		if m.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

// Matcher is a case-insensitive substring matcher over task title and
// description. Not safe for concurrent use.
type Matcher struct {
	fold   cases.Caser
	needle string
}

// NewMatcher prepares a matcher for query.
func NewMatcher(query string) *Matcher {
	fold := cases.Fold()
	return &Matcher{fold: fold, needle: fold.String(query)}
}

// Match reports whether t's title or description contains the query.
func (m *Matcher) Match(t *Task) bool {
	return strings.Contains(m.fold.String(t.Title), m.needle) ||
		strings.Contains(m.fold.String(t.Description), m.needle)
}

// CountByStatus returns a count per status with every status present.
func CountByStatus(tasks []*Task) map[TaskStatus]int {
	counts := make(map[TaskStatus]int, 3)
	for _, s := range TaskStatuses() {
		counts[s] = 0
	}
	for _, t := range tasks {
		counts[t.Status]++
	}
	return counts
}

// CountByPriority returns a count per priority with every priority present.
func CountByPriority(tasks []*Task) map[TaskPriority]int {
	counts := make(map[TaskPriority]int, 3)
	for _, p := range TaskPriorities() {
		counts[p] = 0
	}
	for _, t := range tasks {
		counts[t.Priority]++
	}
	return counts
}

// GroupByStatus buckets tasks by status, preserving their order. Every status
// has an entry, possibly empty.
func GroupByStatus(tasks []*Task) map[TaskStatus][]*Task {
	groups := make(map[TaskStatus][]*Task, 3)
	for _, s := range TaskStatuses() {
		groups[s] = []*Task{}
	}
	for _, t := range tasks {
		groups[t.Status] = append(groups[t.Status], t)
	}
	return groups
}

// Statistics summarizes progress over a set of tasks.
type Statistics struct {
	Total           int     `json:"total"`
	Done            int     `json:"done"`
	InProgress      int     `json:"in_progress"`
	Todo            int     `json:"todo"`
	ProgressPercent float64 `json:"progress_percent"`
}

// ComputeStatistics counts tasks per status and the share that is done,
// rounded to two decimals. An empty set reports 0 progress.
func ComputeStatistics(tasks []*Task) Statistics {
	counts := CountByStatus(tasks)
	st := Statistics{
		Total:      len(tasks),
		Done:       counts[TaskStatusDone],
		InProgress: counts[TaskStatusInProgress],
		Todo:       counts[TaskStatusTodo],
	}
	if st.Total > 0 {
		st.ProgressPercent = math.Round(float64(st.Done)/float64(st.Total)*10000) / 100
	}
	return st
}
