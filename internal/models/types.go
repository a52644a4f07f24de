package models

import (
	"strings"
	"time"
)

// ID Strategy:
// - Tasks and comments use random UUID strings so short human-typed prefixes
//   resolve them on the command line.
// - Sprints are keyed by their unique name.

// TaskStatus represents the current state of a task.
type TaskStatus string

// Task status constants.
const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// TaskStatuses lists every valid task status in cycle order.
func TaskStatuses() []TaskStatus {
	return []TaskStatus{TaskStatusTodo, TaskStatusInProgress, TaskStatusDone}
}

// IsValid reports whether s is one of the enumerated statuses.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// Next returns the successor of s in the todo → in_progress → done → todo cycle.
func (s TaskStatus) Next() TaskStatus {
	switch s {
	case TaskStatusTodo:
		return TaskStatusInProgress
	case TaskStatusInProgress:
		return TaskStatusDone
	default:
		return TaskStatusTodo
	}
}

// ParseTaskStatus validates a raw status value.
func ParseTaskStatus(raw string) (TaskStatus, error) {
	s := TaskStatus(raw)
	if !s.IsValid() {
		return "", &ValidationError{Field: "status", Value: raw, Options: stringsOf(TaskStatuses())}
	}
	return s, nil
}

// TaskPriority represents how urgent a task is.
type TaskPriority string

// Task priority constants.
const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// TaskPriorities lists every valid priority from lowest to highest.
func TaskPriorities() []TaskPriority {
	return []TaskPriority{TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh}
}

// IsValid reports whether p is one of the enumerated priorities.
func (p TaskPriority) IsValid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

// ParseTaskPriority validates a raw priority value.
func ParseTaskPriority(raw string) (TaskPriority, error) {
	p := TaskPriority(raw)
	if !p.IsValid() {
		return "", &ValidationError{Field: "priority", Value: raw, Options: stringsOf(TaskPriorities())}
	}
	return p, nil
}

// Task represents a unit of work.
type Task struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	Tags        []string     `json:"tags,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// ShortID returns the first eight characters of the id, enough to feed a
// prefix lookup in practice.
func (t *Task) ShortID() string {
	if len(t.ID) <= 8 {
		return t.ID
	}
	return t.ID[:8]
}

// IsHighPriority returns true if the task has high priority.
func (t *Task) IsHighPriority() bool {
	return t.Priority == TaskPriorityHigh
}

// HasTag reports whether the task carries tag (exact match after trimming).
func (t *Task) HasTag(tag string) bool {
	tag = strings.TrimSpace(tag)
	for _, have := range t.Tags {
		if have == tag {
			return true
		}
	}
	return false
}

// Age returns the elapsed time between the task's creation and now.
func (t *Task) Age(now time.Time) time.Duration {
	return now.Sub(t.CreatedAt)
}

// String renders the one-line form used by listings.
func (t *Task) String() string {
	return "[" + strings.ToUpper(string(t.Status)) + "] " + t.Title + " (ID: " + t.ShortID() + ")"
}

// NormalizeTags trims, drops empties and removes duplicates while keeping
// first-seen order. Commas are not allowed inside a tag since tags are stored
// comma-joined.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, raw := range tags {
		for _, part := range strings.Split(raw, ",") {
			tag := strings.TrimSpace(part)
			if tag == "" {
				continue
			}
			if _, dup := seen[tag]; dup {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Comment is a free-text note attached to a task.
type Comment struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func stringsOf[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
