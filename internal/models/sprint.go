package models

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// SprintStatus represents where a sprint is in its lifecycle.
type SprintStatus string

// Sprint status constants.
const (
	SprintStatusPlanned    SprintStatus = "Planned"
	SprintStatusInProgress SprintStatus = "In Progress"
	SprintStatusCompleted  SprintStatus = "Completed"
	SprintStatusArchived   SprintStatus = "Archived"
)

// MaxSprintNameLen is the longest accepted sprint name, in characters.
const MaxSprintNameLen = 50

// SprintStatuses lists every valid sprint status in lifecycle order.
func SprintStatuses() []SprintStatus {
	return []SprintStatus{SprintStatusPlanned, SprintStatusInProgress, SprintStatusCompleted, SprintStatusArchived}
}

// IsValid reports whether s is one of the enumerated statuses.
func (s SprintStatus) IsValid() bool {
	switch s {
	case SprintStatusPlanned, SprintStatusInProgress, SprintStatusCompleted, SprintStatusArchived:
		return true
	}
	return false
}

// ParseSprintStatus validates a raw sprint status value.
func ParseSprintStatus(raw string) (SprintStatus, error) {
	s := SprintStatus(raw)
	if !s.IsValid() {
		return "", &ValidationError{Field: "sprint status", Value: raw, Options: stringsOf(SprintStatuses())}
	}
	return s, nil
}

// NormalizeSprintName trims name and checks it is 1-50 characters long.
func NormalizeSprintName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", &ValidationError{Field: "sprint name", Value: name, Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(trimmed) > MaxSprintNameLen {
		return "", &ValidationError{
			Field:  "sprint name",
			Value:  name,
			Reason: "must be at most " + strconv.Itoa(MaxSprintNameLen) + " characters",
		}
	}
	return trimmed, nil
}

// Sprint is a named, time-boxed collection of tasks. Lifecycle transitions
// here only touch memory; store.SprintRepo persists them.
type Sprint struct {
	Name      string       `json:"name"`
	Status    SprintStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	Tasks     []*Task      `json:"tasks"`
}

// NewSprint returns a Planned sprint after validating name.
func NewSprint(name string, now time.Time) (*Sprint, error) {
	n, err := NormalizeSprintName(name)
	if err != nil {
		return nil, err
	}
	return &Sprint{Name: n, Status: SprintStatusPlanned, CreatedAt: now}, nil
}

// SetStatus assigns any enumerated status; the transition graph is not enforced.
func (s *Sprint) SetStatus(raw string) error {
	st, err := ParseSprintStatus(raw)
	if err != nil {
		return err
	}
	s.Status = st
	return nil
}

// Start moves a Planned sprint to In Progress. Starting a running sprint is a no-op.
func (s *Sprint) Start() error {
	switch s.Status {
	case SprintStatusPlanned:
		s.Status = SprintStatusInProgress
		return nil
	case SprintStatusInProgress:
		return nil
	}
	return s.transitionError("start")
}

// Complete moves an In Progress sprint to Completed. Completing twice is a no-op.
func (s *Sprint) Complete() error {
	switch s.Status {
	case SprintStatusInProgress:
		s.Status = SprintStatusCompleted
		return nil
	case SprintStatusCompleted:
		return nil
	}
	return s.transitionError("complete")
}

// Archive moves the sprint to Archived from any state.
func (s *Sprint) Archive() {
	s.Status = SprintStatusArchived
}

func (s *Sprint) transitionError(action string) error {
	return &ValidationError{
		Field:  "sprint status",
		Value:  string(s.Status),
		Reason: "cannot " + action + " sprint " + strconv.Quote(s.Name),
	}
}

// HasTask reports whether a task with id is a member.
func (s *Sprint) HasTask(id string) bool {
	return s.indexOf(id) >= 0
}

// Append adds t unless a member with the same id exists. It reports whether
// t was added.
func (s *Sprint) Append(t *Task) bool {
	if s.HasTask(t.ID) {
		return false
	}
	s.Tasks = append(s.Tasks, t)
	return true
}

// Remove drops the member with id and reports whether one was found.
func (s *Sprint) Remove(id string) bool {
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.Tasks = append(s.Tasks[:i], s.Tasks[i+1:]...)
	return true
}

// TasksByStatus returns members with the given status.
func (s *Sprint) TasksByStatus(status string) ([]*Task, error) {
	st, err := ParseTaskStatus(status)
	if err != nil {
		return nil, err
	}
	return FilterByStatus(s.Tasks, st), nil
}

// TasksByPriority returns members with the given priority.
func (s *Sprint) TasksByPriority(priority string) ([]*Task, error) {
	p, err := ParseTaskPriority(priority)
	if err != nil {
		return nil, err
	}
	return FilterByPriority(s.Tasks, p), nil
}

// SearchTasks matches query against member titles and descriptions.
func (s *Sprint) SearchTasks(query string) []*Task {
	return SearchTasks(s.Tasks, query)
}

// CountTasksByPriority returns a per-priority member count.
func (s *Sprint) CountTasksByPriority() map[TaskPriority]int {
	return CountByPriority(s.Tasks)
}

// GroupTasksByStatus buckets members by status.
func (s *Sprint) GroupTasksByStatus() map[TaskStatus][]*Task {
	return GroupByStatus(s.Tasks)
}

// Statistics summarizes the sprint's progress.
func (s *Sprint) Statistics() Statistics {
	return ComputeStatistics(s.Tasks)
}

func (s *Sprint) String() string {
	return "<Sprint " + s.Name + ": " + itoa(len(s.Tasks)) + " tasks, " + string(s.Status) + ">"
}

func (s *Sprint) indexOf(id string) int {
	for i, t := range s.Tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func itoa(n int) string { return strconv.Itoa(n) }
