package models

// Backlog is the ordered pool of tasks not yet scheduled into a sprint.
// Membership changes go through store.BacklogRepo so the join table stays in
// step with Tasks.
type Backlog struct {
	Tasks []*Task `json:"tasks"`
}

// Has reports whether a task with id is a member.
func (b *Backlog) Has(id string) bool {
	return b.indexOf(id) >= 0
}

// GetTask returns the member with id.
func (b *Backlog) GetTask(id string) (*Task, error) {
	i := b.indexOf(id)
	if i < 0 {
		return nil, &NotFoundError{Entity: "backlog task", Key: id}
	}
	return b.Tasks[i], nil
}

// Len returns the number of members.
func (b *Backlog) Len() int {
	return len(b.Tasks)
}

// Append adds t unless a member with the same id exists. It reports whether
// t was added.
func (b *Backlog) Append(t *Task) bool {
	if b.Has(t.ID) {
		return false
	}
	b.Tasks = append(b.Tasks, t)
	return true
}

// Remove drops the member with id and reports whether one was found.
func (b *Backlog) Remove(id string) bool {
	i := b.indexOf(id)
	if i < 0 {
		return false
	}
	b.Tasks = append(b.Tasks[:i], b.Tasks[i+1:]...)
	return true
}

// Reset empties the in-memory sequence.
func (b *Backlog) Reset() {
	b.Tasks = nil
}

// ListByStatus returns members with the given status.
func (b *Backlog) ListByStatus(status string) ([]*Task, error) {
	s, err := ParseTaskStatus(status)
	if err != nil {
		return nil, err
	}
	return FilterByStatus(b.Tasks, s), nil
}

// ListByPriority returns members with the given priority.
func (b *Backlog) ListByPriority(priority string) ([]*Task, error) {
	p, err := ParseTaskPriority(priority)
	if err != nil {
		return nil, err
	}
	return FilterByPriority(b.Tasks, p), nil
}

// FindByTag returns members tagged with tag.
func (b *Backlog) FindByTag(tag string) []*Task {
	return FilterByTag(b.Tasks, tag)
}

// CountByStatus returns a per-status member count.
func (b *Backlog) CountByStatus() map[TaskStatus]int {
	return CountByStatus(b.Tasks)
}

func (b *Backlog) String() string {
	return "<Backlog: " + itoa(len(b.Tasks)) + " tasks pending>"
}

func (b *Backlog) indexOf(id string) int {
	for i, t := range b.Tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
