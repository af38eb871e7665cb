package model

import "time"

type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusDone       TaskStatus = "done"
	StatusArchived   TaskStatus = "archived"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone, StatusArchived:
		return true
	}
	return false
}

type TaskPriority string

const (
	PriorityNone   TaskPriority = "none"
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityNone, PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Task is a to-do item. ProjectID and BoardID are nil for personal tasks
// that live outside any project.
type Task struct {
	ID          int64        `json:"id"          db:"id"`
	Title       string       `json:"title"       db:"title"`
	Description string       `json:"description" db:"description"`
	Status      TaskStatus   `json:"status"      db:"status"`
	Priority    TaskPriority `json:"priority"    db:"priority"`
	DueDate     *time.Time   `json:"dueDate"     db:"due_date"`
	ProjectID   *int64       `json:"projectId"   db:"project_id"`
	BoardID     *int64       `json:"boardId"     db:"board_id"`
	Position    int          `json:"position"    db:"position"`
	AssigneeID  *int64       `json:"assigneeId"  db:"assignee_id"`
	CreatedBy   int64        `json:"createdBy"   db:"created_by"`
	CompletedAt *time.Time   `json:"completedAt" db:"completed_at"`
	CreatedAt   time.Time    `json:"createdAt"   db:"created_at"`
	UpdatedAt   time.Time    `json:"updatedAt"   db:"updated_at"`

	Tags []Tag `json:"tags" db:"-"`
}

// SetStatus keeps CompletedAt in step with the status: stamped on the
// transition into done, cleared on any other status.
func (t *Task) SetStatus(s TaskStatus, now time.Time) {
	if s == StatusDone {
		if t.Status != StatusDone || t.CompletedAt == nil {
			t.CompletedAt = &now
		}
	} else {
		t.CompletedAt = nil
	}
	t.Status = s
}
