package model

import "time"

// TaskPriority is the urgency of a task.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// TaskStatus is where a task stands. Any status may move to any other.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in-progress"
	StatusCompleted  TaskStatus = "completed"
)

// Task is a unit of work inside a project, assigned to a contributor by the
// project owner. DueDate is an optional calendar date (YYYY-MM-DD).
type Task struct {
	ID          string       `json:"id"`
	ProjectID   string       `json:"projectId"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Assignee    string       `json:"assignee"`
	Priority    TaskPriority `json:"priority"`
	Status      TaskStatus   `json:"status"`
	DueDate     string       `json:"dueDate,omitempty"`
	CreatedBy   string       `json:"createdBy"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// TaskPatch is a partial update. A nil field leaves the stored value alone;
// an empty DueDate clears the due date.
type TaskPatch struct {
	Title       *string       `json:"title,omitempty" validate:"omitnil,min=1,max=200"`
	Description *string       `json:"description,omitempty"`
	Assignee    *string       `json:"assignee,omitempty" validate:"omitnil,min=1"`
	Priority    *TaskPriority `json:"priority,omitempty" validate:"omitnil,oneof=low medium high"`
	Status      *TaskStatus   `json:"status,omitempty" validate:"omitnil,oneof=pending in-progress completed"`
	DueDate     *string       `json:"dueDate,omitempty" validate:"omitzero,datetime=2006-01-02"`
}

// Apply merges the supplied fields onto t.
func (tp TaskPatch) Apply(t *Task) {
	if tp.Title != nil {
		t.Title = *tp.Title
	}
	if tp.Description != nil {
		t.Description = *tp.Description
	}
	if tp.Assignee != nil {
		t.Assignee = *tp.Assignee
	}
	if tp.Priority != nil {
		t.Priority = *tp.Priority
	}
	if tp.Status != nil {
		t.Status = *tp.Status
	}
	if tp.DueDate != nil {
		t.DueDate = *tp.DueDate
	}
}
