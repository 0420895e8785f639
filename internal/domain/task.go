package domain

import "time"

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	// TaskStatusPending is the initial state of a new task.
	TaskStatusPending TaskStatus = "PENDING"
	// TaskStatusInProgress marks a task someone has started working on.
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	// TaskStatusCompleted marks a finished task. CompletedAt is set if and
	// only if the task is in this state.
	TaskStatusCompleted TaskStatus = "COMPLETED"
	// TaskStatusOverdue marks a task whose due date passed without completion.
	TaskStatusOverdue TaskStatus = "OVERDUE"
)

// IsValid reports whether s is one of the known task statuses.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusOverdue:
		return true
	}
	return false
}

// Task belongs to exactly one creator and optionally one workroom.
type Task struct {
	Entity
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category,omitempty"`
	Status      TaskStatus `json:"status"`
	CreatedByID string     `json:"created_by_id"`
	WorkroomID  string     `json:"workroom_id,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// IsCompleted reports whether the task has been completed.
func (t *Task) IsCompleted() bool {
	return t.Status == TaskStatusCompleted
}

// Complete transitions the task to COMPLETED and stamps the completion time.
func (t *Task) Complete(at time.Time) {
	t.Status = TaskStatusCompleted
	t.CompletedAt = &at
	t.UpdatedAt = at
}

// OnTime reports whether a completed task beat its due date.
// Tasks without a due date are always on time.
func (t *Task) OnTime() bool {
	if t.DueDate == nil {
		return true
	}
	if t.CompletedAt == nil {
		return false
	}
	return !t.CompletedAt.After(*t.DueDate)
}

// TaskCollaborator links an invited user to a task.
// InvitedByID records who sent the invite; invites from someone other than
// the collaborator themselves earn extra team-player points.
type TaskCollaborator struct {
	TaskID      string    `json:"task_id"`
	UserID      string    `json:"user_id"`
	InvitedByID string    `json:"invited_by_id"`
	CreatedAt   time.Time `json:"created_at"`
}
