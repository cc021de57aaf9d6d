package models

import "time"

const (
	RecurrenceDaily   = "daily"
	RecurrenceWeekly  = "weekly"
	RecurrenceMonthly = "monthly"
)

const (
	StatusActive   = "active"
	StatusArchived = "archived"
)

// Task is a unit of work assigned to every active member of its project.
// Habit tasks carry a recurrence pattern and are materialized as a run of
// instances sharing title, description, pattern and interval.
type Task struct {
	ID             string
	ProjectID      string
	CreatorID      string
	Title          string
	Description    string
	DueAt          time.Time
	Habit          bool
	RecurPattern   string
	RecurInterval  int
	BaseExperience int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TaskStatus is the per-user, per-task state row. Exactly one exists for
// each (task, user) pair covered by fan-out. Recovered marks a task the
// user completed after its due date.
type TaskStatus struct {
	ID         string
	TaskID     string
	UserID     string
	State      string
	Recovered  bool
	ArchivedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CompletionLog records that a user completed a task. At most one exists
// per (task, user) pair; completing again is a no-op.
type CompletionLog struct {
	ID          string
	TaskID      string
	UserID      string
	CompletedAt time.Time
	Experience  int
	Penalized   bool
	CreatedAt   time.Time
}

func ValidRecurrence(pattern string) bool {
	return pattern == RecurrenceDaily ||
		pattern == RecurrenceWeekly ||
		pattern == RecurrenceMonthly
}
