package models

import (
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusSkipped    TaskStatus = "skipped"
)

// Task is one positioned, field-scoped mowing job within a queue.
type Task struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	QueueID     uuid.UUID  `json:"queue_id" gorm:"type:uuid;index;not null"`
	FieldID     int        `json:"field_id" gorm:"not null"`
	Position    int        `json:"position" gorm:"not null"`
	Status      TaskStatus `json:"status" gorm:"size:20;default:pending"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Terminal reports whether the status admits no further transitions.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusSkipped
}

// CanTransitionTo reports whether moving from s to next is legal:
// pending -> in_progress -> {completed, skipped}.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	switch s {
	case TaskStatusPending:
		return next == TaskStatusInProgress
	case TaskStatusInProgress:
		return next == TaskStatusCompleted || next == TaskStatusSkipped
	default:
		return false
	}
}
