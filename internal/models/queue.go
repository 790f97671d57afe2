package models

import (
	"time"

	"github.com/google/uuid"
)

type QueueStatus string

const (
	QueueStatusActive     QueueStatus = "active"
	QueueStatusPaused     QueueStatus = "paused"
	QueueStatusTerminated QueueStatus = "terminated"
	QueueStatusCompleted  QueueStatus = "completed"
)

// MaxQueueItems is the hard cap on tasks per queue.
const MaxQueueItems = 10

// Queue is the ordered worklist of mowing tasks owned by one machine.
// Task positions are contiguous from 0 and at most one task is in progress.
type Queue struct {
	ID        uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey"`
	MachineID uuid.UUID   `json:"machine_id" gorm:"type:uuid;index;not null"`
	Status    QueueStatus `json:"status" gorm:"size:20;default:active"`
	Tasks     []Task      `json:"items" gorm:"foreignKey:QueueID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// CurrentTask returns the lowest-positioned in-progress task, or nil.
func (q *Queue) CurrentTask() *Task {
	for i := range q.Tasks {
		if q.Tasks[i].Status == TaskStatusInProgress {
			return &q.Tasks[i]
		}
	}
	return nil
}

// TaskByID returns the owned task with the given id, or nil.
func (q *Queue) TaskByID(id uuid.UUID) *Task {
	for i := range q.Tasks {
		if q.Tasks[i].ID == id {
			return &q.Tasks[i]
		}
	}
	return nil
}
