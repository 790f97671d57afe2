package models

import (
	"time"

	"github.com/google/uuid"
)

// Machine is an autonomous mowing unit. It owns zero or more queues; deleting
// a machine cascades to its queues and their tasks.
type Machine struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name      string    `json:"name" gorm:"size:50;not null"`
	Queues    []Queue   `json:"-" gorm:"foreignKey:MachineID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
