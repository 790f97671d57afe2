package types

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"mower-backend/internal/models"
)

// ErrNotFound is returned by lookups whose target does not exist. Stores wrap
// it with context; callers test with errors.Is.
var ErrNotFound = errors.New("not found")

// Stats is the aggregate view served by the status endpoint.
type Stats struct {
	Machines     int64 `json:"machines"`
	Queues       int64 `json:"queues"`
	ActiveQueues int64 `json:"active_queues"`
	PendingTasks int64 `json:"tasks_pending"`
}

// Store defines the persistence layer. GetQueue returns the queue aggregate
// with its tasks ordered by position; SaveQueue persists the whole aggregate
// atomically so multi-task mutations never become visible half-applied.
type Store interface {
	// Machine operations
	CreateMachine(ctx context.Context, machine *models.Machine) error
	GetMachine(ctx context.Context, id uuid.UUID) (*models.Machine, error)
	ListMachines(ctx context.Context) ([]*models.Machine, error)
	DeleteMachine(ctx context.Context, id uuid.UUID) error

	// Queue operations
	CreateQueue(ctx context.Context, queue *models.Queue) error
	GetQueue(ctx context.Context, machineID, queueID uuid.UUID) (*models.Queue, error)
	ListQueues(ctx context.Context, machineID uuid.UUID) ([]*models.Queue, error)
	// SaveQueue writes the queue row and every task it holds in a single
	// transaction, deleting the tasks named in removed.
	SaveQueue(ctx context.Context, queue *models.Queue, removed ...uuid.UUID) error
	// HasActiveQueue reports whether the machine owns an active queue other
	// than exclude (pass uuid.Nil to consider all queues).
	HasActiveQueue(ctx context.Context, machineID, exclude uuid.UUID) (bool, error)

	// User operations
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// Stats returns aggregate counts for the status endpoint.
	Stats(ctx context.Context) (*Stats, error)

	// Close releases any resources held by the store
	Close() error
}

// Config selects and configures a store backend.
type Config struct {
	Type     string         `yaml:"type"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}
