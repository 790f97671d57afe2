package gormstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"mower-backend/internal/models"
	"mower-backend/internal/store/types"
)

// Store is the GORM-backed implementation, shared by the SQLite and
// PostgreSQL dialectors.
type Store struct {
	db *gorm.DB
}

// NewSQLiteStore opens (and migrates) a SQLite database at cfg.Path.
func NewSQLiteStore(cfg types.SQLiteConfig) (*Store, error) {
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	return newStore(sqlite.Open(cfg.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"))
}

// NewPostgresStore opens (and migrates) a PostgreSQL database.
func NewPostgresStore(cfg types.PostgresConfig) (*Store, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		cfg.Host, cfg.User, cfg.Password, cfg.DBName, cfg.Port, cfg.SSLMode)
	return newStore(postgres.Open(dsn))
}

func newStore(dialector gorm.Dialector) (*Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.AutoMigrate(&models.Machine{}, &models.Queue{}, &models.Task{}, &models.User{}); err != nil {
		return nil, fmt.Errorf("auto migrating tables: %w", err)
	}

	return &Store{db: db}, nil
}

// Machine operations

func (s *Store) CreateMachine(ctx context.Context, machine *models.Machine) error {
	if result := s.db.WithContext(ctx).Create(machine); result.Error != nil {
		return fmt.Errorf("inserting machine: %w", result.Error)
	}
	return nil
}

func (s *Store) GetMachine(ctx context.Context, id uuid.UUID) (*models.Machine, error) {
	var machine models.Machine
	result := s.db.WithContext(ctx).First(&machine, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("machine %s: %w", id, types.ErrNotFound)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("querying machine: %w", result.Error)
	}
	return &machine, nil
}

func (s *Store) ListMachines(ctx context.Context) ([]*models.Machine, error) {
	var machines []*models.Machine
	result := s.db.WithContext(ctx).Order("created_at").Find(&machines)
	if result.Error != nil {
		return nil, fmt.Errorf("querying machines: %w", result.Error)
	}
	return machines, nil
}

// DeleteMachine removes the machine and cascades to its queues and tasks.
// The cascade is done explicitly so it holds regardless of whether the
// driver enforces foreign keys.
func (s *Store) DeleteMachine(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&models.Machine{}, "id = ?", id)
		if result.Error != nil {
			return fmt.Errorf("deleting machine: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("machine %s: %w", id, types.ErrNotFound)
		}
		sub := tx.Model(&models.Queue{}).Select("id").Where("machine_id = ?", id)
		if err := tx.Where("queue_id IN (?)", sub).Delete(&models.Task{}).Error; err != nil {
			return fmt.Errorf("deleting tasks: %w", err)
		}
		if err := tx.Where("machine_id = ?", id).Delete(&models.Queue{}).Error; err != nil {
			return fmt.Errorf("deleting queues: %w", err)
		}
		return nil
	})
}

// Queue operations

func (s *Store) CreateQueue(ctx context.Context, queue *models.Queue) error {
	if result := s.db.WithContext(ctx).Create(queue); result.Error != nil {
		return fmt.Errorf("inserting queue: %w", result.Error)
	}
	return nil
}

func (s *Store) GetQueue(ctx context.Context, machineID, queueID uuid.UUID) (*models.Queue, error) {
	var queue models.Queue
	result := s.db.WithContext(ctx).
		Preload("Tasks", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		First(&queue, "id = ? AND machine_id = ?", queueID, machineID)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("queue %s on machine %s: %w", queueID, machineID, types.ErrNotFound)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("querying queue: %w", result.Error)
	}
	return &queue, nil
}

func (s *Store) ListQueues(ctx context.Context, machineID uuid.UUID) ([]*models.Queue, error) {
	var queues []*models.Queue
	result := s.db.WithContext(ctx).
		Preload("Tasks", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Where("machine_id = ?", machineID).
		Order("created_at").
		Find(&queues)
	if result.Error != nil {
		return nil, fmt.Errorf("querying queues: %w", result.Error)
	}
	return queues, nil
}

func (s *Store) SaveQueue(ctx context.Context, queue *models.Queue, removed ...uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(removed) > 0 {
			result := tx.Where("queue_id = ? AND id IN ?", queue.ID, removed).Delete(&models.Task{})
			if result.Error != nil {
				return fmt.Errorf("deleting tasks: %w", result.Error)
			}
		}

		result := tx.Omit(clause.Associations).Save(queue)
		if result.Error != nil {
			return fmt.Errorf("saving queue: %w", result.Error)
		}

		// Upsert tasks highest position first so shifts never collide with
		// an existing position.
		tasks := make([]models.Task, len(queue.Tasks))
		copy(tasks, queue.Tasks)
		sort.Slice(tasks, func(i, j int) bool { return tasks[i].Position > tasks[j].Position })
		for i := range tasks {
			result := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&tasks[i])
			if result.Error != nil {
				return fmt.Errorf("saving task %s: %w", tasks[i].ID, result.Error)
			}
		}
		return nil
	})
}

func (s *Store) HasActiveQueue(ctx context.Context, machineID, exclude uuid.UUID) (bool, error) {
	var count int64
	result := s.db.WithContext(ctx).Model(&models.Queue{}).
		Where("machine_id = ? AND status = ? AND id <> ?", machineID, models.QueueStatusActive, exclude).
		Count(&count)
	if result.Error != nil {
		return false, fmt.Errorf("counting active queues: %w", result.Error)
	}
	return count > 0, nil
}

// User operations

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if result := s.db.WithContext(ctx).Create(user); result.Error != nil {
		return fmt.Errorf("inserting user: %w", result.Error)
	}
	return nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	result := s.db.WithContext(ctx).First(&user, "username = ?", username)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %s: %w", username, types.ErrNotFound)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("querying user: %w", result.Error)
	}
	return &user, nil
}

func (s *Store) Stats(ctx context.Context) (*types.Stats, error) {
	db := s.db.WithContext(ctx)
	stats := &types.Stats{}

	if err := db.Model(&models.Machine{}).Count(&stats.Machines).Error; err != nil {
		return nil, fmt.Errorf("counting machines: %w", err)
	}
	if err := db.Model(&models.Queue{}).Count(&stats.Queues).Error; err != nil {
		return nil, fmt.Errorf("counting queues: %w", err)
	}
	if err := db.Model(&models.Queue{}).
		Where("status = ?", models.QueueStatusActive).
		Count(&stats.ActiveQueues).Error; err != nil {
		return nil, fmt.Errorf("counting active queues: %w", err)
	}
	if err := db.Model(&models.Task{}).
		Where("status = ?", models.TaskStatusPending).
		Count(&stats.PendingTasks).Error; err != nil {
		return nil, fmt.Errorf("counting pending tasks: %w", err)
	}
	return stats, nil
}

func (s *Store) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
