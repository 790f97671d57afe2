package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mower-backend/internal/models"
	"mower-backend/internal/store/types"
	"mower-backend/pkg/logger"
)

const (
	machineCount = 10
	queueCount   = 100
)

var machineNames = []string{
	"Harrison", "Walker", "Fletcher", "Mercer", "Ashworth",
	"Calloway", "Dunmore", "Eastwick", "Fairburn", "Granger",
	"Holloway", "Ingram", "Kendrick", "Lockhart", "Marlowe",
}

// Run populates the store with random machines, queues and tasks for local
// development. The generated data honours the domain invariants: at most one
// active queue per machine, contiguous positions, at most one in-progress
// task per queue.
func Run(ctx context.Context, store types.Store, log *logger.Logger) error {
	l := log.GetLogger("seed")
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	machines, err := seedMachines(ctx, store, rng, l)
	if err != nil {
		return err
	}

	if err := seedQueues(ctx, store, rng, machines, l); err != nil {
		return err
	}

	return nil
}

func seedMachines(ctx context.Context, store types.Store, rng *rand.Rand, l zerolog.Logger) ([]*models.Machine, error) {
	now := time.Now()
	machines := make([]*models.Machine, 0, machineCount)
	for i := 0; i < machineCount; i++ {
		machine := &models.Machine{
			ID:        uuid.New(),
			Name:      fmt.Sprintf("Machine %s", machineNames[rng.Intn(len(machineNames))]),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := store.CreateMachine(ctx, machine); err != nil {
			return nil, fmt.Errorf("seeding machine: %w", err)
		}
		machines = append(machines, machine)
	}

	l.Info().Int("count", len(machines)).Msg("Machines seeded")
	return machines, nil
}

func seedQueues(ctx context.Context, store types.Store, rng *rand.Rand, machines []*models.Machine, l zerolog.Logger) error {
	hasActive := make(map[uuid.UUID]bool)

	for i := 0; i < queueCount; i++ {
		machine := machines[rng.Intn(len(machines))]
		status := pickQueueStatus(rng, hasActive[machine.ID])
		if status == models.QueueStatusActive {
			hasActive[machine.ID] = true
		}

		now := time.Now()
		queue := &models.Queue{
			ID:        uuid.New(),
			MachineID: machine.ID,
			Status:    status,
			CreatedAt: now,
			UpdatedAt: now,
		}
		queue.Tasks = seedTasks(rng, queue)

		if err := store.CreateQueue(ctx, queue); err != nil {
			return fmt.Errorf("seeding queue: %w", err)
		}
	}

	l.Info().Int("count", queueCount).Msg("Queues seeded")
	return nil
}

// pickQueueStatus draws a weighted status; a machine that already owns an
// active queue never gets a second one.
func pickQueueStatus(rng *rand.Rand, machineHasActive bool) models.QueueStatus {
	roll := rng.Float64()
	if !machineHasActive {
		switch {
		case roll < 0.5:
			return models.QueueStatusActive
		case roll < 0.7:
			return models.QueueStatusPaused
		case roll < 0.8:
			return models.QueueStatusTerminated
		default:
			return models.QueueStatusCompleted
		}
	}
	switch {
	case roll < 0.3:
		return models.QueueStatusPaused
	case roll < 0.5:
		return models.QueueStatusTerminated
	default:
		return models.QueueStatusCompleted
	}
}

func seedTasks(rng *rand.Rand, queue *models.Queue) []models.Task {
	count := rng.Intn(models.MaxQueueItems + 1)
	tasks := make([]models.Task, 0, count)

	reachedInProgress := false
	for position := 0; position < count; position++ {
		var status models.TaskStatus
		roll := rng.Float64()
		switch {
		case queue.Status == models.QueueStatusCompleted:
			if roll < 0.8 {
				status = models.TaskStatusCompleted
			} else {
				status = models.TaskStatusSkipped
			}
		case reachedInProgress:
			status = models.TaskStatusPending
		case roll < 0.6:
			status = models.TaskStatusInProgress
			reachedInProgress = true
		case roll < 0.9:
			status = models.TaskStatusCompleted
		default:
			status = models.TaskStatusSkipped
		}

		now := time.Now()
		task := models.Task{
			ID:        uuid.New(),
			QueueID:   queue.ID,
			FieldID:   rng.Intn(20) + 1,
			Position:  position,
			Status:    status,
			CreatedAt: now,
		}
		if status == models.TaskStatusInProgress || status == models.TaskStatusCompleted {
			started := now.Add(-time.Duration(rng.Intn(3600)) * time.Second)
			task.StartedAt = &started
		}
		if status == models.TaskStatusCompleted {
			completed := now
			task.CompletedAt = &completed
		}
		tasks = append(tasks, task)
	}

	return tasks
}
