package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"mower-backend/internal/models"
	"mower-backend/internal/store/types"
)

// Store is an in-memory implementation used for tests and development.
// Aggregates are copied on the way in and out, so a caller mutating a
// returned queue changes nothing until it calls SaveQueue.
type Store struct {
	machines map[uuid.UUID]*models.Machine
	queues   map[uuid.UUID]*models.Queue
	users    map[string]*models.User
	mu       sync.RWMutex
}

func NewStore() *Store {
	return &Store{
		machines: make(map[uuid.UUID]*models.Machine),
		queues:   make(map[uuid.UUID]*models.Queue),
		users:    make(map[string]*models.User),
	}
}

func copyQueue(q *models.Queue) *models.Queue {
	c := *q
	c.Tasks = make([]models.Task, len(q.Tasks))
	copy(c.Tasks, q.Tasks)
	sort.Slice(c.Tasks, func(i, j int) bool { return c.Tasks[i].Position < c.Tasks[j].Position })
	return &c
}

// Machine operations

func (s *Store) CreateMachine(ctx context.Context, machine *models.Machine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := *machine
	s.machines[m.ID] = &m
	return nil
}

func (s *Store) GetMachine(ctx context.Context, id uuid.UUID) (*models.Machine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	machine, exists := s.machines[id]
	if !exists {
		return nil, fmt.Errorf("machine %s: %w", id, types.ErrNotFound)
	}
	m := *machine
	return &m, nil
}

func (s *Store) ListMachines(ctx context.Context) ([]*models.Machine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	machines := make([]*models.Machine, 0, len(s.machines))
	for _, machine := range s.machines {
		m := *machine
		machines = append(machines, &m)
	}
	sort.Slice(machines, func(i, j int) bool {
		return machines[i].CreatedAt.Before(machines[j].CreatedAt)
	})
	return machines, nil
}

func (s *Store) DeleteMachine(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.machines[id]; !exists {
		return fmt.Errorf("machine %s: %w", id, types.ErrNotFound)
	}
	delete(s.machines, id)
	// Cascade to owned queues.
	for qid, q := range s.queues {
		if q.MachineID == id {
			delete(s.queues, qid)
		}
	}
	return nil
}

// Queue operations

func (s *Store) CreateQueue(ctx context.Context, queue *models.Queue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.machines[queue.MachineID]; !exists {
		return fmt.Errorf("machine %s: %w", queue.MachineID, types.ErrNotFound)
	}
	s.queues[queue.ID] = copyQueue(queue)
	return nil
}

func (s *Store) GetQueue(ctx context.Context, machineID, queueID uuid.UUID) (*models.Queue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	queue, exists := s.queues[queueID]
	if !exists || queue.MachineID != machineID {
		return nil, fmt.Errorf("queue %s on machine %s: %w", queueID, machineID, types.ErrNotFound)
	}
	return copyQueue(queue), nil
}

func (s *Store) ListQueues(ctx context.Context, machineID uuid.UUID) ([]*models.Queue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var queues []*models.Queue
	for _, queue := range s.queues {
		if queue.MachineID == machineID {
			queues = append(queues, copyQueue(queue))
		}
	}
	sort.Slice(queues, func(i, j int) bool {
		return queues[i].CreatedAt.Before(queues[j].CreatedAt)
	})
	return queues, nil
}

func (s *Store) SaveQueue(ctx context.Context, queue *models.Queue, removed ...uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.queues[queue.ID]; !exists {
		return fmt.Errorf("queue %s: %w", queue.ID, types.ErrNotFound)
	}
	s.queues[queue.ID] = copyQueue(queue)
	return nil
}

func (s *Store) HasActiveQueue(ctx context.Context, machineID, exclude uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, queue := range s.queues {
		if queue.MachineID == machineID && queue.ID != exclude && queue.Status == models.QueueStatusActive {
			return true, nil
		}
	}
	return false, nil
}

// User operations

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[user.Username]; exists {
		return fmt.Errorf("username %s already exists", user.Username)
	}
	u := *user
	s.users[u.Username] = &u
	return nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, exists := s.users[username]
	if !exists {
		return nil, fmt.Errorf("user %s: %w", username, types.ErrNotFound)
	}
	u := *user
	return &u, nil
}

func (s *Store) Stats(ctx context.Context) (*types.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := &types.Stats{Machines: int64(len(s.machines)), Queues: int64(len(s.queues))}
	for _, queue := range s.queues {
		if queue.Status == models.QueueStatusActive {
			stats.ActiveQueues++
		}
		for _, task := range queue.Tasks {
			if task.Status == models.TaskStatusPending {
				stats.PendingTasks++
			}
		}
	}
	return stats, nil
}

func (s *Store) Close() error {
	return nil
}
