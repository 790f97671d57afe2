package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mower-backend/internal/dispatch"
	"mower-backend/internal/models"
	"mower-backend/internal/store/types"
	"mower-backend/pkg/logger"
)

// QueueService owns the queue state machine. Every operation that reads and
// then writes a queue runs under that queue's mutex, so the two call sources
// (operator commands and machine telemetry) can never interleave on the same
// queue. The dispatcher is only ever invoked after the mutation has been
// persisted and the lock released; delivery is best-effort and a lost command
// is reconciled by the machine, not here.
type QueueService struct {
	store      types.Store
	dispatcher dispatch.Dispatcher
	log        zerolog.Logger
	locks      *queueLocks
}

func NewQueueService(store types.Store, dispatcher dispatch.Dispatcher, logger *logger.Logger) *QueueService {
	return &QueueService{
		store:      store,
		dispatcher: dispatcher,
		log:        logger.GetLogger("queue-service"),
		locks:      newQueueLocks(),
	}
}

// ListQueues returns all queues owned by the machine.
func (s *QueueService) ListQueues(ctx context.Context, machineID uuid.UUID) ([]*models.Queue, error) {
	if _, err := s.store.GetMachine(ctx, machineID); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrMachineNotFound, machineID)
		}
		return nil, err
	}
	return s.store.ListQueues(ctx, machineID)
}

// GetQueue returns the queue aggregate with tasks ordered by position.
func (s *QueueService) GetQueue(ctx context.Context, machineID, queueID uuid.UUID) (*models.Queue, error) {
	queue, err := s.store.GetQueue(ctx, machineID, queueID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrQueueNotFound, queueID)
		}
		return nil, err
	}
	return queue, nil
}

// CreateQueue atomically creates an active queue with one pending task per
// field id, in the given order. The capacity cap is enforced here, not just
// at the HTTP boundary, so no caller can create an oversized queue.
func (s *QueueService) CreateQueue(ctx context.Context, machineID uuid.UUID, fieldIDs []int) (*models.Queue, error) {
	if _, err := s.store.GetMachine(ctx, machineID); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrMachineNotFound, machineID)
		}
		return nil, err
	}

	if len(fieldIDs) > models.MaxQueueItems {
		return nil, ErrQueueFull
	}

	active, err := s.store.HasActiveQueue(ctx, machineID, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, ErrActiveQueueExists
	}

	now := time.Now()
	queue := &models.Queue{
		ID:        uuid.New(),
		MachineID: machineID,
		Status:    models.QueueStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i, fieldID := range fieldIDs {
		queue.Tasks = append(queue.Tasks, models.Task{
			ID:        uuid.New(),
			QueueID:   queue.ID,
			FieldID:   fieldID,
			Position:  i,
			Status:    models.TaskStatusPending,
			CreatedAt: now,
		})
	}

	if err := s.store.CreateQueue(ctx, queue); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("queue_id", queue.ID.String()).
		Str("machine_id", machineID.String()).
		Int("items", len(queue.Tasks)).
		Msg("Queue created")
	return queue, nil
}

// AddItem inserts a new pending task at position (append when nil), shifting
// every task at or after the insertion point up by one.
func (s *QueueService) AddItem(ctx context.Context, machineID, queueID uuid.UUID, fieldID int, position *int) (*models.Task, error) {
	unlock := s.locks.lock(queueID)
	defer unlock()

	queue, err := s.GetQueue(ctx, machineID, queueID)
	if err != nil {
		return nil, err
	}

	count := len(queue.Tasks)
	pos := count
	if position != nil {
		pos = *position
	}

	switch {
	case pos < 0:
		return nil, ErrPositionOutOfRange
	case pos >= models.MaxQueueItems || count >= models.MaxQueueItems:
		return nil, ErrQueueFull
	case pos > count:
		return nil, ErrPositionGap
	}

	// Shift highest positions first so the set stays duplicate-free.
	sort.Slice(queue.Tasks, func(i, j int) bool { return queue.Tasks[i].Position > queue.Tasks[j].Position })
	for i := range queue.Tasks {
		if queue.Tasks[i].Position >= pos {
			queue.Tasks[i].Position++
		}
	}

	now := time.Now()
	task := models.Task{
		ID:        uuid.New(),
		QueueID:   queue.ID,
		FieldID:   fieldID,
		Position:  pos,
		Status:    models.TaskStatusPending,
		CreatedAt: now,
	}
	queue.Tasks = append(queue.Tasks, task)
	queue.UpdatedAt = now

	if err := s.store.SaveQueue(ctx, queue); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("queue_id", queueID.String()).
		Str("task_id", task.ID.String()).
		Int("field_id", fieldID).
		Int("position", pos).
		Msg("Item added to queue")
	return &task, nil
}

// RemoveItems deletes the named tasks and renumbers the remainder into the
// contiguous range starting at 0, preserving relative order. If any id does
// not belong to the queue, nothing is removed.
func (s *QueueService) RemoveItems(ctx context.Context, machineID, queueID uuid.UUID, taskIDs []uuid.UUID) error {
	unlock := s.locks.lock(queueID)
	defer unlock()

	queue, err := s.GetQueue(ctx, machineID, queueID)
	if err != nil {
		return err
	}

	removing := make(map[uuid.UUID]bool, len(taskIDs))
	for _, id := range taskIDs {
		if queue.TaskByID(id) == nil {
			return fmt.Errorf("%w: %s", ErrUnknownTask, id)
		}
		removing[id] = true
	}

	var remaining []models.Task
	for _, task := range queue.Tasks {
		if !removing[task.ID] {
			remaining = append(remaining, task)
		}
	}
	sort.Slice(remaining, func(i, j int) bool { return remaining[i].Position < remaining[j].Position })
	for i := range remaining {
		remaining[i].Position = i
	}
	queue.Tasks = remaining
	queue.UpdatedAt = time.Now()

	if err := s.store.SaveQueue(ctx, queue, taskIDs...); err != nil {
		return err
	}

	s.log.Info().
		Str("queue_id", queueID.String()).
		Int("removed", len(removing)).
		Int("remaining", len(remaining)).
		Msg("Items removed from queue")
	return nil
}

// Advance completes the previous task (when given and not already terminal),
// promotes the next eligible task to in_progress, and marks the queue
// completed when nothing eligible remains. A nil task return with nil error
// is the normal terminal outcome, not a failure.
func (s *QueueService) Advance(ctx context.Context, machineID, queueID uuid.UUID, ts time.Time, previousTaskID *uuid.UUID) (*models.Task, *models.Queue, error) {
	unlock := s.locks.lock(queueID)
	defer unlock()

	queue, err := s.GetQueue(ctx, machineID, queueID)
	if err != nil {
		return nil, nil, err
	}

	task, changed := s.advanceLocked(queue, ts, previousTaskID)
	if changed {
		if err := s.store.SaveQueue(ctx, queue); err != nil {
			return nil, nil, err
		}
	}
	return task, queue, nil
}

// advanceLocked applies the advance transition to the in-memory aggregate and
// reports whether anything changed. Callers hold the queue lock and persist.
func (s *QueueService) advanceLocked(queue *models.Queue, ts time.Time, previousTaskID *uuid.UUID) (*models.Task, bool) {
	changed := false

	if previousTaskID != nil {
		// A stale or duplicate report naming an unknown or already-terminal
		// task is tolerated as a no-op.
		if prev := queue.TaskByID(*previousTaskID); prev != nil && !prev.Status.Terminal() {
			completedAt := ts
			prev.Status = models.TaskStatusCompleted
			prev.CompletedAt = &completedAt
			changed = true
		}
	}

	sort.Slice(queue.Tasks, func(i, j int) bool { return queue.Tasks[i].Position < queue.Tasks[j].Position })

	var next *models.Task
	for i := range queue.Tasks {
		status := queue.Tasks[i].Status
		if status == models.TaskStatusPending || status == models.TaskStatusInProgress {
			next = &queue.Tasks[i]
			break
		}
	}

	if next == nil {
		if queue.Status != models.QueueStatusCompleted {
			queue.Status = models.QueueStatusCompleted
			queue.UpdatedAt = time.Now()
			changed = true
			s.log.Info().Str("queue_id", queue.ID.String()).Msg("Queue completed")
		}
		return nil, changed
	}

	if next.Status != models.TaskStatusInProgress {
		startedAt := ts
		next.Status = models.TaskStatusInProgress
		next.StartedAt = &startedAt
		changed = true
	}
	return next, changed
}

// SetStatus writes the queue status only when it differs from the current
// one. Transitions into active are rejected while a sibling queue is active.
func (s *QueueService) SetStatus(ctx context.Context, machineID, queueID uuid.UUID, status models.QueueStatus) (*models.Queue, error) {
	unlock := s.locks.lock(queueID)
	defer unlock()

	return s.setStatusLocked(ctx, machineID, queueID, status)
}

func (s *QueueService) setStatusLocked(ctx context.Context, machineID, queueID uuid.UUID, status models.QueueStatus) (*models.Queue, error) {
	queue, err := s.GetQueue(ctx, machineID, queueID)
	if err != nil {
		return nil, err
	}

	if queue.Status == status {
		return queue, nil
	}

	if status == models.QueueStatusActive {
		active, err := s.store.HasActiveQueue(ctx, machineID, queueID)
		if err != nil {
			return nil, err
		}
		if active {
			return nil, ErrActiveQueueExists
		}
	}

	queue.Status = status
	queue.UpdatedAt = time.Now()
	if err := s.store.SaveQueue(ctx, queue); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("queue_id", queueID.String()).
		Str("status", string(status)).
		Msg("Queue status changed")
	return queue, nil
}

// Start activates the queue and promotes its next task, instructing the
// machine to begin mowing it. ErrNoItemsLeft is returned when nothing
// eligible remains (the queue is then marked completed by the advance).
func (s *QueueService) Start(ctx context.Context, machineID, queueID uuid.UUID) (*models.Queue, *models.Task, error) {
	task, queue, err := s.start(ctx, machineID, queueID)
	if err != nil {
		return nil, nil, err
	}
	if task == nil {
		return queue, nil, ErrNoItemsLeft
	}

	s.dispatcher.Send(ctx, dispatch.Command{
		Command: dispatch.CommandStartMowing,
		FieldID: task.ID.String(),
		QueueID: queue.ID.String(),
	})
	return queue, task, nil
}

func (s *QueueService) start(ctx context.Context, machineID, queueID uuid.UUID) (*models.Task, *models.Queue, error) {
	unlock := s.locks.lock(queueID)
	defer unlock()

	queue, err := s.GetQueue(ctx, machineID, queueID)
	if err != nil {
		return nil, nil, err
	}

	changed := false
	if queue.Status != models.QueueStatusActive {
		active, err := s.store.HasActiveQueue(ctx, machineID, queueID)
		if err != nil {
			return nil, nil, err
		}
		if active {
			return nil, nil, ErrActiveQueueExists
		}
		queue.Status = models.QueueStatusActive
		queue.UpdatedAt = time.Now()
		changed = true
	}

	task, advanced := s.advanceLocked(queue, time.Now(), nil)
	if changed || advanced {
		if err := s.store.SaveQueue(ctx, queue); err != nil {
			return nil, nil, err
		}
	}
	return task, queue, nil
}

// Pause stops further automatic advancement. The in-flight task keeps its
// state; the paused status is what prevents telemetry from dispatching the
// next task.
func (s *QueueService) Pause(ctx context.Context, machineID, queueID uuid.UUID) (*models.Queue, error) {
	queue, err := s.SetStatus(ctx, machineID, queueID, models.QueueStatusPaused)
	if err != nil {
		return nil, err
	}

	s.dispatcher.Send(ctx, dispatch.Command{
		Command: dispatch.CommandPause,
		QueueID: queueID.String(),
	})
	return queue, nil
}

// Resume reactivates a queue. A terminated queue is restarted through Start
// (picking up or restarting progress); a paused one merely becomes active
// again and waits for the next telemetry-driven advance.
func (s *QueueService) Resume(ctx context.Context, machineID, queueID uuid.UUID) (*models.Queue, *models.Task, error) {
	queue, err := s.GetQueue(ctx, machineID, queueID)
	if err != nil {
		return nil, nil, err
	}

	if queue.Status == models.QueueStatusTerminated {
		return s.Start(ctx, machineID, queueID)
	}

	queue, err = s.SetStatus(ctx, machineID, queueID, models.QueueStatusActive)
	if err != nil {
		return nil, nil, err
	}

	s.dispatcher.Send(ctx, dispatch.Command{
		Command: dispatch.CommandResume,
		QueueID: queueID.String(),
	})
	return queue, nil, nil
}

// Terminate stops the queue. Tasks are left exactly as they are; the
// in-progress record is not cancelled.
func (s *QueueService) Terminate(ctx context.Context, machineID, queueID uuid.UUID) (*models.Queue, error) {
	queue, err := s.SetStatus(ctx, machineID, queueID, models.QueueStatusTerminated)
	if err != nil {
		return nil, err
	}

	s.dispatcher.Send(ctx, dispatch.Command{
		Command: dispatch.CommandStop,
		QueueID: queueID.String(),
	})
	return queue, nil
}

// Skip marks the in-progress task skipped and, unless the queue was
// terminated or completed, advances to the next task and tells the machine
// to switch to it (or to an empty selection when none remains).
func (s *QueueService) Skip(ctx context.Context, machineID, queueID uuid.UUID) (*models.Queue, *models.Task, error) {
	queue, skipped, next, advanced, err := s.skip(ctx, machineID, queueID)
	if err != nil {
		return nil, nil, err
	}

	if advanced {
		fieldID := ""
		if next != nil {
			fieldID = next.ID.String()
		}
		s.dispatcher.Send(ctx, dispatch.Command{
			Command: dispatch.CommandUpdateCurrentField,
			FieldID: fieldID,
			QueueID: queueID.String(),
		})
	}
	return queue, skipped, nil
}

func (s *QueueService) skip(ctx context.Context, machineID, queueID uuid.UUID) (*models.Queue, *models.Task, *models.Task, bool, error) {
	unlock := s.locks.lock(queueID)
	defer unlock()

	queue, err := s.GetQueue(ctx, machineID, queueID)
	if err != nil {
		return nil, nil, nil, false, err
	}

	sort.Slice(queue.Tasks, func(i, j int) bool { return queue.Tasks[i].Position < queue.Tasks[j].Position })
	current := queue.CurrentTask()
	if current == nil || !current.Status.CanTransitionTo(models.TaskStatusSkipped) {
		return nil, nil, nil, false, fmt.Errorf("%w: queue %s", ErrNothingToSkip, queueID)
	}

	current.Status = models.TaskStatusSkipped
	skipped := *current

	var next *models.Task
	advanced := false
	if queue.Status == models.QueueStatusActive || queue.Status == models.QueueStatusPaused {
		next, _ = s.advanceLocked(queue, time.Now(), nil)
		advanced = true
	}

	queue.UpdatedAt = time.Now()
	if err := s.store.SaveQueue(ctx, queue); err != nil {
		return nil, nil, nil, false, err
	}

	s.log.Info().
		Str("queue_id", queueID.String()).
		Str("task_id", skipped.ID.String()).
		Msg("Task skipped")
	return queue, &skipped, next, advanced, nil
}

// ReportIdle handles a machine telling us it finished its previous task and
// sits idle. The queue advances, and only an active queue dispatches the
// next task; a paused queue absorbs the report without instructing the
// machine.
func (s *QueueService) ReportIdle(ctx context.Context, machineID, queueID uuid.UUID, ts time.Time, previousTaskID *uuid.UUID) (*models.Task, *models.Queue, error) {
	task, queue, err := s.Advance(ctx, machineID, queueID, ts, previousTaskID)
	if err != nil {
		return nil, nil, err
	}

	if task != nil && queue.Status == models.QueueStatusActive {
		s.dispatcher.Send(ctx, dispatch.Command{
			Command: dispatch.CommandStartMowing,
			FieldID: task.ID.String(),
			QueueID: queue.ID.String(),
		})
	}
	return task, queue, nil
}
