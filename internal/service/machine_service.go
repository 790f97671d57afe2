package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mower-backend/internal/models"
	"mower-backend/internal/store/types"
	"mower-backend/pkg/logger"
)

// MachineService manages machine records. Deleting a machine cascades to its
// queues and tasks; there is no standalone deletion path for a queue.
type MachineService struct {
	store types.Store
	log   zerolog.Logger
}

func NewMachineService(store types.Store, logger *logger.Logger) *MachineService {
	return &MachineService{
		store: store,
		log:   logger.GetLogger("machine-service"),
	}
}

func (s *MachineService) CreateMachine(ctx context.Context, name string) (*models.Machine, error) {
	now := time.Now()
	machine := &models.Machine{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.CreateMachine(ctx, machine); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("machine_id", machine.ID.String()).
		Str("name", machine.Name).
		Msg("Machine created")
	return machine, nil
}

func (s *MachineService) GetMachine(ctx context.Context, id uuid.UUID) (*models.Machine, error) {
	machine, err := s.store.GetMachine(ctx, id)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrMachineNotFound, id)
		}
		return nil, err
	}
	return machine, nil
}

func (s *MachineService) ListMachines(ctx context.Context) ([]*models.Machine, error) {
	return s.store.ListMachines(ctx)
}

func (s *MachineService) DeleteMachine(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteMachine(ctx, id); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrMachineNotFound, id)
		}
		return err
	}

	s.log.Info().Str("machine_id", id.String()).Msg("Machine deleted")
	return nil
}
