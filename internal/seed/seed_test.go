package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mower-backend/internal/models"
	"mower-backend/internal/store/memory"
	"mower-backend/pkg/logger"
)

func TestRunHonoursInvariants(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	require.NoError(t, Run(ctx, store, logger.NewLogger(false)))

	machines, err := store.ListMachines(ctx)
	require.NoError(t, err)
	assert.Len(t, machines, machineCount)

	totalQueues := 0
	for _, machine := range machines {
		queues, err := store.ListQueues(ctx, machine.ID)
		require.NoError(t, err)
		totalQueues += len(queues)

		activeCount := 0
		for _, queue := range queues {
			if queue.Status == models.QueueStatusActive {
				activeCount++
			}
			assert.LessOrEqual(t, len(queue.Tasks), models.MaxQueueItems)

			inProgress := 0
			for i, task := range queue.Tasks {
				assert.Equal(t, i, task.Position)
				if task.Status == models.TaskStatusInProgress {
					inProgress++
				}
				if queue.Status == models.QueueStatusCompleted {
					assert.True(t, task.Status.Terminal())
				}
			}
			assert.LessOrEqual(t, inProgress, 1)
		}
		assert.LessOrEqual(t, activeCount, 1)
	}
	assert.Equal(t, queueCount, totalQueues)
}
