package service

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"mower-backend/internal/store/types"
	"mower-backend/pkg/logger"
)

// SystemStatus is the aggregate served by the status endpoint: fleet counts
// from the store plus host metrics of the backend itself.
type SystemStatus struct {
	Fleet  types.Stats   `json:"fleet"`
	System SystemMetrics `json:"system"`
}

type SystemMetrics struct {
	CPUUsage    float64 `json:"cpu_usage"`
	MemoryUsage float64 `json:"memory_usage"`
	DiskUsage   float64 `json:"disk_usage"`
	Uptime      int64   `json:"uptime"`
}

// StatusService reports overall system health.
type StatusService struct {
	store types.Store
	log   zerolog.Logger
}

func NewStatusService(store types.Store, logger *logger.Logger) *StatusService {
	return &StatusService{
		store: store,
		log:   logger.GetLogger("status-service"),
	}
}

// GetSystemStatus collects fleet counts and host metrics. Metric collection
// failures degrade to zero values rather than failing the request.
func (s *StatusService) GetSystemStatus(ctx context.Context) (*SystemStatus, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}

	status := &SystemStatus{Fleet: *stats}

	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		status.System.CPUUsage = percents[0]
	} else if err != nil {
		s.log.Debug().Err(err).Msg("Unable to read CPU usage")
	}
	if memInfo, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		status.System.MemoryUsage = memInfo.UsedPercent
	}
	if diskInfo, err := disk.UsageWithContext(ctx, "/"); err == nil {
		status.System.DiskUsage = diskInfo.UsedPercent
	}
	if hostInfo, err := host.InfoWithContext(ctx); err == nil {
		status.System.Uptime = int64(hostInfo.Uptime)
	}

	return status, nil
}
