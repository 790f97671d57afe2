package handlers

import (
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mower-backend/internal/models"
	"mower-backend/internal/service"
	"mower-backend/pkg/logger"
)

// TelemetryHandler ingests state reports pushed by machines. Telemetry is
// fire-and-forget from the machine's perspective: anything irrelevant or
// malformed is acknowledged without action.
type TelemetryHandler struct {
	queueService *service.QueueService
	log          zerolog.Logger
}

func NewTelemetryHandler(queueService *service.QueueService, logger *logger.Logger) *TelemetryHandler {
	return &TelemetryHandler{
		queueService: queueService,
		log:          logger.GetLogger("telemetry-handler"),
	}
}

type telemetryReport struct {
	State         string  `json:"state"`
	CurrentQueue  string  `json:"current_queue"`
	CurrentField  string  `json:"current_field"`
	PreviousField string  `json:"previous_field"`
	Timestamp     float64 `json:"timestamp"`
}

func (h *TelemetryHandler) IncomingMachineTelem(c *gin.Context) {
	machineID, ok := parseMachineID(c)
	if !ok {
		return
	}

	var report telemetryReport
	if err := c.ShouldBindJSON(&report); err != nil {
		c.JSON(http.StatusOK, gin.H{"message": "No action required"})
		return
	}

	state := strings.ToLower(report.State)
	h.log.Debug().
		Str("machine_id", machineID.String()).
		Str("state", state).
		Str("current_field", report.CurrentField).
		Float64("timestamp", report.Timestamp).
		Msg("Incoming machine telemetry")

	// Only an idle machine with no current field and a known queue needs
	// further instructions.
	if state != "idle" || report.CurrentField != "" || report.CurrentQueue == "" {
		c.JSON(http.StatusOK, gin.H{"message": "No action required"})
		return
	}

	queueID, err := uuid.Parse(report.CurrentQueue)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"message": "No action required"})
		return
	}

	var previousTaskID *uuid.UUID
	if id, err := uuid.Parse(report.PreviousField); err == nil {
		previousTaskID = &id
	}

	ts := time.Now()
	if report.Timestamp > 0 {
		sec, frac := math.Modf(report.Timestamp)
		ts = time.Unix(int64(sec), int64(frac*float64(time.Second)))
	}

	task, queue, err := h.queueService.ReportIdle(c.Request.Context(), machineID, queueID, ts, previousTaskID)
	if err != nil {
		respondError(c, err)
		return
	}

	if task != nil && queue.Status == models.QueueStatusActive {
		c.JSON(http.StatusOK, gin.H{
			"message": fmt.Sprintf("Machine %s can start mowing field %s", machineID, task.ID),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "No action required"})
}
