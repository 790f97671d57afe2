package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"mower-backend/internal/service"
	"mower-backend/pkg/logger"
)

type StatusHandler struct {
	statusService *service.StatusService
	log           zerolog.Logger
}

func NewStatusHandler(statusService *service.StatusService, logger *logger.Logger) *StatusHandler {
	return &StatusHandler{
		statusService: statusService,
		log:           logger.GetLogger("status-handler"),
	}
}

func (h *StatusHandler) GetSystemStatus(c *gin.Context) {
	status, err := h.statusService.GetSystemStatus(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to collect system status")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": status})
}
