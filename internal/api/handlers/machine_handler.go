package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mower-backend/internal/service"
	"mower-backend/pkg/logger"
)

type MachineHandler struct {
	machineService *service.MachineService
	log            zerolog.Logger
}

func NewMachineHandler(machineService *service.MachineService, logger *logger.Logger) *MachineHandler {
	return &MachineHandler{
		machineService: machineService,
		log:            logger.GetLogger("machine-handler"),
	}
}

func (h *MachineHandler) ListMachines(c *gin.Context) {
	machines, err := h.machineService.ListMachines(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list machines")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": machines})
}

func (h *MachineHandler) CreateMachine(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing machine name"})
		return
	}

	machine, err := h.machineService.CreateMachine(c.Request.Context(), req.Name)
	if err != nil {
		h.log.Error().Err(err).Str("name", req.Name).Msg("Failed to create machine")
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data":    machine,
		"message": fmt.Sprintf("Machine %s created successfully", machine.ID),
	})
}

func (h *MachineHandler) GetMachine(c *gin.Context) {
	machineID, ok := parseMachineID(c)
	if !ok {
		return
	}

	machine, err := h.machineService.GetMachine(c.Request.Context(), machineID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": machine})
}

func (h *MachineHandler) DeleteMachine(c *gin.Context) {
	machineID, ok := parseMachineID(c)
	if !ok {
		return
	}

	if err := h.machineService.DeleteMachine(c.Request.Context(), machineID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Machine %s deleted", machineID),
	})
}

// parseMachineID resolves the :machine_id route param. A malformed id cannot
// reference any machine, so it reports 404 like an unknown one.
func parseMachineID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.Param("machine_id")
	machineID, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"message": fmt.Sprintf("Machine %s does not exist.", raw),
		})
		return uuid.Nil, false
	}
	return machineID, true
}

func parseQueueID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.Param("queue_id")
	queueID, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"message": fmt.Sprintf("Queue %s does not exist on machine %s.", raw, c.Param("machine_id")),
		})
		return uuid.Nil, false
	}
	return queueID, true
}
