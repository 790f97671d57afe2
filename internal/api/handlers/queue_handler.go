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

type QueueHandler struct {
	queueService *service.QueueService
	log          zerolog.Logger
}

func NewQueueHandler(queueService *service.QueueService, logger *logger.Logger) *QueueHandler {
	return &QueueHandler{
		queueService: queueService,
		log:          logger.GetLogger("queue-handler"),
	}
}

func (h *QueueHandler) ListQueues(c *gin.Context) {
	machineID, ok := parseMachineID(c)
	if !ok {
		return
	}

	queues, err := h.queueService.ListQueues(c.Request.Context(), machineID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": queues})
}

func (h *QueueHandler) CreateQueue(c *gin.Context) {
	machineID, ok := parseMachineID(c)
	if !ok {
		return
	}

	var req struct {
		FieldIDs []int `json:"field_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	queue, err := h.queueService.CreateQueue(c.Request.Context(), machineID, req.FieldIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data":    queue,
		"message": fmt.Sprintf("Queue %s created successfully", queue.ID),
	})
}

func (h *QueueHandler) StartQueue(c *gin.Context) {
	machineID, queueID, ok := parseQueueRef(c)
	if !ok {
		return
	}

	queue, _, err := h.queueService.Start(c.Request.Context(), machineID, queueID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":    queue,
		"message": "Queue started",
	})
}

func (h *QueueHandler) PauseQueue(c *gin.Context) {
	machineID, queueID, ok := parseQueueRef(c)
	if !ok {
		return
	}

	queue, err := h.queueService.Pause(c.Request.Context(), machineID, queueID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":    queue,
		"message": "Queue paused",
	})
}

func (h *QueueHandler) ResumeQueue(c *gin.Context) {
	machineID, queueID, ok := parseQueueRef(c)
	if !ok {
		return
	}

	queue, _, err := h.queueService.Resume(c.Request.Context(), machineID, queueID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":    queue,
		"message": "Queue resumed",
	})
}

func (h *QueueHandler) TerminateQueue(c *gin.Context) {
	machineID, queueID, ok := parseQueueRef(c)
	if !ok {
		return
	}

	queue, err := h.queueService.Terminate(c.Request.Context(), machineID, queueID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":    queue,
		"message": "Queue terminated",
	})
}

func (h *QueueHandler) SkipCurrentField(c *gin.Context) {
	machineID, queueID, ok := parseQueueRef(c)
	if !ok {
		return
	}

	queue, skipped, err := h.queueService.Skip(c.Request.Context(), machineID, queueID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":    queue,
		"message": fmt.Sprintf("Skipped field %s", skipped.ID),
	})
}

func (h *QueueHandler) ListItems(c *gin.Context) {
	machineID, queueID, ok := parseQueueRef(c)
	if !ok {
		return
	}

	queue, err := h.queueService.GetQueue(c.Request.Context(), machineID, queueID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": queue.Tasks})
}

func (h *QueueHandler) AddItem(c *gin.Context) {
	machineID, queueID, ok := parseQueueRef(c)
	if !ok {
		return
	}

	var req struct {
		FieldID  *int `json:"field_id"`
		Position *int `json:"position"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.FieldID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing field id"})
		return
	}

	task, err := h.queueService.AddItem(c.Request.Context(), machineID, queueID, *req.FieldID, req.Position)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data":    task,
		"message": fmt.Sprintf("Field %s added to queue", task.ID),
	})
}

func (h *QueueHandler) RemoveItems(c *gin.Context) {
	machineID, queueID, ok := parseQueueRef(c)
	if !ok {
		return
	}

	var req struct {
		FieldIDs []string `json:"field_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.FieldIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing fields"})
		return
	}

	taskIDs := make([]uuid.UUID, 0, len(req.FieldIDs))
	for _, raw := range req.FieldIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"message": fmt.Sprintf("Invalid field id: %s", raw),
			})
			return
		}
		taskIDs = append(taskIDs, id)
	}

	if err := h.queueService.RemoveItems(c.Request.Context(), machineID, queueID, taskIDs); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Fields deleted: %v", req.FieldIDs),
	})
}

func parseQueueRef(c *gin.Context) (machineID, queueID uuid.UUID, ok bool) {
	machineID, ok = parseMachineID(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	queueID, ok = parseQueueID(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return machineID, queueID, true
}
