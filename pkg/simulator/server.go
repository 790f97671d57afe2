package simulator

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type commandRequest struct {
	Command string `json:"command" binding:"required"`
	FieldID string `json:"field_id"`
	QueueID string `json:"queue_id"`
}

// NewRouter exposes the local command and status endpoints the backend
// dispatcher talks to.
func NewRouter(machine *Machine, log zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/command", func(c *gin.Context) {
		var req commandRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Missing command"})
			return
		}

		log.Info().
			Str("command", req.Command).
			Str("field_id", req.FieldID).
			Str("queue_id", req.QueueID).
			Msg("Command received")

		switch req.Command {
		case "start_mowing":
			machine.StartMowing(req.FieldID, req.QueueID)
		case "pause":
			machine.Pause()
		case "resume":
			machine.Resume()
		case "stop":
			machine.StopMowing()
		case "update_current_field":
			machine.UpdateCurrentField(req.FieldID)
		default:
			c.JSON(http.StatusBadRequest, gin.H{
				"message": "Unknown command: " + req.Command,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Command accepted"})
	})

	r.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": machine.Status()})
	})

	return r
}
