package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"mower-backend/internal/service"
)

// respondError maps a service error onto the HTTP surface: unresolved
// references are 404, domain violations 422, anything else 500. The body
// always carries a {message} envelope.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrMachineNotFound),
		errors.Is(err, service.ErrQueueNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
	case errors.Is(err, service.ErrQueueFull),
		errors.Is(err, service.ErrPositionOutOfRange),
		errors.Is(err, service.ErrPositionGap),
		errors.Is(err, service.ErrUnknownTask),
		errors.Is(err, service.ErrNothingToSkip),
		errors.Is(err, service.ErrNoItemsLeft),
		errors.Is(err, service.ErrActiveQueueExists):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
	}
}
