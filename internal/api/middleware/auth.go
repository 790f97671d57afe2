package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"mower-backend/internal/service"
)

// AuthRequired validates the bearer token on operator routes and stores the
// authenticated user id in the request context.
func AuthRequired(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Bearer token is required"})
			c.Abort()
			return
		}

		userID, err := auth.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid token"})
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}
