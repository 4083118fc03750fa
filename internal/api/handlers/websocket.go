package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"codehub/internal/realtime"
	"codehub/internal/repositories/postgres"
	"codehub/internal/services"

	"github.com/gin-gonic/gin"
)

type WSHandler struct {
	coordinator *realtime.Coordinator
	users       postgres.UserRepository
	jwtSecret   string
}

func NewWSHandler(coordinator *realtime.Coordinator, users postgres.UserRepository, jwtSecret string) *WSHandler {
	return &WSHandler{
		coordinator: coordinator,
		users:       users,
		jwtSecret:   jwtSecret,
	}
}

// HandleWebSocket authenticates via a token query parameter (browsers
// cannot set headers on WebSocket requests) and hands the connection
// to the coordinator. Authentication failure rejects the connection
// outright.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token is required"})
		return
	}
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	userID, err := services.ParseToken(tokenString, h.jwtSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	user, err := h.users.FindByID(c.Request.Context(), userID)
	if err != nil {
		slog.Error("WebSocket auth failed: unknown user", "userID", userID, "error", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
		return
	}

	realtime.ServeWS(h.coordinator, c.Writer, c.Request, user)
}
