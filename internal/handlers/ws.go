package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yukikurage/taskflow-api/internal/realtime"
)

type RealtimeHandler struct {
	hub *realtime.Hub
	log *zap.Logger
}

func NewRealtimeHandler(hub *realtime.Hub, log *zap.Logger) *RealtimeHandler {
	return &RealtimeHandler{
		hub: hub,
		log: log,
	}
}

// Connect upgrades an authenticated request to a WebSocket session. The
// session user is fixed for the lifetime of the connection.
func (h *RealtimeHandler) Connect(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	// Accept has already written the HTTP error on failure
	if err := h.hub.Serve(c.Writer, c.Request, userID); err != nil {
		h.log.Warn("websocket upgrade failed", zap.Uint64("user_id", userID), zap.Error(err))
	}
}
