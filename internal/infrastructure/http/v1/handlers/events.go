package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	appctx "bakehouse/internal/core/context"
	"bakehouse/internal/infrastructure/realtime"
	"bakehouse/pkg/logger"
)

// EventStream is implemented by realtime.Hub.
type EventStream interface {
	Serve(ctx context.Context, conn *websocket.Conn, user string)
}

// EventsHandler upgrades to WebSocket and streams inventory events.
type EventsHandler struct {
	stream EventStream
}

func NewEventsHandler(stream EventStream) *EventsHandler {
	return &EventsHandler{stream: stream}
}

// Stream handles GET /events/ws
func (h *EventsHandler) Stream(c *gin.Context) {
	conn, err := realtime.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logger.Warn(c.Request.Context(), "websocket upgrade failed", "error", err)
		return
	}

	username := ""
	if u := appctx.GetUser(c.Request.Context()); u != nil {
		username = u.Username
	}
	h.stream.Serve(c.Request.Context(), conn, username)
}
