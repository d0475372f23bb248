// Package realtime fans committed inventory events out to WebSocket clients.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"bakehouse/internal/domain/events"
	"bakehouse/internal/infrastructure/storage/postgres"
	"bakehouse/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	sendBufferSize = 64
	maxMessageSize = 512
)

// Upgrader accepts any origin; the route is already behind JWT auth.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	user string
}

// Hub tracks connected clients and broadcasts events to them.
// A client whose buffer is full is disconnected rather than blocking the others.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}

	onCount func(n int)
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

// OnClientCount registers a callback invoked with the client count after every change.
func (h *Hub) OnClientCount(fn func(n int)) {
	h.mu.Lock()
	h.onCount = fn
	h.mu.Unlock()
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends the envelope to every client.
func (h *Hub) Broadcast(env events.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		logger.Error(context.Background(), "marshal event for websocket", "event", env.Type, "error", err)
		return
	}

	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		logger.Warn(context.Background(), "dropping slow websocket client", "user", c.user)
		h.remove(c)
	}
}

// Handle is an OutboxHandler that broadcasts relayed messages. The server uses it
// when no Kafka brokers are configured.
func (h *Hub) Handle(_ context.Context, msg *postgres.OutboxMessage) error {
	h.Broadcast(msg.Envelope())
	return nil
}

// Serve registers conn and blocks until the client disconnects or ctx ends.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn, user string) {
	c := &client{conn: conn, send: make(chan []byte, sendBufferSize), user: user}
	h.add(c)
	logger.Info(ctx, "websocket client connected", "user", user, "clients", h.Count())

	go h.writePump(ctx, c)
	h.readPump(c)

	h.remove(c)
	logger.Info(ctx, "websocket client disconnected", "user", user, "clients", h.Count())
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for c := range clients {
		close(c.send)
	}
	h.notifyCount()
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.notifyCount()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	if ok {
		h.notifyCount()
	}
}

func (h *Hub) notifyCount() {
	h.mu.RLock()
	fn, n := h.onCount, len(h.clients)
	h.mu.RUnlock()
	if fn != nil {
		fn(n)
	}
}

// readPump only consumes control frames; clients do not send data.
func (h *Hub) readPump(c *client) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Debug(context.Background(), "websocket read error", "user", c.user, "error", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(ctx context.Context, c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		}
	}
}
