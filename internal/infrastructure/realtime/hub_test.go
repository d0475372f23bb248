package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bakehouse/internal/core/id"
	"bakehouse/internal/domain/events"
	"bakehouse/internal/infrastructure/storage/postgres"
)

func startHubServer(t *testing.T, hub *Hub) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(r.Context(), conn, "tester")
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHub_BroadcastReachesClients(t *testing.T) {
	hub := NewHub()
	url := startHubServer(t, hub)

	a := dial(t, url)
	b := dial(t, url)
	require.Eventually(t, func() bool { return hub.Count() == 2 }, time.Second, 5*time.Millisecond)

	env := events.Envelope{ID: id.New(), Type: events.TypeSaleRecorded, AggregateType: "sale"}
	hub.Broadcast(env)

	for _, conn := range []*websocket.Conn{a, b} {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var got events.Envelope
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, env.ID, got.ID)
		assert.Equal(t, events.TypeSaleRecorded, got.Type)
	}
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	var last atomic.Int64
	hub := NewHub()
	hub.OnClientCount(func(n int) { last.Store(int64(n)) })
	url := startHubServer(t, hub)

	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 1, last.Load())

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 0, last.Load())
}

func TestHub_HandleBroadcastsOutboxMessage(t *testing.T) {
	hub := NewHub()
	c := &client{send: make(chan []byte, 1), user: "x"}
	hub.clients[c] = struct{}{}

	msg := &postgres.OutboxMessage{ID: id.New(), EventType: events.TypeWastageRecorded, Payload: []byte(`{}`)}
	require.NoError(t, hub.Handle(context.Background(), msg))

	select {
	case data := <-c.send:
		assert.Contains(t, string(data), events.TypeWastageRecorded)
	default:
		t.Fatal("message not queued")
	}
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	hub := NewHub()
	c := &client{send: make(chan []byte), user: "slow"}
	hub.clients[c] = struct{}{}

	hub.Broadcast(events.Envelope{Type: events.TypeStockAdjusted})

	assert.Equal(t, 0, hub.Count())
	_, open := <-c.send
	assert.False(t, open)
}
