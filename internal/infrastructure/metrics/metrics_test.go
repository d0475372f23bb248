package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bakehouse/internal/core/tx"
	"bakehouse/internal/domain/events"
	"bakehouse/internal/infrastructure/storage/postgres"
)

func TestCountingPublisher_CountsCommittedEvents(t *testing.T) {
	m := New()
	p := NewCountingPublisher(events.Discard, tx.Passthrough{}, m)

	require.NoError(t, p.Publish(context.Background(), events.Event{Type: events.TypeSaleRecorded}))
	require.NoError(t, p.Publish(context.Background(), events.Event{Type: events.TypeSaleRecorded}))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Events.WithLabelValues(events.TypeSaleRecorded)))
}

func TestCountingPublisher_FailedPublishNotCounted(t *testing.T) {
	m := New()
	next := events.PublisherFunc(func(context.Context, events.Event) error { return errors.New("no tx") })
	p := NewCountingPublisher(next, tx.Passthrough{}, m)

	assert.Error(t, p.Publish(context.Background(), events.Event{Type: events.TypeStockAdjusted}))
	assert.Equal(t, 0, testutil.CollectAndCount(m.Events))
}

func TestInstrumentOutbox(t *testing.T) {
	m := New()
	fail := true
	h := m.InstrumentOutbox(postgres.OutboxHandlerFunc(func(context.Context, *postgres.OutboxMessage) error {
		if fail {
			return errors.New("broker down")
		}
		return nil
	}))

	assert.Error(t, h.Handle(context.Background(), &postgres.OutboxMessage{}))
	fail = false
	assert.NoError(t, h.Handle(context.Background(), &postgres.OutboxMessage{}))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboxRelayed.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboxRelayed.WithLabelValues("ok")))
}

func TestHandler_ExposesRegistry(t *testing.T) {
	m := New()
	m.SetWSClients(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bakehouse_ws_clients 3")
}
