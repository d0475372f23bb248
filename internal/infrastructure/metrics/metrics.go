// Package metrics exposes Prometheus collectors for the HTTP layer and business events.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bakehouse/internal/core/tx"
	"bakehouse/internal/domain/events"
	"bakehouse/internal/infrastructure/storage/postgres"
)

const namespace = "bakehouse"

// Metrics owns a private registry so tests can create independent instances.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests  *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec
	Events        *prometheus.CounterVec
	OutboxRelayed *prometheus.CounterVec
	WSClients     prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_committed_total",
			Help:      "Committed domain events by type.",
		}, []string{"type"}),
		OutboxRelayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "relayed_total",
			Help:      "Outbox messages handed to a sink, by result.",
		}, []string{"result"}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "clients",
			Help:      "Connected WebSocket clients.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPDuration,
		m.Events,
		m.OutboxRelayed,
		m.WSClients,
	)
	return m
}

// Registry exposes the underlying registry, used to add pool collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// SetWSClients matches realtime.Hub.OnClientCount.
func (m *Metrics) SetWSClients(n int) { m.WSClients.Set(float64(n)) }

// CountingPublisher increments the event counter once the transaction commits.
type CountingPublisher struct {
	next      events.Publisher
	committer tx.AfterCommitter
	metrics   *Metrics
}

var _ events.Publisher = (*CountingPublisher)(nil)

func NewCountingPublisher(next events.Publisher, committer tx.AfterCommitter, m *Metrics) *CountingPublisher {
	return &CountingPublisher{next: next, committer: committer, metrics: m}
}

func (p *CountingPublisher) Publish(ctx context.Context, event events.Event) error {
	if err := p.next.Publish(ctx, event); err != nil {
		return err
	}
	p.committer.AfterCommit(ctx, func(context.Context) {
		p.metrics.Events.WithLabelValues(event.Type).Inc()
	})
	return nil
}

// InstrumentOutbox wraps an outbox handler with the relayed counter.
func (m *Metrics) InstrumentOutbox(next postgres.OutboxHandler) postgres.OutboxHandler {
	return postgres.OutboxHandlerFunc(func(ctx context.Context, msg *postgres.OutboxMessage) error {
		if err := next.Handle(ctx, msg); err != nil {
			m.OutboxRelayed.WithLabelValues("error").Inc()
			return err
		}
		m.OutboxRelayed.WithLabelValues("ok").Inc()
		return nil
	})
}
