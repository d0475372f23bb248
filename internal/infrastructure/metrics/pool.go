package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"bakehouse/internal/infrastructure/storage/postgres"
)

// poolCollector reports pgxpool statistics at scrape time.
type poolCollector struct {
	pool *postgres.Pool

	total    *prometheus.Desc
	idle     *prometheus.Desc
	acquired *prometheus.Desc
	waits    *prometheus.Desc
}

// RegisterPool adds database pool gauges to the registry.
func (m *Metrics) RegisterPool(pool *postgres.Pool) {
	m.registry.MustRegister(&poolCollector{
		pool:     pool,
		total:    prometheus.NewDesc(namespace+"_db_pool_connections", "Open connections.", nil, nil),
		idle:     prometheus.NewDesc(namespace+"_db_pool_idle_connections", "Idle connections.", nil, nil),
		acquired: prometheus.NewDesc(namespace+"_db_pool_acquired_connections", "Connections in use.", nil, nil),
		waits:    prometheus.NewDesc(namespace+"_db_pool_empty_acquire_total", "Acquires that waited for a connection.", nil, nil),
	})
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.total
	ch <- c.idle
	ch <- c.acquired
	ch <- c.waits
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.pool.Stat()
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(s.TotalConns()))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(s.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.acquired, prometheus.GaugeValue, float64(s.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.waits, prometheus.CounterValue, float64(s.EmptyAcquireCount()))
}
