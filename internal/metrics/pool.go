package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// dbPoolCollector expone gauges del pool del sink Postgres.
type dbPoolCollector struct {
	pool func() *pgxpool.Pool

	acquiredDesc *prometheus.Desc
	idleDesc     *prometheus.Desc
	totalDesc    *prometheus.Desc
}

// RegisterPGPool registra un collector para el pool devuelto por pool.
func RegisterPGPool(reg prometheus.Registerer, pool func() *pgxpool.Pool) error {
	return register(reg, &dbPoolCollector{
		pool:         pool,
		acquiredDesc: prometheus.NewDesc("pg_sink_acquired", "Conexiones adquiridas del sink Postgres", nil, nil),
		idleDesc:     prometheus.NewDesc("pg_sink_idle", "Conexiones inactivas del sink Postgres", nil, nil),
		totalDesc:    prometheus.NewDesc("pg_sink_total", "Conexiones totales del sink Postgres", nil, nil),
	})
}

func (c *dbPoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquiredDesc
	ch <- c.idleDesc
	ch <- c.totalDesc
}

func (c *dbPoolCollector) Collect(ch chan<- prometheus.Metric) {
	if c.pool == nil {
		return
	}
	pool := c.pool()
	if pool == nil {
		return
	}
	stat := pool.Stat()
	ch <- prometheus.MustNewConstMetric(c.acquiredDesc, prometheus.GaugeValue, float64(stat.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.idleDesc, prometheus.GaugeValue, float64(stat.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.totalDesc, prometheus.GaugeValue, float64(stat.TotalConns()))
}
