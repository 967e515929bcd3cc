package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Métricas del nodo raft embebido. Las actualiza internal/cluster; están acá
// y no allá para que router y app las registren sin importar raft.
var (
	RaftApplyLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "raft_apply_latency_ms",
		Help:    "Tiempo entre encolar una mutación y verla aplicada en la FSM local, en ms",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1ms .. ~2s
	})
	RaftLeadershipChanges = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "raft_leadership_changes_total",
		Help: "Veces que este nodo asumió como líder",
	})
	RaftLogSizeBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "raft_log_size_bytes",
		Help: "Tamaño de raft.db (log y stable store en BoltDB)",
	})
)

func RegisterRaft(reg prometheus.Registerer) error {
	return register(reg, RaftApplyLatency, RaftLeadershipChanges, RaftLogSizeBytes)
}

// register tolera colectores ya registrados: app.New puede correr más de una
// vez en el mismo proceso (tests) contra el registry default.
func register(reg prometheus.Registerer, collectors ...prometheus.Collector) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	var dup prometheus.AlreadyRegisteredError
	for _, c := range collectors {
		if err := reg.Register(c); err != nil && !errors.As(err, &dup) {
			return err
		}
	}
	return nil
}
