package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// MutationsTotal cuenta mutaciones aplicadas por tipo y resultado
	// ("ok" o el kind del error de negocio).
	MutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_mutations_total",
		Help: "Mutaciones aplicadas por la FSM, por tipo y resultado",
	}, []string{"type", "result"})

	LicensesGranted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_licenses_granted_total",
		Help: "Licencias emitidas",
	})

	PlatformFees = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_platform_fees_total",
		Help: "Suma de fees de plataforma cobrados, en unidades menores",
	})

	EventsRelayed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_events_relayed_total",
		Help: "Eventos entregados a cada sink",
	}, []string{"sink"})

	SubmitRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_submit_retries_total",
		Help: "Reintentos de envío de mutaciones no aceptadas por el log",
	})
)

// RegisterLedger registra las métricas de negocio.
func RegisterLedger(reg prometheus.Registerer) error {
	return register(reg, MutationsTotal, LicensesGranted, PlatformFees, EventsRelayed, SubmitRetries)
}

// ObserveMutation incrementa ledger_mutations_total.
func ObserveMutation(typ, result string) {
	MutationsTotal.WithLabelValues(typ, result).Inc()
}

// AddPlatformFee suma un monto decimal (tal como viaja en los eventos).
func AddPlatformFee(amount string) {
	v, err := strconv.ParseUint(amount, 10, 64)
	if err != nil || v == 0 {
		return
	}
	PlatformFees.Add(float64(v))
}
