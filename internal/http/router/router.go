// Package router arma el router HTTP operativo del nodo.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropDatabas3/dataledger/internal/domain/repository"
	clusterctrl "github.com/dropDatabas3/dataledger/internal/http/controllers/cluster"
	healthctrl "github.com/dropDatabas3/dataledger/internal/http/controllers/health"
	httperrors "github.com/dropDatabas3/dataledger/internal/http/errors"
	mw "github.com/dropDatabas3/dataledger/internal/http/middlewares"
	"github.com/dropDatabas3/dataledger/internal/metrics"
)

// Deps contiene las dependencias del router.
type Deps struct {
	CommitLog repository.CommitLog
	Gatherer  prometheus.Gatherer
	OpsSecret []byte // vacío => /v1/cluster/* no se monta
	Version   string
}

// New construye el handler con:
//
//	GET    /readyz
//	GET    /metrics
//	GET    /v1/cluster/stats
//	GET    /v1/cluster/peers
//	POST   /v1/cluster/peers
//	DELETE /v1/cluster/peers/{id}
func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		mw.WithRequestID(),
		mw.WithLogging(),
		mw.WithRecover(),
		metrics.WithMetrics(routePattern),
	)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound)
	})

	health := healthctrl.NewHealthController(d.CommitLog, d.Version)
	r.Get("/readyz", health.Readyz)

	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	if len(d.OpsSecret) > 0 {
		c := clusterctrl.NewClusterController(d.CommitLog)
		r.Route("/v1/cluster", func(r chi.Router) {
			r.Use(mw.ClusterAdmin(d.OpsSecret, d.CommitLog))
			r.Get("/stats", c.Stats)
			r.Get("/peers", c.Peers)
			r.Post("/peers", c.AddPeer)
			r.Delete("/peers/{id}", c.RemovePeer)
		})
	}
	return r
}

// routePattern devuelve el patrón de chi; se evalúa después de rutear.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		return rc.RoutePattern()
	}
	return ""
}
