// Package health contiene el controller de readiness del nodo.
package health

import (
	"encoding/json"
	"net/http"

	"github.com/dropDatabas3/dataledger/internal/domain/repository"
	"github.com/dropDatabas3/dataledger/internal/observability/logger"
)

// Response es el cuerpo de GET /readyz.
type Response struct {
	Status  string                   `json:"status"` // "ready" o "unavailable"
	Version string                   `json:"version,omitempty"`
	Cluster *repository.ClusterStats `json:"cluster,omitempty"`
	Error   string                   `json:"error,omitempty"`
}

// HealthController maneja las rutas de health check.
type HealthController struct {
	log     repository.CommitLog
	version string
}

// NewHealthController crea un nuevo controller de health check.
func NewHealthController(log repository.CommitLog, version string) *HealthController {
	return &HealthController{log: log, version: version}
}

// Readyz maneja GET /readyz. Responde 503 si el commit log no responde o
// se reporta no saludable.
func (c *HealthController) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("HealthController.Readyz"))

	resp := Response{Status: "ready", Version: c.version}
	status := http.StatusOK

	if err := c.log.Ping(ctx); err != nil {
		resp.Status, resp.Error = "unavailable", err.Error()
		status = http.StatusServiceUnavailable
	} else if stats, err := c.log.GetStats(ctx); err != nil {
		resp.Status, resp.Error = "unavailable", err.Error()
		status = http.StatusServiceUnavailable
	} else {
		resp.Cluster = stats
		if !stats.Healthy {
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}

	log.Debug("health check completed", logger.String("status", resp.Status))

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if c.version != "" {
		w.Header().Set("X-Service-Version", c.version)
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
