// Package cluster contiene los controllers operativos del commit log:
// estadísticas y membresía de raft.
package cluster

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/dataledger/internal/domain/repository"
	httperrors "github.com/dropDatabas3/dataledger/internal/http/errors"
	"github.com/dropDatabas3/dataledger/internal/observability/logger"
)

const maxBodySize = 64 << 10

// AddPeerRequest es el cuerpo de POST /v1/cluster/peers.
type AddPeerRequest struct {
	ID      string `json:"id"`
	Address string `json:"address"`
}

// ClusterController maneja /v1/cluster/*.
type ClusterController struct {
	log repository.CommitLog
}

// NewClusterController crea el controller.
func NewClusterController(log repository.CommitLog) *ClusterController {
	return &ClusterController{log: log}
}

// Stats maneja GET /v1/cluster/stats
func (c *ClusterController) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := c.log.GetStats(r.Context())
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Peers maneja GET /v1/cluster/peers
func (c *ClusterController) Peers(w http.ResponseWriter, r *http.Request) {
	peers, err := c.log.GetPeers(r.Context())
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"peers": peers})
}

// AddPeer maneja POST /v1/cluster/peers
func (c *ClusterController) AddPeer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("ClusterController.AddPeer"))

	var req AddPeerRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON.WithCause(err))
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	req.Address = strings.TrimSpace(req.Address)
	if req.ID == "" || req.Address == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("id and address are required"))
		return
	}

	if err := c.log.AddPeer(ctx, req.ID, req.Address); err != nil {
		log.Warn("add peer failed", logger.NodeID(req.ID), logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}
	log.Info("peer added", logger.NodeID(req.ID), logger.String("address", req.Address))
	writeJSON(w, http.StatusCreated, req)
}

// RemovePeer maneja DELETE /v1/cluster/peers/{id}
func (c *ClusterController) RemovePeer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("ClusterController.RemovePeer"))

	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("peer id is required"))
		return
	}
	if err := c.log.RemovePeer(ctx, id); err != nil {
		log.Warn("remove peer failed", logger.NodeID(id), logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}
	log.Info("peer removed", logger.NodeID(id))
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
