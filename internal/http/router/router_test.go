package router_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/dataledger/internal/cluster"
	"github.com/dropDatabas3/dataledger/internal/domain/repository"
	"github.com/dropDatabas3/dataledger/internal/http/router"
	"github.com/dropDatabas3/dataledger/internal/ledger"
	"github.com/dropDatabas3/dataledger/internal/metrics"
	"github.com/dropDatabas3/dataledger/internal/store/adapters/local"
)

var secret = []byte("ops-secret")

func newHandler(t *testing.T) (http.Handler, *local.CommitLog) {
	t.Helper()
	fsm := cluster.NewFSM(ledger.New(ledger.Genesis{Admin: "admin", Treasury: "treasury"}))
	cl := local.NewCommitLog("n1", fsm)
	t.Cleanup(func() { _ = cl.Close() })

	reg := prometheus.NewRegistry()
	require.NoError(t, metrics.RegisterHTTP(reg))
	return router.New(router.Deps{
		CommitLog: cl,
		Gatherer:  reg,
		OpsSecret: secret,
		Version:   "test",
	}), cl
}

func opsToken(t *testing.T, scope string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "ops",
		"scope": scope,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString(secret)
	require.NoError(t, err)
	return "Bearer " + s
}

func do(h http.Handler, method, path, auth, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestReadyz(t *testing.T) {
	h, cl := newHandler(t)

	rec := do(h, http.MethodGet, "/readyz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "test", rec.Header().Get("X-Service-Version"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])

	require.NoError(t, cl.Close())
	rec = do(h, http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "unavailable")
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	h, _ := newHandler(t)
	do(h, http.MethodDelete, "/v1/cluster/peers/n7", opsToken(t, "cluster:admin"), "")

	rec := do(h, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `path="/v1/cluster/peers/{id}"`)
	assert.NotContains(t, rec.Body.String(), `path="/v1/cluster/peers/n7"`)
}

func TestClusterRoutes_RequireOpsToken(t *testing.T) {
	h, _ := newHandler(t)

	assert.Equal(t, http.StatusUnauthorized, do(h, http.MethodGet, "/v1/cluster/stats", "", "").Code)
	assert.Equal(t, http.StatusForbidden, do(h, http.MethodGet, "/v1/cluster/stats", opsToken(t, "ledger:read"), "").Code)
}

func TestClusterRoutes_LocalMode(t *testing.T) {
	h, _ := newHandler(t)
	auth := opsToken(t, "cluster:admin")

	rec := do(h, http.MethodGet, "/v1/cluster/stats", auth, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats repository.ClusterStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, "n1", stats.NodeID)
	assert.Equal(t, "off", stats.Mode)
	assert.True(t, stats.Healthy)

	rec = do(h, http.MethodGet, "/v1/cluster/peers", auth, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"n1"`)

	t.Run("add peer validates body", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/v1/cluster/peers", auth, "{").Code)
		assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/v1/cluster/peers", auth, `{"id":"n2"}`).Code)
	})

	t.Run("membership is not available without raft", func(t *testing.T) {
		rec := do(h, http.MethodPost, "/v1/cluster/peers", auth, `{"id":"n2","address":"127.0.0.1:7001"}`)
		assert.Equal(t, http.StatusNotImplemented, rec.Code)
		rec = do(h, http.MethodDelete, "/v1/cluster/peers/n2", auth, "")
		assert.Equal(t, http.StatusNotImplemented, rec.Code)
	})
}

func TestNotFound_IsJSON(t *testing.T) {
	h, _ := newHandler(t)
	rec := do(h, http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestClusterRoutes_DisabledWithoutSecret(t *testing.T) {
	fsm := cluster.NewFSM(ledger.New(ledger.Genesis{Admin: "admin", Treasury: "treasury"}))
	h := router.New(router.Deps{CommitLog: local.NewCommitLog("n1", fsm)})
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/v1/cluster/stats", "", "").Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/metrics", "", "").Code)
}
