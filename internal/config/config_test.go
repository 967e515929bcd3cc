package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

const minimal = `
ledger:
  admin: "0xadmin"
  treasury: "0xtreasury"
  platform_fee_bps: 100
`

func TestLoad_Defaults(t *testing.T) {
	c, err := Load(writeYAML(t, minimal))
	require.NoError(t, err)

	assert.Equal(t, "dev", c.App.Env)
	assert.Equal(t, ":8080", c.Server.Addr)
	assert.Equal(t, "off", c.Cluster.Mode)
	assert.Equal(t, []string{"log"}, c.Events.Sinks)
	assert.Equal(t, 3, c.Facade.RetryAttempts)
	assert.Equal(t, 500*time.Millisecond, c.Events.Interval)
	assert.Equal(t, "ledger:events", c.Redis.Stream)
	assert.Equal(t, uint32(100), c.Ledger.PlatformFeeBps)
	assert.True(t, filepath.IsAbs(c.Cluster.RaftDir), "relative raft dir resolves against the yaml dir")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "PROD")
	t.Setenv("SERVER_ADDR", ":9090")
	t.Setenv("LEDGER_PLATFORM_FEE_BPS", "250")
	t.Setenv("LEDGER_FAUCET_AMOUNT", "1000")
	t.Setenv("CLUSTER_MODE", "embedded")
	t.Setenv("CLUSTER_NODE_ID", "n1")
	t.Setenv("CLUSTER_RAFT_ADDR", "127.0.0.1:8201")
	t.Setenv("CLUSTER_NODES", "n1=127.0.0.1:8201; n2=127.0.0.1:8202")
	t.Setenv("EVENTS_SINKS", "log, Redis")
	t.Setenv("REDIS_DB", "2")

	c, err := Load(writeYAML(t, minimal))
	require.NoError(t, err)

	assert.True(t, c.IsProd())
	assert.Equal(t, ":9090", c.Server.Addr)
	assert.Equal(t, uint32(250), c.Ledger.PlatformFeeBps)
	assert.Equal(t, uint64(1000), c.Ledger.FaucetAmount)
	assert.Equal(t, "embedded", c.Cluster.Mode)
	assert.Equal(t, map[string]string{"n1": "127.0.0.1:8201", "n2": "127.0.0.1:8202"}, c.Cluster.Nodes)
	assert.Equal(t, []string{"log", "redis"}, c.Events.Sinks)
	assert.Equal(t, 2, c.Redis.DB)
}

func TestLoad_EmptyPathUsesEnvOnly(t *testing.T) {
	t.Setenv("LEDGER_ADMIN", "a")
	t.Setenv("LEDGER_TREASURY", "t")
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "a", c.Ledger.Admin)
	assert.Equal(t, "./data/raft", c.Cluster.RaftDir)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"fee too high", "ledger: {admin: a, treasury: t, platform_fee_bps: 1500}", "exceeds 1000"},
		{"missing admin", "ledger: {treasury: t}", "ledger.admin"},
		{"missing treasury", "ledger: {admin: a}", "ledger.treasury"},
		{"embedded without node", "ledger: {admin: a, treasury: t}\ncluster: {mode: embedded}", "node_id"},
		{"unknown mode", "ledger: {admin: a, treasury: t}\ncluster: {mode: swarm}", "must be off or embedded"},
		{"unknown sink", "ledger: {admin: a, treasury: t}\nevents: {sinks: [kafka]}", "unknown event sink"},
		{"postgres without dsn", "ledger: {admin: a, treasury: t}\nevents: {sinks: [postgres]}", "postgres.dsn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeYAML(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeYAML(t, "ledger: [unterminated"))
	require.Error(t, err)
}

func TestParseKVList(t *testing.T) {
	got := parseKVList(" n1=a:1 ;; =x; n2 = b:2 ;n3=", ";")
	assert.Equal(t, map[string]string{"n1": "a:1", "n2": "b:2"}, got)
}

func TestLoad_BadEnvValue(t *testing.T) {
	t.Setenv("REDIS_DB", "two")
	_, err := Load(writeYAML(t, minimal))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_DB")
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	c, err := Load(writeYAML(t, minimal+"events:\n  sinks: [\" Redis \"]\ncluster:\n  mode: \"\"\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"redis"}, c.Events.Sinks)
	assert.Equal(t, ModeLocal, c.Cluster.Mode)
	assert.False(t, c.Embedded())
}
