package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// binding asocia una variable de entorno con el campo que pisa. set recibe
// el valor ya recortado y solo se llama si la variable tiene contenido.
type binding struct {
	key string
	set func(v string) error
}

func str(dst *string) func(string) error {
	return func(v string) error { *dst = v; return nil }
}

func lower(dst *string) func(string) error {
	return func(v string) error { *dst = strings.ToLower(v); return nil }
}

func integer(dst *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		*dst = n
		return err
	}
}

func uint64s(dst *uint64) func(string) error {
	return func(v string) error {
		n, err := strconv.ParseUint(v, 10, 64)
		*dst = n
		return err
	}
}

func basisPoints(dst *uint32) func(string) error {
	return func(v string) error {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return err
		}
		*dst = uint32(min(n, math.MaxUint32))
		return nil
	}
}

func boolean(dst *bool) func(string) error {
	return func(v string) error {
		b, err := strconv.ParseBool(v)
		*dst = b
		return err
	}
}

func duration(dst *time.Duration) func(string) error {
	return func(v string) error {
		d, err := time.ParseDuration(v)
		*dst = d
		return err
	}
}

func csv(dst *[]string) func(string) error {
	return func(v string) error {
		var out []string
		for _, p := range strings.Split(v, ",") {
			if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
				out = append(out, p)
			}
		}
		*dst = out
		return nil
	}
}

// peers mezcla "n1=host:port;n2=host:port" sobre los nodos del YAML.
func peers(dst map[string]string) func(string) error {
	return func(v string) error {
		for k, addr := range parseKVList(v, ";") {
			dst[k] = addr
		}
		return nil
	}
}

func (c *Config) bindings() []binding {
	return []binding{
		{"APP_ENV", lower(&c.App.Env)},
		{"LOG_LEVEL", lower(&c.App.LogLevel)},
		{"SERVER_ADDR", str(&c.Server.Addr)},
		{"SERVER_SHUTDOWN_TIMEOUT", duration(&c.Server.ShutdownTimeout)},

		{"LEDGER_ADMIN", str(&c.Ledger.Admin)},
		{"LEDGER_TREASURY", str(&c.Ledger.Treasury)},
		{"LEDGER_PLATFORM_FEE_BPS", basisPoints(&c.Ledger.PlatformFeeBps)},
		{"LEDGER_FAUCET_AMOUNT", uint64s(&c.Ledger.FaucetAmount)},

		{"CLUSTER_MODE", lower(&c.Cluster.Mode)},
		{"CLUSTER_NODE_ID", str(&c.Cluster.NodeID)},
		{"CLUSTER_RAFT_ADDR", str(&c.Cluster.RaftAddr)},
		{"CLUSTER_RAFT_DIR", str(&c.Cluster.RaftDir)},
		{"CLUSTER_NODES", peers(c.Cluster.Nodes)},
		{"CLUSTER_BOOTSTRAP", boolean(&c.Cluster.Bootstrap)},
		{"CLUSTER_JOIN_ONLY", boolean(&c.Cluster.JoinOnly)},
		{"RAFT_SNAPSHOT_EVERY", integer(&c.Cluster.SnapshotEvery)},
		{"RAFT_TLS_ENABLE", boolean(&c.Cluster.RaftTLSEnable)},
		{"RAFT_TLS_CERT_FILE", str(&c.Cluster.RaftTLSCertFile)},
		{"RAFT_TLS_KEY_FILE", str(&c.Cluster.RaftTLSKeyFile)},
		{"RAFT_TLS_CA_FILE", str(&c.Cluster.RaftTLSCAFile)},
		{"RAFT_TLS_SERVER_NAME", str(&c.Cluster.RaftTLSServerName)},

		{"EVENTS_SINKS", csv(&c.Events.Sinks)},
		{"REDIS_ADDR", str(&c.Redis.Addr)},
		{"REDIS_DB", integer(&c.Redis.DB)},
		{"REDIS_PASSWORD", str(&c.Redis.Password)},
		{"REDIS_STREAM", str(&c.Redis.Stream)},
		{"POSTGRES_DSN", str(&c.Postgres.DSN)},
		{"POSTGRES_MIGRATE", boolean(&c.Postgres.Migrate)},

		{"OPS_TOKEN_SECRET", str(&c.Ops.TokenSecret)},
	}
}

// applyEnv pisa la config con el entorno. Un valor que no parsea es error:
// mejor no arrancar que arrancar con el default equivocado.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if c.Cluster.Nodes == nil {
		c.Cluster.Nodes = map[string]string{}
	}
	for _, b := range c.bindings() {
		v, ok := lookup(b.key)
		if v = strings.TrimSpace(v); !ok || v == "" {
			continue
		}
		if err := b.set(v); err != nil {
			return fmt.Errorf("config: env %s=%q: %w", b.key, v, err)
		}
	}
	return nil
}

// parseKVList parte "k1=v1<sep>k2=v2". Descarta items sin clave o sin valor.
func parseKVList(s, sep string) map[string]string {
	out := map[string]string{}
	for _, item := range strings.Split(s, sep) {
		k, v, ok := strings.Cut(item, "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if ok && k != "" && v != "" {
			out[k] = v
		}
	}
	return out
}
