// Package config carga la configuración de ledgerd: YAML opcional, pisado
// por variables de entorno y validado antes de arrancar.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ModeLocal    = "off"
	ModeEmbedded = "embedded"

	// maxFeeBps replica el tope del Fee Policy: 10%.
	maxFeeBps = 1000
)

type Config struct {
	App struct {
		Env      string `yaml:"app_env"` // dev | staging | prod
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`

	Server struct {
		Addr            string        `yaml:"addr"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	// Ledger es el génesis. Todos los nodos de un cluster arrancan con el mismo.
	Ledger struct {
		Admin          string `yaml:"admin"`
		Treasury       string `yaml:"treasury"`
		PlatformFeeBps uint32 `yaml:"platform_fee_bps"`
		FaucetAmount   uint64 `yaml:"faucet_amount"`
	} `yaml:"ledger"`

	Facade struct {
		RetryAttempts int           `yaml:"retry_attempts"`
		RetryBackoff  time.Duration `yaml:"retry_backoff"`
		CacheTTL      time.Duration `yaml:"cache_ttl"`
	} `yaml:"facade"`

	Cluster struct {
		Mode          string            `yaml:"mode" json:"mode"`
		NodeID        string            `yaml:"node_id" json:"nodeId"`
		RaftAddr      string            `yaml:"raft_addr" json:"raftAddr"`
		RaftDir       string            `yaml:"raft_dir" json:"raftDir"`
		Nodes         map[string]string `yaml:"nodes" json:"nodes"`
		Bootstrap     bool              `yaml:"bootstrap" json:"bootstrap"`
		JoinOnly      bool              `yaml:"join_only" json:"joinOnly"`
		ApplyTimeout  time.Duration     `yaml:"apply_timeout" json:"applyTimeout"`
		SnapshotEvery int               `yaml:"snapshot_every" json:"snapshotEvery"`

		RaftTLSEnable     bool   `yaml:"raft_tls_enable" json:"raftTlsEnable"`
		RaftTLSCertFile   string `yaml:"raft_tls_cert_file" json:"raftTlsCertFile"`
		RaftTLSKeyFile    string `yaml:"raft_tls_key_file" json:"raftTlsKeyFile"`
		RaftTLSCAFile     string `yaml:"raft_tls_ca_file" json:"raftTlsCaFile"`
		RaftTLSServerName string `yaml:"raft_tls_server_name" json:"raftTlsServerName"`
	} `yaml:"cluster" json:"cluster"`

	Events struct {
		Sinks     []string      `yaml:"sinks"`
		Interval  time.Duration `yaml:"interval"`
		BatchSize int           `yaml:"batch_size"`
	} `yaml:"events"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Stream   string `yaml:"stream"`
		MaxLen   int64  `yaml:"max_len"`
	} `yaml:"redis"`

	Postgres struct {
		DSN             string        `yaml:"dsn"`
		MaxConns        int32         `yaml:"max_conns"`
		MinConns        int32         `yaml:"min_conns"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
		Migrate         bool          `yaml:"migrate"`
	} `yaml:"postgres"`

	Ops struct {
		TokenSecret string `yaml:"token_secret"` // HS256 de /v1/cluster/*
	} `yaml:"ops"`
}

// defaults devuelve la config base sobre la que se decodifica el YAML. Las
// claves ausentes en el archivo conservan estos valores.
func defaults() Config {
	var c Config
	c.App.Env = "dev"
	c.App.LogLevel = "info"
	c.Server.Addr = ":8080"
	c.Server.ShutdownTimeout = 10 * time.Second
	c.Facade.RetryAttempts = 3
	c.Facade.RetryBackoff = 50 * time.Millisecond
	c.Facade.CacheTTL = 30 * time.Second
	c.Cluster.Mode = ModeLocal
	c.Cluster.Nodes = map[string]string{}
	c.Cluster.RaftDir = "./data/raft"
	c.Cluster.ApplyTimeout = 5 * time.Second
	c.Events.Sinks = []string{"log"}
	c.Events.Interval = 500 * time.Millisecond
	c.Events.BatchSize = 256
	c.Redis.Addr = "localhost:6379"
	c.Redis.Stream = "ledger:events"
	return c
}

// Load arma la config: defaults, YAML en path (si hay), env y Validate.
// raft_dir relativo se resuelve contra el directorio del YAML.
func Load(path string) (*Config, error) {
	c := defaults()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	c.normalize()

	if path != "" && !filepath.IsAbs(c.Cluster.RaftDir) {
		c.Cluster.RaftDir = filepath.Clean(filepath.Join(filepath.Dir(path), c.Cluster.RaftDir))
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// normalize repara lo que el YAML puede dejar vacío explícitamente.
func (c *Config) normalize() {
	c.App.Env = strings.ToLower(strings.TrimSpace(c.App.Env))
	c.Cluster.Mode = strings.ToLower(strings.TrimSpace(c.Cluster.Mode))
	if c.Cluster.Mode == "" {
		c.Cluster.Mode = ModeLocal
	}
	if c.Cluster.Nodes == nil {
		c.Cluster.Nodes = map[string]string{}
	}
	if c.Cluster.RaftDir == "" {
		c.Cluster.RaftDir = "./data/raft"
	}
	for i, s := range c.Events.Sinks {
		c.Events.Sinks[i] = strings.ToLower(strings.TrimSpace(s))
	}
}

// Validate junta todos los problemas en un solo error.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	if strings.TrimSpace(c.Ledger.Admin) == "" {
		fail("ledger.admin is required")
	}
	if strings.TrimSpace(c.Ledger.Treasury) == "" {
		fail("ledger.treasury is required")
	}
	if c.Ledger.PlatformFeeBps > maxFeeBps {
		fail("ledger.platform_fee_bps %d exceeds %d", c.Ledger.PlatformFeeBps, maxFeeBps)
	}

	cc := c.Cluster
	switch cc.Mode {
	case ModeLocal:
	case ModeEmbedded:
		if cc.NodeID == "" || cc.RaftAddr == "" {
			fail("cluster.node_id and cluster.raft_addr are required in embedded mode")
		}
		if cc.RaftTLSEnable && (cc.RaftTLSCertFile == "" || cc.RaftTLSKeyFile == "" || cc.RaftTLSCAFile == "") {
			fail("cluster raft tls needs cert, key and ca files")
		}
	default:
		fail("cluster.mode %q must be %s or %s", cc.Mode, ModeLocal, ModeEmbedded)
	}

	for _, s := range c.Events.Sinks {
		switch s {
		case "log", "redis":
		case "postgres":
			if c.Postgres.DSN == "" {
				fail("postgres sink needs postgres.dsn")
			}
		default:
			fail("unknown event sink %q", s)
		}
	}
	return errors.Join(errs...)
}

func (c *Config) IsProd() bool { return c.App.Env == "prod" }

// Embedded indica si el commit log es raft.
func (c *Config) Embedded() bool { return c.Cluster.Mode == ModeEmbedded }
