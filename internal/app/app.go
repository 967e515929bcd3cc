// Package app arma el nodo ledgerd a partir de la configuración: commit log,
// FSM, facade, relay de eventos y servidor HTTP operativo.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/dataledger/internal/cluster"
	"github.com/dropDatabas3/dataledger/internal/config"
	"github.com/dropDatabas3/dataledger/internal/domain/repository"
	"github.com/dropDatabas3/dataledger/internal/events"
	"github.com/dropDatabas3/dataledger/internal/facade"
	httpserver "github.com/dropDatabas3/dataledger/internal/http"
	"github.com/dropDatabas3/dataledger/internal/http/router"
	"github.com/dropDatabas3/dataledger/internal/ledger"
	"github.com/dropDatabas3/dataledger/internal/metrics"
	"github.com/dropDatabas3/dataledger/internal/observability/logger"
	"github.com/dropDatabas3/dataledger/internal/store"
	"github.com/dropDatabas3/dataledger/internal/store/adapters/local"
	raftlog "github.com/dropDatabas3/dataledger/internal/store/adapters/raft"

	// Registran sus sinks en store vía init()
	_ "github.com/dropDatabas3/dataledger/internal/store/adapters/pg"
	_ "github.com/dropDatabas3/dataledger/internal/store/adapters/redis"
)

// App es el nodo armado.
type App struct {
	Config    *config.Config
	FSM       *cluster.FSM
	CommitLog repository.CommitLog
	Ledger    facade.Service
	Relay     *events.Relay
	Registry  *prometheus.Registry
	Handler   http.Handler

	node   *cluster.Node
	log    *zap.Logger
	closed bool
}

// New arma el nodo. Si algo falla a mitad de camino, libera lo ya creado.
func New(ctx context.Context, cfg *config.Config, version string) (a *App, err error) {
	a = &App{
		Config:   cfg,
		Registry: prometheus.NewRegistry(),
		log:      logger.Named("app"),
	}
	defer func() {
		if err != nil {
			_ = a.Close()
			a = nil
		}
	}()

	if err = a.registerMetrics(); err != nil {
		return nil, err
	}

	state := ledger.New(ledger.Genesis{
		Admin:          cfg.Ledger.Admin,
		Treasury:       cfg.Ledger.Treasury,
		PlatformFeeBps: cfg.Ledger.PlatformFeeBps,
		FaucetAmount:   cfg.Ledger.FaucetAmount,
	})
	a.FSM = cluster.NewFSM(state)

	if err = a.openCommitLog(); err != nil {
		return nil, err
	}

	a.Ledger, err = facade.NewService(facade.Deps{
		Log: a.CommitLog,
		FSM: a.FSM,
		Retry: facade.RetryPolicy{
			Attempts: cfg.Facade.RetryAttempts,
			Backoff:  cfg.Facade.RetryBackoff,
		},
		CacheTTL: cfg.Facade.CacheTTL,
	})
	if err != nil {
		return nil, err
	}

	sinks, err := a.openSinks(ctx)
	if err != nil {
		return nil, err
	}
	a.Relay = events.NewRelay(state, a.CommitLog, sinks, events.Options{
		Interval:  cfg.Events.Interval,
		BatchSize: cfg.Events.BatchSize,
	})

	a.Handler = router.New(router.Deps{
		CommitLog: a.CommitLog,
		Gatherer:  a.Registry,
		OpsSecret: []byte(cfg.Ops.TokenSecret),
		Version:   version,
	})
	return a, nil
}

func (a *App) registerMetrics() error {
	reg := a.Registry
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return err
	}
	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return err
	}
	for _, fn := range []func(prometheus.Registerer) error{
		metrics.RegisterLedger,
		metrics.RegisterRaft,
		metrics.RegisterHTTP,
	} {
		if err := fn(reg); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
	}
	return nil
}

func (a *App) openCommitLog() error {
	cc := a.Config.Cluster
	if !a.Config.Embedded() {
		nodeID := cc.NodeID
		if nodeID == "" {
			nodeID = "local"
		}
		a.CommitLog = local.NewCommitLog(nodeID, a.FSM)
		a.log.Info("commit log ready", logger.String("mode", "off"), logger.NodeID(nodeID))
		return nil
	}

	node, err := cluster.NewNode(cluster.NodeOptions{
		NodeID:             cc.NodeID,
		RaftAddr:           cc.RaftAddr,
		RaftDir:            cc.RaftDir,
		FSM:                a.FSM,
		Peers:              cc.Nodes,
		BootstrapPreferred: cc.Bootstrap,
		DisableBootstrap:   cc.JoinOnly,
		RaftTLSEnable:      cc.RaftTLSEnable,
		RaftTLSCertFile:    cc.RaftTLSCertFile,
		RaftTLSKeyFile:     cc.RaftTLSKeyFile,
		RaftTLSCAFile:      cc.RaftTLSCAFile,
		RaftTLSServerName:  cc.RaftTLSServerName,
		ApplyTimeout:       cc.ApplyTimeout,
		SnapshotThreshold:  uint64(cc.SnapshotEvery),
	})
	if err != nil {
		return fmt.Errorf("raft node: %w", err)
	}
	a.node = node
	a.CommitLog = raftlog.NewCommitLog(node)
	a.log.Info("commit log ready", logger.String("mode", config.ModeEmbedded), logger.NodeID(cc.NodeID), logger.Count(len(cc.Nodes)))
	return nil
}

// openSinks abre los sinks configurados por nombre, vía el registry de store.
func (a *App) openSinks(ctx context.Context) (sinks []events.Sink, err error) {
	defer func() {
		if err != nil {
			for _, s := range sinks {
				_ = s.Close()
			}
		}
	}()
	for _, name := range a.Config.Events.Sinks {
		s, err := store.OpenSink(ctx, strings.ToLower(strings.TrimSpace(name)), a.Config)
		if err != nil {
			return sinks, err
		}
		sinks = append(sinks, s)

		// El sink de Postgres expone su pool para las métricas.
		if p, ok := s.(interface{ Pool() *pgxpool.Pool }); ok {
			if err := metrics.RegisterPGPool(a.Registry, p.Pool); err != nil {
				return sinks, err
			}
		}
	}
	return sinks, nil
}

// Run atiende HTTP y corre el relay hasta que ctx termine o alguno falle.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if a.node != nil {
		g.Go(func() error {
			wctx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			if err := a.node.WaitForLeader(wctx); err != nil && ctx.Err() == nil {
				a.log.Warn("no leader elected yet", logger.Err(err))
				return nil
			}
			leader, _ := a.CommitLog.GetLeaderID(ctx)
			a.log.Info("cluster leader known", logger.String("leader", leader))
			return nil
		})
	}

	g.Go(func() error { return a.Relay.Run(ctx) })

	srv := httpserver.NewServer(a.Config.Server.Addr, a.Handler)
	g.Go(func() error { return httpserver.Serve(ctx, srv, a.Config.Server.ShutdownTimeout) })

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close cierra los sinks (vía el relay) y después el commit log.
func (a *App) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true

	var errs []error
	if a.Relay != nil {
		errs = append(errs, a.Relay.Close())
	}
	if a.CommitLog != nil {
		errs = append(errs, a.CommitLog.Close())
	}
	return errors.Join(errs...)
}
