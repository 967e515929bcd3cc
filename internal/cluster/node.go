package cluster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"
	"go.uber.org/zap"

	appmetrics "github.com/dropDatabas3/dataledger/internal/metrics"
	"github.com/dropDatabas3/dataledger/internal/observability/logger"
)

var (
	errNoRaft         = errors.New("cluster: raft not initialized")
	errInvalidOptions = errors.New("cluster: node id, raft addr, fsm and raft dir are required")
)

const (
	defaultApplyTimeout = 5 * time.Second
	retainSnapshots     = 2
	boltSampleEvery     = 10 * time.Second
)

// Node envuelve *raft.Raft con lo que necesitan el commit log replicado y
// los endpoints de operación: Apply de mutaciones, liderazgo y membership.
type Node struct {
	r            *raft.Raft
	applyTimeout time.Duration
	id           raft.ServerID
	addr         raft.ServerAddress
	peers        map[string]string

	membershipMu sync.Mutex
	stop         chan struct{}
	closeOnce    sync.Once
}

// NodeOptions se llena desde la sección cluster de la config de ledgerd.
type NodeOptions struct {
	NodeID   string
	RaftAddr string
	RaftDir  string
	FSM      raft.FSM

	// Peers es el cluster estático (nodeID -> raftAddr). Con más de un peer
	// bootstrapea un solo nodo: el preferido o el de menor NodeID.
	Peers              map[string]string
	BootstrapPreferred bool
	// DisableBootstrap deja al nodo esperando que un líder lo agregue.
	DisableBootstrap bool

	RaftTLSEnable     bool
	RaftTLSCertFile   string
	RaftTLSKeyFile    string
	RaftTLSCAFile     string
	RaftTLSServerName string

	ApplyTimeout      time.Duration // 0 => 5s
	SnapshotThreshold uint64        // 0 => default de raft

	// InMemory arma stores y transporte en memoria con timeouts cortos.
	// RaftDir se ignora.
	InMemory bool
}

func (o NodeOptions) validate() error {
	if o.NodeID == "" || o.RaftAddr == "" || o.FSM == nil {
		return errInvalidOptions
	}
	if o.RaftDir == "" && !o.InMemory {
		return errInvalidOptions
	}
	return nil
}

// raftConfig traduce las opciones a raft.Config.
func (o NodeOptions) raftConfig() *raft.Config {
	cfg := raft.DefaultConfig()
	cfg.LocalID = raft.ServerID(o.NodeID)
	if o.SnapshotThreshold > 0 {
		cfg.SnapshotThreshold = o.SnapshotThreshold
	}
	if o.InMemory {
		cfg.HeartbeatTimeout = 50 * time.Millisecond
		cfg.ElectionTimeout = 50 * time.Millisecond
		cfg.LeaderLeaseTimeout = 50 * time.Millisecond
		cfg.CommitTimeout = 5 * time.Millisecond
	}
	return cfg
}

// storage agrupa lo que raft.NewRaft necesita además de la FSM.
type storage struct {
	logs     raft.LogStore
	stable   raft.StableStore
	snaps    raft.SnapshotStore
	trans    raft.Transport
	boltPath string // vacío en memoria
}

func openStorage(o NodeOptions) (*storage, error) {
	if o.InMemory {
		mem := raft.NewInmemStore()
		_, trans := raft.NewInmemTransport(raft.ServerAddress(o.RaftAddr))
		return &storage{logs: mem, stable: mem, snaps: raft.NewInmemSnapshotStore(), trans: trans}, nil
	}

	if err := os.MkdirAll(o.RaftDir, 0o755); err != nil {
		return nil, fmt.Errorf("raft dir: %w", err)
	}
	st := &storage{boltPath: filepath.Join(o.RaftDir, "raft.db")}
	bolt, err := raftboltdb.NewBoltStore(st.boltPath)
	if err != nil {
		return nil, fmt.Errorf("bolt store %s: %w", st.boltPath, err)
	}
	st.logs, st.stable = bolt, bolt

	if st.snaps, err = raft.NewFileSnapshotStore(o.RaftDir, retainSnapshots, os.Stdout); err != nil {
		_ = bolt.Close()
		return nil, fmt.Errorf("snapshot store: %w", err)
	}
	if st.trans, err = newNetworkTransport(o); err != nil {
		_ = bolt.Close()
		return nil, err
	}
	return st, nil
}

// NewNode abre (o crea) el estado raft del nodo y bootstrapea el cluster si
// no había estado previo.
func NewNode(opts NodeOptions) (*Node, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	log := logger.Named("cluster").With(logger.NodeID(opts.NodeID))

	st, err := openStorage(opts)
	if err != nil {
		return nil, err
	}
	cfg := opts.raftConfig()
	r, err := raft.NewRaft(cfg, opts.FSM, st.logs, st.stable, st.snaps, st.trans)
	if err != nil {
		return nil, fmt.Errorf("new raft: %w", err)
	}

	n := &Node{
		r:            r,
		applyTimeout: opts.ApplyTimeout,
		id:           cfg.LocalID,
		addr:         st.trans.LocalAddr(),
		peers:        opts.Peers,
		stop:         make(chan struct{}),
	}
	if n.applyTimeout <= 0 {
		n.applyTimeout = defaultApplyTimeout
	}

	n.watchLeadership(log)
	if err := n.bootstrap(opts, st, log); err != nil {
		_ = n.Close()
		return nil, err
	}
	if st.boltPath != "" {
		go n.sampleBoltSize(st.boltPath)
	}
	return n, nil
}

// watchLeadership cuenta las veces que este nodo gana el liderazgo. Usa un
// observer propio: LeaderCh lo consume el relay de eventos.
func (n *Node) watchLeadership(log *zap.Logger) {
	obs := make(chan raft.Observation, 8)
	n.r.RegisterObserver(raft.NewObserver(obs, false, func(o *raft.Observation) bool {
		_, ok := o.Data.(raft.LeaderObservation)
		return ok
	}))
	go func() {
		for {
			select {
			case <-n.stop:
				return
			case o := <-obs:
				if lo, ok := o.Data.(raft.LeaderObservation); ok && lo.LeaderID == n.id {
					appmetrics.RaftLeadershipChanges.Inc()
					log.Info("became leader")
				}
			}
		}
	}()
}

func (n *Node) bootstrap(opts NodeOptions, st *storage, log *zap.Logger) error {
	hasState, err := raft.HasExistingState(st.logs, st.stable, st.snaps)
	if err != nil {
		return fmt.Errorf("check raft state: %w", err)
	}
	addr := zap.String("raft_addr", opts.RaftAddr)
	switch {
	case hasState:
		return nil
	case opts.DisableBootstrap:
		log.Info("join-only node, waiting for the leader", addr)
		return nil
	case len(opts.Peers) <= 1:
		conf := raft.Configuration{Servers: []raft.Server{{ID: n.id, Address: n.addr}}}
		if err := n.r.BootstrapCluster(conf).Error(); err != nil {
			return fmt.Errorf("bootstrap: %w", err)
		}
		log.Info("bootstrapped single-node cluster", addr)
		return nil
	}

	ids := make([]string, 0, len(opts.Peers))
	for id := range opts.Peers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	bootstrapper := ids[0]
	if opts.NodeID < bootstrapper {
		bootstrapper = opts.NodeID
	}
	if !opts.BootstrapPreferred && opts.NodeID != bootstrapper {
		log.Info("waiting to join static cluster", addr, zap.String("bootstrapper", bootstrapper))
		return nil
	}

	servers := make([]raft.Server, 0, len(ids))
	for _, id := range ids {
		servers = append(servers, raft.Server{ID: raft.ServerID(id), Address: raft.ServerAddress(opts.Peers[id])})
	}
	if err := n.r.BootstrapCluster(raft.Configuration{Servers: servers}).Error(); err != nil {
		return fmt.Errorf("bootstrap static cluster: %w", err)
	}
	log.Info("bootstrapped static cluster", logger.Count(len(servers)), addr)
	return nil
}

func (n *Node) sampleBoltSize(path string) {
	t := time.NewTicker(boltSampleEvery)
	defer t.Stop()
	for {
		select {
		case <-n.stop:
			return
		case <-t.C:
			if fi, err := os.Stat(path); err == nil {
				appmetrics.RaftLogSizeBytes.Set(float64(fi.Size()))
			}
		}
	}
}

// await espera fut sin ignorar ctx. Si ctx termina primero la operación
// puede completarse igual en raft.
func await(ctx context.Context, fut raft.Future) error {
	done := make(chan error, 1)
	go func() { done <- fut.Error() }()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// Apply codifica la mutación y la replica.
func (n *Node) Apply(ctx context.Context, m Mutation) (uint64, interface{}, error) {
	if n == nil || n.r == nil {
		return 0, nil, errNoRaft
	}
	buf, err := json.Marshal(m)
	if err != nil {
		return 0, nil, fmt.Errorf("encode mutation: %w", err)
	}
	return n.ApplyBytes(ctx, buf)
}

// ApplyBytes replica data y espera a que la FSM local la aplique. Devuelve
// el índice del log y lo que respondió FSM.Apply.
func (n *Node) ApplyBytes(ctx context.Context, data []byte) (uint64, interface{}, error) {
	if n == nil || n.r == nil {
		return 0, nil, errNoRaft
	}
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	start := time.Now()
	fut := n.r.Apply(data, n.applyTimeout)
	if err := await(ctx, fut); err != nil {
		return 0, nil, err
	}
	appmetrics.RaftApplyLatency.Observe(float64(time.Since(start).Milliseconds()))
	return fut.Index(), fut.Response(), nil
}

func (n *Node) IsLeader() bool {
	return n != nil && n.r != nil && n.r.State() == raft.Leader
}

// LeaderID prefiere el ServerID del líder; cae a su dirección si raft
// todavía no lo conoce.
func (n *Node) LeaderID() string {
	if n == nil || n.r == nil {
		return ""
	}
	addr, id := n.r.LeaderWithID()
	if id == "" {
		return string(addr)
	}
	return string(id)
}

func (n *Node) LeaderCh() <-chan bool {
	if n == nil || n.r == nil {
		return nil
	}
	return n.r.LeaderCh()
}

// WaitForLeader bloquea hasta que haya líder conocido o ctx termine.
func (n *Node) WaitForLeader(ctx context.Context) error {
	poll := time.NewTicker(20 * time.Millisecond)
	defer poll.Stop()
	for n.LeaderID() == "" {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-poll.C:
		}
	}
	return nil
}

func (n *Node) NodeID() string {
	if n == nil {
		return ""
	}
	return string(n.id)
}

func (n *Node) RaftAddr() string {
	if n == nil {
		return ""
	}
	return string(n.addr)
}

// KnownPeers es el tamaño del cluster estático configurado.
func (n *Node) KnownPeers() int {
	if n == nil {
		return 0
	}
	return len(n.peers)
}

// Stats devuelve raft.Raft.Stats() tal cual.
func (n *Node) Stats() map[string]string {
	if n == nil || n.r == nil {
		return map[string]string{}
	}
	return n.r.Stats()
}

func (n *Node) Close() error {
	if n == nil || n.r == nil {
		return nil
	}
	n.closeOnce.Do(func() { close(n.stop) })
	return n.r.Shutdown().Error()
}
