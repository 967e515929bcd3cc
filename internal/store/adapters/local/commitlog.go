// Package local implementa repository.CommitLog en proceso, sin consenso.
// Es el modo "off" de un único nodo: las mutaciones se aplican en serie
// sobre la FSM, en el orden en que se obtiene el lock.
package local

import (
	"context"
	"sync"

	"github.com/dropDatabas3/dataledger/internal/cluster"
	"github.com/dropDatabas3/dataledger/internal/domain/repository"
)

// CommitLog aplica cada mutación de forma síncrona sobre la FSM.
type CommitLog struct {
	nodeID string
	fsm    *cluster.FSM

	mu     sync.Mutex
	index  uint64
	closed bool
}

// NewCommitLog crea un log serial sobre fsm.
func NewCommitLog(nodeID string, fsm *cluster.FSM) *CommitLog {
	if nodeID == "" {
		nodeID = "local"
	}
	return &CommitLog{nodeID: nodeID, fsm: fsm}
}

func (c *CommitLog) Submit(ctx context.Context, m repository.Mutation) (*repository.Commit, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, repository.NotSubmitted(repository.ErrClusterUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return nil, repository.NotSubmitted(err)
	}
	c.index++
	res := c.fsm.ApplyMutation(cluster.FromRepositoryMutation(m))
	return &repository.Commit{Index: c.index, Result: res}, nil
}

func (c *CommitLog) IsLeader(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed, nil
}

func (c *CommitLog) GetLeaderID(ctx context.Context) (string, error) {
	return c.nodeID, nil
}

func (c *CommitLog) GetStats(ctx context.Context) (*repository.ClusterStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &repository.ClusterStats{
		NodeID:       c.nodeID,
		Mode:         "off",
		Role:         repository.ClusterRoleLeader,
		LeaderID:     c.nodeID,
		CommitIndex:  c.index,
		AppliedIndex: c.index,
		NumPeers:     0,
		Healthy:      !c.closed,
	}, nil
}

func (c *CommitLog) GetPeers(ctx context.Context) ([]repository.ClusterNode, error) {
	return []repository.ClusterNode{{
		ID:    c.nodeID,
		Role:  repository.ClusterRoleLeader,
		State: repository.ClusterNodeHealthy,
	}}, nil
}

// AddPeer no está soportado sin raft.
func (c *CommitLog) AddPeer(ctx context.Context, id, address string) error {
	return repository.ErrNotImplemented
}

// RemovePeer no está soportado sin raft.
func (c *CommitLog) RemovePeer(ctx context.Context, id string) error {
	return repository.ErrNotImplemented
}

func (c *CommitLog) Ping(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return repository.ErrClusterUnavailable
	}
	return nil
}

func (c *CommitLog) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

var _ repository.CommitLog = (*CommitLog)(nil)
