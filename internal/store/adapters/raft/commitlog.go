// Package raft implementa repository.CommitLog usando HashiCorp Raft.
package raft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	hraft "github.com/hashicorp/raft"

	"github.com/dropDatabas3/dataledger/internal/cluster"
	"github.com/dropDatabas3/dataledger/internal/domain/repository"
)

// CommitLog implementa repository.CommitLog sobre un cluster.Node.
type CommitLog struct {
	node *cluster.Node
}

// NewCommitLog crea un CommitLog que wrappea un cluster.Node existente.
func NewCommitLog(node *cluster.Node) *CommitLog {
	return &CommitLog{node: node}
}

// ─── Replication ───

func (c *CommitLog) Submit(ctx context.Context, m repository.Mutation) (*repository.Commit, error) {
	if c.node == nil {
		return nil, repository.NotSubmitted(repository.ErrClusterUnavailable)
	}
	if !c.node.IsLeader() {
		return nil, repository.NotSubmitted(repository.ErrNotLeader)
	}
	if err := ctx.Err(); err != nil {
		return nil, repository.NotSubmitted(err)
	}

	data, err := json.Marshal(cluster.FromRepositoryMutation(m))
	if err != nil {
		return nil, fmt.Errorf("marshal mutation: %w", err)
	}

	index, resp, err := c.node.ApplyBytes(ctx, data)
	if err != nil {
		return nil, classify(err)
	}
	return &repository.Commit{Index: index, Result: resp}, nil
}

// classify traduce errores de raft a los del puerto. Solo los que ocurren
// antes de encolar la entrada son reintentables.
func classify(err error) error {
	switch {
	case errors.Is(err, hraft.ErrNotLeader), errors.Is(err, hraft.ErrEnqueueTimeout):
		return repository.NotSubmitted(err)
	case errors.Is(err, hraft.ErrRaftShutdown):
		return fmt.Errorf("%w: %w", repository.ErrClusterUnavailable, err)
	case errors.Is(err, hraft.ErrLeadershipLost),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", repository.ErrOutcomeUnknown, err)
	default:
		return err
	}
}

// ─── Status ───

func (c *CommitLog) GetStats(ctx context.Context) (*repository.ClusterStats, error) {
	if c.node == nil {
		return nil, repository.ErrClusterUnavailable
	}
	stats := c.node.Stats()

	role := repository.ClusterRoleFollower
	if c.node.IsLeader() {
		role = repository.ClusterRoleLeader
	}
	term, _ := strconv.ParseUint(stats["term"], 10, 64)
	commitIndex, _ := strconv.ParseUint(stats["commit_index"], 10, 64)
	appliedIndex, _ := strconv.ParseUint(stats["applied_index"], 10, 64)
	numPeers, _ := strconv.Atoi(stats["num_peers"])

	return &repository.ClusterStats{
		NodeID:       c.node.NodeID(),
		RaftAddr:     c.node.RaftAddr(),
		Mode:         "embedded",
		Role:         role,
		LeaderID:     c.node.LeaderID(),
		Term:         term,
		CommitIndex:  commitIndex,
		AppliedIndex: appliedIndex,
		NumPeers:     numPeers,
		StaticPeers:  c.node.KnownPeers(),
		Healthy:      stats["state"] == "Leader" || stats["state"] == "Follower",
	}, nil
}

func (c *CommitLog) IsLeader(ctx context.Context) (bool, error) {
	if c.node == nil {
		return false, nil
	}
	return c.node.IsLeader(), nil
}

func (c *CommitLog) GetLeaderID(ctx context.Context) (string, error) {
	if c.node == nil {
		return "", nil
	}
	return c.node.LeaderID(), nil
}

func (c *CommitLog) GetPeers(ctx context.Context) ([]repository.ClusterNode, error) {
	if c.node == nil {
		return nil, nil
	}
	// Configuración real del cluster (no el mapa estático de peers)
	config, err := c.node.GetConfiguration(ctx)
	if err != nil {
		return nil, fmt.Errorf("get configuration: %w", err)
	}

	leaderID := c.node.LeaderID()
	nodes := make([]repository.ClusterNode, 0, len(config.Servers))
	for _, srv := range config.Servers {
		id, addr := string(srv.ID), string(srv.Address)
		role := repository.ClusterRoleFollower
		// LeaderID puede venir como ID o como Address según el estado del cluster
		if id == leaderID || addr == leaderID {
			role = repository.ClusterRoleLeader
		}
		nodes = append(nodes, repository.ClusterNode{
			ID:      id,
			Address: addr,
			Role:    role,
			State:   repository.ClusterNodeHealthy,
		})
	}
	return nodes, nil
}

// ─── Membership ───

func (c *CommitLog) AddPeer(ctx context.Context, id, address string) error {
	if c.node == nil {
		return repository.ErrClusterUnavailable
	}
	if !c.node.IsLeader() {
		return repository.ErrNotLeader
	}
	return c.node.AddVoter(ctx, id, address)
}

func (c *CommitLog) RemovePeer(ctx context.Context, id string) error {
	if c.node == nil {
		return repository.ErrClusterUnavailable
	}
	if !c.node.IsLeader() {
		return repository.ErrNotLeader
	}
	return c.node.RemoveServer(ctx, id)
}

// ─── Health ───

func (c *CommitLog) Ping(ctx context.Context) error {
	st, err := c.GetStats(ctx)
	if err != nil {
		return err
	}
	if !st.Healthy {
		return repository.ErrClusterUnavailable
	}
	return nil
}

func (c *CommitLog) Close() error {
	if c.node == nil {
		return nil
	}
	return c.node.Close()
}

var _ repository.CommitLog = (*CommitLog)(nil)
