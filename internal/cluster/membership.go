package cluster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/raft"
)

const membershipTimeout = 10 * time.Second

// GetConfiguration devuelve los servers que raft conoce hoy.
func (n *Node) GetConfiguration(ctx context.Context) (raft.Configuration, error) {
	if n == nil || n.r == nil {
		return raft.Configuration{}, errNoRaft
	}
	fut := n.r.GetConfiguration()
	if err := await(ctx, fut); err != nil {
		return raft.Configuration{}, err
	}
	return fut.Configuration(), nil
}

// AddVoter suma id como votante. Si ya está con la misma dirección no hace
// nada; si está con otra, lo saca y lo vuelve a agregar.
func (n *Node) AddVoter(ctx context.Context, id, addr string) error {
	if n == nil || n.r == nil {
		return errNoRaft
	}
	if id == "" || addr == "" {
		return errors.New("cluster: voter id and address are required")
	}

	n.membershipMu.Lock()
	defer n.membershipMu.Unlock()

	current, found, err := n.lookupServer(ctx, raft.ServerID(id))
	if err != nil {
		return err
	}
	if found {
		if current.Address == raft.ServerAddress(addr) {
			return nil
		}
		if err := n.removeLocked(ctx, current.ID); err != nil {
			return fmt.Errorf("re-add %s: %w", id, err)
		}
	}
	return await(ctx, n.r.AddVoter(raft.ServerID(id), raft.ServerAddress(addr), 0, membershipTimeout))
}

// RemoveServer saca id del cluster. Un id desconocido no es error.
func (n *Node) RemoveServer(ctx context.Context, id string) error {
	if n == nil || n.r == nil {
		return errNoRaft
	}
	if id == "" {
		return errors.New("cluster: server id is required")
	}

	n.membershipMu.Lock()
	defer n.membershipMu.Unlock()

	_, found, err := n.lookupServer(ctx, raft.ServerID(id))
	if err != nil || !found {
		return err
	}
	return n.removeLocked(ctx, raft.ServerID(id))
}

func (n *Node) lookupServer(ctx context.Context, id raft.ServerID) (raft.Server, bool, error) {
	conf, err := n.GetConfiguration(ctx)
	if err != nil {
		return raft.Server{}, false, fmt.Errorf("get configuration: %w", err)
	}
	for _, srv := range conf.Servers {
		if srv.ID == id {
			return srv, true, nil
		}
	}
	return raft.Server{}, false, nil
}

// removeLocked asume membershipMu tomado.
func (n *Node) removeLocked(ctx context.Context, id raft.ServerID) error {
	return await(ctx, n.r.RemoveServer(id, 0, membershipTimeout))
}
