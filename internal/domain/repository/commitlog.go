package repository

import (
	"context"
	"time"
)

// ClusterNode representa un nodo del cluster.
type ClusterNode struct {
	ID      string           `json:"id"`
	Address string           `json:"address"`
	Role    ClusterRole      `json:"role"`
	State   ClusterNodeState `json:"state"`
}

// ClusterRole indica el rol de un nodo.
type ClusterRole string

const (
	ClusterRoleLeader   ClusterRole = "leader"
	ClusterRoleFollower ClusterRole = "follower"
)

// ClusterNodeState indica el estado de un nodo.
type ClusterNodeState string

const (
	ClusterNodeHealthy     ClusterNodeState = "healthy"
	ClusterNodeUnreachable ClusterNodeState = "unreachable"
)

// ClusterStats contiene estadísticas del commit log.
type ClusterStats struct {
	NodeID       string      `json:"nodeId"`
	RaftAddr     string      `json:"raftAddr,omitempty"`
	Mode         string      `json:"mode"` // "embedded" (raft) o "off" (local)
	Role         ClusterRole `json:"role"`
	LeaderID     string      `json:"leaderId"`
	Term         uint64      `json:"term"`
	CommitIndex  uint64      `json:"commitIndex"`
	AppliedIndex uint64      `json:"appliedIndex"`
	NumPeers     int         `json:"numPeers"`
	StaticPeers  int         `json:"staticPeers,omitempty"` // cluster.nodes configurado
	Healthy      bool        `json:"healthy"`
}

// MutationType indica el tipo de mutación del ledger a replicar.
type MutationType string

const (
	MutationDatasetRegister    MutationType = "dataset.register"
	MutationDatasetUpdatePrice MutationType = "dataset.update_price"
	MutationDatasetAddCategory MutationType = "dataset.add_category"
	MutationDatasetRevoke      MutationType = "dataset.revoke"
	MutationLicensePurchase    MutationType = "license.purchase"
	MutationLicenseRevoke      MutationType = "license.revoke"
	MutationFeeSet             MutationType = "fee.set"
	MutationRoleGrant          MutationType = "role.grant"
	MutationRoleRevoke         MutationType = "role.revoke"
	MutationAuditPerform       MutationType = "audit.perform"
	MutationConsentUpdate      MutationType = "consent.update"
	MutationTokenMint          MutationType = "token.mint"
	MutationTokenFaucet        MutationType = "token.faucet"
	MutationTokenBurn          MutationType = "token.burn"
)

// Mutation es una operación del ledger a replicar.
// Timestamp es el instante de commit: todos los nodos aplican la mutación
// con este valor, nunca con su propio reloj.
type Mutation struct {
	Type      MutationType
	Caller    string
	Payload   []byte // JSON serializado del DTO
	Timestamp time.Time
}

// Commit es el resultado de una mutación aceptada por el log.
// Result es lo que devolvió la máquina de estados al aplicarla.
type Commit struct {
	Index  uint64
	Result any
}

// CommitLog es el log totalmente ordenado de mutaciones.
// Abstrae Raft (modo embedded) o un log serial en proceso (modo off).
type CommitLog interface {
	// ─── Replication ───

	// Submit propone una mutación y espera a que se aplique.
	// Los errores que envuelven ErrNotSubmitted garantizan que la mutación
	// no entró al log y pueden reintentarse; cualquier otro error no.
	Submit(ctx context.Context, m Mutation) (*Commit, error)

	// ─── Status ───

	// IsLeader indica si este nodo puede aceptar mutaciones.
	IsLeader(ctx context.Context) (bool, error)

	// GetLeaderID obtiene el ID del líder actual.
	GetLeaderID(ctx context.Context) (string, error)

	// GetStats obtiene estadísticas del log.
	GetStats(ctx context.Context) (*ClusterStats, error)

	// GetPeers lista los nodos del cluster.
	GetPeers(ctx context.Context) ([]ClusterNode, error)

	// ─── Membership ───

	// AddPeer agrega un nodo votante. Solo el líder.
	AddPeer(ctx context.Context, id, address string) error

	// RemovePeer elimina un nodo. Solo el líder.
	RemovePeer(ctx context.Context, id string) error

	// ─── Health ───

	// Ping verifica que el log está operativo.
	Ping(ctx context.Context) error

	// Close detiene el log.
	Close() error
}
