// Package ledger implementa la máquina de estados del ledger de licencias:
// Role Registry, Fee Policy, Dataset Registry, License Ledger y Compliance
// Store sobre un único estado compartido.
//
// Todas las mutaciones son determinísticas: reciben el instante de commit
// como argumento y nunca leen el reloj, por lo que reaplicar el mismo log en
// otro nodo produce exactamente el mismo estado (incluidos IDs y eventos).
//
// Cada mutación valida todas sus precondiciones antes de escribir; la única
// operación falible posterior es la transferencia de fondos, que es
// todo-o-nada. Así ningún error deja estado parcial.
package ledger

import (
	"sync"

	"github.com/dropDatabas3/dataledger/internal/token"
)

// Funds es el colaborador de transferencia de fondos. Transfer debe ser
// todo-o-nada: o se aplican todos los legs o ninguno.
type Funds interface {
	Transfer(from string, legs []token.Leg) error
}

type pairKey struct {
	datasetID uint64
	licensee  string
}

// State es el estado replicado completo.
type State struct {
	mu sync.RWMutex

	genesis Genesis

	// Dataset Registry
	datasets []*Dataset // indexado por ID

	// License Ledger
	licenses   map[string]*License
	issued     []string             // IDs en orden de emisión global
	byPair     map[pairKey][]string // IDs en orden de emisión
	byLicensee map[string][]string

	// Role Registry
	roles map[string]map[Role]struct{}

	// Fee Policy
	feeBps   uint32
	treasury string

	// Compliance Store
	audits   map[uint64][]AuditRecord
	consents map[uint64]ConsentRecord

	tokens *token.Ledger
	funds  Funds

	events []Event
}

// Option configura un State.
type Option func(*State)

// WithFunds reemplaza el colaborador de fondos (por defecto, el token ledger
// interno). Útil para inyectar fallas en tests.
func WithFunds(f Funds) Option {
	return func(s *State) { s.funds = f }
}

// New inicializa el estado desde el génesis. El admin del génesis queda con
// RoleAdmin (bootstrap).
func New(g Genesis, opts ...Option) *State {
	s := &State{genesis: g, tokens: token.New()}
	s.funds = s.tokens
	s.reset()
	for _, o := range opts {
		o(s)
	}
	return s
}

// reset vuelve al estado de génesis. Requiere s.mu tomado o State sin publicar.
func (s *State) reset() {
	s.datasets = nil
	s.licenses = make(map[string]*License)
	s.issued = nil
	s.byPair = make(map[pairKey][]string)
	s.byLicensee = make(map[string][]string)
	s.roles = make(map[string]map[Role]struct{})
	s.audits = make(map[uint64][]AuditRecord)
	s.consents = make(map[uint64]ConsentRecord)
	s.events = nil

	fee := s.genesis.PlatformFeeBps
	if fee > MaxPlatformFeeBps {
		fee = MaxPlatformFeeBps
	}
	s.feeBps = fee
	s.treasury = s.genesis.Treasury

	s.tokens.Restore(token.Snapshot{})
	if s.genesis.Admin != "" {
		s.roles[s.genesis.Admin] = map[Role]struct{}{RoleAdmin: {}}
	}
}

// hasRoleLocked requiere s.mu tomado.
func (s *State) hasRoleLocked(account string, r Role) bool {
	set, ok := s.roles[account]
	if !ok {
		return false
	}
	_, ok = set[r]
	return ok
}

// datasetLocked requiere s.mu tomado.
func (s *State) datasetLocked(id uint64) (*Dataset, error) {
	if id >= uint64(len(s.datasets)) {
		return nil, ErrDatasetNotFound.WithDetail("dataset %d", id)
	}
	return s.datasets[id], nil
}
