// Package cluster provee la infraestructura Raft del ledger: el nodo
// embebido, la FSM que aplica mutaciones sobre ledger.State y el catálogo
// de payloads replicados.
package cluster

import (
	"time"

	"github.com/dropDatabas3/dataledger/internal/domain/repository"
	"github.com/dropDatabas3/dataledger/internal/ledger"
)

// MutationType define el catálogo de operaciones replicadas.
type MutationType = repository.MutationType

// Mutation es la entrada del log Raft. El payload es JSON crudo del DTO.
//
// TsUnixNano lo fija quien propone la mutación; la FSM lo usa como instante
// de commit para que todos los nodos apliquen exactamente lo mismo.
type Mutation struct {
	Type       MutationType `json:"type"`
	Caller     string       `json:"caller"`
	TsUnixNano int64        `json:"tsUnixNano"`
	Payload    []byte       `json:"payload,omitempty"`
}

// At devuelve el instante de commit de la mutación.
func (m Mutation) At() time.Time {
	return time.Unix(0, m.TsUnixNano).UTC()
}

// FromRepositoryMutation convierte la mutación del puerto al formato del log.
func FromRepositoryMutation(m repository.Mutation) Mutation {
	return Mutation{
		Type:       m.Type,
		Caller:     m.Caller,
		TsUnixNano: m.Timestamp.UnixNano(),
		Payload:    m.Payload,
	}
}

// ApplyResult es lo que la FSM devuelve por cada entrada aplicada.
// Err es un error de negocio (*ledger.Error) o de decodificación; en ambos
// casos el estado no cambió.
type ApplyResult struct {
	Receipt ledger.Receipt
	Err     error
}

// ─── Payloads ───

// RegisterDatasetDTO payload para MutationDatasetRegister.
type RegisterDatasetDTO struct {
	ContentAddress string            `json:"contentAddress"`
	Name           string            `json:"name"`
	Description    string            `json:"description,omitempty"`
	Price          uint64            `json:"price"`
	Visibility     ledger.Visibility `json:"visibility"`
	Categories     []string          `json:"categories,omitempty"`
}

// UpdatePriceDTO payload para MutationDatasetUpdatePrice.
type UpdatePriceDTO struct {
	DatasetID uint64 `json:"datasetId"`
	NewPrice  uint64 `json:"newPrice"`
}

// AddCategoryDTO payload para MutationDatasetAddCategory.
type AddCategoryDTO struct {
	DatasetID uint64 `json:"datasetId"`
	Category  string `json:"category"`
}

// DatasetRefDTO payload para mutaciones que solo referencian un dataset
// (MutationDatasetRevoke, MutationLicensePurchase).
type DatasetRefDTO struct {
	DatasetID uint64 `json:"datasetId"`
}

// RevokeLicenseDTO payload para MutationLicenseRevoke.
type RevokeLicenseDTO struct {
	DatasetID uint64 `json:"datasetId"`
	Licensee  string `json:"licensee"`
}

// SetFeeDTO payload para MutationFeeSet.
type SetFeeDTO struct {
	FeeBps uint32 `json:"feeBps"`
}

// RoleDTO payload para MutationRoleGrant y MutationRoleRevoke.
type RoleDTO struct {
	Role    ledger.Role `json:"role"`
	Account string      `json:"account"`
}

// AuditDTO payload para MutationAuditPerform.
type AuditDTO struct {
	DatasetID uint64 `json:"datasetId"`
	Notes     string `json:"notes"`
	Passed    bool   `json:"passed"`
}

// ConsentDTO payload para MutationConsentUpdate.
type ConsentDTO struct {
	DatasetID    uint64   `json:"datasetId"`
	ConsentGiven bool     `json:"consentGiven"`
	Rights       []string `json:"rights,omitempty"`
}

// MintDTO payload para MutationTokenMint.
type MintDTO struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// BurnDTO payload para MutationTokenBurn. MutationTokenFaucet no tiene payload.
type BurnDTO struct {
	Amount uint64 `json:"amount"`
}
