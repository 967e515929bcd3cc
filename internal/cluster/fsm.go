package cluster

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/hashicorp/raft"

	"github.com/dropDatabas3/dataledger/internal/domain/repository"
	"github.com/dropDatabas3/dataledger/internal/ledger"
	appmetrics "github.com/dropDatabas3/dataledger/internal/metrics"
)

// Observer se invoca después de aplicar cada mutación, en el goroutine de
// la FSM. Debe ser rápido y no bloquear.
type Observer func(m Mutation, res ApplyResult)

// FSM aplica mutaciones del log sobre un ledger.State.
type FSM struct {
	state *ledger.State

	mu        sync.RWMutex
	observers []Observer
	restored  []func()
}

func NewFSM(state *ledger.State) *FSM { return &FSM{state: state} }

// State devuelve el estado sobre el que aplica la FSM (para lecturas).
func (f *FSM) State() *ledger.State { return f.state }

// OnApply registra un observer.
func (f *FSM) OnApply(o Observer) {
	f.mu.Lock()
	f.observers = append(f.observers, o)
	f.mu.Unlock()
}

// OnRestore registra un hook que corre después de instalar un snapshot.
func (f *FSM) OnRestore(fn func()) {
	f.mu.Lock()
	f.restored = append(f.restored, fn)
	f.mu.Unlock()
}

// Apply decodifica la mutación y la ejecuta. Siempre devuelve ApplyResult.
func (f *FSM) Apply(l *raft.Log) interface{} {
	if l == nil || len(l.Data) == 0 {
		return ApplyResult{Err: ledger.ErrInvalidInput.WithDetail("empty log entry")}
	}
	var m Mutation
	if err := json.Unmarshal(l.Data, &m); err != nil {
		return ApplyResult{Err: ledger.ErrInvalidInput.WithDetail("decode mutation").WithCause(err)}
	}
	return f.ApplyMutation(m)
}

// ApplyMutation aplica una mutación ya decodificada. La usa también el
// commit log local, que no pasa por raft.
func (f *FSM) ApplyMutation(m Mutation) ApplyResult {
	rec, err := f.dispatch(m)
	res := ApplyResult{Receipt: rec, Err: err}

	f.observe(m, res)

	f.mu.RLock()
	obs := f.observers
	f.mu.RUnlock()
	for _, o := range obs {
		o(m, res)
	}
	return res
}

func (f *FSM) dispatch(m Mutation) (ledger.Receipt, error) {
	s, at, caller := f.state, m.At(), m.Caller

	switch m.Type {
	case repository.MutationDatasetRegister:
		var dto RegisterDatasetDTO
		if err := decode(m, &dto); err != nil {
			return ledger.Receipt{}, err
		}
		return s.RegisterDataset(at, caller, ledger.DatasetInput{
			ContentAddress: dto.ContentAddress,
			Name:           dto.Name,
			Description:    dto.Description,
			Price:          dto.Price,
			Visibility:     dto.Visibility,
			Categories:     dto.Categories,
		})

	case repository.MutationDatasetUpdatePrice:
		var dto UpdatePriceDTO
		if err := decode(m, &dto); err != nil {
			return ledger.Receipt{}, err
		}
		return s.UpdatePrice(at, caller, dto.DatasetID, dto.NewPrice)

	case repository.MutationDatasetAddCategory:
		var dto AddCategoryDTO
		if err := decode(m, &dto); err != nil {
			return ledger.Receipt{}, err
		}
		return s.AddCategory(at, caller, dto.DatasetID, dto.Category)

	case repository.MutationDatasetRevoke:
		var dto DatasetRefDTO
		if err := decode(m, &dto); err != nil {
			return ledger.Receipt{}, err
		}
		return s.RevokeDataset(at, caller, dto.DatasetID)

	case repository.MutationLicensePurchase:
		var dto DatasetRefDTO
		if err := decode(m, &dto); err != nil {
			return ledger.Receipt{}, err
		}
		return s.PurchaseLicense(at, caller, dto.DatasetID)

	case repository.MutationLicenseRevoke:
		var dto RevokeLicenseDTO
		if err := decode(m, &dto); err != nil {
			return ledger.Receipt{}, err
		}
		return s.RevokeLicense(at, caller, dto.DatasetID, dto.Licensee)

	case repository.MutationFeeSet:
		var dto SetFeeDTO
		if err := decode(m, &dto); err != nil {
			return ledger.Receipt{}, err
		}
		return s.SetPlatformFee(at, caller, dto.FeeBps)

	case repository.MutationRoleGrant, repository.MutationRoleRevoke:
		var dto RoleDTO
		if err := decode(m, &dto); err != nil {
			return ledger.Receipt{}, err
		}
		if m.Type == repository.MutationRoleGrant {
			return s.GrantRole(at, caller, dto.Role, dto.Account)
		}
		return s.RevokeRole(at, caller, dto.Role, dto.Account)

	case repository.MutationAuditPerform:
		var dto AuditDTO
		if err := decode(m, &dto); err != nil {
			return ledger.Receipt{}, err
		}
		return s.PerformAudit(at, caller, dto.DatasetID, dto.Notes, dto.Passed)

	case repository.MutationConsentUpdate:
		var dto ConsentDTO
		if err := decode(m, &dto); err != nil {
			return ledger.Receipt{}, err
		}
		return s.UpdateGDPRConsent(at, caller, dto.DatasetID, dto.ConsentGiven, dto.Rights)

	case repository.MutationTokenMint:
		var dto MintDTO
		if err := decode(m, &dto); err != nil {
			return ledger.Receipt{}, err
		}
		return s.Mint(at, caller, dto.To, dto.Amount)

	case repository.MutationTokenFaucet:
		return s.ClaimFaucet(at, caller)

	case repository.MutationTokenBurn:
		var dto BurnDTO
		if err := decode(m, &dto); err != nil {
			return ledger.Receipt{}, err
		}
		return s.Burn(at, caller, dto.Amount)

	default:
		// Un tipo desconocido es determinístico: todos los nodos lo rechazan igual.
		return ledger.Receipt{}, ledger.ErrInvalidInput.WithDetail("unknown mutation type %q", m.Type)
	}
}

func decode(m Mutation, dst any) error {
	if err := json.Unmarshal(m.Payload, dst); err != nil {
		return ledger.ErrInvalidInput.WithDetail("decode %s payload", m.Type).WithCause(err)
	}
	return nil
}

// observe actualiza las métricas de negocio de la mutación aplicada.
func (f *FSM) observe(m Mutation, res ApplyResult) {
	if res.Err != nil {
		appmetrics.ObserveMutation(string(m.Type), string(ledger.KindOf(res.Err)))
		return
	}
	appmetrics.ObserveMutation(string(m.Type), "ok")
	if m.Type != repository.MutationLicensePurchase {
		return
	}
	appmetrics.LicensesGranted.Inc()
	treasury := f.state.Treasury()
	for _, ev := range res.Receipt.Events {
		if ev.Type == ledger.EventTransfer && ev.Attributes["to"] == treasury {
			appmetrics.AddPlatformFee(ev.Attributes["amount"])
		}
	}
}

// ─── Snapshots ───

// Snapshot exporta el estado completo. Raft llama a Snapshot en el
// goroutine de la FSM y a Persist en paralelo con nuevos Apply; Export
// devuelve una copia, así que Persist no toca el estado vivo.
func (f *FSM) Snapshot() (raft.FSMSnapshot, error) {
	return &ledgerSnap{snap: f.state.Export()}, nil
}

// Restore reemplaza el estado con el snapshot (gzip + JSON).
func (f *FSM) Restore(rc io.ReadCloser) error {
	if rc == nil {
		return nil
	}
	defer rc.Close()

	gz, err := gzip.NewReader(rc)
	if err != nil {
		return fmt.Errorf("snapshot gzip: %w", err)
	}
	defer gz.Close()

	var snap ledger.Snapshot
	if err := json.NewDecoder(gz).Decode(&snap); err != nil {
		return fmt.Errorf("snapshot decode: %w", err)
	}
	if err := f.state.Import(snap); err != nil {
		return fmt.Errorf("snapshot import: %w", err)
	}

	f.mu.RLock()
	hooks := f.restored
	f.mu.RUnlock()
	for _, fn := range hooks {
		fn()
	}
	return nil
}

type ledgerSnap struct{ snap ledger.Snapshot }

func (s *ledgerSnap) Persist(sink raft.SnapshotSink) error {
	gw := gzip.NewWriter(sink)
	if err := json.NewEncoder(gw).Encode(s.snap); err != nil {
		_ = gw.Close()
		_ = sink.Cancel()
		return err
	}
	if err := gw.Close(); err != nil {
		_ = sink.Cancel()
		return err
	}
	return sink.Close()
}

func (s *ledgerSnap) Release() {}
