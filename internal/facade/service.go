// Package facade es la única puerta de entrada al ledger. Valida lo que se
// puede validar sin estado, sella el timestamp de cada mutación, la envía al
// commit log y traduce el resultado de la FSM. Las lecturas van directo al
// estado local.
package facade

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/dropDatabas3/dataledger/internal/cluster"
	"github.com/dropDatabas3/dataledger/internal/domain/repository"
	"github.com/dropDatabas3/dataledger/internal/ledger"
	appmetrics "github.com/dropDatabas3/dataledger/internal/metrics"
	"github.com/dropDatabas3/dataledger/internal/observability/logger"
)

// Service expone las operaciones del ledger. Todas las mutaciones reciben el
// caller ya autenticado; el ledger confía en esa identidad.
type Service interface {
	// Dataset Registry
	RegisterDataset(ctx context.Context, owner string, in DatasetInput) (uint64, error)
	UpdatePrice(ctx context.Context, caller string, datasetID uint64, newPrice int64) error
	AddCategory(ctx context.Context, caller string, datasetID uint64, category string) error
	RevokeDataset(ctx context.Context, caller string, datasetID uint64) error
	GetDataset(ctx context.Context, datasetID uint64) (ledger.Dataset, error)
	ListDatasets(ctx context.Context, offset, limit int) ([]ledger.Dataset, int)
	DatasetCount(ctx context.Context) uint64

	// License Ledger
	PurchaseLicense(ctx context.Context, caller string, datasetID uint64, now time.Time) (string, error)
	RevokeLicense(ctx context.Context, caller string, datasetID uint64, licensee string) error
	IsLicenseValid(ctx context.Context, datasetID uint64, licensee string, now time.Time) bool
	GetLicense(ctx context.Context, licenseID string) (ledger.License, error)
	LicensesOf(ctx context.Context, licensee string) []ledger.License
	ActiveLicense(ctx context.Context, datasetID uint64, licensee string) (ledger.License, error)

	// Fee Policy y Role Registry
	SetPlatformFee(ctx context.Context, caller string, feeBps uint32) error
	PlatformFee(ctx context.Context) uint32
	GrantRole(ctx context.Context, caller string, role ledger.Role, account string) error
	RevokeRole(ctx context.Context, caller string, role ledger.Role, account string) error
	HasRole(ctx context.Context, account string, role ledger.Role) bool
	RolesOf(ctx context.Context, account string) []ledger.Role

	// Compliance Store
	PerformAudit(ctx context.Context, caller string, datasetID uint64, notes string, passed bool) error
	UpdateGDPRConsent(ctx context.Context, caller string, datasetID uint64, consentGiven bool, rights []string) error
	GetAuditTrail(ctx context.Context, datasetID uint64) ([]ledger.AuditRecord, error)
	GetGDPRStatus(ctx context.Context, datasetID uint64) (ledger.ConsentRecord, error)

	// Token
	Mint(ctx context.Context, caller, to string, amount uint64) error
	ClaimFaucet(ctx context.Context, caller string) error
	Burn(ctx context.Context, caller string, amount uint64) error
	BalanceOf(ctx context.Context, account string) uint64

	// Journal
	EventsSince(ctx context.Context, seq uint64, limit int) []ledger.Event
}

// RetryPolicy acota el reenvío de mutaciones que el log no aceptó.
type RetryPolicy struct {
	Attempts int           // default 3
	Backoff  time.Duration // default 50ms, se duplica en cada intento
}

// Deps del servicio.
type Deps struct {
	Log      repository.CommitLog
	FSM      *cluster.FSM
	Clock    func() time.Time
	Retry    RetryPolicy
	CacheTTL time.Duration // TTL del cache de datasets; default 30s
}

type service struct {
	log   repository.CommitLog
	state *ledger.State
	clock func() time.Time
	retry RetryPolicy
	cache *gocache.Cache

	// cacheMu hace atómico "gen sigue igual => guardar" contra las
	// invalidaciones de la FSM.
	cacheMu sync.Mutex
	gen     atomic.Uint64 // se incrementa en cada invalidación

	beforeCacheStore func() // solo tests: corre con cacheMu tomado, antes de SetDefault
}

// NewService crea el Service. El cache de datasets se invalida con cada
// mutación aplicada por la FSM y con cada snapshot instalado.
func NewService(d Deps) (Service, error) {
	if d.Log == nil || d.FSM == nil {
		return nil, errors.New("facade: commit log and fsm are required")
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Retry.Attempts <= 0 {
		d.Retry.Attempts = 3
	}
	if d.Retry.Backoff <= 0 {
		d.Retry.Backoff = 50 * time.Millisecond
	}
	if d.CacheTTL <= 0 {
		d.CacheTTL = 30 * time.Second
	}

	s := &service{
		log:   d.Log,
		state: d.FSM.State(),
		clock: d.Clock,
		retry: d.Retry,
		cache: gocache.New(d.CacheTTL, time.Minute),
	}
	d.FSM.OnApply(s.invalidate)
	d.FSM.OnRestore(func() {
		s.cacheMu.Lock()
		defer s.cacheMu.Unlock()
		s.gen.Add(1)
		s.cache.Flush()
	})
	return s, nil
}

// submit envía la mutación y devuelve el resultado de aplicarla. Solo se
// reintenta lo que el log rechazó antes de aceptar la entrada.
func (s *service) submit(ctx context.Context, typ repository.MutationType, caller string, at time.Time, payload any) (ledger.Receipt, error) {
	log := logger.From(ctx).With(
		logger.Layer("facade"),
		logger.Mutation(string(typ)),
		logger.Caller(caller),
	)

	m := repository.Mutation{Type: typ, Caller: caller, Timestamp: at}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return ledger.Receipt{}, fmt.Errorf("facade: encode %s: %w", typ, err)
		}
		m.Payload = raw
	}

	var (
		commit  *repository.Commit
		err     error
		backoff = s.retry.Backoff
	)
	for attempt := 1; ; attempt++ {
		commit, err = s.log.Submit(ctx, m)
		if err == nil {
			break
		}
		if !repository.IsNotSubmitted(err) || attempt >= s.retry.Attempts {
			log.Error("mutation submit failed", logger.Attempt(attempt), logger.Err(err))
			return ledger.Receipt{}, err
		}
		appmetrics.SubmitRetries.Inc()
		log.Debug("mutation not accepted, retrying", logger.Attempt(attempt), logger.Err(err))
		select {
		case <-ctx.Done():
			return ledger.Receipt{}, repository.NotSubmitted(ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	res, ok := commit.Result.(cluster.ApplyResult)
	if !ok {
		return ledger.Receipt{}, fmt.Errorf("facade: unexpected commit result %T", commit.Result)
	}
	if res.Err != nil {
		log.Info("mutation rejected", logger.String("code", ledger.CodeOf(res.Err)), logger.Err(res.Err))
		return ledger.Receipt{}, res.Err
	}
	log.Debug("mutation committed", zap.Uint64("index", commit.Index), logger.Count(len(res.Receipt.Events)))
	return res.Receipt, nil
}

// now devuelve el instante con el que se sella una mutación.
func (s *service) now() time.Time { return s.clock().UTC() }

func requireAccount(account, what string) error {
	if strings.TrimSpace(account) == "" {
		return ledger.ErrInvalidInput.WithDetail("%s is required", what)
	}
	return nil
}

// ─── Cache de datasets ───

func datasetKey(id uint64) string { return fmt.Sprintf("dataset:%d", id) }

func (s *service) invalidate(m cluster.Mutation, res cluster.ApplyResult) {
	if res.Err != nil {
		return
	}
	switch m.Type {
	case repository.MutationDatasetUpdatePrice,
		repository.MutationDatasetAddCategory,
		repository.MutationDatasetRevoke:
		s.cacheMu.Lock()
		defer s.cacheMu.Unlock()
		s.gen.Add(1)
		s.cache.Delete(datasetKey(res.Receipt.DatasetID))
	}
}

var _ Service = (*service)(nil)
