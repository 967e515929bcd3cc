package cluster_test

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/hashicorp/raft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/dataledger/internal/cluster"
	"github.com/dropDatabas3/dataledger/internal/domain/repository"
	"github.com/dropDatabas3/dataledger/internal/ledger"
)

var t0 = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func newFSM() *cluster.FSM {
	return cluster.NewFSM(ledger.New(ledger.Genesis{Admin: "admin", Treasury: "treasury", PlatformFeeBps: 100, FaucetAmount: 500}))
}

func mutation(t *testing.T, typ repository.MutationType, caller string, at time.Time, dto any) cluster.Mutation {
	t.Helper()
	m := cluster.Mutation{Type: typ, Caller: caller, TsUnixNano: at.UnixNano()}
	if dto != nil {
		payload, err := json.Marshal(dto)
		require.NoError(t, err)
		m.Payload = payload
	}
	return m
}

func applyLog(t *testing.T, f *cluster.FSM, m cluster.Mutation) cluster.ApplyResult {
	t.Helper()
	data, err := json.Marshal(m)
	require.NoError(t, err)
	ret := f.Apply(&raft.Log{Data: data})
	res, ok := ret.(cluster.ApplyResult)
	require.True(t, ok, "unexpected apply response %T", ret)
	return res
}

func seed(t *testing.T, f *cluster.FSM) uint64 {
	t.Helper()
	res := applyLog(t, f, mutation(t, repository.MutationDatasetRegister, "owner", t0, cluster.RegisterDatasetDTO{
		ContentAddress: "bafy-weather",
		Name:           "weather",
		Price:          200,
		Visibility:     ledger.VisibilityPrivate,
	}))
	require.NoError(t, res.Err)
	require.NoError(t, applyLog(t, f, mutation(t, repository.MutationTokenFaucet, "buyer", t0, nil)).Err)
	return res.Receipt.DatasetID
}

func TestFSM_Apply_PurchaseFlow(t *testing.T) {
	f := newFSM()
	id := seed(t, f)

	res := applyLog(t, f, mutation(t, repository.MutationLicensePurchase, "buyer", t0.Add(time.Second), cluster.DatasetRefDTO{DatasetID: id}))
	require.NoError(t, res.Err)
	assert.NotEmpty(t, res.Receipt.LicenseID)

	s := f.State()
	assert.True(t, s.IsLicenseValid(id, "buyer", t0.Add(time.Minute)))
	assert.Equal(t, uint64(300), s.BalanceOf("buyer"))
	assert.Equal(t, uint64(198), s.BalanceOf("owner"))
	assert.Equal(t, uint64(2), s.BalanceOf("treasury"))

	lic, err := s.License(res.Receipt.LicenseID)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(time.Second), lic.IssuedAt, "the mutation timestamp is the commit instant")
}

func TestFSM_Apply_AllMutationTypes(t *testing.T) {
	f := newFSM()
	id := seed(t, f)

	steps := []cluster.Mutation{
		mutation(t, repository.MutationDatasetUpdatePrice, "owner", t0, cluster.UpdatePriceDTO{DatasetID: id, NewPrice: 100}),
		mutation(t, repository.MutationDatasetAddCategory, "owner", t0, cluster.AddCategoryDTO{DatasetID: id, Category: "climate"}),
		mutation(t, repository.MutationFeeSet, "admin", t0, cluster.SetFeeDTO{FeeBps: 500}),
		mutation(t, repository.MutationRoleGrant, "admin", t0, cluster.RoleDTO{Role: ledger.RoleCompliance, Account: "officer"}),
		mutation(t, repository.MutationLicensePurchase, "buyer", t0, cluster.DatasetRefDTO{DatasetID: id}),
		mutation(t, repository.MutationAuditPerform, "officer", t0, cluster.AuditDTO{DatasetID: id, Notes: "ok", Passed: true}),
		mutation(t, repository.MutationConsentUpdate, "owner", t0, cluster.ConsentDTO{DatasetID: id, ConsentGiven: true, Rights: []string{"erasure"}}),
		mutation(t, repository.MutationLicenseRevoke, "officer", t0, cluster.RevokeLicenseDTO{DatasetID: id, Licensee: "buyer"}),
		mutation(t, repository.MutationTokenMint, "admin", t0, cluster.MintDTO{To: "buyer", Amount: 10}),
		mutation(t, repository.MutationTokenBurn, "buyer", t0, cluster.BurnDTO{Amount: 10}),
		mutation(t, repository.MutationDatasetRevoke, "officer", t0, cluster.DatasetRefDTO{DatasetID: id}),
		mutation(t, repository.MutationRoleRevoke, "admin", t0, cluster.RoleDTO{Role: ledger.RoleCompliance, Account: "officer"}),
	}
	for _, m := range steps {
		res := applyLog(t, f, m)
		require.NoError(t, res.Err, "mutation %s", m.Type)
	}

	s := f.State()
	d, err := s.Dataset(id)
	require.NoError(t, err)
	assert.True(t, d.Revoked)
	assert.Equal(t, uint64(100), d.Price)
	assert.Equal(t, uint32(500), s.PlatformFee())
	assert.False(t, s.HasRole("officer", ledger.RoleCompliance))
	assert.False(t, s.IsLicenseValid(id, "buyer", t0))
	trail, err := s.AuditTrail(id)
	require.NoError(t, err)
	assert.Len(t, trail, 1)
	assert.Equal(t, uint64(400), s.BalanceOf("buyer"))
}

func TestFSM_Apply_RejectsWithoutStateChange(t *testing.T) {
	f := newFSM()
	seed(t, f)
	before := f.State().Export()

	res := applyLog(t, f, cluster.Mutation{Type: "dataset.delete", Caller: "owner", TsUnixNano: t0.UnixNano()})
	require.ErrorIs(t, res.Err, ledger.ErrInvalidInput)

	res = applyLog(t, f, cluster.Mutation{Type: repository.MutationFeeSet, Caller: "admin", TsUnixNano: t0.UnixNano(), Payload: []byte(`{"feeBps":"high"}`)})
	require.ErrorIs(t, res.Err, ledger.ErrInvalidInput)

	ret := f.Apply(&raft.Log{Data: []byte("not json")})
	require.ErrorIs(t, ret.(cluster.ApplyResult).Err, ledger.ErrInvalidInput)

	assert.Equal(t, before, f.State().Export())
}

func TestFSM_OnApply_SeesEveryResult(t *testing.T) {
	f := newFSM()
	var seen []repository.MutationType
	var failures int
	f.OnApply(func(m cluster.Mutation, res cluster.ApplyResult) {
		seen = append(seen, m.Type)
		if res.Err != nil {
			failures++
		}
	})

	id := seed(t, f)
	applyLog(t, f, mutation(t, repository.MutationLicensePurchase, "owner", t0, cluster.DatasetRefDTO{DatasetID: id}))

	assert.Equal(t, []repository.MutationType{
		repository.MutationDatasetRegister,
		repository.MutationTokenFaucet,
		repository.MutationLicensePurchase,
	}, seen)
	assert.Equal(t, 1, failures)
}

type memSink struct {
	bytes.Buffer
	cancelled bool
}

func (s *memSink) ID() string    { return "mem" }
func (s *memSink) Close() error  { return nil }
func (s *memSink) Cancel() error { s.cancelled = true; return nil }

func TestFSM_SnapshotRestore_RoundTrip(t *testing.T) {
	src := newFSM()
	id := seed(t, src)
	require.NoError(t, applyLog(t, src, mutation(t, repository.MutationLicensePurchase, "buyer", t0, cluster.DatasetRefDTO{DatasetID: id})).Err)
	require.NoError(t, applyLog(t, src, mutation(t, repository.MutationConsentUpdate, "owner", t0, cluster.ConsentDTO{DatasetID: id, ConsentGiven: true, Rights: []string{"access"}})).Err)

	snap, err := src.Snapshot()
	require.NoError(t, err)
	sink := &memSink{}
	require.NoError(t, snap.Persist(sink))
	snap.Release()
	assert.False(t, sink.cancelled)

	dst := cluster.NewFSM(ledger.New(ledger.Genesis{}))
	restored := 0
	dst.OnRestore(func() { restored++ })
	require.NoError(t, dst.Restore(io.NopCloser(&sink.Buffer)))
	assert.Equal(t, 1, restored)

	assert.Equal(t, src.State().Export(), dst.State().Export())
	assert.True(t, dst.State().IsLicenseValid(id, "buyer", t0))

	// después del restore ambos nodos siguen aplicando igual
	next := mutation(t, repository.MutationDatasetAddCategory, "owner", t0.Add(time.Hour), cluster.AddCategoryDTO{DatasetID: id, Category: "geo"})
	a, b := applyLog(t, src, next), applyLog(t, dst, next)
	require.NoError(t, a.Err)
	assert.Equal(t, a.Receipt, b.Receipt)
}

func TestFSM_Restore_RejectsGarbage(t *testing.T) {
	f := newFSM()
	err := f.Restore(io.NopCloser(bytes.NewReader([]byte("plain text"))))
	require.Error(t, err)
}
