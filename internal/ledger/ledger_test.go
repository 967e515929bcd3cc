package ledger_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/dataledger/internal/ledger"
	"github.com/dropDatabas3/dataledger/internal/token"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func genesis() ledger.Genesis {
	return ledger.Genesis{Admin: "admin", Treasury: "treasury", PlatformFeeBps: 100, FaucetAmount: 1000}
}

func newState(t *testing.T, opts ...ledger.Option) *ledger.State {
	t.Helper()
	return ledger.New(genesis(), opts...)
}

func register(t *testing.T, s *ledger.State, owner string, price uint64, vis ledger.Visibility) uint64 {
	t.Helper()
	r, err := s.RegisterDataset(t0, owner, ledger.DatasetInput{
		ContentAddress: "bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi",
		Name:           "weather-2024",
		Price:          price,
		Visibility:     vis,
		Categories:     []string{"climate"},
	})
	require.NoError(t, err)
	return r.DatasetID
}

func fund(t *testing.T, s *ledger.State, account string) {
	t.Helper()
	_, err := s.ClaimFaucet(t0, account)
	require.NoError(t, err)
}

func eventTypes(evs []ledger.Event) []ledger.EventType {
	out := make([]ledger.EventType, 0, len(evs))
	for _, ev := range evs {
		out = append(out, ev.Type)
	}
	return out
}

func TestScenarioA_PurchaseSplitsPrice(t *testing.T) {
	s := newState(t)
	id := register(t, s, "owner", 100, ledger.VisibilityPrivate)
	fund(t, s, "buyer")

	r, err := s.PurchaseLicense(t0, "buyer", id)
	require.NoError(t, err)
	require.NotEmpty(t, r.LicenseID)
	assert.Equal(t,
		[]ledger.EventType{ledger.EventTransfer, ledger.EventTransfer, ledger.EventLicenseGranted},
		eventTypes(r.Events))
	granted := r.Events[len(r.Events)-1]
	assert.Equal(t, r.LicenseID, granted.Attributes["licenseId"])
	assert.Equal(t, "buyer", granted.Attributes["licensee"])

	assert.True(t, s.IsLicenseValid(id, "buyer", t0.Add(time.Hour)))
	assert.Equal(t, uint64(900), s.BalanceOf("buyer"))
	assert.Equal(t, uint64(99), s.BalanceOf("owner"))
	assert.Equal(t, uint64(1), s.BalanceOf("treasury"))

	lic, err := s.License(r.LicenseID)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(ledger.LicenseTerm), lic.ExpiresAt)
	assert.Equal(t, ledger.LicenseID("buyer", id, t0), lic.ID)
}

func TestScenarioB_PublicDatasetNeedsNoLicense(t *testing.T) {
	s := newState(t)
	id := register(t, s, "owner", 100, ledger.VisibilityPublic)
	fund(t, s, "buyer")

	_, err := s.PurchaseLicense(t0, "buyer", id)
	require.ErrorIs(t, err, ledger.ErrNoLicenseNeeded)
	assert.Equal(t, ledger.KindNoLicenseNeeded, ledger.KindOf(err))
	assert.Equal(t, uint64(1000), s.BalanceOf("buyer"))
}

func TestScenarioC_AlreadyLicensed(t *testing.T) {
	s := newState(t)
	id := register(t, s, "owner", 100, ledger.VisibilityPrivate)
	fund(t, s, "buyer")

	_, err := s.PurchaseLicense(t0, "buyer", id)
	require.NoError(t, err)
	seq := s.LastSeq()

	_, err = s.PurchaseLicense(t0.Add(24*time.Hour), "buyer", id)
	require.ErrorIs(t, err, ledger.ErrAlreadyLicensed)
	assert.Equal(t, ledger.KindStateConflict, ledger.KindOf(err))
	assert.Equal(t, uint64(900), s.BalanceOf("buyer"))
	assert.Equal(t, seq, s.LastSeq(), "a rejected mutation must not emit events")
}

func TestScenarioD_ExpiryIsEvaluatedOnRead(t *testing.T) {
	s := newState(t)
	id := register(t, s, "owner", 100, ledger.VisibilityPrivate)
	fund(t, s, "buyer")

	_, err := s.PurchaseLicense(t0, "buyer", id)
	require.NoError(t, err)

	later := t0.Add(366 * 24 * time.Hour)
	assert.False(t, s.IsLicenseValid(id, "buyer", later))
	lic, err := s.LatestLicense(id, "buyer")
	require.NoError(t, err)
	assert.True(t, lic.Active)

	// exactamente en expiresAt ya no es válida
	assert.False(t, s.IsLicenseValid(id, "buyer", t0.Add(ledger.LicenseTerm)))
	assert.True(t, s.IsLicenseValid(id, "buyer", t0.Add(ledger.LicenseTerm-time.Nanosecond)))
}

func TestScenarioE_AuditRequiresCompliance(t *testing.T) {
	s := newState(t)
	id := register(t, s, "owner", 100, ledger.VisibilityPrivate)

	_, err := s.PerformAudit(t0, "owner", id, "looks fine", true)
	require.ErrorIs(t, err, ledger.ErrPermissionDenied)

	_, err = s.GrantRole(t0, "admin", ledger.RoleCompliance, "auditor")
	require.NoError(t, err)
	r, err := s.PerformAudit(t0.Add(time.Minute), "auditor", id, "pii found", false)
	require.NoError(t, err)
	assert.Equal(t, []ledger.EventType{ledger.EventAuditPerformed}, eventTypes(r.Events))

	trail, err := s.AuditTrail(id)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, "auditor", trail[0].Auditor)
	assert.False(t, trail[0].Passed)
	assert.Equal(t, "pii found", trail[0].Notes)
	assert.Equal(t, t0.Add(time.Minute), trail[0].Timestamp)
}

func TestPurchase_Preconditions(t *testing.T) {
	s := newState(t)
	id := register(t, s, "owner", 100, ledger.VisibilityPrivate)
	fund(t, s, "buyer")

	_, err := s.PurchaseLicense(t0, "owner", id)
	require.ErrorIs(t, err, ledger.ErrSelfLicenseForbidden)

	_, err = s.PurchaseLicense(t0, "buyer", 42)
	require.ErrorIs(t, err, ledger.ErrDatasetNotFound)
	assert.Equal(t, ledger.KindNotFound, ledger.KindOf(err))

	_, err = s.RevokeDataset(t0, "owner", id)
	require.NoError(t, err)
	_, err = s.PurchaseLicense(t0, "buyer", id)
	require.ErrorIs(t, err, ledger.ErrDatasetRevoked)
}

func TestPurchase_PreconditionOrder(t *testing.T) {
	s := newState(t)
	fund(t, s, "buyer")
	fund(t, s, "owner")
	public := register(t, s, "owner", 0, ledger.VisibilityPublic)
	revokedPublic := register(t, s, "owner", 0, ledger.VisibilityPublic)
	revokedPrivate := register(t, s, "owner", 100, ledger.VisibilityPrivate)
	for _, id := range []uint64{revokedPublic, revokedPrivate} {
		_, err := s.RevokeDataset(t0, "owner", id)
		require.NoError(t, err)
	}

	tests := []struct {
		name      string
		caller    string
		datasetID uint64
		want      error
	}{
		{"unknown dataset", "owner", 99, ledger.ErrDatasetNotFound},
		{"revoked beats public", "buyer", revokedPublic, ledger.ErrDatasetRevoked},
		{"revoked beats self license", "owner", revokedPrivate, ledger.ErrDatasetRevoked},
		{"public beats self license", "owner", public, ledger.ErrNoLicenseNeeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := s.BalanceOf(tt.caller)
			_, err := s.PurchaseLicense(t0, tt.caller, tt.datasetID)
			require.ErrorIs(t, err, tt.want)
			for _, other := range []error{ledger.ErrDatasetNotFound, ledger.ErrDatasetRevoked, ledger.ErrNoLicenseNeeded, ledger.ErrSelfLicenseForbidden} {
				if other != tt.want {
					assert.NotErrorIs(t, err, other)
				}
			}
			assert.Equal(t, before, s.BalanceOf(tt.caller))
		})
	}
}

func TestPurchase_InsufficientFundsLeavesNoTrace(t *testing.T) {
	s := newState(t)
	id := register(t, s, "owner", 5000, ledger.VisibilityPrivate)
	fund(t, s, "buyer")
	seq := s.LastSeq()

	_, err := s.PurchaseLicense(t0, "buyer", id)
	require.ErrorIs(t, err, ledger.ErrTransferFailed)
	assert.True(t, errors.Is(err, token.ErrInsufficientBalance))

	_, err = s.LatestLicense(id, "buyer")
	require.ErrorIs(t, err, ledger.ErrLicenseNotFound)
	assert.Empty(t, s.LicensesOf("buyer"))
	assert.Equal(t, seq, s.LastSeq())
	assert.Equal(t, uint64(1000), s.BalanceOf("buyer"))
}

type decliningFunds struct{ calls int }

func (d *decliningFunds) Transfer(string, []token.Leg) error {
	d.calls++
	return errors.New("gateway declined")
}

func TestPurchase_DeclinedTransferIsAtomic(t *testing.T) {
	funds := &decliningFunds{}
	s := newState(t, ledger.WithFunds(funds))
	id := register(t, s, "owner", 100, ledger.VisibilityPrivate)
	before := s.Export()

	_, err := s.PurchaseLicense(t0, "buyer", id)
	require.ErrorIs(t, err, ledger.ErrTransferFailed)
	assert.Equal(t, 1, funds.calls)
	assert.Equal(t, before, s.Export())
	assert.False(t, s.IsLicenseValid(id, "buyer", t0))
}

func TestPurchase_FreeDatasetMovesNoFunds(t *testing.T) {
	s := newState(t)
	id := register(t, s, "owner", 0, ledger.VisibilityPrivate)

	r, err := s.PurchaseLicense(t0, "broke", id)
	require.NoError(t, err)
	assert.Equal(t, []ledger.EventType{ledger.EventLicenseGranted}, eventTypes(r.Events))
	assert.True(t, s.IsLicenseValid(id, "broke", t0))
}

func TestPurchase_AfterExpiryReplacesLicense(t *testing.T) {
	s := newState(t)
	id := register(t, s, "owner", 100, ledger.VisibilityPrivate)
	fund(t, s, "buyer")

	first, err := s.PurchaseLicense(t0, "buyer", id)
	require.NoError(t, err)

	renewAt := t0.Add(ledger.LicenseTerm + time.Hour)
	second, err := s.PurchaseLicense(renewAt, "buyer", id)
	require.NoError(t, err)
	assert.NotEqual(t, first.LicenseID, second.LicenseID)

	old, err := s.License(first.LicenseID)
	require.NoError(t, err)
	assert.False(t, old.Active)

	latest, err := s.LatestLicense(id, "buyer")
	require.NoError(t, err)
	assert.Equal(t, second.LicenseID, latest.ID)
	assert.True(t, s.IsLicenseValid(id, "buyer", renewAt))
	assert.Len(t, s.LicensesOf("buyer"), 2)
	assert.Equal(t, uint64(800), s.BalanceOf("buyer"))
}

func TestRevokeLicense(t *testing.T) {
	s := newState(t)
	id := register(t, s, "owner", 100, ledger.VisibilityPrivate)
	fund(t, s, "buyer")

	_, err := s.RevokeLicense(t0, "owner", id, "buyer")
	require.ErrorIs(t, err, ledger.ErrLicenseNotFound)

	_, err = s.PurchaseLicense(t0, "buyer", id)
	require.NoError(t, err)

	_, err = s.RevokeLicense(t0, "stranger", id, "buyer")
	require.ErrorIs(t, err, ledger.ErrPermissionDenied)

	r, err := s.RevokeLicense(t0.Add(time.Hour), "owner", id, "buyer")
	require.NoError(t, err)
	assert.Equal(t, []ledger.EventType{ledger.EventLicenseRevoked}, eventTypes(r.Events))
	assert.False(t, s.IsLicenseValid(id, "buyer", t0.Add(2*time.Hour)))
	// sin reembolso
	assert.Equal(t, uint64(900), s.BalanceOf("buyer"))

	again, err := s.RevokeLicense(t0.Add(2*time.Hour), "owner", id, "buyer")
	require.NoError(t, err)
	assert.Empty(t, again.Events)

	// una licencia revocada no bloquea una compra nueva
	_, err = s.PurchaseLicense(t0.Add(3*time.Hour), "buyer", id)
	require.NoError(t, err)
	assert.True(t, s.IsLicenseValid(id, "buyer", t0.Add(3*time.Hour)))
}

func TestRevokeLicense_ByCompliance(t *testing.T) {
	s := newState(t)
	id := register(t, s, "owner", 100, ledger.VisibilityPrivate)
	fund(t, s, "buyer")
	_, err := s.PurchaseLicense(t0, "buyer", id)
	require.NoError(t, err)
	_, err = s.GrantRole(t0, "admin", ledger.RoleCompliance, "officer")
	require.NoError(t, err)

	_, err = s.RevokeLicense(t0, "officer", id, "buyer")
	require.NoError(t, err)
	assert.False(t, s.IsLicenseValid(id, "buyer", t0))
}

func TestSetPlatformFee(t *testing.T) {
	tests := []struct {
		name   string
		caller string
		bps    uint32
		want   error
	}{
		{"admin at cap", "admin", 1000, nil},
		{"admin zero", "admin", 0, nil},
		{"admin above cap", "admin", 1001, ledger.ErrFeeTooHigh},
		{"stranger above cap", "stranger", 1500, ledger.ErrFeeTooHigh},
		{"stranger in range", "stranger", 500, ledger.ErrPermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newState(t)
			r, err := s.SetPlatformFee(t0, tt.caller, tt.bps)
			if tt.want != nil {
				require.ErrorIs(t, err, tt.want)
				assert.Equal(t, uint32(100), s.PlatformFee())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bps, s.PlatformFee())
			assert.Equal(t, []ledger.EventType{ledger.EventPlatformFeeUpdated}, eventTypes(r.Events))
		})
	}
}

func TestFeeChangeAppliesToLaterPurchases(t *testing.T) {
	s := newState(t)
	id := register(t, s, "owner", 1000, ledger.VisibilityPrivate)
	fund(t, s, "a")
	fund(t, s, "b")

	_, err := s.PurchaseLicense(t0, "a", id)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), s.BalanceOf("treasury"))

	_, err = s.SetPlatformFee(t0, "admin", 1000)
	require.NoError(t, err)
	_, err = s.PurchaseLicense(t0, "b", id)
	require.NoError(t, err)
	assert.Equal(t, uint64(110), s.BalanceOf("treasury"))
	assert.Equal(t, uint64(990+900), s.BalanceOf("owner"))
}

func TestSplitFee(t *testing.T) {
	const top = ^uint64(0)
	tests := []struct {
		price, wantPlatform uint64
		bps                 uint32
	}{
		{100, 1, 100},
		{99, 0, 100},
		{10000, 1000, 1000},
		{12345, 1234, 1000},
		{7, 0, 0},
		{top, top/10000*1000 + (top%10000)*1000/10000, 1000},
	}
	for _, tt := range tests {
		platform, owner := ledger.SplitFee(tt.price, tt.bps)
		assert.Equal(t, tt.wantPlatform, platform, "price=%d bps=%d", tt.price, tt.bps)
		assert.Equal(t, tt.price, platform+owner)
	}
}

func TestDatasetOwnerMutations(t *testing.T) {
	s := newState(t)
	id := register(t, s, "owner", 100, ledger.VisibilityPrivate)

	_, err := s.UpdatePrice(t0, "owner", 99, 10)
	require.ErrorIs(t, err, ledger.ErrDatasetNotFound)
	_, err = s.UpdatePrice(t0, "mallory", id, 10)
	require.ErrorIs(t, err, ledger.ErrNotOwner)
	assert.Equal(t, ledger.KindPermissionDenied, ledger.KindOf(err))

	_, err = s.UpdatePrice(t0, "owner", id, 250)
	require.NoError(t, err)

	r, err := s.AddCategory(t0, "owner", id, "weather")
	require.NoError(t, err)
	assert.Len(t, r.Events, 1)
	r, err = s.AddCategory(t0, "owner", id, "climate")
	require.NoError(t, err)
	assert.Empty(t, r.Events)
	_, err = s.AddCategory(t0, "owner", id, "  ")
	require.ErrorIs(t, err, ledger.ErrInvalidInput)

	d, err := s.Dataset(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(250), d.Price)
	assert.Equal(t, []string{"climate", "weather"}, d.Categories)

	_, err = s.RevokeDataset(t0, "mallory", id)
	require.ErrorIs(t, err, ledger.ErrPermissionDenied)
	r, err = s.RevokeDataset(t0, "owner", id)
	require.NoError(t, err)
	assert.Len(t, r.Events, 1)
	r, err = s.RevokeDataset(t0, "owner", id)
	require.NoError(t, err)
	assert.Empty(t, r.Events)

	_, err = s.UpdatePrice(t0, "owner", id, 1)
	require.ErrorIs(t, err, ledger.ErrDatasetRevoked)
	_, err = s.AddCategory(t0, "owner", id, "x")
	require.ErrorIs(t, err, ledger.ErrDatasetRevoked)
}

func TestRegisterDataset_Validation(t *testing.T) {
	s := newState(t)
	in := ledger.DatasetInput{ContentAddress: "cid", Name: "n", Visibility: ledger.VisibilityPrivate}

	bad := in
	bad.Name = " "
	_, err := s.RegisterDataset(t0, "owner", bad)
	require.ErrorIs(t, err, ledger.ErrInvalidInput)

	bad = in
	bad.Visibility = "internal"
	_, err = s.RegisterDataset(t0, "owner", bad)
	require.ErrorIs(t, err, ledger.ErrInvalidInput)

	ok := in
	ok.Categories = []string{"a", "b", "a", ""}
	r, err := s.RegisterDataset(t0, "owner", ok)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), r.DatasetID)
	r, err = s.RegisterDataset(t0, "other", in)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), r.DatasetID)

	d, err := s.Dataset(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, d.Categories)

	page, total := s.Datasets(1, 10)
	assert.Equal(t, 2, total)
	require.Len(t, page, 1)
	assert.Equal(t, "other", page[0].Owner)
	assert.Equal(t, uint64(2), s.DatasetCount())
}

func TestRoles(t *testing.T) {
	s := newState(t)
	assert.True(t, s.HasRole("admin", ledger.RoleAdmin))

	_, err := s.GrantRole(t0, "stranger", ledger.RoleCompliance, "stranger")
	require.ErrorIs(t, err, ledger.ErrPermissionDenied)
	_, err = s.GrantRole(t0, "admin", ledger.Role("root"), "x")
	require.ErrorIs(t, err, ledger.ErrInvalidInput)

	r, err := s.GrantRole(t0, "admin", ledger.RoleCompliance, "officer")
	require.NoError(t, err)
	assert.Equal(t, []ledger.EventType{ledger.EventRoleGranted}, eventTypes(r.Events))
	r, err = s.GrantRole(t0, "admin", ledger.RoleCompliance, "officer")
	require.NoError(t, err)
	assert.Empty(t, r.Events)

	_, err = s.GrantRole(t0, "admin", ledger.RoleAdmin, "officer")
	require.NoError(t, err)
	assert.Equal(t, []ledger.Role{ledger.RoleAdmin, ledger.RoleCompliance}, s.RolesOf("officer"))

	_, err = s.RevokeRole(t0, "admin", ledger.RoleCompliance, "officer")
	require.NoError(t, err)
	assert.False(t, s.HasRole("officer", ledger.RoleCompliance))

	// un admin puede quitarse su propio rol
	_, err = s.RevokeRole(t0, "admin", ledger.RoleAdmin, "admin")
	require.NoError(t, err)
	assert.False(t, s.HasRole("admin", ledger.RoleAdmin))
	_, err = s.SetPlatformFee(t0, "admin", 10)
	require.ErrorIs(t, err, ledger.ErrPermissionDenied)
}

func TestGDPRConsent(t *testing.T) {
	s := newState(t)
	id := register(t, s, "owner", 100, ledger.VisibilityPrivate)

	st, err := s.GDPRStatus(id)
	require.NoError(t, err)
	assert.False(t, st.ConsentGiven)
	assert.Empty(t, st.DataSubjectRights)

	_, err = s.UpdateGDPRConsent(t0, "stranger", id, true, nil)
	require.ErrorIs(t, err, ledger.ErrPermissionDenied)
	_, err = s.UpdateGDPRConsent(t0, "owner", 7, true, nil)
	require.ErrorIs(t, err, ledger.ErrDatasetNotFound)

	r, err := s.UpdateGDPRConsent(t0, "owner", id, true, []string{"access", "erasure", "access"})
	require.NoError(t, err)
	assert.Equal(t, []ledger.EventType{ledger.EventConsentUpdated}, eventTypes(r.Events))

	_, err = s.GrantRole(t0, "admin", ledger.RoleCompliance, "officer")
	require.NoError(t, err)
	_, err = s.UpdateGDPRConsent(t0.Add(time.Hour), "officer", id, false, []string{"erasure"})
	require.NoError(t, err)

	st, err = s.GDPRStatus(id)
	require.NoError(t, err)
	assert.False(t, st.ConsentGiven)
	assert.Equal(t, []string{"erasure"}, st.DataSubjectRights)
	assert.Equal(t, "officer", st.UpdatedBy)

	// el consent no genera registros de auditoría
	trail, err := s.AuditTrail(id)
	require.NoError(t, err)
	assert.Empty(t, trail)
}

func TestTokenOperations(t *testing.T) {
	s := newState(t)

	_, err := s.Mint(t0, "stranger", "stranger", 10)
	require.ErrorIs(t, err, ledger.ErrPermissionDenied)
	r, err := s.Mint(t0, "admin", "alice", 50)
	require.NoError(t, err)
	require.Len(t, r.Events, 1)
	assert.Equal(t, "", r.Events[0].Attributes["from"])
	assert.Equal(t, "50", r.Events[0].Attributes["amount"])

	fund(t, s, "alice")
	_, err = s.ClaimFaucet(t0, "alice")
	require.ErrorIs(t, err, ledger.ErrStateConflict)
	assert.Equal(t, uint64(1050), s.BalanceOf("alice"))

	_, err = s.Burn(t0, "alice", 2000)
	require.ErrorIs(t, err, ledger.ErrStateConflict)
	_, err = s.Burn(t0, "alice", 50)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), s.TotalSupply())
}

func TestEventJournal(t *testing.T) {
	s := newState(t)
	id := register(t, s, "owner", 100, ledger.VisibilityPrivate)
	fund(t, s, "buyer")
	_, err := s.PurchaseLicense(t0, "buyer", id)
	require.NoError(t, err)

	all := s.EventsSince(0, 0)
	require.Len(t, all, 5)
	for i, ev := range all {
		assert.Equal(t, uint64(i+1), ev.Seq)
		assert.Equal(t, ledger.EventID(ev.Seq), ev.ID)
	}
	tail := s.EventsSince(3, 1)
	require.Len(t, tail, 1)
	assert.Equal(t, uint64(4), tail[0].Seq)
	assert.Nil(t, s.EventsSince(5, 0))

	// mutar la copia no toca el journal
	tail[0].Attributes["to"] = "x"
	assert.NotEqual(t, "x", s.EventsSince(3, 1)[0].Attributes["to"])
}

func TestReplayIsDeterministic(t *testing.T) {
	run := func() *ledger.State {
		s := newState(t)
		id := register(t, s, "owner", 100, ledger.VisibilityPrivate)
		fund(t, s, "buyer")
		_, err := s.PurchaseLicense(t0, "buyer", id)
		require.NoError(t, err)
		_, err = s.UpdateGDPRConsent(t0, "owner", id, true, []string{"access"})
		require.NoError(t, err)
		return s
	}
	assert.Equal(t, run().Export(), run().Export())
}

func TestSnapshotExportImport(t *testing.T) {
	s := newState(t)
	id := register(t, s, "owner", 100, ledger.VisibilityPrivate)
	fund(t, s, "buyer")
	lic, err := s.PurchaseLicense(t0, "buyer", id)
	require.NoError(t, err)
	_, err = s.GrantRole(t0, "admin", ledger.RoleCompliance, "officer")
	require.NoError(t, err)
	_, err = s.PerformAudit(t0, "officer", id, "ok", true)
	require.NoError(t, err)
	_, err = s.UpdateGDPRConsent(t0, "owner", id, true, []string{"access"})
	require.NoError(t, err)

	snap := s.Export()
	r := ledger.New(ledger.Genesis{})
	require.NoError(t, r.Import(snap))

	assert.Equal(t, snap, r.Export())
	assert.True(t, r.IsLicenseValid(id, "buyer", t0))
	assert.True(t, r.HasRole("officer", ledger.RoleCompliance))
	assert.Equal(t, uint64(900), r.BalanceOf("buyer"))
	got, err := r.LatestLicense(id, "buyer")
	require.NoError(t, err)
	assert.Equal(t, lic.LicenseID, got.ID)

	// la siguiente mutación continúa la secuencia
	next, err := r.RegisterDataset(t0, "owner", ledger.DatasetInput{ContentAddress: "c", Name: "n", Visibility: ledger.VisibilityPublic})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), next.DatasetID)
	assert.Equal(t, snap.Events[len(snap.Events)-1].Seq+1, next.Events[0].Seq)
}

func TestImport_RejectsFeeAboveCap(t *testing.T) {
	s := newState(t)
	register(t, s, "owner", 1, ledger.VisibilityPrivate)
	snap := s.Export()
	snap.FeeBps = ledger.MaxPlatformFeeBps + 1

	r := newState(t)
	require.ErrorIs(t, r.Import(snap), ledger.ErrStateConflict)
	assert.Equal(t, uint32(100), r.PlatformFee())
	assert.Equal(t, uint64(0), r.DatasetCount())
}

func TestImport_RejectsInconsistentSnapshot(t *testing.T) {
	s := newState(t)
	register(t, s, "owner", 1, ledger.VisibilityPrivate)
	snap := s.Export()
	snap.Events[0].Seq = 9

	r := newState(t)
	require.ErrorIs(t, r.Import(snap), ledger.ErrStateConflict)
	assert.Equal(t, uint64(0), r.DatasetCount())
}
