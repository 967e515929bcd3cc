package ledger

import (
	"encoding/binary"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"

	"github.com/dropDatabas3/dataledger/internal/token"
)

// LicenseID deriva el ID de una licencia de (licensee, datasetID, issuedAt)
// con Keccak-256. La unicidad real no la garantiza el timestamp: la da el
// chequeo AlreadyLicensed, que impide dos compras activas del mismo par.
func LicenseID(licensee string, datasetID uint64, issuedAt time.Time) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(licensee))
	h.Write([]byte{0})
	var b [16]byte
	binary.BigEndian.PutUint64(b[:8], datasetID)
	binary.BigEndian.PutUint64(b[8:], uint64(issuedAt.UnixNano()))
	h.Write(b[:])
	return hex.EncodeToString(h.Sum(nil))
}

// PurchaseLicense compra una licencia de datasetID para caller en now.
//
// Precondiciones, en orden: el dataset existe, no está revocado, es privado,
// caller no es el owner y no hay una licencia vigente para el par. La
// transferencia del precio (owner + fee a la tesorería) y la creación de la
// licencia son una única unidad: si la transferencia falla no queda nada.
func (s *State) PurchaseLicense(now time.Time, caller string, datasetID uint64) (Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(caller) == "" {
		return Receipt{}, ErrInvalidInput.WithDetail("licensee is required")
	}
	d, err := s.datasetLocked(datasetID)
	if err != nil {
		return Receipt{}, err
	}
	if d.Revoked {
		return Receipt{}, ErrDatasetRevoked.WithDetail("dataset %d", datasetID)
	}
	if d.Visibility == VisibilityPublic {
		return Receipt{}, ErrNoLicenseNeeded.WithDetail("dataset %d", datasetID)
	}
	if d.Owner == caller {
		return Receipt{}, ErrSelfLicenseForbidden.WithDetail("dataset %d", datasetID)
	}

	key := pairKey{datasetID: datasetID, licensee: caller}
	prev := s.latestLocked(key)
	if prev != nil && prev.ValidAt(now) {
		return Receipt{}, ErrAlreadyLicensed.WithDetail("license %s expires %s", prev.ID, prev.ExpiresAt.Format(time.RFC3339))
	}

	issuedAt := now.UTC()
	id := LicenseID(caller, datasetID, issuedAt)
	if _, exists := s.licenses[id]; exists {
		return Receipt{}, ErrStateConflict.WithDetail("license id %s already issued", id)
	}

	platformCut, ownerCut := SplitFee(d.Price, s.feeBps)
	legs := []token.Leg{
		{To: d.Owner, Amount: ownerCut},
		{To: s.treasury, Amount: platformCut},
	}
	if err := s.funds.Transfer(caller, legs); err != nil {
		return Receipt{}, ErrTransferFailed.WithDetail("dataset %d price %d", datasetID, d.Price).WithCause(err)
	}

	// Desde acá no hay más fallas posibles.
	if prev != nil && prev.Active {
		// la anterior estaba vencida: el chequeo de expiración la desactiva
		prev.Active = false
	}
	lic := &License{
		ID:        id,
		DatasetID: datasetID,
		Licensee:  caller,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(LicenseTerm),
		Active:    true,
	}
	s.licenses[id] = lic
	s.issued = append(s.issued, id)
	s.byPair[key] = append(s.byPair[key], id)
	s.byLicensee[caller] = append(s.byLicensee[caller], id)

	r := Receipt{DatasetID: datasetID, LicenseID: id}
	for _, leg := range legs {
		if leg.Amount == 0 {
			continue
		}
		r.Events = append(r.Events, s.emit(now, EventTransfer, map[string]string{
			"from":   caller,
			"to":     leg.To,
			"amount": strconv.FormatUint(leg.Amount, 10),
		}))
	}
	r.Events = append(r.Events, s.emit(now, EventLicenseGranted, map[string]string{
		"licenseId": id,
		"licensee":  caller,
		"datasetId": formatID(datasetID),
		"expiresAt": lic.ExpiresAt.Format(time.RFC3339Nano),
	}))
	return r, nil
}

// RevokeLicense desactiva la licencia más reciente del par. Requiere owner
// del dataset o Compliance. No hay reembolso. Revocar una licencia ya
// inactiva no falla ni emite evento.
func (s *State) RevokeLicense(at time.Time, caller string, datasetID uint64, licensee string) (Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.datasetLocked(datasetID)
	if err != nil {
		return Receipt{}, err
	}
	if d.Owner != caller && !s.hasRoleLocked(caller, RoleCompliance) {
		return Receipt{}, ErrPermissionDenied.WithDetail("account %s is neither owner nor %s", caller, RoleCompliance)
	}
	lic := s.latestLocked(pairKey{datasetID: datasetID, licensee: licensee})
	if lic == nil {
		return Receipt{}, ErrLicenseNotFound.WithDetail("dataset %d licensee %s", datasetID, licensee)
	}
	if !lic.Active {
		return Receipt{DatasetID: datasetID, LicenseID: lic.ID}, nil
	}
	lic.Active = false
	ev := s.emit(at, EventLicenseRevoked, map[string]string{
		"licenseId": lic.ID,
		"datasetId": formatID(datasetID),
		"licensee":  licensee,
		"revokedBy": caller,
	})
	return Receipt{DatasetID: datasetID, LicenseID: lic.ID, Events: []Event{ev}}, nil
}

// IsLicenseValid es el único chequeo de autorización de acceso: la
// licencia más reciente del par está activa y now < expiresAt.
func (s *State) IsLicenseValid(datasetID uint64, licensee string, now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lic := s.latestLocked(pairKey{datasetID: datasetID, licensee: licensee})
	return lic != nil && lic.ValidAt(now)
}

// License devuelve una licencia por ID.
func (s *State) License(id string) (License, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lic, ok := s.licenses[id]
	if !ok {
		return License{}, ErrLicenseNotFound.WithDetail("license %s", id)
	}
	return *lic, nil
}

// LatestLicense devuelve la licencia más reciente del par.
func (s *State) LatestLicense(datasetID uint64, licensee string) (License, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lic := s.latestLocked(pairKey{datasetID: datasetID, licensee: licensee})
	if lic == nil {
		return License{}, ErrLicenseNotFound.WithDetail("dataset %d licensee %s", datasetID, licensee)
	}
	return *lic, nil
}

// LicensesOf lista las licencias de un licensee en orden de emisión.
func (s *State) LicensesOf(licensee string) []License {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byLicensee[licensee]
	out := make([]License, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.licenses[id])
	}
	return out
}

func (s *State) latestLocked(k pairKey) *License {
	ids := s.byPair[k]
	if len(ids) == 0 {
		return nil
	}
	return s.licenses[ids[len(ids)-1]]
}
