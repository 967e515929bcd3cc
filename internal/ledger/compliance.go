package ledger

import (
	"strconv"
	"strings"
	"time"
)

// PerformAudit agrega un AuditRecord al trail del dataset. Requiere
// Compliance; no hay límite de frecuencia.
func (s *State) PerformAudit(at time.Time, caller string, datasetID uint64, notes string, passed bool) (Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasRoleLocked(caller, RoleCompliance) {
		return Receipt{}, ErrPermissionDenied.WithDetail("account %s is missing role %s", caller, RoleCompliance)
	}
	if _, err := s.datasetLocked(datasetID); err != nil {
		return Receipt{}, err
	}
	rec := AuditRecord{
		DatasetID: datasetID,
		Auditor:   caller,
		Timestamp: at.UTC(),
		Passed:    passed,
		Notes:     notes,
	}
	s.audits[datasetID] = append(s.audits[datasetID], rec)
	ev := s.emit(at, EventAuditPerformed, map[string]string{
		"datasetId": formatID(datasetID),
		"auditor":   caller,
		"passed":    strconv.FormatBool(passed),
	})
	return Receipt{DatasetID: datasetID, Events: []Event{ev}}, nil
}

// UpdateGDPRConsent sobrescribe el ConsentRecord del dataset. Requiere owner
// o Compliance. No agrega un AuditRecord: audits y consents son stores separados.
func (s *State) UpdateGDPRConsent(at time.Time, caller string, datasetID uint64, consentGiven bool, rights []string) (Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.datasetLocked(datasetID)
	if err != nil {
		return Receipt{}, err
	}
	if d.Owner != caller && !s.hasRoleLocked(caller, RoleCompliance) {
		return Receipt{}, ErrPermissionDenied.WithDetail("account %s is neither owner nor %s", caller, RoleCompliance)
	}
	rec := ConsentRecord{
		DatasetID:         datasetID,
		ConsentGiven:      consentGiven,
		DataSubjectRights: dedupe(rights),
		UpdatedAt:         at.UTC(),
		UpdatedBy:         caller,
	}
	s.consents[datasetID] = rec
	ev := s.emit(at, EventConsentUpdated, map[string]string{
		"datasetId":    formatID(datasetID),
		"consentGiven": strconv.FormatBool(consentGiven),
		"rights":       strings.Join(rec.DataSubjectRights, ","),
		"sender":       caller,
	})
	return Receipt{DatasetID: datasetID, Events: []Event{ev}}, nil
}

// AuditTrail devuelve los audits del dataset, el más viejo primero.
func (s *State) AuditTrail(datasetID uint64) ([]AuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := s.datasetLocked(datasetID); err != nil {
		return nil, err
	}
	return append([]AuditRecord{}, s.audits[datasetID]...), nil
}

// GDPRStatus devuelve el consent vigente. Sin registro previo: sin consent
// y sin derechos.
func (s *State) GDPRStatus(datasetID uint64) (ConsentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := s.datasetLocked(datasetID); err != nil {
		return ConsentRecord{}, err
	}
	rec, ok := s.consents[datasetID]
	if !ok {
		return ConsentRecord{DatasetID: datasetID, DataSubjectRights: []string{}}, nil
	}
	return rec.clone(), nil
}
