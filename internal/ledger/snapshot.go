package ledger

import (
	"sort"

	"github.com/dropDatabas3/dataledger/internal/token"
)

// Snapshot es la forma serializable del estado completo. Los índices
// (byPair, byLicensee) no se guardan: se reconstruyen en Import.
type Snapshot struct {
	Genesis  Genesis                  `json:"genesis"`
	Datasets []Dataset                `json:"datasets"`
	Licenses []License                `json:"licenses"` // en orden de emisión
	Roles    map[string][]Role        `json:"roles"`
	FeeBps   uint32                   `json:"feeBps"`
	Treasury string                   `json:"treasury"`
	Audits   map[uint64][]AuditRecord `json:"audits,omitempty"`
	Consents []ConsentRecord          `json:"consents,omitempty"`
	Tokens   token.Snapshot           `json:"tokens"`
	Events   []Event                  `json:"events,omitempty"`
}

// Export copia el estado completo.
func (s *State) Export() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := Snapshot{
		Genesis:  s.genesis,
		Datasets: make([]Dataset, 0, len(s.datasets)),
		Licenses: make([]License, 0, len(s.licenses)),
		Roles:    make(map[string][]Role, len(s.roles)),
		FeeBps:   s.feeBps,
		Treasury: s.treasury,
		Audits:   make(map[uint64][]AuditRecord, len(s.audits)),
		Tokens:   s.tokens.Snapshot(),
		Events:   make([]Event, 0, len(s.events)),
	}
	for _, d := range s.datasets {
		out.Datasets = append(out.Datasets, d.clone())
	}
	for _, id := range s.issued {
		out.Licenses = append(out.Licenses, *s.licenses[id])
	}
	for acct, set := range s.roles {
		rs := make([]Role, 0, len(set))
		for r := range set {
			rs = append(rs, r)
		}
		sort.Slice(rs, func(i, j int) bool { return rs[i] < rs[j] })
		out.Roles[acct] = rs
	}
	for id, recs := range s.audits {
		out.Audits[id] = append([]AuditRecord(nil), recs...)
	}
	for _, c := range s.consents {
		out.Consents = append(out.Consents, c.clone())
	}
	sort.Slice(out.Consents, func(i, j int) bool { return out.Consents[i].DatasetID < out.Consents[j].DatasetID })
	for _, ev := range s.events {
		out.Events = append(out.Events, cloneEvent(ev))
	}
	return out
}

// Import reemplaza el estado con snap. El colaborador de fondos configurado
// se conserva.
func (s *State) Import(snap Snapshot) error {
	if snap.FeeBps > MaxPlatformFeeBps {
		return ErrStateConflict.WithDetail("snapshot fee %d bps exceeds %d", snap.FeeBps, MaxPlatformFeeBps)
	}
	for i, d := range snap.Datasets {
		if d.ID != uint64(i) {
			return ErrStateConflict.WithDetail("snapshot dataset %d at position %d", d.ID, i)
		}
	}
	seen := make(map[string]struct{}, len(snap.Licenses))
	for _, l := range snap.Licenses {
		if _, dup := seen[l.ID]; dup {
			return ErrStateConflict.WithDetail("snapshot repeats license %s", l.ID)
		}
		seen[l.ID] = struct{}{}
	}
	for i, ev := range snap.Events {
		if ev.Seq != uint64(i)+1 {
			return ErrStateConflict.WithDetail("snapshot event seq %d at position %d", ev.Seq, i)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.genesis = snap.Genesis
	s.reset()

	for _, d := range snap.Datasets {
		c := d.clone()
		s.datasets = append(s.datasets, &c)
	}
	for _, l := range snap.Licenses {
		lic := l
		s.licenses[lic.ID] = &lic
		s.issued = append(s.issued, lic.ID)
		key := pairKey{datasetID: lic.DatasetID, licensee: lic.Licensee}
		s.byPair[key] = append(s.byPair[key], lic.ID)
		s.byLicensee[lic.Licensee] = append(s.byLicensee[lic.Licensee], lic.ID)
	}
	s.roles = make(map[string]map[Role]struct{}, len(snap.Roles))
	for acct, rs := range snap.Roles {
		set := make(map[Role]struct{}, len(rs))
		for _, r := range rs {
			set[r] = struct{}{}
		}
		if len(set) > 0 {
			s.roles[acct] = set
		}
	}
	s.feeBps = snap.FeeBps
	s.treasury = snap.Treasury
	for id, recs := range snap.Audits {
		s.audits[id] = append([]AuditRecord(nil), recs...)
	}
	for _, c := range snap.Consents {
		s.consents[c.DatasetID] = c.clone()
	}
	s.tokens.Restore(snap.Tokens)
	for _, ev := range snap.Events {
		s.events = append(s.events, cloneEvent(ev))
	}
	return nil
}
