package ledger

import (
	"encoding/binary"
	"time"

	"github.com/google/uuid"
)

// EventType es el catálogo de eventos emitidos en commits exitosos.
type EventType string

const (
	EventDatasetRegistered  EventType = "DatasetRegistered"
	EventPriceUpdated       EventType = "PriceUpdated"
	EventCategoryAdded      EventType = "CategoryAdded"
	EventDatasetRevoked     EventType = "DatasetRevoked"
	EventLicenseGranted     EventType = "LicenseGranted"
	EventLicenseRevoked     EventType = "LicenseRevoked"
	EventPlatformFeeUpdated EventType = "PlatformFeeUpdated"
	EventRoleGranted        EventType = "RoleGranted"
	EventRoleRevoked        EventType = "RoleRevoked"
	EventAuditPerformed     EventType = "AuditPerformed"
	EventConsentUpdated     EventType = "ConsentUpdated"
	EventTransfer           EventType = "Transfer"
)

// eventNamespace es el namespace UUIDv5 de los IDs de evento.
var eventNamespace = uuid.MustParse("6f3b0c2e-4d1a-5e8f-9a7b-2c4d6e8f0a1b")

// Event es una entrada del journal de eventos. Seq es 1-based y sin huecos.
type Event struct {
	Seq        uint64            `json:"seq"`
	ID         string            `json:"id"`
	Type       EventType         `json:"type"`
	At         time.Time         `json:"at"`
	Attributes map[string]string `json:"attributes"`
}

// EventID deriva el ID determinístico del evento seq. Todos los nodos
// obtienen el mismo ID al reaplicar el log.
func EventID(seq uint64) string {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], seq)
	return uuid.NewSHA1(eventNamespace, b[:]).String()
}

// emit agrega un evento al journal. Requiere s.mu tomado en escritura.
//
// TODO: compactar el journal cuando todos los sinks confirmen un seq; hoy
// crece sin límite junto con los snapshots.
func (s *State) emit(at time.Time, typ EventType, attrs map[string]string) Event {
	seq := uint64(len(s.events)) + 1
	ev := Event{Seq: seq, ID: EventID(seq), Type: typ, At: at.UTC(), Attributes: attrs}
	s.events = append(s.events, ev)
	return cloneEvent(ev)
}

// EventsSince devuelve hasta limit eventos con Seq > after, en orden.
func (s *State) EventsSince(after uint64, limit int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if after >= uint64(len(s.events)) {
		return nil
	}
	tail := s.events[after:]
	if limit > 0 && len(tail) > limit {
		tail = tail[:limit]
	}
	out := make([]Event, len(tail))
	for i, ev := range tail {
		out[i] = cloneEvent(ev)
	}
	return out
}

// LastSeq devuelve el Seq del último evento (0 si no hay).
func (s *State) LastSeq() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.events))
}

func cloneEvent(ev Event) Event {
	attrs := make(map[string]string, len(ev.Attributes))
	for k, v := range ev.Attributes {
		attrs[k] = v
	}
	ev.Attributes = attrs
	return ev
}
