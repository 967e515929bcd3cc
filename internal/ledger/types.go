package ledger

import (
	"strings"
	"time"
)

// LicenseTerm es la vigencia fija de toda licencia.
const LicenseTerm = 365 * 24 * time.Hour

// MaxPlatformFeeBps es el tope del fee de plataforma (10%).
const MaxPlatformFeeBps = 1000

// bpsDenominator: 10000 bps = 100%.
const bpsDenominator = 10000

// Visibility indica si un dataset requiere licencia.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// ParseVisibility normaliza y valida una visibilidad.
func ParseVisibility(s string) (Visibility, bool) {
	switch Visibility(strings.ToLower(strings.TrimSpace(s))) {
	case VisibilityPublic:
		return VisibilityPublic, true
	case VisibilityPrivate:
		return VisibilityPrivate, true
	}
	return "", false
}

// Role es una capacidad independiente del ownership de datasets.
type Role string

const (
	// RoleAdmin gobierna roles y fee de plataforma.
	RoleAdmin Role = "admin"
	// RoleCompliance puede revocar licencias/datasets y registrar auditorías.
	RoleCompliance Role = "compliance"
)

// Valid indica si el rol es conocido.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleCompliance
}

// Dataset es el registro de un dataset direccionado por contenido.
type Dataset struct {
	ID             uint64     `json:"id"`
	Owner          string     `json:"owner"`
	ContentAddress string     `json:"contentAddress"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	Price          uint64     `json:"price"`
	Visibility     Visibility `json:"visibility"`
	Categories     []string   `json:"categories"`
	Revoked        bool       `json:"revoked"`
	CreatedAt      time.Time  `json:"createdAt"`
}

func (d Dataset) clone() Dataset {
	d.Categories = append([]string(nil), d.Categories...)
	return d
}

func (d Dataset) hasCategory(c string) bool {
	for _, x := range d.Categories {
		if x == c {
			return true
		}
	}
	return false
}

// DatasetInput son los datos de registro de un dataset.
type DatasetInput struct {
	ContentAddress string
	Name           string
	Description    string
	Price          uint64
	Visibility     Visibility
	Categories     []string
}

// License es una concesión temporal de acceso a un dataset privado.
//
// Active puede seguir en true después de ExpiresAt: la expiración se evalúa
// al leer (ver State.IsLicenseValid), no con un barrido.
type License struct {
	ID        string    `json:"id"`
	DatasetID uint64    `json:"datasetId"`
	Licensee  string    `json:"licensee"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Active    bool      `json:"active"`
}

// ValidAt indica si la licencia autoriza acceso en now.
func (l License) ValidAt(now time.Time) bool {
	return l.Active && now.Before(l.ExpiresAt)
}

// AuditRecord es una revisión de compliance inmutable.
type AuditRecord struct {
	DatasetID uint64    `json:"datasetId"`
	Auditor   string    `json:"auditor"`
	Timestamp time.Time `json:"timestamp"`
	Passed    bool      `json:"passed"`
	Notes     string    `json:"notes"`
}

// ConsentRecord es el estado GDPR vigente de un dataset.
type ConsentRecord struct {
	DatasetID         uint64    `json:"datasetId"`
	ConsentGiven      bool      `json:"consentGiven"`
	DataSubjectRights []string  `json:"dataSubjectRights"`
	UpdatedAt         time.Time `json:"updatedAt,omitempty"`
	UpdatedBy         string    `json:"updatedBy,omitempty"`
}

func (c ConsentRecord) clone() ConsentRecord {
	c.DataSubjectRights = append([]string{}, c.DataSubjectRights...)
	return c
}

// Genesis es el estado inicial, idéntico en todos los nodos.
type Genesis struct {
	Admin          string `json:"admin" yaml:"admin"`
	Treasury       string `json:"treasury" yaml:"treasury"`
	PlatformFeeBps uint32 `json:"platformFeeBps" yaml:"platform_fee_bps"`
	FaucetAmount   uint64 `json:"faucetAmount" yaml:"faucet_amount"`
}

// Receipt resume el efecto de una mutación aplicada.
type Receipt struct {
	DatasetID uint64  `json:"datasetId,omitempty"`
	LicenseID string  `json:"licenseId,omitempty"`
	Events    []Event `json:"events,omitempty"`
}

// dedupe limpia y deduplica manteniendo el orden de inserción.
func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
