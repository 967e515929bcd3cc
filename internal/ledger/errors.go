package ledger

import (
	"errors"
	"fmt"
)

// Kind clasifica los errores de negocio. Todos son terminales: nunca se
// reintentan, reintentar una mutación financiera arriesga doble cobro.
type Kind string

const (
	KindInvalidInput         Kind = "invalid_input"
	KindNotFound             Kind = "not_found"
	KindPermissionDenied     Kind = "permission_denied"
	KindStateConflict        Kind = "state_conflict"
	KindNoLicenseNeeded      Kind = "no_license_needed"
	KindSelfLicenseForbidden Kind = "self_license_forbidden"
	KindTransferFailed       Kind = "transfer_failed"
	KindInternal             Kind = "internal"
)

// Error es el error estándar del ledger.
type Error struct {
	Kind    Kind   `json:"kind"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Err     error  `json:"-"`
}

// Error implementa la interfaz error
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap permite acceder al error original
func (e *Error) Unwrap() error { return e.Err }

// Is compara por Code, así errors.Is(err, ErrAlreadyLicensed) funciona
// aunque el error tenga detalle o causa.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail devuelve una COPIA con detalle.
func (e *Error) WithDetail(format string, args ...any) *Error {
	n := *e
	n.Detail = fmt.Sprintf(format, args...)
	return &n
}

// WithCause devuelve una COPIA con la causa.
func (e *Error) WithCause(err error) *Error {
	n := *e
	n.Err = err
	return &n
}

// KindOf devuelve el Kind de err, o KindInternal si no es un error del ledger.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf devuelve el Code de err ("" si no es un error del ledger).
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// =================================================================================
// ERRORES PREDEFINIDOS
// =================================================================================

var (
	ErrInvalidInput = &Error{Kind: KindInvalidInput, Code: "INVALID_INPUT", Message: "invalid input"}

	ErrDatasetNotFound = &Error{Kind: KindNotFound, Code: "DATASET_NOT_FOUND", Message: "dataset not found"}
	ErrLicenseNotFound = &Error{Kind: KindNotFound, Code: "LICENSE_NOT_FOUND", Message: "license not found"}

	ErrPermissionDenied = &Error{Kind: KindPermissionDenied, Code: "PERMISSION_DENIED", Message: "permission denied"}
	ErrNotOwner         = &Error{Kind: KindPermissionDenied, Code: "NOT_OWNER", Message: "caller is not the dataset owner"}

	ErrStateConflict   = &Error{Kind: KindStateConflict, Code: "STATE_CONFLICT", Message: "state conflict"}
	ErrAlreadyLicensed = &Error{Kind: KindStateConflict, Code: "ALREADY_LICENSED", Message: "license already active"}
	ErrDatasetRevoked  = &Error{Kind: KindStateConflict, Code: "DATASET_REVOKED", Message: "dataset is revoked"}
	ErrFeeTooHigh      = &Error{Kind: KindStateConflict, Code: "FEE_TOO_HIGH", Message: "fee cannot exceed 10%"}

	ErrNoLicenseNeeded      = &Error{Kind: KindNoLicenseNeeded, Code: "NO_LICENSE_NEEDED", Message: "dataset is public, no license needed"}
	ErrSelfLicenseForbidden = &Error{Kind: KindSelfLicenseForbidden, Code: "SELF_LICENSE_FORBIDDEN", Message: "owner cannot purchase license"}
	ErrTransferFailed       = &Error{Kind: KindTransferFailed, Code: "TRANSFER_FAILED", Message: "funds transfer declined"}
)
