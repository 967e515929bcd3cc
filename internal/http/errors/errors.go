// Package errors define el error HTTP estándar del servidor operativo y su
// escritura como JSON.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/dropDatabas3/dataledger/internal/domain/repository"
	"github.com/dropDatabas3/dataledger/internal/ledger"
)

// AppError es lo que ve el cliente del servidor operativo: code estable,
// mensaje, detalle opcional y status HTTP. Err queda solo para los logs.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	msg := e.Code + ": " + e.Message
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *AppError) Unwrap() error { return e.Err }

// WithDetail y WithCause copian: los errores predefinidos son compartidos.
func (e *AppError) WithDetail(detail string) *AppError {
	c := *e
	c.Detail = detail
	return &c
}

func (e *AppError) WithCause(err error) *AppError {
	c := *e
	c.Err = err
	return &c
}

func define(status int, code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, HTTPStatus: status}
}

var (
	ErrBadRequest   = define(http.StatusBadRequest, "BAD_REQUEST", "Parámetros faltantes o inválidos.")
	ErrInvalidJSON  = define(http.StatusBadRequest, "INVALID_JSON", "El cuerpo no es JSON válido.")
	ErrTokenMissing = define(http.StatusUnauthorized, "TOKEN_MISSING", "Falta el token de operador.")
	ErrTokenInvalid = define(http.StatusUnauthorized, "TOKEN_INVALID", "Token de operador inválido o vencido.")

	ErrInsufficientScopes = define(http.StatusForbidden, "INSUFFICIENT_SCOPES", "El token no tiene el scope cluster:admin.")
	ErrNotFound           = define(http.StatusNotFound, "NOT_FOUND", "Recurso inexistente.")

	ErrNotLeader           = define(http.StatusConflict, "NOT_LEADER", "Este nodo es follower; escribí al líder (header X-Leader).")
	ErrNotImplemented      = define(http.StatusNotImplemented, "NOT_IMPLEMENTED", "No disponible con el commit log local.")
	ErrServiceUnavailable  = define(http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Cluster sin líder o commit log caído.")
	ErrInternalServerError = define(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Error inesperado.")
)

// FromError convierte un error de cualquier capa en un AppError.
func FromError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	switch {
	case stderrors.Is(err, repository.ErrNotLeader):
		return ErrNotLeader.WithCause(err)
	case stderrors.Is(err, repository.ErrNotImplemented):
		return ErrNotImplemented.WithCause(err)
	case stderrors.Is(err, repository.ErrClusterUnavailable):
		return ErrServiceUnavailable.WithCause(err)
	}

	var le *ledger.Error
	if stderrors.As(err, &le) {
		return &AppError{
			Code:       le.Code,
			Message:    le.Message,
			Detail:     le.Detail,
			HTTPStatus: statusForKind(le.Kind),
			Err:        err,
		}
	}
	return ErrInternalServerError.WithCause(err)
}

func statusForKind(k ledger.Kind) int {
	switch k {
	case ledger.KindInvalidInput:
		return http.StatusBadRequest
	case ledger.KindNotFound:
		return http.StatusNotFound
	case ledger.KindPermissionDenied:
		return http.StatusForbidden
	case ledger.KindStateConflict, ledger.KindNoLicenseNeeded, ledger.KindSelfLicenseForbidden:
		return http.StatusConflict
	case ledger.KindTransferFailed:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// WriteError escribe err como JSON con el status correspondiente.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Detail:  appErr.Detail,
	})
}
