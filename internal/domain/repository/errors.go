package repository

import (
	"errors"
	"fmt"
)

// Errores de infraestructura que devuelven los adapters. Los rechazos de
// negocio no pasan por acá: viajan como *ledger.Error dentro del resultado.
var (
	ErrNotImplemented = errors.New("not implemented by this commit log")
	ErrNoDatabase     = errors.New("postgres dsn not configured")

	// ErrNotLeader: la escritura llegó a un follower.
	ErrNotLeader = errors.New("not cluster leader")
	// ErrClusterUnavailable: raft apagado, sin quórum o sin líder conocido.
	ErrClusterUnavailable = errors.New("cluster unavailable")

	// ErrNotSubmitted: la mutación nunca entró al log, reintentar es seguro.
	ErrNotSubmitted = errors.New("mutation not submitted")
	// ErrOutcomeUnknown: la mutación pudo commitearse (se perdió el liderazgo
	// o venció el ctx después de encolarla). Nunca se reintenta a ciegas.
	ErrOutcomeUnknown = errors.New("mutation outcome unknown")
)

// NotSubmitted marca cause como reintentable sin perder la causa original.
func NotSubmitted(cause error) error {
	return fmt.Errorf("%w: %w", ErrNotSubmitted, cause)
}

// IsNotSubmitted es el único criterio de retry de la facade.
func IsNotSubmitted(err error) bool { return errors.Is(err, ErrNotSubmitted) }
