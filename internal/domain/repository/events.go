package repository

import (
	"context"

	"github.com/dropDatabas3/dataledger/internal/ledger"
)

// EventSink recibe eventos del journal ya commiteados, en orden de Seq.
//
// Publish puede recibir eventos repetidos (ej: al cambiar de líder el relay
// reenvía desde el último seq confirmado) y debe ser idempotente por Seq.
type EventSink interface {
	// Name identifica al sink en logs y métricas.
	Name() string

	// Publish entrega un lote de eventos consecutivos.
	Publish(ctx context.Context, events []ledger.Event) error

	// LastSeq devuelve el último seq persistido por el sink (0 si ninguno).
	LastSeq(ctx context.Context) (uint64, error)

	// Close libera recursos.
	Close() error
}
