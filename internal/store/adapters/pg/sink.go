// Package pg proyecta el journal de eventos del ledger en Postgres y aplica
// las migraciones de esa proyección.
package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/dataledger/internal/domain/repository"
	"github.com/dropDatabas3/dataledger/internal/ledger"
)

// PoolConfig ajusta el pool de conexiones.
type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
}

// Connect abre un pool contra dsn y verifica la conexión.
func Connect(ctx context.Context, dsn string, cfg PoolConfig) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pcfg.MinConns = cfg.MinConns
	}
	if cfg.ConnMaxLifetime > 0 {
		pcfg.MaxConnLifetime = cfg.ConnMaxLifetime
		pcfg.MaxConnIdleTime = cfg.ConnMaxLifetime
	}
	if pcfg.MaxConns == 0 {
		pcfg.MaxConns = 5
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pg: connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}
	return pool, nil
}

// Sink escribe eventos en la tabla ledger_events. Es idempotente por seq:
// un evento ya proyectado se ignora.
type Sink struct {
	pool *pgxpool.Pool
}

// NewSink crea un Sink sobre un pool ya migrado.
func NewSink(pool *pgxpool.Pool) *Sink { return &Sink{pool: pool} }

// Pool expone el pool interno (métricas).
func (s *Sink) Pool() *pgxpool.Pool {
	if s == nil {
		return nil
	}
	return s.pool
}

func (s *Sink) Name() string { return "postgres" }

// Publish inserta el lote en una sola transacción.
func (s *Sink) Publish(ctx context.Context, events []ledger.Event) error {
	if len(events) == 0 {
		return nil
	}
	const query = `
		INSERT INTO ledger_events (seq, event_id, event_type, occurred_at, attributes)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (seq) DO NOTHING`

	batch := &pgx.Batch{}
	for _, ev := range events {
		attrs, err := json.Marshal(ev.Attributes)
		if err != nil {
			return fmt.Errorf("pg: encode event %d: %w", ev.Seq, err)
		}
		batch.Queue(query, int64(ev.Seq), ev.ID, string(ev.Type), ev.At, attrs)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pg: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("pg: insert events: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("pg: commit: %w", err)
	}
	return nil
}

// LastSeq devuelve el mayor seq proyectado.
func (s *Sink) LastSeq(ctx context.Context) (uint64, error) {
	var seq int64
	err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(seq), 0) FROM ledger_events`).Scan(&seq)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("pg: last seq: %w", err)
	}
	return uint64(seq), nil
}

// EventsFor lista los eventos proyectados de un dataset, en orden de seq.
func (s *Sink) EventsFor(ctx context.Context, datasetID uint64) ([]ledger.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT seq, event_id::text, event_type, occurred_at, attributes
		FROM ledger_events
		WHERE attributes->>'datasetId' = $1
		ORDER BY seq`, fmt.Sprint(datasetID))
	if err != nil {
		return nil, fmt.Errorf("pg: events for dataset: %w", err)
	}
	defer rows.Close()

	var out []ledger.Event
	for rows.Next() {
		var (
			ev    ledger.Event
			seq   int64
			typ   string
			attrs []byte
		)
		if err := rows.Scan(&seq, &ev.ID, &typ, &ev.At, &attrs); err != nil {
			return nil, err
		}
		ev.Seq, ev.Type, ev.At = uint64(seq), ledger.EventType(typ), ev.At.UTC()
		if err := json.Unmarshal(attrs, &ev.Attributes); err != nil {
			return nil, fmt.Errorf("pg: decode event %d: %w", seq, err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Close cierra el pool (idempotente).
func (s *Sink) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}

var _ repository.EventSink = (*Sink)(nil)
