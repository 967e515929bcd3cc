// Package events reenvía el journal de eventos commiteado a sinks externos
// (Postgres, Redis, log). Corre fuera de la FSM y nunca toma el lock del
// estado más que para copiar un lote.
package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/dataledger/internal/domain/repository"
	"github.com/dropDatabas3/dataledger/internal/ledger"
	appmetrics "github.com/dropDatabas3/dataledger/internal/metrics"
	"github.com/dropDatabas3/dataledger/internal/observability/logger"
)

// Source es el journal del que lee el relay. *ledger.State lo implementa.
type Source interface {
	EventsSince(after uint64, limit int) []ledger.Event
	LastSeq() uint64
}

// Sink es el destino de los eventos.
type Sink = repository.EventSink

// LeaderChecker decide si este nodo debe publicar. repository.CommitLog lo
// implementa.
type LeaderChecker interface {
	IsLeader(ctx context.Context) (bool, error)
}

// Options del relay.
type Options struct {
	Interval  time.Duration // default 500ms
	BatchSize int           // default 256
}

// Relay publica en cada sink los eventos que aún no tiene. Solo el líder
// publica; al perder el liderazgo se olvidan los cursores y, al recuperarlo,
// se releen de sink.LastSeq.
type Relay struct {
	src    Source
	leader LeaderChecker
	sinks  []Sink
	opts   Options
	log    *zap.Logger

	mu      sync.Mutex
	cursors map[string]uint64
}

// NewRelay crea un relay. leader puede ser nil (nodo único).
func NewRelay(src Source, leader LeaderChecker, sinks []Sink, opts Options) *Relay {
	if opts.Interval <= 0 {
		opts.Interval = 500 * time.Millisecond
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 256
	}
	return &Relay{
		src:     src,
		leader:  leader,
		sinks:   sinks,
		opts:    opts,
		log:     logger.Named("events").With(logger.Component("relay")),
		cursors: make(map[string]uint64, len(sinks)),
	}
}

// Run hace Flush cada Interval hasta que ctx termine.
func (r *Relay) Run(ctx context.Context) error {
	if len(r.sinks) == 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_ = r.Flush(ctx)
		}
	}
}

// Flush publica todo lo pendiente en cada sink. Un sink que falla no frena
// al resto; su cursor no avanza y se reintenta en el próximo ciclo.
func (r *Relay) Flush(ctx context.Context) error {
	if r.leader != nil {
		ok, err := r.leader.IsLeader(ctx)
		if err != nil || !ok {
			r.mu.Lock()
			clear(r.cursors)
			r.mu.Unlock()
			return err
		}
	}

	var errs []error
	for _, sink := range r.sinks {
		if err := r.drain(ctx, sink); err != nil {
			r.log.Warn("sink publish failed", logger.Sink(sink.Name()), logger.Err(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Relay) drain(ctx context.Context, sink Sink) error {
	cursor, err := r.cursor(ctx, sink)
	if err != nil {
		return err
	}
	for cursor < r.src.LastSeq() {
		batch := r.src.EventsSince(cursor, r.opts.BatchSize)
		if len(batch) == 0 {
			return nil
		}
		if err := sink.Publish(ctx, batch); err != nil {
			return err
		}
		cursor = batch[len(batch)-1].Seq
		r.setCursor(sink.Name(), cursor)
		appmetrics.EventsRelayed.WithLabelValues(sink.Name()).Add(float64(len(batch)))
		r.log.Debug("events relayed", logger.Sink(sink.Name()), logger.Seq(cursor), logger.Count(len(batch)))
	}
	return nil
}

func (r *Relay) cursor(ctx context.Context, sink Sink) (uint64, error) {
	r.mu.Lock()
	c, ok := r.cursors[sink.Name()]
	r.mu.Unlock()
	if ok {
		return c, nil
	}
	c, err := sink.LastSeq(ctx)
	if err != nil {
		return 0, err
	}
	r.setCursor(sink.Name(), c)
	return c, nil
}

func (r *Relay) setCursor(name string, seq uint64) {
	r.mu.Lock()
	r.cursors[name] = seq
	r.mu.Unlock()
}

// Cursor devuelve el último seq confirmado por el sink (0 si aún no se leyó).
func (r *Relay) Cursor(name string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cursors[name]
}

// Close cierra todos los sinks.
func (r *Relay) Close() error {
	var errs []error
	for _, s := range r.sinks {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
