package events

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/dropDatabas3/dataledger/internal/domain/repository"
	"github.com/dropDatabas3/dataledger/internal/ledger"
	"github.com/dropDatabas3/dataledger/internal/config"
	"github.com/dropDatabas3/dataledger/internal/observability/logger"
	"github.com/dropDatabas3/dataledger/internal/store"
)

func init() {
	store.RegisterSink("log", func(context.Context, *config.Config) (repository.EventSink, error) {
		return NewLogSink(nil), nil
	})
}

// LogSink escribe cada evento como una línea de log. El cursor vive en
// memoria: tras un reinicio se reloguea el journal completo.
type LogSink struct {
	log *zap.Logger

	mu   sync.Mutex
	last uint64
}

// NewLogSink crea el sink. Con l nil usa el logger "events".
func NewLogSink(l *zap.Logger) *LogSink {
	if l == nil {
		l = logger.Named("events")
	}
	return &LogSink{log: l.With(logger.Sink("log"))}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Publish(ctx context.Context, evs []ledger.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range evs {
		if ev.Seq <= s.last {
			continue
		}
		fields := make([]zap.Field, 0, len(ev.Attributes)+3)
		fields = append(fields, logger.Seq(ev.Seq), logger.String("event_id", ev.ID), zap.Time("at", ev.At))
		for k, v := range ev.Attributes {
			fields = append(fields, zap.String(k, v))
		}
		s.log.Info(string(ev.Type), fields...)
		s.last = ev.Seq
	}
	return nil
}

func (s *LogSink) LastSeq(ctx context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, nil
}

func (s *LogSink) Close() error { return nil }

var _ repository.EventSink = (*LogSink)(nil)
