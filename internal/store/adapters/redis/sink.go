// Package redis publica el journal de eventos del ledger en un Redis Stream.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	rdb "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/dataledger/internal/domain/repository"
	"github.com/dropDatabas3/dataledger/internal/ledger"
)

// Config de conexión del sink.
type Config struct {
	Addr     string
	Password string
	DB       int
	Stream   string // default "ledger:events"
	MaxLen   int64  // 0 = sin recorte
}

// Sink hace XADD de cada evento con ID "<seq>-0". Redis rechaza IDs menores
// o iguales al último del stream, así que republicar es un no-op.
type Sink struct {
	client *rdb.Client
	stream string
	maxLen int64
}

// NewSink conecta y verifica con PING.
func NewSink(cfg Config) (*Sink, error) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}
	if cfg.Stream == "" {
		cfg.Stream = "ledger:events"
	}

	client := rdb.NewClient(&rdb.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping failed: %w", err)
	}
	return &Sink{client: client, stream: cfg.Stream, maxLen: cfg.MaxLen}, nil
}

func (s *Sink) Name() string { return "redis" }

// Stream devuelve el nombre del stream.
func (s *Sink) Stream() string { return s.stream }

// Publish envía el lote en un pipeline. Los eventos que el stream ya tiene
// se ignoran.
func (s *Sink) Publish(ctx context.Context, events []ledger.Event) error {
	if len(events) == 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	cmds := make([]*rdb.StringCmd, 0, len(events))
	for _, ev := range events {
		args := &rdb.XAddArgs{
			Stream: s.stream,
			ID:     streamID(ev.Seq),
			Values: eventValues(ev),
		}
		if s.maxLen > 0 {
			args.MaxLen = s.maxLen
			args.Approx = true
		}
		cmds = append(cmds, pipe.XAdd(ctx, args))
	}
	// Exec devuelve el primer error; se revisa cada comando por separado.
	_, _ = pipe.Exec(ctx)

	for i, cmd := range cmds {
		if err := cmd.Err(); err != nil && !isStaleID(err) {
			return fmt.Errorf("redis: xadd seq %d: %w", events[i].Seq, err)
		}
	}
	return nil
}

// LastSeq lee el último ID del stream.
func (s *Sink) LastSeq(ctx context.Context) (uint64, error) {
	msgs, err := s.client.XRevRangeN(ctx, s.stream, "+", "-", 1).Result()
	if err != nil {
		if errors.Is(err, rdb.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis: last seq: %w", err)
	}
	if len(msgs) == 0 {
		return 0, nil
	}
	return parseStreamID(msgs[0].ID)
}

func (s *Sink) Close() error { return s.client.Close() }

func streamID(seq uint64) string { return strconv.FormatUint(seq, 10) + "-0" }

func parseStreamID(id string) (uint64, error) {
	ms, _, ok := strings.Cut(id, "-")
	if !ok {
		return 0, fmt.Errorf("redis: malformed stream id %q", id)
	}
	seq, err := strconv.ParseUint(ms, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("redis: malformed stream id %q: %w", id, err)
	}
	return seq, nil
}

func eventValues(ev ledger.Event) map[string]any {
	v := make(map[string]any, len(ev.Attributes)+3)
	for k, a := range ev.Attributes {
		v["attr."+k] = a
	}
	v["id"] = ev.ID
	v["type"] = string(ev.Type)
	v["at"] = ev.At.Format(time.RFC3339Nano)
	return v
}

func isStaleID(err error) bool {
	return strings.Contains(err.Error(), "equal or smaller than the target stream top item")
}

var _ repository.EventSink = (*Sink)(nil)
