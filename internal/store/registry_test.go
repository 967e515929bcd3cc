package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/dataledger/internal/config"
	"github.com/dropDatabas3/dataledger/internal/domain/repository"
	"github.com/dropDatabas3/dataledger/internal/ledger"
)

type nopSink struct{ name string }

func (s nopSink) Name() string                                { return s.name }
func (nopSink) Publish(context.Context, []ledger.Event) error { return nil }
func (nopSink) LastSeq(context.Context) (uint64, error)       { return 0, nil }
func (nopSink) Close() error                                  { return nil }

func TestRegistry(t *testing.T) {
	RegisterSink("test-nop", func(context.Context, *config.Config) (repository.EventSink, error) {
		return nopSink{name: "test-nop"}, nil
	})
	RegisterSink("test-broken", func(context.Context, *config.Config) (repository.EventSink, error) {
		return nil, errors.New("unreachable")
	})

	assert.Contains(t, ListSinks(), "test-nop")

	s, err := OpenSink(context.Background(), "test-nop", &config.Config{})
	require.NoError(t, err)
	assert.Equal(t, "test-nop", s.Name())

	_, err = OpenSink(context.Background(), "test-broken", &config.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "test-broken")

	_, err = OpenSink(context.Background(), "missing", &config.Config{})
	assert.ErrorContains(t, err, "not registered")

	assert.Panics(t, func() {
		RegisterSink("test-nop", func(context.Context, *config.Config) (repository.EventSink, error) { return nil, nil })
	})
}
