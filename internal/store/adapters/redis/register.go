package redis

import (
	"context"

	"github.com/dropDatabas3/dataledger/internal/config"
	"github.com/dropDatabas3/dataledger/internal/domain/repository"
	"github.com/dropDatabas3/dataledger/internal/store"
)

func init() {
	store.RegisterSink("redis", func(_ context.Context, cfg *config.Config) (repository.EventSink, error) {
		rc := cfg.Redis
		s, err := NewSink(Config{
			Addr:     rc.Addr,
			Password: rc.Password,
			DB:       rc.DB,
			Stream:   rc.Stream,
			MaxLen:   rc.MaxLen,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}
