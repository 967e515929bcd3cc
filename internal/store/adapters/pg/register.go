package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/dropDatabas3/dataledger/internal/config"
	"github.com/dropDatabas3/dataledger/internal/domain/repository"
	"github.com/dropDatabas3/dataledger/internal/observability/logger"
	"github.com/dropDatabas3/dataledger/internal/store"
	migrations "github.com/dropDatabas3/dataledger/migrations/postgres"
)

func init() {
	store.RegisterSink("postgres", openSink)
}

func openSink(ctx context.Context, cfg *config.Config) (repository.EventSink, error) {
	pc := cfg.Postgres
	if pc.DSN == "" {
		return nil, repository.ErrNoDatabase
	}
	pool, err := Connect(ctx, pc.DSN, PoolConfig{
		MaxConns:        pc.MaxConns,
		MinConns:        pc.MinConns,
		ConnMaxLifetime: pc.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	if pc.Migrate {
		res, err := Migrate(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		logger.Named("pg").Info("migrations applied",
			logger.Count(len(res.Applied)),
			zap.Int("skipped", len(res.Skipped)),
		)
	}
	return NewSink(pool), nil
}

// Migrate aplica las migraciones embebidas de migrations/postgres.
func Migrate(ctx context.Context, pool *pgxpool.Pool) (*MigrationResult, error) {
	res, err := NewMigrator(migrations.PostgresFS, migrations.PostgresDir).Run(ctx, pool)
	if err != nil {
		return res, fmt.Errorf("migrate: %w", err)
	}
	return res, nil
}
