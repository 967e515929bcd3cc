package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/dataledger/internal/config"
	"github.com/dropDatabas3/dataledger/internal/store/adapters/pg"
)

func newMigrateCmd() *cobra.Command {
	var (
		dsn        string
		configPath string
	)
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones de Postgres del sink de eventos",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" && configPath != "" {
				cfg, err := config.Load(configPath)
				if err != nil {
					return err
				}
				dsn = cfg.Postgres.DSN
			}
			if dsn == "" {
				return errors.New("falta DSN (flag --dsn o postgres.dsn en --config)")
			}

			ctx := cmd.Context()
			pool, err := pg.Connect(ctx, dsn, pg.PoolConfig{MaxConns: 2})
			if err != nil {
				return err
			}
			defer pool.Close()

			res, err := pg.Migrate(ctx, pool)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, v := range res.Applied {
				fmt.Fprintf(out, "OK %04d\n", v)
			}
			fmt.Fprintf(out, "applied=%d skipped=%d (%s)\n", len(res.Applied), len(res.Skipped), res.Duration)
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", "", "DSN de Postgres")
	cmd.Flags().StringVar(&configPath, "config", "", "YAML de configuración (usa postgres.dsn)")
	return cmd
}
