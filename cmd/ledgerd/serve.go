package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/dataledger/internal/app"
	"github.com/dropDatabas3/dataledger/internal/config"
	"github.com/dropDatabas3/dataledger/internal/observability/logger"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		envFile    string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Arranca el nodo: commit log, relay de eventos y HTTP operativo",
		RunE: func(cmd *cobra.Command, args []string) error {
			// .env es opcional
			if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			logger.Init(logger.Config{
				Env:         cfg.App.Env,
				Level:       cfg.App.LogLevel,
				ServiceName: "ledgerd",
				Version:     version,
				NodeID:      cfg.Cluster.NodeID,
			})
			defer func() { _ = logger.Sync() }()
			log := logger.Named("main")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, version)
			if err != nil {
				log.Error("startup failed", logger.Err(err))
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					log.Warn("shutdown cleanup failed", logger.Err(err))
				}
			}()

			log.Info("ledgerd started",
				logger.String("addr", cfg.Server.Addr),
				logger.String("cluster_mode", cfg.Cluster.Mode),
				logger.Count(len(cfg.Events.Sinks)),
			)
			if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("ledgerd stopped with error", logger.Err(err))
				return err
			}
			log.Info("ledgerd stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", os.Getenv("LEDGERD_CONFIG"), "Ruta al YAML de configuración (env LEDGERD_CONFIG)")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "Archivo .env a cargar antes de la config")
	return cmd
}
