// Package logger provee el logger Zap singleton del daemon, con scoping por contexto.
//
//   - Singleton: una sola instancia inicializada con Init() en cmd/ledgerd.
//   - Context Scoping: el middleware HTTP inyecta un logger con request_id; la
//     facade agrega op/caller por mutación sin crear un core nuevo.
//   - Environments: "dev" usa consola con colores, "prod" usa JSON.
//
// Uso:
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, NodeID: cfg.Cluster.NodeID})
//	defer logger.Sync()
//
//	log := logger.From(ctx)
//	log.Info("license granted", logger.DatasetID(id), logger.LicenseID(licID))
package logger
