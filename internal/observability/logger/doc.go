// Package logger provides a singleton Zap logger with context-based scoping.
//
// # Design Decisions
//
//   - Singleton: Una sola instancia global inicializada con Init().
//   - Context Scoping: cada operación puede llevar un logger "scoped" con campos
//     adicionales (app_id, key_id, request_id) sin crear un nuevo core.
//   - Environments: "prod"/"staging" escriben JSON, el resto consola con colores;
//     siempre a stderr.
//   - Levels: debug, info, warn, error (configurable via LOG_LEVEL).
//
// # Usage
//
// Inicialización (una vez en main.go):
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})
//	defer logger.Sync()
//
// En store/services (con contexto):
//
//	log := logger.From(ctx).With(logger.AppID(appID))
//	log.Debug("signing keys loaded", logger.Count(len(keys)))
package logger
