// Package logger expone un logger Zap singleton con scoping por contexto.
//
// Inicialización (una vez en main.go):
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, ServiceName: "oauthabl"})
//	defer logger.Sync()
//
// En services (con contexto):
//
//	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("Register"))
//	log.Info("user registered", logger.ClientID(clientID), logger.UserID(id))
//
// Los middlewares HTTP inyectan un logger "scoped" con request_id y client_id,
// así que From(ctx) ya trae esos campos. Nunca loguear secretos ni códigos.
package logger
