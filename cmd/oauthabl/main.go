package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dropDatabas3/oauthabl/internal/app"
	"github.com/dropDatabas3/oauthabl/internal/config"
	"github.com/dropDatabas3/oauthabl/internal/http/server"
	"github.com/dropDatabas3/oauthabl/internal/observability/logger"
)

var version = "dev"

func main() {
	// .env opcional; las variables del entorno real tienen prioridad.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: .env: %v", err)
	}

	cfgPath := flag.String("config", envOr("OAUTHABL_CONFIG", "config.yaml"), "ruta al archivo de configuración")
	flag.Parse()

	if err := run(*cfgPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.App.LogLevel,
		ServiceName: cfg.App.Name,
		Version:     version,
	})
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, app.Options{})
	if err != nil {
		log.Error("startup failed", logger.Err(err))
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("kv close failed", logger.Err(err))
		}
	}()

	log.Info("oauthabl starting",
		logger.String("env", cfg.App.Env),
		logger.String("addr", cfg.Server.Addr),
		logger.Driver(cfg.KV.Driver),
		logger.Bool("smtp", cfg.SMTPEnabled()),
		logger.Bool("echo_codes", cfg.EchoCodes()),
	)

	return server.Run(ctx, server.Config{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, a.Handler)
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
