// Package app cablea todos los componentes a partir de la configuración.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dropDatabas3/oauthabl/internal/accounts"
	"github.com/dropDatabas3/oauthabl/internal/clientauth"
	"github.com/dropDatabas3/oauthabl/internal/codes"
	"github.com/dropDatabas3/oauthabl/internal/config"
	"github.com/dropDatabas3/oauthabl/internal/email"
	adminctrl "github.com/dropDatabas3/oauthabl/internal/http/controllers/admin"
	healthctrl "github.com/dropDatabas3/oauthabl/internal/http/controllers/health"
	oauthctrl "github.com/dropDatabas3/oauthabl/internal/http/controllers/oauth"
	"github.com/dropDatabas3/oauthabl/internal/http/router"
	"github.com/dropDatabas3/oauthabl/internal/kv"
	"github.com/dropDatabas3/oauthabl/internal/metrics"
	"github.com/dropDatabas3/oauthabl/internal/observability/logger"
	"github.com/dropDatabas3/oauthabl/internal/security/password"
	"github.com/dropDatabas3/oauthabl/internal/sessions"
	"github.com/dropDatabas3/oauthabl/internal/store"
)

// Options permite reemplazar piezas externas (tests, CLI).
type Options struct {
	// Backend reemplaza al que abriría cfg.KV.
	Backend kv.Backend
	// Sender reemplaza al SMTP/LogSender derivado de cfg.SMTP.
	Sender email.Sender
	// Registerer para las métricas. Nil = registry propio.
	Registerer prometheus.Registerer
	// Hasher reemplaza argon2id con los parámetros de cfg.
	Hasher password.Hasher
}

// App es la aplicación cableada.
type App struct {
	Handler  http.Handler
	Gateway  *kv.Gateway
	Metrics  *metrics.Metrics
	Accounts accounts.Service
	Clients  *store.ClientRepository
}

// New arma la aplicación. El llamador es dueño de Close.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	log := logger.L().With(logger.Component("app"))

	// 1. Métricas
	reg := opts.Registerer
	if reg == nil {
		r := prometheus.NewRegistry()
		r.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		reg = r
	}
	m, err := metrics.New(reg)
	if err != nil {
		return nil, fmt.Errorf("app: metrics: %w", err)
	}

	// 2. Store
	backend := opts.Backend
	if backend == nil {
		backend, err = kv.Open(ctx, kv.Config{
			Driver: cfg.KV.Driver,
			Redis: kv.RedisConfig{
				Addr:     cfg.KV.Redis.Addr,
				Password: cfg.KV.Redis.Password,
				DB:       cfg.KV.Redis.DB,
				Prefix:   cfg.KV.Prefix,
			},
			Postgres: kv.PostgresConfig{
				DSN:      cfg.KV.Postgres.DSN,
				MaxConns: cfg.KV.Postgres.MaxConns,
				Migrate:  cfg.KV.Postgres.Migrate,
			},
			MemoryCleanup: cfg.KV.Memory.Cleanup,
		})
		if err != nil {
			return nil, fmt.Errorf("app: open kv: %w", err)
		}
	}
	gw := kv.New(backend, kv.Options{
		OpTimeout: cfg.KV.OpTimeout,
		PageSize:  cfg.KV.ListPageSize,
		Observer:  m,
	})
	log.Info("kv ready", logger.Driver(gw.Driver()), logger.Bool("conditional", gw.Conditional()))

	// 3. Core
	clients := store.NewClientRepository(gw)
	users := store.NewUserRepository(gw)
	issuer := codes.NewIssuer(gw, codes.Options{
		Length:   cfg.Codes.Length,
		Alphabet: cfg.Codes.Alphabet,
		TTL:      cfg.Codes.TTL,
	})
	sessionMgr := sessions.NewManager(gw, sessions.Options{Concurrency: cfg.Sessions.ArchiveConcurrency})

	hasher := opts.Hasher
	if hasher == nil {
		hasher = password.NewArgon2id(password.Params{
			Memory:      cfg.Password.Argon2.Memory,
			Time:        cfg.Password.Argon2.Time,
			Parallelism: cfg.Password.Argon2.Parallelism,
			KeyLen:      password.Default.KeyLen,
			SaltLen:     password.Default.SaltLen,
		})
	}

	sender := opts.Sender
	if sender == nil {
		sender = newSender(cfg)
	}
	notifier := email.NewNotifier(sender, email.NotifierConfig{
		VerifySubject: cfg.Email.VerifySubject,
		ResetSubject:  cfg.Email.ResetSubject,
		CodeTTL:       issuer.TTL(),
	})

	svc := accounts.NewService(accounts.Deps{
		Clients:   clients,
		Users:     users,
		Sessions:  sessionMgr,
		Codes:     issuer,
		Hasher:    hasher,
		Notifier:  notifier,
		EchoCodes: cfg.EchoCodes(),
	})

	// 4. HTTP
	handler := router.New(router.Deps{
		Health:         healthctrl.NewHealthController(gw, cfg.KV.OpTimeout),
		Clients:        adminctrl.NewClientsController(clients),
		OAuth:          oauthctrl.NewControllers(svc),
		ClientAuth:     clientauth.New(clients),
		AdminAPIKey:    cfg.Admin.APIKey,
		Metrics:        m,
		MetricsHandler: m.Handler(),
	})
	if cfg.Admin.APIKey == "" {
		log.Warn("admin api key not set: /clients is open")
	}

	return &App{
		Handler:  handler,
		Gateway:  gw,
		Metrics:  m,
		Accounts: svc,
		Clients:  clients,
	}, nil
}

// Close libera el store.
func (a *App) Close() error {
	return a.Gateway.Close()
}

func newSender(cfg *config.Config) email.Sender {
	if !cfg.SMTPEnabled() {
		return email.LogSender{}
	}
	return email.NewSMTPSender(email.SMTPConfig{
		Host:               cfg.SMTP.Host,
		Port:               cfg.SMTP.Port,
		Username:           cfg.SMTP.Username,
		Password:           cfg.SMTP.Password,
		From:               cfg.SMTP.From,
		TLSMode:            cfg.SMTP.TLS,
		InsecureSkipVerify: cfg.SMTP.InsecureSkipVerify,
	})
}
