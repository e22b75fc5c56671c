package kv

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Config selecciona y configura el backend.
type Config struct {
	Driver   string // "memory" | "redis" | "postgres"
	Redis    RedisConfig
	Postgres PostgresConfig

	// MemoryCleanup es el intervalo de purga de go-cache (solo memory).
	MemoryCleanup time.Duration
}

// Open crea el backend según la configuración.
func Open(ctx context.Context, cfg Config) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "memory", "":
		return NewMemory(cfg.MemoryCleanup), nil
	case "redis":
		return NewRedis(ctx, cfg.Redis)
	case "postgres", "pg":
		return NewPostgres(ctx, cfg.Postgres)
	default:
		return nil, fmt.Errorf("kv: unknown driver %q", cfg.Driver)
	}
}
