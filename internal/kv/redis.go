package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cada clave se guarda como hash: campo "v" (valor) y "m" (metadata, opcional).
const (
	redisValueField = "v"
	redisMetaField  = "m"
)

// putIfAbsentScript escribe el hash solo si la clave no existe.
// ARGV: valor, metadata ("" = sin metadata), ttl en ms (0 = sin expiración).
var putIfAbsentScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], 'v', ARGV[1])
if ARGV[2] ~= '' then
  redis.call('HSET', KEYS[1], 'm', ARGV[2])
end
local ttl = tonumber(ARGV[3])
if ttl > 0 then
  redis.call('PEXPIRE', KEYS[1], ttl)
end
return 1
`)

// RedisConfig configura el backend Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // prefijo para todas las keys (se quita al listar)
}

// redisBackend implementa Backend usando Redis.
type redisBackend struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis crea el backend y verifica la conexión.
func NewRedis(ctx context.Context, cfg RedisConfig) (Backend, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("kv: redis ping failed: %w", err)
	}
	return NewRedisWithClient(rdb, cfg.Prefix), nil
}

// NewRedisWithClient crea el backend con un cliente ya configurado (tests con miniredis).
func NewRedisWithClient(client redis.UniversalClient, prefix string) Backend {
	return &redisBackend{client: client, prefix: prefix}
}

func (r *redisBackend) Name() string      { return "redis" }
func (r *redisBackend) Conditional() bool { return true }

func (r *redisBackend) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

func (r *redisBackend) unkey(k string) string {
	if r.prefix == "" {
		return k
	}
	return strings.TrimPrefix(k, r.prefix+":")
}

func (r *redisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.client.HGet(ctx, r.key(key), redisValueField).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *redisBackend) GetWithMetadata(ctx context.Context, key string) ([]byte, json.RawMessage, error) {
	vals, err := r.client.HMGet(ctx, r.key(key), redisValueField, redisMetaField).Result()
	if err != nil {
		return nil, nil, err
	}
	v, ok := vals[0].(string)
	if !ok {
		return nil, nil, ErrNotFound
	}
	var meta json.RawMessage
	if m, ok := vals[1].(string); ok && m != "" {
		meta = json.RawMessage(m)
	}
	return []byte(v), meta, nil
}

func (r *redisBackend) Put(ctx context.Context, key string, value []byte, opts PutOptions) error {
	k := r.key(key)
	if opts.IfAbsent {
		ok, err := putIfAbsentScript.Run(ctx, r.client, []string{k},
			value, string(opts.Metadata), opts.TTL.Milliseconds()).Int()
		if err != nil {
			return err
		}
		if ok == 0 {
			return ErrKeyExists
		}
		return nil
	}

	// DEL + HSET en una transacción para no dejar una "m" vieja colgando.
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, k)
		fields := []any{redisValueField, value}
		if len(opts.Metadata) > 0 {
			fields = append(fields, redisMetaField, string(opts.Metadata))
		}
		p.HSet(ctx, k, fields...)
		if opts.TTL > 0 {
			p.PExpire(ctx, k, opts.TTL)
		}
		return nil
	})
	return err
}

func (r *redisBackend) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

// ListPage usa SCAN: el orden no está garantizado y una clave puede repetirse
// entre páginas (el Gateway deduplica). El cursor es el cursor de SCAN.
func (r *redisBackend) ListPage(ctx context.Context, opts ListOptions) (Page, error) {
	var cursor uint64
	if opts.Cursor != "" {
		c, err := strconv.ParseUint(opts.Cursor, 10, 64)
		if err != nil {
			return Page{}, fmt.Errorf("kv: invalid redis cursor %q: %w", opts.Cursor, err)
		}
		cursor = c
	}
	limit := int64(opts.Limit)
	if limit <= 0 {
		limit = DefaultPageSize
	}

	keys, next, err := r.client.Scan(ctx, cursor, escapeGlob(r.key(opts.Prefix))+"*", limit).Result()
	if err != nil {
		return Page{}, err
	}

	page := Page{Cursor: strconv.FormatUint(next, 10), Complete: next == 0}
	if len(keys) == 0 {
		return page, nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(keys))
	for i, k := range keys {
		cmds[i] = pipe.HGet(ctx, k, redisMetaField)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Page{}, err
	}
	for i, k := range keys {
		info := KeyInfo{Name: r.unkey(k)}
		if m, err := cmds[i].Result(); err == nil && m != "" {
			info.Metadata = json.RawMessage(m)
		}
		page.Keys = append(page.Keys, info)
	}
	return page, nil
}

func (r *redisBackend) Ping(ctx context.Context) error { return r.client.Ping(ctx).Err() }
func (r *redisBackend) Close() error                   { return r.client.Close() }

// escapeGlob escapa los metacaracteres del patrón de SCAN MATCH.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch c {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}
