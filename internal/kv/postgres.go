package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	migrations "github.com/dropDatabas3/oauthabl/migrations/postgres"
)

// PostgresConfig configura el backend Postgres.
type PostgresConfig struct {
	DSN      string
	MaxConns int32
	Migrate  bool // aplica migrations/postgres/kv al abrir
}

// postgresBackend guarda el espacio de claves en la tabla kv_entries.
// Las filas expiradas se ignoran en lecturas y se pisan en escrituras;
// no hay barrido en background.
type postgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgres abre el pool, verifica la conexión y opcionalmente migra.
func NewPostgres(ctx context.Context, cfg PostgresConfig) (Backend, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New("kv: postgres dsn is required")
	}
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("kv: parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("kv: open postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("kv: postgres ping failed: %w", err)
	}

	if cfg.Migrate {
		if err := migratePostgres(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return &postgresBackend{pool: pool}, nil
}

func migratePostgres(ctx context.Context, pool *pgxpool.Pool) error {
	entries, err := fs.ReadDir(migrations.KVFS, migrations.KVDir)
	if err != nil {
		return fmt.Errorf("kv: read migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		sql, err := fs.ReadFile(migrations.KVFS, migrations.KVDir+"/"+name)
		if err != nil {
			return fmt.Errorf("kv: read migration %s: %w", name, err)
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("kv: apply migration %s: %w", name, err)
		}
	}
	return nil
}

func (p *postgresBackend) Name() string      { return "postgres" }
func (p *postgresBackend) Conditional() bool { return true }

const pgLive = `(expires_at IS NULL OR expires_at > now())`

func (p *postgresBackend) Get(ctx context.Context, key string) ([]byte, error) {
	v, _, err := p.GetWithMetadata(ctx, key)
	return v, err
}

func (p *postgresBackend) GetWithMetadata(ctx context.Context, key string) ([]byte, json.RawMessage, error) {
	var (
		value []byte
		meta  []byte
	)
	err := p.pool.QueryRow(ctx,
		`SELECT value, metadata FROM kv_entries WHERE key = $1 AND `+pgLive, key,
	).Scan(&value, &meta)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return value, meta, nil
}

func (p *postgresBackend) Put(ctx context.Context, key string, value []byte, opts PutOptions) error {
	var expires *time.Time
	if opts.TTL > 0 {
		t := time.Now().Add(opts.TTL)
		expires = &t
	}
	var meta []byte
	if len(opts.Metadata) > 0 {
		meta = opts.Metadata
	}

	q := `INSERT INTO kv_entries (key, value, metadata, expires_at) VALUES ($1, $2, $3, $4)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, metadata = EXCLUDED.metadata, expires_at = EXCLUDED.expires_at`
	if opts.IfAbsent {
		// Solo pisa filas expiradas.
		q += ` WHERE kv_entries.expires_at IS NOT NULL AND kv_entries.expires_at <= now()`
	}

	tag, err := p.pool.Exec(ctx, q, key, value, meta, expires)
	if err != nil {
		return err
	}
	if opts.IfAbsent && tag.RowsAffected() == 0 {
		return ErrKeyExists
	}
	return nil
}

func (p *postgresBackend) Delete(ctx context.Context, key string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM kv_entries WHERE key = $1`, key)
	return err
}

// ListPage pagina por keyset (key > cursor ORDER BY key).
func (p *postgresBackend) ListPage(ctx context.Context, opts ListOptions) (Page, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	rows, err := p.pool.Query(ctx,
		`SELECT key, metadata FROM kv_entries
WHERE key LIKE $1 ESCAPE '\' AND key > $2 AND `+pgLive+`
ORDER BY key LIMIT $3`,
		escapeLike(opts.Prefix)+"%", opts.Cursor, limit+1,
	)
	if err != nil {
		return Page{}, err
	}
	defer rows.Close()

	var page Page
	for rows.Next() {
		var (
			k    string
			meta []byte
		)
		if err := rows.Scan(&k, &meta); err != nil {
			return Page{}, err
		}
		page.Keys = append(page.Keys, KeyInfo{Name: k, Metadata: meta})
	}
	if err := rows.Err(); err != nil {
		return Page{}, err
	}

	page.Complete = len(page.Keys) <= limit
	if !page.Complete {
		page.Keys = page.Keys[:limit]
	}
	if n := len(page.Keys); n > 0 {
		page.Cursor = page.Keys[n-1].Name
	}
	return page, nil
}

func (p *postgresBackend) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

func (p *postgresBackend) Close() error {
	p.pool.Close()
	return nil
}

// escapeLike escapa % _ y \ para usar s como prefijo literal en LIKE.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
