package kv

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// memoryBackend implementa Backend sobre go-cache.
// Útil para desarrollo y testing; no sobrevive a un reinicio.
type memoryBackend struct {
	c *gocache.Cache
}

type memoryEntry struct {
	value    []byte
	metadata json.RawMessage
}

// NewMemory crea un backend en memoria. cleanup es el intervalo con el que
// go-cache purga entradas expiradas (0 = nunca, las expiradas igual se ocultan).
func NewMemory(cleanup time.Duration) Backend {
	return &memoryBackend{c: gocache.New(gocache.NoExpiration, cleanup)}
}

func (m *memoryBackend) Name() string      { return "memory" }
func (m *memoryBackend) Conditional() bool { return true }

func (m *memoryBackend) Get(ctx context.Context, key string) ([]byte, error) {
	v, _, err := m.GetWithMetadata(ctx, key)
	return v, err
}

func (m *memoryBackend) GetWithMetadata(ctx context.Context, key string) ([]byte, json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	v, ok := m.c.Get(key)
	if !ok {
		return nil, nil, ErrNotFound
	}
	e := v.(memoryEntry)
	return clone(e.value), clone(e.metadata), nil
}

func (m *memoryBackend) Put(ctx context.Context, key string, value []byte, opts PutOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ttl := gocache.NoExpiration
	if opts.TTL > 0 {
		ttl = opts.TTL
	}
	e := memoryEntry{value: clone(value), metadata: clone(opts.Metadata)}
	if opts.IfAbsent {
		if err := m.c.Add(key, e, ttl); err != nil {
			return ErrKeyExists
		}
		return nil
	}
	m.c.Set(key, e, ttl)
	return nil
}

func (m *memoryBackend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.c.Delete(key)
	return nil
}

// ListPage ordena lexicográficamente y pagina por clave (cursor = última clave).
func (m *memoryBackend) ListPage(ctx context.Context, opts ListOptions) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	items := m.c.Items() // copia, ya filtra expiradas
	names := make([]string, 0, len(items))
	for k := range items {
		if strings.HasPrefix(k, opts.Prefix) && k > opts.Cursor {
			names = append(names, k)
		}
	}
	sort.Strings(names)

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	page := Page{Complete: len(names) <= limit}
	if !page.Complete {
		names = names[:limit]
	}
	for _, k := range names {
		e := items[k].Object.(memoryEntry)
		page.Keys = append(page.Keys, KeyInfo{Name: k, Metadata: clone(e.metadata)})
	}
	if len(names) > 0 {
		page.Cursor = names[len(names)-1]
	}
	return page, nil
}

func (m *memoryBackend) Ping(ctx context.Context) error { return ctx.Err() }

func (m *memoryBackend) Close() error {
	m.c.Flush()
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
