package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/dropDatabas3/oauthabl/internal/observability/logger"
)

const (
	DefaultOpTimeout = 3 * time.Second
	DefaultPageSize  = 100
)

// Observer recibe una observación por operación (para métricas).
type Observer interface {
	ObserveKV(op, result string, d time.Duration)
}

// Options configura el Gateway.
type Options struct {
	// OpTimeout se aplica a cada llamada al backend (cada página en List).
	OpTimeout time.Duration

	// PageSize es el tamaño de página pedido al backend en List.
	PageSize int

	Observer Observer
}

// Gateway es la única puerta de I/O del servicio hacia el store.
// Se inyecta en cada componente; no hay singleton.
type Gateway struct {
	backend  Backend
	timeout  time.Duration
	pageSize int
	observer Observer
}

// New crea un Gateway sobre el backend dado.
func New(b Backend, opts Options) *Gateway {
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = DefaultOpTimeout
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	return &Gateway{
		backend:  b,
		timeout:  opts.OpTimeout,
		pageSize: opts.PageSize,
		observer: opts.Observer,
	}
}

// Driver retorna el nombre del backend.
func (g *Gateway) Driver() string { return g.backend.Name() }

// Conditional indica si Put con IfAbsent es atómico en este backend.
func (g *Gateway) Conditional() bool { return g.backend.Conditional() }

// Get retorna el valor de key o ErrNotFound.
func (g *Gateway) Get(ctx context.Context, key string) ([]byte, error) {
	var out []byte
	err := g.do(ctx, "get", key, func(ctx context.Context) error {
		v, err := g.backend.Get(ctx, key)
		out = v
		return err
	})
	return out, err
}

// GetWithMetadata retorna valor y metadata (metadata puede ser nil).
func (g *Gateway) GetWithMetadata(ctx context.Context, key string) ([]byte, json.RawMessage, error) {
	var (
		val  []byte
		meta json.RawMessage
	)
	err := g.do(ctx, "get_with_metadata", key, func(ctx context.Context) error {
		v, m, err := g.backend.GetWithMetadata(ctx, key)
		val, meta = v, m
		return err
	})
	return val, meta, err
}

// Put escribe key. Con IfAbsent sobre un backend no condicional retorna
// ErrConditionalUnsupported; el caller decide si degradar a check-then-put.
func (g *Gateway) Put(ctx context.Context, key string, value []byte, opts PutOptions) error {
	if opts.IfAbsent && !g.backend.Conditional() {
		return ErrConditionalUnsupported
	}
	return g.do(ctx, "put", key, func(ctx context.Context) error {
		return g.backend.Put(ctx, key, value, opts)
	})
}

// Delete borra key. Borrar una clave inexistente no es error.
func (g *Gateway) Delete(ctx context.Context, key string) error {
	return g.do(ctx, "delete", key, func(ctx context.Context) error {
		err := g.backend.Delete(ctx, key)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	})
}

// List itera lazy todas las claves bajo prefix, página por página.
// Un error corta la iteración y se entrega como último elemento.
// Las claves duplicadas entre páginas (redis SCAN) se entregan una sola vez.
func (g *Gateway) List(ctx context.Context, prefix string) iter.Seq2[KeyInfo, error] {
	return func(yield func(KeyInfo, error) bool) {
		seen := make(map[string]struct{})
		cursor := ""
		for {
			var page Page
			err := g.do(ctx, "list", prefix, func(ctx context.Context) error {
				p, err := g.backend.ListPage(ctx, ListOptions{Prefix: prefix, Cursor: cursor, Limit: g.pageSize})
				page = p
				return err
			})
			if err != nil {
				yield(KeyInfo{}, err)
				return
			}
			for _, k := range page.Keys {
				if _, dup := seen[k.Name]; dup {
					continue
				}
				seen[k.Name] = struct{}{}
				if !yield(k, nil) {
					return
				}
			}
			if page.Complete {
				return
			}
			if page.Cursor == cursor {
				yield(KeyInfo{}, fmt.Errorf("%w: list cursor did not advance", ErrStoreUnavailable))
				return
			}
			cursor = page.Cursor
		}
	}
}

// ListAll consume List completo.
func (g *Gateway) ListAll(ctx context.Context, prefix string) ([]KeyInfo, error) {
	var out []KeyInfo
	for k, err := range g.List(ctx, prefix) {
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, nil
}

// Ping verifica la conexión con el backend.
func (g *Gateway) Ping(ctx context.Context) error {
	return g.do(ctx, "ping", "", g.backend.Ping)
}

// Close libera el backend.
func (g *Gateway) Close() error { return g.backend.Close() }

func (g *Gateway) do(ctx context.Context, op, key string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	if err == nil && ctx.Err() != nil {
		// El backend ignoró el ctx pero el deadline venció igual.
		err = ctx.Err()
	}
	err = classify(op, key, err)
	d := time.Since(start)
	g.observe(op, err, d)
	if errors.Is(err, ErrStoreUnavailable) {
		logger.From(ctx).Warn("kv operation failed",
			logger.Layer("kv"),
			logger.Driver(g.backend.Name()),
			logger.Op(op),
			logger.Key(key),
			logger.DurationMs(d),
			logger.Err(err),
		)
	}
	return err
}

func (g *Gateway) observe(op string, err error, d time.Duration) {
	if g.observer == nil {
		return
	}
	g.observer.ObserveKV(op, resultLabel(err), d)
}

func classify(op, key string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrKeyExists),
		errors.Is(err, ErrConditionalUnsupported),
		errors.Is(err, ErrStoreUnavailable):
		return err
	default:
		return fmt.Errorf("%w: %s %q: %w", ErrStoreUnavailable, op, key, err)
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrKeyExists):
		return "exists"
	default:
		return "error"
	}
}
