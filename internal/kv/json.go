package kv

import (
	"context"
	"encoding/json"
	"fmt"
)

// GetJSON lee key y decodifica el valor JSON en T.
func GetJSON[T any](ctx context.Context, g *Gateway, key string) (T, error) {
	var out T
	raw, err := g.Get(ctx, key)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("kv: decode value %q: %w", key, err)
	}
	return out, nil
}

// GetJSONWithMetadata lee valor y metadata decodificados.
// El bool indica si la clave tenía metadata.
func GetJSONWithMetadata[V, M any](ctx context.Context, g *Gateway, key string) (V, M, bool, error) {
	var (
		val  V
		meta M
	)
	raw, rawMeta, err := g.GetWithMetadata(ctx, key)
	if err != nil {
		return val, meta, false, err
	}
	if err := json.Unmarshal(raw, &val); err != nil {
		return val, meta, false, fmt.Errorf("kv: decode value %q: %w", key, err)
	}
	meta, ok, err := DecodeMetadata[M](rawMeta)
	if err != nil {
		return val, meta, false, fmt.Errorf("kv: decode metadata %q: %w", key, err)
	}
	return val, meta, ok, nil
}

// PutJSON codifica value (y metadata si no es nil) y escribe key.
func PutJSON(ctx context.Context, g *Gateway, key string, value, metadata any, opts PutOptions) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kv: encode value %q: %w", key, err)
	}
	if metadata != nil {
		m, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("kv: encode metadata %q: %w", key, err)
		}
		opts.Metadata = m
	}
	return g.Put(ctx, key, raw, opts)
}

// DecodeMetadata decodifica metadata cruda. Retorna false si está vacía.
func DecodeMetadata[M any](raw json.RawMessage) (M, bool, error) {
	var out M
	if len(raw) == 0 || string(raw) == "null" {
		return out, false, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, false, err
	}
	return out, true, nil
}
