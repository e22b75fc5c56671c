// Package kv provee el Key-Value Gateway: un wrapper tipado sobre un store
// clave-valor eventualmente consistente (memory, redis, postgres).
//
// El store no ofrece transacciones, índices secundarios ni queries. Todo lo
// que el resto del servicio necesita se expresa con:
//
//   - Get / GetWithMetadata
//   - Put (con metadata opcional, TTL opcional y escritura condicional)
//   - Delete (idempotente)
//   - List por prefijo (lazy, paginado por el backend)
//
// Cada backend implementa Backend; Gateway agrega timeouts por operación,
// mapeo de errores (ErrStoreUnavailable) y métricas.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrNotFound indica que la clave no existe (o expiró).
	ErrNotFound = errors.New("kv: key not found")

	// ErrKeyExists lo retorna un Put con IfAbsent cuando la clave ya existe.
	ErrKeyExists = errors.New("kv: key already exists")

	// ErrStoreUnavailable envuelve fallas de transporte/backend y timeouts.
	ErrStoreUnavailable = errors.New("kv: store unavailable")

	// ErrConditionalUnsupported lo retorna un backend sin escrituras condicionales.
	ErrConditionalUnsupported = errors.New("kv: conditional put not supported")
)

// IsNotFound verifica si el error es ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsUnavailable verifica si el error es ErrStoreUnavailable.
func IsUnavailable(err error) bool { return errors.Is(err, ErrStoreUnavailable) }

// PutOptions configura una escritura.
type PutOptions struct {
	// Metadata se guarda junto al valor y se devuelve en List sin leer el valor.
	Metadata json.RawMessage

	// TTL > 0 delega la expiración al backend. 0 = no expira.
	TTL time.Duration

	// IfAbsent escribe solo si la clave no existe; si existe retorna ErrKeyExists.
	IfAbsent bool
}

// KeyInfo es una entrada de un listado: la clave y su metadata.
type KeyInfo struct {
	Name     string
	Metadata json.RawMessage
}

// ListOptions pide una página de claves bajo un prefijo.
type ListOptions struct {
	Prefix string
	Cursor string // vacío = primera página
	Limit  int
}

// Page es una página de resultados de ListPage.
type Page struct {
	Keys     []KeyInfo
	Cursor   string // para pedir la siguiente página
	Complete bool   // true si no hay más páginas
}

// Backend es el contrato que implementa cada driver.
//
// Los backends no aplican timeouts propios: el Gateway los impone vía ctx.
// Pueden devolver errores crudos de transporte; el Gateway los envuelve.
type Backend interface {
	// Name identifica el driver ("memory", "redis", "postgres").
	Name() string

	Get(ctx context.Context, key string) ([]byte, error)
	GetWithMetadata(ctx context.Context, key string) ([]byte, json.RawMessage, error)
	Put(ctx context.Context, key string, value []byte, opts PutOptions) error
	Delete(ctx context.Context, key string) error
	ListPage(ctx context.Context, opts ListOptions) (Page, error)

	// Conditional indica si Put soporta IfAbsent de forma atómica.
	Conditional() bool

	Ping(ctx context.Context) error
	Close() error
}
