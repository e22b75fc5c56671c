// Package codes emite y verifica códigos de un solo uso (verificación de
// email, reset de contraseña) guardados en <kind>code:<clientId>:<userId>.
//
// A lo sumo hay un código vivo por (kind, clientId, userId): emitir pisa al
// anterior. Verificar con éxito lo consume.
package codes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/oauthabl/internal/kv"
	"github.com/dropDatabas3/oauthabl/internal/observability/logger"
	tokens "github.com/dropDatabas3/oauthabl/internal/security/token"
	"github.com/dropDatabas3/oauthabl/internal/store"
)

// Kind identifica el flujo al que pertenece un código.
type Kind string

const (
	KindEmailVerify    Kind = "emailverify"
	KindForgotPassword Kind = "forgotpassword"
)

// Valid indica si k es un tipo conocido.
func (k Kind) Valid() bool {
	switch k {
	case KindEmailVerify, KindForgotPassword:
		return true
	}
	return false
}

func (k Kind) String() string { return string(k) }

var (
	// ErrNotFound: no hay código vivo para (kind, clientId, userId).
	ErrNotFound = errors.New("codes: code not found")

	// ErrMismatch: el código presentado no coincide. El guardado sigue vivo.
	ErrMismatch = errors.New("codes: code mismatch")

	// ErrInvalidKind: Kind desconocido.
	ErrInvalidKind = errors.New("codes: invalid kind")
)

// DefaultLength es el largo de código por defecto.
const DefaultLength = 6

// Options configura el Issuer.
type Options struct {
	// Length es la cantidad de símbolos del código.
	Length int
	// Alphabet son los símbolos permitidos (default dígitos).
	Alphabet string
	// TTL > 0 delega la expiración al store. 0 = el código no expira.
	TTL time.Duration
}

// Issuer emite y verifica códigos.
type Issuer struct {
	kv   *kv.Gateway
	opts Options
}

// NewIssuer crea un Issuer con defaults para los campos vacíos.
func NewIssuer(g *kv.Gateway, opts Options) *Issuer {
	if opts.Length <= 0 {
		opts.Length = DefaultLength
	}
	if opts.Alphabet == "" {
		opts.Alphabet = tokens.Digits
	}
	return &Issuer{kv: g, opts: opts}
}

// TTL retorna la expiración configurada (0 = sin expiración).
func (i *Issuer) TTL() time.Duration { return i.opts.TTL }

// Issue genera un código nuevo y lo guarda, reemplazando cualquier código
// previo del mismo tipo para el usuario.
func (i *Issuer) Issue(ctx context.Context, kind Kind, clientID, userID string) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	code, err := tokens.NewCode(i.opts.Length, i.opts.Alphabet)
	if err != nil {
		return "", fmt.Errorf("codes: generate: %w", err)
	}
	key := store.CodeKey(kind.String(), clientID, userID)
	if err := i.kv.Put(ctx, key, []byte(code), kv.PutOptions{TTL: i.opts.TTL}); err != nil {
		return "", err
	}
	logger.From(ctx).Debug("code issued",
		logger.Component("codes"),
		logger.CodeKind(kind.String()),
		logger.ClientID(clientID),
		logger.UserID(userID),
	)
	return code, nil
}

// Verify compara code con el código vivo en tiempo constante. Si coincide lo
// borra y retorna nil. Si el borrado falla se retorna el error del store y el
// código no cuenta como consumido.
func (i *Issuer) Verify(ctx context.Context, kind Kind, clientID, userID, code string) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	key := store.CodeKey(kind.String(), clientID, userID)
	stored, err := i.kv.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if !tokens.Equal(code, string(stored)) {
		return ErrMismatch
	}
	return i.kv.Delete(ctx, key)
}

// Revoke borra el código vivo, si existe.
func (i *Issuer) Revoke(ctx context.Context, kind Kind, clientID, userID string) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	return i.kv.Delete(ctx, store.CodeKey(kind.String(), clientID, userID))
}
