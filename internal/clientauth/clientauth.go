// Package clientauth autentica a un cliente (tenant) por su secreto.
//
// Default-deny: cualquier camino que no sea una comparación exitosa contra
// el secreto guardado termina en error. Cliente inexistente y secreto
// incorrecto devuelven el mismo ErrUnauthorized.
package clientauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/oauthabl/internal/observability/logger"
	tokens "github.com/dropDatabas3/oauthabl/internal/security/token"
	"github.com/dropDatabas3/oauthabl/internal/store"
)

var (
	// ErrUnauthorized: credencial ausente, cliente inexistente o secreto incorrecto.
	ErrUnauthorized = errors.New("clientauth: unauthorized")

	// ErrInternal: no se pudo leer el cliente del store.
	ErrInternal = errors.New("clientauth: internal error")
)

// dummySecret se compara cuando el cliente no existe.
const dummySecret = "clientauth-dummy-secret-0000000000000000"

// CredentialSource lee la metadata {name, secret} de un cliente.
type CredentialSource interface {
	Credentials(ctx context.Context, clientID string) (store.ClientMetadata, error)
}

// Authenticator valida secretos de cliente.
type Authenticator struct {
	clients CredentialSource
}

// New crea un Authenticator.
func New(clients CredentialSource) *Authenticator {
	return &Authenticator{clients: clients}
}

// Authenticate retorna nil solo si secret coincide con el secreto guardado
// para clientID.
func (a *Authenticator) Authenticate(ctx context.Context, clientID, secret string) error {
	log := logger.From(ctx).With(logger.Component("clientauth"), logger.ClientID(clientID))

	if clientID == "" || secret == "" {
		return ErrUnauthorized
	}

	creds, err := a.clients.Credentials(ctx, clientID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		tokens.Equal(secret, dummySecret)
		log.Debug("client not found")
		return ErrUnauthorized
	case err != nil:
		log.Error("client lookup failed", logger.Err(err))
		return fmt.Errorf("%w: %w", ErrInternal, err)
	}

	if creds.Secret == "" || !tokens.Equal(secret, creds.Secret) {
		log.Debug("client secret mismatch")
		return ErrUnauthorized
	}
	return nil
}
