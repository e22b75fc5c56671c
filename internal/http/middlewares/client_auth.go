package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/oauthabl/internal/http/errors"
	"github.com/dropDatabas3/oauthabl/internal/observability/logger"
)

// ClientSecretHeader es la alternativa a Authorization para presentar el secreto.
const ClientSecretHeader = "X-Client-Secret"

// Authenticator valida (clientId, secret).
type Authenticator interface {
	Authenticate(ctx context.Context, clientID, secret string) error
}

// WithClientAuth autentica al cliente de la ruta /oauth/{clientId}/...
//
// El secreto se acepta como:
//   - Authorization: Basic base64(clientId:secret) (el usuario debe coincidir con la ruta)
//   - Authorization: Bearer <secret>
//   - X-Client-Secret: <secret>
//
// Todo rechazo es el mismo 401, sin importar la causa.
func WithClientAuth(auth Authenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := chi.URLParam(r, "clientId")
			log := logger.From(r.Context()).With(
				logger.Layer("middleware"),
				logger.Op("WithClientAuth"),
				logger.ClientID(clientID),
			)

			secret, ok := presentedSecret(r, clientID)
			if !ok {
				log.Debug("client credentials missing")
				errors.WriteError(w, errors.ErrUnauthorized)
				return
			}

			if err := auth.Authenticate(r.Context(), clientID, secret); err != nil {
				log.Warn("client authentication failed", logger.Err(err))
				errors.WriteError(w, err)
				return
			}

			ctx := setClientID(r.Context(), clientID)
			ctx = logger.ToContext(ctx, logger.From(r.Context()).With(logger.ClientID(clientID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func presentedSecret(r *http.Request, clientID string) (string, bool) {
	if user, pass, ok := r.BasicAuth(); ok {
		if user != clientID || pass == "" {
			return "", false
		}
		return pass, true
	}
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, found := strings.Cut(h, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			return "", false
		}
		token = strings.TrimSpace(token)
		return token, token != ""
	}
	if s := r.Header.Get(ClientSecretHeader); s != "" {
		return s, true
	}
	return "", false
}
