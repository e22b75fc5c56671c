package middlewares

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/dropDatabas3/oauthabl/internal/http/errors"
	"github.com/dropDatabas3/oauthabl/internal/observability/logger"
)

// AdminKeyHeader es el header que autentica la API de administración.
const AdminKeyHeader = "X-Admin-API-Key"

// RequireAdminKey protege /clients con una API key estática.
// Con apiKey vacía (solo dev) no se exige nada.
func RequireAdminKey(apiKey string) Middleware {
	want := []byte(apiKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(want) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			got := []byte(strings.TrimSpace(r.Header.Get(AdminKeyHeader)))
			if subtle.ConstantTimeCompare(got, want) != 1 {
				logger.From(r.Context()).Warn("admin key rejected",
					logger.Layer("middleware"),
					logger.Op("RequireAdminKey"),
				)
				errors.WriteError(w, errors.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
