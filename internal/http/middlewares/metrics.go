package middlewares

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/oauthabl/internal/metrics"
)

// HTTPObserver recibe las observaciones de cada request.
type HTTPObserver interface {
	InflightInc(method string)
	InflightDec(method string)
	ObserveHTTP(method, path string, status int, d time.Duration)
}

// WithMetrics mide cada request. El label path es el patrón de chi
// (/oauth/{clientId}/login); fuera del router se normaliza el path crudo.
func WithMetrics(obs HTTPObserver) Middleware {
	return func(next http.Handler) http.Handler {
		if obs == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			obs.InflightInc(r.Method)
			defer obs.InflightDec(r.Method)

			rec := recorderFrom(w)
			next.ServeHTTP(rec, r)

			obs.ObserveHTTP(r.Method, routePattern(r), rec.status, time.Since(start))
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return metrics.NormalizePath(r.URL.Path)
}
