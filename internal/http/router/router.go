// Package router arma el árbol de rutas chi y sus cadenas de middlewares.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	adminctrl "github.com/dropDatabas3/oauthabl/internal/http/controllers/admin"
	healthctrl "github.com/dropDatabas3/oauthabl/internal/http/controllers/health"
	oauthctrl "github.com/dropDatabas3/oauthabl/internal/http/controllers/oauth"
	httperrors "github.com/dropDatabas3/oauthabl/internal/http/errors"
	mw "github.com/dropDatabas3/oauthabl/internal/http/middlewares"
)

// Deps contiene todo lo que el router necesita.
type Deps struct {
	Health  *healthctrl.HealthController
	Clients *adminctrl.ClientsController
	OAuth   *oauthctrl.Controllers

	// ClientAuth autentica /oauth/{clientId}/...
	ClientAuth mw.Authenticator
	// AdminAPIKey protege /clients (vacía = abierta, solo dev).
	AdminAPIKey string

	// Metrics es opcional. Si MetricsHandler es nil no se expone /metrics.
	Metrics        mw.HTTPObserver
	MetricsHandler http.Handler
}

// New construye el handler raíz.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	// ===========================================================================
	// Infra (sin logging: health y scrape son muy frecuentes)
	// ===========================================================================
	r.Group(func(r chi.Router) {
		r.Use(mw.WithRecover(), mw.WithRequestID())

		r.Get("/healthz", deps.Health.Healthz)
		r.Get("/readyz", deps.Health.Readyz)
		if deps.MetricsHandler != nil {
			r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
		}
	})

	// ===========================================================================
	// API
	// ===========================================================================
	r.Group(func(r chi.Router) {
		r.Use(
			mw.WithRecover(),
			mw.WithRequestID(),
			mw.WithLogging(),
			mw.WithMetrics(deps.Metrics),
			mw.WithSecurityHeaders(),
			mw.WithNoStore(),
		)

		registerClientRoutes(r, deps)
		registerOAuthRoutes(r, deps)
	})

	return r
}

// registerClientRoutes registra la API de administración de clientes.
func registerClientRoutes(r chi.Router, deps Deps) {
	c := deps.Clients
	r.Route("/clients", func(r chi.Router) {
		r.Use(mw.RequireAdminKey(deps.AdminAPIKey))

		r.Get("/", c.ListClients)
		r.Post("/", c.CreateClient)
		r.Get("/{clientId}", c.GetClient)
		r.Patch("/{clientId}", c.UpdateClient)
		r.Delete("/{clientId}", c.DeleteClient)
	})
}

// registerOAuthRoutes registra las rutas por cliente. Todas requieren las
// credenciales del cliente de la ruta.
func registerOAuthRoutes(r chi.Router, deps Deps) {
	c := deps.OAuth
	r.Route("/oauth/{clientId}", func(r chi.Router) {
		r.Use(mw.WithClientAuth(deps.ClientAuth))

		// Users
		r.Post("/users", c.Users.Register)
		r.Get("/users", c.Users.ListUsers)
		r.Get("/users/{property}/{identifier}", c.Users.GetUser)
		r.Delete("/users/{userId}", c.Users.DeleteUser)

		// Flujos
		r.Post("/login", c.Flows.Login)
		r.Post("/verify-email", c.Flows.VerifyEmail)
		r.Post("/resend-email-verification", c.Flows.ResendVerification)
		r.Post("/forgot-password", c.Flows.ForgotPassword)
		r.Post("/reset-password", c.Flows.ResetPassword)

		// Sessions. Fuera de /users para no competir con /users/{property}/{identifier}.
		r.Route("/sessions/{userId}", func(r chi.Router) {
			r.Get("/", c.Sessions.ListSessions)
			r.Post("/", c.Sessions.CreateSession)
			r.Delete("/", c.Sessions.ArchiveAllSessions)
			r.Delete("/{sessionId}", c.Sessions.ArchiveSession)
		})
	})
}
