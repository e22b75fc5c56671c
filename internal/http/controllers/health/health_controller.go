// Package health contiene el controller de health checks.
package health

import (
	"context"
	"net/http"
	"time"

	httperrors "github.com/dropDatabas3/oauthabl/internal/http/errors"
	"github.com/dropDatabas3/oauthabl/internal/http/helpers"
	"github.com/dropDatabas3/oauthabl/internal/observability/logger"
)

// Pinger verifica que el store responda.
type Pinger interface {
	Ping(ctx context.Context) error
	Driver() string
}

// HealthController maneja /healthz y /readyz.
type HealthController struct {
	store   Pinger
	timeout time.Duration
}

// NewHealthController crea el controller. timeout acota el ping de /readyz.
func NewHealthController(store Pinger, timeout time.Duration) *HealthController {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HealthController{store: store, timeout: timeout}
}

type healthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store,omitempty"`
}

// Healthz maneja GET /healthz (liveness, no toca el store).
func (c *HealthController) Healthz(w http.ResponseWriter, _ *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// Readyz maneja GET /readyz
func (c *HealthController) Readyz(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context()).With(logger.Layer("controller"), logger.Op("HealthController.Readyz"))

	ctx, cancel := context.WithTimeout(r.Context(), c.timeout)
	defer cancel()

	if err := c.store.Ping(ctx); err != nil {
		log.Warn("store not ready", logger.Driver(c.store.Driver()), logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrServiceUnavailable.WithCause(err))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, healthResponse{Status: "ready", Store: c.store.Driver()})
}
