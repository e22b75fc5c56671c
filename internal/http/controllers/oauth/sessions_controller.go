package oauth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/oauthabl/internal/accounts"
	"github.com/dropDatabas3/oauthabl/internal/http/dto"
	httperrors "github.com/dropDatabas3/oauthabl/internal/http/errors"
	"github.com/dropDatabas3/oauthabl/internal/http/helpers"
	mw "github.com/dropDatabas3/oauthabl/internal/http/middlewares"
	"github.com/dropDatabas3/oauthabl/internal/observability/logger"
)

// SessionsController maneja /oauth/{clientId}/sessions/{userId}
type SessionsController struct {
	service accounts.Service
}

// NewSessionsController crea el controller de sesiones.
func NewSessionsController(s accounts.Service) *SessionsController {
	return &SessionsController{service: s}
}

// ListSessions maneja GET .../sessions/{userId}
func (c *SessionsController) ListSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "userId")

	list, err := c.service.ListSessions(ctx, mw.GetClientID(ctx), userID)
	if err != nil {
		logger.From(ctx).Error("list sessions failed",
			logger.Layer("controller"),
			logger.Op("SessionsController.ListSessions"),
			logger.UserID(userID),
			logger.Err(err),
		)
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.FromSessions(list))
}

// CreateSession maneja POST .../sessions/{userId}
func (c *SessionsController) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "userId")
	log := logger.From(ctx).With(
		logger.Layer("controller"),
		logger.Op("SessionsController.CreateSession"),
		logger.UserID(userID),
	)

	var req dto.SessionRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	s, err := c.service.CreateSession(ctx, mw.GetClientID(ctx), userID, accounts.SessionInput{
		SessionID: req.SessionID,
		ForceNew:  req.ForceNew,
	})
	if err != nil {
		if !isClientError(err) {
			log.Error("create session failed", logger.Err(err))
		}
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.FromSession(s))
}

// ArchiveSession maneja DELETE .../sessions/{userId}/{sessionId}
func (c *SessionsController) ArchiveSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "userId")
	sessionID := chi.URLParam(r, "sessionId")

	if err := c.service.ArchiveSession(ctx, mw.GetClientID(ctx), userID, sessionID); err != nil {
		if !isClientError(err) {
			logger.From(ctx).Error("archive session failed",
				logger.Layer("controller"),
				logger.Op("SessionsController.ArchiveSession"),
				logger.UserID(userID),
				logger.SessionID(sessionID),
				logger.Err(err),
			)
		}
		httperrors.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ArchiveAllSessions maneja DELETE .../sessions/{userId}
//
// Responde 200 con {archived, failed} aunque haya fallas parciales; solo un
// error de listado corta el barrido.
func (c *SessionsController) ArchiveAllSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "userId")

	res, err := c.service.ArchiveAllSessions(ctx, mw.GetClientID(ctx), userID)
	if err != nil {
		logger.From(ctx).Error("archive all failed",
			logger.Layer("controller"),
			logger.Op("SessionsController.ArchiveAllSessions"),
			logger.UserID(userID),
			logger.Err(err),
		)
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.FromArchive(res))
}
