package oauth

import (
	"net/http"

	"github.com/dropDatabas3/oauthabl/internal/accounts"
	"github.com/dropDatabas3/oauthabl/internal/http/dto"
	httperrors "github.com/dropDatabas3/oauthabl/internal/http/errors"
	"github.com/dropDatabas3/oauthabl/internal/http/helpers"
	mw "github.com/dropDatabas3/oauthabl/internal/http/middlewares"
	"github.com/dropDatabas3/oauthabl/internal/observability/logger"
)

// FlowsController maneja login, verificación de email y reset de contraseña.
type FlowsController struct {
	service accounts.Service
}

// NewFlowsController crea el controller de flujos.
func NewFlowsController(s accounts.Service) *FlowsController {
	return &FlowsController{service: s}
}

// Login maneja POST /oauth/{clientId}/login
func (c *FlowsController) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("FlowsController.Login"))

	var req dto.LoginRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	res, err := c.service.Login(ctx, mw.GetClientID(ctx), accounts.LoginInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		SessionID: req.SessionID,
	})
	if err != nil {
		if !isClientError(err) {
			log.Error("login failed", logger.Err(err))
		}
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.LoginResponse{
		UserID:  res.UserID,
		Session: dto.FromSession(res.Session),
	})
}

// VerifyEmail maneja POST /oauth/{clientId}/verify-email
func (c *FlowsController) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.VerifyEmailRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.UserID == "" || req.Code == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("userId and code are required"))
		return
	}

	if err := c.service.VerifyEmail(ctx, mw.GetClientID(ctx), req.UserID, req.Code); err != nil {
		if !isClientError(err) {
			logger.From(ctx).Error("verify email failed",
				logger.Layer("controller"),
				logger.Op("FlowsController.VerifyEmail"),
				logger.UserID(req.UserID),
				logger.Err(err),
			)
		}
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"userId": req.UserID, "emailVerified": true})
}

// ResendVerification maneja POST /oauth/{clientId}/resend-email-verification
func (c *FlowsController) ResendVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.ResendRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.Email == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("email is required"))
		return
	}

	res, err := c.service.ResendVerification(ctx, mw.GetClientID(ctx), req.Email)
	if err != nil {
		if !isClientError(err) {
			logger.From(ctx).Error("resend failed",
				logger.Layer("controller"),
				logger.Op("FlowsController.ResendVerification"),
				logger.Err(err),
			)
		}
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.CodeResponse{UserID: res.UserID, Code: res.Code})
}

// ForgotPassword maneja POST /oauth/{clientId}/forgot-password
func (c *FlowsController) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.ForgotRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	res, err := c.service.ForgotPassword(ctx, mw.GetClientID(ctx), accounts.ForgotInput{
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		if !isClientError(err) {
			logger.From(ctx).Error("forgot password failed",
				logger.Layer("controller"),
				logger.Op("FlowsController.ForgotPassword"),
				logger.Err(err),
			)
		}
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.CodeResponse{UserID: res.UserID, Code: res.Code})
}

// ResetPassword maneja POST /oauth/{clientId}/reset-password
func (c *FlowsController) ResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("FlowsController.ResetPassword"))

	var req dto.ResetRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.UserID == "" || req.Code == "" || req.Password == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("userId, code and password are required"))
		return
	}

	res, err := c.service.ResetPassword(ctx, mw.GetClientID(ctx), accounts.ResetInput{
		UserID:   req.UserID,
		Code:     req.Code,
		Password: req.Password,
	})
	if err != nil {
		if !isClientError(err) {
			log.Error("reset password failed", logger.UserID(req.UserID), logger.Err(err))
		}
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.ResetResponse{
		UserID:   req.UserID,
		Archived: dto.FromArchive(res.Archived),
		Session:  dto.FromSession(res.Session),
	})
}
