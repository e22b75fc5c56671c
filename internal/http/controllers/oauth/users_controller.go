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

// UsersController maneja /oauth/{clientId}/users
type UsersController struct {
	service accounts.Service
}

// NewUsersController crea el controller de usuarios.
func NewUsersController(s accounts.Service) *UsersController {
	return &UsersController{service: s}
}

// Register maneja POST /oauth/{clientId}/users
func (c *UsersController) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID := mw.GetClientID(ctx)
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("UsersController.Register"))

	var req dto.RegisterRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	res, err := c.service.Register(ctx, clientID, accounts.RegisterInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		VerifyEmail: req.VerifyEmail,
	})
	if err != nil {
		if !isClientError(err) {
			log.Error("register failed", logger.Err(err))
		}
		httperrors.WriteError(w, err)
		return
	}

	resp := dto.RegisterResponse{UserResponse: dto.FromUser(res.User), Code: res.Code}
	if res.Session != nil {
		s := dto.FromSession(*res.Session)
		resp.Session = &s
	}
	helpers.WriteJSON(w, http.StatusCreated, resp)
}

// ListUsers maneja GET /oauth/{clientId}/users
func (c *UsersController) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	users, err := c.service.ListUsers(ctx, mw.GetClientID(ctx))
	if err != nil {
		logger.From(ctx).Error("list failed",
			logger.Layer("controller"),
			logger.Op("UsersController.ListUsers"),
			logger.Err(err),
		)
		httperrors.WriteError(w, err)
		return
	}

	out := make([]dto.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, dto.FromUser(u))
	}
	helpers.WriteJSON(w, http.StatusOK, out)
}

// GetUser maneja GET /oauth/{clientId}/users/{property}/{identifier}
// con property en id, username o email.
func (c *UsersController) GetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	property := accounts.Property(chi.URLParam(r, "property"))
	identifier := chi.URLParam(r, "identifier")

	switch property {
	case accounts.PropertyID, accounts.PropertyUsername, accounts.PropertyEmail:
	default:
		httperrors.WriteError(w, httperrors.ErrInvalidParameter.WithDetail("property must be one of id, username, email"))
		return
	}

	user, err := c.service.GetUser(ctx, mw.GetClientID(ctx), property, identifier)
	if err != nil {
		if !isClientError(err) {
			logger.From(ctx).Error("get failed",
				logger.Layer("controller"),
				logger.Op("UsersController.GetUser"),
				logger.Err(err),
			)
		}
		httperrors.WriteError(w, err)
		return
	}

	resp := dto.FromUser(*user)
	n := user.Sessions
	resp.Sessions = &n
	helpers.WriteJSON(w, http.StatusOK, resp)
}

// DeleteUser maneja DELETE /oauth/{clientId}/users/{userId}
func (c *UsersController) DeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "userId")
	log := logger.From(ctx).With(
		logger.Layer("controller"),
		logger.Op("UsersController.DeleteUser"),
		logger.UserID(userID),
	)

	res, err := c.service.DeleteUser(ctx, mw.GetClientID(ctx), userID)
	if err != nil {
		if !isClientError(err) {
			log.Error("delete failed", logger.Err(err))
		}
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.DeleteUserResponse{
		ID:       userID,
		Sessions: dto.FromArchive(res.Sessions),
	})
}

// isClientError indica si err es un 4xx esperado (no se loguea como error).
func isClientError(err error) bool {
	return httperrors.FromError(err).HTTPStatus < http.StatusInternalServerError
}
