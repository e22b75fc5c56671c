package accounts

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/oauthabl/internal/codes"
	"github.com/dropDatabas3/oauthabl/internal/observability/logger"
	"github.com/dropDatabas3/oauthabl/internal/store"
)

// GetUser busca por id, username o email e incluye la cantidad de sesiones.
func (s *service) GetUser(ctx context.Context, clientID string, property Property, identifier string) (*UserView, error) {
	var (
		u   store.User
		err error
	)
	switch property {
	case PropertyID:
		u, err = s.deps.Users.Get(ctx, clientID, identifier)
	case PropertyUsername:
		u, err = s.deps.Users.ResolveUsername(ctx, clientID, NormalizeUsername(identifier))
	case PropertyEmail:
		u, err = s.deps.Users.ResolveEmail(ctx, clientID, NormalizeEmail(identifier))
	default:
		return nil, fmt.Errorf("%w: unknown property %q", ErrInvalidInput, property)
	}
	if err != nil {
		return nil, err
	}

	n, err := s.deps.Sessions.Count(ctx, clientID, u.ID)
	if err != nil {
		return nil, err
	}
	v := viewOf(u)
	v.Sessions = n
	return &v, nil
}

// ListUsers lista los usuarios del cliente.
func (s *service) ListUsers(ctx context.Context, clientID string) ([]UserView, error) {
	list, err := s.deps.Users.List(ctx, clientID)
	if err != nil {
		return nil, err
	}
	out := make([]UserView, 0, len(list))
	for _, u := range list {
		out = append(out, viewOf(u))
	}
	return out, nil
}

// DeleteUser borra índices y registro, luego archiva sesiones y revoca los
// códigos pendientes. Una sesión que no se pudo archivar queda en
// Sessions.Failed; no corta la baja.
func (s *service) DeleteUser(ctx context.Context, clientID, userID string) (*DeleteResult, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("accounts.users"),
		logger.Op("DeleteUser"),
		logger.ClientID(clientID),
		logger.UserID(userID),
	)

	res := &DeleteResult{}
	steps, err := s.deps.Users.Delete(ctx, clientID, userID)
	res.Steps = steps
	if err != nil {
		if !store.IsNotFound(err) {
			log.Error("user delete failed", logger.Err(err), logger.Any("applied", steps.Applied()))
		}
		return res, err
	}

	archived, err := s.deps.Sessions.ArchiveAll(ctx, clientID, userID)
	res.Sessions = archived
	if err != nil {
		log.Error("session sweep failed", logger.Err(err))
		return res, err
	}

	for _, kind := range []codes.Kind{codes.KindEmailVerify, codes.KindForgotPassword} {
		if err := s.deps.Codes.Revoke(ctx, kind, clientID, userID); err != nil {
			log.Warn("code revoke failed", logger.CodeKind(kind.String()), logger.Err(err))
		}
	}

	log.Info("user deleted", logger.Int("sessions_archived", archived.Archived), logger.Int("sessions_failed", archived.Failed))
	return res, nil
}
