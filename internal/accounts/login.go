package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/oauthabl/internal/observability/logger"
	"github.com/dropDatabas3/oauthabl/internal/sessions"
	"github.com/dropDatabas3/oauthabl/internal/store"
)

// Login valida usuario y contraseña y retorna una sesión.
// Con SessionID se rota esa sesión; sin él se crea una nueva.
func (s *service) Login(ctx context.Context, clientID string, in LoginInput) (*LoginResult, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("accounts.login"),
		logger.Op("Login"),
		logger.ClientID(clientID),
	)

	if in.Password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	u, err := s.lookup(ctx, clientID, in.Username, in.Email)
	if errors.Is(err, store.ErrNotFound) {
		s.deps.Hasher.Verify(in.Password, s.dummy())
		log.Debug("login failed: user not found")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !s.deps.Hasher.Verify(in.Password, u.PasswordHash) {
		log.Debug("login failed: bad password", logger.UserID(u.ID))
		return nil, ErrInvalidCredentials
	}

	sess, err := s.deps.Sessions.CreateOrUpdate(ctx, sessions.Request{
		ClientID:  clientID,
		UserID:    u.ID,
		SessionID: in.SessionID,
		ForceNew:  in.SessionID == "",
	})
	if err != nil {
		return nil, err
	}
	log.Info("login ok", logger.UserID(u.ID))
	return &LoginResult{UserID: u.ID, Session: sess}, nil
}

// lookup resuelve por username o, si no viene, por email.
func (s *service) lookup(ctx context.Context, clientID, username, email string) (store.User, error) {
	if u := NormalizeUsername(username); u != "" {
		return s.deps.Users.ResolveUsername(ctx, clientID, u)
	}
	if e := NormalizeEmail(email); e != "" {
		return s.deps.Users.ResolveEmail(ctx, clientID, e)
	}
	return store.User{}, fmt.Errorf("%w: username or email is required", ErrInvalidInput)
}
