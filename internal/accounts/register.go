package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/oauthabl/internal/codes"
	"github.com/dropDatabas3/oauthabl/internal/observability/logger"
	tokens "github.com/dropDatabas3/oauthabl/internal/security/token"
	"github.com/dropDatabas3/oauthabl/internal/sessions"
	"github.com/dropDatabas3/oauthabl/internal/store"
)

// Register da de alta un usuario.
//
// Con VerifyEmail (y email) se emite un código emailverify; si no se pidió
// verificación se fuerza una sesión nueva.
func (s *service) Register(ctx context.Context, clientID string, in RegisterInput) (*RegisterResult, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("accounts.register"),
		logger.Op("Register"),
		logger.ClientID(clientID),
	)

	username := NormalizeUsername(in.Username)
	email := NormalizeEmail(in.Email)
	if username == "" && email == "" {
		return nil, fmt.Errorf("%w: username or email is required", ErrInvalidInput)
	}
	if in.Password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	var emails []string
	if email != "" {
		emails = []string{email}
	}

	// Chequeo barato antes de hashear; Create vuelve a validar al escribir.
	if err := s.deps.Users.Available(ctx, clientID, username, emails); err != nil {
		return nil, err
	}

	hash, err := s.deps.Hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("accounts: hash password: %w", err)
	}

	id := tokens.NewID()
	log = log.With(logger.UserID(id))
	steps, err := s.deps.Users.Create(ctx, clientID, store.NewUser{
		ID:           id,
		Username:     username,
		Emails:       emails,
		PasswordHash: hash,
	})
	if err != nil {
		if !errors.Is(err, store.ErrConflict) {
			log.Error("user create failed", logger.Err(err), logger.Any("applied", steps.Applied()))
		}
		return nil, err
	}

	res := &RegisterResult{
		User:  UserView{ID: id, Username: username, Emails: emails},
		Steps: steps,
	}

	if in.VerifyEmail {
		if email != "" {
			code, err := s.deps.Codes.Issue(ctx, codes.KindEmailVerify, clientID, id)
			if err != nil {
				log.Error("verification code issue failed", logger.Err(err))
				return nil, err
			}
			s.notifyVerification(ctx, clientID, email, code)
			res.Code = s.echo(code)
		}
		log.Info("user registered", logger.Bool("verify_email", true))
		return res, nil
	}

	sess, err := s.deps.Sessions.CreateOrUpdate(ctx, sessions.Request{ClientID: clientID, UserID: id, ForceNew: true})
	if err != nil {
		log.Error("session create failed", logger.Err(err))
		return nil, err
	}
	res.Session = &sess
	log.Info("user registered", logger.Bool("verify_email", false))
	return res, nil
}

// notifyVerification es soft-fail: un email que no sale no invalida el código.
func (s *service) notifyVerification(ctx context.Context, clientID, to, code string) {
	if s.deps.Notifier == nil {
		return
	}
	if err := s.deps.Notifier.SendVerificationCode(ctx, to, s.clientName(ctx, clientID), code); err != nil {
		logger.From(ctx).Warn("verification email failed", logger.ClientID(clientID), logger.Err(err))
	}
}

func (s *service) notifyReset(ctx context.Context, clientID, to, code string) {
	if s.deps.Notifier == nil || to == "" {
		return
	}
	if err := s.deps.Notifier.SendPasswordResetCode(ctx, to, s.clientName(ctx, clientID), code); err != nil {
		logger.From(ctx).Warn("reset email failed", logger.ClientID(clientID), logger.Err(err))
	}
}
