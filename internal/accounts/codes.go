package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/oauthabl/internal/codes"
	"github.com/dropDatabas3/oauthabl/internal/observability/logger"
	"github.com/dropDatabas3/oauthabl/internal/sessions"
)

// VerifyEmail consume el código emailverify y marca el email como verificado.
func (s *service) VerifyEmail(ctx context.Context, clientID, userID, code string) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("accounts.email"),
		logger.Op("VerifyEmail"),
		logger.ClientID(clientID),
		logger.UserID(userID),
	)
	if userID == "" || code == "" {
		return fmt.Errorf("%w: userId and code are required", ErrInvalidInput)
	}
	if _, err := s.deps.Users.Get(ctx, clientID, userID); err != nil {
		return err
	}
	if err := s.verify(ctx, codes.KindEmailVerify, clientID, userID, code); err != nil {
		return err
	}
	steps, err := s.deps.Users.SetEmailVerified(ctx, clientID, userID, true)
	if err != nil {
		log.Error("email verified flag update failed", logger.Err(err), logger.Any("applied", steps.Applied()))
		return err
	}
	log.Info("email verified")
	return nil
}

// ResendVerification emite un código emailverify nuevo para el dueño de email.
func (s *service) ResendVerification(ctx context.Context, clientID, email string) (*CodeResult, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	u, err := s.deps.Users.ResolveEmail(ctx, clientID, email)
	if err != nil {
		return nil, err
	}
	code, err := s.deps.Codes.Issue(ctx, codes.KindEmailVerify, clientID, u.ID)
	if err != nil {
		return nil, err
	}
	s.notifyVerification(ctx, clientID, email, code)
	return &CodeResult{UserID: u.ID, Code: s.echo(code)}, nil
}

// ForgotPassword emite un código forgotpassword y lo envía al primer email
// del usuario, si tiene.
func (s *service) ForgotPassword(ctx context.Context, clientID string, in ForgotInput) (*CodeResult, error) {
	u, err := s.lookup(ctx, clientID, in.Username, in.Email)
	if err != nil {
		return nil, err
	}
	code, err := s.deps.Codes.Issue(ctx, codes.KindForgotPassword, clientID, u.ID)
	if err != nil {
		return nil, err
	}
	to := NormalizeEmail(in.Email)
	if to == "" && len(u.Emails) > 0 {
		to = u.Emails[0]
	}
	s.notifyReset(ctx, clientID, to, code)
	logger.From(ctx).Info("password reset requested",
		logger.Component("accounts.password"),
		logger.ClientID(clientID),
		logger.UserID(u.ID),
	)
	return &CodeResult{UserID: u.ID, Code: s.echo(code)}, nil
}

// ResetPassword consume el código forgotpassword, cambia la contraseña,
// archiva todas las sesiones y fuerza una nueva.
func (s *service) ResetPassword(ctx context.Context, clientID string, in ResetInput) (*ResetResult, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("accounts.password"),
		logger.Op("ResetPassword"),
		logger.ClientID(clientID),
		logger.UserID(in.UserID),
	)
	if in.UserID == "" || in.Code == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: userId, code and password are required", ErrInvalidInput)
	}
	if _, err := s.deps.Users.Get(ctx, clientID, in.UserID); err != nil {
		return nil, err
	}
	if err := s.verify(ctx, codes.KindForgotPassword, clientID, in.UserID, in.Code); err != nil {
		return nil, err
	}

	hash, err := s.deps.Hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("accounts: hash password: %w", err)
	}
	if err := s.deps.Users.UpdatePassword(ctx, clientID, in.UserID, hash); err != nil {
		log.Error("password update failed", logger.Err(err))
		return nil, err
	}

	res := &ResetResult{}
	res.Archived, err = s.deps.Sessions.ArchiveAll(ctx, clientID, in.UserID)
	if err != nil {
		return nil, err
	}
	res.Session, err = s.deps.Sessions.CreateOrUpdate(ctx, sessions.Request{ClientID: clientID, UserID: in.UserID, ForceNew: true})
	if err != nil {
		return nil, err
	}
	log.Info("password reset", logger.Int("sessions_archived", res.Archived.Archived), logger.Int("sessions_failed", res.Archived.Failed))
	return res, nil
}

func (s *service) verify(ctx context.Context, kind codes.Kind, clientID, userID, code string) error {
	err := s.deps.Codes.Verify(ctx, kind, clientID, userID, code)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, codes.ErrMismatch):
		return ErrInvalidCode
	default:
		return err
	}
}
