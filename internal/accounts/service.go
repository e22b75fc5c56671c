// Package accounts orquesta los flujos de usuario de un cliente: alta,
// login, verificación de email, reset de contraseña, baja y sesiones.
//
// Cada flujo compone los componentes del core (store, codes, sessions) y no
// agrega estado propio.
package accounts

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/dropDatabas3/oauthabl/internal/codes"
	"github.com/dropDatabas3/oauthabl/internal/security/password"
	"github.com/dropDatabas3/oauthabl/internal/sessions"
	"github.com/dropDatabas3/oauthabl/internal/store"
)

var (
	// ErrInvalidInput: faltan campos o tienen un valor inválido.
	ErrInvalidInput = errors.New("accounts: invalid input")

	// ErrInvalidCredentials: usuario inexistente o contraseña incorrecta.
	ErrInvalidCredentials = errors.New("accounts: invalid credentials")

	// ErrInvalidCode: el código presentado no coincide con el vigente.
	ErrInvalidCode = errors.New("accounts: invalid code")
)

// Notifier entrega los códigos por email.
type Notifier interface {
	SendVerificationCode(ctx context.Context, to, client, code string) error
	SendPasswordResetCode(ctx context.Context, to, client, code string) error
}

// Service define los flujos de cuenta.
type Service interface {
	Register(ctx context.Context, clientID string, in RegisterInput) (*RegisterResult, error)
	Login(ctx context.Context, clientID string, in LoginInput) (*LoginResult, error)

	GetUser(ctx context.Context, clientID string, property Property, identifier string) (*UserView, error)
	ListUsers(ctx context.Context, clientID string) ([]UserView, error)
	DeleteUser(ctx context.Context, clientID, userID string) (*DeleteResult, error)

	VerifyEmail(ctx context.Context, clientID, userID, code string) error
	ResendVerification(ctx context.Context, clientID, email string) (*CodeResult, error)
	ForgotPassword(ctx context.Context, clientID string, in ForgotInput) (*CodeResult, error)
	ResetPassword(ctx context.Context, clientID string, in ResetInput) (*ResetResult, error)

	CreateSession(ctx context.Context, clientID, userID string, req SessionInput) (sessions.Session, error)
	ListSessions(ctx context.Context, clientID, userID string) ([]sessions.Session, error)
	ArchiveSession(ctx context.Context, clientID, userID, sessionID string) error
	ArchiveAllSessions(ctx context.Context, clientID, userID string) (sessions.ArchiveResult, error)
}

// Deps contiene las dependencias del servicio.
type Deps struct {
	Clients  *store.ClientRepository
	Users    *store.UserRepository
	Sessions *sessions.Manager
	Codes    *codes.Issuer
	Hasher   password.Hasher

	// Notifier es opcional; sin él los códigos solo viajan en la respuesta.
	Notifier Notifier

	// EchoCodes devuelve el código emitido en la respuesta HTTP.
	EchoCodes bool
}

type service struct {
	deps Deps

	dummyOnce sync.Once
	dummyHash string
}

// NewService crea el servicio de cuentas.
func NewService(deps Deps) Service {
	if deps.Hasher == nil {
		deps.Hasher = password.NewArgon2id(password.Default)
	}
	return &service{deps: deps}
}

// dummy retorna un hash fijo para verificar contra él cuando el usuario no
// existe, así el login tarda lo mismo en ambos casos.
func (s *service) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.deps.Hasher.Hash("oauthabl-dummy-password")
	})
	return s.dummyHash
}

// clientName retorna el nombre del cliente para los emails (o el id).
func (s *service) clientName(ctx context.Context, clientID string) string {
	if s.deps.Clients == nil {
		return clientID
	}
	creds, err := s.deps.Clients.Credentials(ctx, clientID)
	if err != nil || creds.Name == "" {
		return clientID
	}
	return creds.Name
}

func (s *service) echo(code string) string {
	if s.deps.EchoCodes {
		return code
	}
	return ""
}

// NormalizeEmail recorta y pasa a minúsculas.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeUsername recorta espacios.
func NormalizeUsername(username string) string {
	return strings.TrimSpace(username)
}
