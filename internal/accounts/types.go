package accounts

import (
	"github.com/dropDatabas3/oauthabl/internal/sessions"
	"github.com/dropDatabas3/oauthabl/internal/store"
)

// Property es el identificador por el que se busca un usuario.
type Property string

const (
	PropertyID       Property = "id"
	PropertyUsername Property = "username"
	PropertyEmail    Property = "email"
)

// RegisterInput son los datos de alta. Se requiere username o email.
type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	VerifyEmail bool
}

// RegisterResult es el resultado del alta.
type RegisterResult struct {
	User UserView
	// Code es el código de verificación (vacío si no se pidió o no se expone).
	Code string
	// Session es la sesión forzada cuando no se pidió verificación de email.
	Session *sessions.Session
	Steps   store.WriteResult
}

// LoginInput identifica al usuario por username o email.
type LoginInput struct {
	Username  string
	Email     string
	Password  string
	SessionID string
}

// LoginResult es el resultado de un login exitoso.
type LoginResult struct {
	UserID  string
	Session sessions.Session
}

// UserView es la vista pública de un usuario.
type UserView struct {
	ID            string
	Username      string
	Emails        []string
	EmailVerified bool
	// Sessions es la cantidad de sesiones vivas (solo en GetUser).
	Sessions int
}

// DeleteResult reporta la baja de un usuario.
type DeleteResult struct {
	Steps    store.WriteResult
	Sessions sessions.ArchiveResult
}

// CodeResult es el resultado de emitir un código.
type CodeResult struct {
	UserID string
	Code   string
}

// ForgotInput identifica al usuario por username o email.
type ForgotInput struct {
	Username string
	Email    string
}

// ResetInput completa el reset de contraseña.
type ResetInput struct {
	UserID   string
	Code     string
	Password string
}

// ResetResult reporta las sesiones archivadas y la sesión nueva.
type ResetResult struct {
	Archived sessions.ArchiveResult
	Session  sessions.Session
}

// SessionInput es la entrada de CreateSession.
type SessionInput struct {
	SessionID string
	ForceNew  bool
}

func viewOf(u store.User) UserView {
	return UserView{
		ID:            u.ID,
		Username:      u.Username,
		Emails:        u.Emails,
		EmailVerified: u.EmailVerified,
	}
}
