// Package dto define los cuerpos JSON de request y response de la API.
package dto

import (
	"github.com/dropDatabas3/oauthabl/internal/accounts"
	"github.com/dropDatabas3/oauthabl/internal/sessions"
)

// =================================================================================
// USERS
// =================================================================================

// RegisterRequest es el body de POST /oauth/{clientId}/users.
type RegisterRequest struct {
	Username    string `json:"username,omitempty"`
	Email       string `json:"email,omitempty"`
	Password    string `json:"password"`
	VerifyEmail bool   `json:"verifyEmail,omitempty"`
}

// UserResponse es la vista pública de un usuario. Nunca lleva el hash.
type UserResponse struct {
	ID            string   `json:"id"`
	Username      string   `json:"username,omitempty"`
	Emails        []string `json:"emailAddresses,omitempty"`
	EmailVerified bool     `json:"emailVerified"`
	Sessions      *int     `json:"sessions,omitempty"`
}

// RegisterResponse agrega el código o la sesión emitidos en el alta.
type RegisterResponse struct {
	UserResponse
	Code    string           `json:"code,omitempty"`
	Session *SessionResponse `json:"session,omitempty"`
}

// DeleteUserResponse reporta las sesiones barridas en la baja.
type DeleteUserResponse struct {
	ID       string          `json:"id"`
	Sessions ArchiveResponse `json:"sessions"`
}

// =================================================================================
// FLOWS
// =================================================================================

// LoginRequest identifica al usuario por username o email.
type LoginRequest struct {
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
	Password  string `json:"password"`
	SessionID string `json:"sessionId,omitempty"`
}

// LoginResponse es el resultado de un login.
type LoginResponse struct {
	UserID  string          `json:"userId"`
	Session SessionResponse `json:"session"`
}

// VerifyEmailRequest es el body de POST /oauth/{clientId}/verify-email.
type VerifyEmailRequest struct {
	UserID string `json:"userId"`
	Code   string `json:"code"`
}

// ResendRequest es el body de POST /oauth/{clientId}/resend-email-verification.
type ResendRequest struct {
	Email string `json:"email"`
}

// ForgotRequest es el body de POST /oauth/{clientId}/forgot-password.
type ForgotRequest struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// CodeResponse devuelve el código emitido (solo si el echo está activo).
type CodeResponse struct {
	UserID string `json:"userId"`
	Code   string `json:"code,omitempty"`
}

// ResetRequest es el body de POST /oauth/{clientId}/reset-password.
type ResetRequest struct {
	UserID   string `json:"userId"`
	Code     string `json:"code"`
	Password string `json:"password"`
}

// ResetResponse reporta el barrido de sesiones y la sesión nueva.
type ResetResponse struct {
	UserID   string          `json:"userId"`
	Archived ArchiveResponse `json:"archived"`
	Session  SessionResponse `json:"session"`
}

// =================================================================================
// SESSIONS
// =================================================================================

// SessionRequest es el body de POST .../sessions/{userId}.
type SessionRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	ForceNew  bool   `json:"forceNew,omitempty"`
}

// SessionResponse expone una sesión. Tiempos en unix ms.
type SessionResponse struct {
	ID         string `json:"id"`
	CreatedAt  int64  `json:"createdAt"`
	LastUsedAt int64  `json:"lastUsedAt"`
	Rotations  int    `json:"rotations,omitempty"`
}

// ArchiveResponse es el resultado de archivar todas las sesiones.
type ArchiveResponse struct {
	Archived int `json:"archived"`
	Failed   int `json:"failed"`
}

// =================================================================================
// MAPPERS
// =================================================================================

func FromUser(u accounts.UserView) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Username:      u.Username,
		Emails:        u.Emails,
		EmailVerified: u.EmailVerified,
	}
}

func FromSession(s sessions.Session) SessionResponse {
	return SessionResponse{
		ID:         s.ID,
		CreatedAt:  s.CreatedAt.UnixMilli(),
		LastUsedAt: s.LastUsedAt.UnixMilli(),
		Rotations:  s.Rotations,
	}
}

func FromSessions(list []sessions.Session) []SessionResponse {
	out := make([]SessionResponse, 0, len(list))
	for _, s := range list {
		out = append(out, FromSession(s))
	}
	return out
}

func FromArchive(r sessions.ArchiveResult) ArchiveResponse {
	return ArchiveResponse{Archived: r.Archived, Failed: r.Failed}
}
