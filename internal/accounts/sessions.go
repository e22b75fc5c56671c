package accounts

import (
	"context"

	"github.com/dropDatabas3/oauthabl/internal/sessions"
)

// CreateSession crea o reutiliza una sesión de un usuario existente.
func (s *service) CreateSession(ctx context.Context, clientID, userID string, in SessionInput) (sessions.Session, error) {
	if _, err := s.deps.Users.Get(ctx, clientID, userID); err != nil {
		return sessions.Session{}, err
	}
	return s.deps.Sessions.CreateOrUpdate(ctx, sessions.Request{
		ClientID:  clientID,
		UserID:    userID,
		SessionID: in.SessionID,
		ForceNew:  in.ForceNew,
	})
}

func (s *service) ListSessions(ctx context.Context, clientID, userID string) ([]sessions.Session, error) {
	return s.deps.Sessions.List(ctx, clientID, userID)
}

func (s *service) ArchiveSession(ctx context.Context, clientID, userID, sessionID string) error {
	return s.deps.Sessions.Archive(ctx, clientID, userID, sessionID)
}

func (s *service) ArchiveAllSessions(ctx context.Context, clientID, userID string) (sessions.ArchiveResult, error) {
	return s.deps.Sessions.ArchiveAll(ctx, clientID, userID)
}
