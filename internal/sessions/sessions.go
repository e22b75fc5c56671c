// Package sessions emite, rota y archiva sesiones por (clientId, userId).
//
// Una sesión es session:<clientId>:<userId>:<sessionId>. El id es la
// capacidad: se genera con crypto/rand y no hay otro secreto asociado.
// Archivar una sesión es borrarla.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/oauthabl/internal/kv"
	"github.com/dropDatabas3/oauthabl/internal/observability/logger"
	tokens "github.com/dropDatabas3/oauthabl/internal/security/token"
	"github.com/dropDatabas3/oauthabl/internal/store"
)

// ErrNotFound: la sesión no existe para (clientId, userId).
var ErrNotFound = errors.New("sessions: session not found")

const (
	// DefaultConcurrency es el paralelismo de ArchiveAll.
	DefaultConcurrency = 8

	idBytes = 32
)

// Session es una sesión viva.
type Session struct {
	ID         string
	ClientID   string
	UserID     string
	CreatedAt  time.Time
	LastUsedAt time.Time
	// Rotations cuenta los usos registrados. List no lo completa (solo lee metadata).
	Rotations int
}

// value es el valor guardado. Tiempos en unix ms.
type value struct {
	IssuedAt  int64 `json:"issuedAt"`
	Rotations int   `json:"rotations"`
}

// metadata viaja con la clave y alcanza para listar.
type metadata struct {
	CreatedAt  int64 `json:"createdAt"`
	LastUsedAt int64 `json:"lastUsedAt"`
}

// Request es la entrada de CreateOrUpdate.
type Request struct {
	ClientID string
	UserID   string
	// SessionID, si viene, identifica la sesión a reutilizar.
	SessionID string
	// ForceNew ignora SessionID y siempre crea una sesión nueva.
	ForceNew bool
}

// ArchiveResult resume un ArchiveAll.
type ArchiveResult struct {
	Archived  int      `json:"archived"`
	Failed    int      `json:"failed"`
	FailedIDs []string `json:"-"`
}

// Complete indica si se archivaron todas las sesiones.
func (r ArchiveResult) Complete() bool { return r.Failed == 0 }

// Options configura el Manager.
type Options struct {
	// Concurrency limita los deletes simultáneos de ArchiveAll.
	Concurrency int
	// Now es el reloj (tests).
	Now func() time.Time
}

// Manager gestiona las sesiones de todos los clientes.
type Manager struct {
	kv          *kv.Gateway
	concurrency int
	now         func() time.Time
}

// NewManager crea un Manager.
func NewManager(g *kv.Gateway, opts Options) *Manager {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{kv: g, concurrency: opts.Concurrency, now: opts.Now}
}

// CreateOrUpdate crea o reutiliza una sesión:
//   - ForceNew: siempre una sesión nueva.
//   - SessionID: la sesión debe existir; se actualiza lastUsedAt.
//   - ninguno: se reutiliza la sesión usada más recientemente, o se crea una.
func (m *Manager) CreateOrUpdate(ctx context.Context, req Request) (Session, error) {
	if req.ForceNew {
		return m.create(ctx, req.ClientID, req.UserID)
	}
	if req.SessionID != "" {
		return m.touch(ctx, req.ClientID, req.UserID, req.SessionID)
	}

	list, err := m.List(ctx, req.ClientID, req.UserID)
	if err != nil {
		return Session{}, err
	}
	if len(list) == 0 {
		return m.create(ctx, req.ClientID, req.UserID)
	}
	latest := list[0]
	for _, s := range list[1:] {
		if s.LastUsedAt.After(latest.LastUsedAt) ||
			(s.LastUsedAt.Equal(latest.LastUsedAt) && s.ID > latest.ID) {
			latest = s
		}
	}
	s, err := m.touch(ctx, req.ClientID, req.UserID, latest.ID)
	if errors.Is(err, ErrNotFound) {
		// Archivada entre el listado y la lectura.
		return m.create(ctx, req.ClientID, req.UserID)
	}
	return s, err
}

func (m *Manager) create(ctx context.Context, clientID, userID string) (Session, error) {
	id, err := tokens.GenerateOpaqueToken(idBytes)
	if err != nil {
		return Session{}, fmt.Errorf("sessions: generate id: %w", err)
	}
	now := m.now()
	ms := now.UnixMilli()
	key := store.SessionKey(clientID, userID, id)
	if err := kv.PutJSON(ctx, m.kv, key, value{IssuedAt: ms}, metadata{CreatedAt: ms, LastUsedAt: ms}, kv.PutOptions{}); err != nil {
		return Session{}, err
	}
	logger.From(ctx).Debug("session created",
		logger.Component("sessions"),
		logger.ClientID(clientID),
		logger.UserID(userID),
	)
	t := time.UnixMilli(ms)
	return Session{ID: id, ClientID: clientID, UserID: userID, CreatedAt: t, LastUsedAt: t}, nil
}

func (m *Manager) touch(ctx context.Context, clientID, userID, sessionID string) (Session, error) {
	key := store.SessionKey(clientID, userID, sessionID)
	val, meta, err := m.read(ctx, key)
	if err != nil {
		return Session{}, err
	}
	val.Rotations++
	meta.LastUsedAt = m.now().UnixMilli()

	// Un Archive concurrente pudo borrarla después de la lectura: no revivirla.
	if _, err := m.kv.Get(ctx, key); errors.Is(err, kv.ErrNotFound) {
		return Session{}, ErrNotFound
	} else if err != nil {
		return Session{}, err
	}
	if err := kv.PutJSON(ctx, m.kv, key, val, meta, kv.PutOptions{}); err != nil {
		return Session{}, err
	}
	return toSession(clientID, userID, sessionID, val, meta), nil
}

func (m *Manager) read(ctx context.Context, key string) (value, metadata, error) {
	val, meta, _, err := kv.GetJSONWithMetadata[value, metadata](ctx, m.kv, key)
	if errors.Is(err, kv.ErrNotFound) {
		return value{}, metadata{}, ErrNotFound
	}
	return val, meta, err
}

// Get retorna una sesión.
func (m *Manager) Get(ctx context.Context, clientID, userID, sessionID string) (Session, error) {
	if sessionID == "" {
		return Session{}, ErrNotFound
	}
	val, meta, err := m.read(ctx, store.SessionKey(clientID, userID, sessionID))
	if err != nil {
		return Session{}, err
	}
	return toSession(clientID, userID, sessionID, val, meta), nil
}

// List retorna las sesiones vivas ordenadas por CreatedAt (empate: id).
func (m *Manager) List(ctx context.Context, clientID, userID string) ([]Session, error) {
	prefix := store.SessionPrefix(clientID, userID)
	out := []Session{}
	for k, err := range m.kv.List(ctx, prefix) {
		if err != nil {
			return nil, err
		}
		meta, _, err := kv.DecodeMetadata[metadata](k.Metadata)
		if err != nil {
			return nil, fmt.Errorf("sessions: decode metadata %q: %w", k.Name, err)
		}
		out = append(out, Session{
			ID:         store.TrimPrefix(k.Name, prefix),
			ClientID:   clientID,
			UserID:     userID,
			CreatedAt:  time.UnixMilli(meta.CreatedAt),
			LastUsedAt: time.UnixMilli(meta.LastUsedAt),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Count retorna cuántas sesiones vivas tiene el usuario.
func (m *Manager) Count(ctx context.Context, clientID, userID string) (int, error) {
	n := 0
	for _, err := range m.kv.List(ctx, store.SessionPrefix(clientID, userID)) {
		if err != nil {
			return 0, err
		}
		n++
	}
	return n, nil
}

// Archive borra una sesión existente. ErrNotFound si no existía.
func (m *Manager) Archive(ctx context.Context, clientID, userID, sessionID string) error {
	if sessionID == "" {
		return ErrNotFound
	}
	key := store.SessionKey(clientID, userID, sessionID)
	if _, err := m.kv.Get(ctx, key); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return m.kv.Delete(ctx, key)
}

// ArchiveAll lista y borra todas las sesiones del usuario en paralelo
// (acotado por Concurrency). Un delete fallido no corta el resto: se cuenta
// en Failed. Solo un fallo del listado se retorna como error.
func (m *Manager) ArchiveAll(ctx context.Context, clientID, userID string) (ArchiveResult, error) {
	list, err := m.List(ctx, clientID, userID)
	if err != nil {
		return ArchiveResult{}, err
	}

	var (
		mu  sync.Mutex
		res ArchiveResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for _, s := range list {
		g.Go(func() error {
			err := m.kv.Delete(gctx, store.SessionKey(clientID, userID, s.ID))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed++
				res.FailedIDs = append(res.FailedIDs, s.ID)
				return nil
			}
			res.Archived++
			return nil
		})
	}
	_ = g.Wait()
	sort.Strings(res.FailedIDs)

	log := logger.From(ctx).With(logger.Component("sessions"), logger.ClientID(clientID), logger.UserID(userID))
	if !res.Complete() {
		log.Warn("archive all incomplete", logger.Int("archived", res.Archived), logger.Int("failed", res.Failed))
	} else {
		log.Debug("archive all", logger.Count(res.Archived))
	}
	return res, nil
}

func toSession(clientID, userID, id string, v value, m metadata) Session {
	return Session{
		ID:         id,
		ClientID:   clientID,
		UserID:     userID,
		CreatedAt:  time.UnixMilli(m.CreatedAt),
		LastUsedAt: time.UnixMilli(m.LastUsedAt),
		Rotations:  v.Rotations,
	}
}
