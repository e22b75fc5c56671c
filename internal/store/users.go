package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/dropDatabas3/oauthabl/internal/kv"
)

// User es la vista de dominio de user:<clientId>:<userId>.
type User struct {
	ID            string
	Username      string
	Emails        []string
	EmailVerified bool
	PasswordHash  string
}

// UserValue es el valor guardado en user:<clientId>:<userId>.
type UserValue struct {
	Password string `json:"password"`
}

// UserMetadata viaja junto al usuario y alcanza para listar sin leer valores.
type UserMetadata struct {
	Username       string   `json:"username,omitempty"`
	EmailAddresses []string `json:"emailAddresses,omitempty"`
	EmailVerified  bool     `json:"emailVerified"`
}

// EmailIndexMetadata replica el flag de verificación en email:<clientId>:<email>.
type EmailIndexMetadata struct {
	EmailVerified bool `json:"emailVerified"`
}

// NewUser son los datos de alta.
type NewUser struct {
	ID           string
	Username     string
	Emails       []string
	PasswordHash string
}

// Step es un sub-paso de una escritura multi-clave.
type Step struct {
	Key  string
	Done bool
	Err  error
}

// WriteResult reporta qué pasos se aplicaron. No hay rollback: un paso
// aplicado queda aplicado aunque uno posterior falle.
type WriteResult struct {
	Steps []Step
}

// Complete indica si todos los pasos se aplicaron.
func (w WriteResult) Complete() bool {
	for _, s := range w.Steps {
		if !s.Done {
			return false
		}
	}
	return true
}

// Applied retorna las claves escritas/borradas con éxito.
func (w WriteResult) Applied() []string {
	var out []string
	for _, s := range w.Steps {
		if s.Done {
			out = append(out, s.Key)
		}
	}
	return out
}

func (w *WriteResult) record(key string, err error) error {
	w.Steps = append(w.Steps, Step{Key: key, Done: err == nil, Err: err})
	return err
}

// UserRepository gestiona el registro de usuarios y sus índices secundarios
// (username:, email:).
//
// Orden de escritura: índices primero, registro primario al final. Un corte
// a mitad de camino deja a lo sumo un índice huérfano, que las lecturas
// ignoran y el alta siguiente recupera.
// Orden de borrado: índices primero, luego el registro.
type UserRepository struct {
	kv *kv.Gateway
}

// NewUserRepository crea el repositorio sobre el gateway.
func NewUserRepository(g *kv.Gateway) *UserRepository {
	return &UserRepository{kv: g}
}

// ==========================================
// Lecturas
// ==========================================

// Get retorna el usuario por id.
func (r *UserRepository) Get(ctx context.Context, clientID, userID string) (User, error) {
	if userID == "" {
		return User{}, ErrNotFound
	}
	val, meta, _, err := kv.GetJSONWithMetadata[UserValue, UserMetadata](ctx, r.kv, UserKey(clientID, userID))
	if errors.Is(err, kv.ErrNotFound) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return User{
		ID:            userID,
		Username:      meta.Username,
		Emails:        meta.EmailAddresses,
		EmailVerified: meta.EmailVerified,
		PasswordHash:  val.Password,
	}, nil
}

// ResolveUsername busca el usuario vía username:<clientId>:<username>.
func (r *UserRepository) ResolveUsername(ctx context.Context, clientID, username string) (User, error) {
	return r.resolve(ctx, clientID, UsernameKey(clientID, username))
}

// ResolveEmail busca el usuario vía email:<clientId>:<email>.
func (r *UserRepository) ResolveEmail(ctx context.Context, clientID, email string) (User, error) {
	return r.resolve(ctx, clientID, EmailKey(clientID, email))
}

// resolve sigue un índice. Un índice que apunta a un usuario inexistente
// se trata como ausente.
func (r *UserRepository) resolve(ctx context.Context, clientID, indexKey string) (User, error) {
	raw, err := r.kv.Get(ctx, indexKey)
	if errors.Is(err, kv.ErrNotFound) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return r.Get(ctx, clientID, string(raw))
}

// List retorna los usuarios del cliente (sin hash), ordenados por id.
func (r *UserRepository) List(ctx context.Context, clientID string) ([]User, error) {
	prefix := UserPrefix(clientID)
	out := []User{}
	for k, err := range r.kv.List(ctx, prefix) {
		if err != nil {
			return nil, err
		}
		meta, _, err := kv.DecodeMetadata[UserMetadata](k.Metadata)
		if err != nil {
			return nil, fmt.Errorf("store: decode user metadata %q: %w", k.Name, err)
		}
		out = append(out, User{
			ID:            TrimPrefix(k.Name, prefix),
			Username:      meta.Username,
			Emails:        meta.EmailAddresses,
			EmailVerified: meta.EmailVerified,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Available verifica que username y emails estén libres. Es el chequeo
// previo barato (antes de hashear); Create vuelve a verificar al escribir.
func (r *UserRepository) Available(ctx context.Context, clientID, username string, emails []string) error {
	for _, email := range emails {
		if err := r.free(ctx, clientID, EmailKey(clientID, email)); err != nil {
			return err
		}
	}
	if username != "" {
		return r.free(ctx, clientID, UsernameKey(clientID, username))
	}
	return nil
}

func (r *UserRepository) free(ctx context.Context, clientID, indexKey string) error {
	_, err := r.resolve(ctx, clientID, indexKey)
	switch {
	case err == nil:
		return ErrConflict
	case errors.Is(err, ErrNotFound):
		return nil
	default:
		return err
	}
}

// ==========================================
// Escrituras
// ==========================================

// Create registra un usuario: email(s) → username → user.
// Con un backend condicional los índices se escriben con IfAbsent y un
// duplicado concurrente termina en ErrConflict.
func (r *UserRepository) Create(ctx context.Context, clientID string, u NewUser) (WriteResult, error) {
	var res WriteResult
	if u.ID == "" || u.PasswordHash == "" {
		return res, fmt.Errorf("%w: user id and password hash are required", ErrInvalidInput)
	}
	if u.Username == "" && len(u.Emails) == 0 {
		return res, fmt.Errorf("%w: username or email is required", ErrInvalidInput)
	}

	idxMeta, err := json.Marshal(EmailIndexMetadata{EmailVerified: false})
	if err != nil {
		return res, err
	}
	for _, email := range u.Emails {
		key := EmailKey(clientID, email)
		if err := res.record(key, r.putIndex(ctx, clientID, key, u.ID, idxMeta)); err != nil {
			return res, err
		}
	}
	if u.Username != "" {
		key := UsernameKey(clientID, u.Username)
		if err := res.record(key, r.putIndex(ctx, clientID, key, u.ID, nil)); err != nil {
			return res, err
		}
	}

	meta := UserMetadata{
		Username:       u.Username,
		EmailAddresses: u.Emails,
		EmailVerified:  false,
	}
	key := UserKey(clientID, u.ID)
	err = kv.PutJSON(ctx, r.kv, key, UserValue{Password: u.PasswordHash}, meta, kv.PutOptions{IfAbsent: r.kv.Conditional()})
	if errors.Is(err, kv.ErrKeyExists) {
		err = ErrConflict
	}
	return res, res.record(key, err)
}

// putIndex escribe un índice. Si ya existe y apunta a un usuario vivo es
// ErrConflict; si es huérfano se pisa.
func (r *UserRepository) putIndex(ctx context.Context, clientID, key, userID string, meta json.RawMessage) error {
	opts := kv.PutOptions{Metadata: meta, IfAbsent: r.kv.Conditional()}
	if !opts.IfAbsent {
		if err := r.free(ctx, clientID, key); err != nil {
			return err
		}
	}
	err := r.kv.Put(ctx, key, []byte(userID), opts)
	if !errors.Is(err, kv.ErrKeyExists) {
		return err
	}
	if err := r.free(ctx, clientID, key); err != nil {
		return err
	}
	opts.IfAbsent = false
	return r.kv.Put(ctx, key, []byte(userID), opts)
}

// Delete borra el usuario: índices primero, luego user:. Un índice que ya
// apunta a otro usuario no se toca.
func (r *UserRepository) Delete(ctx context.Context, clientID, userID string) (WriteResult, error) {
	var res WriteResult
	u, err := r.Get(ctx, clientID, userID)
	if err != nil {
		return res, err
	}

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, email := range u.Emails {
		key := EmailKey(clientID, email)
		keep(res.record(key, r.deleteIndex(ctx, key, userID)))
	}
	if u.Username != "" {
		key := UsernameKey(clientID, u.Username)
		keep(res.record(key, r.deleteIndex(ctx, key, userID)))
	}
	if firstErr != nil {
		// El registro primario se conserva para poder reintentar el borrado.
		return res, firstErr
	}
	key := UserKey(clientID, userID)
	return res, res.record(key, r.kv.Delete(ctx, key))
}

func (r *UserRepository) deleteIndex(ctx context.Context, key, userID string) error {
	raw, err := r.kv.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if string(raw) != userID {
		return nil
	}
	return r.kv.Delete(ctx, key)
}

// SetEmailVerified actualiza el flag en el usuario y en cada índice de email.
func (r *UserRepository) SetEmailVerified(ctx context.Context, clientID, userID string, verified bool) (WriteResult, error) {
	var res WriteResult
	u, err := r.Get(ctx, clientID, userID)
	if err != nil {
		return res, err
	}

	idxMeta, err := json.Marshal(EmailIndexMetadata{EmailVerified: verified})
	if err != nil {
		return res, err
	}
	for _, email := range u.Emails {
		key := EmailKey(clientID, email)
		owner, err := r.kv.Get(ctx, key)
		if errors.Is(err, kv.ErrNotFound) || (err == nil && string(owner) != userID) {
			continue
		}
		if err == nil {
			err = r.kv.Put(ctx, key, []byte(userID), kv.PutOptions{Metadata: idxMeta})
		}
		if err := res.record(key, err); err != nil {
			return res, err
		}
	}

	u.EmailVerified = verified
	key := UserKey(clientID, userID)
	return res, res.record(key, r.putUser(ctx, clientID, u))
}

// UpdatePassword reemplaza el hash conservando la metadata.
func (r *UserRepository) UpdatePassword(ctx context.Context, clientID, userID, hash string) error {
	if hash == "" {
		return fmt.Errorf("%w: password hash is required", ErrInvalidInput)
	}
	u, err := r.Get(ctx, clientID, userID)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return r.putUser(ctx, clientID, u)
}

func (r *UserRepository) putUser(ctx context.Context, clientID string, u User) error {
	meta := UserMetadata{
		Username:       u.Username,
		EmailAddresses: u.Emails,
		EmailVerified:  u.EmailVerified,
	}
	return kv.PutJSON(ctx, r.kv, UserKey(clientID, u.ID), UserValue{Password: u.PasswordHash}, meta, kv.PutOptions{})
}
