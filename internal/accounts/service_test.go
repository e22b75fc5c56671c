package accounts_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/oauthabl/internal/accounts"
	"github.com/dropDatabas3/oauthabl/internal/codes"
	"github.com/dropDatabas3/oauthabl/internal/kv"
	"github.com/dropDatabas3/oauthabl/internal/security/password"
	"github.com/dropDatabas3/oauthabl/internal/sessions"
	"github.com/dropDatabas3/oauthabl/internal/store"
)

const clientID = "c1"

type sent struct{ kind, to, client, code string }

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sent
}

func (f *fakeNotifier) SendVerificationCode(_ context.Context, to, client, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{"verify", to, client, code})
	return nil
}

func (f *fakeNotifier) SendPasswordResetCode(_ context.Context, to, client, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{"reset", to, client, code})
	return nil
}

type fixture struct {
	svc      accounts.Service
	sessions *sessions.Manager
	users    *store.UserRepository
	notifier *fakeNotifier
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	g := kv.New(kv.NewMemory(0), kv.Options{})
	t.Cleanup(func() { _ = g.Close() })

	clients := store.NewClientRepository(g)
	require.NoError(t, clients.Create(context.Background(), store.Client{ID: clientID, Secret: "s", Name: "Acme"}))

	f := fixture{
		sessions: sessions.NewManager(g, sessions.Options{}),
		users:    store.NewUserRepository(g),
		notifier: &fakeNotifier{},
	}
	f.svc = accounts.NewService(accounts.Deps{
		Clients:   clients,
		Users:     f.users,
		Sessions:  f.sessions,
		Codes:     codes.NewIssuer(g, codes.Options{}),
		Hasher:    password.NewArgon2id(password.Params{Memory: 1024, Time: 1, Parallelism: 1, KeyLen: 16, SaltLen: 8}),
		Notifier:  f.notifier,
		EchoCodes: true,
	})
	return f
}

func TestRegister_WithoutVerificationForcesSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Register(ctx, clientID, accounts.RegisterInput{Username: "alice", Password: "x"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.User.ID)
	assert.Empty(t, res.Code)
	require.NotNil(t, res.Session)
	assert.True(t, res.Steps.Complete())

	list, err := f.sessions.List(ctx, clientID, res.User.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, res.Session.ID, list[0].ID)

	archived, err := f.svc.ArchiveAllSessions(ctx, clientID, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, sessions.ArchiveResult{Archived: 1, Failed: 0}, archived)
}

func TestRegister_VerifyEmailIssuesCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Register(ctx, clientID, accounts.RegisterInput{Email: " Alice@Example.com ", Password: "x", VerifyEmail: true})
	require.NoError(t, err)
	assert.Len(t, res.Code, codes.DefaultLength)
	assert.Nil(t, res.Session)
	assert.Equal(t, []string{"alice@example.com"}, res.User.Emails)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, sent{"verify", "alice@example.com", "Acme", res.Code}, f.notifier.sent[0])

	n, err := f.sessions.Count(ctx, clientID, res.User.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.ErrorIs(t, f.svc.VerifyEmail(ctx, clientID, res.User.ID, "not-it"), accounts.ErrInvalidCode)
	require.NoError(t, f.svc.VerifyEmail(ctx, clientID, res.User.ID, res.Code))

	u, err := f.svc.GetUser(ctx, clientID, accounts.PropertyEmail, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, u.EmailVerified)

	assert.ErrorIs(t, f.svc.VerifyEmail(ctx, clientID, res.User.ID, res.Code), codes.ErrNotFound)
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, clientID, accounts.RegisterInput{Password: "x"})
	assert.ErrorIs(t, err, accounts.ErrInvalidInput)
	_, err = f.svc.Register(ctx, clientID, accounts.RegisterInput{Username: "alice"})
	assert.ErrorIs(t, err, accounts.ErrInvalidInput)
}

func TestRegister_Duplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, clientID, accounts.RegisterInput{Username: "alice", Email: "a@example.com", Password: "x"})
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, clientID, accounts.RegisterInput{Username: "alice", Password: "y"})
	assert.ErrorIs(t, err, store.ErrConflict)
	_, err = f.svc.Register(ctx, clientID, accounts.RegisterInput{Email: "A@example.com", Password: "y"})
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reg, err := f.svc.Register(ctx, clientID, accounts.RegisterInput{Username: "alice", Email: "a@example.com", Password: "hunter2"})
	require.NoError(t, err)

	res, err := f.svc.Login(ctx, clientID, accounts.LoginInput{Email: "a@example.com", Password: "hunter2"})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, res.UserID)
	assert.NotEqual(t, reg.Session.ID, res.Session.ID)

	again, err := f.svc.Login(ctx, clientID, accounts.LoginInput{Username: "alice", Password: "hunter2", SessionID: res.Session.ID})
	require.NoError(t, err)
	assert.Equal(t, res.Session.ID, again.Session.ID)
	assert.Equal(t, 1, again.Session.Rotations)

	_, err = f.svc.Login(ctx, clientID, accounts.LoginInput{Username: "alice", Password: "wrong"})
	assert.ErrorIs(t, err, accounts.ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, clientID, accounts.LoginInput{Username: "bob", Password: "hunter2"})
	assert.ErrorIs(t, err, accounts.ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "c2", accounts.LoginInput{Username: "alice", Password: "hunter2"})
	assert.ErrorIs(t, err, accounts.ErrInvalidCredentials)
}

func TestForgotAndResetPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reg, err := f.svc.Register(ctx, clientID, accounts.RegisterInput{Username: "alice", Email: "a@example.com", Password: "old"})
	require.NoError(t, err)
	_, err = f.svc.Login(ctx, clientID, accounts.LoginInput{Username: "alice", Password: "old"})
	require.NoError(t, err)

	forgot, err := f.svc.ForgotPassword(ctx, clientID, accounts.ForgotInput{Username: "alice"})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, forgot.UserID)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "reset", f.notifier.sent[0].kind)
	assert.Equal(t, "a@example.com", f.notifier.sent[0].to)

	_, err = f.svc.ResetPassword(ctx, clientID, accounts.ResetInput{UserID: reg.User.ID, Code: "bad", Password: "new"})
	require.ErrorIs(t, err, accounts.ErrInvalidCode)

	res, err := f.svc.ResetPassword(ctx, clientID, accounts.ResetInput{UserID: reg.User.ID, Code: forgot.Code, Password: "new"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Archived.Archived)
	assert.True(t, res.Archived.Complete())

	list, err := f.sessions.List(ctx, clientID, reg.User.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, res.Session.ID, list[0].ID)

	_, err = f.svc.Login(ctx, clientID, accounts.LoginInput{Username: "alice", Password: "old"})
	assert.ErrorIs(t, err, accounts.ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, clientID, accounts.LoginInput{Username: "alice", Password: "new"})
	assert.NoError(t, err)

	_, err = f.svc.ForgotPassword(ctx, clientID, accounts.ForgotInput{Email: "nobody@example.com"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestResendVerification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reg, err := f.svc.Register(ctx, clientID, accounts.RegisterInput{Email: "a@example.com", Password: "x", VerifyEmail: true})
	require.NoError(t, err)

	res, err := f.svc.ResendVerification(ctx, clientID, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, res.UserID)

	assert.ErrorIs(t, f.svc.VerifyEmail(ctx, clientID, reg.User.ID, reg.Code), accounts.ErrInvalidCode)
	assert.NoError(t, f.svc.VerifyEmail(ctx, clientID, reg.User.ID, res.Code))
}

func TestGetUserAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reg, err := f.svc.Register(ctx, clientID, accounts.RegisterInput{Username: "alice", Email: "a@example.com", Password: "x"})
	require.NoError(t, err)
	_, err = f.svc.CreateSession(ctx, clientID, reg.User.ID, accounts.SessionInput{ForceNew: true})
	require.NoError(t, err)

	for _, q := range []struct {
		prop accounts.Property
		id   string
	}{
		{accounts.PropertyID, reg.User.ID},
		{accounts.PropertyUsername, "alice"},
		{accounts.PropertyEmail, "a@example.com"},
	} {
		u, err := f.svc.GetUser(ctx, clientID, q.prop, q.id)
		require.NoError(t, err, q.prop)
		assert.Equal(t, reg.User.ID, u.ID)
		assert.Equal(t, 2, u.Sessions)
	}
	_, err = f.svc.GetUser(ctx, clientID, accounts.Property("phone"), "x")
	assert.ErrorIs(t, err, accounts.ErrInvalidInput)

	list, err := f.svc.ListUsers(ctx, clientID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	del, err := f.svc.DeleteUser(ctx, clientID, reg.User.ID)
	require.NoError(t, err)
	assert.True(t, del.Steps.Complete())
	assert.Equal(t, 2, del.Sessions.Archived)

	_, err = f.svc.GetUser(ctx, clientID, accounts.PropertyUsername, "alice")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = f.svc.DeleteUser(ctx, clientID, reg.User.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = f.svc.CreateSession(ctx, clientID, reg.User.ID, accounts.SessionInput{ForceNew: true})
	assert.ErrorIs(t, err, store.ErrNotFound)

	// El username queda libre.
	_, err = f.svc.Register(ctx, clientID, accounts.RegisterInput{Username: "alice", Password: "x"})
	assert.NoError(t, err)
}
