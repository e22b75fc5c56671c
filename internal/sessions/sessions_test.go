package sessions_test

import (
	"context"
	"encoding/base64"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/oauthabl/internal/kv"
	"github.com/dropDatabas3/oauthabl/internal/kv/kvtest"
	"github.com/dropDatabas3/oauthabl/internal/sessions"
	"github.com/dropDatabas3/oauthabl/internal/store"
)

// clock avanza un segundo por lectura.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newManager(t *testing.T, b kv.Backend) *sessions.Manager {
	t.Helper()
	g := kv.New(b, kv.Options{})
	t.Cleanup(func() { _ = g.Close() })
	c := &clock{t: time.UnixMilli(1_700_000_000_000)}
	return sessions.NewManager(g, sessions.Options{Now: c.Now})
}

func ids(list []sessions.Session) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		out = append(out, s.ID)
	}
	return out
}

func TestCreateOrUpdate_ForceNewMintsDistinctIDs(t *testing.T) {
	m := newManager(t, kv.NewMemory(0))
	ctx := context.Background()

	a, err := m.CreateOrUpdate(ctx, sessions.Request{ClientID: "c1", UserID: "u1", ForceNew: true})
	require.NoError(t, err)
	b, err := m.CreateOrUpdate(ctx, sessions.Request{ClientID: "c1", UserID: "u1", ForceNew: true})
	require.NoError(t, err)
	require.NotEqual(t, a.ID, b.ID)

	raw, err := base64.RawURLEncoding.DecodeString(a.ID)
	require.NoError(t, err)
	assert.Len(t, raw, 32)

	list, err := m.List(ctx, "c1", "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID}, ids(list))
	assert.True(t, list[0].CreatedAt.Before(list[1].CreatedAt))
}

func TestCreateOrUpdate_ReuseUpdatesLastUsed(t *testing.T) {
	m := newManager(t, kv.NewMemory(0))
	ctx := context.Background()

	first, err := m.CreateOrUpdate(ctx, sessions.Request{ClientID: "c1", UserID: "u1", ForceNew: true})
	require.NoError(t, err)

	again, err := m.CreateOrUpdate(ctx, sessions.Request{ClientID: "c1", UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.True(t, again.LastUsedAt.After(first.LastUsedAt))
	assert.Equal(t, first.CreatedAt, again.CreatedAt)
	assert.Equal(t, 1, again.Rotations)

	byID, err := m.CreateOrUpdate(ctx, sessions.Request{ClientID: "c1", UserID: "u1", SessionID: first.ID})
	require.NoError(t, err)
	assert.Equal(t, first.ID, byID.ID)
	assert.Equal(t, 2, byID.Rotations)

	list, err := m.List(ctx, "c1", "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, byID.LastUsedAt, list[0].LastUsedAt)
}

func TestCreateOrUpdate_ReusesMostRecentlyUsed(t *testing.T) {
	m := newManager(t, kv.NewMemory(0))
	ctx := context.Background()

	a, err := m.CreateOrUpdate(ctx, sessions.Request{ClientID: "c1", UserID: "u1", ForceNew: true})
	require.NoError(t, err)
	_, err = m.CreateOrUpdate(ctx, sessions.Request{ClientID: "c1", UserID: "u1", ForceNew: true})
	require.NoError(t, err)
	_, err = m.CreateOrUpdate(ctx, sessions.Request{ClientID: "c1", UserID: "u1", SessionID: a.ID})
	require.NoError(t, err)

	got, err := m.CreateOrUpdate(ctx, sessions.Request{ClientID: "c1", UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
}

func TestCreateOrUpdate_NoSessionMintsOne(t *testing.T) {
	m := newManager(t, kv.NewMemory(0))
	ctx := context.Background()

	s, err := m.CreateOrUpdate(ctx, sessions.Request{ClientID: "c1", UserID: "u1"})
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, 0, s.Rotations)
}

func TestCreateOrUpdate_UnknownSessionID(t *testing.T) {
	m := newManager(t, kv.NewMemory(0))
	_, err := m.CreateOrUpdate(context.Background(), sessions.Request{ClientID: "c1", UserID: "u1", SessionID: "nope"})
	assert.ErrorIs(t, err, sessions.ErrNotFound)
}

func TestCreateOrUpdate_ArchivedDuringTouchStaysArchived(t *testing.T) {
	faulty := kvtest.NewFaulty(kv.NewMemory(0))
	m := newManager(t, faulty)
	ctx := context.Background()

	s, err := m.CreateOrUpdate(ctx, sessions.Request{ClientID: "c1", UserID: "u1", ForceNew: true})
	require.NoError(t, err)

	key := store.SessionKey("c1", "u1", s.ID)
	faulty.AfterGet(key, func() {
		require.NoError(t, m.Archive(ctx, "c1", "u1", s.ID))
	})

	_, err = m.CreateOrUpdate(ctx, sessions.Request{ClientID: "c1", UserID: "u1", SessionID: s.ID})
	require.ErrorIs(t, err, sessions.ErrNotFound)

	_, err = m.Get(ctx, "c1", "u1", s.ID)
	assert.ErrorIs(t, err, sessions.ErrNotFound)
}

func TestSessions_ScopedPerClientAndUser(t *testing.T) {
	m := newManager(t, kv.NewMemory(0))
	ctx := context.Background()

	s, err := m.CreateOrUpdate(ctx, sessions.Request{ClientID: "c1", UserID: "u1", ForceNew: true})
	require.NoError(t, err)
	_, err = m.CreateOrUpdate(ctx, sessions.Request{ClientID: "c1", UserID: "u10", ForceNew: true})
	require.NoError(t, err)

	list, err := m.List(ctx, "c1", "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{s.ID}, ids(list))

	_, err = m.Get(ctx, "c2", "u1", s.ID)
	assert.ErrorIs(t, err, sessions.ErrNotFound)
	assert.ErrorIs(t, m.Archive(ctx, "c1", "u2", s.ID), sessions.ErrNotFound)

	n, err := m.Count(ctx, "c1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestArchive(t *testing.T) {
	m := newManager(t, kv.NewMemory(0))
	ctx := context.Background()

	s, err := m.CreateOrUpdate(ctx, sessions.Request{ClientID: "c1", UserID: "u1", ForceNew: true})
	require.NoError(t, err)

	require.NoError(t, m.Archive(ctx, "c1", "u1", s.ID))
	assert.ErrorIs(t, m.Archive(ctx, "c1", "u1", s.ID), sessions.ErrNotFound)

	_, err = m.Get(ctx, "c1", "u1", s.ID)
	assert.ErrorIs(t, err, sessions.ErrNotFound)
}

func TestArchiveAll_PartialFailure(t *testing.T) {
	faulty := kvtest.NewFaulty(kv.NewMemory(0))
	m := newManager(t, faulty)
	ctx := context.Background()

	var created []string
	for range 3 {
		s, err := m.CreateOrUpdate(ctx, sessions.Request{ClientID: "c1", UserID: "u1", ForceNew: true})
		require.NoError(t, err)
		created = append(created, s.ID)
	}
	faulty.FailDelete(store.SessionKey("c1", "u1", created[1]))

	res, err := m.ArchiveAll(ctx, "c1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Archived)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, []string{created[1]}, res.FailedIDs)
	assert.False(t, res.Complete())
	assert.Equal(t, 3, faulty.DeleteCalls())

	list, err := m.List(ctx, "c1", "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{created[1]}, ids(list))
}

func TestArchiveAll_Empty(t *testing.T) {
	m := newManager(t, kv.NewMemory(0))
	res, err := m.ArchiveAll(context.Background(), "c1", "u1")
	require.NoError(t, err)
	assert.Equal(t, sessions.ArchiveResult{}, res)
	assert.True(t, res.Complete())
}

func TestArchiveAll_ListFailureIsReturned(t *testing.T) {
	faulty := kvtest.NewFaulty(kv.NewMemory(0))
	m := newManager(t, faulty)
	faulty.FailList()

	_, err := m.ArchiveAll(context.Background(), "c1", "u1")
	assert.ErrorIs(t, err, kv.ErrStoreUnavailable)
}
