package kv_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dropDatabas3/oauthabl/internal/kv"
	"github.com/dropDatabas3/oauthabl/internal/kv/kvtest"
	"github.com/dropDatabas3/oauthabl/internal/observability/logger"
)

type recordingObserver struct {
	mu  sync.Mutex
	obs []string
}

func (r *recordingObserver) ObserveKV(op, result string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, op+":"+result)
}

func newMemoryGateway(t *testing.T, opts kv.Options) *kv.Gateway {
	t.Helper()
	g := kv.New(kv.NewMemory(0), opts)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func TestGateway_GetPutDelete(t *testing.T) {
	ctx := context.Background()
	g := newMemoryGateway(t, kv.Options{})

	_, err := g.Get(ctx, "client:missing")
	require.ErrorIs(t, err, kv.ErrNotFound)

	require.NoError(t, g.Put(ctx, "client:c1", []byte(`{"id":"c1"}`), kv.PutOptions{
		Metadata: json.RawMessage(`{"name":"acme"}`),
	}))

	v, err := g.Get(ctx, "client:c1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"c1"}`, string(v))

	v, meta, err := g.GetWithMetadata(ctx, "client:c1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"c1"}`, string(v))
	assert.JSONEq(t, `{"name":"acme"}`, string(meta))

	require.NoError(t, g.Delete(ctx, "client:c1"))
	_, err = g.Get(ctx, "client:c1")
	require.ErrorIs(t, err, kv.ErrNotFound)

	// Borrar una clave ausente no es error.
	require.NoError(t, g.Delete(ctx, "client:c1"))
}

func TestGateway_PutOverwriteDropsOldMetadata(t *testing.T) {
	ctx := context.Background()
	g := newMemoryGateway(t, kv.Options{})

	require.NoError(t, g.Put(ctx, "k", []byte("1"), kv.PutOptions{Metadata: json.RawMessage(`{"a":1}`)}))
	require.NoError(t, g.Put(ctx, "k", []byte("2"), kv.PutOptions{}))

	v, meta, err := g.GetWithMetadata(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "2", string(v))
	assert.Nil(t, meta)
}

func TestGateway_PutIfAbsent(t *testing.T) {
	ctx := context.Background()
	g := newMemoryGateway(t, kv.Options{})
	require.True(t, g.Conditional())

	require.NoError(t, g.Put(ctx, "username:c1:alice", []byte("u1"), kv.PutOptions{IfAbsent: true}))
	err := g.Put(ctx, "username:c1:alice", []byte("u2"), kv.PutOptions{IfAbsent: true})
	require.ErrorIs(t, err, kv.ErrKeyExists)

	v, err := g.Get(ctx, "username:c1:alice")
	require.NoError(t, err)
	assert.Equal(t, "u1", string(v))
}

func TestGateway_TTL(t *testing.T) {
	ctx := context.Background()
	g := newMemoryGateway(t, kv.Options{})

	require.NoError(t, g.Put(ctx, "emailverifycode:c1:u1", []byte("123456"), kv.PutOptions{TTL: 20 * time.Millisecond}))
	_, err := g.Get(ctx, "emailverifycode:c1:u1")
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)
	_, err = g.Get(ctx, "emailverifycode:c1:u1")
	require.ErrorIs(t, err, kv.ErrNotFound)
}

func TestGateway_ListPaginatesInOrder(t *testing.T) {
	ctx := context.Background()
	g := newMemoryGateway(t, kv.Options{PageSize: 2})

	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("session:c1:u1:s%d", i)
		require.NoError(t, g.Put(ctx, key, []byte("{}"), kv.PutOptions{
			Metadata: json.RawMessage(fmt.Sprintf(`{"createdAt":%d}`, i)),
		}))
	}
	require.NoError(t, g.Put(ctx, "session:c1:u2:s9", []byte("{}"), kv.PutOptions{}))
	require.NoError(t, g.Put(ctx, "user:c1:u1", []byte("{}"), kv.PutOptions{}))

	keys, err := g.ListAll(ctx, "session:c1:u1:")
	require.NoError(t, err)
	require.Len(t, keys, 5)
	for i, k := range keys {
		assert.Equal(t, fmt.Sprintf("session:c1:u1:s%d", i), k.Name)
		assert.JSONEq(t, fmt.Sprintf(`{"createdAt":%d}`, i), string(k.Metadata))
	}
}

func TestGateway_ListStopsEarly(t *testing.T) {
	ctx := context.Background()
	g := newMemoryGateway(t, kv.Options{PageSize: 1})
	for i := 0; i < 3; i++ {
		require.NoError(t, g.Put(ctx, fmt.Sprintf("user:c1:u%d", i), []byte("{}"), kv.PutOptions{}))
	}

	n := 0
	for _, err := range g.List(ctx, "user:c1:") {
		require.NoError(t, err)
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestGateway_TimeoutBecomesStoreUnavailable(t *testing.T) {
	g := kv.New(kvtest.Slow{Backend: kv.NewMemory(0)}, kv.Options{OpTimeout: 10 * time.Millisecond})

	start := time.Now()
	_, err := g.Get(context.Background(), "client:c1")
	require.ErrorIs(t, err, kv.ErrStoreUnavailable)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), time.Second)

	err = g.Put(context.Background(), "client:c1", []byte("x"), kv.PutOptions{})
	require.ErrorIs(t, err, kv.ErrStoreUnavailable)
}

func TestGateway_BackendFailureBecomesStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	faulty := kvtest.NewFaulty(kv.NewMemory(0))
	obs := &recordingObserver{}
	g := kv.New(faulty, kv.Options{Observer: obs})

	faulty.FailGet("client:c1")
	_, err := g.Get(ctx, "client:c1")
	require.ErrorIs(t, err, kv.ErrStoreUnavailable)
	require.ErrorIs(t, err, kvtest.ErrInjected)

	faulty.FailList()
	_, err = g.ListAll(ctx, "client:")
	require.ErrorIs(t, err, kv.ErrStoreUnavailable)

	_, err = g.Get(ctx, "client:c2")
	require.ErrorIs(t, err, kv.ErrNotFound)

	assert.Equal(t, []string{"get:error", "list:error", "get:not_found"}, obs.obs)
}

func TestGateway_StoreFailureIsLoggedWithKey(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	ctx := logger.ToContext(context.Background(), zap.New(core))
	faulty := kvtest.NewFaulty(kv.NewMemory(0))
	g := kv.New(faulty, kv.Options{})

	faulty.FailGet("user:c1:u1")
	_, err := g.Get(ctx, "user:c1:u1")
	require.ErrorIs(t, err, kv.ErrStoreUnavailable)

	_, err = g.Get(ctx, "user:c1:missing")
	require.ErrorIs(t, err, kv.ErrNotFound)

	entries := logs.FilterMessage("kv operation failed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "user:c1:u1", fields["key"])
	assert.Equal(t, "get", fields["op"])
}

func TestTypedHelpers(t *testing.T) {
	ctx := context.Background()
	g := newMemoryGateway(t, kv.Options{})

	type value struct {
		Password string `json:"password"`
	}
	type meta struct {
		Username      string `json:"username,omitempty"`
		EmailVerified bool   `json:"emailVerified"`
	}

	require.NoError(t, kv.PutJSON(ctx, g, "user:c1:u1", value{Password: "h"}, meta{Username: "alice"}, kv.PutOptions{}))

	v, err := kv.GetJSON[value](ctx, g, "user:c1:u1")
	require.NoError(t, err)
	assert.Equal(t, "h", v.Password)

	v, m, ok, err := kv.GetJSONWithMetadata[value, meta](ctx, g, "user:c1:u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "h", v.Password)
	assert.Equal(t, "alice", m.Username)

	require.NoError(t, g.Put(ctx, "broken", []byte("{not json"), kv.PutOptions{}))
	_, err = kv.GetJSON[value](ctx, g, "broken")
	require.Error(t, err)
	assert.False(t, kv.IsUnavailable(err))
}
