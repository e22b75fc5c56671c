package clientauth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/oauthabl/internal/clientauth"
	"github.com/dropDatabas3/oauthabl/internal/kv"
	"github.com/dropDatabas3/oauthabl/internal/kv/kvtest"
	"github.com/dropDatabas3/oauthabl/internal/store"
)

const secret = "Zx9-secret-value"

func setup(t *testing.T) (*clientauth.Authenticator, *kvtest.Faulty) {
	t.Helper()
	faulty := kvtest.NewFaulty(kv.NewMemory(0))
	g := kv.New(faulty, kv.Options{})
	t.Cleanup(func() { _ = g.Close() })

	clients := store.NewClientRepository(g)
	require.NoError(t, clients.Create(context.Background(), store.Client{ID: "c1", Secret: secret, Name: "Acme"}))
	return clientauth.New(clients), faulty
}

func TestAuthenticate_Allows(t *testing.T) {
	auth, _ := setup(t)
	assert.NoError(t, auth.Authenticate(context.Background(), "c1", secret))
}

func TestAuthenticate_DeniesEverySingleCharMutation(t *testing.T) {
	auth, _ := setup(t)
	ctx := context.Background()

	for i := range secret {
		b := []byte(secret)
		b[i] ^= 0x01
		err := auth.Authenticate(ctx, "c1", string(b))
		assert.ErrorIs(t, err, clientauth.ErrUnauthorized, "mutation at %d", i)
	}
	assert.ErrorIs(t, auth.Authenticate(ctx, "c1", secret[:len(secret)-1]), clientauth.ErrUnauthorized)
	assert.ErrorIs(t, auth.Authenticate(ctx, "c1", secret+"x"), clientauth.ErrUnauthorized)
	assert.ErrorIs(t, auth.Authenticate(ctx, "c1", ""), clientauth.ErrUnauthorized)
}

func TestAuthenticate_AbsentClientLooksLikeMismatch(t *testing.T) {
	auth, _ := setup(t)
	ctx := context.Background()

	missing := auth.Authenticate(ctx, "nope", secret)
	wrong := auth.Authenticate(ctx, "c1", "wrong")
	require.ErrorIs(t, missing, clientauth.ErrUnauthorized)
	require.ErrorIs(t, wrong, clientauth.ErrUnauthorized)
	assert.Equal(t, missing.Error(), wrong.Error())
}

func TestAuthenticate_StoreFailureIsInternal(t *testing.T) {
	auth, faulty := setup(t)
	faulty.FailGet(store.ClientKey("c1"))

	err := auth.Authenticate(context.Background(), "c1", secret)
	require.Error(t, err)
	assert.ErrorIs(t, err, clientauth.ErrInternal)
	assert.ErrorIs(t, err, kv.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, clientauth.ErrUnauthorized)
}
