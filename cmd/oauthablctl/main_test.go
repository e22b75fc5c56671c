package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/oauthabl/internal/app"
	"github.com/dropDatabas3/oauthabl/internal/config"
	"github.com/dropDatabas3/oauthabl/internal/kv"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	cfg.Admin.APIKey = "k"

	a, err := app.New(context.Background(), cfg, app.Options{Backend: kv.NewMemory(0)})
	require.NoError(t, err)
	srv := httptest.NewServer(a.Handler)
	t.Cleanup(func() {
		srv.Close()
		_ = a.Close()
	})
	return srv
}

func run(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(append([]string{"--url", srv.URL, "--admin-api-key", "k"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestClientsLifecycle(t *testing.T) {
	srv := newServer(t)

	out, err := run(t, srv, "--out", "json", "clients", "create", "--name", "acme", "--set", "redirect=https://x")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "acme"`)
	assert.Contains(t, out, `"redirect": "https://x"`)

	out, err = run(t, srv, "clients", "list")
	require.NoError(t, err)
	fields := strings.Fields(out)
	require.Len(t, fields, 2)
	id := fields[0]
	assert.Equal(t, "acme", fields[1])

	out, err = run(t, srv, "clients", "update", id, "--name", "acme2")
	require.NoError(t, err)
	assert.Contains(t, out, "acme2")

	_, err = run(t, srv, "clients", "delete", id)
	require.NoError(t, err)

	_, err = run(t, srv, "clients", "get", id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=404")
}

func TestPingAndValidation(t *testing.T) {
	srv := newServer(t)

	out, err := run(t, srv, "ping")
	require.NoError(t, err)
	assert.Contains(t, out, "ready")

	_, err = run(t, srv, "clients", "create")
	assert.Error(t, err)

	_, err = run(t, srv, "clients", "create", "--name", "x", "--set", "secret=mine")
	assert.Error(t, err)

	_, err = run(t, srv, "--out", "yaml", "clients", "list")
	assert.Error(t, err)
}
