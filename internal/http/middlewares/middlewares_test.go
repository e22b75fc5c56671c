package middlewares

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/oauthabl/internal/clientauth"
	"github.com/dropDatabas3/oauthabl/internal/kv"
)

type fakeAuth struct {
	secrets map[string]string
	err     error
}

func (f fakeAuth) Authenticate(_ context.Context, clientID, secret string) error {
	if f.err != nil {
		return f.err
	}
	if s, ok := f.secrets[clientID]; ok && s == secret {
		return nil
	}
	return clientauth.ErrUnauthorized
}

func clientRouter(auth Authenticator) http.Handler {
	r := chi.NewRouter()
	r.With(WithClientAuth(auth)).Get("/oauth/{clientId}/ping", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(GetClientID(r.Context())))
	})
	return r
}

func TestWithClientAuth_Schemes(t *testing.T) {
	h := clientRouter(fakeAuth{secrets: map[string]string{"c1": "s3cret"}})

	cases := []struct {
		name   string
		set    func(*http.Request)
		status int
	}{
		{"basic", func(r *http.Request) { r.SetBasicAuth("c1", "s3cret") }, http.StatusOK},
		{"basic other client", func(r *http.Request) { r.SetBasicAuth("c2", "s3cret") }, http.StatusUnauthorized},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer s3cret") }, http.StatusOK},
		{"header", func(r *http.Request) { r.Header.Set(ClientSecretHeader, "s3cret") }, http.StatusOK},
		{"wrong secret", func(r *http.Request) { r.Header.Set(ClientSecretHeader, "s3creT") }, http.StatusUnauthorized},
		{"missing", func(*http.Request) {}, http.StatusUnauthorized},
		{"unknown scheme", func(r *http.Request) { r.Header.Set("Authorization", "Digest x") }, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/oauth/c1/ping", nil)
			tc.set(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, "c1", rec.Body.String())
			}
		})
	}
}

func TestWithClientAuth_UnknownClientSameBody(t *testing.T) {
	h := clientRouter(fakeAuth{secrets: map[string]string{"c1": "s3cret"}})

	do := func(path string) string {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set(ClientSecretHeader, "nope")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		return rec.Body.String()
	}
	assert.Equal(t, do("/oauth/c1/ping"), do("/oauth/ghost/ping"))
}

func TestWithClientAuth_StoreDown(t *testing.T) {
	h := clientRouter(fakeAuth{err: fmt.Errorf("%w: %w", clientauth.ErrInternal, kv.ErrStoreUnavailable)})
	req := httptest.NewRequest(http.MethodGet, "/oauth/c1/ping", nil)
	req.Header.Set(ClientSecretHeader, "x")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequireAdminKey(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	h := Chain(ok, RequireAdminKey("k"))
	req := httptest.NewRequest(http.MethodGet, "/clients", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req.Header.Set(AdminKeyHeader, "k")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	open := Chain(ok, RequireAdminKey(""))
	rec = httptest.NewRecorder()
	open.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/clients", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestWithRecover(t *testing.T) {
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }), WithRecover())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "INTERNAL_SERVER_ERROR", body["code"])
}

func TestWithRequestID(t *testing.T) {
	var seen string
	h := Chain(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}), WithRequestID())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc", seen)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get("X-Request-ID"), 32)
}

type obsRecord struct {
	mu     sync.Mutex
	paths  []string
	status []int
}

func (o *obsRecord) InflightInc(string) {}
func (o *obsRecord) InflightDec(string) {}
func (o *obsRecord) ObserveHTTP(_, path string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.paths = append(o.paths, path)
	o.status = append(o.status, status)
}

func TestWithMetrics_UsesRoutePattern(t *testing.T) {
	obs := &obsRecord{}
	r := chi.NewRouter()
	r.Use(WithMetrics(obs))
	r.Get("/oauth/{clientId}/users", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/oauth/abc/users", nil))

	require.Len(t, obs.paths, 1)
	assert.Equal(t, "/oauth/{clientId}/users", obs.paths[0])
	assert.Equal(t, http.StatusTeapot, obs.status[0])
}

func TestSecurityHeadersAndNoStore(t *testing.T) {
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}), WithSecurityHeaders(), WithNoStore())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}
