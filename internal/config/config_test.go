package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", c.Server.Addr)
	assert.Equal(t, "memory", c.KV.Driver)
	assert.Equal(t, 3*time.Second, c.KV.OpTimeout)
	assert.Equal(t, 6, c.Codes.Length)
	assert.Equal(t, time.Duration(0), c.Codes.TTL)
	assert.True(t, c.EchoCodes())
	assert.Equal(t, 8, c.Sessions.ArchiveConcurrency)
	assert.False(t, c.SMTPEnabled())
}

func TestLoad_YAML(t *testing.T) {
	p := writeYAML(t, `
server:
  addr: ":9000"
kv:
  driver: redis
  op_timeout: 750ms
  redis:
    addr: "redis:6379"
    db: 2
codes:
  length: 8
  ttl: 15m
  echo_in_response: false
sessions:
  archive_concurrency: 4
`)
	c, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, ":9000", c.Server.Addr)
	assert.Equal(t, "redis", c.KV.Driver)
	assert.Equal(t, 750*time.Millisecond, c.KV.OpTimeout)
	assert.Equal(t, "redis:6379", c.KV.Redis.Addr)
	assert.Equal(t, 2, c.KV.Redis.DB)
	assert.Equal(t, 8, c.Codes.Length)
	assert.Equal(t, 15*time.Minute, c.Codes.TTL)
	assert.False(t, c.EchoCodes())
	assert.Equal(t, 4, c.Sessions.ArchiveConcurrency)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":7000")
	t.Setenv("KV_DRIVER", "POSTGRES")
	t.Setenv("POSTGRES_DSN", "postgres://localhost/oauthabl")
	t.Setenv("CODE_TTL", "10m")
	t.Setenv("ADMIN_API_KEY", "k")

	c, err := Load(writeYAML(t, "kv:\n  driver: memory\n"))
	require.NoError(t, err)
	assert.Equal(t, ":7000", c.Server.Addr)
	assert.Equal(t, "postgres", c.KV.Driver)
	assert.Equal(t, "postgres://localhost/oauthabl", c.KV.Postgres.DSN)
	assert.Equal(t, 10*time.Minute, c.Codes.TTL)
	assert.Equal(t, "k", c.Admin.APIKey)
}

func TestLoad_ProdForcesEchoOffAndRequiresAdminKey(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	_, err := Load(writeYAML(t, "codes:\n  echo_in_response: true\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "admin.api_key")

	t.Setenv("ADMIN_API_KEY", "k")
	c, err := Load(writeYAML(t, "codes:\n  echo_in_response: true\n"))
	require.NoError(t, err)
	assert.False(t, c.EchoCodes())
}

func TestValidate(t *testing.T) {
	cases := map[string]string{
		"unknown driver":    "kv:\n  driver: mongo\n",
		"postgres dsn":      "kv:\n  driver: postgres\n",
		"short code":        "codes:\n  length: 2\n",
		"bad tls":           "smtp:\n  tls: tls13\n",
		"smtp without from": "smtp:\n  host: smtp.example.com\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeYAML(t, body))
			assert.Error(t, err)
		})
	}
}
