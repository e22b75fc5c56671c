package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env      string `yaml:"app_env"`
		LogLevel string `yaml:"log_level"`
		Name     string `yaml:"name"`
	} `yaml:"app"`

	Server struct {
		Addr            string        `yaml:"addr"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	KV struct {
		// memory | redis | postgres
		Driver       string        `yaml:"driver"`
		OpTimeout    time.Duration `yaml:"op_timeout"`
		ListPageSize int           `yaml:"list_page_size"`
		Prefix       string        `yaml:"prefix"`
		Redis        struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
		Postgres struct {
			DSN      string `yaml:"dsn"`
			MaxConns int32  `yaml:"max_conns"`
			Migrate  bool   `yaml:"migrate"`
		} `yaml:"postgres"`
		Memory struct {
			Cleanup time.Duration `yaml:"cleanup"`
		} `yaml:"memory"`
	} `yaml:"kv"`

	Admin struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"admin"`

	Codes struct {
		Length   int           `yaml:"length"`
		Alphabet string        `yaml:"alphabet"`
		TTL      time.Duration `yaml:"ttl"`
		// EchoInResponse devuelve el código en la respuesta (forzado a false en prod).
		EchoInResponse *bool `yaml:"echo_in_response"`
	} `yaml:"codes"`

	Sessions struct {
		ArchiveConcurrency int `yaml:"archive_concurrency"`
	} `yaml:"sessions"`

	Password struct {
		Argon2 struct {
			Memory      uint32 `yaml:"memory_kib"`
			Time        uint32 `yaml:"time"`
			Parallelism uint8  `yaml:"parallelism"`
		} `yaml:"argon2"`
	} `yaml:"password"`

	SMTP struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		From     string `yaml:"from"`
		// auto | starttls | ssl | none
		TLS                string `yaml:"tls"`
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
	} `yaml:"smtp"`

	Email struct {
		VerifySubject string `yaml:"verify_subject"`
		ResetSubject  string `yaml:"reset_subject"`
	} `yaml:"email"`
}

// Load lee el YAML en path (si no existe se usan defaults), aplica
// overrides por env y valida.
func Load(path string) (*Config, error) {
	var c Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// sin archivo: defaults + env
	default:
		return nil, err
	}

	c.applyDefaults()

	// Overrides por env + salvaguarda prod
	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}

	// Guardia dura: en prod NUNCA devolvemos códigos en las respuestas.
	if strings.EqualFold(c.App.Env, "prod") {
		off := false
		c.Codes.EchoInResponse = &off
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.Name == "" {
		c.App.Name = "oauthabl"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.KV.Driver == "" {
		c.KV.Driver = "memory"
	}
	if c.KV.OpTimeout == 0 {
		c.KV.OpTimeout = 3 * time.Second
	}
	if c.KV.ListPageSize == 0 {
		c.KV.ListPageSize = 100
	}
	if c.KV.Prefix == "" {
		c.KV.Prefix = "oauthabl"
	}
	if c.KV.Redis.Addr == "" {
		c.KV.Redis.Addr = "localhost:6379"
	}
	if c.Codes.Length == 0 {
		c.Codes.Length = 6
	}
	if c.Codes.Alphabet == "" {
		c.Codes.Alphabet = "0123456789"
	}
	if c.Codes.EchoInResponse == nil {
		on := true
		c.Codes.EchoInResponse = &on
	}
	if c.Sessions.ArchiveConcurrency == 0 {
		c.Sessions.ArchiveConcurrency = 8
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.SMTP.TLS == "" {
		c.SMTP.TLS = "auto"
	}
}

// EchoCodes indica si los códigos viajan en la respuesta HTTP.
func (c *Config) EchoCodes() bool {
	return c.Codes.EchoInResponse != nil && *c.Codes.EchoInResponse
}

// SMTPEnabled indica si hay un servidor SMTP configurado.
func (c *Config) SMTPEnabled() bool {
	return strings.TrimSpace(c.SMTP.Host) != ""
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.App.LogLevel = v
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}

	// KV
	if v, ok := getEnvStr("KV_DRIVER"); ok {
		c.KV.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvDur("KV_OP_TIMEOUT"); ok {
		c.KV.OpTimeout = v
	}
	if v, ok := getEnvStr("KV_PREFIX"); ok {
		c.KV.Prefix = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.KV.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.KV.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.KV.Redis.DB = v
	}
	if v, ok := getEnvStr("POSTGRES_DSN"); ok {
		c.KV.Postgres.DSN = v
	}
	if v, ok := getEnvBool("POSTGRES_MIGRATE"); ok {
		c.KV.Postgres.Migrate = v
	}

	// ADMIN
	if v, ok := getEnvStr("ADMIN_API_KEY"); ok {
		c.Admin.APIKey = v
	}

	// CODES
	if v, ok := getEnvDur("CODE_TTL"); ok {
		c.Codes.TTL = v
	}
	if v, ok := getEnvInt("CODE_LENGTH"); ok {
		c.Codes.Length = v
	}
	if v, ok := getEnvBool("CODE_ECHO_IN_RESPONSE"); ok {
		c.Codes.EchoInResponse = &v
	}

	// SMTP
	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_USERNAME"); ok {
		c.SMTP.Username = v
	}
	if v, ok := getEnvStr("SMTP_PASSWORD"); ok {
		c.SMTP.Password = v
	}
	if v, ok := getEnvStr("SMTP_FROM"); ok {
		c.SMTP.From = v
	}
	if v, ok := getEnvStr("SMTP_TLS"); ok {
		c.SMTP.TLS = strings.ToLower(v)
	}
}

// Validate revisa combinaciones inválidas.
func (c *Config) Validate() error {
	var errs []error
	switch c.KV.Driver {
	case "memory":
	case "redis":
		if strings.TrimSpace(c.KV.Redis.Addr) == "" {
			errs = append(errs, errors.New("kv.redis.addr is required for the redis driver"))
		}
	case "postgres", "pg":
		if strings.TrimSpace(c.KV.Postgres.DSN) == "" {
			errs = append(errs, errors.New("kv.postgres.dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("kv.driver %q is not supported (memory|redis|postgres)", c.KV.Driver))
	}
	if c.KV.OpTimeout < 0 {
		errs = append(errs, errors.New("kv.op_timeout must be positive"))
	}
	if c.Codes.Length < 4 {
		errs = append(errs, errors.New("codes.length must be at least 4"))
	}
	if len([]rune(c.Codes.Alphabet)) < 2 {
		errs = append(errs, errors.New("codes.alphabet needs at least two symbols"))
	}
	if c.Codes.TTL < 0 {
		errs = append(errs, errors.New("codes.ttl must not be negative"))
	}
	if c.Sessions.ArchiveConcurrency < 1 {
		errs = append(errs, errors.New("sessions.archive_concurrency must be at least 1"))
	}
	switch c.SMTP.TLS {
	case "auto", "starttls", "ssl", "none":
	default:
		errs = append(errs, fmt.Errorf("smtp.tls %q is not supported", c.SMTP.TLS))
	}
	if c.SMTPEnabled() && strings.TrimSpace(c.SMTP.From) == "" {
		errs = append(errs, errors.New("smtp.from is required when smtp.host is set"))
	}
	if strings.EqualFold(c.App.Env, "prod") && strings.TrimSpace(c.Admin.APIKey) == "" {
		errs = append(errs, errors.New("admin.api_key is required in prod"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
