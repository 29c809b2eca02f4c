// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Insecure development defaults. Production mode refuses to start with them.
const (
	DevJWTSecret     = "dev-secret-change-in-production"
	DevEncryptionKey = "0000000000000000000000000000000000000000000000000000000000000000"
)

// Secret backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// AuthConfig holds authentication and identity provider configuration.
type AuthConfig struct {
	// OIDC / JWKS configuration
	IssuerURL      string   `yaml:"issuer_url"`      // OIDC issuer URL
	JWKSURL        string   `yaml:"jwks_url"`        // Override JWKS URL (if no .well-known discovery)
	Audience       string   `yaml:"audience"`        // Required JWT audience claim
	AllowedIssuers []string `yaml:"allowed_issuers"` // Accepted issuers (defaults to [IssuerURL])

	// HS256 tokens for local development and the token command.
	JWTSecret string `yaml:"jwt_secret"`
	JWTIssuer string `yaml:"jwt_issuer"`
}

// OIDCEnabled returns true when an external identity provider is configured.
func (a *AuthConfig) OIDCEnabled() bool {
	return a.IssuerURL != "" || a.JWKSURL != ""
}

// Validate checks that the auth configuration is internally consistent.
func (a *AuthConfig) Validate() error {
	if a.IssuerURL != "" && a.Audience == "" {
		return fmt.Errorf("AUTH_AUDIENCE is required when AUTH_ISSUER_URL is set")
	}
	if a.JWKSURL != "" && a.IssuerURL == "" && len(a.AllowedIssuers) == 0 {
		return fmt.Errorf("AUTH_ISSUER_URL or AUTH_ALLOWED_ISSUERS is required with AUTH_JWKS_URL")
	}
	return nil
}

// RedisConfig addresses the Redis secret backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Config holds the configuration for the keyshelf server and CLI.
type Config struct {
	DBPath            string `yaml:"db_path"`             // path to the SQLite database
	ListenAddr        string `yaml:"listen_addr"`         // HTTP listen address (default ":8080")
	TLSCertFile       string `yaml:"tls_cert_file"`       // TLS certificate file path (optional)
	TLSKeyFile        string `yaml:"tls_key_file"`        // TLS private key file path (optional)
	AllowInsecureHTTP bool   `yaml:"allow_insecure_http"` // allow non-TLS listener in production (for trusted TLS termination)
	EncryptionKey     string `yaml:"encryption_key"`      // 64-char hex string (32-byte AES key) for sealing secrets
	LogLevel          string `yaml:"log_level"`           // debug, info, warn, error (default "info")
	Env               string `yaml:"env"`                 // "development" (default) or "production"

	// SecretBackend selects where sealed secret values live: "sqlite" or "redis".
	SecretBackend string      `yaml:"secret_backend"`
	Redis         RedisConfig `yaml:"redis"`

	// Rate limiting. The reveal limit is per principal.
	RateLimitRPS         float64 `yaml:"rate_limit_rps"`
	RateLimitBurst       int     `yaml:"rate_limit_burst"`
	RevealRateLimitRPS   float64 `yaml:"reveal_rate_limit_rps"`
	RevealRateLimitBurst int     `yaml:"reveal_rate_limit_burst"`

	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// CORS
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"` // default: ["*"]

	// SweepSchedule is the cron spec for the orphaned-grant sweep; "off" disables it.
	SweepSchedule string `yaml:"sweep_schedule"`

	Auth AuthConfig `yaml:"auth"`

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string `yaml:"-"`
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// SweepEnabled reports whether the scheduled grant sweep should run.
func (c *Config) SweepEnabled() bool {
	return !strings.EqualFold(c.SweepSchedule, "off")
}

// Load reads the optional YAML file at path, overlays environment variables,
// applies defaults, and validates the result. An empty path falls back to
// CONFIG_FILE. Environment variables win over the file.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	cfg := &Config{}
	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, err
		}
	}
	cfg.loadFromEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{}
	cfg.loadFromEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path is operator-controlled
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadFromEnv() {
	envString("DB_PATH", &c.DBPath)
	envString("LISTEN_ADDR", &c.ListenAddr)
	envString("TLS_CERT_FILE", &c.TLSCertFile)
	envString("TLS_KEY_FILE", &c.TLSKeyFile)
	envString("ENCRYPTION_KEY", &c.EncryptionKey)
	envString("LOG_LEVEL", &c.LogLevel)
	envString("ENV", &c.Env)
	envString("SECRET_BACKEND", &c.SecretBackend)
	envString("REDIS_ADDR", &c.Redis.Addr)
	envString("REDIS_PASSWORD", &c.Redis.Password)
	envString("SWEEP_SCHEDULE", &c.SweepSchedule)
	c.AllowInsecureHTTP = parseBoolEnvDefault("ALLOW_INSECURE_HTTP", c.AllowInsecureHTTP)

	c.envInt("REDIS_DB", &c.Redis.DB)
	c.envFloat("RATE_LIMIT_RPS", &c.RateLimitRPS)
	c.envInt("RATE_LIMIT_BURST", &c.RateLimitBurst)
	c.envFloat("REVEAL_RATE_LIMIT_RPS", &c.RevealRateLimitRPS)
	c.envInt("REVEAL_RATE_LIMIT_BURST", &c.RevealRateLimitBurst)
	c.envDuration("REQUEST_TIMEOUT", &c.RequestTimeout)
	c.envDuration("SHUTDOWN_TIMEOUT", &c.ShutdownTimeout)

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.CORSAllowedOrigins = splitList(v)
	}

	envString("AUTH_ISSUER_URL", &c.Auth.IssuerURL)
	envString("AUTH_JWKS_URL", &c.Auth.JWKSURL)
	envString("AUTH_AUDIENCE", &c.Auth.Audience)
	envString("JWT_SECRET", &c.Auth.JWTSecret)
	envString("JWT_ISSUER", &c.Auth.JWTIssuer)
	if v := os.Getenv("AUTH_ALLOWED_ISSUERS"); v != "" {
		c.Auth.AllowedIssuers = splitList(v)
	}
}

func (c *Config) applyDefaults() {
	if c.DBPath == "" {
		c.DBPath = "keyshelf.sqlite"
	}
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.SecretBackend == "" {
		c.SecretBackend = BackendSQLite
	}
	if c.SecretBackend == BackendRedis && c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.RateLimitRPS == 0 {
		c.RateLimitRPS = 100
	}
	if c.RateLimitBurst == 0 {
		c.RateLimitBurst = 200
	}
	if c.RevealRateLimitRPS == 0 {
		c.RevealRateLimitRPS = 1
	}
	if c.RevealRateLimitBurst == 0 {
		c.RevealRateLimitBurst = 10
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if len(c.CORSAllowedOrigins) == 0 {
		c.CORSAllowedOrigins = []string{"*"}
	}
	if c.SweepSchedule == "" {
		c.SweepSchedule = "@hourly"
	}
	if c.Auth.JWTIssuer == "" {
		c.Auth.JWTIssuer = "keyshelf-local"
	}
	if !c.Auth.OIDCEnabled() && c.Auth.JWTSecret == "" {
		c.Auth.JWTSecret = DevJWTSecret
		c.Warnings = append(c.Warnings, "neither OIDC nor JWT_SECRET is configured; using insecure development JWT secret")
	}
	if c.EncryptionKey == "" {
		c.EncryptionKey = DevEncryptionKey
		c.Warnings = append(c.Warnings, "ENCRYPTION_KEY not set; using insecure default. Set ENCRYPTION_KEY in production!")
	}
}

func (c *Config) validate() error {
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return fmt.Errorf("both TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}
	switch c.SecretBackend {
	case BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("invalid SECRET_BACKEND %q (must be %q or %q)", c.SecretBackend, BackendSQLite, BackendRedis)
	}
	if len(c.EncryptionKey) != 64 {
		return fmt.Errorf("ENCRYPTION_KEY must be 64 hex characters (32 bytes)")
	}
	if c.RateLimitRPS < 0 || c.RevealRateLimitRPS < 0 {
		return fmt.Errorf("rate limits must not be negative")
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}

	// Production mode: insecure defaults are fatal errors.
	if c.IsProduction() {
		if !c.Auth.OIDCEnabled() && c.Auth.JWTSecret == DevJWTSecret {
			return fmt.Errorf("configure OIDC or a non-default JWT_SECRET in production (ENV=production)")
		}
		if c.EncryptionKey == DevEncryptionKey {
			return fmt.Errorf("ENCRYPTION_KEY must be set in production (ENV=production)")
		}
		for _, o := range c.CORSAllowedOrigins {
			if o == "*" {
				return fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
			}
		}
		if c.TLSCertFile == "" && !c.AllowInsecureHTTP {
			return fmt.Errorf("TLS_CERT_FILE/TLS_KEY_FILE must be set in production unless ALLOW_INSECURE_HTTP=true")
		}
	}
	return nil
}

func envString(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func (c *Config) envInt(key string, dst *int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		c.Warnings = append(c.Warnings, fmt.Sprintf("ignoring %s=%q: not an integer", key, v))
		return
	}
	*dst = n
}

func (c *Config) envFloat(key string, dst *float64) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		c.Warnings = append(c.Warnings, fmt.Sprintf("ignoring %s=%q: not a number", key, v))
		return
	}
	*dst = f
}

func (c *Config) envDuration(key string, dst *time.Duration) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		c.Warnings = append(c.Warnings, fmt.Sprintf("ignoring %s=%q: not a duration", key, v))
		return
	}
	*dst = d
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch v {
	case "0", "false", "no", "off":
		return false
	case "1", "true", "yes", "on":
		return true
	default:
		return defaultVal
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(strings.TrimPrefix(line, "export "), "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		if _, set := os.LookupEnv(key); !set {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
