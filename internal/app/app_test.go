package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyshelf/internal/config"
	internaldb "keyshelf/internal/db"
	"keyshelf/internal/middleware"
	"keyshelf/internal/secretstore"
)

const testKey = "8f1c2a9b7d3e4f5061728394a5b6c7d8e9f0a1b2c3d4e5f60718293a4b5c6d7e"

func testConfig() *config.Config {
	return &config.Config{
		EncryptionKey:        testKey,
		SecretBackend:        config.BackendSQLite,
		RateLimitRPS:         1000,
		RateLimitBurst:       1000,
		RevealRateLimitRPS:   1000,
		RevealRateLimitBurst: 1000,
		CORSAllowedOrigins:   []string{"*"},
		SweepSchedule:        "@hourly",
		Auth:                 config.AuthConfig{JWTSecret: "app-test-secret", JWTIssuer: "keyshelf-local"},
	}
}

func newApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	writeDB, readDB := internaldb.OpenTestSQLite(t)
	a, err := New(context.Background(), Deps{
		Cfg:     cfg,
		WriteDB: writeDB,
		ReadDB:  readDB,
		Logger:  slog.New(slog.DiscardHandler),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func call(t *testing.T, h http.Handler, cfg *config.Config, user, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if user != "" {
		tok, err := middleware.MintHS256(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, "sub-"+user, user+"@example.com", time.Minute)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// storeAndReveal bootstraps an administrator, stores one key, and reveals it.
func storeAndReveal(t *testing.T, a *App, cfg *config.Config) {
	t.Helper()
	h := a.Router(t.Context())

	require.Equal(t, http.StatusCreated, call(t, h, cfg, "alice", http.MethodPost, "/v1/roles/bootstrap", "").Code)

	rec := call(t, h, cfg, "alice", http.MethodPost, "/v1/providers", `{"name":"Anthropic"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var prov struct{ ID string }
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&prov))

	rec = call(t, h, cfg, "alice", http.MethodPost, "/v1/keys",
		`{"provider_id":"`+prov.ID+`","label":"prod","api_key":"sk-ant-0123456789"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var key struct{ ID string }
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&key))

	rec = call(t, h, cfg, "alice", http.MethodPost, "/v1/keys/"+key.ID+"/reveal", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var revealed struct {
		APIKey string `json:"api_key"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&revealed))
	assert.Equal(t, "sk-ant-0123456789", revealed.APIKey)
}

func TestNew_SQLiteBackend(t *testing.T) {
	cfg := testConfig()
	a := newApp(t, cfg)

	h := a.Router(t.Context())
	assert.Equal(t, http.StatusOK, call(t, h, cfg, "", http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(t, h, cfg, "", http.MethodGet, "/v1/roles/me", "").Code)

	storeAndReveal(t, a, cfg)
}

func TestNew_RedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.SecretBackend = config.BackendRedis
	cfg.Redis.Addr = mr.Addr()

	a := newApp(t, cfg)
	storeAndReveal(t, a, cfg)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], secretstore.RedisKeyPrefix))
}

func TestNew_Errors(t *testing.T) {
	writeDB, readDB := internaldb.OpenTestSQLite(t)
	logger := slog.New(slog.DiscardHandler)

	cfg := testConfig()
	cfg.EncryptionKey = "not-hex"
	_, err := New(context.Background(), Deps{Cfg: cfg, WriteDB: writeDB, ReadDB: readDB, Logger: logger})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encryption key")

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	cfg = testConfig()
	cfg.SecretBackend = config.BackendRedis
	cfg.Redis.Addr = addr
	_, err = New(context.Background(), Deps{Cfg: cfg, WriteDB: writeDB, ReadDB: readDB, Logger: logger})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis secret backend")
}

func TestNewValidator(t *testing.T) {
	v, err := NewValidator(context.Background(), config.AuthConfig{JWTSecret: "s", JWTIssuer: "i"})
	require.NoError(t, err)
	assert.IsType(t, &middleware.HS256Validator{}, v)

	v, err = NewValidator(context.Background(), config.AuthConfig{
		JWKSURL:   "https://idp.example.com/.well-known/jwks.json",
		IssuerURL: "https://idp.example.com",
		Audience:  "keyshelf",
	})
	require.NoError(t, err)
	assert.IsType(t, &middleware.OIDCValidator{}, v)

	_, err = NewValidator(context.Background(), config.AuthConfig{})
	require.Error(t, err)
}

func TestSweeperWired(t *testing.T) {
	a := newApp(t, testConfig())
	require.NoError(t, a.Sweeper.Start())
	t.Cleanup(a.Sweeper.Stop)
	assert.False(t, a.Sweeper.Next().IsZero())

	n, err := a.Sweeper.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
