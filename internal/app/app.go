// Package app provides application-level wiring and dependency injection
// for keyshelf.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"keyshelf/internal/api"
	"keyshelf/internal/config"
	"keyshelf/internal/db/crypto"
	"keyshelf/internal/db/repository"
	"keyshelf/internal/middleware"
	"keyshelf/internal/secretstore"
	"keyshelf/internal/service/catalog"
	"keyshelf/internal/service/hygiene"
	"keyshelf/internal/service/security"
	"keyshelf/internal/service/sharing"
	"keyshelf/internal/service/vault"
)

// Deps holds the external dependencies that main() must provide.
type Deps struct {
	Cfg     *config.Config
	WriteDB *sql.DB
	ReadDB  *sql.DB
	Logger  *slog.Logger
	// Validator overrides the token validator built from Cfg.Auth.
	Validator middleware.JWTValidator
}

// App holds the fully-wired application.
type App struct {
	Services   api.Services
	Principals *security.PrincipalService
	Sweeper    *hygiene.Sweeper
	Validator  middleware.JWTValidator

	cfg     *config.Config
	readDB  *sql.DB
	logger  *slog.Logger
	closers []io.Closer
}

// New wires repositories, the secret store, and services from deps.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg
	logger := deps.Logger

	enc, err := crypto.NewEncryptor(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key: %w", err)
	}

	a := &App{cfg: cfg, readDB: deps.ReadDB, logger: logger}

	backend, err := a.secretBackend(ctx, deps.WriteDB)
	if err != nil {
		return nil, err
	}
	store := secretstore.New(backend, enc, logger)

	// === Repositories (writes on the write pool, plain reads on the read pool) ===
	principalRepo := repository.NewPrincipalRepo(deps.WriteDB).WithReadPool(deps.ReadDB)
	roleRepo := repository.NewRoleRepo(deps.WriteDB).WithReadPool(deps.ReadDB)
	providerRepo := repository.NewProviderRepo(deps.WriteDB).WithReadPool(deps.ReadDB)
	tierRepo := repository.NewTierRepo(deps.WriteDB).WithReadPool(deps.ReadDB)
	secretRepo := repository.NewSecretRepo(deps.WriteDB).WithReadPool(deps.ReadDB)
	grantRepo := repository.NewGrantRepo(deps.WriteDB).WithReadPool(deps.ReadDB)

	// === Services ===
	a.Principals = security.NewPrincipalService(principalRepo)
	a.Services = api.Services{
		Roles:     security.NewRoleService(roleRepo, principalRepo, logger),
		Tiers:     catalog.NewTierService(tierRepo, roleRepo, logger),
		Providers: catalog.NewProviderService(providerRepo, tierRepo, roleRepo, logger),
		Vault:     vault.NewService(secretRepo, providerRepo, store, logger),
		Sharing:   sharing.NewService(grantRepo, secretRepo, roleRepo, providerRepo, logger),
	}
	a.Sweeper = hygiene.NewSweeper(grantRepo, cfg.SweepSchedule, logger)

	a.Validator = deps.Validator
	if a.Validator == nil {
		if a.Validator, err = NewValidator(ctx, cfg.Auth); err != nil {
			_ = a.Close()
			return nil, err
		}
	}
	return a, nil
}

func (a *App) secretBackend(ctx context.Context, writeDB *sql.DB) (secretstore.Backend, error) {
	switch a.cfg.SecretBackend {
	case config.BackendRedis:
		b, err := secretstore.NewRedisBackend(ctx, &redis.Options{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("redis secret backend: %w", err)
		}
		a.closers = append(a.closers, b)
		a.logger.Info("secret backend: redis", "addr", a.cfg.Redis.Addr)
		return b, nil
	default:
		a.logger.Info("secret backend: sqlite")
		return secretstore.NewSQLiteBackend(writeDB), nil
	}
}

// NewValidator builds the token validator: OIDC when an issuer or JWKS URL is
// configured, HS256 otherwise.
func NewValidator(ctx context.Context, auth config.AuthConfig) (middleware.JWTValidator, error) {
	switch {
	case auth.JWKSURL != "":
		return middleware.NewOIDCValidatorFromJWKS(ctx, auth.JWKSURL, auth.IssuerURL, auth.Audience, auth.AllowedIssuers)
	case auth.IssuerURL != "":
		return middleware.NewOIDCValidator(ctx, auth.IssuerURL, auth.Audience, auth.AllowedIssuers)
	default:
		return middleware.NewHS256Validator(auth.JWTSecret, auth.JWTIssuer)
	}
}

// Router builds the HTTP handler. Rate limiter state is released when ctx is done.
func (a *App) Router(ctx context.Context) http.Handler {
	h := api.NewHandler(a.Services, a.readDB, a.logger)
	return api.NewRouter(ctx, h, api.RouterConfig{
		Authenticate: middleware.Authenticate(a.Validator, a.Principals, a.logger.With("component", "auth")),
		CORSOrigins:  a.cfg.CORSAllowedOrigins,
		RateLimit: middleware.RateLimitConfig{
			RequestsPerSecond: a.cfg.RateLimitRPS,
			Burst:             a.cfg.RateLimitBurst,
		},
		RevealRateLimit: middleware.RateLimitConfig{
			RequestsPerSecond: a.cfg.RevealRateLimitRPS,
			Burst:             a.cfg.RevealRateLimitBurst,
		},
		RequestTimeout: a.cfg.RequestTimeout,
	})
}

// Close releases backend connections.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
