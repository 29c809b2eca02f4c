package testutil

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3" // register sqlite3 driver
	"github.com/stretchr/testify/require"

	internaldb "keyshelf/internal/db"
	"keyshelf/internal/db/repository"
	"keyshelf/internal/domain"
)

// Env is a migrated temp SQLite database with every repository wired.
type Env struct {
	DB         *sql.DB
	Principals *repository.PrincipalRepo
	Roles      *repository.RoleRepo
	Providers  *repository.ProviderRepo
	Tiers      *repository.TierRepo
	Secrets    *repository.SecretRepo
	Grants     *repository.GrantRepo
}

// NewEnv creates an Env cleaned up with t.
func NewEnv(t *testing.T) *Env {
	t.Helper()
	writeDB, _ := internaldb.OpenTestSQLite(t)
	return &Env{
		DB:         writeDB,
		Principals: repository.NewPrincipalRepo(writeDB),
		Roles:      repository.NewRoleRepo(writeDB),
		Providers:  repository.NewProviderRepo(writeDB),
		Tiers:      repository.NewTierRepo(writeDB),
		Secrets:    repository.NewSecretRepo(writeDB),
		Grants:     repository.NewGrantRepo(writeDB),
	}
}

// Principal provisions a principal named name with no role.
func (e *Env) Principal(t *testing.T, name string) domain.ContextPrincipal {
	t.Helper()
	p, err := e.Principals.ResolveOrProvision(context.Background(), domain.ResolveOrProvisionRequest{
		Issuer:     "test",
		ExternalID: name,
		Email:      name + "@example.com",
	})
	require.NoError(t, err)
	return domain.ContextPrincipal{ID: p.ID, Email: p.Email}
}

// Administrator provisions a principal and makes it the tenant administrator.
func (e *Env) Administrator(t *testing.T, name string) domain.ContextPrincipal {
	t.Helper()
	p := e.Principal(t, name)
	_, err := e.Roles.CreateFirstAdministrator(context.Background(), p.ID)
	require.NoError(t, err)
	return p
}

// Member provisions a principal with the member role and returns it with its
// role assignment ID.
func (e *Env) Member(t *testing.T, name string) (domain.ContextPrincipal, string) {
	t.Helper()
	p := e.Principal(t, name)
	a, err := e.Roles.Create(context.Background(), p.ID, domain.RoleMember)
	require.NoError(t, err)
	return p, a.ID
}

// Provider creates an active provider owned by owner.
func (e *Env) Provider(t *testing.T, owner domain.ContextPrincipal, name string) *domain.Provider {
	t.Helper()
	p, err := e.Providers.Create(context.Background(), owner.ID, domain.ProviderInput{Name: name})
	require.NoError(t, err)
	return p
}

// Ctx returns a background context carrying p as the caller.
func Ctx(p domain.ContextPrincipal) context.Context {
	return domain.WithPrincipal(context.Background(), p)
}
