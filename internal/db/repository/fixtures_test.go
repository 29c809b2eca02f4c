package repository

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	internaldb "keyshelf/internal/db"
	"keyshelf/internal/domain"
)

type repos struct {
	db         *sql.DB
	readDB     *sql.DB
	principals *PrincipalRepo
	roles      *RoleRepo
	providers  *ProviderRepo
	tiers      *TierRepo
	secrets    *SecretRepo
	grants     *GrantRepo
}

func setupRepos(t *testing.T) *repos {
	t.Helper()
	writeDB, readDB := internaldb.OpenTestSQLite(t)
	return &repos{
		db:         writeDB,
		readDB:     readDB,
		principals: NewPrincipalRepo(writeDB).WithReadPool(readDB),
		roles:      NewRoleRepo(writeDB).WithReadPool(readDB),
		providers:  NewProviderRepo(writeDB).WithReadPool(readDB),
		tiers:      NewTierRepo(writeDB).WithReadPool(readDB),
		secrets:    NewSecretRepo(writeDB).WithReadPool(readDB),
		grants:     NewGrantRepo(writeDB).WithReadPool(readDB),
	}
}

func (r *repos) principal(t *testing.T, name string) *domain.Principal {
	t.Helper()
	p, err := r.principals.ResolveOrProvision(context.Background(), domain.ResolveOrProvisionRequest{
		Issuer:     "test",
		ExternalID: name,
		Email:      name + "@example.com",
	})
	require.NoError(t, err)
	return p
}

func (r *repos) provider(t *testing.T, ownerID, name string, tierID *string) *domain.Provider {
	t.Helper()
	p, err := r.providers.Create(context.Background(), ownerID, domain.ProviderInput{Name: name, TierID: tierID})
	require.NoError(t, err)
	return p
}

func (r *repos) secret(t *testing.T, ownerID, providerID, label string) *domain.SecretRecord {
	t.Helper()
	rec, err := r.secrets.Create(context.Background(), &domain.SecretRecord{
		OwnerID:    ownerID,
		ProviderID: providerID,
		Label:      label,
		KeyPrefix:  "sk-abc1",
		Handle:     domain.SecretHandle(domain.NewID()),
	})
	require.NoError(t, err)
	return rec
}
