package domain

import "context"

// PrincipalRepository stores identities provisioned from the identity provider.
type PrincipalRepository interface {
	ResolveOrProvision(ctx context.Context, req ResolveOrProvisionRequest) (*Principal, error)
	GetByID(ctx context.Context, id string) (*Principal, error)
	GetByEmail(ctx context.Context, email string) (*Principal, error)
}

// RoleRepository stores role assignments.
type RoleRepository interface {
	// GetForPrincipal returns RoleNone when the principal has no assignment.
	GetForPrincipal(ctx context.Context, principalID string) (Role, error)
	GetByID(ctx context.Context, id string) (*RoleAssignment, error)
	// CreateFirstAdministrator inserts an administrator assignment only if no
	// assignment exists tenant-wide, atomically.
	CreateFirstAdministrator(ctx context.Context, principalID string) (*RoleAssignment, error)
	Create(ctx context.Context, principalID string, role Role) (*RoleAssignment, error)
	// DeleteWithGrants removes the assignment and every share grant naming the
	// principal as grantee in one transaction. It returns the pruned grant count.
	DeleteWithGrants(ctx context.Context, id string) (int64, error)
	List(ctx context.Context) ([]Member, error)
	ListByRole(ctx context.Context, role Role) ([]Member, error)
}

// ProviderRepository stores providers. All reads exclude soft-deleted rows.
type ProviderRepository interface {
	Create(ctx context.Context, ownerID string, in ProviderInput) (*Provider, error)
	Update(ctx context.Context, id string, in ProviderInput) (*Provider, error)
	GetByID(ctx context.Context, id string) (*ProviderWithTier, error)
	List(ctx context.Context) ([]ProviderWithTier, error)
	ListByOwner(ctx context.Context, ownerID string) ([]ProviderWithTier, error)
	ListRequiringDailyLogin(ctx context.Context) ([]ProviderWithTier, error)
	SoftDelete(ctx context.Context, id string) error
}

// TierRepository stores tiers.
type TierRepository interface {
	Create(ctx context.Context, ownerID string, in TierInput) (*Tier, error)
	CreateMany(ctx context.Context, ownerID string, in []TierInput) error
	Update(ctx context.Context, id string, in TierInput) (*Tier, error)
	GetByID(ctx context.Context, id string) (*Tier, error)
	GetByName(ctx context.Context, name string) (*Tier, error)
	List(ctx context.Context) ([]Tier, error)
	Count(ctx context.Context) (int64, error)
	// DeleteUnreferenced deletes the tier unless an active provider references it.
	DeleteUnreferenced(ctx context.Context, id string) error
}

// SecretRepository stores secret records. All reads exclude soft-deleted rows.
type SecretRepository interface {
	Create(ctx context.Context, rec *SecretRecord) (*SecretRecord, error)
	GetOwned(ctx context.Context, id, ownerID string) (*SecretRecord, error)
	// FindRevealable returns the active record if callerID owns it or holds a
	// grant for it, and NotFoundError otherwise.
	FindRevealable(ctx context.Context, id, callerID string) (*SecretRecord, error)
	ListForProvider(ctx context.Context, ownerID, providerID string) ([]SecretRecord, error)
	ListByOwner(ctx context.Context, ownerID string) ([]SecretWithProvider, error)
	UpdateLabel(ctx context.Context, id, ownerID, label string) (*SecretRecord, error)
	SoftDelete(ctx context.Context, id, ownerID string) error
}

// GrantRepository stores share grants.
type GrantRepository interface {
	Create(ctx context.Context, g *ShareGrant) (*ShareGrant, error)
	Exists(ctx context.Context, secretID, granteeID string) (bool, error)
	Delete(ctx context.Context, secretID, granteeID, grantedByID string) (int64, error)
	ListSharedWith(ctx context.Context, granteeID string) ([]SharedSecret, error)
	ListGrantedBy(ctx context.Context, grantedByID string) ([]ShareGrant, error)
	// DeleteOrphaned removes grants whose grantee no longer holds the member role.
	DeleteOrphaned(ctx context.Context) (int64, error)
}
