package domain

import (
	"strings"
	"time"
)

// Principal is a user identity provisioned from the identity provider.
type Principal struct {
	ID             string
	Email          string
	DisplayName    string
	ExternalID     string // IdP subject identifier (JWT `sub` claim)
	ExternalIssuer string // issuer that owns ExternalID
	CreatedAt      time.Time
}

// Role is the closed set of roles a principal can hold. A principal without a
// role assignment has RoleNone.
type Role int

// Roles. The zero value is RoleNone so an unset Role never grants anything.
const (
	RoleNone Role = iota
	RoleMember
	RoleAdministrator
)

// String returns the persisted name of the role.
func (r Role) String() string {
	switch r {
	case RoleNone:
		return "none"
	case RoleMember:
		return "member"
	case RoleAdministrator:
		return "administrator"
	default:
		return "invalid"
	}
}

// ParseRole maps a persisted role name to a Role.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return RoleNone, nil
	case "member":
		return RoleMember, nil
	case "administrator":
		return RoleAdministrator, nil
	default:
		return RoleNone, ErrValidation("unknown role %q", s)
	}
}

// RoleAssignment is a persisted role row. Deleting the row returns the
// principal to RoleNone.
type RoleAssignment struct {
	ID          string
	PrincipalID string
	Role        Role
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Member is a role assignment joined with the principal's email, as shown on
// the member administration view.
type Member struct {
	RoleID      string
	PrincipalID string
	Email       string
	Role        Role
	CreatedAt   time.Time
}

// ResolveOrProvisionRequest holds parameters for resolving or JIT-provisioning a principal.
type ResolveOrProvisionRequest struct {
	Issuer      string
	ExternalID  string
	Email       string
	DisplayName string
}

// Validate checks that the request is well-formed.
func (r *ResolveOrProvisionRequest) Validate() error {
	if r.ExternalID == "" {
		return ErrValidation("external_id is required")
	}
	if r.Issuer == "" {
		return ErrValidation("issuer is required")
	}
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if r.Email == "" {
		return ErrValidation("email claim is required")
	}
	return nil
}

// AddMemberRequest holds parameters for granting the member role.
type AddMemberRequest struct {
	Email string
}

// Validate checks that the request is well-formed.
func (r *AddMemberRequest) Validate() error {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if r.Email == "" {
		return ErrValidation("email is required")
	}
	return nil
}
