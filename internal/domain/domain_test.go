package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVaultError_HidesCause(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.7:6379: connection refused")

	werr := ErrVaultWrite(cause)
	assert.Equal(t, "secret store write failed", werr.Error())
	assert.True(t, werr.Retryable())
	assert.ErrorIs(t, werr, cause)

	rerr := fmt.Errorf("reveal: %w", ErrVaultRead(cause))
	var verr *VaultError
	require.ErrorAs(t, rerr, &verr)
	assert.Equal(t, VaultOpRead, verr.Op)
	assert.NotContains(t, verr.Error(), "10.0.0.7")
}

func TestErrConflictKind(t *testing.T) {
	err := ErrConflictKind(ConflictAlreadyShared, "key %s already shared", "k1")
	assert.Equal(t, ConflictAlreadyShared, err.Kind)
	assert.Equal(t, "key k1 already shared", err.Error())
	assert.Equal(t, ConflictGeneric, ErrConflict("x").Kind)
}

func TestRole_StringAndParse(t *testing.T) {
	for _, r := range []Role{RoleNone, RoleMember, RoleAdministrator} {
		got, err := ParseRole(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}

	got, err := ParseRole("  Administrator ")
	require.NoError(t, err)
	assert.Equal(t, RoleAdministrator, got)

	got, err = ParseRole("")
	require.NoError(t, err)
	assert.Equal(t, RoleNone, got)

	_, err = ParseRole("owner")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	assert.Equal(t, "invalid", Role(42).String())
}

func TestResolveOrProvisionRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     ResolveOrProvisionRequest
		wantErr string
	}{
		{name: "valid", req: ResolveOrProvisionRequest{Issuer: "iss", ExternalID: "sub", Email: " Bob@Example.com "}},
		{name: "missing subject", req: ResolveOrProvisionRequest{Issuer: "iss", Email: "a@b.c"}, wantErr: "external_id"},
		{name: "missing issuer", req: ResolveOrProvisionRequest{ExternalID: "sub", Email: "a@b.c"}, wantErr: "issuer"},
		{name: "missing email", req: ResolveOrProvisionRequest{Issuer: "iss", ExternalID: "sub", Email: "  "}, wantErr: "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "bob@example.com", tt.req.Email)
		})
	}
}

func TestKeyPrefix(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "sk-live-0123456789", want: "sk-live"},
		{in: "abcdefghi", want: "abcdefg"},
		{in: "abcdefgh", want: "abcdef"},
		{in: "abc", want: "a"},
		{in: "ab", want: ""},
		{in: "", want: ""},
		{in: "ключ-секрет", want: "ключ-се"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, KeyPrefix(tt.in))
		})
	}
}

func TestCreateSecretRequest_Validate(t *testing.T) {
	req := CreateSecretRequest{ProviderID: " p1 ", Label: " prod ", Plaintext: " sk-1234567 "}
	require.NoError(t, req.Validate())
	assert.Equal(t, "p1", req.ProviderID)
	assert.Equal(t, "prod", req.Label)
	assert.Equal(t, "sk-1234567", req.Plaintext)

	for _, bad := range []CreateSecretRequest{
		{Label: "l", Plaintext: "k"},
		{ProviderID: "p", Plaintext: "k"},
		{ProviderID: "p", Label: "l", Plaintext: "   "},
	} {
		err := bad.Validate()
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	}
}

func TestProviderInput_Validate(t *testing.T) {
	blank := "  "
	url := " https://example.com "
	in := ProviderInput{Name: " OpenAI ", WebsiteURL: &url, Remarks: &blank}
	require.NoError(t, in.Validate())
	assert.Equal(t, "OpenAI", in.Name)
	require.NotNil(t, in.WebsiteURL)
	assert.Equal(t, "https://example.com", *in.WebsiteURL)
	assert.Nil(t, in.Remarks)

	empty := ProviderInput{Name: " "}
	assert.Error(t, empty.Validate())
}

func TestTierInput_Validate(t *testing.T) {
	in := TierInput{Name: "S", Label: "S Tier"}
	require.NoError(t, in.Validate())
	assert.Equal(t, DefaultTierColor, in.Color)

	assert.Error(t, (&TierInput{Label: "x"}).Validate())
	assert.Error(t, (&TierInput{Name: "x"}).Validate())

	tiers := DefaultTiers()
	require.Len(t, tiers, 5)
	for i, tier := range tiers {
		assert.Equal(t, i, tier.SortOrder)
	}
}

func TestCallerFromContext(t *testing.T) {
	_, err := CallerFromContext(context.Background())
	var uerr *UnauthenticatedError
	require.ErrorAs(t, err, &uerr)

	_, err = CallerFromContext(WithPrincipal(context.Background(), ContextPrincipal{}))
	require.ErrorAs(t, err, &uerr)

	ctx := WithPrincipal(context.Background(), ContextPrincipal{ID: "p1", Email: "a@b.c"})
	p, err := CallerFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
