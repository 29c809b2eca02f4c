// Package middleware provides HTTP middleware for bearer-token authentication,
// request IDs, request logging, and rate limiting.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"

	"keyshelf/internal/domain"
)

// ErrMissingSubject is returned when a verified token carries no subject.
var ErrMissingSubject = errors.New("token has no subject")

// JWTClaims holds the parsed claims from a validated JWT.
type JWTClaims struct {
	Subject  string
	Issuer   string
	Audience []string
	Email    *string
	Name     *string
	Raw      map[string]interface{}
}

// ProvisionRequest maps the identity claims onto a principal lookup.
func (c *JWTClaims) ProvisionRequest() domain.ResolveOrProvisionRequest {
	req := domain.ResolveOrProvisionRequest{
		Issuer:     c.Issuer,
		ExternalID: c.Subject,
	}
	if c.Email != nil {
		req.Email = *c.Email
	}
	if c.Name != nil {
		req.DisplayName = *c.Name
	}
	return req
}

// JWTValidator validates a JWT token and returns the parsed claims.
type JWTValidator interface {
	Validate(ctx context.Context, tokenString string) (*JWTClaims, error)
}

// OIDCValidator validates JWTs using OIDC discovery and JWKS.
type OIDCValidator struct {
	verifier       *oidc.IDTokenVerifier
	allowedIssuers map[string]bool
}

// HS256Validator validates JWTs signed with a shared HS256 secret. Used for
// local development and the token CLI.
type HS256Validator struct {
	secret []byte
	issuer string
}

// NewOIDCValidator creates a validator from an OIDC issuer URL.
func NewOIDCValidator(ctx context.Context, issuerURL, audience string, allowedIssuers []string) (*OIDCValidator, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc provider discovery: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: audience})
	return &OIDCValidator{verifier: verifier, allowedIssuers: issuerSet(issuerURL, allowedIssuers)}, nil
}

// NewOIDCValidatorFromJWKS creates a validator from a JWKS URL (no OIDC discovery).
func NewOIDCValidatorFromJWKS(ctx context.Context, jwksURL, issuerURL, audience string, allowedIssuers []string) (*OIDCValidator, error) {
	keySet := oidc.NewRemoteKeySet(ctx, jwksURL)
	verifier := oidc.NewVerifier(issuerURL, keySet, &oidc.Config{ClientID: audience})
	return &OIDCValidator{verifier: verifier, allowedIssuers: issuerSet(issuerURL, allowedIssuers)}, nil
}

// issuerSet builds the issuer allowlist, falling back to the configured issuer.
func issuerSet(issuerURL string, allowed []string) map[string]bool {
	issuers := make(map[string]bool, len(allowed))
	for _, iss := range allowed {
		if iss != "" {
			issuers[iss] = true
		}
	}
	if len(issuers) == 0 && issuerURL != "" {
		issuers[issuerURL] = true
	}
	return issuers
}

// NewHS256Validator creates a validator for HS256 tokens. Tokens without an
// iss claim are attributed to issuer.
func NewHS256Validator(secret, issuer string) (*HS256Validator, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret is required")
	}
	if issuer == "" {
		return nil, fmt.Errorf("JWT issuer is required")
	}
	return &HS256Validator{secret: []byte(secret), issuer: issuer}, nil
}

// Validate verifies the JWT using the OIDC provider's JWKS.
func (v *OIDCValidator) Validate(ctx context.Context, tokenString string) (*JWTClaims, error) {
	idToken, err := v.verifier.Verify(ctx, tokenString)
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}
	if len(v.allowedIssuers) > 0 && !v.allowedIssuers[idToken.Issuer] {
		return nil, fmt.Errorf("issuer %q not in allowed list", idToken.Issuer)
	}
	if idToken.Subject == "" {
		return nil, ErrMissingSubject
	}

	var raw map[string]interface{}
	if err := idToken.Claims(&raw); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}

	claims := &JWTClaims{
		Subject:  idToken.Subject,
		Issuer:   idToken.Issuer,
		Audience: idToken.Audience,
		Raw:      raw,
	}
	claims.Email, claims.Name = identityClaims(raw)
	return claims, nil
}

// Validate verifies a JWT signed with HS256 and extracts claims.
func (v *HS256Validator) Validate(_ context.Context, tokenString string) (*JWTClaims, error) {
	tok, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method == nil || token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}

	raw, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("parse claims: unsupported claim type %T", tok.Claims)
	}

	claims := &JWTClaims{Raw: map[string]interface{}(raw), Issuer: v.issuer}
	if sub, ok := raw["sub"].(string); ok {
		claims.Subject = sub
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}
	if iss, ok := raw["iss"].(string); ok && iss != "" {
		if iss != v.issuer {
			return nil, fmt.Errorf("issuer %q not in allowed list", iss)
		}
	}
	claims.Email, claims.Name = identityClaims(raw)

	switch aud := raw["aud"].(type) {
	case string:
		claims.Audience = []string{aud}
	case []interface{}:
		for _, a := range aud {
			if s, ok := a.(string); ok {
				claims.Audience = append(claims.Audience, s)
			}
		}
	}
	return claims, nil
}

func identityClaims(raw map[string]interface{}) (email, name *string) {
	if e, ok := raw["email"].(string); ok && e != "" {
		email = &e
	}
	if n, ok := raw["name"].(string); ok && n != "" {
		name = &n
	}
	return email, name
}

// MintHS256 signs a token accepted by an HS256Validator configured with the
// same secret and issuer.
func MintHS256(secret, issuer, subject, email string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("JWT secret is required")
	}
	if subject == "" {
		return "", ErrMissingSubject
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   subject,
		"iss":   issuer,
		"email": email,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
