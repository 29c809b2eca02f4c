package domain

import (
	"strings"
	"time"
)

// KeyPrefixLen is the number of leading plaintext characters kept for display.
const KeyPrefixLen = 7

// keyPrefixHidden is the minimum number of trailing characters never exposed
// through the prefix, so very short keys are not stored in full.
const keyPrefixHidden = 2

// SecretHandle is an opaque reference issued by the secret store. It stands in
// for plaintext in all application rows.
type SecretHandle string

// SecretRecord is a stored API key entry. It never carries plaintext.
type SecretRecord struct {
	ID         string
	OwnerID    string
	ProviderID string
	Label      string
	KeyPrefix  string
	Handle     SecretHandle
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SecretWithProvider is a secret record annotated with its provider name.
type SecretWithProvider struct {
	SecretRecord
	ProviderName string
}

// SharedSecret is the member-facing view of a secret shared with the caller.
type SharedSecret struct {
	SecretID        string
	Label           string
	KeyPrefix       string
	KeyCreatedAt    time.Time
	ProviderID      string
	ProviderName    string
	WebsiteURL      *string
	ProviderRemarks *string
	TierID          *string
	TierName        *string
	TierLabel       *string
	TierColor       *string
	TierSortOrder   *int
	SharedBy        string
	SharedAt        time.Time
}

// CreateSecretRequest holds parameters for storing a new secret.
type CreateSecretRequest struct {
	ProviderID string
	Label      string
	Plaintext  string
}

// Validate trims the request and checks required fields.
func (r *CreateSecretRequest) Validate() error {
	r.ProviderID = strings.TrimSpace(r.ProviderID)
	r.Label = strings.TrimSpace(r.Label)
	r.Plaintext = strings.TrimSpace(r.Plaintext)
	if r.ProviderID == "" {
		return ErrValidation("provider_id is required")
	}
	if r.Label == "" {
		return ErrValidation("label is required")
	}
	if r.Plaintext == "" {
		return ErrValidation("api key is required")
	}
	return nil
}

// KeyPrefix derives the display prefix of a plaintext key: its first
// KeyPrefixLen characters, shortened so that at least keyPrefixHidden
// characters always stay hidden.
func KeyPrefix(plaintext string) string {
	runes := []rune(plaintext)
	n := KeyPrefixLen
	if limit := len(runes) - keyPrefixHidden; limit < n {
		n = limit
	}
	if n <= 0 {
		return ""
	}
	return string(runes[:n])
}
