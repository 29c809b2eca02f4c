package domain

import (
	"strings"
	"time"
)

// Provider is a named external account descriptor. Soft-deleted providers are
// never returned by repository reads.
type Provider struct {
	ID                 string
	OwnerID            string
	Name               string
	WebsiteURL         *string
	MainThreadURL      *string
	RechargeURL        *string
	RechargeURL2       *string
	TierID             *string
	Remarks            *string
	RequiresDailyLogin bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ProviderWithTier is a provider joined with its optional tier.
type ProviderWithTier struct {
	Provider
	Tier *Tier
}

// ProviderInput holds the editable fields of a provider.
type ProviderInput struct {
	Name               string
	WebsiteURL         *string
	MainThreadURL      *string
	RechargeURL        *string
	RechargeURL2       *string
	TierID             *string
	Remarks            *string
	RequiresDailyLogin bool
}

// Validate trims the input and checks required fields. Blank optional fields
// are normalized to nil.
func (in *ProviderInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return ErrValidation("provider name is required")
	}
	in.WebsiteURL = trimOptional(in.WebsiteURL)
	in.MainThreadURL = trimOptional(in.MainThreadURL)
	in.RechargeURL = trimOptional(in.RechargeURL)
	in.RechargeURL2 = trimOptional(in.RechargeURL2)
	in.TierID = trimOptional(in.TierID)
	in.Remarks = trimOptional(in.Remarks)
	return nil
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
