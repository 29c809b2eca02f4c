package domain

import (
	"strings"
	"time"
)

// DefaultTierColor is used when a tier is created without a color.
const DefaultTierColor = "bg-zinc-500 text-white"

// Tier is an ordering label optionally attached to providers.
type Tier struct {
	ID          string
	OwnerID     string
	Name        string
	Label       string
	Description *string
	Color       string
	SortOrder   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TierInput holds the editable fields of a tier.
type TierInput struct {
	Name        string
	Label       string
	Description *string
	Color       string
	SortOrder   int
}

// Validate trims the input and checks required fields.
func (in *TierInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Label = strings.TrimSpace(in.Label)
	if in.Name == "" {
		return ErrValidation("tier name is required")
	}
	if in.Label == "" {
		return ErrValidation("tier label is required")
	}
	in.Description = trimOptional(in.Description)
	in.Color = strings.TrimSpace(in.Color)
	if in.Color == "" {
		in.Color = DefaultTierColor
	}
	return nil
}

func strPtr(s string) *string { return &s }

// DefaultTiers is the starter ranking offered to a new tenant.
func DefaultTiers() []TierInput {
	return []TierInput{
		{Name: "S", Label: "S Tier", Description: strPtr("SOTA models, reliable source, excellent latency, premium quality"), Color: "bg-amber-500 text-white", SortOrder: 0},
		{Name: "A", Label: "A Tier", Description: strPtr("Great models, easy credits, source may vary"), Color: "bg-purple-500 text-white", SortOrder: 1},
		{Name: "B", Label: "B Tier", Description: strPtr("Good models, may lack SOTA or recharge options"), Color: "bg-blue-500 text-white", SortOrder: 2},
		{Name: "C", Label: "C Tier", Description: strPtr("Basic functionality, limited model selection"), Color: "bg-zinc-500 text-white", SortOrder: 3},
		{Name: "D", Label: "D Tier", Description: strPtr("Minimal features, use as backup only"), Color: "bg-zinc-400 text-white", SortOrder: 4},
	}
}
