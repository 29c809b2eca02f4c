package domain

import "time"

// ShareGrant is an access-control edge from a secret record to a member.
type ShareGrant struct {
	ID          string
	SecretID    string
	GranteeID   string
	GrantedByID string
	CreatedAt   time.Time
}

// SharingKey is an administrator-owned key together with the members it is
// currently shared with.
type SharingKey struct {
	SecretID     string
	Label        string
	KeyPrefix    string
	ProviderID   string
	ProviderName string
	SharedWith   []string
}

// SharingProvider groups an administrator's keys under their provider.
type SharingProvider struct {
	ID   string
	Name string
	Keys []SharingKey
}

// SharingOverview is the administrator's view of the sharing graph.
type SharingOverview struct {
	Providers []SharingProvider
	Members   []Member
}
