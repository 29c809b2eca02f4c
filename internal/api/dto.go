package api

import (
	"time"

	"keyshelf/internal/domain"
)

// RevealDisplayTTL is how long clients may keep a revealed key on screen.
const RevealDisplayTTL = 30 * time.Second

type roleResponse struct {
	Role string `json:"role"`
}

type roleAssignmentResponse struct {
	ID          string    `json:"id"`
	PrincipalID string    `json:"principal_id"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

func toRoleAssignment(a *domain.RoleAssignment) roleAssignmentResponse {
	return roleAssignmentResponse{
		ID:          a.ID,
		PrincipalID: a.PrincipalID,
		Role:        a.Role.String(),
		CreatedAt:   a.CreatedAt,
	}
}

type memberResponse struct {
	RoleID      string    `json:"role_id"`
	PrincipalID string    `json:"principal_id"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

func toMembers(ms []domain.Member) []memberResponse {
	out := make([]memberResponse, len(ms))
	for i, m := range ms {
		out[i] = memberResponse{
			RoleID:      m.RoleID,
			PrincipalID: m.PrincipalID,
			Email:       m.Email,
			Role:        m.Role.String(),
			CreatedAt:   m.CreatedAt,
		}
	}
	return out
}

type addMemberRequest struct {
	Email string `json:"email"`
}

type tierResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Label       string    `json:"label"`
	Description *string   `json:"description"`
	Color       string    `json:"color"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toTier(t *domain.Tier) tierResponse {
	return tierResponse{
		ID:          t.ID,
		Name:        t.Name,
		Label:       t.Label,
		Description: t.Description,
		Color:       t.Color,
		SortOrder:   t.SortOrder,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func toTiers(ts []domain.Tier) []tierResponse {
	out := make([]tierResponse, len(ts))
	for i := range ts {
		out[i] = toTier(&ts[i])
	}
	return out
}

// tierRequest carries create fields and PATCH overlays; nil fields keep the
// current value on update.
type tierRequest struct {
	Name        *string `json:"name"`
	Label       *string `json:"label"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
	SortOrder   *int    `json:"sort_order"`
}

func (req tierRequest) apply(in domain.TierInput) domain.TierInput {
	if req.Name != nil {
		in.Name = *req.Name
	}
	if req.Label != nil {
		in.Label = *req.Label
	}
	if req.Description != nil {
		in.Description = req.Description
	}
	if req.Color != nil {
		in.Color = *req.Color
	}
	if req.SortOrder != nil {
		in.SortOrder = *req.SortOrder
	}
	return in
}

func tierInput(t *domain.Tier) domain.TierInput {
	return domain.TierInput{
		Name:        t.Name,
		Label:       t.Label,
		Description: t.Description,
		Color:       t.Color,
		SortOrder:   t.SortOrder,
	}
}

type providerResponse struct {
	ID                 string        `json:"id"`
	Name               string        `json:"name"`
	WebsiteURL         *string       `json:"website_url"`
	MainThreadURL      *string       `json:"main_thread_url"`
	RechargeURL        *string       `json:"recharge_url"`
	RechargeURL2       *string       `json:"recharge_url_2"`
	Remarks            *string       `json:"remarks"`
	RequiresDailyLogin bool          `json:"requires_daily_login"`
	TierID             *string       `json:"tier_id"`
	Tier               *tierResponse `json:"tier,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

func toProvider(p *domain.Provider, tier *domain.Tier) providerResponse {
	resp := providerResponse{
		ID:                 p.ID,
		Name:               p.Name,
		WebsiteURL:         p.WebsiteURL,
		MainThreadURL:      p.MainThreadURL,
		RechargeURL:        p.RechargeURL,
		RechargeURL2:       p.RechargeURL2,
		Remarks:            p.Remarks,
		RequiresDailyLogin: p.RequiresDailyLogin,
		TierID:             p.TierID,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
	if tier != nil {
		t := toTier(tier)
		resp.Tier = &t
	}
	return resp
}

func toProviders(ps []domain.ProviderWithTier) []providerResponse {
	out := make([]providerResponse, len(ps))
	for i := range ps {
		out[i] = toProvider(&ps[i].Provider, ps[i].Tier)
	}
	return out
}

// providerRequest carries create fields and PATCH overlays. An empty string
// clears an optional field.
type providerRequest struct {
	Name               *string `json:"name"`
	WebsiteURL         *string `json:"website_url"`
	MainThreadURL      *string `json:"main_thread_url"`
	RechargeURL        *string `json:"recharge_url"`
	RechargeURL2       *string `json:"recharge_url_2"`
	TierID             *string `json:"tier_id"`
	Remarks            *string `json:"remarks"`
	RequiresDailyLogin *bool   `json:"requires_daily_login"`
}

func (req providerRequest) apply(in domain.ProviderInput) domain.ProviderInput {
	if req.Name != nil {
		in.Name = *req.Name
	}
	if req.WebsiteURL != nil {
		in.WebsiteURL = req.WebsiteURL
	}
	if req.MainThreadURL != nil {
		in.MainThreadURL = req.MainThreadURL
	}
	if req.RechargeURL != nil {
		in.RechargeURL = req.RechargeURL
	}
	if req.RechargeURL2 != nil {
		in.RechargeURL2 = req.RechargeURL2
	}
	if req.TierID != nil {
		in.TierID = req.TierID
	}
	if req.Remarks != nil {
		in.Remarks = req.Remarks
	}
	if req.RequiresDailyLogin != nil {
		in.RequiresDailyLogin = *req.RequiresDailyLogin
	}
	return in
}

func providerInput(p *domain.Provider) domain.ProviderInput {
	return domain.ProviderInput{
		Name:               p.Name,
		WebsiteURL:         p.WebsiteURL,
		MainThreadURL:      p.MainThreadURL,
		RechargeURL:        p.RechargeURL,
		RechargeURL2:       p.RechargeURL2,
		TierID:             p.TierID,
		Remarks:            p.Remarks,
		RequiresDailyLogin: p.RequiresDailyLogin,
	}
}

// keyResponse never carries the secret handle or plaintext.
type keyResponse struct {
	ID           string    `json:"id"`
	ProviderID   string    `json:"provider_id"`
	ProviderName string    `json:"provider_name,omitempty"`
	Label        string    `json:"label"`
	KeyPrefix    string    `json:"key_prefix"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toKey(r *domain.SecretRecord) keyResponse {
	return keyResponse{
		ID:         r.ID,
		ProviderID: r.ProviderID,
		Label:      r.Label,
		KeyPrefix:  r.KeyPrefix,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func toKeys(rs []domain.SecretRecord) []keyResponse {
	out := make([]keyResponse, len(rs))
	for i := range rs {
		out[i] = toKey(&rs[i])
	}
	return out
}

func toKeysWithProvider(rs []domain.SecretWithProvider) []keyResponse {
	out := make([]keyResponse, len(rs))
	for i := range rs {
		out[i] = toKey(&rs[i].SecretRecord)
		out[i].ProviderName = rs[i].ProviderName
	}
	return out
}

type createKeyRequest struct {
	ProviderID string `json:"provider_id"`
	Label      string `json:"label"`
	APIKey     string `json:"api_key"`
}

type updateKeyRequest struct {
	Label string `json:"label"`
}

type revealResponse struct {
	ID                string `json:"id"`
	APIKey            string `json:"api_key"`
	DisplayTTLSeconds int    `json:"display_ttl_seconds"`
}

type grantResponse struct {
	ID        string    `json:"id"`
	KeyID     string    `json:"key_id"`
	GranteeID string    `json:"grantee_id"`
	SharedBy  string    `json:"shared_by"`
	CreatedAt time.Time `json:"created_at"`
}

func toGrant(g *domain.ShareGrant) grantResponse {
	return grantResponse{
		ID:        g.ID,
		KeyID:     g.SecretID,
		GranteeID: g.GranteeID,
		SharedBy:  g.GrantedByID,
		CreatedAt: g.CreatedAt,
	}
}

type sharedKeyResponse struct {
	KeyID           string    `json:"key_id"`
	Label           string    `json:"label"`
	KeyPrefix       string    `json:"key_prefix"`
	KeyCreatedAt    time.Time `json:"key_created_at"`
	ProviderID      string    `json:"provider_id"`
	ProviderName    string    `json:"provider_name"`
	WebsiteURL      *string   `json:"website_url"`
	ProviderRemarks *string   `json:"provider_remarks"`
	TierID          *string   `json:"tier_id"`
	TierName        *string   `json:"tier_name"`
	TierLabel       *string   `json:"tier_label"`
	TierColor       *string   `json:"tier_color"`
	TierSortOrder   *int      `json:"tier_sort_order"`
	SharedBy        string    `json:"shared_by"`
	SharedAt        time.Time `json:"shared_at"`
}

func toSharedKeys(ss []domain.SharedSecret) []sharedKeyResponse {
	out := make([]sharedKeyResponse, len(ss))
	for i, s := range ss {
		out[i] = sharedKeyResponse{
			KeyID:           s.SecretID,
			Label:           s.Label,
			KeyPrefix:       s.KeyPrefix,
			KeyCreatedAt:    s.KeyCreatedAt,
			ProviderID:      s.ProviderID,
			ProviderName:    s.ProviderName,
			WebsiteURL:      s.WebsiteURL,
			ProviderRemarks: s.ProviderRemarks,
			TierID:          s.TierID,
			TierName:        s.TierName,
			TierLabel:       s.TierLabel,
			TierColor:       s.TierColor,
			TierSortOrder:   s.TierSortOrder,
			SharedBy:        s.SharedBy,
			SharedAt:        s.SharedAt,
		}
	}
	return out
}

type sharingKeyResponse struct {
	KeyID      string   `json:"key_id"`
	Label      string   `json:"label"`
	KeyPrefix  string   `json:"key_prefix"`
	SharedWith []string `json:"shared_with"`
}

type sharingProviderResponse struct {
	ID   string               `json:"id"`
	Name string               `json:"name"`
	Keys []sharingKeyResponse `json:"keys"`
}

type sharingOverviewResponse struct {
	Providers []sharingProviderResponse `json:"providers"`
	Members   []memberResponse          `json:"members"`
}

func toOverview(o *domain.SharingOverview) sharingOverviewResponse {
	resp := sharingOverviewResponse{
		Providers: make([]sharingProviderResponse, len(o.Providers)),
		Members:   toMembers(o.Members),
	}
	for i, p := range o.Providers {
		keys := make([]sharingKeyResponse, len(p.Keys))
		for j, k := range p.Keys {
			with := k.SharedWith
			if with == nil {
				with = []string{}
			}
			keys[j] = sharingKeyResponse{KeyID: k.SecretID, Label: k.Label, KeyPrefix: k.KeyPrefix, SharedWith: with}
		}
		resp.Providers[i] = sharingProviderResponse{ID: p.ID, Name: p.Name, Keys: keys}
	}
	return resp
}

type listResponse[T any] struct {
	Items []T `json:"items"`
}
