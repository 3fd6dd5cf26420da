package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/dimitrije/washdesk-api/internal/rbac"
)

type Role string

const (
	RoleSuperAdmin     Role = "superadmin"
	RoleAdmin          Role = "admin"
	RoleManager        Role = "manager"
	RoleSeniorEmployee Role = "senior_employee"
	RoleEmployee       Role = "employee"
)

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleManager, RoleSeniorEmployee, RoleEmployee:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

type ProfileStatus string

const (
	StatusApproved ProfileStatus = "approved"
	StatusPending  ProfileStatus = "pending"
	StatusRejected ProfileStatus = "rejected"
)

func ParseProfileStatus(s string) (ProfileStatus, error) {
	st := ProfileStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusApproved, StatusPending, StatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown profile status %q", s)
}

// HeadOffice is the shop id of the network-wide tenant.
const HeadOffice = "HEAD_OFFICE"

// Profile is the per-actor record keyed by the actor id.
type Profile struct {
	ID              string         `json:"id"`
	Email           string         `json:"email"`
	DisplayName     string         `json:"display_name"`
	AvatarURL       *string        `json:"avatar_url,omitempty"`
	Phone           *string        `json:"phone,omitempty"`
	Role            Role           `json:"role"`
	Status          ProfileStatus  `json:"status"`
	Permissions     rbac.Overrides `json:"permissions,omitempty"`
	ShopID          string         `json:"shop_id"`
	NeedsOnboarding bool           `json:"needs_onboarding"`
	InvitedBy       *string        `json:"invited_by,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (p *Profile) RoleName() string {
	if p == nil {
		return ""
	}
	return string(p.Role)
}

func (p *Profile) PermissionOverrides() rbac.Overrides {
	if p == nil {
		return nil
	}
	return p.Permissions
}

func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	if p.Permissions != nil {
		c.Permissions = make(rbac.Overrides, len(p.Permissions))
		for k, v := range p.Permissions {
			c.Permissions[k] = v
		}
	}
	return &c
}

// ProfileUpdate carries the fields an actor may change on their own profile.
// Nil fields are left untouched.
type ProfileUpdate struct {
	DisplayName *string `json:"display_name,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
}

// Apply merges u into p and clears the onboarding flag.
func (u ProfileUpdate) Apply(p *Profile) {
	if u.DisplayName != nil {
		p.DisplayName = *u.DisplayName
	}
	if u.Phone != nil {
		p.Phone = u.Phone
	}
	if u.AvatarURL != nil {
		p.AvatarURL = u.AvatarURL
	}
	p.NeedsOnboarding = false
}
