package dto

import (
	"github.com/dimitrije/washdesk-api/internal/rbac"
	"github.com/dimitrije/washdesk-api/internal/session"
)

type SessionResponse struct {
	session.Snapshot
	Capabilities map[rbac.Resource]rbac.Actions `json:"capabilities"`
}

type PermissionResponse struct {
	Resource rbac.Resource `json:"resource"`
	Action   rbac.Action   `json:"action,omitempty"`
	Allowed  bool          `json:"allowed"`
}

// UpdateProfileRequest changes only the fields that are present. An empty
// avatar_url clears the avatar.
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name,omitempty" validate:"omitnil,min=1,max=120"`
	Phone       *string `json:"phone,omitempty" validate:"omitnil,max=32,phone"`
	AvatarURL   *string `json:"avatar_url,omitempty" validate:"omitnil,eq=|http_url"`
}

type ScreenResponse struct {
	Screen  string       `json:"screen"`
	Title   string       `json:"title"`
	Actions rbac.Actions `json:"actions"`
}
