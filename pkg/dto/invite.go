package dto

import (
	"github.com/dimitrije/washdesk-api/internal/rbac"
)

type CreateInviteRequest struct {
	Email       string         `json:"email" validate:"required,email,max=254"`
	Role        string         `json:"role,omitempty"`
	Permissions rbac.Overrides `json:"permissions,omitempty"`
	ShopID      *string        `json:"shop_id,omitempty"`
}
