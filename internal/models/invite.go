package models

import (
	"time"

	"github.com/dimitrije/washdesk-api/internal/rbac"
	"github.com/google/uuid"
)

const (
	InviteStatusPending  = "pending"
	InviteStatusAccepted = "accepted"
)

type Invite struct {
	ID          uuid.UUID      `json:"id"`
	Email       string         `json:"email"`
	Role        Role           `json:"role,omitempty"`
	Permissions rbac.Overrides `json:"permissions,omitempty"`
	ShopID      *string        `json:"shop_id,omitempty"`
	Status      string         `json:"status"`
	InvitedBy   string         `json:"invited_by"`
	AcceptedBy  *string        `json:"accepted_by,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// BootstrapConfig is the singleton network bootstrap record.
type BootstrapConfig struct {
	Initialized       bool       `json:"initialized"`
	PrimaryAdminEmail *string    `json:"primary_admin_email,omitempty"`
	InitializedAt     *time.Time `json:"initialized_at,omitempty"`
}

type AuditEntry struct {
	ID        uuid.UUID `json:"id"`
	ActorID   *string   `json:"actor_id,omitempty"`
	Email     string    `json:"email"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
	// ShopID is the shop whose admins may read the entry.
	ShopID    string    `json:"shop_id"`
	CreatedAt time.Time `json:"created_at"`
}
