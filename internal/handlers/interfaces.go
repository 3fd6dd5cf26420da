package handlers

import (
	"context"
	"time"

	"github.com/dimitrije/washdesk-api/internal/models"
	"github.com/dimitrije/washdesk-api/internal/services"
	"github.com/dimitrije/washdesk-api/internal/session"
	"github.com/dimitrije/washdesk-api/internal/sse"
	"github.com/google/uuid"
)

// SessionRegistry defines the methods used by handlers from session.Registry
type SessionRegistry interface {
	Get(sessionID uuid.UUID) (*session.Store, bool)
	GetOrCreate(sessionID uuid.UUID) (*session.Store, error)
	Remove(sessionID uuid.UUID)
}

// SessionTokenServiceInterface defines the methods used by handlers from JWTService
type SessionTokenServiceInterface interface {
	GenerateSessionToken(sessionID uuid.UUID) (string, error)
	ValidateSessionToken(token string) (uuid.UUID, error)
	Expiry() time.Duration
}

// SignInFlow defines the methods used by handlers from identity.Flow
type SignInFlow interface {
	Complete(ctx context.Context, state, code string) (uuid.UUID, *models.Actor, error)
}

// InviteServiceInterface defines the methods used by handlers from InviteService
type InviteServiceInterface interface {
	Create(ctx context.Context, params services.CreateInviteParams) (*models.Invite, error)
	ListPending(ctx context.Context, shopID string) ([]models.Invite, error)
	Cancel(ctx context.Context, inviteID uuid.UUID, shopID string) error
}

// ProfileListerInterface defines the methods used by handlers from ProfileService
type ProfileListerInterface interface {
	ListByShop(ctx context.Context, shopID string) ([]models.Profile, error)
}

// SessionEventsHub defines the methods used by handlers from sse.Hub
type SessionEventsHub interface {
	Register(client *sse.Client)
	Unregister(client *sse.Client)
}

// InviteMailerInterface defines the methods used by handlers from EmailService
type InviteMailerInterface interface {
	SendInvite(to, inviterName string, role models.Role, signInURL string) error
}

// AuditServiceInterface defines the methods used by handlers from AuditService
type AuditServiceInterface interface {
	Record(ctx context.Context, entry models.AuditEntry) error
	Recent(ctx context.Context, shopID string, limit int) ([]models.AuditEntry, error)
}
