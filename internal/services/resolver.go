package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dimitrije/washdesk-api/internal/metrics"
	"github.com/dimitrije/washdesk-api/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ResolveKind classifies why resolution produced no profile.
type ResolveKind string

const (
	KindPendingApproval ResolveKind = "pending_approval"
	KindRejected        ResolveKind = "rejected"
	KindNotInvited      ResolveKind = "not_invited"
	KindLoadFailed      ResolveKind = "load_failed"
)

// ResolveError is returned by Resolve when the actor ends up without a usable
// profile. Message is safe to show to the actor.
type ResolveError struct {
	Kind    ResolveKind
	Message string
	Err     error
}

func (e *ResolveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ResolveError) Unwrap() error { return e.Err }

// SignsOut reports whether the actor must be signed out at the provider.
// Infrastructure faults leave the provider session alone so the actor can
// retry.
func (e *ResolveError) SignsOut() bool {
	return e.Kind != KindLoadFailed
}

const (
	msgPendingApproval = "Your account is pending approval. Please contact your administrator."
	msgRejected        = "Your access request has been rejected. Please contact your administrator."
	msgNotInvited      = "Access denied. You need an invitation to join. Please contact your administrator."
	msgLoadFailed      = "Failed to load user profile."
)

type ProfileReader interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
}

type BootstrapStore interface {
	Get(ctx context.Context) (*models.BootstrapConfig, error)
	ClaimFirstAdmin(ctx context.Context, p *models.Profile) (*models.Profile, error)
	CreateSuperAdmin(ctx context.Context, p *models.Profile) (*models.Profile, error)
}

type InviteStore interface {
	FindPendingByEmail(ctx context.Context, email string) (*models.Invite, error)
	AcceptAndCreateProfile(ctx context.Context, inviteID uuid.UUID, p *models.Profile) (*models.Profile, error)
}

type AuditRecorder interface {
	Record(ctx context.Context, entry models.AuditEntry) error
}

type ResolverConfig struct {
	// SuperAdminEmail is the operator address that bootstraps as superadmin.
	// Empty disables the path.
	SuperAdminEmail string
	Logger          zerolog.Logger
	Metrics         *metrics.Access
	Audit           AuditRecorder
}

// ProfileResolver turns a freshly authenticated actor into a profile. In
// order: an existing profile wins, then the superadmin address, then the
// first sign-in on an uninitialized network, then a pending invite.
type ProfileResolver struct {
	profiles   ProfileReader
	bootstrap  BootstrapStore
	invites    InviteStore
	superAdmin string
	log        zerolog.Logger
	metrics    *metrics.Access
	audit      AuditRecorder
}

func NewProfileResolver(profiles ProfileReader, bootstrap BootstrapStore, invites InviteStore, cfg ResolverConfig) *ProfileResolver {
	return &ProfileResolver{
		profiles:   profiles,
		bootstrap:  bootstrap,
		invites:    invites,
		superAdmin: normalizeEmail(cfg.SuperAdminEmail),
		log:        cfg.Logger,
		metrics:    cfg.Metrics,
		audit:      cfg.Audit,
	}
}

// Resolve returns the approved profile of actor, creating it on first sign-in.
// Every other outcome is a *ResolveError.
func (r *ProfileResolver) Resolve(ctx context.Context, actor models.Actor) (*models.Profile, error) {
	start := time.Now()
	defer func() { r.metrics.ObserveResolve(time.Since(start)) }()

	log := r.log.With().Str("actor_id", actor.ID).Str("email", actor.Email).Logger()

	p, err := r.profiles.GetByID(ctx, actor.ID)
	if err == nil {
		return r.existing(log, p, "existing")
	}
	if !errors.Is(err, ErrProfileNotFound) {
		return nil, r.loadFailed(log, err)
	}

	cfg, err := r.bootstrap.Get(ctx)
	if err != nil {
		return nil, r.loadFailed(log, err)
	}

	if r.isSuperAdminEmail(actor.Email) {
		p, err := r.bootstrap.CreateSuperAdmin(ctx, newBootstrapProfile(actor, models.RoleSuperAdmin))
		return r.created(ctx, log, actor, p, err, "superadmin")
	}

	if !cfg.Initialized {
		p, err := r.bootstrap.ClaimFirstAdmin(ctx, newBootstrapProfile(actor, models.RoleAdmin))
		if !errors.Is(err, ErrAlreadyInitialized) {
			return r.created(ctx, log, actor, p, err, "first_admin")
		}
		log.Info().Msg("first-user claim lost, falling back to invites")
	}

	inv, err := r.invites.FindPendingByEmail(ctx, actor.Email)
	if errors.Is(err, ErrInviteNotFound) {
		return nil, r.deny(log, KindNotInvited, msgNotInvited)
	}
	if err != nil {
		return nil, r.loadFailed(log, err)
	}

	p, err = r.invites.AcceptAndCreateProfile(ctx, inv.ID, newInvitedProfile(actor, inv))
	if errors.Is(err, ErrInviteNotFound) {
		// Another sign-in consumed the invite between the read and the claim.
		return nil, r.deny(log, KindNotInvited, msgNotInvited)
	}
	return r.created(ctx, log, actor, p, err, "invited")
}

func (r *ProfileResolver) existing(log zerolog.Logger, p *models.Profile, outcome string) (*models.Profile, error) {
	switch p.Status {
	case models.StatusPending:
		return nil, r.deny(log, KindPendingApproval, msgPendingApproval)
	case models.StatusRejected:
		return nil, r.deny(log, KindRejected, msgRejected)
	}
	r.metrics.IncBootstrapOutcome(outcome)
	log.Info().Str("outcome", outcome).Str("role", string(p.Role)).Msg("profile resolved")
	return p, nil
}

// created finishes a bootstrap write. A concurrent sign-in of the same actor
// may have inserted the profile first; that stored profile is then used.
func (r *ProfileResolver) created(ctx context.Context, log zerolog.Logger, actor models.Actor, p *models.Profile, err error, outcome string) (*models.Profile, error) {
	if errors.Is(err, ErrProfileExists) {
		stored, getErr := r.profiles.GetByID(ctx, actor.ID)
		if getErr != nil {
			return nil, r.loadFailed(log, getErr)
		}
		return r.existing(log, stored, "existing")
	}
	if err != nil {
		return nil, r.loadFailed(log, err)
	}

	if r.audit != nil {
		actorID := actor.ID
		if auditErr := r.audit.Record(ctx, models.AuditEntry{
			ActorID: &actorID,
			Email:   actor.Email,
			Action:  "profile.created",
			Detail:  fmt.Sprintf("%s as %s in %s", outcome, p.Role, p.ShopID),
			ShopID:  p.ShopID,
		}); auditErr != nil {
			log.Warn().Err(auditErr).Msg("failed to record audit entry")
		}
	}

	r.metrics.IncBootstrapOutcome(outcome)
	log.Info().Str("outcome", outcome).Str("role", string(p.Role)).Str("shop_id", p.ShopID).Msg("profile created")
	return p, nil
}

func (r *ProfileResolver) deny(log zerolog.Logger, kind ResolveKind, msg string) error {
	r.metrics.IncBootstrapOutcome(string(kind))
	log.Info().Str("outcome", string(kind)).Msg("sign-in denied")
	return &ResolveError{Kind: kind, Message: msg}
}

func (r *ProfileResolver) loadFailed(log zerolog.Logger, err error) error {
	r.metrics.IncBootstrapOutcome(string(KindLoadFailed))
	log.Error().Err(err).Msg("failed to resolve profile")
	return &ResolveError{Kind: KindLoadFailed, Message: msgLoadFailed, Err: err}
}

func (r *ProfileResolver) isSuperAdminEmail(email string) bool {
	return r.superAdmin != "" && normalizeEmail(email) == r.superAdmin
}

func newBootstrapProfile(actor models.Actor, role models.Role) *models.Profile {
	p := baseProfile(actor)
	p.Role = role
	p.ShopID = models.HeadOffice
	return p
}

// newInvitedProfile copies the grant of inv. Without a role the actor joins
// as employee. Without a shop a superadmin joins head office and anyone else
// gets a shop of their own; InviteService.Create keeps shop-level roles from
// reaching this case.
func newInvitedProfile(actor models.Actor, inv *models.Invite) *models.Profile {
	p := baseProfile(actor)
	p.Role = inv.Role
	if p.Role == "" {
		p.Role = models.RoleEmployee
	}
	switch {
	case inv.ShopID != nil && *inv.ShopID != "":
		p.ShopID = *inv.ShopID
	case p.Role == models.RoleSuperAdmin:
		p.ShopID = models.HeadOffice
	default:
		p.ShopID = actor.ID
	}
	p.Permissions = inv.Permissions
	p.NeedsOnboarding = true
	invitedBy := inv.InvitedBy
	p.InvitedBy = &invitedBy
	return p
}

func baseProfile(actor models.Actor) *models.Profile {
	p := &models.Profile{
		ID:          actor.ID,
		Email:       strings.ToLower(actor.Email),
		DisplayName: actor.DisplayName,
		Status:      models.StatusApproved,
	}
	if p.DisplayName == "" {
		p.DisplayName = actor.Email
	}
	if actor.AvatarURL != "" {
		avatar := actor.AvatarURL
		p.AvatarURL = &avatar
	}
	return p
}
