package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dimitrije/washdesk-api/internal/middleware"
	"github.com/dimitrije/washdesk-api/internal/models"
	"github.com/dimitrije/washdesk-api/internal/rbac"
	"github.com/dimitrije/washdesk-api/internal/services"
	"github.com/dimitrije/washdesk-api/internal/session"
	"github.com/dimitrije/washdesk-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/rs/zerolog"
)

// InviteHandler is the admin side of invitations: the routes sit behind
// RouteGuard(users) and check the create and delete actions themselves.
type InviteHandler struct {
	invites   InviteServiceInterface
	audit     AuditServiceInterface
	mailer    InviteMailerInterface
	signInURL string
	log       zerolog.Logger
}

func NewInviteHandler(invites InviteServiceInterface, audit AuditServiceInterface, mailer InviteMailerInterface, frontendURL string, log zerolog.Logger) *InviteHandler {
	return &InviteHandler{
		invites:   invites,
		audit:     audit,
		mailer:    mailer,
		signInURL: frontendURL + session.SignInPath,
		log:       log,
	}
}

func (h *InviteHandler) List(c *drift.Context) {
	_, profile, ok := signedInProfile(c)
	if !ok {
		return
	}

	invites, err := h.invites.ListPending(context.Background(), profile.ShopID)
	if err != nil {
		c.InternalServerError("failed to list invites")
		return
	}
	if invites == nil {
		invites = []models.Invite{}
	}
	_ = c.JSON(200, invites)
}

func (h *InviteHandler) Create(c *drift.Context) {
	store, profile, ok := signedInProfile(c)
	if !ok {
		return
	}
	if !store.Authorize(rbac.ResourceUsers, rbac.ActionCreate) {
		c.Forbidden("you cannot invite users")
		return
	}

	var req dto.CreateInviteRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if msg := validateRequest(&req); msg != "" {
		c.BadRequest(msg)
		return
	}
	email := req.Email

	var role models.Role
	if req.Role != "" {
		r, err := models.ParseRole(req.Role)
		if err != nil {
			c.BadRequest(err.Error())
			return
		}
		role = r
	}
	if role == models.RoleSuperAdmin && profile.Role != models.RoleSuperAdmin {
		c.Forbidden("only a superadmin can invite a superadmin")
		return
	}

	// Shops invite into themselves; head office may target any shop.
	shopID := req.ShopID
	if profile.ShopID != models.HeadOffice {
		own := profile.ShopID
		shopID = &own
	} else if shopID != nil && strings.TrimSpace(*shopID) == "" {
		shopID = nil
	}
	if shopID == nil && services.InviteNeedsShop(role) {
		c.BadRequest(fmt.Sprintf("shop_id is required for role %s", roleOrDefault(role)))
		return
	}

	ctx := context.Background()
	invite, err := h.invites.Create(ctx, services.CreateInviteParams{
		Email:       email,
		Role:        role,
		Permissions: req.Permissions,
		ShopID:      shopID,
		InvitedBy:   profile.ID,
	})
	if err != nil {
		if errors.Is(err, services.ErrInviteShopRequired) {
			c.BadRequest("shop_id is required for this role")
			return
		}
		c.InternalServerError("failed to create invite")
		return
	}

	h.record(ctx, profile, auditShop(invite, profile), "invite.created", fmt.Sprintf("%s invited as %s", invite.Email, roleOrDefault(invite.Role)))

	// The invite is claimed on sign-in, so a lost mail only costs a reminder.
	if err := h.mailer.SendInvite(invite.Email, inviterName(profile), roleOrDefault(invite.Role), h.signInURL); err != nil {
		h.log.Warn().Err(err).Str("email", invite.Email).Msg("failed to send invite email")
	}
	_ = c.JSON(201, invite)
}

func (h *InviteHandler) Delete(c *drift.Context) {
	store, profile, ok := signedInProfile(c)
	if !ok {
		return
	}
	if !store.Authorize(rbac.ResourceUsers, rbac.ActionDelete) {
		c.Forbidden("you cannot cancel invites")
		return
	}

	inviteID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid invite id")
		return
	}

	ctx := context.Background()
	if err := h.invites.Cancel(ctx, inviteID, profile.ShopID); err != nil {
		if errors.Is(err, services.ErrInviteNotFound) {
			c.NotFound("invite not found")
			return
		}
		c.InternalServerError("failed to cancel invite")
		return
	}

	h.record(ctx, profile, profile.ShopID, "invite.cancelled", inviteID.String())
	_ = c.JSON(200, map[string]string{"message": "invite cancelled"})
}

func (h *InviteHandler) record(ctx context.Context, profile *models.Profile, shopID, action, detail string) {
	actorID := profile.ID
	err := h.audit.Record(ctx, models.AuditEntry{
		ActorID: &actorID,
		Email:   profile.Email,
		Action:  action,
		Detail:  detail,
		ShopID:  shopID,
	})
	if err != nil {
		h.log.Error().Err(err).Str("action", action).Msg("failed to record audit entry")
	}
}

// auditShop files an invite under the shop it grants. Open invites stay with
// the inviter, which is head office.
func auditShop(invite *models.Invite, inviter *models.Profile) string {
	if invite.ShopID != nil && *invite.ShopID != "" {
		return *invite.ShopID
	}
	return inviter.ShopID
}

// signedInProfile writes the error response itself when it returns false.
func signedInProfile(c *drift.Context) (*session.Store, *models.Profile, bool) {
	store := middleware.GetStore(c)
	if store == nil {
		c.Unauthorized("not authenticated")
		return nil, nil, false
	}
	profile := store.Snapshot().Profile
	if profile == nil {
		c.Unauthorized("not signed in")
		return nil, nil, false
	}
	return store, profile, true
}

func inviterName(p *models.Profile) string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Email
}

func roleOrDefault(r models.Role) models.Role {
	if r == "" {
		return models.RoleEmployee
	}
	return r
}
