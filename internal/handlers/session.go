package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/dimitrije/washdesk-api/internal/middleware"
	"github.com/dimitrije/washdesk-api/internal/models"
	"github.com/dimitrije/washdesk-api/internal/rbac"
	"github.com/dimitrije/washdesk-api/internal/session"
	"github.com/dimitrije/washdesk-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
)

type SessionHandler struct{}

func NewSessionHandler() *SessionHandler {
	return &SessionHandler{}
}

func (h *SessionHandler) Get(c *drift.Context) {
	store := middleware.GetStore(c)
	if store == nil {
		c.Unauthorized("not authenticated")
		return
	}

	_ = c.JSON(200, dto.SessionResponse{
		Snapshot:     store.Snapshot(),
		Capabilities: store.Capabilities(),
	})
}

// Permission answers ?resource=&action= for the signed-in profile. An empty
// action asks whether any action is allowed.
func (h *SessionHandler) Permission(c *drift.Context) {
	store := middleware.GetStore(c)
	if store == nil {
		c.Unauthorized("not authenticated")
		return
	}

	resource := rbac.Resource(c.QueryParam("resource"))
	if resource == "" {
		c.BadRequest("resource is required")
		return
	}
	action, err := rbac.ParseAction(c.QueryParam("action"))
	if err != nil {
		c.BadRequest(err.Error())
		return
	}

	_ = c.JSON(200, dto.PermissionResponse{
		Resource: resource,
		Action:   action,
		Allowed:  store.HasPermission(resource, action),
	})
}

func (h *SessionHandler) UpdateProfile(c *drift.Context) {
	store := middleware.GetStore(c)
	if store == nil {
		c.Unauthorized("not authenticated")
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if msg := normalizeProfileUpdate(&req); msg != "" {
		c.BadRequest(msg)
		return
	}

	profile, err := store.UpdateProfile(context.Background(), models.ProfileUpdate{
		DisplayName: req.DisplayName,
		Phone:       req.Phone,
		AvatarURL:   req.AvatarURL,
	})
	if err != nil {
		if errors.Is(err, session.ErrNotSignedIn) {
			c.Unauthorized("not signed in")
			return
		}
		c.InternalServerError("failed to update profile")
		return
	}

	_ = c.JSON(200, profile)
}

func normalizeProfileUpdate(req *dto.UpdateProfileRequest) string {
	if req.DisplayName == nil && req.Phone == nil && req.AvatarURL == nil {
		return "nothing to update"
	}
	for _, f := range []**string{&req.DisplayName, &req.Phone, &req.AvatarURL} {
		if *f != nil {
			v := strings.TrimSpace(**f)
			*f = &v
		}
	}
	return validateRequest(req)
}
