package handlers

import (
	"context"

	"github.com/dimitrije/washdesk-api/internal/models"
	"github.com/m1z23r/drift/pkg/drift"
)

// UserHandler lists the profiles an admin manages. It sits behind
// RouteGuard(users).
type UserHandler struct {
	profiles ProfileListerInterface
}

func NewUserHandler(profiles ProfileListerInterface) *UserHandler {
	return &UserHandler{profiles: profiles}
}

func (h *UserHandler) List(c *drift.Context) {
	_, profile, ok := signedInProfile(c)
	if !ok {
		return
	}

	profiles, err := h.profiles.ListByShop(context.Background(), profile.ShopID)
	if err != nil {
		c.InternalServerError("failed to list users")
		return
	}
	if profiles == nil {
		profiles = []models.Profile{}
	}
	_ = c.JSON(200, profiles)
}
