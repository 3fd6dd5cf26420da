package handlers

import (
	"github.com/dimitrije/washdesk-api/internal/middleware"
	"github.com/dimitrije/washdesk-api/internal/session"
	"github.com/dimitrije/washdesk-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
)

type NavigationHandler struct{}

func NewNavigationHandler() *NavigationHandler {
	return &NavigationHandler{}
}

// List returns the screens the signed-in profile may open.
func (h *NavigationHandler) List(c *drift.Context) {
	store := middleware.GetStore(c)
	if store == nil {
		c.Unauthorized("not authenticated")
		return
	}

	routes := session.Navigation(store.Snapshot(), store.HasPermission)
	if routes == nil {
		routes = []session.Route{}
	}
	_ = c.JSON(200, routes)
}

// Screen describes a screen that ScreenGuard let through, with the actions
// the profile may take on it.
func (h *NavigationHandler) Screen(c *drift.Context) {
	store := middleware.GetStore(c)
	route, ok := middleware.GetScreen(c)
	if store == nil || !ok {
		c.NotFound("unknown screen")
		return
	}

	resp := dto.ScreenResponse{Screen: route.Screen, Title: route.Title}
	if route.Permission != "" {
		resp.Actions = store.Capabilities()[route.Permission]
	}
	_ = c.JSON(200, resp)
}
