package middleware

import (
	"net/http"

	"github.com/dimitrije/washdesk-api/internal/metrics"
	"github.com/dimitrije/washdesk-api/internal/rbac"
	"github.com/dimitrije/washdesk-api/internal/session"
	"github.com/m1z23r/drift/pkg/drift"
)

const ScreenKey = "screen"

// RouteGuard lets the request through only when the session may open a
// screen requiring permission. It must run after Session.
func RouteGuard(permission rbac.Resource, m *metrics.Access) drift.HandlerFunc {
	return func(c *drift.Context) {
		if guard(c, permission, m) {
			c.Next()
		}
	}
}

// ScreenGuard guards the screen named by the :screen path parameter.
func ScreenGuard(m *metrics.Access) drift.HandlerFunc {
	return func(c *drift.Context) {
		route, ok := session.RouteByScreen(c.Param("screen"))
		if !ok {
			c.NotFound("unknown screen")
			return
		}
		c.Set(ScreenKey, route)
		if guard(c, route.Permission, m) {
			c.Next()
		}
	}
}

func GetScreen(c *drift.Context) (session.Route, bool) {
	if v, ok := c.Get(ScreenKey); ok {
		r, ok := v.(session.Route)
		return r, ok
	}
	return session.Route{}, false
}

func guard(c *drift.Context, permission rbac.Resource, m *metrics.Access) bool {
	store := GetStore(c)
	if store == nil {
		c.Unauthorized("not authenticated")
		return false
	}

	d := session.Guard(store.Snapshot(), permission, store.HasPermission)
	m.IncGuardDecision(string(d.Kind))

	switch d.Kind {
	case session.DecisionRender:
		return true
	case session.DecisionLoading:
		_ = c.JSON(http.StatusAccepted, map[string]string{"state": "loading"})
	case session.DecisionRedirectSignIn:
		_ = c.JSON(http.StatusUnauthorized, map[string]string{"redirect": d.Redirect})
	case session.DecisionPending:
		_ = c.JSON(http.StatusOK, map[string]string{"state": string(d.Kind), "message": d.Message})
	case session.DecisionRedirectDashboard:
		m.IncPermissionDenied(string(permission))
		_ = c.JSON(http.StatusForbidden, map[string]string{"redirect": d.Redirect})
	}
	c.Abort()
	return false
}
