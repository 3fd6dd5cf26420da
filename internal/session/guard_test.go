package session

import (
	"testing"

	"github.com/dimitrije/washdesk-api/internal/models"
	"github.com/dimitrije/washdesk-api/internal/rbac"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedIn(p *models.Profile) Snapshot {
	return Snapshot{Actor: &models.Actor{ID: p.ID}, Profile: p}
}

func evaluatorFor(p *models.Profile) PermissionFunc {
	e := rbac.NewEvaluator(rbac.DefaultMatrix(), zerolog.Nop())
	return func(res rbac.Resource, action rbac.Action) bool {
		return e.HasPermission(p, res, action)
	}
}

func mustNotAsk(t *testing.T) PermissionFunc {
	return func(rbac.Resource, rbac.Action) bool {
		t.Fatal("permission must not be evaluated")
		return false
	}
}

func TestGuard_Order(t *testing.T) {
	employee := approved("e", models.RoleEmployee)

	tests := []struct {
		name string
		snap Snapshot
		want Decision
	}{
		{
			name: "loading wins over everything",
			snap: Snapshot{Loading: true},
			want: Decision{Kind: DecisionLoading},
		},
		{
			name: "no actor",
			snap: Snapshot{},
			want: Decision{Kind: DecisionRedirectSignIn, Redirect: SignInPath},
		},
		{
			name: "actor without profile",
			snap: Snapshot{Actor: &models.Actor{ID: "a"}},
			want: Decision{Kind: DecisionRedirectSignIn, Redirect: SignInPath},
		},
		{
			name: "needs onboarding",
			snap: signedIn(&models.Profile{ID: "a", Role: models.RoleEmployee, Status: models.StatusApproved, NeedsOnboarding: true}),
			want: Decision{Kind: DecisionRedirectSignIn, Redirect: SignInPath},
		},
		{
			name: "pending approval",
			snap: signedIn(&models.Profile{ID: "a", Role: models.RoleAdmin, Status: models.StatusPending}),
			want: Decision{Kind: DecisionPending, Message: PendingApprovalMessage},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Guard(tt.snap, rbac.ResourceBookings, mustNotAsk(t)))
		})
	}

	t.Run("denied screen goes to dashboard", func(t *testing.T) {
		got := Guard(signedIn(employee), rbac.ResourcePayroll, evaluatorFor(employee))
		assert.Equal(t, Decision{Kind: DecisionRedirectDashboard, Redirect: DashboardPath}, got)
	})

	t.Run("allowed screen renders", func(t *testing.T) {
		got := Guard(signedIn(employee), rbac.ResourceAttendance, evaluatorFor(employee))
		assert.Equal(t, DecisionRender, got.Kind)
	})

	t.Run("screen without permission renders", func(t *testing.T) {
		got := Guard(signedIn(employee), "", mustNotAsk(t))
		assert.Equal(t, DecisionRender, got.Kind)
	})
}

// Scenario D: a pending profile opening bookings.
func TestGuard_PendingNeverConsultsPermissions(t *testing.T) {
	pending := &models.Profile{ID: "p", Role: models.RoleEmployee, Status: models.StatusPending}
	calls := 0
	has := func(rbac.Resource, rbac.Action) bool {
		calls++
		return true
	}

	route, ok := RouteByScreen("bookings")
	require.True(t, ok)
	got := Guard(signedIn(pending), route.Permission, has)

	assert.Equal(t, DecisionPending, got.Kind)
	assert.Empty(t, got.Redirect)
	assert.Zero(t, calls)
}

func TestGuard_ViewOrAnyAction(t *testing.T) {
	// Create without view still opens the screen.
	p := &models.Profile{
		ID: "a", Role: models.RoleEmployee, Status: models.StatusApproved,
		Permissions: rbac.Overrides{rbac.ResourceInvoices: rbac.Scoped(rbac.Actions{Create: true})},
	}
	got := Guard(signedIn(p), rbac.ResourceInvoices, evaluatorFor(p))
	assert.Equal(t, DecisionRender, got.Kind)
}

func TestNavigation(t *testing.T) {
	employee := approved("e", models.RoleEmployee)

	var screens []string
	for _, r := range Navigation(signedIn(employee), evaluatorFor(employee)) {
		screens = append(screens, r.Screen)
	}

	assert.Contains(t, screens, "dashboard")
	assert.Contains(t, screens, "attendance")
	assert.Contains(t, screens, "bookings")
	assert.NotContains(t, screens, "payroll")
	assert.NotContains(t, screens, "users")

	assert.Empty(t, Navigation(Snapshot{Loading: true}, mustNotAsk(t)))
}

func TestRoutes_ScreensAreUniqueAndKnown(t *testing.T) {
	known := map[rbac.Resource]bool{"": true}
	for _, r := range rbac.Resources() {
		known[r] = true
	}

	seen := map[string]bool{}
	for _, r := range Routes {
		assert.False(t, seen[r.Screen], "duplicate screen %s", r.Screen)
		seen[r.Screen] = true
		assert.True(t, known[r.Permission], "unknown permission %s", r.Permission)
	}

	_, ok := RouteByScreen("car-parks")
	assert.False(t, ok)
}
