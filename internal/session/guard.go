package session

import (
	"github.com/dimitrije/washdesk-api/internal/models"
	"github.com/dimitrije/washdesk-api/internal/rbac"
)

type DecisionKind string

const (
	DecisionLoading           DecisionKind = "loading"
	DecisionRedirectSignIn    DecisionKind = "redirect_sign_in"
	DecisionPending           DecisionKind = "pending_approval"
	DecisionRedirectDashboard DecisionKind = "redirect_dashboard"
	DecisionRender            DecisionKind = "render"
)

const (
	SignInPath    = "/login"
	DashboardPath = "/"

	PendingApprovalMessage = "Your account is awaiting approval from an administrator. You will get access as soon as it is approved."
)

type Decision struct {
	Kind     DecisionKind `json:"kind"`
	Redirect string       `json:"redirect,omitempty"`
	Message  string       `json:"message,omitempty"`
}

// PermissionFunc answers a permission question for the session being guarded.
type PermissionFunc func(resource rbac.Resource, action rbac.Action) bool

// Guard decides what a navigation to a screen requiring permission renders.
// An empty permission means any approved, onboarded actor may open it. A
// pending profile is stopped before any permission is consulted.
func Guard(snap Snapshot, permission rbac.Resource, has PermissionFunc) Decision {
	switch {
	case snap.Loading:
		return Decision{Kind: DecisionLoading}
	case snap.Actor == nil || snap.Profile == nil:
		return Decision{Kind: DecisionRedirectSignIn, Redirect: SignInPath}
	case snap.Profile.NeedsOnboarding:
		// The sign-in screen shows the onboarding form for this flag.
		return Decision{Kind: DecisionRedirectSignIn, Redirect: SignInPath}
	case snap.Profile.Status == models.StatusPending:
		return Decision{Kind: DecisionPending, Message: PendingApprovalMessage}
	}

	if permission != "" && !has(permission, rbac.ActionView) && !has(permission, rbac.AnyAction) {
		return Decision{Kind: DecisionRedirectDashboard, Redirect: DashboardPath}
	}
	return Decision{Kind: DecisionRender}
}

// Route is a protected screen of the back office.
type Route struct {
	Path       string        `json:"path"`
	Screen     string        `json:"screen"`
	Title      string        `json:"title"`
	Permission rbac.Resource `json:"permission,omitempty"`
}

// Routes lists every protected screen. The dashboard requires no permission
// so that a denied navigation always has somewhere to land.
var Routes = []Route{
	{Path: "/", Screen: "dashboard", Title: "Dashboard"},
	{Path: "/bookings", Screen: "bookings", Title: "Bookings", Permission: rbac.ResourceBookings},
	{Path: "/customers", Screen: "customers", Title: "Customers", Permission: rbac.ResourceCustomers},
	{Path: "/invoices", Screen: "invoices", Title: "Invoices", Permission: rbac.ResourceInvoices},
	{Path: "/payroll", Screen: "payroll", Title: "Payroll", Permission: rbac.ResourcePayroll},
	{Path: "/attendance", Screen: "attendance", Title: "Attendance", Permission: rbac.ResourceAttendance},
	{Path: "/amc", Screen: "amc", Title: "AMC Contracts", Permission: rbac.ResourceAMC},
	{Path: "/reports", Screen: "reports", Title: "Reports", Permission: rbac.ResourceReports},
	{Path: "/audit-log", Screen: "audit-log", Title: "Audit Log", Permission: rbac.ResourceAuditLog},
	{Path: "/users", Screen: "users", Title: "Users", Permission: rbac.ResourceUsers},
	{Path: "/settings", Screen: "settings", Title: "Settings", Permission: rbac.ResourceSettings},
	{Path: "/profile", Screen: "profile", Title: "My Profile"},
}

func RouteByScreen(screen string) (Route, bool) {
	for _, r := range Routes {
		if r.Screen == screen {
			return r, true
		}
	}
	return Route{}, false
}

// Navigation returns the routes the guard would render for snap.
func Navigation(snap Snapshot, has PermissionFunc) []Route {
	var out []Route
	for _, r := range Routes {
		if Guard(snap, r.Permission, has).Kind == DecisionRender {
			out = append(out, r)
		}
	}
	return out
}
