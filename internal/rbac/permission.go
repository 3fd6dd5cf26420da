package rbac

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Resource names a screen or data area of the back office.
type Resource string

const (
	ResourceDashboard  Resource = "dashboard"
	ResourceBookings   Resource = "bookings"
	ResourceCustomers  Resource = "customers"
	ResourceInvoices   Resource = "invoices"
	ResourcePayroll    Resource = "payroll"
	ResourceAttendance Resource = "attendance"
	ResourceAMC        Resource = "amc"
	ResourceAuditLog   Resource = "audit_log"
	ResourceUsers      Resource = "users"
	ResourceSettings   Resource = "settings"
	ResourceReports    Resource = "reports"
)

// Resources lists every resource known to the matrix, in display order.
func Resources() []Resource {
	return []Resource{
		ResourceDashboard,
		ResourceBookings,
		ResourceCustomers,
		ResourceInvoices,
		ResourcePayroll,
		ResourceAttendance,
		ResourceAMC,
		ResourceAuditLog,
		ResourceUsers,
		ResourceSettings,
		ResourceReports,
	}
}

// Action is one of the four scoped operations on a resource.
type Action string

const (
	// AnyAction asks whether the resource area is visible at all.
	AnyAction    Action = ""
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case AnyAction, ActionView, ActionCreate, ActionEdit, ActionDelete:
		return Action(s), nil
	}
	return AnyAction, fmt.Errorf("unknown action %q", s)
}

type permissionKind uint8

const (
	kindAllowed permissionKind = iota
	kindScoped
)

// Actions is the per-action grant set of a scoped permission.
type Actions struct {
	View   bool `json:"view"`
	Create bool `json:"create"`
	Edit   bool `json:"edit"`
	Delete bool `json:"delete"`
}

func (a Actions) any() bool {
	return a.View || a.Create || a.Edit || a.Delete
}

func (a Actions) get(action Action) bool {
	switch action {
	case ActionView:
		return a.View
	case ActionCreate:
		return a.Create
	case ActionEdit:
		return a.Edit
	case ActionDelete:
		return a.Delete
	}
	return false
}

// Permission is either Allowed(bool), granting or denying the whole resource,
// or Scoped, granting individual actions.
type Permission struct {
	kind    permissionKind
	allowed bool
	actions Actions
}

func Allowed(v bool) Permission {
	return Permission{kind: kindAllowed, allowed: v}
}

func Scoped(a Actions) Permission {
	return Permission{kind: kindScoped, actions: a}
}

// All grants every action on a scoped resource.
func All() Permission {
	return Scoped(Actions{View: true, Create: true, Edit: true, Delete: true})
}

// ViewOnly grants only the view action.
func ViewOnly() Permission {
	return Scoped(Actions{View: true})
}

// None is a scoped permission with every action denied.
func None() Permission {
	return Scoped(Actions{})
}

func (p Permission) IsScoped() bool {
	return p.kind == kindScoped
}

// Allows evaluates the permission for an action. A boolean permission ignores
// the action; a scoped permission without an action means "any action granted".
func (p Permission) Allows(action Action) bool {
	switch p.kind {
	case kindAllowed:
		return p.allowed
	case kindScoped:
		if action == AnyAction {
			return p.actions.any()
		}
		return p.actions.get(action)
	}
	return false
}

// Grid expands the permission into the four actions.
func (p Permission) Grid() Actions {
	if p.kind == kindAllowed {
		return Actions{View: p.allowed, Create: p.allowed, Edit: p.allowed, Delete: p.allowed}
	}
	return p.actions
}

func (p Permission) MarshalJSON() ([]byte, error) {
	if p.kind == kindAllowed {
		return json.Marshal(p.allowed)
	}
	return json.Marshal(p.actions)
}

// UnmarshalJSON leaves p untouched for null.
func (p *Permission) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty permission value")
	}

	switch data[0] {
	case 'n':
		if string(data) == "null" {
			return nil
		}
	case 't', 'f':
		var v bool
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("invalid permission value: %w", err)
		}
		*p = Allowed(v)
		return nil
	case '{':
		var a Actions
		if err := json.Unmarshal(data, &a); err != nil {
			return fmt.Errorf("invalid permission value: %w", err)
		}
		*p = Scoped(a)
		return nil
	}
	return fmt.Errorf("permission must be a boolean or an action object, got %s", data)
}

// Overrides is a per-profile replacement of role defaults, keyed by resource.
type Overrides map[Resource]Permission

// UnmarshalJSON drops resources set to null, so they fall back to the role
// default instead of failing the whole profile.
func (o *Overrides) UnmarshalJSON(data []byte) error {
	var raw map[Resource]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid permission overrides: %w", err)
	}
	if raw == nil {
		*o = nil
		return nil
	}

	out := make(Overrides, len(raw))
	for resource, value := range raw {
		if string(bytes.TrimSpace(value)) == "null" {
			continue
		}
		var p Permission
		if err := json.Unmarshal(value, &p); err != nil {
			return fmt.Errorf("permission %s: %w", resource, err)
		}
		out[resource] = p
	}
	*o = out
	return nil
}

// Lookup reports whether an override exists for the resource. An override set
// to Allowed(false) still counts as present.
func (o Overrides) Lookup(resource Resource) (Permission, bool) {
	if o == nil {
		return Permission{}, false
	}
	p, ok := o[resource]
	return p, ok
}
