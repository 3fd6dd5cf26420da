package rbac

import "strings"

// Row maps each resource to the permission a role holds on it.
type Row map[Resource]Permission

// Matrix holds the default capability row of every role, keyed by the
// lowercase role name.
type Matrix struct {
	rows map[string]Row
}

func NewMatrix(rows map[string]Row) *Matrix {
	m := &Matrix{rows: make(map[string]Row, len(rows))}
	for role, row := range rows {
		copied := make(Row, len(row))
		for res, p := range row {
			copied[res] = p
		}
		m.rows[strings.ToLower(role)] = copied
	}
	return m
}

// Row returns a copy of the row for a role; the role name is normalised to
// lowercase.
func (m *Matrix) Row(role string) (Row, bool) {
	row, ok := m.rows[strings.ToLower(role)]
	if !ok {
		return nil, false
	}
	copied := make(Row, len(row))
	for res, p := range row {
		copied[res] = p
	}
	return copied, true
}

func (m *Matrix) lookup(role string, resource Resource) (p Permission, hasRole, hasResource bool) {
	row, ok := m.rows[strings.ToLower(role)]
	if !ok {
		return Permission{}, false, false
	}
	p, ok = row[resource]
	return p, true, ok
}

var defaultMatrix = NewMatrix(map[string]Row{
	"superadmin": {
		ResourceDashboard:  Allowed(true),
		ResourceBookings:   All(),
		ResourceCustomers:  All(),
		ResourceInvoices:   All(),
		ResourcePayroll:    All(),
		ResourceAttendance: Allowed(true),
		ResourceAMC:        All(),
		ResourceAuditLog:   Allowed(true),
		ResourceUsers:      All(),
		ResourceSettings:   Allowed(true),
		ResourceReports:    Allowed(true),
	},
	"admin": {
		ResourceDashboard:  Allowed(true),
		ResourceBookings:   All(),
		ResourceCustomers:  All(),
		ResourceInvoices:   All(),
		ResourcePayroll:    All(),
		ResourceAttendance: Allowed(true),
		ResourceAMC:        All(),
		ResourceAuditLog:   Allowed(true),
		ResourceUsers:      All(),
		ResourceSettings:   Allowed(true),
		ResourceReports:    Allowed(true),
	},
	"manager": {
		ResourceDashboard:  Allowed(true),
		ResourceBookings:   All(),
		ResourceCustomers:  All(),
		ResourceInvoices:   Scoped(Actions{View: true, Create: true, Edit: true}),
		ResourcePayroll:    ViewOnly(),
		ResourceAttendance: Allowed(true),
		ResourceAMC:        Scoped(Actions{View: true, Create: true, Edit: true}),
		ResourceAuditLog:   Allowed(false),
		ResourceUsers:      ViewOnly(),
		ResourceSettings:   Allowed(false),
		ResourceReports:    Allowed(true),
	},
	"senior_employee": {
		ResourceDashboard:  Allowed(true),
		ResourceBookings:   Scoped(Actions{View: true, Create: true, Edit: true}),
		ResourceCustomers:  Scoped(Actions{View: true, Create: true, Edit: true}),
		ResourceInvoices:   Scoped(Actions{View: true, Create: true}),
		ResourcePayroll:    None(),
		ResourceAttendance: Allowed(true),
		ResourceAMC:        ViewOnly(),
		ResourceAuditLog:   Allowed(false),
		ResourceUsers:      Allowed(false),
		ResourceSettings:   Allowed(false),
		ResourceReports:    Allowed(false),
	},
	"employee": {
		ResourceDashboard:  Allowed(true),
		ResourceBookings:   Scoped(Actions{View: true, Create: true}),
		ResourceCustomers:  ViewOnly(),
		ResourceInvoices:   None(),
		ResourcePayroll:    None(),
		ResourceAttendance: Allowed(true),
		ResourceAMC:        None(),
		ResourceAuditLog:   Allowed(false),
		ResourceUsers:      Allowed(false),
		ResourceSettings:   Allowed(false),
		ResourceReports:    Allowed(false),
	},
})

// DefaultMatrix returns the built-in role matrix shared by every tenant.
func DefaultMatrix() *Matrix {
	return defaultMatrix
}
