package rbac

import "github.com/rs/zerolog"

// Subject is the part of a profile the evaluator reads.
type Subject interface {
	RoleName() string
	PermissionOverrides() Overrides
}

// Evaluator answers permission questions against a matrix. It has no state
// besides the matrix and the logger and is safe for concurrent use.
type Evaluator struct {
	matrix *Matrix
	log    zerolog.Logger
}

func NewEvaluator(matrix *Matrix, log zerolog.Logger) *Evaluator {
	if matrix == nil {
		matrix = DefaultMatrix()
	}
	return &Evaluator{matrix: matrix, log: log}
}

// HasPermission decides whether subject may perform action on resource.
// Pass AnyAction to ask whether any of the four actions is granted.
//
// A per-profile override for the resource replaces the role default entirely,
// even when the override denies. Without an override the role row decides; a
// resource missing from the row is denied.
func (e *Evaluator) HasPermission(subject Subject, resource Resource, action Action) bool {
	if subject == nil || subject.RoleName() == "" {
		return false
	}

	if p, ok := subject.PermissionOverrides().Lookup(resource); ok {
		return p.Allows(action)
	}

	p, hasRole, hasResource := e.matrix.lookup(subject.RoleName(), resource)
	if !hasRole {
		// A stored role the matrix does not know is a data/config mismatch.
		e.log.Error().
			Str("role", subject.RoleName()).
			Str("resource", string(resource)).
			Msg("role missing from permission matrix")
		return false
	}
	if !hasResource {
		return false
	}
	return p.Allows(action)
}

// Capabilities expands the effective permissions of subject over every known
// resource, overrides applied.
func (e *Evaluator) Capabilities(subject Subject) map[Resource]Actions {
	caps := make(map[Resource]Actions, len(Resources()))
	for _, res := range Resources() {
		caps[res] = Actions{
			View:   e.HasPermission(subject, res, ActionView),
			Create: e.HasPermission(subject, res, ActionCreate),
			Edit:   e.HasPermission(subject, res, ActionEdit),
			Delete: e.HasPermission(subject, res, ActionDelete),
		}
	}
	return caps
}
