package auth

import (
	"context"
	"slices"

	"github.com/clinic/clinic/internal/platform/apperr"
)

const (
	RoleAdmin      = "admin"
	RoleDoctor     = "doctor"
	RolePharmacist = "pharmacist"
)

var validRoles = map[string]bool{
	RoleAdmin: true, RoleDoctor: true, RolePharmacist: true,
}

// ValidRole reports whether role is one of the staff roles.
func ValidRole(role string) bool {
	return validRoles[role]
}

// Actor is the authenticated staff member on whose behalf an operation runs.
// Services take it as an explicit argument rather than reading it from a
// request context.
type Actor struct {
	ID   int64  `json:"id"`
	Role string `json:"role"`
}

// Require returns a *apperr.ForbiddenError unless the actor holds one of the
// given roles. Admins pass every check.
func (a Actor) Require(roles ...string) error {
	if a.Role == RoleAdmin || slices.Contains(roles, a.Role) {
		return nil
	}
	return &apperr.ForbiddenError{Role: a.Role, Required: roles}
}

type contextKey string

const actorKey contextKey = "actor"

// WithActor binds the actor to ctx.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// ActorFromContext returns the actor bound by the auth middleware.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey).(Actor)
	return a, ok
}
