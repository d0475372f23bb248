// Package context provides request-scoped values extraction.
package context

import (
	"context"

	"bakehouse/internal/core/id"
)

// UserContext contains the authenticated caller.
type UserContext struct {
	UserID    string
	Username  string
	Role      string
	SessionID string
}

// IsAdmin reports whether the caller has the admin role.
func (u *UserContext) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Role names. Each user carries exactly one role.
const (
	RoleAdmin      = "admin"
	RoleWarehouse  = "warehouse"
	RoleKitchen    = "kitchen"
	RoleOperations = "operations"
)

// Roles lists every valid role.
var Roles = []string{RoleWarehouse, RoleKitchen, RoleOperations, RoleAdmin}

// IsValidRole checks that role is one of Roles.
func IsValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}

// HasRole checks if the caller has one of the given roles.
func HasRole(ctx context.Context, roles ...string) bool {
	u := GetUser(ctx)
	if u == nil {
		return false
	}
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// ActorID returns the caller's id parsed as an ID, or nil for anonymous or
// system contexts.
func ActorID(ctx context.Context) *id.ID {
	u := GetUser(ctx)
	if u == nil || u.UserID == "" {
		return nil
	}
	v, err := id.Parse(u.UserID)
	if err != nil {
		return nil
	}
	return &v
}
