package auth

import (
	"context"

	"github.com/2beens/realestate/internal/apperr"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Identity is the authenticated user derived from a verified session token.
// A nil *Identity means anonymous.
type Identity struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

// IsAdmin is the access check every mutating operation relies on.
func IsAdmin(identity *Identity) bool {
	return identity.IsAdmin()
}

// RequireAdmin returns an Unauthorized error unless identity is an admin.
func RequireAdmin(identity *Identity) error {
	if !IsAdmin(identity) {
		return apperr.Unauthorized()
	}
	return nil
}

type identityCtxKey struct{}

func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, identity)
}

// IdentityFromContext returns the identity stored by the request middleware,
// or nil for anonymous requests.
func IdentityFromContext(ctx context.Context) *Identity {
	identity, _ := ctx.Value(identityCtxKey{}).(*Identity)
	return identity
}
