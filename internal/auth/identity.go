package auth

import (
	"context"

	apperrors "github.com/portal-admin/internal/errors"
	"github.com/portal-admin/internal/types"
)

// Identity is the authenticated caller of an operation
type Identity struct {
	UserID int64
	Role   types.Role
}

// IsAdmin reports whether the caller has back-office privileges
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role.IsAdmin()
}

// Owns reports whether the caller may see a row owned by ownerID
func (i *Identity) Owns(ownerID int64) bool {
	return i != nil && (i.IsAdmin() || i.UserID == ownerID)
}

type identityKey struct{}

// WithIdentity stores the caller identity in ctx
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the caller identity stored in ctx, if any
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}

// Guard checks that ctx carries an identity whose role is in allowed. An empty
// allowed list admits any authenticated caller.
func Guard(ctx context.Context, allowed ...types.Role) (*Identity, error) {
	id, ok := IdentityFrom(ctx)
	if !ok {
		return nil, apperrors.NewUnauthorizedError("authentication required")
	}
	if len(allowed) == 0 {
		return id, nil
	}
	for _, role := range allowed {
		if id.Role == role {
			return id, nil
		}
	}
	return nil, apperrors.NewForbiddenError("role " + string(id.Role) + " may not perform this operation")
}

// Admins are the back-office roles
var Admins = []types.Role{types.RoleSuperAdmin, types.RoleAdmin}

// Submitters are the roles that submit paid applications
var Submitters = []types.Role{types.RoleEntrepreneur, types.RoleAgent, types.RoleSubAgent}

// Rechargers are the roles that may request a balance recharge
var Rechargers = []types.Role{types.RoleAgent, types.RoleSubAgent, types.RoleSuperAdmin}
