package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bychung/snusv-angel-club-sub002/internal/domain"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated caller attached to a request context.
type Identity struct {
	ProfileID uuid.UUID
	Email     string
	Role      domain.ProfileRole
}

// ContextWithIdentity returns a new context that carries the authenticated caller.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext retrieves the authenticated caller from the context, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	value := ctx.Value(identityKey)
	if value == nil {
		return Identity{}, false
	}
	id, ok := value.(Identity)
	if !ok {
		return Identity{}, false
	}
	if id.ProfileID == uuid.Nil {
		return Identity{}, false
	}
	return id, true
}

// RequireAdmin ensures the context carries an authenticated admin.
func RequireAdmin(ctx context.Context) (Identity, error) {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return Identity{}, fmt.Errorf("authentication required")
	}
	if id.Role != domain.RoleAdmin {
		return Identity{}, fmt.Errorf("admin role required")
	}
	return id, nil
}
