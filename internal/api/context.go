package api

import (
	"context"
	"errors"
)

// Identity is the caller resolved from the gateway headers.
type Identity struct {
	WorkspaceID string
	UserID      string
}

type identityContextKey struct{}

// ErrNoIdentityInContext indicates the identity middleware did not run.
var ErrNoIdentityInContext = errors.New("no identity in context")

// WithIdentity returns a new context with the caller identity attached.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the caller identity from the context.
func IdentityFromContext(ctx context.Context) (Identity, error) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	if !ok || id.WorkspaceID == "" || id.UserID == "" {
		return Identity{}, ErrNoIdentityInContext
	}
	return id, nil
}

// MustIdentityFromContext extracts the identity or panics.
// Use only when middleware guarantees identity presence.
func MustIdentityFromContext(ctx context.Context) Identity {
	id, err := IdentityFromContext(ctx)
	if err != nil {
		panic("identity not in context: middleware misconfiguration")
	}
	return id
}
