package jwksmiddleware

import (
	"context"

	"github.com/tokengate/go-jwks-middleware/validator"
)

// contextKey is unexported so only this package can create context keys,
// ruling out collisions with other packages.
type contextKey int

const identityKey contextKey = iota

// SetIdentity stores the authenticated identity in the context. Adapters for
// other transports call this after successful validation.
func SetIdentity(ctx context.Context, identity *validator.AuthenticatedIdentity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext returns the authenticated identity stored by the
// middleware, if any.
func IdentityFromContext(ctx context.Context) (*validator.AuthenticatedIdentity, bool) {
	identity, ok := ctx.Value(identityKey).(*validator.AuthenticatedIdentity)
	return identity, ok
}

// HasIdentity reports whether an authenticated identity is present in the
// context.
func HasIdentity(ctx context.Context) bool {
	_, ok := IdentityFromContext(ctx)
	return ok
}
