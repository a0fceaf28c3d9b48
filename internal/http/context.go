package http

import (
	"context"

	"github.com/example/room-booking/internal/booking"
)

type contextKey string

const identityContextKey contextKey = "identity"

// ContextWithIdentity returns a derived context containing the caller identity.
func ContextWithIdentity(ctx context.Context, identity booking.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext extracts the caller identity from context if available.
func IdentityFromContext(ctx context.Context) (booking.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(booking.Identity)
	return identity, ok
}
