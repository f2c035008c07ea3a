package auth

import (
	"context"
	"strings"
)

// Identity is the verified caller of a request. The zero value is anonymous.
type Identity struct {
	Username string
	// Method is the scheme that verified the caller ("basic" or "bearer").
	Method string
}

// Anonymous returns the unauthenticated identity.
func Anonymous() Identity {
	return Identity{}
}

// Authenticated reports whether credentials were verified.
func (i Identity) Authenticated() bool {
	return i.Username != ""
}

type identityKey struct{}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity stored in ctx, or Anonymous.
func FromContext(ctx context.Context) Identity {
	if id, ok := ctx.Value(identityKey{}).(Identity); ok {
		return id
	}
	return Anonymous()
}

// normalizeAnonymous maps the configured anonymous username to Anonymous.
func normalizeAnonymous(id Identity, anonymousUsername string) Identity {
	if anonymousUsername != "" && strings.EqualFold(id.Username, anonymousUsername) {
		return Anonymous()
	}
	return id
}
