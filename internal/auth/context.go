package auth

import "context"

// Identity is the verified subject of the current request.
type Identity struct {
	Subject string
}

type contextKey struct {
	name string
}

var identityCtxKey = &contextKey{"identity"}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, id)
}

// IdentityFromContext returns the identity attached by the Gate. A false
// result on a protected route means the route was mounted without the Gate.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityCtxKey).(Identity)
	if !ok || id.Subject == "" {
		return Identity{}, false
	}
	return id, true
}
