// Package auth implements Google sign-in and cookie sessions.
package auth

import "context"

// Principal identifies a signed-in user. Key is the stable identifier
// user data is stored under (the Google account email, or a fixed
// sentinel in dev mode).
type Principal struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// DevPrincipal is injected for every request when DEVMODE is on.
var DevPrincipal = Principal{Key: "dev-admin", Name: "Admin (dev)"}

type principalCtxKey struct{}

// WithPrincipal returns a context carrying the principal.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

// PrincipalFrom extracts the request principal, if any.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalCtxKey{}).(Principal)
	return p, ok
}
