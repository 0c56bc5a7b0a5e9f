package supabase

import "context"

type contextKey struct{}

// WithAccessToken returns a context whose requests are authorized as the user
// owning token, so row level security applies to them.
func WithAccessToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, token)
}

// AccessTokenFromContext returns the user access token stored by WithAccessToken.
func AccessTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(contextKey{}).(string)
	return token
}
