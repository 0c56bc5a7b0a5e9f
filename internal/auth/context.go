// Package auth carries the signed-in user through a request. Authentication
// itself is delegated to the hosted auth service; this package only moves its
// tokens between cookies, the auth client and the request context.
package auth

import (
	"context"

	"github.com/logicloom/logicloom/internal/supabase"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// sessionContextKey is the context key for storing the request Session.
	sessionContextKey contextKey = "session"
)

// Session is the request-scoped view of the signed-in user.
type Session struct {
	User        *supabase.User
	AccessToken string
	// Refreshed is set when the tokens were rotated while resolving.
	Refreshed bool
}

// ContextWithSession adds the Session to the context. The access token is also
// attached for the hosted client so queries run as the user.
func ContextWithSession(ctx context.Context, s *Session) context.Context {
	if s == nil {
		return ctx
	}
	ctx = supabase.WithAccessToken(ctx, s.AccessToken)
	return context.WithValue(ctx, sessionContextKey, s)
}

// SessionFromContext retrieves the Session from the context.
// Returns nil if no user is signed in.
func SessionFromContext(ctx context.Context) *Session {
	s, ok := ctx.Value(sessionContextKey).(*Session)
	if !ok {
		return nil
	}
	return s
}

// UserFromContext returns the signed-in user or nil.
func UserFromContext(ctx context.Context) *supabase.User {
	s := SessionFromContext(ctx)
	if s == nil {
		return nil
	}
	return s.User
}

// UserIDFromContext is a convenience function to get user ID from context.
// Returns empty string if not authenticated.
func UserIDFromContext(ctx context.Context) string {
	u := UserFromContext(ctx)
	if u == nil {
		return ""
	}
	return u.ID
}
