package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/logicloom/logicloom/internal/supabase"
)

// Client is the subset of the hosted auth client the Resolver uses.
type Client interface {
	GetUser(ctx context.Context, accessToken string) (*supabase.User, error)
	RefreshSession(ctx context.Context, refreshToken string) (*supabase.Session, error)
}

// Resolver turns the session cookie pair of a request into a Session,
// refreshing and rewriting the cookies when the access token is about to expire.
type Resolver struct {
	client  Client
	cookies CookieConfig
	leeway  time.Duration
	now     func() time.Time
}

// NewResolver creates a Resolver. leeway is how long before expiry a token is refreshed.
func NewResolver(client Client, cookies CookieConfig, leeway time.Duration) *Resolver {
	return &Resolver{
		client:  client,
		cookies: cookies,
		leeway:  leeway,
		now:     time.Now,
	}
}

// Cookies returns the cookie configuration in use.
func (r *Resolver) Cookies() CookieConfig {
	return r.cookies
}

// Resolve returns the Session for req, or nil when nobody is signed in.
// A non-nil error means the auth service could not be asked; callers treat
// that as no user. Rejected tokens clear the cookies and are not an error.
func (r *Resolver) Resolve(w http.ResponseWriter, req *http.Request) (*Session, error) {
	access, refresh := r.cookies.ReadTokens(req)
	if access == "" && refresh == "" {
		return nil, nil
	}

	ctx := req.Context()
	refreshed := false

	if refresh != "" && r.needsRefresh(access) {
		session, err := r.client.RefreshSession(ctx, refresh)
		if err != nil {
			if isRejected(err) {
				r.cookies.Clear(w)
				return nil, nil
			}
			return nil, err
		}
		r.cookies.Write(w, session)
		access = session.AccessToken
		refreshed = true
	}

	if access == "" {
		return nil, nil
	}

	user, err := r.client.GetUser(ctx, access)
	if err != nil {
		if isRejected(err) {
			r.cookies.Clear(w)
			return nil, nil
		}
		return nil, err
	}

	return &Session{User: user, AccessToken: access, Refreshed: refreshed}, nil
}

func (r *Resolver) needsRefresh(access string) bool {
	if access == "" {
		return true
	}
	exp, err := supabase.TokenExpiry(access)
	if err != nil {
		return true
	}
	return !r.now().Add(r.leeway).Before(exp)
}

func isRejected(err error) bool {
	if errors.Is(err, supabase.ErrUnauthorized) {
		return true
	}
	var apiErr *supabase.APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest
}
