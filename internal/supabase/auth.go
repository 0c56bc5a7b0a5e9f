package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// User is an authenticated user as returned by the auth service.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	Role         string         `json:"role,omitempty"`
	Aud          string         `json:"aud,omitempty"`
	AppMetadata  map[string]any `json:"app_metadata,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Session is an access/refresh token pair.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         *User  `json:"user"`
}

// Expiry returns when the access token stops being valid. It prefers the
// exp claim and falls back to expires_at.
func (s *Session) Expiry() time.Time {
	if exp, err := TokenExpiry(s.AccessToken); err == nil {
		return exp
	}
	if s.ExpiresAt > 0 {
		return time.Unix(s.ExpiresAt, 0)
	}
	return time.Time{}
}

// ErrNotConfigured is returned by auth calls on a placeholder client.
var ErrNotConfigured = errors.New("supabase: not configured")

// GetUser returns the user owning accessToken.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	if accessToken == "" {
		return nil, ErrUnauthorized
	}

	var user User
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/auth/v1/user",
		bearer: accessToken,
	}, &user)
	if err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, fmt.Errorf("supabase: user response without id")
	}
	return &user, nil
}

// RefreshSession exchanges a refresh token for a new session.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, ErrUnauthorized
	}
	return c.tokenGrant(ctx, "refresh_token", map[string]string{"refresh_token": refreshToken})
}

// SignInWithPassword starts a session with email and password.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	if !c.configured {
		return nil, ErrNotConfigured
	}
	return c.tokenGrant(ctx, "password", map[string]string{"email": email, "password": password})
}

func (c *Client) tokenGrant(ctx context.Context, grant string, body map[string]string) (*Session, error) {
	var session Session
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token?grant_type=" + grant,
		body:   body,
		bearer: c.apiKey,
	}, &session)
	if err != nil {
		return nil, err
	}
	if session.AccessToken == "" {
		return nil, fmt.Errorf("supabase: token response without access token")
	}
	return &session, nil
}

// SignUp registers a user. When email confirmation is disabled the project
// returns a session and it is non-nil; otherwise only the user is returned.
func (c *Client) SignUp(ctx context.Context, email, password string) (*User, *Session, error) {
	if !c.configured {
		return nil, nil, ErrNotConfigured
	}

	var raw json.RawMessage
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/signup",
		body:   map[string]string{"email": email, "password": password},
		bearer: c.apiKey,
	}, &raw)
	if err != nil {
		return nil, nil, err
	}

	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, nil, fmt.Errorf("supabase: decode signup: %w", err)
	}
	if session.AccessToken != "" && session.User != nil {
		return session.User, &session, nil
	}

	var user User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, nil, fmt.Errorf("supabase: decode signup user: %w", err)
	}
	return &user, nil, nil
}

// SignOut revokes the session owning accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if !c.configured {
		return ErrNotConfigured
	}
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/logout",
		bearer: accessToken,
	}, nil)
}
