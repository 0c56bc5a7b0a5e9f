package auth

import (
	"net/http"
	"time"

	"github.com/logicloom/logicloom/internal/supabase"
)

// CookieConfig names and scopes the session cookie pair.
type CookieConfig struct {
	Prefix string
	Path   string
	Secure bool
	// RefreshMaxAge bounds how long the refresh cookie lives in the browser.
	RefreshMaxAge time.Duration
}

// DefaultRefreshMaxAge is used when RefreshMaxAge is zero.
const DefaultRefreshMaxAge = 30 * 24 * time.Hour

// AccessName is the access token cookie name.
func (c CookieConfig) AccessName() string { return c.prefix() + "-access-token" }

// RefreshName is the refresh token cookie name.
func (c CookieConfig) RefreshName() string { return c.prefix() + "-refresh-token" }

func (c CookieConfig) prefix() string {
	if c.Prefix == "" {
		return "sb"
	}
	return c.Prefix
}

func (c CookieConfig) path() string {
	if c.Path == "" {
		return "/"
	}
	return c.Path
}

// ReadTokens returns the access and refresh tokens carried by r.
func (c CookieConfig) ReadTokens(r *http.Request) (access, refresh string) {
	if ck, err := r.Cookie(c.AccessName()); err == nil {
		access = ck.Value
	}
	if ck, err := r.Cookie(c.RefreshName()); err == nil {
		refresh = ck.Value
	}
	return access, refresh
}

// Write stores s in the cookie pair.
func (c CookieConfig) Write(w http.ResponseWriter, s *supabase.Session) {
	accessAge := time.Hour
	if exp := s.Expiry(); !exp.IsZero() {
		accessAge = time.Until(exp)
	}
	refreshAge := c.RefreshMaxAge
	if refreshAge <= 0 {
		refreshAge = DefaultRefreshMaxAge
	}

	http.SetCookie(w, c.cookie(c.AccessName(), s.AccessToken, accessAge))
	if s.RefreshToken != "" {
		http.SetCookie(w, c.cookie(c.RefreshName(), s.RefreshToken, refreshAge))
	}
}

// Clear expires both cookies.
func (c CookieConfig) Clear(w http.ResponseWriter) {
	for _, name := range []string{c.AccessName(), c.RefreshName()} {
		ck := c.cookie(name, "", 0)
		ck.MaxAge = -1
		ck.Expires = time.Unix(0, 0)
		http.SetCookie(w, ck)
	}
}

func (c CookieConfig) cookie(name, value string, maxAge time.Duration) *http.Cookie {
	secs := int(maxAge / time.Second)
	if secs < 1 {
		secs = 1
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     c.path(),
		MaxAge:   secs,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
