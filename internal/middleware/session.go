package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/logicloom/logicloom/internal/auth"
	"github.com/logicloom/logicloom/internal/metrics"
)

// SessionConfig holds configuration for the session middleware.
type SessionConfig struct {
	Resolver *auth.Resolver
	// Configured is false when the hosted auth service has no URL or key.
	// All requests then pass through untouched.
	Configured bool
	BasePath   string
	Logger     *slog.Logger
	Metrics    metrics.Recorder
}

// Session resolves the signed-in user from the session cookies, stores it
// on the request context and applies the two auth redirects:
// /dashboard/* without a user goes to /login, and /login or /signup with a
// user goes to /dashboard.
func Session(cfg SessionConfig) func(http.Handler) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}
	base := strings.TrimRight(cfg.BasePath, "/")

	return func(next http.Handler) http.Handler {
		if !cfg.Configured || cfg.Resolver == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := cfg.Resolver.Resolve(w, r)
			switch {
			case err != nil:
				cfg.Logger.Warn("session_resolve_failed",
					slog.String("request_id", GetRequestID(r.Context())),
					slog.String("error", err.Error()),
				)
				cfg.Metrics.IncSessionResolved("error")
				session = nil
			case session == nil:
				cfg.Metrics.IncSessionResolved("anonymous")
			case session.Refreshed:
				cfg.Metrics.IncSessionResolved("refreshed")
			default:
				cfg.Metrics.IncSessionResolved("user")
			}

			path := strings.TrimPrefix(r.URL.Path, base)
			if path == "" {
				path = "/"
			}

			if session == nil && isDashboardPath(path) {
				http.Redirect(w, r, base+"/login", http.StatusTemporaryRedirect)
				return
			}
			if session != nil && isAuthPage(path) {
				http.Redirect(w, r, base+"/dashboard", authRedirectStatus(r.Method))
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.ContextWithSession(r.Context(), session)))
		})
	}
}

func isDashboardPath(p string) bool {
	return p == "/dashboard" || strings.HasPrefix(p, "/dashboard/")
}

// authRedirectStatus keeps GET and HEAD as 307. A form post to /login or
// /signup becomes a GET of /dashboard, which has no POST route.
func authRedirectStatus(method string) int {
	if method == http.MethodGet || method == http.MethodHead {
		return http.StatusTemporaryRedirect
	}
	return http.StatusSeeOther
}

func isAuthPage(p string) bool {
	p = strings.TrimSuffix(p, "/")
	return p == "/login" || p == "/signup"
}
