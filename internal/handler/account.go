package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/logicloom/logicloom/internal/auth"
	"github.com/logicloom/logicloom/internal/service"
	"github.com/logicloom/logicloom/internal/supabase"
	"github.com/logicloom/logicloom/internal/view"
)

// Form messages shown on the login and signup pages.
const (
	msgInvalidCredentials = "Invalid email or password."
	msgInvalidForm        = "Enter a valid email and a password of at least 6 characters."
	msgAuthUnavailable    = "Sign in is temporarily unavailable. Please try again."
	msgCheckEmail         = "Check your email to confirm your account, then sign in."
)

// AccountHandler serves the login and signup forms and manages the session
// cookies.
type AccountHandler struct {
	pages
	svc     *service.AccountService
	cookies auth.CookieConfig
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(svc *service.AccountService, renderer *view.Renderer, cookies auth.CookieConfig, logger *slog.Logger) *AccountHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountHandler{
		pages:   pages{view: renderer, logger: logger},
		svc:     svc,
		cookies: cookies,
	}
}

// LoginForm handles GET /login.
func (h *AccountHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, view.PageLogin, "Sign in", view.AuthForm{Demo: !h.svc.Configured()})
}

// SignupForm handles GET /signup.
func (h *AccountHandler) SignupForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, view.PageSignup, "Sign up", view.AuthForm{Demo: !h.svc.Configured()})
}

// Login handles POST /login.
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	form := view.AuthForm{Email: r.PostFormValue("email")}

	session, err := h.svc.SignIn(r.Context(), service.Credentials{
		Email:    form.Email,
		Password: r.PostFormValue("password"),
	})
	if err != nil {
		status := h.formError(err, &form, "login_failed")
		h.render(w, r, status, view.PageLogin, "Sign in", form)
		return
	}

	h.cookies.Write(w, session)
	h.logger.Info("login_succeeded", slog.String("user_id", sessionUserID(session.User)))
	h.redirect(w, r, "/dashboard")
}

// Signup handles POST /signup. When the hosted service asks for email
// confirmation no session is returned and a notice is shown instead.
func (h *AccountHandler) Signup(w http.ResponseWriter, r *http.Request) {
	form := view.AuthForm{Email: r.PostFormValue("email")}

	result, err := h.svc.SignUp(r.Context(), service.Credentials{
		Email:    form.Email,
		Password: r.PostFormValue("password"),
	})
	if err != nil {
		status := h.formError(err, &form, "signup_failed")
		h.render(w, r, status, view.PageSignup, "Sign up", form)
		return
	}

	h.logger.Info("signup_succeeded",
		slog.String("user_id", sessionUserID(result.User)),
		slog.Bool("confirmation_required", result.Session == nil),
	)

	if result.Session == nil {
		form.Notice = msgCheckEmail
		h.render(w, r, http.StatusOK, view.PageSignup, "Sign up", form)
		return
	}

	h.cookies.Write(w, result.Session)
	h.redirect(w, r, "/dashboard")
}

// Logout handles POST /logout. Revoking the session is best effort; the
// cookies are always cleared.
func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if !h.svc.Configured() {
		writeError(w, http.StatusServiceUnavailable, "Authentication is not configured")
		return
	}

	if s := auth.SessionFromContext(r.Context()); s != nil {
		if err := h.svc.SignOut(r.Context(), s.AccessToken); err != nil {
			h.logger.Warn("logout_revoke_failed", slog.String("error", err.Error()))
		}
	}

	h.cookies.Clear(w)
	h.redirect(w, r, "/")
}

// formError maps a sign-in or sign-up error onto the form and returns the
// response status.
func (h *AccountHandler) formError(err error, form *view.AuthForm, event string) int {
	switch {
	case errors.Is(err, service.ErrAuthNotConfigured):
		form.Demo = true
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrInvalidCredentials):
		form.Error = msgInvalidCredentials
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrInvalidInput):
		form.Error = msgInvalidForm
		if msg := inputMessage(err); msg != "" {
			form.Error = msg
		}
		return http.StatusBadRequest
	default:
		h.logger.Error(event, slog.String("error", err.Error()))
		form.Error = msgAuthUnavailable
		return http.StatusBadGateway
	}
}

// inputMessage returns the hosted service's message for a refused sign-up.
func inputMessage(err error) string {
	var rejected *service.RejectedError
	if errors.As(err, &rejected) {
		return rejected.Message
	}
	return ""
}

func sessionUserID(u *supabase.User) string {
	if u == nil {
		return ""
	}
	return u.ID
}
