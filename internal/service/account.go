package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/logicloom/logicloom/internal/supabase"
)

// AuthClient is the hosted auth API used for account actions.
type AuthClient interface {
	Configured() bool
	SignInWithPassword(ctx context.Context, email, password string) (*supabase.Session, error)
	SignUp(ctx context.Context, email, password string) (*supabase.User, *supabase.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

// Credentials is a login or signup form.
type Credentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6,max=72"`
}

// SignUpResult is the outcome of a signup. Session is nil when the hosted
// service requires email confirmation first.
type SignUpResult struct {
	User    *supabase.User
	Session *supabase.Session
}

// RejectedError is a sign-up refused by the hosted service, carrying its
// user-facing message (e.g. "User already registered").
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string { return e.Message }

// AccountService signs users in and out through the hosted auth service.
type AccountService struct {
	auth AuthClient
}

// NewAccountService creates a new AccountService.
func NewAccountService(auth AuthClient) *AccountService {
	return &AccountService{auth: auth}
}

// Configured reports whether the hosted auth service is available.
func (s *AccountService) Configured() bool {
	return s.auth.Configured()
}

func (s *AccountService) check(c *Credentials) error {
	if !s.auth.Configured() {
		return ErrAuthNotConfigured
	}
	c.Email = NormalizeEmail(c.Email)
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// SignIn starts a session with email and password.
func (s *AccountService) SignIn(ctx context.Context, c Credentials) (*supabase.Session, error) {
	if err := s.check(&c); err != nil {
		return nil, err
	}

	session, err := s.auth.SignInWithPassword(ctx, c.Email, c.Password)
	if err != nil {
		var apiErr *supabase.APIError
		if errors.As(err, &apiErr) && apiErr.Status < 500 {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("sign in: %w", err)
	}
	return session, nil
}

// SignUp registers a user.
func (s *AccountService) SignUp(ctx context.Context, c Credentials) (*SignUpResult, error) {
	if err := s.check(&c); err != nil {
		return nil, err
	}

	user, session, err := s.auth.SignUp(ctx, c.Email, c.Password)
	if err != nil {
		var apiErr *supabase.APIError
		if errors.As(err, &apiErr) && apiErr.Status < 500 {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, &RejectedError{Message: strings.TrimSpace(apiErr.Message)})
		}
		return nil, fmt.Errorf("sign up: %w", err)
	}
	return &SignUpResult{User: user, Session: session}, nil
}

// SignOut revokes the session owning accessToken.
func (s *AccountService) SignOut(ctx context.Context, accessToken string) error {
	if !s.auth.Configured() {
		return ErrAuthNotConfigured
	}
	if accessToken == "" {
		return nil
	}
	return s.auth.SignOut(ctx, accessToken)
}
