// Package service provides business logic for the application.
package service

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// Service errors.
var (
	ErrProfileNotFound      = errors.New("profile not found")
	ErrNoBillingCustomer    = errors.New("no billing customer for user")
	ErrBillingProvider      = errors.New("billing provider request failed")
	ErrBillingNotConfigured = errors.New("billing is not configured")
	ErrInvalidPlan          = errors.New("invalid plan configuration")
	ErrInvalidEmail         = errors.New("invalid email address")
	ErrAlreadyOnWaitlist    = errors.New("email already on waitlist")
	ErrAuthNotConfigured    = errors.New("authentication is not configured")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidCredentials   = errors.New("invalid login credentials")
)

// validate is shared by every service; validator caches struct metadata.
var validate = validator.New(validator.WithRequiredStructEnabled())
