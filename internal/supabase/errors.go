package supabase

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

var (
	// ErrNotFound matches responses for missing rows or resources.
	ErrNotFound = errors.New("supabase: not found")
	// ErrUnauthorized matches rejected or expired credentials.
	ErrUnauthorized = errors.New("supabase: unauthorized")
	// ErrConflict matches unique constraint violations.
	ErrConflict = errors.New("supabase: conflict")
)

// PostgREST code for "JSON object requested, multiple (or no) rows returned".
const codeNoRows = "PGRST116"

// Postgres unique_violation.
const codeUniqueViolation = "23505"

// APIError is a non-2xx response from the project.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase: status %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase: status %d: %s", e.Status, e.Message)
}

// Is maps the response onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound || e.Code == codeNoRows
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	case ErrConflict:
		return e.Status == http.StatusConflict || e.Code == codeUniqueViolation
	}
	return false
}

// parseAPIError reads the error body shapes used by PostgREST
// ({code, message}) and GoTrue ({error, error_description} or {code, msg}).
func parseAPIError(status int, body []byte) *APIError {
	e := &APIError{Status: status}

	if !gjson.ValidBytes(body) {
		e.Message = http.StatusText(status)
		return e
	}

	res := gjson.ParseBytes(body)
	for _, field := range []string{"msg", "message", "error_description", "error"} {
		if v := res.Get(field); v.Exists() && v.String() != "" {
			e.Message = v.String()
			break
		}
	}
	for _, field := range []string{"error_code", "code"} {
		if v := res.Get(field); v.Exists() && v.String() != "" {
			e.Code = v.String()
			break
		}
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}
