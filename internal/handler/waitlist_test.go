package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/logicloom/logicloom/internal/handler/dto"
	"github.com/logicloom/logicloom/internal/model"
	"github.com/logicloom/logicloom/internal/service"
)

func TestWaitlistHandler_Join(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/api/waitlist", strings.NewReader(`{"email":"  Maya@Example.COM ","score":72.5}`))
	rec := env.do(req, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var body dto.WaitlistResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if !body.Success || body.Message != service.WaitlistJoinedMessage {
		t.Errorf("body = %+v", body)
	}

	if len(env.store.Waitlist) != 1 {
		t.Fatalf("waitlist entries = %d, want 1", len(env.store.Waitlist))
	}
	entry := env.store.Waitlist[0]
	if entry.Email != "maya@example.com" || entry.Source != model.WaitlistSourceSimulator {
		t.Errorf("entry = %+v", entry)
	}
	if entry.ScoreAtSignup == nil || *entry.ScoreAtSignup != 72.5 {
		t.Errorf("score = %v, want 72.5", entry.ScoreAtSignup)
	}
}

func TestWaitlistHandler_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		body      string
		setup     func(*testEnv)
		wantCode  int
		wantError string
	}{
		{"malformed json", `{"email":`, nil, http.StatusBadRequest, "Invalid request body"},
		{"invalid email", `{"email":"not-an-email"}`, nil, http.StatusBadRequest, "Please enter a valid email address"},
		{"missing email", `{}`, nil, http.StatusBadRequest, "Please enter a valid email address"},
		{
			name: "duplicate",
			body: `{"email":"maya@example.com"}`,
			setup: func(e *testEnv) {
				e.store.Waitlist = append(e.store.Waitlist, &model.WaitlistEntry{Email: "maya@example.com"})
			},
			wantCode:  http.StatusConflict,
			wantError: "This email is already on the waitlist!",
		},
		{
			name:      "store failure",
			body:      `{"email":"maya@example.com"}`,
			setup:     func(e *testEnv) { e.store.Err = errors.New("timeout") },
			wantCode:  http.StatusInternalServerError,
			wantError: "Failed to join waitlist. Please try again.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t)
			if tt.setup != nil {
				tt.setup(env)
			}

			rec := env.do(httptest.NewRequest(http.MethodPost, "/api/waitlist", strings.NewReader(tt.body)), nil)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if got := decodeError(t, rec); got != tt.wantError {
				t.Errorf("error = %q, want %q", got, tt.wantError)
			}
		})
	}
}
