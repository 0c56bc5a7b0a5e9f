// Package supabase is a small client for the hosted database (PostgREST) and
// auth (GoTrue) endpoints of a Supabase project.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Placeholder credentials used when the project URL or public key is missing.
// Requests against them fail, but callers can be constructed and the process starts.
const (
	PlaceholderURL = "https://placeholder.supabase.co"
	PlaceholderKey = "placeholder"
)

const maxResponseBody = 4 << 20

// Config configures the client.
type Config struct {
	URL     string
	AnonKey string
	Timeout time.Duration
	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
}

// Client performs REST and auth calls against one project.
// It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	http       *http.Client
	configured bool
}

// New creates a client. When URL or AnonKey is empty the placeholder
// credentials are used and Configured reports false.
func New(cfg Config) *Client {
	configured := cfg.URL != "" && cfg.AnonKey != ""

	baseURL, key := strings.TrimRight(cfg.URL, "/"), cfg.AnonKey
	if !configured {
		baseURL, key = PlaceholderURL, PlaceholderKey
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     key,
		http:       hc,
		configured: configured,
	}
}

// Configured reports whether real credentials were supplied.
func (c *Client) Configured() bool {
	return c.configured
}

// URL returns the project base URL in use.
func (c *Client) URL() string {
	return c.baseURL
}

// request is a single call to the project.
type request struct {
	method  string
	path    string // includes query string
	body    any
	headers map[string]string
	// bearer overrides the Authorization token; empty falls back to the
	// context access token, then the public key.
	bearer string
}

// do executes req and decodes a successful JSON body into dest (when non-nil).
func (c *Client) do(ctx context.Context, req request, dest any) error {
	var body io.Reader
	if req.body != nil {
		buf, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("supabase: encode body: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, body)
	if err != nil {
		return fmt.Errorf("supabase: build request: %w", err)
	}

	bearer := req.bearer
	if bearer == "" {
		bearer = AccessTokenFromContext(ctx)
	}
	if bearer == "" {
		bearer = c.apiKey
	}

	httpReq.Header.Set("apikey", c.apiKey)
	httpReq.Header.Set("Authorization", "Bearer "+bearer)
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("supabase: %s %s: %w", req.method, pathOnly(req.path), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("supabase: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIError(resp.StatusCode, raw)
	}

	if dest == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("supabase: decode response: %w", err)
	}
	return nil
}

func pathOnly(p string) string {
	if i := strings.IndexByte(p, '?'); i >= 0 {
		return p[:i]
	}
	return p
}
