// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Plans and billing intervals offered on the pricing page.
var (
	Plans     = []string{"creator", "pro", "agency"}
	Intervals = []string{"monthly", "annual"}
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Public URL of the site, used for billing return and success URLs.
	AppURL string `env:"APP_URL" envDefault:"http://localhost:8080"`

	// Sub-path prefix the site is served under (e.g. /LogicLoom on GitHub Pages).
	BasePath string `env:"BASE_PATH" envDefault:""`

	// Hosted database/auth service. The NEXT_PUBLIC_ names are accepted so an
	// existing frontend .env keeps working.
	SupabaseURL           string        `env:"SUPABASE_URL"`
	SupabaseAnonKey       string        `env:"SUPABASE_ANON_KEY"`
	PublicSupabaseURL     string        `env:"NEXT_PUBLIC_SUPABASE_URL"`
	PublicSupabaseAnonKey string        `env:"NEXT_PUBLIC_SUPABASE_ANON_KEY"`
	HostedTimeout         time.Duration `env:"HOSTED_TIMEOUT" envDefault:"10s"`

	// Direct Postgres access to the same database (optional).
	DatabaseURL string `env:"DATABASE_URL"`

	// Cache (Redis, optional)
	RedisURL string `env:"REDIS_URL"`

	// Buffer event_stream writes through a Redis stream when Redis is set.
	EventStreamEnabled   bool `env:"EVENT_STREAM_ENABLED" envDefault:"true"`
	EventStreamBatchSize int  `env:"EVENT_STREAM_BATCH_SIZE" envDefault:"100"`

	// Billing (Stripe)
	StripeSecretKey          string `env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret      string `env:"STRIPE_WEBHOOK_SECRET"`
	StripePriceCreatorMonth  string `env:"STRIPE_PRICE_CREATOR_MONTHLY"`
	StripePriceCreatorAnnual string `env:"STRIPE_PRICE_CREATOR_ANNUAL"`
	StripePriceProMonth      string `env:"STRIPE_PRICE_PRO_MONTHLY"`
	StripePriceProAnnual     string `env:"STRIPE_PRICE_PRO_ANNUAL"`
	StripePriceAgencyMonth   string `env:"STRIPE_PRICE_AGENCY_MONTHLY"`
	StripePriceAgencyAnnual  string `env:"STRIPE_PRICE_AGENCY_ANNUAL"`

	// Session cookies
	SessionCookiePrefix  string        `env:"SESSION_COOKIE_PREFIX" envDefault:"sb"`
	SessionRefreshLeeway time.Duration `env:"SESSION_REFRESH_LEEWAY" envDefault:"60s"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Rate limiting for /api routes, per client IP
	RateLimitEnabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitRPS     int  `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst   int  `env:"RATE_LIMIT_BURST" envDefault:"20"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`

	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// HostedConfigured reports whether both the hosted service URL and public key are set.
func (c *Config) HostedConfigured() bool {
	return c.SupabaseURL != "" && c.SupabaseAnonKey != ""
}

// BillingConfigured reports whether a Stripe secret key is set.
func (c *Config) BillingConfigured() bool {
	return c.StripeSecretKey != ""
}

// PriceIDs returns the configured Stripe price ids keyed by plan and interval.
// Unset prices are omitted.
func (c *Config) PriceIDs() map[string]map[string]string {
	all := map[string]map[string]string{
		"creator": {"monthly": c.StripePriceCreatorMonth, "annual": c.StripePriceCreatorAnnual},
		"pro":     {"monthly": c.StripePriceProMonth, "annual": c.StripePriceProAnnual},
		"agency":  {"monthly": c.StripePriceAgencyMonth, "annual": c.StripePriceAgencyAnnual},
	}

	out := make(map[string]map[string]string, len(all))
	for plan, intervals := range all {
		for interval, id := range intervals {
			if id == "" {
				continue
			}
			if out[plan] == nil {
				out[plan] = make(map[string]string)
			}
			out[plan][interval] = id
		}
	}
	return out
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Load reads an optional .env file, parses environment variables and returns a Config.
// Variables already present in the environment take precedence over the file.
func Load() (*Config, error) {
	return LoadFiles(".env")
}

// LoadFiles is Load with explicit dotenv paths. Missing files are ignored.
func LoadFiles(paths ...string) (*Config, error) {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", p, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	if c.SupabaseURL == "" {
		c.SupabaseURL = c.PublicSupabaseURL
	}
	if c.SupabaseAnonKey == "" {
		c.SupabaseAnonKey = c.PublicSupabaseAnonKey
	}
	c.SupabaseURL = strings.TrimRight(c.SupabaseURL, "/")
	c.AppURL = strings.TrimRight(c.AppURL, "/")
	c.BasePath = NormalizeBasePath(c.BasePath)
}

// NormalizeBasePath returns p with a single leading slash and no trailing slash.
// An empty or root path normalizes to "".
func NormalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	return "/" + p
}
