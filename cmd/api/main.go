// Package main is the entrypoint for the LogicLoom web server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/logicloom/logicloom/internal/analytics"
	"github.com/logicloom/logicloom/internal/auth"
	"github.com/logicloom/logicloom/internal/billing"
	"github.com/logicloom/logicloom/internal/cache"
	"github.com/logicloom/logicloom/internal/config"
	"github.com/logicloom/logicloom/internal/handler"
	"github.com/logicloom/logicloom/internal/metrics"
	"github.com/logicloom/logicloom/internal/middleware"
	"github.com/logicloom/logicloom/internal/repository"
	"github.com/logicloom/logicloom/internal/server"
	"github.com/logicloom/logicloom/internal/service"
	"github.com/logicloom/logicloom/internal/supabase"
	"github.com/logicloom/logicloom/internal/view"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", slog.String("error", err.Error()))
		os.Exit(1)
	}

	srv := server.New(setupRouter(a), server.Options{
		Addr:            fmt.Sprintf(":%d", cfg.AppPort),
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
		Logger:          logger,
	})
	for _, c := range a.closers {
		srv.OnShutdown(c.name, c.close)
	}

	logger.Info("starting server",
		slog.Int("port", cfg.AppPort),
		slog.String("app_url", cfg.AppURL),
		slog.String("base_path", cfg.BasePath),
		slog.String("env", cfg.AppEnv),
		slog.Bool("hosted_configured", cfg.HostedConfigured()),
		slog.Bool("billing_configured", cfg.BillingConfigured()),
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// app holds the wired components the router needs.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	recorder metrics.Recorder
	exporter handler.MetricsExporter
	renderer *view.Renderer
	resolver *auth.Resolver
	cache    *cache.Cache
	store    repository.Store

	pages    *handler.PageHandler
	account  *handler.AccountHandler
	billing  *handler.BillingHandler
	waitlist *handler.WaitlistHandler
	tools    *handler.ToolsHandler
	health   *handler.HealthHandler

	// closers are registered with the server in connection order.
	closers []closer
}

type closer struct {
	name  string
	close server.ShutdownFunc
}

// newApp connects the optional backends and wires the handlers. Without
// DATABASE_URL and REDIS_URL it needs no network.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	onClose := func(name string, fn server.ShutdownFunc) {
		a.closers = append(a.closers, closer{name: name, close: fn})
	}

	if cfg.MetricsEnabled {
		prom := metrics.NewPrometheus()
		a.recorder, a.exporter = prom, prom
	} else {
		a.recorder = metrics.NewNoop()
	}

	hosted := supabase.New(supabase.Config{
		URL:     cfg.SupabaseURL,
		AnonKey: cfg.SupabaseAnonKey,
		Timeout: cfg.HostedTimeout,
	})
	if !hosted.Configured() {
		logger.Warn("hosted service not configured; auth disabled and placeholder client in use")
	}

	if cfg.DatabaseURL != "" {
		repo, err := repository.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect to database %s: %s", redactURL(cfg.DatabaseURL), sanitizeError(err, cfg.DatabaseURL))
		}
		onClose("postgres", func(context.Context) error { repo.Close(); return nil })
		logger.Info("connected to database")
		a.store = repo
	} else {
		a.store = repository.NewHosted(hosted)
	}

	if cfg.RedisURL != "" {
		c, err := cache.New(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect to redis %s: %s", redactURL(cfg.RedisURL), sanitizeError(err, cfg.RedisURL))
		}
		onClose("redis", func(context.Context) error { return c.Close() })
		logger.Info("connected to Redis")
		a.cache = c

		if cfg.EventStreamEnabled {
			a.startEventStream(ctx, onClose)
		}
	}

	renderer, err := view.New(view.Options{BasePath: cfg.BasePath})
	if err != nil {
		return nil, err
	}
	a.renderer = renderer

	// The account handler writes the cookies the resolver reads, so both
	// take them from the resolver.
	a.resolver = auth.NewResolver(hosted, auth.CookieConfig{
		Prefix: cfg.SessionCookiePrefix,
		Path:   cookiePath(cfg.BasePath),
		Secure: !cfg.IsDevelopment(),
	}, cfg.SessionRefreshLeeway)

	provider := billing.NewStripe(billing.Config{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
	})

	var dedupe service.EventDeduper
	if a.cache != nil {
		dedupe = a.cache
	}

	billingSvc := service.NewBillingService(a.store, provider, service.BillingConfig{
		AppURL:  strings.TrimRight(cfg.AppURL, "/") + cfg.BasePath,
		Prices:  cfg.PriceIDs(),
		Dedupe:  dedupe,
		Logger:  logger,
		Metrics: a.recorder,
	})

	a.pages = handler.NewPageHandler(renderer,
		service.NewBioService(a.store, logger),
		service.NewDashboardService(a.store),
		logger,
	)
	a.account = handler.NewAccountHandler(service.NewAccountService(hosted), renderer, a.resolver.Cookies(), logger)
	a.billing = handler.NewBillingHandler(billingSvc, provider, logger)
	a.waitlist = handler.NewWaitlistHandler(service.NewWaitlistService(a.store, logger, a.recorder), logger)
	a.tools = handler.NewToolsHandler(renderer, service.NewRateService(a.store, logger), logger)

	var cacheCheck handler.HealthChecker
	if a.cache != nil {
		cacheCheck = a.cache
	}
	a.health = handler.NewHealthHandler(a.store, cacheCheck)

	return a, nil
}

// startEventStream routes event writes through the Redis stream and starts
// the worker that drains it into the store.
func (a *app) startEventStream(ctx context.Context, onClose func(string, server.ShutdownFunc)) {
	client := a.cache.Client()
	worker := analytics.NewWorker(client, a.store, a.logger, analytics.NewConsumerID(), a.recorder)
	worker.SetBatchSize(a.cfg.EventStreamBatchSize)
	a.store = analytics.NewBufferedStore(a.store, analytics.NewPublisher(client, a.logger), a.logger, a.recorder)

	go func() {
		if err := worker.Run(ctx); err != nil {
			a.logger.Error("event worker exited", slog.String("error", err.Error()))
		}
	}()
	onClose("event_worker", worker.Shutdown)
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupRouter configures the chi router with all routes and middleware.
// Everything is mounted under the configured base path.
func setupRouter(a *app) *chi.Mux {
	cfg := a.cfg
	r := chi.NewRouter()

	security := middleware.DefaultSecurityConfig()
	security.IsDevelopment = cfg.IsDevelopment()
	security.MaxRequestBodySize = cfg.MaxRequestBodySize

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(a.logger, a.recorder))
	r.Use(middleware.Recoverer(a.logger, http.HandlerFunc(a.pages.Error)))
	r.Use(middleware.Security(security))
	r.Use(middleware.MaxBodySize(security.MaxRequestBodySize))

	// Ops endpoints stay at the root so health checks do not depend on the base path.
	r.Get("/healthz", a.health.Healthz)
	r.Get("/readyz", a.health.Readyz)
	if a.exporter != nil {
		r.Get("/metrics", handler.NewMetricsHandler(a.exporter).Metrics)
	}

	site := func(r chi.Router) {
		r.Use(middleware.Session(middleware.SessionConfig{
			Resolver:   a.resolver,
			Configured: cfg.HostedConfigured(),
			BasePath:   cfg.BasePath,
			Logger:     a.logger,
			Metrics:    a.recorder,
		}))

		r.Handle("/static/*", http.StripPrefix(cfg.BasePath+"/static/", a.renderer.Static()))

		r.Get("/", a.pages.Home)
		r.Get("/pricing", a.pages.Pricing)
		r.Get("/pricing/{interval}", a.pages.Pricing)

		r.Get("/login", a.account.LoginForm)
		r.Post("/login", a.account.Login)
		r.Get("/signup", a.account.SignupForm)
		r.Post("/signup", a.account.Signup)
		r.Post("/logout", a.account.Logout)

		r.Get("/dashboard", a.pages.Dashboard)
		r.Get("/dashboard/deals", a.pages.Deals)

		r.Get("/tools/rate-calculator", a.tools.RateCalculatorForm)
		r.Post("/tools/rate-calculator", a.tools.RateCalculator)

		r.Route("/api", func(r chi.Router) {
			r.Use(middleware.CORS(cors))
			r.Use(middleware.RateLimit(middleware.RateLimitConfig{
				Logger:  a.logger,
				Metrics: a.recorder,
				Limiter: apiLimiter(a),
				Scope:   "api",
				Enabled: cfg.RateLimitEnabled,
			}))

			r.Post("/portal", a.billing.Portal)
			r.Post("/checkout", a.billing.Checkout)
			r.Post("/webhooks/stripe", a.billing.Webhook)
			r.Post("/waitlist", a.waitlist.Join)
		})

		r.Get("/{username}", a.pages.Bio)
	}

	// The site is a mounted sub-router, not an inline group, so the session
	// middleware also runs for unmatched paths such as /dashboard/anything.
	sub := chi.NewRouter()
	site(sub)
	sub.NotFound(a.pages.NotFound)
	sub.MethodNotAllowed(a.pages.MethodNotAllowed)

	if cfg.BasePath == "" {
		r.Mount("/", sub)
	} else {
		r.Mount(cfg.BasePath, sub)
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			http.Redirect(w, req, cfg.BasePath, http.StatusTemporaryRedirect)
		})
	}

	// 404 and 405 handlers
	r.NotFound(a.pages.NotFound)
	r.MethodNotAllowed(a.pages.MethodNotAllowed)

	return r
}

// apiLimiter shares buckets through Redis when it is configured and falls
// back to a per-process limiter otherwise.
func apiLimiter(a *app) middleware.Limiter {
	if a.cache != nil {
		return a.cache.IPLimiter("api", a.cfg.RateLimitRPS, a.cfg.RateLimitBurst)
	}
	return middleware.NewLocalLimiter(a.cfg.RateLimitRPS, a.cfg.RateLimitBurst)
}

func cookiePath(basePath string) string {
	if basePath == "" {
		return "/"
	}
	return basePath
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
