package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/adsync/internal/tokens/exchange"
	httpapi "github.com/aussiebroadwan/adsync/internal/tokens/http"
	"github.com/aussiebroadwan/adsync/internal/tokens/service"
	"github.com/aussiebroadwan/adsync/internal/tokens/store"
	"github.com/aussiebroadwan/adsync/pkg/cronx"
	"github.com/aussiebroadwan/adsync/pkg/graphsdk"
	"github.com/aussiebroadwan/adsync/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application wires the credential lifecycle service together.
type Application struct {
	cfg    Config
	logger *slog.Logger

	identities *EnvIdentities
	store      store.Credentials
	policy     service.Policy

	// Services
	renewalService   *service.RenewalService
	bootstrapService *service.BootstrapService
	cron             *cronx.Scheduler
	scheduler        *service.RenewalScheduler

	// HTTP server, nil when Port is 0
	server *http.Server
	router *httpapi.Router
}

// Option customises an Application built by New.
type Option func(*Application)

// WithLogger replaces the logger New would build from Config.
func WithLogger(logger *slog.Logger) Option {
	return func(app *Application) { app.logger = logger }
}

// WithEnvLookup replaces os.LookupEnv for identity slots.
func WithEnvLookup(lookup func(string) (string, bool)) Option {
	return func(app *Application) { app.identities.Lookup = lookup }
}

// New creates an Application with its store opened and all services wired.
// Nothing is started until Run or Serve.
func New(cfg Config, opts ...Option) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg:        cfg,
		identities: NewEnvIdentities(nil),
		policy:     service.NewPolicy(cfg.RenewalThreshold),
	}
	for _, opt := range opts {
		opt(app)
	}
	if app.logger == nil {
		app.logger = slogx.New(slogx.Config{
			Service: "adsync",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		})
	}
	app.identities.Logger = app.logger

	st, err := OpenStore(cfg, app.logger)
	if err != nil {
		return nil, err
	}
	app.store = st

	app.initServices()
	if cfg.Port > 0 {
		app.initHTTP()
	}

	return app, nil
}

// Run starts the scheduler and status server and blocks until SIGINT or
// SIGTERM, then shuts down.
func (app *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.Serve(ctx)
}

// Serve is Run with the shutdown signal given as ctx.
func (app *Application) Serve(ctx context.Context) error {
	identities := app.identities.Identities()
	if len(identities) == 0 {
		_ = app.store.Close()
		return fmt.Errorf("refusing to start: %w (set APP1_ID and APP1_SECRET)", service.ErrNoIdentities)
	}

	if err := app.scheduler.Start(); err != nil {
		_ = app.store.Close()
		return fmt.Errorf("failed to start renewal scheduler: %w", err)
	}

	app.logger.Info("adsync starting",
		"version", BuildVersion,
		"identities", len(identities),
		"store", app.cfg.CredentialsStore,
		"schedule", app.cfg.RenewalSchedule,
		"port", app.cfg.Port,
	)

	serverErrors := make(chan error, 1)
	if app.server != nil {
		go func() {
			serverErrors <- app.server.ListenAndServe()
		}()
	}

	var runErr error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		app.logger.Info("shutdown signal received")
	}

	if err := app.Shutdown(); err != nil {
		return errors.Join(runErr, fmt.Errorf("graceful shutdown failed: %w", err))
	}
	return runErr
}

// Shutdown stops scheduling before anything else so no sweep starts once
// shutdown has begun, then drains HTTP and any in-flight sweep within the
// grace period and closes the store.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down adsync...")

	app.scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if app.server != nil {
		if err := app.server.Shutdown(ctx); err != nil {
			app.logger.Error("graceful server shutdown failed", "error", err)
			if err := app.server.Close(); err != nil {
				app.logger.Error("error closing server", "error", err)
			}
		}
	}

	if err := app.scheduler.Wait(ctx); err != nil {
		app.logger.Warn("in-flight renewal sweep did not finish in time", "error", err)
	}
	if err := app.cron.Stop(ctx); err != nil {
		app.logger.Warn("cron scheduler did not stop in time", "error", err)
	}

	if err := app.store.Close(); err != nil {
		app.logger.Error("error closing credential store", "error", err)
		return err
	}

	app.logger.Info("adsync stopped")
	return nil
}

// Bootstrap exchanges the configured initial credentials once and closes the
// store.
func (app *Application) Bootstrap(ctx context.Context) (service.BootstrapReport, error) {
	defer app.close()
	return app.bootstrapService.Bootstrap(ctx)
}

// Status describes the stored credential of every configured identity and
// closes the store.
func (app *Application) Status(ctx context.Context) []service.CredentialView {
	defer app.close()
	return service.Describe(ctx, app.identities.Identities(), app.store, app.policy, time.Now())
}

// Handler exposes the HTTP router, nil when the status server is disabled.
func (app *Application) Handler() http.Handler {
	if app.router == nil {
		return nil
	}
	return app.router
}

// Scheduler exposes the renewal scheduler.
func (app *Application) Scheduler() *service.RenewalScheduler { return app.scheduler }

func (app *Application) close() {
	if err := app.store.Close(); err != nil {
		app.logger.Error("error closing credential store", "error", err)
	}
}

// initServices initializes the exchanger and the renewal services.
func (app *Application) initServices() {
	client := graphsdk.NewClient(app.cfg.GraphBaseURL, app.cfg.GraphAPIVersion,
		graphsdk.WithTimeout(app.cfg.GraphTimeout),
		graphsdk.WithRateLimit(app.cfg.GraphRateLimitRPS, app.cfg.GraphRateLimitBurst),
	)
	exchanger := exchange.NewGraph(client)

	app.renewalService = service.NewRenewalService(app.identities, app.store, exchanger, app.policy, app.logger)
	app.renewalService.CallTimeout = app.cfg.RenewalCallTimeout
	app.renewalService.Concurrency = app.cfg.RenewalConcurrency

	app.bootstrapService = service.NewBootstrapService(app.identities, app.store, exchanger, app.policy, app.logger)
	app.bootstrapService.CallTimeout = app.cfg.RenewalCallTimeout

	app.cron = cronx.New(app.logger)
	app.scheduler = service.NewRenewalScheduler(app.renewalService, app.cron, app.cfg.RenewalSchedule, app.logger)
}

// initHTTP initializes the status router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		BuildVersion,
		app.identities,
		app.store,
		app.scheduler,
		app.policy,
		app.logger,
	)
	router.AdminToken = app.cfg.AdminToken
	router.ApplyRoutes()

	app.router = router
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
