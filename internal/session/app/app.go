package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/sessioncache/internal/session/http"
	"github.com/aussiebroadwan/sessioncache/internal/session/service"
	"github.com/aussiebroadwan/sessioncache/internal/session/store"
	"github.com/aussiebroadwan/sessioncache/internal/session/store/drivers/memory"
	"github.com/aussiebroadwan/sessioncache/internal/session/store/drivers/postgres"
	"github.com/aussiebroadwan/sessioncache/internal/session/store/drivers/sqlite"
	"github.com/aussiebroadwan/sessioncache/pkg/cryptox"
	"github.com/aussiebroadwan/sessioncache/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"

	serviceName = "sessiond"
)

// Application encapsulates the session daemon with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	kv               store.KV
	registry         *prometheus.Registry
	shutdownTracing  func(context.Context) error
	service          *service.SessionService
	credentialClient *credentialProvider

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: serviceName,
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		registry: prometheus.NewRegistry(),
	}
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ctx := context.Background()
	shutdownTracing, err := SetupTracing(ctx, cfg.OTelEndpoint, serviceName, BuildVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	app.shutdownTracing = shutdownTracing

	if err := app.initStore(ctx); err != nil {
		_ = shutdownTracing(ctx)
		return nil, err
	}

	if err := app.initServices(); err != nil {
		_ = app.kv.Close()
		_ = shutdownTracing(ctx)
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Handler returns the HTTP handler serving the control API.
func (app *Application) Handler() http.Handler { return app.router }

// Service returns the session service.
func (app *Application) Service() *service.SessionService { return app.service }

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.service.Start()

	app.logger.Info("session daemon starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"store", app.cfg.Store.Driver,
		"persist", app.cfg.Store.Persist,
		"provider", app.cfg.Provider.Enabled(),
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = app.Shutdown()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown stops the HTTP server, cancels every timer, closes the store and
// flushes traces.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down session daemon...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.service.Stop()

	var errs []error
	if err := app.kv.Close(); err != nil {
		app.logger.Error("error closing store", "error", err)
		errs = append(errs, err)
	}
	if err := app.shutdownTracing(ctx); err != nil {
		app.logger.Error("error flushing traces", "error", err)
		errs = append(errs, err)
	}

	app.logger.Info("session daemon stopped")
	return errors.Join(errs...)
}

// initStore opens the configured driver, applies migrations and wraps it
// with sealing when a master key is configured.
func (app *Application) initStore(ctx context.Context) error {
	var kv store.KV

	switch app.cfg.Store.Driver {
	case DriverMemory:
		kv = memory.NewStore()

	case DriverSQLite:
		db, err := sqlite.NewStore(sqliteDSN(app.cfg.Store.DSN))
		if err != nil {
			return fmt.Errorf("failed to open sqlite store: %w", err)
		}
		kv = db

	case DriverPostgres:
		db, err := postgres.NewStore(ctx, app.cfg.Store.DSN)
		if err != nil {
			return fmt.Errorf("failed to open postgres store: %w", err)
		}
		kv = db

	default:
		return fmt.Errorf("%w: unknown store driver %q", ErrConfig, app.cfg.Store.Driver)
	}

	if m, ok := kv.(store.Migrator); ok {
		if err := m.ApplyMigrations(); err != nil {
			_ = kv.Close()
			return fmt.Errorf("failed to apply store migrations: %w", err)
		}
		app.logger.Info("store migrations applied successfully", "driver", app.cfg.Store.Driver)
	}

	if path := app.cfg.Store.MasterKeyFile; path != "" {
		sealer, err := cryptox.NewSealerFromFile(path)
		if err != nil {
			_ = kv.Close()
			return fmt.Errorf("failed to load master key: %w", err)
		}
		kv = store.NewSealed(kv, sealer)
		app.logger.Info("store values sealed at rest")
	}

	app.kv = kv
	return nil
}

func sqliteDSN(dsn string) string {
	if strings.HasPrefix(dsn, "file:") || strings.Contains(dsn, ":memory:") {
		return dsn
	}
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dsn)
}

// initServices builds the session service and, when configured, its
// credential provider.
func (app *Application) initServices() error {
	deps := service.Dependencies{
		KV:      app.kv,
		Logger:  app.logger,
		Metrics: service.NewMetrics(app.registry),
	}

	if app.cfg.Provider.Enabled() {
		app.credentialClient = newCredentialProvider(app.cfg.Provider)
		deps.Provider = app.credentialClient
		app.logger.Info("credential provider enabled", "base_url", app.cfg.Provider.BaseURL)
	} else {
		app.logger.Info("credential provider disabled; refresh routes answer 501")
	}

	svc, err := service.NewSessionService(service.Config{
		Timings:      app.cfg.Timings,
		PersistState: app.cfg.Store.Persist,
	}, deps)
	if err != nil {
		return fmt.Errorf("failed to initialize session service: %w", err)
	}
	app.service = svc
	return nil
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.service, BuildVersion, app.logger)
	router.Gatherer = app.registry
	router.ControlLimit = app.cfg.ControlLimit
	router.ReadLimit = app.cfg.ReadLimit
	router.EventOrigins = app.cfg.EventOrigins
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
