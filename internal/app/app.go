// Package app wires the application together: configuration, logging,
// telemetry, the dashboard service, the websocket hub and the HTTP router,
// plus server lifecycle with graceful shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"regpulse/internal/config"
	apperrors "regpulse/internal/errors"
	"regpulse/internal/infrastructure"
	"regpulse/internal/middleware"
	"regpulse/internal/services"
	httptransport "regpulse/internal/transport/http"
	"regpulse/internal/websocket"
)

// Version is stamped by the build; the default marks dev builds.
var Version = "dev"

// Application is the dependency container.
type Application struct {
	Config *config.Config
	Logger *slog.Logger

	OTel    *infrastructure.OTelProviders
	Metrics *infrastructure.BusinessMetrics

	Hub       *websocket.Hub
	Dashboard *services.DashboardService

	ErrorHandler *apperrors.ErrorHandler
	Router       chi.Router
	server       *http.Server
}

// New builds a fully wired application from configuration.
func New(cfg *config.Config) (*Application, error) {
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	otelProviders, err := infrastructure.InitializeOTel(nil, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize telemetry: %w", err)
	}

	var metrics *infrastructure.BusinessMetrics
	if otelProviders.Meter != nil {
		metrics, err = infrastructure.CreateBusinessMetrics(otelProviders.Meter)
		if err != nil {
			return nil, fmt.Errorf("create metrics: %w", err)
		}
	}

	hub := websocket.NewHub(logger)

	dashboard := services.NewDashboardService(services.DashboardServiceConfig{
		Logger:   logger,
		Metrics:  metrics,
		Notifier: hub,
	})

	app := &Application{
		Config:       cfg,
		Logger:       logger,
		OTel:         otelProviders,
		Metrics:      metrics,
		Hub:          hub,
		Dashboard:    dashboard,
		ErrorHandler: apperrors.NewErrorHandler(logger, false),
	}
	app.Router = app.buildRouter()
	app.server = &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        app.Router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	return app, nil
}

// buildRouter assembles the middleware chain and mounts all routes.
func (a *Application) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if a.Metrics != nil {
		r.Use(middleware.BusinessMetricsMiddleware(a.Metrics))
	}
	r.Use(middleware.StructuredLogger(a.Logger))
	r.Use(middleware.Recoverer(a.Logger))
	r.Use(middleware.SecurityHeaders)

	if a.Config.Security.EnableCORS {
		r.Use(middleware.CORS(middleware.CORSConfig{
			AllowedOrigins: a.Config.Security.AllowedOrigins,
			ExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
			Logger:         a.Logger,
		}))
	}
	if a.Config.Security.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.Logger,
		)
		r.Use(limiter.Handler)
	}
	r.Use(middleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	datasetHandler := httptransport.NewDatasetHandler(
		a.Dashboard, a.ErrorHandler, a.Logger, a.Config.Upload.MaxBytes)
	healthHandler := httptransport.NewHealthHandler(Version)

	r.Route("/api", func(r chi.Router) {
		r.Mount("/datasets", datasetHandler.Routes())
		r.Mount("/health", healthHandler.Routes())
		r.Get("/version", healthHandler.Version)
	})

	r.Get("/ws", func(w http.ResponseWriter, req *http.Request) {
		websocket.ServeWS(a.Hub, w, req, a.Logger)
	})

	// Prometheus scrape endpoint, outside the API group and its timeout.
	if a.OTel != nil && a.OTel.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTel.PrometheusHTTP)
	}

	return r
}

// Run starts the hub and the HTTP server and blocks until the context is
// cancelled, then shuts everything down gracefully.
func (a *Application) Run(ctx context.Context) error {
	a.Hub.Start()

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("http server listening",
			slog.String("addr", a.server.Addr),
			slog.String("version", Version))
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	a.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	var firstErr error
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		firstErr = fmt.Errorf("server shutdown: %w", err)
	}
	a.Hub.Stop()
	if a.OTel != nil {
		if err := a.OTel.Shutdown(shutdownCtx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("telemetry shutdown: %w", err)
		}
	}
	if err := infrastructure.CloseLogFile(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close log file: %w", err)
	}
	return firstErr
}

// Shutdown releases resources for applications that never called Run, such
// as CLI invocations.
func (a *Application) Shutdown(ctx context.Context) error {
	a.Hub.Stop()
	if a.OTel != nil {
		if err := a.OTel.Shutdown(ctx); err != nil {
			return err
		}
	}
	return infrastructure.CloseLogFile()
}
