package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/oonisim/ml-credit-risk/internal/config"
	apierrors "github.com/oonisim/ml-credit-risk/internal/errors"
	"github.com/oonisim/ml-credit-risk/internal/infrastructure"
	custommw "github.com/oonisim/ml-credit-risk/internal/middleware"
	"github.com/oonisim/ml-credit-risk/internal/pipeline"
	handlers "github.com/oonisim/ml-credit-risk/internal/transport/http"
)

// Application wires the transform service together
type Application struct {
	Config        *config.Config
	Definition    *config.PipelineFile
	Pipeline      *pipeline.Pipeline
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Runtime       *infrastructure.RuntimeMetrics

	errorHandler *apierrors.ErrorHandler
	otel         *custommw.OTelMiddleware
}

// NewApplication builds the service from cfg: telemetry providers, the
// pipeline named by cfg.Pipeline.File and the HTTP router
func NewApplication(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	a := &Application{
		Config:       cfg,
		Logger:       logger,
		errorHandler: apierrors.NewErrorHandler(logger, false),
	}

	providers, err := infrastructure.InitializeOTel(infrastructure.NewOTelConfig(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	a.OTelProviders = providers

	if err := a.initializePipeline(); err != nil {
		return nil, err
	}

	if a.Runtime, err = infrastructure.NewRuntimeMetrics(providers.Meter); err != nil {
		return nil, fmt.Errorf("failed to register runtime metrics: %w", err)
	}
	if a.otel, err = custommw.NewOTelMiddleware(providers); err != nil {
		return nil, err
	}

	a.setupRouter()
	a.createServer()

	logger.Info("application_initialized",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.String("pipeline_file", cfg.Pipeline.File),
		slog.Any("stages", a.Pipeline.StageIDs()),
	)
	return a, nil
}

func (a *Application) initializePipeline() error {
	def, err := config.LoadPipelineFile(a.Config.Pipeline.File)
	if err != nil {
		return fmt.Errorf("failed to load pipeline definition: %w", err)
	}
	a.Definition = def

	p, err := pipeline.New(def.ToConfig(),
		pipeline.WithLogger(a.Logger),
		pipeline.WithConcurrency(a.Config.Pipeline.Workers),
	)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	a.Pipeline = p
	return nil
}

// setupRouter configures the middleware chain and routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(custommw.RequestID)
	r.Use(custommw.RealIP)
	r.Use(apierrors.RecoveryMiddleware(a.errorHandler))
	r.Use(a.otel.Handler)
	r.Use(custommw.StructuredLogger(a.Logger))
	r.Use(custommw.SecurityHeaders)

	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

	stages := a.Pipeline.StageIDs()
	r.Get(config.HealthEndpoint, handlers.NewHealthHandler(a.Runtime, stages, a.Logger).HealthCheck)
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle(config.MetricsEndpoint, a.OTelProviders.PrometheusHTTP)
	}

	r.Route(config.APIBasePath, func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		if rl := a.Config.Security.RateLimit; rl.Enabled {
			r.Use(custommw.NewRateLimiter(rl.RPS, rl.Burst, a.Logger, a.errorHandler, a.otel.Metrics().RateLimited).Handler)
		}

		r.Mount("/pipeline", handlers.NewPipelineHandler(a.Definition, stages, a.errorHandler).Routes())

		r.Group(func(r chi.Router) {
			r.Use(custommw.BodyLimit(a.Config.Server.MaxBodyBytes))
			r.Use(custommw.Timeout(a.Config.Server.WriteTimeout))
			r.Mount("/transform", handlers.NewTransformHandler(a.Pipeline, a.Definition.Roles, a.Logger, a.errorHandler).Routes())
		})
	})

	a.Router = r
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start begins serving on ln, or on the configured port when ln is nil.
// A serve failure cancels ctx through cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc, ln net.Listener) error {
	if ln == nil {
		var err error
		if ln, err = net.Listen("tcp", a.Server.Addr); err != nil {
			return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
		}
	}

	a.Logger.InfoContext(ctx, "server_starting",
		slog.String("address", ln.Addr().String()),
		slog.String("log_level", a.Config.Logging.Level))

	go func() {
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "server_error", slog.String("error", err.Error()))
			cancel()
		}
	}()
	return nil
}

// Stop drains in-flight requests and flushes telemetry
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "server_stopping")

	timeout := a.Config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}
	if a.Runtime != nil {
		if err := a.Runtime.Unregister(); err != nil {
			errs = append(errs, fmt.Errorf("runtime metrics: %w", err))
		}
	}
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	a.Logger.InfoContext(ctx, "server_stopped")
	return nil
}

// Run serves until SIGINT, SIGTERM or a serve failure, then shuts down
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(sigCtx, cancel, nil); err != nil {
		return err
	}

	<-sigCtx.Done()
	a.Logger.InfoContext(ctx, "shutdown_signal_received")

	return a.Stop(context.Background())
}
