package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/devext/internal/api/http"
	"github.com/GriffinCanCode/devext/internal/api/middleware"
	"github.com/GriffinCanCode/devext/internal/api/ws"
	"github.com/GriffinCanCode/devext/internal/domain/service"
	"github.com/GriffinCanCode/devext/internal/domain/session"
	"github.com/GriffinCanCode/devext/internal/infrastructure/config"
	"github.com/GriffinCanCode/devext/internal/infrastructure/logging"
	"github.com/GriffinCanCode/devext/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/devext/internal/providers/devext"
	"github.com/GriffinCanCode/devext/internal/providers/i18n"
	"github.com/GriffinCanCode/devext/internal/providers/llm"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router       *gin.Engine
	httpServer   *http.Server
	registry     *service.Registry
	supervisor   *session.Supervisor
	hub          *ws.Hub
	llmClient    *llm.Client
	metrics      *monitoring.Metrics
	promRegistry *prometheus.Registry
	logger       *logging.Logger
	config       *config.Config
}

// Option customises server construction
type Option func(*options)

type options struct {
	logger      *logging.Logger
	sessionOpts []session.Option
}

// WithLogger replaces the logger built from configuration.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithSessionOptions appends supervisor options after the configured ones.
func WithSessionOptions(opts ...session.Option) Option {
	return func(o *options) { o.sessionOpts = append(o.sessionOpts, opts...) }
}

// NewServer creates a new server instance. Nothing listens until Run.
func NewServer(cfg *config.Config, opts ...Option) (*Server, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		var err error
		logger, err = logging.New(logging.Config{
			Level:       cfg.Logging.Level,
			Development: cfg.Logging.Development,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build logger: %w", err)
		}
	}

	logger.Info("Initializing devext server",
		zap.String("addr", cfg.Addr()),
		zap.String("editor", cfg.Devext.EditorBin),
		zap.Duration("grace_period", cfg.Devext.GracePeriod),
	)

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(promRegistry)
	hub := ws.NewHub(metrics, logger)

	sessionOpts := append([]session.Option{
		session.WithLogger(logger),
		session.WithCommand(session.EditorCommand(cfg.Devext.EditorBin)),
		session.WithGracePeriod(cfg.Devext.GracePeriod),
		session.WithObserver(metrics),
		session.WithObserver(hub),
	}, o.sessionOpts...)
	supervisor := session.NewSupervisor(sessionOpts...)

	llmClient := llm.NewClient(llm.Config{
		APIKey:    cfg.LLM.APIKey,
		BaseURL:   cfg.LLM.BaseURL,
		Timeout:   cfg.LLM.Timeout,
		RateLimit: cfg.LLM.RateLimit,
		Retries:   2,
	}, logger)
	if !llmClient.Configured() {
		logger.Warn("LLM_API_KEY not set; llm tools will fail until configured")
	}

	registry, err := BuildRegistry(cfg, supervisor, llmClient, logger)
	if err != nil {
		supervisor.Close()
		return nil, err
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(registry, supervisor, metrics, promRegistry, logger)
	handlers.Register(router)
	router.GET("/stream", hub.HandleConnection)

	logger.Info("Server initialized successfully",
		zap.Int("services", len(registry.List(nil))),
		zap.Int("tools", len(registry.Tools())),
	)

	return &Server{
		router: router,
		httpServer: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           router,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		registry:     registry,
		supervisor:   supervisor,
		hub:          hub,
		llmClient:    llmClient,
		metrics:      metrics,
		promRegistry: promRegistry,
		logger:       logger,
		config:       cfg,
	}, nil
}

// BuildRegistry registers every tool provider against sup.
func BuildRegistry(cfg *config.Config, sup devext.Supervisor, client llm.Completer, logger *logging.Logger) (*service.Registry, error) {
	registry := service.NewRegistry()

	providers := []service.Provider{
		devext.NewProvider(sup,
			devext.WithOutputBudget(cfg.Devext.OutputBudget),
			devext.WithDebugTools(cfg.Devext.DebugTools),
			devext.WithLogger(logger),
		),
		i18n.NewProvider(logger),
		llm.NewProvider(client, cfg.LLM.DefaultModel, cfg.LLM.PanelFile, logger),
	}
	for _, p := range providers {
		if err := registry.Register(p); err != nil {
			return nil, fmt.Errorf("failed to register %s provider: %w", p.Definition().ID, err)
		}
	}
	return registry, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Registry returns the tool registry.
func (s *Server) Registry() *service.Registry { return s.registry }

// Supervisor returns the session supervisor.
func (s *Server) Supervisor() *session.Supervisor { return s.supervisor }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		s.Close()
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("Starting HTTP server", zap.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops accepting requests, kills live sessions and disconnects
// stream subscribers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	s.hub.Close()
	// Launch handlers block until their session ends, so sessions go first.
	s.supervisor.Close()

	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		s.logger.Error("HTTP shutdown incomplete", zap.Error(err))
	}
	_ = s.logger.Sync()
	return err
}

// Close releases resources without waiting for in-flight requests.
func (s *Server) Close() {
	s.hub.Close()
	s.supervisor.Close()
	_ = s.httpServer.Close()
	_ = s.logger.Sync()
}
