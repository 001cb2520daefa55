// Package server hosts the sdx HTTP API. It owns the Postgres container
// lifecycle, starting it on server start and stopping it on shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/whitewolf2000ani/sdx/internal/api"
	"github.com/whitewolf2000ani/sdx/internal/config"
	"github.com/whitewolf2000ani/sdx/internal/gateway"
	"github.com/whitewolf2000ani/sdx/internal/home"
	"github.com/whitewolf2000ani/sdx/internal/normalize"
	"github.com/whitewolf2000ani/sdx/internal/pipeline"
	"github.com/whitewolf2000ani/sdx/internal/postgres"
	"github.com/whitewolf2000ani/sdx/internal/privacy"
	"github.com/whitewolf2000ani/sdx/internal/providers"
	"github.com/whitewolf2000ani/sdx/internal/record"
	"github.com/whitewolf2000ani/sdx/internal/server/endpoints"
	"github.com/whitewolf2000ani/sdx/internal/store"
	"github.com/whitewolf2000ani/sdx/internal/svcctx"
	"github.com/whitewolf2000ani/sdx/internal/validate"
)

// Server is the main sdx HTTP server.
type Server struct {
	httpServer *http.Server
	pgManager  *postgres.DockerManager
	store      store.Store
	registry   *providers.Registry
	configMgr  *config.Manager
	home       *home.Dir
	logger     *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8085)
	Port string
	// Home is the sdx home directory (~/.sdx)
	Home *home.Dir
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Logger is the structured logger to use
	Logger *slog.Logger
	// MemStore forces the in-memory store and skips Postgres entirely.
	// Nothing survives a restart; intended for tests and dry runs.
	MemStore bool
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ConfigManager == nil {
		return nil, errors.New("config manager is required")
	}

	appCfg := cfg.ConfigManager.Get()
	if cfg.Port == "" {
		cfg.Port = appCfg.Server.Port
	}
	if cfg.Port == "" {
		cfg.Port = "8085"
	}

	var pgManager *postgres.DockerManager
	if !cfg.MemStore {
		var dataPath string
		if cfg.Home != nil {
			dataPath = cfg.Home.PostgresDataPath()
		}
		var err error
		pgManager, err = postgres.NewDockerManager(postgres.DockerConfig{
			ContainerName: appCfg.Postgres.ContainerName,
			Image:         appCfg.Postgres.Image,
			DataPath:      dataPath,
			HostPort:      appCfg.Postgres.Port,
			User:          appCfg.Postgres.User,
			Password:      config.ResolveEnvVars(appCfg.Postgres.Password),
			Database:      appCfg.Postgres.Database,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres manager: %w", err)
		}
	}

	// Create provider registry with hot reload
	registry := providers.NewRegistry()
	registry.SetLogger(cfg.Logger)
	registry.Reload(appCfg.ToProviderRegistryConfig())
	cfg.ConfigManager.OnChange(func(c *config.Config) {
		registry.Reload(c.ToProviderRegistryConfig())
		cfg.Logger.Info("provider registry reloaded from config")
	})

	s := &Server{
		pgManager: pgManager,
		registry:  registry,
		configMgr: cfg.ConfigManager,
		home:      cfg.Home,
		logger:    cfg.Logger,
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All(endpoints.Config{
		PostgresManager: pgManager,
		SwaggerSpecPath: endpoints.GetSwaggerSpecPath(),
	}) {
		s.endpointRegistry.Register(ep)
	}

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      s.withServices(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // Pipeline runs hold the connection open
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start starts the server and its Postgres backend.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if err := s.initStore(ctx); err != nil {
		s.setNotRunning()
		return err
	}

	if err := s.initPipeline(); err != nil {
		s.setNotRunning()
		return err
	}

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// initStore brings up Postgres (unless the in-memory store was
// requested) and runs migrations.
func (s *Server) initStore(ctx context.Context) error {
	if s.pgManager == nil {
		s.logger.Info("using in-memory store")
		s.store = store.NewMem()
		return nil
	}

	if err := s.pgManager.ValidateExisting(ctx); err != nil {
		return fmt.Errorf("existing postgres container incompatible: %w", err)
	}

	s.logger.Info("starting postgres")
	if err := s.pgManager.Start(ctx); err != nil {
		return fmt.Errorf("failed to start postgres: %w", err)
	}

	db, err := postgres.Open(ctx, s.pgManager.DSN())
	if err != nil {
		return err
	}

	st := store.NewDB(db)
	if err := st.AutoMigrate(); err != nil {
		return fmt.Errorf("failed to migrate store: %w", err)
	}
	s.logger.Info("postgres is ready")

	s.store = st
	return nil
}

// initPipeline wires the extraction stages from the current config and
// publishes the services used for request context enrichment.
func (s *Server) initPipeline() error {
	appCfg := s.configMgr.Get()

	llm, err := s.registry.GetLLM(appCfg.Defaults.LLMProvider)
	if err != nil {
		return fmt.Errorf("default LLM provider unavailable: %w", err)
	}

	// OCR is optional; text-only deployments run without it.
	ocr, err := s.registry.GetOCR(appCfg.Defaults.OCRProvider)
	if err != nil {
		s.logger.Warn("no OCR provider; image and PDF artifacts will be rejected",
			"provider", appCfg.Defaults.OCRProvider)
		ocr = nil
	}

	llmCfg, _ := appCfg.GetLLMProvider(appCfg.Defaults.LLMProvider)
	gw := gateway.New(llm, s.store, s.logger, gateway.Options{
		MaxAttempts: appCfg.Gateway.MaxAttempts,
		BaseDelay:   appCfg.Gateway.BaseDelay,
		MaxDelay:    appCfg.Gateway.MaxDelay,
		CallTimeout: appCfg.Gateway.CallTimeout,
		MaxTokens:   appCfg.Gateway.MaxTokens,
		Model:       llmCfg.Model,
		Temperature: llmCfg.Temperature,
	})

	runner := pipeline.New(
		s.store,
		normalize.New(ocr, s.logger),
		privacy.NewDeidentifier(config.ResolveEnvVars(appCfg.Privacy.Salt)),
		gw,
		validate.New(gw, s.logger, appCfg.Validation.RepairAttempts),
		record.New(s.store, s.logger),
		s.logger,
	)

	s.services = &svcctx.Services{
		Store:    s.store,
		Runner:   runner,
		Registry: s.registry,
		Manager:  s.configMgr,
		Logger:   s.logger,
		Home:     s.home,
	}
	return nil
}

// shutdown performs graceful shutdown of both HTTP server and Postgres.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	if s.pgManager != nil {
		s.logger.Info("stopping postgres")
		if err := s.pgManager.Stop(shutdownCtx); err != nil {
			s.logger.Error("postgres stop error", "error", err)
		}
		if err := s.pgManager.Close(); err != nil {
			s.logger.Error("postgres manager close error", "error", err)
		}
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Store returns the persistence store.
// Returns nil if the server hasn't started yet.
func (s *Server) Store() store.Store {
	return s.store
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Registry returns the provider registry.
func (s *Server) Registry() *providers.Registry {
	return s.registry
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.services != nil {
			ctx = svcctx.WithServices(ctx, s.services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable if the store or pipeline aren't ready.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.store == nil || s.services == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
