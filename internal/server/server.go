package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/fablehouse/fable/internal/api"
	"github.com/fablehouse/fable/internal/assets"
	"github.com/fablehouse/fable/internal/auth"
	"github.com/fablehouse/fable/internal/config"
	"github.com/fablehouse/fable/internal/flow"
	"github.com/fablehouse/fable/internal/home"
	"github.com/fablehouse/fable/internal/jobs"
	"github.com/fablehouse/fable/internal/providers"
	"github.com/fablehouse/fable/internal/server/endpoints"
	"github.com/fablehouse/fable/internal/store"
	"github.com/fablehouse/fable/internal/svcctx"
)

// Server is the main Fable HTTP server. It owns the SQLite store and
// the illustration broker, resuming interrupted flows on start and
// draining cleanly on shutdown.
type Server struct {
	httpServer *http.Server
	store      *store.Store
	broker     *jobs.Broker
	scheduler  *flow.Scheduler
	aggregator *flow.Aggregator
	registry   *providers.Registry
	authMgr    *auth.Manager
	configMgr  *config.Manager
	homeDir    *home.Dir
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
	// Addr is the address to listen on. Falls back to the config file's
	// server.addr, then ":8080".
	Addr string
	// Home is the fable home directory holding the database and assets.
	Home *home.Dir
	// ConfigManager provides configuration with hot-reload support.
	ConfigManager *config.Manager
	// SwaggerSpecPath overrides where swagger.json is loaded from.
	SwaggerSpecPath string
	// Logger is the structured logger to use.
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Home == nil {
		return nil, errors.New("home directory is required")
	}
	if cfg.ConfigManager == nil {
		return nil, errors.New("config manager is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if err := cfg.Home.EnsureExists(); err != nil {
		return nil, fmt.Errorf("failed to prepare home directory: %w", err)
	}

	appCfg := cfg.ConfigManager.Get()
	addr := cfg.Addr
	if addr == "" {
		addr = appCfg.Server.Addr
	}
	if addr == "" {
		addr = ":8080"
	}

	st, err := store.Open(cfg.Home.DBPath(), cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	registry := providers.NewRegistry()
	registry.SetLogger(cfg.Logger)
	registry.Reload(appCfg.ToProviderRegistryConfig())
	cfg.ConfigManager.OnChange(func(c *config.Config) {
		registry.Reload(c.ToProviderRegistryConfig())
		cfg.Logger.Info("provider registry reloaded from config")
	})

	library := assets.NewLibrary(cfg.Home)
	aggregator := flow.NewAggregator(st, cfg.Logger)

	broker, err := jobs.NewBroker(jobs.BrokerConfig{
		Store:           st,
		Finalizer:       aggregator,
		Images:          library,
		Registry:        registry,
		Logger:          cfg.Logger,
		DefaultProvider: appCfg.Defaults.Provider,
		Runners:         appCfg.Defaults.MaxWorkers,
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create broker: %w", err)
	}

	authMgr := auth.NewManager(appCfg.AuthSecret(),
		time.Duration(appCfg.Auth.TokenTTLHours)*time.Hour, cfg.Logger)
	if authMgr.DevMode() {
		cfg.Logger.Warn("no auth secret configured, trusting X-User-ID headers")
	}

	s := &Server{
		store:      st,
		broker:     broker,
		scheduler:  flow.NewScheduler(st, broker, cfg.Logger),
		aggregator: aggregator,
		registry:   registry,
		authMgr:    authMgr,
		configMgr:  cfg.ConfigManager,
		homeDir:    cfg.Home,
		logger:     cfg.Logger,
	}

	s.services = &svcctx.Services{
		Store:      s.store,
		Broker:     s.broker,
		Scheduler:  s.scheduler,
		Aggregator: s.aggregator,
		Registry:   s.registry,
		Assets:     library,
		Auth:       s.authMgr,
		Config:     s.configMgr,
		Logger:     s.logger,
		Home:       s.homeDir,
	}

	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All(endpoints.Config{SwaggerSpecPath: cfg.SwaggerSpecPath}) {
		s.endpointRegistry.Register(ep)
	}

	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.authMgr.Middleware)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.withServices(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start runs the server. It settles flows interrupted by a previous
// shutdown, starts the broker's workers, and blocks until the context
// is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if err := s.broker.Resume(ctx); err != nil {
		s.setNotRunning()
		return fmt.Errorf("failed to resume interrupted flows: %w", err)
	}

	brokerCtx, stopBroker := context.WithCancel(context.Background())
	go s.broker.Run(brokerCtx)

	s.configMgr.WatchConfig()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			stopBroker()
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	stopBroker()
	return s.shutdown()
}

// shutdown performs graceful shutdown of the HTTP server and the store.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := s.store.Close(); err != nil {
		s.logger.Error("store close error", "error", err)
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

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Registry returns the provider registry.
func (s *Server) Registry() *providers.Registry {
	return s.registry
}

// Handler returns the fully wired HTTP handler. Tests use this with
// httptest instead of binding a listener.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Broker returns the illustration job broker.
func (s *Server) Broker() *jobs.Broker {
	return s.broker
}

// Store returns the database store.
func (s *Server) Store() *store.Store {
	return s.store
}

// Auth returns the auth manager.
func (s *Server) Auth() *auth.Manager {
	return s.authMgr
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(svcctx.WithServices(r.Context(), s.services)))
	})
}
