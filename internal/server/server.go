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

	"github.com/jackzampolin/lectern/internal/api"
	"github.com/jackzampolin/lectern/internal/buildcfg"
	"github.com/jackzampolin/lectern/internal/cache"
	"github.com/jackzampolin/lectern/internal/config"
	"github.com/jackzampolin/lectern/internal/home"
	"github.com/jackzampolin/lectern/internal/lesson"
	"github.com/jackzampolin/lectern/internal/pdfsource"
	"github.com/jackzampolin/lectern/internal/server/endpoints"
	"github.com/jackzampolin/lectern/internal/svcctx"
)

// Server is the main Lectern HTTP server.
// When the packet cache is enabled it manages the Redis container
// lifecycle, starting it on server start and stopping it on shutdown if
// the server was the one that started it.
type Server struct {
	httpServer   *http.Server
	cacheManager *cache.DockerManager
	cacheStarted bool
	cache        *cache.RedisCache
	components   *buildcfg.Components
	sessions     *lesson.Manager
	configMgr    *config.Manager
	home         *home.Dir
	overrides    buildcfg.Overrides
	scheduler    lesson.Scheduler
	logger       *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: server.host from config)
	Host string
	// Port is the port to listen on (default: server.port from config)
	Port string
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Home locates the default library, cache data and rules
	Home *home.Dir
	// Overrides replace packet collaborators, e.g. mock providers in tests
	Overrides buildcfg.Overrides
	// Scheduler drives caption timers; nil uses the wall clock
	Scheduler lesson.Scheduler
	// CacheLabels are added to the cache container (used for test cleanup)
	CacheLabels map[string]string
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration. The library is
// checked here so a misconfigured server fails before it binds a port.
func New(cfg Config) (*Server, error) {
	if cfg.ConfigManager == nil {
		return nil, errors.New("config manager is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	c := cfg.ConfigManager.Get()
	if cfg.Host == "" {
		cfg.Host = c.Server.Host
	}
	if cfg.Port == "" {
		cfg.Port = c.Server.Port
	}

	library := pdfsource.NewLibrary(buildcfg.LibraryDir(c, cfg.Home)).WithLogger(cfg.Logger)
	if err := library.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		configMgr: cfg.ConfigManager,
		home:      cfg.Home,
		overrides: cfg.Overrides,
		scheduler: cfg.Scheduler,
		logger:    cfg.Logger,
	}

	if c.Cache.Enabled && cfg.Overrides.Cache == nil && managedAddr(c.Cache) {
		dockerCfg := cache.DockerConfig{
			ContainerName: c.Cache.ContainerName,
			Image:         c.Cache.Image,
			HostPort:      c.Cache.Port,
			Labels:        cfg.CacheLabels,
		}
		if cfg.Home != nil {
			dockerCfg.DataPath = cfg.Home.CachePath()
		}
		manager, err := cache.NewDockerManager(dockerCfg)
		if err != nil {
			cfg.Logger.Warn("cache container unavailable, connecting to configured address only", "error", err)
		} else {
			s.cacheManager = manager
		}
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All(endpoints.Config{
		CacheManager:    s.cacheManager,
		SwaggerSpecPath: endpoints.GetSwaggerSpecPath(),
	}) {
		s.endpointRegistry.Register(ep)
	}

	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	// Start and next answer only once a packet is built, so the write
	// timeout has to cover a full generation and synthesis round.
	writeTimeout := time.Duration(c.Server.WriteTimeoutSeconds) * time.Second
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Minute
	}

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      s.withServices(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start wires the lesson services, starts the cache when enabled and serves
// HTTP. It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	cfg := s.configMgr.Get()

	s.startCache(ctx, cfg)

	overrides := s.overrides
	if overrides.Cache == nil && s.cache != nil {
		overrides.Cache = s.cache
	}
	components, err := buildcfg.New(cfg, s.home, s.logger, overrides)
	if err != nil {
		_ = s.shutdown()
		return fmt.Errorf("failed to initialize lessons: %w", err)
	}
	s.components = components

	s.sessions = lesson.NewManager(components.Builder, lesson.ManagerConfig{
		BatchSize:   cfg.Lesson.BatchSize,
		IdleTimeout: cfg.IdleTimeout(),
		Scheduler:   s.scheduler,
	}, s.logger)

	s.configMgr.OnChange(func(c *config.Config) {
		if err := components.Apply(c); err != nil {
			s.logger.Warn("config reload rejected", "error", err)
			return
		}
		s.sessions.Reconfigure(c.Lesson.BatchSize, c.IdleTimeout())
	})

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	go s.sessions.Run(runCtx, cfg.ReapInterval())

	// Create services struct for context enrichment
	s.mu.Lock()
	s.services = &svcctx.Services{
		Sessions:  s.sessions,
		Library:   components.Library,
		Factory:   components.Factory,
		Builder:   components.Builder,
		Prompts:   components.Prompts,
		Cache:     s.cache,
		ConfigMgr: s.configMgr,
		Logger:    s.logger,
		Home:      s.home,
	}
	s.mu.Unlock()

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr, "library", components.Library.Dir())
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

// startCache brings up the packet cache. Lessons run without it when the
// container or the connection fails.
func (s *Server) startCache(ctx context.Context, cfg *config.Config) {
	if !cfg.Cache.Enabled || s.overrides.Cache != nil {
		return
	}

	addr := cfg.Cache.Addr
	if s.cacheManager != nil {
		if err := s.cacheManager.ValidateExisting(ctx); err != nil {
			s.logger.Warn("existing cache container incompatible, caching disabled", "error", err)
			return
		}
		s.logger.Info("starting cache container", "container", s.cacheManager.ContainerName())
		if err := s.cacheManager.Start(ctx); err != nil {
			s.logger.Warn("failed to start cache container, caching disabled", "error", err)
			return
		}
		s.cacheStarted = true
		addr = s.cacheManager.Addr()
	}

	rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
		Addr:     addr,
		Password: config.ResolveEnvVars(cfg.Cache.Password),
		DB:       cfg.Cache.DB,
		TTL:      cfg.CacheTTL(),
	}, s.logger)
	if err != nil {
		s.logger.Warn("packet cache unreachable, caching disabled", "addr", addr, "error", err)
		return
	}
	s.cache = rc
	s.logger.Info("packet cache ready", "addr", addr)
}

// managedAddr reports whether the cache address points at the local
// container. Any other address is an externally run Redis.
func managedAddr(c config.CacheCfg) bool {
	host, port, err := net.SplitHostPort(c.Addr)
	if err != nil || port != c.Port {
		return false
	}
	return host == "localhost" || host == "127.0.0.1" || host == ""
}

// shutdown ends sessions, stops HTTP and releases the cache.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	if s.sessions != nil {
		s.sessions.CloseAll()
	}

	// Shutdown HTTP server with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.logger.Error("cache close error", "error", err)
		}
	}

	if s.cacheManager != nil {
		if s.cacheStarted {
			s.logger.Info("stopping cache container")
			if err := s.cacheManager.Stop(shutdownCtx); err != nil {
				s.logger.Error("cache container stop error", "error", err)
			}
			s.cacheStarted = false
		}
		if err := s.cacheManager.Close(); err != nil {
			s.logger.Error("cache manager close error", "error", err)
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

// Sessions returns the session manager.
// Returns nil if the server hasn't started yet.
func (s *Server) Sessions() *lesson.Manager {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.services == nil {
		return nil
	}
	return s.services.Sessions
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

func (s *Server) currentServices() *svcctx.Services {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.services
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc := s.currentServices(); svc != nil {
			ctx = svcctx.WithServices(ctx, svc)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable until lesson services are wired.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.currentServices() == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
