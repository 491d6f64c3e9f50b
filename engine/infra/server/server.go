package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/compozy/sqlagent/engine/infra/cache"
	"github.com/compozy/sqlagent/engine/infra/monitoring"
	"github.com/compozy/sqlagent/engine/infra/server/appstate"
	"github.com/compozy/sqlagent/engine/infra/sqlite"
	"github.com/compozy/sqlagent/pkg/config"
	"github.com/compozy/sqlagent/pkg/logger"
	"github.com/gin-gonic/gin"
)

const (
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 120 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 5 * time.Second
	cleanupTimeout         = 30 * time.Second
	hostAny                = "0.0.0.0"
	hostLoopback           = "127.0.0.1"
)

type Server struct {
	serverConfig *config.ServerConfig
	router       *gin.Engine
	state        *appstate.State
	monitoring   *monitoring.Service
	store        *sqlite.Store
	redis        *cache.Redis
	ctx          context.Context
	cancel       context.CancelFunc
	httpServer   *http.Server
	cleanupMu    sync.Mutex
	cleanups     []func()
	shutdownOnce sync.Once
}

func NewServer(ctx context.Context) (*Server, error) {
	serverCtx, cancel := context.WithCancel(ctx)
	cfg := config.FromContext(serverCtx)
	if cfg == nil {
		cancel()
		return nil, fmt.Errorf("configuration missing from context; attach a manager with config.ContextWithManager")
	}
	return &Server{
		serverConfig: &cfg.Server,
		ctx:          serverCtx,
		cancel:       cancel,
	}, nil
}

// Setup wires dependencies and the router without listening.
func (s *Server) Setup() error {
	state, err := s.setupDependencies()
	if err != nil {
		s.cleanup()
		return err
	}
	s.state = state
	if err := s.buildRouter(state); err != nil {
		s.cleanup()
		return fmt.Errorf("failed to build router: %w", err)
	}
	return nil
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run sets the server up, serves until SIGINT/SIGTERM or context
// cancellation, and shuts down gracefully.
func (s *Server) Run() error {
	if err := s.Setup(); err != nil {
		return err
	}
	defer s.cleanup()
	s.logStartupBanner()
	return s.startAndRunServer()
}

func (s *Server) addCleanup(fn func()) {
	s.cleanupMu.Lock()
	s.cleanups = append(s.cleanups, fn)
	s.cleanupMu.Unlock()
}

func (s *Server) cleanup() {
	log := logger.FromContext(s.ctx)
	s.cleanupMu.Lock()
	fns := s.cleanups
	s.cleanups = nil
	s.cleanupMu.Unlock()
	for i := len(fns) - 1; i >= 0; i-- {
		idx := len(fns) - 1 - i
		log.Debug("Running cleanup function", "index", idx, "total", len(fns))
		s.runCleanupWithTimeout(fns[i], cleanupTimeout, idx)
	}
}

func (s *Server) runCleanupWithTimeout(fn func(), timeout time.Duration, index int) {
	log := logger.FromContext(s.ctx)
	done := make(chan struct{})
	start := time.Now()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("Cleanup function panicked", "index", index, "panic", r)
			}
			close(done)
		}()
		fn()
	}()
	select {
	case <-done:
		log.Debug("Cleanup function completed", "index", index, "duration", time.Since(start))
	case <-time.After(timeout):
		log.Warn("Cleanup function exceeded timeout", "index", index, "timeout", timeout, "elapsed", time.Since(start))
	}
}

func (s *Server) address() string {
	return net.JoinHostPort(s.serverConfig.Host, strconv.Itoa(s.serverConfig.Port))
}

func orDefault(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func (s *Server) createHTTPServer() *http.Server {
	t := s.serverConfig.Timeouts
	return &http.Server{
		Addr:              s.address(),
		Handler:           s.router,
		ReadTimeout:       orDefault(t.HTTPRead, defaultReadTimeout),
		ReadHeaderTimeout: orDefault(t.HTTPRead, defaultReadTimeout),
		WriteTimeout:      orDefault(t.HTTPWrite, defaultWriteTimeout),
		IdleTimeout:       orDefault(t.HTTPIdle, defaultIdleTimeout),
	}
}

func (s *Server) startAndRunServer() error {
	srv := s.createHTTPServer()
	s.httpServer = srv
	errCh := make(chan error, 1)
	go func() {
		logger.FromContext(s.ctx).Info("Starting HTTP server", "address", "http://"+srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	return s.handleGracefulShutdown(srv, errCh)
}

func (s *Server) handleGracefulShutdown(srv *http.Server, errCh <-chan error) error {
	log := logger.FromContext(s.ctx)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			s.cancel()
			return fmt.Errorf("server failed to start: %w", err)
		}
	case <-quit:
		log.Debug("Received shutdown signal, initiating graceful shutdown")
	case <-s.ctx.Done():
		log.Debug("Server context canceled, initiating graceful shutdown")
	}
	return s.Shutdown(srv)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(srv *http.Server) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.cancel()
		timeout := orDefault(s.serverConfig.Timeouts.ServerShutdown, defaultShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), timeout)
		defer cancel()
		if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
			err = fmt.Errorf("server shutdown failed: %w", shutdownErr)
			return
		}
		logger.FromContext(s.ctx).Info("Server shutdown completed successfully")
	})
	return err
}

// Stop cancels the server context, which triggers a graceful shutdown of Run.
func (s *Server) Stop() {
	s.cancel()
}
