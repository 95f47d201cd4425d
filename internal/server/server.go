// Package server serves the dist tree during development, with live reload.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/landingkit/lander/internal/config"
	"github.com/landingkit/lander/internal/logging"
	"github.com/landingkit/lander/internal/version"
	"github.com/landingkit/lander/internal/websocket"
)

// Routes of the development server.
const (
	LiveReloadPath   = "/livereload"
	LiveReloadScript = "/livereload.js"
	HealthPath       = "/health"
)

// DevServer serves the output directory and the live-reload endpoint.
type DevServer struct {
	fs        afero.Fs
	root      string
	config    config.ServerConfig
	wsManager *websocket.WebSocketManager
	logger    logging.Logger

	serverMutex  sync.RWMutex
	httpServer   *http.Server
	listener     net.Listener
	shutdownOnce sync.Once
}

// New creates a server for the files below root. wsManager may be nil when
// live reload is disabled.
func New(fs afero.Fs, root string, cfg config.ServerConfig, wsManager *websocket.WebSocketManager, logger logging.Logger) *DevServer {
	if !cfg.LiveReload {
		wsManager = nil
	}
	return &DevServer{
		fs:        fs,
		root:      root,
		config:    cfg,
		wsManager: wsManager,
		logger:    logging.OrNop(logger).WithComponent("server"),
	}
}

// Handler returns the HTTP handler with every route and middleware.
func (s *DevServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(HealthPath, s.handleHealth)
	if s.wsManager != nil {
		mux.HandleFunc(LiveReloadPath, s.wsManager.HandleWebSocket)
		mux.HandleFunc(LiveReloadScript, s.handleLiveReloadScript)
	}
	mux.Handle("/", &staticHandler{
		fs:     afero.NewBasePathFs(s.fs, s.root),
		inject: s.wsManager != nil,
		logger: s.logger,
	})
	return s.addMiddleware(mux)
}

// Listen binds the configured address. It is separate from Serve so that
// callers can report the bound address before serving.
func (s *DevServer) Listen() (net.Addr, error) {
	ln, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", s.config.Addr(), err)
	}

	s.serverMutex.Lock()
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.serverMutex.Unlock()

	return ln.Addr(), nil
}

// Serve serves until ctx is done or Shutdown is called.
func (s *DevServer) Serve(ctx context.Context) error {
	s.serverMutex.RLock()
	server, ln := s.httpServer, s.listener
	s.serverMutex.RUnlock()
	if server == nil {
		return fmt.Errorf("server: Listen must be called before Serve")
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn(shutdownCtx, err, "Server shutdown failed")
		}
	}()

	s.logger.Info(ctx, "Serving", "addr", ln.Addr().String(), "root", s.root, "live_reload", s.wsManager != nil)
	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown closes the live-reload connections and stops the HTTP server.
func (s *DevServer) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.wsManager != nil {
			_ = s.wsManager.Shutdown(ctx)
		}

		s.serverMutex.RLock()
		server := s.httpServer
		s.serverMutex.RUnlock()
		if server != nil {
			shutdownErr = server.Shutdown(ctx)
		}
	})
	return shutdownErr
}

// StartURL returns the page a browser should open first: the landing page of
// site, or the root when no site is known.
func StartURL(addr net.Addr, site, htmlFileName string) string {
	base := "http://" + addr.String()
	if site == "" {
		return base + "/"
	}
	return base + "/" + site + "/" + htmlFileName + ".html"
}

func (s *DevServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	clients := 0
	if s.wsManager != nil {
		clients = s.wsManager.GetConnectedClients()
	}
	health := map[string]interface{}{
		"status":            "healthy",
		"timestamp":         time.Now().UTC(),
		"version":           version.GetShortVersion(),
		"live_reload":       s.wsManager != nil,
		"websocket_clients": clients,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(health); err != nil {
		s.logger.Warn(r.Context(), err, "Failed to encode health response")
	}
}

func (s *DevServer) handleLiveReloadScript(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	_, _ = w.Write([]byte(liveReloadClient))
}
