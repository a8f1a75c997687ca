// Package server hosts the gateway's HTTP routes.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mattjoyce/oneguard-gw/internal/auth"
	"github.com/mattjoyce/oneguard-gw/internal/inbox"
)

// InboxLister lists recorded deliveries for the admin endpoint.
type InboxLister interface {
	Recent(ctx context.Context, limit int) ([]inbox.Entry, error)
}

// Config holds HTTP server configuration.
type Config struct {
	Listen          string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	WebhookPath string
	VerifyPath  string // empty disables the verification proxy route

	// APIKey guards /api/inbox. The route is not mounted when empty.
	APIKey string
}

// Routes are the handlers the server mounts.
type Routes struct {
	Webhook http.Handler
	Verify  http.Handler // optional
	Inbox   InboxLister  // optional
}

// Server represents the gateway HTTP server.
type Server struct {
	config    Config
	routes    Routes
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time
	ready     chan net.Addr
}

// New creates a new server instance.
func New(config Config, routes Routes, logger *slog.Logger) *Server {
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = 10 * time.Second
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 30 * time.Second
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 5 * time.Second
	}
	return &Server{
		config:    config,
		routes:    routes,
		logger:    logger,
		startedAt: time.Now(),
		ready:     make(chan net.Addr, 1),
	}
}

// Ready yields the bound address once Start is listening.
func (s *Server) Ready() <-chan net.Addr { return s.ready }

// Start starts the HTTP server (blocking) until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Listen, err)
	}

	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("server starting",
		"listen", ln.Addr().String(),
		"webhook_path", s.config.WebhookPath,
		"verify_path", s.config.VerifyPath,
		"inbox_api", s.inboxMounted(),
	)
	s.ready <- ln.Addr()

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// Handler builds the router. Exposed for tests and embedding.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodPost, s.config.WebhookPath, s.routes.Webhook)

	if s.config.VerifyPath != "" && s.routes.Verify != nil {
		r.Method(http.MethodPost, s.config.VerifyPath, s.routes.Verify)
	}

	if s.inboxMounted() {
		r.With(auth.RequireBearer(s.config.APIKey, s.logger)).Get("/api/inbox", s.handleInbox)
	}

	return r
}

func (s *Server) inboxMounted() bool {
	return s.routes.Inbox != nil && s.config.APIKey != ""
}

// loggingMiddleware logs HTTP requests (no bodies or headers).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}

type healthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
	})
}

type inboxResponse struct {
	Deliveries []inbox.Entry `json:"deliveries"`
}

func (s *Server) handleInbox(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	entries, err := s.routes.Inbox.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list inbox", "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list inbox"})
		return
	}
	if entries == nil {
		entries = []inbox.Entry{}
	}
	respondJSON(w, http.StatusOK, inboxResponse{Deliveries: entries})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
