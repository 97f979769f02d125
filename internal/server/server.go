// Package server exposes crop scoring over HTTP: CSV uploads in, JSON
// reports or charts out.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zuhrulumam/cropscore/internal/scoring"
	"github.com/zuhrulumam/cropscore/internal/worker"
)

// Config holds configuration for the upload server
type Config struct {
	// Addr is the listen address, e.g. ":8080"
	Addr string

	// MaxUploadBytes caps the request body (default 10 MiB)
	MaxUploadBytes int64

	// MaxRecords caps the data rows of one upload (0 = unlimited)
	MaxRecords int

	// MaxConcurrent bounds the uploads scored at once (default 8)
	MaxConcurrent int

	// QueueTimeout is how long a request waits for a scoring slot before 503 (default 5s)
	QueueTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown (default 10s)
	ShutdownTimeout time.Duration

	// Scoring holds the defaults; requests may override policy, top_k and skip_threshold
	Scoring scoring.Options

	Logger *zap.Logger
}

// Server is the HTTP upload surface
type Server struct {
	cfg      Config
	logger   *zap.Logger
	sem      *worker.Semaphore
	registry *prometheus.Registry
	metrics  *metrics
	router   chi.Router
}

// New creates a server and its routes
func New(cfg Config) (*Server, error) {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 8
	}
	if cfg.QueueTimeout <= 0 {
		cfg.QueueTimeout = 5 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	// Catch bad defaults at startup rather than on the first request
	if _, err := scoring.NewScorer(cfg.Scoring); err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}

	registry := prometheus.NewRegistry()

	s := &Server{
		cfg:      cfg,
		logger:   cfg.Logger.Named("server"),
		sem:      worker.NewSemaphore(cfg.MaxConcurrent),
		registry: registry,
		metrics:  newMetrics(registry),
	}
	s.router = s.routes()

	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(
		middleware.RealIP,
		requestID,
		s.accessLog,
		middleware.Recoverer,
	)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/score", s.handleScore)
		r.Post("/chart", s.handleChart)
	})

	return r
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on Addr and serves until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.router,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("listening",
		zap.String("addr", ln.Addr().String()),
		zap.Int("max_concurrent", s.sem.Limit()),
		zap.Int64("max_upload_bytes", s.cfg.MaxUploadBytes),
	)

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

type ctxKeyRequestID struct{}

// requestID tags each request with the caller's X-Request-ID or a fresh UUID
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		ctx := context.WithValue(r.Context(), ctxKeyRequestID{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestID returns the request ID stored in ctx
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID{}).(string)
	return id
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
