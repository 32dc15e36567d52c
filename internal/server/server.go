// Package server exposes the layout pipeline over HTTP.
//
// Routes:
//
//	POST /v1/layout   anneal a graph, optionally rendering text formats
//	POST /v1/analyze  score a stored layout
//	GET  /healthz     liveness and build information
//	GET  /metrics     Prometheus metrics, when a handler is configured
//
// A layout run that reaches [Options.Timeout] answers 200 with the best
// layout found so far and "partial": true, matching the CLI's behavior on
// interrupt. Partial layouts are not cached. A client that disconnects
// gets no layout.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/graphanneal/pkg/observability"
	"github.com/matzehuels/graphanneal/pkg/pipeline"
)

// Defaults for [Options].
const (
	DefaultTimeout  = 2 * time.Minute
	DefaultMaxBody  = 8 << 20
	DefaultMaxNodes = 2000
)

// Options configures a Server.
type Options struct {
	Runner  *pipeline.Runner
	Logger  *log.Logger
	Metrics http.Handler // served on /metrics when set

	Timeout  time.Duration // upper bound for one layout run
	MaxBody  int64         // request body limit in bytes
	MaxNodes int           // largest graph accepted by /v1/layout
}

// Server handles layout requests.
type Server struct {
	runner   *pipeline.Runner
	logger   *log.Logger
	metrics  http.Handler
	timeout  time.Duration
	maxBody  int64
	maxNodes int
}

// New creates a server. A nil runner gets an uncached one.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Runner == nil {
		opts.Runner = pipeline.NewRunner(nil, nil, opts.Logger)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBody <= 0 {
		opts.MaxBody = DefaultMaxBody
	}
	if opts.MaxNodes <= 0 {
		opts.MaxNodes = DefaultMaxNodes
	}
	return &Server{
		runner:   opts.Runner,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		timeout:  opts.Timeout,
		maxBody:  opts.MaxBody,
		maxNodes: opts.MaxNodes,
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	r.Route("/v1", func(r chi.Router) {
		r.Post("/layout", s.handleLayout)
		r.Post("/analyze", s.handleAnalyze)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// instrument reports every request to the HTTP hooks under its route
// pattern. Both hooks fire after the handler, once routing has resolved the
// pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		hooks := observability.HTTP()
		hooks.OnRequest(r.Context(), r.Method, route)
		hooks.OnResponse(r.Context(), r.Method, route, status, time.Since(start))
		s.logger.Debug("request",
			"method", r.Method,
			"route", route,
			"status", status,
			"duration", time.Since(start).Round(time.Millisecond),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
