package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/ekisa-team/infero/internal/config"
	"github.com/ekisa-team/infero/schema"
)

const readHeaderTimeout = 10 * time.Second

// Server serves the predict route, /health, /metrics and the OpenAPI document.
type Server struct {
	api     huma.API
	handler http.Handler
	srv     *http.Server
}

// Options are the route schemas and collaborators of a Server.
type Options struct {
	Route     config.RouteConfig
	Request   *schema.Request
	Response  *schema.Response
	Predictor Predictor
	Metrics   *Metrics
}

// New creates the HTTP server described by cfg.
func New(cfg config.ServerConfig, opts Options) *Server {
	mux := http.NewServeMux()

	hc := huma.DefaultConfig(cfg.Name, cfg.Version)
	hc.Info.Description = cfg.Description
	if !cfg.HTTP.Debug {
		hc.DocsPath = ""
	}

	api := humago.New(mux, hc)

	NewPredictHandler(api, opts.Route, opts.Request, opts.Response, opts.Predictor, opts.Metrics)
	NewHealthHandler(api, opts.Predictor)
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics.Handler())
	}

	var handler http.Handler = mux
	if cfg.HTTP.AccessLog {
		handler = accessLog(handler)
	}

	return &Server{
		api:     api,
		handler: handler,
		srv: &http.Server{
			Addr:              net.JoinHostPort(cfg.HTTP.Host, strconv.Itoa(cfg.HTTP.Port)),
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
		},
	}
}

// API returns the underlying huma API.
func (s *Server) API() huma.API {
	return s.api
}

// Handler returns the root handler, middleware included.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.srv.Addr
}

// Listen binds the configured address without serving it yet.
func (s *Server) Listen() (net.Listener, error) {
	lis, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return nil, fmt.Errorf("http: failed to listen on %s: %w", s.srv.Addr, err)
	}
	return lis, nil
}

// Serve accepts connections on lis until Shutdown is called.
func (s *Server) Serve(lis net.Listener) error {
	slog.Info("HTTP server listening", "addr", lis.Addr().String())

	if err := s.srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		slog.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
