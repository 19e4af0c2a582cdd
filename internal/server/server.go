// Package server exposes the renderer over HTTP and a websocket stream.
//
//	GET  /render.png     render the view described by the query
//	GET  /preset         the same view as a .mandel blob
//	POST /preset/render  render a posted .mandel blob
//	GET  /presets        built-in view and palette names
//	GET  /ws             interactive session, JSON commands in, PNG frames out
//
// View queries accept res, cx, cy, zoom, iter, julia, jx, jy, scheme,
// workers and view (a built-in view name used as the starting point).
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/san-kum/mandelscope/internal/export"
	"github.com/san-kum/mandelscope/internal/fractal"
	"github.com/san-kum/mandelscope/internal/raster"
)

const (
	DefaultResolution    = 512
	DefaultMaxResolution = 2048

	maxPresetBytes = 1 << 20
)

type Server struct {
	logger         *slog.Logger
	router         *chi.Mux
	workers        int
	maxRes         int
	originPatterns []string
}

type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

func WithWorkers(n int) Option {
	return func(s *Server) { s.workers = n }
}

// WithMaxResolution caps the resolution a request may ask for.
func WithMaxResolution(r int) Option {
	return func(s *Server) { s.maxRes = r }
}

// WithOriginPatterns lists the hosts allowed to open a websocket from a
// browser page on another origin.
func WithOriginPatterns(p ...string) Option {
	return func(s *Server) { s.originPatterns = p }
}

func New(opts ...Option) *Server {
	s := &Server{
		workers: runtime.NumCPU(),
		maxRes:  DefaultMaxResolution,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/render.png", s.handleRender)
	r.Get("/preset", s.handlePreset)
	r.Post("/preset/render", s.handlePresetRender)
	r.Get("/presets", s.handleList)
	r.Get("/ws", s.handleWebsocket)

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"elapsed", time.Since(start))
		})
	}
}

func (s *Server) encodePNG(buf *raster.Buffer) ([]byte, error) {
	var out bytes.Buffer
	if err := export.Encode(&out, buf, export.PNG); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// status maps domain errors onto HTTP status codes.
func status(err error) int {
	switch {
	case errors.Is(err, fractal.ErrInvalidParameter), errors.Is(err, fractal.ErrFormat):
		return http.StatusBadRequest
	case errors.Is(err, fractal.ErrBusy):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
