// Package server exposes styles, raster tiles and static map assets over HTTP.
//
// Routes:
//
//	GET /api/tiles/style/{vibe}                       derived MapLibre style (JSON)
//	GET /api/tiles/raster/{vibe}/{z}/{x}/{y}.png      restyled raster tile
//	GET /api/sprites/{vibe}.png|.json                 sprite sheets
//	GET /api/glyphs/{fontstack}/{range}.pbf           SDF glyph ranges
//	GET /api/health                                   liveness
//	GET /metrics                                      Prometheus exposition
//	GET /*                                            static frontend
//
// Every response allows any origin. Errors are JSON objects carrying the
// error code and a user-facing message.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/vibetiles/pkg/errors"
	"github.com/matzehuels/vibetiles/pkg/tile"
	"github.com/matzehuels/vibetiles/pkg/vibe"
)

// DefaultAddr is the listen address when none is configured.
const DefaultAddr = ":5003"

const shutdownTimeout = 10 * time.Second

// StyleSource produces per-vibe style documents.
type StyleSource interface {
	Style(ctx context.Context, id vibe.ID) (map[string]any, error)
}

// TileSource produces per-vibe raster tiles.
type TileSource interface {
	RasterTile(ctx context.Context, key tile.Key) ([]byte, error)
}

// Config holds the server settings.
type Config struct {
	Addr string

	// StaticDir holds the sprites/ and glyphs/ asset trees.
	StaticDir string

	// FrontendDir is served at / when set.
	FrontendDir string
}

// Server is the HTTP front-end.
type Server struct {
	cfg     Config
	styles  StyleSource
	tiles   TileSource
	metrics http.Handler
	logger  *log.Logger
	router  chi.Router
}

// New creates a Server. metrics may be nil, in which case /metrics is not
// routed. If logger is nil, log.Default() is used.
func New(cfg Config, styles StyleSource, tiles TileSource, metrics http.Handler, logger *log.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		cfg:     cfg,
		styles:  styles,
		tiles:   tiles,
		metrics: metrics,
		logger:  logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/tiles/style/{vibe}", s.handleStyle)
		r.Get("/tiles/raster/{vibe}/{z:[0-9]+}/{x:[0-9]+}/{y:[0-9]+}.png", s.handleRaster)
		r.Get("/sprites/{vibe}.{ext}", s.handleSprite)
		r.Get("/glyphs/{fontstack}/{range}.pbf", s.handleGlyphs)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			s.writeError(w, r, errors.New(errors.ErrCodeNotFound, "Not found"))
		})
	})

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	if s.cfg.FrontendDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.cfg.FrontendDir)))
	}
	return r
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != http.ErrServerClosed {
		return err
	}
	return nil
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
