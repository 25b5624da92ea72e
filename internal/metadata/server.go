// Package metadata serves off-chain token metadata, images and stored trade
// history over HTTP.
package metadata

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"launchpad/internal/observability"
	"launchpad/internal/storage"
)

const (
	DefaultMaxImageBytes = 2 << 20
	DefaultTradeLimit    = 100
	MaxTradeLimit        = 1000
	imageCacheControl    = "public, max-age=31536000, immutable"
	shutdownTimeout      = 10 * time.Second
)

// Config controls the metadata API.
type Config struct {
	// PublicURL prefixes the metadataUri and imageUrl returned to clients.
	PublicURL      string
	AllowedOrigins []string
	MaxImageBytes  int64
	ChainID        uint64
}

// Server exposes the metadata routes.
type Server struct {
	cfg     Config
	meta    storage.MetadataStore
	images  storage.ImageStore
	trades  storage.TradeStore
	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// NewServer builds the API. trades may be nil, in which case the trade
// history route is not mounted.
func NewServer(cfg Config, meta storage.MetadataStore, images storage.ImageStore, trades storage.TradeStore, logger *zap.Logger, metrics *observability.Metrics) *Server {
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = DefaultMaxImageBytes
	}
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:     cfg,
		meta:    meta,
		images:  images,
		trades:  trades,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Handler returns the routed API wrapped in CORS.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	r.Get("/metadata/{pool}", s.getMetadata)
	r.Post("/metadata", s.postMetadata)
	r.Get("/images/{key}", s.getImage)
	if s.trades != nil {
		r.Get("/trades/{pool}", s.getTrades)
	}

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler(r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("metadata api listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

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
		s.metrics.RecordHTTP(route, r.Method, status, time.Since(start))
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
