// Package server exposes the telemetry pipelines over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pable/go-telemetry-metrics/internal/config"
	"github.com/pable/go-telemetry-metrics/internal/identity"
	"github.com/pable/go-telemetry-metrics/internal/metrics"
	"github.com/pable/go-telemetry-metrics/internal/storage"
)

// MaxBodySize limits uploaded CSVs to 32 MiB.
const MaxBodySize = 32 << 20

// HTTP server timeouts.
const (
	readTimeout       = 30 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// RequestIDHeader carries the per-request id in both directions.
const RequestIDHeader = "X-Request-ID"

type Config struct {
	Settings   *config.Config
	Identities *identity.Map
	Metrics    *metrics.Manager
	Logger     *zap.Logger
	// Store is optional; without it the /datasets routes answer 503.
	Store *storage.DB
}

type Handler struct {
	cfg     *config.Config
	ids     *identity.Map
	metrics *metrics.Manager
	logger  *zap.SugaredLogger
	db      *storage.DB
}

func New(cfg Config) *Handler {
	settings := cfg.Settings
	if settings == nil {
		settings = config.New()
	}
	ids := cfg.Identities
	if ids == nil {
		ids = identity.New(nil)
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.NewManager()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		cfg:     settings,
		ids:     ids,
		metrics: m,
		logger:  logger.Sugar(),
		db:      cfg.Store,
	}
}

// Routes builds the chi router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(h.requestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))
	r.Use(h.instrument)

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", h.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/interactions/report", h.InteractionReport)
		r.Post("/interactions/player/{name}", h.PlayerDrilldown)
		r.Post("/features", h.Features)
		r.Post("/deaths", h.Deaths)
		r.Post("/shop", h.Shop)

		r.Get("/datasets", h.ListDatasets)
		r.Get("/datasets/{prefix}/report", h.DatasetReport)
	})
	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (h *Handler) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return h.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (h *Handler) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           h.Routes(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h.logger.Infow("starting HTTP server", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		h.logger.Infow("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	h.logger.Infow("server stopped")
	return err
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{"status": "ok", "store": h.db != nil}
	h.jsonResponse(w, http.StatusOK, status)
}

func (h *Handler) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// instrument counts requests by route pattern and logs each one.
func (h *Handler) instrument(next http.Handler) http.Handler {
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
		h.metrics.RecordRequest(route, strconv.Itoa(status))
		h.logger.Debugw("request",
			"method", r.Method,
			"route", route,
			"status", status,
			"duration", time.Since(start),
			"request_id", w.Header().Get(RequestIDHeader),
		)
	})
}
