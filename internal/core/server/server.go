package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammed-shakir/seattle-ev-map/internal/core/config"
	"github.com/mohammed-shakir/seattle-ev-map/internal/core/health"
	middleware "github.com/mohammed-shakir/seattle-ev-map/internal/core/middleware"
	"github.com/mohammed-shakir/seattle-ev-map/internal/core/router"
)

// NewHandler builds the chi router with every API route.
func NewHandler(logger *slog.Logger, h *router.Handlers, ready ...health.ReadinessReporter) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(ready...))
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Get("/stations", h.Stations)
	r.Get("/search", h.Search)
	r.Get("/nearby", h.Nearby)
	r.Get("/neighborhoods", h.Neighborhoods)
	r.Get("/clusters", h.Clusters)
	return r
}

// sets up http and starts serving
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, handler http.Handler) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// nearby may wait on geolocation
		WriteTimeout: cfg.LocateTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
