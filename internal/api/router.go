// Velodash - Bike Share Analytics Dashboard
// Copyright 2026 Velodash Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velodash/velodash

package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/velodash/velodash/internal/middleware"
)

// defaultWebDir is where the built dashboard frontend lives.
const defaultWebDir = "./web/dist"

// Router sets up HTTP routes using the Chi router.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	webDir        string
}

// NewRouter creates a router around the given handler and middleware factory.
func NewRouter(handler *Handler, chiMw *ChiMiddleware) *Router {
	if chiMw == nil {
		chiMw = NewChiMiddleware(nil)
	}
	return &Router{
		handler:       handler,
		chiMiddleware: chiMw,
		webDir:        defaultWebDir,
	}
}

// SetWebDir overrides the static file directory (used by tests).
func (router *Router) SetWebDir(dir string) {
	router.webDir = dir
}

// chiMiddleware adapts http.HandlerFunc middleware to Chi's
// func(http.Handler) http.Handler so r.Use() accepts it.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// Setup configures all HTTP routes and returns the root handler.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order
	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // must be global to handle OPTIONS preflight

	// Health endpoints, permissive rate limit for monitoring tools
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	// Core endpoints: summary KPIs, rentals table, dataset info, WebSocket
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		r.Get("/summary", router.handler.Summary)
		r.Get("/rentals", router.handler.Rentals)
		r.Get("/dataset", router.handler.Dataset)
		r.Get("/ws", router.handler.WebSocket)

		// Manual reload is write-ish and ingest-bound, so it gets a
		// stricter limit than the rest of the group.
		r.With(router.chiMiddleware.RateLimitReload()).
			Post("/dataset/reload", router.handler.DatasetReload)
	})

	// Chart endpoints, cached and read-heavy
	r.Route("/api/v1/trends", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitAnalytics())
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		r.Get("/daily", router.handler.TrendsDaily)
		r.Get("/weekday", router.handler.TrendsWeekday)
		r.Get("/hourly", router.handler.TrendsHourly)
		r.Get("/seasonal", router.handler.TrendsSeasonal)
	})

	r.Route("/api/v1/weather", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitAnalytics())
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		r.Get("/distribution", router.handler.WeatherDistribution)
		r.Get("/temperature", router.handler.WeatherTemperature)
		r.Get("/humidity", router.handler.WeatherHumidity)
	})

	// CSV exports, resource intensive
	r.Route("/api/v1/export", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitExport())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		r.Get("/rentals.csv", router.handler.ExportRentalsCSV)
	})

	// Observability
	r.Handle("/metrics", promhttp.Handler())

	// Static files and SPA fallback, must be last
	r.Get("/*", router.serveStaticOrIndex)

	return r
}

// serveStaticOrIndex serves static files or index.html for SPA routing.
func (router *Router) serveStaticOrIndex(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	// Cache-Control by file type: long for versioned assets, short for HTML
	switch {
	case strings.HasSuffix(path, ".js") || strings.HasSuffix(path, ".css"):
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	case strings.HasSuffix(path, ".png") || strings.HasSuffix(path, ".svg") || strings.HasSuffix(path, ".webp"):
		w.Header().Set("Cache-Control", "public, max-age=604800")
	default:
		w.Header().Set("Cache-Control", "public, max-age=300")
	}

	if path != "/" && path != "/index.html" && router.fileExists(path) {
		http.FileServer(http.Dir(router.webDir)).ServeHTTP(w, r)
		return
	}

	// SPA fallback: serve index.html for unknown routes
	http.ServeFile(w, r, router.webDir+"/index.html")
}

// fileExists checks whether path names a regular file under the web dir.
func (router *Router) fileExists(path string) bool {
	f, err := http.Dir(router.webDir).Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return !stat.IsDir()
}
