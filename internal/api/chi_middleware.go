// Velodash - Bike Share Analytics Dashboard
// Copyright 2026 Velodash Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/velodash/velodash

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

// ChiMiddlewareConfig holds configuration for Chi middleware factories.
type ChiMiddlewareConfig struct {
	// CORS configuration
	CORSAllowedOrigins   []string
	CORSAllowedMethods   []string
	CORSAllowedHeaders   []string
	CORSAllowCredentials bool
	CORSMaxAge           int // seconds

	// Rate limiting configuration
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitDisabled bool
}

// DefaultChiMiddlewareConfig returns the default middleware configuration.
// The dashboard is single-tenant and read-mostly, so the wildcard origin
// default matches the shipped configuration.
func DefaultChiMiddlewareConfig() *ChiMiddlewareConfig {
	return &ChiMiddlewareConfig{
		CORSAllowedOrigins:   []string{"*"},
		CORSAllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		CORSAllowedHeaders:   []string{"Content-Type", "X-Request-ID"},
		CORSAllowCredentials: false,
		CORSMaxAge:           86400,

		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
		RateLimitDisabled: false,
	}
}

// ChiMiddleware provides Chi-compatible middleware factories backed by the
// production-hardened go-chi/cors and go-chi/httprate implementations.
type ChiMiddleware struct {
	config *ChiMiddlewareConfig
	cors   func(http.Handler) http.Handler
}

// NewChiMiddleware creates a new Chi middleware factory with the given configuration.
func NewChiMiddleware(config *ChiMiddlewareConfig) *ChiMiddleware {
	if config == nil {
		config = DefaultChiMiddlewareConfig()
	}

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   config.CORSAllowedOrigins,
		AllowedMethods:   config.CORSAllowedMethods,
		AllowedHeaders:   config.CORSAllowedHeaders,
		AllowCredentials: config.CORSAllowCredentials,
		MaxAge:           config.CORSMaxAge,
	})

	return &ChiMiddleware{
		config: config,
		cors:   corsHandler,
	}
}

// NewChiMiddlewareFromSecurity builds the middleware factory from the
// security section of the application configuration.
func NewChiMiddlewareFromSecurity(corsOrigins []string, rateLimitReqs int, rateLimitWindow time.Duration, rateLimitDisabled bool) *ChiMiddleware {
	config := DefaultChiMiddlewareConfig()
	config.CORSAllowedOrigins = corsOrigins
	config.RateLimitRequests = rateLimitReqs
	config.RateLimitWindow = rateLimitWindow
	config.RateLimitDisabled = rateLimitDisabled

	return NewChiMiddleware(config)
}

// CORS returns a Chi-compatible CORS middleware using go-chi/cors.
func (m *ChiMiddleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// RateLimit returns the default IP-keyed rate limiting middleware.
func (m *ChiMiddleware) RateLimit() func(http.Handler) http.Handler {
	return m.RateLimitCustom(RateLimitConfig{
		Requests: m.config.RateLimitRequests,
		Window:   m.config.RateLimitWindow,
	})
}

// RateLimitConfig defines rate limit parameters for specific endpoint groups.
type RateLimitConfig struct {
	// Requests is the number of requests allowed in the window
	Requests int
	// Window is the time window for rate limiting
	Window time.Duration
}

// Endpoint-group rate limits, tuned for a dashboard that fires several
// chart requests per page load.
var (
	// RateLimitAnalytics is permissive for read-heavy cached chart
	// endpoints; one dashboard render issues eight requests at once.
	RateLimitAnalytics = RateLimitConfig{Requests: 1000, Window: time.Minute}

	// RateLimitExport limits resource-intensive CSV exports.
	RateLimitExport = RateLimitConfig{Requests: 10, Window: time.Minute}

	// RateLimitReload limits manual dataset reload triggers.
	RateLimitReload = RateLimitConfig{Requests: 5, Window: time.Minute}

	// RateLimitHealth allows frequent probes from monitoring tools.
	RateLimitHealth = RateLimitConfig{Requests: 1000, Window: time.Minute}
)

// RateLimitCustom returns a rate limiter with custom configuration.
func (m *ChiMiddleware) RateLimitCustom(config RateLimitConfig) func(http.Handler) http.Handler {
	if m.config.RateLimitDisabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return httprate.LimitByIP(config.Requests, config.Window)
}

// RateLimitAnalytics returns the permissive limiter for chart endpoints.
func (m *ChiMiddleware) RateLimitAnalytics() func(http.Handler) http.Handler {
	return m.RateLimitCustom(RateLimitAnalytics)
}

// RateLimitExport returns the limiter for export endpoints.
func (m *ChiMiddleware) RateLimitExport() func(http.Handler) http.Handler {
	return m.RateLimitCustom(RateLimitExport)
}

// RateLimitReload returns the limiter for dataset reload triggers.
func (m *ChiMiddleware) RateLimitReload() func(http.Handler) http.Handler {
	return m.RateLimitCustom(RateLimitReload)
}

// RateLimitHealth returns the limiter for health endpoints.
func (m *ChiMiddleware) RateLimitHealth() func(http.Handler) http.Handler {
	return m.RateLimitCustom(RateLimitHealth)
}

// APISecurityHeaders returns a middleware that adds security headers to API
// responses. Content-Security-Policy is omitted since it targets HTML.
func APISecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}
