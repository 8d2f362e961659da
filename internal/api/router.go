// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/tunegraph/internal/config"
	"github.com/tomtom215/tunegraph/internal/metrics"
	"github.com/tomtom215/tunegraph/internal/middleware"
)

// Router builds the HTTP handler tree.
type Router struct {
	handler  *Handler
	security config.SecurityConfig
}

// NewRouter creates a router for h.
//
//nolint:gocritic // SecurityConfig is copied once at construction
func NewRouter(h *Handler, security config.SecurityConfig) *Router {
	return &Router{handler: h, security: security}
}

// Setup configures all routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.cors())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "Route not found", nil)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apiSecurityHeaders)
		r.Use(middleware.PrometheusMetrics)

		r.Get("/health", router.handler.Health)

		// Batch runs and saves are expensive; they share the per-IP limit.
		r.Group(func(r chi.Router) {
			r.Use(router.rateLimit())
			r.Get("/batch/calculate-graph", router.handler.CalculateGraph)
			r.Post("/profile/save", router.handler.SaveProfile)
		})

		r.Route("/users/{id}", func(r chi.Router) {
			r.Get("/", router.handler.GetUser)
			r.Get("/matches", router.handler.Matches)
			r.Get("/community", router.handler.Community)
		})
	})

	return r
}

func (router *Router) cors() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   router.security.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}

func (router *Router) rateLimit() func(http.Handler) http.Handler {
	if router.security.RateLimitDisabled || router.security.RateLimitReqs <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	window := router.security.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}
	return httprate.Limit(
		router.security.RateLimitReqs,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.RecordRateLimitHit(r.URL.Path)
			respondError(w, r, http.StatusTooManyRequests, ErrCodeTooManyRequests, "Rate limit exceeded", nil)
		}),
	)
}

// apiSecurityHeaders sets headers appropriate for a JSON API.
func apiSecurityHeaders(next http.Handler) http.Handler {
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
