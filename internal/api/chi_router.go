// ShopRec - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shoprec

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/shoprec/internal/config"
	"github.com/tomtom215/shoprec/internal/middleware"
)

// chiMiddleware adapts http.HandlerFunc middleware to chi's
// func(http.Handler) http.Handler so it can be used with r.Use().
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// NewRouter builds the full HTTP routing tree.
func NewRouter(cfg *config.Config, handlers *Handlers) http.Handler {
	r := chi.NewRouter()
	cm := NewChiMiddleware(&cfg.API)

	// Global middleware, applied to all routes in order.
	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cm.CORS())

	r.Route("/healthz", func(r chi.Router) {
		r.Use(cm.RateLimitHealth())
		r.Get("/live", handlers.HealthLive)
		r.Get("/ready", handlers.HealthReady)
	})

	r.Route("/recommendations", func(r chi.Router) {
		r.Use(cm.RateLimit())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		r.Get("/products/{productID}", handlers.ProductRecommendations)
		r.Post("/cart", handlers.CartRecommendations)
		r.Post("/personalized", handlers.PersonalizedRecommendations)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Use(cm.RateLimit())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		r.Post("/completed", handlers.OrderCompleted)
	})

	r.Route("/admin/recommendations", func(r chi.Router) {
		r.Use(cm.RateLimit())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		r.Post("/rebuild", handlers.RebuildIndex)
		r.Get("/status", handlers.RecommendationStatus)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
