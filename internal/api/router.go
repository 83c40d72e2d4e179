// Sprintlens - Jira Warehouse Synchronization Service
// Copyright 2026 Sprintlens contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sprintlens/sprintlens

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router builds the HTTP routing tree.
type Router struct {
	handler *Handler
}

// NewRouter creates a router around the given handler.
func NewRouter(handler *Handler) *Router {
	return &Router{handler: handler}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(instrument)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	// Health endpoints: permissive rate limiting for frequent monitoring
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(httprate.LimitByIP(1000, time.Minute))
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	// Sync endpoints: a full run takes minutes and holds a mutex, so the
	// trigger gets a tight per-IP limit
	r.Route("/api/v1/sync", func(r chi.Router) {
		r.With(httprate.LimitByIP(10, time.Minute)).Post("/", router.handler.TriggerSync)
		r.With(httprate.LimitByIP(100, time.Minute)).Get("/last", router.handler.LastSync)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
