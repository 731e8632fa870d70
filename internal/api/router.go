// Castd - Casting Agency CRUD Backend
// Copyright 2026 Film Cast Collective
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmcast/castd

package api

import (
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/filmcast/castd/internal/auth"
	"github.com/filmcast/castd/internal/config"
	"github.com/filmcast/castd/internal/logging"
	"github.com/filmcast/castd/internal/middleware"
)

// Router assembles the HTTP surface.
type Router struct {
	handler *Handler
	authMW  *auth.Middleware
	cfg     *config.Config
}

// NewRouter creates a router from the handler, the authorization middleware,
// and the security configuration.
func NewRouter(handler *Handler, authMW *auth.Middleware, cfg *config.Config) *Router {
	return &Router{handler: handler, authMW: authMW, cfg: cfg}
}

// Setup wires all routes and middleware and returns the root handler. Every
// movie route sits behind the authorization gate with its own permission;
// health and metrics stay open for probes and scrapers.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: router.cfg.Security.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// JSON envelopes for unmatched routes and methods, matching the error
	// shape of every other failure.
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		respondError(w, req, http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		respondError(w, req, http.StatusMethodNotAllowed)
	})

	r.Get("/health", router.handler.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if !router.cfg.Security.RateLimitDisabled {
			r.Use(httprate.LimitByIP(
				router.cfg.Security.RateLimitReqs,
				router.cfg.Security.RateLimitWindow,
			))
		}
		r.Use(middleware.PrometheusMetrics)

		// The digit constraint makes a non-numeric id an unmatched route,
		// which falls through to the 404 envelope.
		r.With(router.authMW.Require("get:movies")).Get("/movies", router.handler.ListMovies)
		r.With(router.authMW.Require("get:movies")).Get("/movies/{id:[0-9]+}", router.handler.GetMovie)
		r.With(router.authMW.Require("post:movies")).Post("/movies", router.handler.CreateMovie)
		r.With(router.authMW.Require("patch:movies")).Patch("/movies/{id:[0-9]+}", router.handler.UpdateMovie)
		r.With(router.authMW.Require("delete:movies")).Delete("/movies/{id:[0-9]+}", router.handler.DeleteMovie)
	})

	return r
}

// recoverer converts a handler panic into the generic 500 envelope so no
// stack detail leaks to the client.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logging.Ctx(r.Context()).Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Msg("Handler panicked")
				respondError(w, r, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
