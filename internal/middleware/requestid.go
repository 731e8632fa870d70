// Castd - Casting Agency CRUD Backend
// Copyright 2026 Film Cast Collective
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmcast/castd

// Package middleware holds HTTP middleware shared by all routes.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/filmcast/castd/internal/logging"
)

// RequestID assigns each request a unique ID, honoring one supplied by an
// upstream proxy, and exposes it in the X-Request-ID response header and the
// request context for logging.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set("X-Request-ID", requestID)
		ctx := logging.ContextWithRequestID(r.Context(), requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
