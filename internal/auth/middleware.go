// Castd - Casting Agency CRUD Backend
// Copyright 2026 Film Cast Collective
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmcast/castd

package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/filmcast/castd/internal/logging"
	"github.com/filmcast/castd/internal/metrics"
)

type contextKey string

// ClaimsContextKey is the context key under which verified claims are stored.
const ClaimsContextKey contextKey = "claims"

// Middleware composes the authorization pipeline into route guards.
type Middleware struct {
	verifier *Verifier
}

// NewMiddleware creates authorization middleware around the given verifier.
func NewMiddleware(verifier *Verifier) *Middleware {
	return &Middleware{verifier: verifier}
}

// Require guards a route with the extract-verify-check pipeline for the
// given permission. On success the verified claims are injected into the
// request context; on any pipeline failure the wrapped handler is never
// invoked and the failure is written as the standard error envelope.
func (m *Middleware) Require(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := ExtractBearerToken(r.Header.Get("Authorization"))
			if err != nil {
				m.reject(w, r, err)
				return
			}

			claims, err := m.verifier.VerifyToken(r.Context(), token)
			if err != nil {
				m.reject(w, r, err)
				return
			}

			if err := CheckPermission(claims, permission); err != nil {
				m.reject(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClaims retrieves verified claims from the request context, or nil when
// the request did not pass through Require.
func GetClaims(ctx context.Context) *Claims {
	claims, ok := ctx.Value(ClaimsContextKey).(*Claims)
	if !ok {
		return nil
	}
	return claims
}

// reject writes the authorization failure as the JSON error envelope.
func (m *Middleware) reject(w http.ResponseWriter, r *http.Request, err error) {
	authErr := &AuthError{
		Code:        "unauthorized",
		Description: "Unable to authenticate.",
		Status:      http.StatusUnauthorized,
	}
	if !errors.As(err, &authErr) {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Unclassified authorization failure")
	}

	metrics.AuthFailures.WithLabelValues(authErr.Code).Inc()
	logging.Ctx(r.Context()).Warn().
		Str("code", authErr.Code).
		Int("status", authErr.Status).
		Str("path", r.URL.Path).
		Msg("Request rejected by authorization gate")

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(authErr.Status)

	envelope := struct {
		Success bool   `json:"success"`
		Error   int    `json:"error"`
		Message string `json:"message"`
	}{
		Success: false,
		Error:   authErr.Status,
		Message: authErr.Description,
	}
	if encErr := json.NewEncoder(w).Encode(envelope); encErr != nil {
		logging.Ctx(r.Context()).Error().Err(encErr).Msg("Failed to encode auth error response")
	}
}
