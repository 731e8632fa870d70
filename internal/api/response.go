// Castd - Casting Agency CRUD Backend
// Copyright 2026 Film Cast Collective
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmcast/castd

// Package api provides the HTTP handlers and router for the casting agency
// endpoints.
package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/filmcast/castd/internal/logging"
)

// statusMessages are the canonical client-facing messages per failure code.
var statusMessages = map[int]string{
	http.StatusBadRequest:          "bad request",
	http.StatusForbidden:           "forbidden",
	http.StatusNotFound:            "resource not found",
	http.StatusMethodNotAllowed:    "method not allowed",
	http.StatusUnprocessableEntity: "unprocessable",
	http.StatusInternalServerError: "internal server error",
}

// errorEnvelope is the uniform JSON failure shape.
type errorEnvelope struct {
	Success bool   `json:"success"`
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// respondJSON writes a payload with the given status code.
func respondJSON(w http.ResponseWriter, r *http.Request, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to encode response")
	}
}

// respondError writes the failure envelope for the given status using its
// canonical message.
func respondError(w http.ResponseWriter, r *http.Request, status int) {
	message, ok := statusMessages[status]
	if !ok {
		message = http.StatusText(status)
	}
	respondJSON(w, r, status, errorEnvelope{
		Success: false,
		Error:   status,
		Message: message,
	})
}
