// Castd - Casting Agency CRUD Backend
// Copyright 2026 Film Cast Collective
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmcast/castd

package api

import (
	"net/http"

	"github.com/filmcast/castd/internal/logging"
)

// Health handles GET /health. It reports unhealthy when the database is
// unreachable so orchestrators can restart or reroute.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK

	if err := h.db.Ping(r.Context()); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Health check failed to reach database")
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	respondJSON(w, r, code, struct {
		Success bool   `json:"success"`
		Status  string `json:"status"`
	}{Success: code == http.StatusOK, Status: status})
}
