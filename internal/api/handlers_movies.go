// Castd - Casting Agency CRUD Backend
// Copyright 2026 Film Cast Collective
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmcast/castd

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/filmcast/castd/internal/database"
	"github.com/filmcast/castd/internal/logging"
	"github.com/filmcast/castd/internal/models"
	"github.com/filmcast/castd/internal/validation"
)

// Handler holds the dependencies of the HTTP handlers.
type Handler struct {
	db *database.DB
}

// NewHandler creates an API handler backed by the given store.
func NewHandler(db *database.DB) *Handler {
	return &Handler{db: db}
}

// movieRequest is the JSON body for creating or replacing a movie. Both
// fields are pointers so a missing field is distinguishable from a zero
// value and rejected as a validation failure. Title must also be non-empty;
// min=1 applies to the dereferenced string, which required alone does not
// reach for a non-nil pointer.
type movieRequest struct {
	Title       *string             `json:"title" validate:"required,min=1"`
	ReleaseDate *models.ReleaseDate `json:"release_date" validate:"required"`
}

// decodeMovieRequest parses and validates a movie body. A malformed or
// incomplete body reports false after writing the 400 envelope.
func decodeMovieRequest(w http.ResponseWriter, r *http.Request) (*movieRequest, bool) {
	var req movieRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Undecodable movie body")
		respondError(w, r, http.StatusBadRequest)
		return nil, false
	}
	if err := validation.ValidateStruct(&req); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Invalid movie body")
		respondError(w, r, http.StatusBadRequest)
		return nil, false
	}
	return &req, true
}

// movieID parses the id route parameter. The route pattern constrains it to
// digits, so a parse failure here means the value overflows int64.
func movieID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// ListMovies handles GET /movies.
func (h *Handler) ListMovies(w http.ResponseWriter, r *http.Request) {
	movies, err := h.db.ListMovies(r.Context())
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to list movies")
		respondError(w, r, http.StatusInternalServerError)
		return
	}

	respondJSON(w, r, http.StatusOK, struct {
		Success bool           `json:"success"`
		Movies  []models.Movie `json:"movies"`
	}{Success: true, Movies: movies})
}

// GetMovie handles GET /movies/{id}. A missing row is 404; a store failure
// during the lookup is 422.
func (h *Handler) GetMovie(w http.ResponseWriter, r *http.Request) {
	id, err := movieID(r)
	if err != nil {
		respondError(w, r, http.StatusNotFound)
		return
	}

	movie, err := h.db.GetMovie(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, r, http.StatusNotFound)
		return
	}
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Int64("id", id).Msg("Failed to get movie")
		respondError(w, r, http.StatusUnprocessableEntity)
		return
	}

	respondJSON(w, r, http.StatusOK, struct {
		Success bool          `json:"success"`
		Movie   *models.Movie `json:"movie"`
	}{Success: true, Movie: movie})
}

// CreateMovie handles POST /movies.
func (h *Handler) CreateMovie(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeMovieRequest(w, r)
	if !ok {
		return
	}

	movie := models.Movie{Title: *req.Title, ReleaseDate: *req.ReleaseDate}
	if err := h.db.InsertMovie(r.Context(), &movie); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to insert movie")
		respondError(w, r, http.StatusUnprocessableEntity)
		return
	}

	logging.Ctx(r.Context()).Info().Int64("id", movie.ID).Str("title", movie.Title).Msg("Movie created")
	respondJSON(w, r, http.StatusCreated, struct {
		Success bool         `json:"success"`
		Movie   models.Movie `json:"movie"`
	}{Success: true, Movie: movie})
}

// UpdateMovie handles PATCH /movies/{id}. The row must exist before the
// body is inspected, so an incomplete body against a missing id is 404, not
// 400. The body is a full replacement of both fields; a missing field is
// 400. A failure during the lookup is 500 and one during the write is 422.
func (h *Handler) UpdateMovie(w http.ResponseWriter, r *http.Request) {
	id, err := movieID(r)
	if err != nil {
		respondError(w, r, http.StatusNotFound)
		return
	}

	if _, err := h.db.GetMovie(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, r, http.StatusNotFound)
			return
		}
		logging.Ctx(r.Context()).Error().Err(err).Int64("id", id).Msg("Failed to look up movie for update")
		respondError(w, r, http.StatusInternalServerError)
		return
	}

	req, ok := decodeMovieRequest(w, r)
	if !ok {
		return
	}

	movie := models.Movie{ID: id, Title: *req.Title, ReleaseDate: *req.ReleaseDate}
	err = h.db.UpdateMovie(r.Context(), &movie)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, r, http.StatusNotFound)
		return
	}
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Int64("id", id).Msg("Failed to update movie")
		respondError(w, r, http.StatusUnprocessableEntity)
		return
	}

	respondJSON(w, r, http.StatusOK, struct {
		Success bool         `json:"success"`
		Movie   models.Movie `json:"movie"`
	}{Success: true, Movie: movie})
}

// DeleteMovie handles DELETE /movies/{id}. A missing row is 404; a store
// failure during the delete is 500, unlike Update's 422.
func (h *Handler) DeleteMovie(w http.ResponseWriter, r *http.Request) {
	id, err := movieID(r)
	if err != nil {
		respondError(w, r, http.StatusNotFound)
		return
	}

	err = h.db.DeleteMovie(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, r, http.StatusNotFound)
		return
	}
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Int64("id", id).Msg("Failed to delete movie")
		respondError(w, r, http.StatusInternalServerError)
		return
	}

	logging.Ctx(r.Context()).Info().Int64("id", id).Msg("Movie deleted")
	respondJSON(w, r, http.StatusOK, struct {
		Success bool  `json:"success"`
		Delete  int64 `json:"delete"`
	}{Success: true, Delete: id})
}
