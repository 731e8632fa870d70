// Castd - Casting Agency CRUD Backend
// Copyright 2026 Film Cast Collective
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmcast/castd

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/goccy/go-json"

	"github.com/filmcast/castd/internal/auth"
	"github.com/filmcast/castd/internal/config"
	"github.com/filmcast/castd/internal/database"
)

// testServer wires a full router against a mock identity provider and a mock
// database so requests exercise the same path as production traffic.
type testServer struct {
	handler http.Handler
	idp     *auth.MockIdentityProvider
	mock    sqlmock.Sqlmock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	idp, err := auth.NewMockIdentityProvider("casting-agency")
	if err != nil {
		t.Fatalf("failed to create mock identity provider: %v", err)
	}
	t.Cleanup(idp.Close)

	conn, mock, err := sqlmock.New(
		sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp),
		sqlmock.MonitorPingsOption(true),
	)
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	cfg := &config.Config{
		Security: config.SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitDisabled: true,
		},
	}

	handler := NewHandler(database.NewWithConn(conn))
	router := NewRouter(handler, auth.NewMiddleware(idp.Verifier()), cfg)

	return &testServer{handler: router.Setup(), idp: idp, mock: mock}
}

// do performs a request with a token carrying the given permissions. A nil
// permissions slice sends no Authorization header at all.
func (ts *testServer) do(t *testing.T, method, path string, permissions []string, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	if permissions != nil {
		token, err := ts.idp.SignToken(permissions)
		if err != nil {
			t.Fatalf("failed to sign token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("failed to decode body %q: %v", rec.Body.String(), err)
	}
}

func assertErrorEnvelope(t *testing.T, rec *httptest.ResponseRecorder, status int, message string) {
	t.Helper()

	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %q)", rec.Code, status, rec.Body.String())
	}

	var envelope struct {
		Success bool   `json:"success"`
		Error   int    `json:"error"`
		Message string `json:"message"`
	}
	decodeBody(t, rec, &envelope)

	if envelope.Success {
		t.Error("envelope success = true, want false")
	}
	if envelope.Error != status {
		t.Errorf("envelope error = %d, want %d", envelope.Error, status)
	}
	if envelope.Message != message {
		t.Errorf("envelope message = %q, want %q", envelope.Message, message)
	}
}

func TestListMoviesEndpoint(t *testing.T) {
	ts := newTestServer(t)

	released := time.Date(2007, 7, 20, 0, 0, 0, 0, time.UTC)
	ts.mock.ExpectQuery(`SELECT id, title, release_date FROM movies ORDER BY id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "release_date"}).
			AddRow(int64(1), "La Vie En Rose", released))

	rec := ts.do(t, http.MethodGet, "/movies", []string{"get:movies"}, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %q)", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success bool `json:"success"`
		Movies  []struct {
			ID          int64  `json:"id"`
			Title       string `json:"title"`
			ReleaseDate string `json:"release_date"`
		} `json:"movies"`
	}
	decodeBody(t, rec, &resp)

	if !resp.Success {
		t.Error("success = false, want true")
	}
	if len(resp.Movies) != 1 || resp.Movies[0].Title != "La Vie En Rose" {
		t.Errorf("unexpected movies payload: %+v", resp.Movies)
	}
	if resp.Movies[0].ReleaseDate != "2007-07-20T00:00:00Z" {
		t.Errorf("release_date = %q, want RFC3339", resp.Movies[0].ReleaseDate)
	}
}

func TestListMoviesEmptyCatalog(t *testing.T) {
	ts := newTestServer(t)

	ts.mock.ExpectQuery(`SELECT id, title, release_date FROM movies ORDER BY id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "release_date"}))

	rec := ts.do(t, http.MethodGet, "/movies", []string{"get:movies"}, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"movies":[]`) {
		t.Errorf("expected empty movies array, got %q", rec.Body.String())
	}
}

func TestListMoviesStoreFailure(t *testing.T) {
	ts := newTestServer(t)

	ts.mock.ExpectQuery(`SELECT id, title, release_date FROM movies ORDER BY id`).
		WillReturnError(sqlmock.ErrCancelled)

	rec := ts.do(t, http.MethodGet, "/movies", []string{"get:movies"}, "")
	assertErrorEnvelope(t, rec, http.StatusInternalServerError, "internal server error")
}

func TestGetMovieEndpointNotFound(t *testing.T) {
	ts := newTestServer(t)

	ts.mock.ExpectQuery(`SELECT id, title, release_date FROM movies WHERE id = \$1`).
		WithArgs(int64(9999)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "release_date"}))

	rec := ts.do(t, http.MethodGet, "/movies/9999", []string{"get:movies"}, "")
	assertErrorEnvelope(t, rec, http.StatusNotFound, "resource not found")
}

func TestGetMovieEndpointNonNumericID(t *testing.T) {
	ts := newTestServer(t)

	// The route pattern only matches numeric ids, so no store call happens.
	rec := ts.do(t, http.MethodGet, "/movies/abc", []string{"get:movies"}, "")
	assertErrorEnvelope(t, rec, http.StatusNotFound, "resource not found")
}

func TestCreateMovieEndpoint(t *testing.T) {
	ts := newTestServer(t)

	ts.mock.ExpectQuery(`INSERT INTO movies \(title, release_date\) VALUES \(\$1, \$2\) RETURNING id`).
		WithArgs("La Vie En Rose", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	rec := ts.do(t, http.MethodPost, "/movies", []string{"post:movies"},
		`{"title":"La Vie En Rose","release_date":"2007-07-20"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %q)", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success bool `json:"success"`
		Movie   struct {
			ID          int64  `json:"id"`
			Title       string `json:"title"`
			ReleaseDate string `json:"release_date"`
		} `json:"movie"`
	}
	decodeBody(t, rec, &resp)

	if !resp.Success || resp.Movie.ID != 1 {
		t.Errorf("unexpected create payload: %+v", resp)
	}
	if resp.Movie.Title != "La Vie En Rose" {
		t.Errorf("title = %q, want input echoed back", resp.Movie.Title)
	}
}

func TestCreateMovieMissingFields(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing title", body: `{"release_date":"2007-07-20"}`},
		{name: "empty title", body: `{"title":"","release_date":"2007-07-20"}`},
		{name: "missing release_date", body: `{"title":"La Vie En Rose"}`},
		{name: "empty object", body: `{}`},
		{name: "malformed JSON", body: `{"title":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)

			rec := ts.do(t, http.MethodPost, "/movies", []string{"post:movies"}, tt.body)
			assertErrorEnvelope(t, rec, http.StatusBadRequest, "bad request")

			// No store interaction may have happened.
			if err := ts.mock.ExpectationsWereMet(); err != nil {
				t.Errorf("store was touched: %v", err)
			}
		})
	}
}

func TestCreateMovieStoreFailure(t *testing.T) {
	ts := newTestServer(t)

	ts.mock.ExpectQuery(`INSERT INTO movies \(title, release_date\) VALUES \(\$1, \$2\) RETURNING id`).
		WithArgs("La Vie En Rose", sqlmock.AnyArg()).
		WillReturnError(sqlmock.ErrCancelled)

	rec := ts.do(t, http.MethodPost, "/movies", []string{"post:movies"},
		`{"title":"La Vie En Rose","release_date":"2007-07-20"}`)
	assertErrorEnvelope(t, rec, http.StatusUnprocessableEntity, "unprocessable")
}

// expectMovieLookup registers the pre-update existence check.
func expectMovieLookup(mock sqlmock.Sqlmock, id int64, found bool) {
	rows := sqlmock.NewRows([]string{"id", "title", "release_date"})
	if found {
		rows.AddRow(id, "La Vie En Rose", time.Date(2007, 7, 20, 0, 0, 0, 0, time.UTC))
	}
	mock.ExpectQuery(`SELECT id, title, release_date FROM movies WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(rows)
}

func TestUpdateMovieEndpoint(t *testing.T) {
	ts := newTestServer(t)

	expectMovieLookup(ts.mock, 1, true)
	ts.mock.ExpectBegin()
	ts.mock.ExpectExec(`UPDATE movies SET title = \$1, release_date = \$2 WHERE id = \$3`).
		WithArgs("La Mome", sqlmock.AnyArg(), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	ts.mock.ExpectCommit()

	rec := ts.do(t, http.MethodPatch, "/movies/1", []string{"patch:movies"},
		`{"title":"La Mome","release_date":"2007-07-20"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %q)", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"title":"La Mome"`) {
		t.Errorf("expected updated title in response, got %q", rec.Body.String())
	}
}

func TestUpdateMovieEmptyBody(t *testing.T) {
	ts := newTestServer(t)

	expectMovieLookup(ts.mock, 1, true)

	rec := ts.do(t, http.MethodPatch, "/movies/1", []string{"patch:movies"}, "")
	assertErrorEnvelope(t, rec, http.StatusBadRequest, "bad request")

	// Only the existence check may have run; no write happened.
	if err := ts.mock.ExpectationsWereMet(); err != nil {
		t.Errorf("store was written: %v", err)
	}
}

func TestUpdateMovieNotFoundEndpoint(t *testing.T) {
	ts := newTestServer(t)

	expectMovieLookup(ts.mock, 9999, false)

	rec := ts.do(t, http.MethodPatch, "/movies/9999", []string{"patch:movies"},
		`{"title":"Ghost","release_date":"2007-07-20"}`)
	assertErrorEnvelope(t, rec, http.StatusNotFound, "resource not found")
}

func TestUpdateMovieMissingRowBeatsIncompleteBody(t *testing.T) {
	ts := newTestServer(t)

	expectMovieLookup(ts.mock, 9999, false)

	// The existence check runs before body validation, so a nonexistent id
	// with an incomplete body reports 404 rather than 400.
	rec := ts.do(t, http.MethodPatch, "/movies/9999", []string{"patch:movies"}, `{}`)
	assertErrorEnvelope(t, rec, http.StatusNotFound, "resource not found")
}

func TestUpdateMovieEmptyTitle(t *testing.T) {
	ts := newTestServer(t)

	expectMovieLookup(ts.mock, 1, true)

	rec := ts.do(t, http.MethodPatch, "/movies/1", []string{"patch:movies"},
		`{"title":"","release_date":"2007-07-20"}`)
	assertErrorEnvelope(t, rec, http.StatusBadRequest, "bad request")

	if err := ts.mock.ExpectationsWereMet(); err != nil {
		t.Errorf("store was written: %v", err)
	}
}

func TestUpdateMovieLookupFailureIsServerError(t *testing.T) {
	ts := newTestServer(t)

	ts.mock.ExpectQuery(`SELECT id, title, release_date FROM movies WHERE id = \$1`).
		WithArgs(int64(1)).
		WillReturnError(sqlmock.ErrCancelled)

	rec := ts.do(t, http.MethodPatch, "/movies/1", []string{"patch:movies"},
		`{"title":"La Mome","release_date":"2007-07-20"}`)
	assertErrorEnvelope(t, rec, http.StatusInternalServerError, "internal server error")
}

func TestUpdateMovieStoreFailureIsUnprocessable(t *testing.T) {
	ts := newTestServer(t)

	expectMovieLookup(ts.mock, 1, true)
	ts.mock.ExpectBegin()
	ts.mock.ExpectExec(`UPDATE movies SET title = \$1, release_date = \$2 WHERE id = \$3`).
		WithArgs("La Mome", sqlmock.AnyArg(), int64(1)).
		WillReturnError(sqlmock.ErrCancelled)
	ts.mock.ExpectRollback()

	rec := ts.do(t, http.MethodPatch, "/movies/1", []string{"patch:movies"},
		`{"title":"La Mome","release_date":"2007-07-20"}`)
	assertErrorEnvelope(t, rec, http.StatusUnprocessableEntity, "unprocessable")
}

func TestDeleteMovieEndpoint(t *testing.T) {
	ts := newTestServer(t)

	ts.mock.ExpectBegin()
	ts.mock.ExpectExec(`DELETE FROM movies WHERE id = \$1`).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	ts.mock.ExpectCommit()

	rec := ts.do(t, http.MethodDelete, "/movies/1", []string{"delete:movies"}, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %q)", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success bool  `json:"success"`
		Delete  int64 `json:"delete"`
	}
	decodeBody(t, rec, &resp)

	if !resp.Success || resp.Delete != 1 {
		t.Errorf("unexpected delete payload: %+v", resp)
	}
}

func TestDeleteMovieNotFoundEndpoint(t *testing.T) {
	ts := newTestServer(t)

	ts.mock.ExpectBegin()
	ts.mock.ExpectExec(`DELETE FROM movies WHERE id = \$1`).
		WithArgs(int64(9999)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	ts.mock.ExpectRollback()

	rec := ts.do(t, http.MethodDelete, "/movies/9999", []string{"delete:movies"}, "")
	assertErrorEnvelope(t, rec, http.StatusNotFound, "resource not found")
}

func TestDeleteMovieStoreFailureIsServerError(t *testing.T) {
	ts := newTestServer(t)

	ts.mock.ExpectBegin()
	ts.mock.ExpectExec(`DELETE FROM movies WHERE id = \$1`).
		WithArgs(int64(1)).
		WillReturnError(sqlmock.ErrCancelled)
	ts.mock.ExpectRollback()

	rec := ts.do(t, http.MethodDelete, "/movies/1", []string{"delete:movies"}, "")
	assertErrorEnvelope(t, rec, http.StatusInternalServerError, "internal server error")
}

func TestMovieRoutesRequireAuthorization(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{name: "list", method: http.MethodGet, path: "/movies"},
		{name: "get", method: http.MethodGet, path: "/movies/1"},
		{name: "create", method: http.MethodPost, path: "/movies", body: `{"title":"x","release_date":"2007-07-20"}`},
		{name: "update", method: http.MethodPatch, path: "/movies/1", body: `{"title":"x","release_date":"2007-07-20"}`},
		{name: "delete", method: http.MethodDelete, path: "/movies/1"},
	}

	for _, tt := range tests {
		t.Run(tt.name+" without token", func(t *testing.T) {
			ts := newTestServer(t)

			rec := ts.do(t, tt.method, tt.path, nil, tt.body)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
			// A rejected request never reaches the store.
			if err := ts.mock.ExpectationsWereMet(); err != nil {
				t.Errorf("store was touched: %v", err)
			}
		})

		t.Run(tt.name+" with wrong permission", func(t *testing.T) {
			ts := newTestServer(t)

			rec := ts.do(t, tt.method, tt.path, []string{"some:other"}, tt.body)

			if rec.Code != http.StatusForbidden {
				t.Fatalf("status = %d, want 403", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), "Permission not found.") {
				t.Errorf("expected permission failure message, got %q", rec.Body.String())
			}
			if err := ts.mock.ExpectationsWereMet(); err != nil {
				t.Errorf("store was touched: %v", err)
			}
		})
	}
}

func TestUnknownRouteEnvelope(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/actors", nil, "")
	assertErrorEnvelope(t, rec, http.StatusNotFound, "resource not found")
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	ts.mock.ExpectPing()

	rec := ts.do(t, http.MethodGet, "/health", nil, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %q)", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected health payload: %q", rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/metrics", nil, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
