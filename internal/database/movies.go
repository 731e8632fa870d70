// Castd - Casting Agency CRUD Backend
// Copyright 2026 Film Cast Collective
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmcast/castd

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/filmcast/castd/internal/metrics"
	"github.com/filmcast/castd/internal/models"
)

// ListMovies returns all movies ordered by ID. An empty catalog yields an
// empty slice, not nil, so the API encodes it as [].
func (db *DB) ListMovies(ctx context.Context) ([]models.Movie, error) {
	start := time.Now()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, title, release_date FROM movies ORDER BY id`)
	if err != nil {
		metrics.RecordDBQuery("list", "movies", time.Since(start), err)
		return nil, fmt.Errorf("failed to query movies: %w", err)
	}
	defer closeQuietly(rows)

	movies := []models.Movie{}
	for rows.Next() {
		var m models.Movie
		if err := rows.Scan(&m.ID, &m.Title, &m.ReleaseDate); err != nil {
			metrics.RecordDBQuery("list", "movies", time.Since(start), err)
			return nil, fmt.Errorf("failed to scan movie: %w", err)
		}
		movies = append(movies, m)
	}
	if err := rows.Err(); err != nil {
		metrics.RecordDBQuery("list", "movies", time.Since(start), err)
		return nil, fmt.Errorf("failed to iterate movies: %w", err)
	}

	metrics.RecordDBQuery("list", "movies", time.Since(start), nil)
	return movies, nil
}

// GetMovie returns the movie with the given ID, or ErrNotFound.
func (db *DB) GetMovie(ctx context.Context, id int64) (*models.Movie, error) {
	start := time.Now()

	var m models.Movie
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, title, release_date FROM movies WHERE id = $1`, id).
		Scan(&m.ID, &m.Title, &m.ReleaseDate)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordDBQuery("get", "movies", time.Since(start), nil)
		return nil, ErrNotFound
	}
	if err != nil {
		metrics.RecordDBQuery("get", "movies", time.Since(start), err)
		return nil, fmt.Errorf("failed to query movie %d: %w", id, err)
	}

	metrics.RecordDBQuery("get", "movies", time.Since(start), nil)
	return &m, nil
}

// InsertMovie persists a new movie and fills in its assigned ID.
func (db *DB) InsertMovie(ctx context.Context, m *models.Movie) error {
	start := time.Now()

	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO movies (title, release_date) VALUES ($1, $2) RETURNING id`,
		m.Title, m.ReleaseDate).Scan(&m.ID)
	metrics.RecordDBQuery("insert", "movies", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to insert movie: %w", err)
	}

	return nil
}

// UpdateMovie replaces the stored title and release date of the movie with
// the given ID. The write runs in a transaction that is rolled back on
// failure.
func (db *DB) UpdateMovie(ctx context.Context, m *models.Movie) error {
	start := time.Now()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		metrics.RecordDBQuery("update", "movies", time.Since(start), err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	res, err := tx.ExecContext(ctx,
		`UPDATE movies SET title = $1, release_date = $2 WHERE id = $3`,
		m.Title, m.ReleaseDate, m.ID)
	if err != nil {
		metrics.RecordDBQuery("update", "movies", time.Since(start), err)
		return fmt.Errorf("failed to update movie %d: %w", m.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		metrics.RecordDBQuery("update", "movies", time.Since(start), err)
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		metrics.RecordDBQuery("update", "movies", time.Since(start), nil)
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		metrics.RecordDBQuery("update", "movies", time.Since(start), err)
		return fmt.Errorf("failed to commit update: %w", err)
	}

	metrics.RecordDBQuery("update", "movies", time.Since(start), nil)
	return nil
}

// DeleteMovie removes the movie with the given ID. The write runs in a
// transaction that is rolled back on failure.
func (db *DB) DeleteMovie(ctx context.Context, id int64) error {
	start := time.Now()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		metrics.RecordDBQuery("delete", "movies", time.Since(start), err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	res, err := tx.ExecContext(ctx, `DELETE FROM movies WHERE id = $1`, id)
	if err != nil {
		metrics.RecordDBQuery("delete", "movies", time.Since(start), err)
		return fmt.Errorf("failed to delete movie %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		metrics.RecordDBQuery("delete", "movies", time.Since(start), err)
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		metrics.RecordDBQuery("delete", "movies", time.Since(start), nil)
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		metrics.RecordDBQuery("delete", "movies", time.Since(start), err)
		return fmt.Errorf("failed to commit delete: %w", err)
	}

	metrics.RecordDBQuery("delete", "movies", time.Since(start), nil)
	return nil
}
