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

// ListActors returns all actors ordered by ID.
func (db *DB) ListActors(ctx context.Context) ([]models.Actor, error) {
	start := time.Now()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, age, gender FROM actors ORDER BY id`)
	if err != nil {
		metrics.RecordDBQuery("list", "actors", time.Since(start), err)
		return nil, fmt.Errorf("failed to query actors: %w", err)
	}
	defer closeQuietly(rows)

	actors := []models.Actor{}
	for rows.Next() {
		var a models.Actor
		if err := rows.Scan(&a.ID, &a.Name, &a.Age, &a.Gender); err != nil {
			metrics.RecordDBQuery("list", "actors", time.Since(start), err)
			return nil, fmt.Errorf("failed to scan actor: %w", err)
		}
		actors = append(actors, a)
	}
	if err := rows.Err(); err != nil {
		metrics.RecordDBQuery("list", "actors", time.Since(start), err)
		return nil, fmt.Errorf("failed to iterate actors: %w", err)
	}

	metrics.RecordDBQuery("list", "actors", time.Since(start), nil)
	return actors, nil
}

// GetActor returns the actor with the given ID, or ErrNotFound.
func (db *DB) GetActor(ctx context.Context, id int64) (*models.Actor, error) {
	start := time.Now()

	var a models.Actor
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, age, gender FROM actors WHERE id = $1`, id).
		Scan(&a.ID, &a.Name, &a.Age, &a.Gender)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordDBQuery("get", "actors", time.Since(start), nil)
		return nil, ErrNotFound
	}
	if err != nil {
		metrics.RecordDBQuery("get", "actors", time.Since(start), err)
		return nil, fmt.Errorf("failed to query actor %d: %w", id, err)
	}

	metrics.RecordDBQuery("get", "actors", time.Since(start), nil)
	return &a, nil
}

// InsertActor persists a new actor and fills in its assigned ID.
func (db *DB) InsertActor(ctx context.Context, a *models.Actor) error {
	start := time.Now()

	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO actors (name, age, gender) VALUES ($1, $2, $3) RETURNING id`,
		a.Name, a.Age, a.Gender).Scan(&a.ID)
	metrics.RecordDBQuery("insert", "actors", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to insert actor: %w", err)
	}

	return nil
}

// UpdateActor replaces the stored fields of the actor with the given ID.
func (db *DB) UpdateActor(ctx context.Context, a *models.Actor) error {
	start := time.Now()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		metrics.RecordDBQuery("update", "actors", time.Since(start), err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	res, err := tx.ExecContext(ctx,
		`UPDATE actors SET name = $1, age = $2, gender = $3 WHERE id = $4`,
		a.Name, a.Age, a.Gender, a.ID)
	if err != nil {
		metrics.RecordDBQuery("update", "actors", time.Since(start), err)
		return fmt.Errorf("failed to update actor %d: %w", a.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		metrics.RecordDBQuery("update", "actors", time.Since(start), err)
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		metrics.RecordDBQuery("update", "actors", time.Since(start), nil)
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		metrics.RecordDBQuery("update", "actors", time.Since(start), err)
		return fmt.Errorf("failed to commit update: %w", err)
	}

	metrics.RecordDBQuery("update", "actors", time.Since(start), nil)
	return nil
}

// DeleteActor removes the actor with the given ID.
func (db *DB) DeleteActor(ctx context.Context, id int64) error {
	start := time.Now()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		metrics.RecordDBQuery("delete", "actors", time.Since(start), err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	res, err := tx.ExecContext(ctx, `DELETE FROM actors WHERE id = $1`, id)
	if err != nil {
		metrics.RecordDBQuery("delete", "actors", time.Since(start), err)
		return fmt.Errorf("failed to delete actor %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		metrics.RecordDBQuery("delete", "actors", time.Since(start), err)
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		metrics.RecordDBQuery("delete", "actors", time.Since(start), nil)
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		metrics.RecordDBQuery("delete", "actors", time.Since(start), err)
		return fmt.Errorf("failed to commit delete: %w", err)
	}

	metrics.RecordDBQuery("delete", "actors", time.Since(start), nil)
	return nil
}
