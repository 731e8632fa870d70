// Castd - Casting Agency CRUD Backend
// Copyright 2026 Film Cast Collective
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmcast/castd

// Package database provides the Postgres data access layer for movies and
// actors.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/filmcast/castd/internal/config"
	"github.com/filmcast/castd/internal/logging"
)

// DB wraps the Postgres connection and provides data access methods.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig
}

// New opens a Postgres connection from the configured URL, verifies it, and
// ensures the schema exists.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	conn, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn, cfg: cfg}
	db.configureConnectionPool()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	if err := db.createTables(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.Info().
		Int("max_open_conns", cfg.MaxOpenConns).
		Msg("Database connection established")

	return db, nil
}

// NewWithConn wraps an existing connection without touching the schema.
// Used by tests that drive the layer against a mock.
func NewWithConn(conn *sql.DB) *DB {
	return &DB{conn: conn, cfg: &config.DatabaseConfig{}}
}

// configureConnectionPool applies the configured pool limits.
func (db *DB) configureConnectionPool() {
	if db.cfg.MaxOpenConns > 0 {
		db.conn.SetMaxOpenConns(db.cfg.MaxOpenConns)
	}
	if db.cfg.MaxIdleConns > 0 {
		db.conn.SetMaxIdleConns(db.cfg.MaxIdleConns)
	}
	if db.cfg.ConnMaxIdleTime > 0 {
		db.conn.SetConnMaxIdleTime(db.cfg.ConnMaxIdleTime)
	}
}

// createTables creates the movies and actors tables when they do not exist.
// The statements are idempotent so startup is safe against an already
// provisioned database.
func (db *DB) createTables(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS movies (
			id BIGSERIAL PRIMARY KEY,
			title TEXT NOT NULL,
			release_date TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS actors (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			age INTEGER NOT NULL,
			gender TEXT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}

	return nil
}

// Ping verifies the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (db *DB) Close() error {
	logging.Debug().Msg("Closing database connection")
	return db.conn.Close()
}
