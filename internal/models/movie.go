// Castd - Casting Agency CRUD Backend
// Copyright 2026 Film Cast Collective
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmcast/castd

// Package models defines the persisted entities and their JSON shapes.
package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// releaseDateLayout is the date-only input format accepted for release dates.
const releaseDateLayout = "2006-01-02"

// ReleaseDate is a timestamp that accepts both date-only ("2007-07-20") and
// RFC3339 input, and always serializes as RFC3339. It implements sql.Scanner
// and driver.Valuer so it can be read and written through database/sql
// without intermediate conversions.
type ReleaseDate struct {
	time.Time
}

// NewReleaseDate builds a ReleaseDate from a time value.
func NewReleaseDate(t time.Time) ReleaseDate {
	return ReleaseDate{Time: t.UTC()}
}

// ParseReleaseDate parses a release date from its wire representation.
func ParseReleaseDate(s string) (ReleaseDate, error) {
	if t, err := time.Parse(releaseDateLayout, s); err == nil {
		return ReleaseDate{Time: t.UTC()}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return ReleaseDate{}, fmt.Errorf("invalid release date %q: expected %s or RFC3339", s, releaseDateLayout)
	}
	return ReleaseDate{Time: t.UTC()}, nil
}

// MarshalJSON serializes the release date as an RFC3339 string.
func (d ReleaseDate) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.UTC().Format(time.RFC3339) + `"`), nil
}

// UnmarshalJSON accepts either a date-only or an RFC3339 string.
func (d *ReleaseDate) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("release date must be a JSON string")
	}
	parsed, err := ParseReleaseDate(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Scan implements sql.Scanner.
func (d *ReleaseDate) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		d.Time = v.UTC()
		return nil
	case []byte:
		parsed, err := ParseReleaseDate(string(v))
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case string:
		parsed, err := ParseReleaseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	default:
		return fmt.Errorf("cannot scan %T into ReleaseDate", src)
	}
}

// Value implements driver.Valuer.
func (d ReleaseDate) Value() (driver.Value, error) {
	return d.UTC(), nil
}

// Movie is a row in the movies table. Title and release date are never null.
type Movie struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	ReleaseDate ReleaseDate `json:"release_date"`
}
