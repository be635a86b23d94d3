package db

import (
	"context"
	"fmt"
)

// schemaStatements create the metro schema. Every dataset row carries the
// version it was imported under; only the active version is ever read.
var schemaStatements = []string{
	`CREATE SCHEMA IF NOT EXISTS metro`,
	`CREATE TABLE IF NOT EXISTS metro.versions (
		version_id   SERIAL PRIMARY KEY,
		version_name TEXT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at   TIMESTAMPTZ NOT NULL,
		is_active    BOOLEAN NOT NULL DEFAULT false,
		source_url   TEXT NOT NULL DEFAULT '',
		description  TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS versions_single_active ON metro.versions (is_active) WHERE is_active`,
	`CREATE TABLE IF NOT EXISTS metro.lines (
		line_id    TEXT NOT NULL,
		version_id INTEGER NOT NULL REFERENCES metro.versions (version_id) ON DELETE CASCADE,
		name       TEXT NOT NULL,
		color      TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (line_id, version_id),
		UNIQUE (version_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS metro.stations (
		station_id   TEXT NOT NULL,
		version_id   INTEGER NOT NULL REFERENCES metro.versions (version_id) ON DELETE CASCADE,
		name         TEXT NOT NULL,
		display_name TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (station_id, version_id),
		UNIQUE (version_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS metro.station_lines (
		station_id TEXT NOT NULL,
		line_id    TEXT NOT NULL,
		version_id INTEGER NOT NULL REFERENCES metro.versions (version_id) ON DELETE CASCADE,
		position   INTEGER NOT NULL,
		distance   INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (station_id, line_id, version_id)
	)`,
	`CREATE TABLE IF NOT EXISTS metro.edges (
		edge_id         BIGSERIAL PRIMARY KEY,
		version_id      INTEGER NOT NULL REFERENCES metro.versions (version_id) ON DELETE CASCADE,
		from_station_id TEXT NOT NULL,
		to_station_id   TEXT NOT NULL,
		line_id         TEXT NOT NULL,
		distance        INTEGER NOT NULL CHECK (distance >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS metro.fare_policies (
		version_id      INTEGER PRIMARY KEY REFERENCES metro.versions (version_id) ON DELETE CASCADE,
		base_fare       BIGINT NOT NULL,
		per_km_rate     BIGINT NOT NULL,
		interchange_fee BIGINT NOT NULL
	)`,
}

// EnsureSchema creates the metro tables if they do not exist yet.
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	db.logger.Debug("Schema ensured", "statements", len(schemaStatements))
	return nil
}
