package store

import (
	"context"
	"database/sql"
)

// schema contains the DDL for all sweeply tables.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id              TEXT PRIMARY KEY,
		email           TEXT NOT NULL UNIQUE,
		first_name      TEXT NOT NULL DEFAULT '',
		last_name       TEXT NOT NULL DEFAULT '',
		role            TEXT NOT NULL DEFAULT 'cleaner',
		activated       INTEGER NOT NULL DEFAULT 0,
		password_hash   TEXT NOT NULL DEFAULT '',
		activation_code TEXT NOT NULL DEFAULT '',
		created_at      TEXT NOT NULL,
		last_login_at   TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS locations (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		address    TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS rooms (
		id          TEXT PRIMARY KEY,
		location_id TEXT NOT NULL,
		name        TEXT NOT NULL,
		floor       TEXT NOT NULL DEFAULT '',
		created_at  TEXT NOT NULL,
		FOREIGN KEY (location_id) REFERENCES locations(id) ON DELETE CASCADE
	)`,

	`CREATE TABLE IF NOT EXISTS tasks (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		room_id     TEXT NOT NULL,
		period      TEXT NOT NULL DEFAULT 'daily',
		weekdays    TEXT NOT NULL DEFAULT '[]',
		created_at  TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS assignments (
		id          TEXT PRIMARY KEY,
		task_id     TEXT NOT NULL,
		task_name   TEXT NOT NULL DEFAULT '',
		user_id     TEXT NOT NULL,
		location_id TEXT NOT NULL DEFAULT '',
		room_id     TEXT NOT NULL DEFAULT '',
		date        TEXT NOT NULL,
		status      TEXT NOT NULL DEFAULT 'not_started',
		start_time  TEXT,
		end_time    TEXT,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS reports (
		id                  TEXT PRIMARY KEY,
		daily_assignment_id TEXT NOT NULL,
		user_id             TEXT NOT NULL,
		message             TEXT NOT NULL DEFAULT '',
		media_links         TEXT NOT NULL DEFAULT '[]',
		start_time          TEXT NOT NULL,
		end_time            TEXT NOT NULL,
		status              TEXT NOT NULL,
		created_at          TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS auth_tokens (
		token      TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		kind       TEXT NOT NULL,
		expires_at TEXT NOT NULL,
		revoked    INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_rooms_location_id ON rooms(location_id)`,
	`CREATE INDEX IF NOT EXISTS idx_assignments_user_date ON assignments(user_id, date)`,
	`CREATE INDEX IF NOT EXISTS idx_assignments_status ON assignments(status)`,
	`CREATE INDEX IF NOT EXISTS idx_reports_assignment ON reports(daily_assignment_id)`,
	`CREATE INDEX IF NOT EXISTS idx_auth_tokens_user ON auth_tokens(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_auth_tokens_expires ON auth_tokens(expires_at)`,
	`CREATE INDEX IF NOT EXISTS idx_users_activation_code ON users(activation_code) WHERE activation_code != ''`,
}

// migrate applies the schema statements in order.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
