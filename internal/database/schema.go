// Habitus - Engagement and Retention Analytics for Learning Platforms
// Copyright 2026 Habitus Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitus-analytics/habitus

package database

import (
	"context"
	"fmt"
)

// schemaStatements creates the event-store tables. Interactions are the
// event log; users, exercises, and user_profiles are the dimensions the
// engine joins against. completed_at is nullable: NULL means the completion
// rule falls back to the watch-time tolerance check.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id VARCHAR PRIMARY KEY,
		full_name VARCHAR NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS exercises (
		id VARCHAR PRIMARY KEY,
		title VARCHAR NOT NULL,
		category VARCHAR NOT NULL DEFAULT '',
		duration INTEGER NOT NULL,
		xp_value INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS user_exercises (
		id VARCHAR PRIMARY KEY,
		user_id VARCHAR NOT NULL,
		exercise_id VARCHAR NOT NULL,
		watch_time INTEGER NOT NULL DEFAULT 0,
		completed_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS user_profiles (
		user_id VARCHAR PRIMARY KEY,
		total_xp INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_user_exercises_updated_at ON user_exercises (updated_at)`,
	`CREATE INDEX IF NOT EXISTS idx_user_exercises_created_at ON user_exercises (created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_user_exercises_user_id ON user_exercises (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_users_created_at ON users (created_at)`,
}

// initialize creates the schema if it does not exist.
func (db *DB) initialize() error {
	ctx, cancel := db.ensureContext(context.Background())
	defer cancel()

	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
