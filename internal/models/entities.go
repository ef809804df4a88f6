// Habitus - Engagement and Retention Analytics for Learning Platforms
// Copyright 2026 Habitus Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitus-analytics/habitus

// Package models defines the domain entities and API response models for Habitus.
package models

import "time"

// Interaction is one record of a user engaging with an exercise. A single row
// may accumulate watch time across multiple sessions on the same exercise;
// a user/exercise pair can also have multiple rows, so total watch time for a
// pair is the sum over all of its rows.
type Interaction struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	ExerciseID  string     `json:"exercise_id"`
	WatchTime   int        `json:"watch_time"` // seconds, >= 0
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Exercise is the content unit users interact with. Immutable for analytics
// purposes.
type Exercise struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Duration int    `json:"duration"` // seconds, > 0
	XPValue  int    `json:"xp_value"` // >= 0
}

// User holds the identity fields the analytics engine needs. CreatedAt is the
// signup instant and anchors all cohort arithmetic.
type User struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
}

// UserProfile is a denormalized, possibly stale cache of a user's accumulated
// XP. The engine reconciles it against XP computed from completed
// interactions and takes the maximum; it never writes the reconciled value
// back.
type UserProfile struct {
	UserID  string `json:"user_id"`
	TotalXP int    `json:"total_xp"`
}

// UserActivity pairs a user with the timestamp of their most recent
// interaction. Produced by the event store for churn and resurrection
// windowing.
type UserActivity struct {
	UserID     string    `json:"user_id"`
	LastActive time.Time `json:"last_active"`
}
