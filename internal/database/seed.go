// Habitus - Engagement and Retention Analytics for Learning Platforms
// Copyright 2026 Habitus Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitus-analytics/habitus

package database

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// SeedDemoData populates the store with a synthetic learning cohort so a
// fresh install renders a non-empty dashboard. Roughly 60 users sign up over
// ten weeks and interact with a fixed exercise catalog; some go dormant so
// the churn and resurrection panels have material to show. Idempotent per
// process run but not across runs, so it is only wired to the demo flag.
func (db *DB) SeedDemoData(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var existing int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&existing); err != nil {
		return fmt.Errorf("seed precheck failed: %w", err)
	}
	if existing > 0 {
		return nil
	}

	rng := rand.New(rand.NewSource(42))
	now := time.Now().UTC()

	type exercise struct {
		id       string
		title    string
		category string
		duration int
		xp       int
	}
	catalog := []exercise{
		{uuid.NewString(), "Breathing Basics", "mindfulness", 300, 10},
		{uuid.NewString(), "Morning Mobility", "movement", 600, 20},
		{uuid.NewString(), "Focus Sprint", "productivity", 900, 30},
		{uuid.NewString(), "Deep Stretch", "movement", 1200, 35},
		{uuid.NewString(), "Evening Wind-Down", "mindfulness", 450, 15},
		{uuid.NewString(), "Posture Reset", "movement", 240, 10},
		{uuid.NewString(), "Box Breathing", "mindfulness", 360, 12},
		{uuid.NewString(), "Interval Core", "fitness", 780, 25},
	}
	for _, ex := range catalog {
		if _, err := db.conn.ExecContext(ctx,
			`INSERT INTO exercises (id, title, category, duration, xp_value) VALUES (?, ?, ?, ?, ?)`,
			ex.id, ex.title, ex.category, ex.duration, ex.xp); err != nil {
			return fmt.Errorf("seed exercise: %w", err)
		}
	}

	firstNames := []string{"Ada", "Bo", "Cleo", "Dev", "Edda", "Finn", "Gus", "Hana", "Ivo", "Jude"}
	lastNames := []string{"Moreau", "Silva", "Okafor", "Lindqvist", "Tanaka", "Reyes"}

	const userCount = 60
	for i := 0; i < userCount; i++ {
		userID := uuid.NewString()
		name := fmt.Sprintf("%s %s", firstNames[rng.Intn(len(firstNames))], lastNames[rng.Intn(len(lastNames))])
		signup := now.AddDate(0, 0, -rng.Intn(70)-1)

		if _, err := db.conn.ExecContext(ctx,
			`INSERT INTO users (id, full_name, created_at) VALUES (?, ?, ?)`,
			userID, name, signup); err != nil {
			return fmt.Errorf("seed user: %w", err)
		}

		// A third of the cohort goes dormant after the first week; the
		// rest keep interacting up to the present.
		activeUntil := now
		if i%3 == 0 {
			activeUntil = signup.AddDate(0, 0, 7+rng.Intn(21))
			if activeUntil.After(now) {
				activeUntil = now
			}
		}

		totalXP := 0
		sessions := 3 + rng.Intn(20)
		for s := 0; s < sessions; s++ {
			ex := catalog[rng.Intn(len(catalog))]
			span := int(activeUntil.Sub(signup).Hours())
			if span < 1 {
				span = 1
			}
			created := signup.Add(time.Duration(rng.Intn(span)) * time.Hour)
			updated := created.Add(time.Duration(rng.Intn(120)) * time.Minute)

			watch := rng.Intn(ex.duration + 60)
			var completedAt interface{}
			if watch >= ex.duration-4 || rng.Intn(4) == 0 {
				completedAt = updated
				totalXP += ex.xp
			}

			if _, err := db.conn.ExecContext(ctx,
				`INSERT INTO user_exercises (id, user_id, exercise_id, watch_time, completed_at, created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				uuid.NewString(), userID, ex.id, watch, completedAt, created, updated); err != nil {
				return fmt.Errorf("seed interaction: %w", err)
			}
		}

		if _, err := db.conn.ExecContext(ctx,
			`INSERT INTO user_profiles (user_id, total_xp) VALUES (?, ?)`,
			userID, totalXP); err != nil {
			return fmt.Errorf("seed profile: %w", err)
		}
	}

	return nil
}
