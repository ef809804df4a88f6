// Habitus - Engagement and Retention Analytics for Learning Platforms
// Copyright 2026 Habitus Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitus-analytics/habitus

package database

import (
	"context"
	"testing"
	"time"

	"github.com/habitus-analytics/habitus/internal/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := New(&config.DatabaseConfig{
		Path:         ":memory:",
		MaxMemory:    "256MB",
		Threads:      2,
		QueryTimeout: 30 * time.Second,
	})
	if err != nil {
		t.Fatalf("open in-memory database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close database: %v", err)
		}
	})
	return NewStore(db)
}

func mustExec(t *testing.T, s *Store, query string, args ...interface{}) {
	t.Helper()
	if _, err := s.db.conn.ExecContext(context.Background(), query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

func seedTestData(t *testing.T, s *Store) {
	t.Helper()
	mustExec(t, s, `INSERT INTO users VALUES
		('u1', 'Ada', TIMESTAMP '2025-01-01 09:00:00'),
		('u2', '', TIMESTAMP '2025-01-10 09:00:00')`)
	mustExec(t, s, `INSERT INTO exercises VALUES
		('e1', 'Breathing', 'mindfulness', 60, 25),
		('e2', 'Stretching', 'movement', 120, 40)`)
	mustExec(t, s, `INSERT INTO user_exercises VALUES
		('i1', 'u1', 'e1', 60, TIMESTAMP '2025-01-02 10:01:00',
			TIMESTAMP '2025-01-02 10:00:00', TIMESTAMP '2025-01-02 10:01:00'),
		('i2', 'u1', 'e2', 30, NULL,
			TIMESTAMP '2025-01-05 10:00:00', TIMESTAMP '2025-01-06 10:00:00'),
		('i3', 'u2', 'e1', 10, NULL,
			TIMESTAMP '2025-01-11 10:00:00', TIMESTAMP '2025-01-11 10:00:00')`)
	mustExec(t, s, `INSERT INTO user_profiles VALUES ('u1', 250), ('u2', 0)`)
}

func TestStoreInteractionQueries(t *testing.T) {
	s := newTestStore(t)
	seedTestData(t, s)
	ctx := context.Background()

	t.Run("created in range", func(t *testing.T) {
		got, err := s.InteractionsCreatedIn(ctx,
			time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 1, 5, 23, 59, 59, 0, time.UTC))
		if err != nil {
			t.Fatalf("InteractionsCreatedIn: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("got %d interactions, want 2", len(got))
		}
		if got[0].ID != "i1" || got[1].ID != "i2" {
			t.Errorf("order = [%s, %s], want chronological [i1, i2]", got[0].ID, got[1].ID)
		}
		if got[0].CompletedAt == nil {
			t.Error("i1 CompletedAt = nil, want the stored timestamp")
		}
		if got[1].CompletedAt != nil {
			t.Error("i2 CompletedAt != nil, want nil for the NULL column")
		}
	})

	t.Run("updated in range", func(t *testing.T) {
		got, err := s.InteractionsUpdatedIn(ctx,
			time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC))
		if err != nil {
			t.Fatalf("InteractionsUpdatedIn: %v", err)
		}
		// i2 was created on the 5th but updated on the 6th.
		if len(got) != 2 {
			t.Fatalf("got %d interactions, want 2", len(got))
		}
	})

	t.Run("by users", func(t *testing.T) {
		got, err := s.InteractionsByUsers(ctx, []string{"u1"})
		if err != nil {
			t.Fatalf("InteractionsByUsers: %v", err)
		}
		if len(got) != 2 {
			t.Errorf("got %d interactions for u1, want 2", len(got))
		}

		empty, err := s.InteractionsByUsers(ctx, nil)
		if err != nil {
			t.Fatalf("InteractionsByUsers(nil): %v", err)
		}
		if len(empty) != 0 {
			t.Errorf("got %d interactions for no users, want 0", len(empty))
		}
	})

	t.Run("distinct active users", func(t *testing.T) {
		count, err := s.CountDistinctActiveUsers(ctx,
			time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 1, 31, 23, 59, 59, 0, time.UTC))
		if err != nil {
			t.Fatalf("CountDistinctActiveUsers: %v", err)
		}
		if count != 2 {
			t.Errorf("count = %d, want 2", count)
		}
	})
}

func TestStoreActivityQueries(t *testing.T) {
	s := newTestStore(t)
	seedTestData(t, s)
	ctx := context.Background()

	t.Run("last activity", func(t *testing.T) {
		got, err := s.UserLastActivity(ctx)
		if err != nil {
			t.Fatalf("UserLastActivity: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("got %d rows, want 2", len(got))
		}
		// u1's latest row is the i2 update on the 6th.
		if got[0].UserID != "u1" || got[0].LastActive.Day() != 6 {
			t.Errorf("u1 last active = %+v, want Jan 6", got[0])
		}
	})

	t.Run("last activity before cutoff", func(t *testing.T) {
		got, err := s.UserLastActivityBefore(ctx, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC))
		if err != nil {
			t.Fatalf("UserLastActivityBefore: %v", err)
		}
		// u2's only interaction is after the cutoff.
		if len(got) != 1 || got[0].UserID != "u1" {
			t.Fatalf("got %+v, want only u1", got)
		}
	})
}

func TestStoreLookupQueries(t *testing.T) {
	s := newTestStore(t)
	seedTestData(t, s)
	ctx := context.Background()

	t.Run("users created in", func(t *testing.T) {
		got, err := s.UsersCreatedIn(ctx,
			time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC))
		if err != nil {
			t.Fatalf("UsersCreatedIn: %v", err)
		}
		if len(got) != 1 || got[0].ID != "u1" {
			t.Errorf("got %+v, want only u1", got)
		}
	})

	t.Run("users by id", func(t *testing.T) {
		got, err := s.UsersByID(ctx, []string{"u1", "u-missing"})
		if err != nil {
			t.Fatalf("UsersByID: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("got %d users, want 1", len(got))
		}
		if got["u1"].FullName != "Ada" {
			t.Errorf("u1 = %+v", got["u1"])
		}

		empty, err := s.UsersByID(ctx, nil)
		if err != nil || len(empty) != 0 {
			t.Errorf("UsersByID(nil) = (%v, %v), want empty map", empty, err)
		}
	})

	t.Run("exercises by id", func(t *testing.T) {
		got, err := s.ExercisesByID(ctx, []string{"e1", "e2"})
		if err != nil {
			t.Fatalf("ExercisesByID: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("got %d exercises, want 2", len(got))
		}
		e1 := got["e1"]
		if e1.Title != "Breathing" || e1.Category != "mindfulness" || e1.Duration != 60 || e1.XPValue != 25 {
			t.Errorf("e1 = %+v", e1)
		}
	})

	t.Run("profile xp", func(t *testing.T) {
		got, err := s.ProfileXPByUser(ctx, []string{"u1", "u2"})
		if err != nil {
			t.Fatalf("ProfileXPByUser: %v", err)
		}
		if got["u1"] != 250 || got["u2"] != 0 {
			t.Errorf("xp = %v, want u1=250 u2=0", got)
		}
	})

	t.Run("profiles with positive xp", func(t *testing.T) {
		got, err := s.ProfilesWithXP(ctx)
		if err != nil {
			t.Fatalf("ProfilesWithXP: %v", err)
		}
		// u2 holds zero XP and must be filtered out.
		if len(got) != 1 || got[0].UserID != "u1" || got[0].TotalXP != 250 {
			t.Errorf("got %+v, want only u1 at 250", got)
		}
	})
}

func TestPlaceholders(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{1, "?"},
		{3, "?, ?, ?"},
	}
	for _, tt := range tests {
		if got := placeholders(tt.n); got != tt.want {
			t.Errorf("placeholders(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestDBPing(t *testing.T) {
	s := newTestStore(t)
	if err := s.db.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestSeedDemoData(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.db.SeedDemoData(ctx); err != nil {
		t.Fatalf("SeedDemoData: %v", err)
	}

	var users int
	if err := s.db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&users); err != nil {
		t.Fatalf("count users: %v", err)
	}
	if users == 0 {
		t.Fatal("seed produced no users")
	}

	// Seeding again must be a no-op, not a duplicate key failure.
	if err := s.db.SeedDemoData(ctx); err != nil {
		t.Fatalf("second SeedDemoData: %v", err)
	}
	var after int
	if err := s.db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&after); err != nil {
		t.Fatalf("count users: %v", err)
	}
	if after != users {
		t.Errorf("user count changed from %d to %d on reseed", users, after)
	}
}
