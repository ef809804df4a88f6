// Habitus - Engagement and Retention Analytics for Learning Platforms
// Copyright 2026 Habitus Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitus-analytics/habitus

package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/habitus-analytics/habitus/internal/models"
)

func TestChurnRiskSegment(t *testing.T) {
	store := &memStore{
		users: []models.User{
			{ID: "u1", FullName: "", CreatedAt: ts("2024-10-01")},
			{ID: "u2", FullName: "Ben", CreatedAt: ts("2024-10-01")},
			// u3 has interaction history but no account record anymore.
		},
		profiles: map[string]int{"u1": 500},
		interactions: []models.Interaction{
			{ID: "i1", UserID: "u1", ExerciseID: "e1", UpdatedAt: ts("2025-01-10"), CreatedAt: ts("2025-01-10")},
			{ID: "i2", UserID: "u2", ExerciseID: "e1", UpdatedAt: ts("2025-01-12"), CreatedAt: ts("2025-01-12")},
			{ID: "i3", UserID: "u3", ExerciseID: "e1", UpdatedAt: ts("2025-01-14"), CreatedAt: ts("2025-01-14")},
		},
	}
	e := NewEngine(store)

	got, err := e.ChurnRiskSegment(context.Background(), ts("2025-01-30"))
	if err != nil {
		t.Fatalf("ChurnRiskSegment: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2 (user without account record dropped): %+v", len(got), got)
	}

	first := got[0]
	if first.ID != "u1" || first.DaysInactive != 20 {
		t.Errorf("first entry = %+v, want u1 at 20 days inactive", first)
	}
	if first.Name != "Unknown" {
		t.Errorf("blank name rendered as %q, want Unknown", first.Name)
	}
	if first.TotalXP != 500 {
		t.Errorf("TotalXP = %d, want 500 from the profile cache", first.TotalXP)
	}
	if first.Plan != "Free" {
		t.Errorf("Plan = %q, want Free", first.Plan)
	}

	second := got[1]
	if second.ID != "u2" || second.Name != "Ben" || second.DaysInactive != 18 {
		t.Errorf("second entry = %+v, want Ben at 18 days inactive", second)
	}
	if second.TotalXP != 0 {
		t.Errorf("TotalXP without a profile row = %d, want 0", second.TotalXP)
	}
}

func TestChurnRiskSegmentEmpty(t *testing.T) {
	e := NewEngine(&memStore{})

	got, err := e.ChurnRiskSegment(context.Background(), ts("2025-01-30"))
	if err != nil {
		t.Fatalf("ChurnRiskSegment: %v", err)
	}
	if got == nil {
		t.Fatal("want an empty slice, not nil, for stable JSON encoding")
	}
	if len(got) != 0 {
		t.Errorf("got %d entries, want 0", len(got))
	}
}

func TestPowerUsersRanking(t *testing.T) {
	store := &memStore{
		users: []models.User{
			{ID: "u1", FullName: "Ada", CreatedAt: ts("2024-06-01")},
			{ID: "u2", FullName: "Ben", CreatedAt: ts("2024-06-01")},
			{ID: "u3", FullName: "Cleo", CreatedAt: ts("2024-06-01")},
		},
		profiles: map[string]int{"u1": 100, "u2": 50, "u3": 100},
		exercises: map[string]models.Exercise{
			"eBig":   {ID: "eBig", Title: "Deep Focus", Duration: 300, XPValue: 120},
			"eSmall": {ID: "eSmall", Title: "Quick Reset", Duration: 60, XPValue: 30},
		},
		interactions: []models.Interaction{
			// Ada is active but completes nothing.
			{ID: "i1", UserID: "u1", ExerciseID: "eBig", WatchTime: 10, CreatedAt: ts("2025-01-10"), UpdatedAt: ts("2025-01-10")},
			// Ben completes eBig twice; every completed row banks its XP.
			{ID: "i2", UserID: "u2", ExerciseID: "eBig", WatchTime: 300, CreatedAt: ts("2025-01-11"), UpdatedAt: ts("2025-01-11")},
			{ID: "i3", UserID: "u2", ExerciseID: "eBig", WatchTime: 300, CreatedAt: ts("2025-01-12"), UpdatedAt: ts("2025-01-12")},
			// Cleo completes eSmall; recomputed XP (30) is below her banked 100.
			{ID: "i4", UserID: "u3", ExerciseID: "eSmall", WatchTime: 60, CreatedAt: ts("2025-01-13"), UpdatedAt: ts("2025-01-13")},
		},
	}
	e := NewEngine(store)

	got, err := e.PowerUsers(context.Background(), ts("2025-01-01"), endOfDay(ts("2025-01-31")))
	if err != nil {
		t.Fatalf("PowerUsers: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d power users, want 3: %+v", len(got), got)
	}

	// Ben's recomputed 240 XP (two completed rows of a 120-XP exercise)
	// beats his banked 50 and tops the board. Ada and Cleo tie at 100 banked
	// XP; Cleo's completion breaks the tie.
	wantOrder := []string{"u2", "u3", "u1"}
	for i, want := range wantOrder {
		if got[i].ID != want {
			t.Errorf("rank %d = %s, want %s", i, got[i].ID, want)
		}
	}
	if got[0].TotalXP != 240 {
		t.Errorf("top TotalXP = %d, want 240 (each completed row banks the exercise XP)", got[0].TotalXP)
	}
	for _, u := range got {
		if u.Status != "VIP" {
			t.Errorf("user %s Status = %q, want VIP", u.ID, u.Status)
		}
		if u.LastActive == nil {
			t.Errorf("user %s LastActive is nil, want RFC 3339 timestamp", u.ID)
			continue
		}
		if _, err := time.Parse(time.RFC3339, *u.LastActive); err != nil {
			t.Errorf("user %s LastActive %q is not RFC 3339: %v", u.ID, *u.LastActive, err)
		}
	}
}

func TestPowerUsersFallbackToBankedXP(t *testing.T) {
	// Nobody interacted in the period or ever, but one profile carries
	// imported XP. The leaderboard falls back rather than rendering empty.
	store := &memStore{
		users: []models.User{
			{ID: "u4", FullName: "Dia", CreatedAt: ts("2024-06-01")},
		},
		profiles: map[string]int{"u4": 10},
	}
	e := NewEngine(store)

	got, err := e.PowerUsers(context.Background(), ts("2025-01-01"), endOfDay(ts("2025-01-31")))
	if err != nil {
		t.Fatalf("PowerUsers: %v", err)
	}
	if len(got) != 1 || got[0].ID != "u4" {
		t.Fatalf("got %+v, want just u4 from the banked-XP tier", got)
	}
	if got[0].TotalXP != 10 {
		t.Errorf("TotalXP = %d, want 10", got[0].TotalXP)
	}
	if got[0].LastActive != nil {
		t.Errorf("LastActive = %v, want nil for a user with no interactions", *got[0].LastActive)
	}
}

func TestPowerUsersFallbackToRecency(t *testing.T) {
	// History exists but outside the period, with no XP and no completions
	// anywhere. The last-resort tier orders by most recent activity.
	store := &memStore{
		users: []models.User{
			{ID: "u5", FullName: "Eve", CreatedAt: ts("2024-06-01")},
			{ID: "u6", FullName: "Finn", CreatedAt: ts("2024-06-01")},
		},
		exercises: map[string]models.Exercise{
			"e1": {ID: "e1", Title: "Breathing", Duration: 600},
		},
		interactions: []models.Interaction{
			{ID: "i1", UserID: "u5", ExerciseID: "e1", WatchTime: 5, CreatedAt: ts("2024-12-01"), UpdatedAt: ts("2024-12-01")},
			{ID: "i2", UserID: "u6", ExerciseID: "e1", WatchTime: 5, CreatedAt: ts("2024-12-15"), UpdatedAt: ts("2024-12-15")},
		},
	}
	e := NewEngine(store)

	got, err := e.PowerUsers(context.Background(), ts("2025-01-01"), endOfDay(ts("2025-01-31")))
	if err != nil {
		t.Fatalf("PowerUsers: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d power users, want 2: %+v", len(got), got)
	}
	if got[0].ID != "u6" || got[1].ID != "u5" {
		t.Errorf("order = [%s, %s], want most recently active first", got[0].ID, got[1].ID)
	}
	if got[0].TotalXP != 0 {
		t.Errorf("TotalXP = %d, want 0 in the recency tier", got[0].TotalXP)
	}
}
