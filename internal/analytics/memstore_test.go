// Habitus - Engagement and Retention Analytics for Learning Platforms
// Copyright 2026 Habitus Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitus-analytics/habitus

package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/habitus-analytics/habitus/internal/models"
)

// memStore is an in-memory Store used by the engine tests. It mirrors the
// inclusive-range and max-per-user semantics the real DuckDB store provides.
type memStore struct {
	interactions []models.Interaction
	users        []models.User
	exercises    map[string]models.Exercise
	profiles     map[string]int

	// failWith, when set, makes every method return this error.
	failWith error
}

func (m *memStore) InteractionsCreatedIn(_ context.Context, start, end time.Time) ([]models.Interaction, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	var out []models.Interaction
	for _, it := range m.interactions {
		if !it.CreatedAt.Before(start) && !it.CreatedAt.After(end) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memStore) InteractionsUpdatedIn(_ context.Context, start, end time.Time) ([]models.Interaction, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	var out []models.Interaction
	for _, it := range m.interactions {
		if !it.UpdatedAt.Before(start) && !it.UpdatedAt.After(end) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memStore) InteractionsByUsers(_ context.Context, userIDs []string) ([]models.Interaction, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	wanted := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = struct{}{}
	}
	var out []models.Interaction
	for _, it := range m.interactions {
		if _, ok := wanted[it.UserID]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memStore) CountDistinctActiveUsers(ctx context.Context, start, end time.Time) (int, error) {
	rows, err := m.InteractionsUpdatedIn(ctx, start, end)
	if err != nil {
		return 0, err
	}
	users := make(map[string]struct{})
	for _, it := range rows {
		users[it.UserID] = struct{}{}
	}
	return len(users), nil
}

func (m *memStore) UserLastActivity(_ context.Context) ([]models.UserActivity, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	return m.lastActivity(func(time.Time) bool { return true }), nil
}

func (m *memStore) UserLastActivityBefore(_ context.Context, cutoff time.Time) ([]models.UserActivity, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	return m.lastActivity(func(t time.Time) bool { return t.Before(cutoff) }), nil
}

func (m *memStore) lastActivity(include func(time.Time) bool) []models.UserActivity {
	last := make(map[string]time.Time)
	for _, it := range m.interactions {
		if !include(it.UpdatedAt) {
			continue
		}
		if it.UpdatedAt.After(last[it.UserID]) {
			last[it.UserID] = it.UpdatedAt
		}
	}
	ids := make([]string, 0, len(last))
	for id := range last {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]models.UserActivity, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.UserActivity{UserID: id, LastActive: last[id]})
	}
	return out
}

func (m *memStore) UsersCreatedIn(_ context.Context, start, end time.Time) ([]models.User, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	var out []models.User
	for _, u := range m.users {
		if !u.CreatedAt.Before(start) && !u.CreatedAt.After(end) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memStore) UsersByID(_ context.Context, ids []string) (map[string]models.User, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	out := make(map[string]models.User)
	for _, id := range ids {
		for _, u := range m.users {
			if u.ID == id {
				out[id] = u
			}
		}
	}
	return out, nil
}

func (m *memStore) ExercisesByID(_ context.Context, ids []string) (map[string]models.Exercise, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	out := make(map[string]models.Exercise)
	for _, id := range ids {
		if ex, ok := m.exercises[id]; ok {
			out[id] = ex
		}
	}
	return out, nil
}

func (m *memStore) ProfileXPByUser(_ context.Context, userIDs []string) (map[string]int, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	out := make(map[string]int)
	for _, id := range userIDs {
		if xp, ok := m.profiles[id]; ok {
			out[id] = xp
		}
	}
	return out, nil
}

func (m *memStore) ProfilesWithXP(_ context.Context) ([]models.UserProfile, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	ids := make([]string, 0, len(m.profiles))
	for id, xp := range m.profiles {
		if xp > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	out := make([]models.UserProfile, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.UserProfile{UserID: id, TotalXP: m.profiles[id]})
	}
	return out, nil
}

// ts parses a timestamp in "2006-01-02 15:04:05" or "2006-01-02" form. Test
// fixture dates are all UTC.
func ts(value string) time.Time {
	if t, err := time.Parse("2006-01-02 15:04:05", value); err == nil {
		return t.UTC()
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}
