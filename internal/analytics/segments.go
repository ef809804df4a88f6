// Habitus - Engagement and Retention Analytics for Learning Platforms
// Copyright 2026 Habitus Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitus-analytics/habitus

package analytics

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/habitus-analytics/habitus/internal/models"
)

// This file implements the segmentation engine: the enriched churn-risk list
// and the power-user leaderboard with its fallback tiers.

// segmentLimit caps both user-segment lists in the overview payload.
const segmentLimit = 10

// churnRiskDefaultDays is the lower bound of the churn window when the
// caller does not override it.
const churnRiskDefaultDays = 14

// ChurnRiskSegment enriches the churn-risk window into display rows: name,
// accumulated XP, and plan label per user, capped to the ten most inactive.
// Users whose account record no longer exists are dropped; a user with an
// account but a blank name is kept under the "Unknown" placeholder.
func (e *Engine) ChurnRiskSegment(ctx context.Context, reference time.Time) ([]models.ChurnRiskEntry, error) {
	atRisk, err := e.ChurnRiskUsers(ctx, churnRiskDefaultDays, reference)
	if err != nil {
		return nil, err
	}
	if len(atRisk) > segmentLimit {
		atRisk = atRisk[:segmentLimit]
	}
	if len(atRisk) == 0 {
		return []models.ChurnRiskEntry{}, nil
	}

	ids := make([]string, len(atRisk))
	for i, u := range atRisk {
		ids[i] = u.UserID
	}
	users, err := e.store.UsersByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	xp, err := e.store.ProfileXPByUser(ctx, ids)
	if err != nil {
		return nil, err
	}

	entries := make([]models.ChurnRiskEntry, 0, len(atRisk))
	for _, u := range atRisk {
		user, ok := users[u.UserID]
		if !ok {
			continue
		}
		name := user.FullName
		if name == "" {
			name = "Unknown"
		}
		entries = append(entries, models.ChurnRiskEntry{
			ID:           u.UserID,
			Name:         name,
			DaysInactive: int(math.Round(u.DaysInactive)),
			TotalXP:      xp[u.UserID],
			Plan:         "Free",
		})
	}
	return entries, nil
}

// powerUserStats is the per-candidate material the leaderboard ranks on.
type powerUserStats struct {
	userID             string
	name               string
	effectiveXP        int
	completedExercises int
	lastActive         time.Time
}

// PowerUsers returns the top ten users for the period by effective XP, then
// by distinct completed exercises, then by recency of activity.
//
// Effective XP reconciles the profile cache against XP recomputed over all
// completed interactions (every completed row banks the exercise's XP, so a
// repeated completion counts again) and takes the larger of the two. When no
// user was active in the period the leaderboard falls back to two
// progressively wider tiers rather than rendering empty: first any user with
// banked XP or a completion on record, then any user with an interaction at
// all, ordered by recency.
func (e *Engine) PowerUsers(ctx context.Context, start, end time.Time) ([]models.PowerUser, error) {
	// Primary tier: users active in the period.
	inPeriod, err := e.store.InteractionsUpdatedIn(ctx, start, end)
	if err != nil {
		return nil, err
	}
	if ids := sortedUserIDs(inPeriod); len(ids) > 0 {
		stats, err := e.powerUserStats(ctx, ids)
		if err != nil {
			return nil, err
		}
		if len(stats) > 0 {
			return e.renderPowerUsers(rankByXP(stats)), nil
		}
	}

	// Fallback tier: any user with banked XP or at least one completed
	// exercise on record, period ignored.
	allTime, err := e.allTimeCandidates(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := e.powerUserStats(ctx, allTime)
	if err != nil {
		return nil, err
	}
	engaged := stats[:0:0]
	for _, s := range stats {
		if s.effectiveXP > 0 || s.completedExercises > 0 {
			engaged = append(engaged, s)
		}
	}
	if len(engaged) > 0 {
		return e.renderPowerUsers(rankByXP(engaged)), nil
	}

	// Last resort: anyone who ever interacted, most recent first.
	return e.renderPowerUsers(rankByRecency(stats)), nil
}

// allTimeCandidates unions users with any interaction history and users with
// banked profile XP, since a profile can carry XP imported from outside the
// event store.
func (e *Engine) allTimeCandidates(ctx context.Context) ([]string, error) {
	activity, err := e.store.UserLastActivity(ctx)
	if err != nil {
		return nil, err
	}
	profiles, err := e.store.ProfilesWithXP(ctx)
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{}, len(activity)+len(profiles))
	for _, a := range activity {
		set[a.UserID] = struct{}{}
	}
	for _, p := range profiles {
		set[p.UserID] = struct{}{}
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// powerUserStats resolves the ranking material for the candidate users.
// Candidates without an account record are dropped.
func (e *Engine) powerUserStats(ctx context.Context, ids []string) ([]powerUserStats, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	users, err := e.store.UsersByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	profileXP, err := e.store.ProfileXPByUser(ctx, ids)
	if err != nil {
		return nil, err
	}
	history, err := e.store.InteractionsByUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	joined, err := e.joinExercises(ctx, history)
	if err != nil {
		return nil, err
	}

	type tally struct {
		calculatedXP int
		completed    map[string]struct{}
		lastActive   time.Time
	}
	byUser := make(map[string]*tally, len(ids))
	for _, j := range joined {
		t := byUser[j.UserID]
		if t == nil {
			t = &tally{completed: make(map[string]struct{})}
			byUser[j.UserID] = t
		}
		if j.UpdatedAt.After(t.lastActive) {
			t.lastActive = j.UpdatedAt
		}
		if j.completed() {
			// XP banks on every completed interaction; the distinct set only
			// feeds the completed-exercise tie-break.
			t.calculatedXP += j.Exercise.XPValue
			t.completed[j.ExerciseID] = struct{}{}
		}
	}

	stats := make([]powerUserStats, 0, len(ids))
	for _, id := range ids {
		user, ok := users[id]
		if !ok {
			continue
		}
		s := powerUserStats{userID: id, name: user.FullName, effectiveXP: profileXP[id]}
		if s.name == "" {
			s.name = "Unknown"
		}
		if t := byUser[id]; t != nil {
			if t.calculatedXP > s.effectiveXP {
				s.effectiveXP = t.calculatedXP
			}
			s.completedExercises = len(t.completed)
			s.lastActive = t.lastActive
		}
		stats = append(stats, s)
	}
	return stats, nil
}

// rankByXP orders by effective XP, then distinct completed exercises, then
// recency, with user ID as the final tie-break so the order is total.
func rankByXP(stats []powerUserStats) []powerUserStats {
	sort.Slice(stats, func(i, j int) bool {
		a, b := stats[i], stats[j]
		if a.effectiveXP != b.effectiveXP {
			return a.effectiveXP > b.effectiveXP
		}
		if a.completedExercises != b.completedExercises {
			return a.completedExercises > b.completedExercises
		}
		if !a.lastActive.Equal(b.lastActive) {
			return a.lastActive.After(b.lastActive)
		}
		return a.userID < b.userID
	})
	return stats
}

// rankByRecency orders the last-resort tier by most recent activity, with XP
// and user ID breaking ties.
func rankByRecency(stats []powerUserStats) []powerUserStats {
	sort.Slice(stats, func(i, j int) bool {
		a, b := stats[i], stats[j]
		if !a.lastActive.Equal(b.lastActive) {
			return a.lastActive.After(b.lastActive)
		}
		if a.effectiveXP != b.effectiveXP {
			return a.effectiveXP > b.effectiveXP
		}
		return a.userID < b.userID
	})
	return stats
}

// renderPowerUsers converts the ranked stats into display rows, capped to the
// segment limit.
func (e *Engine) renderPowerUsers(stats []powerUserStats) []models.PowerUser {
	if len(stats) > segmentLimit {
		stats = stats[:segmentLimit]
	}
	rows := make([]models.PowerUser, 0, len(stats))
	for _, s := range stats {
		row := models.PowerUser{
			ID:      s.userID,
			Name:    s.name,
			TotalXP: s.effectiveXP,
			Status:  "VIP",
		}
		if !s.lastActive.IsZero() {
			iso := s.lastActive.Format(time.RFC3339)
			row.LastActive = &iso
		}
		rows = append(rows, row)
	}
	return rows
}
