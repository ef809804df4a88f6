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

// This file implements the window aggregator: distinct-actor counts and
// averages over arbitrary date ranges. "Active" always means at least one
// interaction whose updated_at falls in the window, and "distinct" is always
// by user ID, never by interaction ID.

// inactivityWindowDays bounds the churn-risk window: a user is at risk when
// their last interaction is between 14 and 30 days old relative to the
// reference date (inclusive of 14, exclusive of 30).
const inactivityWindowDays = 30

// resurrectionCutoffDays is the inactivity span after which a returning user
// counts as resurrected.
const resurrectionCutoffDays = 30

// ActiveUserCount counts distinct users with any interaction updated in
// [start, end].
func (e *Engine) ActiveUserCount(ctx context.Context, start, end time.Time) (int, error) {
	return e.store.CountDistinctActiveUsers(ctx, start, end)
}

// DailyActive counts distinct users active on the given calendar day.
func (e *Engine) DailyActive(ctx context.Context, date time.Time) (int, error) {
	return e.store.CountDistinctActiveUsers(ctx, startOfDay(date), endOfDay(date))
}

// WeeklyActive counts distinct users active in the rolling window
// [start, end].
func (e *Engine) WeeklyActive(ctx context.Context, start, end time.Time) (int, error) {
	return e.store.CountDistinctActiveUsers(ctx, start, end)
}

// Stickiness computes DAU/WAU*100 as of end: DAU over the calendar day one
// day before end, WAU over the trailing seven days up to end. Returns 0 when
// the WAU denominator is 0.
func (e *Engine) Stickiness(ctx context.Context, end time.Time) (float64, error) {
	dau, err := e.DailyActive(ctx, end.AddDate(0, 0, -1))
	if err != nil {
		return 0, err
	}
	wau, err := e.WeeklyActive(ctx, end.AddDate(0, 0, -7), end)
	if err != nil {
		return 0, err
	}
	return percentage(dau, wau), nil
}

// AverageSessionDuration returns the mean watch time in seconds over
// interactions created in [start, end], not filtered by completion. Returns
// 0 when the range holds no interactions.
func (e *Engine) AverageSessionDuration(ctx context.Context, start, end time.Time) (float64, error) {
	interactions, err := e.store.InteractionsCreatedIn(ctx, start, end)
	if err != nil {
		return 0, err
	}
	if len(interactions) == 0 {
		return 0, nil
	}
	var total int
	for _, it := range interactions {
		total += it.WatchTime
	}
	return float64(total) / float64(len(interactions)), nil
}

// AverageSessionsPerUser counts, for each user with at least one interaction
// created in [start, end], the distinct calendar days they interacted on,
// then averages across those users. Rounded to one decimal.
func (e *Engine) AverageSessionsPerUser(ctx context.Context, start, end time.Time) (float64, error) {
	interactions, err := e.store.InteractionsCreatedIn(ctx, start, end)
	if err != nil {
		return 0, err
	}
	if len(interactions) == 0 {
		return 0, nil
	}

	days := make(map[string]map[string]struct{})
	for _, it := range interactions {
		day := it.CreatedAt.Format(dateLayout)
		if days[it.UserID] == nil {
			days[it.UserID] = make(map[string]struct{})
		}
		days[it.UserID][day] = struct{}{}
	}

	var totalDays int
	for _, set := range days {
		totalDays += len(set)
	}
	return round1(float64(totalDays) / float64(len(days))), nil
}

// ResurrectionStats computes how many previously dormant users came back in
// [start, end], and that count as a percentage of all users dormant at the
// start of the period.
//
// The numerator looks at each user's last interaction before the period: it
// must be at least 30 days before start, and the user must have interacted
// inside the period. The denominator counts distinct users whose system-wide
// last interaction is at or before start minus 30 days. The two windows are
// specified independently and are not forced to agree.
func (e *Engine) ResurrectionStats(ctx context.Context, start, end time.Time) (int, float64, error) {
	cutoff := start.AddDate(0, 0, -resurrectionCutoffDays)

	lastBefore, err := e.store.UserLastActivityBefore(ctx, start)
	if err != nil {
		return 0, 0, err
	}
	dormantBeforePeriod := make(map[string]struct{}, len(lastBefore))
	for _, a := range lastBefore {
		if !a.LastActive.After(cutoff) {
			dormantBeforePeriod[a.UserID] = struct{}{}
		}
	}

	var count int
	if len(dormantBeforePeriod) > 0 {
		inPeriod, err := e.store.InteractionsUpdatedIn(ctx, start, end)
		if err != nil {
			return 0, 0, err
		}
		returned := make(map[string]struct{})
		for _, it := range inPeriod {
			if _, dormant := dormantBeforePeriod[it.UserID]; dormant {
				returned[it.UserID] = struct{}{}
			}
		}
		count = len(returned)
	}

	lastOverall, err := e.store.UserLastActivity(ctx)
	if err != nil {
		return 0, 0, err
	}
	var dormantTotal int
	for _, a := range lastOverall {
		if !a.LastActive.After(cutoff) {
			dormantTotal++
		}
	}

	return count, percentage(count, dormantTotal), nil
}

// ChurnRiskUsers returns users whose last interaction is between
// daysInactive and 30 days old as of the reference date (inclusive lower
// bound, exclusive upper bound). The result is sorted by days inactive
// descending, then user ID ascending, so repeated calls over an unchanged
// store are byte-identical.
func (e *Engine) ChurnRiskUsers(ctx context.Context, daysInactive int, reference time.Time) ([]models.ChurnRiskUser, error) {
	activity, err := e.store.UserLastActivity(ctx)
	if err != nil {
		return nil, err
	}

	var atRisk []models.ChurnRiskUser
	for _, a := range activity {
		days := reference.Sub(a.LastActive).Hours() / 24
		if days >= float64(daysInactive) && days < inactivityWindowDays {
			atRisk = append(atRisk, models.ChurnRiskUser{
				UserID:       a.UserID,
				LastActive:   a.LastActive,
				DaysInactive: days,
			})
		}
	}

	sort.Slice(atRisk, func(i, j int) bool {
		if atRisk[i].DaysInactive != atRisk[j].DaysInactive {
			return atRisk[i].DaysInactive > atRisk[j].DaysInactive
		}
		return atRisk[i].UserID < atRisk[j].UserID
	})
	return atRisk, nil
}

// CompletionStats groups interactions created in [start, end] by exercise
// and applies the completion rule to each, producing per-exercise
// started/completed counts plus the overall completion rate.
func (e *Engine) CompletionStats(ctx context.Context, start, end time.Time) (*models.CompletionStats, error) {
	interactions, err := e.store.InteractionsCreatedIn(ctx, start, end)
	if err != nil {
		return nil, err
	}
	joined, err := e.joinExercises(ctx, interactions)
	if err != nil {
		return nil, err
	}

	type tally struct {
		started   int
		completed int
	}
	byExercise := make(map[string]*tally)
	for _, j := range joined {
		t := byExercise[j.ExerciseID]
		if t == nil {
			t = &tally{}
			byExercise[j.ExerciseID] = t
		}
		t.started++
		if j.completed() {
			t.completed++
		}
	}

	ids := make([]string, 0, len(byExercise))
	for id := range byExercise {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	stats := &models.CompletionStats{
		ByExercise: make([]models.ExerciseCompletionStat, 0, len(ids)),
	}
	for _, id := range ids {
		t := byExercise[id]
		stats.TotalStarted += t.started
		stats.TotalCompleted += t.completed
		stats.ByExercise = append(stats.ByExercise, models.ExerciseCompletionStat{
			ExerciseID:     id,
			Started:        t.started,
			Completed:      t.completed,
			CompletionRate: percentage(t.completed, t.started),
		})
	}
	stats.OverallCompletionRate = percentage(stats.TotalCompleted, stats.TotalStarted)
	return stats, nil
}
