// Habitus - Engagement and Retention Analytics for Learning Platforms
// Copyright 2026 Habitus Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitus-analytics/habitus

package analytics

import (
	"context"
	"time"

	"github.com/habitus-analytics/habitus/internal/models"
)

// This file implements the cohort engine: users bucketed by signup week with
// D1/D7/D30 retention per bucket. D1 is anchored on each user's own signup
// date, not the bucket start; D7 and D30 are measured from the bucket start.

// RetentionCohorts iterates week-aligned buckets from the Monday of start's
// week through end. A bucket with zero signups emits no row, so the result
// never contains a cohort with new_users = 0. Rows are in chronological
// order.
func (e *Engine) RetentionCohorts(ctx context.Context, start, end time.Time) ([]models.RetentionCohort, error) {
	cohorts := make([]models.RetentionCohort, 0)

	for current := startOfWeek(start); !current.After(end); current = current.AddDate(0, 0, 7) {
		weekEnd := endOfDay(current.AddDate(0, 0, 6))
		if weekEnd.After(end) {
			weekEnd = end
		}

		newUsers, err := e.store.UsersCreatedIn(ctx, current, weekEnd)
		if err != nil {
			return nil, err
		}
		if len(newUsers) == 0 {
			continue
		}

		row, err := e.cohortRow(ctx, current, newUsers)
		if err != nil {
			return nil, err
		}
		cohorts = append(cohorts, row)
	}
	return cohorts, nil
}

// cohortRow computes the retention percentages for one signup cohort.
func (e *Engine) cohortRow(ctx context.Context, weekStart time.Time, newUsers []models.User) (models.RetentionCohort, error) {
	ids := make([]string, len(newUsers))
	signup := make(map[string]time.Time, len(newUsers))
	for i, u := range newUsers {
		ids[i] = u.ID
		signup[u.ID] = u.CreatedAt
	}

	interactions, err := e.store.InteractionsByUsers(ctx, ids)
	if err != nil {
		return models.RetentionCohort{}, err
	}

	d7End := weekStart.AddDate(0, 0, 7)
	d30End := weekStart.AddDate(0, 0, 30)

	d1Users := make(map[string]struct{})
	d7Users := make(map[string]struct{})
	d30Users := make(map[string]struct{})
	for _, it := range interactions {
		if created, ok := signup[it.UserID]; ok && sameDate(it.CreatedAt, created.AddDate(0, 0, 1)) {
			d1Users[it.UserID] = struct{}{}
		}
		if !it.CreatedAt.Before(weekStart) && !it.CreatedAt.After(d7End) {
			d7Users[it.UserID] = struct{}{}
		}
		if !it.CreatedAt.Before(weekStart) && !it.CreatedAt.After(d30End) {
			d30Users[it.UserID] = struct{}{}
		}
	}

	return models.RetentionCohort{
		WeekStart:     weekStart.Format(dateLayout),
		NewUsers:      len(newUsers),
		D1Percentage:  percentage(len(d1Users), len(newUsers)),
		D7Percentage:  percentage(len(d7Users), len(newUsers)),
		D30Percentage: percentage(len(d30Users), len(newUsers)),
	}, nil
}

// RetentionD1 is the standalone top-level KPI, distinct from the cohort
// table: among users created in [start, end], the percentage with at least
// one interaction dated exactly one day after their own signup date.
func (e *Engine) RetentionD1(ctx context.Context, start, end time.Time) (float64, error) {
	newUsers, err := e.store.UsersCreatedIn(ctx, start, end)
	if err != nil {
		return 0, err
	}
	if len(newUsers) == 0 {
		return 0, nil
	}

	ids := make([]string, len(newUsers))
	signup := make(map[string]time.Time, len(newUsers))
	for i, u := range newUsers {
		ids[i] = u.ID
		signup[u.ID] = u.CreatedAt
	}

	interactions, err := e.store.InteractionsByUsers(ctx, ids)
	if err != nil {
		return 0, err
	}

	active := make(map[string]struct{})
	for _, it := range interactions {
		if created, ok := signup[it.UserID]; ok && sameDate(it.CreatedAt, created.AddDate(0, 0, 1)) {
			active[it.UserID] = struct{}{}
		}
	}
	return percentage(len(active), len(newUsers)), nil
}
