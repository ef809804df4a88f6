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

// This file implements the content-performance engine: exercise rankings by
// viewership and by drop-off, both over interactions created in the period.

// contentLimit caps both content rankings in the overview payload.
const contentLimit = 10

// PopularExercises ranks exercises by distinct viewers in [start, end], top
// ten. Views count distinct users, not interactions, so a binge on one
// exercise by one user is a single view. Ties break on exercise ID ascending.
func (e *Engine) PopularExercises(ctx context.Context, start, end time.Time) ([]models.PopularExercise, error) {
	interactions, err := e.store.InteractionsCreatedIn(ctx, start, end)
	if err != nil {
		return nil, err
	}
	joined, err := e.joinExercises(ctx, interactions)
	if err != nil {
		return nil, err
	}

	type tally struct {
		exercise  models.Exercise
		viewers   map[string]struct{}
		started   int
		completed int
	}
	byExercise := make(map[string]*tally)
	for _, j := range joined {
		t := byExercise[j.ExerciseID]
		if t == nil {
			t = &tally{exercise: j.Exercise, viewers: make(map[string]struct{})}
			byExercise[j.ExerciseID] = t
		}
		t.viewers[j.UserID] = struct{}{}
		t.started++
		if j.completed() {
			t.completed++
		}
	}

	rows := make([]models.PopularExercise, 0, len(byExercise))
	for id, t := range byExercise {
		rows = append(rows, models.PopularExercise{
			ID:             id,
			Title:          t.exercise.Title,
			Category:       t.exercise.Category,
			Views:          len(t.viewers),
			CompletionRate: percentage(t.completed, t.started),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Views != rows[j].Views {
			return rows[i].Views > rows[j].Views
		}
		return rows[i].ID < rows[j].ID
	})
	if len(rows) > contentLimit {
		rows = rows[:contentLimit]
	}
	return rows, nil
}

// HighDropoffExercises ranks exercises by the share of interactions that
// never reached completion, top ten. Exercises where every interaction
// completed are excluded rather than listed at 0%. AvgTimeBeforeDrop averages
// watch time over dropped interactions only, rounded to the nearest second.
func (e *Engine) HighDropoffExercises(ctx context.Context, start, end time.Time) ([]models.DropoffExercise, error) {
	interactions, err := e.store.InteractionsCreatedIn(ctx, start, end)
	if err != nil {
		return nil, err
	}
	joined, err := e.joinExercises(ctx, interactions)
	if err != nil {
		return nil, err
	}

	type tally struct {
		exercise     models.Exercise
		total        int
		dropped      int
		droppedWatch int
	}
	byExercise := make(map[string]*tally)
	for _, j := range joined {
		t := byExercise[j.ExerciseID]
		if t == nil {
			t = &tally{exercise: j.Exercise}
			byExercise[j.ExerciseID] = t
		}
		t.total++
		if !j.completed() {
			t.dropped++
			t.droppedWatch += j.WatchTime
		}
	}

	rows := make([]models.DropoffExercise, 0, len(byExercise))
	for id, t := range byExercise {
		if t.dropped == 0 {
			continue
		}
		rows = append(rows, models.DropoffExercise{
			ID:                id,
			Title:             t.exercise.Title,
			DropoffRate:       percentage(t.dropped, t.total),
			AvgTimeBeforeDrop: int(math.Round(float64(t.droppedWatch) / float64(t.dropped))),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].DropoffRate != rows[j].DropoffRate {
			return rows[i].DropoffRate > rows[j].DropoffRate
		}
		return rows[i].ID < rows[j].ID
	})
	if len(rows) > contentLimit {
		rows = rows[:contentLimit]
	}
	return rows, nil
}
