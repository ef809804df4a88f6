// Habitus - Engagement and Retention Analytics for Learning Platforms
// Copyright 2026 Habitus Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitus-analytics/habitus

package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/habitus-analytics/habitus/internal/cache"
	"github.com/habitus-analytics/habitus/internal/logging"
	"github.com/habitus-analytics/habitus/internal/metrics"
	"github.com/habitus-analytics/habitus/internal/models"
)

// Engine computes the product dashboard from the event store. It holds no
// mutable state of its own; concurrent invocations for different date ranges
// are fully independent.
type Engine struct {
	store Store

	// cache memoizes whole overview payloads keyed by resolved period.
	// Optional; nil disables memoization. The TTL is caller-controlled via
	// configuration so stale data is never served past it.
	cache    *cache.Cache
	cacheTTL time.Duration

	// now is injectable for deterministic tests.
	now func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache memoizes overview payloads in c for ttl. A zero ttl falls back
// to the cache's default.
func WithCache(c *cache.Cache, ttl time.Duration) Option {
	return func(e *Engine) {
		e.cache = c
		e.cacheTTL = ttl
	}
}

// WithClock overrides the engine's notion of now. Used by tests and by
// callers replaying historical snapshots.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine builds an Engine over the given event store.
func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// joinedInteraction pairs an interaction with its resolved exercise so the
// completion rule can be applied without further lookups.
type joinedInteraction struct {
	models.Interaction
	Exercise models.Exercise
}

// completed applies the completion rule to the joined row.
func (j joinedInteraction) completed() bool {
	return IsCompleted(j.WatchTime, j.Exercise.Duration, j.CompletedAt)
}

// joinExercises resolves the exercises referenced by the given interactions
// and returns the rows that could be joined. Interactions referencing a
// missing exercise are inconsistent records: they are excluded from the
// result, logged once per call, and counted in metrics, but never abort the
// computation.
func (e *Engine) joinExercises(ctx context.Context, interactions []models.Interaction) ([]joinedInteraction, error) {
	if len(interactions) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(interactions))
	seen := make(map[string]struct{}, len(interactions))
	for _, it := range interactions {
		if _, ok := seen[it.ExerciseID]; ok {
			continue
		}
		seen[it.ExerciseID] = struct{}{}
		ids = append(ids, it.ExerciseID)
	}

	exercises, err := e.store.ExercisesByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	joined := make([]joinedInteraction, 0, len(interactions))
	dropped := 0
	for _, it := range interactions {
		ex, ok := exercises[it.ExerciseID]
		if !ok {
			dropped++
			continue
		}
		joined = append(joined, joinedInteraction{Interaction: it, Exercise: ex})
	}

	if dropped > 0 {
		metrics.InconsistentRecords.Add(float64(dropped))
		logging.Warn().
			Int("dropped", dropped).
			Msg("Excluded interactions referencing missing exercises")
	}
	return joined, nil
}

// sortedUserIDs returns the distinct user IDs among the rows in ascending
// order, so downstream store calls see a deterministic argument list.
func sortedUserIDs(interactions []models.Interaction) []string {
	set := make(map[string]struct{}, len(interactions))
	for _, it := range interactions {
		set[it.UserID] = struct{}{}
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
