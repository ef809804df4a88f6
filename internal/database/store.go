// Habitus - Engagement and Retention Analytics for Learning Platforms
// Copyright 2026 Habitus Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitus-analytics/habitus

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/habitus-analytics/habitus/internal/analytics"
	"github.com/habitus-analytics/habitus/internal/logging"
	"github.com/habitus-analytics/habitus/internal/metrics"
	"github.com/habitus-analytics/habitus/internal/models"
)

// Store implements analytics.Store over DuckDB. Every query runs through a
// circuit breaker so a wedged database degrades into fast
// ErrDataSourceUnavailable failures instead of piling up blocked requests.
type Store struct {
	db *DB
	cb *gobreaker.CircuitBreaker[interface{}]
}

// NewStore wraps the database in the event-store read interface.
func NewStore(db *DB) *Store {
	cbName := "duckdb-store"
	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", stateToString(from)).
				Str("to", stateToString(to)).
				Msg("Circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &Store{db: db, cb: cb}
}

// execute runs a query through the circuit breaker, records its metrics, and
// wraps failures in the store-unavailable sentinel.
func (s *Store) execute(operation string, fn func() (interface{}, error)) (interface{}, error) {
	start := time.Now()
	result, err := s.cb.Execute(fn)
	metrics.RecordDBQuery(operation, time.Since(start), err)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(s.cb.Name(), "rejected").Inc()
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(s.cb.Name(), "failure").Inc()
		}
		return nil, fmt.Errorf("%w: %s: %v", analytics.ErrDataSourceUnavailable, operation, err)
	}

	metrics.CircuitBreakerRequests.WithLabelValues(s.cb.Name(), "success").Inc()
	return result, nil
}

func castResult[T any](result interface{}, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("store: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

const interactionColumns = "id, user_id, exercise_id, watch_time, completed_at, created_at, updated_at"

func (s *Store) queryInteractions(ctx context.Context, operation, query string, args ...interface{}) ([]models.Interaction, error) {
	ctx, cancel := s.db.ensureContext(ctx)
	defer cancel()

	return castResult[[]models.Interaction](s.execute(operation, func() (interface{}, error) {
		rows, err := s.db.conn.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		defer closeQuietly(rows)
		return scanInteractions(rows)
	}))
}

func scanInteractions(rows *sql.Rows) ([]models.Interaction, error) {
	var interactions []models.Interaction
	for rows.Next() {
		var it models.Interaction
		var completedAt sql.NullTime
		if err := rows.Scan(&it.ID, &it.UserID, &it.ExerciseID, &it.WatchTime,
			&completedAt, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		if completedAt.Valid {
			t := completedAt.Time
			it.CompletedAt = &t
		}
		interactions = append(interactions, it)
	}
	return interactions, rows.Err()
}

// InteractionsCreatedIn returns interactions created in [start, end].
func (s *Store) InteractionsCreatedIn(ctx context.Context, start, end time.Time) ([]models.Interaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM user_exercises
		WHERE created_at >= ? AND created_at <= ?
		ORDER BY created_at, id`, interactionColumns)
	return s.queryInteractions(ctx, "interactions_created_in", query, start, end)
}

// InteractionsUpdatedIn returns interactions updated in [start, end].
func (s *Store) InteractionsUpdatedIn(ctx context.Context, start, end time.Time) ([]models.Interaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM user_exercises
		WHERE updated_at >= ? AND updated_at <= ?
		ORDER BY updated_at, id`, interactionColumns)
	return s.queryInteractions(ctx, "interactions_updated_in", query, start, end)
}

// InteractionsByUsers returns the all-time interaction history of the given
// users.
func (s *Store) InteractionsByUsers(ctx context.Context, userIDs []string) ([]models.Interaction, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM user_exercises
		WHERE user_id IN (%s)
		ORDER BY created_at, id`, interactionColumns, placeholders(len(userIDs)))
	return s.queryInteractions(ctx, "interactions_by_users", query, stringArgs(userIDs)...)
}

// CountDistinctActiveUsers counts distinct users with an interaction updated
// in [start, end].
func (s *Store) CountDistinctActiveUsers(ctx context.Context, start, end time.Time) (int, error) {
	ctx, cancel := s.db.ensureContext(ctx)
	defer cancel()

	return castResult[int](s.execute("count_distinct_active_users", func() (interface{}, error) {
		var count int
		err := s.db.conn.QueryRowContext(ctx,
			`SELECT COUNT(DISTINCT user_id) FROM user_exercises
			 WHERE updated_at >= ? AND updated_at <= ?`, start, end).Scan(&count)
		return count, err
	}))
}

// UserLastActivity returns each user's most recent interaction timestamp.
func (s *Store) UserLastActivity(ctx context.Context) ([]models.UserActivity, error) {
	return s.queryActivity(ctx, "user_last_activity",
		`SELECT user_id, MAX(updated_at) FROM user_exercises
		 GROUP BY user_id ORDER BY user_id`)
}

// UserLastActivityBefore returns each user's most recent interaction
// timestamp considering only interactions strictly before the cutoff.
func (s *Store) UserLastActivityBefore(ctx context.Context, cutoff time.Time) ([]models.UserActivity, error) {
	return s.queryActivity(ctx, "user_last_activity_before",
		`SELECT user_id, MAX(updated_at) FROM user_exercises
		 WHERE updated_at < ? GROUP BY user_id ORDER BY user_id`, cutoff)
}

func (s *Store) queryActivity(ctx context.Context, operation, query string, args ...interface{}) ([]models.UserActivity, error) {
	ctx, cancel := s.db.ensureContext(ctx)
	defer cancel()

	return castResult[[]models.UserActivity](s.execute(operation, func() (interface{}, error) {
		rows, err := s.db.conn.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		defer closeQuietly(rows)

		var activity []models.UserActivity
		for rows.Next() {
			var a models.UserActivity
			if err := rows.Scan(&a.UserID, &a.LastActive); err != nil {
				return nil, err
			}
			activity = append(activity, a)
		}
		return activity, rows.Err()
	}))
}

// UsersCreatedIn returns users who signed up in [start, end].
func (s *Store) UsersCreatedIn(ctx context.Context, start, end time.Time) ([]models.User, error) {
	ctx, cancel := s.db.ensureContext(ctx)
	defer cancel()

	return castResult[[]models.User](s.execute("users_created_in", func() (interface{}, error) {
		rows, err := s.db.conn.QueryContext(ctx,
			`SELECT id, full_name, created_at FROM users
			 WHERE created_at >= ? AND created_at <= ?
			 ORDER BY created_at, id`, start, end)
		if err != nil {
			return nil, err
		}
		defer closeQuietly(rows)

		var users []models.User
		for rows.Next() {
			var u models.User
			if err := rows.Scan(&u.ID, &u.FullName, &u.CreatedAt); err != nil {
				return nil, err
			}
			users = append(users, u)
		}
		return users, rows.Err()
	}))
}

// UsersByID resolves user records for the given IDs.
func (s *Store) UsersByID(ctx context.Context, ids []string) (map[string]models.User, error) {
	if len(ids) == 0 {
		return map[string]models.User{}, nil
	}
	ctx, cancel := s.db.ensureContext(ctx)
	defer cancel()

	query := fmt.Sprintf(`SELECT id, full_name, created_at FROM users WHERE id IN (%s)`,
		placeholders(len(ids)))
	return castResult[map[string]models.User](s.execute("users_by_id", func() (interface{}, error) {
		rows, err := s.db.conn.QueryContext(ctx, query, stringArgs(ids)...)
		if err != nil {
			return nil, err
		}
		defer closeQuietly(rows)

		users := make(map[string]models.User, len(ids))
		for rows.Next() {
			var u models.User
			if err := rows.Scan(&u.ID, &u.FullName, &u.CreatedAt); err != nil {
				return nil, err
			}
			users[u.ID] = u
		}
		return users, rows.Err()
	}))
}

// ExercisesByID resolves exercises for the given IDs.
func (s *Store) ExercisesByID(ctx context.Context, ids []string) (map[string]models.Exercise, error) {
	if len(ids) == 0 {
		return map[string]models.Exercise{}, nil
	}
	ctx, cancel := s.db.ensureContext(ctx)
	defer cancel()

	query := fmt.Sprintf(`SELECT id, title, category, duration, xp_value FROM exercises WHERE id IN (%s)`,
		placeholders(len(ids)))
	return castResult[map[string]models.Exercise](s.execute("exercises_by_id", func() (interface{}, error) {
		rows, err := s.db.conn.QueryContext(ctx, query, stringArgs(ids)...)
		if err != nil {
			return nil, err
		}
		defer closeQuietly(rows)

		exercises := make(map[string]models.Exercise, len(ids))
		for rows.Next() {
			var e models.Exercise
			if err := rows.Scan(&e.ID, &e.Title, &e.Category, &e.Duration, &e.XPValue); err != nil {
				return nil, err
			}
			exercises[e.ID] = e
		}
		return exercises, rows.Err()
	}))
}

// ProfileXPByUser returns cached total_xp per user for the given IDs.
func (s *Store) ProfileXPByUser(ctx context.Context, userIDs []string) (map[string]int, error) {
	if len(userIDs) == 0 {
		return map[string]int{}, nil
	}
	ctx, cancel := s.db.ensureContext(ctx)
	defer cancel()

	query := fmt.Sprintf(`SELECT user_id, total_xp FROM user_profiles WHERE user_id IN (%s)`,
		placeholders(len(userIDs)))
	return castResult[map[string]int](s.execute("profile_xp_by_user", func() (interface{}, error) {
		rows, err := s.db.conn.QueryContext(ctx, query, stringArgs(userIDs)...)
		if err != nil {
			return nil, err
		}
		defer closeQuietly(rows)

		xp := make(map[string]int, len(userIDs))
		for rows.Next() {
			var userID string
			var total int
			if err := rows.Scan(&userID, &total); err != nil {
				return nil, err
			}
			xp[userID] = total
		}
		return xp, rows.Err()
	}))
}

// ProfilesWithXP returns every profile holding positive total_xp.
func (s *Store) ProfilesWithXP(ctx context.Context) ([]models.UserProfile, error) {
	ctx, cancel := s.db.ensureContext(ctx)
	defer cancel()

	return castResult[[]models.UserProfile](s.execute("profiles_with_xp", func() (interface{}, error) {
		rows, err := s.db.conn.QueryContext(ctx,
			`SELECT user_id, total_xp FROM user_profiles WHERE total_xp > 0 ORDER BY user_id`)
		if err != nil {
			return nil, err
		}
		defer closeQuietly(rows)

		var profiles []models.UserProfile
		for rows.Next() {
			var p models.UserProfile
			if err := rows.Scan(&p.UserID, &p.TotalXP); err != nil {
				return nil, err
			}
			profiles = append(profiles, p)
		}
		return profiles, rows.Err()
	}))
}

// placeholders builds a "?, ?, ?" list of n placeholders.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(values []string) []interface{} {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
