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

// Store is the read-only event-store collaborator the engine aggregates
// over. Implementations push simple parameterized filters down to the data
// layer (date ranges, ID sets, distinct counts) and nothing more; grouping,
// thresholds, tie-breaks, and rounding stay in this package.
//
// All range parameters are inclusive on both ends. Implementations must wrap
// transport failures with ErrDataSourceUnavailable.
type Store interface {
	// InteractionsCreatedIn returns interactions whose created_at falls in
	// [start, end].
	InteractionsCreatedIn(ctx context.Context, start, end time.Time) ([]models.Interaction, error)

	// InteractionsUpdatedIn returns interactions whose updated_at falls in
	// [start, end].
	InteractionsUpdatedIn(ctx context.Context, start, end time.Time) ([]models.Interaction, error)

	// InteractionsByUsers returns the full all-time interaction history of
	// the given users. An empty ID set returns no rows.
	InteractionsByUsers(ctx context.Context, userIDs []string) ([]models.Interaction, error)

	// CountDistinctActiveUsers counts distinct user IDs with at least one
	// interaction whose updated_at falls in [start, end].
	CountDistinctActiveUsers(ctx context.Context, start, end time.Time) (int, error)

	// UserLastActivity returns, for every user with at least one
	// interaction, the timestamp of their most recent one.
	UserLastActivity(ctx context.Context) ([]models.UserActivity, error)

	// UserLastActivityBefore is UserLastActivity restricted to interactions
	// strictly before the cutoff. Users whose entire history is at or after
	// the cutoff are absent from the result.
	UserLastActivityBefore(ctx context.Context, cutoff time.Time) ([]models.UserActivity, error)

	// UsersCreatedIn returns users whose signup instant falls in [start, end].
	UsersCreatedIn(ctx context.Context, start, end time.Time) ([]models.User, error)

	// UsersByID resolves user records for enrichment. Unknown IDs are simply
	// absent from the map; that is not an error.
	UsersByID(ctx context.Context, ids []string) (map[string]models.User, error)

	// ExercisesByID resolves exercises referenced by interactions. Unknown
	// IDs are absent from the map; the engine treats interactions pointing
	// at them as inconsistent records and excludes them from aggregates.
	ExercisesByID(ctx context.Context, ids []string) (map[string]models.Exercise, error)

	// ProfileXPByUser returns the cached total_xp per user. Users without a
	// profile row are absent from the map and default to zero XP.
	ProfileXPByUser(ctx context.Context, userIDs []string) (map[string]int, error)

	// ProfilesWithXP returns every profile whose cached total_xp is
	// positive. Used by the power-user fallback tier, which admits users
	// with banked XP even when they have no interaction history.
	ProfilesWithXP(ctx context.Context) ([]models.UserProfile, error)
}
