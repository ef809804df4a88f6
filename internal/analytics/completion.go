// Habitus - Engagement and Retention Analytics for Learning Platforms
// Copyright 2026 Habitus Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitus-analytics/habitus

package analytics

import "time"

// CompletionToleranceSeconds is the system-wide slack allowing near-full
// playback to count as completed. Fixed at 4 seconds.
const CompletionToleranceSeconds = 4

// IsCompleted reports whether an interaction counts as completed: either the
// user explicitly finished (completedAt set) or their watch time reached the
// exercise duration minus the tolerance.
//
// This predicate is the single source of truth for completion. It is
// re-derived on every query rather than persisted, so it can never drift out
// of sync with watch_time. Every other component in this package must call
// it instead of re-deriving the formula.
//
// When duration <= tolerance the rule still applies literally: the threshold
// duration-4 may be zero or negative, in which case any watch time
// completes the exercise.
func IsCompleted(watchTime, duration int, completedAt *time.Time) bool {
	if completedAt != nil {
		return true
	}
	return watchTime >= duration-CompletionToleranceSeconds
}
