// Habitus - Engagement and Retention Analytics for Learning Platforms
// Copyright 2026 Habitus Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitus-analytics/habitus

package analytics

import "errors"

// Error taxonomy for the engine. InvalidDateRange and an unrecoverable
// DataSourceUnavailable abort the whole overview call with no partial
// payload. Inconsistent records (an interaction referencing a missing
// exercise) are a data-integrity warning: the offending record is excluded
// from aggregates and the response still succeeds.
var (
	// ErrInvalidDateRange indicates end < start or an unparsable date string.
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrDataSourceUnavailable indicates the event store is unreachable or
	// timed out. Store implementations wrap transport failures with this
	// sentinel so callers can distinguish them from logic errors.
	ErrDataSourceUnavailable = errors.New("event store unavailable")

	// ErrInconsistentRecord marks a data-integrity problem in a single
	// record. It is logged and counted, never propagated out of the engine.
	ErrInconsistentRecord = errors.New("inconsistent record")
)
