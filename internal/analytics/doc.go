// Habitus - Engagement and Retention Analytics for Learning Platforms
// Copyright 2026 Habitus Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitus-analytics/habitus

// Package analytics implements the engagement-and-retention engine behind the
// Habitus product dashboard: activity KPIs over arbitrary date windows,
// weekly retention cohorts, content performance rankings, and user
// segmentation (churn risk and power users).
//
// The engine is a pure, synchronous read pipeline. Every operation is a
// side-effect-free aggregation over the event store snapshot at invocation
// time; nothing here mutates source data. All thresholds, tie-breaks, and
// rounding live in this package and operate on rows pulled through the Store
// interface, so the engine's semantics never depend on a particular query
// dialect.
//
// Independent sections of one Overview call run concurrently; a failure in
// any section fails the whole call, so callers never observe a partial
// dashboard.
package analytics
