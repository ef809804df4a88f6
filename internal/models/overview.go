// Habitus - Engagement and Retention Analytics for Learning Platforms
// Copyright 2026 Habitus Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitus-analytics/habitus

package models

import "time"

// Trend direction labels. Most KPIs use up/down; churn risk inverts polarity
// because fewer at-risk users is the desirable direction.
const (
	TrendUp   = "up"
	TrendDown = "down"
	TrendGood = "good"
	TrendBad  = "bad"
)

// KPI is a single dashboard metric with its period-over-period movement.
type KPI struct {
	Value  float64 `json:"value"`
	Change float64 `json:"change"`
	Trend  string  `json:"trend"`
}

// KPISet is the fixed set of eight headline metrics on the dashboard.
type KPISet struct {
	MAU                KPI `json:"mau"`
	Stickiness         KPI `json:"stickiness"`
	ResurrectionRate   KPI `json:"resurrection_rate"`
	AvgSessionsPerUser KPI `json:"avg_sessions_per_user"`
	AvgSessionDuration KPI `json:"avg_session_duration"`
	RetentionD1        KPI `json:"retention_d1"`
	CompletionRate     KPI `json:"completion_rate"`
	ChurnRiskCount     KPI `json:"churn_risk_count"`
}

// ActivityPoint is one day on the activity curve. WAU covers the trailing
// seven days up to and including the point's date, and stickiness is
// DAU/WAU*100 for that window.
type ActivityPoint struct {
	Date       string  `json:"date"` // YYYY-MM-DD
	DAU        int     `json:"dau"`
	WAU        int     `json:"wau"`
	Stickiness float64 `json:"stickiness"`
}

// HeatmapBucket is one of six four-hour ranges on the hour-of-day heatmap.
type HeatmapBucket struct {
	HourRange string `json:"hour_range"` // e.g. "08-12"
	Value     int    `json:"value"`
}

// Charts groups the time-series visualizations of the overview payload.
type Charts struct {
	ActivityCurve []ActivityPoint `json:"activity_curve"`
	Heatmap       []HeatmapBucket `json:"heatmap"`
}

// RetentionCohort is one weekly signup cohort with its D1/D7/D30 retention.
// Cohorts with zero new users are never emitted.
type RetentionCohort struct {
	WeekStart     string  `json:"week_start"` // YYYY-MM-DD
	NewUsers      int     `json:"new_users"`
	D1Percentage  float64 `json:"d1_percentage"`
	D7Percentage  float64 `json:"d7_percentage"`
	D30Percentage float64 `json:"d30_percentage"`
}

// ExerciseCompletionStat is the per-exercise breakdown behind the overall
// completion rate KPI.
type ExerciseCompletionStat struct {
	ExerciseID     string  `json:"exercise_id"`
	Started        int     `json:"started"`
	Completed      int     `json:"completed"`
	CompletionRate float64 `json:"completion_rate"`
}

// CompletionStats aggregates exercise completion over a period.
type CompletionStats struct {
	TotalStarted          int                      `json:"total_started"`
	TotalCompleted        int                      `json:"total_completed"`
	OverallCompletionRate float64                  `json:"overall_completion_rate"`
	ByExercise            []ExerciseCompletionStat `json:"by_exercise"`
}

// PopularExercise is a content-performance row ranked by distinct viewers.
type PopularExercise struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Category       string  `json:"category"`
	Views          int     `json:"views"`
	CompletionRate float64 `json:"completion_rate"`
}

// DropoffExercise is a content-performance row ranked by drop-off rate.
// AvgTimeBeforeDrop is the mean watch time among dropped interactions only,
// rounded to the nearest second.
type DropoffExercise struct {
	ID                string  `json:"id"`
	Title             string  `json:"title"`
	DropoffRate       float64 `json:"dropoff_rate"`
	AvgTimeBeforeDrop int     `json:"avg_time_before_drop"`
}

// ContentPerformance groups the exercise rankings of the overview payload.
type ContentPerformance struct {
	PopularExercises     []PopularExercise `json:"popular_exercises"`
	HighDropoffExercises []DropoffExercise `json:"high_dropoff_exercises"`
}

// ChurnRiskUser is an internal segmentation row: a user whose last
// interaction falls in the 14-to-30-day inactivity window relative to the
// reference date.
type ChurnRiskUser struct {
	UserID       string    `json:"user_id"`
	LastActive   time.Time `json:"last_active"`
	DaysInactive float64   `json:"days_inactive"`
}

// ChurnRiskEntry is the enriched, display-ready churn risk row.
type ChurnRiskEntry struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DaysInactive int    `json:"days_inactive"`
	TotalXP      int    `json:"total_xp"`
	Plan         string `json:"plan"`
}

// PowerUser is a top-ranked user by effective XP and completion volume.
// LastActive is nil for users whose activity timestamp could not be resolved.
type PowerUser struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	TotalXP    int     `json:"total_xp"`
	Status     string  `json:"status"`
	LastActive *string `json:"last_active"` // ISO 8601, null when unknown
}

// UserSegments groups the user lists of the overview payload.
type UserSegments struct {
	ChurnRisk  []ChurnRiskEntry `json:"churn_risk"`
	PowerUsers []PowerUser      `json:"power_users"`
}

// Period is the resolved date range of an overview snapshot.
type Period struct {
	Start string `json:"start"` // YYYY-MM-DD
	End   string `json:"end"`   // YYYY-MM-DD
}

// DashboardOverview is the full point-in-time dashboard payload. Identical
// arguments against an unchanged event store always produce an identical
// payload.
type DashboardOverview struct {
	Period             Period             `json:"period"`
	KPI                KPISet             `json:"kpi"`
	Charts             Charts             `json:"charts"`
	RetentionCohorts   []RetentionCohort  `json:"retention_cohorts"`
	ContentPerformance ContentPerformance `json:"content_performance"`
	UserSegments       UserSegments       `json:"user_segments"`
}
