// Habitus - Engagement and Retention Analytics for Learning Platforms
// Copyright 2026 Habitus Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitus-analytics/habitus

package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/habitus-analytics/habitus/internal/logging"
	"github.com/habitus-analytics/habitus/internal/metrics"
	"github.com/habitus-analytics/habitus/internal/models"
)

// This file is the orchestrator: it resolves the requested period, fans the
// section computations out concurrently, and assembles the full dashboard
// payload. A failure in any section fails the whole request; the payload is
// never partial.

// defaultPeriodMonths is how far back the period reaches when the caller
// omits the start date.
const defaultPeriodMonths = 1

// heatmapBuckets maps each four-hour label to the hours it counts. Boundary
// hours belong to both adjacent buckets, matching how the dashboard shades
// transitions between ranges.
var heatmapBuckets = []struct {
	label string
	hours []int
}{
	{"00-04", []int{0, 1, 2, 3, 4}},
	{"04-08", []int{4, 5, 6, 7, 8}},
	{"08-12", []int{8, 9, 10, 11, 12}},
	{"12-16", []int{12, 13, 14, 15, 16}},
	{"16-20", []int{16, 17, 18, 19, 20}},
	{"20-24", []int{20, 21, 22, 23}},
}

// Overview computes the full dashboard for the requested period. Nil start
// or end fall back to the trailing month ending now. The same resolved
// period against an unchanged store yields an identical payload, which is
// what makes the whole-payload cache sound.
func (e *Engine) Overview(ctx context.Context, start, end *time.Time) (*models.DashboardOverview, error) {
	resolvedEnd := endOfDay(e.now())
	if end != nil {
		resolvedEnd = endOfDay(*end)
	}
	resolvedStart := startOfDay(e.now().AddDate(0, -defaultPeriodMonths, 0))
	if start != nil {
		resolvedStart = startOfDay(*start)
	}
	if resolvedEnd.Before(resolvedStart) {
		return nil, fmt.Errorf("%w: start %s is after end %s", ErrInvalidDateRange,
			resolvedStart.Format(dateLayout), resolvedEnd.Format(dateLayout))
	}

	period := models.Period{
		Start: resolvedStart.Format(dateLayout),
		End:   resolvedEnd.Format(dateLayout),
	}
	cacheKey := fmt.Sprintf("overview:%s:%s", period.Start, period.End)
	if e.cache != nil {
		if cached, ok := e.cache.Get(cacheKey); ok {
			if overview, ok := cached.(*models.DashboardOverview); ok {
				metrics.CacheHits.Inc()
				return overview, nil
			}
		}
		metrics.CacheMisses.Inc()
	}

	started := time.Now()
	overview, err := e.buildOverview(ctx, resolvedStart, resolvedEnd, period)
	if err != nil {
		return nil, err
	}
	metrics.OverviewDuration.Observe(time.Since(started).Seconds())
	logging.Debug().
		Str("start", period.Start).
		Str("end", period.End).
		Dur("elapsed", time.Since(started)).
		Msg("Dashboard overview computed")

	if e.cache != nil {
		e.cache.SetWithTTL(cacheKey, overview, e.cacheTTL)
	}
	return overview, nil
}

func (e *Engine) buildOverview(ctx context.Context, start, end time.Time, period models.Period) (*models.DashboardOverview, error) {
	overview := &models.DashboardOverview{Period: period}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		kpi, err := e.kpiSet(gctx, start, end)
		if err == nil {
			overview.KPI = *kpi
		}
		return err
	})
	g.Go(func() error {
		curve, err := e.activityCurve(gctx, start, end)
		if err == nil {
			overview.Charts.ActivityCurve = curve
		}
		return err
	})
	g.Go(func() error {
		heatmap, err := e.heatmap(gctx, start, end)
		if err == nil {
			overview.Charts.Heatmap = heatmap
		}
		return err
	})
	g.Go(func() error {
		cohorts, err := e.RetentionCohorts(gctx, start, end)
		if err == nil {
			overview.RetentionCohorts = cohorts
		}
		return err
	})
	g.Go(func() error {
		popular, err := e.PopularExercises(gctx, start, end)
		if err == nil {
			overview.ContentPerformance.PopularExercises = popular
		}
		return err
	})
	g.Go(func() error {
		dropoff, err := e.HighDropoffExercises(gctx, start, end)
		if err == nil {
			overview.ContentPerformance.HighDropoffExercises = dropoff
		}
		return err
	})
	g.Go(func() error {
		churn, err := e.ChurnRiskSegment(gctx, end)
		if err == nil {
			overview.UserSegments.ChurnRisk = churn
		}
		return err
	})
	g.Go(func() error {
		power, err := e.PowerUsers(gctx, start, end)
		if err == nil {
			overview.UserSegments.PowerUsers = power
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return overview, nil
}

// kpiSet computes the eight headline metrics with their period-over-period
// movement. The comparison period is the month preceding the current period's
// start. MAU is ratio-style and reports relative change in percent; rates
// report the difference in percentage points; durations and counts report
// the plain difference.
func (e *Engine) kpiSet(ctx context.Context, start, end time.Time) (*models.KPISet, error) {
	prevEnd := endOfDay(start.AddDate(0, 0, -1))
	prevStart := start.AddDate(0, -defaultPeriodMonths, 0)

	mau, err := e.ActiveUserCount(ctx, start, end)
	if err != nil {
		return nil, err
	}
	prevMAU, err := e.ActiveUserCount(ctx, prevStart, prevEnd)
	if err != nil {
		return nil, err
	}

	stickiness, err := e.Stickiness(ctx, end)
	if err != nil {
		return nil, err
	}
	prevStickiness, err := e.Stickiness(ctx, prevEnd)
	if err != nil {
		return nil, err
	}

	_, resurrection, err := e.ResurrectionStats(ctx, start, end)
	if err != nil {
		return nil, err
	}
	_, prevResurrection, err := e.ResurrectionStats(ctx, prevStart, prevEnd)
	if err != nil {
		return nil, err
	}

	sessions, err := e.AverageSessionsPerUser(ctx, start, end)
	if err != nil {
		return nil, err
	}
	prevSessions, err := e.AverageSessionsPerUser(ctx, prevStart, prevEnd)
	if err != nil {
		return nil, err
	}

	duration, err := e.AverageSessionDuration(ctx, start, end)
	if err != nil {
		return nil, err
	}
	prevDuration, err := e.AverageSessionDuration(ctx, prevStart, prevEnd)
	if err != nil {
		return nil, err
	}

	retention, err := e.RetentionD1(ctx, start, end)
	if err != nil {
		return nil, err
	}
	prevRetention, err := e.RetentionD1(ctx, prevStart, prevEnd)
	if err != nil {
		return nil, err
	}

	completion, err := e.CompletionStats(ctx, start, end)
	if err != nil {
		return nil, err
	}
	prevCompletion, err := e.CompletionStats(ctx, prevStart, prevEnd)
	if err != nil {
		return nil, err
	}

	churn, err := e.ChurnRiskUsers(ctx, churnRiskDefaultDays, end)
	if err != nil {
		return nil, err
	}
	prevChurn, err := e.ChurnRiskUsers(ctx, churnRiskDefaultDays, prevEnd)
	if err != nil {
		return nil, err
	}
	churnChange := float64(len(churn) - len(prevChurn))

	return &models.KPISet{
		MAU:                countKPI(float64(mau), relativeChange(float64(mau), float64(prevMAU))),
		Stickiness:         guardedRateKPI(stickiness, prevStickiness),
		ResurrectionRate:   rateKPI(resurrection, prevResurrection),
		AvgSessionsPerUser: countKPI(sessions, round1(sessions-prevSessions)),
		AvgSessionDuration: countKPI(math.Trunc(duration), math.Trunc(duration-prevDuration)),
		RetentionD1:        rateKPI(retention, prevRetention),
		CompletionRate:     rateKPI(completion.OverallCompletionRate, prevCompletion.OverallCompletionRate),
		ChurnRiskCount: models.KPI{
			Value:  float64(len(churn)),
			Change: churnChange,
			Trend:  churnTrend(churnChange),
		},
	}, nil
}

// relativeChange is the percent movement from prev to cur, 0 when there is
// no baseline to compare against. Only ratio-style KPIs (MAU) use this;
// durations and counts report the plain difference.
func relativeChange(cur, prev float64) float64 {
	if prev == 0 {
		return 0
	}
	return round1((cur - prev) / prev * 100)
}

// countKPI labels a count-valued metric with its up or down trend.
func countKPI(value, change float64) models.KPI {
	return models.KPI{Value: value, Change: change, Trend: upDownTrend(change)}
}

// rateKPI compares two rates as a difference in percentage points.
func rateKPI(cur, prev float64) models.KPI {
	change := round1(cur - prev)
	return models.KPI{Value: cur, Change: change, Trend: upDownTrend(change)}
}

// guardedRateKPI is rateKPI with the change zeroed when there is no prior
// rate. Only stickiness carries this guard.
func guardedRateKPI(cur, prev float64) models.KPI {
	var change float64
	if prev > 0 {
		change = round1(cur - prev)
	}
	return models.KPI{Value: cur, Change: change, Trend: upDownTrend(change)}
}

func upDownTrend(change float64) string {
	if change < 0 {
		return models.TrendDown
	}
	return models.TrendUp
}

// churnTrend inverts polarity: fewer users at risk is the good direction.
func churnTrend(change float64) string {
	if change > 0 {
		return models.TrendBad
	}
	return models.TrendGood
}

// activityCurve builds one daily point for every calendar day in
// [start, end] from a single fetch reaching a week before the period. Each
// point's WAU unions the trailing eight day-sets so it matches the window
// arithmetic of the stickiness KPI.
func (e *Engine) activityCurve(ctx context.Context, start, end time.Time) ([]models.ActivityPoint, error) {
	first := startOfDay(start)
	fetchStart := first.AddDate(0, 0, -7)

	interactions, err := e.store.InteractionsUpdatedIn(ctx, fetchStart, end)
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]map[string]struct{})
	for _, it := range interactions {
		day := it.UpdatedAt.Format(dateLayout)
		if byDay[day] == nil {
			byDay[day] = make(map[string]struct{})
		}
		byDay[day][it.UserID] = struct{}{}
	}

	var points []models.ActivityPoint
	for day := first; !day.After(end); day = day.AddDate(0, 0, 1) {
		weekly := make(map[string]struct{})
		for back := 0; back <= 7; back++ {
			for user := range byDay[day.AddDate(0, 0, -back).Format(dateLayout)] {
				weekly[user] = struct{}{}
			}
		}
		dau := len(byDay[day.Format(dateLayout)])
		points = append(points, models.ActivityPoint{
			Date:       day.Format(dateLayout),
			DAU:        dau,
			WAU:        len(weekly),
			Stickiness: percentage(dau, len(weekly)),
		})
	}
	return points, nil
}

// heatmap counts interactions updated in the period by hour of day across
// six four-hour ranges.
func (e *Engine) heatmap(ctx context.Context, start, end time.Time) ([]models.HeatmapBucket, error) {
	interactions, err := e.store.InteractionsUpdatedIn(ctx, start, end)
	if err != nil {
		return nil, err
	}

	byHour := make(map[int]int, 24)
	for _, it := range interactions {
		byHour[it.UpdatedAt.Hour()]++
	}

	buckets := make([]models.HeatmapBucket, 0, len(heatmapBuckets))
	for _, b := range heatmapBuckets {
		var total int
		for _, h := range b.hours {
			total += byHour[h]
		}
		buckets = append(buckets, models.HeatmapBucket{HourRange: b.label, Value: total})
	}
	return buckets, nil
}
