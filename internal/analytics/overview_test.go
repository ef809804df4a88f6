// Habitus - Engagement and Retention Analytics for Learning Platforms
// Copyright 2026 Habitus Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitus-analytics/habitus

package analytics

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/habitus-analytics/habitus/internal/cache"
	"github.com/habitus-analytics/habitus/internal/models"
)

func overviewFixture() *memStore {
	store := contentFixture()
	store.users = []models.User{
		{ID: "u1", FullName: "Ada", CreatedAt: ts("2025-01-01 09:00:00")},
		{ID: "u2", FullName: "Ben", CreatedAt: ts("2025-01-02 09:00:00")},
		{ID: "u3", FullName: "Cleo", CreatedAt: ts("2025-01-05 09:00:00")},
	}
	store.profiles = map[string]int{"u1": 250}
	return store
}

func TestOverviewInvalidRange(t *testing.T) {
	e := NewEngine(overviewFixture())

	start := ts("2025-02-01")
	end := ts("2025-01-01")
	got, err := e.Overview(context.Background(), &start, &end)
	if !errors.Is(err, ErrInvalidDateRange) {
		t.Fatalf("err = %v, want ErrInvalidDateRange", err)
	}
	if got != nil {
		t.Errorf("payload = %+v, want nil on invalid range", got)
	}
}

func TestOverviewDefaultPeriod(t *testing.T) {
	e := NewEngine(overviewFixture(), WithClock(func() time.Time {
		return ts("2025-03-15 10:30:00")
	}))

	got, err := e.Overview(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if got.Period.Start != "2025-02-15" || got.Period.End != "2025-03-15" {
		t.Errorf("period = %+v, want trailing month ending at the injected clock", got.Period)
	}
}

func TestOverviewPayload(t *testing.T) {
	e := NewEngine(overviewFixture())

	start := ts("2025-01-01")
	end := ts("2025-01-31")
	got, err := e.Overview(context.Background(), &start, &end)
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}

	if got.Period.Start != "2025-01-01" || got.Period.End != "2025-01-31" {
		t.Errorf("period = %+v", got.Period)
	}
	if got.KPI.MAU.Value != 3 {
		t.Errorf("MAU = %v, want 3 distinct active users", got.KPI.MAU.Value)
	}
	if len(got.Charts.ActivityCurve) != 31 {
		t.Fatalf("activity curve has %d points, want one per day of January", len(got.Charts.ActivityCurve))
	}
	if first := got.Charts.ActivityCurve[0]; first.Date != "2025-01-01" {
		t.Errorf("first curve point is %s, want the period start", first.Date)
	}
	if last := got.Charts.ActivityCurve[30]; last.Date != "2025-01-31" {
		t.Errorf("last curve point is %s, want the period end", last.Date)
	}
	if len(got.Charts.Heatmap) != 6 {
		t.Errorf("heatmap has %d buckets, want 6", len(got.Charts.Heatmap))
	}
	if len(got.RetentionCohorts) == 0 {
		t.Error("retention cohorts empty, want the signup cohorts of the period")
	}
	if len(got.ContentPerformance.PopularExercises) == 0 {
		t.Error("popular exercises empty")
	}
	if len(got.UserSegments.PowerUsers) == 0 {
		t.Error("power users empty")
	}

	// Identical arguments over an unchanged store give an identical payload.
	again, err := e.Overview(context.Background(), &start, &end)
	if err != nil {
		t.Fatalf("Overview (second call): %v", err)
	}
	if !reflect.DeepEqual(got, again) {
		t.Error("repeated Overview calls diverged over an unchanged store")
	}
}

func TestOverviewStoreFailure(t *testing.T) {
	store := overviewFixture()
	store.failWith = errors.New("connection refused")
	e := NewEngine(store)

	start := ts("2025-01-01")
	end := ts("2025-01-31")
	got, err := e.Overview(context.Background(), &start, &end)
	if err == nil {
		t.Fatal("want an error when the store is down")
	}
	if got != nil {
		t.Errorf("payload = %+v, want nil rather than a partial dashboard", got)
	}
}

func TestOverviewCache(t *testing.T) {
	store := overviewFixture()
	e := NewEngine(store, WithCache(cache.New(time.Minute), time.Minute))

	start := ts("2025-01-01")
	end := ts("2025-01-31")
	first, err := e.Overview(context.Background(), &start, &end)
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}

	// New activity lands after the first computation; the cached payload
	// must still be served until the TTL lapses.
	store.interactions = append(store.interactions, models.Interaction{
		ID: "i-late", UserID: "u-new", ExerciseID: "e1", WatchTime: 60,
		CreatedAt: ts("2025-01-20"), UpdatedAt: ts("2025-01-20"),
	})

	second, err := e.Overview(context.Background(), &start, &end)
	if err != nil {
		t.Fatalf("Overview (cached): %v", err)
	}
	if second.KPI.MAU.Value != first.KPI.MAU.Value {
		t.Errorf("MAU changed from %v to %v, want the cached payload", first.KPI.MAU.Value, second.KPI.MAU.Value)
	}
}

func TestHeatmapBoundaryHours(t *testing.T) {
	// An interaction at 04:00 shades both the 00-04 and 04-08 ranges.
	store := &memStore{
		interactions: []models.Interaction{
			{ID: "i1", UserID: "u1", ExerciseID: "e1", UpdatedAt: ts("2025-01-10 04:30:00"), CreatedAt: ts("2025-01-10 04:30:00")},
			{ID: "i2", UserID: "u1", ExerciseID: "e1", UpdatedAt: ts("2025-01-11 22:00:00"), CreatedAt: ts("2025-01-11 22:00:00")},
		},
	}
	e := NewEngine(store)

	got, err := e.heatmap(context.Background(), ts("2025-01-01"), endOfDay(ts("2025-01-31")))
	if err != nil {
		t.Fatalf("heatmap: %v", err)
	}

	values := make(map[string]int, len(got))
	for _, b := range got {
		values[b.HourRange] = b.Value
	}
	if values["00-04"] != 1 || values["04-08"] != 1 {
		t.Errorf("hour 4 should count in both adjacent buckets, got %v", values)
	}
	if values["20-24"] != 1 {
		t.Errorf("hour 22 should count in 20-24, got %v", values)
	}
	if values["08-12"] != 0 {
		t.Errorf("08-12 = %d, want 0", values["08-12"])
	}
}

func TestKPIChangeArithmetic(t *testing.T) {
	t.Run("relative change", func(t *testing.T) {
		tests := []struct {
			cur, prev, want float64
		}{
			{150, 100, 50},
			{80, 100, -20},
			{10, 0, 0}, // no baseline
			{0, 0, 0},
		}
		for _, tt := range tests {
			if got := relativeChange(tt.cur, tt.prev); got != tt.want {
				t.Errorf("relativeChange(%v, %v) = %v, want %v", tt.cur, tt.prev, got, tt.want)
			}
		}
	})

	t.Run("rate KPI uses point difference", func(t *testing.T) {
		kpi := rateKPI(45.5, 40.0)
		if kpi.Change != 5.5 {
			t.Errorf("Change = %v, want 5.5 points", kpi.Change)
		}
		if kpi.Trend != models.TrendUp {
			t.Errorf("Trend = %q, want up", kpi.Trend)
		}

		// A rate appearing from a zero baseline is itself the movement.
		zeroPrev := rateKPI(45.5, 0)
		if zeroPrev.Change != 45.5 {
			t.Errorf("Change from zero baseline = %v, want 45.5", zeroPrev.Change)
		}
	})

	t.Run("guarded rate KPI zeroes change without baseline", func(t *testing.T) {
		kpi := guardedRateKPI(45.5, 40.0)
		if kpi.Change != 5.5 {
			t.Errorf("Change = %v, want 5.5 points", kpi.Change)
		}

		zeroPrev := guardedRateKPI(45.5, 0)
		if zeroPrev.Change != 0 {
			t.Errorf("Change without baseline = %v, want 0", zeroPrev.Change)
		}
	})

	t.Run("churn trend inverts polarity", func(t *testing.T) {
		if got := churnTrend(25); got != models.TrendBad {
			t.Errorf("rising churn trend = %q, want bad", got)
		}
		if got := churnTrend(-25); got != models.TrendGood {
			t.Errorf("falling churn trend = %q, want good", got)
		}
		if got := churnTrend(0); got != models.TrendGood {
			t.Errorf("flat churn trend = %q, want good", got)
		}
	})
}

func TestKPISetAbsoluteChanges(t *testing.T) {
	// February vs its trailing-month comparison period. Two 100-second
	// sessions in February against one 50-second session in January: the
	// duration movement is the plain 50-second difference, never a relative
	// percentage, and the churn-risk movement is a headcount difference.
	store := &memStore{
		users: []models.User{
			{ID: "u1", FullName: "Ada", CreatedAt: ts("2024-12-01")},
			{ID: "u2", FullName: "Ben", CreatedAt: ts("2024-12-01")},
			{ID: "u3", FullName: "Cleo", CreatedAt: ts("2024-12-01")},
		},
		exercises: map[string]models.Exercise{
			"e1": {ID: "e1", Title: "Breathing", Duration: 600, XPValue: 10},
		},
		interactions: []models.Interaction{
			{ID: "i1", UserID: "u1", ExerciseID: "e1", WatchTime: 100, CreatedAt: ts("2025-02-10 10:00:00"), UpdatedAt: ts("2025-02-10 10:00:00")},
			{ID: "i2", UserID: "u3", ExerciseID: "e1", WatchTime: 100, CreatedAt: ts("2025-02-12 10:00:00"), UpdatedAt: ts("2025-02-12 10:00:00")},
			{ID: "i3", UserID: "u2", ExerciseID: "e1", WatchTime: 50, CreatedAt: ts("2025-01-10 10:00:00"), UpdatedAt: ts("2025-01-10 10:00:00")},
		},
	}
	e := NewEngine(store)

	got, err := e.kpiSet(context.Background(), ts("2025-02-01"), endOfDay(ts("2025-02-28")))
	if err != nil {
		t.Fatalf("kpiSet: %v", err)
	}

	if got.AvgSessionDuration.Value != 100 || got.AvgSessionDuration.Change != 50 {
		t.Errorf("AvgSessionDuration = %+v, want value 100 with change 50", got.AvgSessionDuration)
	}
	if got.AvgSessionDuration.Trend != models.TrendUp {
		t.Errorf("AvgSessionDuration trend = %q, want up", got.AvgSessionDuration.Trend)
	}
	if got.AvgSessionsPerUser.Change != 0 {
		t.Errorf("AvgSessionsPerUser change = %v, want 0 (one session day per user in both periods)", got.AvgSessionsPerUser.Change)
	}

	// MAU stays ratio-style: 2 active users against 1 is a 100% movement.
	if got.MAU.Value != 2 || got.MAU.Change != 100 {
		t.Errorf("MAU = %+v, want value 2 with change 100", got.MAU)
	}

	// At the February reference, Ada and Cleo sit in the 14-30 day window;
	// at the January reference only Ben does. The movement is 2-1, not a
	// percentage of the prior headcount.
	if got.ChurnRiskCount.Value != 2 || got.ChurnRiskCount.Change != 1 {
		t.Errorf("ChurnRiskCount = %+v, want value 2 with change 1", got.ChurnRiskCount)
	}
	if got.ChurnRiskCount.Trend != models.TrendBad {
		t.Errorf("ChurnRiskCount trend = %q, want bad", got.ChurnRiskCount.Trend)
	}
}
