package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kaldera-app/backend/internal/models"
)

func newTestRollupService(events *mockEventRepository, goals *mockGoalRepository) RollupService {
	return NewRollupService(events, NewGoalService(goals), time.UTC, DefaultWeightWindows())
}

func TestRollupHourly(t *testing.T) {
	events := newMockEventRepository()
	goals := newMockGoalRepository()
	svc := newTestRollupService(events, goals)
	ctx := context.Background()

	userID := uuid.NewString()
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	// Two days of breakfast at 08:00 plus a scale reading and a tracker burn.
	seedEvent(t, events, userID, models.EventTypeConsumed, day.Add(8*time.Hour), 500)
	seedEvent(t, events, userID, models.EventTypeConsumed, day.Add(24*time.Hour).Add(8*time.Hour), 450)
	events.Append(ctx, &models.CalorieEvent{
		ID: uuid.NewString(), UserID: userID, EventType: models.EventTypeWeight,
		EventTimestamp: day.Add(8*time.Hour + 30*time.Minute), Value: 70.5,
		Source: models.SourceSmartScale, ConfidenceScore: 1,
	})
	events.Append(ctx, &models.CalorieEvent{
		ID: uuid.NewString(), UserID: userID, EventType: models.EventTypeBurnedExercise,
		EventTimestamp: day.Add(18 * time.Hour), Value: 300,
		Source: models.SourceFitnessTracker, ConfidenceScore: 0.9,
	})

	resp, err := svc.Rollup(ctx, userID, models.GranularityHourly, "2025-03-10", "2025-03-11")
	if err != nil {
		t.Fatalf("Rollup: %v", err)
	}
	if len(resp.Hourly) != 2 {
		t.Fatalf("got %d hourly buckets, want 2 (08 and 18)", len(resp.Hourly))
	}

	eight := resp.Hourly[0]
	if eight.HourOfDay != 8 {
		t.Fatalf("first bucket hour = %d, want 8", eight.HourOfDay)
	}
	if eight.CaloriesConsumed != 950 {
		t.Errorf("hour 8 consumed = %v, want 950 across both days", eight.CaloriesConsumed)
	}
	if eight.EventCount != 3 {
		t.Errorf("hour 8 event_count = %d, want 3", eight.EventCount)
	}
	if eight.SourceVariety != 2 {
		t.Errorf("hour 8 source_variety = %d, want 2 (manual + smart_scale)", eight.SourceVariety)
	}
	if eight.LastWeight == nil || *eight.LastWeight != 70.5 {
		t.Errorf("hour 8 last_weight = %v, want 70.5", eight.LastWeight)
	}

	eighteen := resp.Hourly[1]
	if eighteen.HourOfDay != 18 || eighteen.CaloriesBurnedExercise != 300 {
		t.Errorf("hour 18 bucket = %+v", eighteen)
	}
	if eighteen.LastWeight != nil {
		t.Error("hour 18 has no weight sample")
	}

	if resp.ComputedAt.IsZero() {
		t.Error("computed_at not set")
	}
}

func TestRollupDaily(t *testing.T) {
	events := newMockEventRepository()
	goals := newMockGoalRepository()
	svc := newTestRollupService(events, goals)
	ctx := context.Background()

	userID := uuid.NewString()
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	goals.Create(ctx, &models.CalorieGoal{
		ID: uuid.NewString(), UserID: userID, GoalType: models.GoalTypeWeightLoss,
		DailyCalorieTarget: 2000, StartDate: "2025-01-01", IsActive: true,
	})

	seedEvent(t, events, userID, models.EventTypeConsumed, day.Add(8*time.Hour), 500)
	seedEvent(t, events, userID, models.EventTypeConsumed, day.Add(13*time.Hour), 700)
	seedEvent(t, events, userID, models.EventTypeWeight, day.Add(6*time.Hour), 70.2)
	seedEvent(t, events, userID, models.EventTypeWeight, day.Add(20*time.Hour), 69.8)

	resp, err := svc.Rollup(ctx, userID, models.GranularityDaily, "2025-03-10", "2025-03-10")
	if err != nil {
		t.Fatalf("Rollup: %v", err)
	}
	if len(resp.Daily) != 1 {
		t.Fatalf("got %d daily rows, want 1", len(resp.Daily))
	}
	row := resp.Daily[0]
	if row.Date != "2025-03-10" || row.CaloriesConsumed != 1200 {
		t.Errorf("row = %+v", row)
	}
	if row.ActiveHours != 4 {
		t.Errorf("active_hours = %d, want 4 (06, 08, 13, 20)", row.ActiveHours)
	}
	if row.MorningWeight == nil || *row.MorningWeight != 70.2 {
		t.Errorf("morning_weight = %v, want 70.2", row.MorningWeight)
	}
	if row.EveningWeight == nil || *row.EveningWeight != 69.8 {
		t.Errorf("evening_weight = %v, want 69.8", row.EveningWeight)
	}
	if row.DailyCalorieTarget == nil || *row.DailyCalorieTarget != 2000 {
		t.Errorf("daily_calorie_target = %v, want 2000", row.DailyCalorieTarget)
	}
}

func TestRollupWeekly(t *testing.T) {
	events := newMockEventRepository()
	goals := newMockGoalRepository()
	svc := newTestRollupService(events, goals)
	ctx := context.Background()

	userID := uuid.NewString()
	// 2025-03-10 is a Monday (ISO week 11).
	monday := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	wednesday := monday.AddDate(0, 0, 2)

	seedEvent(t, events, userID, models.EventTypeConsumed, monday, 1800)
	seedEvent(t, events, userID, models.EventTypeBurnedExercise, monday.Add(time.Hour), 400)
	seedEvent(t, events, userID, models.EventTypeConsumed, wednesday, 2200)
	seedEvent(t, events, userID, models.EventTypeWeight, monday.Add(-3*time.Hour), 71.0)
	seedEvent(t, events, userID, models.EventTypeWeight, wednesday.Add(11*time.Hour), 70.4)

	resp, err := svc.Rollup(ctx, userID, models.GranularityWeekly, "2025-03-10", "2025-03-16")
	if err != nil {
		t.Fatalf("Rollup: %v", err)
	}
	if len(resp.Weekly) != 1 {
		t.Fatalf("got %d weeks, want 1", len(resp.Weekly))
	}
	week := resp.Weekly[0]
	if week.ISOYear != 2025 || week.ISOWeek != 11 {
		t.Errorf("iso week = %d/%d, want 2025/11", week.ISOYear, week.ISOWeek)
	}
	if week.WeekStart != "2025-03-10" {
		t.Errorf("week_start = %s, want 2025-03-10", week.WeekStart)
	}
	if week.ActiveDays != 2 {
		t.Errorf("active_days = %d, want 2", week.ActiveDays)
	}
	if week.AvgDailyConsumed != 2000 {
		t.Errorf("avg_daily_consumed = %v, want 2000", week.AvgDailyConsumed)
	}
	if week.WeekStartWeight == nil || *week.WeekStartWeight != 71.0 {
		t.Errorf("week_start_weight = %v, want 71.0", week.WeekStartWeight)
	}
	if week.WeekEndWeight == nil || *week.WeekEndWeight != 70.4 {
		t.Errorf("week_end_weight = %v, want 70.4", week.WeekEndWeight)
	}
}

func TestRollupMonthly(t *testing.T) {
	events := newMockEventRepository()
	goals := newMockGoalRepository()
	svc := newTestRollupService(events, goals)
	ctx := context.Background()

	userID := uuid.NewString()
	for _, d := range []int{3, 4, 17} { // two ISO weeks of March
		seedEvent(t, events, userID, models.EventTypeConsumed,
			time.Date(2025, 3, d, 12, 0, 0, 0, time.UTC), 1500)
	}
	seedEvent(t, events, userID, models.EventTypeConsumed,
		time.Date(2025, 4, 2, 12, 0, 0, 0, time.UTC), 1800)

	resp, err := svc.Rollup(ctx, userID, models.GranularityMonthly, "2025-03-01", "2025-04-30")
	if err != nil {
		t.Fatalf("Rollup: %v", err)
	}
	if len(resp.Monthly) != 2 {
		t.Fatalf("got %d months, want 2", len(resp.Monthly))
	}

	march := resp.Monthly[0]
	if march.Year != 2025 || march.Month != 3 {
		t.Fatalf("first month = %d-%d, want 2025-3", march.Year, march.Month)
	}
	if march.CaloriesConsumed != 4500 || march.ActiveDays != 3 || march.ActiveWeeks != 2 {
		t.Errorf("march = %+v", march)
	}
	if march.AvgDailyConsumed != 1500 {
		t.Errorf("avg_daily_consumed = %v, want 1500", march.AvgDailyConsumed)
	}
	if march.AvgWeeklyConsumed != 2250 {
		t.Errorf("avg_weekly_consumed = %v, want 2250", march.AvgWeeklyConsumed)
	}
}

func TestRollupBalanceSummary(t *testing.T) {
	events := newMockEventRepository()
	goals := newMockGoalRepository()
	svc := newTestRollupService(events, goals)
	ctx := context.Background()

	userID := uuid.NewString()
	deficit := 500.0
	goals.Create(ctx, &models.CalorieGoal{
		ID: uuid.NewString(), UserID: userID, GoalType: models.GoalTypeWeightLoss,
		DailyCalorieTarget: 2000, DailyDeficitTarget: &deficit,
		StartDate: "2025-01-01", IsActive: true,
	})

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	seedEvent(t, events, userID, models.EventTypeConsumed, day.Add(8*time.Hour), 1200)
	seedEvent(t, events, userID, models.EventTypeBurnedBMR, day, 1600)

	// Second day blows past target + deficit.
	day2 := day.AddDate(0, 0, 1)
	seedEvent(t, events, userID, models.EventTypeConsumed, day2.Add(8*time.Hour), 4000)

	resp, err := svc.Rollup(ctx, userID, models.GranularitySummary, "2025-03-10", "2025-03-11")
	if err != nil {
		t.Fatalf("Rollup: %v", err)
	}
	if len(resp.Summary) != 2 {
		t.Fatalf("got %d summary rows, want 2", len(resp.Summary))
	}

	first := resp.Summary[0]
	if first.NetCalories != -400 {
		t.Errorf("net = %v, want -400", first.NetCalories)
	}
	if first.TargetDeviation == nil || *first.TargetDeviation != -2400 {
		t.Errorf("deviation = %v, want -2400", first.TargetDeviation)
	}
	// -400 <= 2000 + 500 -> achieved.
	if first.GoalAchieved == nil || !*first.GoalAchieved {
		t.Errorf("goal_achieved = %v, want true", first.GoalAchieved)
	}
	if first.DataCompletenessScore != 1.0 {
		t.Errorf("completeness = %v, want 1.0", first.DataCompletenessScore)
	}

	second := resp.Summary[1]
	// 4000 > 2500 -> not achieved.
	if second.GoalAchieved == nil || *second.GoalAchieved {
		t.Errorf("goal_achieved = %v, want false", second.GoalAchieved)
	}
	if second.DataCompletenessScore != 0.7 {
		t.Errorf("completeness = %v, want 0.7 (consumption only)", second.DataCompletenessScore)
	}
}

func TestRollupSummaryWithoutDeficitTargetIsNull(t *testing.T) {
	events := newMockEventRepository()
	goals := newMockGoalRepository()
	svc := newTestRollupService(events, goals)
	ctx := context.Background()

	userID := uuid.NewString()
	goals.Create(ctx, &models.CalorieGoal{
		ID: uuid.NewString(), UserID: userID, GoalType: models.GoalTypeMaintain,
		DailyCalorieTarget: 2000, StartDate: "2025-01-01", IsActive: true,
	})
	seedEvent(t, events, userID, models.EventTypeConsumed,
		time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC), 1000)

	resp, err := svc.Rollup(ctx, userID, models.GranularitySummary, "2025-03-10", "2025-03-10")
	if err != nil {
		t.Fatalf("Rollup: %v", err)
	}
	if resp.Summary[0].GoalAchieved != nil {
		t.Errorf("goal_achieved = %v, want nil without a deficit target", *resp.Summary[0].GoalAchieved)
	}
}

func TestRollupValidation(t *testing.T) {
	svc := newTestRollupService(newMockEventRepository(), newMockGoalRepository())
	ctx := context.Background()
	userID := uuid.NewString()

	_, err := svc.Rollup(ctx, userID, models.Granularity("yearly"), "2025-03-10", "2025-03-11")
	if _, ok := AsValidationError(err); !ok {
		t.Errorf("unknown granularity: err = %v, want ValidationError", err)
	}

	_, err = svc.Rollup(ctx, userID, models.GranularityDaily, "2025-03-11", "2025-03-10")
	if _, ok := AsValidationError(err); !ok {
		t.Errorf("inverted range: err = %v, want ValidationError", err)
	}

	_, err = svc.Rollup(ctx, userID, models.GranularityDaily, "March 10", "2025-03-11")
	if _, ok := AsValidationError(err); !ok {
		t.Errorf("bad date: err = %v, want ValidationError", err)
	}
}

func TestRollupReconcilesCorrections(t *testing.T) {
	events := newMockEventRepository()
	goals := newMockGoalRepository()
	svc := newTestRollupService(events, goals)
	ctx := context.Background()

	userID := uuid.NewString()
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	sampleID := "scan-7"

	events.Append(ctx, &models.CalorieEvent{
		ID: uuid.NewString(), UserID: userID, EventType: models.EventTypeConsumed,
		EventTimestamp: day.Add(8 * time.Hour), Value: 900,
		Source: models.SourceNutritionScan, ConfidenceScore: 0.6,
		ExternalID: &sampleID, RecordedAt: day.Add(8 * time.Hour),
	})
	events.Append(ctx, &models.CalorieEvent{
		ID: uuid.NewString(), UserID: userID, EventType: models.EventTypeConsumed,
		EventTimestamp: day.Add(8 * time.Hour), Value: 650,
		Source: models.SourceNutritionScan, ConfidenceScore: 0.9,
		ExternalID: &sampleID, RecordedAt: day.Add(9 * time.Hour),
	})

	resp, err := svc.Rollup(ctx, userID, models.GranularityDaily, "2025-03-10", "2025-03-10")
	if err != nil {
		t.Fatalf("Rollup: %v", err)
	}
	if resp.Daily[0].CaloriesConsumed != 650 {
		t.Errorf("consumed = %v, want 650 (correction wins)", resp.Daily[0].CaloriesConsumed)
	}
}
