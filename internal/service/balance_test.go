package service

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kaldera-app/backend/internal/models"
)

func newTestBalanceService(events *mockEventRepository, balances *mockBalanceRepository, goals *mockGoalRepository) BalanceService {
	return NewBalanceService(events, balances, NewGoalService(goals), time.UTC, DefaultWeightWindows())
}

func seedEvent(t *testing.T, repo *mockEventRepository, userID string, eventType models.EventType, ts time.Time, value float64) {
	t.Helper()
	_, _, err := repo.Append(context.Background(), &models.CalorieEvent{
		ID:              uuid.NewString(),
		UserID:          userID,
		EventType:       eventType,
		EventTimestamp:  ts,
		Value:           value,
		Source:          models.SourceManual,
		ConfidenceScore: 1,
	})
	if err != nil {
		t.Fatalf("seed event: %v", err)
	}
}

func TestRecomputeDayBasicScenario(t *testing.T) {
	events := newMockEventRepository()
	balances := newMockBalanceRepository()
	goals := newMockGoalRepository()
	svc := newTestBalanceService(events, balances, goals)
	ctx := context.Background()

	userID := uuid.NewString()
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	goals.Create(ctx, &models.CalorieGoal{
		ID: uuid.NewString(), UserID: userID, GoalType: models.GoalTypeWeightLoss,
		DailyCalorieTarget: 2000, StartDate: "2025-01-01", IsActive: true,
	})

	seedEvent(t, events, userID, models.EventTypeConsumed, day.Add(8*time.Hour), 500)
	seedEvent(t, events, userID, models.EventTypeConsumed, day.Add(13*time.Hour), 700)
	seedEvent(t, events, userID, models.EventTypeBurnedExercise, day.Add(18*time.Hour), 300)
	seedEvent(t, events, userID, models.EventTypeBurnedBMR, day, 1600)

	balance, err := svc.RecomputeDay(ctx, userID, "2025-03-10")
	if err != nil {
		t.Fatalf("RecomputeDay: %v", err)
	}

	if balance.CaloriesConsumed != 1200 {
		t.Errorf("consumed = %v, want 1200", balance.CaloriesConsumed)
	}
	if balance.CaloriesBurnedExercise != 300 {
		t.Errorf("burned_exercise = %v, want 300", balance.CaloriesBurnedExercise)
	}
	if balance.CaloriesBurnedBMR != 1600 {
		t.Errorf("burned_bmr = %v, want 1600", balance.CaloriesBurnedBMR)
	}
	if net := balance.NetCalories(); net != -700 {
		t.Errorf("net = %v, want -700", net)
	}
	if dev := balance.TargetDeviation(); dev == nil || *dev != -2700 {
		t.Errorf("target_deviation = %v, want -2700", dev)
	}
	if balance.EventsCount != 4 {
		t.Errorf("events_count = %d, want 4", balance.EventsCount)
	}
	if balance.DataCompletenessScore != 1.0 {
		t.Errorf("completeness = %v, want 1.0", balance.DataCompletenessScore)
	}
	if balance.LastEventTimestamp == nil || !balance.LastEventTimestamp.Equal(day.Add(18*time.Hour)) {
		t.Errorf("last_event_timestamp = %v, want 18:00", balance.LastEventTimestamp)
	}
}

func TestRecomputeDayWeightWindows(t *testing.T) {
	events := newMockEventRepository()
	balances := newMockBalanceRepository()
	goals := newMockGoalRepository()
	svc := newTestBalanceService(events, balances, goals)
	ctx := context.Background()

	userID := uuid.NewString()
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	seedEvent(t, events, userID, models.EventTypeWeight, day.Add(6*time.Hour), 70.2)
	seedEvent(t, events, userID, models.EventTypeWeight, day.Add(14*time.Hour), 71.0) // neither window
	seedEvent(t, events, userID, models.EventTypeWeight, day.Add(20*time.Hour), 69.8)

	balance, err := svc.RecomputeDay(ctx, userID, "2025-03-10")
	if err != nil {
		t.Fatalf("RecomputeDay: %v", err)
	}

	if balance.MorningWeight == nil || *balance.MorningWeight != 70.2 {
		t.Errorf("morning_weight = %v, want 70.2", balance.MorningWeight)
	}
	if balance.EveningWeight == nil || *balance.EveningWeight != 69.8 {
		t.Errorf("evening_weight = %v, want 69.8", balance.EveningWeight)
	}
	// Weight-only day scores the 0.3 tier.
	if balance.DataCompletenessScore != 0.3 {
		t.Errorf("completeness = %v, want 0.3", balance.DataCompletenessScore)
	}
}

func TestRecomputeDayWindowEmptyIsNil(t *testing.T) {
	events := newMockEventRepository()
	balances := newMockBalanceRepository()
	goals := newMockGoalRepository()
	svc := newTestBalanceService(events, balances, goals)

	userID := uuid.NewString()
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	seedEvent(t, events, userID, models.EventTypeWeight, day.Add(14*time.Hour), 71.0)

	balance, err := svc.RecomputeDay(context.Background(), userID, "2025-03-10")
	if err != nil {
		t.Fatalf("RecomputeDay: %v", err)
	}
	if balance.MorningWeight != nil {
		t.Errorf("morning_weight = %v, want nil (not zero)", *balance.MorningWeight)
	}
	if balance.EveningWeight != nil {
		t.Errorf("evening_weight = %v, want nil (not zero)", *balance.EveningWeight)
	}
}

func TestRecomputeDayIdempotent(t *testing.T) {
	events := newMockEventRepository()
	balances := newMockBalanceRepository()
	goals := newMockGoalRepository()
	svc := newTestBalanceService(events, balances, goals)
	ctx := context.Background()

	userID := uuid.NewString()
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	seedEvent(t, events, userID, models.EventTypeConsumed, day.Add(8*time.Hour), 500)
	seedEvent(t, events, userID, models.EventTypeBurnedExercise, day.Add(18*time.Hour), 300)

	first, err := svc.RecomputeDay(ctx, userID, "2025-03-10")
	if err != nil {
		t.Fatalf("RecomputeDay: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := svc.RecomputeDay(ctx, userID, "2025-03-10")
		if err != nil {
			t.Fatalf("RecomputeDay %d: %v", i, err)
		}
		if again.CaloriesConsumed != first.CaloriesConsumed ||
			again.CaloriesBurnedExercise != first.CaloriesBurnedExercise ||
			again.EventsCount != first.EventsCount ||
			again.DataCompletenessScore != first.DataCompletenessScore {
			t.Fatalf("recompute %d diverged: %+v vs %+v", i, again, first)
		}
	}
}

// Order-independence: any insertion order of the same event set yields the
// same balance.
func TestRecomputeDayOrderIndependent(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	userID := uuid.NewString()

	type spec struct {
		eventType models.EventType
		offset    time.Duration
		value     float64
	}
	specs := []spec{
		{models.EventTypeConsumed, 8 * time.Hour, 500},
		{models.EventTypeConsumed, 13 * time.Hour, 700},
		{models.EventTypeBurnedExercise, 18 * time.Hour, 300},
		{models.EventTypeBurnedBMR, 0, 1600},
		{models.EventTypeWeight, 6 * time.Hour, 70.2},
	}
	// Stable ids so every permutation inserts the same logical set.
	ids := make([]string, len(specs))
	for i := range ids {
		ids[i] = uuid.NewString()
	}

	var reference *models.DailyBalance
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 20; trial++ {
		order := rng.Perm(len(specs))

		events := newMockEventRepository()
		balances := newMockBalanceRepository()
		goals := newMockGoalRepository()
		svc := newTestBalanceService(events, balances, goals)

		for _, idx := range order {
			s := specs[idx]
			events.Append(context.Background(), &models.CalorieEvent{
				ID: ids[idx], UserID: userID, EventType: s.eventType,
				EventTimestamp: day.Add(s.offset), Value: s.value,
				Source: models.SourceManual, ConfidenceScore: 1,
			})
		}

		balance, err := svc.RecomputeDay(context.Background(), userID, "2025-03-10")
		if err != nil {
			t.Fatalf("trial %d: %v", trial, err)
		}
		if reference == nil {
			reference = balance
			continue
		}
		if balance.CaloriesConsumed != reference.CaloriesConsumed ||
			balance.CaloriesBurnedExercise != reference.CaloriesBurnedExercise ||
			balance.CaloriesBurnedBMR != reference.CaloriesBurnedBMR ||
			balance.EventsCount != reference.EventsCount ||
			!floatPtrEqual(balance.MorningWeight, reference.MorningWeight) {
			t.Fatalf("trial %d diverged: %+v vs %+v", trial, balance, reference)
		}
	}
}

func TestRecomputeDayCorrectionReconciliation(t *testing.T) {
	events := newMockEventRepository()
	balances := newMockBalanceRepository()
	goals := newMockGoalRepository()
	svc := newTestBalanceService(events, balances, goals)
	ctx := context.Background()

	userID := uuid.NewString()
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	sampleID := "healthkit-sample-42"

	// Original reading, then a correction sharing the logical key.
	events.Append(ctx, &models.CalorieEvent{
		ID: uuid.NewString(), UserID: userID, EventType: models.EventTypeConsumed,
		EventTimestamp: day.Add(8 * time.Hour), Value: 600,
		Source: models.SourceHealthKit, ConfidenceScore: 0.8,
		ExternalID: &sampleID, RecordedAt: day.Add(8 * time.Hour),
	})
	events.Append(ctx, &models.CalorieEvent{
		ID: uuid.NewString(), UserID: userID, EventType: models.EventTypeConsumed,
		EventTimestamp: day.Add(8 * time.Hour), Value: 450,
		Source: models.SourceHealthKit, ConfidenceScore: 0.95,
		ExternalID: &sampleID, RecordedAt: day.Add(12 * time.Hour),
	})
	// An unrelated manual entry without a logical key is always counted.
	seedEvent(t, events, userID, models.EventTypeConsumed, day.Add(13*time.Hour), 700)

	balance, err := svc.RecomputeDay(ctx, userID, "2025-03-10")
	if err != nil {
		t.Fatalf("RecomputeDay: %v", err)
	}
	if balance.CaloriesConsumed != 1150 {
		t.Errorf("consumed = %v, want 1150 (correction replaces original)", balance.CaloriesConsumed)
	}
	if balance.EventsCount != 2 {
		t.Errorf("events_count = %d, want 2 after reconciliation", balance.EventsCount)
	}
}

func TestGetDayComputesOnTheFly(t *testing.T) {
	events := newMockEventRepository()
	balances := newMockBalanceRepository()
	goals := newMockGoalRepository()
	svc := newTestBalanceService(events, balances, goals)
	ctx := context.Background()

	userID := uuid.NewString()
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	seedEvent(t, events, userID, models.EventTypeConsumed, day.Add(8*time.Hour), 500)

	resp, err := svc.GetDay(ctx, userID, "2025-03-10")
	if err != nil {
		t.Fatalf("GetDay: %v", err)
	}
	if resp.CaloriesConsumed != 500 {
		t.Errorf("consumed = %v, want 500", resp.CaloriesConsumed)
	}
	if resp.NetCalories != 500 {
		t.Errorf("net = %v, want 500", resp.NetCalories)
	}
	// On-the-fly compute must not persist a row.
	if balances.upsertCalls != 0 {
		t.Errorf("GetDay persisted %d rows, want 0", balances.upsertCalls)
	}
	// Round-trip invariant.
	if resp.NetCalories != resp.CaloriesConsumed-(resp.CaloriesBurnedExercise+resp.CaloriesBurnedBMR) {
		t.Error("net != consumed - (exercise + bmr)")
	}
}

func TestCompletenessTiers(t *testing.T) {
	cases := []struct {
		name                                    string
		hasConsumption, hasExpenditure, hasWeight bool
		want                                    float64
	}{
		{"both sides", true, true, false, 1.0},
		{"consumption only", true, false, false, 0.7},
		{"expenditure only", false, true, false, 0.7},
		{"weight only", false, false, true, 0.3},
		{"nothing", false, false, false, 0.0},
		{"everything", true, true, true, 1.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := completenessScore(tc.hasConsumption, tc.hasExpenditure, tc.hasWeight); got != tc.want {
				t.Errorf("completenessScore = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRecomputeRange(t *testing.T) {
	events := newMockEventRepository()
	balances := newMockBalanceRepository()
	goals := newMockGoalRepository()
	svc := newTestBalanceService(events, balances, goals)
	ctx := context.Background()

	userID := uuid.NewString()
	for d := 0; d < 3; d++ {
		day := time.Date(2025, 3, 10+d, 9, 0, 0, 0, time.UTC)
		seedEvent(t, events, userID, models.EventTypeConsumed, day, 1000)
	}

	count, err := svc.RecomputeRange(ctx, userID, "2025-03-10", "2025-03-12")
	if err != nil {
		t.Fatalf("RecomputeRange: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
	rows, _ := balances.GetRange(ctx, userID, "2025-03-10", "2025-03-12")
	if len(rows) != 3 {
		t.Errorf("persisted %d rows, want 3", len(rows))
	}
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
