package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kaldera-app/backend/internal/logger"
	"github.com/kaldera-app/backend/internal/metrics"
	"github.com/kaldera-app/backend/internal/models"
	"github.com/kaldera-app/backend/internal/repository"
)

// WeightWindows are the half-open [start, end) local-hour windows used to
// pick morning and evening weight samples.
type WeightWindows struct {
	MorningStartHour int
	MorningEndHour   int
	EveningStartHour int
	EveningEndHour   int
}

// DefaultWeightWindows returns the standard 05:00-10:00 / 18:00-23:00 policy.
func DefaultWeightWindows() WeightWindows {
	return WeightWindows{
		MorningStartHour: 5,
		MorningEndHour:   10,
		EveningStartHour: 18,
		EveningEndHour:   23,
	}
}

type balanceService struct {
	events   repository.EventRepository
	balances repository.DailyBalanceRepository
	goals    GoalService
	loc      *time.Location
	windows  WeightWindows
}

// NewBalanceService creates the daily balance aggregator. loc defines the
// local-day boundaries used to fetch a day's events.
func NewBalanceService(events repository.EventRepository, balances repository.DailyBalanceRepository, goals GoalService, loc *time.Location, windows WeightWindows) BalanceService {
	return &balanceService{
		events:   events,
		balances: balances,
		goals:    goals,
		loc:      loc,
		windows:  windows,
	}
}

// RecomputeDay is a full rebuild from the event log: no increments, no
// reads of the previous row. Running it any number of times, in any
// interleaving with appends, converges on the aggregate of the current
// event set - the row is a cache, never a source of truth.
func (s *balanceService) RecomputeDay(ctx context.Context, userID, date string) (*models.DailyBalance, error) {
	start := time.Now()

	balance, err := s.computeDay(ctx, userID, date)
	if err != nil {
		return nil, err
	}

	if err := s.balances.Upsert(ctx, balance); err != nil {
		return nil, err
	}

	metrics.ObserveRecompute(time.Since(start))
	logger.Ctx(ctx).Debug("daily balance recomputed",
		logger.String("user_id", userID),
		logger.String("date", date),
		logger.Int("events_count", balance.EventsCount),
	)
	return balance, nil
}

func (s *balanceService) RecomputeRange(ctx context.Context, userID, from, to string) (int, error) {
	fromDay, err := time.ParseInLocation(models.DateLayout, from, s.loc)
	if err != nil {
		verr := &ValidationError{}
		return 0, verr.add("from", "must be a YYYY-MM-DD date", "invalid_format")
	}
	toDay, err := time.ParseInLocation(models.DateLayout, to, s.loc)
	if err != nil {
		verr := &ValidationError{}
		return 0, verr.add("to", "must be a YYYY-MM-DD date", "invalid_format")
	}
	if toDay.Before(fromDay) {
		verr := &ValidationError{}
		return 0, verr.add("to", "must not be before from", "invalid_range")
	}

	// Days are independent full rebuilds, so they can run concurrently.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	count := 0
	for day := fromDay; !day.After(toDay); day = day.AddDate(0, 0, 1) {
		date := day.Format(models.DateLayout)
		count++
		g.Go(func() error {
			_, err := s.RecomputeDay(gctx, userID, date)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("range recompute failed: %w", err)
	}
	return count, nil
}

func (s *balanceService) GetDay(ctx context.Context, userID, date string) (*models.DailyBalanceResponse, error) {
	if _, err := time.ParseInLocation(models.DateLayout, date, s.loc); err != nil {
		verr := &ValidationError{}
		return nil, verr.add("date", "must be a YYYY-MM-DD date", "invalid_format")
	}

	balance, err := s.balances.Get(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	if balance == nil {
		// No materialized row yet: compute on the fly without persisting,
		// so reads never fabricate a stored zero row.
		balance, err = s.computeDay(ctx, userID, date)
		if err != nil {
			return nil, err
		}
	}
	return balance.ToResponse(), nil
}

// computeDay derives the balance row from the day's event set.
func (s *balanceService) computeDay(ctx context.Context, userID, date string) (*models.DailyBalance, error) {
	dayStart, err := time.ParseInLocation(models.DateLayout, date, s.loc)
	if err != nil {
		verr := &ValidationError{}
		return nil, verr.add("date", "must be a YYYY-MM-DD date", "invalid_format")
	}
	dayEnd := dayStart.AddDate(0, 0, 1)

	events, err := s.events.ListByUserAndTimeRange(ctx, userID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	events = ReconcileCorrections(events)

	balance := &models.DailyBalance{UserID: userID, Date: date}

	// Presence is tracked per event, not per sum: a logged 0 kcal entry is
	// still information and must count toward completeness.
	var hasConsumption, hasExpenditure bool
	var weights []models.CalorieEvent
	for i := range events {
		ev := &events[i]
		switch ev.EventType {
		case models.EventTypeConsumed:
			balance.CaloriesConsumed += ev.Value
			hasConsumption = true
		case models.EventTypeBurnedExercise:
			balance.CaloriesBurnedExercise += ev.Value
			hasExpenditure = true
		case models.EventTypeBurnedBMR:
			balance.CaloriesBurnedBMR += ev.Value
			hasExpenditure = true
		case models.EventTypeWeight:
			weights = append(weights, *ev)
		}
		balance.EventsCount++
		if balance.LastEventTimestamp == nil || ev.EventTimestamp.After(*balance.LastEventTimestamp) {
			ts := ev.EventTimestamp
			balance.LastEventTimestamp = &ts
		}
	}

	balance.MorningWeight = firstWeightIn(weights, s.loc, s.windows.MorningStartHour, s.windows.MorningEndHour)
	balance.EveningWeight = lastWeightIn(weights, s.loc, s.windows.EveningStartHour, s.windows.EveningEndHour)

	goal, err := s.goals.ResolveActive(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	if goal != nil {
		target := goal.DailyCalorieTarget
		balance.DailyCalorieTarget = &target
		balance.DailyDeficitTarget = goal.DailyDeficitTarget
	}

	balance.DataCompletenessScore = completenessScore(hasConsumption, hasExpenditure, len(weights) > 0)

	return balance, nil
}

// completenessScore is the tiered heuristic: both sides of the balance
// present scores 1.0, one side 0.7, weight only 0.3, nothing 0.0. It is
// monotonic in information present.
func completenessScore(hasConsumption, hasExpenditure, hasWeight bool) float64 {
	switch {
	case hasConsumption && hasExpenditure:
		return 1.0
	case hasConsumption || hasExpenditure:
		return 0.7
	case hasWeight:
		return 0.3
	default:
		return 0.0
	}
}

// ReconcileCorrections collapses late-arriving corrections: for events
// sharing a (source, external_id) logical key, only the newest recorded
// version counts. Events without an external id are always kept. The input
// order (by event_timestamp) is preserved in the result.
func ReconcileCorrections(events []models.CalorieEvent) []models.CalorieEvent {
	type logicalKey struct {
		source     models.Source
		externalID string
	}

	newest := make(map[logicalKey]string)
	for i := range events {
		ev := &events[i]
		if ev.ExternalID == nil {
			continue
		}
		key := logicalKey{ev.Source, *ev.ExternalID}
		winnerID, seen := newest[key]
		if !seen {
			newest[key] = ev.ID
			continue
		}
		winner := findEvent(events, winnerID)
		if ev.RecordedAt.After(winner.RecordedAt) ||
			(ev.RecordedAt.Equal(winner.RecordedAt) && ev.ID > winner.ID) {
			newest[key] = ev.ID
		}
	}

	result := make([]models.CalorieEvent, 0, len(events))
	for i := range events {
		ev := &events[i]
		if ev.ExternalID != nil {
			key := logicalKey{ev.Source, *ev.ExternalID}
			if newest[key] != ev.ID {
				continue
			}
		}
		result = append(result, *ev)
	}
	return result
}

func findEvent(events []models.CalorieEvent, id string) *models.CalorieEvent {
	for i := range events {
		if events[i].ID == id {
			return &events[i]
		}
	}
	return nil
}
