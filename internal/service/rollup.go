package service

import (
	"context"
	"sort"
	"time"

	"github.com/kaldera-app/backend/internal/models"
	"github.com/kaldera-app/backend/internal/repository"
)

type rollupService struct {
	events  repository.EventRepository
	goals   GoalService
	loc     *time.Location
	windows WeightWindows
	now     func() time.Time
}

// NewRollupService creates the read-side projection engine. All five
// granularities are derived on demand from the event log, so any result is
// reproducible at any point in time.
func NewRollupService(events repository.EventRepository, goals GoalService, loc *time.Location, windows WeightWindows) RollupService {
	return &rollupService{
		events:  events,
		goals:   goals,
		loc:     loc,
		windows: windows,
		now:     time.Now,
	}
}

func (s *rollupService) Rollup(ctx context.Context, userID string, granularity models.Granularity, from, to string) (*models.RollupResponse, error) {
	verr := &ValidationError{}
	if !granularity.Valid() {
		verr.add("granularity", "must be one of hourly, daily, weekly, monthly, summary", "invalid_enum")
	}
	fromDay, err := time.ParseInLocation(models.DateLayout, from, s.loc)
	if err != nil {
		verr.add("from", "must be a YYYY-MM-DD date", "invalid_format")
	}
	toDay, err := time.ParseInLocation(models.DateLayout, to, s.loc)
	if err != nil {
		verr.add("to", "must be a YYYY-MM-DD date", "invalid_format")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}
	if toDay.Before(fromDay) {
		return nil, verr.add("to", "must not be before from", "invalid_range")
	}

	events, err := s.events.ListByUserAndTimeRange(ctx, userID, fromDay, toDay.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	events = ReconcileCorrections(events)

	resp := &models.RollupResponse{
		UserID:      userID,
		Granularity: granularity,
		From:        from,
		To:          to,
		ComputedAt:  s.now().UTC(),
	}

	switch granularity {
	case models.GranularityHourly:
		resp.Hourly = s.hourly(events)
	case models.GranularityDaily:
		resp.Daily, err = s.daily(ctx, userID, events)
	case models.GranularityWeekly:
		resp.Weekly = s.weekly(events)
	case models.GranularityMonthly:
		resp.Monthly = s.monthly(events)
	case models.GranularitySummary:
		resp.Summary, err = s.summary(ctx, userID, events)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// hourly groups by local hour-of-day across the whole range.
func (s *rollupService) hourly(events []models.CalorieEvent) []models.HourlyRollup {
	type bucket struct {
		row        models.HourlyRollup
		sources    map[models.Source]struct{}
		lastWeight *models.CalorieEvent
	}
	buckets := make(map[int]*bucket)

	for i := range events {
		ev := &events[i]
		hour := ev.EventTimestamp.In(s.loc).Hour()
		b, ok := buckets[hour]
		if !ok {
			b = &bucket{row: models.HourlyRollup{HourOfDay: hour}, sources: make(map[models.Source]struct{})}
			buckets[hour] = b
		}
		addCalories(&b.row.CaloriesConsumed, &b.row.CaloriesBurnedExercise, &b.row.CaloriesBurnedBMR, ev)
		b.row.EventCount++
		b.sources[ev.Source] = struct{}{}
		if ev.EventType == models.EventTypeWeight {
			if b.lastWeight == nil || ev.EventTimestamp.After(b.lastWeight.EventTimestamp) {
				b.lastWeight = ev
			}
		}
	}

	rows := make([]models.HourlyRollup, 0, len(buckets))
	for _, b := range buckets {
		b.row.SourceVariety = len(b.sources)
		if b.lastWeight != nil {
			v := b.lastWeight.Value
			b.row.LastWeight = &v
		}
		rows = append(rows, b.row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].HourOfDay < rows[j].HourOfDay })
	return rows
}

// daily groups by local calendar day; goal targets come from the goal in
// force for each day.
func (s *rollupService) daily(ctx context.Context, userID string, events []models.CalorieEvent) ([]models.DailyRollup, error) {
	byDay := groupByDay(events, s.loc)

	dates := sortedKeys(byDay)
	rows := make([]models.DailyRollup, 0, len(dates))
	for _, date := range dates {
		dayEvents := byDay[date]
		row := models.DailyRollup{Date: date}

		hours := make(map[int]struct{})
		var weights []models.CalorieEvent
		for i := range dayEvents {
			ev := &dayEvents[i]
			addCalories(&row.CaloriesConsumed, &row.CaloriesBurnedExercise, &row.CaloriesBurnedBMR, ev)
			row.EventCount++
			hours[ev.EventTimestamp.In(s.loc).Hour()] = struct{}{}
			if ev.EventType == models.EventTypeWeight {
				weights = append(weights, *ev)
			}
		}
		row.ActiveHours = len(hours)
		row.MorningWeight = firstWeightIn(weights, s.loc, s.windows.MorningStartHour, s.windows.MorningEndHour)
		row.EveningWeight = lastWeightIn(weights, s.loc, s.windows.EveningStartHour, s.windows.EveningEndHour)

		goal, err := s.goals.ResolveActive(ctx, userID, date)
		if err != nil {
			return nil, err
		}
		if goal != nil {
			target := goal.DailyCalorieTarget
			row.DailyCalorieTarget = &target
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// weekly groups by ISO week.
func (s *rollupService) weekly(events []models.CalorieEvent) []models.WeeklyRollup {
	type weekKey struct{ year, week int }
	type bucket struct {
		row         models.WeeklyRollup
		days        map[string]struct{}
		firstWeight *models.CalorieEvent
		lastWeight  *models.CalorieEvent
	}
	buckets := make(map[weekKey]*bucket)

	for i := range events {
		ev := &events[i]
		local := ev.EventTimestamp.In(s.loc)
		year, week := local.ISOWeek()
		key := weekKey{year, week}
		b, ok := buckets[key]
		if !ok {
			b = &bucket{
				row: models.WeeklyRollup{
					ISOYear:   year,
					ISOWeek:   week,
					WeekStart: isoWeekStart(local).Format(models.DateLayout),
				},
				days: make(map[string]struct{}),
			}
			buckets[key] = b
		}
		addCalories(&b.row.CaloriesConsumed, &b.row.CaloriesBurnedExercise, &b.row.CaloriesBurnedBMR, ev)
		b.days[local.Format(models.DateLayout)] = struct{}{}
		if ev.EventType == models.EventTypeWeight {
			if b.firstWeight == nil || ev.EventTimestamp.Before(b.firstWeight.EventTimestamp) {
				b.firstWeight = ev
			}
			if b.lastWeight == nil || ev.EventTimestamp.After(b.lastWeight.EventTimestamp) {
				b.lastWeight = ev
			}
		}
	}

	rows := make([]models.WeeklyRollup, 0, len(buckets))
	for _, b := range buckets {
		b.row.ActiveDays = len(b.days)
		if b.row.ActiveDays > 0 {
			b.row.AvgDailyConsumed = b.row.CaloriesConsumed / float64(b.row.ActiveDays)
			b.row.AvgDailyBurned = (b.row.CaloriesBurnedExercise + b.row.CaloriesBurnedBMR) / float64(b.row.ActiveDays)
		}
		if b.firstWeight != nil {
			v := b.firstWeight.Value
			b.row.WeekStartWeight = &v
		}
		if b.lastWeight != nil {
			v := b.lastWeight.Value
			b.row.WeekEndWeight = &v
		}
		rows = append(rows, b.row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ISOYear != rows[j].ISOYear {
			return rows[i].ISOYear < rows[j].ISOYear
		}
		return rows[i].ISOWeek < rows[j].ISOWeek
	})
	return rows
}

// monthly groups by local calendar month.
func (s *rollupService) monthly(events []models.CalorieEvent) []models.MonthlyRollup {
	type monthKey struct {
		year  int
		month time.Month
	}
	type weekKey struct{ year, week int }
	type bucket struct {
		row   models.MonthlyRollup
		days  map[string]struct{}
		weeks map[weekKey]struct{}
	}
	buckets := make(map[monthKey]*bucket)

	for i := range events {
		ev := &events[i]
		local := ev.EventTimestamp.In(s.loc)
		key := monthKey{local.Year(), local.Month()}
		b, ok := buckets[key]
		if !ok {
			b = &bucket{
				row:   models.MonthlyRollup{Year: key.year, Month: int(key.month)},
				days:  make(map[string]struct{}),
				weeks: make(map[weekKey]struct{}),
			}
			buckets[key] = b
		}
		addCalories(&b.row.CaloriesConsumed, &b.row.CaloriesBurnedExercise, &b.row.CaloriesBurnedBMR, ev)
		b.days[local.Format(models.DateLayout)] = struct{}{}
		wy, ww := local.ISOWeek()
		b.weeks[weekKey{wy, ww}] = struct{}{}
	}

	rows := make([]models.MonthlyRollup, 0, len(buckets))
	for _, b := range buckets {
		b.row.ActiveDays = len(b.days)
		b.row.ActiveWeeks = len(b.weeks)
		if b.row.ActiveDays > 0 {
			b.row.AvgDailyConsumed = b.row.CaloriesConsumed / float64(b.row.ActiveDays)
		}
		if b.row.ActiveWeeks > 0 {
			b.row.AvgWeeklyConsumed = b.row.CaloriesConsumed / float64(b.row.ActiveWeeks)
		}
		rows = append(rows, b.row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Year != rows[j].Year {
			return rows[i].Year < rows[j].Year
		}
		return rows[i].Month < rows[j].Month
	})
	return rows
}

// summary is the goal-aware per-day projection: net, deviation, and the
// goal_achieved verdict (nil when no deficit target makes it computable).
func (s *rollupService) summary(ctx context.Context, userID string, events []models.CalorieEvent) ([]models.BalanceSummaryRollup, error) {
	byDay := groupByDay(events, s.loc)

	dates := sortedKeys(byDay)
	rows := make([]models.BalanceSummaryRollup, 0, len(dates))
	for _, date := range dates {
		dayEvents := byDay[date]

		var consumed, exercise, bmr float64
		var hasConsumption, hasExpenditure, hasWeight bool
		for i := range dayEvents {
			ev := &dayEvents[i]
			switch ev.EventType {
			case models.EventTypeConsumed:
				consumed += ev.Value
				hasConsumption = true
			case models.EventTypeBurnedExercise:
				exercise += ev.Value
				hasExpenditure = true
			case models.EventTypeBurnedBMR:
				bmr += ev.Value
				hasExpenditure = true
			case models.EventTypeWeight:
				hasWeight = true
			}
		}

		row := models.BalanceSummaryRollup{
			Date:                  date,
			NetCalories:           consumed - (exercise + bmr),
			DataCompletenessScore: completenessScore(hasConsumption, hasExpenditure, hasWeight),
		}

		goal, err := s.goals.ResolveActive(ctx, userID, date)
		if err != nil {
			return nil, err
		}
		if goal != nil {
			target := goal.DailyCalorieTarget
			row.DailyCalorieTarget = &target
			deviation := row.NetCalories - target
			row.TargetDeviation = &deviation
			if goal.DailyDeficitTarget != nil {
				achieved := row.NetCalories <= target+*goal.DailyDeficitTarget
				row.GoalAchieved = &achieved
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// addCalories routes a calorie event's value to the right sum.
func addCalories(consumed, exercise, bmr *float64, ev *models.CalorieEvent) {
	switch ev.EventType {
	case models.EventTypeConsumed:
		*consumed += ev.Value
	case models.EventTypeBurnedExercise:
		*exercise += ev.Value
	case models.EventTypeBurnedBMR:
		*bmr += ev.Value
	}
}

func groupByDay(events []models.CalorieEvent, loc *time.Location) map[string][]models.CalorieEvent {
	byDay := make(map[string][]models.CalorieEvent)
	for i := range events {
		date := events[i].EventTimestamp.In(loc).Format(models.DateLayout)
		byDay[date] = append(byDay[date], events[i])
	}
	return byDay
}

func sortedKeys(m map[string][]models.CalorieEvent) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// firstWeightIn / lastWeightIn generalize the daily weight-window policy to
// any event slice sorted by timestamp.
func firstWeightIn(weights []models.CalorieEvent, loc *time.Location, startHour, endHour int) *float64 {
	for i := range weights {
		hour := weights[i].EventTimestamp.In(loc).Hour()
		if hour >= startHour && hour < endHour {
			v := weights[i].Value
			return &v
		}
	}
	return nil
}

func lastWeightIn(weights []models.CalorieEvent, loc *time.Location, startHour, endHour int) *float64 {
	for i := len(weights) - 1; i >= 0; i-- {
		hour := weights[i].EventTimestamp.In(loc).Hour()
		if hour >= startHour && hour < endHour {
			v := weights[i].Value
			return &v
		}
	}
	return nil
}

// isoWeekStart returns the Monday of t's ISO week at midnight.
func isoWeekStart(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	day := t.AddDate(0, 0, -(weekday - 1))
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, t.Location())
}
