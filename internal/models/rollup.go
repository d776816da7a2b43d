package models

import "time"

// Granularity selects one of the five read-side projections.
type Granularity string

const (
	GranularityHourly  Granularity = "hourly"
	GranularityDaily   Granularity = "daily"
	GranularityWeekly  Granularity = "weekly"
	GranularityMonthly Granularity = "monthly"
	GranularitySummary Granularity = "summary"
)

// Valid reports whether g is a known granularity.
func (g Granularity) Valid() bool {
	switch g {
	case GranularityHourly, GranularityDaily, GranularityWeekly,
		GranularityMonthly, GranularitySummary:
		return true
	}
	return false
}

// HourlyRollup aggregates one hour-of-day bucket (0-23) across the queried
// range, for time-of-day pattern analytics.
type HourlyRollup struct {
	HourOfDay              int      `json:"hour_of_day"`
	CaloriesConsumed       float64  `json:"calories_consumed"`
	CaloriesBurnedExercise float64  `json:"calories_burned_exercise"`
	CaloriesBurnedBMR      float64  `json:"calories_burned_bmr"`
	EventCount             int      `json:"event_count"`
	SourceVariety          int      `json:"source_variety"`
	LastWeight             *float64 `json:"last_weight"`
}

// DailyRollup aggregates one calendar day.
type DailyRollup struct {
	Date                   string   `json:"date"`
	CaloriesConsumed       float64  `json:"calories_consumed"`
	CaloriesBurnedExercise float64  `json:"calories_burned_exercise"`
	CaloriesBurnedBMR      float64  `json:"calories_burned_bmr"`
	MorningWeight          *float64 `json:"morning_weight"`
	EveningWeight          *float64 `json:"evening_weight"`
	ActiveHours            int      `json:"active_hours"`
	DailyCalorieTarget     *float64 `json:"daily_calorie_target"`
	EventCount             int      `json:"event_count"`
}

// WeeklyRollup aggregates one ISO week.
type WeeklyRollup struct {
	ISOYear                int      `json:"iso_year"`
	ISOWeek                int      `json:"iso_week"`
	WeekStart              string   `json:"week_start"`
	CaloriesConsumed       float64  `json:"calories_consumed"`
	CaloriesBurnedExercise float64  `json:"calories_burned_exercise"`
	CaloriesBurnedBMR      float64  `json:"calories_burned_bmr"`
	ActiveDays             int      `json:"active_days"`
	AvgDailyConsumed       float64  `json:"avg_daily_consumed"`
	AvgDailyBurned         float64  `json:"avg_daily_burned"`
	WeekStartWeight        *float64 `json:"week_start_weight"`
	WeekEndWeight          *float64 `json:"week_end_weight"`
}

// MonthlyRollup aggregates one calendar month.
type MonthlyRollup struct {
	Year                   int     `json:"year"`
	Month                  int     `json:"month"`
	CaloriesConsumed       float64 `json:"calories_consumed"`
	CaloriesBurnedExercise float64 `json:"calories_burned_exercise"`
	CaloriesBurnedBMR      float64 `json:"calories_burned_bmr"`
	ActiveDays             int     `json:"active_days"`
	ActiveWeeks            int     `json:"active_weeks"`
	AvgDailyConsumed       float64 `json:"avg_daily_consumed"`
	AvgWeeklyConsumed      float64 `json:"avg_weekly_consumed"`
}

// BalanceSummaryRollup is the goal-aware per-day projection.
// GoalAchieved is nil when no deficit target exists for the day
// (not computable, distinct from false).
type BalanceSummaryRollup struct {
	Date                  string   `json:"date"`
	NetCalories           float64  `json:"net_calories"`
	DailyCalorieTarget    *float64 `json:"daily_calorie_target"`
	TargetDeviation       *float64 `json:"target_deviation"`
	GoalAchieved          *bool    `json:"goal_achieved"`
	DataCompletenessScore float64  `json:"data_completeness_score"`
}

// RollupResponse is the envelope for all five projections. ComputedAt makes
// staleness observable when results come from a cache.
type RollupResponse struct {
	UserID      string                 `json:"user_id"`
	Granularity Granularity            `json:"granularity"`
	From        string                 `json:"from"`
	To          string                 `json:"to"`
	ComputedAt  time.Time              `json:"computed_at"`
	Hourly      []HourlyRollup         `json:"hourly,omitempty"`
	Daily       []DailyRollup          `json:"daily,omitempty"`
	Weekly      []WeeklyRollup         `json:"weekly,omitempty"`
	Monthly     []MonthlyRollup        `json:"monthly,omitempty"`
	Summary     []BalanceSummaryRollup `json:"summary,omitempty"`
}
