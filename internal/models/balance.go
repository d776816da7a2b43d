package models

import "time"

// DateLayout is the canonical day key format for balances and rollups.
const DateLayout = "2006-01-02"

// DailyBalance is the materialized per-(user, date) aggregate. It is a cache
// over the event log: every column is rebuilt from scratch on recompute, and
// net_calories / target_deviation are derived on read, never stored.
type DailyBalance struct {
	ID                     uint       `json:"-" gorm:"primaryKey"`
	UserID                 string     `json:"user_id" gorm:"type:uuid;uniqueIndex:idx_balance_user_date,priority:1;not null"`
	Date                   string     `json:"date" gorm:"uniqueIndex:idx_balance_user_date,priority:2;not null"`
	CaloriesConsumed       float64    `json:"calories_consumed"`
	CaloriesBurnedExercise float64    `json:"calories_burned_exercise"`
	CaloriesBurnedBMR      float64    `json:"calories_burned_bmr"`
	MorningWeight          *float64   `json:"morning_weight,omitempty"`
	EveningWeight          *float64   `json:"evening_weight,omitempty"`
	DailyCalorieTarget     *float64   `json:"daily_calorie_target,omitempty"`
	DailyDeficitTarget     *float64   `json:"daily_deficit_target,omitempty"`
	EventsCount            int        `json:"events_count"`
	LastEventTimestamp     *time.Time `json:"last_event_timestamp,omitempty"`
	DataCompletenessScore  float64    `json:"data_completeness_score"`
	UpdatedAt              time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// NetCalories derives consumed minus total expenditure.
func (b *DailyBalance) NetCalories() float64 {
	return b.CaloriesConsumed - (b.CaloriesBurnedExercise + b.CaloriesBurnedBMR)
}

// TargetDeviation derives net minus the day's target, or nil when no goal
// was in force (distinguishing "on target" from "no target").
func (b *DailyBalance) TargetDeviation() *float64 {
	if b.DailyCalorieTarget == nil {
		return nil
	}
	d := b.NetCalories() - *b.DailyCalorieTarget
	return &d
}

// DailyBalanceResponse is the read DTO: the stored columns plus the two
// derived values computed at serialization time.
type DailyBalanceResponse struct {
	UserID                 string     `json:"user_id"`
	Date                   string     `json:"date"`
	CaloriesConsumed       float64    `json:"calories_consumed"`
	CaloriesBurnedExercise float64    `json:"calories_burned_exercise"`
	CaloriesBurnedBMR      float64    `json:"calories_burned_bmr"`
	NetCalories            float64    `json:"net_calories"`
	MorningWeight          *float64   `json:"morning_weight"`
	EveningWeight          *float64   `json:"evening_weight"`
	DailyCalorieTarget     *float64   `json:"daily_calorie_target"`
	TargetDeviation        *float64   `json:"target_deviation"`
	EventsCount            int        `json:"events_count"`
	LastEventTimestamp     *time.Time `json:"last_event_timestamp"`
	DataCompletenessScore  float64    `json:"data_completeness_score"`
}

// ToResponse materializes the derived fields for the wire.
func (b *DailyBalance) ToResponse() *DailyBalanceResponse {
	return &DailyBalanceResponse{
		UserID:                 b.UserID,
		Date:                   b.Date,
		CaloriesConsumed:       b.CaloriesConsumed,
		CaloriesBurnedExercise: b.CaloriesBurnedExercise,
		CaloriesBurnedBMR:      b.CaloriesBurnedBMR,
		NetCalories:            b.NetCalories(),
		MorningWeight:          b.MorningWeight,
		EveningWeight:          b.EveningWeight,
		DailyCalorieTarget:     b.DailyCalorieTarget,
		TargetDeviation:        b.TargetDeviation(),
		EventsCount:            b.EventsCount,
		LastEventTimestamp:     b.LastEventTimestamp,
		DataCompletenessScore:  b.DataCompletenessScore,
	}
}
