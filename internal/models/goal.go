package models

import "time"

// GoalType is the closed set of goal categories.
type GoalType string

const (
	GoalTypeWeightLoss    GoalType = "weight_loss"
	GoalTypeWeightGain    GoalType = "weight_gain"
	GoalTypeMaintain      GoalType = "maintain_weight"
	GoalTypeMuscleGain    GoalType = "muscle_gain"
	GoalTypePerformance   GoalType = "performance"
)

// Valid reports whether t is a known goal type.
func (t GoalType) Valid() bool {
	switch t {
	case GoalTypeWeightLoss, GoalTypeWeightGain, GoalTypeMaintain,
		GoalTypeMuscleGain, GoalTypePerformance:
		return true
	}
	return false
}

// CalorieGoal is a time-bounded daily calorie target. Goals are never hard
// deleted; superseded goals are deactivated and retained so historical
// target_deviation values stay explainable.
type CalorieGoal struct {
	ID                       string    `json:"id" gorm:"primaryKey;type:uuid"`
	UserID                   string    `json:"user_id" gorm:"type:uuid;index;not null"`
	GoalType                 GoalType  `json:"goal_type" gorm:"not null"`
	DailyCalorieTarget       float64   `json:"daily_calorie_target" gorm:"not null"`
	DailyDeficitTarget       *float64  `json:"daily_deficit_target,omitempty"`
	WeeklyWeightChangeTarget *float64  `json:"weekly_weight_change_target,omitempty"`
	StartDate                string    `json:"start_date" gorm:"not null"`
	EndDate                  *string   `json:"end_date,omitempty"`
	IsActive                 bool      `json:"is_active" gorm:"not null"`
	AIOptimized              bool      `json:"ai_optimized"`
	CreatedAt                time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt                time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Covers reports whether date (a DateLayout key) falls inside the goal's
// [start_date, end_date] window. An absent end_date means open-ended.
func (g *CalorieGoal) Covers(date string) bool {
	if date < g.StartDate {
		return false
	}
	if g.EndDate != nil && date > *g.EndDate {
		return false
	}
	return true
}

// UpdateGoalRequest is a partial update: absent fields are left unchanged,
// explicit nulls clear the optional targets (NullableFloat64 keeps the two
// states apart).
type UpdateGoalRequest struct {
	GoalType                 *string         `json:"goal_type"`
	DailyCalorieTarget       *float64        `json:"daily_calorie_target"`
	DailyDeficitTarget       NullableFloat64 `json:"daily_deficit_target"`
	WeeklyWeightChangeTarget NullableFloat64 `json:"weekly_weight_change_target"`
	StartDate                *string         `json:"start_date"`
	EndDate                  NullableString  `json:"end_date"`
	AIOptimized              *bool           `json:"ai_optimized"`
}

// CreateGoalRequest is the payload for setting a new target.
type CreateGoalRequest struct {
	UserID                   string   `json:"user_id"`
	GoalType                 string   `json:"goal_type"`
	DailyCalorieTarget       float64  `json:"daily_calorie_target"`
	DailyDeficitTarget       *float64 `json:"daily_deficit_target"`
	WeeklyWeightChangeTarget *float64 `json:"weekly_weight_change_target"`
	StartDate                string   `json:"start_date"`
	EndDate                  *string  `json:"end_date"`
	AIOptimized              bool     `json:"ai_optimized"`
}
