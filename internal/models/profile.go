package models

import "time"

// Gender is the closed set accepted by the metabolic calculator.
type Gender string

const (
	GenderMale        Gender = "male"
	GenderFemale      Gender = "female"
	GenderOther       Gender = "other"
	GenderUnspecified Gender = "unspecified"
)

// Valid reports whether g is a known gender value.
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther, GenderUnspecified:
		return true
	}
	return false
}

// ActivityLevel is the closed set of TDEE activity tiers.
type ActivityLevel string

const (
	ActivitySedentary ActivityLevel = "sedentary"
	ActivityLight     ActivityLevel = "light"
	ActivityModerate  ActivityLevel = "moderate"
	ActivityHigh      ActivityLevel = "high"
	ActivityExtreme   ActivityLevel = "extreme"
)

// Valid reports whether l is a known activity level.
func (l ActivityLevel) Valid() bool {
	switch l {
	case ActivitySedentary, ActivityLight, ActivityModerate, ActivityHigh, ActivityExtreme:
		return true
	}
	return false
}

// MetabolicProfile is a versioned calculation result. Exactly one row per
// user has is_active=true; a new calculation appends a version and
// deactivates the prior one in the same transaction.
type MetabolicProfile struct {
	ID                  string    `json:"id" gorm:"primaryKey;type:uuid"`
	UserID              string    `json:"user_id" gorm:"type:uuid;index;not null"`
	BMRCalories         float64   `json:"bmr_calories" gorm:"not null"`
	TDEECalories        float64   `json:"tdee_calories" gorm:"not null"`
	RMRCalories         *float64  `json:"rmr_calories,omitempty"`
	CalculationMethod   string    `json:"calculation_method" gorm:"not null"`
	AccuracyScore       float64   `json:"accuracy_score"`
	SedentaryMultiplier float64   `json:"sedentary_multiplier"`
	LightMultiplier     float64   `json:"light_multiplier"`
	ModerateMultiplier  float64   `json:"moderate_multiplier"`
	HighMultiplier      float64   `json:"high_multiplier"`
	ExtremeMultiplier   float64   `json:"extreme_multiplier"`
	AIAdjusted          bool      `json:"ai_adjusted"`
	AdjustmentFactor    *float64  `json:"adjustment_factor,omitempty"`
	CalculatedAt        time.Time `json:"calculated_at" gorm:"not null"`
	ExpiresAt           time.Time `json:"expires_at" gorm:"not null"`
	IsActive            bool      `json:"is_active" gorm:"not null"`
}

// Expired reports whether the profile is past its validity window at t.
func (p *MetabolicProfile) Expired(t time.Time) bool {
	return t.After(p.ExpiresAt)
}

// CalculateProfileRequest carries the user attributes by value — identity is
// an external collaborator and this service never looks attributes up.
type CalculateProfileRequest struct {
	UserID           string   `json:"user_id"`
	WeightKg         float64  `json:"weight_kg"`
	HeightCm         float64  `json:"height_cm"`
	Gender           string   `json:"gender"`
	AgeYears         int      `json:"age_years"`
	ActivityLevel    string   `json:"activity_level"`
	RMRCalories      *float64 `json:"rmr_calories"`
	AdjustmentFactor *float64 `json:"adjustment_factor"`
}

// MetabolicProfileResponse wraps the stored profile with an expiry
// indication so callers can trigger recalculation.
type MetabolicProfileResponse struct {
	MetabolicProfile
	Expired bool `json:"expired"`
}
