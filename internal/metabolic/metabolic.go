// Package metabolic holds the pure BMR/TDEE arithmetic. No storage, no
// clocks: callers pass every attribute by value, which keeps the formulas
// trivially testable and free of cross-service lookups.
package metabolic

import (
	"errors"
	"fmt"
	"math"

	"github.com/kaldera-app/backend/internal/models"
)

var (
	// ErrInvalidWeight indicates a non-positive or non-finite weight input
	ErrInvalidWeight = errors.New("weight must be a positive number")
	// ErrInvalidHeight indicates a non-positive or non-finite height input
	ErrInvalidHeight = errors.New("height must be a positive number")
	// ErrInvalidAge indicates an implausible age input
	ErrInvalidAge = errors.New("age must be between 1 and 130")
	// ErrUnknownGender indicates a gender outside the closed set
	ErrUnknownGender = errors.New("unknown gender")
	// ErrUnknownActivityLevel indicates an activity level outside the closed set
	ErrUnknownActivityLevel = errors.New("unknown activity level")
	// ErrAdjustmentOutOfRange indicates an AI adjustment factor outside [0.5, 2.0]
	ErrAdjustmentOutOfRange = errors.New("adjustment factor must be between 0.5 and 2.0")
)

// MethodMifflinStJeor identifies the BMR formula used by this package.
const MethodMifflinStJeor = "mifflin_st_jeor"

// Mifflin-St Jeor gender offsets. The "other/unspecified" offset is the
// midpoint of the male and female constants.
const (
	offsetMale    = 5.0
	offsetFemale  = -161.0
	offsetNeutral = -78.0
)

// activityMultipliers is the single source of truth for valid activity
// levels and their TDEE scaling.
var activityMultipliers = map[models.ActivityLevel]float64{
	models.ActivitySedentary: 1.20,
	models.ActivityLight:     1.375,
	models.ActivityModerate:  1.55,
	models.ActivityHigh:      1.725,
	models.ActivityExtreme:   1.90,
}

// AI adjustment factor bounds per spec'd correction policy.
const (
	MinAdjustmentFactor = 0.5
	MaxAdjustmentFactor = 2.0
)

// BMR computes basal metabolic rate in kcal/day via Mifflin-St Jeor:
// 10*weight + 6.25*height - 5*age + gender offset.
func BMR(weightKg, heightCm float64, gender models.Gender, ageYears int) (float64, error) {
	if weightKg <= 0 || math.IsNaN(weightKg) || math.IsInf(weightKg, 0) {
		return 0, ErrInvalidWeight
	}
	if heightCm <= 0 || math.IsNaN(heightCm) || math.IsInf(heightCm, 0) {
		return 0, ErrInvalidHeight
	}
	if ageYears < 1 || ageYears > 130 {
		return 0, ErrInvalidAge
	}

	base := 10*weightKg + 6.25*heightCm - 5*float64(ageYears)
	switch gender {
	case models.GenderMale:
		return base + offsetMale, nil
	case models.GenderFemale:
		return base + offsetFemale, nil
	case models.GenderOther, models.GenderUnspecified:
		return base + offsetNeutral, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownGender, gender)
	}
}

// TDEE scales a BMR by the activity multiplier table.
func TDEE(bmr float64, level models.ActivityLevel) (float64, error) {
	mult, ok := activityMultipliers[level]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownActivityLevel, level)
	}
	return bmr * mult, nil
}

// ApplyAIAdjustment applies a multiplicative correction to a TDEE. The
// factor is bounded so a runaway model cannot produce an absurd target.
func ApplyAIAdjustment(tdee, factor float64) (float64, error) {
	if factor < MinAdjustmentFactor || factor > MaxAdjustmentFactor || math.IsNaN(factor) {
		return 0, fmt.Errorf("%w: got %v", ErrAdjustmentOutOfRange, factor)
	}
	return tdee * factor, nil
}

// Multiplier returns the TDEE multiplier for a single activity level.
func Multiplier(level models.ActivityLevel) (float64, bool) {
	m, ok := activityMultipliers[level]
	return m, ok
}

// Multipliers returns the full activity multiplier table, in the fixed
// sedentary-to-extreme order used by MetabolicProfile columns.
func Multipliers() (sedentary, light, moderate, high, extreme float64) {
	return activityMultipliers[models.ActivitySedentary],
		activityMultipliers[models.ActivityLight],
		activityMultipliers[models.ActivityModerate],
		activityMultipliers[models.ActivityHigh],
		activityMultipliers[models.ActivityExtreme]
}
