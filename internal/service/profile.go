package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kaldera-app/backend/internal/logger"
	"github.com/kaldera-app/backend/internal/metabolic"
	"github.com/kaldera-app/backend/internal/models"
	"github.com/kaldera-app/backend/internal/repository"
)

// DefaultProfileValidity is how long a calculation stays fresh before a
// recalculation is expected.
const DefaultProfileValidity = 30 * 24 * time.Hour

type profileService struct {
	profiles repository.ProfileRepository
	validity time.Duration
	now      func() time.Time
}

// NewProfileService creates the metabolic profile service. validity <= 0
// selects the default 30-day window.
func NewProfileService(profiles repository.ProfileRepository, validity time.Duration) ProfileService {
	if validity <= 0 {
		validity = DefaultProfileValidity
	}
	return &profileService{
		profiles: profiles,
		validity: validity,
		now:      time.Now,
	}
}

// Calculate runs the Mifflin-St Jeor pipeline on caller-supplied attributes
// and stores the result as a new profile version. The prior version is
// deactivated, never overwritten.
func (s *profileService) Calculate(ctx context.Context, req *models.CalculateProfileRequest) (*models.MetabolicProfile, error) {
	verr := &ValidationError{}

	if req.UserID == "" {
		verr.add("user_id", "is required", "required")
	} else if _, err := uuid.Parse(req.UserID); err != nil {
		verr.add("user_id", "must be a valid UUID", "invalid_uuid")
	}

	gender := models.Gender(req.Gender)
	if req.Gender == "" {
		gender = models.GenderUnspecified
	} else if !gender.Valid() {
		verr.add("gender", "is not a recognized gender", "invalid_enum")
	}

	level := models.ActivityLevel(req.ActivityLevel)
	if req.ActivityLevel == "" {
		verr.add("activity_level", "is required", "required")
	} else if !level.Valid() {
		verr.add("activity_level", "is not a recognized activity level", "invalid_enum")
	}

	if err := verr.orNil(); err != nil {
		return nil, err
	}

	bmr, err := metabolic.BMR(req.WeightKg, req.HeightCm, gender, req.AgeYears)
	if err != nil {
		return nil, calcErrToValidation(err)
	}
	tdee, err := metabolic.TDEE(bmr, level)
	if err != nil {
		return nil, calcErrToValidation(err)
	}

	adjusted := false
	if req.AdjustmentFactor != nil {
		tdee, err = metabolic.ApplyAIAdjustment(tdee, *req.AdjustmentFactor)
		if err != nil {
			return nil, calcErrToValidation(err)
		}
		adjusted = true
	}

	if req.RMRCalories != nil && *req.RMRCalories <= 0 {
		verr = &ValidationError{}
		return nil, verr.add("rmr_calories", "must be greater than zero", "out_of_range")
	}

	now := s.now().UTC()
	sedentary, light, moderate, high, extreme := metabolic.Multipliers()
	profile := &models.MetabolicProfile{
		ID:                  uuid.NewString(),
		UserID:              req.UserID,
		BMRCalories:         bmr,
		TDEECalories:        tdee,
		RMRCalories:         req.RMRCalories,
		CalculationMethod:   metabolic.MethodMifflinStJeor,
		AccuracyScore:       accuracyScore(req),
		SedentaryMultiplier: sedentary,
		LightMultiplier:     light,
		ModerateMultiplier:  moderate,
		HighMultiplier:      high,
		ExtremeMultiplier:   extreme,
		AIAdjusted:          adjusted,
		AdjustmentFactor:    req.AdjustmentFactor,
		CalculatedAt:        now,
		ExpiresAt:           now.Add(s.validity),
		IsActive:            true,
	}

	if err := s.profiles.CreateVersion(ctx, profile); err != nil {
		return nil, err
	}

	logger.Ctx(ctx).Info("metabolic profile calculated",
		logger.String("user_id", req.UserID),
		logger.Float64("bmr", bmr),
		logger.Float64("tdee", tdee),
		logger.Bool("ai_adjusted", adjusted),
	)
	return profile, nil
}

func (s *profileService) Active(ctx context.Context, userID string) (*models.MetabolicProfileResponse, error) {
	profile, err := s.profiles.GetActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNoActiveProfile)
	}
	return &models.MetabolicProfileResponse{
		MetabolicProfile: *profile,
		Expired:          profile.Expired(s.now()),
	}, nil
}

// accuracyScore is a crude estimate of calculation confidence: a measured
// RMR raises it, a formula-only result stays lower.
func accuracyScore(req *models.CalculateProfileRequest) float64 {
	if req.RMRCalories != nil {
		return 0.9
	}
	if models.Gender(req.Gender) == models.GenderMale || models.Gender(req.Gender) == models.GenderFemale {
		return 0.75
	}
	// Neutral offset is a documented compromise with wider error bars.
	return 0.65
}

// calcErrToValidation maps calculator input errors onto field violations so
// the API surfaces them as 400s rather than 500s.
func calcErrToValidation(err error) error {
	verr := &ValidationError{}
	switch {
	case errors.Is(err, metabolic.ErrInvalidWeight):
		return verr.add("weight_kg", "must be a positive number", "out_of_range")
	case errors.Is(err, metabolic.ErrInvalidHeight):
		return verr.add("height_cm", "must be a positive number", "out_of_range")
	case errors.Is(err, metabolic.ErrInvalidAge):
		return verr.add("age_years", "must be between 1 and 130", "out_of_range")
	case errors.Is(err, metabolic.ErrUnknownGender):
		return verr.add("gender", "is not a recognized gender", "invalid_enum")
	case errors.Is(err, metabolic.ErrUnknownActivityLevel):
		return verr.add("activity_level", "is not a recognized activity level", "invalid_enum")
	case errors.Is(err, metabolic.ErrAdjustmentOutOfRange):
		return verr.add("adjustment_factor", "must be between 0.5 and 2.0", "out_of_range")
	default:
		return err
	}
}
