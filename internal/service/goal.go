package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kaldera-app/backend/internal/logger"
	"github.com/kaldera-app/backend/internal/models"
	"github.com/kaldera-app/backend/internal/repository"
)

type goalService struct {
	goals repository.GoalRepository
}

// NewGoalService creates the goal manager.
func NewGoalService(goals repository.GoalRepository) GoalService {
	return &goalService{goals: goals}
}

func (s *goalService) Create(ctx context.Context, req *models.CreateGoalRequest) (*models.CalorieGoal, error) {
	verr := &ValidationError{}

	if req.UserID == "" {
		verr.add("user_id", "is required", "required")
	} else if _, err := uuid.Parse(req.UserID); err != nil {
		verr.add("user_id", "must be a valid UUID", "invalid_uuid")
	}

	goalType := models.GoalType(req.GoalType)
	if req.GoalType == "" {
		verr.add("goal_type", "is required", "required")
	} else if !goalType.Valid() {
		verr.add("goal_type", "is not a recognized goal type", "invalid_enum")
	}

	if req.DailyCalorieTarget <= 0 {
		verr.add("daily_calorie_target", "must be greater than zero", "out_of_range")
	}
	if req.DailyDeficitTarget != nil && *req.DailyDeficitTarget < 0 {
		verr.add("daily_deficit_target", "cannot be negative", "out_of_range")
	}

	if req.StartDate == "" {
		verr.add("start_date", "is required", "required")
	} else if _, err := time.Parse(models.DateLayout, req.StartDate); err != nil {
		verr.add("start_date", "must be a YYYY-MM-DD date", "invalid_format")
	}
	if req.EndDate != nil {
		if _, err := time.Parse(models.DateLayout, *req.EndDate); err != nil {
			verr.add("end_date", "must be a YYYY-MM-DD date", "invalid_format")
		} else if req.StartDate != "" && *req.EndDate < req.StartDate {
			verr.add("end_date", "must not be before start_date", "invalid_range")
		}
	}

	if err := verr.orNil(); err != nil {
		return nil, err
	}

	goal := &models.CalorieGoal{
		ID:                       uuid.NewString(),
		UserID:                   req.UserID,
		GoalType:                 goalType,
		DailyCalorieTarget:       req.DailyCalorieTarget,
		DailyDeficitTarget:       req.DailyDeficitTarget,
		WeeklyWeightChangeTarget: req.WeeklyWeightChangeTarget,
		StartDate:                req.StartDate,
		EndDate:                  req.EndDate,
		IsActive:                 true,
		AIOptimized:              req.AIOptimized,
	}

	// Overlapping active goals are accepted (each is independently valid)
	// and resolved deterministically at read time, but the ambiguity is
	// worth surfacing for operators.
	if overlap := s.findOverlap(ctx, goal); overlap != nil {
		logger.Ctx(ctx).Warn("new goal overlaps an active goal",
			logger.String("user_id", goal.UserID),
			logger.String("goal_id", goal.ID),
			logger.String("overlapping_goal_id", overlap.ID),
		)
	}

	if err := s.goals.Create(ctx, goal); err != nil {
		return nil, err
	}
	return goal, nil
}

func (s *goalService) Update(ctx context.Context, goalID string, req *models.UpdateGoalRequest) (*models.CalorieGoal, error) {
	goal, err := s.goals.GetByID(ctx, goalID)
	if err != nil {
		return nil, err
	}
	if goal == nil {
		return nil, fmt.Errorf("goal %s: %w", goalID, ErrNotFound)
	}

	verr := &ValidationError{}

	if req.GoalType != nil {
		goalType := models.GoalType(*req.GoalType)
		if !goalType.Valid() {
			verr.add("goal_type", "is not a recognized goal type", "invalid_enum")
		} else {
			goal.GoalType = goalType
		}
	}
	if req.DailyCalorieTarget != nil {
		if *req.DailyCalorieTarget <= 0 {
			verr.add("daily_calorie_target", "must be greater than zero", "out_of_range")
		} else {
			goal.DailyCalorieTarget = *req.DailyCalorieTarget
		}
	}
	if req.DailyDeficitTarget.Set {
		if req.DailyDeficitTarget.Valid && req.DailyDeficitTarget.Value < 0 {
			verr.add("daily_deficit_target", "cannot be negative", "out_of_range")
		} else {
			goal.DailyDeficitTarget = req.DailyDeficitTarget.ToPtr()
		}
	}
	if req.WeeklyWeightChangeTarget.Set {
		goal.WeeklyWeightChangeTarget = req.WeeklyWeightChangeTarget.ToPtr()
	}
	if req.StartDate != nil {
		if _, err := time.Parse(models.DateLayout, *req.StartDate); err != nil {
			verr.add("start_date", "must be a YYYY-MM-DD date", "invalid_format")
		} else {
			goal.StartDate = *req.StartDate
		}
	}
	if req.EndDate.Set {
		if req.EndDate.Valid {
			if _, err := time.Parse(models.DateLayout, req.EndDate.Value); err != nil {
				verr.add("end_date", "must be a YYYY-MM-DD date", "invalid_format")
			} else {
				goal.EndDate = req.EndDate.ToPtr()
			}
		} else {
			// Explicit null makes the goal open-ended.
			goal.EndDate = nil
		}
	}
	if req.AIOptimized != nil {
		goal.AIOptimized = *req.AIOptimized
	}

	if goal.EndDate != nil && *goal.EndDate < goal.StartDate {
		verr.add("end_date", "must not be before start_date", "invalid_range")
	}

	if err := verr.orNil(); err != nil {
		return nil, err
	}

	if err := s.goals.Update(ctx, goal); err != nil {
		return nil, err
	}
	return goal, nil
}

// Deactivate retires a goal. Existing DailyBalance rows keep the target
// captured at their aggregation time; only an explicit re-aggregation
// re-applies goal resolution to past dates.
func (s *goalService) Deactivate(ctx context.Context, goalID string) (*models.CalorieGoal, error) {
	goal, err := s.goals.GetByID(ctx, goalID)
	if err != nil {
		return nil, err
	}
	if goal == nil {
		return nil, fmt.Errorf("goal %s: %w", goalID, ErrNotFound)
	}
	if !goal.IsActive {
		return goal, nil
	}

	goal.IsActive = false
	if err := s.goals.Update(ctx, goal); err != nil {
		return nil, err
	}
	return goal, nil
}

// ResolveActive picks the goal in force for date. When several active goals
// cover the date (a data-entry error, accepted at write time), the most
// recent start_date wins, then created_at, then id - fully deterministic.
func (s *goalService) ResolveActive(ctx context.Context, userID, date string) (*models.CalorieGoal, error) {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		verr := &ValidationError{}
		return nil, verr.add("date", "must be a YYYY-MM-DD date", "invalid_format")
	}

	goals, err := s.goals.ListActive(ctx, userID)
	if err != nil {
		return nil, err
	}

	var winner *models.CalorieGoal
	matched := 0
	for i := range goals {
		g := &goals[i]
		if !g.Covers(date) {
			continue
		}
		matched++
		if winner == nil || goalWins(g, winner) {
			winner = g
		}
	}

	if matched > 1 {
		logger.Ctx(ctx).Warn("multiple active goals cover date, tie-break applied",
			logger.String("user_id", userID),
			logger.String("date", date),
			logger.Int("candidates", matched),
			logger.String("resolved_goal_id", winner.ID),
		)
	}
	return winner, nil
}

func (s *goalService) History(ctx context.Context, userID string) ([]models.CalorieGoal, error) {
	return s.goals.ListByUser(ctx, userID)
}

// goalWins reports whether a beats b under the overlap tie-break.
func goalWins(a, b *models.CalorieGoal) bool {
	if a.StartDate != b.StartDate {
		return a.StartDate > b.StartDate
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// findOverlap returns any active goal whose window intersects the new one.
// Errors are swallowed: overlap detection is advisory logging only.
func (s *goalService) findOverlap(ctx context.Context, goal *models.CalorieGoal) *models.CalorieGoal {
	existing, err := s.goals.ListActive(ctx, goal.UserID)
	if err != nil {
		return nil
	}
	for i := range existing {
		g := &existing[i]
		if g.EndDate != nil && *g.EndDate < goal.StartDate {
			continue
		}
		if goal.EndDate != nil && g.StartDate > *goal.EndDate {
			continue
		}
		return g
	}
	return nil
}
