package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/kaldera-app/backend/internal/models"
)

type goalRepository struct {
	db *gorm.DB
}

// NewGoalRepository creates a gorm-backed goal repository.
func NewGoalRepository(db *gorm.DB) GoalRepository {
	return &goalRepository{db: db}
}

func (r *goalRepository) Create(ctx context.Context, goal *models.CalorieGoal) error {
	if err := r.db.WithContext(ctx).Create(goal).Error; err != nil {
		return fmt.Errorf("failed to create goal: %w", err)
	}
	return nil
}

func (r *goalRepository) Update(ctx context.Context, goal *models.CalorieGoal) error {
	// Save writes all columns, including cleared nullable targets.
	if err := r.db.WithContext(ctx).Save(goal).Error; err != nil {
		return fmt.Errorf("failed to update goal %s: %w", goal.ID, err)
	}
	return nil
}

func (r *goalRepository) GetByID(ctx context.Context, id string) (*models.CalorieGoal, error) {
	var goal models.CalorieGoal
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&goal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get goal %s: %w", id, err)
	}
	return &goal, nil
}

func (r *goalRepository) ListActive(ctx context.Context, userID string) ([]models.CalorieGoal, error) {
	var goals []models.CalorieGoal
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("start_date DESC, created_at DESC").
		Find(&goals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active goals: %w", err)
	}
	return goals, nil
}

func (r *goalRepository) ListByUser(ctx context.Context, userID string) ([]models.CalorieGoal, error) {
	var goals []models.CalorieGoal
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("start_date DESC, created_at DESC").
		Find(&goals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	return goals, nil
}
