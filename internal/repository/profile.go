package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/kaldera-app/backend/internal/models"
)

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a gorm-backed metabolic profile repository.
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

// CreateVersion appends the new profile version and retires the prior
// active one atomically, preserving the single-active invariant.
func (r *profileRepository) CreateVersion(ctx context.Context, profile *models.MetabolicProfile) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.MetabolicProfile{}).
			Where("user_id = ? AND is_active = ?", profile.UserID, true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Create(profile).Error
	})
	if err != nil {
		return fmt.Errorf("failed to create profile version: %w", err)
	}
	return nil
}

func (r *profileRepository) GetActive(ctx context.Context, userID string) (*models.MetabolicProfile, error) {
	var profile models.MetabolicProfile
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active profile: %w", err)
	}
	return &profile, nil
}
