package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kaldera-app/backend/internal/models"
)

type dailyBalanceRepository struct {
	db *gorm.DB
}

// NewDailyBalanceRepository creates a gorm-backed daily balance repository.
func NewDailyBalanceRepository(db *gorm.DB) DailyBalanceRepository {
	return &dailyBalanceRepository{db: db}
}

// Upsert writes the full recomputed row. Every derived column is assigned
// on conflict so a stale row can never survive a recompute.
func (r *dailyBalanceRepository) Upsert(ctx context.Context, balance *models.DailyBalance) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"calories_consumed",
				"calories_burned_exercise",
				"calories_burned_bmr",
				"morning_weight",
				"evening_weight",
				"daily_calorie_target",
				"daily_deficit_target",
				"events_count",
				"last_event_timestamp",
				"data_completeness_score",
				"updated_at",
			}),
		}).
		Create(balance).Error
	if err != nil {
		return fmt.Errorf("failed to upsert daily balance %s/%s: %w", balance.UserID, balance.Date, err)
	}
	return nil
}

func (r *dailyBalanceRepository) Get(ctx context.Context, userID, date string) (*models.DailyBalance, error) {
	var balance models.DailyBalance
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND date = ?", userID, date).
		First(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get daily balance %s/%s: %w", userID, date, err)
	}
	return &balance, nil
}

func (r *dailyBalanceRepository) GetRange(ctx context.Context, userID, from, to string) ([]models.DailyBalance, error) {
	var balances []models.DailyBalance
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, from, to).
		Order("date ASC").
		Find(&balances).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get daily balance range: %w", err)
	}
	return balances, nil
}
