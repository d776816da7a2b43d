package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kaldera-app/backend/internal/models"
)

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a gorm-backed event repository.
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

// Append relies on the primary key for structural idempotency: a retried
// insert of a known id hits ON CONFLICT DO NOTHING and the stored row is
// returned unchanged.
func (r *eventRepository) Append(ctx context.Context, event *models.CalorieEvent) (*models.CalorieEvent, bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(event)
	if res.Error != nil {
		return nil, false, fmt.Errorf("failed to append event: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		existing, err := r.GetByID(ctx, event.ID)
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			return nil, false, fmt.Errorf("event %s conflicted but is not readable", event.ID)
		}
		return existing, false, nil
	}

	return event, true, nil
}

func (r *eventRepository) AppendBatch(ctx context.Context, events []models.CalorieEvent) (int64, error) {
	if len(events) == 0 {
		return 0, nil
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&events)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to append event batch: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*models.CalorieEvent, error) {
	var event models.CalorieEvent
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event %s: %w", id, err)
	}
	return &event, nil
}

func (r *eventRepository) ListByUser(ctx context.Context, userID string, filter models.EventFilter) ([]models.CalorieEvent, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)

	if filter.EventType != nil {
		q = q.Where("event_type = ?", *filter.EventType)
	}
	if !filter.From.IsZero() {
		q = q.Where("event_timestamp >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		q = q.Where("event_timestamp < ?", filter.To)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var events []models.CalorieEvent
	if err := q.Order("event_timestamp ASC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

func (r *eventRepository) ListByUserAndTimeRange(ctx context.Context, userID string, from, to time.Time) ([]models.CalorieEvent, error) {
	var events []models.CalorieEvent
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND event_timestamp >= ? AND event_timestamp < ?", userID, from, to).
		Order("event_timestamp ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list events in range: %w", err)
	}
	return events, nil
}
