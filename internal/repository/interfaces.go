package repository

import (
	"context"
	"time"

	"github.com/kaldera-app/backend/internal/models"
)

// EventRepository is the append-only ledger access contract.
type EventRepository interface {
	// Append inserts the event, or is a no-op when the id already exists.
	// The bool reports whether this call created the row.
	Append(ctx context.Context, event *models.CalorieEvent) (*models.CalorieEvent, bool, error)
	// AppendBatch inserts many events in one statement, skipping known ids.
	// Returns the number of newly created rows.
	AppendBatch(ctx context.Context, events []models.CalorieEvent) (int64, error)
	GetByID(ctx context.Context, id string) (*models.CalorieEvent, error)
	// ListByUser returns events matching the filter ordered by
	// event_timestamp ascending.
	ListByUser(ctx context.Context, userID string, filter models.EventFilter) ([]models.CalorieEvent, error)
	// ListByUserAndTimeRange returns all events in [from, to) ordered by
	// event_timestamp ascending, with no pagination. This is the read the
	// aggregator and rollup engine replay from.
	ListByUserAndTimeRange(ctx context.Context, userID string, from, to time.Time) ([]models.CalorieEvent, error)
}

// DailyBalanceRepository stores the materialized per-(user, date) rows.
type DailyBalanceRepository interface {
	// Upsert replaces every derived column of the (user_id, date) row with
	// the values in balance. A full-row write, never an increment.
	Upsert(ctx context.Context, balance *models.DailyBalance) error
	Get(ctx context.Context, userID, date string) (*models.DailyBalance, error)
	// GetRange returns rows with date in [from, to], ordered by date.
	GetRange(ctx context.Context, userID, from, to string) ([]models.DailyBalance, error)
}

// GoalRepository stores calorie goals. Goals are deactivated, never deleted.
type GoalRepository interface {
	Create(ctx context.Context, goal *models.CalorieGoal) error
	Update(ctx context.Context, goal *models.CalorieGoal) error
	GetByID(ctx context.Context, id string) (*models.CalorieGoal, error)
	// ListActive returns all active goals for the user (overlap resolution
	// happens in the service, where the tie-break is logged).
	ListActive(ctx context.Context, userID string) ([]models.CalorieGoal, error)
	ListByUser(ctx context.Context, userID string) ([]models.CalorieGoal, error)
}

// ProfileRepository stores versioned metabolic profiles.
type ProfileRepository interface {
	// CreateVersion inserts the new profile and deactivates any prior
	// active profile for the user in the same transaction.
	CreateVersion(ctx context.Context, profile *models.MetabolicProfile) error
	GetActive(ctx context.Context, userID string) (*models.MetabolicProfile, error)
}

// IdempotencyRepository caches responses for replay of retried requests.
type IdempotencyRepository interface {
	// Get returns the cached record, or nil when the key is unseen.
	Get(ctx context.Context, key, route, userID string) (*models.IdempotencyKey, error)
	Store(ctx context.Context, key, route, userID string, responseBody []byte, statusCode int) error
}
