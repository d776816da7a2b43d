package service

import (
	"context"

	"github.com/kaldera-app/backend/internal/models"
)

// EventService is the ingestion edge of the ledger: validation, idempotent
// append, and recompute triggering.
type EventService interface {
	Append(ctx context.Context, req *models.CreateEventRequest) (*models.CreateEventResponse, error)
	AppendBatch(ctx context.Context, req *models.BatchCreateEventsRequest) (*models.BatchCreateEventsResponse, error)
	List(ctx context.Context, userID string, filter models.EventFilter) ([]models.CalorieEvent, error)
}

// BalanceService materializes and serves the per-(user, date) aggregate.
type BalanceService interface {
	// RecomputeDay rebuilds the DailyBalance row for (userID, date) from
	// the full event set of that day. Idempotent and order-independent.
	RecomputeDay(ctx context.Context, userID, date string) (*models.DailyBalance, error)
	// RecomputeRange re-aggregates every day in [from, to], for explicit
	// re-aggregation after goal changes or historical imports.
	RecomputeRange(ctx context.Context, userID, from, to string) (int, error)
	// GetDay returns the materialized row, computing it on the fly when no
	// row has been persisted yet.
	GetDay(ctx context.Context, userID, date string) (*models.DailyBalanceResponse, error)
}

// RollupService serves the five read-side projections.
type RollupService interface {
	Rollup(ctx context.Context, userID string, granularity models.Granularity, from, to string) (*models.RollupResponse, error)
}

// GoalService manages time-bounded calorie targets.
type GoalService interface {
	Create(ctx context.Context, req *models.CreateGoalRequest) (*models.CalorieGoal, error)
	Update(ctx context.Context, goalID string, req *models.UpdateGoalRequest) (*models.CalorieGoal, error)
	Deactivate(ctx context.Context, goalID string) (*models.CalorieGoal, error)
	// ResolveActive returns the goal in force for date, or nil when none.
	// Overlaps resolve to the most recent start_date.
	ResolveActive(ctx context.Context, userID, date string) (*models.CalorieGoal, error)
	History(ctx context.Context, userID string) ([]models.CalorieGoal, error)
}

// ProfileService computes and versions metabolic profiles.
type ProfileService interface {
	Calculate(ctx context.Context, req *models.CalculateProfileRequest) (*models.MetabolicProfile, error)
	Active(ctx context.Context, userID string) (*models.MetabolicProfileResponse, error)
}

// Recomputer decouples ingestion from the recompute execution mode: the
// coordinator behind this interface may run inline or queue per-day work.
type Recomputer interface {
	Trigger(userID, date string)
}
