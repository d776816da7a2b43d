package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/kaldera-app/backend/internal/logger"
	"github.com/kaldera-app/backend/internal/metrics"
	"github.com/kaldera-app/backend/internal/models"
	"github.com/kaldera-app/backend/internal/repository"
)

// maxListLimit caps event list pagination.
const maxListLimit = 500

type eventService struct {
	events              repository.EventRepository
	balances            BalanceService
	recomputer          Recomputer
	loc                 *time.Location
	backfillConcurrency int
}

// NewEventService creates the ingestion service. loc defines the local day
// used to map an event timestamp to its recompute bucket.
func NewEventService(events repository.EventRepository, balances BalanceService, recomputer Recomputer, loc *time.Location, backfillConcurrency int) EventService {
	if backfillConcurrency <= 0 {
		backfillConcurrency = 4
	}
	return &eventService{
		events:              events,
		balances:            balances,
		recomputer:          recomputer,
		loc:                 loc,
		backfillConcurrency: backfillConcurrency,
	}
}

func (s *eventService) Append(ctx context.Context, req *models.CreateEventRequest) (*models.CreateEventResponse, error) {
	event, err := s.validate(req)
	if err != nil {
		metrics.EventRejected("validation")
		return nil, err
	}

	stored, created, err := s.events.Append(ctx, event)
	if err != nil {
		return nil, err
	}

	if created {
		metrics.EventIngested(string(stored.EventType), string(stored.Source))
		s.recomputer.Trigger(stored.UserID, s.dayOf(stored.EventTimestamp))
	} else {
		logger.Ctx(ctx).Debug("idempotent event replay",
			logger.String("event_id", stored.ID),
		)
	}

	return &models.CreateEventResponse{EventID: stored.ID, Created: created}, nil
}

// AppendBatch is the backfill path. Validation is all-or-nothing so a
// partially stored import can never exist; affected days are recomputed
// concurrently since each day is an independent full rebuild.
func (s *eventService) AppendBatch(ctx context.Context, req *models.BatchCreateEventsRequest) (*models.BatchCreateEventsResponse, error) {
	if len(req.Events) == 0 {
		verr := &ValidationError{}
		return nil, verr.add("events", "must contain at least one event", "required")
	}

	verr := &ValidationError{}
	events := make([]models.CalorieEvent, 0, len(req.Events))
	for i := range req.Events {
		event, err := s.validate(&req.Events[i])
		if err != nil {
			if ve, ok := AsValidationError(err); ok {
				for _, v := range ve.Violations {
					verr.add(fmt.Sprintf("events[%d].%s", i, v.Field), v.Message, v.Code)
				}
				continue
			}
			return nil, err
		}
		events = append(events, *event)
	}
	if err := verr.orNil(); err != nil {
		metrics.EventRejected("validation")
		return nil, err
	}

	created, err := s.events.AppendBatch(ctx, events)
	if err != nil {
		return nil, err
	}
	for i := range events {
		metrics.EventIngested(string(events[i].EventType), string(events[i].Source))
	}

	days := s.distinctDays(events)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.backfillConcurrency)
	for userID, dates := range days {
		for date := range dates {
			userID, date := userID, date
			g.Go(func() error {
				_, err := s.balances.RecomputeDay(gctx, userID, date)
				return err
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("backfill recompute failed: %w", err)
	}

	recomputed := 0
	for _, dates := range days {
		recomputed += len(dates)
	}

	logger.Ctx(ctx).Info("backfill batch accepted",
		logger.Int("accepted", len(events)),
		logger.Int64("created", created),
		logger.Int("days_recomputed", recomputed),
	)

	return &models.BatchCreateEventsResponse{
		Accepted:       len(events),
		Duplicates:     len(events) - int(created),
		DaysRecomputed: recomputed,
	}, nil
}

func (s *eventService) List(ctx context.Context, userID string, filter models.EventFilter) ([]models.CalorieEvent, error) {
	if filter.Limit <= 0 || filter.Limit > maxListLimit {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.events.ListByUser(ctx, userID, filter)
}

// validate checks every range constraint from the ingestion contract and
// builds the immutable event. All violations are collected before failing.
func (s *eventService) validate(req *models.CreateEventRequest) (*models.CalorieEvent, error) {
	verr := &ValidationError{}

	if req.UserID == "" {
		verr.add("user_id", "is required", "required")
	} else if _, err := uuid.Parse(req.UserID); err != nil {
		verr.add("user_id", "must be a valid UUID", "invalid_uuid")
	}

	eventType := models.EventType(req.EventType)
	if req.EventType == "" {
		verr.add("event_type", "is required", "required")
	} else if !eventType.Valid() {
		verr.add("event_type", "must be one of consumed, burned_exercise, burned_bmr, weight", "invalid_enum")
	}

	source := models.Source(req.Source)
	if req.Source == "" {
		source = models.SourceManual
	} else if !source.Valid() {
		verr.add("source", "is not a recognized source", "invalid_enum")
	}

	var ts time.Time
	if req.EventTimestamp == "" {
		verr.add("event_timestamp", "is required", "required")
	} else {
		parsed, err := time.Parse(time.RFC3339, req.EventTimestamp)
		if err != nil {
			verr.add("event_timestamp", "must be a valid RFC3339 timestamp", "invalid_format")
		} else if parsed.After(time.Now().Add(MaxFutureMinutes * time.Minute)) {
			verr.add("event_timestamp", "cannot be more than 1 minute in the future", "future_timestamp")
		} else {
			ts = parsed.UTC().Truncate(time.Second)
		}
	}

	if req.Value == nil {
		verr.add("value", "is required", "required")
	} else if math.IsNaN(*req.Value) || math.IsInf(*req.Value, 0) {
		verr.add("value", "must be a finite number", "invalid_value")
	} else if eventType.Valid() {
		switch {
		case eventType.IsCalorie() && *req.Value < 0:
			verr.add("value", "calories cannot be negative", "out_of_range")
		case eventType == models.EventTypeWeight && (*req.Value < models.MinWeightKg || *req.Value > models.MaxWeightKg):
			verr.add("value", fmt.Sprintf("weight must be between %v and %v kg", models.MinWeightKg, models.MaxWeightKg), "out_of_range")
		}
	}

	confidence := 1.0
	if req.ConfidenceScore != nil {
		if math.IsNaN(*req.ConfidenceScore) || *req.ConfidenceScore < 0 || *req.ConfidenceScore > 1 {
			verr.add("confidence_score", "must be between 0 and 1", "out_of_range")
		} else {
			confidence = *req.ConfidenceScore
		}
	}

	id := req.ID
	if id == "" {
		generated, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate event id: %w", err)
		}
		id = generated.String()
	} else if err := ValidateUUIDv7(id); err != nil {
		verr.add("id", err.Error(), "invalid_uuid")
	}

	if err := verr.orNil(); err != nil {
		return nil, err
	}

	var metadata datatypes.JSONMap
	if len(req.Metadata) > 0 {
		metadata = datatypes.JSONMap(req.Metadata)
	}

	return &models.CalorieEvent{
		ID:              id,
		UserID:          req.UserID,
		EventType:       eventType,
		EventTimestamp:  ts,
		Value:           *req.Value,
		Source:          source,
		ConfidenceScore: confidence,
		ExternalID:      req.ExternalID,
		Metadata:        metadata,
	}, nil
}

func (s *eventService) dayOf(ts time.Time) string {
	return ts.In(s.loc).Format(models.DateLayout)
}

// distinctDays groups the batch into (user -> set of day keys) so each
// affected day is recomputed exactly once.
func (s *eventService) distinctDays(events []models.CalorieEvent) map[string]map[string]struct{} {
	days := make(map[string]map[string]struct{})
	for i := range events {
		userID := events[i].UserID
		date := s.dayOf(events[i].EventTimestamp)
		if days[userID] == nil {
			days[userID] = make(map[string]struct{})
		}
		days[userID][date] = struct{}{}
	}
	return days
}
