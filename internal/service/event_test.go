package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kaldera-app/backend/internal/models"
)

func newTestEventService(events *mockEventRepository, recomputer *mockRecomputer) EventService {
	balances := newMockBalanceRepository()
	goals := newMockGoalRepository()
	balanceSvc := newTestBalanceService(events, balances, goals)
	return NewEventService(events, balanceSvc, recomputer, time.UTC, 2)
}

func validEventRequest(userID string) *models.CreateEventRequest {
	value := 500.0
	return &models.CreateEventRequest{
		UserID:         userID,
		EventType:      "consumed",
		EventTimestamp: time.Now().Add(-time.Hour).UTC().Format(time.RFC3339),
		Value:          &value,
		Source:         "manual",
	}
}

func TestAppendValidEvent(t *testing.T) {
	events := newMockEventRepository()
	recomputer := &mockRecomputer{}
	svc := newTestEventService(events, recomputer)

	resp, err := svc.Append(context.Background(), validEventRequest(uuid.NewString()))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if !resp.Created {
		t.Error("created = false, want true")
	}
	if resp.EventID == "" {
		t.Error("event_id is empty")
	}
	if recomputer.count() != 1 {
		t.Errorf("recompute triggers = %d, want 1", recomputer.count())
	}
}

func TestAppendIdempotentOnID(t *testing.T) {
	events := newMockEventRepository()
	recomputer := &mockRecomputer{}
	svc := newTestEventService(events, recomputer)
	ctx := context.Background()

	id, err := uuid.NewV7()
	if err != nil {
		t.Fatal(err)
	}
	req := validEventRequest(uuid.NewString())
	req.ID = id.String()

	first, err := svc.Append(ctx, req)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if !first.Created {
		t.Fatal("first append should create")
	}

	for i := 0; i < 10; i++ {
		replay, err := svc.Append(ctx, req)
		if err != nil {
			t.Fatalf("Append replay %d: %v", i, err)
		}
		if replay.Created {
			t.Errorf("replay %d reported created=true", i)
		}
		if replay.EventID != first.EventID {
			t.Errorf("replay %d returned id %s, want %s", i, replay.EventID, first.EventID)
		}
	}

	if len(events.events) != 1 {
		t.Errorf("stored events = %d, want 1", len(events.events))
	}
	// Replays must not re-trigger recompute.
	if recomputer.count() != 1 {
		t.Errorf("recompute triggers = %d, want 1", recomputer.count())
	}
}

func TestAppendValidationRejections(t *testing.T) {
	userID := uuid.NewString()

	mutate := func(f func(*models.CreateEventRequest)) *models.CreateEventRequest {
		req := validEventRequest(userID)
		f(req)
		return req
	}
	neg := -100.0
	lowWeight := 10.0
	highWeight := 600.0
	weightOK := 70.0
	badConfidence := 1.5
	negConfidence := -0.1

	cases := []struct {
		name  string
		req   *models.CreateEventRequest
		field string
	}{
		{"missing user_id", mutate(func(r *models.CreateEventRequest) { r.UserID = "" }), "user_id"},
		{"bad user_id", mutate(func(r *models.CreateEventRequest) { r.UserID = "not-a-uuid" }), "user_id"},
		{"missing event_type", mutate(func(r *models.CreateEventRequest) { r.EventType = "" }), "event_type"},
		{"unknown event_type", mutate(func(r *models.CreateEventRequest) { r.EventType = "steps" }), "event_type"},
		{"unknown source", mutate(func(r *models.CreateEventRequest) { r.Source = "carrier_pigeon" }), "source"},
		{"missing timestamp", mutate(func(r *models.CreateEventRequest) { r.EventTimestamp = "" }), "event_timestamp"},
		{"garbage timestamp", mutate(func(r *models.CreateEventRequest) { r.EventTimestamp = "yesterday" }), "event_timestamp"},
		{"future timestamp", mutate(func(r *models.CreateEventRequest) {
			r.EventTimestamp = time.Now().Add(10 * time.Minute).UTC().Format(time.RFC3339)
		}), "event_timestamp"},
		{"missing value", mutate(func(r *models.CreateEventRequest) { r.Value = nil }), "value"},
		{"negative calories", mutate(func(r *models.CreateEventRequest) { r.Value = &neg }), "value"},
		{"weight too low", mutate(func(r *models.CreateEventRequest) { r.EventType = "weight"; r.Value = &lowWeight }), "value"},
		{"weight too high", mutate(func(r *models.CreateEventRequest) { r.EventType = "weight"; r.Value = &highWeight }), "value"},
		{"confidence above 1", mutate(func(r *models.CreateEventRequest) { r.ConfidenceScore = &badConfidence }), "confidence_score"},
		{"confidence below 0", mutate(func(r *models.CreateEventRequest) { r.ConfidenceScore = &negConfidence }), "confidence_score"},
		{"non-v7 id", mutate(func(r *models.CreateEventRequest) { r.ID = uuid.NewString() }), "id"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			events := newMockEventRepository()
			recomputer := &mockRecomputer{}
			svc := newTestEventService(events, recomputer)

			_, err := svc.Append(context.Background(), tc.req)
			ve, ok := AsValidationError(err)
			if !ok {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			found := false
			for _, v := range ve.Violations {
				if v.Field == tc.field {
					found = true
				}
			}
			if !found {
				t.Errorf("violations %+v missing field %s", ve.Violations, tc.field)
			}
			if len(events.events) != 0 {
				t.Error("rejected event was stored")
			}
			if recomputer.count() != 0 {
				t.Error("rejected event triggered recompute")
			}
		})
	}

	// Boundary sanity: weight at the edges is accepted.
	events := newMockEventRepository()
	svc := newTestEventService(events, &mockRecomputer{})
	req := validEventRequest(userID)
	req.EventType = "weight"
	req.Value = &weightOK
	if _, err := svc.Append(context.Background(), req); err != nil {
		t.Errorf("valid weight rejected: %v", err)
	}
}

func TestAppendBatchAllOrNothing(t *testing.T) {
	events := newMockEventRepository()
	recomputer := &mockRecomputer{}
	svc := newTestEventService(events, recomputer)
	ctx := context.Background()

	userID := uuid.NewString()
	good := validEventRequest(userID)
	bad := validEventRequest(userID)
	neg := -50.0
	bad.Value = &neg

	_, err := svc.AppendBatch(ctx, &models.BatchCreateEventsRequest{
		Events: []models.CreateEventRequest{*good, *bad},
	})
	ve, ok := AsValidationError(err)
	if !ok {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if len(ve.Violations) == 0 || ve.Violations[0].Field != "events[1].value" {
		t.Errorf("violations = %+v, want events[1].value", ve.Violations)
	}
	if len(events.events) != 0 {
		t.Errorf("partially stored %d events, want 0", len(events.events))
	}
}

func TestAppendBatchRecomputesDistinctDays(t *testing.T) {
	events := newMockEventRepository()
	recomputer := &mockRecomputer{}
	svc := newTestEventService(events, recomputer)
	ctx := context.Background()

	userID := uuid.NewString()
	day1 := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC)

	mk := func(ts time.Time, value float64) models.CreateEventRequest {
		req := validEventRequest(userID)
		req.EventTimestamp = ts.Format(time.RFC3339)
		req.Value = &value
		return *req
	}

	resp, err := svc.AppendBatch(ctx, &models.BatchCreateEventsRequest{
		Events: []models.CreateEventRequest{
			mk(day1, 300), mk(day1.Add(time.Hour), 400), mk(day2, 500),
		},
	})
	if err != nil {
		t.Fatalf("AppendBatch: %v", err)
	}
	if resp.Accepted != 3 {
		t.Errorf("accepted = %d, want 3", resp.Accepted)
	}
	if resp.DaysRecomputed != 2 {
		t.Errorf("days_recomputed = %d, want 2 (distinct days only)", resp.DaysRecomputed)
	}
	if resp.Duplicates != 0 {
		t.Errorf("duplicates = %d, want 0", resp.Duplicates)
	}
}

func TestListDefaultsPagination(t *testing.T) {
	events := newMockEventRepository()
	svc := newTestEventService(events, &mockRecomputer{})
	ctx := context.Background()

	userID := uuid.NewString()
	base := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedEvent(t, events, userID, models.EventTypeConsumed, base.Add(time.Duration(i)*time.Hour), 100)
	}

	got, err := svc.List(ctx, userID, models.EventFilter{Limit: -1, Offset: -5})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 5 {
		t.Errorf("got %d events, want 5", len(got))
	}
}
