package models

import (
	"time"

	"gorm.io/datatypes"
)

// EventType is the closed set of energy-balance event categories.
type EventType string

const (
	EventTypeConsumed       EventType = "consumed"
	EventTypeBurnedExercise EventType = "burned_exercise"
	EventTypeBurnedBMR      EventType = "burned_bmr"
	EventTypeWeight         EventType = "weight"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventTypeConsumed, EventTypeBurnedExercise, EventTypeBurnedBMR, EventTypeWeight:
		return true
	}
	return false
}

// IsCalorie reports whether events of this type carry a kcal value
// (everything except weight samples).
func (t EventType) IsCalorie() bool {
	return t == EventTypeConsumed || t == EventTypeBurnedExercise || t == EventTypeBurnedBMR
}

// Source is the closed set of ingestion origins.
type Source string

const (
	SourceManual         Source = "manual"
	SourceFitnessTracker Source = "fitness_tracker"
	SourceSmartScale     Source = "smart_scale"
	SourceNutritionScan  Source = "nutrition_scan"
	SourceHealthKit      Source = "healthkit"
	SourceGoogleFit      Source = "google_fit"
)

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	switch s {
	case SourceManual, SourceFitnessTracker, SourceSmartScale,
		SourceNutritionScan, SourceHealthKit, SourceGoogleFit:
		return true
	}
	return false
}

// Plausible bounds for weight samples in kilograms.
const (
	MinWeightKg = 20.0
	MaxWeightKg = 500.0
)

// CalorieEvent is an immutable fact in the energy-balance ledger. Rows are
// append-only: a late correction arrives as a new event sharing the same
// (user_id, source, external_id) logical key, and readers keep only the
// newest event per logical key.
type CalorieEvent struct {
	ID              string            `json:"id" gorm:"primaryKey;type:uuid"`
	UserID          string            `json:"user_id" gorm:"type:uuid;index:idx_events_user_ts,priority:1;not null"`
	EventType       EventType         `json:"event_type" gorm:"not null"`
	EventTimestamp  time.Time         `json:"event_timestamp" gorm:"index:idx_events_user_ts,priority:2;not null"`
	Value           float64           `json:"value" gorm:"not null"`
	Source          Source            `json:"source" gorm:"not null"`
	ConfidenceScore float64           `json:"confidence_score" gorm:"not null"`
	ExternalID      *string           `json:"external_id,omitempty" gorm:"index:idx_events_logical_key"`
	Metadata        datatypes.JSONMap `json:"metadata,omitempty"`
	RecordedAt      time.Time         `json:"recorded_at" gorm:"autoCreateTime"`
}

// CreateEventRequest is the ingestion payload for a single event.
// ID is optional: clients may supply a UUIDv7 as an idempotency key;
// the server generates one otherwise.
type CreateEventRequest struct {
	ID              string            `json:"id"`
	UserID          string            `json:"user_id"`
	EventType       string            `json:"event_type"`
	EventTimestamp  string            `json:"event_timestamp"`
	Value           *float64          `json:"value"`
	Source          string            `json:"source"`
	ConfidenceScore *float64          `json:"confidence_score"`
	ExternalID      *string           `json:"external_id"`
	Metadata        map[string]any    `json:"metadata"`
}

// CreateEventResponse reports the stored id and whether this call created
// the row (false on an idempotent replay of a known id).
type CreateEventResponse struct {
	EventID string `json:"event_id"`
	Created bool   `json:"created"`
}

// BatchCreateEventsRequest carries a backfill batch. Validation is
// all-or-nothing: any invalid element rejects the whole batch.
type BatchCreateEventsRequest struct {
	Events []CreateEventRequest `json:"events"`
}

// BatchCreateEventsResponse summarizes an accepted backfill batch.
type BatchCreateEventsResponse struct {
	Accepted       int `json:"accepted"`
	Duplicates     int `json:"duplicates"`
	DaysRecomputed int `json:"days_recomputed"`
}

// EventFilter bounds a ledger read.
type EventFilter struct {
	EventType *EventType
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}
