package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kaldera-app/backend/internal/apierror"
	"github.com/kaldera-app/backend/internal/models"
	"github.com/kaldera-app/backend/internal/service"
)

type EventHandler struct {
	events       service.EventService
	maxBatchSize int
}

// NewEventHandler creates a new event handler. maxBatchSize caps a single
// backfill request.
func NewEventHandler(events service.EventService, maxBatchSize int) *EventHandler {
	if maxBatchSize <= 0 {
		maxBatchSize = 1000
	}
	return &EventHandler{events: events, maxBatchSize: maxBatchSize}
}

// CreateEvent handles POST /api/v1/events
// Returns 201 for a new event, 200 when the id was already stored
// (idempotent replay).
func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req models.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	resp, err := h.events.Append(c.Request.Context(), &req)
	if err != nil {
		writeServiceError(c, err, "Event", req.ID)
		return
	}

	if resp.Created {
		c.JSON(http.StatusCreated, resp)
	} else {
		c.JSON(http.StatusOK, resp)
	}
}

// CreateEventsBatch handles POST /api/v1/events/batch
// All-or-nothing: any invalid element rejects the whole batch with the
// per-element field errors; an accepted batch returns 202 after the
// affected days have been recomputed.
func (h *EventHandler) CreateEventsBatch(c *gin.Context) {
	var req models.BatchCreateEventsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	if len(req.Events) > h.maxBatchSize {
		requestID := apierror.GetRequestID(c)
		apierror.WriteProblem(c, apierror.NewValidationError(requestID, []apierror.FieldError{
			{Field: "events", Message: fmt.Sprintf("must not exceed %d events per batch", h.maxBatchSize), Code: "too_large"},
		}))
		return
	}

	resp, err := h.events.AppendBatch(c.Request.Context(), &req)
	if err != nil {
		writeServiceError(c, err, "Batch", "")
		return
	}

	c.JSON(http.StatusAccepted, resp)
}

// ListEvents handles GET /api/v1/users/:user_id/events
func (h *EventHandler) ListEvents(c *gin.Context) {
	userID := c.Param("user_id")
	requestID := apierror.GetRequestID(c)

	var filter models.EventFilter
	var fieldErrs []apierror.FieldError

	if typeStr := c.Query("type"); typeStr != "" {
		et := models.EventType(typeStr)
		if !et.Valid() {
			fieldErrs = append(fieldErrs, apierror.FieldError{
				Field: "type", Message: "is not a recognized event type", Code: "invalid_enum",
			})
		} else {
			filter.EventType = &et
		}
	}
	if fromStr := c.Query("from"); fromStr != "" {
		from, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			fieldErrs = append(fieldErrs, apierror.FieldError{
				Field: "from", Message: "must be a valid RFC3339 timestamp", Code: "invalid_format",
			})
		} else {
			filter.From = from
		}
	}
	if toStr := c.Query("to"); toStr != "" {
		to, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			fieldErrs = append(fieldErrs, apierror.FieldError{
				Field: "to", Message: "must be a valid RFC3339 timestamp", Code: "invalid_format",
			})
		} else {
			filter.To = to
		}
	}
	if len(fieldErrs) > 0 {
		apierror.WriteProblem(c, apierror.NewValidationError(requestID, fieldErrs))
		return
	}

	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "100"))
	filter.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	events, err := h.events.List(c.Request.Context(), userID, filter)
	if err != nil {
		writeServiceError(c, err, "Events", userID)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"count":  len(events),
	})
}
