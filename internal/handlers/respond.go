// Package handlers wires the HTTP surface to the service layer. Handlers
// bind and sanity-check the wire format; semantic validation lives in the
// services, which return aggregated field violations mapped here onto
// RFC 9457 problem responses.
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/kaldera-app/backend/internal/apierror"
	"github.com/kaldera-app/backend/internal/logger"
	"github.com/kaldera-app/backend/internal/service"
)

// writeServiceError maps service-layer errors onto problem responses.
// resource and id feed the 404 detail; callers pass "" when not applicable.
func writeServiceError(c *gin.Context, err error, resource, id string) {
	requestID := apierror.GetRequestID(c)

	if ve, ok := service.AsValidationError(err); ok {
		apierror.WriteProblem(c, apierror.NewValidationError(requestID, fieldErrors(ve)))
		return
	}
	if errors.Is(err, service.ErrNotFound) ||
		errors.Is(err, service.ErrNoActiveGoal) ||
		errors.Is(err, service.ErrNoActiveProfile) {
		apierror.WriteProblem(c, apierror.NewNotFoundError(requestID, resource, id))
		return
	}

	logger.Ctx(c.Request.Context()).Error("request failed", logger.Err(err))
	apierror.WriteProblem(c, apierror.NewInternalError(requestID))
}

// fieldErrors converts service violations to the wire representation.
func fieldErrors(ve *service.ValidationError) []apierror.FieldError {
	out := make([]apierror.FieldError, 0, len(ve.Violations))
	for _, v := range ve.Violations {
		out = append(out, apierror.FieldError{Field: v.Field, Message: v.Message, Code: v.Code})
	}
	return out
}

// writeBindError reports a JSON syntax or envelope problem (not field-level).
func writeBindError(c *gin.Context, err error) {
	requestID := apierror.GetRequestID(c)
	apierror.WriteProblem(c, apierror.NewBadRequestError(requestID, err.Error(), "Invalid JSON format"))
}
