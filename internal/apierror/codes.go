package apierror

// Error type URIs following the urn:kaldera:error:* pattern.
// These are used as the "type" field in RFC 9457 Problem Details.
const (
	// TypeValidation indicates request validation failed (400)
	TypeValidation = "urn:kaldera:error:validation"

	// TypeNotFound indicates the requested resource was not found (404)
	TypeNotFound = "urn:kaldera:error:not_found"

	// TypeConflict indicates a resource conflict (409)
	TypeConflict = "urn:kaldera:error:conflict"

	// TypeRateLimit indicates too many requests (429)
	TypeRateLimit = "urn:kaldera:error:rate_limit"

	// TypeInternal indicates an unexpected server error (500)
	TypeInternal = "urn:kaldera:error:internal"

	// TypeInvalidUUID indicates an invalid UUID format in request (400)
	TypeInvalidUUID = "urn:kaldera:error:invalid_uuid"

	// TypeFutureTimestamp indicates a timestamp too far in the future (400)
	TypeFutureTimestamp = "urn:kaldera:error:future_timestamp"

	// TypeBadRequest indicates a malformed or invalid request (400)
	TypeBadRequest = "urn:kaldera:error:bad_request"
)

// Titles for each error type - human-readable summaries
const (
	TitleValidation      = "Validation Error"
	TitleNotFound        = "Resource Not Found"
	TitleConflict        = "Resource Conflict"
	TitleRateLimit       = "Rate Limit Exceeded"
	TitleInternal        = "Internal Server Error"
	TitleInvalidUUID     = "Invalid UUID Format"
	TitleFutureTimestamp = "Future Timestamp Not Allowed"
	TitleBadRequest      = "Bad Request"
)
