package server

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/jonwraymond/rxprice/pricing"
	"github.com/jonwraymond/rxprice/resilience"
	"github.com/jonwraymond/rxprice/tool"
)

// Error kinds reported in the "type" field.
const (
	KindTool       = "ToolError"
	KindValidation = "ValidationError"
	KindRateLimit  = "RateLimitError"
	KindDependency = "DependencyError"
	KindTimeout    = "TimeoutError"
	KindServer     = "ServerError"
)

// APIError is an error rendered as a JSON response.
type APIError struct {
	Status     int
	Kind       string
	Message    string
	Extra      map[string]any
	RetryAfter int // seconds; sets the Retry-After header when positive
}

func (e *APIError) Error() string { return e.Message }

// Body returns the JSON body.
func (e *APIError) Body() map[string]any {
	body := make(map[string]any, len(e.Extra)+2)
	for k, v := range e.Extra {
		body[k] = v
	}
	body["error"] = e.Message
	body["type"] = e.Kind
	return body
}

func validationError(msg string, fields map[string]string) *APIError {
	return &APIError{
		Status:  http.StatusUnprocessableEntity,
		Kind:    KindValidation,
		Message: msg,
		Extra:   map[string]any{"validation_errors": fields},
	}
}

// toAPIError maps an operation error onto its HTTP representation.
func toAPIError(err error) *APIError {
	var (
		apiErr   *APIError
		rateErr  *resilience.RateLimitError
		validErr *pricing.ValidationError
		depErr   *pricing.DependencyError
	)
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.As(err, &rateErr):
		secs := int(math.Ceil(rateErr.RetryAfter.Seconds()))
		if secs < 1 {
			secs = 1
		}
		return &APIError{
			Status:  http.StatusTooManyRequests,
			Kind:    KindRateLimit,
			Message: "Rate limit exceeded for " + rateErr.Operation + ". Please try again later.",
			Extra: map[string]any{
				"tool":        rateErr.Operation,
				"retry_after": rateErr.RetryAfter.Seconds(),
			},
			RetryAfter: secs,
		}
	case errors.As(err, &validErr):
		return validationError("Validation error", validErr.Fields)
	case errors.As(err, &depErr):
		return &APIError{
			Status:  http.StatusBadGateway,
			Kind:    KindDependency,
			Message: depErr.Error(),
			Extra:   map[string]any{"dependency": depErr.Dependency},
		}
	case errors.Is(err, resilience.ErrTimeout):
		return &APIError{Status: http.StatusGatewayTimeout, Kind: KindTimeout, Message: "operation timed out"}
	case errors.Is(err, tool.ErrUnknownOperation):
		return &APIError{Status: http.StatusBadRequest, Kind: KindTool, Message: err.Error()}
	default:
		return &APIError{Status: http.StatusInternalServerError, Kind: KindServer, Message: "internal server error"}
	}
}

func writeError(w http.ResponseWriter, apiErr *APIError) {
	if apiErr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(apiErr.RetryAfter))
	}
	writeJSON(w, apiErr.Status, apiErr.Body())
}
