package careerstack

import (
	"encoding/json"
	"fmt"
)

// Sentinel errors returned by the SDK.
var (
	// ErrNoToken is returned when no access token is available for a call
	// that requires one.
	ErrNoToken = fmt.Errorf("careerstack: no access token provided")

	// ErrTokenInvalid is returned when the access token is invalid or expired.
	ErrTokenInvalid = fmt.Errorf("careerstack: token is invalid or expired")

	// ErrCircuitOpen is returned by the guard when the auth circuit is
	// tripped. Callers should treat the user as unauthenticated without
	// retrying; the circuit closes on its own after the cooldown.
	ErrCircuitOpen = fmt.Errorf("careerstack: auth circuit open")
)

// APIError represents an error response from the CareerStack API.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("careerstack: API error %d [%s]: %s", e.StatusCode, e.Code, e.Message)
}

// apiErrorWrapper matches the CareerStack API error envelope.
type apiErrorWrapper struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func parseAPIError(statusCode int, body []byte) error {
	var wrapper apiErrorWrapper
	if err := json.Unmarshal(body, &wrapper); err == nil && wrapper.Error.Code != "" {
		return &APIError{
			StatusCode: statusCode,
			Code:       wrapper.Error.Code,
			Message:    wrapper.Error.Message,
		}
	}

	return &APIError{
		StatusCode: statusCode,
		Code:       "unknown",
		Message:    string(body),
	}
}

// IsAPIError checks whether err is an APIError and returns it.
func IsAPIError(err error) (*APIError, bool) {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr, true
	}
	return nil, false
}
