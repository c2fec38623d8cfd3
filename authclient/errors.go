package authclient

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

var (
	ErrMissingAccessToken = errors.New("missing access token in auth service response")
	ErrInvalidUserPayload = errors.New("auth service returned an invalid user payload")
)

// ServiceError is a non-2xx response from the auth service, carrying the
// human-readable message the service included in its body (or the HTTP status
// text when it didn't).
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("auth service returned %d: %s", e.StatusCode, e.Message)
}

func newServiceError(statusCode int, body []byte) *ServiceError {
	var payload struct {
		Message string `json:"message,omitempty"`
		Error   string `json:"error,omitempty"`
	}
	_ = json.Unmarshal(body, &payload)

	message := payload.Message
	if message == "" {
		message = payload.Error
	}
	if message == "" {
		message = http.StatusText(statusCode)
	}
	return &ServiceError{StatusCode: statusCode, Message: message}
}
