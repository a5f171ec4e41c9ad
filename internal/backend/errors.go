package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	lmsstrings "lmsgate/pkg/strings"
)

// BackendError is a non-2xx reply from the platform. It is wrapped in a
// gateway.Error of kind KindBackendError.
type BackendError struct {
	Status  int
	Body    []byte
	Message string
}

// Error returns the backend's message with its status.
func (e *BackendError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

// Unauthorized reports a 401 reply.
func (e *BackendError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// Rejected reports a 4xx reply refusing what was submitted, such as wrong
// credentials or a wrong code. Outages and throttling are not rejections.
func (e *BackendError) Rejected() bool {
	switch e.Status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusUnprocessableEntity:
		return true
	}
	return false
}

// AsBackendError extracts a *BackendError from err's chain.
func AsBackendError(err error) (*BackendError, bool) {
	var be *BackendError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

// newBackendError builds the error for a non-2xx reply, preferring the
// "message" then "error" field of a JSON body.
func newBackendError(status int, body []byte) *BackendError {
	return &BackendError{
		Status:  status,
		Body:    body,
		Message: extractMessage(status, body),
	}
}

func extractMessage(status int, body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if msg := strings.TrimSpace(payload.Message); msg != "" {
			return msg
		}
		if msg := strings.TrimSpace(payload.Error); msg != "" {
			return msg
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" && !json.Valid(body) && !lmsstrings.LooksLikeMarkup(text) {
		return lmsstrings.TruncateLine(text, lmsstrings.DefaultLineMaxLen)
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("status %d", status)
}
