package clinicapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors classifying upstream failures the portal reacts to.
var (
	// ErrSlotUnavailable means the slot was reserved by someone else first.
	ErrSlotUnavailable = errors.New("clinicapi: slot no longer available")
	// ErrNotFound covers missing patients, appointments and conversations.
	ErrNotFound = errors.New("clinicapi: resource not found")
)

// APIError carries the upstream's HTTP status and error detail.
type APIError struct {
	StatusCode int    `json:"-"`
	Detail     string `json:"detail,omitempty"`
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("clinicapi: %s (status=%d)", e.Detail, e.StatusCode)
	}
	return fmt.Sprintf("clinicapi: http status %d", e.StatusCode)
}

// Unwrap maps well-known statuses onto sentinel errors so callers can use
// errors.Is without inspecting status codes.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusConflict:
		return ErrSlotUnavailable
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return nil
	}
}

func decodeAPIError(status int, body []byte) error {
	var parsed APIError
	if err := json.Unmarshal(body, &parsed); err != nil {
		return &APIError{StatusCode: status, Detail: string(body)}
	}
	parsed.StatusCode = status
	return &parsed
}
