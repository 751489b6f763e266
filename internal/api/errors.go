package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthorized reports that the backend rejected the bearer token on an
// authenticated call. The client has already invalidated the local session
// by the time callers see it; the only recovery is logging in again.
var ErrUnauthorized = errors.New("authentication expired")

// Error is a non-2xx response from the backend. Message carries the
// server's detail text when the body had one, else the HTTP status text.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a backend 404.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// errorMessage extracts the human-readable message from an error body.
// The backend wraps errors as {"detail": "..."}; a few auxiliary endpoints
// use {"error": "..."} or {"message": "..."} instead.
func errorMessage(status int, body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Error   string          `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		var detail string
		if len(payload.Detail) > 0 && json.Unmarshal(payload.Detail, &detail) == nil && detail != "" {
			return detail
		}
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return http.StatusText(status)
}
