package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/mediax/internal/shared"
)

// FieldError is one entry of a structured validation error.
type FieldError struct {
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

// Field returns the last element of Loc, which names the offending input.
func (f FieldError) Field() string {
	if len(f.Loc) == 0 {
		return ""
	}
	return fmt.Sprint(f.Loc[len(f.Loc)-1])
}

// APIError is a non-2xx response from the backend.
//
// The backend answers with either {"detail": "message"} or {"detail": [{"loc": [...], "msg": "...", "type": "..."}]}.
type APIError struct {
	StatusCode int
	Detail     string
	Fields     []FieldError
}

func (e *APIError) Error() string {
	if msg := e.Message(); msg != "" {
		return fmt.Sprintf("%s: status %d: %s", shared.ErrAPIRequest, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s: status %d", shared.ErrAPIRequest, e.StatusCode)
}

// Message returns the first field message, else the detail string.
func (e *APIError) Message() string {
	for _, f := range e.Fields {
		if f.Msg != "" {
			return f.Msg
		}
	}
	return e.Detail
}

// Is matches [shared.ErrAPIRequest] for every API error, plus the sentinel for well-known statuses.
func (e *APIError) Is(target error) bool {
	switch target {
	case shared.ErrAPIRequest:
		return true
	case shared.ErrNotAuthenticated:
		return e.StatusCode == http.StatusUnauthorized
	case shared.ErrFileNotFound:
		return e.StatusCode == http.StatusNotFound
	case shared.ErrFileTooLarge:
		return e.StatusCode == http.StatusRequestEntityTooLarge
	case shared.ErrServiceUnavailable:
		return e.StatusCode == http.StatusServiceUnavailable || e.StatusCode == http.StatusBadGateway
	case shared.ErrInvalidInput:
		return e.StatusCode == http.StatusUnprocessableEntity || e.StatusCode == http.StatusBadRequest
	}
	return false
}

// parseAPIError reads the {"detail": ...} envelope. Bodies without one leave the error without a message.
func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return apiErr
	}

	var detail string
	if err := json.Unmarshal(envelope.Detail, &detail); err == nil {
		apiErr.Detail = detail
		return apiErr
	}

	var fields []FieldError
	if err := json.Unmarshal(envelope.Detail, &fields); err == nil {
		apiErr.Fields = fields
	}
	return apiErr
}

// Message returns the user-facing message for err: the backend's first validation message or detail when err is
// an [APIError] that carries one, otherwise fallback.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if msg := apiErr.Message(); msg != "" {
			return msg
		}
	}
	return fallback
}
