package apierror

import (
	"fmt"
	"net/http"
)

// APIError is the typed error shared by the HTTP surface and the upstream
// transport. Message is always safe to show to the end user.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Retryable reports whether the upstream may succeed on a later attempt.
func (e *APIError) Retryable() bool {
	if e == nil {
		return false
	}
	return e.HTTPStatus == http.StatusTooManyRequests || e.HTTPStatus >= http.StatusInternalServerError
}

func New(code string, message string, details string, status int) *APIError {
	return &APIError{Code: code, Message: message, Details: details, HTTPStatus: status}
}

// FromStatus builds an error for a non-2xx upstream response.
func FromStatus(status int, message string) *APIError {
	if message == "" {
		message = http.StatusText(status)
	}
	if message == "" {
		message = "upstream request failed"
	}

	return New(codeForStatus(status), message, "", status)
}

func codeForStatus(status int) string {
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return "BAD_REQUEST"
	case status == http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case status == http.StatusForbidden:
		return "FORBIDDEN"
	case status == http.StatusNotFound:
		return "NOT_FOUND"
	case status == http.StatusConflict:
		return "CONFLICT"
	case status == http.StatusTooManyRequests:
		return "RATE_LIMITED"
	case status >= http.StatusInternalServerError:
		return "UPSTREAM_UNAVAILABLE"
	default:
		return "UPSTREAM_ERROR"
	}
}
