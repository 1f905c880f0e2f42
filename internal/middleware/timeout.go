package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"go-stay-portal/internal/model"
)

const defaultRequestTimeout = 30 * time.Second

// Timeout bounds API requests, most of which wait on the upstream hotel
// service. The websocket route must stay outside: http.TimeoutHandler cannot
// hijack.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	body, _ := json.Marshal(model.APIResponse{
		Error: &model.APIError{
			Code:    "REQUEST_TIMEOUT",
			Message: "The hotel service is taking too long to respond. Please try again.",
		},
	})

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, string(body))
	}
}
