package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go-stay-portal/internal/booking"
	"go-stay-portal/internal/middleware"
	"go-stay-portal/internal/model"
	"go-stay-portal/internal/query"
	"go-stay-portal/internal/receipt"
	"go-stay-portal/internal/transport"
	"go-stay-portal/pkg/apierror"
)

func writeSuccess(w http.ResponseWriter, status int, data any, meta *model.Meta) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := &model.APIError{
		Code:    "INTERNAL_ERROR",
		Message: "Unexpected server error",
	}

	var (
		apiErr        *apierror.APIError
		validationErr *booking.ValidationError
		paymentErr    *booking.PaymentError
	)
	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
	} else if errors.As(err, &validationErr) {
		status = http.StatusUnprocessableEntity
		body.Code = "VALIDATION_ERROR"
		body.Message = validationErr.Message
		body.Fields = validationErr.Fields
	} else if errors.As(err, &paymentErr) {
		status = http.StatusPaymentRequired
		body.Code = "PAYMENT_DECLINED"
		body.Message = paymentErr.Message
	} else if errors.Is(err, booking.ErrSubmissionInProgress) {
		status = http.StatusConflict
		body.Code = "SUBMISSION_IN_PROGRESS"
		body.Message = "Your payment is already being processed"
	} else if errors.Is(err, booking.ErrIllegalTransition) {
		status = http.StatusConflict
		body.Code = "CONFLICT"
		body.Message = "This step is not available right now"
		body.Details = err.Error()
	} else if errors.Is(err, receipt.ErrNotConfirmed) {
		status = http.StatusConflict
		body.Code = "CONFLICT"
		body.Message = "The booking is not confirmed yet"
	} else if errors.Is(err, model.ErrHotelNotFound) {
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "Hotel not found"
	} else if errors.Is(err, model.ErrRoomNotFound) {
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "Room not found"
	} else if errors.Is(err, model.ErrDraftNotFound) {
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "Booking not found"
	} else if errors.Is(err, model.ErrInvalidRole) {
		status = http.StatusForbidden
		body.Code = "FORBIDDEN"
		body.Message = "This account type is not supported"
	} else if errors.Is(err, model.ErrUnauthorized) || errors.Is(err, model.ErrSessionNotFound) {
		status = http.StatusUnauthorized
		body.Code = "UNAUTHORIZED"
		body.Message = "Authentication required"
	} else if errors.Is(err, model.ErrForbidden) {
		status = http.StatusForbidden
		body.Code = "FORBIDDEN"
		body.Message = "Access denied"
	} else if errors.Is(err, model.ErrInvalidInput) {
		status = http.StatusBadRequest
		body.Code = "BAD_REQUEST"
		body.Message = "Invalid input"
	} else if errors.Is(err, transport.ErrUnreachable) {
		status = http.StatusBadGateway
		body.Code = "UPSTREAM_UNAVAILABLE"
		body.Message = "The booking service is unreachable, please try again"
	} else {
		// Log unclassified errors so they are visible in container logs.
		slog.Error("unhandled error in writeError", "error", err.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error:   body,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) bool {
	defer r.Body.Close()

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(out); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return false
	}
	return true
}

// browser returns the per-cookie context set by the session middleware.
func browser(w http.ResponseWriter, r *http.Request) (middleware.Browser, bool) {
	b, ok := middleware.BrowserFromContext(r.Context())
	if !ok {
		writeError(w, errors.New("session middleware not installed"))
	}
	return b, ok
}

// signedIn returns the browser and the session admitted by RequirePage.
func signedIn(w http.ResponseWriter, r *http.Request) (middleware.Browser, model.Session, bool) {
	b, ok := browser(w, r)
	if !ok {
		return b, model.Session{}, false
	}

	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthorized)
		return b, model.Session{}, false
	}
	return b, sess, true
}

func queryMeta[T any](state query.State[T], total int) *model.Meta {
	meta := &model.Meta{Total: total, Source: state.Source.String()}
	if !state.LastUpdated.IsZero() {
		meta.UpdatedAt = state.LastUpdated.UTC().Format(time.RFC3339)
	}
	return meta
}

func parseInt64(field string, raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apierror.New("BAD_REQUEST", field+" must be a whole number", field, http.StatusBadRequest)
	}
	return v, nil
}

// parseDay accepts a calendar date (2006-01-02) or a full RFC 3339 time.
func parseDay(field string, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, apierror.New("BAD_REQUEST", field+" is required", field, http.StatusBadRequest)
	}

	if day, err := time.Parse(time.DateOnly, raw); err == nil {
		return day, nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	return time.Time{}, apierror.New("BAD_REQUEST", field+" must be a date like 2025-03-01", field, http.StatusBadRequest)
}
