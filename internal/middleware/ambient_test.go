package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-stay-portal/internal/model"
	"go-stay-portal/internal/storage"
)

// captureLogs swaps the default logger for a JSON one writing to the returned
// buffer. Tests using it must not run in parallel.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(previous) })
	return &buf
}

func TestLoggingTagsRequestAndBrowser(t *testing.T) {
	logs := captureLogs(t)

	sessions := NewSessionMiddleware(storage.NewMemory(), SessionOptions{})
	handler := Logging(sessions.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotFound, "NOT_FOUND", "hotel not found")
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/hotels/missing?room=std", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	requestID := rec.Header().Get(requestIDHeader)
	require.NotEmpty(t, requestID)

	var line map[string]any
	require.NoError(t, json.Unmarshal(logs.Bytes(), &line))
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, requestID, line["request_id"])
	assert.Equal(t, sidCookie(t, rec).Value[:8], line["session_id"])
	assert.Equal(t, "NOT_FOUND", line["error_code"])
	assert.Equal(t, "room=std", line["query"])
}

func TestLoggingReplacesMalformedRequestID(t *testing.T) {
	captureLogs(t)

	handler := Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "<script>")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.NotEqual(t, "<script>", rec.Header().Get(requestIDHeader))
	assert.Len(t, rec.Header().Get(requestIDHeader), 36)
}

func TestRecoveryWritesEnvelope(t *testing.T) {
	logs := captureLogs(t)

	handler := Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("nil room")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/bookings", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body model.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
	assert.Contains(t, logs.String(), "nil room")
}

func TestRecoveryRepanicsAbort(t *testing.T) {
	captureLogs(t)

	handler := Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/hotels", nil))
	})
}

func TestTimeoutAnswersWithEnvelope(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	defer close(release)

	handler := Timeout(10 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body model.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "REQUEST_TIMEOUT", body.Error.Code)
	assert.True(t, strings.HasPrefix(body.Error.Message, "The hotel service"))
}
