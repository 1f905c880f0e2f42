package middleware

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"go-stay-portal/internal/logger"
	"go-stay-portal/internal/model"
)

const requestIDHeader = "X-Request-ID"

// maxLoggedErrorBody bounds how much of an error response is kept for the
// access log line.
const maxLoggedErrorBody = 4 << 10

type requestNotesKey struct{}

// requestNotes lets middleware further down the chain report facts back to
// the access log, which runs outermost.
type requestNotes struct {
	browserID string
}

func noteBrowser(ctx context.Context, id string) {
	if notes, ok := ctx.Value(requestNotesKey{}).(*requestNotes); ok {
		notes.browserID = id
	}
}

// Logging writes one access line per request, tagged with the request id and,
// once the session middleware has run, the browser session.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		notes := &requestNotes{}
		ctx := logger.WithRequestID(r.Context(), requestID)
		ctx = context.WithValue(ctx, requestNotesKey{}, notes)

		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		if notes.browserID != "" {
			ctx = logger.WithSessionID(ctx, notes.browserID)
		}
		log := logger.WithContext(ctx)

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"bytes", rec.written,
			"duration_ms", time.Since(started).Milliseconds(),
		}
		if rec.status >= 400 {
			if r.URL.RawQuery != "" {
				attrs = append(attrs, "query", r.URL.RawQuery)
			}
			attrs = append(attrs, errorAttrs(rec.body.Bytes())...)
		}

		switch {
		case rec.status >= 500:
			log.Error("request", attrs...)
		case rec.status >= 400:
			log.Warn("request", attrs...)
		case r.URL.Path == "/health":
			log.Debug("request", attrs...)
		default:
			log.Info("request", attrs...)
		}
	})
}

// errorAttrs pulls the envelope error out of a failed response. Guard
// redirects also carry their target.
func errorAttrs(body []byte) []any {
	var parsed model.APIResponse
	if len(body) == 0 || json.Unmarshal(body, &parsed) != nil {
		return nil
	}

	var attrs []any
	if parsed.Error != nil {
		attrs = append(attrs, "error_code", parsed.Error.Code, "error_message", parsed.Error.Message)
		if parsed.Error.Details != "" {
			attrs = append(attrs, "error_details", parsed.Error.Details)
		}
	}
	if parsed.Redirect != "" {
		attrs = append(attrs, "redirect", parsed.Redirect)
	}
	return attrs
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	written     int
	body        bytes.Buffer
	wroteHeader bool
}

func (rw *statusRecorder) WriteHeader(statusCode int) {
	if rw.wroteHeader {
		return
	}
	rw.status = statusCode
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	if rw.status >= 400 && rw.body.Len() < maxLoggedErrorBody {
		rw.body.Write(b[:min(len(b), maxLoggedErrorBody-rw.body.Len())])
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.written += n
	return n, err
}

// Hijack lets the live feed upgrade through the access log.
func (rw *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	rw.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

// Flush passes through to the underlying writer when it supports it.
func (rw *statusRecorder) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
