package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"go-stay-portal/pkg/apierror"
)

type hotelFilter struct {
	State    string `url:"state,omitempty"`
	MinPrice int64  `url:"min_price,omitempty"`
}

func newTestClient(t *testing.T, server *httptest.Server, retries int) *Client {
	t.Helper()

	client, err := New(Options{
		BaseURL:    server.URL + "/api",
		HTTPClient: server.Client(),
		MaxRetries: retries,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
		Propagator: propagation.TraceContext{},
	})
	require.NoError(t, err)
	return client
}

func TestGetEncodesParamsAndDecodes(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/hotels", r.URL.Path)
		assert.Equal(t, "Lagos", r.URL.Query().Get("state"))
		assert.Equal(t, "50000", r.URL.Query().Get("min_price"))
		assert.Empty(t, r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode([]map[string]string{{"id": "h1"}})
	}))
	defer server.Close()

	var out []map[string]string
	err := newTestClient(t, server, 0).Get(context.Background(), "/hotels", hotelFilter{State: "Lagos", MinPrice: 50000}, &out)

	require.NoError(t, err)
	assert.Equal(t, "h1", out[0]["id"])
}

func TestBearerTokenAttachedWhenSessionValid(t *testing.T) {
	t.Parallel()

	var got atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	base := newTestClient(t, server, 0)
	authed := base.WithTokens(TokenFunc(func(context.Context) string { return "a.b.c" }))

	require.NoError(t, authed.Delete(context.Background(), "/owner/listings/1"))
	assert.Equal(t, "Bearer a.b.c", got.Load())

	require.NoError(t, base.Delete(context.Background(), "/owner/listings/1"))
	assert.Equal(t, "", got.Load())
}

func TestNon2xxReturnsUpstreamMessage(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		`{"message":"Invalid email or password"}`:       "Invalid email or password",
		`{"error":{"message":"Hotel is fully booked"}}`: "Hotel is fully booked",
		`{"error":"Listing not found"}`:                 "Listing not found",
		`<html>oops</html>`:                             "Bad Request",
	}

	for body, want := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(body))
		}))

		err := newTestClient(t, server, 0).Post(context.Background(), "/auth/login", map[string]string{"email": "x"}, nil)
		server.Close()

		var apiErr *apierror.APIError
		require.ErrorAs(t, err, &apiErr, body)
		assert.Equal(t, want, apiErr.Message, body)
		assert.Equal(t, http.StatusBadRequest, apiErr.HTTPStatus)
		assert.Equal(t, "BAD_REQUEST", apiErr.Code)
	}
}

func TestRetriesServerErrorsForIdempotentRequests(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"total":3}`))
	}))
	defer server.Close()

	var out struct{ Total int }
	err := newTestClient(t, server, 3).Get(context.Background(), "/dashboard/stats", nil, &out)

	require.NoError(t, err)
	assert.Equal(t, 3, out.Total)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGivesUpAfterMaxRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	err := newTestClient(t, server, 2).Get(context.Background(), "/hotels", nil, nil)

	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "RATE_LIMITED", apiErr.Code)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDoesNotRetryPostOrClientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, server, 3)

	require.Error(t, client.Post(context.Background(), "/owner/listings", map[string]string{}, nil))
	require.Error(t, client.Get(context.Background(), "/hotels/missing", nil, nil))
	assert.Equal(t, int32(2), calls.Load())
}

func TestNetworkErrorIsRetriedThenReturned(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	client := newTestClient(t, server, 1)
	server.Close()

	err := client.Get(context.Background(), "/hotels", nil, nil)

	var netErr *networkError
	require.ErrorAs(t, err, &netErr)
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestCancelledContextStopsRetrying(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := New(Options{BaseURL: server.URL, HTTPClient: server.Client(), MaxRetries: 5, BaseDelay: time.Hour, MaxDelay: time.Hour})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = client.Get(ctx, "/hotels", nil, nil)

	require.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, int32(1), calls.Load())
}

func TestInjectsTraceContext(t *testing.T) {
	t.Parallel()

	var traceparent atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceparent.Store(r.Header.Get("traceparent"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	require.NoError(t, newTestClient(t, server, 0).Get(ctx, "/health", nil, nil))
	assert.Contains(t, traceparent.Load(), "4bf92f3577b34da6a3ce929d0e0e4736")
}

func TestNewRejectsInvalidBaseURL(t *testing.T) {
	t.Parallel()

	_, err := New(Options{BaseURL: "not a url"})
	require.Error(t, err)
}
