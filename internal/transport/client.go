// Package transport is the REST client for the upstream hotel service.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"go-stay-portal/pkg/apierror"
)

const maxErrorBody = 64 << 10

// ErrUnreachable matches every error caused by the upstream not answering.
var ErrUnreachable = errors.New("upstream unreachable")

// TokenSource yields the bearer token of the current session, or "".
type TokenSource interface {
	Token(ctx context.Context) string
}

type TokenFunc func(ctx context.Context) string

func (f TokenFunc) Token(ctx context.Context) string { return f(ctx) }

type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	// MaxRetries is the number of extra attempts after the first one.
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// RPS throttles outbound requests; zero disables throttling.
	RPS        float64
	Logger     *slog.Logger
	Propagator propagation.TextMapPropagator
	Tracer     trace.Tracer
}

type Client struct {
	base       *url.URL
	http       *http.Client
	limiter    *rate.Limiter
	tokens     TokenSource
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	logger     *slog.Logger
	propagator propagation.TextMapPropagator
	tracer     trace.Tracer
}

func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid upstream base url %q", opts.BaseURL)
	}

	c := &Client{
		base:       base,
		http:       opts.HTTPClient,
		maxRetries: max(opts.MaxRetries, 0),
		baseDelay:  opts.BaseDelay,
		maxDelay:   opts.MaxDelay,
		logger:     opts.Logger,
		propagator: opts.Propagator,
		tracer:     opts.Tracer,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 15 * time.Second}
	}
	if c.baseDelay <= 0 {
		c.baseDelay = 200 * time.Millisecond
	}
	if c.maxDelay < c.baseDelay {
		c.maxDelay = 5 * time.Second
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.propagator == nil {
		c.propagator = otel.GetTextMapPropagator()
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer("go-stay-portal/transport")
	}
	if opts.RPS > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RPS), max(int(opts.RPS), 1))
	}

	return c, nil
}

// WithTokens returns a client that authenticates with ts. The receiver is
// not modified; the limiter and connection pool are shared.
func (c *Client) WithTokens(ts TokenSource) *Client {
	clone := *c
	clone.tokens = ts
	return &clone
}

// Get encodes params (a struct with `url` tags, or nil) as the query string.
func (c *Client) Get(ctx context.Context, path string, params any, out any) error {
	if params != nil {
		values, err := query.Values(params)
		if err != nil {
			return fmt.Errorf("encode query: %w", err)
		}
		if encoded := values.Encode(); encoded != "" {
			path += "?" + encoded
		}
	}
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body any, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body any, out any) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// Do sends one logical request. Idempotent methods are retried with
// exponential backoff on network errors, 429 and 5xx. Non-2xx responses come
// back as *apierror.APIError carrying the upstream message.
func (c *Client) Do(ctx context.Context, method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		payload = encoded
	}

	target := c.resolve(path)

	ctx, span := c.tracer.Start(ctx, method+" "+pathOnly(path),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.full", target),
		),
	)
	defer span.End()

	attempts := 1
	if isIdempotent(method) {
		attempts += c.maxRetries
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := c.sleep(ctx, c.backoff(attempt-1)); err != nil {
				lastErr = err
				break
			}
		}

		lastErr = c.once(ctx, method, target, payload, out)
		if lastErr == nil {
			span.SetAttributes(attribute.Int("http.resend_count", attempt-1))
			return nil
		}
		if !retryable(lastErr) || ctx.Err() != nil {
			break
		}

		c.logger.DebugContext(ctx, "upstream request failed, retrying",
			"method", method,
			"path", path,
			"attempt", attempt,
			"error", lastErr,
		)
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, lastErr.Error())
	return lastErr
}

func (c *Client) once(ctx context.Context, method, target string, payload []byte, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	c.propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return &networkError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return apierror.FromStatus(resp.StatusCode, upstreamMessage(raw))
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode upstream response: %w", err)
	}
	return nil
}

func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.base.String() + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) backoff(retry int) time.Duration {
	delay := c.baseDelay << (retry - 1)
	if delay <= 0 || delay > c.maxDelay {
		delay = c.maxDelay
	}
	// up to 20% jitter so synchronized pollers spread out
	jitter := time.Duration(rand.Int64N(int64(delay)/5 + 1))
	return delay - jitter
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type networkError struct {
	err error
}

func (e *networkError) Error() string { return "upstream unreachable: " + e.err.Error() }

func (e *networkError) Unwrap() error { return e.err }

func (e *networkError) Is(target error) bool { return target == ErrUnreachable }

func retryable(err error) bool {
	var netErr *networkError
	if errors.As(err, &netErr) {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return false
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions:
		return true
	default:
		return false
	}
}

// upstreamMessage pulls a human-readable message out of an error body.
// Both {"message": "..."} and {"error": {"message": "..."}} are common.
func upstreamMessage(raw []byte) string {
	var body struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}

	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body.Error, &nested); err == nil && nested.Message != "" {
		return nested.Message
	}

	var flat string
	if err := json.Unmarshal(body.Error, &flat); err == nil {
		return flat
	}
	return ""
}

func pathOnly(path string) string {
	if idx := strings.IndexByte(path, '?'); idx >= 0 {
		return path[:idx]
	}
	return path
}
