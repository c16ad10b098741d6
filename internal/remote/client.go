// Package remote is the boundary to the remote consent, audit and auth
// service. Every payload alias the service has used is mapped onto the
// canonical models here, and every failure becomes an *Error.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"complyscan/internal/platform/metrics"
	"complyscan/pkg/platform/circuit"
	"complyscan/pkg/requestcontext"
)

const maxResponseBytes = 1 << 20

// Client is an HTTP adapter for the remote service. It holds no credential;
// use For to bind one.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	breaker    *circuit.Breaker
	tracer     trace.Tracer
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) { c.breaker = b }
}

// New creates a client. timeout bounds every single call.
func New(baseURL string, timeout time.Duration, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    timeout,
		breaker:    circuit.New("remote"),
		tracer:     otel.Tracer("complyscan/internal/remote"),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Healthy reports whether calls are currently allowed through the breaker.
func (c *Client) Healthy() bool {
	return !c.breaker.IsOpen()
}

// For binds a credential. An empty credential sends no Authorization header
// and leaves it to the service to reject the call.
func (c *Client) For(credential string) *Bound {
	return &Bound{client: c, credential: credential}
}

// Bound is a Client carrying one session's credential.
type Bound struct {
	client     *Client
	credential string
}

func (c *Client) call(ctx context.Context, op, method, path, credential string, payload any) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ctx, span := c.tracer.Start(ctx, "remote."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("remote.path", path),
		),
	)
	defer span.End()

	if !c.breaker.Allow() {
		err := &Error{Op: op, Category: CategoryUnavailable, Message: "remote service temporarily unavailable", Underlying: circuit.ErrOpen}
		if c.metrics != nil {
			c.metrics.ObserveRemoteCall(op, "short_circuit", 0)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "short_circuit")
		return nil, err
	}

	start := time.Now()
	body, err := c.roundTrip(ctx, op, method, path, credential, payload)
	c.record(ctx, op, start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(CategoryOf(err)))
	}
	return body, err
}

func (c *Client) roundTrip(ctx context.Context, op, method, path, credential string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, &Error{Op: op, Category: CategoryInternal, Message: "failed to encode request", Underlying: err}
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+strings.TrimLeft(path, "/"), reader)
	if err != nil {
		return nil, &Error{Op: op, Category: CategoryInternal, Message: "failed to build request", Underlying: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, transportError(ctx, op, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &Error{
			Op:         op,
			Category:   categoryForStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Message:    extractMessage(body),
		}
	}
	return body, nil
}

// record feeds the breaker and metrics. Only transient failures count against
// the service's health; a 4xx is a healthy answer.
func (c *Client) record(ctx context.Context, op string, start time.Time, err error) {
	outcome := "ok"
	transient := false
	if err != nil {
		outcome = string(CategoryOf(err))
		var re *Error
		if errors.As(err, &re) {
			transient = re.Transient()
		}
	}
	if c.metrics != nil {
		c.metrics.ObserveRemoteCall(op, outcome, time.Since(start))
	}

	if transient {
		if _, change := c.breaker.RecordFailure(); change.Opened {
			c.logger.WarnContext(ctx, "remote service marked unhealthy",
				"breaker", c.breaker.Name(),
				"op", op,
				"error", err,
			)
		}
		return
	}
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "remote service recovered",
			"breaker", c.breaker.Name(),
		)
	}
}

func badData(op, message string) *Error {
	return &Error{Op: op, Category: CategoryBadData, Message: message}
}

func escape(segment string) string {
	return url.PathEscape(segment)
}
