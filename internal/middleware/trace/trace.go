// Package trace tags outbound backend calls with a request ID and logs
// their outcome.
package trace

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"fincli/internal/log"
)

// HeaderRequestID carries the request ID to the backend.
const HeaderRequestID = "X-Request-ID"

// ContextKey type for context keys
type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"
)

// Transport is an http.RoundTripper that stamps and logs every request.
type Transport struct {
	next    http.RoundTripper
	logger  *log.Logger
	metrics *Metrics

	// completed and totalMicros feed AverageResponseTime
	completed   int64
	totalMicros int64
}

// Metrics tracks request metrics
type Metrics struct {
	TotalRequests       int64
	FailedRequests      int64
	AverageResponseTime int64 // mean over completed requests, in microseconds
}

// NewTransport wraps next. A nil next uses http.DefaultTransport.
func NewTransport(next http.RoundTripper, logger *log.Logger) *Transport {
	if next == nil {
		next = http.DefaultTransport
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Transport{
		next:    next,
		logger:  logger.WithComponent(log.ComponentTrace),
		metrics: &Metrics{},
	}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(r *http.Request) (*http.Response, error) {
	start := time.Now()

	requestID := GetRequestID(r.Context())
	if requestID == "" {
		requestID = GenerateRequestID()
	}
	// RoundTrippers must not modify the caller's request
	r = r.Clone(WithRequestID(r.Context(), requestID))
	r.Header.Set(HeaderRequestID, requestID)

	fields := log.NewFields().
		WithRequestID(requestID).
		WithHTTPRequest(r.Method, r.URL.Host, r.URL.Path, r.URL.RawQuery)
	t.logger.DebugContext(r.Context(), "Backend request started", fields.ToSlice()...)

	atomic.AddInt64(&t.metrics.TotalRequests, 1)
	resp, err := t.next.RoundTrip(r)

	duration := time.Since(start)
	atomic.AddInt64(&t.totalMicros, duration.Microseconds())
	atomic.AddInt64(&t.completed, 1)
	fields[log.FieldDurationHuman] = duration.String()

	if err != nil {
		atomic.AddInt64(&t.metrics.FailedRequests, 1)
		fields.WithError(err)
		t.logger.ErrorContext(r.Context(), "Backend request failed", fields.ToSlice()...)
		return nil, err
	}

	// Use appropriate log level based on status code
	logLevel := slog.LevelInfo
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		logLevel = slog.LevelWarn
	} else if resp.StatusCode >= 500 {
		logLevel = slog.LevelError
	}
	if resp.StatusCode >= 400 {
		atomic.AddInt64(&t.metrics.FailedRequests, 1)
	}

	fields.WithHTTPResponse(resp.StatusCode, duration.Milliseconds(), resp.StatusCode < 400)
	t.logger.LogContext(r.Context(), logLevel, "Backend request completed", fields.ToSlice()...)
	return resp, nil
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	return "req_" + uuid.NewString()
}

// WithRequestID returns a copy of ctx carrying id
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// GetMetrics returns current metrics
func (t *Transport) GetMetrics() Metrics {
	m := Metrics{
		TotalRequests:  atomic.LoadInt64(&t.metrics.TotalRequests),
		FailedRequests: atomic.LoadInt64(&t.metrics.FailedRequests),
	}
	if n := atomic.LoadInt64(&t.completed); n > 0 {
		m.AverageResponseTime = atomic.LoadInt64(&t.totalMicros) / n
	}
	return m
}
