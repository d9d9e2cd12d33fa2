package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"example.com/backstage/dashboard/config"
	"example.com/backstage/dashboard/internal/metrics"
	"example.com/backstage/dashboard/internal/tracing"

	"github.com/google/uuid"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog/log"
)

// maxBodyBytes caps how much of a backend answer is read
const maxBodyBytes = 8 << 20

// Client talks to the simulation REST backend. Every method returns either
// the decoded payload or an *Error; nothing is reported to the user here.
type Client struct {
	baseURL string
	http    *http.Client
	tracer  tracing.Tracer
	metrics *metrics.Metrics
}

// NewClient creates a backend client for the configured context
func NewClient(cfg config.BackendConfig, tracer tracing.Tracer, metricsCollector *metrics.Metrics) *Client {
	if tracer == nil {
		tracer = tracing.Noop()
	}
	if metricsCollector == nil {
		metricsCollector = metrics.NewMetrics()
	}

	return &Client{
		baseURL: cfg.BaseURL(),
		http:    &http.Client{Timeout: cfg.Timeout},
		tracer:  tracer,
		metrics: metricsCollector,
	}
}

// BaseURL returns the backend address in use
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) get(ctx context.Context, op, path string, out interface{}) error {
	return c.do(ctx, op, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, op, path string, body, out interface{}) error {
	return c.do(ctx, op, http.MethodPost, path, body, out)
}

func (c *Client) delete(ctx context.Context, op, path string) error {
	return c.do(ctx, op, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	start := time.Now()
	requestID := uuid.NewString()

	err := c.roundTrip(ctx, op, requestID, method, path, body, out)
	elapsed := time.Since(start)
	c.metrics.ObserveCall(op, elapsed, err)

	event := log.Debug()
	if err != nil {
		event = log.Warn().Err(err)
	}
	event.
		Str("op", op).
		Str("method", method).
		Str("path", path).
		Str("request_id", requestID).
		Dur("latency", elapsed).
		Msg("backend call")

	return err
}

func (c *Client) roundTrip(ctx context.Context, op, requestID, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Op: op, Kind: KindTransport, Err: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Op: op, Kind: KindTransport, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	txn, end := c.tracer.StartTransaction(ctx, "backend/"+op)
	defer end()

	seg := c.tracer.StartExternalSegment(txn, req)
	resp, err := c.http.Do(req)
	if seg != nil {
		seg.Response = resp
		seg.End()
	}
	if err != nil {
		c.metrics.SetHealth("backend", false)
		return c.fail(txn, &Error{Op: op, Kind: KindTransport, Err: err})
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return c.fail(txn, &Error{Op: op, Kind: KindTransport, StatusCode: resp.StatusCode, Err: err})
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.fail(txn, &Error{
			Op:         op,
			Kind:       KindServer,
			StatusCode: resp.StatusCode,
			Detail:     extractDetail(data),
		})
	}

	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return c.fail(txn, &Error{Op: op, Kind: KindDecode, StatusCode: resp.StatusCode, Detail: "empty response body"})
	}
	if err := json.Unmarshal(data, out); err != nil {
		return c.fail(txn, &Error{Op: op, Kind: KindDecode, StatusCode: resp.StatusCode, Err: err})
	}
	return nil
}

func (c *Client) fail(txn *newrelic.Transaction, err *Error) error {
	c.tracer.RecordError(txn, err)
	return err
}

// extractDetail pulls FastAPI's "detail" out of an error body, or falls back to the raw text
func extractDetail(data []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && len(payload.Detail) > 0 {
		var s string
		if err := json.Unmarshal(payload.Detail, &s); err == nil {
			return s
		}
		return string(payload.Detail)
	}
	text := strings.TrimSpace(string(data))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}
