package tracing

import (
	"context"
	"net/http"
	"time"

	"example.com/backstage/dashboard/config"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Tracer defines the interface for tracing
type Tracer interface {
	// StartTransaction returns the transaction carried by ctx, or starts a new one.
	// The returned end func must be called; it is a no-op for borrowed transactions.
	StartTransaction(ctx context.Context, name string) (*newrelic.Transaction, func())
	StartExternalSegment(txn *newrelic.Transaction, req *http.Request) *newrelic.ExternalSegment
	RecordError(txn *newrelic.Transaction, err error)
	AddAttribute(txn *newrelic.Transaction, key string, value interface{})
	Application() *newrelic.Application
	Close()
}

// NewRelicTracer implements Tracer using New Relic
type NewRelicTracer struct {
	app     *newrelic.Application
	enabled bool
}

// NewTracer creates a new tracer. Without a license key tracing is disabled, not failed.
func NewTracer(cfg config.TracingConfig) (Tracer, error) {
	if !cfg.Enabled || cfg.LicenseKey == "" {
		log.Warn().Msg("New Relic license key not provided, tracing will be disabled")
		return Noop(), nil
	}

	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(cfg.AppName),
		newrelic.ConfigLicense(cfg.LicenseKey),
		newrelic.ConfigDistributedTracerEnabled(cfg.DistribTracing),
		newrelic.ConfigAppLogForwardingEnabled(cfg.LogEnabled),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize New Relic")
	}

	return &NewRelicTracer{app: app, enabled: true}, nil
}

// Noop returns a tracer that records nothing
func Noop() Tracer {
	return &NewRelicTracer{enabled: false}
}

func (t *NewRelicTracer) StartTransaction(ctx context.Context, name string) (*newrelic.Transaction, func()) {
	if txn := newrelic.FromContext(ctx); txn != nil {
		return txn, func() {}
	}
	if !t.enabled || t.app == nil {
		return nil, func() {}
	}
	txn := t.app.StartTransaction(name)
	return txn, txn.End
}

// StartExternalSegment starts a segment for an outgoing backend request
func (t *NewRelicTracer) StartExternalSegment(txn *newrelic.Transaction, req *http.Request) *newrelic.ExternalSegment {
	if !t.enabled || txn == nil {
		return nil
	}
	return newrelic.StartExternalSegment(txn, req)
}

func (t *NewRelicTracer) RecordError(txn *newrelic.Transaction, err error) {
	if !t.enabled || txn == nil || err == nil {
		return
	}
	txn.NoticeError(err)
}

func (t *NewRelicTracer) AddAttribute(txn *newrelic.Transaction, key string, value interface{}) {
	if !t.enabled || txn == nil {
		return
	}
	txn.AddAttribute(key, value)
}

// Application exposes the agent for the gin middleware; nil when disabled
func (t *NewRelicTracer) Application() *newrelic.Application {
	if !t.enabled {
		return nil
	}
	return t.app
}

// Close flushes pending data to New Relic
func (t *NewRelicTracer) Close() {
	if !t.enabled || t.app == nil {
		return
	}
	t.app.Shutdown(5 * time.Second)
	log.Info().Msg("New Relic tracer shutdown")
}
