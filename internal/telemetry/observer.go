package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/Amund211/coalesce"
)

const meterName = "github.com/Amund211/coalesce"

type meterObserver struct {
	hits         metric.Int64Counter
	misses       metric.Int64Counter
	coalesced    metric.Int64Counter
	timeouts     metric.Int64Counter
	failures     metric.Int64Counter
	evictions    metric.Int64Counter
	waitDuration metric.Float64Histogram
}

// NewMeterObserver returns an observer exporting cache events as
// OpenTelemetry metrics through the globally registered meter provider.
// Keys are deliberately not recorded as attributes to keep cardinality down.
func NewMeterObserver() (coalesce.Observer, error) {
	meter := otel.Meter(meterName)

	newCounter := func(name, description string) (metric.Int64Counter, error) {
		return meter.Int64Counter(name, metric.WithDescription(description))
	}

	hits, err := newCounter("coalesce.hits", "Calls answered by a ready cache entry")
	if err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	misses, err := newCounter("coalesce.misses", "Calls that claimed a key and ran the computation")
	if err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	coalesced, err := newCounter("coalesce.coalesced", "Calls that shared another caller's in-flight computation")
	if err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	timeouts, err := newCounter("coalesce.wait_timeouts", "Calls that gave up waiting for an in-flight computation")
	if err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	failures, err := newCounter("coalesce.failures", "Calls that observed a failed computation")
	if err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	evictions, err := newCounter("coalesce.evictions", "Explicit evictions")
	if err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}

	waitDuration, err := meter.Float64Histogram(
		"coalesce.wait.duration",
		metric.WithDescription("Time spent blocked on another caller's computation"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram: %w", err)
	}

	return &meterObserver{
		hits:         hits,
		misses:       misses,
		coalesced:    coalesced,
		timeouts:     timeouts,
		failures:     failures,
		evictions:    evictions,
		waitDuration: waitDuration,
	}, nil
}

func (o *meterObserver) On(eventData coalesce.EventData) {
	ctx := context.Background()

	switch eventData.Event {
	case coalesce.EventHit:
		o.hits.Add(ctx, 1)
	case coalesce.EventMiss:
		o.misses.Add(ctx, 1)
	case coalesce.EventCoalesced:
		o.coalesced.Add(ctx, 1)
		o.waitDuration.Record(ctx, eventData.WaitDuration.Seconds())
	case coalesce.EventWaitTimeout:
		o.timeouts.Add(ctx, 1)
		o.waitDuration.Record(ctx, eventData.WaitDuration.Seconds())
	case coalesce.EventFailure:
		o.failures.Add(ctx, 1)
	case coalesce.EventEviction:
		o.evictions.Add(ctx, 1)
	}
}

// Type assertion
var _ coalesce.Observer = (*meterObserver)(nil)
