package dispatcher

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/blasternet/combatsync/internal/dispatcher"

type instruments struct {
	processed metric.Int64Counter
	failed    metric.Int64Counter
	dropped   metric.Int64Counter
	duration  metric.Float64Histogram
}

// newInstruments builds the counters on the global meter and a queue depth
// gauge observed from d's routes.
func newInstruments(d *Dispatcher) (*instruments, error) {
	m := otel.Meter(instrumentationName)
	inst := &instruments{}

	var err error
	if inst.processed, err = m.Int64Counter("dispatcher.events.processed",
		metric.WithDescription("Total events handled")); err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}
	if inst.failed, err = m.Int64Counter("dispatcher.events.failed",
		metric.WithDescription("Total events whose handler returned an error")); err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}
	if inst.dropped, err = m.Int64Counter("dispatcher.events.dropped",
		metric.WithDescription("Total events dropped due to full queue")); err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}
	if inst.duration, err = m.Float64Histogram("dispatcher.handler.duration",
		metric.WithDescription("Handler run time"),
		metric.WithUnit("ms")); err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	depth, err := m.Int64ObservableGauge("dispatcher.queue.size",
		metric.WithDescription("Current number of events in queue"))
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}
	_, err = m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		d.mu.RLock()
		defer d.mu.RUnlock()
		for _, r := range d.routes {
			if r.queue != nil {
				o.ObserveInt64(depth, int64(len(r.queue)), r.attrs)
			}
		}
		return nil
	}, depth)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}
	return inst, nil
}
