package dispatcher

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Stats counts what one command's handler has seen.
type Stats struct {
	Handled uint64 `json:"handled"`
	Failed  uint64 `json:"failed"`
	Dropped uint64 `json:"dropped,omitempty"`
	Queued  int    `json:"queued,omitempty"`
}

type route struct {
	command  string
	handle   HandlerFunc
	size     int
	blocking bool
	logged   bool

	d     *Dispatcher
	attrs metric.MeasurementOption
	queue chan Event // nil for synchronous handlers

	handled atomic.Uint64
	failed  atomic.Uint64
	dropped atomic.Uint64
}

func (r *route) init(d *Dispatcher) {
	r.d = d
	r.attrs = metric.WithAttributes(attribute.String("command", r.command))
	if r.size <= 0 {
		return
	}
	r.queue = make(chan Event, r.size)
	d.workers.Add(1)
	go r.drain()
}

func (r *route) drain() {
	defer r.d.workers.Done()
	for e := range r.queue {
		if _, err := r.run(e); err != nil && !r.logged {
			r.d.logger.Error("buffered handler failed", "command", r.command, "player", e.Player, "error", err)
		}
	}
}

func (r *route) enqueue(e Event) (any, error) {
	if r.blocking {
		r.queue <- e
		return "queued", nil
	}
	select {
	case r.queue <- e:
		return "queued", nil
	default:
		r.dropped.Add(1)
		r.d.inst.dropped.Add(context.Background(), 1, r.attrs)
		return nil, fmt.Errorf("%w: %s", ErrQueueFull, r.command)
	}
}

// run calls the handler, counting and timing it.
func (r *route) run(e Event) (any, error) {
	if r.logged {
		r.d.logger.Debug("handling event", "command", r.command, "player", e.Player)
	}
	start := time.Now()
	result, err := r.handle(e)
	elapsed := time.Since(start)

	ctx := context.Background()
	r.handled.Add(1)
	r.d.inst.processed.Add(ctx, 1, r.attrs)
	r.d.inst.duration.Record(ctx, float64(elapsed)/float64(time.Millisecond), r.attrs)
	if err != nil {
		r.failed.Add(1)
		r.d.inst.failed.Add(ctx, 1, r.attrs)
		if r.logged {
			r.d.logger.Error("event failed", "command", r.command, "player", e.Player, "duration", elapsed, "error", err)
		}
		return result, err
	}
	if r.logged {
		r.d.logger.Debug("event complete", "command", r.command, "duration", elapsed)
	}
	return result, nil
}

func (r *route) stats() Stats {
	return Stats{
		Handled: r.handled.Load(),
		Failed:  r.failed.Load(),
		Dropped: r.dropped.Load(),
		Queued:  len(r.queue),
	}
}
