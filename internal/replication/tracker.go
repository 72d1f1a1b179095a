package replication

import (
	"context"

	"github.com/blasternet/combatsync/pkg/streaming"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/blasternet/combatsync/internal/replication"

type key struct {
	entity Entity
	prop   string
}

// Tracker remembers the last value sent for every property and emits
// deltas for the ones that changed.
type Tracker struct {
	last map[key]Value
	seq  uint64
	sent metric.Int64Counter
}

// NewTracker creates a tracker with no history.
func NewTracker() *Tracker {
	sent, _ := otel.Meter(instrumentationName).Int64Counter(
		"replication.deltas.sent",
		metric.WithDescription("Property deltas produced by the authority"),
	)
	return &Tracker{last: make(map[key]Value), sent: sent}
}

// Diff returns a delta for every field of every source whose value differs
// from the last one sent.
func (t *Tracker) Diff(sources []Source) []streaming.Delta {
	var out []streaming.Delta
	for _, src := range sources {
		e := src.Entity()
		owner := src.Owner()
		for _, f := range src.Fields() {
			k := key{e, f.Prop}
			if prev, ok := t.last[k]; ok && prev == f.Value {
				continue
			}
			t.last[k] = f.Value
			t.seq++
			out = append(out, streaming.Delta{
				Seq:    t.seq,
				Kind:   e.Kind,
				ID:     e.ID,
				Prop:   f.Prop,
				Int:    f.Value.Int,
				Text:   f.Value.Text,
				Owner:  owner,
				Hidden: f.OwnerOnly,
			})
		}
	}
	if t.sent != nil && len(out) > 0 {
		t.sent.Add(context.Background(), int64(len(out)))
	}
	return out
}

// Forget drops the history of an entity so it is fully resent when it reappears.
func (t *Tracker) Forget(e Entity) {
	for k := range t.last {
		if k.entity == e {
			delete(t.last, k)
		}
	}
}

// Snapshot returns every field currently known, for a late joiner.
func (t *Tracker) Snapshot(sources []Source) []streaming.Delta {
	var out []streaming.Delta
	for _, src := range sources {
		e := src.Entity()
		owner := src.Owner()
		for _, f := range src.Fields() {
			out = append(out, streaming.Delta{
				Kind:   e.Kind,
				ID:     e.ID,
				Prop:   f.Prop,
				Int:    f.Value.Int,
				Text:   f.Value.Text,
				Owner:  owner,
				Hidden: f.OwnerOnly,
			})
		}
	}
	return out
}

// For filters deltas for one connection: owner-only properties are kept
// only for their owner.
func For(viewer uint32, deltas []streaming.Delta) []streaming.Delta {
	out := make([]streaming.Delta, 0, len(deltas))
	for _, d := range deltas {
		if d.Hidden && d.Owner != viewer {
			continue
		}
		out = append(out, d)
	}
	return out
}
