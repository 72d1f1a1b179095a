package replication

import (
	"github.com/blasternet/combatsync/pkg/streaming"
)

// Resolver finds the local replica of an entity.
type Resolver func(Entity) (Component, bool)

// Observer applies incoming deltas. A hook runs only when the value differs
// from the last one applied, so replays and duplicates are harmless.
type Observer struct {
	shadow  map[key]Value
	resolve Resolver
	missed  func(streaming.Delta)
}

// NewObserver creates an observer that finds replicas through resolve.
// missed, if set, receives deltas for entities that do not exist yet.
func NewObserver(resolve Resolver, missed func(streaming.Delta)) *Observer {
	return &Observer{shadow: make(map[key]Value), resolve: resolve, missed: missed}
}

// Apply runs the hook for each changed property. It returns how many hooks ran.
func (o *Observer) Apply(deltas []streaming.Delta) int {
	applied := 0
	for _, d := range deltas {
		e := Entity{Kind: d.Kind, ID: d.ID}
		c, ok := o.resolve(e)
		if !ok {
			if o.missed != nil {
				o.missed(d)
			}
			continue
		}
		k := key{e, d.Prop}
		v := Value{Int: d.Int, Text: d.Text}
		if prev, seen := o.shadow[k]; seen && prev == v {
			continue
		}
		o.shadow[k] = v
		c.OnReplicated(d.Prop, v)
		applied++
	}
	return applied
}

// Last returns the last applied value of a property.
func (o *Observer) Last(e Entity, prop string) (Value, bool) {
	v, ok := o.shadow[key{e, prop}]
	return v, ok
}
