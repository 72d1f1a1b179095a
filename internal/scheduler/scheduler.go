// Package scheduler provides cooperative one-shot timers driven by the
// simulation tick. Nothing here reads the wall clock; time only moves
// forward when Advance is called.
package scheduler

import (
	"container/heap"
	"time"
)

// Handle refers to a scheduled timer. The zero Handle is never active.
type Handle struct {
	id uint64
}

// Valid reports whether the handle was ever issued.
func (h Handle) Valid() bool { return h.id != 0 }

type timer struct {
	id    uint64
	due   time.Duration
	fn    func()
	index int
}

type timerHeap []*timer

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].due == h[j].due {
		return h[i].id < h[j].id
	}
	return h[i].due < h[j].due
}
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *timerHeap) Push(x any) {
	t := x.(*timer)
	t.index = len(*h)
	*h = append(*h, t)
}
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// Scheduler owns the simulation clock and its pending timers.
// It is not safe for concurrent use; callers run it from the tick goroutine.
type Scheduler struct {
	now    time.Duration
	nextID uint64
	queue  timerHeap
	active map[uint64]*timer
}

// New returns a scheduler whose clock starts at start.
func New(start time.Duration) *Scheduler {
	return &Scheduler{
		now:    start,
		active: make(map[uint64]*timer),
	}
}

// Now returns the current simulation time.
func (s *Scheduler) Now() time.Duration { return s.now }

// Schedule runs fn once after delay. A non-positive delay fires on the next Advance.
func (s *Scheduler) Schedule(delay time.Duration, fn func()) Handle {
	if delay < 0 {
		delay = 0
	}
	s.nextID++
	t := &timer{id: s.nextID, due: s.now + delay, fn: fn}
	heap.Push(&s.queue, t)
	s.active[t.id] = t
	return Handle{id: t.id}
}

// Rearm cancels whatever h refers to and schedules fn in its place.
func (s *Scheduler) Rearm(h *Handle, delay time.Duration, fn func()) {
	s.Cancel(*h)
	*h = s.Schedule(delay, fn)
}

// Cancel stops a pending timer. It reports whether the timer was still pending.
func (s *Scheduler) Cancel(h Handle) bool {
	t, ok := s.active[h.id]
	if !ok {
		return false
	}
	delete(s.active, h.id)
	heap.Remove(&s.queue, t.index)
	return true
}

// Active reports whether the timer has neither fired nor been cancelled.
func (s *Scheduler) Active(h Handle) bool {
	_, ok := s.active[h.id]
	return ok
}

// Remaining returns the time until h fires, or zero if it is not pending.
func (s *Scheduler) Remaining(h Handle) time.Duration {
	t, ok := s.active[h.id]
	if !ok {
		return 0
	}
	return t.due - s.now
}

// Pending returns the number of timers waiting to fire.
func (s *Scheduler) Pending() int { return len(s.active) }

// Advance moves the clock forward by dt and fires every timer that comes due,
// in due-time order. Timers scheduled by callbacks fire in the same call when
// they fall within the window.
func (s *Scheduler) Advance(dt time.Duration) {
	target := s.now + dt
	for len(s.queue) > 0 && s.queue[0].due <= target {
		t := heap.Pop(&s.queue).(*timer)
		delete(s.active, t.id)
		if t.due > s.now {
			s.now = t.due
		}
		t.fn()
	}
	s.now = target
}
