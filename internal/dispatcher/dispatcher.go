// Package dispatcher routes named commands to handlers. Participant
// requests run synchronously on the tick goroutine; telemetry handlers are
// registered buffered and drain on their own goroutine.
package dispatcher

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blasternet/combatsync/pkg/core"
)

var (
	// ErrUnknownCommand is returned for a command nothing is registered for.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrQueueFull is returned when a non-blocking buffered handler drops an event.
	ErrQueueFull = errors.New("queue full")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("dispatcher closed")
)

// Event is one command addressed to the authority.
type Event struct {
	Command   string
	Player    core.PlayerID // zero for authority-originated events
	Payload   any
	Timestamp time.Time
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Option configures handler registration.
type Option func(*route)

// Buffered makes the handler async with a queue of the given size.
func Buffered(size int) Option {
	return func(r *route) { r.size = size }
}

// Blocking makes a buffered handler block when the queue is full instead of dropping.
func Blocking() Option {
	return func(r *route) { r.blocking = true }
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(r *route) { r.logged = true }
}

// Dispatcher routes events to registered handlers. Registration happens
// before the first Dispatch; Close may race with Dispatch.
type Dispatcher struct {
	logger Logger
	inst   *instruments

	mu      sync.RWMutex
	routes  map[string]*route
	closed  bool
	workers sync.WaitGroup
}

// New creates a new Dispatcher with the given logger, which may be nil.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	if logger == nil {
		logger = nopLogger{}
	}
	d := &Dispatcher{
		logger: logger,
		routes: make(map[string]*route),
	}
	inst, err := newInstruments(d)
	if err != nil {
		return nil, err
	}
	d.inst = inst
	return d, nil
}

// Register adds a handler for the given command with optional configuration.
// Registering a command twice replaces the synchronous handler; a buffered
// queue already started keeps draining into the old one until Close.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	r := &route{command: command, handle: h}
	for _, opt := range opts {
		opt(r)
	}
	r.init(d)

	d.mu.Lock()
	d.routes[command] = r
	d.mu.Unlock()
}

// Dispatch routes an event to its registered handler.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return nil, ErrClosed
	}
	r, ok := d.routes[e.Command]
	if !ok {
		d.mu.RUnlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, e.Command)
	}
	// the read lock is held through enqueue so Close never closes a queue mid-send
	if r.queue != nil {
		defer d.mu.RUnlock()
		return r.enqueue(e)
	}
	d.mu.RUnlock()
	return r.run(e)
}

// HasHandler returns true if a handler is registered for the command.
func (d *Dispatcher) HasHandler(command string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.routes[command]
	return ok
}

// Stats returns a snapshot of every command's counters.
func (d *Dispatcher) Stats() map[string]Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]Stats, len(d.routes))
	for cmd, r := range d.routes {
		out[cmd] = r.stats()
	}
	return out
}

// Close stops accepting events and waits until every buffered handler has
// drained its queue.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, r := range d.routes {
		if r.queue != nil {
			close(r.queue)
		}
	}
	d.mu.Unlock()
	d.workers.Wait()
}
