package intake

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blasternet/combatsync/pkg/core"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"
)

const instrumentationName = "github.com/blasternet/combatsync/internal/intake"

var (
	// ErrQueueFull is returned when the staging ring has no room.
	ErrQueueFull = errors.New("intake queue full")
	// ErrRateLimited is returned when a player exceeds its request budget.
	ErrRateLimited = errors.New("request rate exceeded")
)

// Config sizes the intake.
type Config struct {
	Capacity      int
	RatePerSecond float64 // zero disables the flood guard
	Burst         int
}

// Guard keeps one token bucket per player.
type Guard struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[core.PlayerID]*rate.Limiter
}

// NewGuard allows perSecond requests per player with the given burst.
func NewGuard(perSecond float64, burst int) *Guard {
	if burst < 1 {
		burst = 1
	}
	return &Guard{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: make(map[core.PlayerID]*rate.Limiter),
	}
}

// Allow spends one token of p's bucket at time now.
func (g *Guard) Allow(p core.PlayerID, now time.Time) bool {
	g.mu.Lock()
	l, ok := g.limiters[p]
	if !ok {
		l = rate.NewLimiter(g.limit, g.burst)
		g.limiters[p] = l
	}
	g.mu.Unlock()
	return l.AllowN(now, 1)
}

// Forget drops p's bucket.
func (g *Guard) Forget(p core.PlayerID) {
	g.mu.Lock()
	delete(g.limiters, p)
	g.mu.Unlock()
}

// Intake is the authority's request entry point.
type Intake struct {
	buf   *Buffer
	guard *Guard
	epoch time.Time
	now   func() time.Duration

	rejected metric.Int64Counter
	staged   metric.Int64Counter
}

// New builds an intake. now reports the authority world time, which also
// drives the token buckets so limits follow simulated time.
func New(cfg Config, now func() time.Duration) (*Intake, error) {
	m := otel.Meter(instrumentationName)
	rejected, err := m.Int64Counter(
		"intake.requests.rejected",
		metric.WithDescription("Requests refused before reaching the simulation"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating rejected counter: %w", err)
	}
	staged, err := m.Int64Counter(
		"intake.requests.staged",
		metric.WithDescription("Requests staged for the next tick"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating staged counter: %w", err)
	}

	in := &Intake{
		buf:      NewBuffer(cfg.Capacity),
		epoch:    time.Unix(0, 0),
		now:      now,
		rejected: rejected,
		staged:   staged,
	}
	if cfg.RatePerSecond > 0 {
		in.guard = NewGuard(cfg.RatePerSecond, cfg.Burst)
	}
	return in, nil
}

// Push stages cmd for the next drain.
func (in *Intake) Push(cmd Command) error {
	if in.now != nil {
		cmd.Received = in.now()
	}
	if in.guard != nil && !in.guard.Allow(cmd.Player, in.epoch.Add(cmd.Received)) {
		in.reject(cmd.Type, "rate")
		return fmt.Errorf("%w: player %d %s", ErrRateLimited, cmd.Player, cmd.Type)
	}
	if !in.buf.Push(cmd) {
		in.reject(cmd.Type, "full")
		return fmt.Errorf("%w: %s", ErrQueueFull, cmd.Type)
	}
	in.staged.Add(context.Background(), 1, metric.WithAttributes(attribute.String("type", cmd.Type)))
	return nil
}

// Drain returns every staged command in arrival order.
func (in *Intake) Drain() []Command { return in.buf.Drain() }

// Len is the number of staged commands.
func (in *Intake) Len() int { return in.buf.Len() }

// Forget releases per-player state when a player leaves.
func (in *Intake) Forget(p core.PlayerID) {
	if in.guard != nil {
		in.guard.Forget(p)
	}
}

func (in *Intake) reject(typ, reason string) {
	in.rejected.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("type", typ),
		attribute.String("reason", reason),
	))
}
