package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Pacer kinds accepted by NewPacer.
const (
	PacerInterval    = "interval"
	PacerTokenBucket = "token_bucket"
)

// DefaultPacing is the delay between two reconciliations.
const DefaultPacing = 1500 * time.Millisecond

// Clock is the time source a pacer sleeps on.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Pacer is blocked on by the orchestrator before each reconciliation.
type Pacer interface {
	// Wait blocks until the next external call may start.
	Wait(ctx context.Context) error
	// Record reports the outcome of the call that followed the last Wait.
	Record(failed bool)
}

// IntervalPacer sleeps a fixed delay between calls. The first call never waits.
// A positive failure delay replaces the regular one after a failed call.
type IntervalPacer struct {
	clock   Clock
	success time.Duration
	failure time.Duration

	mu         sync.Mutex
	started    bool
	lastFailed bool
}

// NewIntervalPacer creates an IntervalPacer on the wall clock.
func NewIntervalPacer(success, failure time.Duration) *IntervalPacer {
	return NewIntervalPacerWithClock(realClock{}, success, failure)
}

// NewIntervalPacerWithClock creates an IntervalPacer on the given clock.
func NewIntervalPacerWithClock(clock Clock, success, failure time.Duration) *IntervalPacer {
	return &IntervalPacer{clock: clock, success: success, failure: failure}
}

// Wait implements Pacer.
func (p *IntervalPacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	if !p.started {
		p.started = true
		p.mu.Unlock()
		return nil
	}
	d := p.success
	if p.lastFailed && p.failure > 0 {
		d = p.failure
	}
	p.mu.Unlock()

	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.clock.After(d):
		return nil
	}
}

// Record implements Pacer.
func (p *IntervalPacer) Record(failed bool) {
	p.mu.Lock()
	p.lastFailed = failed
	p.mu.Unlock()
}

// RateLimitPacer lets one call through per interval using a token bucket.
type RateLimitPacer struct {
	limiter *rate.Limiter
}

// NewRateLimitPacer creates a token bucket refilling one token per interval.
func NewRateLimitPacer(interval time.Duration, burst int) *RateLimitPacer {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &RateLimitPacer{limiter: rate.NewLimiter(limit, burst)}
}

// Wait implements Pacer.
func (p *RateLimitPacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// Record implements Pacer. The bucket does not care about outcomes.
func (p *RateLimitPacer) Record(bool) {}

// NewPacer builds a pacer by kind. A new pacer is needed per refresh cycle.
func NewPacer(kind string, pacing, failurePacing time.Duration) (Pacer, error) {
	switch kind {
	case "", PacerInterval:
		return NewIntervalPacer(pacing, failurePacing), nil
	case PacerTokenBucket:
		return NewRateLimitPacer(pacing, 1), nil
	default:
		return nil, fmt.Errorf("unknown pacer %q", kind)
	}
}

// NewPacerFactory checks kind once and returns a factory building a fresh pacer per cycle.
func NewPacerFactory(kind string, pacing, failurePacing time.Duration) (PacerFactory, error) {
	if _, err := NewPacer(kind, pacing, failurePacing); err != nil {
		return nil, err
	}
	if kind == PacerTokenBucket {
		return func() Pacer { return NewRateLimitPacer(pacing, 1) }, nil
	}
	return func() Pacer { return NewIntervalPacer(pacing, failurePacing) }, nil
}
