// Package circuitbreaker stops calling a failing dependency for a while.
// The membership cache uses it so that an unreachable Redis costs one dial
// timeout per cool-off period instead of one per lookup.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State of a breaker.
type State int

const (
	// StateClosed lets every call through.
	StateClosed State = iota
	// StateOpen rejects calls until the cool-off has elapsed.
	StateOpen
	// StateHalfOpen lets a single probe through at a time.
	StateHalfOpen
)

var stateNames = [...]string{"closed", "open", "half-open"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

var (
	// ErrCircuitOpen is returned while the circuit rejects calls.
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrProbeInFlight is returned in the half-open state while another probe runs.
	ErrProbeInFlight = errors.New("circuit breaker probe in flight")
)

// Rejected reports whether err came from the breaker rather than from the call.
func Rejected(err error) bool {
	return errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrProbeInFlight)
}

// Counts are the breaker statistics since it was created.
type Counts struct {
	Requests             int
	TotalFailures        int
	ConsecutiveSuccesses int
	ConsecutiveFailures  int
}

// ══════════════════════════════════════════════════════════════════════════════
// OPTIONS
// ══════════════════════════════════════════════════════════════════════════════

type settings struct {
	failures  int
	successes int
	coolOff   time.Duration
	onChange  func(name string, from, to State)
	isFailure func(error) bool
	now       func() time.Time
}

// Option configures a Breaker.
type Option func(*settings)

// WithFailureThreshold opens the circuit after n consecutive failures.
func WithFailureThreshold(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.failures = n
		}
	}
}

// WithSuccessThreshold closes a half-open circuit after n consecutive good probes.
func WithSuccessThreshold(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.successes = n
		}
	}
}

// WithTimeout sets how long the circuit stays open.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.coolOff = d
		}
	}
}

// WithOnStateChange is called, under the breaker lock, on every transition.
func WithOnStateChange(fn func(name string, from, to State)) Option {
	return func(s *settings) { s.onChange = fn }
}

// WithIsFailure decides which errors count; by default every non-nil error does.
func WithIsFailure(fn func(error) bool) Option {
	return func(s *settings) { s.isFailure = fn }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// BREAKER
// ══════════════════════════════════════════════════════════════════════════════

// Breaker is safe for concurrent use.
type Breaker struct {
	name string
	cfg  settings

	mu       sync.Mutex
	state    State
	counts   Counts
	openedAt time.Time
	probing  bool
}

// New creates a closed breaker. Defaults: five failures open it for thirty
// seconds, two good probes close it.
func New(name string, opts ...Option) *Breaker {
	cfg := settings{failures: 5, successes: 2, coolOff: 30 * time.Second, now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Breaker{name: name, cfg: cfg}
}

// Name returns the name given to New.
func (b *Breaker) Name() string { return b.name }

// State returns the current state. An open breaker whose cool-off has
// elapsed still reports open until the next call probes it.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Counts returns a copy of the statistics.
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// Execute runs fn unless the circuit rejects the call, and records the result.
// Rejected calls return ErrCircuitOpen or ErrProbeInFlight and are not counted.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	probe, err := b.admit()
	if err != nil {
		return err
	}
	err = fn(ctx)
	b.record(probe, b.failed(err))
	return err
}

func (b *Breaker) failed(err error) bool {
	if err == nil {
		return false
	}
	return b.cfg.isFailure == nil || b.cfg.isFailure(err)
}

// admit reports whether the admitted call is the half-open probe.
func (b *Breaker) admit() (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.cfg.now().Sub(b.openedAt) < b.cfg.coolOff {
			return false, ErrCircuitOpen
		}
		b.transition(StateHalfOpen)
		fallthrough
	case StateHalfOpen:
		if b.probing {
			return false, ErrProbeInFlight
		}
		b.probing = true
		return true, nil
	}
	return false, nil
}

func (b *Breaker) record(probe, failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if probe {
		b.probing = false
	}
	b.counts.Requests++
	if failed {
		b.counts.TotalFailures++
		b.counts.ConsecutiveFailures++
		b.counts.ConsecutiveSuccesses = 0
	} else {
		b.counts.ConsecutiveSuccesses++
		b.counts.ConsecutiveFailures = 0
	}

	switch {
	case b.state == StateHalfOpen && failed:
		b.trip()
	case b.state == StateHalfOpen && b.counts.ConsecutiveSuccesses >= b.cfg.successes:
		b.transition(StateClosed)
	case b.state == StateClosed && b.counts.ConsecutiveFailures >= b.cfg.failures:
		b.trip()
	}
}

func (b *Breaker) trip() {
	b.openedAt = b.cfg.now()
	b.transition(StateOpen)
}

// transition must be called with mu held.
func (b *Breaker) transition(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	b.counts.ConsecutiveFailures = 0
	b.counts.ConsecutiveSuccesses = 0
	if b.cfg.onChange != nil {
		b.cfg.onChange(b.name, from, to)
	}
}

// CacheBreaker returns the breaker used in front of the membership cache:
// three failures open it for a minute, one good probe closes it.
func CacheBreaker(onStateChange func(name string, from, to State), isFailure func(error) bool) *Breaker {
	return New("membership-cache",
		WithFailureThreshold(3),
		WithSuccessThreshold(1),
		WithTimeout(time.Minute),
		WithOnStateChange(onStateChange),
		WithIsFailure(isFailure),
	)
}
