// Package breaker provides a circuit breaker for calls to the external
// reasoner collaborator.
//
// One breaker instance is shared by all sessions: the reasoner is a
// single dependency, so its health is a single piece of state. The
// breaker trips after a run of consecutive failures, short-circuits
// calls while open, and probes recovery with a single call before
// closing again.
//
// State machine:
//
//	Closed --(failureThreshold consecutive failures)--> Open
//	Open   --(recovery timeout elapsed, one probe)----> HalfOpen
//	HalfOpen --(probe succeeds)--> Closed
//	HalfOpen --(probe fails)----> Open (timer restarts)
//
// # Thread Safety
//
// The Breaker is safe for concurrent use. While half-open, exactly one
// caller holds the probe; concurrent callers are rejected as if open.
package breaker

import (
	"context"
	"sync"
	"time"

	"github.com/concord-hq/concord/internal/errors"
	"github.com/concord-hq/concord/internal/logging"
)

// State is the breaker's position in its state machine.
type State int

const (
	// StateClosed passes calls through and counts failures.
	StateClosed State = iota
	// StateOpen rejects calls immediately.
	StateOpen
	// StateHalfOpen allows a single probe call.
	StateHalfOpen
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Breaker wraps unreliable calls with trip/probe/recover behavior.
type Breaker struct {
	mu               sync.Mutex
	state            State
	failures         int // consecutive failures while closed
	failureThreshold int
	recoveryTimeout  time.Duration
	openedAt         time.Time
	probeInFlight    bool
	log              *logging.Logger

	// now is stubbed in tests
	now func() time.Time
}

// New creates a Breaker that opens after failureThreshold consecutive
// failures and allows a probe after recoveryTimeout.
func New(failureThreshold int, recoveryTimeout time.Duration, log *logging.Logger) *Breaker {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Breaker{
		state:            StateClosed,
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		log:              log.WithComponent("breaker"),
		now:              time.Now,
	}
}

// State returns the breaker's current state. An open breaker whose
// recovery timeout has elapsed still reports open until the next call
// claims the probe.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures returns the current consecutive-failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Call runs fn under the breaker. If the breaker is open (or half-open
// with the probe already claimed), Call returns ErrBreakerOpen without
// invoking fn; callers substitute their operation's deterministic
// fallback. Otherwise fn's error outcome feeds the state machine.
func (b *Breaker) Call(ctx context.Context, op string, fn func(context.Context) error) error {
	if err := b.acquire(op); err != nil {
		return err
	}

	err := fn(ctx)
	b.record(op, err)
	return err
}

// acquire decides whether a call may proceed, claiming the half-open
// probe slot when eligible.
func (b *Breaker) acquire(op string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil

	case StateOpen:
		if b.now().Sub(b.openedAt) < b.recoveryTimeout {
			return errors.NewReasonerError("call rejected", errors.ErrBreakerOpen).WithOperation(op)
		}
		// Recovery window elapsed: this caller becomes the probe.
		b.state = StateHalfOpen
		b.probeInFlight = true
		b.log.Info("breaker half-open, probing", "op", op)
		return nil

	case StateHalfOpen:
		if b.probeInFlight {
			return errors.NewReasonerError("probe in flight", errors.ErrBreakerOpen).WithOperation(op)
		}
		b.probeInFlight = true
		return nil

	default:
		return errors.NewReasonerError("unknown breaker state", errors.ErrBreakerOpen).WithOperation(op)
	}
}

// record feeds a call outcome into the state machine.
func (b *Breaker) record(op string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		if err == nil {
			b.failures = 0
			return
		}
		b.failures++
		if b.failures >= b.failureThreshold {
			b.state = StateOpen
			b.openedAt = b.now()
			b.log.Warn("breaker opened",
				"op", op,
				"consecutive_failures", b.failures)
		}

	case StateHalfOpen:
		b.probeInFlight = false
		if err == nil {
			b.state = StateClosed
			b.failures = 0
			b.log.Info("breaker closed after successful probe", "op", op)
			return
		}
		b.state = StateOpen
		b.openedAt = b.now()
		b.log.Warn("probe failed, breaker reopened", "op", op)
	}
}
