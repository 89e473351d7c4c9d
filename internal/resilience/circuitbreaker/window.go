package circuitbreaker

import (
	"log/slog"
	"sync"
	"time"
)

// State is the condition of a WindowBreaker.
type State int

const (
	// StateClosed permits all calls.
	StateClosed State = iota
	// StateOpen rejects calls until the cooldown elapses.
	StateOpen
	// StateHalfOpen has granted exactly one trial call and blocks the
	// rest until the trial resolves.
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
		return "half-open"
	default:
		return "unknown"
	}
}

// WindowConfig holds the configuration for a WindowBreaker.
type WindowConfig struct {
	// Name is the breaker name for logging and metrics.
	Name string

	// FailureThreshold is the number of failures inside FailureWindow
	// that trips the breaker open.
	FailureThreshold int

	// FailureWindow is the sliding window over which failures are
	// counted. Failures older than the window are pruned.
	FailureWindow time.Duration

	// OpenCooldown is how long the breaker stays open before granting
	// a single half-open trial.
	OpenCooldown time.Duration
}

// OutboundChannelConfig returns the window breaker configuration used
// for the outbound publication channel.
func OutboundChannelConfig() WindowConfig {
	return WindowConfig{
		Name:             "outbound-channel",
		FailureThreshold: 5,
		FailureWindow:    60 * time.Second,
		OpenCooldown:     30 * time.Second,
	}
}

// WindowBreaker is a three-state circuit breaker driven by a sliding
// window of failure timestamps. Unlike the ratio-based gobreaker
// wrapper in this package, it counts absolute failures within a time
// window and grants exactly one trial call after the open cooldown.
//
// All state lives in memory; a process restart resets the breaker to
// closed. The mutex guards only O(1) bookkeeping and is never held
// across a network call.
type WindowBreaker struct {
	cfg WindowConfig

	mu            sync.Mutex
	state         State
	failures      []time.Time
	openedAt      time.Time
	trialInFlight bool

	// now is replaceable for tests.
	now func() time.Time
}

// NewWindowBreaker creates a WindowBreaker in the closed state.
func NewWindowBreaker(cfg WindowConfig) *WindowBreaker {
	return &WindowBreaker{
		cfg:   cfg,
		state: StateClosed,
		now:   time.Now,
	}
}

// State returns the current state.
func (b *WindowBreaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Permit reports whether a call may proceed right now. The check and
// any open-to-half-open transition happen atomically under one lock,
// so at most one caller is ever granted the half-open trial.
//
// Returns true when the call is allowed: always while closed, once
// per cooldown while open (flipping to half-open), and never for
// concurrent callers while the half-open trial is unresolved.
func (b *WindowBreaker) Permit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cfg.OpenCooldown {
			return false
		}
		b.state = StateHalfOpen
		b.trialInFlight = true
		slog.Warn("circuit breaker granting half-open trial",
			slog.String("circuit", b.cfg.Name))
		return true
	case StateHalfOpen:
		if b.trialInFlight {
			return false
		}
		b.trialInFlight = true
		return true
	default:
		return false
	}
}

// Blocked reports whether a call would be rejected right now, without
// claiming the half-open trial. Used by batch callers to decide
// whether a cycle is worth starting; the actual trial is still claimed
// per call through Permit.
func (b *WindowBreaker) Blocked() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		return b.now().Sub(b.openedAt) < b.cfg.OpenCooldown
	case StateHalfOpen:
		return b.trialInFlight
	default:
		return false
	}
}

// NoteFailure records a failed call. Failures older than the window
// are pruned; when the remaining count reaches the threshold the
// breaker opens. A no-op while already open. In half-open state a
// failed trial reopens the breaker and restarts the cooldown.
func (b *WindowBreaker) NoteFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		return
	}

	now := b.now()

	if b.state == StateHalfOpen {
		b.trialInFlight = false
		b.open(now)
		return
	}

	b.failures = append(b.failures, now)
	b.prune(now)
	if len(b.failures) >= b.cfg.FailureThreshold {
		b.open(now)
	}
}

// NoteSuccess records a successful call. Any non-closed state resets
// to closed and the failure history is cleared.
func (b *WindowBreaker) NoteSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.trialInFlight = false
	if b.state != StateClosed {
		slog.Info("circuit breaker reset to closed",
			slog.String("circuit", b.cfg.Name),
			slog.String("from", b.state.String()))
		b.state = StateClosed
	}
	b.failures = b.failures[:0]
	b.openedAt = time.Time{}
}

func (b *WindowBreaker) open(now time.Time) {
	b.state = StateOpen
	b.openedAt = now
	slog.Warn("circuit breaker opened",
		slog.String("circuit", b.cfg.Name),
		slog.Int("failures_in_window", len(b.failures)),
		slog.Duration("window", b.cfg.FailureWindow))
	b.failures = b.failures[:0]
}

func (b *WindowBreaker) prune(now time.Time) {
	cutoff := now.Add(-b.cfg.FailureWindow)
	kept := b.failures[:0]
	for _, ts := range b.failures {
		if !ts.Before(cutoff) {
			kept = append(kept, ts)
		}
	}
	b.failures = kept
}
