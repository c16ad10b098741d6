// Package circuit guards calls to a remote dependency.
//
// A closed breaker lets every call through. After FailureThreshold
// consecutive failures it opens and Allow refuses calls for the cooldown.
// Once the cooldown elapses the breaker is half-open: calls flow again as
// trials, one failure reopens it, SuccessThreshold consecutive successes
// close it.
package circuit

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned by callers that refuse a call because Allow said no.
var ErrOpen = errors.New("circuit open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// StateChange reports a transition caused by the recorded outcome.
type StateChange struct {
	Opened bool
	Closed bool
}

type Breaker struct {
	mu               sync.Mutex
	name             string
	state            State
	failures         int
	successes        int
	openedAt         time.Time
	failureThreshold int
	successThreshold int
	cooldown         time.Duration
	now              func() time.Time
}

type Option func(*Breaker)

func WithFailureThreshold(n int) Option {
	return func(b *Breaker) { b.failureThreshold = n }
}

func WithSuccessThreshold(n int) Option {
	return func(b *Breaker) { b.successThreshold = n }
}

// WithCooldown sets how long an open breaker refuses calls.
func WithCooldown(d time.Duration) Option {
	return func(b *Breaker) { b.cooldown = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) { b.now = now }
}

// New creates a closed breaker. Defaults: open after 5 consecutive failures,
// refuse calls for 30s, close after 3 consecutive half-open successes.
func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:             name,
		failureThreshold: 5,
		successThreshold: 3,
		cooldown:         30 * time.Second,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Breaker) Name() string { return b.name }

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentLocked()
}

// currentLocked moves an open breaker to half-open once the cooldown is over.
func (b *Breaker) currentLocked() State {
	if b.state == StateOpen && !b.now().Before(b.openedAt.Add(b.cooldown)) {
		b.state = StateHalfOpen
		b.successes = 0
	}
	return b.state
}

func (b *Breaker) IsOpen() bool {
	return b.State() == StateOpen
}

// Allow reports whether a call may be attempted now.
func (b *Breaker) Allow() bool {
	return b.State() != StateOpen
}

// RecordFailure returns whether the caller should use its fallback.
func (b *Breaker) RecordFailure() (useFallback bool, change StateChange) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.successes = 0
	switch b.currentLocked() {
	case StateOpen:
		b.openedAt = b.now()
		return true, StateChange{}
	case StateHalfOpen:
		b.open()
		return true, StateChange{Opened: true}
	}
	b.failures++
	if b.failures >= b.failureThreshold {
		b.open()
		return true, StateChange{Opened: true}
	}
	return false, StateChange{}
}

// RecordSuccess returns whether the caller may trust the primary again.
func (b *Breaker) RecordSuccess() (usePrimary bool, change StateChange) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.currentLocked() == StateClosed {
		b.failures = 0
		return true, StateChange{}
	}
	b.successes++
	if b.successes >= b.successThreshold {
		b.state = StateClosed
		b.successes = 0
		b.failures = 0
		return true, StateChange{Closed: true}
	}
	return false, StateChange{}
}

func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.successes = 0
	b.openedAt = time.Time{}
}

func (b *Breaker) open() {
	b.state = StateOpen
	b.failures = 0
	b.openedAt = b.now()
}
