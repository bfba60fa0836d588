package resilience

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

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
		return "half_open"
	default:
		return "closed"
	}
}

// Clock is injected so tests can move time without sleeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func SystemClock() Clock { return systemClock{} }

type BreakerConfig struct {
	// FailureThreshold consecutive failures trip the breaker.
	FailureThreshold int
	// Cooldown is how long the breaker stays open before letting one probe through.
	Cooldown time.Duration
}

// Breaker is a consecutive-failure circuit breaker. It is safe for concurrent use and
// is meant to be shared by every request that calls the same backend.
type Breaker struct {
	mu       sync.Mutex
	cfg      BreakerConfig
	clock    Clock
	state    State
	failures int
	openedAt time.Time
	probing  bool

	onTransition []func(from, to State)
}

func NewBreaker(cfg BreakerConfig, clock Clock) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &Breaker{cfg: cfg, clock: clock}
}

// OnTransition adds a hook called (under the breaker lock) on every state change.
func (b *Breaker) OnTransition(fn func(from, to State)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onTransition = append(b.onTransition, fn)
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()
	return b.state
}

// Allow reports whether a call may proceed. While open it returns ErrCircuitOpen without
// waiting. After the cooldown exactly one probe is admitted in the half-open state.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()

	switch b.state {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		if b.probing {
			return ErrCircuitOpen
		}
		b.probing = true
	}
	return nil
}

func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.probing = false
	if b.state != StateClosed {
		b.transition(StateClosed)
	}
}

func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false

	switch b.state {
	case StateHalfOpen:
		b.trip()
	case StateClosed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.trip()
		}
	}
}

// Execute runs fn when allowed and records its outcome.
func (b *Breaker) Execute(fn func() error) error {
	if err := b.Allow(); err != nil {
		return err
	}
	if err := fn(); err != nil {
		b.RecordFailure()
		return err
	}
	b.RecordSuccess()
	return nil
}

func (b *Breaker) trip() {
	b.openedAt = b.clock.Now()
	b.failures = 0
	b.transition(StateOpen)
}

// advance moves open to half-open once the cooldown has elapsed. Caller holds mu.
func (b *Breaker) advance() {
	if b.state == StateOpen && !b.clock.Now().Before(b.openedAt.Add(b.cfg.Cooldown)) {
		b.transition(StateHalfOpen)
	}
}

func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to
	if from == to {
		return
	}
	for _, fn := range b.onTransition {
		fn(from, to)
	}
}
