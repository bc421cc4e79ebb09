package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// State of the breaker. CLOSED passes calls through, OPEN rejects them,
// HALF_OPEN lets a trial call through after the cool-down.
type State string

const (
	StateClosed   State = "CLOSED"
	StateOpen     State = "OPEN"
	StateHalfOpen State = "HALF_OPEN"
)

// ErrOpen is returned for calls rejected while the breaker is open.
var ErrOpen = errors.New("circuit breaker open")

type Settings struct {
	Name             string
	FailureThreshold int
	CoolDown         time.Duration
}

// Breaker wraps an unreliable call. Consecutive failures reaching the
// threshold open it; after the cool-down the next call decides whether it
// closes again or re-opens.
type Breaker struct {
	name      string
	threshold int
	coolDown  time.Duration

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
}

func New(settings Settings) *Breaker {
	return &Breaker{
		name:      settings.Name,
		threshold: settings.FailureThreshold,
		coolDown:  settings.CoolDown,
		state:     StateClosed,
	}
}

// State reports the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Execute runs fn unless the breaker is open, recording the outcome.
func (b *Breaker) Execute(fn func() error) error {
	if err := b.allow(); err != nil {
		return err
	}
	err := fn()
	b.record(err)
	return err
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		if time.Since(b.openedAt) < b.coolDown {
			return ErrOpen
		}
		b.transition(StateHalfOpen)
	}
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.failures++
		if b.state == StateHalfOpen || b.failures >= b.threshold {
			b.openedAt = time.Now()
			b.transition(StateOpen)
		}
		return
	}

	if b.state == StateHalfOpen {
		b.transition(StateClosed)
	}
	b.failures = 0
}

// transition is called with the mutex held.
func (b *Breaker) transition(next State) {
	if b.state == next {
		return
	}
	evt := log.Info()
	if next == StateOpen {
		evt = log.Warn()
	}
	evt.Str("breaker", b.name).
		Str("from", string(b.state)).
		Str("to", string(next)).
		Msg("circuit breaker state changed")
	b.state = next
}
