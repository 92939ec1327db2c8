// Package resilience guards upstream services (quote provider, AI provider)
// with circuit breakers so a failing dependency is skipped quickly.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	apperrors "stockdesk/internal/errors"
)

// State represents the state of a circuit breaker.
type State string

const (
	StateClosed   State = "CLOSED"    // Normal operation
	StateOpen     State = "OPEN"      // Failing, rejecting calls
	StateHalfOpen State = "HALF_OPEN" // Probing whether the upstream recovered
)

// ErrOpen is returned when a call is rejected by an open breaker.
// It wraps ErrUpstreamFailure so callers can fall back the same way.
var ErrOpen = apperrors.Wrap(apperrors.ErrUpstreamFailure, "circuit breaker is open")

// Config holds circuit breaker configuration.
type Config struct {
	// FailureThreshold is the number of consecutive failures before opening
	FailureThreshold int
	// SuccessThreshold is the number of half-open successes needed to close
	SuccessThreshold int
	// Cooldown is how long the breaker stays open before probing
	Cooldown time.Duration
}

// DefaultConfig returns the defaults used for quote and AI upstreams.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 3,
		SuccessThreshold: 1,
		Cooldown:         30 * time.Second,
	}
}

// Breaker implements the circuit breaker pattern for one upstream.
type Breaker struct {
	name   string
	config Config
	now    func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
	changedAt time.Time

	totalCalls    int64
	totalFailures int64
	totalRejected int64
}

// NewBreaker creates a closed breaker.
func NewBreaker(name string, config Config) *Breaker {
	if config.FailureThreshold < 1 {
		config.FailureThreshold = 1
	}
	if config.SuccessThreshold < 1 {
		config.SuccessThreshold = 1
	}
	return &Breaker{
		name:      name,
		config:    config,
		now:       time.Now,
		state:     StateClosed,
		changedAt: time.Now(),
	}
}

// Execute runs fn when the breaker allows it and records the outcome.
// Cancellation of ctx by the caller is not counted against the upstream.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := Call(ctx, b, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Call runs fn under the breaker and returns its result.
func Call[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if err := b.allow(); err != nil {
		return zero, err
	}

	v, err := fn(ctx)
	switch {
	case err == nil:
		b.recordSuccess()
		return v, nil
	case errors.Is(err, context.Canceled):
		return zero, err
	default:
		b.recordFailure()
		return zero, err
	}
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalCalls++
	if b.state == StateOpen {
		if b.now().Sub(b.openedAt) < b.config.Cooldown {
			b.totalRejected++
			return ErrOpen
		}
		b.transition(StateHalfOpen)
	}
	return nil
}

func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		b.successes++
		if b.successes >= b.config.SuccessThreshold {
			b.transition(StateClosed)
		}
	case StateClosed:
		b.failures = 0
	}
}

func (b *Breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalFailures++
	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.config.FailureThreshold {
			b.transition(StateOpen)
		}
	case StateHalfOpen:
		b.transition(StateOpen)
	}
}

func (b *Breaker) transition(state State) {
	b.state = state
	b.changedAt = b.now()
	b.failures = 0
	b.successes = 0
	if state == StateOpen {
		b.openedAt = b.changedAt
	}
}

// Name returns the upstream name.
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset closes the breaker.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transition(StateClosed)
}

// Stats returns a snapshot of the breaker counters.
func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Stats{
		Name:            b.name,
		State:           b.state,
		TotalCalls:      b.totalCalls,
		TotalFailures:   b.totalFailures,
		TotalRejected:   b.totalRejected,
		CurrentFailures: b.failures,
		LastStateChange: b.changedAt,
	}
}

// Stats holds circuit breaker statistics.
type Stats struct {
	Name            string    `json:"name"`
	State           State     `json:"state"`
	TotalCalls      int64     `json:"total_calls"`
	TotalFailures   int64     `json:"total_failures"`
	TotalRejected   int64     `json:"total_rejected"`
	CurrentFailures int       `json:"current_failures"`
	LastStateChange time.Time `json:"last_state_change"`
}

// FailureRate returns the failure rate as a percentage.
func (s Stats) FailureRate() float64 {
	if s.TotalCalls == 0 {
		return 0
	}
	return float64(s.TotalFailures) / float64(s.TotalCalls) * 100
}

// Registry hands out one breaker per upstream name.
type Registry struct {
	mu       sync.Mutex
	config   Config
	breakers map[string]*Breaker
	order    []string
}

// NewRegistry creates a registry whose breakers share config.
func NewRegistry(config Config) *Registry {
	return &Registry{
		config:   config,
		breakers: make(map[string]*Breaker),
	}
}

// Get returns or creates the breaker for name.
func (r *Registry) Get(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[name]; ok {
		return b
	}
	b := NewBreaker(name, r.config)
	r.breakers[name] = b
	r.order = append(r.order, name)
	return b
}

// AllStats returns statistics for every breaker in creation order.
func (r *Registry) AllStats() []Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := make([]Stats, 0, len(r.order))
	for _, name := range r.order {
		stats = append(stats, r.breakers[name].Stats())
	}
	return stats
}
