// Package resilience provides failover primitives for the extraction
// pipeline. The station talks to external completion backends that can be
// slow, flaky or entirely offline; a [Breaker] stops hammering a backend that
// keeps failing, and [Chain] tries a ranked list of backends until one
// produces a usable response.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrBreakerOpen is returned by [Breaker.Do] while the breaker rejects calls.
var ErrBreakerOpen = errors.New("breaker is open")

// BreakerState is the operating mode of a [Breaker].
type BreakerState int

const (
	// BreakerClosed forwards all calls.
	BreakerClosed BreakerState = iota

	// BreakerOpen rejects calls with [ErrBreakerOpen] until the cooldown
	// elapses.
	BreakerOpen

	// BreakerProbing admits a bounded number of probe calls after the
	// cooldown. Probes decide whether the breaker closes or re-opens.
	BreakerProbing
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerProbing:
		return "probing"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes a [Breaker]. Zero fields take defaults.
type BreakerConfig struct {
	// Name labels the breaker in log output.
	Name string

	// Threshold is the number of consecutive failures that trips the
	// breaker open. Default: 3.
	Threshold int

	// Cooldown is how long the breaker stays open before probing.
	// Default: 30s.
	Cooldown time.Duration

	// ProbeBudget is how many probe calls may run while probing.
	// Default: 2.
	ProbeBudget int
}

// Breaker is a three-state circuit breaker (closed, open, probing).
type Breaker struct {
	name        string
	threshold   int
	cooldown    time.Duration
	probeBudget int

	mu          sync.Mutex
	state       BreakerState
	failures    int
	openedAt    time.Time
	probeCalls  int
	probeFailed bool
}

// NewBreaker creates a [Breaker], filling zero config fields with defaults.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.ProbeBudget <= 0 {
		cfg.ProbeBudget = 2
	}
	return &Breaker{
		name:        cfg.Name,
		threshold:   cfg.Threshold,
		cooldown:    cfg.Cooldown,
		probeBudget: cfg.ProbeBudget,
	}
}

// Do runs fn if the breaker admits the call. While open it returns
// [ErrBreakerOpen] without invoking fn; while probing only the probe budget
// worth of calls gets through.
func (b *Breaker) Do(fn func() error) error {
	b.mu.Lock()
	switch b.state {
	case BreakerOpen:
		if time.Since(b.openedAt) < b.cooldown {
			b.mu.Unlock()
			return ErrBreakerOpen
		}
		b.state = BreakerProbing
		b.probeCalls = 0
		b.probeFailed = false
		slog.Info("breaker cooldown elapsed, probing", "name", b.name)

	case BreakerProbing:
		if b.probeCalls >= b.probeBudget {
			b.mu.Unlock()
			return ErrBreakerOpen
		}
	}
	probing := b.state == BreakerProbing
	if probing {
		b.probeCalls++
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.onFailure(probing)
	} else {
		b.onSuccess(probing)
	}
	return err
}

// onFailure must be called with b.mu held.
func (b *Breaker) onFailure(probing bool) {
	if probing {
		// One failed probe re-opens immediately.
		b.probeFailed = true
		b.state = BreakerOpen
		b.openedAt = time.Now()
		slog.Warn("breaker re-opened after failed probe", "name", b.name)
		return
	}
	b.failures++
	if b.failures >= b.threshold {
		b.state = BreakerOpen
		b.openedAt = time.Now()
		slog.Warn("breaker opened", "name", b.name, "consecutive_failures", b.failures)
	}
}

// onSuccess must be called with b.mu held.
func (b *Breaker) onSuccess(probing bool) {
	if probing {
		if !b.probeFailed && b.probeCalls >= b.probeBudget {
			b.state = BreakerClosed
			b.failures = 0
			slog.Info("breaker closed after successful probes", "name", b.name)
		}
		return
	}
	b.failures = 0
}

// State reports the breaker's current state. An open breaker whose cooldown
// has elapsed reports [BreakerProbing]; the transition itself happens on the
// next [Breaker.Do].
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && time.Since(b.openedAt) >= b.cooldown {
		return BreakerProbing
	}
	return b.state
}
