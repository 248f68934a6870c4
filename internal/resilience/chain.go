package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mwirth/ironlog/internal/observe"
)

// ErrChainExhausted is returned when every link in a [Chain] failed or had an
// open breaker.
var ErrChainExhausted = errors.New("all backends failed")

// link pairs one backend with its dedicated breaker.
type link[T any] struct {
	name    string
	value   T
	breaker *Breaker
}

// Chain holds an ordered list of interchangeable backends, each guarded by
// its own [Breaker]. Calls go to the first healthy backend; a failing or
// open-breaker backend is skipped in favour of the next one.
type Chain[T any] struct {
	links   []link[T]
	cfg     BreakerConfig
	metrics *observe.Metrics
}

// NewChain creates a [Chain] whose first link is the preferred backend.
// Further backends are appended with [Chain.Add] and tried in that order.
func NewChain[T any](name string, primary T, cfg BreakerConfig) *Chain[T] {
	c := &Chain[T]{cfg: cfg}
	c.Add(name, primary)
	return c
}

// Add appends a lower-priority backend.
func (c *Chain[T]) Add(name string, backend T) {
	cfg := c.cfg
	cfg.Name = name
	c.links = append(c.links, link[T]{name: name, value: backend, breaker: NewBreaker(cfg)})
}

// Primary returns the preferred backend.
func (c *Chain[T]) Primary() T {
	return c.links[0].value
}

// Instrument attaches m so every backend call is counted with its name and
// outcome. A nil m disables recording.
func (c *Chain[T]) Instrument(m *observe.Metrics) {
	c.metrics = m
}

func (c *Chain[T]) record(ctx context.Context, backend, status string) {
	if c.metrics != nil {
		c.metrics.RecordBackendRequest(ctx, backend, status)
	}
}

// Run tries fn against each link in order until one succeeds. Open-breaker
// links are skipped without invoking fn and without counting a request. When
// nothing succeeds the last error is wrapped in [ErrChainExhausted]. It is a
// package-level function because methods cannot introduce the result type
// parameter.
func Run[T any, R any](ctx context.Context, c *Chain[T], fn func(T) (R, error)) (R, error) {
	var (
		lastErr error
		zero    R
	)
	for i := range c.links {
		l := &c.links[i]
		var result R
		err := l.breaker.Do(func() error {
			var callErr error
			result, callErr = fn(l.value)
			return callErr
		})
		if err == nil {
			c.record(ctx, l.name, "ok")
			return result, nil
		}
		lastErr = err
		if errors.Is(err, ErrBreakerOpen) {
			slog.Debug("skipping backend, breaker open", "backend", l.name)
		} else {
			c.record(ctx, l.name, "error")
			slog.Warn("backend failed, trying next", "backend", l.name, "error", err)
		}
	}
	return zero, fmt.Errorf("%w: %v", ErrChainExhausted, lastErr)
}
