// Package circuitbreaker wraps outbound indexer/scraper/provider calls with
// a per-name sony/gobreaker/v2 circuit, so one misbehaving indexer can't
// stall the rest of a scrape fan-out.
package circuitbreaker

import (
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// Settings configures every breaker minted by a Registry.
type Settings struct {
	FailureThreshold uint32
	MinRequests      uint32
	RecoveryTimeout  time.Duration
	HalfOpenAttempts uint32
}

// Registry mints and caches one breaker per name (one per indexer, one per
// provider), so repeated lookups share trip state.
type Registry struct {
	settings Settings
	log      *zap.Logger
	breakers map[string]*gobreaker.CircuitBreaker[any]
}

func NewRegistry(settings Settings, log *zap.Logger) *Registry {
	if settings.MinRequests == 0 {
		settings.MinRequests = 10
	}
	if settings.HalfOpenAttempts == 0 {
		settings.HalfOpenAttempts = 1
	}
	return &Registry{
		settings: settings,
		log:      log,
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
	}
}

func (r *Registry) breaker(name string) *gobreaker.CircuitBreaker[any] {
	if b, ok := r.breakers[name]; ok {
		return b
	}

	threshold := r.settings.FailureThreshold
	minRequests := r.settings.MinRequests

	b := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: r.settings.HalfOpenAttempts,
		Interval:    time.Minute,
		Timeout:     r.settings.RecoveryTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.log.Warn("circuit breaker state change",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	r.breakers[name] = b
	return b
}

// Execute runs fn through the named breaker and type-asserts the result
// back to T, the way cartographus's castResult helper does.
func Execute[T any](r *Registry, name string, fn func() (T, error)) (T, error) {
	var zero T
	result, err := r.breaker(name).Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuitbreaker: unexpected result type for %q", name)
	}
	return typed, nil
}

// IsOpen reports whether err came back because the breaker rejected the
// call outright (open, or too many half-open probes) rather than because
// the wrapped call itself failed.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// State returns the current state of the named breaker, or StateClosed if
// it has never been used.
func (r *Registry) State(name string) gobreaker.State {
	b, ok := r.breakers[name]
	if !ok {
		return gobreaker.StateClosed
	}
	return b.State()
}
