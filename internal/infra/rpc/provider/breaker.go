package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned when the breaker rejects a call.
var ErrCircuitOpen = errors.New("circuit breaker open")

// BreakerConfig controls when the breaker trips and how long it stays open.
type BreakerConfig struct {
	MaxFailures uint32
	OpenTimeout time.Duration
}

// BreakerProvider wraps a Provider with a circuit breaker.
type BreakerProvider struct {
	Provider
	cb *gobreaker.CircuitBreaker
}

// NewBreakerProvider decorates p with a breaker that opens after
// cfg.MaxFailures consecutive failures.
func NewBreakerProvider(p Provider, cfg BreakerConfig) *BreakerProvider {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        p.GetName(),
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellation says nothing about the endpoint.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("RPC circuit breaker state changed",
				"provider", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return &BreakerProvider{Provider: p, cb: cb}
}

// Call executes the wrapped call through the breaker.
func (b *BreakerProvider) Call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	res, err := b.cb.Execute(func() (any, error) {
		return b.Provider.Call(ctx, method, params)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %s: %w", ErrCircuitOpen, b.GetName(), err)
		}
		return nil, err
	}
	return res.(json.RawMessage), nil
}

// IsAvailable reports false while the breaker is open.
func (b *BreakerProvider) IsAvailable() bool {
	return b.cb.State() != gobreaker.StateOpen && b.Provider.IsAvailable()
}

// State returns the breaker state name.
func (b *BreakerProvider) State() string {
	return b.cb.State().String()
}
