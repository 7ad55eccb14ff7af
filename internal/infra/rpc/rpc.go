// Package rpc provides the JSON-RPC client used to read the chain.
//
// The client talks to a single configured endpoint and offers:
//   - JSON-RPC 2.0 over HTTP with a per-call timeout
//   - Throttle and block detection (429, 403, provider error patterns)
//   - A circuit breaker that fails fast while the endpoint is down
//   - Prometheus call, error and latency metrics
//
// # Quick Start
//
//	import "github.com/vietddude/depositverifier/internal/infra/rpc"
//
//	p := rpc.New(rpc.Options{
//	    Name:     "bsc-dataseed",
//	    Chain:    "BSC",
//	    Endpoint: rpcURL,
//	    Timeout:  15 * time.Second,
//	})
//	result, err := p.Call(ctx, "eth_blockNumber", nil)
//
// Most types are re-exported from the provider sub-package.
package rpc

import (
	"time"

	"github.com/vietddude/depositverifier/internal/infra/rpc/provider"
)

// Provider is the core interface for RPC endpoints.
type Provider = provider.Provider

// HTTPProvider implements Provider for JSON-RPC over HTTP.
type HTTPProvider = provider.HTTPProvider

// BreakerProvider wraps a Provider with a circuit breaker.
type BreakerProvider = provider.BreakerProvider

// BreakerConfig controls the circuit breaker.
type BreakerConfig = provider.BreakerConfig

// HealthStatus represents the health state of a provider.
type HealthStatus = provider.HealthStatus

// RPCError is a JSON-RPC error object returned by the node.
type RPCError = provider.RPCError

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = provider.ErrCircuitOpen

// Options configures a client built by New.
type Options struct {
	Name     string
	Chain    string
	Endpoint string
	Timeout  time.Duration
	Breaker  BreakerConfig
}

// New builds an HTTP provider wrapped in a circuit breaker.
func New(opts Options) *BreakerProvider {
	if opts.Name == "" {
		opts.Name = "primary"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Breaker.OpenTimeout <= 0 {
		opts.Breaker.OpenTimeout = 30 * time.Second
	}
	http := provider.NewHTTPProvider(opts.Name, opts.Chain, opts.Endpoint, opts.Timeout)
	return provider.NewBreakerProvider(http, opts.Breaker)
}
