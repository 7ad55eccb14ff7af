package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RPCCallsTotal tracks RPC calls per chain and provider
	RPCCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verifier_rpc_calls_total",
			Help: "Total number of RPC calls",
		},
		[]string{"chain", "provider", "method"},
	)

	// RPCErrorsTotal tracks RPC errors per chain and provider
	RPCErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verifier_rpc_errors_total",
			Help: "Total number of RPC errors",
		},
		[]string{"chain", "provider", "error_type"},
	)

	// RPCLatency tracks RPC call latency
	RPCLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "verifier_rpc_latency_seconds",
			Help:    "RPC call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"chain", "provider", "method"},
	)

	// ChainLatestBlock tracks the latest block height seen by a verification
	ChainLatestBlock = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "verifier_chain_latest_block",
			Help: "Latest block height of the chain",
		},
		[]string{"chain"},
	)

	// VerifyRequestsTotal tracks verification runs by outcome
	VerifyRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verifier_verify_requests_total",
			Help: "Total number of deposit verification runs",
		},
		[]string{"chain", "outcome"},
	)

	// VerifyDuration tracks end-to-end verification latency
	VerifyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "verifier_verify_duration_seconds",
			Help:    "Deposit verification duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"chain"},
	)

	// DepositsCredited counts ledger entries created
	DepositsCredited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verifier_deposits_credited_total",
			Help: "Total number of deposits credited to user balances",
		},
		[]string{"chain"},
	)

	// DepositsSkipped counts confirmed transfers that were already credited
	DepositsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verifier_deposits_already_credited_total",
			Help: "Total number of confirmed transfers skipped as already credited",
		},
		[]string{"chain"},
	)

	// DecodeFailures counts logs dropped because they could not be decoded
	DecodeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verifier_log_decode_failures_total",
			Help: "Total number of transfer logs that failed to decode",
		},
		[]string{"chain"},
	)

	// LedgerFailures counts per-event ledger transaction failures
	LedgerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verifier_ledger_failures_total",
			Help: "Total number of ledger write failures",
		},
		[]string{"chain"},
	)

	// DBConnectionPoolUsage tracks DB connection pool stats
	DBConnectionPoolUsage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "verifier_db_connection_pool_usage",
			Help: "Database connection pool usage",
		},
		[]string{"state"},
	)
)
