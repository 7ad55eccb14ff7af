// Package deposit verifies on-chain token deposits and credits user balances.
//
// A verification run reads the chain head, fetches Transfer logs from the
// caller's wallet into the deposit address, keeps the ones with enough
// confirmations and credits each transaction hash at most once.
package deposit

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/vietddude/depositverifier/internal/core/domain"
	"github.com/vietddude/depositverifier/internal/indexing/finality"
	"github.com/vietddude/depositverifier/internal/indexing/metrics"
	"github.com/vietddude/depositverifier/internal/infra/chain"
	"github.com/vietddude/depositverifier/internal/infra/chain/evm"
)

// Locker serialises verification runs per user.
// AcquireLock returns a nil release func when the lock is held elsewhere.
type Locker interface {
	AcquireLock(ctx context.Context, chainID, userID string, ttl time.Duration) (func(context.Context) error, error)
}

// Config holds the chain and policy settings of a Verifier.
type Config struct {
	ChainID        domain.ChainID
	Chain          domain.ChainName
	TokenAddress   string
	TokenSymbol    string
	Decimals       int
	DepositAddress string

	DefaultLookbackBlocks   uint64
	MaxLookbackBlocks       uint64
	DefaultMinConfirmations uint64
	MinConfirmationsFloor   uint64

	LockTTL time.Duration
}

// VerifyRequest is one caller's verification request.
// Nil optional fields take the configured defaults.
type VerifyRequest struct {
	UserID           string
	FromAddress      string
	MinAmount        *decimal.Decimal
	LookbackBlocks   *uint64
	MinConfirmations *uint64
}

// VerifyResult is the summary of a verification run.
type VerifyResult struct {
	FromAddress    string
	DepositAddress string
	TokenAddress   string
	Decimals       int

	// TotalFound sums every confirmed matching transfer, credited now or before.
	TotalFound    decimal.Decimal
	NewlyCredited decimal.Decimal
	// MatchedCount counts transactions; several logs of one tx count once.
	MatchedCount  int
	CreditedTxs   []string

	DecodeFailures int
	LedgerFailures int
	Pending        int

	LatestBlock      uint64
	FromBlock        uint64
	MinConfirmations uint64
	MinAmount        *decimal.Decimal
}

// Verifier runs deposit verification for one token and deposit address.
type Verifier struct {
	cfg    Config
	chain  chain.Adapter
	engine *Engine
	locker Locker
	log    *slog.Logger
}

// NewVerifier creates a Verifier. locker may be nil.
func NewVerifier(cfg Config, adapter chain.Adapter, engine *Engine, locker Locker) *Verifier {
	cfg.DepositAddress = strings.ToLower(cfg.DepositAddress)
	cfg.TokenAddress = strings.ToLower(cfg.TokenAddress)
	if cfg.Decimals == 0 {
		cfg.Decimals = domain.TokenDecimals
	}
	return &Verifier{
		cfg:    cfg,
		chain:  adapter,
		engine: engine,
		locker: locker,
		log:    slog.Default().With("component", "verifier", "chain", cfg.Chain),
	}
}

// Config returns the public deposit parameters.
func (v *Verifier) Config() Config {
	return v.cfg
}

// IsValidAddress reports whether s is a 0x-prefixed 20-byte hex address.
func IsValidAddress(s string) bool {
	return len(s) == 2+2*common.AddressLength &&
		strings.HasPrefix(s, "0x") &&
		common.IsHexAddress(s)
}

func (v *Verifier) resolveWindow(req VerifyRequest) (lookback, minConf uint64) {
	lookback = v.cfg.DefaultLookbackBlocks
	if req.LookbackBlocks != nil {
		lookback = *req.LookbackBlocks
	}
	if v.cfg.MaxLookbackBlocks > 0 && lookback > v.cfg.MaxLookbackBlocks {
		lookback = v.cfg.MaxLookbackBlocks
	}

	minConf = v.cfg.DefaultMinConfirmations
	if req.MinConfirmations != nil {
		minConf = *req.MinConfirmations
	}
	if minConf < v.cfg.MinConfirmationsFloor {
		minConf = v.cfg.MinConfirmationsFloor
	}
	return lookback, minConf
}

// Verify scans the chain for the caller's transfers into the deposit address
// and credits every confirmed one not yet in the ledger.
//
// Configuration, identity and input errors abort before any chain call.
// Chain errors abort before any ledger write. Ledger errors are per event and
// reported through LedgerFailures.
func (v *Verifier) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	start := time.Now()
	chainLabel := string(v.cfg.Chain)

	res, err := v.verify(ctx, req)

	metrics.VerifyDuration.WithLabelValues(chainLabel).Observe(time.Since(start).Seconds())
	metrics.VerifyRequestsTotal.WithLabelValues(chainLabel, outcome(res, err)).Inc()
	return res, err
}

func outcome(res *VerifyResult, err error) string {
	switch {
	case err != nil:
		return "error"
	case len(res.CreditedTxs) > 0:
		return "credited"
	default:
		return "none"
	}
}

func (v *Verifier) verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	if !IsValidAddress(v.cfg.DepositAddress) {
		return nil, fmt.Errorf("%w: deposit address not configured", domain.ErrConfiguration)
	}
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: missing caller identity", domain.ErrUnauthorized)
	}
	if !IsValidAddress(req.FromAddress) {
		return nil, fmt.Errorf("%w: invalid fromAddress %q", domain.ErrInvalidInput, req.FromAddress)
	}
	if req.MinAmount != nil && req.MinAmount.IsNegative() {
		return nil, fmt.Errorf("%w: minAmount must not be negative", domain.ErrInvalidInput)
	}

	from := strings.ToLower(req.FromAddress)
	lookback, minConf := v.resolveWindow(req)

	if v.locker != nil {
		release, err := v.locker.AcquireLock(ctx, string(v.cfg.ChainID), req.UserID, v.cfg.LockTTL)
		switch {
		case err != nil:
			v.log.Warn("Verify lock unavailable, continuing without it", "user", req.UserID, "error", err)
		case release == nil:
			return nil, fmt.Errorf("%w: user %s", domain.ErrVerifyInProgress, req.UserID)
		default:
			defer func() {
				releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
				defer cancel()
				if err := release(releaseCtx); err != nil {
					v.log.Warn("Failed to release verify lock", "user", req.UserID, "error", err)
				}
			}()
		}
	}

	latest, err := v.chain.GetLatestBlock(ctx)
	if err != nil {
		return nil, err
	}

	var fromBlock uint64
	if latest > lookback {
		fromBlock = latest - lookback
	}

	logs, err := v.chain.GetTransferLogs(ctx, evm.TransferQuery{
		Token:     v.cfg.TokenAddress,
		From:      from,
		To:        v.cfg.DepositAddress,
		FromBlock: fromBlock,
		ToBlock:   latest,
	})
	if err != nil {
		return nil, err
	}

	events, failures := evm.DecodeTransferLogs(logs, v.cfg.Decimals)
	for _, ferr := range failures {
		v.log.Warn("Dropping undecodable log", "user", req.UserID, "error", ferr)
	}
	if n := len(failures); n > 0 {
		metrics.DecodeFailures.WithLabelValues(string(v.cfg.Chain)).Add(float64(n))
		if len(events) == 0 {
			return nil, fmt.Errorf("%w: all %d logs failed to decode: %w", domain.ErrDecode, n, failures[0])
		}
	}

	gated := finality.Filter(latest, events, minConf)

	matched := make([]*domain.TransferEvent, 0, len(gated.Confirmed))
	for _, ev := range gated.Confirmed {
		if !ev.Matches(from, v.cfg.DepositAddress) {
			continue
		}
		matched = append(matched, ev)
	}
	matched = mergeByTx(matched)

	total := decimal.Zero
	for _, ev := range matched {
		total = total.Add(ev.Amount)
	}

	credit := v.engine.Credit(ctx, req.UserID, matched)

	v.log.Info("Verification complete",
		"user", req.UserID,
		"from", from,
		"from_block", fromBlock,
		"latest", latest,
		"logs", len(logs),
		"matched", len(matched),
		"pending", gated.Pending,
		"credited", len(credit.CreditedTxs),
		"newly_credited", credit.NewlyCredited.String(),
	)

	return &VerifyResult{
		FromAddress:      from,
		DepositAddress:   v.cfg.DepositAddress,
		TokenAddress:     v.cfg.TokenAddress,
		Decimals:         v.cfg.Decimals,
		TotalFound:       total,
		NewlyCredited:    credit.NewlyCredited,
		MatchedCount:     len(matched),
		CreditedTxs:      credit.CreditedTxs,
		DecodeFailures:   len(failures),
		LedgerFailures:   credit.Failures,
		Pending:          gated.Pending,
		LatestBlock:      latest,
		FromBlock:        fromBlock,
		MinConfirmations: minConf,
		MinAmount:        req.MinAmount,
	}, nil
}

// mergeByTx folds every log of one transaction into a single event carrying
// the summed amount and the lowest log index, so each tx hash is credited
// once for its full value. A log repeated with the same index counts once.
// Order of first appearance is kept.
func mergeByTx(events []*domain.TransferEvent) []*domain.TransferEvent {
	type logKey struct {
		tx    string
		index uint64
	}
	byTx := make(map[string]*domain.TransferEvent, len(events))
	seen := make(map[logKey]struct{}, len(events))
	out := make([]*domain.TransferEvent, 0, len(events))

	for _, ev := range events {
		hash := strings.ToLower(ev.TxHash)
		k := logKey{tx: hash, index: ev.LogIndex}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}

		merged, ok := byTx[hash]
		if !ok {
			cp := *ev
			cp.RawAmount = new(big.Int)
			if ev.RawAmount != nil {
				cp.RawAmount.Set(ev.RawAmount)
			}
			byTx[hash] = &cp
			out = append(out, &cp)
			continue
		}
		if ev.RawAmount != nil {
			merged.RawAmount.Add(merged.RawAmount, ev.RawAmount)
		}
		merged.Amount = merged.Amount.Add(ev.Amount)
		if ev.LogIndex < merged.LogIndex {
			merged.LogIndex = ev.LogIndex
		}
	}
	return out
}
