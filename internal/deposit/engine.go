package deposit

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/vietddude/depositverifier/internal/core/domain"
	"github.com/vietddude/depositverifier/internal/indexing/metrics"
	"github.com/vietddude/depositverifier/internal/infra/storage"
)

// CreditResult summarises one crediting pass.
type CreditResult struct {
	NewlyCredited   decimal.Decimal
	CreditedTxs     []string
	AlreadyCredited int
	Failures        int
}

// Engine credits confirmed transfers to a user's ledger exactly once per tx hash.
type Engine struct {
	store  storage.LedgerRepository
	chain  domain.ChainName
	symbol string
	log    *slog.Logger
}

// NewEngine creates a crediting engine writing to store.
func NewEngine(store storage.LedgerRepository, chain domain.ChainName, symbol string) *Engine {
	return &Engine{
		store:  store,
		chain:  chain,
		symbol: symbol,
		log:    slog.Default().With("component", "engine", "chain", chain),
	}
}

// Credit writes one ledger transaction per event. Already-credited hashes are
// skipped; a failed write is logged, counted and does not stop the batch.
func (e *Engine) Credit(ctx context.Context, userID string, events []*domain.TransferEvent) CreditResult {
	res := CreditResult{
		NewlyCredited: decimal.Zero,
		CreditedTxs:   []string{},
	}
	chainLabel := string(e.chain)

	for _, ev := range events {
		entry := domain.NewDepositEntry(userID, ev, e.symbol, e.chain)

		err := e.store.CreditDeposit(ctx, entry)
		switch {
		case err == nil:
			res.NewlyCredited = res.NewlyCredited.Add(ev.Amount)
			res.CreditedTxs = append(res.CreditedTxs, ev.TxHash)
			metrics.DepositsCredited.WithLabelValues(chainLabel).Inc()
			e.log.Info("Deposit credited",
				"user", userID,
				"tx", ev.TxHash,
				"block", ev.BlockNumber,
				"amount", ev.Amount.String(),
			)
		case errors.Is(err, domain.ErrAlreadyCredited):
			res.AlreadyCredited++
			metrics.DepositsSkipped.WithLabelValues(chainLabel).Inc()
		default:
			res.Failures++
			metrics.LedgerFailures.WithLabelValues(chainLabel).Inc()
			e.log.Error("Ledger write failed",
				"user", userID,
				"tx", ev.TxHash,
				"error", errors.Join(domain.ErrLedgerWrite, err),
			)
		}
	}

	return res
}
