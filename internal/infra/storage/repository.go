package storage

import (
	"context"

	"github.com/vietddude/depositverifier/internal/core/domain"
)

// LedgerRepository records credited deposits.
type LedgerRepository interface {
	// CreditDeposit inserts the ledger entry and increments the user's balance
	// and total deposited in one atomic transaction. It returns
	// domain.ErrAlreadyCredited when entry.TxHash is already recorded; in that
	// case nothing is written.
	CreditDeposit(ctx context.Context, entry *domain.LedgerEntry) error

	// ListEntries returns the user's most recent entries, newest first.
	ListEntries(ctx context.Context, userID string, limit int) ([]*domain.LedgerEntry, error)
}

// BalanceRepository reads user balances.
type BalanceRepository interface {
	// GetBalance returns the user's balance row, or nil when none exists yet.
	GetBalance(ctx context.Context, userID string) (*domain.BalanceRecord, error)
}

// LedgerStore is the full persistence surface used by the verifier.
type LedgerStore interface {
	LedgerRepository
	BalanceRepository

	// Health checks the backing store is reachable.
	Health(ctx context.Context) error
}
