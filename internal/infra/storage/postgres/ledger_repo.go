package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vietddude/depositverifier/internal/core/domain"
	"github.com/vietddude/depositverifier/internal/infra/storage"
)

var _ storage.LedgerStore = (*LedgerRepo)(nil)

// LedgerRepo implements storage.LedgerStore using PostgreSQL.
type LedgerRepo struct {
	db *DB
}

// NewLedgerRepo creates a new PostgreSQL ledger repository.
func NewLedgerRepo(db *DB) *LedgerRepo {
	return &LedgerRepo{db: db}
}

// CreditDeposit inserts the entry and credits the balance in one transaction.
func (r *LedgerRepo) CreditDeposit(ctx context.Context, entry *domain.LedgerEntry) error {
	uow, err := r.db.NewUnitOfWork(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = uow.Rollback() }()

	inserted, err := uow.InsertLedgerEntry(ctx, entry)
	if err != nil {
		return err
	}
	if !inserted {
		return domain.ErrAlreadyCredited
	}

	if err := uow.CreditBalance(ctx, entry.UserID, entry.Amount); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyCredited
		}
		return fmt.Errorf("commit ledger transaction: %w", err)
	}
	return nil
}

type ledgerRow struct {
	ID          uuid.UUID       `db:"id"`
	UserID      string          `db:"user_id"`
	Amount      decimal.Decimal `db:"amount"`
	Type        string          `db:"type"`
	Status      string          `db:"status"`
	Description string          `db:"description"`
	TxHash      string          `db:"tx_hash"`
	BlockNumber int64           `db:"block_number"`
	FromAddress string          `db:"from_address"`
	CreatedAt   time.Time       `db:"created_at"`
}

func (r ledgerRow) toDomain() *domain.LedgerEntry {
	return &domain.LedgerEntry{
		ID:          r.ID,
		UserID:      r.UserID,
		Amount:      r.Amount,
		Type:        domain.EntryType(r.Type),
		Status:      domain.EntryStatus(r.Status),
		Description: r.Description,
		TxHash:      r.TxHash,
		BlockNumber: uint64(r.BlockNumber),
		FromAddress: r.FromAddress,
		CreatedAt:   r.CreatedAt,
	}
}

// ListEntries returns the user's most recent ledger entries.
func (r *LedgerRepo) ListEntries(ctx context.Context, userID string, limit int) ([]*domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows []ledgerRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, amount, type, status, description, tx_hash, block_number, from_address, created_at
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}

	entries := make([]*domain.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.toDomain())
	}
	return entries, nil
}

// GetBalance returns the user's balance row, or nil if the user has none.
func (r *LedgerRepo) GetBalance(ctx context.Context, userID string) (*domain.BalanceRecord, error) {
	var rec domain.BalanceRecord
	err := r.db.GetContext(ctx, &rec, `
		SELECT user_id, balance, total_deposited, updated_at
		FROM user_balances
		WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return &rec, nil
}

// Health checks the database connection.
func (r *LedgerRepo) Health(ctx context.Context) error {
	return r.db.Health(ctx)
}
