package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/vietddude/depositverifier/internal/core/domain"
)

// UnitOfWork bundles the ledger insert and the balance update into a single
// database transaction, ensuring atomicity (both succeed or both fail).
type UnitOfWork struct {
	tx *sqlx.Tx
}

// NewUnitOfWork creates a new unit of work with an active transaction.
func (db *DB) NewUnitOfWork(ctx context.Context) (*UnitOfWork, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &UnitOfWork{tx: tx}, nil
}

// Commit commits the transaction.
func (u *UnitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("transaction already completed")
	}
	err := u.tx.Commit()
	u.tx = nil
	return err
}

// Rollback rolls back the transaction. Safe to call multiple times.
func (u *UnitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Already committed or rolled back
	}
	err := u.tx.Rollback()
	u.tx = nil
	return err
}

// InsertLedgerEntry inserts the entry unless its tx hash is already recorded.
// inserted is false when the hash already exists.
func (u *UnitOfWork) InsertLedgerEntry(ctx context.Context, e *domain.LedgerEntry) (inserted bool, err error) {
	const query = `
		INSERT INTO ledger_entries (
			id, user_id, amount, type, status, description, tx_hash, block_number, from_address, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (tx_hash) DO NOTHING
		RETURNING id`

	var id string
	err = u.tx.QueryRowxContext(ctx, query,
		e.ID, e.UserID, e.Amount, string(e.Type), string(e.Status), e.Description,
		e.TxHash, int64(e.BlockNumber), e.FromAddress, e.CreatedAt,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert ledger entry: %w", err)
	}
	return true, nil
}

// CreditBalance adds amount to the user's balance and total deposited,
// creating the row when absent.
func (u *UnitOfWork) CreditBalance(ctx context.Context, userID string, amount decimal.Decimal) error {
	const query = `
		INSERT INTO user_balances (user_id, balance, total_deposited, updated_at)
		VALUES ($1, $2, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			balance = user_balances.balance + EXCLUDED.balance,
			total_deposited = user_balances.total_deposited + EXCLUDED.total_deposited,
			updated_at = NOW()`

	if _, err := u.tx.ExecContext(ctx, query, userID, amount); err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}
	return nil
}
