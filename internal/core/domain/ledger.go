package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EntryType string

const (
	EntryTypeDeposit EntryType = "deposit"
)

type EntryStatus string

const (
	EntryStatusCompleted EntryStatus = "completed"
)

// LedgerEntry is one credited on-chain deposit.
// TxHash is unique across the ledger; it is the idempotency key for crediting.
type LedgerEntry struct {
	ID          uuid.UUID       `json:"id"           db:"id"`
	UserID      string          `json:"user_id"      db:"user_id"`
	Amount      decimal.Decimal `json:"amount"       db:"amount"`
	Type        EntryType       `json:"type"         db:"type"`
	Status      EntryStatus     `json:"status"       db:"status"`
	Description string          `json:"description"  db:"description"`
	TxHash      string          `json:"tx_hash"      db:"tx_hash"`
	BlockNumber uint64          `json:"block_number" db:"block_number"`
	FromAddress string          `json:"from_address" db:"from_address"`
	CreatedAt   time.Time       `json:"created_at"   db:"created_at"`
}

// NewDepositEntry builds the ledger entry crediting event to userID.
func NewDepositEntry(userID string, event *TransferEvent, symbol string, chain ChainName) *LedgerEntry {
	return &LedgerEntry{
		ID:          uuid.New(),
		UserID:      userID,
		Amount:      event.Amount,
		Type:        EntryTypeDeposit,
		Status:      EntryStatusCompleted,
		Description: fmt.Sprintf("On-chain deposit %s via %s. Tx: %s", symbol, chain, event.TxHash),
		TxHash:      event.TxHash,
		BlockNumber: event.BlockNumber,
		FromAddress: event.From,
		CreatedAt:   time.Now().UTC(),
	}
}

// BalanceRecord is the per-user spendable balance and lifetime deposit counter.
type BalanceRecord struct {
	UserID         string          `json:"user_id"         db:"user_id"`
	Balance        decimal.Decimal `json:"balance"         db:"balance"`
	TotalDeposited decimal.Decimal `json:"total_deposited" db:"total_deposited"`
	UpdatedAt      time.Time       `json:"updated_at"      db:"updated_at"`
}
