package domain

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// TokenDecimals is the fixed-point precision of the deposit token.
const TokenDecimals = 18

// TransferEvent is an ERC20 Transfer log decoded from chain data.
// It is never persisted as-is; the crediting engine turns it into a LedgerEntry.
type TransferEvent struct {
	TxHash      string   `json:"tx_hash"`
	LogIndex    uint64   `json:"log_index"`
	BlockNumber uint64   `json:"block_number"`
	From        string   `json:"from_address"`
	To          string   `json:"to_address"`
	RawAmount   *big.Int `json:"raw_amount"`
	// Amount is RawAmount scaled by 10^-TokenDecimals.
	Amount decimal.Decimal `json:"amount"`
}

// Confirmations returns how deep the event sits below head.
// Events above head (node lag between calls) report zero.
func (e *TransferEvent) Confirmations(head uint64) uint64 {
	if head < e.BlockNumber {
		return 0
	}
	return head - e.BlockNumber
}

// Matches reports whether the event moves tokens from `from` to `to`.
// Addresses are compared case-insensitively.
func (e *TransferEvent) Matches(from, to string) bool {
	return strings.EqualFold(e.From, from) && strings.EqualFold(e.To, to)
}

// FormatUnits renders value / 10^decimals without going through floats.
// Trailing zeros of the fractional part are trimmed: 1500000000000000000 -> "1.5".
func FormatUnits(value *big.Int, decimals int) string {
	if value == nil {
		return "0"
	}
	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(value, divisor, new(big.Int))
	if frac.Sign() == 0 {
		return whole.String()
	}

	fracStr := frac.String()
	if pad := decimals - len(fracStr); pad > 0 {
		fracStr = strings.Repeat("0", pad) + fracStr
	}
	fracStr = strings.TrimRight(fracStr, "0")
	return whole.String() + "." + fracStr
}

// ScaleAmount converts a raw token amount into an exact decimal.
func ScaleAmount(value *big.Int, decimals int) decimal.Decimal {
	return decimal.RequireFromString(FormatUnits(value, decimals))
}
