package evm

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/vietddude/depositverifier/internal/core/domain"
)

// RawLog is a log object as returned by eth_getLogs.
type RawLog struct {
	Address         string   `json:"address"`
	Topics          []string `json:"topics"`
	Data            string   `json:"data"`
	BlockNumber     string   `json:"blockNumber"`
	TransactionHash string   `json:"transactionHash"`
	LogIndex        string   `json:"logIndex"`
	Removed         bool     `json:"removed"`
}

// DecodeTransferLog decodes an ERC20 Transfer log.
// The amount is the whole data payload read as an unsigned big-endian integer.
// Every failure wraps domain.ErrDecode.
func DecodeTransferLog(raw RawLog, decimals int) (*domain.TransferEvent, error) {
	if len(raw.Topics) < 3 {
		return nil, fmt.Errorf("%w: expected 3 topics, got %d", domain.ErrDecode, len(raw.Topics))
	}
	if !strings.EqualFold(raw.Topics[0], TransferEventSig.Hex()) {
		return nil, fmt.Errorf("%w: not a Transfer log: %s", domain.ErrDecode, raw.Topics[0])
	}

	txHash, err := hexutil.Decode(raw.TransactionHash)
	if err != nil || len(txHash) != common.HashLength {
		return nil, fmt.Errorf("%w: transactionHash %q", domain.ErrDecode, raw.TransactionHash)
	}

	blockNumber, err := hexutil.DecodeUint64(raw.BlockNumber)
	if err != nil {
		return nil, fmt.Errorf("%w: blockNumber %q: %w", domain.ErrDecode, raw.BlockNumber, err)
	}

	var logIndex uint64
	if raw.LogIndex != "" {
		if logIndex, err = hexutil.DecodeUint64(raw.LogIndex); err != nil {
			return nil, fmt.Errorf("%w: logIndex %q: %w", domain.ErrDecode, raw.LogIndex, err)
		}
	}

	data, err := hexutil.Decode(raw.Data)
	if err != nil || len(data) == 0 {
		return nil, fmt.Errorf("%w: data %q", domain.ErrDecode, raw.Data)
	}
	amount := new(big.Int).SetBytes(data)

	from := extractAddress(raw.Topics[1])
	to := extractAddress(raw.Topics[2])
	if from == "" || to == "" {
		return nil, fmt.Errorf("%w: malformed address topics", domain.ErrDecode)
	}

	return &domain.TransferEvent{
		TxHash:      hexutil.Encode(txHash),
		LogIndex:    logIndex,
		BlockNumber: blockNumber,
		From:        from,
		To:          to,
		RawAmount:   amount,
		Amount:      domain.ScaleAmount(amount, decimals),
	}, nil
}

// DecodeTransferLogs decodes every log, dropping the ones that fail.
// Logs flagged as removed by the node are skipped without counting as failures.
func DecodeTransferLogs(raws []RawLog, decimals int) ([]*domain.TransferEvent, []error) {
	events := make([]*domain.TransferEvent, 0, len(raws))
	var failures []error
	for _, raw := range raws {
		if raw.Removed {
			continue
		}
		ev, err := DecodeTransferLog(raw, decimals)
		if err != nil {
			failures = append(failures, err)
			continue
		}
		events = append(events, ev)
	}
	return events, failures
}
