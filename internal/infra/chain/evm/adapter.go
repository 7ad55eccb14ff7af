package evm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/vietddude/depositverifier/internal/core/domain"
	"github.com/vietddude/depositverifier/internal/indexing/metrics"
	"github.com/vietddude/depositverifier/internal/infra/rpc"
)

// TransferEventSig is keccak256("Transfer(address,address,uint256)").
var TransferEventSig = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// LogFilter is the eth_getLogs filter object.
type LogFilter struct {
	FromBlock uint64
	ToBlock   uint64
	Address   string
	Topics    []string
}

// MarshalJSON renders the filter with hex block numbers.
func (f LogFilter) MarshalJSON() ([]byte, error) {
	topics := make([]any, len(f.Topics))
	for i, t := range f.Topics {
		if t == "" {
			topics[i] = nil
			continue
		}
		topics[i] = t
	}
	return json.Marshal(map[string]any{
		"fromBlock": hexutil.EncodeUint64(f.FromBlock),
		"toBlock":   hexutil.EncodeUint64(f.ToBlock),
		"address":   f.Address,
		"topics":    topics,
	})
}

// TransferQuery selects Transfer logs of one token between two addresses.
type TransferQuery struct {
	Token     string
	From      string
	To        string
	FromBlock uint64
	ToBlock   uint64
}

// Filter turns the query into an eth_getLogs filter.
func (q TransferQuery) Filter() LogFilter {
	return LogFilter{
		FromBlock: q.FromBlock,
		ToBlock:   q.ToBlock,
		Address:   strings.ToLower(q.Token),
		Topics: []string{
			TransferEventSig.Hex(),
			PadAddress(q.From),
			PadAddress(q.To),
		},
	}
}

// PadAddress left-pads an address to a 32-byte topic.
func PadAddress(addr string) string {
	return common.BytesToHash(common.HexToAddress(addr).Bytes()).Hex()
}

type EVMAdapter struct {
	chain    domain.ChainName
	provider rpc.Provider
	log      *slog.Logger
}

func NewEVMAdapter(chain domain.ChainName, provider rpc.Provider) *EVMAdapter {
	return &EVMAdapter{
		chain:    chain,
		provider: provider,
		log:      slog.Default().With("component", "evm", "chain", chain),
	}
}

func (a *EVMAdapter) GetLatestBlock(ctx context.Context) (uint64, error) {
	result, err := a.provider.Call(ctx, "eth_blockNumber", nil)
	if err != nil {
		return 0, fmt.Errorf("%w: eth_blockNumber: %w", domain.ErrRPC, err)
	}

	var blockHex string
	if err := json.Unmarshal(result, &blockHex); err != nil {
		return 0, fmt.Errorf("%w: invalid block number response: %s", domain.ErrRPC, string(result))
	}

	height, err := parseHexString(blockHex)
	if err != nil {
		return 0, fmt.Errorf("%w: eth_blockNumber: %w", domain.ErrRPC, err)
	}

	metrics.ChainLatestBlock.WithLabelValues(string(a.chain)).Set(float64(height))
	return height, nil
}

// GetLogs issues eth_getLogs with the given filter.
func (a *EVMAdapter) GetLogs(ctx context.Context, filter LogFilter) ([]RawLog, error) {
	result, err := a.provider.Call(ctx, "eth_getLogs", []any{filter})
	if err != nil {
		return nil, fmt.Errorf("%w: eth_getLogs: %w", domain.ErrRPC, err)
	}

	var logs []RawLog
	if err := json.Unmarshal(result, &logs); err != nil {
		return nil, fmt.Errorf("%w: invalid eth_getLogs response: %w", domain.ErrRPC, err)
	}

	a.log.Debug("fetched logs",
		"from_block", filter.FromBlock,
		"to_block", filter.ToBlock,
		"count", len(logs),
	)
	return logs, nil
}

// GetTransferLogs fetches Transfer logs matching q.
func (a *EVMAdapter) GetTransferLogs(ctx context.Context, q TransferQuery) ([]RawLog, error) {
	return a.GetLogs(ctx, q.Filter())
}

// extractAddress normalizes a 32-byte topic to a lower-case address
func extractAddress(topic string) string {
	if len(topic) >= 42 {
		return strings.ToLower("0x" + topic[len(topic)-40:])
	}
	return ""
}

func parseHexString(hexStr string) (uint64, error) {
	n, err := hexutil.DecodeUint64(hexStr)
	if err != nil {
		return 0, fmt.Errorf("invalid hex %q: %w", hexStr, err)
	}
	return n, nil
}
