package chain

import (
	"context"

	"github.com/vietddude/depositverifier/internal/infra/chain/evm"
)

// Adapter is the chain read boundary used by deposit verification.
// Both calls are single attempts; errors wrap domain.ErrRPC.
type Adapter interface {
	// GetLatestBlock returns the latest block number on the chain
	GetLatestBlock(ctx context.Context) (uint64, error)

	// GetTransferLogs returns raw Transfer logs of token from `from` to `to`
	// within [fromBlock, toBlock].
	GetTransferLogs(ctx context.Context, q evm.TransferQuery) ([]evm.RawLog, error)
}

var _ Adapter = (*evm.EVMAdapter)(nil)
