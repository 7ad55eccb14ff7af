package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/depositverifier/internal/core/domain"
	"github.com/vietddude/depositverifier/internal/infra/storage"
)

var _ storage.LedgerStore = (*MemoryStorage)(nil)

func entry(user, hash, amount string) *domain.LedgerEntry {
	ev := &domain.TransferEvent{
		TxHash: hash,
		From:   "0xabc",
		Amount: decimal.RequireFromString(amount),
	}
	return domain.NewDepositEntry(user, ev, "TZEE", domain.ChainNameBSC)
}

func TestCreditDeposit(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	bal, err := s.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, bal)

	require.NoError(t, s.CreditDeposit(ctx, entry("user-1", "0xaa", "2")))
	require.NoError(t, s.CreditDeposit(ctx, entry("user-1", "0xbb", "3")))

	bal, err = s.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, bal.Balance.Equal(decimal.NewFromInt(5)))
	assert.True(t, bal.TotalDeposited.Equal(decimal.NewFromInt(5)))

	entries, err := s.ListEntries(ctx, "user-1", 10)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestCreditDeposit_Duplicate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	require.NoError(t, s.CreditDeposit(ctx, entry("user-1", "0xaa", "10")))
	err := s.CreditDeposit(ctx, entry("user-2", "0xaa", "10"))
	assert.True(t, errors.Is(err, domain.ErrAlreadyCredited))

	bal, _ := s.GetBalance(ctx, "user-2")
	assert.Nil(t, bal, "duplicate must not create a balance")
}

func TestCreditDeposit_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.CreditDeposit(ctx, entry("user-1", "0xaa", "1")); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	bal, err := s.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, bal.Balance.Equal(decimal.NewFromInt(1)))
}
