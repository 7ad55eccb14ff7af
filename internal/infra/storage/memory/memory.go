package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vietddude/depositverifier/internal/core/domain"
)

// MemoryStorage is an in-process ledger store.
// It enforces tx hash uniqueness the same way the Postgres schema does.
type MemoryStorage struct {
	mu       sync.RWMutex
	entries  map[string]*domain.LedgerEntry // tx hash -> entry
	byUser   map[string][]*domain.LedgerEntry
	balances map[string]*domain.BalanceRecord
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		entries:  make(map[string]*domain.LedgerEntry),
		byUser:   make(map[string][]*domain.LedgerEntry),
		balances: make(map[string]*domain.BalanceRecord),
	}
}

func txKey(hash string) string {
	return strings.ToLower(hash)
}

func (s *MemoryStorage) CreditDeposit(ctx context.Context, entry *domain.LedgerEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := txKey(entry.TxHash)
	if _, exists := s.entries[key]; exists {
		return domain.ErrAlreadyCredited
	}

	stored := *entry
	s.entries[key] = &stored
	s.byUser[entry.UserID] = append(s.byUser[entry.UserID], &stored)

	bal, ok := s.balances[entry.UserID]
	if !ok {
		bal = &domain.BalanceRecord{UserID: entry.UserID}
		s.balances[entry.UserID] = bal
	}
	bal.Balance = bal.Balance.Add(entry.Amount)
	bal.TotalDeposited = bal.TotalDeposited.Add(entry.Amount)
	bal.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStorage) ListEntries(ctx context.Context, userID string, limit int) ([]*domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]*domain.LedgerEntry, 0, len(s.byUser[userID]))
	for _, e := range s.byUser[userID] {
		cp := *e
		entries = append(entries, &cp)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *MemoryStorage) GetBalance(ctx context.Context, userID string) (*domain.BalanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bal, ok := s.balances[userID]
	if !ok {
		return nil, nil
	}
	cp := *bal
	return &cp, nil
}

func (s *MemoryStorage) Health(ctx context.Context) error {
	return nil
}
