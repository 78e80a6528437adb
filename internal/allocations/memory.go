package allocations

import (
	"context"
	"sync"
	"time"
)

// MemoryStore はプロセス内に配分を保存する Store 実装です。
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]Allocation
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore は空の MemoryStore を作成します。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]Allocation)}
}

// Upsert は配分を上書き保存します。
func (s *MemoryStore) Upsert(ctx context.Context, userID string, stocks, funds, bonds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[userID] = Allocation{
		UserID:    userID,
		Stocks:    stocks,
		Funds:     funds,
		Bonds:     bonds,
		UpdatedAt: time.Now().UTC(),
	}
	return nil
}

// Get はユーザーの配分を返します。
func (s *MemoryStore) Get(userID string) (Allocation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.items[userID]
	return a, ok
}
