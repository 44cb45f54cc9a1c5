// Package portfolio defines the portfolio store port: per-user stock
// holdings.
//
// Holdings are created on the first positive delta, pruned when they reach
// zero, and a decrement that would push a holding negative is refused. The
// matching engine uses ApplyDelta both to reserve shares when a sell is
// accepted and to deliver shares to buyers on fills.
package portfolio

import (
	"fmt"
	"sort"
	"sync"

	"daytrader/pkg/types"
)

// Store is the holdings store the matching engine requires.
type Store interface {
	// Qty returns the quantity of stockID the user currently owns,
	// zero if none.
	Qty(userID, stockID string) (int64, error)

	// ApplyDelta adjusts the user's holding of stockID. A positive delta
	// creates the entry if absent, naming it nameOnCreate. A negative
	// delta larger than the holding is refused with ok=false and no
	// change. A holding that reaches zero is removed.
	ApplyDelta(userID, stockID string, delta int64, nameOnCreate string) (ok bool, err error)

	// Entries returns the user's holdings sorted by stock name,
	// descending.
	Entries(userID string) ([]types.PortfolioEntry, error)
}

// MemoryStore is the in-memory reference implementation of Store.
// One mutex serializes all updates, which also serializes concurrent
// deltas against the same (user, stock) pair.
type MemoryStore struct {
	mu       sync.Mutex
	holdings map[string]map[string]*types.PortfolioEntry // userID → stockID → entry
}

// NewMemoryStore creates an empty in-memory portfolio store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{holdings: make(map[string]map[string]*types.PortfolioEntry)}
}

// Qty implements Store.
func (s *MemoryStore) Qty(userID, stockID string) (int64, error) {
	if userID == "" || stockID == "" {
		return 0, fmt.Errorf("portfolio: empty user or stock id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.holdings[userID][stockID]; ok {
		return e.QuantityOwned, nil
	}
	return 0, nil
}

// ApplyDelta implements Store.
func (s *MemoryStore) ApplyDelta(userID, stockID string, delta int64, nameOnCreate string) (bool, error) {
	if userID == "" || stockID == "" {
		return false, fmt.Errorf("portfolio: empty user or stock id")
	}
	if delta == 0 {
		return true, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.holdings[userID]
	if !ok {
		user = make(map[string]*types.PortfolioEntry)
		s.holdings[userID] = user
	}

	entry, exists := user[stockID]
	if !exists {
		if delta < 0 {
			return false, nil
		}
		user[stockID] = &types.PortfolioEntry{
			StockID:       stockID,
			StockName:     nameOnCreate,
			QuantityOwned: delta,
		}
		return true, nil
	}

	next := entry.QuantityOwned + delta
	if next < 0 {
		return false, nil
	}
	if next == 0 {
		delete(user, stockID)
		return true, nil
	}
	entry.QuantityOwned = next
	return true, nil
}

// Entries implements Store.
func (s *MemoryStore) Entries(userID string) ([]types.PortfolioEntry, error) {
	if userID == "" {
		return nil, fmt.Errorf("portfolio: empty user id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]types.PortfolioEntry, 0, len(s.holdings[userID]))
	for _, e := range s.holdings[userID] {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StockName > out[j].StockName
	})
	return out, nil
}
