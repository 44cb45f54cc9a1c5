// Package wallet defines the wallet ledger port: the single source of truth
// for user cash balances.
//
// The matching engine mutates balances exclusively through Add, which has
// initialize-if-absent semantics. Reads by the same caller always observe
// the caller's last successful Add (read-your-writes). Journals record the
// history of movements but never reconstitute a balance.
package wallet

import (
	"fmt"
	"sync"
)

// Ledger is the balance store the matching engine requires. Any backing
// store with per-user atomic increments may implement it.
type Ledger interface {
	// Balance returns the user's current balance, zero if the user has
	// no wallet yet.
	Balance(userID string) (int64, error)

	// Add applies a signed delta to the user's balance, creating the
	// wallet at zero first if absent.
	Add(userID string, delta int64) error
}

// MemoryLedger is the in-memory reference implementation of Ledger.
// A single mutex over the balance map gives per-user atomicity and
// read-your-writes for free.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]int64
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{balances: make(map[string]int64)}
}

// Balance implements Ledger.
func (l *MemoryLedger) Balance(userID string) (int64, error) {
	if userID == "" {
		return 0, fmt.Errorf("wallet: empty user id")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[userID], nil
}

// Add implements Ledger. The map zero value doubles as the
// initialize-if-absent step.
func (l *MemoryLedger) Add(userID string, delta int64) error {
	if userID == "" {
		return fmt.Errorf("wallet: empty user id")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[userID] += delta
	return nil
}

// Total returns the sum of all balances. Used by tests to assert the
// zero-sum property of fills.
func (l *MemoryLedger) Total() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var total int64
	for _, b := range l.balances {
		total += b
	}
	return total
}
