// Package journal defines the transaction journal port: the append-and-update
// store for stock transactions and per-user wallet movement logs.
//
// Journal rows are history, not state: balances live in the wallet ledger
// and holdings in the portfolio store. Stock transaction ids are globally
// unique; a duplicate insert is refused.
package journal

import (
	"fmt"
	"sync"
	"time"

	"daytrader/pkg/types"
)

// StockTxPatch is a partial update applied to an existing stock
// transaction. Nil fields are left untouched.
type StockTxPatch struct {
	Status            *types.OrderStatus
	StockPrice        *int64
	WalletTxID        *string
	RemainingQuantity *int64
	CancelledAt       *time.Time
}

// Journal is the transaction store the matching engine requires.
type Journal interface {
	// InsertStockTx appends a new stock transaction. The StockTxID must
	// be unused.
	InsertStockTx(tx types.StockTransaction) error

	// UpdateStockTx applies a patch to the transaction with the given id.
	UpdateStockTx(txID string, patch StockTxPatch) error

	// StockTx returns the transaction with the given id, or nil.
	StockTx(txID string) (*types.StockTransaction, error)

	// AppendWalletTx appends one wallet movement to the user's log.
	AppendWalletTx(userID string, entry types.WalletTransaction) error

	// StockTxsByUser returns the user's stock transactions in insertion
	// order (parents and the child fills recorded under the user).
	StockTxsByUser(userID string) ([]types.StockTransaction, error)

	// ChildrenOf returns the child fill transactions of a parent in
	// insertion order.
	ChildrenOf(parentTxID string) ([]types.StockTransaction, error)

	// WalletTxsByUser returns the user's wallet movements in insertion
	// order.
	WalletTxsByUser(userID string) ([]types.WalletTransaction, error)
}

// MemoryJournal is the in-memory reference implementation of Journal.
type MemoryJournal struct {
	mu        sync.Mutex
	stockTxs  map[string]*types.StockTransaction
	order     []string                             // insertion order of stock tx ids
	walletTxs map[string][]types.WalletTransaction // userID → movements
}

// NewMemoryJournal creates an empty in-memory journal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{
		stockTxs:  make(map[string]*types.StockTransaction),
		walletTxs: make(map[string][]types.WalletTransaction),
	}
}

// InsertStockTx implements Journal.
func (j *MemoryJournal) InsertStockTx(tx types.StockTransaction) error {
	if tx.StockTxID == "" {
		return fmt.Errorf("journal: empty stock tx id")
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	if _, dup := j.stockTxs[tx.StockTxID]; dup {
		return fmt.Errorf("journal: duplicate stock tx id %s", tx.StockTxID)
	}
	cp := tx
	j.stockTxs[tx.StockTxID] = &cp
	j.order = append(j.order, tx.StockTxID)
	return nil
}

// UpdateStockTx implements Journal.
func (j *MemoryJournal) UpdateStockTx(txID string, patch StockTxPatch) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	tx, ok := j.stockTxs[txID]
	if !ok {
		return fmt.Errorf("journal: unknown stock tx id %s", txID)
	}
	if patch.Status != nil {
		tx.OrderStatus = *patch.Status
	}
	if patch.StockPrice != nil {
		tx.StockPrice = patch.StockPrice
	}
	if patch.WalletTxID != nil {
		tx.WalletTxID = patch.WalletTxID
	}
	if patch.RemainingQuantity != nil {
		tx.RemainingQuantity = *patch.RemainingQuantity
	}
	if patch.CancelledAt != nil {
		tx.CancelledAt = patch.CancelledAt
	}
	return nil
}

// StockTx implements Journal. Returns a copy so callers cannot mutate
// journal state.
func (j *MemoryJournal) StockTx(txID string) (*types.StockTransaction, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	tx, ok := j.stockTxs[txID]
	if !ok {
		return nil, nil
	}
	cp := *tx
	return &cp, nil
}

// AppendWalletTx implements Journal.
func (j *MemoryJournal) AppendWalletTx(userID string, entry types.WalletTransaction) error {
	if userID == "" {
		return fmt.Errorf("journal: empty user id")
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.walletTxs[userID] = append(j.walletTxs[userID], entry)
	return nil
}

// StockTxsByUser implements Journal.
func (j *MemoryJournal) StockTxsByUser(userID string) ([]types.StockTransaction, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	var out []types.StockTransaction
	for _, id := range j.order {
		if tx := j.stockTxs[id]; tx.UserID == userID {
			out = append(out, *tx)
		}
	}
	return out, nil
}

// ChildrenOf implements Journal.
func (j *MemoryJournal) ChildrenOf(parentTxID string) ([]types.StockTransaction, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	var out []types.StockTransaction
	for _, id := range j.order {
		tx := j.stockTxs[id]
		if tx.ParentStockTxID != nil && *tx.ParentStockTxID == parentTxID {
			out = append(out, *tx)
		}
	}
	return out, nil
}

// WalletTxsByUser implements Journal.
func (j *MemoryJournal) WalletTxsByUser(userID string) ([]types.WalletTransaction, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	log := j.walletTxs[userID]
	out := make([]types.WalletTransaction, len(log))
	copy(out, log)
	return out, nil
}

// Snapshot captures the full journal state for persistence.
func (j *MemoryJournal) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()

	snap := Snapshot{WalletTxs: make(map[string][]types.WalletTransaction, len(j.walletTxs))}
	for _, id := range j.order {
		snap.StockTxs = append(snap.StockTxs, *j.stockTxs[id])
	}
	for user, log := range j.walletTxs {
		cp := make([]types.WalletTransaction, len(log))
		copy(cp, log)
		snap.WalletTxs[user] = cp
	}
	return snap
}

// Restore replaces the journal state with a previously saved snapshot.
func (j *MemoryJournal) Restore(snap Snapshot) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.stockTxs = make(map[string]*types.StockTransaction, len(snap.StockTxs))
	j.order = j.order[:0]
	for i := range snap.StockTxs {
		cp := snap.StockTxs[i]
		j.stockTxs[cp.StockTxID] = &cp
		j.order = append(j.order, cp.StockTxID)
	}
	j.walletTxs = make(map[string][]types.WalletTransaction, len(snap.WalletTxs))
	for user, log := range snap.WalletTxs {
		cp := make([]types.WalletTransaction, len(log))
		copy(cp, log)
		j.walletTxs[user] = cp
	}
}
