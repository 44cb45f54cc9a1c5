// Package book implements the in-memory, per-stock order book.
//
// Each stock has two sides: resting limit sells ordered by price-time
// priority, and queued market buys in plain insertion order. The sell side
// is a btree keyed by (price, acceptedAt, seq) so the head is always the
// cheapest, oldest offer; seq is a book-wide insertion counter that breaks
// exact timestamp ties FIFO. A cached best-sell pointer is refreshed on
// every mutation of the sell side.
//
// Locking: the matching engine must hold a stock's exclusive lock for the
// full duration of a matching step. Book.Lock returns an Instrument handle
// plus its unlock function; every Instrument method assumes the caller
// holds that lock. BestSells is the only cross-stock read and takes each
// stock's lock briefly on its own.
package book

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/btree"

	"daytrader/pkg/types"
)

// SellEntry is one resting limit sell order.
type SellEntry struct {
	UserID     string
	StockID    string
	StockName  string
	Price      int64
	Remaining  int64
	AcceptedAt time.Time
	StockTxID  string
	seq        uint64
}

// QueuedBuy is the unfilled residual of a market buy waiting for
// liquidity. It has no price; fills execute at the ask.
type QueuedBuy struct {
	UserID          string
	StockID         string
	Remaining       int64
	AcceptedAt      time.Time
	ParentStockTxID string
}

// Side identifies which side of the book an entry was found on.
type Side int

const (
	SideSell Side = iota
	SideBuy
)

// Removed describes an entry taken out of the book by RemoveByTx.
type Removed struct {
	Side      Side
	Quantity  int64 // remaining quantity at removal
	Price     int64 // limit price; zero for queued buys
	StockName string
}

const btreeDegree = 32

// lessSell orders the sell side by (price asc, acceptedAt asc, seq asc).
func lessSell(a, b *SellEntry) bool {
	if a.Price != b.Price {
		return a.Price < b.Price
	}
	if !a.AcceptedAt.Equal(b.AcceptedAt) {
		return a.AcceptedAt.Before(b.AcceptedAt)
	}
	return a.seq < b.seq
}

// Instrument holds both sides of the book for one stock. All methods
// assume the caller holds the stock lock obtained from Book.Lock.
type Instrument struct {
	mu      sync.Mutex
	stockID string
	sells   *btree.BTreeG[*SellEntry]
	byTx    map[string]*SellEntry // StockTxID → resting sell
	buys    []*QueuedBuy          // insertion order
	best    *SellEntry            // head of the sell side; nil when empty
}

func newInstrument(stockID string) *Instrument {
	return &Instrument{
		stockID: stockID,
		sells:   btree.NewG(btreeDegree, lessSell),
		byTx:    make(map[string]*SellEntry),
	}
}

// Book maps stock ids to instruments. The top-level mutex guards only the
// map; per-stock state is guarded by each instrument's own lock.
type Book struct {
	mu    sync.RWMutex
	insts map[string]*Instrument
	seq   atomic.Uint64
}

// New creates an empty order book.
func New() *Book {
	return &Book{insts: make(map[string]*Instrument)}
}

func (b *Book) instrument(stockID string) *Instrument {
	b.mu.RLock()
	ins, ok := b.insts[stockID]
	b.mu.RUnlock()
	if ok {
		return ins
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if ins, ok = b.insts[stockID]; ok {
		return ins
	}
	ins = newInstrument(stockID)
	b.insts[stockID] = ins
	return ins
}

// Lock acquires the exclusive lock for stockID, creating the instrument on
// first use, and returns the handle plus its unlock function.
func (b *Book) Lock(stockID string) (*Instrument, func()) {
	ins := b.instrument(stockID)
	ins.mu.Lock()
	return ins, ins.mu.Unlock
}

// StocksWithQueuedBuys returns the ids of stocks whose buy side is
// non-empty, for the queued-order matcher to walk.
func (b *Book) StocksWithQueuedBuys() []string {
	b.mu.RLock()
	insts := make([]*Instrument, 0, len(b.insts))
	for _, ins := range b.insts {
		insts = append(insts, ins)
	}
	b.mu.RUnlock()

	var out []string
	for _, ins := range insts {
		ins.mu.Lock()
		if len(ins.buys) > 0 {
			out = append(out, ins.stockID)
		}
		ins.mu.Unlock()
	}
	sort.Strings(out)
	return out
}

// BestSells returns a point-in-time snapshot of the lowest ask for every
// stock with at least one resting sell, sorted by stock name so clients
// can diff consecutive reads.
func (b *Book) BestSells() []types.PriceQuote {
	b.mu.RLock()
	insts := make([]*Instrument, 0, len(b.insts))
	for _, ins := range b.insts {
		insts = append(insts, ins)
	}
	b.mu.RUnlock()

	var out []types.PriceQuote
	for _, ins := range insts {
		ins.mu.Lock()
		if ins.best != nil {
			out = append(out, types.PriceQuote{
				StockID:      ins.stockID,
				StockName:    ins.best.StockName,
				CurrentPrice: ins.best.Price,
			})
		}
		ins.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StockName < out[j].StockName })
	return out
}

// Instrument operations (stock lock held by caller)

// AddSell inserts a resting sell and refreshes the best-sell cache.
// The book assigns the FIFO tie-break sequence number.
func (ins *Instrument) AddSell(b *Book, e *SellEntry) {
	e.seq = b.seq.Add(1)
	ins.sells.ReplaceOrInsert(e)
	ins.byTx[e.StockTxID] = e
	ins.refreshBest()
}

// AddQueuedBuy appends an unfilled market buy to the queue.
func (ins *Instrument) AddQueuedBuy(q *QueuedBuy) {
	ins.buys = append(ins.buys, q)
}

// PeekSell returns the first resting sell whose seller is not skipUser,
// or nil. The self-trade prevention rule lives here: a buyer never sees
// their own offers.
func (ins *Instrument) PeekSell(skipUser string) *SellEntry {
	var found *SellEntry
	ins.sells.Ascend(func(e *SellEntry) bool {
		if e.UserID == skipUser {
			return true
		}
		found = e
		return false
	})
	return found
}

// HasSells reports whether any sell is resting, regardless of seller.
func (ins *Instrument) HasSells() bool {
	return ins.sells.Len() > 0
}

// ConsumeSell decrements the resting sell identified by txID by qty,
// removing it when exhausted, and refreshes the best-sell cache.
func (ins *Instrument) ConsumeSell(txID string, qty int64) {
	e, ok := ins.byTx[txID]
	if !ok {
		return
	}
	e.Remaining -= qty
	if e.Remaining <= 0 {
		ins.sells.Delete(e)
		delete(ins.byTx, txID)
	}
	ins.refreshBest()
}

// QueuedBuys returns the queue in insertion order. Callers may mutate
// entries only through ConsumeQueuedBuy.
func (ins *Instrument) QueuedBuys() []*QueuedBuy {
	out := make([]*QueuedBuy, len(ins.buys))
	copy(out, ins.buys)
	return out
}

// ConsumeQueuedBuy decrements the queued buy identified by its parent
// transaction id, removing it when exhausted.
func (ins *Instrument) ConsumeQueuedBuy(parentTxID string, qty int64) {
	for i, q := range ins.buys {
		if q.ParentStockTxID != parentTxID {
			continue
		}
		q.Remaining -= qty
		if q.Remaining <= 0 {
			ins.buys = append(ins.buys[:i], ins.buys[i+1:]...)
		}
		return
	}
}

// RemoveByTx scans both sides for an entry owned by userID with the given
// transaction id and removes it. Queued buys are matched on their parent
// transaction id.
func (ins *Instrument) RemoveByTx(userID, txID string) (Removed, bool) {
	if e, ok := ins.byTx[txID]; ok && e.UserID == userID {
		ins.sells.Delete(e)
		delete(ins.byTx, txID)
		ins.refreshBest()
		return Removed{Side: SideSell, Quantity: e.Remaining, Price: e.Price, StockName: e.StockName}, true
	}
	for i, q := range ins.buys {
		if q.ParentStockTxID == txID && q.UserID == userID {
			ins.buys = append(ins.buys[:i], ins.buys[i+1:]...)
			return Removed{Side: SideBuy, Quantity: q.Remaining}, true
		}
	}
	return Removed{}, false
}

// BestSell returns the cached head of the sell side, nil when empty.
func (ins *Instrument) BestSell() *SellEntry {
	return ins.best
}

func (ins *Instrument) refreshBest() {
	ins.best = nil
	ins.sells.Ascend(func(e *SellEntry) bool {
		ins.best = e
		return false
	})
}
