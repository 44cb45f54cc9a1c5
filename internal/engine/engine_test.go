package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"daytrader/internal/book"
	"daytrader/internal/catalog"
	"daytrader/internal/journal"
	"daytrader/internal/portfolio"
	"daytrader/internal/wallet"
	"daytrader/pkg/types"
)

type fixture struct {
	engine   *Engine
	ledger   *wallet.MemoryLedger
	holdings *portfolio.MemoryStore
	journal  *journal.MemoryJournal
	catalog  *catalog.MemoryCatalog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ledger:   wallet.NewMemoryLedger(),
		holdings: portfolio.NewMemoryStore(),
		journal:  journal.NewMemoryJournal(),
		catalog:  catalog.NewMemoryCatalog(),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.engine = New(book.New(), f.ledger, f.holdings, f.journal, f.catalog, logger)
	return f
}

// stock registers a catalog entry and returns its id.
func (f *fixture) stock(t *testing.T, name string) string {
	t.Helper()
	id, err := f.catalog.Create(name)
	if err != nil {
		t.Fatalf("catalog.Create(%s): %v", name, err)
	}
	return id
}

// own seeds a user's holdings.
func (f *fixture) own(t *testing.T, user, stockID string, qty int64) {
	t.Helper()
	if _, err := f.holdings.ApplyDelta(user, stockID, qty, f.catalog.NameFor(stockID)); err != nil {
		t.Fatalf("seed holdings: %v", err)
	}
}

func (f *fixture) balance(t *testing.T, user string) int64 {
	t.Helper()
	bal, err := f.ledger.Balance(user)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	return bal
}

func (f *fixture) qty(t *testing.T, user, stockID string) int64 {
	t.Helper()
	q, err := f.holdings.Qty(user, stockID)
	if err != nil {
		t.Fatalf("Qty: %v", err)
	}
	return q
}

func (f *fixture) tx(t *testing.T, txID string) *types.StockTransaction {
	t.Helper()
	tx, err := f.journal.StockTx(txID)
	if err != nil || tx == nil {
		t.Fatalf("StockTx(%s) = (%+v, %v)", txID, tx, err)
	}
	return tx
}

func TestSingleMatchCompletes(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	s1 := f.stock(t, "S1")
	f.own(t, "alice", s1, 10)
	_ = f.ledger.Add("bob", 600)

	sellRes, err := f.engine.PlaceSell(ctx, "alice", s1, 50, 10)
	if err != nil {
		t.Fatalf("PlaceSell: %v", err)
	}

	buyRes, err := f.engine.PlaceBuy(ctx, "bob", s1, 10)
	if err != nil {
		t.Fatalf("PlaceBuy: %v", err)
	}

	if buyRes.OrderStatus != types.StatusCompleted {
		t.Errorf("buy status = %s, want COMPLETED", buyRes.OrderStatus)
	}
	if len(buyRes.Trades) != 1 || buyRes.Trades[0].Quantity != 10 || buyRes.Trades[0].Price != 50 {
		t.Errorf("trades = %+v, want one fill 10@50", buyRes.Trades)
	}

	if got := f.balance(t, "bob"); got != 100 {
		t.Errorf("bob wallet = %d, want 100", got)
	}
	if got := f.balance(t, "alice"); got != 500 {
		t.Errorf("alice wallet = %d, want 500", got)
	}
	if got := f.qty(t, "alice", s1); got != 0 {
		t.Errorf("alice holdings = %d, want 0", got)
	}
	if got := f.qty(t, "bob", s1); got != 10 {
		t.Errorf("bob holdings = %d, want 10", got)
	}
	if quotes := f.engine.BestPrices(ctx); len(quotes) != 0 {
		t.Errorf("BestPrices = %+v, want empty book", quotes)
	}

	parent := f.tx(t, buyRes.StockTxID)
	if parent.OrderStatus != types.StatusCompleted {
		t.Errorf("parent status = %s, want COMPLETED", parent.OrderStatus)
	}
	if parent.StockPrice == nil || *parent.StockPrice != 50 {
		t.Errorf("parent stock_price = %v, want 50", parent.StockPrice)
	}
	if parent.WalletTxID == nil {
		t.Error("completed parent missing wallet_tx_id")
	}
	if parent.RemainingQuantity != 0 {
		t.Errorf("parent remaining = %d, want 0", parent.RemainingQuantity)
	}

	sellParent := f.tx(t, sellRes.StockTxID)
	if sellParent.OrderStatus != types.StatusCompleted {
		t.Errorf("sell parent status = %s, want COMPLETED", sellParent.OrderStatus)
	}
}

func TestPartialFillQueuesResidual(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	s2 := f.stock(t, "S2")
	f.own(t, "alice", s2, 4)
	f.own(t, "carol", s2, 6)
	_ = f.ledger.Add("bob", 200)

	if _, err := f.engine.PlaceSell(ctx, "alice", s2, 30, 4); err != nil {
		t.Fatalf("PlaceSell alice: %v", err)
	}
	if _, err := f.engine.PlaceSell(ctx, "carol", s2, 40, 6); err != nil {
		t.Fatalf("PlaceSell carol: %v", err)
	}

	res, err := f.engine.PlaceBuy(ctx, "bob", s2, 12)
	if err != nil {
		t.Fatalf("PlaceBuy: %v", err)
	}

	if res.OrderStatus != types.StatusPartiallyCompleted {
		t.Errorf("status = %s, want PARTIALLY_COMPLETED", res.OrderStatus)
	}
	// 4@30 exhausts alice, then 200-120=80 affords floor(80/40)=2 of carol's.
	if len(res.Trades) != 2 || res.Trades[0].Quantity != 4 || res.Trades[0].Price != 30 ||
		res.Trades[1].Quantity != 2 || res.Trades[1].Price != 40 {
		t.Errorf("trades = %+v, want 4@30 then 2@40", res.Trades)
	}

	if got := f.balance(t, "bob"); got < 0 {
		t.Errorf("bob wallet = %d, must never go negative", got)
	}
	parent := f.tx(t, res.StockTxID)
	if parent.RemainingQuantity != 6 {
		t.Errorf("parent remaining = %d, want 6", parent.RemainingQuantity)
	}
}

func TestInsufficientFundsClamp(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	s1 := f.stock(t, "S1")
	f.own(t, "alice", s1, 10)
	_ = f.ledger.Add("bob", 25)

	if _, err := f.engine.PlaceSell(ctx, "alice", s1, 10, 10); err != nil {
		t.Fatalf("PlaceSell: %v", err)
	}

	res, err := f.engine.PlaceBuy(ctx, "bob", s1, 10)
	if err != nil {
		t.Fatalf("PlaceBuy: %v", err)
	}

	if res.OrderStatus != types.StatusPartiallyCompleted {
		t.Errorf("status = %s, want PARTIALLY_COMPLETED", res.OrderStatus)
	}
	if len(res.Trades) != 1 || res.Trades[0].Quantity != 2 || res.Trades[0].Price != 10 {
		t.Errorf("trades = %+v, want one fill 2@10", res.Trades)
	}
	if got := f.balance(t, "bob"); got != 5 {
		t.Errorf("bob wallet = %d, want 5", got)
	}
	if rem := f.tx(t, res.StockTxID).RemainingQuantity; rem != 8 {
		t.Errorf("parent remaining = %d, want 8 queued", rem)
	}
}

func TestSelfTradeSkipped(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	s3 := f.stock(t, "S3")
	f.own(t, "alice", s3, 5)
	_ = f.ledger.Add("alice", 1000)

	sellRes, err := f.engine.PlaceSell(ctx, "alice", s3, 20, 5)
	if err != nil {
		t.Fatalf("PlaceSell: %v", err)
	}

	res, err := f.engine.PlaceBuy(ctx, "alice", s3, 5)
	if err != nil {
		t.Fatalf("PlaceBuy: %v", err)
	}

	if res.OrderStatus != types.StatusIncomplete {
		t.Errorf("status = %s, want INCOMPLETE", res.OrderStatus)
	}
	if len(res.Trades) != 0 {
		t.Errorf("trades = %+v, want none (self-trade)", res.Trades)
	}
	if got := f.balance(t, "alice"); got != 1000 {
		t.Errorf("alice wallet = %d, want 1000 untouched", got)
	}
	// Her own sell still rests on the book.
	if f.tx(t, sellRes.StockTxID).OrderStatus != types.StatusInProgress {
		t.Error("sell should still be in progress")
	}
}

func TestCancelSellRestoresReservation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	s1 := f.stock(t, "S1")
	f.own(t, "alice", s1, 10)

	res, err := f.engine.PlaceSell(ctx, "alice", s1, 50, 10)
	if err != nil {
		t.Fatalf("PlaceSell: %v", err)
	}
	if got := f.qty(t, "alice", s1); got != 0 {
		t.Fatalf("reservation not taken: holdings = %d, want 0", got)
	}

	if err := f.engine.Cancel(ctx, "alice", res.StockTxID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	if got := f.qty(t, "alice", s1); got != 10 {
		t.Errorf("holdings after cancel = %d, want 10", got)
	}
	if quotes := f.engine.BestPrices(ctx); len(quotes) != 0 {
		t.Errorf("BestPrices = %+v, want empty", quotes)
	}
	tx := f.tx(t, res.StockTxID)
	if tx.OrderStatus != types.StatusCancelled {
		t.Errorf("status = %s, want CANCELLED", tx.OrderStatus)
	}
	if tx.CancelledAt == nil {
		t.Error("cancelled tx missing cancellation timestamp")
	}
	if got := f.balance(t, "alice"); got != 0 {
		t.Errorf("wallet moved on sell cancel: %d", got)
	}

	// Second cancel observes a terminal status.
	if err := f.engine.Cancel(ctx, "alice", res.StockTxID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Cancel = %v, want ErrNotFound", err)
	}
}

func TestCancelQueuedBuyRestoresNothing(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	s1 := f.stock(t, "S1")
	_ = f.ledger.Add("bob", 100)

	res, err := f.engine.PlaceBuy(ctx, "bob", s1, 5)
	if err != nil {
		t.Fatalf("PlaceBuy: %v", err)
	}
	if res.OrderStatus != types.StatusIncomplete {
		t.Fatalf("status = %s, want INCOMPLETE", res.OrderStatus)
	}

	if err := f.engine.Cancel(ctx, "bob", res.StockTxID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if got := f.balance(t, "bob"); got != 100 {
		t.Errorf("wallet = %d, want 100 untouched", got)
	}
	if got := f.qty(t, "bob", s1); got != 0 {
		t.Errorf("holdings = %d, want 0", got)
	}
	if f.tx(t, res.StockTxID).OrderStatus != types.StatusCancelled {
		t.Error("queued buy parent not CANCELLED")
	}
}

func TestCancelUnknownOrForeignTx(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	s1 := f.stock(t, "S1")
	f.own(t, "alice", s1, 5)
	res, _ := f.engine.PlaceSell(ctx, "alice", s1, 10, 5)

	if err := f.engine.Cancel(ctx, "alice", "no-such-tx"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Cancel unknown = %v, want ErrNotFound", err)
	}
	if err := f.engine.Cancel(ctx, "mallory", res.StockTxID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Cancel foreign = %v, want ErrNotFound", err)
	}
}

func TestBestPricesSortedWithMinimumAsk(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	beta := f.stock(t, "Beta")
	alpha := f.stock(t, "Alpha")
	f.own(t, "alice", beta, 10)
	f.own(t, "alice", alpha, 10)
	f.own(t, "carol", alpha, 10)

	_, _ = f.engine.PlaceSell(ctx, "alice", beta, 70, 5)
	_, _ = f.engine.PlaceSell(ctx, "alice", alpha, 90, 5)
	_, _ = f.engine.PlaceSell(ctx, "carol", alpha, 85, 5)

	quotes := f.engine.BestPrices(ctx)
	if len(quotes) != 2 {
		t.Fatalf("BestPrices len = %d, want 2", len(quotes))
	}
	if quotes[0].StockName != "Alpha" || quotes[0].CurrentPrice != 85 {
		t.Errorf("quotes[0] = %+v, want Alpha@85", quotes[0])
	}
	if quotes[1].StockName != "Beta" || quotes[1].CurrentPrice != 70 {
		t.Errorf("quotes[1] = %+v, want Beta@70", quotes[1])
	}
}

func TestVWAPTruncatesTowardZero(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	s1 := f.stock(t, "S1")
	f.own(t, "alice", s1, 1)
	f.own(t, "carol", s1, 2)
	_ = f.ledger.Add("bob", 100)

	_, _ = f.engine.PlaceSell(ctx, "alice", s1, 5, 1)
	_, _ = f.engine.PlaceSell(ctx, "carol", s1, 6, 2)

	res, err := f.engine.PlaceBuy(ctx, "bob", s1, 3)
	if err != nil {
		t.Fatalf("PlaceBuy: %v", err)
	}
	if res.OrderStatus != types.StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", res.OrderStatus)
	}

	// (1*5 + 2*6) / 3 = 17/3 = 5 truncated.
	parent := f.tx(t, res.StockTxID)
	if parent.StockPrice == nil || *parent.StockPrice != 5 {
		t.Errorf("VWAP = %v, want 5", parent.StockPrice)
	}
}

func TestFillsAreZeroSum(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	s1 := f.stock(t, "S1")
	f.own(t, "alice", s1, 50)
	f.own(t, "carol", s1, 50)
	_ = f.ledger.Add("bob", 10_000)
	_ = f.ledger.Add("dave", 3_000)
	before := f.ledger.Total()

	_, _ = f.engine.PlaceSell(ctx, "alice", s1, 12, 30)
	_, _ = f.engine.PlaceSell(ctx, "carol", s1, 11, 20)
	_, _ = f.engine.PlaceBuy(ctx, "bob", s1, 25)
	_, _ = f.engine.PlaceBuy(ctx, "dave", s1, 40)
	_, _ = f.engine.MatchQueued(ctx)

	if after := f.ledger.Total(); after != before {
		t.Errorf("ledger total changed: before %d, after %d", before, after)
	}
}

func TestFillsExecuteAtAskNeverAboveBalance(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	s1 := f.stock(t, "S1")
	f.own(t, "alice", s1, 100)
	_ = f.ledger.Add("bob", 777)

	_, _ = f.engine.PlaceSell(ctx, "alice", s1, 13, 100)
	res, err := f.engine.PlaceBuy(ctx, "bob", s1, 100)
	if err != nil {
		t.Fatalf("PlaceBuy: %v", err)
	}

	for _, tr := range res.Trades {
		if tr.Price != 13 {
			t.Errorf("fill price = %d, want resting ask 13", tr.Price)
		}
		if tr.BuyerID == tr.SellerID {
			t.Errorf("self trade: %+v", tr)
		}
	}
	if got := f.balance(t, "bob"); got != 777-59*13 {
		t.Errorf("bob wallet = %d, want %d (59 affordable shares)", got, 777-59*13)
	}
}

func TestChildQuantitiesNeverExceedParent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	s1 := f.stock(t, "S1")
	f.own(t, "alice", s1, 7)
	_ = f.ledger.Add("bob", 10_000)

	_, _ = f.engine.PlaceSell(ctx, "alice", s1, 10, 7)
	res, err := f.engine.PlaceBuy(ctx, "bob", s1, 20)
	if err != nil {
		t.Fatalf("PlaceBuy: %v", err)
	}

	children, err := f.journal.ChildrenOf(res.StockTxID)
	if err != nil {
		t.Fatalf("ChildrenOf: %v", err)
	}
	var filled int64
	for _, c := range children {
		filled += c.Quantity
		if c.OrderStatus != types.StatusCompleted {
			t.Errorf("child %s status = %s, want COMPLETED", c.StockTxID, c.OrderStatus)
		}
	}
	parent := f.tx(t, res.StockTxID)
	if filled > parent.Quantity {
		t.Errorf("children total %d exceeds parent quantity %d", filled, parent.Quantity)
	}
	if filled == parent.Quantity && parent.OrderStatus != types.StatusCompleted {
		t.Error("fully filled parent not COMPLETED")
	}
	if filled < parent.Quantity && parent.OrderStatus == types.StatusCompleted {
		t.Error("partially filled parent marked COMPLETED")
	}
}

func TestPlaceSellInsufficientStock(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	s1 := f.stock(t, "S1")
	f.own(t, "alice", s1, 3)

	if _, err := f.engine.PlaceSell(ctx, "alice", s1, 10, 5); !errors.Is(err, ErrInsufficientStock) {
		t.Errorf("PlaceSell = %v, want ErrInsufficientStock", err)
	}
	// Holdings untouched after refusal.
	if got := f.qty(t, "alice", s1); got != 3 {
		t.Errorf("holdings = %d, want 3", got)
	}
}

func TestUnknownStockRefused(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.engine.PlaceBuy(ctx, "bob", "ghost", 1); !errors.Is(err, ErrUnknownStock) {
		t.Errorf("PlaceBuy = %v, want ErrUnknownStock", err)
	}
	if _, err := f.engine.PlaceSell(ctx, "alice", "ghost", 5, 1); !errors.Is(err, ErrUnknownStock) {
		t.Errorf("PlaceSell = %v, want ErrUnknownStock", err)
	}
}
