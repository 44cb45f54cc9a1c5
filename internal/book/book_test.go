package book

import (
	"testing"
	"time"
)

func sell(user, stock, name string, price, qty int64, ts time.Time, txID string) *SellEntry {
	return &SellEntry{
		UserID:     user,
		StockID:    stock,
		StockName:  name,
		Price:      price,
		Remaining:  qty,
		AcceptedAt: ts,
		StockTxID:  txID,
	}
}

func TestSellSidePriceTimeOrdering(t *testing.T) {
	t.Parallel()
	b := New()
	now := time.Now()

	ins, unlock := b.Lock("s1")
	defer unlock()

	// Inserted out of order on purpose.
	ins.AddSell(b, sell("a", "s1", "Alpha", 50, 10, now.Add(time.Second), "tx-late-50"))
	ins.AddSell(b, sell("b", "s1", "Alpha", 40, 5, now, "tx-40"))
	ins.AddSell(b, sell("c", "s1", "Alpha", 50, 8, now, "tx-early-50"))

	head := ins.BestSell()
	if head == nil || head.StockTxID != "tx-40" {
		t.Fatalf("BestSell = %+v, want tx-40", head)
	}

	// Drain the cheapest, the earlier 50 must surface before the later one.
	ins.ConsumeSell("tx-40", 5)
	if head = ins.BestSell(); head == nil || head.StockTxID != "tx-early-50" {
		t.Fatalf("BestSell after drain = %+v, want tx-early-50", head)
	}
}

func TestEqualPriceAndTimestampFIFO(t *testing.T) {
	t.Parallel()
	b := New()
	ts := time.Now()

	ins, unlock := b.Lock("s1")
	defer unlock()

	ins.AddSell(b, sell("a", "s1", "Alpha", 30, 1, ts, "first"))
	ins.AddSell(b, sell("b", "s1", "Alpha", 30, 1, ts, "second"))

	if head := ins.BestSell(); head.StockTxID != "first" {
		t.Errorf("BestSell = %s, want first (insertion order tie-break)", head.StockTxID)
	}
}

func TestPeekSellSkipsOwnOrders(t *testing.T) {
	t.Parallel()
	b := New()
	now := time.Now()

	ins, unlock := b.Lock("s1")
	defer unlock()

	ins.AddSell(b, sell("alice", "s1", "Alpha", 20, 5, now, "tx1"))

	if got := ins.PeekSell("alice"); got != nil {
		t.Errorf("PeekSell(alice) = %+v, want nil (own order)", got)
	}
	if got := ins.PeekSell("bob"); got == nil || got.StockTxID != "tx1" {
		t.Errorf("PeekSell(bob) = %+v, want tx1", got)
	}

	// A cheaper own order must not shadow someone else's offer.
	ins.AddSell(b, sell("bob", "s1", "Alpha", 25, 5, now, "tx2"))
	if got := ins.PeekSell("bob"); got == nil || got.StockTxID != "tx1" {
		t.Errorf("PeekSell(bob) with own cheaper order = %+v, want tx1", got)
	}
}

func TestConsumeSellPartialAndFull(t *testing.T) {
	t.Parallel()
	b := New()

	ins, unlock := b.Lock("s1")
	defer unlock()

	ins.AddSell(b, sell("a", "s1", "Alpha", 10, 6, time.Now(), "tx1"))

	ins.ConsumeSell("tx1", 4)
	if head := ins.BestSell(); head == nil || head.Remaining != 2 {
		t.Fatalf("after partial consume BestSell = %+v, want remaining 2", head)
	}

	ins.ConsumeSell("tx1", 2)
	if head := ins.BestSell(); head != nil {
		t.Fatalf("after full consume BestSell = %+v, want nil", head)
	}
	if ins.HasSells() {
		t.Error("HasSells = true after full consume")
	}
}

func TestQueuedBuyLifecycle(t *testing.T) {
	t.Parallel()
	b := New()

	ins, unlock := b.Lock("s1")
	defer unlock()

	ins.AddQueuedBuy(&QueuedBuy{UserID: "u1", StockID: "s1", Remaining: 8, ParentStockTxID: "p1"})
	ins.AddQueuedBuy(&QueuedBuy{UserID: "u2", StockID: "s1", Remaining: 3, ParentStockTxID: "p2"})

	buys := ins.QueuedBuys()
	if len(buys) != 2 || buys[0].ParentStockTxID != "p1" {
		t.Fatalf("QueuedBuys = %+v, want [p1 p2]", buys)
	}

	ins.ConsumeQueuedBuy("p1", 5)
	if buys = ins.QueuedBuys(); buys[0].Remaining != 3 {
		t.Errorf("head remaining = %d, want 3", buys[0].Remaining)
	}

	ins.ConsumeQueuedBuy("p1", 3)
	if buys = ins.QueuedBuys(); len(buys) != 1 || buys[0].ParentStockTxID != "p2" {
		t.Errorf("QueuedBuys after drain = %+v, want [p2]", buys)
	}
}

func TestRemoveByTx(t *testing.T) {
	t.Parallel()
	b := New()

	ins, unlock := b.Lock("s1")
	defer unlock()

	ins.AddSell(b, sell("a", "s1", "Alpha", 10, 6, time.Now(), "tx1"))
	ins.AddQueuedBuy(&QueuedBuy{UserID: "u1", StockID: "s1", Remaining: 4, ParentStockTxID: "p1"})

	// Wrong owner finds nothing.
	if _, ok := ins.RemoveByTx("mallory", "tx1"); ok {
		t.Error("RemoveByTx with wrong owner should fail")
	}

	rm, ok := ins.RemoveByTx("a", "tx1")
	if !ok || rm.Side != SideSell || rm.Quantity != 6 || rm.Price != 10 {
		t.Fatalf("RemoveByTx sell = (%+v, %v), want sell qty 6 price 10", rm, ok)
	}
	if ins.BestSell() != nil {
		t.Error("best sell not cleared after removal")
	}

	rm, ok = ins.RemoveByTx("u1", "p1")
	if !ok || rm.Side != SideBuy || rm.Quantity != 4 {
		t.Fatalf("RemoveByTx queued buy = (%+v, %v), want buy qty 4", rm, ok)
	}

	// Second removal of the same tx finds nothing.
	if _, ok = ins.RemoveByTx("u1", "p1"); ok {
		t.Error("RemoveByTx twice should fail the second time")
	}
}

func TestBestSellsSortedByName(t *testing.T) {
	t.Parallel()
	b := New()
	now := time.Now()

	ins, unlock := b.Lock("s-beta")
	ins.AddSell(b, sell("a", "s-beta", "Beta", 70, 1, now, "tx1"))
	unlock()

	ins, unlock = b.Lock("s-alpha")
	ins.AddSell(b, sell("a", "s-alpha", "Alpha", 90, 1, now, "tx2"))
	ins.AddSell(b, sell("b", "s-alpha", "Alpha", 85, 1, now, "tx3"))
	unlock()

	quotes := b.BestSells()
	if len(quotes) != 2 {
		t.Fatalf("BestSells len = %d, want 2", len(quotes))
	}
	if quotes[0].StockName != "Alpha" || quotes[0].CurrentPrice != 85 {
		t.Errorf("quotes[0] = %+v, want Alpha@85", quotes[0])
	}
	if quotes[1].StockName != "Beta" || quotes[1].CurrentPrice != 70 {
		t.Errorf("quotes[1] = %+v, want Beta@70", quotes[1])
	}
}

func TestStocksWithQueuedBuys(t *testing.T) {
	t.Parallel()
	b := New()

	ins, unlock := b.Lock("s2")
	ins.AddQueuedBuy(&QueuedBuy{UserID: "u1", StockID: "s2", Remaining: 1, ParentStockTxID: "p1"})
	unlock()

	ins, unlock = b.Lock("s1")
	ins.AddSell(b, sell("a", "s1", "Alpha", 10, 1, time.Now(), "tx1"))
	unlock()

	got := b.StocksWithQueuedBuys()
	if len(got) != 1 || got[0] != "s2" {
		t.Errorf("StocksWithQueuedBuys = %v, want [s2]", got)
	}
}
