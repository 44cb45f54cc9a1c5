package wallet

import (
	"sync"
	"testing"
)

func TestAddCreatesWallet(t *testing.T) {
	t.Parallel()
	l := NewMemoryLedger()

	if err := l.Add("u1", 500); err != nil {
		t.Fatalf("Add: %v", err)
	}
	bal, err := l.Balance("u1")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if bal != 500 {
		t.Errorf("Balance = %d, want 500", bal)
	}
}

func TestBalanceMissingUserIsZero(t *testing.T) {
	t.Parallel()
	l := NewMemoryLedger()

	bal, err := l.Balance("nobody")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if bal != 0 {
		t.Errorf("Balance = %d, want 0", bal)
	}
}

func TestEmptyUserRejected(t *testing.T) {
	t.Parallel()
	l := NewMemoryLedger()

	if err := l.Add("", 10); err == nil {
		t.Error("Add with empty user id should fail")
	}
	if _, err := l.Balance(""); err == nil {
		t.Error("Balance with empty user id should fail")
	}
}

func TestConcurrentAddsConserveTotal(t *testing.T) {
	t.Parallel()
	l := NewMemoryLedger()

	// Pairs of opposite deltas between two users must leave the total
	// unchanged regardless of interleaving.
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Add("buyer", -7)
			_ = l.Add("seller", 7)
		}()
	}
	wg.Wait()

	if total := l.Total(); total != 0 {
		t.Errorf("Total = %d, want 0", total)
	}
}
