package portfolio

import "testing"

func TestApplyDeltaCreatesEntry(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()

	ok, err := s.ApplyDelta("u1", "s1", 10, "Alpha")
	if err != nil || !ok {
		t.Fatalf("ApplyDelta = (%v, %v), want (true, nil)", ok, err)
	}

	qty, err := s.Qty("u1", "s1")
	if err != nil {
		t.Fatalf("Qty: %v", err)
	}
	if qty != 10 {
		t.Errorf("Qty = %d, want 10", qty)
	}
}

func TestApplyDeltaRefusesOverdraw(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()

	_, _ = s.ApplyDelta("u1", "s1", 5, "Alpha")

	ok, err := s.ApplyDelta("u1", "s1", -6, "")
	if err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}
	if ok {
		t.Error("ApplyDelta below zero should report ok=false")
	}

	// Original holding untouched after refusal.
	if qty, _ := s.Qty("u1", "s1"); qty != 5 {
		t.Errorf("Qty = %d, want 5", qty)
	}
}

func TestApplyDeltaNegativeOnMissingEntry(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()

	ok, err := s.ApplyDelta("u1", "ghost", -1, "")
	if err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}
	if ok {
		t.Error("negative delta on absent entry should report ok=false")
	}
}

func TestZeroedEntryPruned(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()

	_, _ = s.ApplyDelta("u1", "s1", 4, "Alpha")
	ok, err := s.ApplyDelta("u1", "s1", -4, "")
	if err != nil || !ok {
		t.Fatalf("ApplyDelta = (%v, %v), want (true, nil)", ok, err)
	}

	entries, err := s.Entries("u1")
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Entries = %v, want empty after prune", entries)
	}
}

func TestEntriesSortedByNameDescending(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()

	_, _ = s.ApplyDelta("u1", "s1", 1, "Alpha")
	_, _ = s.ApplyDelta("u1", "s2", 2, "Gamma")
	_, _ = s.ApplyDelta("u1", "s3", 3, "Beta")

	entries, err := s.Entries("u1")
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}

	want := []string{"Gamma", "Beta", "Alpha"}
	if len(entries) != len(want) {
		t.Fatalf("Entries len = %d, want %d", len(entries), len(want))
	}
	for i, name := range want {
		if entries[i].StockName != name {
			t.Errorf("Entries[%d].StockName = %q, want %q", i, entries[i].StockName, name)
		}
	}
}
