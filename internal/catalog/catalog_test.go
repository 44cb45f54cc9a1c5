package catalog

import (
	"errors"
	"testing"
)

func TestCreateAndLookup(t *testing.T) {
	t.Parallel()
	c := NewMemoryCatalog()

	id, err := c.Create("Alpha")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id == "" {
		t.Fatal("Create returned empty id")
	}
	if got := c.NameFor(id); got != "Alpha" {
		t.Errorf("NameFor = %q, want %q", got, "Alpha")
	}
	if !c.Exists(id) {
		t.Error("Exists = false for created stock")
	}
}

func TestDuplicateNameRefused(t *testing.T) {
	t.Parallel()
	c := NewMemoryCatalog()

	if _, err := c.Create("Alpha"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := c.Create("Alpha")
	if !errors.Is(err, ErrDuplicateName) {
		t.Errorf("Create duplicate = %v, want ErrDuplicateName", err)
	}
}

func TestUnknownStock(t *testing.T) {
	t.Parallel()
	c := NewMemoryCatalog()

	if got := c.NameFor("missing"); got != UnknownName {
		t.Errorf("NameFor = %q, want %q", got, UnknownName)
	}
	if c.Exists("missing") {
		t.Error("Exists = true for unknown stock")
	}
}
