// Package catalog defines the stock catalog port: the registry of tradable
// instruments.
//
// Stocks are created once with a unique human-readable name and are never
// deleted. The engine consults the catalog when it needs a display name for
// a portfolio entry it is about to create.
package catalog

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// UnknownName is returned for lookups of stock ids the catalog has never
// seen, so callers always have something printable.
const UnknownName = "Unknown"

// Catalog is the instrument registry the engine and façade require.
type Catalog interface {
	// Create registers a new stock under name and returns its generated
	// stock id. Duplicate names are refused.
	Create(name string) (string, error)

	// NameFor returns the display name for stockID, or UnknownName.
	NameFor(stockID string) string

	// Exists reports whether stockID is a registered instrument.
	Exists(stockID string) bool
}

// ErrDuplicateName is returned by Create when the stock name is taken.
var ErrDuplicateName = fmt.Errorf("catalog: stock name already exists")

// MemoryCatalog is the in-memory reference implementation of Catalog.
type MemoryCatalog struct {
	mu      sync.RWMutex
	names   map[string]string // stockID → name
	byName  map[string]string // name → stockID
}

// NewMemoryCatalog creates an empty in-memory catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		names:  make(map[string]string),
		byName: make(map[string]string),
	}
}

// Create implements Catalog.
func (c *MemoryCatalog) Create(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("catalog: empty stock name")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, taken := c.byName[name]; taken {
		return "", ErrDuplicateName
	}
	id := uuid.NewString()
	c.names[id] = name
	c.byName[name] = id
	return id, nil
}

// NameFor implements Catalog.
func (c *MemoryCatalog) NameFor(stockID string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if name, ok := c.names[stockID]; ok {
		return name
	}
	return UnknownName
}

// Exists implements Catalog.
func (c *MemoryCatalog) Exists(stockID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.names[stockID]
	return ok
}
