package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"daytrader/pkg/types"
)

// Snapshot is the JSON shape persisted by FileStore: every stock
// transaction in insertion order plus each user's wallet log.
type Snapshot struct {
	StockTxs  []types.StockTransaction             `json:"stock_txs"`
	WalletTxs map[string][]types.WalletTransaction `json:"wallet_txs"`
}

// FileStore persists journal snapshots to a JSON file in a designated
// directory. Writes use atomic file replacement (write to .tmp, then
// rename) so a crash mid-save never leaves a partial file. The server
// saves on shutdown and restores on startup; the in-memory order book is
// deliberately not persisted.
type FileStore struct {
	dir string
	mu  sync.Mutex // serializes all file operations
}

const snapshotFile = "journal.json"

// OpenFileStore creates a file store backed by the given directory.
func OpenFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Save atomically persists the snapshot.
func (fs *FileStore) Save(snap Snapshot) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal journal: %w", err)
	}

	path := filepath.Join(fs.dir, snapshotFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	return os.Rename(tmp, path)
}

// Load restores the most recent snapshot from disk.
// Returns nil, nil if no snapshot exists (fresh deployment).
func (fs *FileStore) Load() (*Snapshot, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	path := filepath.Join(fs.dir, snapshotFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read journal: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal journal: %w", err)
	}
	return &snap, nil
}
