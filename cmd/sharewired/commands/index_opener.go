package commands

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/sharewire/sharewire/pkg/config"
	"github.com/sharewire/sharewire/pkg/index"
)

// indexRegistry opens and caches one index.Store per share, the same
// open-on-first-use discipline pkg/handlers.IndexOpener documents.
// Shares that never CreateIndex never pay for a badger database.
type indexRegistry struct {
	baseDir string

	mu     sync.Mutex
	stores map[string]*index.Store
}

func newIndexRegistry(cfg config.IndexConfig) *indexRegistry {
	return &indexRegistry{baseDir: cfg.BaseDir, stores: make(map[string]*index.Store)}
}

func (r *indexRegistry) open(shareName string) (*index.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.stores[shareName]; ok {
		return s, nil
	}
	s, err := index.Open(filepath.Join(r.baseDir, shareName))
	if err != nil {
		return nil, fmt.Errorf("open index for share %s: %w", shareName, err)
	}
	r.stores[shareName] = s
	return s, nil
}

func (r *indexRegistry) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.stores {
		_ = s.Close()
	}
}
