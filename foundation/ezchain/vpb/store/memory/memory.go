// Package memory implements the ability to read and write VPB pairs in
// memory using a mutex-guarded map.
package memory

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ezchain/ezchain/foundation/ezchain/vpb"
	"github.com/ezchain/ezchain/foundation/ezchain/vpb/store"
)

// Memory represents the storage implementation for reading and storing VPB
// pairs in memory. This implements the store.Storage interface.
type Memory struct {
	mu    sync.RWMutex
	pairs map[string]vpb.VPBPair
}

// New constructs a Memory value for use.
func New() (*Memory, error) {
	return &Memory{
		pairs: make(map[string]vpb.VPBPair),
	}, nil
}

// Close in this implementation has nothing to do since everything
// is in memory.
func (m *Memory) Close() error {
	return nil
}

// Write upserts the specified pair by its vpb id.
func (m *Memory) Write(pair vpb.VPBPair) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pairs[pair.VPBID] = pair
	return nil
}

// WriteBatch upserts every specified pair under a single lock so a reader
// never observes a partially applied batch.
func (m *Memory) WriteBatch(pairs []vpb.VPBPair) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, pair := range pairs {
		m.pairs[pair.VPBID] = pair
	}
	return nil
}

// GetVPB returns the pair stored under the specified id.
func (m *Memory) GetVPB(vpbID string) (vpb.VPBPair, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pair, exists := m.pairs[vpbID]
	if !exists {
		return vpb.VPBPair{}, fmt.Errorf("vpb %s: %w", vpbID, store.ErrNotFound)
	}

	return pair, nil
}

// ForEach returns an iterator to walk through all the stored pairs in a
// deterministic order.
func (m *Memory) ForEach() store.Iterator {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.pairs))
	for id := range m.pairs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return &memoryIterator{storage: m, ids: ids}
}

// Reset clears out all stored pairs.
func (m *Memory) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pairs = make(map[string]vpb.VPBPair)
	return nil
}

// =============================================================================

// memoryIterator represents the iteration implementation for walking through
// the stored pairs. This implements the store.Iterator interface.
type memoryIterator struct {
	storage *Memory  // Access to the storage API.
	ids     []string // Snapshot of ids being iterated over.
	current int      // Position of the id being iterated over.
	eol     bool     // Represents the iterator is at the end of the list.
}

// Next retrieves the next pair from memory.
func (mi *memoryIterator) Next() (vpb.VPBPair, error) {
	if mi.eol {
		return vpb.VPBPair{}, fmt.Errorf("end of list: %w", store.ErrNotFound)
	}

	if mi.current >= len(mi.ids) {
		mi.eol = true
		return vpb.VPBPair{}, fmt.Errorf("end of list: %w", store.ErrNotFound)
	}

	pair, err := mi.storage.GetVPB(mi.ids[mi.current])
	if errors.Is(err, store.ErrNotFound) {
		mi.eol = true
	}
	mi.current++

	return pair, err
}

// Done returns the end of list value.
func (mi *memoryIterator) Done() bool {
	return mi.eol
}
