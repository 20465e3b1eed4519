// internal/store/memory.go
package store

import (
	"bytes"
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps every record in process memory. Update holds the store
// lock for the whole function and applies its writes only on success.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
	}
}

func (s *MemoryStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := &memTx{base: s.data, pending: make(map[string][]byte)}
	if err := fn(&kvTx{kv: staged}); err != nil {
		return err
	}
	for k, v := range staged.pending {
		s.data[k] = v
	}
	return nil
}

func (s *MemoryStore) View(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&kvTx{kv: &memTx{base: s.data, readOnly: true}})
}

func (s *MemoryStore) Close() error { return nil }

// memTx overlays pending writes on the committed map.
type memTx struct {
	base     map[string][]byte
	pending  map[string][]byte
	readOnly bool
}

func (m *memTx) get(k []byte) ([]byte, error) {
	if v, ok := m.pending[string(k)]; ok {
		return append([]byte(nil), v...), nil
	}
	if v, ok := m.base[string(k)]; ok {
		return append([]byte(nil), v...), nil
	}
	return nil, nil
}

func (m *memTx) put(k, v []byte) error {
	if m.readOnly {
		return ErrReadOnly
	}
	m.pending[string(k)] = append([]byte(nil), v...)
	return nil
}

func (m *memTx) scan(prefix []byte, fn func(k, v []byte) error) error {
	merged := make(map[string][]byte)
	for k, v := range m.base {
		if bytes.HasPrefix([]byte(k), prefix) {
			merged[k] = v
		}
	}
	for k, v := range m.pending {
		if bytes.HasPrefix([]byte(k), prefix) {
			merged[k] = v
		}
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := fn([]byte(k), merged[k]); err != nil {
			return err
		}
	}
	return nil
}
