package cache

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ZaguanLabs/gotlex"
)

// MemoryStore is a thread-safe in-process gotlex.Store. Nothing is
// persisted; it backs one-off runs (cache.backend: memory) and tests.
type MemoryStore struct {
	namespaces gotlex.NamespaceSet
	data       namespaceMap
	mu         sync.RWMutex
	opts       options
}

// NewMemoryStore creates an empty in-memory store with the given namespaces.
func NewMemoryStore(namespaces []gotlex.Namespace, opts ...Option) (*MemoryStore, error) {
	set, err := gotlex.NewNamespaceSet(namespaces...)
	if err != nil {
		return nil, err
	}
	return &MemoryStore{
		namespaces: set,
		data:       namespaceMap{},
		opts:       buildOptions(opts),
	}, nil
}

// Get retrieves a value from the store.
// Expired entries are reported as a miss and kept until CleanupExpired.
func (s *MemoryStore) Get(ctx context.Context, namespace, key string) (json.RawMessage, bool, error) {
	ttl, err := s.namespaces.TTL(namespace)
	if err != nil {
		return nil, false, err
	}

	s.mu.RLock()
	e, ok := s.data.get(namespace, gotlex.NormalizeKey(key))
	s.mu.RUnlock()

	if !ok || gotlex.IsExpired(e.createdAt(), s.opts.now(), ttl) {
		return nil, false, nil
	}
	return append(json.RawMessage(nil), e.Value...), true, nil
}

// Put stores a value in the store.
func (s *MemoryStore) Put(ctx context.Context, namespace, key string, value json.RawMessage) error {
	if _, err := s.namespaces.TTL(namespace); err != nil {
		return err
	}
	key = gotlex.NormalizeKey(key)
	if err := gotlex.ValidateValue(namespace, key, value); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.put(namespace, key, newStoredEntry(value, s.opts.now()))
	return nil
}

// Delete removes an entry from the store.
func (s *MemoryStore) Delete(ctx context.Context, namespace, key string) (bool, error) {
	if _, err := s.namespaces.TTL(namespace); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.delete(namespace, gotlex.NormalizeKey(key)), nil
}

// CleanupExpired removes expired entries.
func (s *MemoryStore) CleanupExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.removeExpired(s.namespaces, s.opts.now()), nil
}

// ClearAll removes all entries from the store.
func (s *MemoryStore) ClearAll(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.data.len()
	s.data = namespaceMap{}
	return n, nil
}

// Stats reports per-namespace counts.
func (s *MemoryStore) Stats(ctx context.Context) (*gotlex.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.report(s.namespaces, s.opts.now()), nil
}

// Len returns the number of entries in the store (including expired ones).
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.len()
}

// Dump returns every entry.
func (s *MemoryStore) Dump(ctx context.Context) ([]gotlex.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.dump(), nil
}

// Restore writes entries back with their original timestamps.
func (s *MemoryStore) Restore(ctx context.Context, entries []gotlex.Entry) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.restore(s.namespaces, entries), nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

// Verify MemoryStore implements the store interfaces
var (
	_ gotlex.Store    = (*MemoryStore)(nil)
	_ gotlex.Dumper   = (*MemoryStore)(nil)
	_ gotlex.Restorer = (*MemoryStore)(nil)
)
