package gotlex

import (
	"context"
	"encoding/json"
	"sort"
	"time"
)

// Store is a namespaced key-value cache with per-namespace TTL.
//
// Keys are normalized with NormalizeKey by every implementation. A miss is
// reported as (nil, false, nil); errors are reserved for an unusable store
// (*StorageError) or misuse (*ConfigurationError, *ValueError).
type Store interface {
	// Get returns the value for (namespace, key) if present and fresh.
	// Expired entries are reported as a miss but left in place until cleanup.
	Get(ctx context.Context, namespace, key string) (json.RawMessage, bool, error)

	// Put overwrites (namespace, key) with value and a fresh timestamp, and persists it.
	Put(ctx context.Context, namespace, key string, value json.RawMessage) error

	// Delete removes one entry and reports whether it existed.
	Delete(ctx context.Context, namespace, key string) (bool, error)

	// CleanupExpired removes every expired entry and returns how many were removed.
	CleanupExpired(ctx context.Context) (int, error)

	// ClearAll removes every entry and returns how many there were.
	ClearAll(ctx context.Context) (int, error)

	// Stats reports per-namespace counts without modifying the store.
	Stats(ctx context.Context) (*Report, error)

	// Close releases resources held by the store.
	Close() error
}

// Dumper is implemented by stores that can enumerate their entries.
type Dumper interface {
	// Dump returns every entry, fresh or expired, ordered by namespace then key.
	Dump(ctx context.Context) ([]Entry, error)
}

// Restorer is implemented by stores that can write entries back with their
// original timestamps, for importing a previous export.
type Restorer interface {
	// Restore writes entries of configured namespaces and returns how many
	// were written. Entries of unknown namespaces are skipped.
	Restore(ctx context.Context, entries []Entry) (int, error)
}

// ValidateValue checks that value is a single JSON document.
func ValidateValue(namespace, key string, value json.RawMessage) error {
	if len(value) == 0 || !json.Valid(value) {
		return &ValueError{Namespace: namespace, Key: key}
	}
	return nil
}

// GetValue fetches (namespace, key) and decodes it into T.
func GetValue[T any](ctx context.Context, s Store, namespace, key string) (T, bool, error) {
	var zero T
	raw, ok, err := s.Get(ctx, namespace, key)
	if err != nil || !ok {
		return zero, ok, err
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, false, &ValueError{Namespace: namespace, Key: key, Cause: err}
	}
	return v, true, nil
}

// PutValue encodes v as JSON and stores it under (namespace, key).
func PutValue[T any](ctx context.Context, s Store, namespace, key string, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return &ValueError{Namespace: namespace, Key: key, Cause: err}
	}
	return s.Put(ctx, namespace, key, raw)
}

// ReportBuilder accumulates entry timestamps into a Report.
// Configured namespaces always appear, even when empty.
type ReportBuilder struct {
	set    NamespaceSet
	now    time.Time
	byName map[string]*NamespaceStats
}

// NewReportBuilder creates a builder judging freshness at now.
func NewReportBuilder(set NamespaceSet, now time.Time) *ReportBuilder {
	b := &ReportBuilder{
		set:    set,
		now:    now,
		byName: make(map[string]*NamespaceStats),
	}
	for _, name := range set.Names() {
		ttl, _ := set.TTL(name)
		b.byName[name] = &NamespaceStats{Name: name, TTL: ttl, Configured: true}
	}
	return b
}

// Add counts one entry of namespace created at createdAt.
// Entries of unconfigured namespaces count as fresh: their TTL is unknown.
func (b *ReportBuilder) Add(namespace string, createdAt time.Time) {
	st, ok := b.byName[namespace]
	if !ok {
		st = &NamespaceStats{Name: namespace}
		b.byName[namespace] = st
	}

	st.Total++
	if st.Configured && IsExpired(createdAt, b.now, st.TTL) {
		st.Expired++
	} else {
		st.Fresh++
	}
}

// Report returns the accumulated report, namespaces sorted by name.
func (b *ReportBuilder) Report() *Report {
	r := &Report{Namespaces: make([]NamespaceStats, 0, len(b.byName))}
	for _, st := range b.byName {
		r.Namespaces = append(r.Namespaces, *st)
	}
	sort.Slice(r.Namespaces, func(i, j int) bool {
		return r.Namespaces[i].Name < r.Namespaces[j].Name
	})
	return r
}
