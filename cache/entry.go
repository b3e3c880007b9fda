// Package cache provides gotlex.Store implementations: a locked JSON file
// shared between processes, an in-memory store and a Redis store.
package cache

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/ZaguanLabs/gotlex"
)

// storedEntry is the persisted form of an entry.
type storedEntry struct {
	Value     json.RawMessage `json:"value"`
	CreatedAt float64         `json:"created_at"` // Unix epoch seconds
}

// namespaceMap is namespace -> normalized key -> entry.
type namespaceMap map[string]map[string]storedEntry

func toEpoch(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

func fromEpoch(secs float64) time.Time {
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(math.Round(frac*1e9)))
}

func newStoredEntry(value json.RawMessage, createdAt time.Time) storedEntry {
	return storedEntry{
		Value:     append(json.RawMessage(nil), value...),
		CreatedAt: toEpoch(createdAt),
	}
}

func (e storedEntry) createdAt() time.Time {
	return fromEpoch(e.CreatedAt)
}

// valid reports whether the entry carries a payload.
func (e storedEntry) valid() bool {
	return len(e.Value) > 0
}

// marshalJSON encodes v without HTML escaping so cached text stays readable.
func marshalJSON(v interface{}, indent bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m namespaceMap) get(namespace, key string) (storedEntry, bool) {
	e, ok := m[namespace][key]
	return e, ok
}

func (m namespaceMap) put(namespace, key string, e storedEntry) {
	if m[namespace] == nil {
		m[namespace] = make(map[string]storedEntry)
	}
	m[namespace][key] = e
}

func (m namespaceMap) delete(namespace, key string) bool {
	if _, ok := m[namespace][key]; !ok {
		return false
	}
	delete(m[namespace], key)
	if len(m[namespace]) == 0 {
		delete(m, namespace)
	}
	return true
}

func (m namespaceMap) len() int {
	n := 0
	for _, entries := range m {
		n += len(entries)
	}
	return n
}

// removeExpired drops expired entries of configured namespaces and returns
// the number removed. Unconfigured namespaces are left alone.
func (m namespaceMap) removeExpired(set gotlex.NamespaceSet, now time.Time) int {
	removed := 0
	for _, name := range set.Names() {
		entries, ok := m[name]
		if !ok {
			continue
		}
		ttl, _ := set.TTL(name)
		for key, e := range entries {
			if gotlex.IsExpired(e.createdAt(), now, ttl) {
				delete(entries, key)
				removed++
			}
		}
		if len(entries) == 0 {
			delete(m, name)
		}
	}
	return removed
}

func (m namespaceMap) report(set gotlex.NamespaceSet, now time.Time) *gotlex.Report {
	b := gotlex.NewReportBuilder(set, now)
	for name, entries := range m {
		for _, e := range entries {
			b.Add(name, e.createdAt())
		}
	}
	return b.Report()
}

// dump returns all entries ordered by namespace then key.
func (m namespaceMap) dump() []gotlex.Entry {
	entries := make([]gotlex.Entry, 0, m.len())
	for name, byKey := range m {
		for key, e := range byKey {
			entries = append(entries, gotlex.Entry{
				Namespace: name,
				Key:       key,
				Value:     append(json.RawMessage(nil), e.Value...),
				CreatedAt: e.createdAt(),
			})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Namespace != entries[j].Namespace {
			return entries[i].Namespace < entries[j].Namespace
		}
		return entries[i].Key < entries[j].Key
	})
	return entries
}

// restore writes entries of configured namespaces, keeping their timestamps.
func (m namespaceMap) restore(set gotlex.NamespaceSet, entries []gotlex.Entry) int {
	written := 0
	for _, e := range entries {
		if !set.Has(e.Namespace) {
			continue
		}
		key := gotlex.NormalizeKey(e.Key)
		if key == "" || gotlex.ValidateValue(e.Namespace, key, e.Value) != nil {
			continue
		}
		m.put(e.Namespace, key, newStoredEntry(e.Value, e.CreatedAt))
		written++
	}
	return written
}
