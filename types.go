package gotlex

import (
	"encoding/json"
	"time"
)

// Well-known namespaces, one per lookup tool.
const (
	NamespaceTranslation = "translation"
	NamespaceDictionary  = "dictionary"
	NamespaceConjugation = "conjugation"
)

// Namespace is a logical bucket of entries for one tool.
// Every entry in a namespace shares its TTL.
type Namespace struct {
	Name string        // Identifier (e.g., "translation")
	TTL  time.Duration // Maximum entry age; must be positive
}

// Entry is one cached lookup result.
type Entry struct {
	Namespace string          // Owning namespace (back-reference)
	Key       string          // Normalized lookup key
	Value     json.RawMessage // Opaque JSON payload
	CreatedAt time.Time       // Time of the last write
}

// Expired reports whether the entry is expired at now under ttl.
func (e Entry) Expired(now time.Time, ttl time.Duration) bool {
	return IsExpired(e.CreatedAt, now, ttl)
}

// IsExpired reports whether an entry created at createdAt has reached ttl at now.
// An entry is fresh while now - createdAt < ttl.
func IsExpired(createdAt, now time.Time, ttl time.Duration) bool {
	return now.Sub(createdAt) >= ttl
}

// NamespaceStats summarizes one namespace.
type NamespaceStats struct {
	Name       string
	TTL        time.Duration // Zero for namespaces not configured in this process
	Total      int
	Fresh      int
	Expired    int
	Configured bool // False when found in storage but unknown to this process
}

// Report is the result of a Stats call.
type Report struct {
	Namespaces []NamespaceStats // Sorted by name
	SizeBytes  int64            // Size of the backing medium, when SizeKnown
	SizeKnown  bool
}

// Totals sums counts across all namespaces.
func (r *Report) Totals() NamespaceStats {
	total := NamespaceStats{Name: "total"}
	for _, ns := range r.Namespaces {
		total.Total += ns.Total
		total.Fresh += ns.Fresh
		total.Expired += ns.Expired
	}
	return total
}

// Namespace returns the stats for name, if present.
func (r *Report) Namespace(name string) (NamespaceStats, bool) {
	for _, ns := range r.Namespaces {
		if ns.Name == name {
			return ns, true
		}
	}
	return NamespaceStats{}, false
}

// Result is the outcome of a single lookup.
type Result struct {
	Term      string          // Term as given by the caller
	Key       string          // Normalized cache key
	Namespace string          // Namespace the result lives in
	Value     json.RawMessage // Payload from cache or source
	Cached    bool            // True when served from the cache
}
