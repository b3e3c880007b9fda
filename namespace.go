package gotlex

import (
	"sort"
	"strings"
	"time"
)

// NamespaceSet holds the namespaces a store was configured with.
// It is immutable after construction.
type NamespaceSet struct {
	ttls map[string]time.Duration
}

// NewNamespaceSet validates and indexes namespaces. Names must be non-empty
// and unique, TTLs strictly positive.
func NewNamespaceSet(namespaces ...Namespace) (NamespaceSet, error) {
	ttls := make(map[string]time.Duration, len(namespaces))
	for _, ns := range namespaces {
		name := strings.TrimSpace(ns.Name)
		if name == "" {
			return NamespaceSet{}, &ConfigurationError{Namespace: ns.Name, Message: "empty namespace name"}
		}
		if ns.TTL <= 0 {
			return NamespaceSet{}, &ConfigurationError{Namespace: name, Message: "TTL must be positive, got " + ns.TTL.String()}
		}
		if _, dup := ttls[name]; dup {
			return NamespaceSet{}, &ConfigurationError{Namespace: name, Message: "configured twice"}
		}
		ttls[name] = ns.TTL
	}
	return NamespaceSet{ttls: ttls}, nil
}

// TTL returns the configured TTL for name, or a ConfigurationError.
func (s NamespaceSet) TTL(name string) (time.Duration, error) {
	ttl, ok := s.ttls[name]
	if !ok {
		return 0, &ConfigurationError{Namespace: name, Message: "no TTL configured"}
	}
	return ttl, nil
}

// Has reports whether name is configured.
func (s NamespaceSet) Has(name string) bool {
	_, ok := s.ttls[name]
	return ok
}

// Names returns the configured namespace names, sorted.
func (s NamespaceSet) Names() []string {
	names := make([]string, 0, len(s.ttls))
	for name := range s.ttls {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of configured namespaces.
func (s NamespaceSet) Len() int {
	return len(s.ttls)
}
