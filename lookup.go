package gotlex

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"
)

// Source computes the value for a term when the cache misses.
type Source interface {
	// Fetch looks up term and returns its payload as a JSON document.
	Fetch(ctx context.Context, term string) (json.RawMessage, error)

	// Name identifies the source in logs and errors (e.g., "larousse").
	Name() string
}

// Lookup wraps a Source with a Store: it consults the cache first and
// writes fetched values back under the configured namespace.
type Lookup struct {
	namespace   string
	store       Store
	source      Source
	keyPrefix   []string
	concurrency int
	logger      *zap.Logger
}

// LookupOption is a functional option for configuring a Lookup.
type LookupOption func(*Lookup)

// WithLogger sets the logger used for cache hit/miss diagnostics.
func WithLogger(logger *zap.Logger) LookupOption {
	return func(l *Lookup) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithKeyPrefix adds qualifiers in front of every key, e.g. a translation
// direction, so that the same term from different sources does not collide.
func WithKeyPrefix(parts ...string) LookupOption {
	return func(l *Lookup) {
		l.keyPrefix = append([]string(nil), parts...)
	}
}

// WithConcurrency bounds the number of parallel fetches in LookupAll.
func WithConcurrency(n int) LookupOption {
	return func(l *Lookup) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// NewLookup creates a Lookup storing results from source in namespace.
func NewLookup(namespace string, store Store, source Source, opts ...LookupOption) *Lookup {
	l := &Lookup{
		namespace:   namespace,
		store:       store,
		source:      source,
		concurrency: 4,
		logger:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Key returns the cache key used for term.
func (l *Lookup) Key(term string) string {
	if len(l.keyPrefix) == 0 {
		return NormalizeKey(term)
	}
	parts := append(append([]string(nil), l.keyPrefix...), term)
	return CompositeKey(parts...)
}

// Namespace returns the namespace results are stored in.
func (l *Lookup) Namespace() string {
	return l.namespace
}

// Get returns the value for term, from the cache when fresh, otherwise from
// the source. Source failures are never cached.
//
// If the fetch succeeds but the cache write fails, Get returns both the
// result and the *StorageError so the caller can show the value and report
// the broken cache.
func (l *Lookup) Get(ctx context.Context, term string) (*Result, error) {
	if NormalizeKey(term) == "" {
		return nil, &LookupError{Message: "empty lookup term", Term: term}
	}
	key := l.Key(term)

	result := &Result{Term: term, Key: key, Namespace: l.namespace}

	if l.store != nil {
		cached, ok, err := l.store.Get(ctx, l.namespace, key)
		if err != nil {
			return nil, err
		}
		if ok {
			l.logger.Debug("cache hit", zap.String("namespace", l.namespace), zap.String("key", key))
			result.Value = cached
			result.Cached = true
			return result, nil
		}
		l.logger.Debug("cache miss", zap.String("namespace", l.namespace), zap.String("key", key))
	}

	if l.source == nil {
		return nil, &LookupError{Message: "no source configured for", Term: term}
	}

	value, err := l.source.Fetch(ctx, term)
	if err != nil {
		var srcErr *SourceError
		if errors.As(err, &srcErr) {
			return nil, err
		}
		return nil, &LookupError{Message: "fetching", Term: term, Cause: err}
	}
	result.Value = value

	if l.store != nil {
		if err := l.store.Put(ctx, l.namespace, key, value); err != nil {
			l.logger.Warn("caching lookup result failed",
				zap.String("namespace", l.namespace),
				zap.String("key", key),
				zap.Error(err),
			)
			return result, err
		}
	}

	return result, nil
}
