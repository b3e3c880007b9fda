package cache

import (
	"time"

	"go.uber.org/zap"
)

// DefaultLockRetry is how often a blocked store polls for the file lock.
const DefaultLockRetry = 25 * time.Millisecond

// options holds settings shared by all store implementations.
type options struct {
	now       func() time.Time
	logger    *zap.Logger
	lockRetry time.Duration
	keyPrefix string
}

// Option configures a store.
type Option func(*options)

// WithClock overrides the time source used to stamp and age entries.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger used for recovery warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithLockRetry sets the polling interval for the inter-process file lock.
func WithLockRetry(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.lockRetry = d
		}
	}
}

// WithKeyPrefix sets the prefix of every Redis key (default: "gotlex:").
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.keyPrefix = prefix
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		now:       time.Now,
		logger:    zap.NewNop(),
		lockRetry: DefaultLockRetry,
		keyPrefix: defaultKeyPrefix,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
