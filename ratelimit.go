package gotlex

import (
	"context"
	"encoding/json"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures the rate limiter.
type RateLimitConfig struct {
	RequestsPerMinute int // Maximum requests per minute
	BurstSize         int // Maximum burst size (default: same as RPM)
}

// RateLimiter controls the rate of source requests using a token bucket.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60 // Default: 60 RPM
	}

	burst := cfg.BurstSize
	if burst <= 0 {
		burst = rpm // Default burst = RPM
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst),
	}
}

// Wait blocks until a token is available or context is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// TryAcquire attempts to acquire a token without blocking.
func (r *RateLimiter) TryAcquire() bool {
	return r.limiter.Allow()
}

// Available returns the current number of available tokens.
func (r *RateLimiter) Available() float64 {
	return r.limiter.Tokens()
}

// RateLimitedSource wraps a Source so that fetches respect a request rate.
// Cache hits never reach it, so only real requests to the site are counted.
type RateLimitedSource struct {
	source  Source
	limiter *RateLimiter
}

// NewRateLimitedSource creates a new rate-limited source.
func NewRateLimitedSource(source Source, cfg RateLimitConfig) *RateLimitedSource {
	return &RateLimitedSource{
		source:  source,
		limiter: NewRateLimiter(cfg),
	}
}

// Fetch implements Source with rate limiting.
func (s *RateLimitedSource) Fetch(ctx context.Context, term string) (json.RawMessage, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, &SourceError{
			Source:  s.source.Name(),
			Message: "rate limit wait cancelled",
			Cause:   err,
		}
	}

	return s.source.Fetch(ctx, term)
}

// Name returns the name of the wrapped source.
func (s *RateLimitedSource) Name() string {
	return s.source.Name()
}

// Limiter returns the underlying rate limiter for inspection.
func (s *RateLimitedSource) Limiter() *RateLimiter {
	return s.limiter
}

// Verify RateLimitedSource implements Source
var _ Source = (*RateLimitedSource)(nil)
