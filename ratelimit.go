package shoptl

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRateLimitBackoff is the pause after a rate-limit error that carries no Retry-After.
const DefaultRateLimitBackoff = 30 * time.Second

// Unpaced as RequestsPerMinute disables pacing; rate-limit backoff still applies.
const Unpaced = -1

// RateLimitConfig configures the rate limiter.
type RateLimitConfig struct {
	RequestsPerMinute int // Sustained request rate (default: 60, Unpaced for none)
	BurstSize         int // Maximum burst size (default: 1)
}

// RateLimiter paces provider requests with a token bucket and pauses every
// caller after the service reports a rate-limit error.
type RateLimiter struct {
	limiter *rate.Limiter

	mu      sync.Mutex
	retryAt time.Time
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = 1
	}

	limit := rate.Every(time.Minute / time.Duration(rpm))
	if cfg.RequestsPerMinute < 0 {
		limit = rate.Inf
	}
	return &RateLimiter{limiter: rate.NewLimiter(limit, burst)}
}

// Wait blocks until a request may be sent or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if d := time.Until(retryAt); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return r.limiter.Wait(ctx)
}

// Allow reports whether a request may be sent now, consuming a token if so.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if time.Now().Before(retryAt) {
		return false
	}
	return r.limiter.Allow()
}

// Backoff pauses all callers for d. A shorter pause never cuts a longer one.
func (r *RateLimiter) Backoff(d time.Duration) {
	if d <= 0 {
		d = DefaultRateLimitBackoff
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if until := time.Now().Add(d); until.After(r.retryAt) {
		r.retryAt = until
	}
}

// RateLimitedProvider wraps a Provider with rate limiting.
type RateLimitedProvider struct {
	provider Provider
	limiter  *RateLimiter
}

// NewRateLimitedProvider creates a new rate-limited provider.
func NewRateLimitedProvider(provider Provider, cfg RateLimitConfig) *RateLimitedProvider {
	return &RateLimitedProvider{
		provider: provider,
		limiter:  NewRateLimiter(cfg),
	}
}

// Translate waits for the limiter, then calls the wrapped provider. A
// rate-limit error from the provider pauses later requests.
func (p *RateLimitedProvider) Translate(ctx context.Context, req TranslateRequest) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", &ProviderError{
			Message: "rate limit wait cancelled",
			Cause:   err,
		}
	}

	result, err := p.provider.Translate(ctx, req)

	var providerErr *ProviderError
	if errors.As(err, &providerErr) && providerErr.RateLimited {
		p.limiter.Backoff(providerErr.RetryAfter)
	}
	return result, err
}

// Limiter returns the underlying rate limiter for inspection.
func (p *RateLimitedProvider) Limiter() *RateLimiter {
	return p.limiter
}

// NewPacedRetryProvider retries calls to p, sending every attempt through
// one shared rate limiter. A rate-limit error seen by any attempt pauses all
// callers before the retry is made.
func NewPacedRetryProvider(p Provider, retry RetryConfig, limit RateLimitConfig) *RetryableProvider {
	return NewRetryableProvider(NewRateLimitedProvider(p, limit), retry)
}
