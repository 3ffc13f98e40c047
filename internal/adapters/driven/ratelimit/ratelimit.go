// Package ratelimit throttles requests to cloud AI providers.
package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// Config holds rate limiting configuration for a provider.
type Config struct {
	// RequestsPerSecond is the sustained rate limit.
	RequestsPerSecond float64
	// BurstSize is the maximum burst size.
	BurstSize int
}

// DefaultLimits are conservative per-process defaults for each cloud provider.
var DefaultLimits = map[domain.AIProvider]Config{
	domain.AIProviderOpenAI:    {RequestsPerSecond: 5.0, BurstSize: 10},
	domain.AIProviderAnthropic: {RequestsPerSecond: 2.0, BurstSize: 5},
}

// defaultBackoff applies when a 429 carries no usable Retry-After.
const defaultBackoff = 30 * time.Second

// Limiter is a token bucket with a backoff window set by 429 responses.
// A nil *Limiter never blocks.
type Limiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
}

// New creates a limiter for the provider, using DefaultLimits.
func New(provider domain.AIProvider) *Limiter {
	cfg, ok := DefaultLimits[provider]
	if !ok {
		cfg = Config{RequestsPerSecond: 5.0, BurstSize: 10}
	}
	return NewWithConfig(cfg)
}

// NewWithConfig creates a limiter with custom configuration.
func NewWithConfig(cfg Config) *Limiter {
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
	}
}

// Wait blocks until a request may be sent, honouring any backoff window.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	retryAt := l.retryAt
	l.mu.Unlock()

	if wait := time.Until(retryAt); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return l.limiter.Wait(ctx)
}

// Allow reports whether a request may be sent immediately.
func (l *Limiter) Allow() bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	retryAt := l.retryAt
	l.mu.Unlock()

	if time.Now().Before(retryAt) {
		return false
	}
	return l.limiter.Allow()
}

// Backoff blocks new requests for d.
func (l *Limiter) Backoff(d time.Duration) {
	if l == nil {
		return
	}
	if d <= 0 {
		d = defaultBackoff
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if until := time.Now().Add(d); until.After(l.retryAt) {
		l.retryAt = until
	}
}

// Observe inspects a response and starts a backoff window on 429.
// It returns true when the response was rate limited.
func (l *Limiter) Observe(resp *http.Response) bool {
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		return false
	}
	l.Backoff(RetryAfter(resp.Header))
	return true
}

// RetryAfter parses a Retry-After header given in seconds or as an HTTP date.
// It returns 0 when the header is absent or unparsable.
func RetryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		return time.Until(t)
	}
	return 0
}
