package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"coinm/pkg/errors"
)

// Limiter keys used by the coin-M transport.
const (
	KeyWeight = "weight" // request weight per minute, shared by every endpoint
	KeyOrders = "orders" // order placements per minute
)

// Limiter provides rate limiting functionality for exchange API calls
type Limiter struct {
	limiter *rate.Limiter
	name    string
}

// NewLimiter creates a new rate limiter.
// perMinute is the number of tokens refilled per minute.
func NewLimiter(name string, perMinute int) *Limiter {
	rps := float64(perMinute) / 60.0

	// Allow burst of 10% of per-minute limit
	burst := perMinute / 10
	if burst < 1 {
		burst = 1
	}

	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		name:    name,
	}
}

// Wait blocks until a single token is available
func (l *Limiter) Wait(ctx context.Context) error {
	return l.WaitN(ctx, 1)
}

// WaitN blocks until n tokens are available. n is clamped to the burst size so that
// heavy endpoints still go through, just slower.
func (l *Limiter) WaitN(ctx context.Context, n int) error {
	if n < 1 {
		n = 1
	}
	if burst := l.limiter.Burst(); n > burst {
		n = burst
	}
	if err := l.limiter.WaitN(ctx, n); err != nil {
		return errors.Wrapf(err, "rate limiter %s", l.name)
	}
	return nil
}

// Allow checks if a request is allowed without blocking
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// MultiLimiter manages multiple rate limiters (per endpoint, global, etc.)
type MultiLimiter struct {
	limiters map[string]*Limiter
	mu       sync.RWMutex
}

// NewMultiLimiter creates a new multi-limiter
func NewMultiLimiter() *MultiLimiter {
	return &MultiLimiter{
		limiters: make(map[string]*Limiter),
	}
}

// AddLimiter adds a rate limiter for a specific key
func (m *MultiLimiter) AddLimiter(key string, limiter *Limiter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limiters[key] = limiter
}

// Wait takes one token from each of the given limiters. Unknown keys are ignored.
func (m *MultiLimiter) Wait(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if err := m.WaitN(ctx, key, 1); err != nil {
			return err
		}
	}
	return nil
}

// WaitN takes n tokens from the limiter registered under key.
func (m *MultiLimiter) WaitN(ctx context.Context, key string, n int) error {
	m.mu.RLock()
	limiter, ok := m.limiters[key]
	m.mu.RUnlock()

	if !ok {
		return nil
	}
	return limiter.WaitN(ctx, n)
}

// NewCoinMLimiters builds the limiter set for the coin-M REST api.
// https://binance-docs.github.io/apidocs/delivery/en/#limits
func NewCoinMLimiters(weightPerMinute, ordersPerMinute int) *MultiLimiter {
	m := NewMultiLimiter()
	m.AddLimiter(KeyWeight, NewLimiter("coinm-weight", weightPerMinute))
	m.AddLimiter(KeyOrders, NewLimiter("coinm-orders", ordersPerMinute))
	return m
}
