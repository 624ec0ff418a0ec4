package retry

import (
	"context"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"coinm/pkg/errors"
)

// Strategy defines the retry strategy
type Strategy string

const (
	// StrategyExponential uses exponential backoff
	StrategyExponential Strategy = "exponential"
	// StrategyLinear uses linear backoff
	StrategyLinear Strategy = "linear"
	// StrategyFixed uses fixed delay
	StrategyFixed Strategy = "fixed"
)

// Config contains retry configuration
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Strategy     Strategy
	Multiplier   float64 // For exponential backoff
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() Config {
	return Config{
		MaxRetries:   3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Strategy:     StrategyExponential,
		Multiplier:   2.0,
	}
}

// Middleware retries idempotent exchange calls. The transport only routes GET requests
// through it; a resent order could fill twice.
type Middleware struct {
	config Config
}

// New creates a new retry middleware
func New(config Config) *Middleware {
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 5 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.Strategy == "" {
		config.Strategy = StrategyExponential
	}

	return &Middleware{config: config}
}

// Do executes the function with retry logic
func (m *Middleware) Do(ctx context.Context, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= m.config.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if !isRetryableError(err) {
			return err
		}

		if attempt == m.config.MaxRetries {
			break
		}

		delay := max(m.calculateDelay(attempt), retryAfter(err))

		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "retry cancelled")
		case <-time.After(delay):
		}
	}

	return errors.Wrapf(lastErr, "max retries (%d) exceeded", m.config.MaxRetries)
}

// DoValue runs fn under m and returns its value from the first successful attempt.
func DoValue[T any](ctx context.Context, m *Middleware, fn func() (T, error)) (T, error) {
	var out T
	err := m.Do(ctx, func() error {
		v, err := fn()
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// calculateDelay calculates the backoff delay based on the strategy
func (m *Middleware) calculateDelay(attempt int) time.Duration {
	var delay time.Duration

	switch m.config.Strategy {
	case StrategyExponential:
		// Exponential: delay = initial * (multiplier ^ attempt)
		delay = time.Duration(float64(m.config.InitialDelay) * math.Pow(m.config.Multiplier, float64(attempt)))

	case StrategyLinear:
		// Linear: delay = initial * (1 + attempt)
		delay = m.config.InitialDelay * time.Duration(1+attempt)

	case StrategyFixed:
		// Fixed: always use initial delay
		delay = m.config.InitialDelay

	default:
		delay = m.config.InitialDelay
	}

	// Cap at max delay
	if delay > m.config.MaxDelay {
		delay = m.config.MaxDelay
	}

	return delay
}

// isRetryableError reports whether another attempt can succeed. Rate limits, exchange
// side failures and timeouts are retried. An IP ban (418) is not: every request sent
// while banned extends it.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr interface{ StatusCode() int }
	hasStatus := errors.As(err, &httpErr) && httpErr.StatusCode() != 0
	if hasStatus && httpErr.StatusCode() == http.StatusTeapot {
		return false
	}

	if errors.Is(err, errors.ErrRateLimitExceeded) ||
		errors.Is(err, errors.ErrExchangeUnavailable) ||
		errors.Is(err, errors.ErrTimeout) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if hasStatus {
		code := httpErr.StatusCode()
		return code == http.StatusTooManyRequests ||
			code == http.StatusRequestTimeout ||
			code >= 500
	}

	errStr := strings.ToLower(err.Error())
	for _, msg := range []string{"connection refused", "connection reset", "broken pipe", "no such host", "timeout", "eof"} {
		if strings.Contains(errStr, msg) {
			return true
		}
	}

	return false
}

// retryAfter returns the server requested wait carried by err, if any.
func retryAfter(err error) time.Duration {
	var ra interface{ RetryAfter() time.Duration }
	if errors.As(err, &ra) {
		return ra.RetryAfter()
	}
	return 0
}
