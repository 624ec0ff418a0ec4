package websocket

import (
	"context"
	"time"
)

// ReconnectConfig configures redialing of a dropped stream.
type ReconnectConfig struct {
	MaxRetries    int // consecutive failed sessions before giving up, 0 retries forever
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultReconnectConfig returns sensible defaults
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		MaxRetries:    10,
		InitialDelay:  1 * time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
	}
}

// backoff tracks the delay between reconnection attempts.
type backoff struct {
	cfg     ReconnectConfig
	delay   time.Duration
	retries int
}

func newBackoff(cfg ReconnectConfig) *backoff {
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = time.Second
	}
	if cfg.MaxDelay < cfg.InitialDelay {
		cfg.MaxDelay = cfg.InitialDelay
	}
	if cfg.BackoffFactor < 1 {
		cfg.BackoffFactor = 1
	}
	return &backoff{cfg: cfg, delay: cfg.InitialDelay}
}

// exhausted reports whether another attempt is allowed.
func (b *backoff) exhausted() bool {
	return b.cfg.MaxRetries > 0 && b.retries >= b.cfg.MaxRetries
}

// wait sleeps for the current delay and grows it for the next attempt.
func (b *backoff) wait(ctx context.Context) error {
	b.retries++
	timer := time.NewTimer(b.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	b.delay = min(time.Duration(float64(b.delay)*b.cfg.BackoffFactor), b.cfg.MaxDelay)
	return nil
}

// reset is called once a session got connected.
func (b *backoff) reset() {
	b.retries = 0
	b.delay = b.cfg.InitialDelay
}
