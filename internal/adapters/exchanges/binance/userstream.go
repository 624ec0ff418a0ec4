package binance

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"coinm/pkg/errors"
)

// The exchange expires a listen key 60 minutes after its last keepalive.
const listenKeyTTL = 55 * time.Minute

// accountTag is a short stable digest of the API key. A listen key belongs to one account,
// so clients of different accounts sharing a cache must not see each other's keys.
func accountTag(apiKey string) string {
	if apiKey == "" {
		return "public"
	}
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:8])
}

func (c *CoinMClient) listenKeyCacheKey() string {
	return "coinm:" + string(c.category) + ":" + c.account + ":listen_key"
}

// CreateListenKey opens a user data stream, or returns the key of the one already open.
func (c *CoinMClient) CreateListenKey(ctx context.Context) (string, error) {
	var res ListenKey
	if err := c.request(ctx, epListenKeyCreate, nil, &res); err != nil {
		return "", err
	}
	if res.ListenKey == "" {
		return "", errors.Wrap(errors.ErrInternal, "empty listen key in response")
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, c.listenKeyCacheKey(), res.ListenKey, listenKeyTTL); err != nil {
			c.log.Warnw("listen key cache write failed", "error", err)
		}
	}
	return res.ListenKey, nil
}

// ListenKey returns the cached listen key when one is known and creates one otherwise.
func (c *CoinMClient) ListenKey(ctx context.Context) (string, error) {
	if c.cache != nil {
		var key string
		if err := c.cache.Get(ctx, c.listenKeyCacheKey(), &key); err == nil && key != "" {
			return key, nil
		} else if err != nil && !errors.Is(err, errors.ErrNotFound) {
			c.log.Warnw("listen key cache read failed", "error", err)
		}
	}
	return c.CreateListenKey(ctx)
}

// KeepAliveListenKey extends the open stream by 60 minutes.
func (c *CoinMClient) KeepAliveListenKey(ctx context.Context) error {
	if err := c.request(ctx, epListenKeyKeepAlive, nil, nil); err != nil {
		return err
	}
	if c.cache != nil {
		var key string
		if err := c.cache.Get(ctx, c.listenKeyCacheKey(), &key); err == nil && key != "" {
			_ = c.cache.Set(ctx, c.listenKeyCacheKey(), key, listenKeyTTL)
		}
	}
	return nil
}

// CloseListenKey closes the user data stream.
func (c *CoinMClient) CloseListenKey(ctx context.Context) error {
	if err := c.request(ctx, epListenKeyClose, nil, nil); err != nil {
		return err
	}
	if c.cache != nil {
		if err := c.cache.Delete(ctx, c.listenKeyCacheKey()); err != nil {
			c.log.Warnw("listen key cache delete failed", "error", err)
		}
	}
	return nil
}
