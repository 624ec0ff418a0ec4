package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coinm/internal/adapters/exchanges/retry"
	"coinm/pkg/errors"
	"coinm/pkg/logger"
)

const (
	testAPIKey    = "test-api-key"
	testSecretKey = "test-secret-key"
)

func newTestTransport(t *testing.T, handler http.HandlerFunc, mutate ...func(*TransportConfig)) *RESTTransport {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := TransportConfig{
		BaseURL:    srv.URL,
		APIKey:     testAPIKey,
		SecretKey:  testSecretKey,
		RecvWindow: 5 * time.Second,
		HTTPClient: srv.Client(),
		Logger:     logger.Nop(),
	}
	for _, m := range mutate {
		m(&cfg)
	}

	tr, err := NewRESTTransport(cfg)
	require.NoError(t, err)
	return tr
}

func expectedSignature(payload string) string {
	mac := hmac.New(sha256.New, []byte(testSecretKey))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// splitSignature separates the signed payload from the trailing signature parameter.
func splitSignature(t *testing.T, raw string) (payload, signature string) {
	t.Helper()
	idx := strings.LastIndex(raw, "&signature=")
	require.NotEqual(t, -1, idx, "signature missing in %q", raw)
	return raw[:idx], raw[idx+len("&signature="):]
}

func TestTransportSignedGet(t *testing.T) {
	var gotQuery string
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/dapi/v1/order", r.URL.Path)
		assert.Equal(t, testAPIKey, r.Header.Get("X-MBX-APIKEY"))
		gotQuery = r.URL.RawQuery
		w.Header().Set("X-MBX-USED-WEIGHT-1M", "42")
		_, _ = w.Write([]byte(`{"orderId":1}`))
	})
	tr.now = func() time.Time { return time.UnixMilli(1700000000000) }

	data, err := tr.GetPrivate(context.Background(), "dapi/v1/order", url.Values{"symbol": {"BTCUSD_PERP"}, "orderId": {"1"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"orderId":1}`, string(data))

	payload, signature := splitSignature(t, gotQuery)
	assert.Equal(t, expectedSignature(payload), signature)

	values, err := url.ParseQuery(payload)
	require.NoError(t, err)
	assert.Equal(t, "BTCUSD_PERP", values.Get("symbol"))
	assert.Equal(t, "1700000000000", values.Get("timestamp"))
	assert.Equal(t, "5000", values.Get("recvWindow"))

	assert.Equal(t, int64(42), tr.RateLimits().UsedWeight1m)
}

func TestTransportSignedPostUsesFormBody(t *testing.T) {
	var gotBody, gotContentType string
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotContentType = r.Header.Get("Content-Type")
		assert.Empty(t, r.URL.RawQuery)
		w.Header().Set("X-MBX-ORDER-COUNT-1M", "3")
		_, _ = w.Write([]byte(`[]`))
	})

	batch := `[{"symbol":"BTCUSD_PERP"}]`
	_, err := tr.PostPrivate(context.Background(), "dapi/v1/batchOrders", url.Values{"batchOrders": {batch}})
	require.NoError(t, err)

	assert.Equal(t, "application/x-www-form-urlencoded", gotContentType)
	payload, signature := splitSignature(t, gotBody)
	assert.Equal(t, expectedSignature(payload), signature)

	values, err := url.ParseQuery(payload)
	require.NoError(t, err)
	assert.Equal(t, batch, values.Get("batchOrders"))
	assert.Equal(t, int64(3), tr.RateLimits().OrderCount1m)
}

func TestTransportUnsignedRequest(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("signature"))
		assert.Empty(t, r.URL.Query().Get("timestamp"))
		assert.Equal(t, "BTCUSD_PERP", r.URL.Query().Get("symbol"))
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := tr.Get(context.Background(), "dapi/v1/depth", url.Values{"symbol": {"BTCUSD_PERP"}})
	require.NoError(t, err)
}

func TestTransportAPIError(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":-2019,"msg":"Margin is insufficient."}`))
	})

	_, err := tr.PostPrivate(context.Background(), "dapi/v1/order", url.Values{"symbol": {"BTCUSD_PERP"}})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.HTTPStatus)
	assert.Equal(t, -2019, apiErr.Code)
	assert.Equal(t, "Margin is insufficient.", apiErr.Msg)
	assert.True(t, errors.Is(err, errors.ErrInsufficientBalance))
}

func TestTransportNonJSONErrorBody(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<html>bad gateway</html>`))
	})

	_, err := tr.Post(context.Background(), "dapi/v1/listenKey", nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Zero(t, apiErr.Code)
	assert.Contains(t, apiErr.Msg, "bad gateway")
	assert.True(t, errors.Is(err, errors.ErrExchangeUnavailable))
}

func TestTransportMissingCredentials(t *testing.T) {
	var hits atomic.Int32
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}, func(cfg *TransportConfig) {
		cfg.APIKey = ""
		cfg.SecretKey = ""
	})

	assert.False(t, tr.HasCredentials())
	_, err := tr.GetPrivate(context.Background(), "dapi/v1/balance", nil)
	assert.True(t, errors.Is(err, errors.ErrMissingCredentials))
	assert.Zero(t, hits.Load())
}

func TestNewRESTTransportValidation(t *testing.T) {
	_, err := NewRESTTransport(TransportConfig{})
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	_, err = NewRESTTransport(TransportConfig{BaseURL: "https://dapi.binance.com", APIKey: "only-key"})
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestTransportRetriesOnlyGet(t *testing.T) {
	var hits atomic.Int32
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"code":-1001,"msg":"Internal error; unable to process your request. Please try again."}`))
			return
		}
		_, _ = w.Write([]byte(`{"serverTime":1}`))
	}, func(cfg *TransportConfig) {
		cfg.Retry = retry.New(retry.Config{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Strategy: retry.StrategyFixed})
	})

	_, err := tr.Get(context.Background(), "dapi/v1/time", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())

	hits.Store(0)
	_, err = tr.PostPrivate(context.Background(), "dapi/v1/order", url.Values{"symbol": {"BTCUSD_PERP"}})
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load(), "order placement must not be retried")
}

func TestTransportSyncTime(t *testing.T) {
	local := time.UnixMilli(1700000000000)
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/dapi/v1/time", r.URL.Path)
		_, _ = w.Write([]byte(`{"serverTime":1700000002500}`))
	})
	tr.now = func() time.Time { return local }

	offset, err := tr.SyncTime(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2500*time.Millisecond, offset)
	assert.Equal(t, offset, tr.ClockOffset())
	assert.Equal(t, int64(1700000002500), tr.timestamp())
}

func TestTransportKeepsRetryAfter(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"code":-1003,"msg":"Too many requests."}`))
	})

	_, err := tr.PostPrivate(context.Background(), "dapi/v1/order", url.Values{"symbol": {"BTCUSD_PERP"}})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 7*time.Second, apiErr.RetryAfter())
	assert.True(t, errors.Is(err, errors.ErrRateLimitExceeded))
}
