package binance

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coinm/internal/domain/order"
	"coinm/internal/orderid"
	"coinm/pkg/errors"
)

// memoryCache is an in-process Cache.
type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return errors.ErrNotFound
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = raw
	m.ttls[key] = ttl
	return nil
}

func (m *memoryCache) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

type recordingRecorder struct {
	batches [][]*order.JournalEntry
	err     error
}

func (r *recordingRecorder) Record(_ context.Context, entries []*order.JournalEntry) error {
	r.batches = append(r.batches, entries)
	return r.err
}

func TestNewCoinMClientRejectsOtherCategories(t *testing.T) {
	_, err := NewCoinMClient(Config{Category: orderid.CategoryUSDM, Transport: &stubTransport{}})
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	_, err = NewCoinMClient(Config{Category: orderid.CategoryCoinM})
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestEndpointsDispatchBySignedFlag(t *testing.T) {
	tr := &stubTransport{}
	c, _ := newTestClient(t, tr)

	for _, ep := range endpoints {
		_, err := c.call(context.Background(), ep, nil)
		require.NoError(t, err)

		call := tr.lastCall(t)
		assert.Equal(t, ep.method, call.method, ep.path)
		assert.Equal(t, ep.path, call.path)
		assert.Equal(t, ep.private, call.private, "%s %s", ep.method, ep.path)
	}
}

func TestEndpointTableIsConsistent(t *testing.T) {
	seen := map[routeKey]bool{}
	for _, ep := range endpoints {
		key := routeKey{ep.method, ep.path}
		assert.False(t, seen[key], "duplicate route %s %s", ep.method, ep.path)
		seen[key] = true

		assert.False(t, strings.HasPrefix(ep.path, "/"), ep.path)
		assert.Positive(t, ep.weight, ep.path)
		if strings.Contains(ep.path, "listenKey") {
			assert.False(t, ep.private, "listen key routes take the api key only")
		}
	}

	assert.Equal(t, 1, lookupEndpoint(http.MethodGet, "dapi/v1/unknown").weight)
	assert.True(t, lookupEndpoint(http.MethodPost, "dapi/v1/batchOrders").order)
}

func TestCategoryURLs(t *testing.T) {
	u, err := RESTBaseURL(orderid.CategoryCoinMTest)
	require.NoError(t, err)
	assert.Equal(t, "https://testnet.binancefuture.com", u)

	u, err = StreamBaseURL(orderid.CategoryCoinM)
	require.NoError(t, err)
	assert.Equal(t, "wss://dstream.binance.com/ws", u)

	_, err = StreamBaseURL(orderid.CategorySpot)
	assert.Error(t, err)
}

func TestSubmitNewOrderGeneratesID(t *testing.T) {
	tr := &stubTransport{respond: func(call stubCall) ([]byte, error) {
		return json.Marshal(OrderResult{OrderID: 9, ClientOrderID: call.params.Get("newClientOrderId"), Status: "NEW"})
	}}
	c, logs := newTestClient(t, tr)

	params := &NewOrderParams{Symbol: "BTCUSD_PERP", Side: SideBuy, Type: OrderTypeMarket, Quantity: "1", ReduceOnly: true}
	res, err := c.SubmitNewOrder(context.Background(), params)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(params.NewClientOrderID, "x-15PC4ZJy"))
	assert.Equal(t, params.NewClientOrderID, res.ClientOrderID)
	assert.Equal(t, 0, logs.Len())

	call := tr.lastCall(t)
	assert.Equal(t, "dapi/v1/order", call.path)
	assert.True(t, call.private)
	assert.Equal(t, "true", call.params.Get("reduceOnly"))
	assert.Equal(t, "MARKET", call.params.Get("type"))
	assert.False(t, call.params.Has("price"))
}

func TestSubmitNewOrderForeignIDWarnsAndIsSentUnchanged(t *testing.T) {
	tr := &stubTransport{}
	c, logs := newTestClient(t, tr)

	params := &NewOrderParams{Symbol: "BTCUSD_PERP", Side: SideBuy, Type: OrderTypeMarket, Quantity: "1", NewClientOrderID: "foo123"}
	_, err := c.SubmitNewOrder(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, "foo123", tr.lastCall(t).params.Get("newClientOrderId"))
	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].ContextMap()["expected_prefix"], "x-15PC4ZJy")
}

func TestQueryAndCancelNeverMintIDs(t *testing.T) {
	tr := &stubTransport{}
	c, logs := newTestClient(t, tr)
	ctx := context.Background()

	q := OrderQueryParams{Symbol: "BTCUSD_PERP", OrigClientOrderID: "foo123"}
	_, err := c.GetOrder(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, "foo123", tr.lastCall(t).params.Get("origClientOrderId"))

	_, err = c.CancelOrder(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, tr.lastCall(t).method)
	assert.False(t, tr.lastCall(t).params.Has("newClientOrderId"))

	_, err = c.ModifyOrder(ctx, ModifyOrderParams{Symbol: "BTCUSD_PERP", OrderID: 3, Side: SideSell, Quantity: "1", Price: "1"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, tr.lastCall(t).method)

	assert.Equal(t, 0, logs.Len())
}

func TestGenerateNewOrderID(t *testing.T) {
	c, _ := newTestClient(t, &stubTransport{})
	a, b := c.GenerateNewOrderID(), c.GenerateNewOrderID()
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "x-15PC4ZJy"))
	assert.LessOrEqual(t, len(a), 36)
}

func TestGetExchangeInfoUsesCache(t *testing.T) {
	tr := &stubTransport{respond: func(stubCall) ([]byte, error) {
		return []byte(`{"timezone":"UTC","serverTime":1,"symbols":[{"symbol":"BTCUSD_PERP","pair":"BTCUSD","contractType":"PERPETUAL"}]}`), nil
	}}
	cache := newMemoryCache()
	c, _ := newTestClient(t, tr, func(cfg *Config) {
		cfg.Cache = cache
		cfg.ExchangeInfoTTL = time.Minute
	})

	first, err := c.GetExchangeInfo(context.Background())
	require.NoError(t, err)
	second, err := c.GetExchangeInfo(context.Background())
	require.NoError(t, err)

	assert.Len(t, tr.calls, 1)
	assert.Equal(t, first.Symbols, second.Symbols)
	assert.Equal(t, time.Minute, cache.ttls["coinm:coinm:exchange_info"])

	sym, ok := second.Symbol("BTCUSD_PERP")
	require.True(t, ok)
	assert.Equal(t, "BTCUSD", sym.Pair)
}

func TestListenKeyLifecycle(t *testing.T) {
	tr := &stubTransport{respond: func(call stubCall) ([]byte, error) {
		if call.method == http.MethodPost {
			return []byte(`{"listenKey":"lk-1"}`), nil
		}
		return []byte(`{}`), nil
	}}
	cache := newMemoryCache()
	c, _ := newTestClient(t, tr, func(cfg *Config) { cfg.Cache = cache })
	ctx := context.Background()

	key, err := c.ListenKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, "lk-1", key)
	assert.False(t, tr.lastCall(t).private)

	key, err = c.ListenKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, "lk-1", key)
	assert.Len(t, tr.calls, 1, "second lookup is served from cache")

	require.NoError(t, c.KeepAliveListenKey(ctx))
	assert.Equal(t, http.MethodPut, tr.lastCall(t).method)

	require.NoError(t, c.CloseListenKey(ctx))
	assert.Equal(t, http.MethodDelete, tr.lastCall(t).method)

	var cached string
	assert.True(t, errors.Is(cache.Get(ctx, c.listenKeyCacheKey(), &cached), errors.ErrNotFound))
}

func TestListenKeyCacheIsScopedToAccount(t *testing.T) {
	cache := newMemoryCache()
	ctx := context.Background()

	trA := &stubTransport{respond: func(stubCall) ([]byte, error) {
		return []byte(`{"listenKey":"KEY-OF-ACCOUNT-A"}`), nil
	}}
	trB := &stubTransport{respond: func(stubCall) ([]byte, error) {
		return []byte(`{"listenKey":"KEY-OF-ACCOUNT-B"}`), nil
	}}
	a, _ := newTestClient(t, trA, func(cfg *Config) { cfg.Cache = cache; cfg.APIKey = "api-key-a" })
	b, _ := newTestClient(t, trB, func(cfg *Config) { cfg.Cache = cache; cfg.APIKey = "api-key-b" })

	keyA, err := a.ListenKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, "KEY-OF-ACCOUNT-A", keyA)

	keyB, err := b.ListenKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, "KEY-OF-ACCOUNT-B", keyB)
	assert.Len(t, trB.calls, 1, "account B opens its own stream")

	assert.NotEqual(t, a.listenKeyCacheKey(), b.listenKeyCacheKey())
	assert.NotContains(t, b.listenKeyCacheKey(), "api-key-b")

	again, err := a.ListenKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, "KEY-OF-ACCOUNT-A", again)
	assert.Len(t, trA.calls, 1)
}

func TestBatchOutcomesAreJournaled(t *testing.T) {
	tr := &stubTransport{respond: func(call stubCall) ([]byte, error) {
		return []byte(`[{"orderId":11,"clientOrderId":"x-15PC4ZJy-a","status":"NEW"},{"code":-2010,"msg":"insufficient"}]`), nil
	}}
	rec := &recordingRecorder{err: errors.ErrUnavailable}
	c, _ := newTestClient(t, tr, func(cfg *Config) { cfg.Recorder = rec })

	orders := []NewOrderParams{limitOrder("30000"), limitOrder("29000")}
	orders[0].NewClientOrderID = "x-15PC4ZJy-a"

	_, err := c.SubmitMultipleOrders(context.Background(), orders)
	require.NoError(t, err, "journal failures never reach the caller")

	require.Len(t, rec.batches, 1)
	entries := rec.batches[0]
	require.Len(t, entries, 2)
	assert.Equal(t, entries[0].BatchID, entries[1].BatchID)

	assert.Equal(t, order.OperationPlace, entries[0].Operation)
	assert.Equal(t, order.OutcomeAccepted, entries[0].Outcome)
	assert.Equal(t, int64(11), entries[0].ExchangeOrderID)
	assert.Equal(t, "30000", entries[0].Price.String())
	assert.Equal(t, "coinm", entries[0].Category)

	assert.Equal(t, order.OutcomeRejected, entries[1].Outcome)
	assert.Equal(t, -2010, entries[1].ErrorCode)
	assert.Equal(t, orders[1].NewClientOrderID, entries[1].ClientOrderID)
	assert.Equal(t, 1, entries[1].Position)
}

func TestCancellationJournalMapsClientIDs(t *testing.T) {
	tr := &stubTransport{respond: func(stubCall) ([]byte, error) {
		return []byte(`[{"orderId":1,"status":"CANCELED"},{"orderId":2,"clientOrderId":"abc","status":"CANCELED"}]`), nil
	}}
	rec := &recordingRecorder{}
	c, _ := newTestClient(t, tr, func(cfg *Config) { cfg.Recorder = rec })

	_, err := c.CancelMultipleOrders(context.Background(), CancelMultipleOrdersParams{
		Symbol:                "BTCUSD_PERP",
		OrderIDList:           []int64{1},
		OrigClientOrderIDList: []string{"abc"},
	})
	require.NoError(t, err)

	entries := rec.batches[0]
	assert.Equal(t, order.OperationCancel, entries[0].Operation)
	assert.Empty(t, entries[0].ClientOrderID)
	assert.Equal(t, "abc", entries[1].ClientOrderID)
	assert.Equal(t, "BTCUSD_PERP", entries[1].Symbol)
}

func TestCancellationJournalTrustsAcceptedIDs(t *testing.T) {
	tr := &stubTransport{respond: func(stubCall) ([]byte, error) {
		return []byte(`[{"orderId":7,"clientOrderId":"x-15PC4ZJy-b","status":"CANCELED"},{"code":-2011,"msg":"Unknown order sent."},{"orderId":5,"clientOrderId":"x-15PC4ZJy-a","status":"CANCELED"}]`), nil
	}}
	rec := &recordingRecorder{}
	c, _ := newTestClient(t, tr, func(cfg *Config) { cfg.Recorder = rec })

	_, err := c.CancelMultipleOrders(context.Background(), CancelMultipleOrdersParams{
		Symbol:      "BTCUSD_PERP",
		OrderIDList: []int64{5, 6, 7},
	})
	require.NoError(t, err)

	entries := rec.batches[0]
	require.Len(t, entries, 3)

	assert.Equal(t, int64(7), entries[0].ExchangeOrderID, "accepted ids come from the response")
	assert.Equal(t, "x-15PC4ZJy-b", entries[0].ClientOrderID)

	assert.Equal(t, order.OutcomeRejected, entries[1].Outcome)
	assert.Equal(t, int64(6), entries[1].ExchangeOrderID, "rejected ids come from position")

	assert.Equal(t, int64(5), entries[2].ExchangeOrderID)
	assert.Equal(t, "x-15PC4ZJy-a", entries[2].ClientOrderID)
}

func TestOneOrManyEndpointsReturnSlices(t *testing.T) {
	tr := &stubTransport{}
	c, _ := newTestClient(t, tr)
	ctx := context.Background()

	tr.respond = func(stubCall) ([]byte, error) {
		return []byte(`{"symbol":"BTCUSD_PERP","ps":"BTCUSD","price":"30000.1","time":1}`), nil
	}
	prices, err := c.GetSymbolPriceTicker(ctx, SymbolParams{Symbol: "BTCUSD_PERP"})
	require.NoError(t, err)
	require.Len(t, prices, 1)
	assert.Equal(t, "BTCUSD", prices[0].Pair)

	tr.respond = func(stubCall) ([]byte, error) {
		return []byte(` [{"symbol":"BTCUSD_PERP","price":"1"},{"symbol":"BTCUSD_240927","price":"2"}]`), nil
	}
	prices, err = c.GetSymbolPriceTicker(ctx, SymbolParams{Pair: "BTCUSD"})
	require.NoError(t, err)
	assert.Len(t, prices, 2)
	assert.Equal(t, "BTCUSD", tr.lastCall(t).params.Get("pair"))
	assert.False(t, tr.lastCall(t).params.Has("symbol"))
}

func TestKlineDecoding(t *testing.T) {
	tr := &stubTransport{respond: func(stubCall) ([]byte, error) {
		return []byte(`[[1591258320000,"9640.7","9642.4","9640.6","9642.0","206",1591258379999,"2.13660389",48,"119","1.23424865","0"]]`), nil
	}}
	c, _ := newTestClient(t, tr)

	klines, err := c.GetKlines(context.Background(), KlinesParams{Symbol: "BTCUSD_PERP", Interval: "1m", Limit: 1})
	require.NoError(t, err)
	require.Len(t, klines, 1)

	k := klines[0]
	assert.Equal(t, int64(1591258320000), k.OpenTime)
	assert.Equal(t, "9640.7", k.Open)
	assert.Equal(t, "9642.0", k.Close)
	assert.Equal(t, int64(1591258379999), k.CloseTime)
	assert.Equal(t, int64(48), k.NumberOfTrades)
	assert.Equal(t, "1.23424865", k.TakerBuyBaseAssetVolume)

	var bad Kline
	assert.Error(t, json.Unmarshal([]byte(`[1,"2"]`), &bad))
}

func TestCallErrorsKeepRoute(t *testing.T) {
	tr := &stubTransport{respond: func(stubCall) ([]byte, error) {
		return nil, &APIError{HTTPStatus: 401, Code: -2015, Msg: "Invalid API-key, IP, or permissions for action."}
	}}
	c, _ := newTestClient(t, tr)

	_, err := c.GetBalance(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GET dapi/v1/balance")
	assert.True(t, errors.Is(err, errors.ErrUnauthorized))
}
