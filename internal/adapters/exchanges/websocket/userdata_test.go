package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coinm/internal/orderid"
	"coinm/pkg/errors"
	"coinm/pkg/logger"
)

const (
	orderTradeUpdateMsg = `{"e":"ORDER_TRADE_UPDATE","E":1591274595442,"T":1591274595453,"i":"SfsR","o":{"s":"BTCUSD_200925","c":"x-15PC4ZJyabc","S":"SELL","o":"TRAILING_STOP_MARKET","f":"GTC","q":"2","p":"0","ap":"0","sp":"9103.1","x":"NEW","X":"NEW","i":8888888,"l":"0","z":"0","L":"0","ma":"BTC","N":"BTC","n":"0","T":1591274595442,"t":7,"rp":"0","b":"0","a":"9.91","m":false,"R":true,"wt":"CONTRACT_PRICE","ot":"TRAILING_STOP_MARKET","ps":"LONG","cp":false,"AP":"9476.8","cr":"5.0","pP":false}}`
	accountUpdateMsg    = `{"e":"ACCOUNT_UPDATE","E":1564745798939,"T":1564745798938,"i":"SfsR","a":{"m":"ORDER","B":[{"a":"BTC","wb":"122624.12345678","cw":"100.12345678","bc":"50.12345678"}],"P":[{"s":"BTCUSD_200925","pa":"-20","ep":"9000.0","cr":"200","up":"0.2732781800","mt":"isolated","iw":"0.06391979","ps":"BOTH"}]}}`
	marginCallMsg       = `{"e":"MARGIN_CALL","E":1587727187525,"i":"SfsR","cw":"3.16812045","p":[{"s":"BTCUSD_200925","ps":"LONG","pa":"132","mt":"CROSSED","iw":"0","mp":"9187.17127000","up":"-1.166074","mm":"1.614445"}]}`
	configUpdateMsg     = `{"e":"ACCOUNT_CONFIG_UPDATE","E":1611646737479,"T":1611646737476,"ac":{"s":"BTCUSD_PERP","l":25}}`
	listenKeyExpiredMsg = `{"e":"listenKeyExpired","E":1576653824250}`
)

type fakeKeys struct {
	mu         sync.Mutex
	cached     string
	created    int
	keepAlives int
	closed     int
}

func (f *fakeKeys) ListenKey(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cached, nil
}

func (f *fakeKeys) CreateListenKey(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	f.cached = "lk-new"
	return f.cached, nil
}

func (f *fakeKeys) KeepAliveListenKey(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keepAlives++
	return nil
}

func (f *fakeKeys) CloseListenKey(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeKeys) counts() (created, keepAlives, closed int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created, f.keepAlives, f.closed
}

type recordingHandler struct {
	mu       sync.Mutex
	orders   []*OrderUpdate
	accounts []*AccountUpdate
	margins  []*MarginCall
	configs  []*AccountConfigUpdate
}

func (h *recordingHandler) OnOrderUpdate(_ context.Context, e *OrderUpdate) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.orders = append(h.orders, e)
	return nil
}

func (h *recordingHandler) OnAccountUpdate(_ context.Context, e *AccountUpdate) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.accounts = append(h.accounts, e)
	return nil
}

func (h *recordingHandler) OnMarginCall(_ context.Context, e *MarginCall) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.margins = append(h.margins, e)
	return nil
}

func (h *recordingHandler) OnAccountConfigUpdate(_ context.Context, e *AccountConfigUpdate) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.configs = append(h.configs, e)
	return nil
}

func (h *recordingHandler) accountCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.accounts)
}

// streamServer serves one scripted list of messages per connection and then holds the
// connection open until the client leaves.
type streamServer struct {
	*httptest.Server
	mu      sync.Mutex
	paths   []string
	scripts [][]string
}

func newStreamServer(t *testing.T, scripts ...[]string) *streamServer {
	t.Helper()
	s := &streamServer{scripts: scripts}
	upgrader := websocket.Upgrader{}

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		n := len(s.paths)
		s.paths = append(s.paths, r.URL.Path)
		s.mu.Unlock()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if n < len(s.scripts) {
			for _, msg := range s.scripts[n] {
				if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
					return
				}
			}
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *streamServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func (s *streamServer) requestedPaths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.paths...)
}

func newTestStream(t *testing.T, keys ListenKeys, h Handler, baseURL string, mutate ...func(*UserDataConfig)) *UserDataStream {
	t.Helper()
	cfg := UserDataConfig{
		BaseURL:  baseURL,
		Category: orderid.CategoryCoinM,
		Reconnect: ReconnectConfig{
			MaxRetries:    3,
			InitialDelay:  time.Millisecond,
			MaxDelay:      5 * time.Millisecond,
			BackoffFactor: 2,
		},
		Logger: logger.Nop(),
	}
	for _, m := range mutate {
		m(&cfg)
	}
	s, err := NewUserDataStream(keys, h, cfg)
	require.NoError(t, err)
	return s
}

func TestDispatchOrderTradeUpdate(t *testing.T) {
	h := &recordingHandler{}
	s := newTestStream(t, &fakeKeys{}, h, "ws://unused")

	require.NoError(t, s.dispatch(context.Background(), []byte(orderTradeUpdateMsg)))
	require.Len(t, h.orders, 1)

	ev := h.orders[0]
	assert.Equal(t, "coinm", ev.Category)
	assert.Equal(t, "BTCUSD_200925", ev.Symbol)
	assert.Equal(t, int64(8888888), ev.OrderID)
	assert.Equal(t, "x-15PC4ZJyabc", ev.ClientOrderID)
	assert.True(t, ev.Tagged)
	assert.Equal(t, "SELL", ev.Side)
	assert.Equal(t, "NEW", ev.ExecutionType)
	assert.Equal(t, "NEW", ev.Status)
	assert.Equal(t, "LONG", ev.PositionSide)
	assert.True(t, ev.StopPrice.Equal(decimal.RequireFromString("9103.1")))
	assert.True(t, ev.OrigQty.Equal(decimal.NewFromInt(2)))
	assert.True(t, ev.ReduceOnly)
	assert.Equal(t, int64(7), ev.TradeID)
	assert.Equal(t, int64(1591274595442), ev.TradeTime.UnixMilli(), "trade id must not overwrite trade time")
	assert.Equal(t, int64(1591274595442), ev.EventTime.UnixMilli())
	assert.Equal(t, int64(1), s.Stats().OrderUpdates)
}

func TestDispatchForeignOrderIsNotTagged(t *testing.T) {
	h := &recordingHandler{}
	s := newTestStream(t, &fakeKeys{}, h, "ws://unused")

	msg := strings.Replace(orderTradeUpdateMsg, "x-15PC4ZJyabc", "web_123", 1)
	require.NoError(t, s.dispatch(context.Background(), []byte(msg)))
	assert.False(t, h.orders[0].Tagged)
}

func TestDispatchAccountAndMarginEvents(t *testing.T) {
	h := &recordingHandler{}
	s := newTestStream(t, &fakeKeys{}, h, "ws://unused")
	ctx := context.Background()

	require.NoError(t, s.dispatch(ctx, []byte(accountUpdateMsg)))
	require.NoError(t, s.dispatch(ctx, []byte(marginCallMsg)))
	require.NoError(t, s.dispatch(ctx, []byte(configUpdateMsg)))
	require.NoError(t, s.dispatch(ctx, []byte(`{"e":"SOMETHING_NEW","E":1}`)))

	require.Len(t, h.accounts, 1)
	acc := h.accounts[0]
	assert.Equal(t, "ORDER", acc.Reason)
	require.Len(t, acc.Balances, 1)
	assert.Equal(t, "BTC", acc.Balances[0].Asset)
	assert.True(t, acc.Balances[0].WalletBalance.Equal(decimal.RequireFromString("122624.12345678")))
	require.Len(t, acc.Positions, 1)
	assert.True(t, acc.Positions[0].Amount.Equal(decimal.NewFromInt(-20)))
	assert.Equal(t, "isolated", acc.Positions[0].MarginType)

	require.Len(t, h.margins, 1)
	mc := h.margins[0]
	assert.True(t, mc.CrossWalletBalance.Equal(decimal.RequireFromString("3.16812045")))
	require.Len(t, mc.Positions, 1)
	assert.Equal(t, "crossed", mc.Positions[0].MarginType)
	assert.True(t, mc.Positions[0].MaintenanceMargin.Equal(decimal.RequireFromString("1.614445")))

	require.Len(t, h.configs, 1)
	assert.Equal(t, 25, h.configs[0].Leverage)

	stats := s.Stats()
	assert.Equal(t, int64(4), stats.MessagesReceived)
	assert.Equal(t, int64(1), stats.MarginCalls)
}

func TestDispatchDecodesExchangeVariants(t *testing.T) {
	h := &recordingHandler{}
	s := newTestStream(t, &fakeKeys{}, h, "ws://unused")
	ctx := context.Background()

	// Some gateways send the event time as a string.
	msg := strings.Replace(configUpdateMsg, `"E":1611646737479`, `"E":"1611646737479"`, 1)
	require.NoError(t, s.dispatch(ctx, []byte(msg)))
	require.Len(t, h.configs, 1)
	assert.Equal(t, "BTCUSD_PERP", h.configs[0].Symbol)
	assert.Equal(t, int64(1611646737479), h.configs[0].EventTime.UnixMilli())

	// Unknown events are skipped before their payload is looked at.
	require.NoError(t, s.dispatch(ctx, []byte(`{"e":"STRATEGY_UPDATE","E":1,"o":"not an order"}`)))

	err := s.dispatch(ctx, []byte(`{"e":"ORDER_TRADE_UPDATE","E":true,"o":{}}`))
	assert.Error(t, err)
	assert.Empty(t, h.orders)
	assert.Equal(t, int64(0), s.Stats().OrderUpdates)
}

func TestDispatchListenKeyExpired(t *testing.T) {
	s := newTestStream(t, &fakeKeys{}, &recordingHandler{}, "ws://unused")

	err := s.dispatch(context.Background(), []byte(listenKeyExpiredMsg))
	assert.True(t, errors.Is(err, errors.ErrWSListenKeyExpired))

	assert.Error(t, s.dispatch(context.Background(), []byte("not json")))
}

func TestRunRenewsExpiredListenKey(t *testing.T) {
	srv := newStreamServer(t,
		[]string{orderTradeUpdateMsg, listenKeyExpiredMsg},
		[]string{accountUpdateMsg},
	)
	keys := &fakeKeys{cached: "lk-cached"}
	h := &recordingHandler{}
	s := newTestStream(t, keys, h, srv.wsURL()+"/ws", func(c *UserDataConfig) { c.CloseOnExit = true })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return h.accountCount() == 1 }, 5*time.Second, 5*time.Millisecond)
	assert.True(t, s.IsConnected())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	assert.Equal(t, []string{"/ws/lk-cached", "/ws/lk-new"}, srv.requestedPaths())
	created, _, closed := keys.counts()
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, closed)
	assert.False(t, s.IsConnected())
	assert.Equal(t, int64(1), s.Stats().ReconnectCount)
}

func TestRunKeepsListenKeyAlive(t *testing.T) {
	srv := newStreamServer(t)
	keys := &fakeKeys{cached: "lk"}
	s := newTestStream(t, keys, &recordingHandler{}, srv.wsURL(), func(c *UserDataConfig) {
		c.KeepAliveInterval = 10 * time.Millisecond
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, keepAlives, _ := keys.counts()
		return keepAlives >= 2
	}, 5*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	_, _, closed := keys.counts()
	assert.Equal(t, 0, closed, "listen key stays open unless CloseOnExit")
}

func TestRunGivesUpAfterMaxRetries(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	s := newTestStream(t, &fakeKeys{cached: "lk"}, &recordingHandler{}, url)

	err := s.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrWSMaxReconnectAttempts))
	assert.Equal(t, int64(3), s.Stats().ReconnectCount)
	assert.NotNil(t, s.Stats().LastError)
}

func TestNewUserDataStreamValidation(t *testing.T) {
	_, err := NewUserDataStream(nil, &recordingHandler{}, UserDataConfig{BaseURL: "ws://x"})
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	_, err = NewUserDataStream(&fakeKeys{}, nil, UserDataConfig{BaseURL: "ws://x"})
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	_, err = NewUserDataStream(&fakeKeys{}, &recordingHandler{}, UserDataConfig{})
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}
