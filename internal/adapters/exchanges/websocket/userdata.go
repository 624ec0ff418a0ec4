package websocket

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adshao/go-binance/v2/delivery"
	"github.com/gorilla/websocket"

	"coinm/internal/metrics"
	"coinm/internal/orderid"
	"coinm/pkg/errors"
	"coinm/pkg/logger"
)

const (
	defaultKeepAliveInterval = 30 * time.Minute
	// The server pings every 3 minutes and drops connections silent for 10.
	defaultReadTimeout  = 10 * time.Minute
	handshakeTimeout    = 10 * time.Second
	closeListenKeyAfter = 5 * time.Second
)

// ListenKeys manages the listen key a stream subscribes with. *binance.CoinMClient
// satisfies it.
type ListenKeys interface {
	ListenKey(ctx context.Context) (string, error)
	CreateListenKey(ctx context.Context) (string, error)
	KeepAliveListenKey(ctx context.Context) error
	CloseListenKey(ctx context.Context) error
}

// UserDataConfig configures a UserDataStream.
type UserDataConfig struct {
	// BaseURL is the stream endpoint; the listen key is appended as the last path segment.
	BaseURL  string
	Category orderid.Category

	KeepAliveInterval time.Duration
	ReadTimeout       time.Duration
	Reconnect         ReconnectConfig

	// CloseOnExit closes the listen key when Run returns.
	CloseOnExit bool

	Dialer *websocket.Dialer
	Logger *logger.Logger
}

// UserDataStats tracks stream health.
type UserDataStats struct {
	ConnectedSince   time.Time
	MessagesReceived int64
	OrderUpdates     int64
	AccountUpdates   int64
	MarginCalls      int64
	ErrorCount       int64
	ReconnectCount   int64
	LastError        error
}

// UserDataStream reads account events from the coin-M user data stream and hands them to
// a Handler. It keeps the listen key alive and redials dropped connections.
type UserDataStream struct {
	keys    ListenKeys
	handler Handler
	cfg     UserDataConfig
	dialer  *websocket.Dialer
	log     *logger.Logger

	connected atomic.Bool

	messages       atomic.Int64
	orderUpdates   atomic.Int64
	accountUpdates atomic.Int64
	marginCalls    atomic.Int64
	errorCount     atomic.Int64
	reconnects     atomic.Int64

	statsMu        sync.RWMutex
	connectedSince time.Time
	lastError      error
}

// NewUserDataStream creates a stream. Nothing is dialed until Run.
func NewUserDataStream(keys ListenKeys, handler Handler, cfg UserDataConfig) (*UserDataStream, error) {
	if keys == nil {
		return nil, errors.NewValidationError("keys", "required", nil)
	}
	if handler == nil {
		return nil, errors.NewValidationError("handler", "required", nil)
	}
	if cfg.BaseURL == "" {
		return nil, errors.NewValidationError("base_url", "required", nil)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if cfg.KeepAliveInterval <= 0 {
		cfg.KeepAliveInterval = defaultKeepAliveInterval
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.Reconnect == (ReconnectConfig{}) {
		cfg.Reconnect = DefaultReconnectConfig()
	}

	dialer := cfg.Dialer
	if dialer == nil {
		d := *websocket.DefaultDialer
		d.HandshakeTimeout = handshakeTimeout
		dialer = &d
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Get().With("component", "userdata_stream", "category", string(cfg.Category))
	}

	return &UserDataStream{
		keys:    keys,
		handler: handler,
		cfg:     cfg,
		dialer:  dialer,
		log:     log,
	}, nil
}

// Run streams events until ctx is cancelled. A dropped connection is redialed with
// backoff; an expired listen key is replaced with a new one before redialing. Run returns
// nil on cancellation and an error once reconnection attempts are exhausted.
func (s *UserDataStream) Run(ctx context.Context) error {
	defer s.closeListenKey()

	bo := newBackoff(s.cfg.Reconnect)
	renew := false

	for {
		connected, err := s.session(ctx, renew)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			bo.reset()
		}

		s.recordError(err)
		renew = errors.Is(err, errors.ErrWSListenKeyExpired)

		if bo.exhausted() {
			s.log.Errorw("user data stream giving up", "attempts", bo.retries, "error", err)
			return errors.Wrap(errors.ErrWSMaxReconnectAttempts, err.Error())
		}

		s.log.Warnw("user data stream disconnected, reconnecting",
			"error", err,
			"attempt", bo.retries+1,
			"renew_listen_key", renew,
		)
		if err := bo.wait(ctx); err != nil {
			return nil
		}
		s.reconnects.Add(1)
	}
}

// session runs one connection. connected reports whether the dial succeeded.
func (s *UserDataStream) session(ctx context.Context, renew bool) (connected bool, err error) {
	var key string
	if renew {
		key, err = s.keys.CreateListenKey(ctx)
	} else {
		key, err = s.keys.ListenKey(ctx)
	}
	if err != nil {
		return false, errors.Wrap(err, "obtain listen key")
	}

	conn, _, err := s.dialer.DialContext(ctx, s.cfg.BaseURL+"/"+key, nil)
	if err != nil {
		return false, errors.Wrap(err, "dial user data stream")
	}

	s.markConnected(true)
	defer s.markConnected(false)
	s.log.Infow("user data stream connected")

	var wg sync.WaitGroup
	defer wg.Wait()

	sessCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	wg.Add(2)
	go func() {
		defer wg.Done()
		<-sessCtx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}()
	go func() {
		defer wg.Done()
		s.keepAlive(sessCtx)
	}()

	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return true, ctx.Err()
			}
			return true, errors.Wrap(errors.ErrWSNotConnected, err.Error())
		}
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))

		if err := s.dispatch(ctx, data); err != nil {
			if errors.Is(err, errors.ErrWSListenKeyExpired) {
				return true, err
			}
			s.recordError(err)
			s.log.Warnw("user data event not handled", "error", err)
		}
	}
}

// keepAlive extends the listen key until ctx is done.
func (s *UserDataStream) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.KeepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.keys.KeepAliveListenKey(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				metrics.UserDataListenKeyRenewals.WithLabelValues("error").Inc()
				s.log.Warnw("listen key keepalive failed", "error", err)
				continue
			}
			metrics.UserDataListenKeyRenewals.WithLabelValues("success").Inc()
			s.log.Debugw("listen key kept alive")
		}
	}
}

// dispatch decodes one message and routes it to the handler. Unknown event types are
// skipped before any payload decoding.
func (s *UserDataStream) dispatch(ctx context.Context, data []byte) error {
	s.messages.Add(1)

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return errors.Wrap(err, "decode user data envelope")
	}

	switch env.Event {
	case EventOrderTradeUpdate, EventAccountUpdate, EventMarginCall, EventAccountConfigUpdate:
	case EventListenKeyExpired:
		return errors.ErrWSListenKeyExpired
	default:
		s.log.Debugw("ignoring user data event", "event", env.Event)
		return nil
	}

	var ev delivery.WsUserDataEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return errors.Wrapf(err, "decode %s", env.Event)
	}
	category := string(s.cfg.Category)

	switch env.Event {
	case EventOrderTradeUpdate:
		u := orderUpdate(category, &ev)
		if s.cfg.Category != "" {
			u.Tagged = strings.HasPrefix(u.ClientOrderID, s.cfg.Category.Prefix())
		}
		s.orderUpdates.Add(1)
		return s.handler.OnOrderUpdate(ctx, u)

	case EventAccountUpdate:
		s.accountUpdates.Add(1)
		return s.handler.OnAccountUpdate(ctx, accountUpdate(category, &ev))

	case EventMarginCall:
		s.marginCalls.Add(1)
		s.log.Warnw("margin call received", "positions", len(ev.MarginCallPositions), "cross_wallet_balance", ev.CrossWalletBalance)
		return s.handler.OnMarginCall(ctx, marginCall(category, &ev))

	default:
		var ac accountConfigEvent
		if err := json.Unmarshal(data, &ac); err != nil {
			return errors.Wrapf(err, "decode %s", env.Event)
		}
		return s.handler.OnAccountConfigUpdate(ctx, accountConfigUpdate(category, &ev, &ac))
	}
}

func (s *UserDataStream) closeListenKey() {
	if !s.cfg.CloseOnExit {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), closeListenKeyAfter)
	defer cancel()
	if err := s.keys.CloseListenKey(ctx); err != nil {
		s.log.Warnw("failed to close listen key", "error", err)
	}
}

func (s *UserDataStream) markConnected(up bool) {
	s.connected.Store(up)
	if up {
		metrics.UserDataConnections.Inc()
		s.statsMu.Lock()
		s.connectedSince = time.Now()
		s.statsMu.Unlock()
		return
	}
	metrics.UserDataConnections.Dec()
}

func (s *UserDataStream) recordError(err error) {
	if err == nil {
		return
	}
	s.errorCount.Add(1)
	s.statsMu.Lock()
	s.lastError = err
	s.statsMu.Unlock()
}

// IsConnected returns connection status
func (s *UserDataStream) IsConnected() bool {
	return s.connected.Load()
}

// Stats returns current statistics
func (s *UserDataStream) Stats() UserDataStats {
	s.statsMu.RLock()
	defer s.statsMu.RUnlock()

	return UserDataStats{
		ConnectedSince:   s.connectedSince,
		MessagesReceived: s.messages.Load(),
		OrderUpdates:     s.orderUpdates.Load(),
		AccountUpdates:   s.accountUpdates.Load(),
		MarginCalls:      s.marginCalls.Load(),
		ErrorCount:       s.errorCount.Load(),
		ReconnectCount:   s.reconnects.Load(),
		LastError:        s.lastError,
	}
}
