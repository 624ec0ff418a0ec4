package binance

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"coinm/internal/orderid"
	"coinm/pkg/logger"
)

type stubCall struct {
	method  string
	path    string
	private bool
	params  url.Values
}

// stubTransport records every call and answers through respond.
type stubTransport struct {
	mu      sync.Mutex
	calls   []stubCall
	respond func(call stubCall) ([]byte, error)
}

func (s *stubTransport) handle(method, path string, private bool, params url.Values) ([]byte, error) {
	call := stubCall{method: method, path: path, private: private, params: params}
	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()
	if s.respond == nil {
		return []byte("{}"), nil
	}
	return s.respond(call)
}

func (s *stubTransport) lastCall(t *testing.T) stubCall {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.calls, "no transport call recorded")
	return s.calls[len(s.calls)-1]
}

func (s *stubTransport) Get(_ context.Context, path string, p url.Values) ([]byte, error) {
	return s.handle(http.MethodGet, path, false, p)
}
func (s *stubTransport) Post(_ context.Context, path string, p url.Values) ([]byte, error) {
	return s.handle(http.MethodPost, path, false, p)
}
func (s *stubTransport) Put(_ context.Context, path string, p url.Values) ([]byte, error) {
	return s.handle(http.MethodPut, path, false, p)
}
func (s *stubTransport) Delete(_ context.Context, path string, p url.Values) ([]byte, error) {
	return s.handle(http.MethodDelete, path, false, p)
}
func (s *stubTransport) GetPrivate(_ context.Context, path string, p url.Values) ([]byte, error) {
	return s.handle(http.MethodGet, path, true, p)
}
func (s *stubTransport) PostPrivate(_ context.Context, path string, p url.Values) ([]byte, error) {
	return s.handle(http.MethodPost, path, true, p)
}
func (s *stubTransport) PutPrivate(_ context.Context, path string, p url.Values) ([]byte, error) {
	return s.handle(http.MethodPut, path, true, p)
}
func (s *stubTransport) DeletePrivate(_ context.Context, path string, p url.Values) ([]byte, error) {
	return s.handle(http.MethodDelete, path, true, p)
}

// newTestClient builds a live coin-M client over tr. Warnings of the id authority land in
// the returned observer.
func newTestClient(t *testing.T, tr Transport, opts ...func(*Config)) (*CoinMClient, *observer.ObservedLogs) {
	t.Helper()

	core, logs := observer.New(zapcore.WarnLevel)
	log := logger.New(zap.New(core))

	cfg := Config{
		Category:  orderid.CategoryCoinM,
		Transport: tr,
		Authority: orderid.NewAuthority(orderid.CategoryCoinM, orderid.WithLogger(log)),
		Logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	c, err := NewCoinMClient(cfg)
	require.NoError(t, err)
	return c, logs
}
