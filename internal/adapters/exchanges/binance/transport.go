package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"coinm/internal/adapters/exchanges/ratelimit"
	"coinm/internal/adapters/exchanges/retry"
	"coinm/internal/metrics"
	"coinm/pkg/errors"
	"coinm/pkg/logger"
)

const (
	defaultRecvWindow  = 5 * time.Second
	defaultHTTPTimeout = 10 * time.Second

	headerAPIKey     = "X-MBX-APIKEY"
	headerUsedWeight = "X-Mbx-Used-Weight-1m"
	headerOrderCount = "X-Mbx-Order-Count-1m"
	usedWeightPrefix = "X-Mbx-Used-Weight-"
	orderCountPrefix = "X-Mbx-Order-Count-"
	formContentType  = "application/x-www-form-urlencoded"
)

// Transport performs HTTP requests against the coin-M api. Paths are relative to the
// base url, e.g. "dapi/v1/order". The private variants sign the request with the account
// credentials. Every method returns the raw response body of a successful call; a failed
// call returns an *APIError, or the underlying network error.
type Transport interface {
	Get(ctx context.Context, path string, params url.Values) ([]byte, error)
	Post(ctx context.Context, path string, params url.Values) ([]byte, error)
	Put(ctx context.Context, path string, params url.Values) ([]byte, error)
	Delete(ctx context.Context, path string, params url.Values) ([]byte, error)

	GetPrivate(ctx context.Context, path string, params url.Values) ([]byte, error)
	PostPrivate(ctx context.Context, path string, params url.Values) ([]byte, error)
	PutPrivate(ctx context.Context, path string, params url.Values) ([]byte, error)
	DeletePrivate(ctx context.Context, path string, params url.Values) ([]byte, error)
}

// TransportConfig configures the REST transport.
type TransportConfig struct {
	BaseURL   string
	APIKey    string
	SecretKey string

	RecvWindow time.Duration
	HTTPClient *http.Client

	// Limiter throttles requests locally before they leave the process. Optional.
	Limiter *ratelimit.MultiLimiter
	// Retry is applied to GET requests only. Optional.
	Retry *retry.Middleware

	// WeightLimit and WeightWarnRatio control the used weight warning. Zero disables it.
	WeightLimit     int
	WeightWarnRatio float64

	Logger *logger.Logger
}

// RateLimitState is the last usage reported by the exchange headers.
type RateLimitState struct {
	UsedWeight1m int64
	OrderCount1m int64
}

// RESTTransport is the HTTP implementation of Transport.
type RESTTransport struct {
	cfg        TransportConfig
	httpClient *http.Client
	log        *logger.Logger
	now        func() time.Time

	offsetMs   atomic.Int64
	usedWeight atomic.Int64
	orderCount atomic.Int64
}

// NewRESTTransport creates a transport for cfg.BaseURL.
func NewRESTTransport(cfg TransportConfig) (*RESTTransport, error) {
	if cfg.BaseURL == "" {
		return nil, errors.NewValidationError("base_url", "required", "")
	}
	if (cfg.APIKey == "") != (cfg.SecretKey == "") {
		return nil, errors.NewValidationError("credentials", "api key and secret key must be set together", "")
	}
	if cfg.RecvWindow <= 0 {
		cfg.RecvWindow = defaultRecvWindow
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Get().With("component", "binance_transport")
	}

	return &RESTTransport{
		cfg:        cfg,
		httpClient: httpClient,
		log:        log,
		now:        time.Now,
	}, nil
}

func (t *RESTTransport) Get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	return t.do(ctx, http.MethodGet, path, params, false)
}

func (t *RESTTransport) Post(ctx context.Context, path string, params url.Values) ([]byte, error) {
	return t.do(ctx, http.MethodPost, path, params, false)
}

func (t *RESTTransport) Put(ctx context.Context, path string, params url.Values) ([]byte, error) {
	return t.do(ctx, http.MethodPut, path, params, false)
}

func (t *RESTTransport) Delete(ctx context.Context, path string, params url.Values) ([]byte, error) {
	return t.do(ctx, http.MethodDelete, path, params, false)
}

func (t *RESTTransport) GetPrivate(ctx context.Context, path string, params url.Values) ([]byte, error) {
	return t.do(ctx, http.MethodGet, path, params, true)
}

func (t *RESTTransport) PostPrivate(ctx context.Context, path string, params url.Values) ([]byte, error) {
	return t.do(ctx, http.MethodPost, path, params, true)
}

func (t *RESTTransport) PutPrivate(ctx context.Context, path string, params url.Values) ([]byte, error) {
	return t.do(ctx, http.MethodPut, path, params, true)
}

func (t *RESTTransport) DeletePrivate(ctx context.Context, path string, params url.Values) ([]byte, error) {
	return t.do(ctx, http.MethodDelete, path, params, true)
}

// HasCredentials reports whether private calls can be signed.
func (t *RESTTransport) HasCredentials() bool {
	return t.cfg.APIKey != "" && t.cfg.SecretKey != ""
}

// RateLimits returns the usage last reported by the exchange.
func (t *RESTTransport) RateLimits() RateLimitState {
	return RateLimitState{
		UsedWeight1m: t.usedWeight.Load(),
		OrderCount1m: t.orderCount.Load(),
	}
}

// ClockOffset returns server time minus local time as of the last sync.
func (t *RESTTransport) ClockOffset() time.Duration {
	return time.Duration(t.offsetMs.Load()) * time.Millisecond
}

func (t *RESTTransport) do(ctx context.Context, method, path string, params url.Values, signed bool) ([]byte, error) {
	if signed && !t.HasCredentials() {
		return nil, errors.Wrapf(errors.ErrMissingCredentials, "%s %s", method, path)
	}
	if err := t.throttle(ctx, method, path); err != nil {
		return nil, err
	}

	start := time.Now()

	var (
		data []byte
		err  error
	)
	if method == http.MethodGet && t.cfg.Retry != nil {
		data, err = retry.DoValue(ctx, t.cfg.Retry, func() ([]byte, error) {
			return t.send(ctx, method, path, params, signed)
		})
	} else {
		data, err = t.send(ctx, method, path, params, signed)
	}

	metrics.RecordExchangeAPICall(path, time.Since(start), err, codeLabel(err))
	return data, err
}

func (t *RESTTransport) throttle(ctx context.Context, method, path string) error {
	if t.cfg.Limiter == nil {
		return nil
	}
	ep := lookupEndpoint(method, path)
	if err := t.cfg.Limiter.WaitN(ctx, ratelimit.KeyWeight, ep.weight); err != nil {
		return err
	}
	if ep.order {
		return t.cfg.Limiter.WaitN(ctx, ratelimit.KeyOrders, 1)
	}
	return nil
}

// send performs one attempt. Signed requests get a fresh timestamp per attempt.
func (t *RESTTransport) send(ctx context.Context, method, path string, params url.Values, signed bool) ([]byte, error) {
	query := cloneValues(params)
	var payload string
	if signed {
		query.Set("timestamp", strconv.FormatInt(t.timestamp(), 10))
		query.Set("recvWindow", strconv.FormatInt(t.cfg.RecvWindow.Milliseconds(), 10))
		payload = query.Encode()
		payload += "&signature=" + t.sign(payload)
	} else {
		payload = query.Encode()
	}

	reqURL := t.cfg.BaseURL + "/" + strings.TrimLeft(path, "/")

	var body io.Reader
	switch method {
	case http.MethodGet, http.MethodDelete:
		if payload != "" {
			reqURL += "?" + payload
		}
	default:
		body = strings.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", formContentType)
	}
	if t.cfg.APIKey != "" {
		req.Header.Set(headerAPIKey, t.cfg.APIKey)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	t.recordUsage(resp.Header)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response body")
	}

	if resp.StatusCode >= 400 {
		apiErr := parseAPIError(resp.StatusCode, data)
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			apiErr.Wait = time.Duration(secs) * time.Second
		}
		return nil, apiErr
	}

	return data, nil
}

func (t *RESTTransport) recordUsage(h http.Header) {
	for name, values := range h {
		if len(values) == 0 {
			continue
		}
		canonical := http.CanonicalHeaderKey(name)
		if !strings.HasPrefix(canonical, usedWeightPrefix) && !strings.HasPrefix(canonical, orderCountPrefix) {
			continue
		}
		v, err := strconv.ParseInt(values[0], 10, 64)
		if err != nil {
			continue
		}
		metrics.ExchangeUsedWeight.WithLabelValues(strings.ToLower(canonical)).Set(float64(v))

		switch canonical {
		case headerUsedWeight:
			t.usedWeight.Store(v)
			t.warnOnWeight(v)
		case headerOrderCount:
			t.orderCount.Store(v)
		}
	}
}

func (t *RESTTransport) warnOnWeight(used int64) {
	if t.cfg.WeightLimit <= 0 || t.cfg.WeightWarnRatio <= 0 {
		return
	}
	threshold := int64(float64(t.cfg.WeightLimit) * t.cfg.WeightWarnRatio)
	if used < threshold {
		return
	}
	t.log.Warnw("request weight is close to the per minute limit",
		"used", humanize.Comma(used),
		"limit", humanize.Comma(int64(t.cfg.WeightLimit)),
	)
}

func (t *RESTTransport) timestamp() int64 {
	return t.now().UnixMilli() + t.offsetMs.Load()
}

func (t *RESTTransport) sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(t.cfg.SecretKey))
	_, _ = mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// SyncTime measures the offset between the exchange clock and the local clock and uses it
// for every signed request that follows.
func (t *RESTTransport) SyncTime(ctx context.Context) (time.Duration, error) {
	sent := t.now()
	data, err := t.do(ctx, http.MethodGet, epServerTime.path, nil, false)
	if err != nil {
		return 0, errors.Wrap(err, "fetch server time")
	}
	received := t.now()

	var res ServerTime
	if err := json.Unmarshal(data, &res); err != nil {
		return 0, errors.Wrap(err, "decode server time")
	}

	// Assume the server stamped the response half way through the round trip.
	local := sent.UnixMilli() + (received.UnixMilli()-sent.UnixMilli())/2
	offset := res.ServerTime - local

	t.offsetMs.Store(offset)
	metrics.ExchangeClockOffset.Set(float64(offset))

	return time.Duration(offset) * time.Millisecond, nil
}

// StartTimeSync runs SyncTime every interval until ctx is done.
func (t *RESTTransport) StartTimeSync(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				offset, err := t.SyncTime(ctx)
				if err != nil {
					t.log.Warnw("server time sync failed", "error", err)
					continue
				}
				t.log.Debugw("server time synced", "offset", offset)
			}
		}
	}()
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v)+3)
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
