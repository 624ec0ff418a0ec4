package binance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/google/go-querystring/query"

	"coinm/internal/orderid"
	"coinm/pkg/errors"
	"coinm/pkg/logger"
)

const defaultExchangeInfoTTL = 5 * time.Minute

// Cache stores decoded responses between calls. The redis adapter satisfies it.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Config configures the coin-M client.
type Config struct {
	Category  orderid.Category
	Transport Transport

	// APIKey scopes per-account cache entries such as the listen key. It is hashed, never
	// stored. Signing stays with the transport.
	APIKey string

	// Authority issues client order ids. Defaults to an authority for Category.
	Authority *orderid.Authority

	// Cache and ExchangeInfoTTL control exchange info caching. Optional.
	Cache           Cache
	ExchangeInfoTTL time.Duration

	// Recorder journals batch outcomes. Optional, failures are logged only.
	Recorder Recorder

	Logger *logger.Logger
}

// CoinMClient is the coin-margined futures REST client. Each method is one request to one
// fixed endpoint; signed endpoints go through the private transport methods.
type CoinMClient struct {
	category  orderid.Category
	account   string
	transport Transport
	auth      *orderid.Authority
	cache     Cache
	infoTTL   time.Duration
	recorder  Recorder
	log       *logger.Logger
}

// NewCoinMClient creates a client for a coin-M category.
func NewCoinMClient(cfg Config) (*CoinMClient, error) {
	if cfg.Transport == nil {
		return nil, errors.NewValidationError("transport", "required", nil)
	}
	if _, err := RESTBaseURL(cfg.Category); err != nil {
		return nil, err
	}

	auth := cfg.Authority
	if auth == nil {
		auth = orderid.NewAuthority(cfg.Category)
	}
	if cfg.ExchangeInfoTTL <= 0 {
		cfg.ExchangeInfoTTL = defaultExchangeInfoTTL
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Get().With("component", "coinm_client", "category", string(cfg.Category))
	}

	return &CoinMClient{
		category:  cfg.Category,
		account:   accountTag(cfg.APIKey),
		transport: cfg.Transport,
		auth:      auth,
		cache:     cfg.Cache,
		infoTTL:   cfg.ExchangeInfoTTL,
		recorder:  cfg.Recorder,
		log:       log,
	}, nil
}

// Category returns the routing category of the client.
func (c *CoinMClient) Category() orderid.Category {
	return c.category
}

// GenerateNewOrderID returns a fresh client order id carrying the category prefix.
func (c *CoinMClient) GenerateNewOrderID() string {
	return c.auth.Generate()
}

// call dispatches to the transport method matching the endpoint.
func (c *CoinMClient) call(ctx context.Context, ep endpoint, params url.Values) ([]byte, error) {
	var (
		data []byte
		err  error
	)

	switch ep.method {
	case http.MethodGet:
		if ep.private {
			data, err = c.transport.GetPrivate(ctx, ep.path, params)
		} else {
			data, err = c.transport.Get(ctx, ep.path, params)
		}
	case http.MethodPost:
		if ep.private {
			data, err = c.transport.PostPrivate(ctx, ep.path, params)
		} else {
			data, err = c.transport.Post(ctx, ep.path, params)
		}
	case http.MethodPut:
		if ep.private {
			data, err = c.transport.PutPrivate(ctx, ep.path, params)
		} else {
			data, err = c.transport.Put(ctx, ep.path, params)
		}
	case http.MethodDelete:
		if ep.private {
			data, err = c.transport.DeletePrivate(ctx, ep.path, params)
		} else {
			data, err = c.transport.Delete(ctx, ep.path, params)
		}
	default:
		return nil, errors.Newf("unsupported method %s", ep.method)
	}

	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", ep.method, ep.path)
	}
	return data, nil
}

// request encodes in, calls ep and decodes the body into out. in may be nil, url.Values or
// a param struct; out may be nil when the body is not needed.
func (c *CoinMClient) request(ctx context.Context, ep endpoint, in interface{}, out interface{}) error {
	params, err := encodeParams(in)
	if err != nil {
		return err
	}

	data, err := c.call(ctx, ep, params)
	if err != nil {
		return err
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "decode %s response", ep.path)
	}
	return nil
}

// requestList is request for endpoints that answer with an object or an array depending
// on the filters; the result is always a slice.
func requestList[T any](ctx context.Context, c *CoinMClient, ep endpoint, in interface{}) ([]T, error) {
	params, err := encodeParams(in)
	if err != nil {
		return nil, err
	}

	data, err := c.call(ctx, ep, params)
	if err != nil {
		return nil, err
	}

	out, err := decodeOneOrMany[T](data)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s response", ep.path)
	}
	return out, nil
}

func encodeParams(in interface{}) (url.Values, error) {
	switch v := in.(type) {
	case nil:
		return url.Values{}, nil
	case url.Values:
		return v, nil
	default:
		values, err := query.Values(in)
		if err != nil {
			return nil, errors.Wrap(err, "encode request params")
		}
		return values, nil
	}
}
