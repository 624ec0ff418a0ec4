package exchangefactory

import (
	"context"

	"coinm/internal/adapters/config"
	"coinm/internal/adapters/exchanges/binance"
	"coinm/internal/adapters/exchanges/ratelimit"
	"coinm/internal/adapters/exchanges/retry"
	"coinm/internal/adapters/exchanges/websocket"
	"coinm/internal/adapters/kafka"
	"coinm/internal/adapters/postgres"
	"coinm/internal/adapters/redis"
	"coinm/internal/domain/order"
	"coinm/internal/orderid"
	pgrepo "coinm/internal/repository/postgres"
	"coinm/pkg/errors"
	"coinm/pkg/logger"
)

// Stack is a wired coin-M client with its optional infrastructure. Close releases
// everything Build opened.
type Stack struct {
	Category  orderid.Category
	Transport *binance.RESTTransport
	Client    *binance.CoinMClient
	Adapter   *binance.Adapter

	// Optional parts, nil when disabled in config
	Cache    *redis.Client
	Postgres *postgres.Client
	Journal  *order.Service
	Producer *kafka.Producer

	cfg     *config.Config
	closers []func() error
	log     *logger.Logger
}

// Option customizes Build.
type Option func(*options)

type options struct {
	transport binance.Transport
	hedgeMode bool
}

// WithTransport replaces the REST transport, e.g. with a test double.
func WithTransport(t binance.Transport) Option {
	return func(o *options) { o.transport = t }
}

// WithHedgeMode makes the adapter send positionSide instead of reduceOnly.
func WithHedgeMode(enabled bool) Option {
	return func(o *options) { o.hedgeMode = enabled }
}

// Build wires the client from configuration. Redis, Postgres and Kafka are connected
// only when enabled; a failure to reach an enabled one fails the build.
func Build(ctx context.Context, cfg *config.Config, opts ...Option) (*Stack, error) {
	if cfg == nil {
		return nil, errors.NewValidationError("config", "required", nil)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	category, err := orderid.ParseCategory(cfg.Binance.Category())
	if err != nil {
		return nil, err
	}

	s := &Stack{
		Category: category,
		cfg:      cfg,
		log:      logger.Get().With("component", "exchangefactory", "category", string(category)),
	}

	transport := o.transport
	if transport == nil {
		rt, err := newTransport(cfg, category)
		if err != nil {
			return nil, err
		}
		s.Transport = rt
		transport = rt
	}

	clientCfg := binance.Config{
		Category:        category,
		Transport:       transport,
		APIKey:          cfg.Binance.APIKey,
		ExchangeInfoTTL: cfg.Binance.ExchangeInfoTTL,
	}

	if cfg.Redis.Enabled {
		rc, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, s.fail(err)
		}
		s.Cache = rc
		s.closers = append(s.closers, rc.Close)
		clientCfg.Cache = rc
	}

	var (
		repo      order.Repository
		publisher order.EventPublisher
	)

	if cfg.Postgres.Enabled {
		pg, err := postgres.NewClient(ctx, cfg.Postgres)
		if err != nil {
			return nil, s.fail(err)
		}
		s.Postgres = pg
		s.closers = append(s.closers, pg.Close)

		journal := pgrepo.NewOrderJournalRepository(pg.DB())
		if err := journal.EnsureSchema(ctx); err != nil {
			return nil, s.fail(err)
		}
		repo = journal
	}

	if cfg.Kafka.Enabled {
		p, err := kafka.NewProducer(kafka.ProducerConfig{Brokers: cfg.Kafka.Brokers})
		if err != nil {
			return nil, s.fail(err)
		}
		s.Producer = p
		s.closers = append(s.closers, p.Close)
		publisher = p
	}

	if repo != nil || publisher != nil {
		s.Journal = order.NewService(repo, publisher)
		clientCfg.Recorder = s.Journal
	}

	client, err := binance.NewCoinMClient(clientCfg)
	if err != nil {
		return nil, s.fail(err)
	}
	s.Client = client
	s.Adapter = binance.NewAdapter(client, binance.WithHedgeMode(o.hedgeMode))

	s.log.Infow("coin-M client ready",
		"credentials", cfg.Binance.HasCredentials(),
		"cache", s.Cache != nil,
		"journal", repo != nil,
		"events", publisher != nil,
	)
	return s, nil
}

func newTransport(cfg *config.Config, category orderid.Category) (*binance.RESTTransport, error) {
	baseURL := cfg.Binance.BaseURL
	if baseURL == "" {
		u, err := binance.RESTBaseURL(category)
		if err != nil {
			return nil, err
		}
		baseURL = u
	}

	tc := binance.TransportConfig{
		BaseURL:    baseURL,
		APIKey:     cfg.Binance.APIKey,
		SecretKey:  cfg.Binance.SecretKey,
		RecvWindow: cfg.Binance.RecvWindow,
		Retry: retry.New(retry.Config{
			MaxRetries:   cfg.Retry.MaxRetries,
			InitialDelay: cfg.Retry.InitialDelay,
			MaxDelay:     cfg.Retry.MaxDelay,
			Strategy:     retry.Strategy(cfg.Retry.Strategy),
		}),
	}
	if cfg.Binance.HTTPTimeout > 0 {
		tc.HTTPClient = newHTTPClient(cfg.Binance.HTTPTimeout)
	}
	if cfg.RateLimit.Enabled {
		tc.Limiter = ratelimit.NewCoinMLimiters(cfg.RateLimit.WeightPerMinute, cfg.RateLimit.OrdersPerMinute)
		tc.WeightLimit = cfg.RateLimit.WeightPerMinute
		tc.WeightWarnRatio = cfg.RateLimit.WeightWarnRatio
	}

	return binance.NewRESTTransport(tc)
}

// StartTimeSync keeps the signing clock aligned with the exchange in the background.
// It is a no-op for injected transports or when the interval is zero.
func (s *Stack) StartTimeSync(ctx context.Context) {
	if s.Transport == nil || s.cfg.Binance.TimeSyncInterval <= 0 {
		return
	}
	s.Transport.StartTimeSync(ctx, s.cfg.Binance.TimeSyncInterval)
}

// NewUserDataStream builds a stream for the stack's category. Events go to handler and,
// when Kafka is enabled, to the user data topics as well.
func (s *Stack) NewUserDataStream(handler websocket.Handler) (*websocket.UserDataStream, error) {
	baseURL, err := binance.StreamBaseURL(s.Category)
	if err != nil {
		return nil, err
	}

	handlers := websocket.Handlers{}
	if handler != nil {
		handlers = append(handlers, handler)
	}
	if s.Producer != nil {
		handlers = append(handlers, websocket.NewKafkaHandler(s.Producer, nil))
	}
	if len(handlers) == 0 {
		return nil, errors.NewValidationError("handler", "required when kafka is disabled", nil)
	}

	return websocket.NewUserDataStream(s.Client, handlers, websocket.UserDataConfig{
		BaseURL:     baseURL,
		Category:    s.Category,
		Reconnect:   websocket.DefaultReconnectConfig(),
		CloseOnExit: true,
	})
}

// Health checks every enabled backend.
func (s *Stack) Health(ctx context.Context) error {
	errs := &errors.MultiError{}
	if s.Cache != nil {
		errs.Add(errors.Wrap(s.Cache.Health(ctx), "redis"))
	}
	if s.Postgres != nil {
		errs.Add(errors.Wrap(s.Postgres.Health(ctx), "postgres"))
	}
	errs.Add(errors.Wrap(s.Client.Ping(ctx), "exchange"))
	return errs.ToError()
}

// Close releases everything in reverse order of opening.
func (s *Stack) Close() error {
	errs := &errors.MultiError{}
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs.Add(s.closers[i]())
	}
	s.closers = nil
	return errs.ToError()
}

func (s *Stack) fail(err error) error {
	if cerr := s.Close(); cerr != nil {
		s.log.Warnw("cleanup after failed build", "error", cerr)
	}
	return err
}
