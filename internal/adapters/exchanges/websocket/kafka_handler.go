package websocket

import (
	"context"
	"strconv"

	"coinm/pkg/errors"
	"coinm/pkg/logger"
)

// User data topics
const (
	TopicOrderUpdates   = "userdata.order_updates"
	TopicAccountUpdates = "userdata.account_updates"
	TopicMarginCalls    = "userdata.margin_calls"
	TopicAccountConfig  = "userdata.account_config"
)

// UserDataTopics lists every topic KafkaHandler publishes to.
var UserDataTopics = []string{TopicOrderUpdates, TopicAccountUpdates, TopicMarginCalls, TopicAccountConfig}

// Publisher publishes one message. The kafka producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, key string, event interface{}) error
}

// KafkaHandler publishes user data events to Kafka.
type KafkaHandler struct {
	publisher Publisher
	log       *logger.Logger
}

func NewKafkaHandler(publisher Publisher, log *logger.Logger) *KafkaHandler {
	if log == nil {
		log = logger.Get().With("component", "userdata_kafka")
	}
	return &KafkaHandler{publisher: publisher, log: log}
}

// OnOrderUpdate keys by client order id so an order's updates stay on one partition.
func (h *KafkaHandler) OnOrderUpdate(ctx context.Context, event *OrderUpdate) error {
	if event == nil {
		return errors.New("received nil order update event")
	}
	key := event.ClientOrderID
	if key == "" {
		key = strconv.FormatInt(event.OrderID, 10)
	}
	return h.publish(ctx, TopicOrderUpdates, key, event)
}

func (h *KafkaHandler) OnAccountUpdate(ctx context.Context, event *AccountUpdate) error {
	if event == nil {
		return errors.New("received nil account update event")
	}
	return h.publish(ctx, TopicAccountUpdates, event.Category, event)
}

func (h *KafkaHandler) OnMarginCall(ctx context.Context, event *MarginCall) error {
	if event == nil {
		return errors.New("received nil margin call event")
	}
	return h.publish(ctx, TopicMarginCalls, event.Category, event)
}

func (h *KafkaHandler) OnAccountConfigUpdate(ctx context.Context, event *AccountConfigUpdate) error {
	if event == nil {
		return errors.New("received nil account config event")
	}
	return h.publish(ctx, TopicAccountConfig, event.Symbol, event)
}

func (h *KafkaHandler) publish(ctx context.Context, topic, key string, event interface{}) error {
	if err := h.publisher.Publish(ctx, topic, key, event); err != nil {
		h.log.Errorw("failed to publish user data event", "topic", topic, "key", key, "error", err)
		return errors.Wrapf(err, "publish to %s", topic)
	}
	return nil
}

// Handlers fans an event out to several handlers. Every handler is called; the first
// error is returned.
type Handlers []Handler

func (hs Handlers) OnOrderUpdate(ctx context.Context, event *OrderUpdate) error {
	var first error
	for _, h := range hs {
		if err := h.OnOrderUpdate(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (hs Handlers) OnAccountUpdate(ctx context.Context, event *AccountUpdate) error {
	var first error
	for _, h := range hs {
		if err := h.OnAccountUpdate(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (hs Handlers) OnMarginCall(ctx context.Context, event *MarginCall) error {
	var first error
	for _, h := range hs {
		if err := h.OnMarginCall(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (hs Handlers) OnAccountConfigUpdate(ctx context.Context, event *AccountConfigUpdate) error {
	var first error
	for _, h := range hs {
		if err := h.OnAccountConfigUpdate(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}
