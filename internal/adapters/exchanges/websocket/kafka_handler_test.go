package websocket

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coinm/pkg/errors"
	"coinm/pkg/logger"
)

type published struct {
	topic string
	key   string
	event interface{}
}

type fakePublisher struct {
	sent []published
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, topic, key string, event interface{}) error {
	f.sent = append(f.sent, published{topic, key, event})
	return f.err
}

func TestKafkaHandlerTopicsAndKeys(t *testing.T) {
	pub := &fakePublisher{}
	h := NewKafkaHandler(pub, logger.Nop())
	ctx := context.Background()

	require.NoError(t, h.OnOrderUpdate(ctx, &OrderUpdate{ClientOrderID: "x-15PC4ZJyabc", OrderID: 1}))
	require.NoError(t, h.OnOrderUpdate(ctx, &OrderUpdate{OrderID: 42}))
	require.NoError(t, h.OnAccountUpdate(ctx, &AccountUpdate{Category: "coinm"}))
	require.NoError(t, h.OnMarginCall(ctx, &MarginCall{Category: "coinm"}))
	require.NoError(t, h.OnAccountConfigUpdate(ctx, &AccountConfigUpdate{Symbol: "BTCUSD_PERP", Leverage: 20}))

	require.Len(t, pub.sent, 5)
	assert.Equal(t, published{TopicOrderUpdates, "x-15PC4ZJyabc", &OrderUpdate{ClientOrderID: "x-15PC4ZJyabc", OrderID: 1}}, pub.sent[0])
	assert.Equal(t, "42", pub.sent[1].key)
	assert.Equal(t, TopicAccountUpdates, pub.sent[2].topic)
	assert.Equal(t, TopicMarginCalls, pub.sent[3].topic)
	assert.Equal(t, TopicAccountConfig, pub.sent[4].topic)
	assert.Equal(t, "BTCUSD_PERP", pub.sent[4].key)

	assert.Error(t, h.OnOrderUpdate(ctx, nil))
}

func TestKafkaHandlerPublishFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.ErrUnavailable}
	h := NewKafkaHandler(pub, logger.Nop())

	err := h.OnMarginCall(context.Background(), &MarginCall{})
	assert.True(t, errors.Is(err, errors.ErrUnavailable))
}

func TestHandlersFanOut(t *testing.T) {
	failing := NewKafkaHandler(&fakePublisher{err: errors.ErrUnavailable}, logger.Nop())
	rec := &recordingHandler{}
	hs := Handlers{failing, rec}

	err := hs.OnOrderUpdate(context.Background(), &OrderUpdate{OrderID: 1})
	assert.Error(t, err)
	assert.Len(t, rec.orders, 1, "later handlers still run")

	assert.NoError(t, Handlers{rec}.OnAccountUpdate(context.Background(), &AccountUpdate{}))
}
