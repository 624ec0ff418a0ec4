package binance

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coinm/internal/adapters/exchanges"
	"coinm/pkg/errors"
)

func TestAdapterPlaceOrdersReportsEachOutcome(t *testing.T) {
	tr := &stubTransport{respond: func(call stubCall) ([]byte, error) {
		var sent []map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(call.params.Get("batchOrders")), &sent))
		return []byte(`[{"orderId":5,"clientOrderId":"` + sent[0]["newClientOrderId"].(string) + `","symbol":"BTCUSD_PERP","side":"BUY","type":"LIMIT","status":"NEW","price":"30000","origQty":"2"},` +
			`{"code":-4164,"msg":"Order's notional must be no smaller than 5.0"}]`), nil
	}}
	c, _ := newTestClient(t, tr)
	a := NewAdapter(c)

	reqs := []*exchanges.OrderRequest{
		{Symbol: "btcusd-perp", Side: exchanges.OrderSideBuy, Type: exchanges.OrderTypeLimit, Quantity: decimal.NewFromInt(2), Price: decimal.NewFromInt(30000)},
		{Symbol: "btcusd-perp", Side: exchanges.OrderSideBuy, Type: exchanges.OrderTypeLimit, Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(1)},
	}

	outcomes, err := a.PlaceOrders(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	assert.True(t, outcomes[0].OK())
	assert.Same(t, reqs[0], outcomes[0].Request)
	assert.Equal(t, "5", outcomes[0].Order.ID)
	assert.Equal(t, exchanges.MarketTypeInversePerp, outcomes[0].Order.Market)
	assert.Equal(t, exchanges.OrderStatusNew, outcomes[0].Order.Status)
	assert.Equal(t, reqs[0].ClientOrderID, outcomes[0].Order.ClientOrderID)

	assert.False(t, outcomes[1].OK())
	assert.True(t, errors.Is(outcomes[1].Err, errors.ErrOrderRejected))
	assert.True(t, strings.HasPrefix(reqs[1].ClientOrderID, "x-15PC4ZJy"))
	assert.NotEqual(t, reqs[0].ClientOrderID, reqs[1].ClientOrderID)

	assert.Equal(t, MaxBatchOrders, a.MaxBatchSize())
	assert.Equal(t, "binance_coinm", a.Name())
}

func TestAdapterPlaceOrdersCallFailure(t *testing.T) {
	tr := &stubTransport{respond: func(stubCall) ([]byte, error) {
		return nil, &APIError{HTTPStatus: 400, Code: -1130, Msg: "Data sent for parameter 'batchOrders' is not valid."}
	}}
	c, _ := newTestClient(t, tr)

	outcomes, err := NewAdapter(c).PlaceOrders(context.Background(), []*exchanges.OrderRequest{
		{Symbol: "BTCUSD_PERP", Side: exchanges.OrderSideSell, Type: exchanges.OrderTypeMarket, Quantity: decimal.NewFromInt(1)},
	})
	require.Error(t, err)
	assert.Nil(t, outcomes)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestAdapterNewOrderParams(t *testing.T) {
	c, _ := newTestClient(t, &stubTransport{})

	tests := []struct {
		name  string
		hedge bool
		req   exchanges.OrderRequest
		want  NewOrderParams
	}{
		{
			name: "limit defaults to GTC",
			req:  exchanges.OrderRequest{Symbol: "btcusd-perp", Side: exchanges.OrderSideBuy, Type: exchanges.OrderTypeLimit, Quantity: decimal.NewFromInt(3), Price: decimal.RequireFromString("29000.5")},
			want: NewOrderParams{Symbol: "BTCUSD_PERP", Side: SideBuy, Type: OrderTypeLimit, Quantity: "3", Price: "29000.5", TimeInForce: TimeInForceGTC},
		},
		{
			name: "stop market reduce only",
			req:  exchanges.OrderRequest{Symbol: "ETHUSD_PERP", Side: exchanges.OrderSideSell, Type: exchanges.OrderTypeStopMarket, Quantity: decimal.NewFromInt(1), StopPrice: decimal.NewFromInt(1500), ReduceOnly: true},
			want: NewOrderParams{Symbol: "ETHUSD_PERP", Side: SideSell, Type: OrderTypeStopMarket, Quantity: "1", StopPrice: "1500", ReduceOnly: true},
		},
		{
			name:  "hedge mode closes the opposite leg",
			hedge: true,
			req:   exchanges.OrderRequest{Symbol: "ETHUSD_PERP", Side: exchanges.OrderSideSell, Type: exchanges.OrderTypeMarket, Quantity: decimal.NewFromInt(1), ReduceOnly: true},
			want:  NewOrderParams{Symbol: "ETHUSD_PERP", Side: SideSell, Type: OrderTypeMarket, Quantity: "1", PositionSide: PositionSideLong},
		},
		{
			name:  "hedge mode explicit side wins",
			hedge: true,
			req:   exchanges.OrderRequest{Symbol: "ETHUSD_PERP", Side: exchanges.OrderSideBuy, Type: exchanges.OrderTypeStopLimit, Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(2), StopPrice: decimal.NewFromInt(2), TimeInForce: exchanges.TimeInForceIOC, PositionSide: exchanges.PositionSideShort},
			want:  NewOrderParams{Symbol: "ETHUSD_PERP", Side: SideBuy, Type: OrderTypeStop, Quantity: "1", Price: "2", StopPrice: "2", TimeInForce: TimeInForceIOC, PositionSide: PositionSideShort},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAdapter(c, WithHedgeMode(tt.hedge))
			assert.Equal(t, tt.want, a.newOrderParams(&tt.req))
		})
	}
}

func TestAdapterCancelOrderIDParsing(t *testing.T) {
	tr := &stubTransport{}
	c, _ := newTestClient(t, tr)
	a := NewAdapter(c)

	require.NoError(t, a.CancelOrder(context.Background(), "btcusd-perp", "123456"))
	call := tr.lastCall(t)
	assert.Equal(t, "123456", call.params.Get("orderId"))
	assert.False(t, call.params.Has("origClientOrderId"))
	assert.Equal(t, "BTCUSD_PERP", call.params.Get("symbol"))

	require.NoError(t, a.CancelOrder(context.Background(), "BTCUSD_PERP", "x-15PC4ZJy-abc"))
	call = tr.lastCall(t)
	assert.Equal(t, "x-15PC4ZJy-abc", call.params.Get("origClientOrderId"))
	assert.False(t, call.params.Has("orderId"))
}

func TestAdapterGetBalance(t *testing.T) {
	tr := &stubTransport{respond: func(stubCall) ([]byte, error) {
		return []byte(`[{"asset":"BTC","balance":"0.5","availableBalance":"0.4","crossUnPnl":"-0.01"},{"asset":"ETH","balance":"0","availableBalance":"0"}]`), nil
	}}
	c, _ := newTestClient(t, tr)

	bal, err := NewAdapter(c).GetBalance(context.Background())
	require.NoError(t, err)
	assert.Len(t, bal.Details, 2)
	assert.Equal(t, "BTC", bal.Currency)
	assert.True(t, bal.Total.Equal(decimal.RequireFromString("0.5")))
	assert.True(t, bal.Available.Equal(decimal.RequireFromString("0.4")))
	assert.True(t, bal.Details[0].UnrealizedPnL.Equal(decimal.RequireFromString("-0.01")))
}

func TestAdapterGetPositionsSkipsFlat(t *testing.T) {
	tr := &stubTransport{respond: func(stubCall) ([]byte, error) {
		return []byte(`[
			{"symbol":"BTCUSD_PERP","positionAmt":"-3","entryPrice":"30000","marginType":"isolated","positionSide":"BOTH","leverage":"5"},
			{"symbol":"ETHUSD_PERP","positionAmt":"0","positionSide":"BOTH"},
			{"symbol":"ETHUSD_PERP","positionAmt":"2","positionSide":"LONG","marginType":"cross"}
		]`), nil
	}}
	c, _ := newTestClient(t, tr)

	positions, err := NewAdapter(c).GetPositions(context.Background())
	require.NoError(t, err)
	require.Len(t, positions, 2)

	assert.Equal(t, exchanges.PositionSideShort, positions[0].Side)
	assert.True(t, positions[0].Size.Equal(decimal.NewFromInt(3)))
	assert.Equal(t, exchanges.MarginIsolated, positions[0].MarginMode)
	assert.Equal(t, exchanges.PositionSideLong, positions[1].Side)
	assert.Equal(t, exchanges.MarginCross, positions[1].MarginMode)
}
