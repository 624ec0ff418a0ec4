package binance

import (
	"context"
	"encoding/json"
	"net/url"

	"coinm/internal/orderid"
	"coinm/pkg/errors"
)

// SetPositionMode switches between hedge mode (true) and one-way mode for every symbol.
func (c *CoinMClient) SetPositionMode(ctx context.Context, dualSidePosition bool) error {
	return c.request(ctx, epSetPositionMode, PositionModeParams{DualSidePosition: dualSidePosition}, nil)
}

func (c *CoinMClient) GetPositionMode(ctx context.Context) (*PositionMode, error) {
	var res PositionMode
	if err := c.request(ctx, epGetPositionMode, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SubmitNewOrder places one order. An empty NewClientOrderID is filled with a generated id
// before sending; params holds the id the order went out with when the call returns.
func (c *CoinMClient) SubmitNewOrder(ctx context.Context, params *NewOrderParams) (*OrderResult, error) {
	if params == nil {
		return nil, errors.NewValidationError("params", "required", nil)
	}
	c.auth.Ensure(orderid.PropertyNewClientOrderID, &params.NewClientOrderID, *params)

	var res OrderResult
	if err := c.request(ctx, epNewOrder, *params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ModifyOrder amends an open limit order. The order is referenced, never re-identified.
func (c *CoinMClient) ModifyOrder(ctx context.Context, params ModifyOrderParams) (*OrderResult, error) {
	var res OrderResult
	if err := c.request(ctx, epModifyOrder, params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *CoinMClient) GetOrder(ctx context.Context, params OrderQueryParams) (*OrderResult, error) {
	var res OrderResult
	if err := c.request(ctx, epGetOrder, params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *CoinMClient) CancelOrder(ctx context.Context, params OrderQueryParams) (*OrderResult, error) {
	var res OrderResult
	if err := c.request(ctx, epCancelOrder, params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SubmitMultipleOrders places up to MaxBatchOrders orders in one call. Every order gets a
// client order id; ids generated here are written back into orders. Rejected elements are
// reported in the results, the returned error is set only when the call itself failed.
func (c *CoinMClient) SubmitMultipleOrders(ctx context.Context, orders []NewOrderParams) (BatchResults[OrderResult], error) {
	params, err := encodeNewOrderBatch(c.auth, orders)
	if err != nil {
		return nil, err
	}

	results, err := c.batch(ctx, epBatchOrders, params)
	if err != nil {
		return nil, err
	}
	c.journalPlacements(ctx, orders, results)
	return results, nil
}

// ModifyMultipleOrders amends up to MaxBatchOrders orders in one call.
func (c *CoinMClient) ModifyMultipleOrders(ctx context.Context, orders []ModifyOrderParams) (BatchResults[OrderResult], error) {
	params, err := encodeModifyBatch(orders)
	if err != nil {
		return nil, err
	}

	results, err := c.batch(ctx, epModifyBatchOrders, params)
	if err != nil {
		return nil, err
	}
	c.journalModifications(ctx, orders, results)
	return results, nil
}

// CancelMultipleOrders cancels orders of one symbol by exchange id and/or client id.
func (c *CoinMClient) CancelMultipleOrders(ctx context.Context, params CancelMultipleOrdersParams) (BatchResults[OrderResult], error) {
	results, err := c.batch(ctx, epCancelBatchOrders, encodeCancelBatch(params))
	if err != nil {
		return nil, err
	}
	c.journalCancellations(ctx, params, results)
	return results, nil
}

func (c *CoinMClient) batch(ctx context.Context, ep endpoint, params url.Values) (BatchResults[OrderResult], error) {
	data, err := c.call(ctx, ep, params)
	if err != nil {
		return nil, err
	}

	var results BatchResults[OrderResult]
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, errors.Wrapf(err, "decode %s response", ep.path)
	}
	return results, nil
}

// CancelAllOpenOrders cancels every open order of symbol.
func (c *CoinMClient) CancelAllOpenOrders(ctx context.Context, symbol string) error {
	return c.request(ctx, epCancelAllOpenOrders, SymbolParams{Symbol: symbol}, nil)
}

// SetCancelOrdersOnTimeout arms the dead man's switch for symbol: open orders are canceled
// unless the countdown is renewed within CountdownTime milliseconds. Zero disarms it.
func (c *CoinMClient) SetCancelOrdersOnTimeout(ctx context.Context, params CountdownCancelParams) (*CountdownCancelResult, error) {
	var res CountdownCancelResult
	if err := c.request(ctx, epCountdownCancelAll, params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *CoinMClient) GetCurrentOpenOrder(ctx context.Context, params OrderQueryParams) (*OrderResult, error) {
	var res OrderResult
	if err := c.request(ctx, epOpenOrder, params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetAllOpenOrders returns open orders of one symbol or pair, or of every symbol when both
// are empty.
func (c *CoinMClient) GetAllOpenOrders(ctx context.Context, params SymbolParams) ([]OrderResult, error) {
	var res []OrderResult
	if err := c.request(ctx, epOpenOrders, params, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *CoinMClient) GetAllOrders(ctx context.Context, params AllOrdersParams) ([]OrderResult, error) {
	var res []OrderResult
	if err := c.request(ctx, epAllOrders, params, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *CoinMClient) GetOrderModifyHistory(ctx context.Context, params OrderAmendmentParams) ([]OrderAmendment, error) {
	var res []OrderAmendment
	if err := c.request(ctx, epOrderAmendment, params, &res); err != nil {
		return nil, err
	}
	return res, nil
}
