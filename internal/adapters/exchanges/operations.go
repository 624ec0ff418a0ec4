package exchanges

import (
	"context"

	"github.com/shopspring/decimal"

	"coinm/pkg/errors"
)

// ExecuteBracketOrder places the entry, then the stop-loss and take-profit legs. The entry
// must be accepted before any exit leg is sent. Exit legs go out in batches when the
// exchange supports it; a rejected exit leg does not fail the call and is reported in
// Outcomes.
func ExecuteBracketOrder(ctx context.Context, ex Exchange, req BracketOrderRequest) (*BracketOrderResponse, error) {
	if req.Entry.Symbol == "" || req.Entry.Quantity.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidRequest
	}

	entryReq := req.Entry
	entryOrder, err := ex.PlaceOrder(ctx, &entryReq)
	if err != nil {
		return nil, err
	}

	resp := &BracketOrderResponse{
		Entry:    entryOrder,
		Outcomes: []OrderOutcome{{Request: &entryReq, Order: entryOrder}},
	}

	exitSide := oppositeSide(req.Entry.Side)
	exits := make([]*OrderRequest, 0, len(req.TakeProfit)+1)

	if req.StopLoss != nil {
		slReq := deriveExitRequest(req.Entry, *req.StopLoss, exitSide)
		slReq.Type = fallbackOrderType(req.StopLoss.Type, OrderTypeStopMarket)
		slReq.StopPrice = req.StopLoss.Price
		if slReq.Type == OrderTypeStopMarket {
			slReq.Price = decimal.Zero
		}
		exits = append(exits, &slReq)
	}

	for _, tp := range req.TakeProfit {
		tpReq := deriveExitRequest(req.Entry, tp, exitSide)
		if tpReq.Quantity.IsZero() {
			tpReq.Quantity = req.Entry.Quantity
		}
		exits = append(exits, &tpReq)
	}

	outcomes, err := placeAll(ctx, ex, exits)
	resp.Outcomes = append(resp.Outcomes, outcomes...)

	for i, o := range outcomes {
		if req.StopLoss != nil && i == 0 {
			resp.StopLoss = o.Order
			continue
		}
		resp.TakeProfit = append(resp.TakeProfit, o.Order)
	}

	return resp, err
}

// ExecuteLadderOrder breaks a large order into multiple limit orders. Every step is
// validated before anything is sent. Steps rejected by the exchange are reported in
// Outcomes; the error is set only when a call failed, with the steps sent so far.
func ExecuteLadderOrder(ctx context.Context, ex Exchange, req LadderOrderRequest) (*LadderOrderResponse, error) {
	if req.Template.Symbol == "" || len(req.Steps) == 0 {
		return nil, ErrInvalidRequest
	}

	reqs := make([]*OrderRequest, 0, len(req.Steps))
	for _, step := range req.Steps {
		if step.Amount.LessThanOrEqual(decimal.Zero) || step.Price.LessThanOrEqual(decimal.Zero) {
			return nil, ErrInvalidRequest
		}

		stepReq := req.Template
		stepReq.Type = fallbackOrderType(stepReq.Type, OrderTypeLimit)
		stepReq.Price = step.Price
		stepReq.Quantity = step.Amount
		stepReq.Tag = step.Tag
		stepReq.ClientOrderID = ""
		reqs = append(reqs, &stepReq)
	}

	outcomes, err := placeAll(ctx, ex, reqs)

	result := &LadderOrderResponse{Outcomes: outcomes}
	for _, o := range outcomes {
		if o.OK() {
			result.Orders = append(result.Orders, o.Order)
		}
	}

	return result, err
}

// placeAll sends reqs in batches of the exchange's size when it supports batching and one
// by one otherwise. Outcomes are in request order. On a failed batch call the outcomes of
// the batches before it are returned with the error.
func placeAll(ctx context.Context, ex Exchange, reqs []*OrderRequest) ([]OrderOutcome, error) {
	outcomes := make([]OrderOutcome, 0, len(reqs))
	if len(reqs) == 0 {
		return outcomes, nil
	}

	bx, ok := ex.(BatchExchange)
	if !ok || bx.MaxBatchSize() < 2 {
		for _, r := range reqs {
			order, err := ex.PlaceOrder(ctx, r)
			outcomes = append(outcomes, OrderOutcome{Request: r, Order: order, Err: err})
		}
		return outcomes, nil
	}

	size := bx.MaxBatchSize()
	for start := 0; start < len(reqs); start += size {
		end := min(start+size, len(reqs))
		chunk, err := bx.PlaceOrders(ctx, reqs[start:end])
		if err != nil {
			return outcomes, errors.Wrapf(err, "place orders %d-%d of %d", start, end-1, len(reqs))
		}
		outcomes = append(outcomes, chunk...)
	}
	return outcomes, nil
}

func rejectedOutcomes(outcomes []OrderOutcome) []OrderOutcome {
	var out []OrderOutcome
	for _, o := range outcomes {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}

// ClosePosition submits a reduce-only market order to close an active position.
func ClosePosition(ctx context.Context, ex Exchange, symbol string, market MarketType, side PositionSide, amount decimal.Decimal) (*Order, error) {
	if symbol == "" || amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidRequest
	}

	orderSide := oppositeSide(positionSideToOrderSide(side))
	req := OrderRequest{
		Symbol:       symbol,
		Market:       market,
		Side:         orderSide,
		Type:         OrderTypeMarket,
		Quantity:     amount,
		TimeInForce:  TimeInForceIOC,
		ReduceOnly:   true,
		PositionSide: side,
	}

	return ex.PlaceOrder(ctx, &req)
}

// ProtectionRequest defines stop-loss and take-profit placement request.
type ProtectionRequest struct {
	Symbol          string
	Market          MarketType
	PositionSide    PositionSide
	Quantity        decimal.Decimal
	StopLossPrice   decimal.Decimal
	TakeProfitPrice decimal.Decimal
	StopOrderType   OrderType
	TakeProfitType  OrderType
	TimeInForce     TimeInForce
	Tag             string
}

// ProtectionResponse returns any created protective orders. Outcomes holds every leg that
// was sent, rejected ones included.
type ProtectionResponse struct {
	StopLoss   *Order
	TakeProfit *Order
	Outcomes   []OrderOutcome
}

// UpdateProtectionOrders creates stop-loss and take-profit orders for an open position.
// Both legs share one batch when the exchange supports it.
func UpdateProtectionOrders(ctx context.Context, ex Exchange, req ProtectionRequest) (*ProtectionResponse, error) {
	if req.Symbol == "" || req.Quantity.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidRequest
	}
	if req.StopLossPrice.IsZero() && req.TakeProfitPrice.IsZero() {
		return nil, ErrInvalidRequest
	}

	exitSide := oppositeSide(positionSideToOrderSide(req.PositionSide))
	template := OrderRequest{
		Symbol:       req.Symbol,
		Market:       req.Market,
		Side:         exitSide,
		Quantity:     req.Quantity,
		TimeInForce:  req.TimeInForce,
		ReduceOnly:   true,
		PositionSide: req.PositionSide,
		Tag:          req.Tag,
	}

	var legs []*OrderRequest
	var slReq, tpReq *OrderRequest

	if !req.StopLossPrice.IsZero() {
		sl := template
		sl.Type = fallbackOrderType(req.StopOrderType, OrderTypeStopMarket)
		sl.StopPrice = req.StopLossPrice
		if sl.Type == OrderTypeStopLimit {
			sl.Price = req.StopLossPrice
		}
		slReq = &sl
		legs = append(legs, slReq)
	}

	if !req.TakeProfitPrice.IsZero() {
		tp := template
		tp.Type = fallbackOrderType(req.TakeProfitType, OrderTypeLimit)
		tp.Price = req.TakeProfitPrice
		if tp.Type == OrderTypeStopLimit {
			tp.StopPrice = req.TakeProfitPrice
		}
		tpReq = &tp
		legs = append(legs, tpReq)
	}

	outcomes, err := placeAll(ctx, ex, legs)
	resp := &ProtectionResponse{Outcomes: outcomes}
	for _, o := range outcomes {
		switch o.Request {
		case slReq:
			resp.StopLoss = o.Order
		case tpReq:
			resp.TakeProfit = o.Order
		}
	}

	return resp, err
}

func deriveExitRequest(entry OrderRequest, leg BracketLeg, side OrderSide) OrderRequest {
	req := entry
	req.Side = side
	req.Type = fallbackOrderType(leg.Type, OrderTypeLimit)
	if leg.Amount.GreaterThan(decimal.Zero) {
		req.Quantity = leg.Amount
	}
	if leg.Price.GreaterThan(decimal.Zero) {
		req.Price = leg.Price
	}
	req.TimeInForce = fallbackTIF(leg.TimeInForce, entry.TimeInForce)
	req.Tag = leg.Tag
	req.ClientOrderID = ""
	req.ReduceOnly = true
	return req
}

func oppositeSide(side OrderSide) OrderSide {
	if side == OrderSideBuy {
		return OrderSideSell
	}
	return OrderSideBuy
}

func positionSideToOrderSide(side PositionSide) OrderSide {
	if side == PositionSideShort {
		return OrderSideSell
	}
	return OrderSideBuy
}

func fallbackOrderType(value OrderType, def OrderType) OrderType {
	if value == "" {
		return def
	}
	return value
}

func fallbackTIF(value, def TimeInForce) TimeInForce {
	if value == "" {
		return def
	}
	return value
}
