package binance

import (
	"context"
	"strconv"
	"strings"
	"time"

	"coinm/internal/adapters/exchanges"
)

var (
	_ exchanges.Exchange      = (*Adapter)(nil)
	_ exchanges.BatchExchange = (*Adapter)(nil)
)

// Adapter exposes a coin-M client through the unified exchange interfaces.
type Adapter struct {
	client *CoinMClient

	// hedgeMode sends positionSide on orders instead of reduceOnly, as the exchange
	// requires for accounts in dual side position mode.
	hedgeMode bool
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithHedgeMode marks the account as running in dual side position mode.
func WithHedgeMode(enabled bool) AdapterOption {
	return func(a *Adapter) { a.hedgeMode = enabled }
}

func NewAdapter(client *CoinMClient, opts ...AdapterOption) *Adapter {
	a := &Adapter{client: client}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Client returns the underlying coin-M client.
func (a *Adapter) Client() *CoinMClient {
	return a.client
}

func (a *Adapter) Name() string {
	return "binance_" + string(a.client.Category())
}

func (a *Adapter) GetTicker(ctx context.Context, symbol string) (*exchanges.Ticker, error) {
	stats, err := a.client.Get24hrChangeStatistics(ctx, SymbolParams{Symbol: normalizeSymbol(symbol)})
	if err != nil {
		return nil, err
	}
	if len(stats) == 0 {
		return nil, exchanges.ErrInvalidRequest
	}
	res := stats[0]

	ticker := &exchanges.Ticker{
		Symbol:       res.Symbol,
		LastPrice:    exchanges.ParseDecimal(res.LastPrice),
		High24h:      exchanges.ParseDecimal(res.HighPrice),
		Low24h:       exchanges.ParseDecimal(res.LowPrice),
		VolumeBase:   exchanges.ParseDecimal(res.BaseVolume),
		VolumeQuote:  exchanges.ParseDecimal(res.Volume), // coin-M volume is in contracts
		Change24hPct: exchanges.ParseDecimal(res.PriceChangePercent),
		Timestamp:    time.UnixMilli(res.CloseTime),
	}

	books, err := a.client.GetSymbolOrderBookTicker(ctx, SymbolParams{Symbol: res.Symbol})
	if err == nil && len(books) > 0 {
		ticker.BidPrice = exchanges.ParseDecimal(books[0].BidPrice)
		ticker.AskPrice = exchanges.ParseDecimal(books[0].AskPrice)
	}

	return ticker, nil
}

func (a *Adapter) GetOrderBook(ctx context.Context, symbol string, depth int) (*exchanges.OrderBook, error) {
	if depth <= 0 {
		depth = 50
	}
	res, err := a.client.GetOrderBook(ctx, OrderBookParams{Symbol: normalizeSymbol(symbol), Limit: depth})
	if err != nil {
		return nil, err
	}

	book := &exchanges.OrderBook{
		Symbol:    normalizeSymbol(symbol),
		Timestamp: time.UnixMilli(res.MessageTime),
	}
	for _, bid := range res.Bids {
		book.Bids = append(book.Bids, parseOrderBookEntry(bid))
	}
	for _, ask := range res.Asks {
		book.Asks = append(book.Asks, parseOrderBookEntry(ask))
	}

	return book, nil
}

func (a *Adapter) GetOHLCV(ctx context.Context, symbol string, timeframe string, limit int) ([]exchanges.OHLCV, error) {
	if limit <= 0 {
		limit = 100
	}
	symbol = normalizeSymbol(symbol)

	klines, err := a.client.GetKlines(ctx, KlinesParams{Symbol: symbol, Interval: timeframe, Limit: limit})
	if err != nil {
		return nil, err
	}

	out := make([]exchanges.OHLCV, 0, len(klines))
	for _, k := range klines {
		out = append(out, exchanges.OHLCV{
			Symbol:    symbol,
			Timeframe: timeframe,
			OpenTime:  time.UnixMilli(k.OpenTime),
			CloseTime: time.UnixMilli(k.CloseTime),
			Open:      exchanges.ParseDecimal(k.Open),
			High:      exchanges.ParseDecimal(k.High),
			Low:       exchanges.ParseDecimal(k.Low),
			Close:     exchanges.ParseDecimal(k.Close),
			Volume:    exchanges.ParseDecimal(k.Volume),
		})
	}
	return out, nil
}

func (a *Adapter) GetTrades(ctx context.Context, symbol string, limit int) ([]exchanges.Trade, error) {
	if limit <= 0 {
		limit = 100
	}
	symbol = normalizeSymbol(symbol)

	trades, err := a.client.GetRecentTrades(ctx, RecentTradesParams{Symbol: symbol, Limit: limit})
	if err != nil {
		return nil, err
	}

	out := make([]exchanges.Trade, 0, len(trades))
	for _, t := range trades {
		side := exchanges.OrderSideBuy
		if t.IsBuyerMaker {
			side = exchanges.OrderSideSell
		}
		out = append(out, exchanges.Trade{
			ID:        strconv.FormatInt(t.ID, 10),
			Symbol:    symbol,
			Price:     exchanges.ParseDecimal(t.Price),
			Amount:    exchanges.ParseDecimal(t.Qty),
			Side:      side,
			Timestamp: time.UnixMilli(t.Time),
		})
	}
	return out, nil
}

func (a *Adapter) GetFundingRate(ctx context.Context, symbol string) (*exchanges.FundingRate, error) {
	prices, err := a.client.GetMarkPrice(ctx, SymbolParams{Symbol: normalizeSymbol(symbol)})
	if err != nil {
		return nil, err
	}
	if len(prices) == 0 {
		return nil, exchanges.ErrInvalidRequest
	}
	p := prices[0]

	return &exchanges.FundingRate{
		Symbol:    p.Symbol,
		Rate:      exchanges.ParseDecimal(p.LastFundingRate),
		NextTime:  time.UnixMilli(p.NextFundingTime),
		Timestamp: time.UnixMilli(p.Time),
	}, nil
}

func (a *Adapter) GetOpenInterest(ctx context.Context, symbol string) (*exchanges.OpenInterest, error) {
	res, err := a.client.GetOpenInterest(ctx, normalizeSymbol(symbol))
	if err != nil {
		return nil, err
	}
	return &exchanges.OpenInterest{
		Symbol:    res.Symbol,
		Amount:    exchanges.ParseDecimal(res.OpenInterest),
		Timestamp: time.UnixMilli(res.Time),
	}, nil
}

// GetBalance lists every margin asset. Coin-M accounts hold one wallet per coin, so the
// totals are only filled when a single asset carries a balance.
func (a *Adapter) GetBalance(ctx context.Context) (*exchanges.Balance, error) {
	balances, err := a.client.GetBalance(ctx)
	if err != nil {
		return nil, err
	}

	out := &exchanges.Balance{}
	var funded []exchanges.BalanceDetail
	for _, b := range balances {
		detail := exchanges.BalanceDetail{
			Currency:      b.Asset,
			Total:         exchanges.ParseDecimal(b.Balance),
			Available:     exchanges.ParseDecimal(b.AvailableBalance),
			UnrealizedPnL: exchanges.ParseDecimal(b.CrossUnPnl),
		}
		out.Details = append(out.Details, detail)
		if !detail.Total.IsZero() {
			funded = append(funded, detail)
		}
	}

	if len(funded) == 1 {
		out.Currency = funded[0].Currency
		out.Total = funded[0].Total
		out.Available = funded[0].Available
	}
	return out, nil
}

func (a *Adapter) GetPositions(ctx context.Context) ([]exchanges.Position, error) {
	res, err := a.client.GetPositions(ctx, PositionRiskParams{})
	if err != nil {
		return nil, err
	}

	positions := make([]exchanges.Position, 0, len(res))
	for _, p := range res {
		size := exchanges.ParseDecimal(p.PositionAmt)
		if size.IsZero() {
			continue
		}

		side := exchanges.PositionSideLong
		switch {
		case p.PositionSide == string(PositionSideShort):
			side = exchanges.PositionSideShort
		case p.PositionSide == string(PositionSideLong):
		case size.IsNegative():
			side = exchanges.PositionSideShort
		}

		positions = append(positions, exchanges.Position{
			Symbol:           p.Symbol,
			Market:           exchanges.MarketTypeOf(p.Symbol),
			Side:             side,
			Size:             size.Abs(),
			EntryPrice:       exchanges.ParseDecimal(p.EntryPrice),
			MarkPrice:        exchanges.ParseDecimal(p.MarkPrice),
			LiquidationPrice: exchanges.ParseDecimal(p.LiquidationPrice),
			MarginMode:       marginModeFromString(p.MarginType),
			Leverage:         exchanges.ParseDecimal(p.Leverage),
			UnrealizedPnL:    exchanges.ParseDecimal(p.UnRealizedProfit),
			UpdatedAt:        time.UnixMilli(p.UpdateTime),
		})
	}

	return positions, nil
}

func (a *Adapter) GetOpenOrders(ctx context.Context, symbol string) ([]exchanges.Order, error) {
	res, err := a.client.GetAllOpenOrders(ctx, SymbolParams{Symbol: normalizeSymbol(symbol)})
	if err != nil {
		return nil, err
	}

	orders := make([]exchanges.Order, 0, len(res))
	for i := range res {
		orders = append(orders, *orderFromResult(&res[i]))
	}
	return orders, nil
}

func (a *Adapter) PlaceOrder(ctx context.Context, req *exchanges.OrderRequest) (*exchanges.Order, error) {
	if req == nil {
		return nil, exchanges.ErrInvalidRequest
	}

	params := a.newOrderParams(req)
	res, err := a.client.SubmitNewOrder(ctx, &params)
	if err != nil {
		return nil, err
	}
	req.ClientOrderID = params.NewClientOrderID

	return orderFromResult(res), nil
}

// MaxBatchSize is the batchOrders limit.
func (a *Adapter) MaxBatchSize() int {
	return MaxBatchOrders
}

// PlaceOrders submits reqs as one batchOrders call. Each request gets the client order id
// it was sent with.
func (a *Adapter) PlaceOrders(ctx context.Context, reqs []*exchanges.OrderRequest) ([]exchanges.OrderOutcome, error) {
	params := make([]NewOrderParams, len(reqs))
	for i, req := range reqs {
		if req == nil {
			return nil, exchanges.ErrInvalidRequest
		}
		params[i] = a.newOrderParams(req)
	}

	results, err := a.client.SubmitMultipleOrders(ctx, params)
	if err != nil {
		return nil, err
	}

	outcomes := make([]exchanges.OrderOutcome, len(reqs))
	for i, req := range reqs {
		req.ClientOrderID = params[i].NewClientOrderID
		outcomes[i].Request = req

		if i >= len(results) {
			outcomes[i].Err = exchanges.ErrInvalidRequest
			continue
		}
		if r := results[i]; r.OK() {
			outcomes[i].Order = orderFromResult(r.Value)
		} else {
			outcomes[i].Err = r.Err
		}
	}
	return outcomes, nil
}

func (a *Adapter) CancelOrder(ctx context.Context, symbol, orderID string) error {
	params := OrderQueryParams{Symbol: normalizeSymbol(symbol)}
	if id, err := strconv.ParseInt(orderID, 10, 64); err == nil {
		params.OrderID = id
	} else {
		params.OrigClientOrderID = orderID
	}

	_, err := a.client.CancelOrder(ctx, params)
	return err
}

func (a *Adapter) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	_, err := a.client.SetLeverage(ctx, LeverageParams{Symbol: normalizeSymbol(symbol), Leverage: leverage})
	return err
}

func (a *Adapter) SetMarginMode(ctx context.Context, symbol string, mode exchanges.MarginMode) error {
	marginType := MarginTypeCrossed
	if mode == exchanges.MarginIsolated {
		marginType = MarginTypeIsolated
	}
	return a.client.SetMarginType(ctx, MarginTypeParams{Symbol: normalizeSymbol(symbol), MarginType: marginType})
}

func (a *Adapter) newOrderParams(req *exchanges.OrderRequest) NewOrderParams {
	params := NewOrderParams{
		Symbol:           normalizeSymbol(req.Symbol),
		Side:             mapOrderSide(req.Side),
		Type:             mapOrderType(req.Type),
		NewClientOrderID: req.ClientOrderID,
	}

	if !req.Quantity.IsZero() {
		params.Quantity = req.Quantity.String()
	}
	if !req.Price.IsZero() {
		params.Price = req.Price.String()
	}
	if !req.StopPrice.IsZero() {
		params.StopPrice = req.StopPrice.String()
	}

	switch params.Type {
	case OrderTypeLimit, OrderTypeStop:
		params.TimeInForce = TimeInForce(req.TimeInForce)
		if params.TimeInForce == "" {
			params.TimeInForce = TimeInForceGTC
		}
	}

	if a.hedgeMode {
		params.PositionSide = hedgePositionSide(req)
	} else {
		params.ReduceOnly = req.ReduceOnly
	}

	return params
}

// hedgePositionSide picks the leg an order belongs to in dual side mode. A reduce-only
// order closes the leg opposite to its own side.
func hedgePositionSide(req *exchanges.OrderRequest) PositionSide {
	switch req.PositionSide {
	case exchanges.PositionSideLong:
		return PositionSideLong
	case exchanges.PositionSideShort:
		return PositionSideShort
	}
	buy := req.Side == exchanges.OrderSideBuy
	if buy != req.ReduceOnly {
		return PositionSideLong
	}
	return PositionSideShort
}

func orderFromResult(res *OrderResult) *exchanges.Order {
	created := res.Time
	if created == 0 {
		created = res.UpdateTime
	}
	return &exchanges.Order{
		ID:            strconv.FormatInt(res.OrderID, 10),
		ClientOrderID: res.ClientOrderID,
		Symbol:        res.Symbol,
		Market:        exchanges.MarketTypeOf(res.Symbol),
		Type:          orderTypeFromString(res.Type),
		Side:          orderSideFromString(res.Side),
		Status:        orderStatusFromString(res.Status),
		Price:         exchanges.ParseDecimal(res.Price),
		StopPrice:     exchanges.ParseDecimal(res.StopPrice),
		Quantity:      exchanges.ParseDecimal(res.OrigQty),
		Filled:        exchanges.ParseDecimal(res.ExecutedQty),
		AvgFillPrice:  exchanges.ParseDecimal(res.AvgPrice),
		ReduceOnly:    res.ReduceOnly,
		TimeInForce:   timeInForceFromString(res.TimeInForce),
		CreatedAt:     time.UnixMilli(created),
		UpdatedAt:     time.UnixMilli(res.UpdateTime),
	}
}

func parseOrderBookEntry(level PriceLevel) exchanges.OrderBookEntry {
	return exchanges.OrderBookEntry{
		Price:  exchanges.ParseDecimal(level.Price()),
		Amount: exchanges.ParseDecimal(level.Quantity()),
	}
}

func mapOrderSide(s exchanges.OrderSide) OrderSide {
	if s == exchanges.OrderSideSell {
		return SideSell
	}
	return SideBuy
}

func mapOrderType(t exchanges.OrderType) OrderType {
	switch t {
	case exchanges.OrderTypeMarket:
		return OrderTypeMarket
	case exchanges.OrderTypeStopMarket:
		return OrderTypeStopMarket
	case exchanges.OrderTypeStopLimit:
		return OrderTypeStop
	default:
		return OrderTypeLimit
	}
}

func orderTypeFromString(s string) exchanges.OrderType {
	switch strings.ToUpper(s) {
	case "MARKET":
		return exchanges.OrderTypeMarket
	case "STOP_MARKET", "TAKE_PROFIT_MARKET", "TRAILING_STOP_MARKET":
		return exchanges.OrderTypeStopMarket
	case "STOP", "TAKE_PROFIT":
		return exchanges.OrderTypeStopLimit
	default:
		return exchanges.OrderTypeLimit
	}
}

func orderSideFromString(s string) exchanges.OrderSide {
	if strings.ToUpper(s) == "SELL" {
		return exchanges.OrderSideSell
	}
	return exchanges.OrderSideBuy
}

func timeInForceFromString(s string) exchanges.TimeInForce {
	switch strings.ToUpper(s) {
	case "IOC":
		return exchanges.TimeInForceIOC
	case "FOK":
		return exchanges.TimeInForceFOK
	default:
		return exchanges.TimeInForceGTC
	}
}

func orderStatusFromString(s string) exchanges.OrderStatus {
	switch strings.ToUpper(s) {
	case "NEW":
		return exchanges.OrderStatusNew
	case "PARTIALLY_FILLED":
		return exchanges.OrderStatusPartial
	case "FILLED":
		return exchanges.OrderStatusFilled
	case "CANCELED":
		return exchanges.OrderStatusCanceled
	case "REJECTED":
		return exchanges.OrderStatusRejected
	case "EXPIRED":
		return exchanges.OrderStatusExpired
	default:
		return exchanges.OrderStatusUnknown
	}
}

func marginModeFromString(v string) exchanges.MarginMode {
	if strings.ToLower(v) == "isolated" {
		return exchanges.MarginIsolated
	}
	return exchanges.MarginCross
}

// normalizeSymbol turns "btcusd-perp" style input into the exchange form "BTCUSD_PERP".
func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(symbol, "-", "_"))
}
