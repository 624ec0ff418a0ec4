package binance

// Request parameter structs. The url tags drive go-querystring encoding; numeric order
// fields are strings so the caller controls the exact decimal text sent to the exchange.

type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

type PositionSide string

const (
	PositionSideBoth  PositionSide = "BOTH"
	PositionSideLong  PositionSide = "LONG"
	PositionSideShort PositionSide = "SHORT"
)

type OrderType string

const (
	OrderTypeLimit              OrderType = "LIMIT"
	OrderTypeMarket             OrderType = "MARKET"
	OrderTypeStop               OrderType = "STOP"
	OrderTypeStopMarket         OrderType = "STOP_MARKET"
	OrderTypeTakeProfit         OrderType = "TAKE_PROFIT"
	OrderTypeTakeProfitMarket   OrderType = "TAKE_PROFIT_MARKET"
	OrderTypeTrailingStopMarket OrderType = "TRAILING_STOP_MARKET"
)

type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC"
	TimeInForceIOC TimeInForce = "IOC"
	TimeInForceFOK TimeInForce = "FOK"
	TimeInForceGTX TimeInForce = "GTX" // post only
)

type WorkingType string

const (
	WorkingTypeMarkPrice     WorkingType = "MARK_PRICE"
	WorkingTypeContractPrice WorkingType = "CONTRACT_PRICE"
)

type MarginType string

const (
	MarginTypeIsolated MarginType = "ISOLATED"
	MarginTypeCrossed  MarginType = "CROSSED"
)

type ContractType string

const (
	ContractTypePerpetual      ContractType = "PERPETUAL"
	ContractTypeCurrentQuarter ContractType = "CURRENT_QUARTER"
	ContractTypeNextQuarter    ContractType = "NEXT_QUARTER"
)

// Market data

type OrderBookParams struct {
	Symbol string `url:"symbol"`
	Limit  int    `url:"limit,omitempty"`
}

type RecentTradesParams struct {
	Symbol string `url:"symbol"`
	Limit  int    `url:"limit,omitempty"`
}

type HistoricalTradesParams struct {
	Symbol string `url:"symbol"`
	Limit  int    `url:"limit,omitempty"`
	FromID int64  `url:"fromId,omitempty"`
}

type AggregateTradesParams struct {
	Symbol    string `url:"symbol"`
	FromID    int64  `url:"fromId,omitempty"`
	StartTime int64  `url:"startTime,omitempty"`
	EndTime   int64  `url:"endTime,omitempty"`
	Limit     int    `url:"limit,omitempty"`
}

// SymbolParams filters market endpoints by symbol or pair. Both are optional.
type SymbolParams struct {
	Symbol string `url:"symbol,omitempty"`
	Pair   string `url:"pair,omitempty"`
}

type FundingRateParams struct {
	Symbol    string `url:"symbol"`
	StartTime int64  `url:"startTime,omitempty"`
	EndTime   int64  `url:"endTime,omitempty"`
	Limit     int    `url:"limit,omitempty"`
}

type KlinesParams struct {
	Symbol    string `url:"symbol"`
	Interval  string `url:"interval"`
	StartTime int64  `url:"startTime,omitempty"`
	EndTime   int64  `url:"endTime,omitempty"`
	Limit     int    `url:"limit,omitempty"`
}

type ContinuousKlinesParams struct {
	Pair         string       `url:"pair"`
	ContractType ContractType `url:"contractType"`
	Interval     string       `url:"interval"`
	StartTime    int64        `url:"startTime,omitempty"`
	EndTime      int64        `url:"endTime,omitempty"`
	Limit        int          `url:"limit,omitempty"`
}

type IndexPriceKlinesParams struct {
	Pair      string `url:"pair"`
	Interval  string `url:"interval"`
	StartTime int64  `url:"startTime,omitempty"`
	EndTime   int64  `url:"endTime,omitempty"`
	Limit     int    `url:"limit,omitempty"`
}

// FuturesDataParams covers the futures/data statistics endpoints. ContractType is required
// by open interest history, taker volume and basis, and ignored by the ratio endpoints.
type FuturesDataParams struct {
	Pair         string       `url:"pair"`
	ContractType ContractType `url:"contractType,omitempty"`
	Period       string       `url:"period"`
	Limit        int          `url:"limit,omitempty"`
	StartTime    int64        `url:"startTime,omitempty"`
	EndTime      int64        `url:"endTime,omitempty"`
}

// Trading

// NewOrderParams is a single order placement. It is also one element of a batch, which is
// why it carries json tags: batch elements travel as JSON text inside the batchOrders field.
type NewOrderParams struct {
	Symbol           string       `url:"symbol" json:"symbol"`
	Side             OrderSide    `url:"side" json:"side"`
	PositionSide     PositionSide `url:"positionSide,omitempty" json:"positionSide,omitempty"`
	Type             OrderType    `url:"type" json:"type"`
	TimeInForce      TimeInForce  `url:"timeInForce,omitempty" json:"timeInForce,omitempty"`
	Quantity         string       `url:"quantity,omitempty" json:"quantity,omitempty"`
	ReduceOnly       bool         `url:"reduceOnly,omitempty" json:"reduceOnly,omitempty,string"`
	Price            string       `url:"price,omitempty" json:"price,omitempty"`
	NewClientOrderID string       `url:"newClientOrderId,omitempty" json:"newClientOrderId,omitempty"`
	StopPrice        string       `url:"stopPrice,omitempty" json:"stopPrice,omitempty"`
	ClosePosition    bool         `url:"closePosition,omitempty" json:"closePosition,omitempty,string"`
	ActivationPrice  string       `url:"activationPrice,omitempty" json:"activationPrice,omitempty"`
	CallbackRate     string       `url:"callbackRate,omitempty" json:"callbackRate,omitempty"`
	WorkingType      WorkingType  `url:"workingType,omitempty" json:"workingType,omitempty"`
	PriceProtect     bool         `url:"priceProtect,omitempty" json:"priceProtect,omitempty,string"`
	NewOrderRespType string       `url:"newOrderRespType,omitempty" json:"newOrderRespType,omitempty"`
	PriceMatch       string       `url:"priceMatch,omitempty" json:"priceMatch,omitempty"`
}

// ModifyOrderParams amends price or quantity of an open limit order, by OrderID or
// OrigClientOrderID.
type ModifyOrderParams struct {
	Symbol            string    `url:"symbol" json:"symbol"`
	OrderID           int64     `url:"orderId,omitempty" json:"orderId,omitempty"`
	OrigClientOrderID string    `url:"origClientOrderId,omitempty" json:"origClientOrderId,omitempty"`
	Side              OrderSide `url:"side" json:"side"`
	Quantity          string    `url:"quantity,omitempty" json:"quantity,omitempty"`
	Price             string    `url:"price,omitempty" json:"price,omitempty"`
	PriceMatch        string    `url:"priceMatch,omitempty" json:"priceMatch,omitempty"`
}

// OrderQueryParams identifies one order by exchange id or by the client id it was placed with.
type OrderQueryParams struct {
	Symbol            string `url:"symbol"`
	OrderID           int64  `url:"orderId,omitempty"`
	OrigClientOrderID string `url:"origClientOrderId,omitempty"`
}

// CancelMultipleOrdersParams cancels up to 10 orders of one symbol. The two lists are both
// optional and may be combined; they are sent as JSON array text.
type CancelMultipleOrdersParams struct {
	Symbol                string   `url:"symbol"`
	OrderIDList           []int64  `url:"-"`
	OrigClientOrderIDList []string `url:"-"`
}

type CountdownCancelParams struct {
	Symbol        string `url:"symbol"`
	CountdownTime int64  `url:"countdownTime"` // milliseconds, 0 cancels the countdown
}

type AllOrdersParams struct {
	Symbol    string `url:"symbol,omitempty"`
	Pair      string `url:"pair,omitempty"`
	OrderID   int64  `url:"orderId,omitempty"`
	StartTime int64  `url:"startTime,omitempty"`
	EndTime   int64  `url:"endTime,omitempty"`
	Limit     int    `url:"limit,omitempty"`
}

type OrderAmendmentParams struct {
	Symbol            string `url:"symbol"`
	OrderID           int64  `url:"orderId,omitempty"`
	OrigClientOrderID string `url:"origClientOrderId,omitempty"`
	StartTime         int64  `url:"startTime,omitempty"`
	EndTime           int64  `url:"endTime,omitempty"`
	Limit             int    `url:"limit,omitempty"`
}

// Account

type PositionModeParams struct {
	DualSidePosition bool `url:"dualSidePosition"`
}

type LeverageParams struct {
	Symbol   string `url:"symbol"`
	Leverage int    `url:"leverage"`
}

type MarginTypeParams struct {
	Symbol     string     `url:"symbol"`
	MarginType MarginType `url:"marginType"`
}

// Position margin change directions.
const (
	MarginChangeAdd    = 1
	MarginChangeReduce = 2
)

type PositionMarginParams struct {
	Symbol       string       `url:"symbol"`
	PositionSide PositionSide `url:"positionSide,omitempty"`
	Amount       string       `url:"amount"`
	Type         int          `url:"type"`
}

type PositionMarginHistoryParams struct {
	Symbol    string `url:"symbol"`
	Type      int    `url:"type,omitempty"`
	StartTime int64  `url:"startTime,omitempty"`
	EndTime   int64  `url:"endTime,omitempty"`
	Limit     int    `url:"limit,omitempty"`
}

type PositionRiskParams struct {
	MarginAsset string `url:"marginAsset,omitempty"`
	Pair        string `url:"pair,omitempty"`
}

type AccountTradesParams struct {
	Symbol    string `url:"symbol,omitempty"`
	Pair      string `url:"pair,omitempty"`
	OrderID   int64  `url:"orderId,omitempty"`
	StartTime int64  `url:"startTime,omitempty"`
	EndTime   int64  `url:"endTime,omitempty"`
	FromID    int64  `url:"fromId,omitempty"`
	Limit     int    `url:"limit,omitempty"`
}

type IncomeHistoryParams struct {
	Symbol     string `url:"symbol,omitempty"`
	IncomeType string `url:"incomeType,omitempty"`
	StartTime  int64  `url:"startTime,omitempty"`
	EndTime    int64  `url:"endTime,omitempty"`
	Limit      int    `url:"limit,omitempty"`
	Page       int    `url:"page,omitempty"`
}

type ForceOrdersParams struct {
	Symbol        string `url:"symbol,omitempty"`
	AutoCloseType string `url:"autoCloseType,omitempty"` // LIQUIDATION or ADL
	StartTime     int64  `url:"startTime,omitempty"`
	EndTime       int64  `url:"endTime,omitempty"`
	Limit         int    `url:"limit,omitempty"`
}

// Broker

type BrokerIfNewUserParams struct {
	BrokerID string `url:"brokerId"`
	Type     int    `url:"type,omitempty"` // 1 usd-m, 2 coin-m
}

type BrokerCustomIDParams struct {
	CustomerID string `url:"customerId"`
	Email      string `url:"email"`
}

type BrokerGetCustomIDParams struct {
	CustomerID string `url:"customerId,omitempty"`
	Email      string `url:"email,omitempty"`
	Page       int    `url:"page,omitempty"`
	Limit      int    `url:"limit,omitempty"`
}

type BrokerUserCustomIDParams struct {
	BrokerID string `url:"brokerId"`
}

type BrokerRebateParams struct {
	Type       int    `url:"type,omitempty"`
	StartTime  int64  `url:"startTime,omitempty"`
	EndTime    int64  `url:"endTime,omitempty"`
	Limit      int    `url:"limit,omitempty"`
	CustomerID string `url:"customerId,omitempty"`
}
