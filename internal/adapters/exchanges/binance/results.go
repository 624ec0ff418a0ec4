package binance

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Response types. Numeric values the exchange sends as strings stay strings here; the
// adapter converts them to decimals.

type ServerTime struct {
	ServerTime int64 `json:"serverTime"`
}

// CodeMsg is the acknowledgement some endpoints return on success, e.g. {"code":200,"msg":"success"}.
type CodeMsg struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

type RateLimitRule struct {
	RateLimitType string `json:"rateLimitType"`
	Interval      string `json:"interval"`
	IntervalNum   int    `json:"intervalNum"`
	Limit         int    `json:"limit"`
}

type SymbolInfo struct {
	Symbol            string                   `json:"symbol"`
	Pair              string                   `json:"pair"`
	ContractType      string                   `json:"contractType"`
	DeliveryDate      int64                    `json:"deliveryDate"`
	OnboardDate       int64                    `json:"onboardDate"`
	ContractStatus    string                   `json:"contractStatus"`
	ContractSize      int                      `json:"contractSize"`
	MarginAsset       string                   `json:"marginAsset"`
	BaseAsset         string                   `json:"baseAsset"`
	QuoteAsset        string                   `json:"quoteAsset"`
	PricePrecision    int                      `json:"pricePrecision"`
	QuantityPrecision int                      `json:"quantityPrecision"`
	UnderlyingType    string                   `json:"underlyingType"`
	TriggerProtect    string                   `json:"triggerProtect"`
	LiquidationFee    string                   `json:"liquidationFee"`
	MarketTakeBound   string                   `json:"marketTakeBound"`
	OrderTypes        []string                 `json:"orderTypes"`
	TimeInForce       []string                 `json:"timeInForce"`
	Filters           []map[string]interface{} `json:"filters"`
}

type ExchangeInfo struct {
	Timezone        string                   `json:"timezone"`
	ServerTime      int64                    `json:"serverTime"`
	RateLimits      []RateLimitRule          `json:"rateLimits"`
	ExchangeFilters []map[string]interface{} `json:"exchangeFilters"`
	Symbols         []SymbolInfo             `json:"symbols"`
}

// Symbol returns the info for symbol, if listed.
func (e *ExchangeInfo) Symbol(symbol string) (SymbolInfo, bool) {
	for _, s := range e.Symbols {
		if s.Symbol == symbol {
			return s, true
		}
	}
	return SymbolInfo{}, false
}

// PriceLevel is one [price, quantity] row of the order book.
type PriceLevel [2]string

func (p PriceLevel) Price() string    { return p[0] }
func (p PriceLevel) Quantity() string { return p[1] }

type OrderBook struct {
	LastUpdateID    int64        `json:"lastUpdateId"`
	Symbol          string       `json:"symbol"`
	Pair            string       `json:"pair"`
	MessageTime     int64        `json:"E"`
	TransactionTime int64        `json:"T"`
	Bids            []PriceLevel `json:"bids"`
	Asks            []PriceLevel `json:"asks"`
}

type RecentTrade struct {
	ID           int64  `json:"id"`
	Price        string `json:"price"`
	Qty          string `json:"qty"`
	BaseQty      string `json:"baseQty"`
	Time         int64  `json:"time"`
	IsBuyerMaker bool   `json:"isBuyerMaker"`
}

type AggregateTrade struct {
	AggTradeID   int64  `json:"a"`
	Price        string `json:"p"`
	Qty          string `json:"q"`
	FirstTradeID int64  `json:"f"`
	LastTradeID  int64  `json:"l"`
	Time         int64  `json:"T"`
	IsBuyerMaker bool   `json:"m"`
}

type MarkPrice struct {
	Symbol               string `json:"symbol"`
	Pair                 string `json:"pair"`
	MarkPrice            string `json:"markPrice"`
	IndexPrice           string `json:"indexPrice"`
	EstimatedSettlePrice string `json:"estimatedSettlePrice"`
	LastFundingRate      string `json:"lastFundingRate"`
	InterestRate         string `json:"interestRate"`
	NextFundingTime      int64  `json:"nextFundingTime"`
	Time                 int64  `json:"time"`
}

type FundingRate struct {
	Symbol      string `json:"symbol"`
	FundingTime int64  `json:"fundingTime"`
	FundingRate string `json:"fundingRate"`
}

// Kline is one candle. The exchange sends it as a positional array.
type Kline struct {
	OpenTime                int64
	Open                    string
	High                    string
	Low                     string
	Close                   string
	Volume                  string
	CloseTime               int64
	BaseAssetVolume         string
	NumberOfTrades          int64
	TakerBuyVolume          string
	TakerBuyBaseAssetVolume string
}

func (k *Kline) UnmarshalJSON(data []byte) error {
	var row []interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&row); err != nil {
		return err
	}
	if len(row) < 11 {
		return fmt.Errorf("kline: expected at least 11 fields, got %d", len(row))
	}

	k.OpenTime = toInt64(row[0])
	k.Open = toString(row[1])
	k.High = toString(row[2])
	k.Low = toString(row[3])
	k.Close = toString(row[4])
	k.Volume = toString(row[5])
	k.CloseTime = toInt64(row[6])
	k.BaseAssetVolume = toString(row[7])
	k.NumberOfTrades = toInt64(row[8])
	k.TakerBuyVolume = toString(row[9])
	k.TakerBuyBaseAssetVolume = toString(row[10])
	return nil
}

type Ticker24h struct {
	Symbol             string `json:"symbol"`
	Pair               string `json:"pair"`
	PriceChange        string `json:"priceChange"`
	PriceChangePercent string `json:"priceChangePercent"`
	WeightedAvgPrice   string `json:"weightedAvgPrice"`
	LastPrice          string `json:"lastPrice"`
	LastQty            string `json:"lastQty"`
	OpenPrice          string `json:"openPrice"`
	HighPrice          string `json:"highPrice"`
	LowPrice           string `json:"lowPrice"`
	Volume             string `json:"volume"`
	BaseVolume         string `json:"baseVolume"`
	OpenTime           int64  `json:"openTime"`
	CloseTime          int64  `json:"closeTime"`
	FirstID            int64  `json:"firstId"`
	LastID             int64  `json:"lastId"`
	Count              int64  `json:"count"`
}

type SymbolPrice struct {
	Symbol string `json:"symbol"`
	Pair   string `json:"ps"`
	Price  string `json:"price"`
	Time   int64  `json:"time"`
}

type BookTicker struct {
	Symbol   string `json:"symbol"`
	Pair     string `json:"pair"`
	BidPrice string `json:"bidPrice"`
	BidQty   string `json:"bidQty"`
	AskPrice string `json:"askPrice"`
	AskQty   string `json:"askQty"`
	Time     int64  `json:"time"`
}

type OpenInterest struct {
	Symbol       string `json:"symbol"`
	Pair         string `json:"pair"`
	OpenInterest string `json:"openInterest"`
	ContractType string `json:"contractType"`
	Time         int64  `json:"time"`
}

type OpenInterestStat struct {
	Pair                 string `json:"pair"`
	ContractType         string `json:"contractType"`
	SumOpenInterest      string `json:"sumOpenInterest"`
	SumOpenInterestValue string `json:"sumOpenInterestValue"`
	Timestamp            int64  `json:"timestamp"`
}

// LongShortRatio is returned by the three ratio endpoints. Account ratios fill
// LongAccount/ShortAccount, position ratios fill LongPosition/ShortPosition.
type LongShortRatio struct {
	Pair           string `json:"pair"`
	LongShortRatio string `json:"longShortRatio"`
	LongAccount    string `json:"longAccount,omitempty"`
	ShortAccount   string `json:"shortAccount,omitempty"`
	LongPosition   string `json:"longPosition,omitempty"`
	ShortPosition  string `json:"shortPosition,omitempty"`
	Timestamp      int64  `json:"timestamp"`
}

type TakerVolume struct {
	Pair              string `json:"pair"`
	ContractType      string `json:"contractType"`
	TakerBuyVol       string `json:"takerBuyVol"`
	TakerSellVol      string `json:"takerSellVol"`
	TakerBuyVolValue  string `json:"takerBuyVolValue"`
	TakerSellVolValue string `json:"takerSellVolValue"`
	Timestamp         int64  `json:"timestamp"`
}

type Basis struct {
	Pair         string `json:"pair"`
	ContractType string `json:"contractType"`
	FuturesPrice string `json:"futuresPrice"`
	IndexPrice   string `json:"indexPrice"`
	Basis        string `json:"basis"`
	BasisRate    string `json:"basisRate"`
	Timestamp    int64  `json:"timestamp"`
}

// Trading

type PositionMode struct {
	DualSidePosition bool `json:"dualSidePosition"`
}

// OrderResult is the order record returned by placement, modification, cancellation and
// query endpoints.
type OrderResult struct {
	OrderID                 int64  `json:"orderId"`
	ClientOrderID           string `json:"clientOrderId"`
	Symbol                  string `json:"symbol"`
	Pair                    string `json:"pair"`
	Status                  string `json:"status"`
	Price                   string `json:"price"`
	AvgPrice                string `json:"avgPrice"`
	OrigQty                 string `json:"origQty"`
	ExecutedQty             string `json:"executedQty"`
	CumQty                  string `json:"cumQty"`
	CumBase                 string `json:"cumBase"`
	TimeInForce             string `json:"timeInForce"`
	Type                    string `json:"type"`
	OrigType                string `json:"origType"`
	Side                    string `json:"side"`
	PositionSide            string `json:"positionSide"`
	StopPrice               string `json:"stopPrice"`
	ActivatePrice           string `json:"activatePrice"`
	PriceRate               string `json:"priceRate"`
	WorkingType             string `json:"workingType"`
	PriceMatch              string `json:"priceMatch"`
	SelfTradePreventionMode string `json:"selfTradePreventionMode"`
	ReduceOnly              bool   `json:"reduceOnly"`
	ClosePosition           bool   `json:"closePosition"`
	PriceProtect            bool   `json:"priceProtect"`
	Time                    int64  `json:"time"`
	UpdateTime              int64  `json:"updateTime"`
}

type AmendmentValue struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

type OrderAmendment struct {
	AmendmentID   int64  `json:"amendmentId"`
	Symbol        string `json:"symbol"`
	Pair          string `json:"pair"`
	OrderID       int64  `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
	Time          int64  `json:"time"`
	Amendment     struct {
		Price   AmendmentValue `json:"price"`
		OrigQty AmendmentValue `json:"origQty"`
		Count   int            `json:"count"`
	} `json:"amendment"`
}

type CountdownCancelResult struct {
	Symbol        string `json:"symbol"`
	CountdownTime string `json:"countdownTime"`
}

// Account

type AccountBalance struct {
	AccountAlias       string `json:"accountAlias"`
	Asset              string `json:"asset"`
	Balance            string `json:"balance"`
	WithdrawAvailable  string `json:"withdrawAvailable"`
	CrossWalletBalance string `json:"crossWalletBalance"`
	CrossUnPnl         string `json:"crossUnPnl"`
	AvailableBalance   string `json:"availableBalance"`
	UpdateTime         int64  `json:"updateTime"`
}

type AccountAsset struct {
	Asset                  string `json:"asset"`
	WalletBalance          string `json:"walletBalance"`
	UnrealizedProfit       string `json:"unrealizedProfit"`
	MarginBalance          string `json:"marginBalance"`
	MaintMargin            string `json:"maintMargin"`
	InitialMargin          string `json:"initialMargin"`
	PositionInitialMargin  string `json:"positionInitialMargin"`
	OpenOrderInitialMargin string `json:"openOrderInitialMargin"`
	MaxWithdrawAmount      string `json:"maxWithdrawAmount"`
	CrossWalletBalance     string `json:"crossWalletBalance"`
	CrossUnPnl             string `json:"crossUnPnl"`
	AvailableBalance       string `json:"availableBalance"`
}

type AccountPosition struct {
	Symbol                 string `json:"symbol"`
	PositionAmt            string `json:"positionAmt"`
	InitialMargin          string `json:"initialMargin"`
	MaintMargin            string `json:"maintMargin"`
	UnrealizedProfit       string `json:"unrealizedProfit"`
	PositionInitialMargin  string `json:"positionInitialMargin"`
	OpenOrderInitialMargin string `json:"openOrderInitialMargin"`
	Leverage               string `json:"leverage"`
	Isolated               bool   `json:"isolated"`
	PositionSide           string `json:"positionSide"`
	EntryPrice             string `json:"entryPrice"`
	BreakEvenPrice         string `json:"breakEvenPrice"`
	MaxQty                 string `json:"maxQty"`
	NotionalValue          string `json:"notionalValue"`
	IsolatedWallet         string `json:"isolatedWallet"`
	UpdateTime             int64  `json:"updateTime"`
}

type AccountInformation struct {
	Assets      []AccountAsset    `json:"assets"`
	Positions   []AccountPosition `json:"positions"`
	CanDeposit  bool              `json:"canDeposit"`
	CanTrade    bool              `json:"canTrade"`
	CanWithdraw bool              `json:"canWithdraw"`
	FeeTier     int               `json:"feeTier"`
	UpdateTime  int64             `json:"updateTime"`
}

type LeverageResult struct {
	Leverage int    `json:"leverage"`
	MaxQty   string `json:"maxQty"`
	Symbol   string `json:"symbol"`
}

type PositionMarginResult struct {
	Amount json.Number `json:"amount"`
	Code   int         `json:"code"`
	Msg    string      `json:"msg"`
	Type   int         `json:"type"`
}

type PositionMarginChange struct {
	Amount       string `json:"amount"`
	Asset        string `json:"asset"`
	Symbol       string `json:"symbol"`
	Time         int64  `json:"time"`
	Type         int    `json:"type"`
	PositionSide string `json:"positionSide"`
}

type PositionRisk struct {
	Symbol           string `json:"symbol"`
	PositionAmt      string `json:"positionAmt"`
	EntryPrice       string `json:"entryPrice"`
	BreakEvenPrice   string `json:"breakEvenPrice"`
	MarkPrice        string `json:"markPrice"`
	UnRealizedProfit string `json:"unRealizedProfit"`
	LiquidationPrice string `json:"liquidationPrice"`
	Leverage         string `json:"leverage"`
	MaxQty           string `json:"maxQty"`
	MarginType       string `json:"marginType"`
	IsolatedMargin   string `json:"isolatedMargin"`
	IsAutoAddMargin  string `json:"isAutoAddMargin"`
	PositionSide     string `json:"positionSide"`
	NotionalValue    string `json:"notionalValue"`
	IsolatedWallet   string `json:"isolatedWallet"`
	UpdateTime       int64  `json:"updateTime"`
}

type AccountTrade struct {
	ID              int64  `json:"id"`
	OrderID         int64  `json:"orderId"`
	Symbol          string `json:"symbol"`
	Pair            string `json:"pair"`
	Side            string `json:"side"`
	PositionSide    string `json:"positionSide"`
	Price           string `json:"price"`
	Qty             string `json:"qty"`
	BaseQty         string `json:"baseQty"`
	RealizedPnl     string `json:"realizedPnl"`
	MarginAsset     string `json:"marginAsset"`
	Commission      string `json:"commission"`
	CommissionAsset string `json:"commissionAsset"`
	Buyer           bool   `json:"buyer"`
	Maker           bool   `json:"maker"`
	Time            int64  `json:"time"`
}

type Income struct {
	Symbol     string `json:"symbol"`
	IncomeType string `json:"incomeType"`
	Income     string `json:"income"`
	Asset      string `json:"asset"`
	Info       string `json:"info"`
	Time       int64  `json:"time"`
	TranID     int64  `json:"tranId"`
	TradeID    string `json:"tradeId"`
}

type LeverageBracketTier struct {
	Bracket          int     `json:"bracket"`
	InitialLeverage  int     `json:"initialLeverage"`
	QtyCap           float64 `json:"qtyCap"`
	QtyFloor         float64 `json:"qtylFloor"` // sic, as sent by the exchange
	MaintMarginRatio float64 `json:"maintMarginRatio"`
	Cum              float64 `json:"cum"`
}

type SymbolLeverageBrackets struct {
	Symbol   string                `json:"symbol"`
	Brackets []LeverageBracketTier `json:"brackets"`
}

// ADLQuantile holds the auto-deleverage queue estimation per position side. Keys are
// LONG, SHORT, HEDGE (hedge mode) or BOTH (one-way mode).
type ADLQuantile struct {
	Symbol      string         `json:"symbol"`
	ADLQuantile map[string]int `json:"adlQuantile"`
}

type CommissionRate struct {
	Symbol              string `json:"symbol"`
	MakerCommissionRate string `json:"makerCommissionRate"`
	TakerCommissionRate string `json:"takerCommissionRate"`
}

// Broker

type BrokerIfNewUser struct {
	BrokerID      string `json:"brokerId"`
	RebateWorking bool   `json:"rebateWorking"`
	IfNewUser     bool   `json:"ifNewUser"`
}

type BrokerCustomID struct {
	CustomerID string `json:"customerId"`
	Email      string `json:"email"`
}

type BrokerUserCustomID struct {
	CustomerID string `json:"customerId"`
}

type BrokerRebateOverview struct {
	BrokerID                  string `json:"brokerId"`
	NewTraderRebateCommission string `json:"newTraderRebateCommission"`
	OldTraderRebateCommission string `json:"oldTraderRebateCommission"`
	TotalTradeUser            int64  `json:"totalTradeUser"`
	Unit                      string `json:"unit"`
	TotalTradeVol             string `json:"totalTradeVol"`
	TotalRebateVol            string `json:"totalRebateVol"`
	Time                      int64  `json:"time"`
}

type BrokerTradeVolume struct {
	Unit     string `json:"unit"`
	TradeVol string `json:"tradeVol"`
	Time     int64  `json:"time"`
}

type BrokerRebateVolume struct {
	Unit      string `json:"unit"`
	RebateVol string `json:"rebateVol"`
	Time      int64  `json:"time"`
}

type BrokerTraderSummary struct {
	CustomerID string `json:"customerId"`
	Unit       string `json:"unit"`
	TradeVol   string `json:"tradeVol"`
	RebateVol  string `json:"rebateVol"`
	Time       int64  `json:"time"`
}

// User data stream

type ListenKey struct {
	ListenKey string `json:"listenKey"`
}

// decodeOneOrMany decodes endpoints that answer with an object for a single symbol and an
// array otherwise.
func decodeOneOrMany[T any](data []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var one T
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return nil, err
		}
		return []T{one}, nil
	}
	var many []T
	if err := json.Unmarshal(trimmed, &many); err != nil {
		return nil, err
	}
	return many, nil
}

func toInt64(v interface{}) int64 {
	switch val := v.(type) {
	case json.Number:
		i, err := val.Int64()
		if err != nil {
			f, _ := val.Float64()
			return int64(f)
		}
		return i
	case float64:
		return int64(val)
	case string:
		n, _ := json.Number(val).Int64()
		return n
	default:
		return 0
	}
}

func toString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}
