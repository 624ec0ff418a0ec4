package websocket

import (
	"context"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2/delivery"
	"github.com/shopspring/decimal"

	"coinm/internal/adapters/exchanges"
)

// User data event types
const (
	EventOrderTradeUpdate    = delivery.UserDataEventTypeOrderTradeUpdate
	EventAccountUpdate       = delivery.UserDataEventTypeAccountUpdate
	EventMarginCall          = delivery.UserDataEventTypeMarginCall
	EventAccountConfigUpdate = delivery.UserDataEventTypeAccountConfigUpdate
	EventListenKeyExpired    = delivery.UserDataEventTypeListenKeyExpired
)

// Handler receives decoded user data events. Methods are called from the stream's read
// loop and should not block.
type Handler interface {
	OnOrderUpdate(ctx context.Context, event *OrderUpdate) error
	OnAccountUpdate(ctx context.Context, event *AccountUpdate) error
	OnMarginCall(ctx context.Context, event *MarginCall) error
	OnAccountConfigUpdate(ctx context.Context, event *AccountConfigUpdate) error
}

// OrderUpdate is an ORDER_TRADE_UPDATE event.
type OrderUpdate struct {
	Category      string `json:"category"`
	Symbol        string `json:"symbol"`
	OrderID       int64  `json:"order_id"`
	ClientOrderID string `json:"client_order_id"`
	// Tagged is set when ClientOrderID carries the category prefix, i.e. the order was
	// placed through this client.
	Tagged        bool   `json:"tagged"`
	Side          string `json:"side"`
	PositionSide  string `json:"position_side"`
	Type          string `json:"type"`
	OrigType      string `json:"orig_type"`
	TimeInForce   string `json:"time_in_force"`
	ExecutionType string `json:"execution_type"` // NEW, TRADE, CANCELED, EXPIRED, AMENDMENT
	Status        string `json:"status"`

	OrigQty         decimal.Decimal `json:"orig_qty"`
	Price           decimal.Decimal `json:"price"`
	AvgPrice        decimal.Decimal `json:"avg_price"`
	StopPrice       decimal.Decimal `json:"stop_price"`
	LastFilledQty   decimal.Decimal `json:"last_filled_qty"`
	LastFilledPrice decimal.Decimal `json:"last_filled_price"`
	FilledQty       decimal.Decimal `json:"filled_qty"`
	Commission      decimal.Decimal `json:"commission"`
	CommissionAsset string          `json:"commission_asset,omitempty"`
	RealizedProfit  decimal.Decimal `json:"realized_profit"`

	TradeID    int64     `json:"trade_id,omitempty"`
	IsMaker    bool      `json:"is_maker"`
	ReduceOnly bool      `json:"reduce_only"`
	TradeTime  time.Time `json:"trade_time"`
	EventTime  time.Time `json:"event_time"`
}

// AccountUpdate is an ACCOUNT_UPDATE event: the balances and positions touched by one
// account change.
type AccountUpdate struct {
	Category  string           `json:"category"`
	Reason    string           `json:"reason"` // ORDER, FUNDING_FEE, DEPOSIT, ...
	Balances  []BalanceChange  `json:"balances"`
	Positions []PositionChange `json:"positions"`
	EventTime time.Time        `json:"event_time"`
}

type BalanceChange struct {
	Asset              string          `json:"asset"`
	WalletBalance      decimal.Decimal `json:"wallet_balance"`
	CrossWalletBalance decimal.Decimal `json:"cross_wallet_balance"`
	BalanceChange      decimal.Decimal `json:"balance_change"`
}

type PositionChange struct {
	Symbol         string          `json:"symbol"`
	PositionSide   string          `json:"position_side"`
	Amount         decimal.Decimal `json:"amount"`
	EntryPrice     decimal.Decimal `json:"entry_price"`
	RealizedPnL    decimal.Decimal `json:"realized_pnl"`
	UnrealizedPnL  decimal.Decimal `json:"unrealized_pnl"`
	MarginType     string          `json:"margin_type"`
	IsolatedWallet decimal.Decimal `json:"isolated_wallet"`
}

// MarginCall is a MARGIN_CALL event listing the positions at risk of liquidation.
type MarginCall struct {
	Category           string           `json:"category"`
	CrossWalletBalance decimal.Decimal  `json:"cross_wallet_balance"`
	Positions          []PositionAtRisk `json:"positions"`
	EventTime          time.Time        `json:"event_time"`
}

type PositionAtRisk struct {
	Symbol            string          `json:"symbol"`
	PositionSide      string          `json:"position_side"`
	Amount            decimal.Decimal `json:"amount"`
	MarginType        string          `json:"margin_type"`
	IsolatedWallet    decimal.Decimal `json:"isolated_wallet"`
	MarkPrice         decimal.Decimal `json:"mark_price"`
	UnrealizedPnL     decimal.Decimal `json:"unrealized_pnl"`
	MaintenanceMargin decimal.Decimal `json:"maintenance_margin"`
}

// AccountConfigUpdate is an ACCOUNT_CONFIG_UPDATE event, sent on leverage changes.
type AccountConfigUpdate struct {
	Category  string    `json:"category"`
	Symbol    string    `json:"symbol"`
	Leverage  int       `json:"leverage"`
	EventTime time.Time `json:"event_time"`
}

// Payloads are decoded with the delivery package's wire types and normalized here.

type envelope struct {
	Event delivery.UserDataEventType `json:"e"`
}

// accountConfigEvent carries the "ac" object, which delivery.WsUserDataEvent does not decode.
type accountConfigEvent struct {
	Config delivery.WsAccountConfigUpdate `json:"ac"`
}

func orderUpdate(category string, e *delivery.WsUserDataEvent) *OrderUpdate {
	o := e.OrderTradeUpdate
	return &OrderUpdate{
		Category:        category,
		Symbol:          o.Symbol,
		OrderID:         o.ID,
		ClientOrderID:   o.ClientOrderID,
		Side:            string(o.Side),
		PositionSide:    string(o.PositionSide),
		Type:            string(o.Type),
		OrigType:        string(o.OriginalType),
		TimeInForce:     string(o.TimeInForce),
		ExecutionType:   string(o.ExecutionType),
		Status:          string(o.Status),
		OrigQty:         exchanges.ParseDecimal(o.OriginalQty),
		Price:           exchanges.ParseDecimal(o.OriginalPrice),
		AvgPrice:        exchanges.ParseDecimal(o.AveragePrice),
		StopPrice:       exchanges.ParseDecimal(o.StopPrice),
		LastFilledQty:   exchanges.ParseDecimal(o.LastFilledQty),
		LastFilledPrice: exchanges.ParseDecimal(o.LastFilledPrice),
		FilledQty:       exchanges.ParseDecimal(o.AccumulatedFilledQty),
		Commission:      exchanges.ParseDecimal(o.Commission),
		CommissionAsset: o.CommissionAsset,
		RealizedProfit:  exchanges.ParseDecimal(o.RealizedPnL),
		TradeID:         o.TradeID,
		IsMaker:         o.IsMaker,
		ReduceOnly:      o.IsReduceOnly,
		TradeTime:       time.UnixMilli(o.TradeTime),
		EventTime:       time.UnixMilli(e.Time),
	}
}

func accountUpdate(category string, e *delivery.WsUserDataEvent) *AccountUpdate {
	a := e.AccountUpdate
	ev := &AccountUpdate{
		Category:  category,
		Reason:    string(a.Reason),
		Balances:  make([]BalanceChange, 0, len(a.Balances)),
		Positions: make([]PositionChange, 0, len(a.Positions)),
		EventTime: time.UnixMilli(e.Time),
	}
	for _, b := range a.Balances {
		ev.Balances = append(ev.Balances, BalanceChange{
			Asset:              b.Asset,
			WalletBalance:      exchanges.ParseDecimal(b.Balance),
			CrossWalletBalance: exchanges.ParseDecimal(b.CrossWalletBalance),
			BalanceChange:      exchanges.ParseDecimal(b.BalanceChange),
		})
	}
	for _, p := range a.Positions {
		ev.Positions = append(ev.Positions, PositionChange{
			Symbol:         p.Symbol,
			PositionSide:   string(p.Side),
			Amount:         exchanges.ParseDecimal(p.Amount),
			EntryPrice:     exchanges.ParseDecimal(p.EntryPrice),
			RealizedPnL:    exchanges.ParseDecimal(p.AccumulatedRealized),
			UnrealizedPnL:  exchanges.ParseDecimal(p.UnrealizedPnL),
			MarginType:     string(p.MarginType),
			IsolatedWallet: exchanges.ParseDecimal(p.IsolatedWallet),
		})
	}
	return ev
}

func marginCall(category string, e *delivery.WsUserDataEvent) *MarginCall {
	ev := &MarginCall{
		Category:           category,
		CrossWalletBalance: exchanges.ParseDecimal(e.CrossWalletBalance),
		Positions:          make([]PositionAtRisk, 0, len(e.MarginCallPositions)),
		EventTime:          time.UnixMilli(e.Time),
	}
	for _, p := range e.MarginCallPositions {
		ev.Positions = append(ev.Positions, PositionAtRisk{
			Symbol:            p.Symbol,
			PositionSide:      string(p.Side),
			Amount:            exchanges.ParseDecimal(p.Amount),
			MarginType:        strings.ToLower(string(p.MarginType)),
			IsolatedWallet:    exchanges.ParseDecimal(p.IsolatedWallet),
			MarkPrice:         exchanges.ParseDecimal(p.MarkPrice),
			UnrealizedPnL:     exchanges.ParseDecimal(p.UnrealizedPnL),
			MaintenanceMargin: exchanges.ParseDecimal(p.MaintenanceMarginRequired),
		})
	}
	return ev
}

func accountConfigUpdate(category string, e *delivery.WsUserDataEvent, ac *accountConfigEvent) *AccountConfigUpdate {
	return &AccountConfigUpdate{
		Category:  category,
		Symbol:    ac.Config.Symbol,
		Leverage:  int(ac.Config.Leverage),
		EventTime: time.UnixMilli(e.Time),
	}
}
