package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"coinm/internal/adapters/exchanges/websocket"
)

// printHandler writes one line per user data event.
type printHandler struct {
	mu  sync.Mutex
	out io.Writer
}

func (h *printHandler) printf(at time.Time, format string, args ...interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fmt.Fprintf(h.out, at.Local().Format(time.TimeOnly)+" "+format+"\n", args...)
}

func (h *printHandler) OnOrderUpdate(_ context.Context, e *websocket.OrderUpdate) error {
	tag := ""
	if !e.Tagged {
		tag = " (external)"
	}
	h.printf(e.EventTime, "ORDER %s %s %s %s %s@%s filled %s/%s %s%s",
		e.Symbol, e.ExecutionType, e.Status, e.Side, e.OrigQty, e.Price, e.FilledQty, e.OrigQty, e.ClientOrderID, tag)
	return nil
}

func (h *printHandler) OnAccountUpdate(_ context.Context, e *websocket.AccountUpdate) error {
	h.printf(e.EventTime, "ACCOUNT %s: %d balances, %d positions", e.Reason, len(e.Balances), len(e.Positions))
	for _, b := range e.Balances {
		h.printf(e.EventTime, "  %s wallet %s (%s)", b.Asset, b.WalletBalance, b.BalanceChange.StringFixed(8))
	}
	for _, p := range e.Positions {
		h.printf(e.EventTime, "  %s %s amount %s entry %s upnl %s", p.Symbol, p.PositionSide, p.Amount, p.EntryPrice, p.UnrealizedPnL)
	}
	return nil
}

func (h *printHandler) OnMarginCall(_ context.Context, e *websocket.MarginCall) error {
	for _, p := range e.Positions {
		h.printf(e.EventTime, "MARGIN CALL %s %s amount %s mark %s maint %s",
			p.Symbol, p.PositionSide, p.Amount, p.MarkPrice, p.MaintenanceMargin)
	}
	return nil
}

func (h *printHandler) OnAccountConfigUpdate(_ context.Context, e *websocket.AccountConfigUpdate) error {
	h.printf(e.EventTime, "CONFIG %s leverage %dx", e.Symbol, e.Leverage)
	return nil
}
