package binance

import (
	"context"

	"github.com/google/uuid"

	"coinm/internal/adapters/exchanges"
	"coinm/internal/domain/order"
	"coinm/internal/metrics"
)

// Recorder journals the outcome of batch calls. order.Service satisfies it.
type Recorder interface {
	Record(ctx context.Context, entries []*order.JournalEntry) error
}

// journalPlacements records a batchOrders submission. orders carry the ids they were sent with.
func (c *CoinMClient) journalPlacements(ctx context.Context, orders []NewOrderParams, results BatchResults[OrderResult]) {
	entries := c.journalEntries(order.OperationPlace, results, func(e *order.JournalEntry, i int) {
		if i >= len(orders) {
			return
		}
		o := orders[i]
		e.Symbol = o.Symbol
		e.Side = string(o.Side)
		e.OrderType = string(o.Type)
		e.Quantity = exchanges.ParseDecimal(o.Quantity)
		e.Price = exchanges.ParseDecimal(o.Price)
		e.ClientOrderID = o.NewClientOrderID
	})
	c.record(ctx, order.OperationPlace, entries, results)
}

// journalModifications records a batch amendment.
func (c *CoinMClient) journalModifications(ctx context.Context, orders []ModifyOrderParams, results BatchResults[OrderResult]) {
	entries := c.journalEntries(order.OperationModify, results, func(e *order.JournalEntry, i int) {
		if i >= len(orders) {
			return
		}
		o := orders[i]
		e.Symbol = o.Symbol
		e.Side = string(o.Side)
		e.Quantity = exchanges.ParseDecimal(o.Quantity)
		e.Price = exchanges.ParseDecimal(o.Price)
		e.ClientOrderID = o.OrigClientOrderID
	})
	c.record(ctx, order.OperationModify, entries, results)
}

// journalCancellations records a batch cancel. Accepted elements carry their own order and
// client ids. A rejected element only has its position, which is mapped back to the id lists
// as sent: order ids first, then client order ids.
func (c *CoinMClient) journalCancellations(ctx context.Context, params CancelMultipleOrdersParams, results BatchResults[OrderResult]) {
	entries := c.journalEntries(order.OperationCancel, results, func(e *order.JournalEntry, i int) {
		e.Symbol = params.Symbol
		if results[i].OK() {
			return
		}
		if i < len(params.OrderIDList) {
			e.ExchangeOrderID = params.OrderIDList[i]
		} else if j := i - len(params.OrderIDList); j < len(params.OrigClientOrderIDList) {
			e.ClientOrderID = params.OrigClientOrderIDList[j]
		}
	})
	c.record(ctx, order.OperationCancel, entries, results)
}

func (c *CoinMClient) journalEntries(op order.Operation, results BatchResults[OrderResult], fill func(e *order.JournalEntry, i int)) []*order.JournalEntry {
	batchID := uuid.New()
	entries := make([]*order.JournalEntry, 0, len(results))

	for i, r := range results {
		e := order.NewJournalEntry(batchID, i, string(c.category), op)
		fill(e, i)
		if r.OK() {
			v := r.Value
			if e.Symbol == "" {
				e.Symbol = v.Symbol
			}
			if e.Side == "" {
				e.Side = v.Side
			}
			if e.OrderType == "" {
				e.OrderType = v.Type
			}
			e.Accept(v.OrderID, v.ClientOrderID, v.Status)
		} else {
			e.Reject(r.Err.Code, r.Err.Msg)
		}
		entries = append(entries, e)
	}
	return entries
}

// record counts batch outcomes and hands entries to the recorder. Journal failures never
// reach the caller.
func (c *CoinMClient) record(ctx context.Context, op order.Operation, entries []*order.JournalEntry, results BatchResults[OrderResult]) {
	accepted, rejected := results.Counts()
	metrics.RecordBatchResults(string(op), accepted, rejected)

	if rejected > 0 {
		for _, r := range results.Rejected() {
			c.log.Infow("batch element rejected",
				"operation", op,
				"index", r.Index,
				"code", r.Err.Code,
				"msg", r.Err.Msg,
			)
		}
	}

	if c.recorder == nil || len(entries) == 0 {
		return
	}
	if err := c.recorder.Record(ctx, entries); err != nil {
		c.log.Warnw("failed to journal batch",
			"operation", op,
			"batch_id", entries[0].BatchID,
			"error", err,
		)
	}
}
