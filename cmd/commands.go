package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"coinm/internal/adapters/config"
	"coinm/internal/adapters/exchangefactory"
	"coinm/internal/adapters/exchanges/binance"
	"coinm/internal/adapters/exchanges/websocket"
	"coinm/internal/adapters/kafka"
	"coinm/internal/domain/order"
	"coinm/pkg/errors"
	"coinm/pkg/logger"
)

var errUsage = errors.New("usage")

func usageError(format string, args ...interface{}) error {
	return errors.Wrapf(errUsage, format, args...)
}

type commands struct {
	stack *exchangefactory.Stack
	cfg   *config.Config
	out   io.Writer
	log   *logger.Logger
}

func (c *commands) dispatch(ctx context.Context, name string, args []string) error {
	switch name {
	case "ping":
		return c.ping(ctx)
	case "time":
		return c.serverTime(ctx)
	case "info":
		return c.info(ctx, args)
	case "balance":
		return c.balance(ctx)
	case "positions":
		return c.positions(ctx)
	case "open-orders":
		return c.openOrders(ctx, args)
	case "batch":
		return c.batch(ctx, args)
	case "cancel-batch":
		return c.cancelBatch(ctx, args)
	case "listen":
		return c.listen(ctx)
	case "journal":
		return c.journal(ctx, args)
	case "rejections":
		return c.rejections(ctx, args)
	case "events":
		return c.events(ctx, args)
	default:
		return usageError("unknown command %q", name)
	}
}

func (c *commands) ping(ctx context.Context) error {
	start := time.Now()
	if err := c.stack.Health(ctx); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "ok (%s) in %s\n", c.stack.Category, time.Since(start).Round(time.Millisecond))
	return nil
}

func (c *commands) serverTime(ctx context.Context) error {
	ms, err := c.stack.Client.GetServerTime(ctx)
	if err != nil {
		return err
	}
	server := time.UnixMilli(ms).UTC()
	fmt.Fprintf(c.out, "server time  %s\n", server.Format(time.RFC3339Nano))
	if c.stack.Transport != nil {
		fmt.Fprintf(c.out, "clock offset %s\n", c.stack.Transport.ClockOffset())
		rl := c.stack.Transport.RateLimits()
		fmt.Fprintf(c.out, "used weight  %s / %s per minute\n",
			humanize.Comma(rl.UsedWeight1m), humanize.Comma(int64(c.cfg.RateLimit.WeightPerMinute)))
	}
	return nil
}

func (c *commands) info(ctx context.Context, args []string) error {
	info, err := c.stack.Client.GetExchangeInfo(ctx)
	if err != nil {
		return err
	}

	if len(args) > 0 {
		sym, ok := info.Symbol(strings.ToUpper(args[0]))
		if !ok {
			return errors.Wrapf(errors.ErrInvalidSymbol, "%s is not listed", args[0])
		}
		return c.printJSON(sym)
	}

	w := c.table("SYMBOL", "PAIR", "CONTRACT", "STATUS", "SIZE", "MARGIN")
	for _, s := range info.Symbols {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n", s.Symbol, s.Pair, s.ContractType, s.ContractStatus, s.ContractSize, s.MarginAsset)
	}
	return w.Flush()
}

func (c *commands) balance(ctx context.Context) error {
	balances, err := c.stack.Client.GetBalance(ctx)
	if err != nil {
		return err
	}

	w := c.table("ASSET", "BALANCE", "AVAILABLE", "CROSS UNPNL", "UPDATED")
	for _, b := range balances {
		if total, err := decimal.NewFromString(orZero(b.Balance)); err == nil && total.IsZero() {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			b.Asset, amount(b.Balance), amount(b.AvailableBalance), amount(b.CrossUnPnl), ago(b.UpdateTime))
	}
	return w.Flush()
}

func (c *commands) positions(ctx context.Context) error {
	positions, err := c.stack.Adapter.GetPositions(ctx)
	if err != nil {
		return err
	}

	w := c.table("SYMBOL", "SIDE", "CONTRACTS", "ENTRY", "MARK", "LIQ", "UNPNL", "LEV", "MARGIN")
	for _, p := range positions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%sx\t%s\n",
			p.Symbol, p.Side, p.Size, amount(p.EntryPrice.String()), amount(p.MarkPrice.String()),
			amount(p.LiquidationPrice.String()), amount(p.UnrealizedPnL.String()), p.Leverage, p.MarginMode)
	}
	return w.Flush()
}

func (c *commands) openOrders(ctx context.Context, args []string) error {
	params := binance.SymbolParams{}
	if len(args) > 0 {
		params.Symbol = strings.ToUpper(args[0])
	}
	orders, err := c.stack.Client.GetAllOpenOrders(ctx, params)
	if err != nil {
		return err
	}

	w := c.table("SYMBOL", "ID", "CLIENT ID", "SIDE", "TYPE", "PRICE", "QTY", "FILLED", "STATUS", "AGE")
	for _, o := range orders {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			o.Symbol, o.OrderID, o.ClientOrderID, o.Side, o.Type, amount(o.Price), o.OrigQty, o.ExecutedQty, o.Status, ago(o.Time))
	}
	return w.Flush()
}

// batch places the orders of a JSON file in one batchOrders call and reports each element.
func (c *commands) batch(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError("batch <file.json>")
	}
	orders, err := loadOrders(args[0])
	if err != nil {
		return err
	}

	results, err := c.stack.Client.SubmitMultipleOrders(ctx, orders)
	if err != nil {
		return err
	}
	c.printResults(results, func(i int) string { return orders[i].NewClientOrderID })
	return nil
}

// cancelBatch cancels orders by id. Numeric ids are exchange order ids, anything else is
// a client order id.
func (c *commands) cancelBatch(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usageError("cancel-batch <symbol> <id>...")
	}
	params := parseCancelIDs(strings.ToUpper(args[0]), args[1:])

	results, err := c.stack.Client.CancelMultipleOrders(ctx, params)
	if err != nil {
		return err
	}
	c.printResults(results, func(i int) string {
		if i < len(params.OrderIDList) {
			return strconv.FormatInt(params.OrderIDList[i], 10)
		}
		return params.OrigClientOrderIDList[i-len(params.OrderIDList)]
	})
	return nil
}

func (c *commands) printResults(results binance.BatchResults[binance.OrderResult], label func(i int) string) {
	w := c.table("#", "SENT AS", "RESULT", "ORDER ID", "STATUS", "DETAIL")
	for i, r := range results {
		sent := ""
		if label != nil {
			sent = label(i)
		}
		if r.OK() {
			fmt.Fprintf(w, "%d\t%s\taccepted\t%d\t%s\t%s\n", i, sent, r.Value.OrderID, r.Value.Status, r.Value.ClientOrderID)
		} else {
			fmt.Fprintf(w, "%d\t%s\trejected\t\t%d\t%s\n", i, sent, r.Err.Code, r.Err.Msg)
		}
	}
	_ = w.Flush()

	accepted, rejected := results.Counts()
	fmt.Fprintf(c.out, "%d accepted, %d rejected\n", accepted, rejected)
}

func (c *commands) listen(ctx context.Context) error {
	if !c.cfg.Binance.HasCredentials() {
		return errors.ErrMissingCredentials
	}
	stream, err := c.stack.NewUserDataStream(&printHandler{out: c.out})
	if err != nil {
		return err
	}
	c.log.Infof("Listening for %s user data, Ctrl-C to stop", c.stack.Category)
	if err := stream.Run(ctx); err != nil {
		return err
	}

	stats := stream.Stats()
	fmt.Fprintf(c.out, "%s messages, %s order updates, %s reconnects\n",
		humanize.Comma(stats.MessagesReceived), humanize.Comma(stats.OrderUpdates), humanize.Comma(stats.ReconnectCount))
	return nil
}

func (c *commands) journal(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError("journal <client-order-id>")
	}
	if c.stack.Journal == nil {
		return errors.Wrap(errors.ErrUnavailable, "journal requires POSTGRES_ENABLED")
	}
	entries, err := c.stack.Journal.History(ctx, args[0])
	if err != nil {
		return err
	}
	c.printEntries(entries)
	return nil
}

func (c *commands) rejections(ctx context.Context, args []string) error {
	limit := 20
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return usageError("rejections [limit]: limit must be a positive number")
		}
		limit = n
	}
	if c.stack.Journal == nil {
		return errors.Wrap(errors.ErrUnavailable, "journal requires POSTGRES_ENABLED")
	}
	entries, err := c.stack.Journal.RecentRejections(ctx, limit)
	if err != nil {
		return err
	}
	c.printEntries(entries)
	return nil
}

func (c *commands) printEntries(entries []*order.JournalEntry) {
	w := c.table("WHEN", "BATCH", "#", "OP", "OUTCOME", "SYMBOL", "CLIENT ID", "DETAIL")
	for _, e := range entries {
		detail := e.Status
		if e.Outcome == order.OutcomeRejected {
			detail = fmt.Sprintf("%d %s", e.ErrorCode, e.ErrorMessage)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			humanize.Time(e.CreatedAt), e.BatchID.String()[:8], e.Position, e.Operation, e.Outcome, e.Symbol, e.ClientOrderID, detail)
	}
	_ = w.Flush()
}

// events tails one topic, or every journal and user data topic, printing raw messages.
func (c *commands) events(ctx context.Context, args []string) error {
	if !c.cfg.Kafka.Enabled {
		return errors.Wrap(errors.ErrUnavailable, "events requires KAFKA_ENABLED")
	}

	topics := append(append([]string{}, order.Topics...), websocket.UserDataTopics...)
	if len(args) > 0 {
		topics = args
	}

	done := make(chan error, len(topics))
	for _, topic := range topics {
		consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:     c.cfg.Kafka.Brokers,
			Topic:       topic,
			StartOffset: kafkago.LastOffset,
		})
		if err != nil {
			return err
		}
		defer consumer.Close()

		go func(topic string) {
			done <- consumer.Consume(ctx, func(_ context.Context, msg kafkago.Message) error {
				fmt.Fprintf(c.out, "%s %s key=%s %s\n", msg.Time.Format(time.TimeOnly), topic, msg.Key, msg.Value)
				return nil
			})
		}(topic)
	}

	errs := &errors.MultiError{}
	for range topics {
		errs.Add(<-done)
	}
	return errs.ToError()
}

func (c *commands) table(headers ...string) *tabwriter.Writer {
	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(headers, "\t"))
	return w
}

func (c *commands) printJSON(v interface{}) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// loadOrders reads a JSON array of batch order elements.
func loadOrders(path string) ([]binance.NewOrderParams, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	var orders []binance.NewOrderParams
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, errors.NewValidationError("file", "must be a JSON array of orders", err.Error())
	}
	return orders, nil
}

func parseCancelIDs(symbol string, ids []string) binance.CancelMultipleOrdersParams {
	params := binance.CancelMultipleOrdersParams{Symbol: symbol}
	for _, id := range ids {
		if n, err := strconv.ParseInt(id, 10, 64); err == nil {
			params.OrderIDList = append(params.OrderIDList, n)
		} else {
			params.OrigClientOrderIDList = append(params.OrigClientOrderIDList, id)
		}
	}
	return params
}

// amount renders a decimal string with thousands separators.
func amount(s string) string {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return s
	}
	f, _ := d.Float64()
	return humanize.CommafWithDigits(f, int(max(-d.Exponent(), 0)))
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

func ago(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return humanize.Time(time.UnixMilli(ms))
}
