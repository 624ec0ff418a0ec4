package binance

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"coinm/internal/orderid"
	"coinm/pkg/errors"
)

// MaxBatchOrders is the largest batch the exchange accepts. Larger batches are not checked
// locally; the exchange rejects the whole call.
const MaxBatchOrders = 5

const (
	fieldBatchOrders           = "batchOrders"
	fieldOrderIDList           = "orderIdList"
	fieldOrigClientOrderIDList = "origClientOrderIdList"
)

// BatchResult is one element of a batch response: either the accepted order record or the
// exchange error for that element, never both.
type BatchResult[T any] struct {
	Value *T
	Err   *APIError
}

// OK reports whether the element was accepted.
func (r BatchResult[T]) OK() bool {
	return r.Err == nil
}

// UnmarshalJSON tells the two shapes apart by the presence of a "code" field, which only
// error records carry.
func (r *BatchResult[T]) UnmarshalJSON(data []byte) error {
	var shape struct {
		Code *int `json:"code"`
	}
	if err := json.Unmarshal(data, &shape); err != nil {
		return err
	}

	if shape.Code != nil {
		var apiErr APIError
		if err := json.Unmarshal(data, &apiErr); err != nil {
			return err
		}
		r.Value, r.Err = nil, &apiErr
		return nil
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	r.Value, r.Err = &v, nil
	return nil
}

// BatchRejection is a rejected element and its position in the submitted batch.
type BatchRejection struct {
	Index int
	Err   *APIError
}

// BatchResults holds the per element outcomes of a batch call in submission order.
type BatchResults[T any] []BatchResult[T]

// Accepted returns the accepted records, in order.
func (b BatchResults[T]) Accepted() []*T {
	out := make([]*T, 0, len(b))
	for _, r := range b {
		if r.OK() {
			out = append(out, r.Value)
		}
	}
	return out
}

// Rejected returns the rejected elements with their batch positions.
func (b BatchResults[T]) Rejected() []BatchRejection {
	var out []BatchRejection
	for i, r := range b {
		if !r.OK() {
			out = append(out, BatchRejection{Index: i, Err: r.Err})
		}
	}
	return out
}

// AllAccepted reports whether every element was accepted.
func (b BatchResults[T]) AllAccepted() bool {
	for _, r := range b {
		if !r.OK() {
			return false
		}
	}
	return true
}

// Counts returns the number of accepted and rejected elements.
func (b BatchResults[T]) Counts() (accepted, rejected int) {
	for _, r := range b {
		if r.OK() {
			accepted++
		} else {
			rejected++
		}
	}
	return accepted, rejected
}

// encodeNewOrderBatch runs every order through the id authority and frames the orders as
// the batchOrders field. The identifier each order went out with is written back into
// orders so the caller can correlate results.
func encodeNewOrderBatch(auth *orderid.Authority, orders []NewOrderParams) (url.Values, error) {
	parts := make([]string, 0, len(orders))
	for i := range orders {
		order := orders[i]
		auth.Ensure(orderid.PropertyNewClientOrderID, &order.NewClientOrderID, order)
		orders[i].NewClientOrderID = order.NewClientOrderID

		raw, err := json.Marshal(order)
		if err != nil {
			return nil, errors.Wrapf(err, "encode batch order %d", i)
		}
		parts = append(parts, string(raw))
	}
	return url.Values{fieldBatchOrders: {frameJSONArray(parts)}}, nil
}

// encodeModifyBatch frames amendments the same way. Amendments reference existing orders,
// so no identifiers are minted.
func encodeModifyBatch(orders []ModifyOrderParams) (url.Values, error) {
	parts := make([]string, 0, len(orders))
	for i, order := range orders {
		raw, err := json.Marshal(order)
		if err != nil {
			return nil, errors.Wrapf(err, "encode batch amendment %d", i)
		}
		parts = append(parts, string(raw))
	}
	return url.Values{fieldBatchOrders: {frameJSONArray(parts)}}, nil
}

// encodeCancelBatch renders the id lists of a batch cancel. Ids are passed through as given.
func encodeCancelBatch(params CancelMultipleOrdersParams) url.Values {
	values := url.Values{"symbol": {params.Symbol}}

	if len(params.OrderIDList) > 0 {
		ids := make([]string, len(params.OrderIDList))
		for i, id := range params.OrderIDList {
			ids[i] = strconv.FormatInt(id, 10)
		}
		values.Set(fieldOrderIDList, frameJSONArray(ids))
	}

	if len(params.OrigClientOrderIDList) > 0 {
		ids := make([]string, len(params.OrigClientOrderIDList))
		for i, id := range params.OrigClientOrderIDList {
			quoted, _ := json.Marshal(id)
			ids[i] = string(quoted)
		}
		values.Set(fieldOrigClientOrderIDList, frameJSONArray(ids))
	}

	return values
}

func frameJSONArray(elements []string) string {
	return "[" + strings.Join(elements, ",") + "]"
}
