package order

import (
	"time"

	"github.com/google/uuid"
)

// Event topics
const (
	TopicOrderPlaced   = "orders.placed"
	TopicOrderRejected = "orders.rejected"
	TopicOrderModified = "orders.modified"
	TopicOrderCanceled = "orders.canceled"
)

// Topics lists every topic the journal publishes to.
var Topics = []string{TopicOrderPlaced, TopicOrderRejected, TopicOrderModified, TopicOrderCanceled}

// TopicFor picks the topic of an entry. Rejections of any operation share one topic.
func TopicFor(e *JournalEntry) string {
	if e.Outcome == OutcomeRejected {
		return TopicOrderRejected
	}
	switch e.Operation {
	case OperationModify:
		return TopicOrderModified
	case OperationCancel:
		return TopicOrderCanceled
	default:
		return TopicOrderPlaced
	}
}

// Event is the message body published for a journal entry.
type Event struct {
	EntryID         uuid.UUID `json:"entry_id"`
	BatchID         uuid.UUID `json:"batch_id"`
	Position        int       `json:"position"`
	Category        string    `json:"category"`
	Operation       Operation `json:"operation"`
	Outcome         Outcome   `json:"outcome"`
	Symbol          string    `json:"symbol"`
	Side            string    `json:"side,omitempty"`
	OrderType       string    `json:"order_type,omitempty"`
	Quantity        string    `json:"quantity,omitempty"`
	Price           string    `json:"price,omitempty"`
	ClientOrderID   string    `json:"client_order_id,omitempty"`
	ExchangeOrderID int64     `json:"exchange_order_id,omitempty"`
	Status          string    `json:"status,omitempty"`
	ErrorCode       int       `json:"error_code,omitempty"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// NewEvent builds the event for e.
func NewEvent(e *JournalEntry) Event {
	ev := Event{
		EntryID:         e.ID,
		BatchID:         e.BatchID,
		Position:        e.Position,
		Category:        e.Category,
		Operation:       e.Operation,
		Outcome:         e.Outcome,
		Symbol:          e.Symbol,
		Side:            e.Side,
		OrderType:       e.OrderType,
		ClientOrderID:   e.ClientOrderID,
		ExchangeOrderID: e.ExchangeOrderID,
		Status:          e.Status,
		ErrorCode:       e.ErrorCode,
		ErrorMessage:    e.ErrorMessage,
		Timestamp:       e.CreatedAt,
	}
	if !e.Quantity.IsZero() {
		ev.Quantity = e.Quantity.String()
	}
	if !e.Price.IsZero() {
		ev.Price = e.Price.String()
	}
	return ev
}

// eventKey keys events by client order id so one order's events land on one partition.
func eventKey(e *JournalEntry) string {
	if e.ClientOrderID != "" {
		return e.ClientOrderID
	}
	return e.BatchID.String()
}
