package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Operation is the batch call an entry came from.
type Operation string

const (
	OperationPlace  Operation = "place"
	OperationModify Operation = "modify"
	OperationCancel Operation = "cancel"
)

// Valid checks if operation is valid
func (o Operation) Valid() bool {
	switch o {
	case OperationPlace, OperationModify, OperationCancel:
		return true
	}
	return false
}

// Outcome is how the exchange answered one element of a batch.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeRejected Outcome = "rejected"
)

// JournalEntry records one element of a batch order call and the exchange's answer to it.
// Entries of the same call share BatchID; Position is the element index in the batch.
type JournalEntry struct {
	ID       uuid.UUID `db:"id"`
	BatchID  uuid.UUID `db:"batch_id"`
	Position int       `db:"position"`
	Category string    `db:"category"` // coinm, coinmtest

	Operation Operation `db:"operation"`
	Outcome   Outcome   `db:"outcome"`

	Symbol    string          `db:"symbol"`
	Side      string          `db:"side"`
	OrderType string          `db:"order_type"`
	Quantity  decimal.Decimal `db:"quantity"`
	Price     decimal.Decimal `db:"price"`

	ClientOrderID   string `db:"client_order_id"`
	ExchangeOrderID int64  `db:"exchange_order_id"`
	Status          string `db:"status"` // exchange order status when accepted

	// Rejection details
	ErrorCode    int    `db:"error_code"`
	ErrorMessage string `db:"error_message"`

	CreatedAt time.Time `db:"created_at"`
}

// NewJournalEntry creates an entry for element position of batch batchID.
func NewJournalEntry(batchID uuid.UUID, position int, category string, op Operation) *JournalEntry {
	return &JournalEntry{
		ID:        uuid.New(),
		BatchID:   batchID,
		Position:  position,
		Category:  category,
		Operation: op,
		Quantity:  decimal.Zero,
		Price:     decimal.Zero,
		CreatedAt: time.Now().UTC(),
	}
}

// Accept fills the entry from an accepted order record.
func (e *JournalEntry) Accept(exchangeOrderID int64, clientOrderID, status string) {
	e.Outcome = OutcomeAccepted
	e.ExchangeOrderID = exchangeOrderID
	if clientOrderID != "" {
		e.ClientOrderID = clientOrderID
	}
	e.Status = status
}

// Reject fills the entry from an exchange error record.
func (e *JournalEntry) Reject(code int, msg string) {
	e.Outcome = OutcomeRejected
	e.ErrorCode = code
	e.ErrorMessage = msg
}
