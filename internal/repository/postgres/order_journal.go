package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"coinm/internal/domain/order"
	"coinm/internal/metrics"
	"coinm/pkg/errors"
)

// Compile-time check
var _ order.Repository = (*OrderJournalRepository)(nil)

const journalSchema = `
CREATE TABLE IF NOT EXISTS order_journal (
	id                UUID PRIMARY KEY,
	batch_id          UUID NOT NULL,
	position          INTEGER NOT NULL,
	category          TEXT NOT NULL,
	operation         TEXT NOT NULL,
	outcome           TEXT NOT NULL,
	symbol            TEXT NOT NULL DEFAULT '',
	side              TEXT NOT NULL DEFAULT '',
	order_type        TEXT NOT NULL DEFAULT '',
	quantity          NUMERIC NOT NULL DEFAULT 0,
	price             NUMERIC NOT NULL DEFAULT 0,
	client_order_id   TEXT NOT NULL DEFAULT '',
	exchange_order_id BIGINT NOT NULL DEFAULT 0,
	status            TEXT NOT NULL DEFAULT '',
	error_code        INTEGER NOT NULL DEFAULT 0,
	error_message     TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL,
	UNIQUE (batch_id, position)
);
CREATE INDEX IF NOT EXISTS idx_order_journal_client_order_id ON order_journal (client_order_id);
CREATE INDEX IF NOT EXISTS idx_order_journal_rejected ON order_journal (created_at DESC) WHERE outcome = 'rejected';
`

const journalColumns = `
	id, batch_id, position, category, operation, outcome,
	symbol, side, order_type, quantity, price,
	client_order_id, exchange_order_id, status,
	error_code, error_message, created_at`

// OrderJournalRepository implements order.Repository using sqlx
type OrderJournalRepository struct {
	db DBTX
}

// NewOrderJournalRepository creates a new journal repository
func NewOrderJournalRepository(db DBTX) *OrderJournalRepository {
	return &OrderJournalRepository{db: db}
}

// EnsureSchema creates the journal table and its indexes when missing
func (r *OrderJournalRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, journalSchema); err != nil {
		return errors.Wrap(err, "create order_journal schema")
	}
	return nil
}

// SaveBatch inserts all entries of one batch call. Re-saving a batch is a no-op.
func (r *OrderJournalRepository) SaveBatch(ctx context.Context, entries []*order.JournalEntry) (err error) {
	if len(entries) == 0 {
		return nil
	}

	start := time.Now()
	defer func() { metrics.RecordDBQuery("postgres", "journal_save_batch", time.Since(start), err) }()

	query := `
		INSERT INTO order_journal (` + journalColumns + `
		) VALUES (
			:id, :batch_id, :position, :category, :operation, :outcome,
			:symbol, :side, :order_type, :quantity, :price,
			:client_order_id, :exchange_order_id, :status,
			:error_code, :error_message, :created_at
		)
		ON CONFLICT (batch_id, position) DO NOTHING`

	for _, e := range entries {
		if _, err = r.db.NamedExecContext(ctx, query, e); err != nil {
			return errors.Wrapf(err, "insert journal entry %d of batch %s", e.Position, e.BatchID)
		}
	}
	return nil
}

// GetByBatch returns the entries of a batch in element order
func (r *OrderJournalRepository) GetByBatch(ctx context.Context, batchID uuid.UUID) ([]*order.JournalEntry, error) {
	var entries []*order.JournalEntry
	query := `SELECT ` + journalColumns + ` FROM order_journal WHERE batch_id = $1 ORDER BY position ASC`

	start := time.Now()
	err := r.db.SelectContext(ctx, &entries, query, batchID)
	metrics.RecordDBQuery("postgres", "journal_get_batch", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.ErrNotFound
	}
	return entries, nil
}

// GetByClientOrderID returns every entry recorded for a client order id, oldest first
func (r *OrderJournalRepository) GetByClientOrderID(ctx context.Context, clientOrderID string) ([]*order.JournalEntry, error) {
	var entries []*order.JournalEntry
	query := `SELECT ` + journalColumns + ` FROM order_journal WHERE client_order_id = $1 ORDER BY created_at ASC, position ASC`

	start := time.Now()
	err := r.db.SelectContext(ctx, &entries, query, clientOrderID)
	metrics.RecordDBQuery("postgres", "journal_get_by_client_id", time.Since(start), err)
	return entries, err
}

// GetRecentRejections returns the newest rejected entries
func (r *OrderJournalRepository) GetRecentRejections(ctx context.Context, limit int) ([]*order.JournalEntry, error) {
	var entries []*order.JournalEntry
	query := `SELECT ` + journalColumns + ` FROM order_journal WHERE outcome = $1 ORDER BY created_at DESC LIMIT $2`

	start := time.Now()
	err := r.db.SelectContext(ctx, &entries, query, order.OutcomeRejected, limit)
	metrics.RecordDBQuery("postgres", "journal_recent_rejections", time.Since(start), err)
	return entries, err
}
