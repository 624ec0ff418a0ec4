package order

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for journal data access
type Repository interface {
	SaveBatch(ctx context.Context, entries []*JournalEntry) error
	GetByBatch(ctx context.Context, batchID uuid.UUID) ([]*JournalEntry, error)
	GetByClientOrderID(ctx context.Context, clientOrderID string) ([]*JournalEntry, error)
	GetRecentRejections(ctx context.Context, limit int) ([]*JournalEntry, error)
}

// EventPublisher publishes journal events. The kafka producer satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, event interface{}) error
}
