package order

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"coinm/pkg/errors"
	"coinm/pkg/logger"
)

// Service journals batch order outcomes and publishes them as events.
type Service struct {
	repo      Repository
	publisher EventPublisher
	log       *logger.Logger
}

// NewService constructs a journal service. Either collaborator may be nil, in which case
// that half of Record is skipped.
func NewService(repo Repository, publisher EventPublisher) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		log:       logger.Get().With("component", "order_journal"),
	}
}

// Record saves entries and publishes one event per entry. Publishing is attempted even
// when saving fails; all failures are returned together.
func (s *Service) Record(ctx context.Context, entries []*JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	for i, e := range entries {
		if e == nil || e.BatchID == uuid.Nil || !e.Operation.Valid() {
			return errors.NewValidationError(fmt.Sprintf("entries[%d]", i), "batch id and operation are required", e)
		}
	}

	var errs errors.MultiError

	if s.repo != nil {
		if err := s.repo.SaveBatch(ctx, entries); err != nil {
			errs.Add(fmt.Errorf("save journal batch: %w", err))
		}
	}

	if s.publisher != nil {
		for _, e := range entries {
			if err := s.publisher.Publish(ctx, TopicFor(e), eventKey(e), NewEvent(e)); err != nil {
				errs.Add(fmt.Errorf("publish journal event %s: %w", e.ID, err))
			}
		}
	}

	if errs.HasErrors() {
		s.log.Warnw("journal record incomplete", "batch_id", entries[0].BatchID, "error", errs.Error())
	}
	return errs.ToError()
}

// Batch returns the entries of one batch call, in batch order.
func (s *Service) Batch(ctx context.Context, batchID uuid.UUID) ([]*JournalEntry, error) {
	if s.repo == nil {
		return nil, errors.ErrUnavailable
	}
	if batchID == uuid.Nil {
		return nil, errors.NewValidationError("batch_id", "required", batchID)
	}
	entries, err := s.repo.GetByBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("get journal batch: %w", err)
	}
	return entries, nil
}

// History returns every entry recorded for a client order id, oldest first.
func (s *Service) History(ctx context.Context, clientOrderID string) ([]*JournalEntry, error) {
	if s.repo == nil {
		return nil, errors.ErrUnavailable
	}
	if clientOrderID == "" {
		return nil, errors.NewValidationError("client_order_id", "required", "")
	}
	entries, err := s.repo.GetByClientOrderID(ctx, clientOrderID)
	if err != nil {
		return nil, fmt.Errorf("get order history: %w", err)
	}
	return entries, nil
}

// RecentRejections returns the latest rejected entries, newest first.
func (s *Service) RecentRejections(ctx context.Context, limit int) ([]*JournalEntry, error) {
	if s.repo == nil {
		return nil, errors.ErrUnavailable
	}
	if limit <= 0 {
		limit = 20
	}
	return s.repo.GetRecentRejections(ctx, limit)
}
