package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coinm/internal/domain/order"
	"coinm/internal/testsupport"
	"coinm/pkg/errors"
)

func newJournalRepo(t *testing.T) *OrderJournalRepository {
	t.Helper()
	testDB := testsupport.NewTestPostgres(t)
	repo := NewOrderJournalRepository(testDB.Tx())
	require.NoError(t, repo.EnsureSchema(context.Background()))
	return repo
}

func TestOrderJournalRepository_SaveAndGetBatch(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	repo := newJournalRepo(t)
	ctx := context.Background()
	batchID := uuid.New()
	clientID := "x-15PC4ZJy" + uuid.NewString()[:8]

	placed := order.NewJournalEntry(batchID, 0, "coinmtest", order.OperationPlace)
	placed.Symbol = "BTCUSD_PERP"
	placed.Side = "BUY"
	placed.OrderType = "LIMIT"
	placed.Quantity = decimal.NewFromInt(1)
	placed.Price = decimal.RequireFromString("30000.5")
	placed.ClientOrderID = clientID
	placed.Accept(42, "", "NEW")

	rejected := order.NewJournalEntry(batchID, 1, "coinmtest", order.OperationPlace)
	rejected.Symbol = "BTCUSD_PERP"
	rejected.Reject(-2010, "Account has insufficient balance for requested action.")

	require.NoError(t, repo.SaveBatch(ctx, []*order.JournalEntry{placed, rejected}))
	// Idempotent on (batch_id, position)
	require.NoError(t, repo.SaveBatch(ctx, []*order.JournalEntry{placed}))

	got, err := repo.GetByBatch(ctx, batchID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, order.OutcomeAccepted, got[0].Outcome)
	assert.Equal(t, int64(42), got[0].ExchangeOrderID)
	assert.True(t, placed.Price.Equal(got[0].Price))
	assert.Equal(t, -2010, got[1].ErrorCode)

	history, err := repo.GetByClientOrderID(ctx, clientID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, placed.ID, history[0].ID)

	rejections, err := repo.GetRecentRejections(ctx, 10)
	require.NoError(t, err)
	require.NotEmpty(t, rejections)
	assert.Equal(t, order.OutcomeRejected, rejections[0].Outcome)
}

func TestOrderJournalRepository_GetByBatchNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	repo := newJournalRepo(t)
	_, err := repo.GetByBatch(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
