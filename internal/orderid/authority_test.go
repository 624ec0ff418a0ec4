package orderid

import (
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"coinm/pkg/logger"
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,36}$`)

type testOrder struct {
	Symbol           string
	NewClientOrderID string
}

func newObservedAuthority(t *testing.T, c Category) (*Authority, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.WarnLevel)
	return NewAuthority(c, WithLogger(logger.New(zap.New(core)))), logs
}

func TestEnsureGeneratesMissingID(t *testing.T) {
	for _, c := range []Category{CategoryCoinM, CategoryCoinMTest, CategoryUSDM, CategorySpot} {
		t.Run(string(c), func(t *testing.T) {
			a, logs := newObservedAuthority(t, c)
			order := testOrder{Symbol: "BTCUSD_PERP"}

			a.Ensure(PropertyNewClientOrderID, &order.NewClientOrderID, order)

			require.NotEmpty(t, order.NewClientOrderID)
			assert.True(t, strings.HasPrefix(order.NewClientOrderID, c.Prefix()))
			assert.Regexp(t, idPattern, order.NewClientOrderID)
			assert.Equal(t, 0, logs.Len())
		})
	}
}

func TestEnsureKeepsPrefixedIDSilently(t *testing.T) {
	a, logs := newObservedAuthority(t, CategoryCoinM)
	order := testOrder{Symbol: "BTCUSD_PERP", NewClientOrderID: "x-15PC4ZJy-my-own-id"}

	a.Ensure(PropertyNewClientOrderID, &order.NewClientOrderID, order)

	assert.Equal(t, "x-15PC4ZJy-my-own-id", order.NewClientOrderID)
	assert.Equal(t, 0, logs.Len())
}

// A wrong prefix is tolerated on purpose: the exchange rejects genuinely bad ids itself.
func TestEnsureWarnsOnceForWrongPrefix(t *testing.T) {
	a, logs := newObservedAuthority(t, CategoryCoinM)
	order := testOrder{Symbol: "BTCUSD_PERP", NewClientOrderID: "foo123"}

	assert.NotPanics(t, func() {
		a.Ensure(PropertyNewClientOrderID, &order.NewClientOrderID, order)
	})

	assert.Equal(t, "foo123", order.NewClientOrderID)
	require.Equal(t, 1, logs.Len())

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, PropertyNewClientOrderID, fields["property"])
	assert.Equal(t, "x-15PC4ZJy", fields["expected_prefix"])
	assert.Equal(t, "foo123", fields["value"])
	assert.Contains(t, fields, "params")
}

func TestEnsureWarnsForOtherCategoryPrefix(t *testing.T) {
	a, logs := newObservedAuthority(t, CategoryCoinM)
	id := CategorySpot.Prefix() + "abc"

	a.Ensure(PropertyNewClientOrderID, &id, nil)

	assert.Equal(t, "x-U5D3Mabc", id)
	assert.Equal(t, 1, logs.Len())
}

func TestAuthorityGenerate(t *testing.T) {
	a := NewAuthority(CategoryCoinMTest, WithLogger(logger.Nop()))

	first, second := a.Generate(), a.Generate()

	assert.NotEqual(t, first, second)
	assert.Equal(t, "x-15PC4ZJy", a.Prefix())
	assert.Equal(t, CategoryCoinMTest, a.Category())
}

func TestAuthorityConcurrentEnsureIsUnique(t *testing.T) {
	a := NewAuthority(CategoryCoinM, WithLogger(logger.Nop()), WithGenerator(NewGenerator()))

	const n = 2000
	ids := make([]string, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a.Ensure(PropertyNewClientOrderID, &ids[i], nil)
		}(i)
	}
	wg.Wait()

	seen := make(map[string]struct{}, n)
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, n)
}
