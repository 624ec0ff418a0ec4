package exchanges

import (
	"github.com/shopspring/decimal"

	"coinm/pkg/logger"
)

// ParseDecimal reads a decimal string from an exchange payload. Empty means zero. A value
// that does not parse is also zero, and is logged at debug level so it leaves a trace.
func ParseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		logger.Get().Debugw("unparseable decimal from exchange, using zero", "value", s, "error", err)
		return decimal.Zero
	}
	return d
}
