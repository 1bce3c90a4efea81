package chase

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrMissingMarketData means no quote was available from any source for the
// requested symbol, so no order was placed at all.
var ErrMissingMarketData = errors.New("no market data for symbol")

// RetryExhaustedError reports that every permitted placement rested without
// filling and was cancelled.
type RetryExhaustedError struct {
	Symbol   string
	Attempts int
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("order for %s not filled after %d attempts", e.Symbol, e.Attempts)
}

// PriceChaseExceededError reports that the market ran away from the
// reference quote before the chase could finish.
type PriceChaseExceededError struct {
	Symbol    string
	Reference decimal.Decimal
	Observed  decimal.Decimal
	DriftPct  float64
	MaxPct    float64
}

func (e *PriceChaseExceededError) Error() string {
	return fmt.Sprintf("%s moved %.4f%% (reference %s, now %s), chase limit %.2f%%",
		e.Symbol, e.DriftPct, e.Reference, e.Observed, e.MaxPct)
}
