// Package pricing computes maker-side order prices from a best-bid/offer
// quote, a tick size and a distance in ticks. Pure functions, no I/O.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"trade_exec/internal/models"
)

// ErrInvalidParameter marks a precondition violation. Never retried and never
// replaced with a default.
var ErrInvalidParameter = errors.New("invalid parameter")

var (
	one        = decimal.NewFromInt(1)
	ten        = decimal.NewFromInt(10)
	hundred    = decimal.NewFromInt(100)
	minTickCap = decimal.New(1, -5) // 0.00001; anything smaller pins precision at 8
)

// Price computes the maker-side price for one side of the book:
//
//	BUY : bid - tick*n (below the bid, never crossing the spread)
//	SELL: ask + tick*n
//
// The result is truncated onto the tick grid at the precision implied by the
// tick size.
func Price(side models.Side, bid, ask, tick decimal.Decimal, ticksDistance int) (decimal.Decimal, error) {
	if err := checkInputs(side, bid, ask, tick, ticksDistance); err != nil {
		return decimal.Decimal{}, err
	}

	offset := tick.Mul(decimal.NewFromInt(int64(ticksDistance)))

	var raw decimal.Decimal
	switch side {
	case models.SideBuy:
		raw = bid.Sub(offset)
	case models.SideSell:
		raw = ask.Add(offset)
	}

	if !raw.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("%w: computed price %s is not positive", ErrInvalidParameter, raw)
	}

	return SnapToTick(raw, tick), nil
}

// SnapToTick truncates price toward the tick grid. Truncation, not
// nearest-neighbor rounding: the result is the largest grid price <= price.
func SnapToTick(price, tick decimal.Decimal) decimal.Decimal {
	steps, _ := price.QuoRem(tick, 0)
	return steps.Mul(tick)
}

// Precision derives the number of decimal places from the tick magnitude:
// tick 0.1 -> 1, 0.0001 -> 4, anything below 0.00001 -> 8 fixed.
func Precision(tick decimal.Decimal) int32 {
	if !tick.IsPositive() || tick.GreaterThanOrEqual(one) {
		return 0
	}
	if tick.LessThan(minTickCap) {
		return 8
	}
	var places int32
	d := tick
	for !d.IsInteger() && places < 8 {
		d = d.Mul(ten)
		places++
	}
	return places
}

// Format renders a grid price with the fixed number of decimals the tick
// implies (venues reject prices with stray precision).
func Format(price, tick decimal.Decimal) string {
	return price.StringFixed(Precision(tick))
}

// Validate sanity-checks an externally supplied price against a fresh
// recomputation; the two must agree within one-hundredth of a tick.
func Validate(price decimal.Decimal, side models.Side, bid, ask, tick decimal.Decimal, ticksDistance int) (bool, error) {
	fresh, err := Price(side, bid, ask, tick, ticksDistance)
	if err != nil {
		return false, err
	}
	tolerance := tick.Div(hundred)
	return price.Sub(fresh).Abs().LessThanOrEqual(tolerance), nil
}

func checkInputs(side models.Side, bid, ask, tick decimal.Decimal, ticksDistance int) error {
	if side != models.SideBuy && side != models.SideSell {
		return fmt.Errorf("%w: side %q", ErrInvalidParameter, side)
	}
	if !bid.IsPositive() {
		return fmt.Errorf("%w: bid %s must be positive", ErrInvalidParameter, bid)
	}
	if !ask.IsPositive() {
		return fmt.Errorf("%w: ask %s must be positive", ErrInvalidParameter, ask)
	}
	if !tick.IsPositive() {
		return fmt.Errorf("%w: tick size %s must be positive", ErrInvalidParameter, tick)
	}
	if ticksDistance < 1 {
		return fmt.Errorf("%w: ticks distance %d must be >= 1", ErrInvalidParameter, ticksDistance)
	}
	return nil
}
