package trade

import (
	"fmt"

	"github.com/shopspring/decimal"

	"trade_exec/internal/models"
	"trade_exec/internal/pricing"
)

// Levels are the exit prices bracketing a filled entry.
type Levels struct {
	TakeProfit decimal.Decimal
	StopLoss   decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// ExitLevels derives the take-profit and stop-loss prices from the entry
// fill, as percent offsets snapped to the tick grid. A BUY must end up with
// stop < entry < take; a SELL with take < entry < stop. A violation is an
// error, never a silent reorder.
func ExitLevels(side models.Side, entry decimal.Decimal, tpPercent, slPercent float64, tick decimal.Decimal) (Levels, error) {
	if !entry.IsPositive() {
		return Levels{}, fmt.Errorf("%w: entry price %s must be positive", pricing.ErrInvalidParameter, entry)
	}
	if !tick.IsPositive() {
		return Levels{}, fmt.Errorf("%w: tick size %s must be positive", pricing.ErrInvalidParameter, tick)
	}

	tpOffset := entry.Mul(decimal.NewFromFloat(tpPercent)).Div(hundred)
	slOffset := entry.Mul(decimal.NewFromFloat(slPercent)).Div(hundred)

	var lv Levels
	if side == models.SideBuy {
		lv.TakeProfit = pricing.SnapToTick(entry.Add(tpOffset), tick)
		lv.StopLoss = pricing.SnapToTick(entry.Sub(slOffset), tick)
		if !(lv.StopLoss.LessThan(entry) && entry.LessThan(lv.TakeProfit)) {
			return Levels{}, fmt.Errorf("%w: BUY exits must bracket the entry: stop %s, entry %s, take %s",
				pricing.ErrInvalidParameter, lv.StopLoss, entry, lv.TakeProfit)
		}
		return lv, nil
	}

	lv.TakeProfit = pricing.SnapToTick(entry.Sub(tpOffset), tick)
	lv.StopLoss = pricing.SnapToTick(entry.Add(slOffset), tick)
	if !(lv.TakeProfit.LessThan(entry) && entry.LessThan(lv.StopLoss)) {
		return Levels{}, fmt.Errorf("%w: SELL exits must bracket the entry: take %s, entry %s, stop %s",
			pricing.ErrInvalidParameter, lv.TakeProfit, entry, lv.StopLoss)
	}
	return lv, nil
}
