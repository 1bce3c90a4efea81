package models

import "github.com/shopspring/decimal"

// Position is an open venue position. Amount is signed: positive long,
// negative short, zero flat.
type Position struct {
	Symbol           string
	Amount           decimal.Decimal
	EntryPrice       decimal.Decimal
	MarkPrice        decimal.Decimal
	UnrealizedProfit decimal.Decimal
	Leverage         int
}

func (p Position) Flat() bool {
	return p.Amount.IsZero()
}

// CloseSide is the order side that flattens this position.
func (p Position) CloseSide() Side {
	if p.Amount.IsPositive() {
		return SideSell
	}
	return SideBuy
}
