package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuoteSnapshot is the freshest best-bid/best-offer observed for a symbol.
// It is owned by the market-data cache: the cache replaces the whole value on
// every feed update, consumers read it by value and never mutate it.
type QuoteSnapshot struct {
	Symbol     string
	Bid        decimal.Decimal
	BidQty     decimal.Decimal
	Ask        decimal.Decimal
	AskQty     decimal.Decimal
	UpdateID   int64
	ObservedAt time.Time
}

// Valid reports whether both sides carry a usable positive price.
func (q QuoteSnapshot) Valid() bool {
	return q.Bid.IsPositive() && q.Ask.IsPositive()
}

// TickSpec describes the price/quantity grid the venue accepts for a symbol.
// Immutable once fetched.
type TickSpec struct {
	Symbol         string
	TickSize       decimal.Decimal
	StepSize       decimal.Decimal
	PricePrecision int32
	QtyPrecision   int32
}
