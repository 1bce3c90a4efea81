package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide accepts the wire spellings ("buy"/"BUY"/...) and canonicalizes.
func ParseSide(raw string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "BUY":
		return SideBuy, nil
	case "SELL":
		return SideSell, nil
	default:
		return "", fmt.Errorf("unknown side %q", raw)
	}
}

func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

type OrderType string

const (
	OrderTypeLimit      OrderType = "LIMIT"
	OrderTypeMarket     OrderType = "MARKET"
	OrderTypeStopMarket OrderType = "STOP_MARKET"
)

type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC"
	// TimeInForceGTX is post-only: the venue expires the order instead of
	// letting it cross the spread and take.
	TimeInForceGTX TimeInForce = "GTX"
)

type OrderStatus string

const (
	OrderStatusNew             OrderStatus = "NEW"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCanceled        OrderStatus = "CANCELED"
	OrderStatusRejected        OrderStatus = "REJECTED"
	OrderStatusExpired         OrderStatus = "EXPIRED"
)

// Open reports whether the order is still resting on the book.
func (s OrderStatus) Open() bool {
	return s == OrderStatusNew || s == OrderStatusPartiallyFilled
}

// OrderRequest is what the engine asks the venue to do.
type OrderRequest struct {
	Symbol        string
	Side          Side
	Type          OrderType
	Quantity      decimal.Decimal
	Price         decimal.Decimal // required for LIMIT
	StopPrice     decimal.Decimal // required for STOP_MARKET
	TimeInForce   TimeInForce
	ReduceOnly    bool
	ClosePosition bool // close-on-trigger: quantity ignored, full position
	ClientOrderID string
}

// OrderLeg is one venue order from this engine's point of view: the request
// that produced it plus the venue's latest word on it. Mutated only by the
// component that owns the corresponding phase; never shared across accounts.
type OrderLeg struct {
	OrderID        int64
	ClientOrderID  string
	Symbol         string
	Side           Side
	Type           OrderType
	RequestedPrice decimal.Decimal
	Size           decimal.Decimal
	ExecutedQty    decimal.Decimal
	AvgFillPrice   decimal.Decimal
	Status         OrderStatus
	Err            error
	PlacedAt       time.Time
	FilledAt       time.Time
}

func (l OrderLeg) Filled() bool {
	return l.Status == OrderStatusFilled
}

// Placed reports whether the venue acknowledged the leg.
func (l OrderLeg) Placed() bool {
	return l.Err == nil && (l.OrderID != 0 || l.ClientOrderID != "")
}

// FillPrice is the price the venue actually filled at, falling back to the
// requested price when the venue did not report an average.
func (l OrderLeg) FillPrice() decimal.Decimal {
	if l.AvgFillPrice.IsPositive() {
		return l.AvgFillPrice
	}
	return l.RequestedPrice
}
