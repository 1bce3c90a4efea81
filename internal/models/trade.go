package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TradeStatus string

const (
	TradeStatusPending     TradeStatus = "PENDING"
	TradeStatusEntryPlaced TradeStatus = "ENTRY_PLACED"
	TradeStatusEntryFilled TradeStatus = "ENTRY_FILLED"
	TradeStatusActive      TradeStatus = "ACTIVE"
	// TradeStatusCompleted is reached externally when TP or SL triggers on
	// the venue; the engine itself only sets it on explicit position close.
	TradeStatusCompleted TradeStatus = "COMPLETED"
	TradeStatusCancelled TradeStatus = "CANCELLED"
	TradeStatusFailed    TradeStatus = "FAILED"
)

// tradeStatusNext encodes the one-directional lifecycle. A status never
// reverts to an earlier one.
var tradeStatusNext = map[TradeStatus][]TradeStatus{
	TradeStatusPending:     {TradeStatusEntryPlaced, TradeStatusCancelled, TradeStatusFailed},
	TradeStatusEntryPlaced: {TradeStatusEntryFilled, TradeStatusCancelled, TradeStatusFailed},
	TradeStatusEntryFilled: {TradeStatusActive, TradeStatusFailed},
	TradeStatusActive:      {TradeStatusCompleted},
	TradeStatusCompleted:   {},
	TradeStatusCancelled:   {},
	TradeStatusFailed:      {},
}

// Terminal reports whether the orchestrator is done with the trade. ACTIVE is
// terminal for the engine even though the venue may later complete it.
func (s TradeStatus) Terminal() bool {
	switch s {
	case TradeStatusActive, TradeStatusCompleted, TradeStatusCancelled, TradeStatusFailed:
		return true
	}
	return false
}

// Trade is one three-leg lifecycle (entry, take-profit, stop-loss) for one
// account. Created at orchestration start; status only moves forward.
type Trade struct {
	ID         string
	Symbol     string
	Side       Side
	Quantity   decimal.Decimal
	TPPercent  float64
	SLPercent  float64
	Entry      OrderLeg
	TakeProfit OrderLeg
	StopLoss   OrderLeg
	Status     TradeStatus
	Reason     string
	CreatedAt  time.Time
	FilledAt   time.Time
	ClosedAt   time.Time
}

func NewTrade(symbol string, side Side, qty decimal.Decimal, tpPercent, slPercent float64) *Trade {
	return &Trade{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		Side:      side,
		Quantity:  qty,
		TPPercent: tpPercent,
		SLPercent: slPercent,
		Status:    TradeStatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

// Transition moves the trade to next, enforcing the one-directional lifecycle.
func (t *Trade) Transition(next TradeStatus) error {
	for _, allowed := range tradeStatusNext[t.Status] {
		if next == allowed {
			t.Status = next
			return nil
		}
	}
	return fmt.Errorf("illegal trade transition %s -> %s", t.Status, next)
}
