// Package trade sequences one signal into a three-leg lifecycle: chase the
// entry to a fill, then bracket the position with a take-profit and a
// stop-loss.
package trade

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"trade_exec/internal/chase"
	"trade_exec/internal/models"
	"trade_exec/internal/venue"
	"trade_exec/pkg/logger"
)

// Recorder persists trade lifecycle snapshots. Recording is best-effort and
// must never block the trading path for long.
type Recorder interface {
	Record(ctx context.Context, accountID string, tr *models.Trade)
}

// Config carries the default exit distances, in percent of the fill price.
type Config struct {
	TPPercent float64
	SLPercent float64
}

// Request is one signal for one account.
type Request struct {
	Symbol        string
	Side          models.Side
	Quantity      decimal.Decimal
	TPPercent     float64 // 0 means the configured default
	SLPercent     float64 // 0 means the configured default
	TicksDistance int
	Quote         *models.QuoteSnapshot
}

// Orchestrator runs trades for a single account session.
type Orchestrator struct {
	accountID string
	venue     venue.Client
	chaser    *chase.Controller
	rec       Recorder
	cfg       Config
}

func NewOrchestrator(accountID string, v venue.Client, chaser *chase.Controller, rec Recorder, cfg Config) *Orchestrator {
	return &Orchestrator{accountID: accountID, venue: v, chaser: chaser, rec: rec, cfg: cfg}
}

// Run walks the trade to a terminal status. Chase give-ups (retries
// exhausted, market ran away) end as CANCELLED with the reason recorded and
// no error: nothing filled, nothing is at risk. Transport errors and
// invariant violations end as FAILED and propagate. A filled entry with at
// least one exit leg resting ends as ACTIVE even when the sibling leg
// failed: the exposure exists and must not be hidden behind an error.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*models.Trade, error) {
	tp := req.TPPercent
	if tp == 0 {
		tp = o.cfg.TPPercent
	}
	sl := req.SLPercent
	if sl == 0 {
		sl = o.cfg.SLPercent
	}

	tr := models.NewTrade(req.Symbol, req.Side, req.Quantity, tp, sl)
	o.record(ctx, tr)

	spec, err := o.venue.SymbolSpec(ctx, req.Symbol)
	if err != nil {
		return o.fail(ctx, tr, err)
	}

	_ = tr.Transition(models.TradeStatusEntryPlaced)
	o.record(ctx, tr)

	leg, err := o.chaser.Run(ctx, chase.Request{
		Symbol:        req.Symbol,
		Side:          req.Side,
		Quantity:      req.Quantity,
		Quote:         req.Quote,
		TicksDistance: req.TicksDistance,
	})
	tr.Entry = leg
	if err != nil {
		var exhausted *chase.RetryExhaustedError
		var chased *chase.PriceChaseExceededError
		if errors.As(err, &exhausted) || errors.As(err, &chased) {
			return o.cancel(ctx, tr, err)
		}
		return o.fail(ctx, tr, err)
	}

	_ = tr.Transition(models.TradeStatusEntryFilled)
	tr.FilledAt = time.Now().UTC()
	o.record(ctx, tr)
	logger.Info("trade %s: %s %s %s entry filled @ %s",
		tr.ID, tr.Side, tr.Quantity, tr.Symbol, leg.FillPrice())

	levels, err := ExitLevels(req.Side, leg.FillPrice(), tp, sl, spec.TickSize)
	if err != nil {
		return o.fail(ctx, tr, err)
	}

	exitQty := leg.ExecutedQty
	if !exitQty.IsPositive() {
		exitQty = leg.Size
	}

	tr.TakeProfit = o.placeExit(ctx, models.OrderRequest{
		Symbol:      req.Symbol,
		Side:        req.Side.Opposite(),
		Type:        models.OrderTypeLimit,
		Quantity:    exitQty,
		Price:       levels.TakeProfit,
		TimeInForce: models.TimeInForceGTC,
		ReduceOnly:  true,
	})
	tr.StopLoss = o.placeExit(ctx, models.OrderRequest{
		Symbol:        req.Symbol,
		Side:          req.Side.Opposite(),
		Type:          models.OrderTypeStopMarket,
		StopPrice:     levels.StopLoss,
		ClosePosition: true,
	})

	if tr.TakeProfit.Err != nil && tr.StopLoss.Err != nil {
		_ = tr.Transition(models.TradeStatusFailed)
		tr.Reason = "entry filled but no exit leg could be placed"
		tr.ClosedAt = time.Now().UTC()
		o.record(ctx, tr)
		return tr, errors.Join(tr.TakeProfit.Err, tr.StopLoss.Err)
	}

	_ = tr.Transition(models.TradeStatusActive)
	o.record(ctx, tr)
	logger.Info("trade %s active: tp %s, sl %s", tr.ID, levels.TakeProfit, levels.StopLoss)
	return tr, nil
}

// placeExit places one exit leg, attaching a failure to the leg instead of
// returning it: the sibling leg must still get its chance.
func (o *Orchestrator) placeExit(ctx context.Context, req models.OrderRequest) models.OrderLeg {
	leg, err := o.venue.PlaceOrder(ctx, req)
	if err != nil {
		logger.Error("exit %s %s on %s failed: %v", req.Type, req.Side, req.Symbol, err)
		leg.Symbol = req.Symbol
		leg.Side = req.Side
		leg.Type = req.Type
		leg.Err = err
	}
	return leg
}

func (o *Orchestrator) cancel(ctx context.Context, tr *models.Trade, cause error) (*models.Trade, error) {
	_ = tr.Transition(models.TradeStatusCancelled)
	tr.Reason = cause.Error()
	tr.ClosedAt = time.Now().UTC()
	o.record(ctx, tr)
	logger.Info("trade %s cancelled: %v", tr.ID, cause)
	return tr, nil
}

func (o *Orchestrator) fail(ctx context.Context, tr *models.Trade, cause error) (*models.Trade, error) {
	_ = tr.Transition(models.TradeStatusFailed)
	tr.Reason = cause.Error()
	tr.ClosedAt = time.Now().UTC()
	o.record(ctx, tr)
	return tr, cause
}

func (o *Orchestrator) record(ctx context.Context, tr *models.Trade) {
	if o.rec == nil {
		return
	}
	o.rec.Record(ctx, o.accountID, tr)
}
