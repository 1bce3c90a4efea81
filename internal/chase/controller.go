// Package chase places maker orders at the touch and walks them after the
// market: place, wait a beat, cancel, re-price from the live quote, repeat.
package chase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"trade_exec/internal/models"
	"trade_exec/internal/pricing"
	"trade_exec/internal/venue"
	"trade_exec/pkg/logger"
)

// Board is the live quote lookup the controller prices from. The market
// data cache satisfies it.
type Board interface {
	Get(symbol string) (models.QuoteSnapshot, bool)
}

// Config carries the knobs of one chase.
type Config struct {
	TicksDistance   int           // offset from the touch, in ticks
	MaxRetries      int           // re-placements after the first attempt
	FillTimeout     time.Duration // how long one resting order may wait
	PollInterval    time.Duration // order status poll cadence
	MaxChasePercent float64       // abort when price drifts further than this
}

func (c *Config) applyDefaults() {
	if c.TicksDistance <= 0 {
		c.TicksDistance = 1
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.FillTimeout <= 0 {
		c.FillTimeout = 5 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 500 * time.Millisecond
	}
	if c.MaxChasePercent <= 0 {
		c.MaxChasePercent = 0.5
	}
}

// Request is a single order to work until filled or given up.
type Request struct {
	Symbol        string
	Side          models.Side
	Quantity      decimal.Decimal
	ReduceOnly    bool
	Price         decimal.Decimal       // fixed maker price; zero means price from the book
	Quote         *models.QuoteSnapshot // caller-supplied reference, optional
	TicksDistance int                   // 0 means the configured default
}

// Controller works one account's orders against the venue.
type Controller struct {
	venue venue.Client
	board Board // nil when the account runs without the shared feed
	cfg   Config
}

func NewController(v venue.Client, board Board, cfg Config) *Controller {
	cfg.applyDefaults()
	return &Controller{venue: v, board: board, cfg: cfg}
}

// Run works the request until it fills, the chase limit trips, the attempts
// run out, or the venue errors. At most one order rests at any moment; every
// order that rested without filling is cancelled before the next one goes out.
func (c *Controller) Run(ctx context.Context, req Request) (models.OrderLeg, error) {
	var leg models.OrderLeg

	ref, err := c.reference(ctx, req)
	if err != nil {
		return leg, err
	}
	refPrice := sidePrice(req.Side, ref)

	spec, err := c.venue.SymbolSpec(ctx, req.Symbol)
	if err != nil {
		return leg, err
	}

	ticks := req.TicksDistance
	if ticks <= 0 {
		ticks = c.cfg.TicksDistance
	}

	attempts := c.cfg.MaxRetries + 1
	for i := 0; i < attempts; i++ {
		cur, err := c.lookup(ctx, req)
		if err != nil {
			return leg, err
		}

		// the market must still be near the reference before another order
		// goes out
		if i > 0 {
			curPrice := sidePrice(req.Side, cur)
			drift := curPrice.Sub(refPrice).Abs().Div(refPrice).Mul(decimal.NewFromInt(100))
			if drift.GreaterThan(decimal.NewFromFloat(c.cfg.MaxChasePercent)) {
				return leg, &PriceChaseExceededError{
					Symbol:    req.Symbol,
					Reference: refPrice,
					Observed:  curPrice,
					DriftPct:  drift.InexactFloat64(),
					MaxPct:    c.cfg.MaxChasePercent,
				}
			}
		}

		price, err := pricing.Price(req.Side, cur.Bid, cur.Ask, spec.TickSize, ticks)
		if err != nil {
			return leg, err
		}

		leg, err = c.venue.PlaceOrder(ctx, models.OrderRequest{
			Symbol:      req.Symbol,
			Side:        req.Side,
			Type:        models.OrderTypeLimit,
			Quantity:    req.Quantity,
			Price:       price,
			TimeInForce: models.TimeInForceGTX,
			ReduceOnly:  req.ReduceOnly,
		})
		if err != nil {
			return leg, err
		}
		logger.Info("chase attempt %d/%d: %s %s %s @ %s (order %d)",
			i+1, attempts, req.Side, req.Quantity, req.Symbol, pricing.Format(price, spec.TickSize), leg.OrderID)

		if leg.Filled() {
			return leg, nil
		}
		if leg.Status.Open() {
			leg, err = c.await(ctx, leg)
			if err != nil {
				return leg, err
			}
			if leg.Filled() {
				return leg, nil
			}
			if leg.Status.Open() {
				leg, err = c.takeDown(ctx, leg)
				if err != nil {
					return leg, err
				}
				if leg.Filled() {
					return leg, nil
				}
			}
		}

	}

	return leg, &RetryExhaustedError{Symbol: req.Symbol, Attempts: attempts}
}

// PlaceOnce prices one maker order from the live book and places it without
// working it afterwards: no fill wait, no cancel, no re-price. A caller who
// supplies a price gets it checked against the same calculation first, so a
// stale sender cannot park an order away from the touch.
func (c *Controller) PlaceOnce(ctx context.Context, req Request) (models.OrderLeg, error) {
	var leg models.OrderLeg

	cur, err := c.lookup(ctx, req)
	if err != nil {
		return leg, err
	}
	spec, err := c.venue.SymbolSpec(ctx, req.Symbol)
	if err != nil {
		return leg, err
	}

	ticks := req.TicksDistance
	if ticks <= 0 {
		ticks = c.cfg.TicksDistance
	}

	price := req.Price
	if price.IsPositive() {
		ok, err := pricing.Validate(price, req.Side, cur.Bid, cur.Ask, spec.TickSize, ticks)
		if err != nil {
			return leg, err
		}
		if !ok {
			return leg, fmt.Errorf("supplied price %s is off the maker price for %s (bid %s, ask %s, %d ticks)",
				price, req.Symbol, cur.Bid, cur.Ask, ticks)
		}
		price = pricing.SnapToTick(price, spec.TickSize)
	} else {
		price, err = pricing.Price(req.Side, cur.Bid, cur.Ask, spec.TickSize, ticks)
		if err != nil {
			return leg, err
		}
	}

	leg, err = c.venue.PlaceOrder(ctx, models.OrderRequest{
		Symbol:      req.Symbol,
		Side:        req.Side,
		Type:        models.OrderTypeLimit,
		Quantity:    req.Quantity,
		Price:       price,
		TimeInForce: models.TimeInForceGTX,
		ReduceOnly:  req.ReduceOnly,
	})
	if err != nil {
		return leg, err
	}
	logger.Info("placed %s %s %s @ %s (order %d)",
		req.Side, req.Quantity, req.Symbol, pricing.Format(price, spec.TickSize), leg.OrderID)
	return leg, nil
}

// await polls the resting order until it leaves the book or the fill
// timeout passes.
func (c *Controller) await(ctx context.Context, leg models.OrderLeg) (models.OrderLeg, error) {
	deadline := time.NewTimer(c.cfg.FillTimeout)
	defer deadline.Stop()
	poll := time.NewTicker(c.cfg.PollInterval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return leg, ctx.Err()
		case <-deadline.C:
			return leg, nil
		case <-poll.C:
			got, err := c.venue.GetOrder(ctx, leg.Symbol, leg.OrderID)
			if err != nil {
				if errors.Is(err, venue.ErrOrderNotFound) {
					// the venue's order read lags the placement; keep polling
					continue
				}
				return leg, err
			}
			leg = got
			if leg.Filled() || !leg.Status.Open() {
				return leg, nil
			}
		}
	}
}

// takeDown cancels the resting order, then reads it one last time: the fill
// may have landed between the final poll and the cancel.
func (c *Controller) takeDown(ctx context.Context, leg models.OrderLeg) (models.OrderLeg, error) {
	if err := c.venue.CancelOrder(ctx, leg.Symbol, leg.OrderID); err != nil && !errors.Is(err, venue.ErrOrderNotFound) {
		return leg, err
	}

	got, err := c.venue.GetOrder(ctx, leg.Symbol, leg.OrderID)
	if err != nil {
		if errors.Is(err, venue.ErrOrderNotFound) {
			return leg, nil
		}
		return leg, err
	}
	if got.Filled() {
		logger.Info("order %d on %s filled during cancel", got.OrderID, got.Symbol)
	}
	return got, nil
}

// reference fixes the quote the chase is anchored to: the caller's snapshot
// when one came with the command, otherwise the first live read.
func (c *Controller) reference(ctx context.Context, req Request) (models.QuoteSnapshot, error) {
	if req.Quote != nil && req.Quote.Valid() {
		return *req.Quote, nil
	}
	return c.lookup(ctx, req)
}

// lookup resolves the freshest quote: shared feed, then the caller-supplied
// snapshot, then one REST read. No source at all means no order goes out.
func (c *Controller) lookup(ctx context.Context, req Request) (models.QuoteSnapshot, error) {
	if c.board != nil {
		if q, ok := c.board.Get(req.Symbol); ok {
			return q, nil
		}
	}
	if req.Quote != nil && req.Quote.Valid() {
		return *req.Quote, nil
	}
	if q, err := c.venue.BookTicker(ctx, req.Symbol); err == nil && q.Valid() {
		return q, nil
	}
	return models.QuoteSnapshot{}, ErrMissingMarketData
}

// sidePrice picks the side of the book the order prices from.
func sidePrice(side models.Side, q models.QuoteSnapshot) decimal.Decimal {
	if side == models.SideBuy {
		return q.Bid
	}
	return q.Ask
}
