package accounts

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"trade_exec/internal/chase"
	"trade_exec/internal/models"
	"trade_exec/internal/trade"
	"trade_exec/pkg/logger"
)

// sizeFor resolves the quantity for broadcast work: the account's configured
// size wins, the command-level quantity is the fallback.
func sizeFor(s *Session, fallback decimal.Decimal) (decimal.Decimal, error) {
	if s.cfg.Quantity.IsPositive() {
		return s.cfg.Quantity, nil
	}
	if fallback.IsPositive() {
		return fallback, nil
	}
	return decimal.Decimal{}, fmt.Errorf("no quantity for account %s and none in the command", s.ID())
}

// AccountInfos fetches wallet balances across accounts.
func (p *Pool) AccountInfos(ctx context.Context, cfgs []models.AccountConfig) ([]Result[models.AccountInfo], error) {
	return Execute(ctx, p, cfgs, func(ctx context.Context, s *Session) (models.AccountInfo, error) {
		return s.venue.AccountInfo(ctx)
	})
}

// Positions fetches open positions across accounts; empty symbol means all.
func (p *Pool) Positions(ctx context.Context, cfgs []models.AccountConfig, symbol string) ([]Result[[]models.Position], error) {
	return Execute(ctx, p, cfgs, func(ctx context.Context, s *Session) ([]models.Position, error) {
		return s.venue.Positions(ctx, symbol)
	})
}

// PlaceOrders places venue orders across accounts: pass one request to
// broadcast it to everyone, or exactly one request per account matched by
// index. On broadcast the request quantity is only a default and each
// account's configured size wins; an indexed request was sized by the caller
// deliberately, so there it is the other way round.
func (p *Pool) PlaceOrders(ctx context.Context, cfgs []models.AccountConfig, reqs []models.OrderRequest) ([]Result[models.OrderLeg], error) {
	if len(reqs) != 1 && len(reqs) != len(cfgs) {
		return nil, fmt.Errorf("got %d orders for %d accounts: want one to broadcast or one per account", len(reqs), len(cfgs))
	}
	broadcast := len(reqs) == 1

	byID := make(map[string]models.OrderRequest, len(cfgs))
	for i, cfg := range cfgs {
		if broadcast {
			byID[cfg.ID] = reqs[0]
		} else {
			byID[cfg.ID] = reqs[i]
		}
	}

	return Execute(ctx, p, cfgs, func(ctx context.Context, s *Session) (models.OrderLeg, error) {
		req := byID[s.ID()]
		if !req.ClosePosition {
			if broadcast {
				qty, err := sizeFor(s, req.Quantity)
				if err != nil {
					return models.OrderLeg{}, err
				}
				req.Quantity = qty
			} else if req.Quantity.IsZero() {
				req.Quantity = s.cfg.Quantity
				if req.Quantity.IsZero() {
					return models.OrderLeg{}, fmt.Errorf("no quantity for account %s", s.ID())
				}
			}
		}
		return s.venue.PlaceOrder(ctx, req)
	})
}

// PlaceBBOOrders puts one maker order per account at the touch, single shot:
// priced from the live book, placed post-only, left resting. No retries and
// no chase; callers that need a fill use OpenTrades or ClosePositions.
func (p *Pool) PlaceBBOOrders(ctx context.Context, cfgs []models.AccountConfig, req chase.Request) ([]Result[models.OrderLeg], error) {
	return Execute(ctx, p, cfgs, func(ctx context.Context, s *Session) (models.OrderLeg, error) {
		r := req
		qty, err := sizeFor(s, r.Quantity)
		if err != nil {
			return models.OrderLeg{}, err
		}
		r.Quantity = qty
		return s.chaser.PlaceOnce(ctx, r)
	})
}

// OpenTrades runs the full entry/exit lifecycle per account.
func (p *Pool) OpenTrades(ctx context.Context, cfgs []models.AccountConfig, req trade.Request) ([]Result[*models.Trade], error) {
	return Execute(ctx, p, cfgs, func(ctx context.Context, s *Session) (*models.Trade, error) {
		r := req
		qty, err := sizeFor(s, r.Quantity)
		if err != nil {
			return nil, err
		}
		r.Quantity = qty
		return s.orch.Run(ctx, r)
	})
}

// ClosePositions cancels every resting order on the symbol, then flattens
// whatever position remains with a retrying reduce-only maker order.
func (p *Pool) ClosePositions(ctx context.Context, cfgs []models.AccountConfig, symbol string, ticksDistance int) ([]Result[[]models.OrderLeg], error) {
	return Execute(ctx, p, cfgs, func(ctx context.Context, s *Session) ([]models.OrderLeg, error) {
		if err := s.venue.CancelAllOpenOrders(ctx, symbol); err != nil {
			return nil, err
		}

		positions, err := s.venue.Positions(ctx, symbol)
		if err != nil {
			return nil, err
		}

		var legs []models.OrderLeg
		for _, pos := range positions {
			if pos.Flat() {
				continue
			}
			leg, err := s.chaser.Run(ctx, chase.Request{
				Symbol:        symbol,
				Side:          pos.CloseSide(),
				Quantity:      pos.Amount.Abs(),
				ReduceOnly:    true,
				TicksDistance: ticksDistance,
			})
			legs = append(legs, leg)
			if err != nil {
				return legs, err
			}
		}
		if len(legs) == 0 {
			logger.Info("account %s: nothing to flatten on %s", s.ID(), symbol)
		}
		return legs, nil
	})
}
