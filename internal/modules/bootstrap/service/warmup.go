package service

import (
	"context"
	"fmt"

	"trade_exec/internal/accounts"
	"trade_exec/internal/helper"
	"trade_exec/internal/modules/config"
	"trade_exec/internal/notify"
	"trade_exec/internal/venue"
	"trade_exec/pkg/logger"
)

// Warmuper builds every account session and pre-loads the symbol grids ahead
// of the first command, so no command pays the exchange-info round trip.
type Warmuper struct {
	pool *accounts.Pool
	reg  *config.Registry
	n    notify.Notifier
	cfg  *config.Config
}

func NewWarmuper(pool *accounts.Pool, reg *config.Registry, n notify.Notifier, cfg *config.Config) *Warmuper {
	return &Warmuper{
		pool: pool,
		reg:  reg,
		n:    n,
		cfg:  cfg,
	}
}

func (w *Warmuper) Warmup(ctx context.Context) error {
	cfgs := w.reg.Accounts()
	if len(cfgs) == 0 {
		logger.Warn("[BOOT] no accounts configured, nothing to warm")
		return nil
	}

	symbols := make([]string, 0, len(w.cfg.MarketData.Symbols))
	for _, s := range w.cfg.MarketData.Symbols {
		symbols = append(symbols, helper.NormSymbol(s))
	}

	w.n.Sendf("🔥 warmup start: accounts=%d symbols=%d", len(cfgs), len(symbols))

	w.pool.Prewarm(cfgs)

	// one exchange-info load per live session; simulation accounts have
	// nothing to fetch
	results, err := accounts.Execute(ctx, w.pool, cfgs, func(ctx context.Context, s *accounts.Session) (int, error) {
		f, ok := s.Venue().(*venue.Futures)
		if !ok || len(symbols) == 0 {
			return 0, nil
		}
		return len(symbols), f.WarmSpecs(ctx, symbols...)
	})
	if err != nil {
		return err
	}

	var firstErr error
	for _, res := range results {
		if res.Err == nil {
			continue
		}
		logger.Error("[BOOT] warmup account %s: %v", res.AccountID, res.Err)
		if firstErr == nil {
			firstErr = fmt.Errorf("warmup account %s: %w", res.AccountID, res.Err)
		}
	}
	if firstErr != nil {
		w.n.Send("⚠️ warmup finished with error: " + firstErr.Error())
		return firstErr
	}

	w.n.Send("✅ warmup finished, engine is taking commands")
	return nil
}
