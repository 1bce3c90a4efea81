package executor

import (
	"context"

	"go.uber.org/fx"

	"trade_exec/internal/accounts"
	"trade_exec/internal/chase"
	"trade_exec/internal/journal"
	"trade_exec/internal/modules/config"
	"trade_exec/internal/modules/marketdata/service"
	"trade_exec/internal/trade"
	"trade_exec/internal/venue"
)

// Module provides the session pool every command fans out through.
func Module() fx.Option {
	return fx.Module("executor",
		fx.Provide(newPool),
		fx.Invoke(func(lc fx.Lifecycle, p *accounts.Pool) {
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					return p.Close()
				},
			})
		}),
	)
}

func newPool(cfg *config.Config, cache *service.Cache, j *journal.Journal) *accounts.Pool {
	return accounts.NewPool(
		cache,
		venue.Config{
			BaseURL: cfg.Venue.BaseURL,
			WSURL:   cfg.Venue.WSURL,
		},
		chase.Config{
			TicksDistance:   cfg.BBO.TicksDistance,
			MaxRetries:      cfg.BBO.MaxRetries,
			FillTimeout:     cfg.BBO.FillTimeout.Std(),
			PollInterval:    cfg.BBO.PollInterval.Std(),
			MaxChasePercent: cfg.BBO.MaxChasePercent,
		},
		trade.Config{
			TPPercent: cfg.Trade.TPPercent,
			SLPercent: cfg.Trade.SLPercent,
		},
		j,
		cfg.Executor.MaxParallel,
	)
}
