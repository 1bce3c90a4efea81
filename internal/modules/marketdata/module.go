package marketdata

import (
	"context"

	"go.uber.org/fx"

	"trade_exec/internal/helper"
	"trade_exec/internal/modules/config"
	healthsvc "trade_exec/internal/modules/health/service"
	"trade_exec/internal/modules/marketdata/service"
	"trade_exec/pkg/logger"
)

// Module runs the bookTicker stream that keeps the quote cache warm.
func Module() fx.Option {
	return fx.Module("market_data",
		fx.Provide(
			service.NewCache,
			newStream,
		),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, s *service.Stream) {
			if len(cfg.MarketData.Symbols) == 0 {
				logger.Warn("no market data symbols configured, stream stays down")
				return
			}
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					s.Start()
					return nil
				},
				OnStop: func(ctx context.Context) error {
					s.Stop()
					return nil
				},
			})
		}),
	)
}

func newStream(cfg *config.Config, cache *service.Cache, state *healthsvc.State) *service.Stream {
	symbols := make([]string, 0, len(cfg.MarketData.Symbols))
	for _, s := range cfg.MarketData.Symbols {
		symbols = append(symbols, helper.NormSymbol(s))
	}
	return service.NewStream(service.StreamConfig{
		URL:            cfg.Venue.WSURL,
		Symbols:        symbols,
		ConnMaxAge:     cfg.MarketData.ConnMaxAge.Std(),
		ReconnectDelay: cfg.MarketData.ReconnectDelay.Std(),
		PingInterval:   cfg.MarketData.PingInterval.Std(),
		ReadTimeout:    cfg.MarketData.ReadTimeout.Std(),
	}, cache, state)
}
