package bootstrap

import (
	"context"
	"time"

	"go.uber.org/fx"

	bootstrap "trade_exec/internal/modules/bootstrap/service"
	healthsvc "trade_exec/internal/modules/health/service"
	"trade_exec/pkg/logger"
)

const warmupBudget = time.Minute

func Module() fx.Option {
	return fx.Module("bootstrap",
		fx.Provide(
			bootstrap.NewWarmuper, // -> bootstrap.Warmuper
		),
		fx.Invoke(func(lc fx.Lifecycle, wu *bootstrap.Warmuper, state *healthsvc.State) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					// fx cancels the start context once hooks return, so the
					// warmup runs on its own deadline
					go func() {
						ctx, cancel := context.WithTimeout(context.Background(), warmupBudget)
						defer cancel()
						if err := wu.Warmup(ctx); err != nil {
							logger.Error("[BOOT] warmup error: %v", err)
						}
						state.SetReady(true)
						logger.Info("[BOOT] engine ready")
					}()
					return nil
				},
			})
		}),
	)
}
