package dispatcher

import (
	"context"

	"go.uber.org/fx"

	"trade_exec/internal/accounts"
	"trade_exec/internal/modules/config"
	"trade_exec/internal/modules/dispatcher/service"
	healthsvc "trade_exec/internal/modules/health/service"
	"trade_exec/internal/notify"
	"trade_exec/pkg/logger"
)

// Module wires the inbound command path: the NATS subscription, the parser
// and the routing onto the account pool.
func Module() fx.Option {
	return fx.Module("dispatcher",
		fx.Provide(
			newHandler,
			newListener,
		),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, l *service.Listener) {
			if cfg.NATS.URL == "" {
				logger.Warn("no NATS url configured, command listener stays down")
				return
			}
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					return l.Start()
				},
				OnStop: func(ctx context.Context) error {
					l.Stop()
					return nil
				},
			})
		}),
	)
}

func newHandler(pool *accounts.Pool, reg *config.Registry, n notify.Notifier, state *healthsvc.State) *service.Handler {
	return service.NewHandler(pool, reg, n, state)
}

func newListener(cfg *config.Config, h *service.Handler) *service.Listener {
	return service.NewListener(service.ListenerConfig{
		URL:     cfg.NATS.URL,
		Subject: cfg.NATS.Subject,
		Queue:   cfg.NATS.Queue,
		Name:    cfg.Service.Name,
	}, h)
}
