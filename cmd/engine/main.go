package main

import (
	"context"

	"go.uber.org/fx"

	"trade_exec/internal/accounts"
	"trade_exec/internal/journal"
	"trade_exec/internal/modules/bootstrap"
	"trade_exec/internal/modules/config"
	"trade_exec/internal/modules/dispatcher"
	"trade_exec/internal/modules/executor"
	"trade_exec/internal/modules/health"
	"trade_exec/internal/modules/marketdata"
	"trade_exec/internal/modules/postgres"
	"trade_exec/internal/notify"
	"trade_exec/pkg/logger"
	"trade_exec/pkg/tracing"
)

func main() {
	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
			// Notifier: without telegram credentials events go to the log
			func(cfg *config.Config, pool *accounts.Pool, reg *config.Registry, j *journal.Journal) notify.Notifier {
				if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
					tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, pool, reg, j)
					if err == nil {
						return tg
					}
					logger.Error("telegram notifier init failed, falling back to the log: %v", err)
				}
				return notify.NewStdout()
			},
		),
		config.Module(),
		fx.Invoke(func(cfg *config.Config) error {
			return logger.Init(cfg.Service.Name, cfg.Service.Debug)
		}),
		fx.Invoke(setupTracing),
		postgres.Module(),
		health.Module(),
		marketdata.Module(),
		executor.Module(),
		dispatcher.Module(),
		bootstrap.Module(),
		fx.Invoke(runTelegram),
	)
	app.Run()
	logger.Sync()
}

func setupTracing(lc fx.Lifecycle, cfg *config.Config) error {
	if cfg.Tracing.Host == "" {
		logger.Info("no tracing host configured, spans stay local")
		return nil
	}
	tracing.SetServiceName(cfg.Service.Name)
	_, closer, err := tracing.InitTracer(tracing.Config{
		Host: cfg.Tracing.Host,
		Port: cfg.Tracing.Port,
	})
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closer()
			return nil
		},
	})
	return nil
}

// runTelegram starts the chat command loop when the notifier is the telegram
// one.
func runTelegram(lc fx.Lifecycle, n notify.Notifier) {
	tg, ok := n.(*notify.Telegram)
	if !ok {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return tg.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			tg.Stop()
			return nil
		},
	})
}
