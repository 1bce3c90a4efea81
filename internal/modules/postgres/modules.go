package postgres

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"trade_exec/internal/journal"
	"trade_exec/internal/modules/config"
	"trade_exec/pkg/db"
	"trade_exec/pkg/logger"
)

// Module wires the trade journal. Without a DSN the journal stays enabled-off
// and the engine trades without persistence.
func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			func(ctx context.Context, lc fx.Lifecycle, cfg *config.Config) (*journal.Journal, error) {
				if cfg.DB == "" {
					logger.Info("no database configured, trades will not be journaled")
					return journal.NewJournal(nil), nil
				}

				poolMaster, err := db.NewPool(ctx, db.PoolConfig{
					DSN: cfg.DB,
				})
				if err != nil {
					return nil, fmt.Errorf("failed to create poolMaster: %w", err)
				}

				if err = poolMaster.Ping(ctx); err != nil {
					return nil, err
				}

				mgr := db.NewPgTxManager(poolMaster)
				j := journal.NewJournal(mgr)
				if err = j.EnsureSchema(ctx); err != nil {
					return nil, err
				}

				lc.Append(fx.Hook{
					OnStop: func(context.Context) error {
						mgr.Close()
						return nil
					},
				})
				return j, nil
			},
		),
	)
}
