package config

import "go.uber.org/fx"

// Module registers the static config and the hot-reloaded account registry.
func Module() fx.Option {
	return fx.Module("config",
		fx.Provide(
			NewConfig,
			NewRegistry,
		),
	)
}
