package reference

import "go.uber.org/fx"

var Module = fx.Module("reference.generator",
	fx.Provide(NewRepository),
	fx.Provide(NewGenerator),
)
