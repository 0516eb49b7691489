package metrics

import "go.uber.org/fx"

// Module provides the service metrics.
var Module = fx.Options(
	fx.Provide(New),
)
