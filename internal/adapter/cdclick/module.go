package cdclick

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/fulfillrelay/internal/config"
)

// Module provides the CDClick provider client.
var Module = fx.Options(
	fx.Provide(newClient),
)

func newClient(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	return NewClient(cfg.CDClick.APIURL, cfg.CDClick.APIKey, logger)
}
