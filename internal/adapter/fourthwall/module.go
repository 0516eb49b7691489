package fourthwall

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/fulfillrelay/internal/config"
)

// Module provides the storefront client.
var Module = fx.Options(
	fx.Provide(newClient),
)

func newClient(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	return NewClient(cfg.Storefront.APIURL, cfg.Storefront.APIKey, logger)
}
