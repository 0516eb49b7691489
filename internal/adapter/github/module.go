package github

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/fulfillrelay/internal/config"
)

// Module provides the GitHub App client factory.
var Module = fx.Options(
	fx.Provide(newFactory),
)

func newFactory(cfg *config.Config, logger *slog.Logger) *Factory {
	return NewFactory(cfg.GitHub.AppID, cfg.GitHub.PrivateKey, cfg.GitHub.APIURL, logger)
}
