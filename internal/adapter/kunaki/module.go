package kunaki

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/fulfillrelay/internal/config"
)

// Module provides the Kunaki provider client.
var Module = fx.Options(
	fx.Provide(newClient),
)

func newClient(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	return NewClient(cfg.Kunaki.APIURL, cfg.Kunaki.Username, cfg.Kunaki.Password, logger)
}
