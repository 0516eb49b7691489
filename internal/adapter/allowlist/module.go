package allowlist

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/fulfillrelay/internal/config"
)

// Module provides the allow-list fetcher.
var Module = fx.Options(
	fx.Provide(newHTTPClient),
)

func newHTTPClient(cfg *config.Config, logger *slog.Logger) (*HTTPClient, error) {
	return NewHTTPClient(cfg.Approval.AllowedUsersURL, logger)
}
