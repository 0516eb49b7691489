package di

import (
	"go.uber.org/fx"

	"github.com/polkiloo/fulfillrelay/internal/adapter/allowlist"
	"github.com/polkiloo/fulfillrelay/internal/adapter/cdclick"
	"github.com/polkiloo/fulfillrelay/internal/adapter/fourthwall"
	"github.com/polkiloo/fulfillrelay/internal/adapter/github"
	"github.com/polkiloo/fulfillrelay/internal/adapter/kunaki"
	"github.com/polkiloo/fulfillrelay/internal/app"
	"github.com/polkiloo/fulfillrelay/internal/config"
	"github.com/polkiloo/fulfillrelay/internal/domain/model"
	"github.com/polkiloo/fulfillrelay/internal/logger"
	"github.com/polkiloo/fulfillrelay/internal/metrics"
	"github.com/polkiloo/fulfillrelay/internal/queue"
	"github.com/polkiloo/fulfillrelay/internal/server/http/handlers"
	"github.com/polkiloo/fulfillrelay/internal/server/http/router"
	"github.com/polkiloo/fulfillrelay/internal/storage/postgres"
	"github.com/polkiloo/fulfillrelay/internal/usecase"
)

func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		metrics.Module,
		postgres.Module,
		queue.Module,
		kunaki.Module,
		cdclick.Module,
		fourthwall.Module,
		github.Module,
		allowlist.Module,
		usecase.Module,
		ports,
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}

var ports = fx.Provide(
	func(k *kunaki.Client, c *cdclick.Client) []usecase.FulfillmentProvider {
		return []usecase.FulfillmentProvider{k, c}
	},
	func(q queue.Queue) usecase.TaskPublisher { return q },
	func(c *fourthwall.Client) usecase.TrackingPublisher { return c },
	func(c *fourthwall.Client) usecase.StorefrontParser { return c },
	func(c *allowlist.HTTPClient) usecase.AllowListSource { return c },
	func(f *github.Factory) usecase.GitHubGateway { return githubGateway{factory: f} },
	func(s *postgres.Storage) app.HealthChecker { return s },
	func(f *app.RelayFacade) handlers.RelayFacade { return f },
)

type githubGateway struct {
	factory *github.Factory
}

func (g githubGateway) ParseEvent(eventType string, payload []byte) (*model.GateEvent, error) {
	return github.ParseEvent(eventType, payload)
}

func (g githubGateway) ForInstallation(installationID int64) (usecase.GitHubAPI, error) {
	client, err := g.factory.ForInstallation(installationID)
	if err != nil {
		return nil, err
	}
	return client, nil
}
