package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/polkiloo/fulfillrelay/internal/config"
	"github.com/polkiloo/fulfillrelay/internal/metrics"
	"github.com/polkiloo/fulfillrelay/internal/queue"
	"github.com/polkiloo/fulfillrelay/internal/worker"
)

// Module wires application services, runtime components, and lifecycle hooks.
var Module = fx.Options(
	fx.Provide(
		NewRelayFacade,
		newHTTPServer,
		newConsumerPool,
		newSweeper,
	),
	fx.Invoke(registerLifecycle),
)

type serverParams struct {
	fx.In

	Config *config.Config
	Router *gin.Engine
}

func newHTTPServer(p serverParams) *http.Server {
	return &http.Server{
		Addr:    p.Config.RunAddress,
		Handler: p.Router,
	}
}

type poolParams struct {
	fx.In

	Queue  queue.Queue
	Facade *RelayFacade
	Config *config.Config
	Logger *slog.Logger
}

func newConsumerPool(p poolParams) *worker.ConsumerPool {
	return worker.NewConsumerPool(p.Queue, p.Facade, p.Config.Queue.Workers, p.Logger)
}

type sweeperParams struct {
	fx.In

	Facade  *RelayFacade
	Config  *config.Config
	Metrics *metrics.Metrics `optional:"true"`
	Logger  *slog.Logger
}

func newSweeper(p sweeperParams) *worker.Sweeper {
	return worker.NewSweeper(p.Facade, p.Config.SweepInterval, p.Metrics, p.Logger)
}

type lifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Logger     *slog.Logger
	Server     *http.Server
	Pool       *worker.ConsumerPool
	Sweeper    *worker.Sweeper
	Config     *config.Config
}

func registerLifecycle(p lifecycleParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Logger.Info("starting fulfillrelay", slog.String("addr", p.Server.Addr))
			p.Pool.Start(ctx)
			p.Sweeper.Start(ctx)
			go func() {
				if err := p.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Logger.Error("http server terminated", slog.String("error", err.Error()))
					_ = p.Shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx := ctx
			cancel := func() {}
			if _, ok := ctx.Deadline(); !ok {
				shutdownCtx, cancel = context.WithTimeout(ctx, p.Config.ShutdownTimeout)
			}
			defer cancel()

			serverErr := p.Server.Shutdown(shutdownCtx)
			if errors.Is(serverErr, http.ErrServerClosed) {
				serverErr = nil
			}
			p.Sweeper.Stop()
			poolErr := p.Pool.Stop()

			if err := errors.Join(serverErr, poolErr); err != nil {
				return err
			}
			p.Logger.Info("fulfillrelay stopped")
			return nil
		},
	})
}
