package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/polkiloo/fulfillrelay/internal/config"
	"github.com/polkiloo/fulfillrelay/internal/metrics"
	"github.com/polkiloo/fulfillrelay/internal/pkg/signature"
	"github.com/polkiloo/fulfillrelay/internal/server/http/handlers"
	"github.com/polkiloo/fulfillrelay/internal/server/http/middleware"
)

const maxBodyBytes = 1 << 20

// Setup configures gin router with handlers and middleware.
func Setup(cfg *config.Config, facade handlers.RelayFacade, m *metrics.Metrics, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.RequestMetrics(m))
	engine.Use(middleware.LimitBody(maxBodyBytes))
	engine.Use(middleware.DecompressRequest(maxBodyBytes))
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	if cfg.WebhookSecret == "" {
		logger.Warn("WEBHOOK_SECRET is empty; storefront and provider webhooks are signed with an empty key")
	}

	serviceHandler := handlers.NewServiceHandler(facade, logger)
	webhookHandler := handlers.NewWebhookHandler(facade, logger)

	engine.GET("/", serviceHandler.Root)
	engine.GET("/health", serviceHandler.Health)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})))

	webhook := engine.Group("/webhook")
	webhook.POST("/fourthwall",
		middleware.VerifySignature(middleware.StorefrontSignatureHeader, signature.NewVerifier(cfg.WebhookSecret, signature.PrefixSHA256), logger),
		webhookHandler.Storefront)
	webhook.POST("/cdclick",
		middleware.VerifySignature(middleware.CDClickSignatureHeader, signature.NewVerifier(cfg.WebhookSecret, ""), logger),
		webhookHandler.CDClick)
	webhook.POST("/github",
		middleware.VerifySignature(middleware.GitHubSignatureHeader, signature.NewVerifier(cfg.GitHub.WebhookSecret, signature.PrefixSHA256), logger),
		webhookHandler.GitHub)

	engine.NoRoute(serviceHandler.NotFound)
	engine.NoMethod(serviceHandler.MethodNotAllowed)

	return engine
}
