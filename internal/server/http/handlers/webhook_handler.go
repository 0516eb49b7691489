package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/fulfillrelay/internal/domain/model"
)

// GitHubEventHeader names the GitHub event type header.
const GitHubEventHeader = "X-GitHub-Event"

// WebhookHandler accepts webhooks whose signature was already verified.
type WebhookHandler struct {
	facade WebhookFacade
	logger *slog.Logger
}

// NewWebhookHandler creates WebhookHandler instance.
func NewWebhookHandler(facade WebhookFacade, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{facade: facade, logger: logger}
}

// Storefront handles POST /webhook/fourthwall.
func (h *WebhookHandler) Storefront(c *gin.Context) {
	h.record(c, model.WebhookSourceStorefront)
}

// CDClick handles POST /webhook/cdclick.
func (h *WebhookHandler) CDClick(c *gin.Context) {
	h.record(c, model.WebhookSourceCDClick)
}

func (h *WebhookHandler) record(c *gin.Context, source model.WebhookSource) {
	body, err := readBody(c)
	if err == nil {
		err = h.facade.RecordWebhook(c.Request.Context(), source, body)
	}
	if err != nil {
		h.logger.Error("webhook rejected", slog.String("source", string(source)), slog.String("error", err.Error()))
		RespondError(c, err)
		return
	}
	c.String(http.StatusOK, "OK")
}

// GitHub handles POST /webhook/github.
func (h *WebhookHandler) GitHub(c *gin.Context) {
	eventType := c.GetHeader(GitHubEventHeader)
	body, err := readBody(c)
	if err == nil {
		err = h.facade.HandleGitHubEvent(c.Request.Context(), eventType, body)
	}
	if err != nil {
		h.logger.Error("github webhook failed", slog.String("event", eventType), slog.String("error", err.Error()))
		RespondError(c, err)
		return
	}
	c.String(http.StatusOK, "OK")
}
