package middleware

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/fulfillrelay/internal/domain/errors"
	"github.com/polkiloo/fulfillrelay/internal/pkg/signature"
)

// Signature headers per webhook source.
const (
	StorefrontSignatureHeader = "X-Fourthwall-Signature"
	CDClickSignatureHeader    = "X-CDClick-Signature"
	GitHubSignatureHeader     = "X-Hub-Signature-256"
)

// VerifySignature rejects requests whose header does not sign the raw body.
// The body is restored for downstream handlers.
func VerifySignature(header string, verifier *signature.Verifier, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		value := c.GetHeader(header)
		if value == "" {
			logger.Warn("webhook without signature", slog.String("path", c.Request.URL.Path))
			c.String(http.StatusUnauthorized, "Missing signature")
			c.Abort()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.AbortWithStatus(http.StatusRequestEntityTooLarge)
				return
			}
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}

		if err := verifier.Verify(body, value); err != nil {
			logger.Warn("webhook signature rejected", slog.String("path", c.Request.URL.Path))
			c.String(domainErrors.HTTPStatus(err), "Invalid signature")
			c.Abort()
			return
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Next()
	}
}
