package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/fulfillrelay/internal/domain/errors"
)

const (
	msgMissingSignature = "Missing signature"
	msgInvalidSignature = "Invalid signature"
	msgInvalidPayload   = "Invalid payload"
	msgProcessingError  = "Error processing webhook"
)

var now = func() time.Time { return time.Now().UTC() }

// RespondError writes a generic plain-text body for err.
func RespondError(c *gin.Context, err error) {
	status := domainErrors.HTTPStatus(err)
	message := msgProcessingError
	switch {
	case errors.Is(err, domainErrors.ErrMissingSignature):
		message = msgMissingSignature
	case status == http.StatusUnauthorized:
		message = msgInvalidSignature
	case status == http.StatusBadRequest:
		message = msgInvalidPayload
	}
	c.String(status, message)
}

func readBody(c *gin.Context) ([]byte, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, domainErrors.ErrInvalidPayload
	}
	return body, nil
}
