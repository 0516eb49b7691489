package allowlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/polkiloo/fulfillrelay/internal/domain/model"
)

// ErrNotConfigured is returned when no allow-list location is set.
var ErrNotConfigured = errors.New("allow-list url not configured")

// HTTPClient downloads the reviewer allow-list document.
type HTTPClient struct {
	location   *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPClient creates fetcher for location. An empty location yields a client that always fails.
func NewHTTPClient(location string, logger *slog.Logger) (*HTTPClient, error) {
	client := &HTTPClient{
		logger:     logger,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	if location == "" {
		return client, nil
	}
	parsed, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("parse allow-list url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("allow-list url must be absolute")
	}
	client.location = parsed
	return client, nil
}

// Fetch retrieves the current allow-list.
func (c *HTTPClient) Fetch(ctx context.Context) ([]model.AllowedUser, error) {
	if c.location == nil {
		return nil, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.location.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("allow-list request failed", slog.Int("status", resp.StatusCode), slog.String("body", string(body)))
		return nil, fmt.Errorf("allow-list error: %s", resp.Status)
	}

	var users []model.AllowedUser
	if err := json.Unmarshal(body, &users); err != nil {
		return nil, fmt.Errorf("decode allow-list: %w", err)
	}
	return users, nil
}
