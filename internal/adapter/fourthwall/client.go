package fourthwall

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/polkiloo/fulfillrelay/internal/pkg/endpoint"
)

// Client pushes fulfillment updates back to the storefront.
type Client struct {
	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

type fulfillmentRequest struct {
	TrackingNumber string `json:"tracking_number"`
	TrackingURL    string `json:"tracking_url,omitempty"`
	Carrier        string `json:"carrier,omitempty"`
	Status         string `json:"status"`
}

// NewClient creates storefront client with default timeout.
func NewClient(baseURL, apiKey string, logger *slog.Logger) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse storefront url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("storefront url must be absolute")
	}
	return &Client{
		baseURL: parsed,
		apiKey:  apiKey,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

// PushTracking marks the storefront order fulfilled with the given tracking details.
func (c *Client) PushTracking(ctx context.Context, storefrontOrderID, trackingNumber, trackingURL, carrier string) error {
	body, err := json.Marshal(fulfillmentRequest{
		TrackingNumber: trackingNumber,
		TrackingURL:    trackingURL,
		Carrier:        carrier,
		Status:         "fulfilled",
	})
	if err != nil {
		return err
	}

	target, err := endpoint.Join(c.baseURL, "orders", storefrontOrderID, "fulfillment")
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		c.logger.Error("storefront tracking update failed", slog.Int("status", resp.StatusCode), slog.String("body", string(raw)))
		return fmt.Errorf("update storefront order %s: %s", storefrontOrderID, resp.Status)
	}

	c.logger.Info("storefront order updated with tracking",
		slog.String("storefront_order_id", storefrontOrderID),
		slog.String("tracking_number", trackingNumber),
	)
	return nil
}
