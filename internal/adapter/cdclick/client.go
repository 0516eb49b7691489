package cdclick

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

	"github.com/polkiloo/fulfillrelay/internal/adapter/kunaki"
	domainErrors "github.com/polkiloo/fulfillrelay/internal/domain/errors"
	"github.com/polkiloo/fulfillrelay/internal/domain/model"
	"github.com/polkiloo/fulfillrelay/internal/pkg/endpoint"
)

// Statuses maps CDClick order states onto fulfillment statuses.
var Statuses = model.StatusTable{
	"pending":    model.FulfillmentStatusPending,
	"accepted":   model.FulfillmentStatusProcessing,
	"processing": model.FulfillmentStatusProcessing,
	"shipped":    model.FulfillmentStatusShipped,
	"dispatched": model.FulfillmentStatusShipped,
	"delivered":  model.FulfillmentStatusDelivered,
	"cancelled":  model.FulfillmentStatusCancelled,
	"canceled":   model.FulfillmentStatusCancelled,
	"failed":     model.FulfillmentStatusFailed,
	"rejected":   model.FulfillmentStatusFailed,
}

// Client implements the CDClick Europe REST API.
type Client struct {
	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

type orderRequest struct {
	Reference string    `json:"reference"`
	Recipient recipient `json:"recipient"`
	Items     []item    `json:"items"`
}

type recipient struct {
	Name    string  `json:"name"`
	Address address `json:"address"`
}

type address struct {
	Street  string `json:"street"`
	Street2 string `json:"street2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

type item struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

type orderResponse struct {
	ID        string    `json:"id"`
	Reference string    `json:"reference"`
	Status    string    `json:"status"`
	Tracking  *tracking `json:"tracking"`
}

type tracking struct {
	Number  string `json:"number"`
	URL     string `json:"url"`
	Carrier string `json:"carrier"`
}

// Webhook is the shipment status notification pushed by CDClick.
type Webhook struct {
	OrderID        string `json:"order_id"`
	Status         string `json:"status"`
	TrackingNumber string `json:"tracking_number,omitempty"`
	TrackingURL    string `json:"tracking_url,omitempty"`
	Carrier        string `json:"carrier,omitempty"`
	ShippedAt      string `json:"shipped_at,omitempty"`
	EventType      string `json:"event_type"`
}

// NewClient creates CDClick client with default timeout.
func NewClient(baseURL, apiKey string, logger *slog.Logger) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse cdclick url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("cdclick url must be absolute")
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

func (c *Client) Name() model.Provider { return model.ProviderCDClick }

// CanFulfill accepts every country outside the domestic vocabulary.
func (c *Client) CanFulfill(order *model.Order) bool {
	return !kunaki.Domestic(order.Shipping.Country)
}

func (c *Client) NormalizeStatus(status string) model.FulfillmentStatus {
	return Statuses.Normalize(status)
}

func (c *Client) SubmitOrder(ctx context.Context, order *model.Order, items []model.OrderItem) model.FulfillmentResult {
	payload := orderRequest{
		Reference: order.ID.String(),
		Recipient: recipient{
			Name: order.CustomerName,
			Address: address{
				Street:  order.Shipping.Line1,
				Street2: order.Shipping.Line2,
				City:    order.Shipping.City,
				State:   order.Shipping.State,
				Zip:     order.Shipping.PostalCode,
				Country: order.Shipping.Country,
			},
		},
		Items: make([]item, 0, len(items)),
	}
	for _, it := range items {
		payload.Items = append(payload.Items, item{SKU: it.ProductID, Quantity: it.Quantity})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return model.FulfillmentResult{Error: err.Error()}
	}

	resp, err := c.do(ctx, http.MethodPost, body, "orders")
	if err != nil {
		c.logger.Error("cdclick submit failed", slog.String("order_id", order.ID.String()), slog.String("error", err.Error()))
		return model.FulfillmentResult{Error: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.FulfillmentResult{Error: err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("cdclick request failed", slog.Int("status", resp.StatusCode), slog.String("body", string(raw)))
		return model.FulfillmentResult{Error: fmt.Sprintf("CDClick API error: %d - %s", resp.StatusCode, raw)}
	}

	var data orderResponse
	if err := json.Unmarshal(raw, &data); err != nil {
		return model.FulfillmentResult{Error: fmt.Sprintf("decode cdclick response: %v", err)}
	}
	if data.ID == "" {
		return model.FulfillmentResult{Error: "CDClick response missing order id"}
	}

	result := model.FulfillmentResult{Success: true, ProviderOrderID: data.ID}
	if data.Tracking != nil {
		result.TrackingNumber = data.Tracking.Number
		result.TrackingURL = data.Tracking.URL
		result.Carrier = data.Tracking.Carrier
	}
	return result
}

// CheckStatus fetches the current state of a submitted order.
// An order CDClick does not know is reported through the snapshot error.
func (c *Client) CheckStatus(ctx context.Context, providerOrderID string) (*model.ProviderStatus, error) {
	resp, err := c.do(ctx, http.MethodGet, nil, "orders", providerOrderID)
	if err != nil {
		return nil, fmt.Errorf("cdclick status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &model.ProviderStatus{ProviderOrderID: providerOrderID, Error: "order not found"}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("CDClick API error: %d", resp.StatusCode)
	}

	var data orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode cdclick status: %w", err)
	}
	status := &model.ProviderStatus{ProviderOrderID: providerOrderID, Status: data.Status}
	if data.Tracking != nil {
		status.TrackingNumber = data.Tracking.Number
		status.TrackingURL = data.Tracking.URL
		status.Carrier = data.Tracking.Carrier
	}
	return status, nil
}

// CancelOrder is best effort and reports false on any failure.
func (c *Client) CancelOrder(ctx context.Context, providerOrderID string) bool {
	resp, err := c.do(ctx, http.MethodPost, nil, "orders", providerOrderID, "cancel")
	if err != nil {
		c.logger.Error("cdclick cancel failed", slog.String("provider_order_id", providerOrderID), slog.String("error", err.Error()))
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// ParseWebhook decodes a pushed status notification.
func (c *Client) ParseWebhook(payload []byte) (*model.ProviderStatus, error) {
	var hook Webhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrInvalidPayload, err)
	}
	if hook.OrderID == "" || hook.Status == "" {
		return nil, fmt.Errorf("%w: missing order_id or status", domainErrors.ErrInvalidPayload)
	}

	status := &model.ProviderStatus{
		ProviderOrderID: hook.OrderID,
		Status:          hook.Status,
		TrackingNumber:  hook.TrackingNumber,
		TrackingURL:     hook.TrackingURL,
		Carrier:         hook.Carrier,
	}
	if hook.ShippedAt != "" {
		if t, err := time.Parse(time.RFC3339, hook.ShippedAt); err == nil {
			status.ShippedAt = &t
		}
	}
	return status, nil
}

func (c *Client) do(ctx context.Context, method string, body []byte, segments ...string) (*http.Response, error) {
	target, err := endpoint.Join(c.baseURL, segments...)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return c.httpClient.Do(req)
}
