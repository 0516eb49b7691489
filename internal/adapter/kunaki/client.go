package kunaki

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/polkiloo/fulfillrelay/internal/domain/model"
)

const (
	statusSuccess = "Success"
	statusError   = "Error"
)

// Statuses maps Kunaki order states onto fulfillment statuses.
var Statuses = model.StatusTable{
	"success":    model.FulfillmentStatusProcessing,
	"processing": model.FulfillmentStatusProcessing,
	"shipped":    model.FulfillmentStatusShipped,
	"delivered":  model.FulfillmentStatusDelivered,
	"cancelled":  model.FulfillmentStatusCancelled,
	"canceled":   model.FulfillmentStatusCancelled,
	"error":      model.FulfillmentStatusFailed,
}

var domesticCountries = map[string]struct{}{
	"US":            {},
	"USA":           {},
	"UNITED STATES": {},
}

// Domestic reports whether country belongs to the Kunaki shipping vocabulary.
func Domestic(country string) bool {
	_, ok := domesticCountries[strings.ToUpper(strings.TrimSpace(country))]
	return ok
}

// Client talks to the Kunaki form-encoded HTTP service.
type Client struct {
	endpoint   *url.URL
	username   string
	password   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates Kunaki client with default timeout.
func NewClient(endpoint, username, password string, logger *slog.Logger) (*Client, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse kunaki url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("kunaki url must be absolute")
	}
	return &Client{
		endpoint: parsed,
		username: username,
		password: password,
		logger:   logger,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

func (c *Client) Name() model.Provider { return model.ProviderKunaki }

func (c *Client) CanFulfill(order *model.Order) bool {
	return Domestic(order.Shipping.Country)
}

func (c *Client) NormalizeStatus(status string) model.FulfillmentStatus {
	return Statuses.Normalize(status)
}

// SubmitOrder submits the first item of the order. Kunaki orders are per product.
func (c *Client) SubmitOrder(ctx context.Context, order *model.Order, items []model.OrderItem) model.FulfillmentResult {
	if len(items) == 0 {
		return model.FulfillmentResult{Error: "No items to fulfill"}
	}
	item := items[0]

	form := c.credentials("SubmitOrder")
	form.Set("Product_Id", item.ProductID)
	form.Set("Quantity", strconv.Itoa(item.Quantity))
	form.Set("Ship_Name", order.CustomerName)
	form.Set("Ship_Address", order.Shipping.Line1)
	form.Set("Ship_Address_2", order.Shipping.Line2)
	form.Set("Ship_City", order.Shipping.City)
	form.Set("Ship_State", order.Shipping.State)
	form.Set("Ship_Postal_Code", order.Shipping.PostalCode)
	form.Set("Ship_Country", order.Shipping.Country)
	form.Set("Order_Id", fmt.Sprintf("%s-%s", order.ID, item.ID))

	values, err := c.post(ctx, form)
	if err != nil {
		c.logger.Error("kunaki submit failed", slog.String("order_id", order.ID.String()), slog.String("error", err.Error()))
		return model.FulfillmentResult{Error: err.Error()}
	}

	if status(values) != statusSuccess {
		msg := values["Error"]
		if msg == "" {
			msg = "Unknown Kunaki error"
		}
		return model.FulfillmentResult{Error: msg}
	}
	return model.FulfillmentResult{Success: true, ProviderOrderID: values["Order_Id"]}
}

// CheckStatus polls the state of a submitted order.
func (c *Client) CheckStatus(ctx context.Context, providerOrderID string) (*model.ProviderStatus, error) {
	form := c.credentials("OrderStatus")
	form.Set("Order_Id", providerOrderID)

	values, err := c.post(ctx, form)
	if err != nil {
		return nil, err
	}

	result := &model.ProviderStatus{
		ProviderOrderID: values["Order_Id"],
		Status:          status(values),
		TrackingNumber:  values["Tracking_Number"],
		ShippedAt:       parseShippingDate(values["Shipping_Date"]),
		Error:           values["Error"],
	}
	if result.ProviderOrderID == "" {
		result.ProviderOrderID = providerOrderID
	}
	return result, nil
}

// CancelOrder always reports false: the Kunaki service has no cancellation command.
func (c *Client) CancelOrder(_ context.Context, providerOrderID string) bool {
	c.logger.Warn("kunaki does not support cancellation", slog.String("provider_order_id", providerOrderID))
	return false
}

func (c *Client) credentials(command string) url.Values {
	form := url.Values{}
	form.Set("userid", c.username)
	form.Set("password", c.password)
	form.Set("command", command)
	return form
}

func (c *Client) post(ctx context.Context, form url.Values) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

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
		c.logger.Error("kunaki request failed", slog.Int("status", resp.StatusCode), slog.String("body", string(body)))
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return ParseResponse(string(body)), nil
}

// ParseResponse splits Key=Value lines on the first '='. Lines without a value are ignored.
func ParseResponse(text string) map[string]string {
	values := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(strings.TrimSpace(text)))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		values[key] = strings.TrimSpace(value)
	}
	return values
}

func status(values map[string]string) string {
	if s := values["Status"]; s != "" {
		return s
	}
	return statusError
}

var shippingDateLayouts = []string{time.RFC3339, "2006-01-02", "1/2/2006", "1/2/2006 3:04:05 PM"}

func parseShippingDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range shippingDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}
