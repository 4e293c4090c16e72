package deyecloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"solarsync/internal/observability/metrics"
)

const defaultTimeout = 30 * time.Second

// ErrVendorFailure marks a 200 response whose envelope carries success=false.
// The vendor message is attached via APIError.
var ErrVendorFailure = errors.New("deyecloud: vendor reported failure")

// APIError describes a failed vendor API call.
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("deyecloud: %s: status %d: %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("deyecloud: %s: %s", e.Endpoint, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// Client is a minimal DeyeCloud REST client. It performs authenticated
// JSON requests and decodes the vendor envelope. The client never retries;
// retry policy belongs to callers.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithTimeout overrides the default request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// NewClient constructs a DeyeCloud client.
func NewClient(baseURL, token string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("deyecloud: empty base url")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetToken replaces the bearer token used on subsequent requests, typically
// after ObtainToken.
func (c *Client) SetToken(token string) {
	c.token = token
}

// ListStations fetches one page of the station list.
func (c *Client) ListStations(ctx context.Context, page, size int) ([]Station, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 100
	}
	body := map[string]any{"page": page, "size": size}
	var resp stationListResponse
	if err := c.doJSON(ctx, http.MethodPost, "/station/list", body, &resp); err != nil {
		return nil, err
	}
	if err := c.checkEnvelope("/station/list", resp.envelope); err != nil {
		return nil, err
	}
	return resp.StationList, nil
}

// Granularity selects telemetry resolution on /station/history.
type Granularity int

const (
	// GranularityFrame returns many instantaneous power samples per day.
	GranularityFrame Granularity = 1
	// GranularityDaily returns one energy-total item per day.
	GranularityDaily Granularity = 2
)

// StationHistory fetches station telemetry between two dates (inclusive,
// YYYY-MM-DD form) at the given granularity.
func (c *Client) StationHistory(ctx context.Context, stationID int64, g Granularity, startAt, endAt string) ([]StationDataItem, error) {
	if stationID == 0 {
		return nil, errors.New("deyecloud: empty station id")
	}
	if startAt == "" || endAt == "" {
		return nil, errors.New("deyecloud: empty history range")
	}
	body := map[string]any{
		"stationId":   stationID,
		"granularity": int(g),
		"startAt":     startAt,
		"endAt":       endAt,
	}
	var resp stationHistoryResponse
	if err := c.doJSON(ctx, http.MethodPost, "/station/history", body, &resp); err != nil {
		return nil, err
	}
	if err := c.checkEnvelope("/station/history", resp.envelope); err != nil {
		return nil, err
	}
	return resp.StationDataItems, nil
}

// SubmitCustomControl submits a raw Modbus order for a device and returns
// the vendor order id.
func (c *Client) SubmitCustomControl(ctx context.Context, deviceSN, content string, timeoutSeconds int) (int64, error) {
	if deviceSN == "" {
		return 0, errors.New("deyecloud: empty device sn")
	}
	if content == "" {
		return 0, errors.New("deyecloud: empty order content")
	}
	if timeoutSeconds <= 0 {
		timeoutSeconds = 600
	}
	body := map[string]any{
		"deviceSn":       deviceSN,
		"content":        content,
		"timeoutSeconds": timeoutSeconds,
	}
	var resp orderSubmitResponse
	if err := c.doJSON(ctx, http.MethodPost, "/order/customControl", body, &resp); err != nil {
		return 0, err
	}
	if err := c.checkEnvelope("/order/customControl", resp.envelope); err != nil {
		return 0, err
	}
	if resp.OrderID == 0 {
		return 0, &APIError{Endpoint: "/order/customControl", Message: "missing order id"}
	}
	return resp.OrderID, nil
}

// OrderStatus fetches the current status of an order.
func (c *Client) OrderStatus(ctx context.Context, orderID int64) (*Order, error) {
	if orderID == 0 {
		return nil, errors.New("deyecloud: empty order id")
	}
	path := fmt.Sprintf("/order/%d", orderID)
	var resp struct {
		envelope
		Order
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	if err := c.checkEnvelope(path, resp.envelope); err != nil {
		return nil, err
	}
	order := resp.Order
	return &order, nil
}

// DynamicControl pushes a time-of-use control strategy to a device.
func (c *Client) DynamicControl(ctx context.Context, req DynamicControlRequest) error {
	if req.DeviceSN == "" {
		return errors.New("deyecloud: empty device sn")
	}
	if len(req.TimeUseSettingItems) == 0 {
		return errors.New("deyecloud: empty time-of-use schedule")
	}
	var resp struct {
		envelope
	}
	if err := c.doJSON(ctx, http.MethodPost, "/strategy/dynamicControl", req, &resp); err != nil {
		return err
	}
	return c.checkEnvelope("/strategy/dynamicControl", resp.envelope)
}

func (c *Client) checkEnvelope(endpoint string, env envelope) error {
	if env.Success {
		return nil
	}
	msg := env.Msg
	if msg == "" {
		msg = "unknown vendor error"
	}
	return &APIError{Endpoint: endpoint, Message: msg, Err: ErrVendorFailure}
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.ObserveAPIRequest(path, metrics.ResultError, time.Since(start))
		return &APIError{Endpoint: path, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.ObserveAPIRequest(path, metrics.ResultError, time.Since(start))
		return &APIError{Endpoint: path, StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	metrics.ObserveAPIRequest(path, metrics.ResultSuccess, time.Since(start))

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Endpoint: path, Message: "malformed response body", Err: err}
	}
	return nil
}
