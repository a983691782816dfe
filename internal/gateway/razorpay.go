// Package gateway talks to the Razorpay Orders API and verifies the HMAC
// signatures Razorpay attaches to checkout callbacks and webhooks.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OrderRequest describes a gateway order for the booking fee.
type OrderRequest struct {
	Receipt     string            // internal booking reference
	AmountMinor int64             // amount in the currency's minor unit
	Currency    string            // ISO code, e.g. INR
	Notes       map[string]string // echoed back by the gateway in webhooks
}

// Order is the subset of the gateway's order entity the service uses.
type Order struct {
	ID       string `json:"id"`
	Entity   string `json:"entity"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// APIError is returned when the gateway answers with a non-200 status.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("razorpay: http %d", e.StatusCode)
	}
	return fmt.Sprintf("razorpay: http %d: %s: %s", e.StatusCode, e.Code, e.Description)
}

// Client is a minimal Razorpay API client authenticated with basic auth
// (key id / key secret).
type Client struct {
	baseURL   string
	keyID     string
	keySecret string
	http      *http.Client
}

// NewClient creates a client for baseURL (normally https://api.razorpay.com).
func NewClient(baseURL, keyID, keySecret string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		keyID:     keyID,
		keySecret: keySecret,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
}

type createOrderBody struct {
	Receipt        string            `json:"receipt"`
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	PaymentCapture int               `json:"payment_capture"`
	Notes          map[string]string `json:"notes,omitempty"`
}

// CreateOrder creates an auto-captured order.  A 200 response without an
// order id is treated as a failure.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (Order, error) {
	payload, err := json.Marshal(createOrderBody{
		Receipt:        req.Receipt,
		Amount:         req.AmountMinor,
		Currency:       req.Currency,
		PaymentCapture: 1,
		Notes:          req.Notes,
	})
	if err != nil {
		return Order{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(payload))
	if err != nil {
		return Order{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Order{}, fmt.Errorf("razorpay: create order: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Order{}, fmt.Errorf("razorpay: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var e struct {
			Error struct {
				Code        string `json:"code"`
				Description string `json:"description"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &e) == nil {
			apiErr.Code = e.Error.Code
			apiErr.Description = e.Error.Description
		}
		return Order{}, apiErr
	}

	var order Order
	if err := json.Unmarshal(body, &order); err != nil {
		return Order{}, fmt.Errorf("razorpay: decode order: %w", err)
	}
	if order.ID == "" {
		return Order{}, fmt.Errorf("razorpay: order response without id")
	}
	return order, nil
}
