package razorpay

import (
	"context"
	"net/http"
)

// Order is a gateway-side transaction intent. Notes carry opaque metadata
// set at creation time and echoed back on fetch.
type Order struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"` // minor units (paise)
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Status   string            `json:"status"`
	Notes    map[string]string `json:"notes"`
}

// CreateOrderRequest describes a new gateway order.
type CreateOrderRequest struct {
	Amount   int64             `json:"amount"` // minor units (paise)
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// CreateOrder registers a transaction intent with the gateway.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	var order Order
	if err := c.doRequest(ctx, http.MethodPost, "/v1/orders", req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// FetchOrder retrieves an order by id, including the notes attached at
// creation. The verification flow trusts these notes, never the client.
func (c *Client) FetchOrder(ctx context.Context, orderID string) (*Order, error) {
	var order Order
	if err := c.doRequest(ctx, http.MethodGet, "/v1/orders/"+orderID, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}
