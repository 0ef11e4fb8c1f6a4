package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
)

type payOrderRequest struct {
	SourceID string `json:"source_id"`
}

// Checkout converts the session cart into a pending order. The cart must not
// be empty and every line must still be purchasable; price or stock drift
// surfaces as a conflict error carrying the failing products.
//
// The server replays the stored response when the same idempotencyKey arrives
// with the same payload, so pass one key per purchase attempt and reuse it on
// retries. An empty key gets a generated one, which protects a single call
// but not a retry loop.
func (c *Client) Checkout(ctx context.Context, req CheckoutRequest, idempotencyKey string) (*Order, error) {
	opts := requestOptions{headers: idempotencyHeader(idempotencyKey)}
	var order Order
	if err := c.do(ctx, http.MethodPost, "/api/checkout", opts, req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// Orders pages the authenticated customer's order history, newest first.
func (c *Client) Orders(ctx context.Context, opts ListOrdersOptions) (*OrderPage, error) {
	query := url.Values{}
	if opts.Status != "" {
		query.Set("status", opts.Status)
	}
	if opts.Cursor != "" {
		query.Set("cursor", opts.Cursor)
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}

	var page OrderPage
	if err := c.do(ctx, http.MethodGet, "/api/orders", requestOptions{query: query}, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Order fetches one of the customer's own orders.
func (c *Client) Order(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	var order Order
	path := "/api/orders/" + orderID.String()
	if err := c.do(ctx, http.MethodGet, path, requestOptions{}, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// OrderQR fetches the PNG payment code for a pending order. The bytes are
// the image itself, ready to render or write to disk.
func (c *Client) OrderQR(ctx context.Context, orderID uuid.UUID) ([]byte, error) {
	path := "/api/orders/" + orderID.String() + "/qr"
	return c.doRaw(ctx, http.MethodGet, path, requestOptions{})
}

// PayOrder charges a tokenized card source against a pending order and
// returns the paid order. sourceID comes from the payment form on the
// storefront. idempotencyKey follows the same retry contract as Checkout.
func (c *Client) PayOrder(ctx context.Context, orderID uuid.UUID, sourceID, idempotencyKey string) (*Order, error) {
	body := payOrderRequest{SourceID: sourceID}
	path := "/api/orders/" + orderID.String() + "/payments"
	opts := requestOptions{headers: idempotencyHeader(idempotencyKey)}
	var order Order
	if err := c.do(ctx, http.MethodPost, path, opts, body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func idempotencyHeader(key string) map[string]string {
	if key == "" {
		key = uuid.NewString()
	}
	return map[string]string{"Idempotency-Key": key}
}
