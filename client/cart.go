package client

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type cartItemRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

type cartQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// Cart fetches the session cart. A fresh session gets an empty cart, not an
// error.
func (c *Client) Cart(ctx context.Context) (*Cart, error) {
	var cart Cart
	if err := c.do(ctx, http.MethodGet, "/api/cart", requestOptions{}, nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// AddCartItem adds quantity units of a product to the cart. Adding a product
// already in the cart merges into the existing line.
func (c *Client) AddCartItem(ctx context.Context, productID uuid.UUID, quantity int) (*Cart, error) {
	body := cartItemRequest{ProductID: productID, Quantity: quantity}
	var cart Cart
	if err := c.do(ctx, http.MethodPost, "/api/cart/items", requestOptions{}, body, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// UpdateCartItem sets the quantity of one cart line. A quantity of zero or
// less removes the line.
func (c *Client) UpdateCartItem(ctx context.Context, productID uuid.UUID, quantity int) (*Cart, error) {
	body := cartQuantityRequest{Quantity: quantity}
	path := "/api/cart/items/" + productID.String()
	var cart Cart
	if err := c.do(ctx, http.MethodPatch, path, requestOptions{}, body, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// RemoveCartItem drops one product from the cart.
func (c *Client) RemoveCartItem(ctx context.Context, productID uuid.UUID) (*Cart, error) {
	path := "/api/cart/items/" + productID.String()
	var cart Cart
	if err := c.do(ctx, http.MethodDelete, path, requestOptions{}, nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// ClearCart empties the session cart.
func (c *Client) ClearCart(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/cart", requestOptions{}, nil, nil)
}
