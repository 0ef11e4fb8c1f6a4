package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
)

// ListProducts pages the public catalog. Inactive products never appear.
func (c *Client) ListProducts(ctx context.Context, opts ListProductsOptions) (*ProductPage, error) {
	query := url.Values{}
	if opts.Category != "" {
		query.Set("category", opts.Category)
	}
	if opts.Query != "" {
		query.Set("q", opts.Query)
	}
	if opts.Featured != nil {
		query.Set("featured", strconv.FormatBool(*opts.Featured))
	}
	if opts.Cursor != "" {
		query.Set("cursor", opts.Cursor)
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}

	var page ProductPage
	if err := c.do(ctx, http.MethodGet, "/api/products", requestOptions{query: query}, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetProduct fetches one product by id.
func (c *Client) GetProduct(ctx context.Context, productID uuid.UUID) (*Product, error) {
	var product Product
	path := "/api/products/" + productID.String()
	if err := c.do(ctx, http.MethodGet, path, requestOptions{}, nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// FeaturedProducts fetches the storefront's featured ribbon. A limit of zero
// uses the server default.
func (c *Client) FeaturedProducts(ctx context.Context, limit int) ([]Product, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var result struct {
		Products []Product `json:"products"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/products/featured", requestOptions{query: query}, nil, &result); err != nil {
		return nil, err
	}
	return result.Products, nil
}

// ListCategories fetches every category with its active product count.
func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var result struct {
		Categories []Category `json:"categories"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/categories", requestOptions{}, nil, &result); err != nil {
		return nil, err
	}
	return result.Categories, nil
}

// GetCategory fetches one category by id.
func (c *Client) GetCategory(ctx context.Context, categoryID uuid.UUID) (*Category, error) {
	var category Category
	path := "/api/categories/" + categoryID.String()
	if err := c.do(ctx, http.MethodGet, path, requestOptions{}, nil, &category); err != nil {
		return nil, err
	}
	return &category, nil
}
