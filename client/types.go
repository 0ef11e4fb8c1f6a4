package client

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/loomline/storefront-backend/pkg/enums"
)

// Product mirrors one catalog row as the API serves it. Price fields are
// integer cents.
type Product struct {
	ID           uuid.UUID        `json:"id"`
	SKU          string           `json:"sku"`
	Name         string           `json:"name"`
	Description  *string          `json:"description,omitempty"`
	Category     string           `json:"category"`
	PriceCents   int64            `json:"price_cents"`
	Stock        int              `json:"stock"`
	ImageURL     *string          `json:"image_url,omitempty"`
	Material     *string          `json:"material,omitempty"`
	WidthCM      *decimal.Decimal `json:"width_cm,omitempty"`
	WeightGSM    *decimal.Decimal `json:"weight_gsm,omitempty"`
	ColorWays    []string         `json:"color_ways"`
	MediaFileIDs []uuid.UUID      `json:"media_file_ids"`
	IsActive     bool             `json:"is_active"`
	IsFeatured   bool             `json:"is_featured"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// ProductPage is one page of catalog results. NextCursor is empty on the
// last page.
type ProductPage struct {
	Products   []Product `json:"products"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

// ListProductsOptions filters and pages the catalog listing. Zero values
// are omitted from the query.
type ListProductsOptions struct {
	// Category filters by category name.
	Category string

	// Query matches against product name and SKU.
	Query string

	// Featured narrows to featured (or explicitly non-featured) products.
	Featured *bool

	// Cursor resumes a previous page; Limit caps the page size.
	Cursor string
	Limit  int
}

// Category mirrors one category row. ProductCount tracks active products
// only.
type Category struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Description  *string   `json:"description,omitempty"`
	ProductCount int       `json:"product_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CartItem is one line of the session cart, joined with the live product so
// callers can spot price or stock drift before checkout.
type CartItem struct {
	ID             uuid.UUID `json:"id"`
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	SKU            string    `json:"sku"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Quantity       int       `json:"quantity"`
	LineTotalCents int64     `json:"line_total_cents"`
	ImageURL       *string   `json:"image_url,omitempty"`
	Stock          int       `json:"stock"`
	IsActive       bool      `json:"is_active"`
}

// Cart is the session cart with computed totals.
type Cart struct {
	Items         []CartItem `json:"items"`
	SubtotalCents int64      `json:"subtotal_cents"`
	TotalCents    int64      `json:"total_cents"`
}

// ShippingDetails is the destination block captured at checkout and echoed
// back on every order.
type ShippingDetails struct {
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Phone      *string `json:"phone,omitempty"`
	Address1   string  `json:"address1"`
	Address2   *string `json:"address2,omitempty"`
	City       string  `json:"city"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
}

// OrderItem is one frozen order line. ProductID is nil once the product has
// been deleted from the catalog.
type OrderItem struct {
	ID             uuid.UUID  `json:"id"`
	ProductID      *uuid.UUID `json:"product_id,omitempty"`
	Name           string     `json:"name"`
	SKU            string     `json:"sku"`
	UnitPriceCents int64      `json:"unit_price_cents"`
	Quantity       int        `json:"quantity"`
	TotalCents     int64      `json:"total_cents"`
}

// Order mirrors one order with its frozen lines and shipping block.
type Order struct {
	ID         uuid.UUID         `json:"id"`
	Number     string            `json:"number"`
	UserID     uuid.UUID         `json:"user_id"`
	Status     enums.OrderStatus `json:"status"`
	TotalCents int64             `json:"total_cents"`
	Currency   enums.Currency    `json:"currency"`
	Shipping   ShippingDetails   `json:"shipping"`
	PaymentRef *string           `json:"payment_ref,omitempty"`
	PaidAt     *time.Time        `json:"paid_at,omitempty"`
	CanceledAt *time.Time        `json:"canceled_at,omitempty"`
	Items      []OrderItem       `json:"items"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// OrderPage is one page of the customer's order history.
type OrderPage struct {
	Orders     []Order `json:"orders"`
	NextCursor string  `json:"next_cursor,omitempty"`
}

// ListOrdersOptions filters and pages the order history.
type ListOrdersOptions struct {
	// Status narrows to one order status, e.g. "pending" or "paid".
	Status string

	Cursor string
	Limit  int
}

// User mirrors the account profile the API serves. Password material never
// appears here.
type User struct {
	ID          uuid.UUID      `json:"id"`
	Email       string         `json:"email"`
	FirstName   string         `json:"first_name"`
	LastName    string         `json:"last_name"`
	Role        enums.UserRole `json:"role"`
	IsActive    bool           `json:"is_active"`
	LastLoginAt *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Token is a minted bearer token for header-authenticated calls.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// RegisterRequest creates a new account.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// LoginRequest authenticates an existing account.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CheckoutRequest carries the shipping details that turn the cart into an
// order.
type CheckoutRequest struct {
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Phone      *string `json:"phone,omitempty"`
	Address1   string  `json:"address1"`
	Address2   *string `json:"address2,omitempty"`
	City       string  `json:"city"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
}
