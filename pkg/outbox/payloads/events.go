package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/loomline/storefront-backend/pkg/enums"
)

// OrderItemSnapshot mirrors one frozen order line inside event payloads.
type OrderItemSnapshot struct {
	ProductID      *uuid.UUID `json:"product_id,omitempty"`
	Name           string     `json:"name"`
	SKU            string     `json:"sku"`
	UnitPriceCents int64      `json:"unit_price_cents"`
	Quantity       int        `json:"quantity"`
}

// OrderCreatedEvent is emitted inside the checkout transaction.
type OrderCreatedEvent struct {
	OrderID    uuid.UUID           `json:"order_id"`
	Number     string              `json:"number"`
	UserID     uuid.UUID           `json:"user_id"`
	Email      string              `json:"email"`
	Name       string              `json:"name"`
	TotalCents int64               `json:"total_cents"`
	Currency   enums.Currency      `json:"currency"`
	Items      []OrderItemSnapshot `json:"items"`
}

// OrderPaidEvent is emitted when payment is confirmed, by webhook or admin.
type OrderPaidEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	Number      string    `json:"number"`
	Email       string    `json:"email"`
	PaymentRef  string    `json:"payment_ref,omitempty"`
	AmountCents int64     `json:"amount_cents"`
	PaidAt      time.Time `json:"paid_at"`
}

// OrderExpiredEvent is emitted when the expiry sweep reclaims a pending order.
type OrderExpiredEvent struct {
	OrderID        uuid.UUID `json:"order_id"`
	Number         string    `json:"number"`
	Email          string    `json:"email"`
	ExpiredAt      time.Time `json:"expired_at"`
	RestockedItems int       `json:"restocked_items"`
}
