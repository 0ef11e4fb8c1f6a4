package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/loomline/storefront-backend/pkg/db/models"
	"github.com/loomline/storefront-backend/pkg/enums"
	"github.com/loomline/storefront-backend/pkg/pagination"
)

// ShippingDTO is the address block captured at checkout.
type ShippingDTO struct {
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Phone      *string `json:"phone,omitempty"`
	Address1   string  `json:"address1"`
	Address2   *string `json:"address2,omitempty"`
	City       string  `json:"city"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
}

// OrderItemDTO is one frozen order line. ProductID is nil when the catalog
// product has since been deleted.
type OrderItemDTO struct {
	ID             uuid.UUID  `json:"id"`
	ProductID      *uuid.UUID `json:"product_id,omitempty"`
	Name           string     `json:"name"`
	SKU            string     `json:"sku"`
	UnitPriceCents int64      `json:"unit_price_cents"`
	Quantity       int        `json:"quantity"`
	TotalCents     int64      `json:"total_cents"`
}

// OrderDTO is the API view of an order.
type OrderDTO struct {
	ID         uuid.UUID         `json:"id"`
	Number     string            `json:"number"`
	UserID     uuid.UUID         `json:"user_id"`
	Status     enums.OrderStatus `json:"status"`
	TotalCents int64             `json:"total_cents"`
	Currency   enums.Currency    `json:"currency"`
	Shipping   ShippingDTO       `json:"shipping"`
	PaymentRef *string           `json:"payment_ref,omitempty"`
	PaidAt     *time.Time        `json:"paid_at,omitempty"`
	CanceledAt *time.Time        `json:"canceled_at,omitempty"`
	Items      []OrderItemDTO    `json:"items"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// ListOrdersInput filters an order listing. Status is the raw query value
// and is validated by the service.
type ListOrdersInput struct {
	Status     string
	Pagination pagination.Params
}

// ListResult is one page of orders plus the cursor for the next one.
type ListResult struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// UpdateStatusInput moves an order along the lifecycle graph.
type UpdateStatusInput struct {
	Status      enums.OrderStatus
	ActorUserID uuid.UUID
	ActorRole   string
}

// PayOrderInput carries the tokenized card source for a gateway charge.
type PayOrderInput struct {
	SourceID string `json:"source_id"`
}

// NewOrderDTO maps the persisted order to its API view.
func NewOrderDTO(order *models.Order) *OrderDTO {
	items := make([]OrderItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemDTO{
			ID:             item.ID,
			ProductID:      item.ProductID,
			Name:           item.Name,
			SKU:            item.SKU,
			UnitPriceCents: item.UnitPriceCents,
			Quantity:       item.Quantity,
			TotalCents:     item.TotalCents,
		})
	}
	return &OrderDTO{
		ID:         order.ID,
		Number:     order.Number,
		UserID:     order.UserID,
		Status:     order.Status,
		TotalCents: order.TotalCents,
		Currency:   order.Currency,
		Shipping: ShippingDTO{
			Name:       order.Name,
			Email:      order.Email,
			Phone:      order.Phone,
			Address1:   order.Address1,
			Address2:   order.Address2,
			City:       order.City,
			PostalCode: order.PostalCode,
			Country:    order.Country,
		},
		PaymentRef: order.PaymentRef,
		PaidAt:     order.PaidAt,
		CanceledAt: order.CanceledAt,
		Items:      items,
		CreatedAt:  order.CreatedAt,
		UpdatedAt:  order.UpdatedAt,
	}
}
