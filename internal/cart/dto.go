package cart

import (
	"github.com/google/uuid"
)

// ItemDTO is one cart line joined with the live product fields the
// storefront needs to render it. UnitPriceCents reflects the product's
// current price; carts are never frozen, only orders are.
type ItemDTO struct {
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

// CartDTO is the full cart view returned by every cart read and mutation.
type CartDTO struct {
	Items         []ItemDTO `json:"items"`
	SubtotalCents int64     `json:"subtotal_cents"`
	TotalCents    int64     `json:"total_cents"`
}

// AddItemInput adds Quantity units of a product to the cart, merging into
// the existing line when one is already present.
type AddItemInput struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// UpdateItemInput sets the absolute quantity for an existing cart line.
// A quantity of zero or less removes the line.
type UpdateItemInput struct {
	Quantity int `json:"quantity"`
}

func newCartDTO(lines []Line) *CartDTO {
	dto := &CartDTO{Items: make([]ItemDTO, 0, len(lines))}
	for _, line := range lines {
		lineTotal := line.PriceCents * int64(line.Quantity)
		dto.Items = append(dto.Items, ItemDTO{
			ID:             line.ItemID,
			ProductID:      line.ProductID,
			Name:           line.Name,
			SKU:            line.SKU,
			UnitPriceCents: line.PriceCents,
			Quantity:       line.Quantity,
			LineTotalCents: lineTotal,
			ImageURL:       line.ImageURL,
			Stock:          line.Stock,
			IsActive:       line.IsActive,
		})
		dto.SubtotalCents += lineTotal
	}
	dto.TotalCents = dto.SubtotalCents
	return dto
}
