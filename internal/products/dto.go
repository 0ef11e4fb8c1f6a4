package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/loomline/storefront-backend/pkg/db/models"
)

// ProductDTO represents the catalog payload returned to clients.
type ProductDTO struct {
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

// NewProductDTO builds a DTO from the persisted model.
func NewProductDTO(product *models.Product) *ProductDTO {
	return &ProductDTO{
		ID:           product.ID,
		SKU:          product.SKU,
		Name:         product.Name,
		Description:  product.Description,
		Category:     product.Category,
		PriceCents:   product.PriceCents,
		Stock:        product.Stock,
		ImageURL:     product.ImageURL,
		Material:     product.Material,
		WidthCM:      product.WidthCM,
		WeightGSM:    product.WeightGSM,
		ColorWays:    append([]string{}, product.ColorWays...),
		MediaFileIDs: append([]uuid.UUID{}, product.MediaFileIDs...),
		IsActive:     product.IsActive,
		IsFeatured:   product.IsFeatured,
		CreatedAt:    product.CreatedAt,
		UpdatedAt:    product.UpdatedAt,
	}
}

// CreateProductInput holds the validated payload to create a product.
// IsActive defaults to true when omitted.
type CreateProductInput struct {
	SKU          string
	Name         string
	Description  *string
	Category     string
	PriceCents   int64
	Stock        int
	ImageURL     *string
	Material     *string
	WidthCM      *decimal.Decimal
	WeightGSM    *decimal.Decimal
	ColorWays    []string
	MediaFileIDs []uuid.UUID
	IsActive     *bool
	IsFeatured   bool
}

// UpdateProductInput holds optional mutation values for a product. Nil fields
// are left untouched.
type UpdateProductInput struct {
	SKU          *string
	Name         *string
	Description  *string
	Category     *string
	PriceCents   *int64
	Stock        *int
	ImageURL     *string
	Material     *string
	WidthCM      *decimal.Decimal
	WeightGSM    *decimal.Decimal
	ColorWays    *[]string
	MediaFileIDs *[]uuid.UUID
	IsActive     *bool
	IsFeatured   *bool
}
