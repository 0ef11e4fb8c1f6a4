package cart

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/loomline/storefront-backend/pkg/db/models"
)

// Line is one cart_items row joined with the product columns needed to
// price and render it.
type Line struct {
	ItemID     uuid.UUID
	ProductID  uuid.UUID
	Quantity   int
	Name       string
	SKU        string
	PriceCents int64
	ImageURL   *string
	Stock      int
	IsActive   bool
}

// Repository owns all SQL against the cart_items table.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// ListLines returns the cart's rows joined with live product data, oldest
// line first so the cart renders in the order items were added.
func (r *Repository) ListLines(ctx context.Context, cartID uuid.UUID) ([]Line, error) {
	var lines []Line
	err := r.db.WithContext(ctx).
		Table("cart_items ci").
		Select(strings.Join([]string{
			"ci.id AS item_id",
			"ci.product_id",
			"ci.quantity",
			"p.name",
			"p.sku",
			"p.price_cents",
			"p.image_url",
			"p.stock",
			"p.is_active",
		}, ", ")).
		Joins("JOIN products p ON p.id = ci.product_id").
		Where("ci.cart_id = ?", cartID).
		Order("ci.created_at ASC").
		Scan(&lines).
		Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// FindItem loads the cart line for one product. Returns
// gorm.ErrRecordNotFound when the product is not in the cart.
func (r *Repository) FindItem(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		First(&item).
		Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Repository) CreateItem(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *Repository) SaveItem(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// DeleteItem removes one product's line and reports how many rows went away
// so callers can distinguish a miss from a delete.
func (r *Repository) DeleteItem(ctx context.Context, cartID, productID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// Clear drops every line in the cart.
func (r *Repository) Clear(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartItem{}).
		Error
}
