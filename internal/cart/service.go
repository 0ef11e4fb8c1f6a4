package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/loomline/storefront-backend/pkg/db"
	"github.com/loomline/storefront-backend/pkg/db/models"
	pkgerrors "github.com/loomline/storefront-backend/pkg/errors"
)

// Service exposes session cart operations. The cart id is the opaque uuid
// minted by the session layer; every mutation returns the refreshed cart.
type Service interface {
	Get(ctx context.Context, cartID uuid.UUID) (*CartDTO, error)
	AddItem(ctx context.Context, cartID uuid.UUID, input AddItemInput) (*CartDTO, error)
	UpdateItem(ctx context.Context, cartID, productID uuid.UUID, input UpdateItemInput) (*CartDTO, error)
	RemoveItem(ctx context.Context, cartID, productID uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, cartID uuid.UUID) error
}

type productReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// service implements the cart service.
type service struct {
	repo     *Repository
	products productReader
	dbClient *db.Client
}

// NewService constructs a cart service instance.
func NewService(repo *Repository, products productReader, dbClient *db.Client) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product reader required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{
		repo:     repo,
		products: products,
		dbClient: dbClient,
	}, nil
}

// Get returns the cart joined with live product data plus computed totals.
func (s *service) Get(ctx context.Context, cartID uuid.UUID) (*CartDTO, error) {
	if cartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}

	lines, err := s.repo.ListLines(ctx, cartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list cart items")
	}
	return newCartDTO(lines), nil
}

// AddItem puts Quantity units of the product into the cart. When the cart
// already holds the product the quantities merge into the existing line.
func (s *service) AddItem(ctx context.Context, cartID uuid.UUID, input AddItemInput) (*CartDTO, error) {
	if cartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	product, err := s.loadProduct(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		existing, err := txRepo.FindItem(ctx, cartID, input.ProductID)
		switch {
		case err == nil:
			merged := existing.Quantity + input.Quantity
			if merged > product.Stock {
				return stockError(merged, product.Stock)
			}
			existing.Quantity = merged
			if err := txRepo.SaveItem(ctx, existing); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update cart item")
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			if input.Quantity > product.Stock {
				return stockError(input.Quantity, product.Stock)
			}
			item := &models.CartItem{
				CartID:    cartID,
				ProductID: input.ProductID,
				Quantity:  input.Quantity,
			}
			if err := txRepo.CreateItem(ctx, item); err != nil {
				if db.IsUniqueViolation(err, "") {
					return pkgerrors.New(pkgerrors.CodeConflict, "cart item was modified concurrently")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert cart item")
			}
		default:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart item")
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add cart item")
	}

	return s.Get(ctx, cartID)
}

// UpdateItem sets the absolute quantity of an existing line. Zero or a
// negative quantity removes the line.
func (s *service) UpdateItem(ctx context.Context, cartID, productID uuid.UUID, input UpdateItemInput) (*CartDTO, error) {
	if cartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	if input.Quantity <= 0 {
		return s.RemoveItem(ctx, cartID, productID)
	}

	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if input.Quantity > product.Stock {
		return nil, stockError(input.Quantity, product.Stock)
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		item, err := txRepo.FindItem(ctx, cartID, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart item")
		}

		item.Quantity = input.Quantity
		if err := txRepo.SaveItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update cart item")
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
	}

	return s.Get(ctx, cartID)
}

// RemoveItem drops the product's line from the cart.
func (s *service) RemoveItem(ctx context.Context, cartID, productID uuid.UUID) (*CartDTO, error) {
	if cartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	affected, err := s.repo.DeleteItem(ctx, cartID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete cart item")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
	}

	return s.Get(ctx, cartID)
}

// Clear empties the cart. Clearing an already empty cart is a no-op.
func (s *service) Clear(ctx context.Context, cartID uuid.UUID) error {
	if cartID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}

	if err := s.repo.Clear(ctx, cartID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: clear cart")
	}
	return nil
}

func (s *service) loadProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	return product, nil
}

func stockError(requested, available int) error {
	return pkgerrors.Newf(pkgerrors.CodeValidation, "requested quantity %d exceeds available stock %d", requested, available)
}
