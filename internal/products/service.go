package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/loomline/storefront-backend/pkg/db"
	"github.com/loomline/storefront-backend/pkg/db/models"
	dbtypes "github.com/loomline/storefront-backend/pkg/db/types"
	pkgerrors "github.com/loomline/storefront-backend/pkg/errors"
	"github.com/loomline/storefront-backend/pkg/pagination"
)

// Service exposes catalog product operations.
type Service interface {
	Create(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	Update(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	Delete(ctx context.Context, productID uuid.UUID) error
	Get(ctx context.Context, productID uuid.UUID) (*ProductDTO, error)
	List(ctx context.Context, input ListProductsInput) (*ListResult, error)
	Featured(ctx context.Context, limit int) ([]ProductDTO, error)
}

type categoryReader interface {
	ExistsByName(ctx context.Context, name string) (bool, error)
}

type mediaReader interface {
	CountByIDs(ctx context.Context, ids []uuid.UUID) (int64, error)
}

// service implements the product service.
type service struct {
	repo       *Repository
	dbClient   *db.Client
	categories categoryReader
	media      mediaReader
}

// NewService constructs a product service instance.
func NewService(repo *Repository, dbClient *db.Client, categories categoryReader, media mediaReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if categories == nil {
		return nil, fmt.Errorf("category reader required")
	}
	if media == nil {
		return nil, fmt.Errorf("media reader required")
	}
	return &service{
		repo:       repo,
		dbClient:   dbClient,
		categories: categories,
		media:      media,
	}, nil
}

// Create inserts the product and recomputes its category count in the same
// transaction.
func (s *service) Create(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	input.SKU = strings.TrimSpace(input.SKU)
	input.Name = strings.TrimSpace(input.Name)
	input.Category = strings.TrimSpace(input.Category)

	if input.SKU == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.Category == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	}
	if input.PriceCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price_cents cannot be negative")
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}
	if err := validateFabricSpecs(input.WidthCM, input.WeightGSM); err != nil {
		return nil, err
	}

	if err := s.ensureCategoryExists(ctx, input.Category); err != nil {
		return nil, err
	}
	mediaIDs, err := s.ensureMediaExists(ctx, input.MediaFileIDs)
	if err != nil {
		return nil, err
	}

	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}

	product := &models.Product{
		SKU:          input.SKU,
		Name:         input.Name,
		Description:  input.Description,
		Category:     input.Category,
		PriceCents:   input.PriceCents,
		Stock:        input.Stock,
		ImageURL:     input.ImageURL,
		Material:     input.Material,
		WidthCM:      input.WidthCM,
		WeightGSM:    input.WeightGSM,
		ColorWays:    append(pq.StringArray{}, input.ColorWays...),
		MediaFileIDs: mediaIDs,
		IsActive:     active,
		IsFeatured:   input.IsFeatured,
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		if _, err := txRepo.Create(ctx, product); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "sku already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
		}
		if err := txRepo.RecountCategories(ctx, product.Category); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: recount categories")
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}

	created, err := s.repo.FindByID(ctx, product.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return NewProductDTO(created), nil
}

// Update mutates the provided fields and recomputes the counts of every
// category the change touches.
func (s *service) Update(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	if err := validateUpdateInput(&input); err != nil {
		return nil, err
	}

	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	if input.Category != nil && *input.Category != product.Category {
		if err := s.ensureCategoryExists(ctx, *input.Category); err != nil {
			return nil, err
		}
	}

	var mediaIDs dbtypes.UUIDArray
	if input.MediaFileIDs != nil {
		mediaIDs, err = s.ensureMediaExists(ctx, *input.MediaFileIDs)
		if err != nil {
			return nil, err
		}
	}

	previousCategory := product.Category
	applyProductUpdate(product, input)
	if input.MediaFileIDs != nil {
		product.MediaFileIDs = mediaIDs
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		if _, err := txRepo.Update(ctx, product); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "sku already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
		}
		if err := txRepo.RecountCategories(ctx, previousCategory, product.Category); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: recount categories")
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}

	updated, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return NewProductDTO(updated), nil
}

// Delete removes the product and recomputes its category count. Cart lines
// referencing the product cascade away; order items keep their snapshot.
func (s *service) Delete(ctx context.Context, productID uuid.UUID) error {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		if err := txRepo.Delete(ctx, product.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete product")
		}
		if err := txRepo.RecountCategories(ctx, product.Category); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: recount categories")
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	return nil
}

// Get fetches a single product by id.
func (s *service) Get(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return NewProductDTO(product), nil
}

// List returns one catalog page for the provided filters.
func (s *service) List(ctx context.Context, input ListProductsInput) (*ListResult, error) {
	rows, nextCursor, err := s.repo.List(ctx, productListQuery{
		Filters:    input.Filters,
		Pagination: input.Pagination,
		ActiveOnly: !input.IncludeInactive,
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	dtos := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *NewProductDTO(&rows[i]))
	}
	return &ListResult{Products: dtos, NextCursor: nextCursor}, nil
}

// Featured returns the active featured products for the home surface.
func (s *service) Featured(ctx context.Context, limit int) ([]ProductDTO, error) {
	rows, err := s.repo.ListFeatured(ctx, pagination.NormalizeLimit(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list featured products")
	}

	dtos := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *NewProductDTO(&rows[i]))
	}
	return dtos, nil
}

func (s *service) ensureCategoryExists(ctx context.Context, name string) error {
	exists, err := s.categories.ExistsByName(ctx, name)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check category")
	}
	if !exists {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "category %q does not exist", name)
	}
	return nil
}

// ensureMediaExists validates every referenced upload id and returns the
// deduplicated set in input order.
func (s *service) ensureMediaExists(ctx context.Context, ids []uuid.UUID) (dbtypes.UUIDArray, error) {
	unique := make(dbtypes.UUIDArray, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "media_file_ids cannot contain an empty id")
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return dbtypes.UUIDArray{}, nil
	}

	count, err := s.media.CountByIDs(ctx, unique)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check media files")
	}
	if count != int64(len(unique)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "one or more media_file_ids do not exist")
	}
	return unique, nil
}

func validateUpdateInput(input *UpdateProductInput) error {
	if input.SKU != nil {
		*input.SKU = strings.TrimSpace(*input.SKU)
		if *input.SKU == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "sku cannot be blank")
		}
	}
	if input.Name != nil {
		*input.Name = strings.TrimSpace(*input.Name)
		if *input.Name == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "name cannot be blank")
		}
	}
	if input.Category != nil {
		*input.Category = strings.TrimSpace(*input.Category)
		if *input.Category == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "category cannot be blank")
		}
	}
	if input.PriceCents != nil && *input.PriceCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "price_cents cannot be negative")
	}
	if input.Stock != nil && *input.Stock < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}
	return validateFabricSpecs(input.WidthCM, input.WeightGSM)
}

func validateFabricSpecs(widthCM, weightGSM *decimal.Decimal) error {
	if widthCM != nil && widthCM.Sign() <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "width_cm must be positive")
	}
	if weightGSM != nil && weightGSM.Sign() <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "weight_gsm must be positive")
	}
	return nil
}

func applyProductUpdate(product *models.Product, input UpdateProductInput) {
	if input.SKU != nil {
		product.SKU = *input.SKU
	}
	if input.Name != nil {
		product.Name = *input.Name
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.Category != nil {
		product.Category = *input.Category
	}
	if input.PriceCents != nil {
		product.PriceCents = *input.PriceCents
	}
	if input.Stock != nil {
		product.Stock = *input.Stock
	}
	if input.ImageURL != nil {
		product.ImageURL = input.ImageURL
	}
	if input.Material != nil {
		product.Material = input.Material
	}
	if input.WidthCM != nil {
		product.WidthCM = input.WidthCM
	}
	if input.WeightGSM != nil {
		product.WeightGSM = input.WeightGSM
	}
	if input.ColorWays != nil {
		product.ColorWays = append(pq.StringArray{}, (*input.ColorWays)...)
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	if input.IsFeatured != nil {
		product.IsFeatured = *input.IsFeatured
	}
}
