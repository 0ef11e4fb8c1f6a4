package categories

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/loomline/storefront-backend/internal/products"
	"github.com/loomline/storefront-backend/pkg/db"
	"github.com/loomline/storefront-backend/pkg/db/models"
	pkgerrors "github.com/loomline/storefront-backend/pkg/errors"
)

// Service exposes category management operations. Renames cascade to the
// products table and recompute the affected counts inside one transaction.
type Service interface {
	List(ctx context.Context) ([]CategoryDTO, error)
	Get(ctx context.Context, categoryID uuid.UUID) (*CategoryDTO, error)
	Create(ctx context.Context, input CreateCategoryInput) (*CategoryDTO, error)
	Update(ctx context.Context, categoryID uuid.UUID, input UpdateCategoryInput) (*CategoryDTO, error)
	Delete(ctx context.Context, categoryID uuid.UUID) error
}

// service implements the category service.
type service struct {
	repo     *Repository
	products *products.Repository
	dbClient *db.Client
}

// NewService constructs a category service instance.
func NewService(repo *Repository, productsRepo *products.Repository, dbClient *db.Client) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "category repository is required")
	}
	if productsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "products repository is required")
	}
	if dbClient == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "db client is required")
	}
	return &service{repo: repo, products: productsRepo, dbClient: dbClient}, nil
}

// List returns every category ordered by name.
func (s *service) List(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}

	dtos := make([]CategoryDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *NewCategoryDTO(&rows[i]))
	}
	return dtos, nil
}

// Get fetches a single category by id.
func (s *service) Get(ctx context.Context, categoryID uuid.UUID) (*CategoryDTO, error) {
	category, err := s.findCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	return NewCategoryDTO(category), nil
}

// Create inserts a new category. Names are unique; a duplicate is a conflict.
func (s *service) Create(ctx context.Context, input CreateCategoryInput) (*CategoryDTO, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}

	category := &models.Category{
		Name:        input.Name,
		Description: input.Description,
	}
	if _, err := s.repo.Create(ctx, category); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "category name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert category")
	}
	return NewCategoryDTO(category), nil
}

// Update mutates a category. A rename rewrites every referencing product row
// and recomputes both the old and new counts in the same transaction.
func (s *service) Update(ctx context.Context, categoryID uuid.UUID, input UpdateCategoryInput) (*CategoryDTO, error) {
	if input.Name != nil {
		*input.Name = strings.TrimSpace(*input.Name)
		if *input.Name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be blank")
		}
	}

	category, err := s.findCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	previousName := category.Name
	if input.Name != nil {
		category.Name = *input.Name
	}
	if input.Description != nil {
		category.Description = input.Description
	}
	renamed := category.Name != previousName

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		if _, err := txRepo.Update(ctx, category); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "category name already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update category")
		}

		if renamed {
			txProducts := s.products.WithTx(tx)
			if err := txProducts.RenameCategory(ctx, previousName, category.Name); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: rename category products")
			}
			if err := txProducts.RecountCategories(ctx, previousName, category.Name); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: recount categories")
			}
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update category")
	}

	updated, err := s.repo.FindByID(ctx, categoryID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	return NewCategoryDTO(updated), nil
}

// Delete removes a category. Any referencing product, active or not, blocks
// the delete.
func (s *service) Delete(ctx context.Context, categoryID uuid.UUID) error {
	category, err := s.findCategory(ctx, categoryID)
	if err != nil {
		return err
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		count, err := s.products.WithTx(tx).CountInCategory(ctx, category.Name)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count category products")
		}
		if count > 0 {
			return pkgerrors.Newf(pkgerrors.CodeConflict, "category %q still has %d products", category.Name, count)
		}
		if err := s.repo.WithTx(tx).Delete(ctx, category.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete category")
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete category")
	}
	return nil
}

func (s *service) findCategory(ctx context.Context, categoryID uuid.UUID) (*models.Category, error) {
	category, err := s.repo.FindByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	return category, nil
}
