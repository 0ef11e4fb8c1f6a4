package categories

import (
	"time"

	"github.com/google/uuid"

	"github.com/loomline/storefront-backend/pkg/db/models"
)

// CategoryDTO represents the category payload returned to clients.
type CategoryDTO struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Description  *string   `json:"description,omitempty"`
	ProductCount int       `json:"product_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewCategoryDTO builds a DTO from the persisted model.
func NewCategoryDTO(category *models.Category) *CategoryDTO {
	return &CategoryDTO{
		ID:           category.ID,
		Name:         category.Name,
		Description:  category.Description,
		ProductCount: category.ProductCount,
		CreatedAt:    category.CreatedAt,
		UpdatedAt:    category.UpdatedAt,
	}
}

// CreateCategoryInput holds the validated payload to create a category.
type CreateCategoryInput struct {
	Name        string
	Description *string
}

// UpdateCategoryInput holds optional mutation values for a category. Nil
// fields are left untouched.
type UpdateCategoryInput struct {
	Name        *string
	Description *string
}
