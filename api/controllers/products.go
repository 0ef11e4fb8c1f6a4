package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/loomline/storefront-backend/api/responses"
	"github.com/loomline/storefront-backend/api/validators"
	productsvc "github.com/loomline/storefront-backend/internal/products"
	pkgerrors "github.com/loomline/storefront-backend/pkg/errors"
	"github.com/loomline/storefront-backend/pkg/logger"
)

const (
	defaultFeaturedLimit = 8
	maxFeaturedLimit     = 24
)

// ListProducts serves the public catalog listing. Inactive products never
// appear here regardless of filters.
func ListProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		input, err := listProductsInputFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// AdminListProducts is the back office listing and includes inactive rows.
func AdminListProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		input, err := listProductsInputFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.IncludeInactive = true

		list, err := svc.List(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

func listProductsInputFromQuery(r *http.Request) (productsvc.ListProductsInput, error) {
	params, err := parsePageParams(r)
	if err != nil {
		return productsvc.ListProductsInput{}, err
	}
	featured, err := validators.ParseQueryBool(r, "featured")
	if err != nil {
		return productsvc.ListProductsInput{}, err
	}

	return productsvc.ListProductsInput{
		Filters: productsvc.ListFilters{
			Category: strings.TrimSpace(r.URL.Query().Get("category")),
			Query:    strings.TrimSpace(r.URL.Query().Get("q")),
			Featured: featured,
		},
		Pagination: params,
	}, nil
}

func GetProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		productID, err := parseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Get(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// FeaturedProducts serves the storefront home ribbon.
func FeaturedProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", defaultFeaturedLimit, 1, maxFeaturedLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		products, err := svc.Featured(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"products": products})
	}
}

// AdminCreateProduct handles catalog creation from the back office.
func AdminCreateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toCreateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

func AdminUpdateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		productID, err := parseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toUpdateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Update(r.Context(), productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// AdminDeleteProduct soft-deletes so historical order lines keep their
// product references.
func AdminDeleteProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		productID, err := parseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

type createProductRequest struct {
	SKU          string           `json:"sku" validate:"required"`
	Name         string           `json:"name" validate:"required"`
	Description  *string          `json:"description,omitempty"`
	Category     string           `json:"category" validate:"required"`
	PriceCents   int64            `json:"price_cents" validate:"required,min=1"`
	Stock        int              `json:"stock" validate:"min=0"`
	ImageURL     *string          `json:"image_url,omitempty" validate:"omitempty,url"`
	Material     *string          `json:"material,omitempty"`
	WidthCM      *decimal.Decimal `json:"width_cm,omitempty"`
	WeightGSM    *decimal.Decimal `json:"weight_gsm,omitempty"`
	ColorWays    []string         `json:"color_ways,omitempty"`
	MediaFileIDs []string         `json:"media_file_ids,omitempty"`
	IsActive     *bool            `json:"is_active,omitempty"`
	IsFeatured   *bool            `json:"is_featured,omitempty"`
}

func (r createProductRequest) toCreateInput() (productsvc.CreateProductInput, error) {
	mediaIDs, err := parseUUIDList(r.MediaFileIDs)
	if err != nil {
		return productsvc.CreateProductInput{}, err
	}

	isFeatured := false
	if r.IsFeatured != nil {
		isFeatured = *r.IsFeatured
	}

	return productsvc.CreateProductInput{
		SKU:          strings.TrimSpace(r.SKU),
		Name:         strings.TrimSpace(r.Name),
		Description:  r.Description,
		Category:     strings.TrimSpace(r.Category),
		PriceCents:   r.PriceCents,
		Stock:        r.Stock,
		ImageURL:     r.ImageURL,
		Material:     r.Material,
		WidthCM:      r.WidthCM,
		WeightGSM:    r.WeightGSM,
		ColorWays:    trimStrings(r.ColorWays),
		MediaFileIDs: mediaIDs,
		IsActive:     r.IsActive,
		IsFeatured:   isFeatured,
	}, nil
}

type updateProductRequest struct {
	SKU          *string          `json:"sku,omitempty"`
	Name         *string          `json:"name,omitempty"`
	Description  *string          `json:"description,omitempty"`
	Category     *string          `json:"category,omitempty"`
	PriceCents   *int64           `json:"price_cents,omitempty" validate:"omitempty,min=1"`
	Stock        *int             `json:"stock,omitempty" validate:"omitempty,min=0"`
	ImageURL     *string          `json:"image_url,omitempty" validate:"omitempty,url"`
	Material     *string          `json:"material,omitempty"`
	WidthCM      *decimal.Decimal `json:"width_cm,omitempty"`
	WeightGSM    *decimal.Decimal `json:"weight_gsm,omitempty"`
	ColorWays    *[]string        `json:"color_ways,omitempty"`
	MediaFileIDs *[]string        `json:"media_file_ids,omitempty"`
	IsActive     *bool            `json:"is_active,omitempty"`
	IsFeatured   *bool            `json:"is_featured,omitempty"`
}

func (r updateProductRequest) toUpdateInput() (productsvc.UpdateProductInput, error) {
	input := productsvc.UpdateProductInput{
		SKU:         trimPtr(r.SKU),
		Name:        trimPtr(r.Name),
		Description: r.Description,
		Category:    trimPtr(r.Category),
		PriceCents:  r.PriceCents,
		Stock:       r.Stock,
		ImageURL:    r.ImageURL,
		Material:    r.Material,
		WidthCM:     r.WidthCM,
		WeightGSM:   r.WeightGSM,
		IsActive:    r.IsActive,
		IsFeatured:  r.IsFeatured,
	}

	if r.ColorWays != nil {
		ways := trimStrings(*r.ColorWays)
		input.ColorWays = &ways
	}
	if r.MediaFileIDs != nil {
		ids, err := parseUUIDList(*r.MediaFileIDs)
		if err != nil {
			return productsvc.UpdateProductInput{}, err
		}
		input.MediaFileIDs = &ids
	}

	return input, nil
}

func parseUUIDList(values []string) ([]uuid.UUID, error) {
	result := make([]uuid.UUID, 0, len(values))
	for _, raw := range values {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		parsed, err := uuid.Parse(trimmed)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid media file id")
		}
		result = append(result, parsed)
	}
	return result, nil
}

func trimStrings(values []string) []string {
	result := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func trimPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}
