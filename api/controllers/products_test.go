package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	productsvc "github.com/loomline/storefront-backend/internal/products"
	"github.com/loomline/storefront-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "controllers-test", Output: io.Discard})
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

type stubProductService struct {
	created     *productsvc.CreateProductInput
	listInput   *productsvc.ListProductsInput
	deletedID   uuid.UUID
	listResult  *productsvc.ListResult
	productDTO  *productsvc.ProductDTO
	returnedErr error
}

func (s *stubProductService) Create(ctx context.Context, input productsvc.CreateProductInput) (*productsvc.ProductDTO, error) {
	s.created = &input
	return s.productDTO, s.returnedErr
}

func (s *stubProductService) Update(ctx context.Context, productID uuid.UUID, input productsvc.UpdateProductInput) (*productsvc.ProductDTO, error) {
	return s.productDTO, s.returnedErr
}

func (s *stubProductService) Delete(ctx context.Context, productID uuid.UUID) error {
	s.deletedID = productID
	return s.returnedErr
}

func (s *stubProductService) Get(ctx context.Context, productID uuid.UUID) (*productsvc.ProductDTO, error) {
	return s.productDTO, s.returnedErr
}

func (s *stubProductService) List(ctx context.Context, input productsvc.ListProductsInput) (*productsvc.ListResult, error) {
	s.listInput = &input
	return s.listResult, s.returnedErr
}

func (s *stubProductService) Featured(ctx context.Context, limit int) ([]productsvc.ProductDTO, error) {
	if s.listResult == nil {
		return nil, s.returnedErr
	}
	return s.listResult.Products, s.returnedErr
}

func TestListProductsPassesFilters(t *testing.T) {
	logg := testLogger()
	stub := &stubProductService{listResult: &productsvc.ListResult{Products: []productsvc.ProductDTO{}}}

	req := httptest.NewRequest(http.MethodGet, "/api/products?category=denim&q=indigo&featured=true&limit=5", nil)
	rec := httptest.NewRecorder()
	ListProducts(stub, logg).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if stub.listInput == nil {
		t.Fatalf("expected List to be invoked")
	}
	if stub.listInput.Filters.Category != "denim" || stub.listInput.Filters.Query != "indigo" {
		t.Fatalf("unexpected filters: %+v", stub.listInput.Filters)
	}
	if stub.listInput.Filters.Featured == nil || !*stub.listInput.Filters.Featured {
		t.Fatalf("expected featured filter true")
	}
	if stub.listInput.IncludeInactive {
		t.Fatalf("public listing must not include inactive products")
	}
	if stub.listInput.Pagination.Limit != 5 {
		t.Fatalf("expected limit 5, got %d", stub.listInput.Pagination.Limit)
	}
}

func TestAdminListProductsIncludesInactive(t *testing.T) {
	logg := testLogger()
	stub := &stubProductService{listResult: &productsvc.ListResult{}}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/products", nil)
	rec := httptest.NewRecorder()
	AdminListProducts(stub, logg).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if stub.listInput == nil || !stub.listInput.IncludeInactive {
		t.Fatalf("expected IncludeInactive for admin listing")
	}
}

func TestListProductsRejectsBadLimit(t *testing.T) {
	logg := testLogger()
	stub := &stubProductService{}

	req := httptest.NewRequest(http.MethodGet, "/api/products?limit=nope", nil)
	rec := httptest.NewRecorder()
	ListProducts(stub, logg).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid limit, got %d", rec.Code)
	}
}

func TestAdminCreateProduct(t *testing.T) {
	logg := testLogger()

	t.Run("validation failure", func(t *testing.T) {
		stub := &stubProductService{}
		req := httptest.NewRequest(http.MethodPost, "/api/admin/products", strings.NewReader(`{"name":"Slub Denim"}`))
		rec := httptest.NewRecorder()
		AdminCreateProduct(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 without sku, got %d", rec.Code)
		}
		if stub.created != nil {
			t.Fatalf("service must not be called on invalid payload")
		}
	})

	t.Run("success", func(t *testing.T) {
		dto := &productsvc.ProductDTO{ID: uuid.New(), SKU: "DNM-014", Name: "Slub Denim"}
		stub := &stubProductService{productDTO: dto}
		body := `{"sku":"DNM-014","name":"Slub Denim","category":"denim","price_cents":1850,"stock":120}`
		req := httptest.NewRequest(http.MethodPost, "/api/admin/products", strings.NewReader(body))
		rec := httptest.NewRecorder()
		AdminCreateProduct(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rec.Code)
		}
		if stub.created == nil {
			t.Fatalf("expected Create to be invoked")
		}
		if stub.created.PriceCents != 1850 || stub.created.Stock != 120 {
			t.Fatalf("unexpected input: %+v", stub.created)
		}

		var envelope struct {
			Data productsvc.ProductDTO `json:"data"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if envelope.Data.SKU != "DNM-014" {
			t.Fatalf("unexpected body: %+v", envelope.Data)
		}
	})
}

func TestAdminDeleteProduct(t *testing.T) {
	logg := testLogger()
	productID := uuid.New()

	t.Run("invalid id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/admin/products/not-a-uuid", nil)
		req = withURLParam(req, "productId", "not-a-uuid")
		rec := httptest.NewRecorder()
		AdminDeleteProduct(&stubProductService{}, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for invalid id, got %d", rec.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		stub := &stubProductService{}
		req := httptest.NewRequest(http.MethodDelete, "/api/admin/products/"+productID.String(), nil)
		req = withURLParam(req, "productId", productID.String())
		rec := httptest.NewRecorder()
		AdminDeleteProduct(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 on success, got %d", rec.Code)
		}
		if stub.deletedID != productID {
			t.Fatalf("expected Delete with %s, got %s", productID, stub.deletedID)
		}
	})
}
