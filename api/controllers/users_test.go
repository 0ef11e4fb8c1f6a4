package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	usersvc "github.com/loomline/storefront-backend/internal/users"
	"github.com/loomline/storefront-backend/pkg/enums"
)

type stubUserService struct {
	user      *usersvc.UserDTO
	list      *usersvc.ListResult
	setActive *bool
	setRole   *enums.UserRole
	err       error
}

func (s *stubUserService) List(ctx context.Context, input usersvc.ListUsersInput) (*usersvc.ListResult, error) {
	return s.list, s.err
}

func (s *stubUserService) Get(ctx context.Context, id uuid.UUID) (*usersvc.UserDTO, error) {
	return s.user, s.err
}

func (s *stubUserService) SetActive(ctx context.Context, id uuid.UUID, active bool) (*usersvc.UserDTO, error) {
	s.setActive = &active
	return s.user, s.err
}

func (s *stubUserService) SetRole(ctx context.Context, id uuid.UUID, role enums.UserRole) (*usersvc.UserDTO, error) {
	s.setRole = &role
	return s.user, s.err
}

func TestAdminSetUserActive(t *testing.T) {
	logg := testLogger()
	userID := uuid.New()

	t.Run("missing flag", func(t *testing.T) {
		stub := &stubUserService{}
		req := httptest.NewRequest(http.MethodPatch, "/api/users/x/active", strings.NewReader(`{}`))
		req = withURLParam(req, "userId", userID.String())
		rec := httptest.NewRecorder()
		AdminSetUserActive(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 without is_active, got %d", rec.Code)
		}
	})

	t.Run("deactivate", func(t *testing.T) {
		stub := &stubUserService{user: &usersvc.UserDTO{ID: userID, IsActive: false}}
		req := httptest.NewRequest(http.MethodPatch, "/api/users/x/active", strings.NewReader(`{"is_active":false}`))
		req = withURLParam(req, "userId", userID.String())
		rec := httptest.NewRecorder()
		AdminSetUserActive(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if stub.setActive == nil || *stub.setActive {
			t.Fatalf("expected SetActive(false), got %+v", stub.setActive)
		}
	})
}

func TestAdminSetUserRole(t *testing.T) {
	logg := testLogger()
	userID := uuid.New()

	t.Run("unknown role", func(t *testing.T) {
		stub := &stubUserService{}
		req := httptest.NewRequest(http.MethodPatch, "/api/users/x/role", strings.NewReader(`{"role":"overlord"}`))
		req = withURLParam(req, "userId", userID.String())
		rec := httptest.NewRecorder()
		AdminSetUserRole(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for unknown role, got %d", rec.Code)
		}
	})

	t.Run("promote to admin", func(t *testing.T) {
		stub := &stubUserService{user: &usersvc.UserDTO{ID: userID, Role: enums.UserRoleAdmin}}
		req := httptest.NewRequest(http.MethodPatch, "/api/users/x/role", strings.NewReader(`{"role":"admin"}`))
		req = withURLParam(req, "userId", userID.String())
		rec := httptest.NewRecorder()
		AdminSetUserRole(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if stub.setRole == nil || *stub.setRole != enums.UserRoleAdmin {
			t.Fatalf("expected SetRole(admin), got %+v", stub.setRole)
		}
	})
}
