package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/loomline/storefront-backend/api/middleware"
	authsvc "github.com/loomline/storefront-backend/internal/auth"
	usersvc "github.com/loomline/storefront-backend/internal/users"
	"github.com/loomline/storefront-backend/pkg/config"
	"github.com/loomline/storefront-backend/pkg/enums"
	pkgerrors "github.com/loomline/storefront-backend/pkg/errors"
)

var testSessionCfg = config.SessionConfig{
	CookieName:   "loomline_session",
	TTL:          time.Hour,
	CookieSecure: false,
}

type stubAuthService struct {
	result       *authsvc.AuthResult
	token        *authsvc.TokenResult
	user         *usersvc.UserDTO
	loginSession string
	loggedOutID  string
	err          error
}

func (s *stubAuthService) Register(ctx context.Context, currentSessionID string, req authsvc.RegisterRequest) (*authsvc.AuthResult, error) {
	s.loginSession = currentSessionID
	return s.result, s.err
}

func (s *stubAuthService) Login(ctx context.Context, currentSessionID string, req authsvc.LoginRequest) (*authsvc.AuthResult, error) {
	s.loginSession = currentSessionID
	return s.result, s.err
}

func (s *stubAuthService) Logout(ctx context.Context, sessionID string) error {
	s.loggedOutID = sessionID
	return s.err
}

func (s *stubAuthService) Me(ctx context.Context, userID uuid.UUID) (*usersvc.UserDTO, error) {
	return s.user, s.err
}

func (s *stubAuthService) MintToken(ctx context.Context, sessionID string, userID uuid.UUID, role enums.UserRole) (*authsvc.TokenResult, error) {
	return s.token, s.err
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == testSessionCfg.CookieName {
			return cookie
		}
	}
	return nil
}

func TestLogin(t *testing.T) {
	logg := testLogger()

	t.Run("missing password", func(t *testing.T) {
		stub := &stubAuthService{}
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"kai@loomline.dev"}`))
		rec := httptest.NewRecorder()
		Login(stub, testSessionCfg, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("bad credentials stay opaque", func(t *testing.T) {
		stub := &stubAuthService{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")}
		body := `{"email":"kai@loomline.dev","password":"wrong-password"}`
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
		rec := httptest.NewRecorder()
		Login(stub, testSessionCfg, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		if cookie := sessionCookie(rec); cookie != nil {
			t.Fatalf("no session cookie may be set on failed login")
		}
	})

	t.Run("success sets rotated cookie", func(t *testing.T) {
		stub := &stubAuthService{result: &authsvc.AuthResult{
			SessionID: "sess_rotated",
			User:      &usersvc.UserDTO{ID: uuid.New(), Email: "kai@loomline.dev"},
		}}
		body := `{"email":"kai@loomline.dev","password":"correct-horse"}`
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
		req = req.WithContext(middleware.WithSession(req.Context(), "sess_anon", nil))
		rec := httptest.NewRecorder()
		Login(stub, testSessionCfg, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if stub.loginSession != "sess_anon" {
			t.Fatalf("expected current session id forwarded, got %q", stub.loginSession)
		}
		cookie := sessionCookie(rec)
		if cookie == nil || cookie.Value != "sess_rotated" {
			t.Fatalf("expected rotated session cookie, got %+v", cookie)
		}
		if !cookie.HttpOnly {
			t.Fatalf("session cookie must be http-only")
		}
		if strings.Contains(rec.Body.String(), "sess_rotated") {
			t.Fatalf("session id must not leak into the body")
		}
	})
}

func TestRegister(t *testing.T) {
	logg := testLogger()
	stub := &stubAuthService{result: &authsvc.AuthResult{
		SessionID: "sess_new",
		User:      &usersvc.UserDTO{ID: uuid.New(), Email: "mara@loomline.dev"},
	}}

	body := `{"email":"mara@loomline.dev","password":"weaving-rooms","first_name":"Mara","last_name":"Voss"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	Register(stub, testSessionCfg, logg).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if cookie := sessionCookie(rec); cookie == nil || cookie.Value != "sess_new" {
		t.Fatalf("expected session cookie on register, got %+v", cookie)
	}
}

func TestLogout(t *testing.T) {
	logg := testLogger()

	t.Run("destroys session and expires cookie", func(t *testing.T) {
		stub := &stubAuthService{}
		req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
		req = req.WithContext(middleware.WithSession(req.Context(), "sess_live", nil))
		rec := httptest.NewRecorder()
		Logout(stub, testSessionCfg, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if stub.loggedOutID != "sess_live" {
			t.Fatalf("expected Logout with live session id, got %q", stub.loggedOutID)
		}
		cookie := sessionCookie(rec)
		if cookie == nil || cookie.MaxAge >= 0 {
			t.Fatalf("expected expired cookie, got %+v", cookie)
		}
	})

	t.Run("without session still succeeds", func(t *testing.T) {
		stub := &stubAuthService{}
		req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
		rec := httptest.NewRecorder()
		Logout(stub, testSessionCfg, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if stub.loggedOutID != "" {
			t.Fatalf("service must not be called without a session")
		}
	})
}

func TestMe(t *testing.T) {
	logg := testLogger()
	userID := uuid.New()

	t.Run("requires user context", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		rec := httptest.NewRecorder()
		Me(&stubAuthService{}, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		stub := &stubAuthService{user: &usersvc.UserDTO{ID: userID, Email: "kai@loomline.dev"}}
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
		rec := httptest.NewRecorder()
		Me(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})
}

func TestMintToken(t *testing.T) {
	logg := testLogger()
	userID := uuid.New()

	t.Run("requires session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/token", nil)
		req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
		rec := httptest.NewRecorder()
		MintToken(&stubAuthService{}, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 without session, got %d", rec.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		stub := &stubAuthService{token: &authsvc.TokenResult{
			AccessToken: "jwt-value",
			TokenType:   "Bearer",
			ExpiresAt:   time.Now().Add(time.Hour),
		}}
		ctx := middleware.WithSession(context.Background(), "sess_live", nil)
		ctx = middleware.WithUserID(ctx, userID.String())
		ctx = middleware.WithRole(ctx, string(enums.UserRoleCustomer))
		req := httptest.NewRequest(http.MethodPost, "/api/auth/token", nil).WithContext(ctx)
		rec := httptest.NewRecorder()
		MintToken(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Bearer") {
			t.Fatalf("expected token payload, got %s", rec.Body.String())
		}
	})
}
