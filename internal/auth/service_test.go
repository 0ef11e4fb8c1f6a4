package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/loomline/storefront-backend/internal/users"
	pkgAuth "github.com/loomline/storefront-backend/pkg/auth"
	"github.com/loomline/storefront-backend/pkg/auth/session"
	"github.com/loomline/storefront-backend/pkg/config"
	"github.com/loomline/storefront-backend/pkg/db/models"
	"github.com/loomline/storefront-backend/pkg/enums"
	pkgerrors "github.com/loomline/storefront-backend/pkg/errors"
	"github.com/loomline/storefront-backend/pkg/security"
)

// sqliteUUIDDefault mimics gen_random_uuid() closely enough that ids
// written by the column default round-trip through google/uuid bindings.
const sqliteUUIDDefault = `(lower(hex(randomblob(4))) || '-' || lower(hex(randomblob(2))) || '-' ||
 lower(hex(randomblob(2))) || '-' || lower(hex(randomblob(2))) || '-' || lower(hex(randomblob(6))))`

func setupAuthTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:auth_" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	stmt := `CREATE TABLE users (
  id TEXT PRIMARY KEY DEFAULT ` + sqliteUUIDDefault + `,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'customer',
  is_active BOOLEAN NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	if err := gdb.Exec(stmt).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return gdb
}

type stubSessionManager struct {
	issued      int
	lastCurrent string
	lastUserID  uuid.UUID
	lastRole    enums.UserRole
	destroyed   []string
	authErr     error
}

func (s *stubSessionManager) Authenticate(ctx context.Context, currentID string, userID uuid.UUID, role enums.UserRole) (string, *session.Record, error) {
	if s.authErr != nil {
		return "", nil, s.authErr
	}
	s.issued++
	s.lastCurrent = currentID
	s.lastUserID = userID
	s.lastRole = role
	record := &session.Record{
		CartID:   uuid.New(),
		UserID:   &userID,
		Role:     &role,
		IssuedAt: time.Now().UTC(),
	}
	return fmt.Sprintf("sess-%d", s.issued), record, nil
}

func (s *stubSessionManager) Destroy(ctx context.Context, sessionID string) error {
	s.destroyed = append(s.destroyed, sessionID)
	return nil
}

type stubLimiter struct {
	counts map[string]int64
	err    error
}

func (s *stubLimiter) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	if s.err != nil {
		return false, 0, s.err
	}
	if s.counts == nil {
		s.counts = map[string]int64{}
	}
	s.counts[scope]++
	return s.counts[scope] <= limit, s.counts[scope], nil
}

type authTestSetup struct {
	service  Service
	sessions *stubSessionManager
	limiter  *stubLimiter
	gdb      *gorm.DB
	jwtCfg   config.JWTConfig
}

func newAuthTestSetup(t *testing.T) *authTestSetup {
	t.Helper()

	gdb := setupAuthTestDB(t)
	sessions := &stubSessionManager{}
	limiter := &stubLimiter{}
	jwtCfg := config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "loomline",
		ExpirationMinutes: 15,
	}
	svc, err := NewService(ServiceParams{
		UserRepo:       users.NewRepository(gdb),
		SessionManager: sessions,
		Limiter:        limiter,
		PasswordConfig: config.PasswordConfig{},
		JWTConfig:      jwtCfg,
		RateLimits: config.AuthRateLimitConfig{
			LoginWindow:        time.Minute,
			LoginEmailLimit:    5,
			RegisterWindow:     5 * time.Minute,
			RegisterEmailLimit: 3,
		},
	})
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	return &authTestSetup{
		service:  svc,
		sessions: sessions,
		limiter:  limiter,
		gdb:      gdb,
		jwtCfg:   jwtCfg,
	}
}

func seedAccount(t *testing.T, gdb *gorm.DB, email, password string, mutate func(*models.User)) *models.User {
	t.Helper()

	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	row := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Casey",
		LastName:     "Weaver",
		Role:         enums.UserRoleCustomer,
		IsActive:     true,
	}
	if mutate != nil {
		mutate(row)
	}
	if err := gdb.Create(row).Error; err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return row
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	pkgErr := pkgerrors.As(err)
	if pkgErr == nil {
		t.Fatalf("expected *errors.Error, got %T: %v", err, err)
	}
	if pkgErr.Code() != code {
		t.Fatalf("expected code %s, got %s (%v)", code, pkgErr.Code(), err)
	}
}

func TestServiceRegisterCreatesAndLogsIn(t *testing.T) {
	setup := newAuthTestSetup(t)
	ctx := context.Background()

	res, err := setup.service.Register(ctx, "anon-session", RegisterRequest{
		Email:     "  New@Example.COM ",
		Password:  "correct-staple",
		FirstName: " Ada ",
		LastName:  "Lovelace",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if res.SessionID != "sess-1" {
		t.Fatalf("expected rotated session id, got %q", res.SessionID)
	}
	if setup.sessions.lastCurrent != "anon-session" {
		t.Fatalf("expected anonymous session to be rotated, got %q", setup.sessions.lastCurrent)
	}
	if setup.sessions.lastRole != enums.UserRoleCustomer {
		t.Fatalf("expected customer role in session, got %s", setup.sessions.lastRole)
	}
	if res.User == nil || res.User.Email != "new@example.com" {
		t.Fatalf("expected normalized email on result, got %+v", res.User)
	}
	if res.User.FirstName != "Ada" {
		t.Fatalf("expected trimmed first name, got %q", res.User.FirstName)
	}
	if res.User.Role != enums.UserRoleCustomer {
		t.Fatalf("expected customer role, got %s", res.User.Role)
	}

	var stored models.User
	if err := setup.gdb.Where("email = ?", "new@example.com").First(&stored).Error; err != nil {
		t.Fatalf("load stored user: %v", err)
	}
	if stored.PasswordHash == "correct-staple" {
		t.Fatalf("password stored in clear")
	}
	ok, err := security.VerifyPassword("correct-staple", stored.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("stored hash does not verify: ok=%v err=%v", ok, err)
	}
}

func TestServiceRegisterValidation(t *testing.T) {
	setup := newAuthTestSetup(t)
	ctx := context.Background()

	_, err := setup.service.Register(ctx, "", RegisterRequest{
		Email:     "not-an-email",
		Password:  "short",
		FirstName: "  ",
		LastName:  "",
	})
	requireCode(t, err, pkgerrors.CodeValidation)

	details, ok := pkgerrors.As(err).Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details map, got %T", pkgerrors.As(err).Details())
	}
	for _, field := range []string{"email", "password", "first_name", "last_name"} {
		if details[field] == "" {
			t.Fatalf("expected a problem for %s, got %v", field, details)
		}
	}
	if details["email"] != "must be a valid email address" {
		t.Fatalf("unexpected email problem: %q", details["email"])
	}
	if !strings.Contains(details["password"], "at least 8") {
		t.Fatalf("unexpected password problem: %q", details["password"])
	}

	var count int64
	if err := setup.gdb.Model(&models.User{}).Count(&count).Error; err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no users written, got %d", count)
	}
	if setup.sessions.issued != 0 {
		t.Fatalf("expected no session issued, got %d", setup.sessions.issued)
	}
}

func TestServiceRegisterDuplicateEmail(t *testing.T) {
	setup := newAuthTestSetup(t)
	ctx := context.Background()

	seedAccount(t, setup.gdb, "taken@example.com", "first-password", nil)

	_, err := setup.service.Register(ctx, "", RegisterRequest{
		Email:     "Taken@Example.com",
		Password:  "second-password",
		FirstName: "Robin",
		LastName:  "Dyer",
	})
	requireCode(t, err, pkgerrors.CodeConflict)

	var count int64
	if err := setup.gdb.Model(&models.User{}).Count(&count).Error; err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected single user row, got %d", count)
	}
}

func TestServiceRegisterRateLimited(t *testing.T) {
	setup := newAuthTestSetup(t)
	ctx := context.Background()

	req := RegisterRequest{
		Email:     "burst@example.com",
		Password:  "long-enough-pass",
		FirstName: "Morgan",
		LastName:  "Hale",
	}

	if _, err := setup.service.Register(ctx, "", req); err != nil {
		t.Fatalf("first register: %v", err)
	}
	for i := 0; i < 2; i++ {
		_, err := setup.service.Register(ctx, "", req)
		requireCode(t, err, pkgerrors.CodeConflict)
	}

	_, err := setup.service.Register(ctx, "", req)
	requireCode(t, err, pkgerrors.CodeRateLimit)
	if got := setup.limiter.counts["register:email:burst@example.com"]; got != 4 {
		t.Fatalf("expected 4 counted attempts, got %d", got)
	}

	// Another address is unaffected by the exhausted window.
	fresh := req
	fresh.Email = "fresh@example.com"
	if _, err := setup.service.Register(ctx, "", fresh); err != nil {
		t.Fatalf("register with fresh email: %v", err)
	}
}

func TestServiceLoginHappyPath(t *testing.T) {
	setup := newAuthTestSetup(t)
	ctx := context.Background()

	user := seedAccount(t, setup.gdb, "casey@example.com", "correct-staple", nil)

	res, err := setup.service.Login(ctx, "browse-session", LoginRequest{
		Email:    " CASEY@Example.com ",
		Password: "correct-staple",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if res.SessionID != "sess-1" {
		t.Fatalf("expected rotated session id, got %q", res.SessionID)
	}
	if setup.sessions.lastCurrent != "browse-session" {
		t.Fatalf("expected browsing session handed to rotation, got %q", setup.sessions.lastCurrent)
	}
	if setup.sessions.lastUserID != user.ID {
		t.Fatalf("expected session bound to %s, got %s", user.ID, setup.sessions.lastUserID)
	}
	if res.User.LastLoginAt == nil {
		t.Fatalf("expected last login stamped on result")
	}
	if got := setup.limiter.counts["login:email:casey@example.com"]; got != 1 {
		t.Fatalf("expected normalized limiter scope, got %v", setup.limiter.counts)
	}

	var stored models.User
	if err := setup.gdb.First(&stored, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if stored.LastLoginAt == nil {
		t.Fatalf("expected last_login_at persisted")
	}
}

func TestServiceLoginUniformUnauthorized(t *testing.T) {
	setup := newAuthTestSetup(t)
	ctx := context.Background()

	seedAccount(t, setup.gdb, "known@example.com", "correct-staple", nil)
	seedAccount(t, setup.gdb, "dormant@example.com", "correct-staple", func(u *models.User) {
		u.IsActive = false
	})

	attempts := []LoginRequest{
		{Email: "ghost@example.com", Password: "whatever"},
		{Email: "known@example.com", Password: "wrong-password"},
		{Email: "dormant@example.com", Password: "correct-staple"},
	}
	for _, attempt := range attempts {
		_, err := setup.service.Login(ctx, "", attempt)
		requireCode(t, err, pkgerrors.CodeUnauthorized)
		if msg := pkgerrors.As(err).Message(); msg != invalidCredentialsMessage {
			t.Fatalf("expected uniform message for %s, got %q", attempt.Email, msg)
		}
	}
	if setup.sessions.issued != 0 {
		t.Fatalf("expected no sessions issued, got %d", setup.sessions.issued)
	}
}

func TestServiceLoginRateLimited(t *testing.T) {
	setup := newAuthTestSetup(t)
	ctx := context.Background()

	seedAccount(t, setup.gdb, "target@example.com", "correct-staple", nil)

	for i := 0; i < 5; i++ {
		_, err := setup.service.Login(ctx, "", LoginRequest{
			Email:    "target@example.com",
			Password: "wrong-password",
		})
		requireCode(t, err, pkgerrors.CodeUnauthorized)
	}

	// Window exhausted: even the right password is refused now.
	_, err := setup.service.Login(ctx, "", LoginRequest{
		Email:    "target@example.com",
		Password: "correct-staple",
	})
	requireCode(t, err, pkgerrors.CodeRateLimit)

	// A different address still gets through.
	seedAccount(t, setup.gdb, "other@example.com", "correct-staple", nil)
	if _, err := setup.service.Login(ctx, "", LoginRequest{
		Email:    "other@example.com",
		Password: "correct-staple",
	}); err != nil {
		t.Fatalf("login with other email: %v", err)
	}
}

func TestServiceLoginLimiterOutage(t *testing.T) {
	setup := newAuthTestSetup(t)
	ctx := context.Background()

	seedAccount(t, setup.gdb, "casey@example.com", "correct-staple", nil)
	setup.limiter.err = errors.New("redis down")

	_, err := setup.service.Login(ctx, "", LoginRequest{
		Email:    "casey@example.com",
		Password: "correct-staple",
	})
	requireCode(t, err, pkgerrors.CodeDependency)
}

func TestServiceLoginSessionFailure(t *testing.T) {
	setup := newAuthTestSetup(t)
	ctx := context.Background()

	seedAccount(t, setup.gdb, "casey@example.com", "correct-staple", nil)
	setup.sessions.authErr = errors.New("redis gone")

	_, err := setup.service.Login(ctx, "", LoginRequest{
		Email:    "casey@example.com",
		Password: "correct-staple",
	})
	requireCode(t, err, pkgerrors.CodeInternal)
}

func TestServiceLoginUpgradesWeakHash(t *testing.T) {
	gdb := setupAuthTestDB(t)
	sessions := &stubSessionManager{}
	svc, err := NewService(ServiceParams{
		UserRepo:       users.NewRepository(gdb),
		SessionManager: sessions,
		Limiter:        &stubLimiter{},
		PasswordConfig: config.PasswordConfig{ArgonMemoryKB: 16},
		JWTConfig:      config.JWTConfig{Secret: "test-secret", Issuer: "loomline", ExpirationMinutes: 15},
		RateLimits:     config.AuthRateLimitConfig{LoginWindow: time.Minute, LoginEmailLimit: 5},
	})
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	ctx := context.Background()

	// seedAccount hashes with the minimum parameters, weaker than the
	// service's configured memory cost.
	user := seedAccount(t, gdb, "casey@example.com", "correct-staple", nil)
	if !strings.Contains(user.PasswordHash, "m=8,") {
		t.Fatalf("expected weak seed hash, got %q", user.PasswordHash)
	}

	if _, err := svc.Login(ctx, "", LoginRequest{
		Email:    "casey@example.com",
		Password: "correct-staple",
	}); err != nil {
		t.Fatalf("login: %v", err)
	}

	var stored models.User
	if err := gdb.First(&stored, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if !strings.Contains(stored.PasswordHash, "m=16,") {
		t.Fatalf("expected upgraded hash, got %q", stored.PasswordHash)
	}
	ok, err := security.VerifyPassword("correct-staple", stored.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("upgraded hash does not verify: ok=%v err=%v", ok, err)
	}

	// The upgraded hash still logs in.
	if _, err := svc.Login(ctx, "", LoginRequest{
		Email:    "casey@example.com",
		Password: "correct-staple",
	}); err != nil {
		t.Fatalf("second login: %v", err)
	}
}

func TestServiceLogout(t *testing.T) {
	setup := newAuthTestSetup(t)

	if err := setup.service.Logout(context.Background(), "sess-live"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(setup.sessions.destroyed) != 1 || setup.sessions.destroyed[0] != "sess-live" {
		t.Fatalf("expected session destroyed, got %v", setup.sessions.destroyed)
	}
}

func TestServiceMe(t *testing.T) {
	setup := newAuthTestSetup(t)
	ctx := context.Background()

	user := seedAccount(t, setup.gdb, "casey@example.com", "correct-staple", nil)

	dto, err := setup.service.Me(ctx, user.ID)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if dto.Email != "casey@example.com" || dto.ID != user.ID {
		t.Fatalf("unexpected profile: %+v", dto)
	}

	_, err = setup.service.Me(ctx, uuid.New())
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestServiceMintToken(t *testing.T) {
	setup := newAuthTestSetup(t)
	ctx := context.Background()

	userID := uuid.New()
	before := time.Now().UTC()
	res, err := setup.service.MintToken(ctx, "sess-abc123", userID, enums.UserRoleCustomer)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	if res.TokenType != "Bearer" {
		t.Fatalf("expected Bearer token type, got %q", res.TokenType)
	}
	if res.ExpiresAt.Before(before.Add(14*time.Minute)) || res.ExpiresAt.After(before.Add(16*time.Minute)) {
		t.Fatalf("expected expiry near 15m, got %s", res.ExpiresAt)
	}

	claims, err := pkgAuth.ParseAccessToken(setup.jwtCfg, res.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != userID {
		t.Fatalf("expected user id claim %s, got %s", userID, claims.UserID)
	}
	if claims.Role != enums.UserRoleCustomer {
		t.Fatalf("expected customer role claim, got %s", claims.Role)
	}
	if claims.ID != "sess-abc123" {
		t.Fatalf("expected session id as jti, got %q", claims.ID)
	}
}
