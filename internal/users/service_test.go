package users

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/loomline/storefront-backend/pkg/db/models"
	"github.com/loomline/storefront-backend/pkg/enums"
	pkgerrors "github.com/loomline/storefront-backend/pkg/errors"
	"github.com/loomline/storefront-backend/pkg/pagination"
)

// sqliteUUIDDefault mimics gen_random_uuid() closely enough that ids
// written by the column default round-trip through google/uuid bindings.
const sqliteUUIDDefault = `(lower(hex(randomblob(4))) || '-' || lower(hex(randomblob(2))) || '-' ||
 lower(hex(randomblob(2))) || '-' || lower(hex(randomblob(2))) || '-' || lower(hex(randomblob(6))))`

func setupUsersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:users_" + uuid.NewString() + "?mode=memory&cache=shared"
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

func newUsersService(t *testing.T, gdb *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(gdb))
	if err != nil {
		t.Fatalf("new users service: %v", err)
	}
	return svc
}

func seedUser(t *testing.T, gdb *gorm.DB, mutate func(*models.User)) *models.User {
	t.Helper()
	row := &models.User{
		ID:           uuid.New(),
		Email:        fmt.Sprintf("user-%s@example.com", uuid.NewString()[:8]),
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=2$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaGhhc2hoYXNoaGFzaGhhc2g",
		FirstName:    "Jamie",
		LastName:     "Buyer",
		Role:         enums.UserRoleCustomer,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	if mutate != nil {
		mutate(row)
	}
	if err := gdb.Create(row).Error; err != nil {
		t.Fatalf("seed user: %v", err)
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

func TestServiceListPaginates(t *testing.T) {
	gdb := setupUsersTestDB(t)
	svc := newUsersService(t, gdb)
	ctx := context.Background()

	base := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	ids := make([]uuid.UUID, 0, 3)
	for i := 0; i < 3; i++ {
		offset := time.Duration(i) * time.Minute
		row := seedUser(t, gdb, func(u *models.User) {
			u.CreatedAt = base.Add(offset)
		})
		ids = append(ids, row.ID)
	}

	page, err := svc.List(ctx, ListUsersInput{Pagination: pagination.Params{Limit: 2}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(page.Users))
	}
	if page.Users[0].ID != ids[2] || page.Users[1].ID != ids[1] {
		t.Fatal("expected newest-first ordering")
	}
	if page.NextCursor == "" {
		t.Fatal("expected next cursor")
	}

	rest, err := svc.List(ctx, ListUsersInput{Pagination: pagination.Params{Limit: 2, Cursor: page.NextCursor}})
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if len(rest.Users) != 1 || rest.Users[0].ID != ids[0] {
		t.Fatalf("unexpected second page: %+v", rest.Users)
	}
	if rest.NextCursor != "" {
		t.Fatal("expected no cursor on last page")
	}
}

func TestServiceListRejectsBadCursor(t *testing.T) {
	gdb := setupUsersTestDB(t)
	svc := newUsersService(t, gdb)

	_, err := svc.List(context.Background(), ListUsersInput{Pagination: pagination.Params{Cursor: "not-a-cursor"}})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestServiceGet(t *testing.T) {
	gdb := setupUsersTestDB(t)
	svc := newUsersService(t, gdb)
	ctx := context.Background()

	row := seedUser(t, gdb, nil)

	dto, err := svc.Get(ctx, row.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if dto.Email != row.Email || dto.Role != enums.UserRoleCustomer {
		t.Fatalf("unexpected dto: %+v", dto)
	}

	_, err = svc.Get(ctx, uuid.New())
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestServiceSetActive(t *testing.T) {
	gdb := setupUsersTestDB(t)
	svc := newUsersService(t, gdb)
	ctx := context.Background()

	row := seedUser(t, gdb, nil)

	dto, err := svc.SetActive(ctx, row.ID, false)
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if dto.IsActive {
		t.Fatal("expected user deactivated")
	}

	var stored models.User
	if err := gdb.First(&stored, "id = ?", row.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.IsActive {
		t.Fatal("expected is_active false in db")
	}

	dto, err = svc.SetActive(ctx, row.ID, true)
	if err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	if !dto.IsActive {
		t.Fatal("expected user reactivated")
	}

	_, err = svc.SetActive(ctx, uuid.New(), false)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestServiceSetRole(t *testing.T) {
	gdb := setupUsersTestDB(t)
	svc := newUsersService(t, gdb)
	ctx := context.Background()

	row := seedUser(t, gdb, nil)

	dto, err := svc.SetRole(ctx, row.ID, enums.UserRoleAdmin)
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if dto.Role != enums.UserRoleAdmin {
		t.Fatalf("expected admin role, got %s", dto.Role)
	}

	dto, err = svc.SetRole(ctx, row.ID, enums.UserRoleCustomer)
	if err != nil {
		t.Fatalf("demote: %v", err)
	}
	if dto.Role != enums.UserRoleCustomer {
		t.Fatalf("expected customer role, got %s", dto.Role)
	}

	_, err = svc.SetRole(ctx, row.ID, enums.UserRole("superuser"))
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.SetRole(ctx, uuid.New(), enums.UserRoleAdmin)
	requireCode(t, err, pkgerrors.CodeNotFound)
}
