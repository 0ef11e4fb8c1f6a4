package products

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/loomline/storefront-backend/pkg/db/models"
	dbtypes "github.com/loomline/storefront-backend/pkg/db/types"
	"github.com/loomline/storefront-backend/pkg/enums"
)

// sqliteUUIDDefault mimics gen_random_uuid() closely enough that ids
// written by the column default round-trip through google/uuid bindings.
const sqliteUUIDDefault = `(lower(hex(randomblob(4))) || '-' || lower(hex(randomblob(2))) || '-' ||
 lower(hex(randomblob(2))) || '-' || lower(hex(randomblob(2))) || '-' || lower(hex(randomblob(6))))`

func setupProductTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:products_" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	statements := []string{
		`CREATE TABLE categories (
  id TEXT PRIMARY KEY DEFAULT ` + sqliteUUIDDefault + `,
  name TEXT NOT NULL UNIQUE,
  description TEXT,
  product_count INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE products (
  id TEXT PRIMARY KEY DEFAULT ` + sqliteUUIDDefault + `,
  sku TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  description TEXT,
  category TEXT NOT NULL,
  price_cents INTEGER NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0,
  image_url TEXT,
  material TEXT,
  width_cm TEXT,
  weight_gsm TEXT,
  color_ways TEXT NOT NULL DEFAULT '{}',
  media_file_ids TEXT NOT NULL DEFAULT '{}',
  is_active BOOLEAN NOT NULL DEFAULT 1,
  is_featured BOOLEAN NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE uploaded_files (
  id TEXT PRIMARY KEY DEFAULT ` + sqliteUUIDDefault + `,
  kind TEXT NOT NULL,
  storage_key TEXT NOT NULL UNIQUE,
  file_name TEXT NOT NULL,
  mime_type TEXT NOT NULL,
  size_bytes INTEGER NOT NULL,
  url TEXT NOT NULL,
  uploaded_by TEXT,
  created_at DATETIME
);`,
	}
	for _, stmt := range statements {
		if err := gdb.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return gdb
}

func seedCategory(t *testing.T, gdb *gorm.DB, name string, count int) *models.Category {
	t.Helper()
	row := &models.Category{ID: uuid.New(), Name: name, ProductCount: count}
	if err := gdb.Create(row).Error; err != nil {
		t.Fatalf("seed category %s: %v", name, err)
	}
	return row
}

func seedProduct(t *testing.T, gdb *gorm.DB, mutate func(*models.Product)) *models.Product {
	t.Helper()
	row := &models.Product{
		ID:           uuid.New(),
		SKU:          fmt.Sprintf("SKU-%s", uuid.NewString()[:8]),
		Name:         "Linen Weave",
		Category:     "Linen",
		PriceCents:   499,
		Stock:        10,
		ColorWays:    pq.StringArray{"natural"},
		MediaFileIDs: dbtypes.UUIDArray{},
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	if mutate != nil {
		mutate(row)
	}
	if err := gdb.Create(row).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return row
}

func seedUploadedFile(t *testing.T, gdb *gorm.DB) *models.UploadedFile {
	t.Helper()
	row := &models.UploadedFile{
		ID:         uuid.New(),
		Kind:       enums.MediaKindImage,
		StorageKey: "products/" + uuid.NewString() + ".jpg",
		FileName:   "swatch.jpg",
		MimeType:   "image/jpeg",
		SizeBytes:  2048,
		URL:        "/uploads/products/swatch.jpg",
	}
	if err := gdb.Create(row).Error; err != nil {
		t.Fatalf("seed uploaded file: %v", err)
	}
	return row
}

func categoryCount(t *testing.T, gdb *gorm.DB, name string) int {
	t.Helper()
	var row models.Category
	if err := gdb.First(&row, "name = ?", name).Error; err != nil {
		t.Fatalf("load category %s: %v", name, err)
	}
	return row.ProductCount
}
