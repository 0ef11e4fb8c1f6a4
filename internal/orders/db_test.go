package orders

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/loomline/storefront-backend/pkg/db/models"
	"github.com/loomline/storefront-backend/pkg/enums"
)

// sqliteUUIDDefault mimics gen_random_uuid() closely enough that ids
// written by the column default round-trip through google/uuid bindings.
const sqliteUUIDDefault = `(lower(hex(randomblob(4))) || '-' || lower(hex(randomblob(2))) || '-' ||
 lower(hex(randomblob(2))) || '-' || lower(hex(randomblob(2))) || '-' || lower(hex(randomblob(6))))`

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
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
		`CREATE TABLE orders (
  id TEXT PRIMARY KEY DEFAULT ` + sqliteUUIDDefault + `,
  number TEXT NOT NULL UNIQUE,
  user_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  total_cents INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'USD',
  email TEXT NOT NULL,
  name TEXT NOT NULL,
  phone TEXT,
  address1 TEXT NOT NULL,
  address2 TEXT,
  city TEXT NOT NULL,
  postal_code TEXT NOT NULL,
  country TEXT NOT NULL,
  payment_ref TEXT,
  paid_at DATETIME,
  canceled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE order_items (
  id TEXT PRIMARY KEY DEFAULT ` + sqliteUUIDDefault + `,
  order_id TEXT NOT NULL,
  product_id TEXT,
  name TEXT NOT NULL,
  sku TEXT NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  quantity INTEGER NOT NULL,
  total_cents INTEGER NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY DEFAULT ` + sqliteUUIDDefault + `,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
		`CREATE UNIQUE INDEX ux_outbox_events_event_aggregate ON outbox_events (event_type, aggregate_type, aggregate_id);`,
	}
	for _, stmt := range statements {
		require.NoError(t, gdb.Exec(stmt).Error)
	}
	return gdb
}

func seedOrder(t *testing.T, gdb *gorm.DB, mutate func(*models.Order)) *models.Order {
	t.Helper()
	row := &models.Order{
		ID:         uuid.New(),
		Number:     "LL-" + uuid.NewString()[:13],
		UserID:     uuid.New(),
		Status:     enums.OrderStatusPending,
		TotalCents: 1797,
		Currency:   enums.CurrencyUSD,
		Email:      "buyer@example.com",
		Name:       "Jamie Buyer",
		Address1:   "12 Mill Lane",
		City:       "Portland",
		PostalCode: "97201",
		Country:    "US",
		CreatedAt:  time.Now().UTC(),
	}
	if mutate != nil {
		mutate(row)
	}
	require.NoError(t, gdb.Omit("Items").Create(row).Error)
	return row
}

func seedOrderItem(t *testing.T, gdb *gorm.DB, orderID uuid.UUID, mutate func(*models.OrderItem)) *models.OrderItem {
	t.Helper()
	row := &models.OrderItem{
		ID:             uuid.New(),
		OrderID:        orderID,
		Name:           "Linen Weave",
		SKU:            fmt.Sprintf("SKU-%s", uuid.NewString()[:8]),
		UnitPriceCents: 499,
		Quantity:       2,
		TotalCents:     998,
		CreatedAt:      time.Now().UTC(),
	}
	if mutate != nil {
		mutate(row)
	}
	require.NoError(t, gdb.Create(row).Error)
	return row
}

func seedProductRow(t *testing.T, gdb *gorm.DB, stock int) *models.Product {
	t.Helper()
	row := &models.Product{
		ID:         uuid.New(),
		SKU:        fmt.Sprintf("SKU-%s", uuid.NewString()[:8]),
		Name:       "Wool Twill",
		Category:   "Wool",
		PriceCents: 799,
		Stock:      stock,
		IsActive:   true,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, gdb.Create(row).Error)
	return row
}

func countEvents(t *testing.T, gdb *gorm.DB, eventType enums.OutboxEventType, aggregateID uuid.UUID) int64 {
	t.Helper()
	var count int64
	require.NoError(t, gdb.Model(&models.OutboxEvent{}).
		Where("event_type = ? AND aggregate_id = ?", eventType, aggregateID).
		Count(&count).Error)
	return count
}

func productStock(t *testing.T, gdb *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var row models.Product
	require.NoError(t, gdb.First(&row, "id = ?", id).Error)
	return row.Stock
}
