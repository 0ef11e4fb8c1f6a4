package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	dbtypes "github.com/loomline/storefront-backend/pkg/db/types"
)

// Product is the canonical catalog listing for a fabric. Category holds the
// referenced category's name (renames cascade here), prices are minor
// currency units, and MediaFileIDs reference uploaded_files rows.
type Product struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU          string            `gorm:"column:sku;not null;uniqueIndex"`
	Name         string            `gorm:"column:name;not null"`
	Description  *string           `gorm:"column:description"`
	Category     string            `gorm:"column:category;not null;index"`
	PriceCents   int64             `gorm:"column:price_cents;not null"`
	Stock        int               `gorm:"column:stock;not null;default:0"`
	ImageURL     *string           `gorm:"column:image_url"`
	Material     *string           `gorm:"column:material"`
	WidthCM      *decimal.Decimal  `gorm:"column:width_cm;type:numeric(6,2)"`
	WeightGSM    *decimal.Decimal  `gorm:"column:weight_gsm;type:numeric(7,2)"`
	ColorWays    pq.StringArray    `gorm:"column:color_ways;type:text[];not null;default:ARRAY[]::text[]"`
	MediaFileIDs dbtypes.UUIDArray `gorm:"column:media_file_ids;type:uuid[];not null;default:ARRAY[]::uuid[]"`
	IsActive     bool              `gorm:"column:is_active;not null"`
	IsFeatured   bool              `gorm:"column:is_featured;not null"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
