package models

import (
	"time"

	"github.com/google/uuid"
)

// Category groups products by fabric family. ProductCount mirrors the number
// of active products whose Category column equals Name; it is recomputed
// inside every product/category write transaction, never patched ad hoc.
type Category struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string    `gorm:"column:name;not null;uniqueIndex"`
	Description  *string   `gorm:"column:description"`
	ProductCount int       `gorm:"column:product_count;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
