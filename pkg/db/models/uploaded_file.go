package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/loomline/storefront-backend/pkg/enums"
)

// UploadedFile captures metadata for stored media objects. StorageKey is the
// driver-side object key (relative path on disk, object name on MinIO).
type UploadedFile struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Kind       enums.MediaKind `gorm:"column:kind;type:media_kind;not null"`
	StorageKey string          `gorm:"column:storage_key;not null;uniqueIndex"`
	FileName   string          `gorm:"column:file_name;not null"`
	MimeType   string          `gorm:"column:mime_type;not null"`
	SizeBytes  int64           `gorm:"column:size_bytes;not null"`
	URL        string          `gorm:"column:url;not null"`
	UploadedBy *uuid.UUID      `gorm:"column:uploaded_by;type:uuid"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}
