package uploads

import (
	"time"

	"github.com/google/uuid"

	"github.com/loomline/storefront-backend/pkg/db/models"
	"github.com/loomline/storefront-backend/pkg/enums"
	"github.com/loomline/storefront-backend/pkg/pagination"
)

// UploadedFileDTO is the API shape of a stored upload.
type UploadedFileDTO struct {
	ID         uuid.UUID       `json:"id"`
	Kind       enums.MediaKind `json:"kind"`
	FileName   string          `json:"file_name"`
	MimeType   string          `json:"mime_type"`
	SizeBytes  int64           `json:"size_bytes"`
	URL        string          `json:"url"`
	UploadedBy *uuid.UUID      `json:"uploaded_by,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ListUploadsInput captures the admin listing inputs.
type ListUploadsInput struct {
	Kind       *enums.MediaKind
	Pagination pagination.Params
}

// ListResult is one page of uploads plus the cursor for the next page.
type ListResult struct {
	Files      []UploadedFileDTO `json:"files"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

// FromModel maps a storage row to its DTO.
func FromModel(f *models.UploadedFile) *UploadedFileDTO {
	if f == nil {
		return nil
	}
	return &UploadedFileDTO{
		ID:         f.ID,
		Kind:       f.Kind,
		FileName:   f.FileName,
		MimeType:   f.MimeType,
		SizeBytes:  f.SizeBytes,
		URL:        f.URL,
		UploadedBy: f.UploadedBy,
		CreatedAt:  f.CreatedAt,
	}
}
