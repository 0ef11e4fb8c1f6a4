package uploads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"unicode"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/loomline/storefront-backend/pkg/config"
	"github.com/loomline/storefront-backend/pkg/db/models"
	"github.com/loomline/storefront-backend/pkg/enums"
	pkgerrors "github.com/loomline/storefront-backend/pkg/errors"
	"github.com/loomline/storefront-backend/pkg/logger"
	"github.com/loomline/storefront-backend/pkg/storage"
)

// sniffLen matches the window the detector inspects.
const sniffLen = 3072

var mimeTypesByKind = map[enums.MediaKind][]string{
	enums.MediaKindImage: {"image/png", "image/jpeg", "image/webp", "image/gif"},
	enums.MediaKindVideo: {"video/mp4", "video/webm"},
}

// Service handles product media uploads, listing and removal.
type Service interface {
	Upload(ctx context.Context, input UploadInput) (*UploadedFileDTO, error)
	List(ctx context.Context, input ListUploadsInput) (*ListResult, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// UploadInput carries one multipart file. SizeBytes is the part size as
// reported by the multipart parser, not a client-supplied header.
type UploadInput struct {
	Kind       enums.MediaKind
	FileName   string
	Content    io.Reader
	SizeBytes  int64
	UploadedBy *uuid.UUID
}

type service struct {
	repo     *Repository
	driver   storage.Driver
	logg     *logger.Logger
	maxBytes int64
}

// NewService builds the uploads service on top of the configured storage driver.
func NewService(repo *Repository, driver storage.Driver, cfg config.UploadsConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("uploads repository is required")
	}
	if driver == nil {
		return nil, fmt.Errorf("storage driver is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		repo:     repo,
		driver:   driver,
		logg:     logg,
		maxBytes: cfg.MaxUploadBytes(),
	}, nil
}

// Upload sniffs the real content type from the file's leading bytes, checks
// it against the allowlist for the requested kind, stores the object and
// records its row. The client-declared type is never trusted.
func (s *service) Upload(ctx context.Context, input UploadInput) (*UploadedFileDTO, error) {
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid upload kind")
	}
	fileName := strings.TrimSpace(input.FileName)
	if fileName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file name is required")
	}
	if input.Content == nil || input.SizeBytes <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is empty")
	}
	if input.SizeBytes > s.maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("file exceeds the %dMB upload limit", s.maxBytes>>20))
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(input.Content, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read upload")
	}
	if n == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is empty")
	}

	mimeType, err := sniffMimeType(head[:n])
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "sniff content type")
	}
	if !isAllowedMime(input.Kind, mimeType) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("%s is not allowed for %s uploads", mimeType, input.Kind))
	}

	id := uuid.New()
	key := buildStorageKey(input.Kind, id, fileName)
	content := io.MultiReader(bytes.NewReader(head[:n]), input.Content)

	url, err := s.driver.Put(ctx, key, content, input.SizeBytes, mimeType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store upload")
	}

	row := &models.UploadedFile{
		ID:         id,
		Kind:       input.Kind,
		StorageKey: key,
		FileName:   fileName,
		MimeType:   mimeType,
		SizeBytes:  input.SizeBytes,
		URL:        url,
		UploadedBy: input.UploadedBy,
	}
	if _, err := s.repo.Create(ctx, row); err != nil {
		if delErr := s.driver.Delete(ctx, key); delErr != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"storage_key": key,
				"error":       delErr.Error(),
			}), "orphaned upload object left behind")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist upload")
	}

	return FromModel(row), nil
}

// List returns a page of uploads, newest first.
func (s *service) List(ctx context.Context, input ListUploadsInput) (*ListResult, error) {
	rows, next, err := s.repo.List(ctx, input.Kind, input.Pagination)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list uploads")
	}

	files := make([]UploadedFileDTO, 0, len(rows))
	for i := range rows {
		files = append(files, *FromModel(&rows[i]))
	}
	return &ListResult{Files: files, NextCursor: next}, nil
}

// Delete removes the row, then the stored object. Driver failures are
// logged and swallowed: the row is the source of truth and it is gone.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "upload not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load upload")
	}

	if _, err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete upload")
	}

	if err := s.driver.Delete(ctx, row.StorageKey); err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"upload_id":   id.String(),
			"storage_key": row.StorageKey,
			"error":       err.Error(),
		}), "upload object removal failed")
	}
	return nil
}

// sniffMimeType detects the content type from the leading bytes and strips
// any parameters the detector appends (charset on text fallbacks).
func sniffMimeType(head []byte) (string, error) {
	detected := mimetype.Detect(head).String()
	mediaType, _, err := mime.ParseMediaType(detected)
	if err != nil {
		return "", fmt.Errorf("parse detected type %q: %w", detected, err)
	}
	return strings.ToLower(mediaType), nil
}

func isAllowedMime(kind enums.MediaKind, mimeType string) bool {
	for _, candidate := range mimeTypesByKind[kind] {
		if candidate == mimeType {
			return true
		}
	}
	return false
}

func buildStorageKey(kind enums.MediaKind, id uuid.UUID, fileName string) string {
	cleanName := sanitizeFileName(fileName)
	if cleanName == "" {
		cleanName = id.String()
	}
	return fmt.Sprintf("%s/%s/%s", kind, id.String(), cleanName)
}

// sanitizeFileName strips path segments, control runes and separators so the
// original name can ride along in the object key.
func sanitizeFileName(name string) string {
	clean := path.Base(strings.TrimSpace(name))
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case r == '/' || r == '\\' || unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_.")
}
