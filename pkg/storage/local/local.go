package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/loomline/storefront-backend/pkg/config"
	"github.com/loomline/storefront-backend/pkg/logger"
)

// Driver stores uploads on the local filesystem under a base directory.
// Objects are served back by the API's static file handler at the
// configured base URL.
type Driver struct {
	baseDir string
	baseURL string
	logg    *logger.Logger
}

func NewDriver(cfg config.UploadsConfig, logg *logger.Logger) (*Driver, error) {
	dir := strings.TrimSpace(cfg.LocalDir)
	if dir == "" {
		return nil, errors.New("uploads directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating uploads directory: %w", err)
	}
	return &Driver{
		baseDir: dir,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		logg:    logg,
	}, nil
}

func (d *Driver) Name() string {
	return "local"
}

// Put writes the object to disk and returns its public URL. Keys may
// contain forward slashes; parent directories are created as needed.
func (d *Driver) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	cleaned, err := d.cleanKey(key)
	if err != nil {
		return "", err
	}

	target := filepath.Join(d.baseDir, filepath.FromSlash(cleaned))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("creating object directory: %w", err)
	}

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating object file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(target)
		return "", fmt.Errorf("writing object: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(target)
		return "", fmt.Errorf("closing object file: %w", err)
	}

	return d.baseURL + "/" + cleaned, nil
}

// Delete removes the object from disk. Missing files are not an error so
// retried deletes stay idempotent.
func (d *Driver) Delete(ctx context.Context, key string) error {
	cleaned, err := d.cleanKey(key)
	if err != nil {
		return err
	}
	target := filepath.Join(d.baseDir, filepath.FromSlash(cleaned))
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing object: %w", err)
	}
	return nil
}

// cleanKey rejects traversal outside the base directory.
func (d *Driver) cleanKey(key string) (string, error) {
	trimmed := strings.TrimLeft(strings.TrimSpace(key), "/")
	if trimmed == "" {
		return "", errors.New("object key is required")
	}
	cleaned := path.Clean(trimmed)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return cleaned, nil
}
