package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/loomline/storefront-backend/pkg/config"
	"github.com/loomline/storefront-backend/pkg/logger"
	"github.com/loomline/storefront-backend/pkg/storage/local"
	"github.com/loomline/storefront-backend/pkg/storage/minio"
)

// Driver is the storage backend the uploads service writes through.
// Put returns the public URL for the stored object.
type Driver interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	Name() string
}

const (
	DriverLocal = "local"
	DriverMinIO = "minio"
)

// New selects the configured driver. Local disk is the default; MinIO is
// used when LOOMLINE_UPLOADS_DRIVER=minio.
func New(ctx context.Context, cfg config.UploadsConfig, minioCfg config.MinIOConfig, logg *logger.Logger) (Driver, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverLocal:
		return local.NewDriver(cfg, logg)
	case DriverMinIO:
		return minio.NewDriver(ctx, minioCfg, logg)
	default:
		return nil, fmt.Errorf("unknown uploads driver %q", cfg.Driver)
	}
}
