package minio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/loomline/storefront-backend/pkg/config"
	"github.com/loomline/storefront-backend/pkg/logger"
)

// Driver stores uploads in an S3-compatible MinIO bucket.
type Driver struct {
	client        *miniogo.Client
	bucket        string
	endpoint      string
	useSSL        bool
	publicBaseURL string
}

func NewDriver(ctx context.Context, cfg config.MinIOConfig, logg *logger.Logger) (*Driver, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("minio endpoint is required")
	}
	if strings.TrimSpace(cfg.AccessKey) == "" || strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New("minio credentials are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("minio bucket is required")
	}

	client, err := miniogo.New(endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("checking bucket %q: %w", bucket, err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %q does not exist", bucket)
	}

	if logg != nil {
		logg.Info(ctx, "minio client initialized")
	}

	return &Driver{
		client:        client,
		bucket:        bucket,
		endpoint:      endpoint,
		useSSL:        cfg.UseSSL,
		publicBaseURL: strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/"),
	}, nil
}

func (d *Driver) Name() string {
	return "minio"
}

// Put streams the object into the bucket and returns its public URL.
func (d *Driver) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	cleaned := strings.TrimLeft(strings.TrimSpace(key), "/")
	if cleaned == "" {
		return "", errors.New("object key is required")
	}

	_, err := d.client.PutObject(ctx, d.bucket, cleaned, r, size, miniogo.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("uploading object %q: %w", cleaned, err)
	}

	return d.objectURL(cleaned), nil
}

// Delete removes the object from the bucket. MinIO treats removal of a
// missing object as success, which keeps retried deletes idempotent.
func (d *Driver) Delete(ctx context.Context, key string) error {
	cleaned := strings.TrimLeft(strings.TrimSpace(key), "/")
	if cleaned == "" {
		return errors.New("object key is required")
	}
	if err := d.client.RemoveObject(ctx, d.bucket, cleaned, miniogo.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("removing object %q: %w", cleaned, err)
	}
	return nil
}

// objectURL prefers the configured CDN base; otherwise it points straight at
// the MinIO endpoint.
func (d *Driver) objectURL(key string) string {
	if d.publicBaseURL != "" {
		return d.publicBaseURL + "/" + key
	}
	scheme := "http"
	if d.useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, d.endpoint, d.bucket, key)
}
