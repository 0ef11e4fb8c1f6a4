package storage

import (
	"context"
	"testing"

	"github.com/loomline/storefront-backend/pkg/config"
)

func TestNewDefaultsToLocal(t *testing.T) {
	driver, err := New(context.Background(), config.UploadsConfig{
		LocalDir: t.TempDir(),
		BaseURL:  "/uploads",
	}, config.MinIOConfig{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if driver.Name() != DriverLocal {
		t.Fatalf("expected local driver, got %q", driver.Name())
	}
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), config.UploadsConfig{Driver: "ftp"}, config.MinIOConfig{}, nil)
	if err == nil {
		t.Fatal("expected unknown driver error")
	}
}
