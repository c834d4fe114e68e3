package blob

import (
	"context"
	"fmt"

	"cornucopia/internal/blob/core"
	"cornucopia/internal/infra/blob/fs"
	memorystore "cornucopia/internal/infra/blob/memory"
	infraS3 "cornucopia/internal/infra/blob/s3"
)

// S3Config re-exports the infra S3 configuration type.
type S3Config = infraS3.Config

// Config selects and configures a driver.
type Config struct {
	Driver string
	Root   string
	S3     S3Config
}

// Open constructs the configured store. An s3 config without a bucket falls
// back to the CORNUCOPIA_ARTIFACT_S3_* environment.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver, err := core.ParseDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}
	switch driver {
	case DriverFilesystem:
		return fs.New(cfg.Root)
	case DriverS3:
		if cfg.S3.Bucket == "" {
			return infraS3.OpenFromEnv(ctx)
		}
		return infraS3.New(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}

// NewMemory returns an in-memory store.
func NewMemory() Store { return memorystore.New() }

// NewFilesystem returns a filesystem store rooted at root.
func NewFilesystem(root string) (Store, error) { return fs.New(root) }

// NewMockS3ForTests exposes the in-memory S3 transport for cross-package tests.
func NewMockS3ForTests() Store { return infraS3.NewMockForTests() }
