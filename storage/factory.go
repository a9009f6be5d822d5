package storage

import (
	"context"
	"fmt"

	"tlc-ingest/config"
)

// NewObjectStore builds the backend named by cfg.StorageBackend.
func NewObjectStore(ctx context.Context, cfg *config.Config) (ObjectStore, error) {
	switch cfg.StorageBackend {
	case "gcs", "":
		return NewGCSStore(ctx, cfg.Bucket)
	case "s3":
		return NewS3Store(cfg.AWSRegion, cfg.S3Endpoint, cfg.Bucket)
	case "minio":
		return NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccess, cfg.MinioSecret, cfg.MinioSSL, cfg.Bucket)
	case "local":
		return NewLocalStore(cfg.LocalDir, cfg.Bucket)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q (want gcs, s3, minio or local)", cfg.StorageBackend)
	}
}
