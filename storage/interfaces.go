package storage

import (
	"context"

	"tlc-ingest/models"
)

// ObjectStore is the interface any shard destination must satisfy.
// Implementations write into one fixed bucket.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Bucket() string
	Close() error
}

// ShardCatalog records metadata about uploaded shards.
type ShardCatalog interface {
	Record(ctx context.Context, shard *models.Shard) error
	Close() error
}

// ShardNotifier announces uploaded shards to downstream consumers.
type ShardNotifier interface {
	Notify(ctx context.Context, shard *models.Shard) error
	Close() error
}
