package services

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"tlc-ingest/columnar"
	"tlc-ingest/metrics"
	"tlc-ingest/models"
	"tlc-ingest/storage"
	"tlc-ingest/utils"
)

const shardContentType = "application/octet-stream"

// ShardWriter serializes weekly buckets to parquet and uploads them one by one.
type ShardWriter struct {
	store        storage.ObjectStore
	catalog      storage.ShardCatalog
	notifier     storage.ShardNotifier
	prefix       string
	rowGroupSize int64
	backend      string
	logger       *utils.Logger
	mem          memory.Allocator
}

// NewShardWriter creates a ShardWriter uploading under prefix in store.
func NewShardWriter(store storage.ObjectStore, prefix string, rowGroupSize int64, logger *utils.Logger, mem memory.Allocator) *ShardWriter {
	return &ShardWriter{
		store:        store,
		prefix:       prefix,
		rowGroupSize: rowGroupSize,
		backend:      backendName(store),
		logger:       logger,
		mem:          mem,
	}
}

func backendName(store storage.ObjectStore) string {
	if n, ok := store.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", store)
}

// WithCatalog records every uploaded shard in c.
func (w *ShardWriter) WithCatalog(c storage.ShardCatalog) *ShardWriter {
	w.catalog = c
	return w
}

// WithNotifier publishes an event for every uploaded shard to n.
func (w *ShardWriter) WithNotifier(n storage.ShardNotifier) *ShardWriter {
	w.notifier = n
	return w
}

// ObjectKey returns "{prefix}/{filename}".
func (w *ShardWriter) ObjectKey(filename string) string {
	if w.prefix == "" {
		return filename
	}
	return path.Join(w.prefix, filename)
}

// WriteAll uploads every non-empty bucket in order. The first failure stops
// the sequence; shards uploaded before it stay in place. The shards written
// so far are returned either way.
func (w *ShardWriter) WriteAll(ctx context.Context, runID string, p models.Params, buckets []WeeklyBucket) ([]*models.Shard, error) {
	var shards []*models.Shard
	for _, b := range buckets {
		if b.Empty() {
			w.logger.Debug("[writer] W%d (%s) is empty, skipped", b.Ordinal, b.WeekEnd.Format("2006-01-02"))
			continue
		}

		shard, err := w.Write(ctx, runID, p, b)
		if err != nil {
			return shards, err
		}
		shards = append(shards, shard)
	}
	return shards, nil
}

// Write serializes and uploads a single non-empty bucket.
func (w *ShardWriter) Write(ctx context.Context, runID string, p models.Params, b WeeklyBucket) (*models.Shard, error) {
	rec, dropped := columnar.DropColumn(b.Record, models.AirportFeeColumn)
	defer rec.Release()
	if dropped {
		w.logger.Debug("[writer] Dropped %s from W%d", models.AirportFeeColumn, b.Ordinal)
	}

	var buf bytes.Buffer
	if err := columnar.WriteParquet(rec, &buf, w.rowGroupSize, w.mem); err != nil {
		return nil, fmt.Errorf("W%d: %w", b.Ordinal, err)
	}

	filename := models.ShardFilename(p.TaxiType, b.Ordinal, b.WeekStart)
	key := w.ObjectKey(filename)
	if err := w.store.Put(ctx, key, buf.Bytes(), shardContentType); err != nil {
		return nil, fmt.Errorf("put %s: %w", key, err)
	}

	shard := &models.Shard{
		RunID:      runID,
		TaxiType:   p.TaxiType,
		Period:     p.Period(),
		Ordinal:    b.Ordinal,
		WeekStart:  b.WeekStart,
		WeekEnd:    b.WeekEnd,
		Rows:       b.Rows,
		Bytes:      int64(buf.Len()),
		Bucket:     w.store.Bucket(),
		Key:        key,
		UploadedAt: time.Now().UTC(),
	}
	metrics.ShardsUploadedTotal.WithLabelValues(p.TaxiType, w.backend).Inc()
	metrics.ShardBytes.WithLabelValues(p.TaxiType).Observe(float64(shard.Bytes))
	w.logger.Info("[writer] Uploaded %s/%s (%d rows, %d bytes)", shard.Bucket, key, shard.Rows, shard.Bytes)

	if w.catalog != nil {
		if err := w.catalog.Record(ctx, shard); err != nil {
			w.logger.Warn("[writer] Catalog record for %s failed: %v", key, err)
		}
	}
	if w.notifier != nil {
		if err := w.notifier.Notify(ctx, shard); err != nil {
			w.logger.Warn("[writer] Shard event for %s failed: %v", key, err)
		}
	}
	return shard, nil
}
