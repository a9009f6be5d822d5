package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"tlc-ingest/columnar"
	"tlc-ingest/models"
	"tlc-ingest/utils"
)

var tsType = &arrow.TimestampType{Unit: arrow.Microsecond}

func quietLogger() *utils.Logger {
	return utils.NewLoggerTo(io.Discard, io.Discard, utils.LevelError)
}

func at(day, hour int) time.Time {
	return time.Date(2024, time.January, day, hour, 0, 0, 0, time.UTC)
}

// tripRecord builds a record shaped like a TLC source file. A zero pickup
// becomes a null. fare carries the row's position so reordering is visible.
func tripRecord(mem memory.Allocator, pickupCol, dropoffCol string, pickups []time.Time, airportFee bool) arrow.Record {
	fields := []arrow.Field{
		{Name: "VendorID", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: pickupCol, Type: tsType, Nullable: true},
		{Name: dropoffCol, Type: tsType, Nullable: true},
		{Name: "fare_amount", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	}
	if airportFee {
		fields = append(fields, arrow.Field{Name: models.AirportFeeColumn, Type: arrow.PrimitiveTypes.Float64, Nullable: true})
	}

	b := array.NewRecordBuilder(mem, arrow.NewSchema(fields, nil))
	defer b.Release()

	for i, p := range pickups {
		b.Field(0).(*array.Int64Builder).Append(int64(1 + i%2))
		if p.IsZero() {
			b.Field(1).(*array.TimestampBuilder).AppendNull()
			b.Field(2).(*array.TimestampBuilder).AppendNull()
		} else {
			b.Field(1).(*array.TimestampBuilder).Append(arrow.Timestamp(p.UnixMicro()))
			b.Field(2).(*array.TimestampBuilder).Append(arrow.Timestamp(p.Add(15 * time.Minute).UnixMicro()))
		}
		b.Field(3).(*array.Float64Builder).Append(float64(i))
		if airportFee {
			b.Field(4).(*array.Float64Builder).Append(1.75)
		}
	}
	return b.NewRecord()
}

// normalizedTable builds a table that already uses the canonical names.
func normalizedTable(t *testing.T, pickups []time.Time) arrow.Table {
	t.Helper()
	rec := tripRecord(memory.DefaultAllocator, models.PickupColumn, models.DropoffColumn, pickups, true)
	defer rec.Release()
	return array.NewTableFromRecords(rec.Schema(), []arrow.Record{rec})
}

// tripPayload encodes a source-shaped record as parquet.
func tripPayload(t *testing.T, v models.Variant, pickups []time.Time) []byte {
	t.Helper()
	rec := tripRecord(memory.DefaultAllocator, v.PickupSource, v.DropoffSource, pickups, v.Kind == models.VariantYellow)
	defer rec.Release()

	var buf bytes.Buffer
	if err := columnar.WriteParquet(rec, &buf, 0, memory.DefaultAllocator); err != nil {
		t.Fatalf("encode payload: %v", err)
	}
	return buf.Bytes()
}

// pickupsOf reads the pickup column of rec as wall-clock times.
func pickupsOf(t *testing.T, rec arrow.Record) []time.Time {
	t.Helper()
	pos := columnar.ColumnIndex(rec.Schema(), models.PickupColumn)
	if pos < 0 {
		t.Fatalf("record has no %s column", models.PickupColumn)
	}
	times, _, err := columnar.WallClock(rec.Column(pos))
	if err != nil {
		t.Fatalf("WallClock: %v", err)
	}
	return times
}

type putCall struct {
	key         string
	contentType string
}

// memStore is an in-memory ObjectStore. When failOn > 0 the failOn-th Put
// (1-based) returns an error and stores nothing.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	calls   []putCall
	failOn  int
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (s *memStore) Name() string   { return "memory" }
func (s *memStore) Bucket() string { return "test-bucket" }
func (s *memStore) Close() error   { return nil }

func (s *memStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, putCall{key: key, contentType: contentType})
	if s.failOn > 0 && len(s.calls) == s.failOn {
		return fmt.Errorf("simulated outage on %s", key)
	}
	s.objects[key] = append([]byte(nil), data...)
	return nil
}

func (s *memStore) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for _, c := range s.calls {
		if _, ok := s.objects[c.key]; ok {
			keys = append(keys, c.key)
		}
	}
	return keys
}
