package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"tlc-ingest/columnar"
	"tlc-ingest/models"
	"tlc-ingest/utils"
)

const week = 7 * 24 * time.Hour

// WeeklyBucket is the slice of the sorted trip table whose pickups fall in
// one Monday–Sunday week.
type WeeklyBucket struct {
	Ordinal   int
	WeekEnd   time.Time // Sunday 00:00, the bucket key
	WeekStart time.Time // earliest pickup in the bucket; zero when empty
	Rows      int64
	Record    arrow.Record // nil when empty
}

// Empty reports whether the bucket holds no rows.
func (b WeeklyBucket) Empty() bool {
	return b.Rows == 0
}

// Partition is the ordered weekly split of one trip table.
type Partition struct {
	Buckets     []WeeklyBucket
	TotalRows   int64
	NullPickups int64

	sorted arrow.Record
}

// Release frees the sorted record backing every bucket.
func (p *Partition) Release() {
	for _, b := range p.Buckets {
		if b.Record != nil {
			b.Record.Release()
		}
	}
	if p.sorted != nil {
		p.sorted.Release()
	}
}

// WeekEnding returns the Sunday 00:00 that closes the week containing t.
func WeekEnding(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return day.AddDate(0, 0, (7-int(day.Weekday()))%7)
}

// Partitioner sorts a normalized trip table by pickup time and splits it
// into calendar weeks.
type Partitioner struct {
	logger *utils.Logger
	mem    memory.Allocator
}

// NewPartitioner creates a Partitioner.
func NewPartitioner(logger *utils.Logger, mem memory.Allocator) *Partitioner {
	return &Partitioner{logger: logger, mem: mem}
}

// Partition returns buckets for every week from the first to the last
// populated one, ascending. Weeks with no pickups are present with Rows == 0.
// Ordinals are 1-based week positions, so gaps advance the ordinal.
// Rows without a pickup time are left out and counted in NullPickups.
func (p *Partitioner) Partition(ctx context.Context, tbl arrow.Table) (*Partition, error) {
	pos := columnar.ColumnIndex(tbl.Schema(), models.PickupColumn)
	if pos < 0 {
		return nil, fmt.Errorf("column %q not found", models.PickupColumn)
	}

	var (
		pickups []time.Time
		indices []int64
		row     int64
	)
	for _, chunk := range tbl.Column(pos).Data().Chunks() {
		times, valid, err := columnar.WallClock(chunk)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", models.PickupColumn, err)
		}
		for i := range times {
			if valid[i] {
				indices = append(indices, row)
			}
			pickups = append(pickups, times[i])
			row++
		}
	}

	part := &Partition{
		TotalRows:   tbl.NumRows(),
		NullPickups: tbl.NumRows() - int64(len(indices)),
	}
	if part.NullPickups > 0 {
		p.logger.Warn("[partitioner] %d rows have no pickup time and are left out", part.NullPickups)
	}
	if len(indices) == 0 {
		return part, nil
	}

	sort.SliceStable(indices, func(i, j int) bool {
		return pickups[indices[i]].Before(pickups[indices[j]])
	})

	sorted, err := columnar.TakeRows(ctx, tbl, indices, p.mem)
	if err != nil {
		return nil, fmt.Errorf("sort by %s: %w", models.PickupColumn, err)
	}
	part.sorted = sorted

	first := WeekEnding(pickups[indices[0]])
	start := 0
	for i := 1; i <= len(indices); i++ {
		if i < len(indices) && WeekEnding(pickups[indices[i]]).Equal(WeekEnding(pickups[indices[start]])) {
			continue
		}

		weekEnd := WeekEnding(pickups[indices[start]])
		ordinal := int(weekEnd.Sub(first)/week) + 1
		for next := len(part.Buckets) + 1; next < ordinal; next++ {
			part.Buckets = append(part.Buckets, WeeklyBucket{
				Ordinal: next,
				WeekEnd: first.Add(time.Duration(next-1) * week),
			})
		}

		part.Buckets = append(part.Buckets, WeeklyBucket{
			Ordinal:   ordinal,
			WeekEnd:   weekEnd,
			WeekStart: pickups[indices[start]],
			Rows:      int64(i - start),
			Record:    sorted.NewSlice(int64(start), int64(i)),
		})
		start = i
	}

	p.logger.Info("[partitioner] %d rows → %d weeks (%s … %s)", len(indices), len(part.Buckets),
		first.Format("2006-01-02"), part.Buckets[len(part.Buckets)-1].WeekEnd.Format("2006-01-02"))
	return part, nil
}
