package columnar

import (
	"fmt"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// timestampLayouts are tried in order when a timestamp column arrives as text.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
	"01/02/2006 03:04:05 PM",
	"2006-01-02",
}

// ParsedTimestampType is the type string columns are parsed into.
var ParsedTimestampType = &arrow.TimestampType{Unit: arrow.Microsecond}

type stringArray interface {
	arrow.Array
	Value(i int) string
}

// ParseTimestamp parses s as a naive wall-clock timestamp. A UTC offset in
// s is dropped and the local clock reading kept.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return naive(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as a timestamp", s)
}

// EnsureTimestamp makes the named column a timestamp column. Timestamp
// columns pass through untouched; string columns are parsed value by value
// into timestamp[us]. Any other type, or any unparseable value, is an error.
func EnsureTimestamp(tbl arrow.Table, name string, mem memory.Allocator) (arrow.Table, error) {
	pos := ColumnIndex(tbl.Schema(), name)
	if pos < 0 {
		return nil, fmt.Errorf("column %q not found", name)
	}
	col := tbl.Column(pos)

	switch col.DataType().ID() {
	case arrow.TIMESTAMP:
		tbl.Retain()
		return tbl, nil
	case arrow.STRING, arrow.LARGE_STRING:
	default:
		return nil, fmt.Errorf("column %q has type %s, want timestamp or string", name, col.DataType())
	}

	b := array.NewTimestampBuilder(mem, ParsedTimestampType)
	defer b.Release()
	b.Reserve(col.Len())

	row := 0
	for _, chunk := range col.Data().Chunks() {
		strs, ok := chunk.(stringArray)
		if !ok {
			return nil, fmt.Errorf("column %q: unexpected chunk %T", name, chunk)
		}
		for i := 0; i < strs.Len(); i++ {
			if strs.IsNull(i) {
				b.AppendNull()
				row++
				continue
			}
			t, err := ParseTimestamp(strs.Value(i))
			if err != nil {
				return nil, fmt.Errorf("column %q row %d: %w", name, row, err)
			}
			b.Append(arrow.Timestamp(t.UnixMicro()))
			row++
		}
	}

	arr := b.NewArray()
	defer arr.Release()
	field := arrow.Field{Name: name, Type: ParsedTimestampType, Nullable: true}
	chunked := arrow.NewChunked(field.Type, []arrow.Array{arr})
	defer chunked.Release()

	return putColumn(tbl, field, chunked), nil
}

// WallClock reads a timestamp array as naive wall-clock times. Zoned values
// are first converted into their zone, then stripped of it. valid[i] is false
// for null entries.
func WallClock(arr arrow.Array) (times []time.Time, valid []bool, err error) {
	ts, ok := arr.(*array.Timestamp)
	if !ok {
		return nil, nil, fmt.Errorf("expected a timestamp array, got %s", arr.DataType())
	}
	toTime, err := ts.DataType().(*arrow.TimestampType).GetToTimeFunc()
	if err != nil {
		return nil, nil, err
	}

	times = make([]time.Time, ts.Len())
	valid = make([]bool, ts.Len())
	for i := 0; i < ts.Len(); i++ {
		if ts.IsNull(i) {
			continue
		}
		times[i] = naive(toTime(ts.Value(i)))
		valid[i] = true
	}
	return times, valid, nil
}

// naive keeps t's clock reading in its own zone and relabels it UTC.
func naive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(),
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}
