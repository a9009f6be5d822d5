package columnar

import (
	"bytes"
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

func sampleRecord(mem memory.Allocator) arrow.Record {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "name", Type: arrow.BinaryTypes.String},
		{Name: "Airport_fee", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	}, nil)
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	b.Field(0).(*array.Int64Builder).AppendValues([]int64{10, 20, 30}, nil)
	b.Field(1).(*array.StringBuilder).AppendValues([]string{"a", "b", "c"}, nil)
	b.Field(2).(*array.Float64Builder).AppendValues([]float64{0, 1.25, 0}, []bool{false, true, false})
	return b.NewRecord()
}

func sampleTable(mem memory.Allocator) arrow.Table {
	rec := sampleRecord(mem)
	defer rec.Release()
	return array.NewTableFromRecords(rec.Schema(), []arrow.Record{rec})
}

func TestParquetRoundTrip(t *testing.T) {
	mem := memory.DefaultAllocator
	rec := sampleRecord(mem)
	defer rec.Release()

	var buf bytes.Buffer
	if err := WriteParquet(rec, &buf, 2, mem); err != nil {
		t.Fatalf("WriteParquet: %v", err)
	}
	tbl, err := ReadParquet(context.Background(), buf.Bytes(), mem)
	if err != nil {
		t.Fatalf("ReadParquet: %v", err)
	}
	defer tbl.Release()

	if tbl.NumRows() != 3 || tbl.NumCols() != 3 {
		t.Errorf("got %d rows × %d cols, want 3 × 3", tbl.NumRows(), tbl.NumCols())
	}
}

func TestRenameColumns(t *testing.T) {
	tbl := sampleTable(memory.DefaultAllocator)
	defer tbl.Release()

	out, err := RenameColumns(tbl, map[string]string{"name": "label"})
	if err != nil {
		t.Fatalf("RenameColumns: %v", err)
	}
	defer out.Release()

	if ColumnIndex(out.Schema(), "label") != 1 || ColumnIndex(out.Schema(), "name") != -1 {
		t.Errorf("unexpected schema %s", out.Schema())
	}

	if _, err := RenameColumns(tbl, map[string]string{"missing": "x"}); err == nil {
		t.Error("expected error for a missing source column")
	}
}

func TestSetConstantStringAppendsAndReplaces(t *testing.T) {
	mem := memory.DefaultAllocator
	tbl := sampleTable(mem)
	defer tbl.Release()

	added := SetConstantString(tbl, "kind", "yellow", mem)
	defer added.Release()
	if added.NumCols() != 4 || ColumnIndex(added.Schema(), "kind") != 3 {
		t.Fatalf("append: unexpected schema %s", added.Schema())
	}

	replaced := SetConstantString(added, "name", "z", mem)
	defer replaced.Release()
	if replaced.NumCols() != 4 {
		t.Fatalf("replace changed width: %s", replaced.Schema())
	}
	names := replaced.Column(1).Data().Chunk(0).(*array.String)
	for i := 0; i < names.Len(); i++ {
		if names.Value(i) != "z" {
			t.Errorf("row %d name = %q", i, names.Value(i))
		}
	}
}

func TestDropColumn(t *testing.T) {
	rec := sampleRecord(memory.DefaultAllocator)
	defer rec.Release()

	out, ok := DropColumn(rec, "Airport_fee")
	defer out.Release()
	if !ok || out.NumCols() != 2 || ColumnIndex(out.Schema(), "Airport_fee") != -1 {
		t.Errorf("drop: ok=%v schema=%s", ok, out.Schema())
	}

	same, ok := DropColumn(rec, "absent")
	defer same.Release()
	if ok || same.NumCols() != 3 {
		t.Errorf("absent column: ok=%v cols=%d", ok, same.NumCols())
	}
}

func TestTakeRowsReorders(t *testing.T) {
	mem := memory.DefaultAllocator
	tbl := sampleTable(mem)
	defer tbl.Release()

	rec, err := TakeRows(context.Background(), tbl, []int64{2, 0, 1}, mem)
	if err != nil {
		t.Fatalf("TakeRows: %v", err)
	}
	defer rec.Release()

	ids := rec.Column(0).(*array.Int64)
	want := []int64{30, 10, 20}
	for i, w := range want {
		if ids.Value(i) != w {
			t.Errorf("row %d id = %d, want %d", i, ids.Value(i), w)
		}
	}
	fees := rec.Column(2)
	if !fees.IsNull(0) || !fees.IsValid(2) {
		t.Error("null mask did not follow the rows")
	}
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 1, 3, 7, 45, 0, 0, time.UTC)
	for _, in := range []string{"2024-01-03 07:45:00", "2024-01-03T07:45:00", " 2024-01-03 07:45:00.000 "} {
		got, err := ParseTimestamp(in)
		if err != nil || !got.Equal(want) {
			t.Errorf("ParseTimestamp(%q) = %v, %v", in, got, err)
		}
	}
	late, err := ParseTimestamp("2024-01-07T23:30:00-05:00")
	if err != nil {
		t.Fatalf("ParseTimestamp with offset: %v", err)
	}
	if want := time.Date(2024, 1, 7, 23, 30, 0, 0, time.UTC); !late.Equal(want) {
		t.Errorf("offset timestamp = %s, want clock reading %s", late, want)
	}
	if _, err := ParseTimestamp("yesterday"); err == nil {
		t.Error("expected error")
	}
}

func TestWallClockStripsZone(t *testing.T) {
	dt := &arrow.TimestampType{Unit: arrow.Second, TimeZone: "America/New_York"}
	b := array.NewTimestampBuilder(memory.DefaultAllocator, dt)
	defer b.Release()
	// 2024-01-03 12:00 UTC is 07:00 in New York.
	b.Append(arrow.Timestamp(time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC).Unix()))
	b.AppendNull()
	arr := b.NewArray()
	defer arr.Release()

	times, valid, err := WallClock(arr)
	if err != nil {
		t.Fatalf("WallClock: %v", err)
	}
	if !valid[0] || valid[1] {
		t.Errorf("valid = %v", valid)
	}
	if want := time.Date(2024, 1, 3, 7, 0, 0, 0, time.UTC); !times[0].Equal(want) {
		t.Errorf("wall clock = %s, want %s", times[0], want)
	}
}

func TestColumnEditsReleaseEveryBuffer(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	tbl := sampleTable(mem)
	renamed, err := RenameColumns(tbl, map[string]string{"name": "label"})
	if err != nil {
		t.Fatalf("RenameColumns: %v", err)
	}
	tagged := SetConstantString(renamed, "kind", "green", mem)
	replaced := SetConstantString(tagged, "label", "z", mem)

	replaced.Release()
	tagged.Release()
	renamed.Release()
	tbl.Release()
}
