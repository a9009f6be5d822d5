// Package columnar wraps the Arrow and parquet plumbing the pipeline uses:
// decoding a parquet payload into a table, column-level edits, row
// reordering and encoding record slices back to parquet.
package columnar

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/compute"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// ReadParquet decodes a whole parquet payload into an Arrow table.
func ReadParquet(ctx context.Context, payload []byte, mem memory.Allocator) (arrow.Table, error) {
	tbl, err := pqarrow.ReadTable(ctx, bytes.NewReader(payload),
		parquet.NewReaderProperties(mem), pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, fmt.Errorf("parquet: read table: %w", err)
	}
	return tbl, nil
}

// WriteParquet encodes a record as Snappy-compressed parquet into w.
func WriteParquet(rec arrow.Record, w io.Writer, rowGroupSize int64, mem memory.Allocator) error {
	tbl := array.NewTableFromRecords(rec.Schema(), []arrow.Record{rec})
	defer tbl.Release()

	if rowGroupSize <= 0 {
		rowGroupSize = rec.NumRows()
	}
	props := parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Snappy),
		parquet.WithAllocator(mem),
	)
	arrProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())
	if err := pqarrow.WriteTable(tbl, w, rowGroupSize, props, arrProps); err != nil {
		return fmt.Errorf("parquet: write table: %w", err)
	}
	return nil
}

// ColumnIndex returns the position of the first field called name, or -1.
func ColumnIndex(schema *arrow.Schema, name string) int {
	idx := schema.FieldIndices(name)
	if len(idx) == 0 {
		return -1
	}
	return idx[0]
}

// RenameColumns returns a table whose fields are renamed per renames
// (old → new). Every old name must exist. Schema-level metadata is dropped
// since it may describe the old names.
func RenameColumns(tbl arrow.Table, renames map[string]string) (arrow.Table, error) {
	schema := tbl.Schema()
	for from := range renames {
		if ColumnIndex(schema, from) < 0 {
			return nil, fmt.Errorf("column %q not found", from)
		}
	}

	fields := make([]arrow.Field, schema.NumFields())
	cols := make([]*arrow.Column, schema.NumFields())
	for i, f := range schema.Fields() {
		if to, ok := renames[f.Name]; ok {
			f.Name = to
		}
		fields[i] = f
		cols[i] = arrow.NewColumn(f, tbl.Column(i).Data())
	}
	return newTable(arrow.NewSchema(fields, nil), cols, tbl.NumRows()), nil
}

// newTable builds a table from cols and releases the caller's references.
func newTable(schema *arrow.Schema, cols []*arrow.Column, rows int64) arrow.Table {
	vals := make([]arrow.Column, len(cols))
	for i, c := range cols {
		vals[i] = *c
	}
	tbl := array.NewTable(schema, vals, rows)
	for _, c := range cols {
		c.Release()
	}
	return tbl
}

// SetConstantString returns a table with a non-null string column holding
// value on every row. An existing column with the same name is replaced in
// place; otherwise the column is appended.
func SetConstantString(tbl arrow.Table, name, value string, mem memory.Allocator) arrow.Table {
	b := array.NewStringBuilder(mem)
	defer b.Release()

	n := int(tbl.NumRows())
	b.Reserve(n)
	for i := 0; i < n; i++ {
		b.Append(value)
	}
	arr := b.NewArray()
	defer arr.Release()

	field := arrow.Field{Name: name, Type: arrow.BinaryTypes.String}
	chunked := arrow.NewChunked(field.Type, []arrow.Array{arr})
	defer chunked.Release()

	return putColumn(tbl, field, chunked)
}

// putColumn replaces the column called field.Name or appends it.
func putColumn(tbl arrow.Table, field arrow.Field, data *arrow.Chunked) arrow.Table {
	schema := tbl.Schema()
	pos := ColumnIndex(schema, field.Name)

	fields := make([]arrow.Field, 0, schema.NumFields()+1)
	cols := make([]*arrow.Column, 0, schema.NumFields()+1)
	for i, f := range schema.Fields() {
		if i == pos {
			fields = append(fields, field)
			cols = append(cols, arrow.NewColumn(field, data))
			continue
		}
		fields = append(fields, f)
		cols = append(cols, arrow.NewColumn(f, tbl.Column(i).Data()))
	}
	if pos < 0 {
		fields = append(fields, field)
		cols = append(cols, arrow.NewColumn(field, data))
	}

	md := schema.Metadata()
	return newTable(arrow.NewSchema(fields, &md), cols, tbl.NumRows())
}

// DropColumn returns rec without the named column. The second result is
// false (and rec is returned retained) when the column does not exist.
func DropColumn(rec arrow.Record, name string) (arrow.Record, bool) {
	pos := ColumnIndex(rec.Schema(), name)
	if pos < 0 {
		rec.Retain()
		return rec, false
	}

	fields := make([]arrow.Field, 0, rec.NumCols()-1)
	cols := make([]arrow.Array, 0, rec.NumCols()-1)
	for i, f := range rec.Schema().Fields() {
		if i == pos {
			continue
		}
		fields = append(fields, f)
		cols = append(cols, rec.Column(i))
	}
	md := rec.Schema().Metadata()
	return array.NewRecord(arrow.NewSchema(fields, &md), cols, rec.NumRows()), true
}

// TakeRows materializes tbl as a single record whose rows are tbl's rows in
// the order given by indices.
func TakeRows(ctx context.Context, tbl arrow.Table, indices []int64, mem memory.Allocator) (arrow.Record, error) {
	ib := array.NewInt64Builder(mem)
	ib.AppendValues(indices, nil)
	idx := ib.NewArray()
	ib.Release()
	defer idx.Release()

	ctx = compute.WithAllocator(ctx, mem)
	cols := make([]arrow.Array, 0, tbl.NumCols())
	release := func() {
		for _, c := range cols {
			c.Release()
		}
	}

	for i := 0; i < int(tbl.NumCols()); i++ {
		col := tbl.Column(i)
		if col.DataType().ID() == arrow.NULL {
			cols = append(cols, array.NewNull(len(indices)))
			continue
		}

		values, err := flatten(col.Data(), mem)
		if err != nil {
			release()
			return nil, fmt.Errorf("column %q: %w", col.Name(), err)
		}
		taken, err := compute.TakeArray(ctx, values, idx)
		values.Release()
		if err != nil {
			release()
			return nil, fmt.Errorf("column %q: take: %w", col.Name(), err)
		}
		cols = append(cols, taken)
	}

	rec := array.NewRecord(tbl.Schema(), cols, int64(len(indices)))
	release()
	return rec, nil
}

// flatten joins the chunks of a column into one array.
func flatten(data *arrow.Chunked, mem memory.Allocator) (arrow.Array, error) {
	switch len(data.Chunks()) {
	case 0:
		return array.MakeArrayOfNull(mem, data.DataType(), 0), nil
	case 1:
		arr := data.Chunk(0)
		arr.Retain()
		return arr, nil
	default:
		return array.Concatenate(data.Chunks(), mem)
	}
}
