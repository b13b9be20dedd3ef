// Package table provides the in-memory columnar table shared by the loader,
// the query engines and the summarizer.
//
// A Table is an Apache Arrow record plus per-column metadata describing where
// each column came from (the Parquet physical and logical types). All columns
// of a table have the same length.
package table

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// ErrUnknownColumn is returned when a column name does not exist in a table.
var ErrUnknownColumn = errors.New("unknown column")

// Field describes a single column of a table.
type Field struct {
	Name         string
	Type         arrow.DataType
	Nullable     bool
	PhysicalType string
	LogicalType  string
}

// ColumnSchema is the serializable description of a column.
type ColumnSchema struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Nullable     bool   `json:"nullable"`
	PhysicalType string `json:"physical_type,omitempty"`
	LogicalType  string `json:"logical_type,omitempty"`
}

// Table is an immutable set of equally long, named, typed columns.
type Table struct {
	fields []Field
	record arrow.Record
}

// New wraps an arrow record. The fields must describe the record's columns in
// order.
func New(fields []Field, record arrow.Record) (*Table, error) {
	if record == nil {
		return nil, errors.New("table: nil record")
	}
	if int64(len(fields)) != record.NumCols() {
		return nil, fmt.Errorf("table: %d fields for %d columns", len(fields), record.NumCols())
	}
	return &Table{fields: append([]Field(nil), fields...), record: record}, nil
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	return int(t.record.NumRows())
}

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int {
	return len(t.fields)
}

// Fields returns a copy of the column descriptions.
func (t *Table) Fields() []Field {
	return append([]Field(nil), t.fields...)
}

// Field returns the description of column i.
func (t *Table) Field(i int) Field {
	return t.fields[i]
}

// Schema returns the serializable schema of the table.
func (t *Table) Schema() []ColumnSchema {
	schema := make([]ColumnSchema, len(t.fields))
	for i, f := range t.fields {
		schema[i] = ColumnSchema{
			Name:         f.Name,
			Type:         f.Type.String(),
			Nullable:     f.Nullable,
			PhysicalType: f.PhysicalType,
			LogicalType:  f.LogicalType,
		}
	}
	return schema
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.fields))
	for i, f := range t.fields {
		names[i] = f.Name
	}
	return names
}

// ColumnIndex returns the index of the named column or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, f := range t.fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Column returns the arrow array backing column i.
func (t *Table) Column(i int) arrow.Array {
	return t.record.Column(i)
}

// Record returns the underlying arrow record.
func (t *Table) Record() arrow.Record {
	return t.record
}

// Value returns the Go value of a single cell, or nil for a null cell.
func (t *Table) Value(row, col int) interface{} {
	return cellValue(t.record.Column(col), row)
}

// Row returns a single row as a map keyed by column name. Values are made
// safe for JSON encoding: NaN and infinite floats become nil.
func (t *Table) Row(i int) map[string]interface{} {
	row := make(map[string]interface{}, len(t.fields))
	for c, f := range t.fields {
		row[f.Name] = jsonSafe(cellValue(t.record.Column(c), i))
	}
	return row
}

// RowValues returns row i in column order, made JSON safe like Row.
func (t *Table) RowValues(i int) []interface{} {
	values := make([]interface{}, len(t.fields))
	for c := range t.fields {
		values[c] = jsonSafe(cellValue(t.record.Column(c), i))
	}
	return values
}

// Rows returns every row of the table. See Row.
func (t *Table) Rows() []map[string]interface{} {
	n := t.NumRows()
	rows := make([]map[string]interface{}, n)
	for i := 0; i < n; i++ {
		rows[i] = t.Row(i)
	}
	return rows
}

// Slice returns the rows in [offset, offset+limit). A negative limit means
// "to the end". Out of range bounds are clamped.
func (t *Table) Slice(offset, limit int) *Table {
	n := t.NumRows()
	if offset < 0 {
		offset = 0
	}
	if offset > n {
		offset = n
	}
	end := n
	if limit >= 0 && offset+limit < n {
		end = offset + limit
	}
	return &Table{fields: t.fields, record: t.record.NewSlice(int64(offset), int64(end))}
}

// Select returns a table holding only the named columns, in the given order.
func (t *Table) Select(names []string) (*Table, error) {
	fields := make([]Field, 0, len(names))
	cols := make([]arrow.Array, 0, len(names))
	for _, name := range names {
		idx := t.ColumnIndex(name)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
		}
		fields = append(fields, t.fields[idx])
		cols = append(cols, t.record.Column(idx))
	}
	return fromArrays(fields, cols, t.record.NumRows()), nil
}

// Rename returns a table with the same data and new column names.
func (t *Table) Rename(names []string) (*Table, error) {
	if len(names) != len(t.fields) {
		return nil, fmt.Errorf("table: %d names for %d columns", len(names), len(t.fields))
	}
	fields := t.Fields()
	for i := range fields {
		fields[i].Name = names[i]
	}
	return fromArrays(fields, t.record.Columns(), t.record.NumRows()), nil
}

// UniqueNames returns names with repeated entries suffixed "_1", "_2", ...
// The first occurrence keeps its name and no suffix collides with another
// input name.
func UniqueNames(names []string) []string {
	taken := make(map[string]bool, len(names))
	for _, n := range names {
		taken[n] = true
	}
	emitted := make(map[string]bool, len(names))
	out := make([]string, len(names))
	for i, n := range names {
		if !emitted[n] {
			emitted[n] = true
			out[i] = n
			continue
		}
		for k := 1; ; k++ {
			candidate := fmt.Sprintf("%s_%d", n, k)
			if !taken[candidate] {
				taken[candidate] = true
				out[i] = candidate
				break
			}
		}
	}
	return out
}

// Take returns a new table holding the given rows in the given order.
func (t *Table) Take(indices []int) (*Table, error) {
	b := NewBuilder(t.fields)
	values := make([]interface{}, len(t.fields))
	for _, idx := range indices {
		if idx < 0 || idx >= t.NumRows() {
			return nil, fmt.Errorf("table: row %d out of range [0, %d)", idx, t.NumRows())
		}
		for c := range t.fields {
			values[c] = t.Value(idx, c)
		}
		if err := b.Append(values); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

// Release releases the arrow memory held by the table.
func (t *Table) Release() {
	if t.record != nil {
		t.record.Release()
	}
}

func fromArrays(fields []Field, cols []arrow.Array, rows int64) *Table {
	return &Table{
		fields: fields,
		record: array.NewRecord(arrowSchema(fields), cols, rows),
	}
}

func arrowSchema(fields []Field) *arrow.Schema {
	af := make([]arrow.Field, len(fields))
	for i, f := range fields {
		af[i] = arrow.Field{Name: f.Name, Type: f.Type, Nullable: f.Nullable}
	}
	return arrow.NewSchema(af, nil)
}

// IsNumeric reports whether an arrow type is an integer or floating point
// type.
func IsNumeric(dt arrow.DataType) bool {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64,
		arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64:
		return true
	default:
		return false
	}
}

func jsonSafe(v interface{}) interface{} {
	switch val := v.(type) {
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil
		}
	case float32:
		if math.IsNaN(float64(val)) || math.IsInf(float64(val), 0) {
			return nil
		}
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	}
	return v
}
