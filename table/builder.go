package table

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Builder accumulates rows of Go values into a Table.
type Builder struct {
	fields []Field
	rb     *array.RecordBuilder
}

// NewBuilder creates a builder for the given columns.
func NewBuilder(fields []Field) *Builder {
	fields = append([]Field(nil), fields...)
	return &Builder{
		fields: fields,
		rb:     array.NewRecordBuilder(memory.NewGoAllocator(), arrowSchema(fields)),
	}
}

// Append adds one row. values[i] is the value of column i; nil appends null.
func (b *Builder) Append(values []interface{}) error {
	if len(values) != len(b.fields) {
		return fmt.Errorf("table: row has %d values, want %d", len(values), len(b.fields))
	}
	for i, v := range values {
		if err := appendValue(b.rb.Field(i), v); err != nil {
			return fmt.Errorf("column %s: %w", b.fields[i].Name, err)
		}
	}
	return nil
}

// Build returns the accumulated table. The builder is reset and can be
// reused.
func (b *Builder) Build() *Table {
	return &Table{fields: b.fields, record: b.rb.NewRecord()}
}

func appendValue(ab array.Builder, v interface{}) error {
	if v == nil {
		ab.AppendNull()
		return nil
	}

	switch b := ab.(type) {
	case *array.BooleanBuilder:
		if val, ok := v.(bool); ok {
			b.Append(val)
			return nil
		}
		if n, ok := toInt64(v); ok {
			b.Append(n != 0)
			return nil
		}
	case *array.Int8Builder:
		if n, ok := toInt64(v); ok && n >= math.MinInt8 && n <= math.MaxInt8 {
			b.Append(int8(n))
			return nil
		}
	case *array.Int16Builder:
		if n, ok := toInt64(v); ok && n >= math.MinInt16 && n <= math.MaxInt16 {
			b.Append(int16(n))
			return nil
		}
	case *array.Int32Builder:
		if n, ok := toInt64(v); ok && n >= math.MinInt32 && n <= math.MaxInt32 {
			b.Append(int32(n))
			return nil
		}
	case *array.Int64Builder:
		if n, ok := toInt64(v); ok {
			b.Append(n)
			return nil
		}
	case *array.Uint8Builder:
		if n, ok := toUint64(v); ok && n <= math.MaxUint8 {
			b.Append(uint8(n))
			return nil
		}
	case *array.Uint16Builder:
		if n, ok := toUint64(v); ok && n <= math.MaxUint16 {
			b.Append(uint16(n))
			return nil
		}
	case *array.Uint32Builder:
		if n, ok := toUint64(v); ok && n <= math.MaxUint32 {
			b.Append(uint32(n))
			return nil
		}
	case *array.Uint64Builder:
		if n, ok := toUint64(v); ok {
			b.Append(n)
			return nil
		}
	case *array.Float32Builder:
		if f, ok := ToFloat64(v); ok {
			b.Append(float32(f))
			return nil
		}
	case *array.Float64Builder:
		if f, ok := ToFloat64(v); ok {
			b.Append(f)
			return nil
		}
	case *array.StringBuilder:
		switch val := v.(type) {
		case string:
			b.Append(val)
		case []byte:
			b.Append(string(val))
		case time.Time:
			b.Append(val.UTC().Format(time.RFC3339Nano))
		default:
			b.Append(fmt.Sprint(val))
		}
		return nil
	case *array.BinaryBuilder:
		switch val := v.(type) {
		case []byte:
			b.Append(val)
			return nil
		case string:
			b.Append([]byte(val))
			return nil
		}
	case *array.TimestampBuilder:
		unit := b.Type().(*arrow.TimestampType).Unit
		switch val := v.(type) {
		case time.Time:
			ts, err := arrow.TimestampFromTime(val, unit)
			if err != nil {
				return err
			}
			b.Append(ts)
			return nil
		case string:
			t, err := time.Parse(time.RFC3339Nano, val)
			if err != nil {
				return fmt.Errorf("invalid timestamp %q: %w", val, err)
			}
			ts, err := arrow.TimestampFromTime(t, unit)
			if err != nil {
				return err
			}
			b.Append(ts)
			return nil
		}
		if n, ok := toInt64(v); ok {
			b.Append(arrow.Timestamp(n))
			return nil
		}
	case *array.Date32Builder:
		switch val := v.(type) {
		case time.Time:
			b.Append(arrow.Date32FromTime(val))
			return nil
		case string:
			t, err := parseDate(val)
			if err != nil {
				return err
			}
			b.Append(arrow.Date32FromTime(t))
			return nil
		}
		if n, ok := toInt64(v); ok && n >= math.MinInt32 && n <= math.MaxInt32 {
			b.Append(arrow.Date32(n))
			return nil
		}
	default:
		return fmt.Errorf("unsupported column type %s", ab.Type())
	}

	return fmt.Errorf("cannot store %T (%v) in %s column", v, v, ab.Type())
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// ToFloat64 converts any Go numeric value to float64.
func ToFloat64(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}

func toInt64(v interface{}) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int8:
		return int64(val), true
	case int16:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case uint:
		return int64(val), val <= math.MaxInt64
	case uint8:
		return int64(val), true
	case uint16:
		return int64(val), true
	case uint32:
		return int64(val), true
	case uint64:
		return int64(val), val <= math.MaxInt64
	case float64:
		if val == math.Trunc(val) && val >= math.MinInt64 && val <= math.MaxInt64 {
			return int64(val), true
		}
	case float32:
		f := float64(val)
		if f == math.Trunc(f) && f >= math.MinInt64 && f <= math.MaxInt64 {
			return int64(f), true
		}
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	case string:
		n, err := strconv.ParseInt(val, 10, 64)
		return n, err == nil
	}
	return 0, false
}

func toUint64(v interface{}) (uint64, bool) {
	switch val := v.(type) {
	case uint:
		return uint64(val), true
	case uint8:
		return uint64(val), true
	case uint16:
		return uint64(val), true
	case uint32:
		return uint64(val), true
	case uint64:
		return val, true
	}
	n, ok := toInt64(v)
	if !ok || n < 0 {
		return 0, false
	}
	return uint64(n), true
}
