package reader

import (
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/deprecated"

	"github.com/vegasq/parqview/table"
)

// readBatchSize is the number of rows pulled from a row group per call.
const readBatchSize = 256

// julianUnixEpoch is the Julian day number of 1970-01-01.
const julianUnixEpoch = 2440588

type columnDecoder struct {
	field    table.Field
	repeated bool
	decode   func(parquet.Value) interface{}
}

func newDecoders(schema *parquet.Schema) ([]columnDecoder, error) {
	paths := schema.Columns()
	decoders := make([]columnDecoder, len(paths))
	for i, path := range paths {
		leaf, ok := schema.Lookup(path...)
		if !ok {
			return nil, fmt.Errorf("column %s missing from schema", leafName(path))
		}
		if leaf.ColumnIndex != i {
			return nil, fmt.Errorf("column %s has index %d, want %d", leafName(path), leaf.ColumnIndex, i)
		}
		dt := arrowType(leaf)
		decoders[i] = columnDecoder{
			field: table.Field{
				Name:         leafName(path),
				Type:         dt,
				Nullable:     leaf.MaxDefinitionLevel > 0,
				PhysicalType: physicalType(leaf.Node),
				LogicalType:  logicalType(leaf.Node),
			},
			repeated: leaf.MaxRepetitionLevel > 0,
			decode:   valueDecoder(leaf.Node, dt),
		}
	}
	return decoders, nil
}

// valueDecoder returns the function converting a non-null parquet value to
// the Go value accepted by the table builder for dt.
func valueDecoder(node parquet.Node, dt arrow.DataType) func(parquet.Value) interface{} {
	lt := node.Type().LogicalType()

	switch node.Type().Kind() {
	case parquet.Boolean:
		return func(v parquet.Value) interface{} { return v.Boolean() }
	case parquet.Int32:
		if lt != nil && lt.Decimal != nil {
			scale := int(lt.Decimal.Scale)
			return func(v parquet.Value) interface{} {
				return scaledString(big.NewInt(int64(v.Int32())), scale)
			}
		}
		if lt != nil && lt.Integer != nil && !lt.Integer.IsSigned {
			return func(v parquet.Value) interface{} { return uint64(uint32(v.Int32())) }
		}
		return func(v parquet.Value) interface{} { return int64(v.Int32()) }
	case parquet.Int64:
		if lt != nil && lt.Decimal != nil {
			scale := int(lt.Decimal.Scale)
			return func(v parquet.Value) interface{} {
				return scaledString(big.NewInt(v.Int64()), scale)
			}
		}
		if lt != nil && lt.Integer != nil && !lt.Integer.IsSigned {
			return func(v parquet.Value) interface{} { return uint64(v.Int64()) }
		}
		return func(v parquet.Value) interface{} { return v.Int64() }
	case parquet.Int96:
		return func(v parquet.Value) interface{} { return int96Time(v.Int96()) }
	case parquet.Float:
		return func(v parquet.Value) interface{} { return v.Float() }
	case parquet.Double:
		return func(v parquet.Value) interface{} { return v.Double() }
	case parquet.ByteArray, parquet.FixedLenByteArray:
		switch {
		case lt != nil && lt.UUID != nil:
			return func(v parquet.Value) interface{} {
				id, err := uuid.FromBytes(v.ByteArray())
				if err != nil {
					return string(v.ByteArray())
				}
				return id.String()
			}
		case lt != nil && lt.Decimal != nil:
			scale := int(lt.Decimal.Scale)
			return func(v parquet.Value) interface{} { return decimalString(v.ByteArray(), scale) }
		case dt.ID() == arrow.STRING:
			return func(v parquet.Value) interface{} { return string(v.ByteArray()) }
		default:
			return func(v parquet.Value) interface{} { return append([]byte(nil), v.ByteArray()...) }
		}
	default:
		return func(v parquet.Value) interface{} { return v.String() }
	}
}

// int96Time converts a legacy INT96 timestamp (nanoseconds of day followed by
// a Julian day number) to a time.
func int96Time(v deprecated.Int96) time.Time {
	nanos := int64(uint64(v[1])<<32 | uint64(v[0]))
	days := int64(v[2]) - julianUnixEpoch
	return time.Unix(days*86400, nanos).UTC()
}

// decimalString renders a big-endian two's complement unscaled decimal.
func decimalString(b []byte, scale int) string {
	n := new(big.Int).SetBytes(b)
	if len(b) > 0 && b[0]&0x80 != 0 {
		n.Sub(n, new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8)))
	}
	return scaledString(n, scale)
}

// scaledString renders unscaled / 10^scale with exactly scale fraction digits.
func scaledString(unscaled *big.Int, scale int) string {
	den := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(scale)), nil)
	return new(big.Rat).SetFrac(unscaled, den).FloatString(scale)
}

// decodeFile reads every row group of f into a table.
func decodeFile(f *parquet.File) (*table.Table, error) {
	decoders, err := newDecoders(f.Schema())
	if err != nil {
		return nil, err
	}

	fields := make([]table.Field, len(decoders))
	for i, d := range decoders {
		fields[i] = d.field
	}
	b := table.NewBuilder(fields)

	values := make([]interface{}, len(decoders))
	lists := make([][]interface{}, len(decoders))
	buf := make([]parquet.Row, readBatchSize)

	for _, rg := range f.RowGroups() {
		if err := decodeRowGroup(rg, b, decoders, buf, values, lists); err != nil {
			return nil, err
		}
	}

	return b.Build(), nil
}

func decodeRowGroup(rg parquet.RowGroup, b *table.Builder, decoders []columnDecoder, buf []parquet.Row, values []interface{}, lists [][]interface{}) error {
	rows := rg.Rows()
	defer func() { _ = rows.Close() }()

	for {
		n, err := rows.ReadRows(buf)
		for _, row := range buf[:n] {
			if appendErr := appendRow(b, decoders, row, values, lists); appendErr != nil {
				return appendErr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read row: %w", err)
		}
	}
}

func appendRow(b *table.Builder, decoders []columnDecoder, row parquet.Row, values []interface{}, lists [][]interface{}) error {
	for i := range values {
		values[i] = nil
		lists[i] = lists[i][:0]
	}

	for _, v := range row {
		c := v.Column()
		if c < 0 || c >= len(decoders) || v.IsNull() {
			continue
		}
		d := decoders[c]
		if d.repeated {
			lists[c] = append(lists[c], d.decode(v))
			continue
		}
		values[c] = d.decode(v)
	}

	for i, d := range decoders {
		if !d.repeated || len(lists[i]) == 0 {
			continue
		}
		text, err := json.Marshal(lists[i])
		if err != nil {
			return fmt.Errorf("column %s: %w", d.field.Name, err)
		}
		values[i] = string(text)
	}

	return b.Append(values)
}
