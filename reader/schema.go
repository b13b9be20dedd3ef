package reader

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/format"
)

// SchemaInfo represents metadata about a single column in a Parquet file.
type SchemaInfo struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	PhysicalType string `json:"physical_type"`
	LogicalType  string `json:"logical_type"`
	Required     bool   `json:"required"`
	Optional     bool   `json:"optional"`
	Repeated     bool   `json:"repeated"`
}

// ExtractSchemaInfo extracts schema information from a Parquet file.
//
// For nested types, field names use dot notation (e.g., "address.street").
func ExtractSchemaInfo(path string) ([]SchemaInfo, error) {
	r, err := NewReader(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	return r.SchemaInfo(), nil
}

// schemaInfoOf flattens a parquet schema into one SchemaInfo per leaf column.
func schemaInfoOf(schema *parquet.Schema) []SchemaInfo {
	var infos []SchemaInfo
	for _, field := range schema.Fields() {
		infos = append(infos, fieldInfo(field, "", false)...)
	}
	return infos
}

// fieldInfo recursively extracts schema information from a field, tracking
// whether any parent field is repeated.
func fieldInfo(field parquet.Field, prefix string, parentRepeated bool) []SchemaInfo {
	name := field.Name()
	if prefix != "" {
		name = prefix + "." + name
	}
	repeated := parentRepeated || field.Repeated()

	if children := field.Fields(); len(children) > 0 {
		var infos []SchemaInfo
		for _, child := range children {
			infos = append(infos, fieldInfo(child, name, repeated)...)
		}
		return infos
	}

	return []SchemaInfo{{
		Name:         name,
		Type:         friendlyType(field),
		PhysicalType: physicalType(field),
		LogicalType:  logicalType(field),
		Required:     field.Required(),
		Optional:     field.Optional(),
		Repeated:     repeated,
	}}
}

func physicalType(node parquet.Node) string {
	if node.Type() == nil {
		return "GROUP"
	}

	switch node.Type().Kind() {
	case parquet.Boolean:
		return "BOOLEAN"
	case parquet.Int32:
		return "INT32"
	case parquet.Int64:
		return "INT64"
	case parquet.Int96:
		return "INT96"
	case parquet.Float:
		return "FLOAT"
	case parquet.Double:
		return "DOUBLE"
	case parquet.ByteArray:
		return "BYTE_ARRAY"
	case parquet.FixedLenByteArray:
		return "FIXED_LEN_BYTE_ARRAY"
	default:
		return "UNKNOWN"
	}
}

func logicalType(node parquet.Node) string {
	if node.Type() == nil {
		return ""
	}
	lt := node.Type().LogicalType()
	if lt == nil {
		return ""
	}
	return lt.String()
}

// friendlyType converts Parquet's physical and logical types into simpler
// type names for end users.
func friendlyType(node parquet.Node) string {
	if node.Type() == nil {
		return "GROUP"
	}

	if lt := node.Type().LogicalType(); lt != nil {
		switch {
		case lt.UTF8 != nil:
			return "STRING"
		case lt.Enum != nil:
			return "ENUM"
		case lt.UUID != nil:
			return "UUID"
		case lt.Date != nil:
			return "DATE"
		case lt.Time != nil:
			return "TIME"
		case lt.Timestamp != nil:
			return "TIMESTAMP"
		case lt.Decimal != nil:
			return "DECIMAL"
		case lt.Json != nil:
			return "JSON"
		case lt.Bson != nil:
			return "BSON"
		case lt.Integer != nil:
			sign := "INT"
			if !lt.Integer.IsSigned {
				sign = "UINT"
			}
			return fmt.Sprintf("%s%d", sign, lt.Integer.BitWidth)
		}
	}

	switch node.Type().Kind() {
	case parquet.Float:
		return "FLOAT32"
	case parquet.Double:
		return "FLOAT64"
	default:
		return physicalType(node)
	}
}

// arrowType maps a leaf column to the arrow type used to hold it in memory.
// Repeated leaves are held as the JSON text of their list.
func arrowType(leaf parquet.LeafColumn) arrow.DataType {
	if leaf.MaxRepetitionLevel > 0 {
		return arrow.BinaryTypes.String
	}

	node := leaf.Node
	lt := node.Type().LogicalType()

	switch node.Type().Kind() {
	case parquet.Boolean:
		return arrow.FixedWidthTypes.Boolean
	case parquet.Int32:
		if lt != nil {
			switch {
			case lt.Date != nil:
				return arrow.FixedWidthTypes.Date32
			case lt.Decimal != nil:
				return arrow.BinaryTypes.String
			case lt.Integer != nil:
				return intType(lt.Integer)
			}
		}
		return arrow.PrimitiveTypes.Int32
	case parquet.Int64:
		if lt != nil {
			switch {
			case lt.Timestamp != nil:
				return timestampType(lt.Timestamp)
			case lt.Decimal != nil:
				return arrow.BinaryTypes.String
			case lt.Integer != nil:
				return intType(lt.Integer)
			}
		}
		return arrow.PrimitiveTypes.Int64
	case parquet.Int96:
		return &arrow.TimestampType{Unit: arrow.Nanosecond}
	case parquet.Float:
		return arrow.PrimitiveTypes.Float32
	case parquet.Double:
		return arrow.PrimitiveTypes.Float64
	case parquet.ByteArray, parquet.FixedLenByteArray:
		if lt != nil && (lt.UTF8 != nil || lt.Enum != nil || lt.Json != nil || lt.UUID != nil || lt.Decimal != nil) {
			return arrow.BinaryTypes.String
		}
		return arrow.BinaryTypes.Binary
	default:
		return arrow.BinaryTypes.String
	}
}

func intType(it *format.IntType) arrow.DataType {
	switch {
	case it.IsSigned && it.BitWidth == 8:
		return arrow.PrimitiveTypes.Int8
	case it.IsSigned && it.BitWidth == 16:
		return arrow.PrimitiveTypes.Int16
	case it.IsSigned && it.BitWidth == 32:
		return arrow.PrimitiveTypes.Int32
	case it.IsSigned:
		return arrow.PrimitiveTypes.Int64
	case it.BitWidth == 8:
		return arrow.PrimitiveTypes.Uint8
	case it.BitWidth == 16:
		return arrow.PrimitiveTypes.Uint16
	case it.BitWidth == 32:
		return arrow.PrimitiveTypes.Uint32
	default:
		return arrow.PrimitiveTypes.Uint64
	}
}

func timestampType(ts *format.TimestampType) arrow.DataType {
	unit := arrow.Microsecond
	switch {
	case ts.Unit.Millis != nil:
		unit = arrow.Millisecond
	case ts.Unit.Nanos != nil:
		unit = arrow.Nanosecond
	}
	tz := ""
	if ts.IsAdjustedToUTC {
		tz = "UTC"
	}
	return &arrow.TimestampType{Unit: unit, TimeZone: tz}
}

func leafName(path []string) string {
	return strings.Join(path, ".")
}
