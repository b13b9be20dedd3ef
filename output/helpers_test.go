package output

import (
	"math"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/vegasq/parqview/table"
)

// peopleTable has columns z_id, name, score, seen, deliberately not in
// alphabetical order.
func peopleTable(t *testing.T) *table.Table {
	t.Helper()
	b := table.NewBuilder([]table.Field{
		{Name: "z_id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "score", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		{Name: "seen", Type: &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}, Nullable: true},
	})
	rows := [][]interface{}{
		{int64(1), "alice", 95.5, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		{int64(2), nil, math.NaN(), nil},
		{int64(3), "=SUM(A1)", nil, nil},
	}
	for _, r := range rows {
		if err := b.Append(r); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	return b.Build()
}

func emptyTable(t *testing.T) *table.Table {
	t.Helper()
	return table.NewBuilder([]table.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "name", Type: arrow.BinaryTypes.String},
	}).Build()
}
