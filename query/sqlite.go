package query

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/vegasq/parqview/table"
)

// SQLiteEngine runs queries on an embedded SQLite database. Every call copies
// the table into a private in-memory database that is discarded afterwards.
type SQLiteEngine struct{}

// Name implements Engine.
func (SQLiteEngine) Name() string { return EngineSQLite }

// Execute implements Engine.
func (SQLiteEngine) Execute(ctx context.Context, t *table.Table, relation, query string) (*table.Table, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	defer func() { _ = db.Close() }()

	// Each connection to ":memory:" is its own database.
	db.SetMaxOpenConns(1)

	if err := loadTable(ctx, db, t, relation); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanResult(rows, t)
}

// loadTable creates relation with one column per table column and copies
// every row into it inside a single transaction.
func loadTable(ctx context.Context, db *sql.DB, t *table.Table, relation string) error {
	fields := t.Fields()
	if err := checkColumnCase(fields); err != nil {
		return err
	}

	defs := make([]string, len(fields))
	names := make([]string, len(fields))
	marks := make([]string, len(fields))
	for i, f := range fields {
		names[i] = quoteIdent(f.Name)
		defs[i] = names[i] + " " + sqliteType(f.Type)
		marks[i] = "?"
	}

	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(relation), strings.Join(defs, ", "))
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	if t.NumRows() == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin load: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(relation), strings.Join(names, ", "), strings.Join(marks, ", "))
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("failed to prepare load: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	args := make([]interface{}, len(fields))
	for i := 0; i < t.NumRows(); i++ {
		for c, f := range fields {
			args[c] = sqliteValue(f.Type, t.Value(i, c))
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to load row %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// sqliteType returns the declared column type for an arrow type. Dates and
// timestamps are stored as ISO 8601 text, which SQLite's date functions
// understand.
func sqliteType(dt arrow.DataType) string {
	switch dt.ID() {
	case arrow.BOOL, arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return "INTEGER"
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64:
		return "REAL"
	case arrow.BINARY, arrow.LARGE_BINARY, arrow.FIXED_SIZE_BINARY:
		return "BLOB"
	default:
		return "TEXT"
	}
}

func sqliteValue(dt arrow.DataType, v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case bool:
		if val {
			return int64(1)
		}
		return int64(0)
	case uint64:
		if val > math.MaxInt64 {
			return float64(val)
		}
		return int64(val)
	case float32:
		if math.IsNaN(float64(val)) {
			return nil
		}
		return float64(val)
	case float64:
		if math.IsNaN(val) {
			return nil
		}
		return val
	case time.Time:
		if dt.ID() == arrow.DATE32 || dt.ID() == arrow.DATE64 {
			return val.UTC().Format("2006-01-02")
		}
		return val.UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}

// scanResult reads all result rows into a table. Result columns that are
// plain references to a source column keep that column's type; computed
// columns get a type inferred from their values.
func scanResult(rows *sql.Rows, src *table.Table) (*table.Table, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	var data [][]interface{}
	for rows.Next() {
		values := make([]interface{}, len(names))
		ptrs := make([]interface{}, len(names))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		data = append(data, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if t, err := buildResult(sourceFields(names, types, src, data), data); err == nil {
		return t, nil
	}
	return buildResult(inferFields(names, data), data)
}

func buildResult(fields []table.Field, data [][]interface{}) (*table.Table, error) {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	for i, name := range table.UniqueNames(names) {
		fields[i].Name = name
	}

	b := table.NewBuilder(fields)
	for _, row := range data {
		if err := b.Append(row); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

func sourceFields(names []string, types []*sql.ColumnType, src *table.Table, data [][]interface{}) []table.Field {
	inferred := inferFields(names, data)
	fields := make([]table.Field, len(names))
	for i, name := range names {
		fields[i] = inferred[i]
		if types[i].DatabaseTypeName() == "" {
			continue
		}
		if idx := src.ColumnIndex(name); idx >= 0 {
			f := src.Field(idx)
			f.Nullable = true
			fields[i] = f
		}
	}
	return fields
}

// valueKind orders the dynamic SQLite value types so mixed columns widen to
// the most general one.
type valueKind int

const (
	kindNull valueKind = iota
	kindInteger
	kindReal
	kindBlob
	kindText
)

func inferFields(names []string, data [][]interface{}) []table.Field {
	fields := make([]table.Field, len(names))
	for c, name := range names {
		kind := kindNull
		for _, row := range data {
			k := kindOf(row[c])
			if k == kindBlob && kind != kindNull && kind != kindBlob {
				k = kindText
			} else if kind == kindBlob && k != kindNull && k != kindBlob {
				k = kindText
			}
			if k > kind {
				kind = k
			}
		}

		f := table.Field{Name: name, Nullable: true}
		switch kind {
		case kindInteger:
			f.Type = arrow.PrimitiveTypes.Int64
		case kindReal:
			f.Type = arrow.PrimitiveTypes.Float64
		case kindBlob:
			f.Type = arrow.BinaryTypes.Binary
		default:
			f.Type = arrow.BinaryTypes.String
		}
		fields[c] = f
	}
	return fields
}

func kindOf(v interface{}) valueKind {
	switch v.(type) {
	case nil:
		return kindNull
	case int64, int, int32, bool:
		return kindInteger
	case float64, float32:
		return kindReal
	case []byte:
		return kindBlob
	default:
		return kindText
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// checkColumnCase rejects tables whose column names collide under SQLite's
// ASCII case-insensitive identifier matching.
func checkColumnCase(fields []table.Field) error {
	seen := make(map[string]string, len(fields))
	for _, f := range fields {
		key := strings.Map(asciiLower, f.Name)
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("columns %q and %q differ only in case; use the native engine", prev, f.Name)
		}
		seen[key] = f.Name
	}
	return nil
}

func asciiLower(r rune) rune {
	if 'A' <= r && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}
