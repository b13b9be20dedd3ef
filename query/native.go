package query

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vegasq/parqview/table"
)

// ctxCheckInterval is how many rows are scanned between context checks.
const ctxCheckInterval = 4096

// NativeEngine evaluates the supported SELECT subset directly over the table,
// without copying it into another database.
type NativeEngine struct{}

// Name implements Engine.
func (NativeEngine) Name() string { return EngineNative }

// Execute implements Engine.
func (NativeEngine) Execute(ctx context.Context, t *table.Table, relation, sql string) (*table.Table, error) {
	stmt, err := Parse(sql)
	if err != nil {
		return nil, err
	}
	return ExecuteStatement(ctx, stmt, t, relation)
}

// tableRow exposes row i of a table to expressions.
type tableRow struct {
	t     *table.Table
	index map[string]int
	i     int
}

func (r *tableRow) Get(column string) (interface{}, bool) {
	c, ok := r.index[column]
	if !ok {
		return nil, false
	}
	return r.t.Value(r.i, c), true
}

// ExecuteStatement runs a parsed statement against t registered as relation.
// The input table is never modified.
func ExecuteStatement(ctx context.Context, stmt *Statement, t *table.Table, relation string) (*table.Table, error) {
	if !strings.EqualFold(stmt.Table, relation) {
		return nil, &UnknownTableError{Table: stmt.Table}
	}

	index := make(map[string]int, t.NumColumns())
	for i, name := range t.ColumnNames() {
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	columns, outputs, err := projection(stmt, t, index)
	if err != nil {
		return nil, err
	}
	if stmt.Filter != nil {
		for _, c := range stmt.Filter.Columns() {
			if _, ok := index[c]; !ok {
				return nil, &UnknownColumnError{Column: c}
			}
		}
	}
	orderBy, err := resolveOrderBy(stmt.OrderBy, stmt.Columns, index)
	if err != nil {
		return nil, err
	}

	rows, err := filterRows(ctx, t, index, stmt.Filter)
	if err != nil {
		return nil, err
	}
	sortRows(t, rows, orderBy)

	if stmt.Distinct {
		rows = distinctRows(t, rows, columns, index)
	}
	rows = applyLimitOffset(rows, stmt.Limit, stmt.Offset)

	result, err := t.Take(rows)
	if err != nil {
		return nil, err
	}
	if result, err = result.Select(columns); err != nil {
		return nil, err
	}
	return result.Rename(table.UniqueNames(outputs))
}

// projection returns the source columns and output names of the select list.
func projection(stmt *Statement, t *table.Table, index map[string]int) ([]string, []string, error) {
	if len(stmt.Columns) == 0 {
		names := t.ColumnNames()
		return names, names, nil
	}

	columns := make([]string, len(stmt.Columns))
	outputs := make([]string, len(stmt.Columns))
	for i, item := range stmt.Columns {
		if _, ok := index[item.Column]; !ok {
			return nil, nil, &UnknownColumnError{Column: item.Column}
		}
		columns[i] = item.Column
		outputs[i] = item.OutputName()
	}
	return columns, outputs, nil
}

// resolveOrderBy maps ORDER BY keys naming a select-list alias back to the
// source column.
func resolveOrderBy(items []OrderByItem, selectList []SelectItem, index map[string]int) ([]OrderByItem, error) {
	resolved := make([]OrderByItem, len(items))
	for i, item := range items {
		for _, s := range selectList {
			if s.Alias != "" && s.Alias == item.Column {
				item.Column = s.Column
				break
			}
		}
		if _, ok := index[item.Column]; !ok {
			return nil, &UnknownColumnError{Column: item.Column}
		}
		resolved[i] = item
	}
	return resolved, nil
}

// filterRows returns the indices of rows for which filter is True.
func filterRows(ctx context.Context, t *table.Table, index map[string]int, filter Expression) ([]int, error) {
	n := t.NumRows()
	rows := make([]int, 0, n)
	row := &tableRow{t: t, index: index}

	for i := 0; i < n; i++ {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if filter == nil {
			rows = append(rows, i)
			continue
		}
		row.i = i
		match, err := filter.Evaluate(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if match == True {
			rows = append(rows, i)
		}
	}
	return rows, nil
}

func sortRows(t *table.Table, rows []int, orderBy []OrderByItem) {
	if len(rows) == 0 || len(orderBy) == 0 {
		return
	}

	cols := make([]int, len(orderBy))
	for i, item := range orderBy {
		cols[i] = t.ColumnIndex(item.Column)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		for k, item := range orderBy {
			cmp := compareValues(t.Value(rows[i], cols[k]), t.Value(rows[j], cols[k]))
			if cmp == 0 {
				continue
			}
			if item.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

// distinctRows keeps the first row of each distinct projected value tuple.
func distinctRows(t *table.Table, rows []int, columns []string, index map[string]int) []int {
	cols := make([]int, len(columns))
	for i, name := range columns {
		cols[i] = index[name]
	}

	seen := make(map[string]struct{}, len(rows))
	distinct := make([]int, 0, len(rows))
	for _, r := range rows {
		var key strings.Builder
		for i, c := range cols {
			if i > 0 {
				key.WriteString("\x00||\x00") // unlikely separator to avoid collisions
			}
			fmt.Fprintf(&key, "%#v", t.Value(r, c))
		}
		if _, ok := seen[key.String()]; ok {
			continue
		}
		seen[key.String()] = struct{}{}
		distinct = append(distinct, r)
	}
	return distinct
}

// applyLimitOffset applies OFFSET then LIMIT to the selected rows.
func applyLimitOffset(rows []int, limit, offset *int64) []int {
	start := int64(0)
	if offset != nil && *offset > 0 {
		start = *offset
	}
	if start >= int64(len(rows)) {
		return nil
	}

	end := int64(len(rows))
	if limit != nil && *limit < end-start {
		end = start + *limit
	}
	return rows[start:end]
}
