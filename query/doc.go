// Package query runs SQL against an in-memory table.
//
// The table is registered under the relation name "data". Two engines are
// available behind the Engine interface:
//
//   - SQLiteEngine (the default) copies the table into a private in-memory
//     SQLite database per call and supports the full SQLite dialect.
//   - NativeEngine evaluates a SELECT subset directly over the table:
//
//     SELECT [DISTINCT] * | col [[AS] alias], ... FROM data
//     [WHERE expr] [ORDER BY col [ASC|DESC], ...] [LIMIT n] [OFFSET m]
//
//     where expr combines comparisons (=, !=, <>, <, >, <=, >=), IN, LIKE,
//     BETWEEN and IS [NOT] NULL with AND, OR, NOT and parentheses.
//
// Example usage:
//
//	engine, err := query.NewEngine("native")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	runner := query.NewRunner(engine, query.WithMaxRows(10000))
//	result, err := runner.Run(ctx, t, "SELECT a, b FROM data WHERE a > 1")
//	if errors.Is(err, query.ErrQuery) {
//	    // engine rejected the query
//	}
package query
