package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/spf13/cobra"

	"github.com/vegasq/parqview/output"
	"github.com/vegasq/parqview/query"
	"github.com/vegasq/parqview/reader"
	"github.com/vegasq/parqview/stats"
	"github.com/vegasq/parqview/table"
)

func newSchemaCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "schema <file.parquet>",
		Short: "Show the column schema of a parquet file",
		Long: `Show one line per leaf column. Nested fields use dot notation
(address.city). For a glob pattern the first matching file is used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := firstMatch(cmd, args[0])
			if err != nil {
				return err
			}
			infos, err := reader.ExtractSchemaInfo(path)
			if err != nil {
				return describeLoadError(path, err)
			}
			t, err := schemaTable(infos)
			if err != nil {
				return err
			}
			return write(cmd, format, t)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", output.FormatJSONL, "Output format: json, jsonl, csv, table")
	return cmd
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats <file.parquet|pattern>",
		Short: "Print per-column summary statistics as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := reader.ReadMultipleFiles(args[0])
			if err != nil {
				return describeLoadError(args[0], err)
			}
			return output.WriteJSON(cmd.OutOrStdout(), stats.Summarize(t))
		},
	}
	return cmd
}

func newQueryCmd() *cobra.Command {
	var (
		sql    string
		format string
		limit  int
		engine string
	)
	cmd := &cobra.Command{
		Use:   "query <file.parquet|pattern>",
		Short: "Print rows of a parquet file, optionally filtered by SQL",
		Long: `Print the rows of a parquet file. With -q, the file is registered as the
relation "data" and the query's result is printed instead. Glob patterns
read every matching file; rows then carry a "_file" column.`,
		Example: `  parqview query data.parquet
  parqview query -f csv --limit 10 data.parquet
  parqview query -q "SELECT * FROM data WHERE age > 30" data.parquet
  parqview query --engine native -q "SELECT name FROM data ORDER BY age DESC" "logs/*.parquet"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("--limit must be non-negative, got %d", limit)
			}
			formatter, err := output.NewFormatter(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			t, err := reader.ReadMultipleFiles(args[0])
			if err != nil {
				return describeLoadError(args[0], err)
			}

			if sql != "" {
				e, err := query.NewEngine(engine)
				if err != nil {
					return err
				}
				res, err := query.NewRunner(e).Run(cmd.Context(), t, sql)
				if err != nil {
					return err
				}
				t = res.Table
			}

			if limit > 0 {
				t = t.Slice(0, limit)
			}
			return formatter.Format(t)
		},
	}
	cmd.Flags().StringVarP(&sql, "query", "q", "", `SQL query against the relation "data"`)
	cmd.Flags().StringVarP(&format, "format", "f", output.FormatJSONL, "Output format: json, jsonl, csv, table")
	cmd.Flags().IntVar(&limit, "limit", 0, "Limit number of rows (0 = unlimited)")
	cmd.Flags().StringVar(&engine, "engine", query.EngineSQLite, "SQL engine: sqlite or native")
	return cmd
}

func write(cmd *cobra.Command, format string, t *table.Table) error {
	formatter, err := output.NewFormatter(format, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	return formatter.Format(t)
}

// firstMatch resolves a glob pattern to its first match.
func firstMatch(cmd *cobra.Command, pattern string) (string, error) {
	if !strings.ContainsAny(pattern, "*?[]") {
		return pattern, nil
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid glob pattern: %w", err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no files match pattern: %s", pattern)
	}
	if len(matches) > 1 {
		fmt.Fprintf(cmd.ErrOrStderr(), "# Showing schema from: %s (%d files matched)\n", matches[0], len(matches))
	}
	return matches[0], nil
}

func describeLoadError(path string, err error) error {
	if errors.Is(err, reader.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("file '%s' not found; please check the file path and try again", path)
	}
	return err
}

var schemaFields = []table.Field{
	{Name: "name", Type: arrow.BinaryTypes.String},
	{Name: "type", Type: arrow.BinaryTypes.String},
	{Name: "physical_type", Type: arrow.BinaryTypes.String},
	{Name: "logical_type", Type: arrow.BinaryTypes.String},
	{Name: "required", Type: arrow.FixedWidthTypes.Boolean},
	{Name: "optional", Type: arrow.FixedWidthTypes.Boolean},
	{Name: "repeated", Type: arrow.FixedWidthTypes.Boolean},
}

func schemaTable(infos []reader.SchemaInfo) (*table.Table, error) {
	b := table.NewBuilder(schemaFields)
	for _, f := range infos {
		err := b.Append([]interface{}{f.Name, f.Type, f.PhysicalType, f.LogicalType, f.Required, f.Optional, f.Repeated})
		if err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}
