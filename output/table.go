package output

import (
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/vegasq/parqview/table"
)

// TableFormatter renders rows as an aligned text table for terminals
type TableFormatter struct {
	writer io.Writer
}

// NewTableFormatter creates a new text table formatter
func NewTableFormatter(w io.Writer) *TableFormatter {
	return &TableFormatter{writer: w}
}

// SetOutput sets the output writer
func (f *TableFormatter) SetOutput(w io.Writer) {
	f.writer = w
}

// Format renders t. Nulls are shown as NULL.
func (f *TableFormatter) Format(t *table.Table) error {
	tw := tablewriter.NewWriter(f.writer)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetHeader(t.ColumnNames())

	for i := 0; i < t.NumRows(); i++ {
		values := t.RowValues(i)
		record := make([]string, len(values))
		for c, v := range values {
			if v == nil {
				record[c] = "NULL"
				continue
			}
			record[c] = formatValue(v)
		}
		tw.Append(record)
	}
	tw.Render()
	return nil
}
