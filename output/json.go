package output

import (
	"bufio"
	"fmt"
	"io"

	json "github.com/goccy/go-json"

	"github.com/vegasq/parqview/table"
)

// JSONLFormatter outputs rows as JSON Lines format
type JSONLFormatter struct {
	writer io.Writer
}

// NewJSONLFormatter creates a new JSON Lines formatter
func NewJSONLFormatter(w io.Writer) *JSONLFormatter {
	return &JSONLFormatter{writer: w}
}

// SetOutput sets the output writer
func (j *JSONLFormatter) SetOutput(w io.Writer) {
	j.writer = w
}

// Format writes rows as JSON Lines (one JSON object per line). Keys keep
// the column order of t.
func (j *JSONLFormatter) Format(t *table.Table) error {
	keys, err := encodeKeys(t.ColumnNames())
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(j.writer)
	for i := 0; i < t.NumRows(); i++ {
		if err := writeObject(bw, keys, t.RowValues(i)); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// JSONFormatter outputs rows as a single JSON array of objects
type JSONFormatter struct {
	writer io.Writer
}

// NewJSONFormatter creates a new JSON array formatter
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{writer: w}
}

// SetOutput sets the output writer
func (j *JSONFormatter) SetOutput(w io.Writer) {
	j.writer = w
}

// Format writes rows as a JSON array. An empty table is written as [].
func (j *JSONFormatter) Format(t *table.Table) error {
	keys, err := encodeKeys(t.ColumnNames())
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(j.writer)
	if err := bw.WriteByte('['); err != nil {
		return err
	}
	for i := 0; i < t.NumRows(); i++ {
		if i > 0 {
			if err := bw.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := bw.WriteString("\n  "); err != nil {
			return err
		}
		if err := writeObject(bw, keys, t.RowValues(i)); err != nil {
			return err
		}
	}
	if t.NumRows() > 0 {
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	if _, err := bw.WriteString("]\n"); err != nil {
		return err
	}
	return bw.Flush()
}

func encodeKeys(names []string) ([][]byte, error) {
	keys := make([][]byte, len(names))
	for i, name := range names {
		k, err := json.Marshal(name)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		keys[i] = k
	}
	return keys, nil
}

func writeObject(w *bufio.Writer, keys [][]byte, values []interface{}) error {
	if err := w.WriteByte('{'); err != nil {
		return err
	}
	for i, key := range keys {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		v, err := json.Marshal(values[i])
		if err != nil {
			return fmt.Errorf("column %s: %w", key, err)
		}
		if _, err := w.Write(key); err != nil {
			return err
		}
		if err := w.WriteByte(':'); err != nil {
			return err
		}
		if _, err := w.Write(v); err != nil {
			return err
		}
	}
	return w.WriteByte('}')
}
