package reader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/parquet-go/parquet-go"

	"github.com/vegasq/parqview/table"
)

var (
	// ErrNotFound is returned when the requested file does not exist.
	ErrNotFound = errors.New("file not found")

	// ErrDecode is returned when the content is not valid parquet data.
	ErrDecode = errors.New("failed to read parquet")
)

// maxGlobFiles caps the number of files a glob pattern may expand to.
const maxGlobFiles = 1000

// FileColumn is the column added to rows read through a glob pattern.
const FileColumn = "_file"

// Reader decodes a parquet file held on disk or in memory.
//
// It keeps the OS file handle (if any) open until Close is called.
type Reader struct {
	file   *os.File
	pqFile *parquet.File
}

// NewReader creates a new parquet reader for the specified file path.
//
// Returns an error wrapping ErrNotFound if the file doesn't exist, or
// ErrDecode if it is not a valid parquet file.
//
// Example:
//
//	r, err := NewReader("data.parquet")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
func NewReader(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if stat.IsDir() {
		_ = file.Close()
		return nil, fmt.Errorf("%w: %s is a directory", ErrDecode, path)
	}

	pqFile, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return &Reader{
		file:   file,
		pqFile: pqFile,
	}, nil
}

// NewReaderFromBytes creates a reader over an in-memory parquet buffer.
func NewReaderFromBytes(data []byte) (*Reader, error) {
	pqFile, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return &Reader{pqFile: pqFile}, nil
}

// Table decodes every row of the file into memory.
func (r *Reader) Table() (*table.Table, error) {
	t, err := decodeFile(r.pqFile)
	if err != nil {
		if errors.Is(err, ErrDecode) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return t, nil
}

// ReadAll decodes every row of the file as a JSON-safe map keyed by column
// name.
func (r *Reader) ReadAll() ([]map[string]interface{}, error) {
	t, err := r.Table()
	if err != nil {
		return nil, err
	}
	return t.Rows(), nil
}

// Schema returns the parquet file schema.
func (r *Reader) Schema() *parquet.Schema {
	return r.pqFile.Schema()
}

// SchemaInfo returns one SchemaInfo per leaf column.
func (r *Reader) SchemaInfo() []SchemaInfo {
	return schemaInfoOf(r.pqFile.Schema())
}

// NumRows returns the row count recorded in the file metadata.
func (r *Reader) NumRows() int64 {
	return r.pqFile.NumRows()
}

// Close releases the file handle. It is safe to call Close multiple times.
func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// Load decodes a parquet buffer into a table.
func Load(data []byte) (*table.Table, error) {
	r, err := NewReaderFromBytes(data)
	if err != nil {
		return nil, err
	}
	return r.Table()
}

// LoadFrom reads a parquet stream fully and decodes it.
func LoadFrom(src io.Reader) (*table.Table, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return Load(data)
}

// LoadFile decodes the parquet file at path into a table.
func LoadFile(path string) (*table.Table, error) {
	r, err := NewReader(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	return r.Table()
}

// ReadMultipleFiles reads every parquet file matching a glob pattern.
//
// A pattern without wildcards reads a single file unchanged. Otherwise all
// matching files must share the schema of the first one; their rows are
// concatenated and tagged with a "_file" column holding the source path.
func ReadMultipleFiles(pattern string) (*table.Table, error) {
	if !strings.ContainsAny(pattern, "*?[]") {
		return LoadFile(pattern)
	}

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: no files match pattern %s", ErrNotFound, pattern)
	}
	if len(matches) > maxGlobFiles {
		return nil, fmt.Errorf("glob pattern matched too many files (%d), maximum is %d", len(matches), maxGlobFiles)
	}

	var (
		b      *table.Builder
		fields []table.Field
	)
	for _, path := range matches {
		t, err := LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		if b == nil {
			fields = append(t.Fields(), table.Field{Name: FileColumn, Type: arrow.BinaryTypes.String})
			b = table.NewBuilder(fields)
		} else if !sameColumns(fields[:len(fields)-1], t.Fields()) {
			return nil, fmt.Errorf("%w: %s has a different schema than %s", ErrDecode, path, matches[0])
		}

		values := make([]interface{}, len(fields))
		for i := 0; i < t.NumRows(); i++ {
			for c := 0; c < t.NumColumns(); c++ {
				values[c] = t.Value(i, c)
			}
			values[len(values)-1] = path
			if err := b.Append(values); err != nil {
				return nil, fmt.Errorf("failed to merge %s: %w", path, err)
			}
		}
	}

	return b.Build(), nil
}

func sameColumns(a, b []table.Field) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || !arrow.TypeEqual(a[i].Type, b[i].Type) {
			return false
		}
	}
	return true
}
