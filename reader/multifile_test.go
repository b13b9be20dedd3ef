package reader

import (
	"errors"
	"path/filepath"
	"testing"
)

type idName struct {
	ID   int64  `parquet:"id"`
	Name string `parquet:"name"`
}

func TestReadMultipleFiles_SingleFile(t *testing.T) {
	path := writeParquet(t, t.TempDir(), "test.parquet", []idName{
		{ID: 1, Name: "Alice"},
		{ID: 2, Name: "Bob"},
	})

	result, err := ReadMultipleFiles(path)
	if err != nil {
		t.Fatalf("ReadMultipleFiles() error = %v", err)
	}

	if result.NumRows() != 2 {
		t.Errorf("ReadMultipleFiles() returned %d rows, want 2", result.NumRows())
	}

	// A plain path keeps the file's own columns.
	if result.ColumnIndex(FileColumn) >= 0 {
		t.Errorf("ReadMultipleFiles() single file should not add %s column", FileColumn)
	}
}

func TestReadMultipleFiles_GlobPattern(t *testing.T) {
	dir := t.TempDir()
	writeParquet(t, dir, "file1.parquet", []idName{{ID: 1, Name: "Alice"}})
	writeParquet(t, dir, "file2.parquet", []idName{{ID: 2, Name: "Bob"}})
	writeParquet(t, dir, "file3.parquet", []idName{{ID: 3, Name: "Charlie"}})

	result, err := ReadMultipleFiles(filepath.Join(dir, "*.parquet"))
	if err != nil {
		t.Fatalf("ReadMultipleFiles() error = %v", err)
	}

	if result.NumRows() != 3 {
		t.Errorf("ReadMultipleFiles() returned %d rows, want 3", result.NumRows())
	}

	fileSet := make(map[string]bool)
	for _, row := range result.Rows() {
		file, ok := row[FileColumn].(string)
		if !ok {
			t.Errorf("%s column is not a string: %T", FileColumn, row[FileColumn])
			continue
		}
		fileSet[file] = true
	}
	if len(fileSet) != 3 {
		t.Errorf("Expected rows from 3 different files, got %d", len(fileSet))
	}
}

func TestReadMultipleFiles_SpecificPattern(t *testing.T) {
	dir := t.TempDir()
	writeParquet(t, dir, "data-2024.parquet", []idName{{ID: 1, Name: "Alice"}})
	writeParquet(t, dir, "data-2025.parquet", []idName{{ID: 2, Name: "Bob"}})
	writeParquet(t, dir, "other-2024.parquet", []idName{{ID: 3, Name: "Charlie"}})

	result, err := ReadMultipleFiles(filepath.Join(dir, "data-*.parquet"))
	if err != nil {
		t.Fatalf("ReadMultipleFiles() error = %v", err)
	}
	if result.NumRows() != 2 {
		t.Errorf("ReadMultipleFiles() returned %d rows, want 2", result.NumRows())
	}
}

func TestReadMultipleFiles_NoMatch(t *testing.T) {
	_, err := ReadMultipleFiles(filepath.Join(t.TempDir(), "*.parquet"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadMultipleFiles() error = %v, want ErrNotFound", err)
	}
}

func TestReadMultipleFiles_SchemaMismatch(t *testing.T) {
	type other struct {
		ID    int64   `parquet:"id"`
		Score float64 `parquet:"score"`
	}

	dir := t.TempDir()
	writeParquet(t, dir, "a.parquet", []idName{{ID: 1, Name: "Alice"}})
	writeParquet(t, dir, "b.parquet", []other{{ID: 2, Score: 1.5}})

	_, err := ReadMultipleFiles(filepath.Join(dir, "*.parquet"))
	if !errors.Is(err, ErrDecode) {
		t.Errorf("ReadMultipleFiles() error = %v, want ErrDecode", err)
	}
}
