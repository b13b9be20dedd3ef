package query

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestNewEngine(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{name: "", want: EngineSQLite},
		{name: "sqlite", want: EngineSQLite},
		{name: "NATIVE", want: EngineNative},
		{name: "duckdb", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, err := NewEngine(tt.name)
			if tt.wantErr {
				if err == nil {
					t.Errorf("NewEngine(%q) expected error", tt.name)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewEngine(%q) error = %v", tt.name, err)
			}
			if engine.Name() != tt.want {
				t.Errorf("NewEngine(%q).Name() = %q, want %q", tt.name, engine.Name(), tt.want)
			}
		})
	}
}

func TestRunner_Run(t *testing.T) {
	for _, engine := range engines() {
		t.Run(engine.Name(), func(t *testing.T) {
			runner := NewRunner(engine)
			result, err := runner.Run(context.Background(), abTable(t), "SELECT a, b FROM data WHERE a > 1")
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if result.Table.NumRows() != 2 {
				t.Errorf("NumRows() = %d, want 2", result.Table.NumRows())
			}
			if result.Truncated {
				t.Errorf("Truncated = true, want false")
			}
		})
	}
}

func TestRunner_MaxRows(t *testing.T) {
	runner := NewRunner(NativeEngine{}, WithMaxRows(2))

	result, err := runner.Run(context.Background(), abTable(t), "SELECT * FROM data")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Table.NumRows() != 2 || !result.Truncated {
		t.Errorf("got %d rows, truncated=%v; want 2 rows, truncated", result.Table.NumRows(), result.Truncated)
	}

	result, err = runner.Run(context.Background(), abTable(t), "SELECT * FROM data WHERE a = 1")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Truncated {
		t.Errorf("Truncated = true for a result under the cap")
	}
}

func TestRunner_ErrorsWrapErrQuery(t *testing.T) {
	tests := []struct {
		name string
		sql  string
	}{
		{"blank", "  "},
		{"syntax", "SELEC 1"},
		{"unknown table", "SELECT * FROM nope"},
		{"too long", "SELECT '" + strings.Repeat("x", MaxQueryLength) + "'"},
	}

	for _, engine := range engines() {
		runner := NewRunner(engine)
		for _, tt := range tests {
			t.Run(engine.Name()+"/"+tt.name, func(t *testing.T) {
				_, err := runner.Run(context.Background(), abTable(t), tt.sql)
				if !errors.Is(err, ErrQuery) {
					t.Errorf("Run() error = %v, want ErrQuery", err)
				}
			})
		}
	}
}

func TestRunner_DoesNotMutateInput(t *testing.T) {
	src := abTable(t)
	before := src.Rows()

	runner := NewRunner(SQLiteEngine{})
	if _, err := runner.Run(context.Background(), src, "SELECT a FROM data ORDER BY a DESC"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	after := src.Rows()
	for i := range before {
		for k, v := range before[i] {
			if after[i][k] != v {
				t.Errorf("row %d column %s changed from %v to %v", i, k, v, after[i][k])
			}
		}
	}
}
