package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestJSONLFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONLFormatter(&buf).Format(peopleTable(t)); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("Format() produced %d lines, want 3", len(lines))
	}

	want := `{"z_id":1,"name":"alice","score":95.5,"seen":"2024-01-02T03:04:05Z"}`
	if lines[0] != want {
		t.Errorf("line 0 = %s, want %s", lines[0], want)
	}

	var row map[string]interface{}
	if err := json.Unmarshal([]byte(lines[1]), &row); err != nil {
		t.Fatalf("line 1 is not valid JSON: %v", err)
	}
	for _, col := range []string{"name", "score", "seen"} {
		if v, ok := row[col]; !ok || v != nil {
			t.Errorf("row[%q] = %v, want null", col, v)
		}
	}
}

func TestJSONLFormatter_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONLFormatter(&buf).Format(emptyTable(t)); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("Format() output = %q, want empty", buf.String())
	}
}

func TestJSONFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONFormatter(&buf).Format(peopleTable(t)); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	var rows []map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &rows); err != nil {
		t.Fatalf("Format() produced invalid JSON: %v\n%s", err, buf.String())
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[2]["name"] != "=SUM(A1)" {
		t.Errorf("JSON must not alter strings, got %v", rows[2]["name"])
	}

	first := strings.Index(buf.String(), `"z_id"`)
	second := strings.Index(buf.String(), `"name"`)
	if first < 0 || second < 0 || first > second {
		t.Errorf("keys must keep column order:\n%s", buf.String())
	}
}

func TestJSONFormatter_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONFormatter(&buf).Format(emptyTable(t)); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if got := buf.String(); got != "[]\n" {
		t.Errorf("Format() = %q, want %q", got, "[]\n")
	}
}

func TestJSONFormatter_SetOutput(t *testing.T) {
	var first, second bytes.Buffer
	f := NewJSONFormatter(&first)
	f.SetOutput(&second)

	if err := f.Format(emptyTable(t)); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if first.Len() != 0 || second.Len() == 0 {
		t.Errorf("SetOutput did not redirect output")
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, map[string]int{"a": 1}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	if got, want := buf.String(), "{\n  \"a\": 1\n}\n"; got != want {
		t.Errorf("WriteJSON() = %q, want %q", got, want)
	}
}
