package query

import (
	"errors"
	"strings"
	"testing"
)

func TestParse_SelectList(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		columns  []SelectItem
		distinct bool
	}{
		{name: "star", query: "SELECT * FROM data"},
		{
			name:    "columns",
			query:   "SELECT a, b FROM data",
			columns: []SelectItem{{Column: "a"}, {Column: "b"}},
		},
		{
			name:    "aliases",
			query:   "select a AS x, b y from data",
			columns: []SelectItem{{Column: "a", Alias: "x"}, {Column: "b", Alias: "y"}},
		},
		{
			name:     "distinct",
			query:    "SELECT DISTINCT b FROM data;",
			columns:  []SelectItem{{Column: "b"}},
			distinct: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := Parse(tt.query)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if stmt.Table != "data" {
				t.Errorf("Table = %q, want data", stmt.Table)
			}
			if stmt.Distinct != tt.distinct {
				t.Errorf("Distinct = %v, want %v", stmt.Distinct, tt.distinct)
			}
			if len(stmt.Columns) != len(tt.columns) {
				t.Fatalf("Columns = %v, want %v", stmt.Columns, tt.columns)
			}
			for i := range tt.columns {
				if stmt.Columns[i] != tt.columns[i] {
					t.Errorf("column %d = %+v, want %+v", i, stmt.Columns[i], tt.columns[i])
				}
			}
		})
	}
}

func TestParse_Clauses(t *testing.T) {
	stmt, err := Parse("SELECT a FROM data WHERE a > 1 ORDER BY a DESC, b LIMIT 10 OFFSET 5")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	cmp, ok := stmt.Filter.(*ComparisonExpr)
	if !ok {
		t.Fatalf("Filter = %T, want *ComparisonExpr", stmt.Filter)
	}
	if cmp.Left.Column != "a" || cmp.Operator != TokenGreater || cmp.Right.Literal != int64(1) {
		t.Errorf("Filter = %+v", cmp)
	}

	if len(stmt.OrderBy) != 2 || !stmt.OrderBy[0].Desc || stmt.OrderBy[1].Desc {
		t.Errorf("OrderBy = %+v", stmt.OrderBy)
	}
	if stmt.Limit == nil || *stmt.Limit != 10 {
		t.Errorf("Limit = %v, want 10", stmt.Limit)
	}
	if stmt.Offset == nil || *stmt.Offset != 5 {
		t.Errorf("Offset = %v, want 5", stmt.Offset)
	}
}

func TestParse_Precedence(t *testing.T) {
	stmt, err := Parse("SELECT * FROM data WHERE a = 1 OR b = 2 AND NOT c = 3")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	or, ok := stmt.Filter.(*BinaryExpr)
	if !ok || or.Operator != TokenOr {
		t.Fatalf("top level = %#v, want OR", stmt.Filter)
	}
	and, ok := or.Right.(*BinaryExpr)
	if !ok || and.Operator != TokenAnd {
		t.Fatalf("right of OR = %#v, want AND", or.Right)
	}
	if _, ok := and.Right.(*NotExpr); !ok {
		t.Errorf("right of AND = %#v, want NOT", and.Right)
	}
}

func TestParse_Predicates(t *testing.T) {
	tests := []struct {
		name  string
		where string
		check func(Expression) bool
	}{
		{"in", "a IN (1, 2, 3)", func(e Expression) bool {
			in, ok := e.(*InExpr)
			return ok && len(in.Values) == 3 && !in.Not
		}},
		{"not in", "a NOT IN ('x')", func(e Expression) bool {
			in, ok := e.(*InExpr)
			return ok && in.Not
		}},
		{"like", "name LIKE 'a%'", func(e Expression) bool {
			l, ok := e.(*LikeExpr)
			return ok && l.Pattern.Literal == "a%"
		}},
		{"between", "a BETWEEN 1 AND 5", func(e Expression) bool {
			b, ok := e.(*BetweenExpr)
			return ok && b.Low.Literal == int64(1) && b.High.Literal == int64(5)
		}},
		{"is not null", "a IS NOT NULL", func(e Expression) bool {
			n, ok := e.(*IsNullExpr)
			return ok && n.Not
		}},
		{"bare column", "active", func(e Expression) bool {
			_, ok := e.(*TruthExpr)
			return ok
		}},
		{"parentheses", "(a = 1 OR a = 2) AND b = 'x'", func(e Expression) bool {
			b, ok := e.(*BinaryExpr)
			return ok && b.Operator == TokenAnd
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := Parse("SELECT * FROM data WHERE " + tt.where)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if !tt.check(stmt.Filter) {
				t.Errorf("unexpected filter %#v", stmt.Filter)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"missing select", "FROM data"},
		{"missing from", "SELECT a"},
		{"missing table", "SELECT a FROM"},
		{"dangling where", "SELECT * FROM data WHERE"},
		{"missing value", "SELECT * FROM data WHERE a >"},
		{"unclosed paren", "SELECT * FROM data WHERE (a = 1"},
		{"negative limit", "SELECT * FROM data LIMIT -1"},
		{"trailing tokens", "SELECT * FROM data data2"},
		{"group by unsupported", "SELECT a FROM data GROUP BY a"},
		{"not without predicate", "SELECT * FROM data WHERE a NOT 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.query); err == nil {
				t.Errorf("Parse(%q) expected error, got nil", tt.query)
			}
		})
	}
}

func TestParse_Limits(t *testing.T) {
	if _, err := Parse("   "); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("Parse(blank) error = %v, want ErrEmptyQuery", err)
	}

	long := "SELECT * FROM data WHERE a = '" + strings.Repeat("x", MaxQueryLength) + "'"
	if _, err := Parse(long); !errors.Is(err, ErrQueryTooLong) {
		t.Errorf("Parse(long) error = %v, want ErrQueryTooLong", err)
	}

	many := "SELECT * FROM data WHERE a IN (" + strings.Repeat("1, ", MaxTokens) + "1)"
	if _, err := Parse(many); !errors.Is(err, ErrTooManyTokens) {
		t.Errorf("Parse(many tokens) error = %v, want ErrTooManyTokens", err)
	}

	deep := "SELECT * FROM data WHERE " + strings.Repeat("(", MaxExpressionDepth+1) + "a = 1" + strings.Repeat(")", MaxExpressionDepth+1)
	if _, err := Parse(deep); !errors.Is(err, ErrExpressionTooDeep) {
		t.Errorf("Parse(deep) error = %v, want ErrExpressionTooDeep", err)
	}
}
