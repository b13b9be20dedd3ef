// Package stats computes per-column summary statistics for a table.
package stats

import (
	"math"
	"time"

	"github.com/vegasq/parqview/table"
)

// ColumnSummary is the statistics of one column, either a *NumericSummary or
// a *CategoricalSummary.
type ColumnSummary interface {
	NullCount() int64
}

// Summary maps column names to their statistics.
type Summary map[string]ColumnSummary

// NumericSummary describes an integer, unsigned or floating point column.
// Min, Max and Mean are nil when the column has no non-null value.
type NumericSummary struct {
	Min   *float64 `json:"min"`
	Max   *float64 `json:"max"`
	Mean  *float64 `json:"mean"`
	Nulls int64    `json:"nulls"`
}

// NullCount implements ColumnSummary.
func (s *NumericSummary) NullCount() int64 { return s.Nulls }

// CategoricalSummary describes any non-numeric column.
type CategoricalSummary struct {
	Unique int64 `json:"unique"`
	Nulls  int64 `json:"nulls"`
}

// NullCount implements ColumnSummary.
func (s *CategoricalSummary) NullCount() int64 { return s.Nulls }

// Summarize computes statistics for every column of t.
//
// NaN counts as a null cell, matching how missing floating point values are
// reported by most dataframe tools.
func Summarize(t *table.Table) Summary {
	summary := make(Summary, t.NumColumns())
	for c, f := range t.Fields() {
		if table.IsNumeric(f.Type) {
			summary[f.Name] = numeric(t, c)
		} else {
			summary[f.Name] = categorical(t, c)
		}
	}
	return summary
}

func numeric(t *table.Table, col int) *NumericSummary {
	var (
		s      NumericSummary
		lo, hi float64
		sum    float64
		count  int64
	)

	for i := 0; i < t.NumRows(); i++ {
		f, ok := table.ToFloat64(t.Value(i, col))
		if !ok || math.IsNaN(f) {
			s.Nulls++
			continue
		}
		if count == 0 || f < lo {
			lo = f
		}
		if count == 0 || f > hi {
			hi = f
		}
		sum += f
		count++
	}

	if count > 0 {
		mean := sum / float64(count)
		s.Min, s.Max, s.Mean = &lo, &hi, &mean
	}
	return &s
}

func categorical(t *table.Table, col int) *CategoricalSummary {
	var s CategoricalSummary
	seen := make(map[interface{}]struct{})

	for i := 0; i < t.NumRows(); i++ {
		v := t.Value(i, col)
		if v == nil {
			s.Nulls++
			continue
		}
		seen[distinctKey(v)] = struct{}{}
	}

	s.Unique = int64(len(seen))
	return &s
}

// distinctKey returns a comparable key for v.
func distinctKey(v interface{}) interface{} {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.UnixNano()
	default:
		return val
	}
}
