package query

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/vegasq/parqview/table"
)

// Truth is a three-valued SQL truth value.
type Truth int8

const (
	False Truth = iota
	True
	Unknown
)

func truthOf(b bool) Truth {
	if b {
		return True
	}
	return False
}

// Not negates t; Unknown stays Unknown.
func (t Truth) Not() Truth {
	switch t {
	case True:
		return False
	case False:
		return True
	default:
		return Unknown
	}
}

// Evaluate evaluates a binary expression
func (b *BinaryExpr) Evaluate(row Row) (Truth, error) {
	left, err := b.Left.Evaluate(row)
	if err != nil {
		return False, err
	}

	// Short-circuit where the result is already decided
	if b.Operator == TokenAnd && left == False {
		return False, nil
	}
	if b.Operator == TokenOr && left == True {
		return True, nil
	}

	right, err := b.Right.Evaluate(row)
	if err != nil {
		return False, err
	}

	switch b.Operator {
	case TokenAnd:
		if right == False {
			return False, nil
		}
		if left == True && right == True {
			return True, nil
		}
		return Unknown, nil
	case TokenOr:
		if right == True {
			return True, nil
		}
		if left == False && right == False {
			return False, nil
		}
		return Unknown, nil
	default:
		return False, fmt.Errorf("unsupported boolean operator %s", b.Operator)
	}
}

// Columns implements Expression.
func (b *BinaryExpr) Columns() []string {
	return append(b.Left.Columns(), b.Right.Columns()...)
}

// Evaluate evaluates a negation
func (n *NotExpr) Evaluate(row Row) (Truth, error) {
	t, err := n.Expr.Evaluate(row)
	if err != nil {
		return False, err
	}
	return t.Not(), nil
}

// Columns implements Expression.
func (n *NotExpr) Columns() []string { return n.Expr.Columns() }

// Evaluate evaluates a comparison expression
func (c *ComparisonExpr) Evaluate(row Row) (Truth, error) {
	left, err := c.Left.Value(row)
	if err != nil {
		return False, err
	}
	right, err := c.Right.Value(row)
	if err != nil {
		return False, err
	}
	return compare(left, c.Operator, right)
}

// Columns implements Expression.
func (c *ComparisonExpr) Columns() []string {
	return append(c.Left.columns(), c.Right.columns()...)
}

// Evaluate evaluates an IN list
func (in *InExpr) Evaluate(row Row) (Truth, error) {
	v, err := in.Operand.Value(row)
	if err != nil {
		return False, err
	}

	result := False
	for _, candidate := range in.Values {
		cv, err := candidate.Value(row)
		if err != nil {
			return False, err
		}
		t, err := compare(v, TokenEqual, cv)
		if err != nil {
			return False, err
		}
		if t == True {
			result = True
			break
		}
		if t == Unknown {
			result = Unknown
		}
	}

	if in.Not {
		return result.Not(), nil
	}
	return result, nil
}

// Columns implements Expression.
func (in *InExpr) Columns() []string {
	cols := in.Operand.columns()
	for _, v := range in.Values {
		cols = append(cols, v.columns()...)
	}
	return cols
}

// Evaluate evaluates a LIKE pattern match
func (l *LikeExpr) Evaluate(row Row) (Truth, error) {
	v, err := l.Operand.Value(row)
	if err != nil {
		return False, err
	}
	pattern, err := l.Pattern.Value(row)
	if err != nil {
		return False, err
	}
	if v == nil || pattern == nil {
		return Unknown, nil
	}

	patternStr, ok := pattern.(string)
	if !ok {
		return False, fmt.Errorf("LIKE pattern must be a string, got %T", pattern)
	}

	result := truthOf(matchLikePattern(textOf(v), patternStr))
	if l.Not {
		return result.Not(), nil
	}
	return result, nil
}

// Columns implements Expression.
func (l *LikeExpr) Columns() []string {
	return append(l.Operand.columns(), l.Pattern.columns()...)
}

// Evaluate evaluates a BETWEEN range check (inclusive)
func (b *BetweenExpr) Evaluate(row Row) (Truth, error) {
	v, err := b.Operand.Value(row)
	if err != nil {
		return False, err
	}
	low, err := b.Low.Value(row)
	if err != nil {
		return False, err
	}
	high, err := b.High.Value(row)
	if err != nil {
		return False, err
	}

	aboveLow, err := compare(v, TokenGreaterEqual, low)
	if err != nil {
		return False, err
	}
	belowHigh, err := compare(v, TokenLessEqual, high)
	if err != nil {
		return False, err
	}

	result := Unknown
	switch {
	case aboveLow == False || belowHigh == False:
		result = False
	case aboveLow == True && belowHigh == True:
		result = True
	}
	if b.Not {
		return result.Not(), nil
	}
	return result, nil
}

// Columns implements Expression.
func (b *BetweenExpr) Columns() []string {
	cols := b.Operand.columns()
	cols = append(cols, b.Low.columns()...)
	return append(cols, b.High.columns()...)
}

// Evaluate evaluates a NULL test
func (n *IsNullExpr) Evaluate(row Row) (Truth, error) {
	v, err := n.Operand.Value(row)
	if err != nil {
		return False, err
	}
	return truthOf((v == nil) != n.Not), nil
}

// Columns implements Expression.
func (n *IsNullExpr) Columns() []string { return n.Operand.columns() }

// Evaluate interprets the operand as a boolean
func (e *TruthExpr) Evaluate(row Row) (Truth, error) {
	v, err := e.Operand.Value(row)
	if err != nil {
		return False, err
	}
	if v == nil {
		return Unknown, nil
	}
	if b, ok := v.(bool); ok {
		return truthOf(b), nil
	}
	if f, ok := table.ToFloat64(v); ok {
		return truthOf(f != 0), nil
	}
	return False, fmt.Errorf("cannot use %T as a condition", v)
}

// Columns implements Expression.
func (e *TruthExpr) Columns() []string { return e.Operand.columns() }

// compare compares two values using the given operator. Any NULL operand
// yields Unknown.
func compare(left interface{}, operator TokenType, right interface{}) (Truth, error) {
	if left == nil || right == nil {
		return Unknown, nil
	}

	cmp, err := order(left, right)
	if err != nil {
		return False, err
	}
	if math.IsNaN(cmp) {
		return truthOf(operator == TokenNotEqual), nil
	}

	switch operator {
	case TokenEqual:
		return truthOf(cmp == 0), nil
	case TokenNotEqual:
		return truthOf(cmp != 0), nil
	case TokenLess:
		return truthOf(cmp < 0), nil
	case TokenGreater:
		return truthOf(cmp > 0), nil
	case TokenLessEqual:
		return truthOf(cmp <= 0), nil
	case TokenGreaterEqual:
		return truthOf(cmp >= 0), nil
	default:
		return False, fmt.Errorf("unsupported comparison operator %s", operator)
	}
}

// order returns a negative, zero or positive number as left sorts before,
// equal to or after right. NaN means the values are unordered.
func order(left, right interface{}) (float64, error) {
	// Try numeric comparison
	if l, ok := table.ToFloat64(left); ok {
		if r, ok := table.ToFloat64(right); ok {
			if math.IsNaN(l) || math.IsNaN(r) {
				return math.NaN(), nil
			}
			return sign(l - r), nil
		}
	}

	// Time columns compare against RFC 3339 or date string literals
	if l, ok := left.(time.Time); ok {
		r, err := asTime(right)
		if err != nil {
			return 0, err
		}
		return float64(l.Compare(r)), nil
	}
	if r, ok := right.(time.Time); ok {
		l, err := asTime(left)
		if err != nil {
			return 0, err
		}
		return float64(l.Compare(r)), nil
	}

	switch l := left.(type) {
	case string:
		if r, ok := right.(string); ok {
			return float64(strings.Compare(l, r)), nil
		}
		if r, ok := right.([]byte); ok {
			return float64(strings.Compare(l, string(r))), nil
		}
	case []byte:
		if r, ok := right.([]byte); ok {
			return float64(bytes.Compare(l, r)), nil
		}
		if r, ok := right.(string); ok {
			return float64(strings.Compare(string(l), r)), nil
		}
	case bool:
		if r, ok := right.(bool); ok {
			return float64(boolRank(l) - boolRank(r)), nil
		}
		if r, ok := table.ToFloat64(right); ok {
			return sign(float64(boolRank(l)) - r), nil
		}
	}

	if r, ok := right.(bool); ok {
		if l, ok := table.ToFloat64(left); ok {
			return sign(l - float64(boolRank(r))), nil
		}
	}

	// Type mismatch
	return 0, fmt.Errorf("cannot compare %T with %T", left, right)
}

// compareValues orders two values for ORDER BY. NULLs sort first and values
// that cannot be compared are treated as equal.
func compareValues(a, b interface{}) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}

	cmp, err := order(a, b)
	if err != nil {
		return 0
	}
	if math.IsNaN(cmp) {
		// NaN sorts after every number
		aNaN := isNaN(a)
		bNaN := isNaN(b)
		switch {
		case aNaN && bNaN:
			return 0
		case aNaN:
			return 1
		default:
			return -1
		}
	}
	return int(cmp)
}

func asTime(v interface{}) (time.Time, error) {
	switch val := v.(type) {
	case time.Time:
		return val, nil
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, val); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("cannot compare timestamp with %q", val)
	default:
		return time.Time{}, fmt.Errorf("cannot compare timestamp with %T", v)
	}
}

func textOf(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(val)
	}
}

func isNaN(v interface{}) bool {
	f, ok := table.ToFloat64(v)
	return ok && math.IsNaN(f)
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

func sign(f float64) float64 {
	switch {
	case f < 0:
		return -1
	case f > 0:
		return 1
	default:
		return 0
	}
}

// matchLikePattern matches a string against a SQL LIKE pattern.
// % matches any sequence of characters and _ matches exactly one. Matching
// is case-sensitive.
func matchLikePattern(str, pattern string) bool {
	s := []rune(str)
	p := []rune(pattern)

	// Backtracking over the most recent %, which is enough for LIKE
	si, pi := 0, 0
	star, mark := -1, 0
	for si < len(s) {
		switch {
		case pi < len(p) && (p[pi] == '_' || p[pi] == s[si]) && p[pi] != '%':
			si++
			pi++
		case pi < len(p) && p[pi] == '%':
			star = pi
			mark = si
			pi++
		case star >= 0:
			pi = star + 1
			mark++
			si = mark
		default:
			return false
		}
	}

	for pi < len(p) && p[pi] == '%' {
		pi++
	}
	return pi == len(p)
}
